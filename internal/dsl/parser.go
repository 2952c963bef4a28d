package dsl

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"

	yaml "gopkg.in/yaml.v3"
)

// SupportedVersion is the only scenario document version understood.
const SupportedVersion = 1

var validSaveName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// ParseYAML decodes a scenario document and validates its structure.
// Unknown fields are rejected.
func ParseYAML(yamlPayload []byte) (Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(yamlPayload))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		if errors.Is(err, io.EOF) {
			return Scenario{}, fmt.Errorf("empty scenario document")
		}
		return Scenario{}, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	if err := Validate(scenario); err != nil {
		return Scenario{}, err
	}
	return scenario, nil
}

// LoadFile reads and parses the scenario at path.
func LoadFile(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("failed to read scenario file: %w", err)
	}
	scenario, err := ParseYAML(data)
	if err != nil {
		return Scenario{}, fmt.Errorf("%s: %w", path, err)
	}
	return scenario, nil
}

// Validate checks the rules the JSON schema cannot express on its own and
// produces the clearer error messages for the common ones.
func Validate(scenario Scenario) error {
	if scenario.Version != SupportedVersion {
		return fmt.Errorf("unsupported version: %d", scenario.Version)
	}
	if scenario.Name == "" {
		return fmt.Errorf("a name is required for each scenario")
	}
	if vp := scenario.Viewport; vp != nil && (vp.Width <= 0 || vp.Height <= 0) {
		return fmt.Errorf("scenario %q: viewport must have a positive width and height", scenario.Name)
	}

	for i, step := range scenario.Steps {
		if step.Name == "" {
			return fmt.Errorf("scenario %q: step %d: a name is required for each step", scenario.Name, i)
		}
		if step.Action == "" {
			return fmt.Errorf("scenario %q: step %q: an action is required for each step", scenario.Name, step.Name)
		}
		if !slices.Contains(Actions, step.Action) {
			return fmt.Errorf("scenario %q: step %q: unknown action %q", scenario.Name, step.Name, step.Action)
		}
		if err := validateStepFields(step); err != nil {
			return fmt.Errorf("scenario %q: step %q: %w", scenario.Name, step.Name, err)
		}
		for j, assertion := range step.Assertions {
			if err := validateAssertion(assertion); err != nil {
				return fmt.Errorf("scenario %q: step %q: assertion %d: %w", scenario.Name, step.Name, j, err)
			}
			if assertion.Within > 0 && !slices.Contains(PollableActions, step.Action) {
				return fmt.Errorf("scenario %q: step %q: assertion %d: within is not supported for action %s, it cannot be re-run", scenario.Name, step.Name, j, step.Action)
			}
		}
		if step.Save != "" && !validSaveName.MatchString(step.Save) {
			return fmt.Errorf("scenario %q: step %q: invalid save name %q", scenario.Name, step.Name, step.Save)
		}
	}
	return nil
}

func validateStepFields(step Step) error {
	needsTarget := []string{"click", "fill", "hover", "hover_all", "wait_for", "text", "value", "visible", "count", "download", "upload"}
	if slices.Contains(needsTarget, step.Action) && (step.Target == nil || step.Target.Selector == "") {
		return fmt.Errorf("action %s requires a target selector", step.Action)
	}
	if step.Target != nil && step.Target.Nth != nil && *step.Target.Nth < 0 {
		return fmt.Errorf("target nth must not be negative")
	}

	switch step.Action {
	case "navigate":
		if step.URL == "" {
			return fmt.Errorf("action navigate requires a url")
		}
	case "press":
		if step.Key == "" {
			return fmt.Errorf("action press requires a key")
		}
	case "evaluate":
		if step.Script == "" {
			return fmt.Errorf("action evaluate requires a script")
		}
	case "storage":
		if step.Key == "" {
			return fmt.Errorf("action storage requires a key")
		}
	case "screenshot":
		if step.Path == "" {
			return fmt.Errorf("action screenshot requires a path")
		}
	case "upload":
		if len(step.Files) == 0 {
			return fmt.Errorf("action upload requires at least one file")
		}
	case "wait":
		if step.Duration <= 0 {
			return fmt.Errorf("action wait requires a positive duration")
		}
	case "hover_all":
		if step.Limit < 0 {
			return fmt.Errorf("limit must not be negative")
		}
	}

	if step.WaitUntil != "" && !slices.Contains([]string{"load", "domcontentloaded", "networkidle"}, step.WaitUntil) {
		return fmt.Errorf("unknown wait_until %q", step.WaitUntil)
	}
	if step.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

func validateAssertion(assertion Assertion) error {
	if assertion.Type == "" {
		return fmt.Errorf("a type is required for each assertion")
	}
	if !slices.Contains(AssertionTypes, assertion.Type) {
		return fmt.Errorf("unknown assertion type %q", assertion.Type)
	}
	switch assertion.Type {
	case AssertJSONPath:
		if assertion.Path == "" {
			return fmt.Errorf("json_path assertion requires a path")
		}
	case AssertJSONSchema:
		if assertion.Schema == nil {
			return fmt.Errorf("json_schema assertion requires a schema")
		}
	case AssertExpression:
		if assertion.Expr == "" {
			return fmt.Errorf("expression assertion requires expr")
		}
	case AssertTruthy, AssertFalsy:
	default:
		if assertion.Expected == nil {
			return fmt.Errorf("%s assertion requires expected", assertion.Type)
		}
	}
	if assertion.Within < 0 {
		return fmt.Errorf("within must not be negative")
	}
	return nil
}

package dsl

import (
	"fmt"
	"strconv"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/rocketship-ai/uiprobe/internal/driver"
)

// Scenario is one runnable sequence of steps against the application.
type Scenario struct {
	Version     int                    `json:"version" yaml:"version"`
	Name        string                 `json:"name" yaml:"name"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Viewport    *driver.Viewport       `json:"viewport,omitempty" yaml:"viewport,omitempty"`
	Vars        map[string]interface{} `json:"vars,omitempty" yaml:"vars,omitempty"`
	Steps       []Step                 `json:"steps" yaml:"steps"`
}

// Step is one ordered action. Only the fields its action uses are read.
type Step struct {
	Name       string         `json:"name" yaml:"name"`
	Action     string         `json:"action" yaml:"action"`
	Target     *driver.Target `json:"target,omitempty" yaml:"target,omitempty"`
	URL        string         `json:"url,omitempty" yaml:"url,omitempty"`
	Value      string         `json:"value,omitempty" yaml:"value,omitempty"`
	Key        string         `json:"key,omitempty" yaml:"key,omitempty"`
	Script     string         `json:"script,omitempty" yaml:"script,omitempty"`
	Path       string         `json:"path,omitempty" yaml:"path,omitempty"`
	Files      []string       `json:"files,omitempty" yaml:"files,omitempty"`
	FullPage   bool           `json:"full_page,omitempty" yaml:"full_page,omitempty"`
	WaitUntil  string         `json:"wait_until,omitempty" yaml:"wait_until,omitempty"`
	Duration   Duration       `json:"duration,omitempty" yaml:"duration,omitempty"`
	Timeout    Duration       `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Limit      int            `json:"limit,omitempty" yaml:"limit,omitempty"`
	Count      int            `json:"count,omitempty" yaml:"count,omitempty"`
	Accept     *bool          `json:"accept,omitempty" yaml:"accept,omitempty"`
	Hard       *bool          `json:"hard,omitempty" yaml:"hard,omitempty"`
	When       string         `json:"when,omitempty" yaml:"when,omitempty"`
	Save       string         `json:"save,omitempty" yaml:"save,omitempty"`
	Assertions []Assertion    `json:"assertions,omitempty" yaml:"assertions,omitempty"`
}

// Assertion checks the value a step observed.
type Assertion struct {
	Type     string      `json:"type" yaml:"type"`
	Expected interface{} `json:"expected,omitempty" yaml:"expected,omitempty"`
	Path     string      `json:"path,omitempty" yaml:"path,omitempty"`
	Exists   bool        `json:"exists,omitempty" yaml:"exists,omitempty"`
	Schema   interface{} `json:"schema,omitempty" yaml:"schema,omitempty"`
	Expr     string      `json:"expr,omitempty" yaml:"expr,omitempty"`
	Within   Duration    `json:"within,omitempty" yaml:"within,omitempty"`
	Message  string      `json:"message,omitempty" yaml:"message,omitempty"`
}

// Assertion types.
const (
	AssertEquals      = "equals"
	AssertNotEquals   = "not_equals"
	AssertContains    = "contains"
	AssertContainsAny = "contains_any"
	AssertMatches     = "matches"
	AssertTruthy      = "truthy"
	AssertFalsy       = "falsy"
	AssertGreaterThan = "greater_than"
	AssertAtLeast     = "at_least"
	AssertLessThan    = "less_than"
	AssertJSONPath    = "json_path"
	AssertJSONSchema  = "json_schema"
	AssertExpression  = "expression"
)

// AssertionTypes lists every assertion type a scenario may use.
var AssertionTypes = []string{
	AssertEquals, AssertNotEquals, AssertContains, AssertContainsAny, AssertMatches,
	AssertTruthy, AssertFalsy, AssertGreaterThan, AssertAtLeast, AssertLessThan,
	AssertJSONPath, AssertJSONSchema, AssertExpression,
}

// Actions lists every step action a scenario may use.
var Actions = []string{
	"navigate", "wait_for_load", "click", "fill", "hover", "hover_all", "press", "type",
	"wait", "wait_for", "text", "value", "visible", "count", "url", "evaluate",
	"storage", "screenshot", "dialog", "download", "downloads", "upload", "log",
}

// PollableActions may be run again while an assertion waits with `within`.
// Everything else has side effects and runs exactly once.
var PollableActions = []string{
	"wait_for_load", "hover", "hover_all", "wait", "wait_for", "text", "value",
	"visible", "count", "url", "evaluate", "storage", "downloads",
}

// Duration is a time.Duration that reads "500ms"/"3s" strings or a bare
// number of milliseconds from YAML.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", value.Line)
	}
	if ms, err := strconv.ParseInt(value.Value, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", value.Line, value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

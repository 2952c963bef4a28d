// Package check evaluates assertions against observed values and records
// exactly one result per attempted assertion.
package check

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/itchyny/gojq"
	"github.com/xeipuuv/gojsonschema"

	"github.com/rocketship-ai/uiprobe/internal/dsl"
	"github.com/rocketship-ai/uiprobe/internal/failure"
	"github.com/rocketship-ai/uiprobe/internal/report"
)

// Evaluate checks a declarative assertion against actual. The result is not
// recorded; Step and StepIndex are left for the caller.
func Evaluate(a dsl.Assertion, actual interface{}, scope Scope) report.AssertionResult {
	res := report.AssertionResult{Type: a.Type, Actual: actual, Expected: a.Expected}

	passed, detail, err := evaluate(a, actual, scope)
	switch {
	case err != nil:
		res.Kind = failure.PreconditionFailed
		res.Message = describe(a.Message, err.Error())
	case passed:
		res.Passed = true
		res.Message = describe(a.Message, detail)
	default:
		res.Kind = failure.AssertionFailed
		res.Message = describe(a.Message, detail)
	}
	return res
}

func describe(label, detail string) string {
	if label == "" {
		return detail
	}
	return label + ": " + detail
}

func evaluate(a dsl.Assertion, actual interface{}, scope Scope) (bool, string, error) {
	got := Stringify(actual)
	switch a.Type {
	case dsl.AssertEquals:
		if Equal(actual, a.Expected) {
			return true, fmt.Sprintf("%q equals %q", got, Stringify(a.Expected)), nil
		}
		return false, fmt.Sprintf("expected %q, got %q", Stringify(a.Expected), got), nil

	case dsl.AssertNotEquals:
		if !Equal(actual, a.Expected) {
			return true, fmt.Sprintf("%q differs from %q", got, Stringify(a.Expected)), nil
		}
		return false, fmt.Sprintf("expected a value other than %q", got), nil

	case dsl.AssertContains:
		want := Stringify(a.Expected)
		if containsValue(actual, want) {
			return true, fmt.Sprintf("%q contains %q", got, want), nil
		}
		return false, fmt.Sprintf("%q does not contain %q", got, want), nil

	case dsl.AssertContainsAny:
		opts := options(a.Expected)
		for _, want := range opts {
			if containsValue(actual, want) {
				return true, fmt.Sprintf("%q contains %q", got, want), nil
			}
		}
		return false, fmt.Sprintf("%q contains none of [%s]", got, strings.Join(opts, ", ")), nil

	case dsl.AssertMatches:
		pattern := Stringify(a.Expected)
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, "", fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if re.MatchString(got) {
			return true, fmt.Sprintf("%q matches %s", got, pattern), nil
		}
		return false, fmt.Sprintf("%q does not match %s", got, pattern), nil

	case dsl.AssertTruthy:
		if Truthy(actual) {
			return true, fmt.Sprintf("%q is truthy", got), nil
		}
		return false, fmt.Sprintf("%q is not truthy", got), nil

	case dsl.AssertFalsy:
		if !Truthy(actual) {
			return true, fmt.Sprintf("%q is falsy", got), nil
		}
		return false, fmt.Sprintf("%q is not falsy", got), nil

	case dsl.AssertGreaterThan, dsl.AssertAtLeast, dsl.AssertLessThan:
		return compareNumbers(a.Type, actual, a.Expected)

	case dsl.AssertJSONPath:
		return jsonPath(a, actual)

	case dsl.AssertJSONSchema:
		return jsonSchema(a.Schema, actual)

	case dsl.AssertExpression:
		s := scope
		s.Value, s.HasValue = actual, true
		ok, err := Expression(a.Expr, s)
		if err != nil {
			return false, "", err
		}
		if ok {
			return true, fmt.Sprintf("%s holds", a.Expr), nil
		}
		return false, fmt.Sprintf("%s is false for %q", a.Expr, got), nil
	}
	return false, "", fmt.Errorf("unknown assertion type %q", a.Type)
}

var comparisons = map[string]struct {
	op    string
	holds func(a, b float64) bool
}{
	dsl.AssertGreaterThan: {">", func(a, b float64) bool { return a > b }},
	dsl.AssertAtLeast:     {">=", func(a, b float64) bool { return a >= b }},
	dsl.AssertLessThan:    {"<", func(a, b float64) bool { return a < b }},
}

func compareNumbers(kind string, actual, expected interface{}) (bool, string, error) {
	a, ok := ToFloat(actual)
	if !ok {
		return false, "", fmt.Errorf("actual value %q is not a number", Stringify(actual))
	}
	b, ok := ToFloat(expected)
	if !ok {
		return false, "", fmt.Errorf("expected value %q is not a number", Stringify(expected))
	}
	cmp := comparisons[kind]
	if cmp.holds(a, b) {
		return true, fmt.Sprintf("%s %s %s", Stringify(a), cmp.op, Stringify(b)), nil
	}
	return false, fmt.Sprintf("%s is not %s %s", Stringify(a), cmp.op, Stringify(b)), nil
}

// jsonPath runs a jq query on actual. With exists set, or no expected value,
// the query must yield a non-null value; otherwise its first result must
// equal expected.
func jsonPath(a dsl.Assertion, actual interface{}) (bool, string, error) {
	query, err := gojq.Parse(a.Path)
	if err != nil {
		return false, "", fmt.Errorf("failed to parse JSON path %s: %w", a.Path, err)
	}

	iter := query.Run(jsonLike(actual))
	v, ok := iter.Next()
	if !ok {
		v = nil
	}
	if err, isErr := v.(error); isErr {
		return false, "", fmt.Errorf("error evaluating JSON path %s: %w", a.Path, err)
	}

	if a.Exists || a.Expected == nil {
		if v != nil {
			return true, fmt.Sprintf("%s exists", a.Path), nil
		}
		return false, fmt.Sprintf("%s is missing", a.Path), nil
	}
	if Equal(v, a.Expected) {
		return true, fmt.Sprintf("%s equals %q", a.Path, Stringify(a.Expected)), nil
	}
	return false, fmt.Sprintf("%s: expected %q, got %q", a.Path, Stringify(a.Expected), Stringify(v)), nil
}

func jsonSchema(schema, actual interface{}) (bool, string, error) {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(jsonLike(schema)), gojsonschema.NewGoLoader(jsonLike(actual)))
	if err != nil {
		return false, "", fmt.Errorf("failed to validate schema: %w", err)
	}
	if result.Valid() {
		return true, "value matches schema", nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return false, "schema validation failed: " + strings.Join(problems, "; "), nil
}

package check

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Normalize prepares UI text for comparison: NFC composition, full-width
// ASCII folded to its narrow form and surrounding whitespace trimmed.
func Normalize(s string) string {
	return strings.TrimSpace(width.Fold.String(norm.NFC.String(s)))
}

// Stringify renders a value the way it reads on a page.
func Stringify(v interface{}) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case map[string]interface{}, []interface{}:
		data, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}
		return string(data)
	default:
		return fmt.Sprint(typed)
	}
}

// ToFloat converts numbers and numeric strings.
func ToFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(Normalize(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Truthy follows JavaScript truthiness, plus empty collections are false.
func Truthy(v interface{}) bool {
	switch typed := v.(type) {
	case nil:
		return false
	case bool:
		return typed
	case string:
		return typed != ""
	case []interface{}:
		return len(typed) > 0
	case map[string]interface{}:
		return len(typed) > 0
	}
	if f, ok := ToFloat(v); ok {
		return f != 0
	}
	return true
}

// Equal compares loosely: numbers by value, strings after Normalize, and
// anything else structurally after a JSON round trip.
func Equal(actual, expected interface{}) bool {
	if a, ok := actual.(string); ok {
		if e, ok := expected.(string); ok {
			return Normalize(a) == Normalize(e)
		}
	}
	if isNumber(actual) || isNumber(expected) {
		a, okA := ToFloat(actual)
		e, okE := ToFloat(expected)
		if okA && okE {
			return a == e
		}
	}
	if _, ok := actual.(string); ok {
		return Normalize(Stringify(actual)) == Normalize(Stringify(expected))
	}
	return reflect.DeepEqual(jsonLike(actual), jsonLike(expected))
}

func isNumber(v interface{}) bool {
	switch v.(type) {
	case int, int32, int64, uint64, float32, float64, json.Number:
		return true
	}
	return false
}

// jsonLike converts v to the types encoding/json produces, so values that
// came from YAML, the browser and Go literals compare alike.
func jsonLike(v interface{}) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

// options turns an expected value into a list of strings.
func options(expected interface{}) []string {
	switch typed := expected.(type) {
	case []interface{}:
		out := make([]string, len(typed))
		for i, item := range typed {
			out[i] = Stringify(item)
		}
		return out
	case []string:
		return typed
	default:
		return []string{Stringify(expected)}
	}
}

// containsValue checks substring containment for text and membership for
// lists.
func containsValue(actual interface{}, want string) bool {
	if list, ok := actual.([]interface{}); ok {
		for _, item := range list {
			if Equal(item, want) {
				return true
			}
		}
		return false
	}
	return strings.Contains(Normalize(Stringify(actual)), Normalize(want))
}

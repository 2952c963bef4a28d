package dsl

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
	"text/template"
)

var (
	escapedHandlebarsRegex = regexp.MustCompile(`(\\+)(\{\{[^}]*\}\})`)
	literalHandlebarsRegex = regexp.MustCompile(`\{_\{([^}]*?)\}_\}`)
	bareVariableRegex      = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_.]*)\s*\}\}`)
)

var templateKeywords = []string{"if", "else", "end", "range", "with", "define", "template", "block", "break", "continue", "nil", "true", "false"}

// TemplateContext holds everything a step template can reference.
//
//	{{ .vars.key }}  merged scenario, var-file and --var values
//	{{ .env.KEY }}   process environment over Env
//	{{ key }}        values saved by earlier steps
type TemplateContext struct {
	Vars    map[string]interface{}
	Env     map[string]string
	Runtime map[string]interface{}
}

func environment(base map[string]string) map[string]interface{} {
	env := make(map[string]interface{}, len(base))
	for key, value := range base {
		env[key] = value
	}
	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok {
			env[key] = value
		}
	}
	return env
}

// ProcessTemplate renders input against tc. References to missing keys are
// errors. A backslash before {{ keeps the braces literal.
func ProcessTemplate(input string, tc TemplateContext) (string, error) {
	if !strings.Contains(input, "{{") {
		return input, nil
	}

	processed := escapeHandlebars(input)
	processed = bareVariableRegex.ReplaceAllStringFunc(processed, func(match string) string {
		name := bareVariableRegex.FindStringSubmatch(match)[1]
		if slices.Contains(templateKeywords, name) {
			return match
		}
		return "{{ ." + name + " }}"
	})

	tmpl, err := template.New("uiprobe").Option("missingkey=error").Parse(processed)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	data := make(map[string]interface{})
	for key, value := range tc.Runtime {
		setNestedValue(data, key, value)
	}
	vars := tc.Vars
	if vars == nil {
		vars = map[string]interface{}{}
	}
	data["vars"] = vars
	data["env"] = environment(tc.Env)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return literalHandlebarsRegex.ReplaceAllString(buf.String(), "{{$1}}"), nil
}

// escapeHandlebars halves runs of backslashes before {{ }}. An odd run leaves
// the braces as literal text.
//
//	\{{ x }}   -> {{ x }} literal
//	\\{{ x }}  -> \ followed by the rendered x
func escapeHandlebars(input string) string {
	return escapedHandlebarsRegex.ReplaceAllStringFunc(input, func(match string) string {
		sub := escapedHandlebarsRegex.FindStringSubmatch(match)
		backslashes, handlebars := sub[1], sub[2]
		out := strings.Repeat(`\`, len(backslashes)/2)
		if len(backslashes)%2 == 1 {
			return out + "{_{" + handlebars[2:len(handlebars)-2] + "}_}"
		}
		return out + handlebars
	})
}

// IsTemplateString reports whether s contains template actions.
func IsTemplateString(s string) bool {
	return strings.Contains(s, "{{") && strings.Contains(s, "}}")
}

// MergeVariables layers file vars and then CLI vars over the scenario vars.
// CLI keys use dot notation for nested values.
func MergeVariables(yamlVars, fileVars map[string]interface{}, cliVars map[string]string) map[string]interface{} {
	result := MergeInterfaceMaps(yamlVars, fileVars)
	for k, v := range cliVars {
		setNestedValue(result, k, v)
	}
	return result
}

// MergeInterfaceMaps deep merges overlay onto base. Nested maps merge, any
// other overlay value replaces the base value.
func MergeInterfaceMaps(base, overlay map[string]interface{}) map[string]interface{} {
	result := deepCopyMap(base)
	for k, overlayVal := range overlay {
		baseMap, baseIsMap := result[k].(map[string]interface{})
		overlayMap, overlayIsMap := overlayVal.(map[string]interface{})
		switch {
		case baseIsMap && overlayIsMap:
			result[k] = MergeInterfaceMaps(baseMap, overlayMap)
		case overlayIsMap:
			result[k] = deepCopyMap(overlayMap)
		default:
			result[k] = overlayVal
		}
	}
	return result
}

func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(m))
	for k, v := range m {
		result[k] = deepCopy(v)
	}
	return result
}

func deepCopy(v interface{}) interface{} {
	switch typed := v.(type) {
	case map[string]interface{}:
		return deepCopyMap(typed)
	case []interface{}:
		out := make([]interface{}, len(typed))
		for i, item := range typed {
			out[i] = deepCopy(item)
		}
		return out
	default:
		return v
	}
}

// setNestedValue sets a value using dot notation: "auth.token" sets
// m["auth"]["token"]. Non-map intermediates are replaced.
func setNestedValue(m map[string]interface{}, key string, value interface{}) {
	keys := strings.Split(key, ".")
	current := m
	for _, k := range keys[:len(keys)-1] {
		nested, ok := current[k].(map[string]interface{})
		if !ok {
			nested = make(map[string]interface{})
			current[k] = nested
		}
		current = nested
	}
	current[keys[len(keys)-1]] = value
}

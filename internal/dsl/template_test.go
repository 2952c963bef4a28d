package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketship-ai/uiprobe/internal/driver"
)

func TestProcessTemplate(t *testing.T) {
	t.Setenv("UIPROBE_TEST_TOKEN", "from-os")

	tc := TemplateContext{
		Vars: map[string]interface{}{
			"base_url": "http://localhost:5173",
			"admin":    map[string]interface{}{"password": "admin"},
			"points":   3,
		},
		Env:     map[string]string{"UIPROBE_TEST_TOKEN": "from-context", "ONLY_CONTEXT": "ctx"},
		Runtime: map[string]interface{}{"title": "未来筑家", "count": 7},
	}

	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  string
	}{
		{"plain text", "no templates here", "no templates here", ""},
		{"config var", "{{ .vars.base_url }}/admin", "http://localhost:5173/admin", ""},
		{"nested var", "{{ .vars.admin.password }}", "admin", ""},
		{"number var", "{{ .vars.points }}", "3", ""},
		{"runtime var", "title is {{ title }}", "title is 未来筑家", ""},
		{"runtime var without spaces", "{{count}} items", "7 items", ""},
		{"os env wins", "{{ .env.UIPROBE_TEST_TOKEN }}", "from-os", ""},
		{"context env", "{{ .env.ONLY_CONTEXT }}", "ctx", ""},
		{"escaped handlebars", `\{{ title }}`, "{{ title }}", ""},
		{"double backslash renders", `\\{{ title }}`, `\未来筑家`, ""},
		{"template keywords untouched", "{{ if .vars.points }}yes{{ end }}", "yes", ""},
		{"missing var", "{{ .vars.nope }}", "", "map has no entry for key"},
		{"missing runtime", "{{ nope }}", "", "map has no entry for key"},
		{"parse error", "{{ .vars.base_url ", "", "failed to parse template"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ProcessTemplate(tt.input, tc)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestMergeVariables(t *testing.T) {
	yamlVars := map[string]interface{}{
		"base_url": "http://localhost:5173",
		"admin":    map[string]interface{}{"user": "admin", "password": "admin"},
	}
	fileVars := map[string]interface{}{
		"admin": map[string]interface{}{"password": "from-file"},
		"theme": "dark",
	}
	cliVars := map[string]string{
		"base_url":       "http://127.0.0.1:4173",
		"admin.password": "from-cli",
	}

	result := MergeVariables(yamlVars, fileVars, cliVars)

	assert.Equal(t, "http://127.0.0.1:4173", result["base_url"])
	assert.Equal(t, "dark", result["theme"])
	assert.Equal(t, map[string]interface{}{"user": "admin", "password": "from-cli"}, result["admin"])
	assert.Equal(t, "admin", yamlVars["admin"].(map[string]interface{})["password"], "inputs must not be mutated")
}

func TestStepRender(t *testing.T) {
	step := Step{
		Name:   "fill title",
		Action: "fill",
		Target: &driver.Target{
			Selector: "input",
			HasText:  "{{ label }}",
			Within:   &driver.Target{Selector: "{{ .vars.section }}"},
		},
		Value: "{{ .vars.prefix }}-{{ title }}",
		When:  "vars.enabled",
		Files: []string{"{{ .vars.dir }}/config.json"},
		Assertions: []Assertion{
			{Type: AssertContainsAny, Expected: []interface{}{"{{ title }}", 3}},
			{Type: AssertExpression, Expr: "value.includes('{{')"},
		},
	}
	tc := TemplateContext{
		Vars:    map[string]interface{}{"section": ".admin-section", "prefix": "p", "dir": "/tmp"},
		Runtime: map[string]interface{}{"title": "T", "label": "L"},
	}

	rendered, err := step.Render(tc)
	require.NoError(t, err)

	assert.Equal(t, "p-T", rendered.Value)
	assert.Equal(t, "L", rendered.Target.HasText)
	assert.Equal(t, ".admin-section", rendered.Target.Within.Selector)
	assert.Equal(t, []string{"/tmp/config.json"}, rendered.Files)
	assert.Equal(t, []interface{}{"T", 3}, rendered.Assertions[0].Expected)
	assert.Equal(t, "value.includes('{{')", rendered.Assertions[1].Expr)
	assert.Equal(t, "vars.enabled", rendered.When)

	assert.Equal(t, "{{ .vars.prefix }}-{{ title }}", step.Value, "original step must not change")
	assert.Equal(t, "{{ label }}", step.Target.HasText)

	_, err = Step{Name: "broken", Action: "navigate", URL: "{{ .vars.missing }}"}.Render(tc)
	assert.ErrorContains(t, err, `step "broken": url`)
}

package dsl

import (
	"fmt"

	"github.com/rocketship-ai/uiprobe/internal/driver"
)

// Render returns a copy of the step with every templated string field
// resolved. `when` and assertion expressions are left untouched; they are
// evaluated as JavaScript against the same values.
func (s Step) Render(tc TemplateContext) (Step, error) {
	out := s
	var err error
	render := func(field string, dst *string) {
		if err != nil {
			return
		}
		var rendered string
		if rendered, err = ProcessTemplate(*dst, tc); err != nil {
			err = fmt.Errorf("step %q: %s: %w", s.Name, field, err)
			return
		}
		*dst = rendered
	}

	render("url", &out.URL)
	render("value", &out.Value)
	render("key", &out.Key)
	render("script", &out.Script)
	render("path", &out.Path)
	if s.Files != nil {
		out.Files = make([]string, len(s.Files))
		for i := range s.Files {
			out.Files[i] = s.Files[i]
			render("files", &out.Files[i])
		}
	}
	if s.Target != nil {
		var target *driver.Target
		if target, err = renderTarget(s.Target, tc); err != nil {
			return Step{}, fmt.Errorf("step %q: target: %w", s.Name, err)
		}
		out.Target = target
	}
	if err != nil {
		return Step{}, err
	}

	if s.Assertions != nil {
		out.Assertions = make([]Assertion, len(s.Assertions))
		for i, a := range s.Assertions {
			render("assertion path", &a.Path)
			render("assertion message", &a.Message)
			if err != nil {
				return Step{}, err
			}
			expected, expErr := renderValue(a.Expected, tc)
			if expErr != nil {
				return Step{}, fmt.Errorf("step %q: assertion %d expected: %w", s.Name, i, expErr)
			}
			a.Expected = expected
			out.Assertions[i] = a
		}
	}
	return out, nil
}

func renderTarget(t *driver.Target, tc TemplateContext) (*driver.Target, error) {
	out := *t
	var err error
	if out.Selector, err = ProcessTemplate(t.Selector, tc); err != nil {
		return nil, err
	}
	if out.HasText, err = ProcessTemplate(t.HasText, tc); err != nil {
		return nil, err
	}
	if t.Within != nil {
		if out.Within, err = renderTarget(t.Within, tc); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

func renderValue(v interface{}, tc TemplateContext) (interface{}, error) {
	switch typed := v.(type) {
	case string:
		return ProcessTemplate(typed, tc)
	case []interface{}:
		out := make([]interface{}, len(typed))
		for i, item := range typed {
			rendered, err := renderValue(item, tc)
			if err != nil {
				return nil, err
			}
			out[i] = rendered
		}
		return out, nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(typed))
		for k, item := range typed {
			rendered, err := renderValue(item, tc)
			if err != nil {
				return nil, err
			}
			out[k] = rendered
		}
		return out, nil
	default:
		return v, nil
	}
}

// IsInteraction reports whether the step changes page state. Interaction
// failures stop the scenario unless `hard: false` says otherwise.
func (s Step) IsInteraction() bool {
	switch s.Action {
	case "navigate", "click", "fill", "hover", "press", "type", "upload", "download", "dialog":
		return true
	}
	return false
}

// IsHard reports whether a failure of this step aborts the rest of the run.
func (s Step) IsHard() bool {
	if s.Hard != nil {
		return *s.Hard
	}
	return s.IsInteraction()
}

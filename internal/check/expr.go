package check

import (
	"fmt"
	"time"

	"github.com/dop251/goja"
)

// exprTimeout bounds a single expression so a runaway loop cannot stall a run.
const exprTimeout = 2 * time.Second

// Scope is what an expression can see: `vars` for the merged variables,
// every saved value as a top-level name and, for assertions, `value`.
type Scope struct {
	Vars  map[string]interface{}
	Saved map[string]interface{}
	Value interface{}
	// HasValue exposes Value as `value`, even when it is nil.
	HasValue bool
}

// Expression evaluates a JavaScript expression and converts the result to a
// boolean with JavaScript truthiness.
func Expression(expr string, scope Scope) (bool, error) {
	program, err := goja.Compile("expression", expr, false)
	if err != nil {
		return false, fmt.Errorf("javascript syntax error: %w", err)
	}

	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	for name, v := range scope.Saved {
		if err := vm.Set(name, v); err != nil {
			return false, fmt.Errorf("failed to set %s: %w", name, err)
		}
	}
	vars := scope.Vars
	if vars == nil {
		vars = map[string]interface{}{}
	}
	if err := vm.Set("vars", vars); err != nil {
		return false, fmt.Errorf("failed to set vars: %w", err)
	}
	if scope.HasValue {
		if err := vm.Set("value", scope.Value); err != nil {
			return false, fmt.Errorf("failed to set value: %w", err)
		}
	}

	timer := time.AfterFunc(exprTimeout, func() {
		vm.Interrupt("expression timed out")
	})
	defer timer.Stop()

	result, err := vm.RunProgram(program)
	if err != nil {
		return false, fmt.Errorf("javascript execution error: %w", err)
	}
	return result.ToBoolean(), nil
}

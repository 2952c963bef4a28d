// Package actions implements the step actions a scenario can use.
package actions

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/rocketship-ai/uiprobe/internal/artifacts"
	"github.com/rocketship-ai/uiprobe/internal/driver"
	"github.com/rocketship-ai/uiprobe/internal/dsl"
)

// Action executes one kind of step and returns the value it observed.
type Action interface {
	GetType() string
	// ReadOnly actions may be executed again while an assertion polls.
	ReadOnly() bool
	Execute(ctx context.Context, sc *StepContext) (interface{}, error)
}

// StepContext is what an action sees of the run.
type StepContext struct {
	Step      dsl.Step
	Session   driver.Session
	Artifacts *artifacts.Dir
	BaseURL   string
	Logger    *slog.Logger
	// Narrate prints a user-facing line. Optional.
	Narrate func(msg string)
}

func (sc *StepContext) Page() driver.Page {
	return sc.Session.Page()
}

func (sc *StepContext) logger() *slog.Logger {
	if sc.Logger == nil {
		return slog.Default()
	}
	return sc.Logger
}

// target returns the step target or fails when the step has none.
func (sc *StepContext) target() (driver.Target, error) {
	if sc.Step.Target == nil || sc.Step.Target.Selector == "" {
		return driver.Target{}, fmt.Errorf("action %s requires a target", sc.Step.Action)
	}
	return *sc.Step.Target, nil
}

// resolveURL joins root-relative URLs onto the base URL.
func (sc *StepContext) resolveURL(u string) string {
	if sc.BaseURL != "" && strings.HasPrefix(u, "/") && !strings.HasPrefix(u, "//") {
		return strings.TrimRight(sc.BaseURL, "/") + u
	}
	return u
}

var (
	registry   = make(map[string]Action)
	registryMu sync.RWMutex
)

// Register adds an action to the global registry. Registering the same type
// twice panics.
func Register(action Action) {
	registryMu.Lock()
	defer registryMu.Unlock()

	actionType := action.GetType()
	if _, exists := registry[actionType]; exists {
		panic(fmt.Sprintf("action %s is already registered", actionType))
	}
	registry[actionType] = action
}

// Get retrieves an action by type.
func Get(actionType string) (Action, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	action, exists := registry[actionType]
	return action, exists
}

// Registered returns the registered action types in sorted order.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// funcAction adapts a function to Action.
type funcAction struct {
	name     string
	readOnly bool
	fn       func(ctx context.Context, sc *StepContext) (interface{}, error)
}

func (a funcAction) GetType() string { return a.name }
func (a funcAction) ReadOnly() bool  { return a.readOnly }

func (a funcAction) Execute(ctx context.Context, sc *StepContext) (interface{}, error) {
	return a.fn(ctx, sc)
}

func interaction(name string, fn func(ctx context.Context, sc *StepContext) (interface{}, error)) Action {
	return funcAction{name: name, fn: fn}
}

func observation(name string, fn func(ctx context.Context, sc *StepContext) (interface{}, error)) Action {
	return funcAction{name: name, readOnly: true, fn: fn}
}

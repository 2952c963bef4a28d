// Package report holds the structured outcome of a scenario run.
package report

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rocketship-ai/uiprobe/internal/failure"
)

// State is a point in the lifecycle of a scenario run.
type State string

const (
	StateIdle            State = "idle"
	StateSessionAcquired State = "session_acquired"
	StateRunning         State = "running"
	StateStepFailed      State = "step_failed"
	StateCompleted       State = "completed"
	StateSessionReleased State = "session_released"
	StateReported        State = "reported"
)

var transitions = map[State][]State{
	StateIdle:            {StateSessionAcquired, StateReported},
	StateSessionAcquired: {StateRunning, StateSessionReleased},
	StateRunning:         {StateStepFailed, StateCompleted},
	StateStepFailed:      {StateSessionReleased},
	StateCompleted:       {StateSessionReleased},
	StateSessionReleased: {StateReported},
}

// Status is the outcome of one step.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// AssertionResult is one attempted check.
type AssertionResult struct {
	Step      string       `json:"step"`
	StepIndex int          `json:"step_index"`
	Type      string       `json:"type"`
	Message   string       `json:"message"`
	Passed    bool         `json:"passed"`
	Kind      failure.Kind `json:"kind,omitempty"`
	Actual    interface{}  `json:"actual,omitempty"`
	Expected  interface{}  `json:"expected,omitempty"`
}

// StepRecord is the outcome of one step.
type StepRecord struct {
	Index    int           `json:"index"`
	Name     string        `json:"name"`
	Action   string        `json:"action"`
	Status   Status        `json:"status"`
	Kind     failure.Kind  `json:"kind,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// RunReport is the ordered accumulation of everything a run attempted.
// It is safe for use by one run; the mutex only guards readers such as a
// progress printer.
type RunReport struct {
	RunID       string            `json:"run_id"`
	Scenario    string            `json:"scenario"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
	States      []State           `json:"states"`
	Steps       []StepRecord      `json:"steps"`
	Results     []AssertionResult `json:"results"`
	Aborted     bool              `json:"aborted"`
	AbortReason string            `json:"abort_reason,omitempty"`
	Artifacts   string            `json:"artifacts,omitempty"`

	mu sync.Mutex
}

// New starts a report in the idle state.
func New(runID, scenario string) *RunReport {
	return &RunReport{
		RunID:     runID,
		Scenario:  scenario,
		StartedAt: time.Now().UTC(),
		States:    []State{StateIdle},
		Steps:     []StepRecord{},
		Results:   []AssertionResult{},
	}
}

// State returns the current lifecycle state.
func (r *RunReport) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.States[len(r.States)-1]
}

// Transition moves the run to the next state. Moves the lifecycle does not
// allow are rejected.
func (r *RunReport) Transition(to State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	from := r.States[len(r.States)-1]
	if !slices.Contains(transitions[from], to) {
		return fmt.Errorf("invalid run state transition %s -> %s", from, to)
	}
	r.States = append(r.States, to)
	if to == StateReported {
		r.FinishedAt = time.Now().UTC()
	}
	return nil
}

// Abort marks a run whose session could never be acquired and moves it
// straight to reported.
func (r *RunReport) Abort(err error) error {
	r.mu.Lock()
	r.Aborted = true
	r.AbortReason = err.Error()
	r.mu.Unlock()
	return r.Transition(StateReported)
}

// AddResult appends one assertion result and returns it.
func (r *RunReport) AddResult(res AssertionResult) AssertionResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res.Passed {
		res.Kind = failure.None
	} else if res.Kind == failure.None {
		res.Kind = failure.AssertionFailed
	}
	r.Results = append(r.Results, res)
	return res
}

// AddStep appends one step record.
func (r *RunReport) AddStep(rec StepRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Steps = append(r.Steps, rec)
}

// Passed counts passing assertion results.
func (r *RunReport) Passed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.passedLocked()
}

// Failed counts failing assertion results.
func (r *RunReport) Failed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Results) - r.passedLocked()
}

func (r *RunReport) passedLocked() int {
	n := 0
	for _, res := range r.Results {
		if res.Passed {
			n++
		}
	}
	return n
}

// Success is true when the run was not aborted, no step failed and every
// assertion passed. An empty scenario succeeds.
func (r *RunReport) Success() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Aborted {
		return false
	}
	for _, s := range r.Steps {
		if s.Status == StatusFailed {
			return false
		}
	}
	return r.passedLocked() == len(r.Results)
}

// FailedSteps counts steps whose status is failed.
func (r *RunReport) FailedSteps() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.Steps {
		if s.Status == StatusFailed {
			n++
		}
	}
	return n
}

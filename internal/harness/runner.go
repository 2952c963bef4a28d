// Package harness runs scenarios step by step against a browser session.
package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rocketship-ai/uiprobe/internal/actions"
	"github.com/rocketship-ai/uiprobe/internal/artifacts"
	"github.com/rocketship-ai/uiprobe/internal/check"
	"github.com/rocketship-ai/uiprobe/internal/driver"
	"github.com/rocketship-ai/uiprobe/internal/dsl"
	"github.com/rocketship-ai/uiprobe/internal/failure"
	"github.com/rocketship-ai/uiprobe/internal/report"
	"github.com/rocketship-ai/uiprobe/internal/telemetry"
)

const (
	// DefaultTimeout applies to a step when neither the step nor the config
	// sets one.
	DefaultTimeout = 30 * time.Second
	// DefaultBaseURL is where the dashboard dev server listens.
	DefaultBaseURL = "http://localhost:5173"

	pollInterval = 100 * time.Millisecond
)

var errPanic = errors.New("panic")

// Config is everything a run needs besides the scenario.
type Config struct {
	BaseURL       string
	Launch        driver.LaunchOptions
	Timeout       time.Duration
	ArtifactsDir  string
	ScreenshotDir string
	FileVars      map[string]interface{}
	CLIVars       map[string]string
	Env           map[string]string
}

// Runner executes scenarios. One Runner may run many scenarios, each with
// its own session.
type Runner struct {
	launcher driver.Launcher
	cfg      Config
	logger   *slog.Logger
	narrator *report.Narrator
	tracer   trace.Tracer
	newRunID func() string
}

type Option func(*Runner)

func WithLogger(l *slog.Logger) Option { return func(r *Runner) { r.logger = l } }

func WithNarrator(n *report.Narrator) Option { return func(r *Runner) { r.narrator = n } }

func WithTracer(t trace.Tracer) Option { return func(r *Runner) { r.tracer = t } }

// WithRunIDs replaces the uuid run id generator.
func WithRunIDs(fn func() string) Option { return func(r *Runner) { r.newRunID = fn } }

func NewRunner(launcher driver.Launcher, cfg Config, opts ...Option) *Runner {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	r := &Runner{
		launcher: launcher,
		cfg:      cfg,
		logger:   slog.Default(),
		tracer:   telemetry.Tracer(),
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// run is the mutable state of one scenario run.
type run struct {
	*Runner
	narrator  *report.Narrator
	report    *report.RunReport
	recorder  *check.Recorder
	session   driver.Session
	artifacts *artifacts.Dir
	vars      map[string]interface{}
	saved     map[string]interface{}
	logger    *slog.Logger
	release   func()
}

// Run executes the scenario and always returns a finalized report. Step
// errors never escape; they become report entries.
func (r *Runner) Run(ctx context.Context, scenario dsl.Scenario) *report.RunReport {
	return r.run(ctx, scenario, r.narrator)
}

func (r *Runner) run(ctx context.Context, scenario dsl.Scenario, narrator *report.Narrator) *report.RunReport {
	runID := r.newRunID()
	rep := report.New(runID, scenario.Name)
	logger := r.logger.With("run_id", runID, "scenario", scenario.Name)

	ctx, span := r.tracer.Start(ctx, "scenario "+scenario.Name, trace.WithAttributes(
		telemetry.AttrRunID.String(runID),
		telemetry.AttrScenario.String(scenario.Name),
	))
	defer span.End()

	narrator.Start(scenario.Name, runID)
	logger.Debug("starting scenario", "steps", len(scenario.Steps))

	dir, err := artifacts.New(r.cfg.ArtifactsDir, r.cfg.ScreenshotDir, runID, scenario.Name)
	if err != nil {
		r.abort(rep, narrator, span, logger, failure.Wrap(failure.PreconditionFailed, "artifacts", err))
		return rep
	}
	rep.Artifacts = dir.Root()

	opts := r.cfg.Launch
	if scenario.Viewport != nil {
		opts.Viewport = *scenario.Viewport
	}
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = r.cfg.Timeout
	}

	session, err := r.launcher.Launch(ctx, opts)
	if err != nil {
		if failure.KindOf(err) != failure.SessionAcquisitionFailed {
			err = failure.Wrap(failure.SessionAcquisitionFailed, "launch "+opts.Browser, err)
		}
		r.abort(rep, narrator, span, logger, err)
		r.writeManifest(dir, logger)
		return rep
	}

	state := &run{
		Runner:    r,
		narrator:  narrator,
		report:    rep,
		recorder:  check.NewRecorder(rep, narrator),
		session:   session,
		artifacts: dir,
		vars:      dsl.MergeVariables(scenario.Vars, r.cfg.FileVars, r.cfg.CLIVars),
		saved:     make(map[string]interface{}),
		logger:    logger,
	}
	state.vars["base_url"] = r.cfg.BaseURL

	var once sync.Once
	state.release = func() {
		once.Do(func() {
			if err := session.Close(); err != nil {
				logger.Warn("failed to release session", "error", err)
			}
			r.mustTransition(rep, report.StateSessionReleased, logger)
		})
	}
	defer state.release()

	r.mustTransition(rep, report.StateSessionAcquired, logger)
	r.mustTransition(rep, report.StateRunning, logger)

	failed := false
	for i, step := range scenario.Steps {
		if failed {
			state.skip(i, step, "previous step failed")
			continue
		}
		failed = state.step(ctx, i, step)
	}

	if failed {
		r.mustTransition(rep, report.StateStepFailed, logger)
		span.SetStatus(codes.Error, "hard step failure")
	} else {
		r.mustTransition(rep, report.StateCompleted, logger)
	}
	state.release()
	r.writeManifest(dir, logger)
	r.mustTransition(rep, report.StateReported, logger)

	span.SetAttributes(telemetry.AttrStatus.Bool(rep.Success()))
	narrator.Done(rep)
	logger.Info("scenario finished", "success", rep.Success(), "passed", rep.Passed(), "failed", rep.Failed())
	return rep
}

func (r *Runner) abort(rep *report.RunReport, narrator *report.Narrator, span trace.Span, logger *slog.Logger, err error) {
	logger.Error("scenario aborted", "error", err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if abortErr := rep.Abort(err); abortErr != nil {
		logger.Error("invalid abort", "error", abortErr)
	}
	narrator.Done(rep)
}

func (r *Runner) mustTransition(rep *report.RunReport, to report.State, logger *slog.Logger) {
	if err := rep.Transition(to); err != nil {
		// Only reachable through a bug in the runner itself.
		logger.Error("state transition rejected", "error", err)
	}
}

func (r *Runner) writeManifest(dir *artifacts.Dir, logger *slog.Logger) {
	if err := dir.WriteManifest(); err != nil {
		logger.Warn("failed to write artifacts manifest", "error", err)
	}
}

func (s *run) templateContext() dsl.TemplateContext {
	return dsl.TemplateContext{Vars: s.vars, Env: s.cfg.Env, Runtime: s.saved}
}

func (s *run) scope() check.Scope {
	return check.Scope{Vars: s.vars, Saved: s.saved}
}

func (s *run) skip(index int, step dsl.Step, reason string) {
	rec := report.StepRecord{Index: index, Name: step.Name, Action: step.Action, Status: report.StatusSkipped, Error: reason}
	s.report.AddStep(rec)
	s.narrator.Skipped(rec)
}

// step executes one step and reports whether the run must stop.
func (s *run) step(ctx context.Context, index int, step dsl.Step) (abort bool) {
	ctx, span := s.tracer.Start(ctx, "step "+step.Name, trace.WithAttributes(
		telemetry.AttrStep.String(step.Name),
		telemetry.AttrStepIndex.Int(index),
		telemetry.AttrAction.String(step.Action),
	))
	defer span.End()

	logger := s.logger.With("step", step.Name, "action", step.Action)
	started := time.Now()
	s.narrator.Step(index, step.Name)

	if step.When != "" {
		ok, err := check.Expression(step.When, s.scope())
		if err != nil {
			return s.fail(span, logger, index, step, started, failure.Wrap(failure.PreconditionFailed, "when", err), step.IsHard())
		}
		if !ok {
			logger.Debug("condition not met, skipping", "when", step.When)
			s.skip(index, step, "condition not met: "+step.When)
			return false
		}
	}

	rendered, err := step.Render(s.templateContext())
	if err != nil {
		return s.fail(span, logger, index, step, started, failure.Wrap(failure.PreconditionFailed, "render", err), step.IsHard())
	}

	action, ok := actions.Get(rendered.Action)
	if !ok {
		return s.fail(span, logger, index, step, started, failure.New(failure.PreconditionFailed, "step "+step.Name, "unknown action %q", rendered.Action), true)
	}

	sc := &actions.StepContext{
		Step:      rendered,
		Session:   s.session,
		Artifacts: s.artifacts,
		BaseURL:   s.cfg.BaseURL,
		Logger:    logger,
		Narrate:   s.narrator.Log,
	}
	timeout := s.cfg.Timeout
	if rendered.Timeout > 0 {
		timeout = rendered.Timeout.Std()
	}
	observe := func(deadline time.Time) (interface{}, error) {
		end := time.Now().Add(timeout)
		if !deadline.IsZero() {
			end = earliest(end, deadline)
		}
		stepCtx, cancel := context.WithDeadline(ctx, end)
		defer cancel()
		return execute(stepCtx, action, sc)
	}

	// Polled steps observe inside the widest within window, measured from
	// the step start.
	polled := action.ReadOnly() && hasWithin(rendered)
	var window time.Time
	if polled {
		window = started.Add(maxWithin(rendered))
	}

	recorder := s.recorder.ForStep(index, step.Name)
	value, actionErr := observe(window)
	observedAt := time.Now()
	if actionErr != nil && (!polled || errors.Is(actionErr, errPanic)) {
		for _, a := range rendered.Assertions {
			recorder.Record(failedByError(a, actionErr))
		}
		hard := rendered.IsHard() || errors.Is(actionErr, errPanic)
		return s.fail(span, logger, index, rendered, started, actionErr, hard)
	}

	var firstFailure failure.Kind
	failed := 0
	for _, a := range rendered.Assertions {
		var res report.AssertionResult
		switch {
		case a.Within > 0 && action.ReadOnly() && !errors.Is(actionErr, errPanic):
			res, value, actionErr, observedAt = s.poll(ctx, a, started.Add(a.Within.Std()), value, actionErr, observedAt, observe)
		case actionErr != nil:
			res = failedByError(a, actionErr)
		default:
			res = check.Evaluate(a, value, s.scope())
		}
		res = recorder.Record(res)
		if !res.Passed {
			failed++
			if firstFailure == failure.None {
				firstFailure = res.Kind
			}
		}
	}

	// A polled step whose action never succeeded follows the same abort
	// policy as an unpolled one.
	if actionErr != nil {
		hard := rendered.IsHard() || errors.Is(actionErr, errPanic)
		return s.fail(span, logger, index, rendered, started, actionErr, hard)
	}

	if rendered.Save != "" && actionErr == nil {
		s.saved[rendered.Save] = value
	}

	rec := report.StepRecord{Index: index, Name: step.Name, Action: step.Action, Status: report.StatusPassed, Duration: time.Since(started)}
	if failed > 0 {
		rec.Status = report.StatusFailed
		rec.Kind = firstFailure
		rec.Error = fmt.Sprintf("%d of %d assertions failed", failed, len(rendered.Assertions))
		span.SetStatus(codes.Error, rec.Error)
		span.SetAttributes(telemetry.AttrKind.String(firstFailure.String()))
		logger.Info("assertions failed", "failed", failed)
	}
	s.report.AddStep(rec)
	return failed > 0 && rendered.Hard != nil && *rendered.Hard
}

// fail records a step whose action could not complete.
func (s *run) fail(span trace.Span, logger *slog.Logger, index int, step dsl.Step, started time.Time, err error, hard bool) bool {
	kind := failure.KindOf(err)
	rec := report.StepRecord{
		Index:    index,
		Name:     step.Name,
		Action:   step.Action,
		Status:   report.StatusFailed,
		Kind:     kind,
		Error:    err.Error(),
		Duration: time.Since(started),
	}
	s.report.AddStep(rec)
	s.narrator.StepFailed(rec)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(telemetry.AttrKind.String(kind.String()))
	logger.Warn("step failed", "error", err, "kind", kind.String(), "hard", hard)
	return hard
}

// poll re-observes a read-only step until the assertion passes or its
// window closes. It returns exactly one result; a window that closes
// without a pass yields a Timeout result. Observations that complete after
// the deadline never count as a pass.
func (s *run) poll(ctx context.Context, a dsl.Assertion, deadline time.Time, value interface{}, err error, observedAt time.Time, observe func(time.Time) (interface{}, error)) (report.AssertionResult, interface{}, error, time.Time) {
	for {
		if errors.Is(err, errPanic) {
			return failedByError(a, err), value, err, observedAt
		}

		var res report.AssertionResult
		if err == nil {
			res = check.Evaluate(a, value, s.scope())
			if res.Kind == failure.PreconditionFailed {
				return res, value, err, observedAt
			}
			if res.Passed && !observedAt.After(deadline) {
				return res, value, err, observedAt
			}
			if res.Passed {
				res.Passed = false
				res.Kind = failure.AssertionFailed
			}
		} else {
			res = failedByError(a, err)
		}

		if time.Now().Add(pollInterval).After(deadline) || ctx.Err() != nil {
			res.Kind = failure.Timeout
			res.Message = fmt.Sprintf("%s (not satisfied within %s)", res.Message, a.Within.Std())
			return res, value, err, observedAt
		}

		timer := time.NewTimer(pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
		value, err = observe(deadline)
		observedAt = time.Now()
	}
}

func failedByError(a dsl.Assertion, err error) report.AssertionResult {
	msg := a.Type + ": " + err.Error()
	if a.Message != "" {
		msg = a.Message + ": " + err.Error()
	}
	return report.AssertionResult{Type: a.Type, Message: msg, Kind: failure.KindOf(err), Expected: a.Expected}
}

// execute runs the action, turning a panic into a hard failure.
func execute(ctx context.Context, action actions.Action, sc *actions.StepContext) (value interface{}, err error) {
	defer func() {
		if p := recover(); p != nil {
			value = nil
			err = failure.Wrap(failure.PreconditionFailed, sc.Step.Action, fmt.Errorf("%w: %v", errPanic, p))
		}
	}()
	return action.Execute(ctx, sc)
}

func hasWithin(step dsl.Step) bool {
	for _, a := range step.Assertions {
		if a.Within > 0 {
			return true
		}
	}
	return false
}

func maxWithin(step dsl.Step) time.Duration {
	var longest time.Duration
	for _, a := range step.Assertions {
		if d := a.Within.Std(); d > longest {
			longest = d
		}
	}
	return longest
}

func earliest(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

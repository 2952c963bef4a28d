package check

import (
	"context"
	"fmt"
	"strings"

	"github.com/rocketship-ai/uiprobe/internal/driver"
	"github.com/rocketship-ai/uiprobe/internal/failure"
	"github.com/rocketship-ai/uiprobe/internal/report"
)

// Recorder appends assertion results to a RunReport. Every call records
// exactly one result, pass or fail, and returns it.
type Recorder struct {
	report   *report.RunReport
	narrator *report.Narrator
	step     string
	index    int
}

func NewRecorder(r *report.RunReport, n *report.Narrator) *Recorder {
	return &Recorder{report: r, narrator: n}
}

// ForStep returns a recorder that attributes results to the given step.
func (rec *Recorder) ForStep(index int, name string) *Recorder {
	return &Recorder{report: rec.report, narrator: rec.narrator, step: name, index: index}
}

// Record appends res, filling in the step it belongs to.
func (rec *Recorder) Record(res report.AssertionResult) report.AssertionResult {
	res.Step = rec.step
	res.StepIndex = rec.index
	res = rec.report.AddResult(res)
	rec.narrator.Result(res)
	return res
}

func (rec *Recorder) verdict(typ string, passed bool, message string, actual, expected interface{}) report.AssertionResult {
	return rec.Record(report.AssertionResult{Type: typ, Passed: passed, Message: message, Actual: actual, Expected: expected})
}

func orDefault(message, fallback string) string {
	if message != "" {
		return message
	}
	return fallback
}

func (rec *Recorder) Equals(actual, expected interface{}, message string) report.AssertionResult {
	passed := Equal(actual, expected)
	fallback := fmt.Sprintf("expected %q, got %q", Stringify(expected), Stringify(actual))
	return rec.verdict("equals", passed, orDefault(message, fallback), actual, expected)
}

// Contains uses normalized substring semantics so localized copy matches
// across builds and themes.
func (rec *Recorder) Contains(actual, expected, message string) report.AssertionResult {
	passed := containsValue(actual, expected)
	fallback := fmt.Sprintf("%q contains %q", actual, expected)
	return rec.verdict("contains", passed, orDefault(message, fallback), actual, expected)
}

func (rec *Recorder) ContainsAny(actual string, expected []string, message string) report.AssertionResult {
	passed := false
	for _, want := range expected {
		if containsValue(actual, want) {
			passed = true
			break
		}
	}
	fallback := fmt.Sprintf("%q contains any of [%s]", actual, strings.Join(expected, ", "))
	return rec.verdict("contains_any", passed, orDefault(message, fallback), actual, expected)
}

func (rec *Recorder) True(condition bool, message string) report.AssertionResult {
	return rec.verdict("truthy", condition, orDefault(message, "condition holds"), condition, true)
}

func (rec *Recorder) GreaterThan(actual, than float64, message string) report.AssertionResult {
	fallback := fmt.Sprintf("%s > %s", Stringify(actual), Stringify(than))
	return rec.verdict("greater_than", actual > than, orDefault(message, fallback), actual, than)
}

// URL checks the page is exactly at expected.
func (rec *Recorder) URL(page driver.Page, expected string) report.AssertionResult {
	actual := page.URL()
	return rec.verdict("equals", actual == expected, fmt.Sprintf("url is %s", expected), actual, expected)
}

// Visible checks an element is displayed. Errors reading visibility are
// recorded as a failed result of their own kind.
func (rec *Recorder) Visible(ctx context.Context, el driver.Element, message string) report.AssertionResult {
	shown, err := el.IsVisible(ctx)
	if err != nil {
		return rec.Record(report.AssertionResult{
			Type:    "truthy",
			Message: orDefault(message, "element is visible") + ": " + err.Error(),
			Kind:    failure.KindOf(err),
		})
	}
	return rec.verdict("truthy", shown, orDefault(message, "element is visible"), shown, true)
}

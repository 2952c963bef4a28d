package report

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// Outcomes flattens a report into the lines two runs of the same scenario
// should share: step statuses and assertion verdicts, without timings,
// run IDs or observed values.
func Outcomes(r *RunReport) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	lines := make([]string, 0, len(r.Steps)+len(r.Results)+1)
	if r.Aborted {
		lines = append(lines, "aborted\n")
	}
	for _, s := range r.Steps {
		lines = append(lines, fmt.Sprintf("step %d %s %s %s\n", s.Index+1, s.Name, s.Status, s.Kind))
	}
	for _, res := range r.Results {
		verdict := "passed"
		if !res.Passed {
			verdict = "failed"
		}
		lines = append(lines, fmt.Sprintf("assert %d %s %s %s %s\n", res.StepIndex+1, res.Step, res.Type, verdict, res.Kind))
	}
	return lines
}

// Diff renders a unified diff of the outcomes of two runs. It is empty when
// both runs reached the same verdicts.
func Diff(a, b *RunReport) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        Outcomes(a),
		B:        Outcomes(b),
		FromFile: a.Scenario + "@" + a.RunID,
		ToFile:   b.Scenario + "@" + b.RunID,
		Context:  3,
	})
}

package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
)

// WriteSummary prints every report's outcome listing in step order followed
// by aggregated counts. The output depends only on the reports' contents.
func WriteSummary(w io.Writer, reports ...*RunReport) {
	var passedScenarios, totalAssertions, passedAssertions, failedSteps, skippedSteps int

	for _, r := range reports {
		writeListing(w, r)
		if r.Success() {
			passedScenarios++
		}
		totalAssertions += len(r.Results)
		passedAssertions += r.Passed()
		for _, s := range r.Steps {
			switch s.Status {
			case StatusFailed:
				failedSteps++
			case StatusSkipped:
				skippedSteps++
			}
		}
	}

	fmt.Fprintln(w, "\n=== Final Summary ===")
	fmt.Fprintf(w, "Total Scenarios: %d\n", len(reports))
	fmt.Fprintf(w, "%s Passed Scenarios: %d\n", color.GreenString("✓"), passedScenarios)
	fmt.Fprintf(w, "%s Failed Scenarios: %d\n", color.RedString("✗"), len(reports)-passedScenarios)
	fmt.Fprintf(w, "\nTotal Assertions: %d\n", totalAssertions)
	fmt.Fprintf(w, "%s Passed Assertions: %d\n", color.GreenString("✓"), passedAssertions)
	fmt.Fprintf(w, "%s Failed Assertions: %d\n", color.RedString("✗"), totalAssertions-passedAssertions)
	if failedSteps > 0 || skippedSteps > 0 {
		fmt.Fprintf(w, "\nFailed Steps: %d, Skipped Steps: %d\n", failedSteps, skippedSteps)
	}
}

func writeListing(w io.Writer, r *RunReport) {
	fmt.Fprintf(w, "\n=== %s ===\n", r.Scenario)
	if r.Aborted {
		fmt.Fprintf(w, "%s aborted: %s\n", color.RedString("✗"), r.AbortReason)
		return
	}

	byStep := make(map[int][]AssertionResult)
	for _, res := range r.Results {
		byStep[res.StepIndex] = append(byStep[res.StepIndex], res)
	}

	for _, s := range r.Steps {
		switch s.Status {
		case StatusSkipped:
			fmt.Fprintf(w, "%s %d. %s skipped\n", color.YellowString("-"), s.Index+1, s.Name)
			continue
		case StatusFailed:
			fmt.Fprintf(w, "%s %d. %s: %s\n", color.RedString("✗"), s.Index+1, s.Name, s.Error)
		default:
			fmt.Fprintf(w, "%s %d. %s\n", color.GreenString("✓"), s.Index+1, s.Name)
		}
		for _, res := range byStep[s.Index] {
			fmt.Fprintf(w, "   %s\n", resultLine(res))
		}
	}
}

func resultLine(res AssertionResult) string {
	if res.Passed {
		return fmt.Sprintf("%s %s", color.GreenString("✓"), res.Message)
	}
	return fmt.Sprintf("%s %s (%s)", color.RedString("✗"), res.Message, res.Kind)
}

type jsonReport struct {
	*RunReport
	Success bool `json:"success"`
	Passed  int  `json:"passed"`
	Failed  int  `json:"failed"`
}

// WriteJSON writes the reports as an indented JSON array with computed
// success and counts.
func WriteJSON(w io.Writer, reports ...*RunReport) error {
	out := make([]jsonReport, len(reports))
	for i, r := range reports {
		out[i] = jsonReport{RunReport: r, Success: r.Success(), Passed: r.Passed(), Failed: r.Failed()}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

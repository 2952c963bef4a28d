package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// Narrator prints each check as it happens. A nil Narrator prints nothing.
type Narrator struct {
	mu     sync.Mutex
	w      io.Writer
	prefix string
}

func NewNarrator(w io.Writer) *Narrator {
	return &Narrator{w: w}
}

// WithPrefix returns a narrator sharing the writer that tags every line, used
// when scenarios run concurrently.
func (n *Narrator) WithPrefix(prefix string) *Narrator {
	if n == nil {
		return nil
	}
	return &Narrator{w: lockedWriter{n}, prefix: "[" + prefix + "] "}
}

type lockedWriter struct{ n *Narrator }

func (l lockedWriter) Write(p []byte) (int, error) {
	l.n.mu.Lock()
	defer l.n.mu.Unlock()
	return l.n.w.Write(p)
}

func (n *Narrator) printf(format string, args ...interface{}) {
	if n == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, "%s"+format+"\n", append([]interface{}{n.prefix}, args...)...)
}

func (n *Narrator) Start(scenario, runID string) {
	n.printf("%s %s (run %s)", color.CyanString("▶"), scenario, runID)
}

func (n *Narrator) Step(index int, name string) {
	n.printf("  %d. %s", index+1, name)
}

func (n *Narrator) Result(res AssertionResult) {
	n.printf("     %s", resultLine(res))
}

func (n *Narrator) StepFailed(rec StepRecord) {
	n.printf("     %s %s (%s)", color.RedString("✗"), rec.Error, rec.Kind)
}

func (n *Narrator) Skipped(rec StepRecord) {
	n.printf("  %s %d. %s skipped", color.YellowString("-"), rec.Index+1, rec.Name)
}

func (n *Narrator) Log(msg string) {
	n.printf("     %s %s", color.BlueString("•"), msg)
}

func (n *Narrator) Done(r *RunReport) {
	if r.Success() {
		n.printf("%s %s passed (%d assertions)", color.GreenString("✓"), r.Scenario, len(r.Results))
		return
	}
	n.printf("%s %s failed (%d failed assertions, %d failed steps)", color.RedString("✗"), r.Scenario, r.Failed(), r.FailedSteps())
}

package harness

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/rocketship-ai/uiprobe/internal/dsl"
	"github.com/rocketship-ai/uiprobe/internal/report"
)

// RunAll runs independent scenarios, at most parallel at a time, each in
// its own session. Reports come back in input order. With more than one
// worker, narration lines are tagged with the scenario name.
func (r *Runner) RunAll(ctx context.Context, scenarios []dsl.Scenario, parallel int) []*report.RunReport {
	if parallel < 1 {
		parallel = 1
	}
	reports := make([]*report.RunReport, len(scenarios))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, scenario := range scenarios {
		narrator := r.narrator
		if parallel > 1 {
			narrator = narrator.WithPrefix(scenario.Name)
		}
		g.Go(func() error {
			reports[i] = r.run(ctx, scenario, narrator)
			return nil
		})
	}
	_ = g.Wait()
	return reports
}

// Success reports whether every run succeeded.
func Success(reports []*report.RunReport) bool {
	for _, rep := range reports {
		if !rep.Success() {
			return false
		}
	}
	return true
}

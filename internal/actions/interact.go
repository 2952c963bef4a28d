package actions

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rocketship-ai/uiprobe/internal/failure"
)

// hoverInterval spaces consecutive hovers so hover styles can settle.
const hoverInterval = 100 * time.Millisecond

func init() {
	Register(interaction("navigate", navigate))
	Register(observation("wait_for_load", waitForLoad))
	Register(interaction("click", click))
	Register(interaction("fill", fill))
	Register(observation("hover", hover))
	Register(observation("hover_all", hoverAll))
	Register(interaction("press", press))
	Register(interaction("type", typeText))
	Register(interaction("upload", upload))
	Register(interaction("dialog", dialog))
}

func loadState(sc *StepContext) string {
	if sc.Step.WaitUntil == "" {
		return "load"
	}
	return sc.Step.WaitUntil
}

func navigate(ctx context.Context, sc *StepContext) (interface{}, error) {
	page := sc.Page()
	if err := page.Navigate(ctx, sc.resolveURL(sc.Step.URL)); err != nil {
		return nil, err
	}
	if err := page.WaitForLoad(ctx, loadState(sc)); err != nil {
		return nil, err
	}
	return page.URL(), nil
}

func waitForLoad(ctx context.Context, sc *StepContext) (interface{}, error) {
	page := sc.Page()
	if err := page.WaitForLoad(ctx, loadState(sc)); err != nil {
		return nil, err
	}
	return page.URL(), nil
}

func click(ctx context.Context, sc *StepContext) (interface{}, error) {
	target, err := sc.target()
	if err != nil {
		return nil, err
	}
	el, err := sc.Page().Find(ctx, target)
	if err != nil {
		return nil, err
	}
	return nil, el.Click(ctx)
}

func fill(ctx context.Context, sc *StepContext) (interface{}, error) {
	target, err := sc.target()
	if err != nil {
		return nil, err
	}
	el, err := sc.Page().Find(ctx, target)
	if err != nil {
		return nil, err
	}
	if err := el.Fill(ctx, sc.Step.Value); err != nil {
		return nil, err
	}
	return sc.Step.Value, nil
}

func hover(ctx context.Context, sc *StepContext) (interface{}, error) {
	target, err := sc.target()
	if err != nil {
		return nil, err
	}
	el, err := sc.Page().Find(ctx, target)
	if err != nil {
		return nil, err
	}
	return nil, el.Hover(ctx)
}

// hoverAll hovers the first Limit matches (all when Limit is 0) and returns
// how many were hovered.
func hoverAll(ctx context.Context, sc *StepContext) (interface{}, error) {
	target, err := sc.target()
	if err != nil {
		return nil, err
	}
	page := sc.Page()
	elements, err := page.All(ctx, target)
	if err != nil {
		return nil, err
	}
	if limit := sc.Step.Limit; limit > 0 && len(elements) > limit {
		elements = elements[:limit]
	}
	for i, el := range elements {
		if i > 0 {
			if err := page.Wait(ctx, hoverInterval); err != nil {
				return i, err
			}
		}
		if err := el.Hover(ctx); err != nil {
			return i, err
		}
	}
	return len(elements), nil
}

func press(ctx context.Context, sc *StepContext) (interface{}, error) {
	return nil, sc.Page().Press(ctx, sc.Step.Key)
}

func typeText(ctx context.Context, sc *StepContext) (interface{}, error) {
	return nil, sc.Page().Type(ctx, sc.Step.Value)
}

// upload sets files on a file input. A bare file name that matches a file
// downloaded earlier in the run resolves to the saved copy.
func upload(ctx context.Context, sc *StepContext) (interface{}, error) {
	target, err := sc.target()
	if err != nil {
		return nil, err
	}
	files := make([]string, len(sc.Step.Files))
	for i, f := range sc.Step.Files {
		files[i] = f
		if sc.Artifacts == nil || filepath.IsAbs(f) {
			continue
		}
		if saved := sc.Artifacts.DownloadPath(f); fileExists(saved) {
			files[i] = saved
		}
	}
	for _, f := range files {
		if !fileExists(f) {
			return nil, failure.New(failure.PreconditionFailed, "upload", "file %s does not exist", f)
		}
	}

	el, err := sc.Page().Find(ctx, target)
	if err != nil {
		return nil, err
	}
	if err := el.SetInputFiles(ctx, files); err != nil {
		return nil, err
	}
	return len(files), nil
}

// dialog sets how the next native dialogs are answered: accepted with Value
// as the prompt text unless accept is false.
func dialog(ctx context.Context, sc *StepContext) (interface{}, error) {
	policy := sc.Session.Dialogs()
	if sc.Step.Accept != nil && !*sc.Step.Accept {
		policy.Dismiss()
		return nil, nil
	}
	policy.Accept(sc.Step.Value)
	return nil, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

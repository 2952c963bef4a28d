package actions

import (
	"context"

	"github.com/rocketship-ai/uiprobe/internal/failure"
)

func init() {
	Register(interaction("screenshot", screenshot))
	Register(interaction("download", download))
	Register(interaction("log", logMessage))
}

// screenshot saves a PNG and returns its path. Relative paths resolve under
// the run's screenshot directory.
func screenshot(ctx context.Context, sc *StepContext) (interface{}, error) {
	path := sc.Step.Path
	if sc.Artifacts != nil {
		path = sc.Artifacts.ScreenshotPath(path)
	}
	if err := sc.Page().Screenshot(ctx, path, sc.Step.FullPage); err != nil {
		return nil, failure.Wrap(failure.PreconditionFailed, "screenshot "+path, err)
	}
	if sc.Artifacts != nil {
		sc.Artifacts.AddScreenshot(sc.Step.Name, path)
	}
	sc.logger().Debug("screenshot saved", "step", sc.Step.Name, "path", path)
	return path, nil
}

// download clicks the target, waits for the resulting download and saves it
// into the run's downloads directory. It returns the suggested filename.
func download(ctx context.Context, sc *StepContext) (interface{}, error) {
	target, err := sc.target()
	if err != nil {
		return nil, err
	}
	collected := sc.Session.Downloads()
	before := collected.Len()

	el, err := sc.Page().Find(ctx, target)
	if err != nil {
		return nil, err
	}
	if err := el.Click(ctx); err != nil {
		return nil, err
	}
	if err := collected.WaitFor(ctx, before+1); err != nil {
		return nil, failure.Wrap(failure.Timeout, "download "+target.String(), err)
	}

	dl := collected.All()[before]
	name := dl.SuggestedFilename()
	if sc.Artifacts != nil {
		path := sc.Artifacts.DownloadPath(name)
		if err := dl.SaveAs(path); err != nil {
			return name, failure.Wrap(failure.PreconditionFailed, "save download "+name, err)
		}
		sc.Artifacts.AddDownload(sc.Step.Name, name, path)
	}
	return name, nil
}

func logMessage(ctx context.Context, sc *StepContext) (interface{}, error) {
	msg := sc.Step.Value
	sc.logger().Info(msg, "step", sc.Step.Name)
	if sc.Narrate != nil {
		sc.Narrate(msg)
	}
	return msg, nil
}

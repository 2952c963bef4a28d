package pwdriver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/rocketship-ai/uiprobe/internal/driver"
	"github.com/rocketship-ai/uiprobe/internal/failure"
)

type page struct {
	p playwright.Page
}

func (pg *page) Navigate(ctx context.Context, url string) error {
	_, err := pg.p.Goto(url, playwright.PageGotoOptions{Timeout: timeoutMS(ctx)})
	return classify("navigate "+url, err)
}

func (pg *page) WaitForLoad(ctx context.Context, state string) error {
	var ls *playwright.LoadState
	switch state {
	case driver.LoadStateDOMContentLoaded:
		ls = playwright.LoadStateDomcontentloaded
	case driver.LoadStateNetworkIdle:
		ls = playwright.LoadStateNetworkidle
	default:
		ls = playwright.LoadStateLoad
	}
	err := pg.p.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   ls,
		Timeout: timeoutMS(ctx),
	})
	return classify("wait for "+state, err)
}

func (pg *page) Wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return failure.Wrap(failure.Timeout, fmt.Sprintf("wait %s", d), ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (pg *page) URL() string {
	return pg.p.URL()
}

func (pg *page) locator(t driver.Target) playwright.Locator {
	var loc playwright.Locator
	if t.Within != nil {
		loc = pg.locator(*t.Within).Locator(t.Selector)
	} else {
		loc = pg.p.Locator(t.Selector)
	}
	if t.HasText != "" {
		loc = loc.Filter(playwright.LocatorFilterOptions{HasText: t.HasText})
	}
	if t.Nth != nil {
		loc = loc.Nth(*t.Nth)
	}
	return loc
}

func (pg *page) Find(ctx context.Context, t driver.Target) (driver.Element, error) {
	op := "find " + t.String()
	loc := pg.locator(t)

	err := loc.First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: timeoutMS(ctx),
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return nil, failure.New(failure.ElementNotFound, op, "no element matched before timeout")
		}
		return nil, classify(op, err)
	}

	n, err := loc.Count()
	if err != nil {
		return nil, classify(op, err)
	}
	switch {
	case n == 0:
		return nil, failure.New(failure.ElementNotFound, op, "selector matched 0 elements")
	case n > 1 && t.Nth == nil:
		return nil, failure.New(failure.PreconditionFailed, op, "selector matched %d elements, set nth to pick one", n)
	}
	return &element{loc: loc, desc: t.String()}, nil
}

func (pg *page) All(ctx context.Context, t driver.Target) ([]driver.Element, error) {
	loc := pg.locator(t)
	n, err := loc.Count()
	if err != nil {
		return nil, classify("find all "+t.String(), err)
	}
	out := make([]driver.Element, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &element{loc: loc.Nth(i), desc: fmt.Sprintf("%s[%d]", t.String(), i)})
	}
	return out, nil
}

func (pg *page) Count(ctx context.Context, t driver.Target) (int, error) {
	n, err := pg.locator(t).Count()
	if err != nil {
		return 0, classify("count "+t.String(), err)
	}
	return n, nil
}

func (pg *page) Evaluate(ctx context.Context, script string) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, failure.Wrap(failure.Timeout, "evaluate", err)
	}
	v, err := pg.p.Evaluate(script)
	if err != nil {
		return nil, classify("evaluate", err)
	}
	return v, nil
}

func (pg *page) Screenshot(ctx context.Context, path string, fullPage bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	_, err := pg.p.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(fullPage),
		Timeout:  timeoutMS(ctx),
	})
	return classify("screenshot "+path, err)
}

func (pg *page) Press(ctx context.Context, key string) error {
	return classify("press "+key, pg.p.Keyboard().Press(key))
}

func (pg *page) Type(ctx context.Context, text string) error {
	return classify("type", pg.p.Keyboard().Type(text))
}

func (pg *page) OnDownload(fn func(driver.Download)) {
	pg.p.OnDownload(func(d playwright.Download) { fn(download{d}) })
}

func (pg *page) OnDialog(fn func(driver.Dialog)) {
	pg.p.OnDialog(func(d playwright.Dialog) { fn(dialog{d}) })
}

type element struct {
	loc  playwright.Locator
	desc string
}

func (e *element) Click(ctx context.Context) error {
	return classify("click "+e.desc, e.loc.Click(playwright.LocatorClickOptions{Timeout: timeoutMS(ctx)}))
}

func (e *element) Fill(ctx context.Context, text string) error {
	return classify("fill "+e.desc, e.loc.Fill(text, playwright.LocatorFillOptions{Timeout: timeoutMS(ctx)}))
}

func (e *element) Hover(ctx context.Context) error {
	return classify("hover "+e.desc, e.loc.Hover(playwright.LocatorHoverOptions{Timeout: timeoutMS(ctx)}))
}

func (e *element) TextContent(ctx context.Context) (string, error) {
	text, err := e.loc.TextContent(playwright.LocatorTextContentOptions{Timeout: timeoutMS(ctx)})
	return text, classify("text of "+e.desc, err)
}

func (e *element) InputValue(ctx context.Context) (string, error) {
	value, err := e.loc.InputValue(playwright.LocatorInputValueOptions{Timeout: timeoutMS(ctx)})
	return value, classify("value of "+e.desc, err)
}

func (e *element) IsVisible(ctx context.Context) (bool, error) {
	visible, err := e.loc.IsVisible()
	return visible, classify("visibility of "+e.desc, err)
}

func (e *element) SetInputFiles(ctx context.Context, paths []string) error {
	err := e.loc.SetInputFiles(paths, playwright.LocatorSetInputFilesOptions{Timeout: timeoutMS(ctx)})
	return classify("upload to "+e.desc, err)
}

// timeoutMS converts the context deadline into a playwright timeout. Without
// a deadline the page default applies.
func timeoutMS(ctx context.Context) *float64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	remaining := time.Until(deadline).Milliseconds()
	if remaining < 1 {
		remaining = 1
	}
	return playwright.Float(float64(remaining))
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return failure.Wrap(failure.Timeout, op, err)
	}
	return failure.Wrap(failure.PreconditionFailed, op, err)
}

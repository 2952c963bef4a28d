package actions

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rocketship-ai/uiprobe/internal/failure"
)

// pollInterval is how often wait_for re-checks its target.
const pollInterval = 100 * time.Millisecond

func init() {
	Register(observation("wait", wait))
	Register(observation("wait_for", waitFor))
	Register(observation("text", text))
	Register(observation("value", value))
	Register(observation("visible", visible))
	Register(observation("count", count))
	Register(observation("url", currentURL))
	Register(observation("evaluate", evaluate))
	Register(observation("storage", storage))
	Register(observation("downloads", downloads))
}

// wait pauses for the step duration. It returns early when ctx ends.
func wait(ctx context.Context, sc *StepContext) (interface{}, error) {
	return nil, sc.Page().Wait(ctx, sc.Step.Duration.Std())
}

// waitFor polls until the target resolves to a visible element.
func waitFor(ctx context.Context, sc *StepContext) (interface{}, error) {
	target, err := sc.target()
	if err != nil {
		return nil, err
	}
	page := sc.Page()
	for {
		el, err := page.Find(ctx, target)
		if err == nil {
			if shown, visErr := el.IsVisible(ctx); visErr == nil && shown {
				return true, nil
			}
		} else if failure.KindOf(err) == failure.PreconditionFailed {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return false, failure.New(failure.Timeout, "wait for "+target.String(), "element did not become visible")
		case <-time.After(pollInterval):
		}
	}
}

func text(ctx context.Context, sc *StepContext) (interface{}, error) {
	target, err := sc.target()
	if err != nil {
		return nil, err
	}
	el, err := sc.Page().Find(ctx, target)
	if err != nil {
		return nil, err
	}
	content, err := el.TextContent(ctx)
	if err != nil {
		return nil, err
	}
	return strings.TrimSpace(content), nil
}

func value(ctx context.Context, sc *StepContext) (interface{}, error) {
	target, err := sc.target()
	if err != nil {
		return nil, err
	}
	el, err := sc.Page().Find(ctx, target)
	if err != nil {
		return nil, err
	}
	return el.InputValue(ctx)
}

// visible reports false for a target that matches nothing. It checks the
// match count first so an absent element never waits for attachment.
func visible(ctx context.Context, sc *StepContext) (interface{}, error) {
	target, err := sc.target()
	if err != nil {
		return nil, err
	}
	page := sc.Page()
	n, err := page.Count(ctx, target)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return false, nil
	}
	el, err := page.Find(ctx, target)
	if err != nil {
		if failure.KindOf(err) == failure.ElementNotFound {
			return false, nil
		}
		return nil, err
	}
	return el.IsVisible(ctx)
}

func count(ctx context.Context, sc *StepContext) (interface{}, error) {
	target, err := sc.target()
	if err != nil {
		return nil, err
	}
	return sc.Page().Count(ctx, target)
}

func currentURL(ctx context.Context, sc *StepContext) (interface{}, error) {
	return sc.Page().URL(), nil
}

func evaluate(ctx context.Context, sc *StepContext) (interface{}, error) {
	return sc.Page().Evaluate(ctx, sc.Step.Script)
}

// storage reads a localStorage item. JSON values are decoded; a missing key
// yields nil.
func storage(ctx context.Context, sc *StepContext) (interface{}, error) {
	key, err := json.Marshal(sc.Step.Key)
	if err != nil {
		return nil, err
	}
	raw, err := sc.Page().Evaluate(ctx, "() => window.localStorage.getItem("+string(key)+")")
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return raw, nil
	}
	var doc interface{}
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return s, nil
	}
	return doc, nil
}

// downloads returns how many downloads the session has collected, first
// waiting for at least Count when it is set.
func downloads(ctx context.Context, sc *StepContext) (interface{}, error) {
	collected := sc.Session.Downloads()
	if sc.Step.Count > 0 {
		if err := collected.WaitFor(ctx, sc.Step.Count); err != nil {
			return collected.Len(), failure.Wrap(failure.Timeout, "downloads", err)
		}
	}
	return collected.Len(), nil
}

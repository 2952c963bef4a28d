// Package driver is the page interaction layer between scenarios and the
// browser automation library. Harness code only talks to these interfaces so
// the automation backend can be swapped, and tests can run without a browser.
package driver

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Load states accepted by Page.WaitForLoad.
const (
	LoadStateLoad             = "load"
	LoadStateDOMContentLoaded = "domcontentloaded"
	LoadStateNetworkIdle      = "networkidle"
)

// Target locates elements on a page: a CSS selector, optionally filtered to
// elements containing HasText, narrowed to the Nth match, and resolved inside
// the element described by Within.
type Target struct {
	Selector string  `json:"selector" yaml:"selector"`
	HasText  string  `json:"has_text,omitempty" yaml:"has_text,omitempty"`
	Nth      *int    `json:"nth,omitempty" yaml:"nth,omitempty"`
	Within   *Target `json:"within,omitempty" yaml:"within,omitempty"`
}

func (t Target) String() string {
	var b strings.Builder
	if t.Within != nil {
		b.WriteString(t.Within.String())
		b.WriteString(" >> ")
	}
	b.WriteString(t.Selector)
	if t.HasText != "" {
		fmt.Fprintf(&b, ":has-text(%q)", t.HasText)
	}
	if t.Nth != nil {
		fmt.Fprintf(&b, "[%d]", *t.Nth)
	}
	return b.String()
}

// Page is the capability set scenarios use to drive one browser tab.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitForLoad(ctx context.Context, state string) error
	Wait(ctx context.Context, d time.Duration) error
	URL() string

	// Find resolves exactly one element. It fails with ElementNotFound when
	// nothing matches and PreconditionFailed when the target is ambiguous.
	Find(ctx context.Context, t Target) (Element, error)
	All(ctx context.Context, t Target) ([]Element, error)
	Count(ctx context.Context, t Target) (int, error)

	Evaluate(ctx context.Context, script string) (interface{}, error)
	Screenshot(ctx context.Context, path string, fullPage bool) error
	Press(ctx context.Context, key string) error
	Type(ctx context.Context, text string) error

	OnDownload(fn func(Download))
	OnDialog(fn func(Dialog))
}

// Element is a handle to a single resolved element.
type Element interface {
	Click(ctx context.Context) error
	Fill(ctx context.Context, text string) error
	Hover(ctx context.Context) error
	TextContent(ctx context.Context) (string, error)
	InputValue(ctx context.Context) (string, error)
	IsVisible(ctx context.Context) (bool, error)
	SetInputFiles(ctx context.Context, paths []string) error
}

// Download is a file download the page initiated.
type Download interface {
	SuggestedFilename() string
	SaveAs(path string) error
}

// Dialog is a native alert, confirm or prompt.
type Dialog interface {
	Type() string
	Message() string
	Accept(promptText string) error
	Dismiss() error
}

// Viewport is the browser window size in CSS pixels.
type Viewport struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// LaunchOptions configures a new browser session.
type LaunchOptions struct {
	Browser        string
	Headless       bool
	SlowMo         time.Duration
	Viewport       Viewport
	DefaultTimeout time.Duration
	// Install downloads the browser binaries before launching.
	Install bool
}

// Session is one browser, one context and one page, owned by a single
// scenario run.
type Session interface {
	Page() Page
	Downloads() *Downloads
	Dialogs() *DialogPolicy
	// Close releases the browser. Implementations must tolerate repeated calls.
	Close() error
}

// Launcher acquires sessions.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Session, error)
}

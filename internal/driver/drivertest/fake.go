// Package drivertest provides an in-memory driver for exercising scenarios
// without a browser.
package drivertest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rocketship-ai/uiprobe/internal/driver"
	"github.com/rocketship-ai/uiprobe/internal/failure"
)

// Node is a fake element. Text and Value back TextContent and InputValue
// unless TextFunc is set. Hidden nodes report IsVisible false.
type Node struct {
	Text     string
	TextFunc func() string
	Value    string
	Hidden   bool
	OnClick  func(p *Page)
	OnFill   func(p *Page, value string)
	Files    []string

	page   *Page
	Clicks int
	Hovers int
}

// Key identifies the nodes a target resolves to, ignoring Nth.
func Key(t driver.Target) string {
	t.Nth = nil
	return t.String()
}

// Page is a scripted driver.Page.
type Page struct {
	mu          sync.Mutex
	url         string
	nodes       map[string][]*Node
	routes      map[string]func(p *Page)
	evaluate    func(script string) (interface{}, error)
	onDownload  []func(driver.Download)
	onDialog    []func(driver.Dialog)
	Keys        []string
	Typed       []string
	Screenshots []string
	Waits       []time.Duration
}

// NewPage returns an empty page at about:blank.
func NewPage() *Page {
	return &Page{
		url:    "about:blank",
		nodes:  make(map[string][]*Node),
		routes: make(map[string]func(p *Page)),
	}
}

// Set replaces the nodes matched by key (see Key) and returns the first.
func (p *Page) Set(key string, nodes ...*Node) *Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range nodes {
		n.page = p
	}
	p.nodes[key] = nodes
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// Append adds a node under key.
func (p *Page) Append(key string, n *Node) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n.page = p
	p.nodes[key] = append(p.nodes[key], n)
}

// Remove drops every node under key.
func (p *Page) Remove(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.nodes, key)
}

// Route registers fn to run when the page navigates to url.
func (p *Page) Route(url string, fn func(p *Page)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.routes[url] = fn
}

// SetURL changes the current URL without running routes, like a client-side
// router would.
func (p *Page) SetURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
}

// HandleEvaluate installs the script evaluator.
func (p *Page) HandleEvaluate(fn func(script string) (interface{}, error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evaluate = fn
}

// EmitDownload delivers a download to registered callbacks.
func (p *Page) EmitDownload(name string) {
	p.mu.Lock()
	handlers := append([]func(driver.Download){}, p.onDownload...)
	p.mu.Unlock()
	for _, fn := range handlers {
		fn(&Download{Name: name})
	}
}

// EmitDialog opens a dialog and returns how it was answered.
func (p *Page) EmitDialog(message string) *Dialog {
	p.mu.Lock()
	handlers := append([]func(driver.Dialog){}, p.onDialog...)
	p.mu.Unlock()
	d := &Dialog{Msg: message}
	for _, fn := range handlers {
		fn(d)
	}
	return d
}

func (p *Page) lookup(t driver.Target) []*Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	nodes := p.nodes[Key(t)]
	if t.Nth != nil {
		if *t.Nth < 0 || *t.Nth >= len(nodes) {
			return nil
		}
		return nodes[*t.Nth : *t.Nth+1]
	}
	out := make([]*Node, len(nodes))
	copy(out, nodes)
	return out
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return failure.Wrap(failure.Timeout, "navigate "+url, err)
	}
	p.mu.Lock()
	p.url = url
	route := p.routes[url]
	p.mu.Unlock()
	if route != nil {
		route(p)
	}
	return nil
}

func (p *Page) WaitForLoad(ctx context.Context, state string) error {
	if err := ctx.Err(); err != nil {
		return failure.Wrap(failure.Timeout, "wait for "+state, err)
	}
	return nil
}

func (p *Page) Wait(ctx context.Context, d time.Duration) error {
	p.mu.Lock()
	p.Waits = append(p.Waits, d)
	p.mu.Unlock()
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return failure.Wrap(failure.Timeout, fmt.Sprintf("wait %s", d), ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Page) Find(ctx context.Context, t driver.Target) (driver.Element, error) {
	nodes := p.lookup(t)
	switch {
	case len(nodes) == 0:
		return nil, failure.New(failure.ElementNotFound, "find "+t.String(), "selector matched 0 elements")
	case len(nodes) > 1:
		return nil, failure.New(failure.PreconditionFailed, "find "+t.String(), "selector matched %d elements, set nth to pick one", len(nodes))
	}
	return nodes[0], nil
}

func (p *Page) All(ctx context.Context, t driver.Target) ([]driver.Element, error) {
	nodes := p.lookup(t)
	out := make([]driver.Element, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	return out, nil
}

func (p *Page) Count(ctx context.Context, t driver.Target) (int, error) {
	return len(p.lookup(t)), nil
}

func (p *Page) Evaluate(ctx context.Context, script string) (interface{}, error) {
	p.mu.Lock()
	fn := p.evaluate
	p.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(script)
}

func (p *Page) Screenshot(ctx context.Context, path string, fullPage bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	// A PNG signature is enough for callers that sniff the file.
	if err := os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n"), 0o644); err != nil {
		return err
	}
	p.mu.Lock()
	p.Screenshots = append(p.Screenshots, path)
	p.mu.Unlock()
	return nil
}

func (p *Page) Press(ctx context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Keys = append(p.Keys, key)
	return nil
}

func (p *Page) Type(ctx context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Typed = append(p.Typed, text)
	return nil
}

func (p *Page) OnDownload(fn func(driver.Download)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onDownload = append(p.onDownload, fn)
}

func (p *Page) OnDialog(fn func(driver.Dialog)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onDialog = append(p.onDialog, fn)
}

func (n *Node) Click(ctx context.Context) error {
	n.Clicks++
	if n.OnClick != nil {
		n.OnClick(n.page)
	}
	return nil
}

func (n *Node) Fill(ctx context.Context, text string) error {
	n.Value = text
	if n.OnFill != nil {
		n.OnFill(n.page, text)
	}
	return nil
}

func (n *Node) Hover(ctx context.Context) error {
	n.Hovers++
	return nil
}

func (n *Node) TextContent(ctx context.Context) (string, error) {
	if n.TextFunc != nil {
		return n.TextFunc(), nil
	}
	return n.Text, nil
}

func (n *Node) InputValue(ctx context.Context) (string, error) {
	return n.Value, nil
}

func (n *Node) IsVisible(ctx context.Context) (bool, error) {
	return !n.Hidden, nil
}

func (n *Node) SetInputFiles(ctx context.Context, paths []string) error {
	n.Files = append([]string(nil), paths...)
	return nil
}

// Download is a fake download whose SaveAs writes an empty JSON document.
type Download struct {
	Name  string
	Saved string
}

func (d *Download) SuggestedFilename() string { return d.Name }

func (d *Download) SaveAs(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	d.Saved = path
	return os.WriteFile(path, []byte("{}"), 0o644)
}

// Dialog records how it was answered.
type Dialog struct {
	Msg       string
	Accepted  bool
	Dismissed bool
	Answer    string
}

func (d *Dialog) Type() string    { return "prompt" }
func (d *Dialog) Message() string { return d.Msg }

func (d *Dialog) Accept(promptText string) error {
	d.Accepted = true
	d.Answer = promptText
	return nil
}

func (d *Dialog) Dismiss() error {
	d.Dismissed = true
	return nil
}

// Session is a fake driver.Session. Close counts calls rather than guarding
// them so tests can assert release happens exactly once.
type Session struct {
	page      *Page
	downloads *driver.Downloads
	dialogs   *driver.DialogPolicy

	mu     sync.Mutex
	closes int
}

// NewSession wires page callbacks into a fresh collector and dialog policy.
func NewSession(page *Page) *Session {
	s := &Session{page: page, downloads: driver.NewDownloads(), dialogs: driver.NewDialogPolicy()}
	page.OnDownload(s.downloads.Add)
	page.OnDialog(func(d driver.Dialog) { _ = s.dialogs.Handle(d) })
	return s
}

func (s *Session) Page() driver.Page             { return s.page }
func (s *Session) Downloads() *driver.Downloads  { return s.downloads }
func (s *Session) Dialogs() *driver.DialogPolicy { return s.dialogs }

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

// Closes returns how many times Close was called.
func (s *Session) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// Launcher hands out sessions built by Setup, or fails with Err.
type Launcher struct {
	Setup func(p *Page)
	Err   error

	mu       sync.Mutex
	Sessions []*Session
	Options  []driver.LaunchOptions
}

func (l *Launcher) Launch(ctx context.Context, opts driver.LaunchOptions) (driver.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Options = append(l.Options, opts)
	if l.Err != nil {
		return nil, l.Err
	}
	page := NewPage()
	if l.Setup != nil {
		l.Setup(page)
	}
	s := NewSession(page)
	l.Sessions = append(l.Sessions, s)
	return s, nil
}

// Last returns the most recently launched session.
func (l *Launcher) Last() *Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.Sessions) == 0 {
		return nil
	}
	return l.Sessions[len(l.Sessions)-1]
}

// FakePage returns the scripted page behind the session.
func (s *Session) FakePage() *Page { return s.page }

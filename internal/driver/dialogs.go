package driver

import (
	"sync"
)

// DialogPolicy decides how a session answers native dialogs. The zero policy
// dismisses everything, matching what a browser without a user would do.
type DialogPolicy struct {
	mu         sync.Mutex
	accept     bool
	promptText string
	seen       []string
}

// NewDialogPolicy returns a policy that dismisses dialogs.
func NewDialogPolicy() *DialogPolicy {
	return &DialogPolicy{}
}

// Accept makes subsequent dialogs be accepted, answering prompts with text.
func (p *DialogPolicy) Accept(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accept = true
	p.promptText = text
}

// Dismiss makes subsequent dialogs be dismissed.
func (p *DialogPolicy) Dismiss() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accept = false
	p.promptText = ""
}

// Handle answers d according to the current policy and records its message.
func (p *DialogPolicy) Handle(d Dialog) error {
	p.mu.Lock()
	accept, text := p.accept, p.promptText
	p.seen = append(p.seen, d.Message())
	p.mu.Unlock()

	if accept {
		return d.Accept(text)
	}
	return d.Dismiss()
}

// Seen returns the messages of every dialog handled so far.
func (p *DialogPolicy) Seen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.seen))
	copy(out, p.seen)
	return out
}

package driver

import (
	"context"
	"sync"
)

// Downloads collects the downloads a session's page starts. Driver callbacks
// arrive on their own goroutine, so access is guarded.
type Downloads struct {
	mu      sync.Mutex
	items   []Download
	changed chan struct{}
}

// NewDownloads returns an empty collector.
func NewDownloads() *Downloads {
	return &Downloads{changed: make(chan struct{})}
}

// Add records a download and wakes any waiters.
func (d *Downloads) Add(dl Download) {
	d.mu.Lock()
	d.items = append(d.items, dl)
	close(d.changed)
	d.changed = make(chan struct{})
	d.mu.Unlock()
}

// Len returns the number of downloads collected so far.
func (d *Downloads) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}

// All returns a copy of the collected downloads in arrival order.
func (d *Downloads) All() []Download {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Download, len(d.items))
	copy(out, d.items)
	return out
}

// WaitFor blocks until at least n downloads were collected or ctx is done.
func (d *Downloads) WaitFor(ctx context.Context, n int) error {
	for {
		d.mu.Lock()
		if len(d.items) >= n {
			d.mu.Unlock()
			return nil
		}
		changed := d.changed
		d.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

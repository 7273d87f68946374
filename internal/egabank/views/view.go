// Package views renders plain-text screens that stay in step with the
// client cache.
//
// A view subscribes to the cache when it is created. Change events do not
// trigger network calls from inside the cache's dispatch; they mark the
// view stale, and the next Render reloads it first. The interactive shell
// renders stale views after every command, so a transfer made in the shell
// shows up on the accounts and dashboard screens without asking.
package views

import (
	"context"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"github.com/aussiebroadwan/egabank/internal/egabank/appstore"
)

// View is a screen bound to the cache.
type View interface {
	Name() string
	Stale() bool
	Render(ctx context.Context, w io.Writer) error
	Close()
}

// base tracks staleness and the cache subscription shared by every view.
// Loads run without the lock: a load can end the session, and the reset
// that follows is delivered to this same view.
type base struct {
	mu     sync.Mutex
	stale  bool
	gen    uint64
	loads  int
	cancel func()
}

func (b *base) subscribe(cache *appstore.Store, filter func(appstore.Event) bool, fn appstore.Handler) {
	b.stale = true
	b.cancel = cache.SubscribeFunc(filter, fn)
}

// touch marks the view stale. Caller holds b.mu.
func (b *base) touch() {
	b.stale = true
	b.gen++
}

func (b *base) markStale() {
	b.mu.Lock()
	b.touch()
	b.mu.Unlock()
}

// pending reports whether a reload is due and the generation it answers.
func (b *base) pending() (bool, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stale, b.gen
}

// loaded records a reload that started at gen. A change that arrived while
// it ran keeps the view stale. Caller holds b.mu.
func (b *base) loaded(gen uint64) {
	if b.gen == gen {
		b.stale = false
	}
	b.loads++
}

// Stale reports whether the next Render reloads.
func (b *base) Stale() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stale
}

// Loads returns how many times the view reloaded.
func (b *base) Loads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loads
}

// Close stops listening to the cache.
func (b *base) Close() {
	if b.cancel != nil {
		b.cancel()
	}
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

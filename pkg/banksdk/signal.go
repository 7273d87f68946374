package banksdk

import (
	"context"
	"sync"
)

// tokenSignal is a single-slot broadcast of the outcome of one refresh.
// A fresh signal starts pending. Waiters block until the first resolve and
// every later reader sees the same value. A new refresh gets a new signal,
// so a waiter can never observe a value from an older refresh.
type tokenSignal struct {
	once  sync.Once
	done  chan struct{}
	token string
	err   error
}

func newTokenSignal() *tokenSignal {
	return &tokenSignal{done: make(chan struct{})}
}

// resolve publishes the outcome. Only the first call has an effect.
func (s *tokenSignal) resolve(token string, err error) {
	s.once.Do(func() {
		s.token, s.err = token, err
		close(s.done)
	})
}

// wait blocks until the signal resolves or ctx ends.
func (s *tokenSignal) wait(ctx context.Context) (string, error) {
	select {
	case <-s.done:
		return s.token, s.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// resolved reports whether the signal has a value yet.
func (s *tokenSignal) resolved() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

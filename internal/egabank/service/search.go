package service

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSuperseded is returned by a lookup whose result was discarded because
// a newer lookup started on the same Searcher.
var ErrSuperseded = errors.New("superseded by a newer lookup")

// FetchFunc performs one lookup.
type FetchFunc[T any] func(ctx context.Context, query string) (T, error)

// Searcher runs lookups where only the latest one matters, such as a
// search box or a transfer target being typed. Starting a lookup cancels
// the one in flight, and a result that arrives after a newer lookup started
// is never returned.
//
// The zero value is ready to use.
type Searcher[T any] struct {
	// Debounce delays every lookup. A lookup superseded during the delay
	// never reaches the network.
	Debounce time.Duration

	// Distinct answers a query equal to the last completed one from memory.
	Distinct bool

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	last   *searchResult[T]
}

type searchResult[T any] struct {
	query string
	value T
}

// Do runs fetch for query unless a newer call to Do supersedes it.
func (s *Searcher[T]) Do(ctx context.Context, query string, fetch FetchFunc[T]) (T, error) {
	var zero T

	s.mu.Lock()
	s.seq++
	id := s.seq
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.Distinct && s.last != nil && s.last.query == query {
		v := s.last.value
		s.mu.Unlock()
		return v, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	if s.Debounce > 0 {
		timer := time.NewTimer(s.Debounce)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return zero, s.outcome(id, ctx.Err())
		}
	}

	v, err := fetch(ctx, query)

	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.seq {
		return zero, ErrSuperseded
	}
	s.cancel = nil
	if err != nil {
		return zero, err
	}
	s.last = &searchResult[T]{query: query, value: v}
	return v, nil
}

// Reset forgets the last completed result.
func (s *Searcher[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = nil
}

func (s *Searcher[T]) outcome(id uint64, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.seq {
		return ErrSuperseded
	}
	return err
}

// Package appstore is the in-memory, observable cache shared by every view
// of a signed-in session.
//
// Views never mutate cached data directly. Services call the Store after a
// successful write and the Store emits one change event per mutation.
// Delivery is synchronous: a subscriber sees the event before the mutating
// call returns, and sees the mutation when it reads the Store while handling
// it. A mutation made from inside a handler, or while another goroutine is
// dispatching, is queued and delivered by the running dispatch loop right
// after the current event, so events always arrive in mutation order.
package appstore

import (
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/aussiebroadwan/egabank/pkg/banksdk"
)

// Handler receives change events.
type Handler func(Event)

type subscription struct {
	filter    func(Event) bool
	fn        Handler
	cancelled atomic.Bool
}

// Store caches accounts by number, clients by id and named counters.
// The zero value is not usable; call New.
type Store struct {
	mu sync.Mutex

	accounts     map[string]banksdk.Account
	accountOrder []string
	clients      map[int64]banksdk.Client
	clientOrder  []int64
	counters     map[string]int64

	seq         uint64
	subs        []*subscription
	queue       []Event
	dispatching bool

	metrics *Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithMetrics counts emitted events.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New returns an empty Store with no subscribers.
func New(opts ...Option) *Store {
	s := &Store{}
	s.clear()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) clear() {
	s.accounts = make(map[string]banksdk.Account)
	s.accountOrder = nil
	s.clients = make(map[int64]banksdk.Client)
	s.clientOrder = nil
	s.counters = make(map[string]int64)
}

// ============================================================================
// Subscriptions
// ============================================================================

// Subscribe registers fn for every event emitted from now on. Calling the
// returned function unsubscribes; it is safe to call from inside fn.
func (s *Store) Subscribe(fn Handler) (cancel func()) {
	return s.SubscribeFunc(nil, fn)
}

// SubscribeFunc registers fn for events accepted by filter. A nil filter
// accepts everything.
func (s *Store) SubscribeFunc(filter func(Event) bool, fn Handler) (cancel func()) {
	sub := &subscription{filter: filter, fn: fn}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	return func() {
		if sub.cancelled.Swap(true) {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.subs = slices.DeleteFunc(s.subs, func(x *subscription) bool { return x == sub })
	}
}

// Subscribers returns the number of active subscriptions.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// ============================================================================
// Mutations
// ============================================================================

// AddAccount caches a newly created account, replacing any cached account
// with the same number.
func (s *Store) AddAccount(a banksdk.Account) {
	s.mu.Lock()
	s.putAccount(a)
	s.enqueue(AccountCreated{header: s.next(), Account: a})
	s.mu.Unlock()
	s.dispatch()
}

// UpdateBalance replaces the balance of the cached account and reports
// whether it was cached. The event is emitted either way.
func (s *Store) UpdateBalance(number string, balance float64) bool {
	s.mu.Lock()
	a, ok := s.accounts[number]
	if ok {
		a.Balance = balance
		s.accounts[number] = a
	}
	s.enqueue(BalanceUpdated{header: s.next(), AccountNumber: number, NewBalance: balance, Cached: ok})
	s.mu.Unlock()
	s.dispatch()
	return ok
}

// IncrementCounter bumps name by one and returns the new value.
func (s *Store) IncrementCounter(name string) int64 {
	s.mu.Lock()
	s.counters[name]++
	v := s.counters[name]
	s.enqueue(CounterIncremented{header: s.next(), Name: name, Value: v})
	s.mu.Unlock()
	s.dispatch()
	return v
}

// AddClient caches a newly created client and emits ClientCreated.
func (s *Store) AddClient(c banksdk.Client) {
	s.mu.Lock()
	s.putClient(c)
	s.enqueue(ClientCreated{header: s.next(), Client: c})
	s.mu.Unlock()
	s.dispatch()
}

// UpdateClient replaces the cached client with the same id and emits
// ClientUpdated.
func (s *Store) UpdateClient(c banksdk.Client) {
	s.mu.Lock()
	s.putClient(c)
	s.enqueue(ClientUpdated{header: s.next(), Client: c})
	s.mu.Unlock()
	s.dispatch()
}

// RemoveClient drops the client and reports whether it was cached.
func (s *Store) RemoveClient(id int64) bool {
	s.mu.Lock()
	_, ok := s.clients[id]
	if ok {
		delete(s.clients, id)
		s.clientOrder = slices.DeleteFunc(s.clientOrder, func(x int64) bool { return x == id })
	}
	s.enqueue(ClientDeleted{header: s.next(), ID: id})
	s.mu.Unlock()
	s.dispatch()
	return ok
}

// TriggerFullRefresh asks every subscriber to re-fetch its own data.
func (s *Store) TriggerFullRefresh() {
	s.mu.Lock()
	s.enqueue(RefreshRequested{header: s.next()})
	s.mu.Unlock()
	s.dispatch()
}

// Hydrate upserts fetched lists into the cache.
func (s *Store) Hydrate(accounts []banksdk.Account, clients []banksdk.Client) {
	s.mu.Lock()
	for _, a := range accounts {
		s.putAccount(a)
	}
	for _, c := range clients {
		s.putClient(c)
	}
	s.enqueue(Hydrated{header: s.next(), Accounts: len(accounts), Clients: len(clients)})
	s.mu.Unlock()
	s.dispatch()
}

// Reset drops every cached entity and counter. Subscriptions stay.
func (s *Store) Reset() {
	s.mu.Lock()
	s.clear()
	s.enqueue(Cleared{header: s.next()})
	s.mu.Unlock()
	s.dispatch()
}

// ============================================================================
// Reads
// ============================================================================

// Account returns the cached account with the given number.
func (s *Store) Account(number string) (banksdk.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[number]
	return a, ok
}

// Accounts returns the cached accounts in insertion order.
func (s *Store) Accounts() []banksdk.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]banksdk.Account, 0, len(s.accountOrder))
	for _, n := range s.accountOrder {
		out = append(out, s.accounts[n])
	}
	return out
}

// Client returns the cached client with the given id.
func (s *Store) Client(id int64) (banksdk.Client, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	return c, ok
}

// Clients returns the cached clients in insertion order.
func (s *Store) Clients() []banksdk.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]banksdk.Client, 0, len(s.clientOrder))
	for _, id := range s.clientOrder {
		out = append(out, s.clients[id])
	}
	return out
}

// Counter returns the value of name, zero when never incremented.
func (s *Store) Counter(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[name]
}

// Counters returns a copy of every counter.
func (s *Store) Counters() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.counters)
}

// ============================================================================
// Dispatch
// ============================================================================

// must hold s.mu
func (s *Store) putAccount(a banksdk.Account) {
	if _, ok := s.accounts[a.Number]; !ok {
		s.accountOrder = append(s.accountOrder, a.Number)
	}
	s.accounts[a.Number] = a
}

// must hold s.mu
func (s *Store) putClient(c banksdk.Client) {
	if _, ok := s.clients[c.ID]; !ok {
		s.clientOrder = append(s.clientOrder, c.ID)
	}
	s.clients[c.ID] = c
}

// next returns the header of the next event. Must hold s.mu.
func (s *Store) next() header {
	s.seq++
	return header{seq: s.seq}
}

// enqueue must be called with s.mu held, in the same critical section as
// the mutation, so the queue order is the mutation order.
func (s *Store) enqueue(ev Event) {
	s.queue = append(s.queue, ev)
}

// dispatch delivers queued events unless a dispatch loop is already running,
// in which case that loop picks them up.
func (s *Store) dispatch() {
	s.mu.Lock()
	if s.dispatching {
		s.mu.Unlock()
		return
	}
	s.dispatching = true

	// A panicking handler loses the rest of the event it was handed. Events
	// queued behind it, possibly by other goroutines, are still delivered.
	done := false
	defer func() {
		if done {
			return
		}
		s.mu.Lock()
		s.dispatching = false
		pending := len(s.queue) > 0
		s.mu.Unlock()
		if pending {
			s.dispatch()
		}
	}()

	for len(s.queue) > 0 {
		ev := s.queue[0]
		s.queue = s.queue[1:]
		subs := slices.Clone(s.subs)
		s.mu.Unlock()

		s.metrics.event(ev)
		for _, sub := range subs {
			if sub.cancelled.Load() {
				continue
			}
			if sub.filter != nil && !sub.filter(ev) {
				continue
			}
			sub.fn(ev)
		}

		s.mu.Lock()
	}
	s.dispatching = false
	s.queue = nil
	s.mu.Unlock()
	done = true
}

package appstore

import "github.com/aussiebroadwan/egabank/pkg/banksdk"

// Kind is the category of a change event.
type Kind string

const (
	KindAccount     Kind = "account"
	KindTransaction Kind = "transaction"
	KindClient      Kind = "client"
	KindSystem      Kind = "system"
)

// Event is a change notification. The concrete types below are the only
// implementations, so a type switch over them is exhaustive.
type Event interface {
	Kind() Kind
	Action() string
	// Seq increases by one with every mutation of the Store that emitted it.
	Seq() uint64

	isEvent()
}

type header struct {
	seq uint64
}

func (h header) Seq() uint64 { return h.seq }
func (header) isEvent()       {}

// ============================================================================
// Accounts and transactions
// ============================================================================

type AccountCreated struct {
	header
	Account banksdk.Account
}

func (AccountCreated) Kind() Kind     { return KindAccount }
func (AccountCreated) Action() string { return "created" }

// BalanceUpdated carries a post-operation balance. Cached is false when the
// account was not in the cache, in which case nothing was patched.
type BalanceUpdated struct {
	header
	AccountNumber string
	NewBalance    float64
	Cached        bool
}

func (BalanceUpdated) Kind() Kind     { return KindTransaction }
func (BalanceUpdated) Action() string { return "balance_update" }

type CounterIncremented struct {
	header
	Name  string
	Value int64
}

func (CounterIncremented) Kind() Kind     { return KindTransaction }
func (CounterIncremented) Action() string { return "counter_increment" }

// ============================================================================
// Clients
// ============================================================================

type ClientCreated struct {
	header
	Client banksdk.Client
}

func (ClientCreated) Kind() Kind     { return KindClient }
func (ClientCreated) Action() string { return "created" }

type ClientUpdated struct {
	header
	Client banksdk.Client
}

func (ClientUpdated) Kind() Kind     { return KindClient }
func (ClientUpdated) Action() string { return "updated" }

type ClientDeleted struct {
	header
	ID int64
}

func (ClientDeleted) Kind() Kind     { return KindClient }
func (ClientDeleted) Action() string { return "deleted" }

// ============================================================================
// System
// ============================================================================

// RefreshRequested tells every subscriber to re-fetch its own data.
type RefreshRequested struct {
	header
}

func (RefreshRequested) Kind() Kind     { return KindSystem }
func (RefreshRequested) Action() string { return "refresh" }

// Hydrated follows a bulk load of fetched lists.
type Hydrated struct {
	header
	Accounts int
	Clients  int
}

func (Hydrated) Kind() Kind     { return KindSystem }
func (Hydrated) Action() string { return "loaded" }

// Cleared follows Reset.
type Cleared struct {
	header
}

func (Cleared) Kind() Kind     { return KindSystem }
func (Cleared) Action() string { return "reset" }

// OfKind returns a filter for SubscribeFunc matching any of kinds.
func OfKind(kinds ...Kind) func(Event) bool {
	return func(ev Event) bool {
		for _, k := range kinds {
			if ev.Kind() == k {
				return true
			}
		}
		return false
	}
}

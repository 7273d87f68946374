package views

import (
	"context"
	"fmt"
	"io"

	"github.com/aussiebroadwan/egabank/internal/egabank/appstore"
	"github.com/aussiebroadwan/egabank/pkg/banksdk"
)

// TransactionLoader fetches the operations of one account, or of every
// visible account when number is empty.
type TransactionLoader func(ctx context.Context, number string) ([]banksdk.Transaction, error)

// Transactions lists operations. Bound to an account number it only reacts
// to balance changes on that account; unbound it reacts to every
// transaction event.
type Transactions struct {
	base
	number string
	load   TransactionLoader
	txs    []banksdk.Transaction
}

func NewTransactions(cache *appstore.Store, number string, load TransactionLoader) *Transactions {
	v := &Transactions{number: number, load: load}
	v.subscribe(cache, v.relevant, v.handle)
	return v
}

func (v *Transactions) relevant(ev appstore.Event) bool {
	switch e := ev.(type) {
	case appstore.BalanceUpdated:
		return v.number == "" || e.AccountNumber == v.number
	case appstore.CounterIncremented:
		return v.number == ""
	case appstore.RefreshRequested, appstore.Cleared:
		return true
	}
	return false
}

func (v *Transactions) handle(ev appstore.Event) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := ev.(appstore.Cleared); ok {
		v.txs = nil
	}
	v.touch()
}

func (v *Transactions) Name() string {
	if v.number == "" {
		return "transactions"
	}
	return "transactions " + v.number
}

// Snapshot returns the operations from the last load.
func (v *Transactions) Snapshot() []banksdk.Transaction {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]banksdk.Transaction(nil), v.txs...)
}

func (v *Transactions) Render(ctx context.Context, w io.Writer) error {
	if stale, gen := v.pending(); stale {
		txs, err := v.load(ctx, v.number)
		if err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}
		v.mu.Lock()
		v.txs = txs
		v.loaded(gen)
		v.mu.Unlock()
	}

	txs := v.Snapshot()
	if len(txs) == 0 {
		_, err := fmt.Fprintln(w, "No transactions.")
		return err
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "DATE\tTYPE\tAMOUNT\tACCOUNT\tTO\tBALANCE AFTER\tDESCRIPTION")
	for _, tx := range txs {
		after := "-"
		if tx.BalanceAfter != nil {
			after = money(*tx.BalanceAfter)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			tx.Date, tx.Type, money(tx.Amount), tx.AccountNumber, tx.DestinationAccount, after, tx.Description)
	}
	return tw.Flush()
}

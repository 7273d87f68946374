package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aussiebroadwan/egabank/internal/egabank/nav"
	"github.com/aussiebroadwan/egabank/internal/egabank/service"
	"github.com/aussiebroadwan/egabank/internal/egabank/views"
	"github.com/aussiebroadwan/egabank/pkg/banksdk"
	"github.com/spf13/pflag"
)

// ============================================================================
// Accounts
// ============================================================================

func (app *Application) accountCommands() []*Command {
	var (
		page, size int
		clientID   int64
		accType    string
	)
	return []*Command{
		{
			Name:    "accounts",
			Usage:   "accounts [--page N] [--size N]",
			Summary: "List accounts (all of them for an administrator, your own otherwise)",
			Route:   nav.RouteAccounts,
			Flags: func() *pflag.FlagSet {
				fs := pflag.NewFlagSet("accounts", pflag.ContinueOnError)
				fs.IntVar(&page, "page", 0, "page number, from 0")
				fs.IntVar(&size, "size", 20, "page size")
				return fs
			},
			Run: func(ctx context.Context, _ []string) error {
				page, size := page, size
				key := fmt.Sprintf("accounts?page=%d&size=%d", page, size)
				return app.show(ctx, key, func() views.View {
					return views.NewAccounts(app.cache, func(ctx context.Context) ([]banksdk.Account, error) {
						return app.visibleAccounts(ctx, page, size)
					})
				})
			},
		},
		{
			Name:    "account",
			Usage:   "account <number>",
			Summary: "Show one account",
			Route:   nav.RouteAccounts,
			Args:    1,
			Run: func(ctx context.Context, args []string) error {
				a, err := app.accountService.Get(ctx, args[0])
				if err != nil {
					return err
				}
				printAccount(app.out, a)
				return nil
			},
		},
		{
			Name:    "open-account",
			Usage:   "open-account --client ID --type COURANT|EPARGNE",
			Summary: "Open an account for a client (admin)",
			Route:   nav.RouteAccounts,
			Flags: func() *pflag.FlagSet {
				fs := pflag.NewFlagSet("open-account", pflag.ContinueOnError)
				fs.Int64Var(&clientID, "client", 0, "client id")
				fs.StringVar(&accType, "type", string(banksdk.AccountCurrent), "COURANT or EPARGNE")
				return fs
			},
			Run: func(ctx context.Context, _ []string) error {
				if clientID <= 0 {
					return fmt.Errorf("%w: --client is required", ErrUsage)
				}
				a, err := app.accountService.Create(ctx, banksdk.AccountRequest{
					ClientID: clientID,
					Type:     banksdk.AccountType(strings.ToUpper(accType)),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(app.out, "Opened %s account %s.\n", a.Type, a.Number)
				return nil
			},
		},
		{
			Name:    "deactivate-account",
			Usage:   "deactivate-account <id>",
			Summary: "Deactivate an account (admin)",
			Route:   nav.RouteAccounts,
			Args:    1,
			Run: func(ctx context.Context, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				resp, err := app.accountService.Deactivate(ctx, id)
				if err != nil {
					return err
				}
				return app.ack(resp, "Account deactivated.")
			},
		},
		{
			Name:    "delete-account",
			Usage:   "delete-account <id>",
			Summary: "Delete an account (admin)",
			Route:   nav.RouteAccounts,
			Args:    1,
			Run: func(ctx context.Context, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				resp, err := app.accountService.Delete(ctx, id)
				if err != nil {
					return err
				}
				return app.ack(resp, "Account deleted.")
			},
		},
	}
}

// visibleAccounts returns a page of every account for an administrator and
// the user's own accounts otherwise.
func (app *Application) visibleAccounts(ctx context.Context, page, size int) ([]banksdk.Account, error) {
	if app.sessionService.IsAdmin(ctx) {
		p, err := app.accountService.List(ctx, page, size)
		if err != nil {
			return nil, err
		}
		return p.Content, nil
	}

	me, err := app.clientService.Me(ctx)
	if err != nil {
		return nil, err
	}
	return me.Accounts, nil
}

// ============================================================================
// Transactions
// ============================================================================

func (app *Application) transactionCommands() []*Command {
	var (
		description string
		from, to    string
		output      string
	)
	descFlags := func(name string) func() *pflag.FlagSet {
		return func() *pflag.FlagSet {
			fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
			fs.StringVarP(&description, "description", "d", "", "free text shown on the statement")
			return fs
		}
	}
	periodFlags := func(name string) *pflag.FlagSet {
		fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
		fs.StringVar(&from, "from", "", "first day, "+dateLayout)
		fs.StringVar(&to, "to", "", "last day, "+dateLayout)
		return fs
	}

	return []*Command{
		{
			Name:    "deposit",
			Usage:   "deposit <account> <amount> [-d TEXT]",
			Summary: "Deposit money into an account",
			Route:   nav.RouteTransactions,
			Flags:   descFlags("deposit"),
			Args:    2,
			Run: func(ctx context.Context, args []string) error {
				amount, err := parseAmount(args[1])
				if err != nil {
					return err
				}
				tx, err := app.transactionService.Deposit(ctx, args[0], amount, description)
				if err != nil {
					return err
				}
				app.printOperation("Deposited", tx, args[0])
				return nil
			},
		},
		{
			Name:    "withdraw",
			Usage:   "withdraw <account> <amount> [-d TEXT]",
			Summary: "Withdraw money from an account",
			Route:   nav.RouteTransactions,
			Flags:   descFlags("withdraw"),
			Args:    2,
			Run: func(ctx context.Context, args []string) error {
				amount, err := parseAmount(args[1])
				if err != nil {
					return err
				}
				tx, err := app.transactionService.Withdraw(ctx, args[0], amount, description)
				if err != nil {
					return err
				}
				app.printOperation("Withdrew", tx, args[0])
				return nil
			},
		},
		{
			Name:    "transfer",
			Usage:   "transfer <from> <to> <amount> [-d TEXT]",
			Summary: "Move money between two accounts",
			Route:   nav.RouteTransactions,
			Flags:   descFlags("transfer"),
			Args:    3,
			Run: func(ctx context.Context, args []string) error {
				amount, err := parseAmount(args[2])
				if err != nil {
					return err
				}
				// The destination may belong to someone else and be hidden
				// from this user. Only a definite answer stops the transfer.
				target, err := app.transactionService.LookupTarget(ctx, args[0], args[1])
				switch {
				case errors.Is(err, service.ErrTargetTooShort),
					errors.Is(err, service.ErrSameAccount),
					errors.Is(err, service.ErrTargetInactive):
					return fmt.Errorf("destination %s: %w", args[1], err)
				case err != nil:
					app.logger.Debug("destination lookup failed", "account", args[1], "error", err)
				case target.ClientName != "":
					fmt.Fprintf(app.out, "Destination: %s (%s)\n", target.Number, target.ClientName)
				}

				tx, err := app.transactionService.Transfer(ctx, banksdk.TransferRequest{
					Source:      args[0],
					Destination: args[1],
					Amount:      amount,
					Description: description,
				})
				if err != nil {
					return err
				}
				app.printOperation("Transferred", tx, args[0])
				return nil
			},
		},
		{
			Name:    "transactions",
			Usage:   "transactions [account] [--from DATE --to DATE]",
			Summary: "List operations, of one account or of everything you can see",
			Route:   nav.RouteTransactions,
			Flags:   func() *pflag.FlagSet { return periodFlags("transactions") },
			Run: func(ctx context.Context, args []string) error {
				number := ""
				if len(args) > 0 {
					number = args[0]
				}

				if from != "" || to != "" {
					if number == "" {
						return fmt.Errorf("%w: a period needs an account", ErrUsage)
					}
					start, end, err := parsePeriod(from, to)
					if err != nil {
						return err
					}
					txs, err := app.transactionService.History(ctx, number, start, end)
					if err != nil {
						return err
					}
					return printTransactions(app.out, txs)
				}

				return app.show(ctx, "transactions "+number, func() views.View {
					return views.NewTransactions(app.cache, number, app.loadTransactions)
				})
			},
		},
		{
			Name:    "statement",
			Usage:   "statement <account> --from DATE --to DATE [-o FILE]",
			Summary: "Download a PDF statement",
			Route:   nav.RouteTransactions,
			Flags: func() *pflag.FlagSet {
				fs := periodFlags("statement")
				fs.StringVarP(&output, "output", "o", "", "file to write, defaults to the server's file name")
				return fs
			},
			Args: 1,
			Run: func(ctx context.Context, args []string) error {
				start, end, err := parsePeriod(from, to)
				if err != nil {
					return err
				}

				var buf bytes.Buffer
				st, err := app.statementService.Download(ctx, args[0], start, end, &buf)
				if err != nil {
					return err
				}

				path := output
				if path == "" {
					path = st.Filename
				}
				if path == "" {
					path = fmt.Sprintf("releve_%s.pdf", args[0])
				}
				if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
					return fmt.Errorf("write statement: %w", err)
				}
				fmt.Fprintf(app.out, "Saved %s (%d bytes).\n", path, buf.Len())
				return nil
			},
		},
	}
}

func (app *Application) loadTransactions(ctx context.Context, number string) ([]banksdk.Transaction, error) {
	switch {
	case number != "":
		return app.transactionService.ForAccount(ctx, number)
	case app.sessionService.IsAdmin(ctx):
		return app.transactionService.All(ctx)
	default:
		return app.transactionService.Mine(ctx)
	}
}

func parsePeriod(from, to string) (time.Time, time.Time, error) {
	if from == "" || to == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: --from and --to are required", ErrUsage)
	}
	start, err := parseDate("from", from)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDate("to", to)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func (app *Application) printOperation(verb string, tx *banksdk.Transaction, number string) {
	fmt.Fprintf(app.out, "%s %s", verb, money(tx.Amount))
	if tx.DestinationAccount != "" {
		fmt.Fprintf(app.out, " from %s to %s", number, tx.DestinationAccount)
	} else {
		fmt.Fprintf(app.out, " on %s", number)
	}
	if tx.BalanceAfter != nil {
		fmt.Fprintf(app.out, ", balance %s", money(*tx.BalanceAfter))
	}
	fmt.Fprintln(app.out, ".")
}

func printAccount(w io.Writer, a *banksdk.Account) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Number\t%s\n", a.Number)
	fmt.Fprintf(tw, "Type\t%s\n", a.Type)
	fmt.Fprintf(tw, "Balance\t%s\n", money(a.Balance))
	fmt.Fprintf(tw, "Active\t%t\n", a.Active)
	if a.ClientName != "" {
		fmt.Fprintf(tw, "Owner\t%s\n", a.ClientName)
	}
	if a.CreatedAt != "" {
		fmt.Fprintf(tw, "Opened\t%s\n", a.CreatedAt)
	}
	if a.Overdraft != nil {
		fmt.Fprintf(tw, "Overdraft\t%s\n", money(*a.Overdraft))
	}
	if a.InterestRate != nil {
		fmt.Fprintf(tw, "Interest rate\t%.2f%%\n", *a.InterestRate)
	}
	_ = tw.Flush()
}

func printTransactions(w io.Writer, txs []banksdk.Transaction) error {
	if len(txs) == 0 {
		_, err := fmt.Fprintln(w, "No transactions.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTYPE\tAMOUNT\tACCOUNT\tTO\tDESCRIPTION")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			tx.Date, tx.Type, money(tx.Amount), tx.AccountNumber, tx.DestinationAccount, tx.Description)
	}
	return tw.Flush()
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

package app

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/aussiebroadwan/egabank/internal/egabank/nav"
	"github.com/aussiebroadwan/egabank/internal/egabank/views"
	"github.com/aussiebroadwan/egabank/pkg/banksdk"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/pflag"
)

// ============================================================================
// Clients
// ============================================================================

func (app *Application) clientCommands() []*Command {
	var (
		search     string
		page, size int
		details    bool
		req        banksdk.ClientRequest
		sex        string
		profile    banksdk.ProfileUpdateRequest
	)
	return []*Command{
		{
			Name:    "clients",
			Usage:   "clients [--search TEXT] [--page N] [--size N]",
			Summary: "List or search clients (admin)",
			Route:   nav.RouteClients,
			Flags: func() *pflag.FlagSet {
				fs := pflag.NewFlagSet("clients", pflag.ContinueOnError)
				fs.StringVarP(&search, "search", "s", "", "match on name or email")
				fs.IntVar(&page, "page", 0, "page number, from 0")
				fs.IntVar(&size, "size", 20, "page size")
				return fs
			},
			Run: func(ctx context.Context, _ []string) error {
				var (
					p   *banksdk.Page[banksdk.Client]
					err error
				)
				if q := strings.TrimSpace(search); q != "" {
					p, err = app.clientService.Search(ctx, q, page, size)
				} else {
					p, err = app.clientService.List(ctx, page, size)
				}
				if err != nil {
					return err
				}
				return app.printClients(p)
			},
		},
		{
			Name:    "client",
			Usage:   "client <id> [--details]",
			Summary: "Show one client, with accounts when --details is set",
			Route:   nav.RouteClients,
			Flags: func() *pflag.FlagSet {
				fs := pflag.NewFlagSet("client", pflag.ContinueOnError)
				fs.BoolVar(&details, "details", false, "include accounts")
				return fs
			},
			Args: 1,
			Run: func(ctx context.Context, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				var c *banksdk.Client
				if details {
					c, err = app.clientService.Details(ctx, id)
				} else {
					c, err = app.clientService.Get(ctx, id)
				}
				if err != nil {
					return err
				}
				return app.printClient(c)
			},
		},
		{
			Name:    "create-client",
			Usage:   "create-client --last-name X --first-name Y --birth-date DATE --sex MASCULIN|FEMININ [...]",
			Summary: "Register a client (admin)",
			Route:   nav.RouteClients,
			Flags: func() *pflag.FlagSet {
				req = banksdk.ClientRequest{}
				fs := pflag.NewFlagSet("create-client", pflag.ContinueOnError)
				fs.StringVar(&req.LastName, "last-name", "", "family name")
				fs.StringVar(&req.FirstName, "first-name", "", "given name")
				fs.StringVar(&req.BirthDate, "birth-date", "", "birth date, "+dateLayout)
				fs.StringVar(&sex, "sex", string(banksdk.SexMale), "MASCULIN or FEMININ")
				fs.StringVar(&req.Address, "address", "", "postal address")
				fs.StringVar(&req.Phone, "phone", "", "phone number")
				fs.StringVar(&req.Email, "email", "", "email address")
				fs.StringVar(&req.Nationality, "nationality", "", "nationality")
				return fs
			},
			Run: func(ctx context.Context, _ []string) error {
				req.Sex = banksdk.Sex(strings.ToUpper(sex))
				c, err := app.clientService.Create(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(app.out, "Created client %d (%s %s).\n", c.ID, c.FirstName, c.LastName)
				return nil
			},
		},
		{
			Name:    "delete-client",
			Usage:   "delete-client <id>",
			Summary: "Delete a client and their accounts (admin)",
			Route:   nav.RouteClients,
			Args:    1,
			Run: func(ctx context.Context, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				resp, err := app.clientService.Delete(ctx, id)
				if err != nil {
					return err
				}
				return app.ack(resp, "Client deleted.")
			},
		},
		{
			Name:    "profile",
			Usage:   "profile [--phone X] [--address Y]",
			Summary: "Show your client record, or update contact details",
			Flags: func() *pflag.FlagSet {
				profile = banksdk.ProfileUpdateRequest{}
				fs := pflag.NewFlagSet("profile", pflag.ContinueOnError)
				fs.StringVar(&profile.Phone, "phone", "", "new phone number")
				fs.StringVar(&profile.Address, "address", "", "new postal address")
				return fs
			},
			Run: func(ctx context.Context, _ []string) error {
				var (
					c   *banksdk.Client
					err error
				)
				if profile.Phone != "" || profile.Address != "" {
					c, err = app.clientService.UpdateProfile(ctx, profile)
				} else {
					c, err = app.clientService.Me(ctx)
				}
				if err != nil {
					return err
				}
				return app.printClient(c)
			},
		},
	}
}

func (app *Application) printClients(p *banksdk.Page[banksdk.Client]) error {
	if len(p.Content) == 0 {
		fmt.Fprintln(app.out, "No clients.")
		return nil
	}
	tw := tabwriter.NewWriter(app.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tPHONE\tACCOUNTS")
	for _, c := range p.Content {
		fmt.Fprintf(tw, "%d\t%s %s\t%s\t%s\t%d\n", c.ID, c.FirstName, c.LastName, c.Email, c.Phone, c.AccountCount)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(app.out, "Page %d of %d, %d clients.\n", p.PageNumber+1, max(p.TotalPages, 1), p.TotalElements)
	return nil
}

func (app *Application) printClient(c *banksdk.Client) error {
	tw := tabwriter.NewWriter(app.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%d\n", c.ID)
	fmt.Fprintf(tw, "Name\t%s %s\n", c.FirstName, c.LastName)
	for _, row := range [][2]string{
		{"Born", c.BirthDate},
		{"Sex", string(c.Sex)},
		{"Email", c.Email},
		{"Phone", c.Phone},
		{"Address", c.Address},
		{"Nationality", c.Nationality},
	} {
		if row[1] != "" {
			fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1])
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(c.Accounts) > 0 {
		fmt.Fprintln(app.out, "\nAccounts")
		tw = tabwriter.NewWriter(app.out, 0, 0, 2, ' ', 0)
		for _, a := range c.Accounts {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", a.Number, a.Type, money(a.Balance), a.Active)
		}
		return tw.Flush()
	}
	return nil
}

// ============================================================================
// Dashboard and users
// ============================================================================

func (app *Application) adminCommands() []*Command {
	return []*Command{
		{
			Name:    "dashboard",
			Usage:   "dashboard",
			Summary: "Totals and recent activity (admin)",
			Route:   nav.RouteDashboard,
			Run: func(ctx context.Context, _ []string) error {
				return app.show(ctx, "dashboard", func() views.View {
					return views.NewDashboard(app.cache, app.dashboardService.Load)
				})
			},
		},
		{
			Name:    "pending-users",
			Usage:   "pending-users",
			Summary: "Users waiting for activation (admin)",
			Run: func(ctx context.Context, _ []string) error {
				users, err := app.userService.Pending(ctx)
				if err != nil {
					return err
				}
				if len(users) == 0 {
					fmt.Fprintln(app.out, "No pending users.")
					return nil
				}
				tw := tabwriter.NewWriter(app.out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tREGISTERED")
				for _, u := range users {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, u.CreatedAt)
				}
				return tw.Flush()
			},
		},
		{
			Name:    "activate-user",
			Usage:   "activate-user <id>",
			Summary: "Let a registered user sign in (admin)",
			Args:    1,
			Run: func(ctx context.Context, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				resp, err := app.userService.Activate(ctx, id)
				if err != nil {
					return err
				}
				return app.ack(resp, "User activated.")
			},
		},
		{
			Name:    "deactivate-user",
			Usage:   "deactivate-user <id>",
			Summary: "Stop a user from signing in (admin)",
			Args:    1,
			Run: func(ctx context.Context, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				resp, err := app.userService.Deactivate(ctx, id)
				if err != nil {
					return err
				}
				return app.ack(resp, "User deactivated.")
			},
		},
	}
}

func (app *Application) ack(resp *banksdk.MessageResponse, fallback string) error {
	msg := fallback
	if resp != nil && resp.Message != "" {
		msg = resp.Message
	}
	_, err := fmt.Fprintln(app.out, msg)
	return err
}

func (app *Application) runMetrics(_ context.Context, _ []string) error {
	families, err := app.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(app.out, mf); err != nil {
			return err
		}
	}
	return nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/aussiebroadwan/egabank/internal/egabank/nav"
	"github.com/aussiebroadwan/egabank/pkg/banksdk"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

func (app *Application) buildCommands() []*Command {
	cmds := []*Command{
		app.loginCommand(),
		app.registerCommand(),
		{
			Name:    "logout",
			Usage:   "logout",
			Summary: "Sign out and forget the stored tokens",
			Run:     app.runLogout,
		},
		{
			Name:    "whoami",
			Usage:   "whoami",
			Summary: "Show the signed-in user",
			Run:     app.runWhoAmI,
		},
	}
	cmds = append(cmds, app.accountCommands()...)
	cmds = append(cmds, app.transactionCommands()...)
	cmds = append(cmds, app.clientCommands()...)
	cmds = append(cmds, app.adminCommands()...)
	cmds = append(cmds,
		&Command{
			Name:    "metrics",
			Usage:   "metrics",
			Summary: "Print client metrics in Prometheus text format",
			Run:     app.runMetrics,
		},
		&Command{
			Name:    "shell",
			Usage:   "shell",
			Summary: "Interactive session where screens follow your changes",
			Run:     func(ctx context.Context, _ []string) error { return app.runShell(ctx) },
		},
	)
	return cmds
}

// ============================================================================
// Session
// ============================================================================

func (app *Application) loginCommand() *Command {
	return &Command{
		Name:    "login",
		Usage:   "login [username]",
		Summary: "Sign in; the password is read from the terminal",
		Run: func(ctx context.Context, args []string) error {
			username := ""
			if len(args) > 0 {
				username = args[0]
			} else {
				var err error
				if username, err = app.prompt("Username: "); err != nil {
					return err
				}
			}
			password, err := app.readPassword("Password: ")
			if err != nil {
				return err
			}

			returnURL := app.router.ReturnURL()
			resp, err := app.sessionService.Login(ctx, username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.out, "Signed in as %s (%s).\n", resp.Username, resp.Role)

			if returnURL != "" {
				app.resume(returnURL)
			} else {
				app.router.Navigate(nav.RouteDashboard, nil)
			}
			return nil
		},
	}
}

// resume goes back to the screen an expired session interrupted.
func (app *Application) resume(returnURL string) {
	u, err := url.Parse(returnURL)
	if err != nil || !strings.HasPrefix(u.Path, "/") {
		app.router.Navigate(nav.RouteDashboard, nil)
		return
	}
	app.router.Navigate(u.Path, u.Query())
	fmt.Fprintf(app.out, "Back to %s.\n", returnURL)
}

func (app *Application) registerCommand() *Command {
	var username, email string
	return &Command{
		Name:    "register",
		Usage:   "register --username NAME --email EMAIL",
		Summary: "Create a user; an administrator must activate it",
		Route:   nav.RouteRegister,
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("register", pflag.ContinueOnError)
			fs.StringVarP(&username, "username", "u", "", "user name")
			fs.StringVarP(&email, "email", "e", "", "email address")
			return fs
		},
		Run: func(ctx context.Context, _ []string) error {
			if username == "" || email == "" {
				return fmt.Errorf("%w: --username and --email are required", ErrUsage)
			}
			password, err := app.readPassword("Password: ")
			if err != nil {
				return err
			}

			resp, err := app.sessionService.Register(ctx, banksdk.RegisterRequest{
				Username: username,
				Email:    email,
				Password: password,
			})
			if err != nil {
				return err
			}
			if resp.Pending {
				msg := resp.Message
				if msg == "" {
					msg = "Registration received, waiting for activation."
				}
				fmt.Fprintln(app.out, msg)
				app.router.Navigate(nav.RouteLogin, nil)
				return nil
			}
			fmt.Fprintf(app.out, "Registered and signed in as %s.\n", resp.Username)
			return nil
		},
	}
}

func (app *Application) runLogout(ctx context.Context, _ []string) error {
	if err := app.sessionService.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(app.out, "Signed out.")
	return nil
}

func (app *Application) runWhoAmI(ctx context.Context, _ []string) error {
	info, err := app.sessionService.WhoAmI(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(app.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "User\t%s\n", info.Username)
	fmt.Fprintf(tw, "Role\t%s\n", info.Role)
	if info.ExpiresAt > 0 {
		state := "valid"
		if !app.sessionService.IsAuthenticated(ctx) {
			state = "expired, renewed on next call"
		}
		fmt.Fprintf(tw, "Access token\t%s\n", state)
	}
	return tw.Flush()
}

// ============================================================================
// Prompts
// ============================================================================

func (app *Application) prompt(label string) (string, error) {
	fmt.Fprint(app.errOut, label)
	line, err := app.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readPassword reads without echo from a terminal and a plain line
// otherwise, so scripts can pipe the password in.
func (app *Application) readPassword(label string) (string, error) {
	f, ok := app.stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return app.prompt(label)
	}

	fmt.Fprint(app.errOut, label)
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(app.errOut)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aussiebroadwan/egabank/internal/egabank/service"
	"github.com/aussiebroadwan/egabank/internal/egabank/views"
)

// shellState holds the screens opened during a shell session. They stay
// subscribed to the cache until the shell exits, so a change made by one
// command re-renders every screen it affects.
type shellState struct {
	views map[string]views.View
	order []string
}

func (s *shellState) close() {
	for _, key := range s.order {
		s.views[key].Close()
	}
	s.views = map[string]views.View{}
	s.order = nil
}

// show renders the view registered under key, creating it when needed.
// Outside the shell the view is thrown away after one render.
func (app *Application) show(ctx context.Context, key string, mk func() views.View) error {
	if app.shell == nil {
		v := mk()
		defer v.Close()
		return v.Render(ctx, app.out)
	}

	v, ok := app.shell.views[key]
	if !ok {
		v = mk()
		app.shell.views[key] = v
		app.shell.order = append(app.shell.order, key)
	}
	return v.Render(ctx, app.out)
}

// refreshViews re-renders every open screen a command made stale.
func (app *Application) refreshViews(ctx context.Context) {
	if len(app.shell.order) == 0 {
		return
	}
	if !app.bank.HasRefreshToken(ctx) {
		app.shell.close()
		return
	}

	for _, key := range app.shell.order {
		v := app.shell.views[key]
		if !v.Stale() {
			continue
		}
		fmt.Fprintf(app.out, "\n== %s (updated) ==\n", v.Name())
		if err := v.Render(ctx, app.out); err != nil {
			fmt.Fprintf(app.errOut, "error: %v\n", err)
		}
	}
}

func (app *Application) runShell(ctx context.Context) error {
	if app.shell != nil {
		return errors.New("already in a shell")
	}
	app.shell = &shellState{views: map[string]views.View{}}
	defer func() {
		app.shell.close()
		app.shell = nil
	}()

	housekeeping := service.NewHousekeepingService(
		app.bank,
		app.cache,
		app.accountService,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	housekeeping.Start()
	defer housekeeping.Stop()

	fmt.Fprintln(app.out, "EGA Bank shell. Type help for commands, exit to quit.")
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		fmt.Fprint(app.out, "egabank> ")
		line, err := app.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read command: %w", err)
		}
		atEOF := err != nil

		args, perr := splitArgs(line)
		switch {
		case perr != nil:
			fmt.Fprintf(app.errOut, "error: %v\n", perr)
		case len(args) == 0:
		case args[0] == "exit" || args[0] == "quit":
			return nil
		default:
			if err := app.execute(ctx, args); err != nil {
				fmt.Fprintf(app.errOut, "error: %v\n", strings.TrimPrefix(err.Error(), ErrUsage.Error()+": "))
			}
			app.refreshViews(ctx)
		}

		if atEOF {
			fmt.Fprintln(app.out)
			return nil
		}
	}
}

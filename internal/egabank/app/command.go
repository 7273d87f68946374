package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"
)

// ErrUsage is returned for a malformed command line. The help text has
// already been printed.
var ErrUsage = errors.New("usage error")

const dateLayout = "2006-01-02"

// Command is one CLI verb.
type Command struct {
	Name    string
	Usage   string
	Summary string

	// Route is the screen the command shows. The router moves there before
	// Run so an expired session can return to it.
	Route string

	// Flags returns a fresh flag set bound to the variables Run reads.
	// Nil means the command takes no flags.
	Flags func() *pflag.FlagSet

	// Args is the number of positional arguments required. Optional ones
	// are checked by Run.
	Args int

	Run func(ctx context.Context, args []string) error
}

func (app *Application) lookup(name string) *Command {
	for _, c := range app.commands {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (app *Application) execute(ctx context.Context, args []string) error {
	name := args[0]
	if isHelp(name) {
		app.printHelp(app.out)
		return nil
	}

	cmd := app.lookup(name)
	if cmd == nil {
		return fmt.Errorf("%w: unknown command %q, run 'egabank help'", ErrUsage, name)
	}

	rest := args[1:]
	if cmd.Flags != nil {
		fs := cmd.Flags()
		fs.SetOutput(io.Discard)
		if err := fs.Parse(rest); err != nil {
			if errors.Is(err, pflag.ErrHelp) {
				app.printUsage(app.out, cmd, fs)
				return nil
			}
			return fmt.Errorf("%w: %s: %v", ErrUsage, name, err)
		}
		rest = fs.Args()
	} else if len(rest) > 0 && isHelp(rest[0]) {
		app.printUsage(app.out, cmd, nil)
		return nil
	}

	if len(rest) < cmd.Args {
		return fmt.Errorf("%w: usage: egabank %s", ErrUsage, cmd.Usage)
	}

	if cmd.Route != "" && app.router.Path() != cmd.Route {
		app.router.Navigate(cmd.Route, nil)
	}

	app.logger.Debug("running command", "command", name)
	return cmd.Run(ctx, rest)
}

func (app *Application) printHelp(w io.Writer) {
	fmt.Fprintln(w, "Usage: egabank [global flags] <command> [args]")
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range app.commands {
		fmt.Fprintf(tw, "  %s\t%s\n", c.Name, c.Summary)
	}
	_ = tw.Flush()
}

func (app *Application) printUsage(w io.Writer, c *Command, fs *pflag.FlagSet) {
	fmt.Fprintf(w, "Usage: egabank %s\n\n%s\n", c.Usage, c.Summary)
	if fs != nil && fs.HasFlags() {
		fmt.Fprintf(w, "\nFlags:\n%s", fs.FlagUsages())
	}
}

func isHelp(arg string) bool {
	return arg == "help" || arg == "-h" || arg == "--help"
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", ErrUsage, arg)
	}
	return id, nil
}

func parseAmount(arg string) (float64, error) {
	amount, err := strconv.ParseFloat(strings.ReplaceAll(arg, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid amount %q", ErrUsage, arg)
	}
	return amount, nil
}

func parseDate(name, value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: --%s must look like %s", ErrUsage, name, dateLayout)
	}
	return t, nil
}

// splitArgs splits a shell line on spaces. Double quotes group words.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case !quoted && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			if started {
				args = append(args, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if quoted {
		return nil, fmt.Errorf("%w: unterminated quote", ErrUsage)
	}
	if started {
		args = append(args, cur.String())
	}
	return args, nil
}

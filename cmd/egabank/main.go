package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aussiebroadwan/egabank/internal/egabank/app"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "egabank: %v\n", err)
		if errors.Is(err, app.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}

	fs := pflag.NewFlagSet("egabank", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	cfg.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %v", app.ErrUsage, err)
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialise application: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := application.Run(ctx, fs.Args())
	if err := application.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

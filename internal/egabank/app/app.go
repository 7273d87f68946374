package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/aussiebroadwan/egabank/internal/egabank/appstore"
	"github.com/aussiebroadwan/egabank/internal/egabank/nav"
	"github.com/aussiebroadwan/egabank/internal/egabank/service"
	"github.com/aussiebroadwan/egabank/internal/egabank/store"
	"github.com/aussiebroadwan/egabank/internal/egabank/store/drivers/memory"
	"github.com/aussiebroadwan/egabank/internal/egabank/store/drivers/sqlite"
	"github.com/aussiebroadwan/egabank/pkg/banksdk"
	"github.com/aussiebroadwan/egabank/pkg/cryptox"
	"github.com/aussiebroadwan/egabank/pkg/httpx"
	"github.com/aussiebroadwan/egabank/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	sealerInfo = "egabank credentials"
)

// Application wires the bank client together for one CLI invocation or
// shell session.
type Application struct {
	cfg    Config
	logger *slog.Logger

	stdin  io.Reader
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	// Core dependencies
	db       store.Store
	registry *prometheus.Registry
	router   *nav.Router
	bank     *banksdk.SDKClient
	cache    *appstore.Store

	// Services
	sessionService     *service.SessionService
	accountService     *service.AccountService
	clientService      *service.ClientService
	transactionService *service.TransactionService
	dashboardService   *service.DashboardService
	statementService   *service.StatementService
	userService        *service.UserService

	commands []*Command

	// Set while the shell runs.
	shell *shellState
}

// Option customises an Application.
type Option func(*Application)

// WithIO replaces stdin, stdout and stderr.
func WithIO(in io.Reader, out, errOut io.Writer) Option {
	return func(a *Application) {
		a.stdin = in
		a.out = out
		a.errOut = errOut
	}
}

// WithLogger replaces the logger built from the config.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Application) { a.logger = logger }
}

// New creates an Application with all dependencies initialised.
func New(cfg Config, opts ...Option) (*Application, error) {
	app := &Application{
		cfg:    cfg,
		stdin:  os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
	for _, opt := range opts {
		opt(app)
	}
	app.in = bufio.NewReader(app.stdin)

	if app.logger == nil {
		app.logger = slogx.New(slogx.Config{
			Service: "egabank",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  logFormat(cfg.LogFormat, app.errOut),
			Output:  app.errOut,
		})
	}

	if err := app.initStore(); err != nil {
		return nil, err
	}

	app.initClient()
	app.initServices()
	app.commands = app.buildCommands()

	return app, nil
}

// Shutdown stops background work and closes the credential store.
func (app *Application) Shutdown() error {
	if app.shell != nil {
		app.shell.close()
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing credential store", "error", err)
		return err
	}
	return nil
}

// Registry exposes the metrics registry.
func (app *Application) Registry() *prometheus.Registry {
	return app.registry
}

// Router exposes the navigation state.
func (app *Application) Router() *nav.Router {
	return app.router
}

// initStore opens the credential store. Ephemeral mode keeps the pair in
// memory; otherwise values are sealed into the sqlite file with a key from
// the passphrase or the key file.
func (app *Application) initStore() error {
	if app.cfg.Ephemeral {
		app.db = memory.NewStore()
		return nil
	}

	secret := []byte(app.cfg.Passphrase)
	if len(secret) == 0 {
		material, err := cryptox.LoadOrCreateKeyFile(app.cfg.KeyFile)
		if err != nil {
			return fmt.Errorf("failed to load key file: %w", err)
		}
		secret = material
	}

	sealer, err := cryptox.NewSealer(secret, sealerInfo)
	if err != nil {
		return fmt.Errorf("failed to initialise sealer: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn, sealer)
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.db = db
	app.logger.Debug("credential store ready", "file", app.cfg.DatabaseFile)
	return nil
}

// initClient builds the SDK client. Requests leave through the refresh
// coordinator, then the logging transport, then the rate limiter.
func (app *Application) initClient() {
	app.registry = prometheus.NewRegistry()
	app.router = nav.New(nav.RouteDashboard)
	app.cache = appstore.New(appstore.WithMetrics(appstore.NewMetrics(app.registry)))

	base := httpx.Chain(http.DefaultTransport,
		func(next http.RoundTripper) http.RoundTripper { return slogx.NewTransport(next, app.logger) },
		httpx.RateLimit(httpx.RateLimitConfig{
			RequestsPerWindow: app.cfg.RateLimitRPS,
			Window:            time.Second,
			Burst:             app.cfg.RateLimitBurst,
		}, httpx.HostKeyExtractor),
	)

	app.bank = banksdk.New(banksdk.Config{
		BaseURL:     app.cfg.APIURL,
		Credentials: store.NewCredentialsAdapter(app.db),
		Navigator:   app.router,
		OnLogout:    func(ctx context.Context) { app.sessionService.ExpiredLogout(ctx) },
		Proactive:   app.cfg.ProactiveRefresh,
		Timeout:     app.cfg.HTTPTimeout,
		Base:        base,
		Metrics:     banksdk.NewMetrics(app.registry),
		Logger:      app.logger,
	})

	app.router.OnNavigate(func(route string, q url.Values) {
		if route == nav.RouteLogin && q.Get("expired") == "true" {
			fmt.Fprintln(app.errOut, "Session expired, please log in again.")
		}
	})
}

// initServices initialises all business logic services
func (app *Application) initServices() {
	app.sessionService = &service.SessionService{
		Bank:      app.bank,
		Cache:     app.cache,
		Navigator: app.router,
	}
	app.accountService = &service.AccountService{Bank: app.bank, Cache: app.cache}
	app.clientService = service.NewClientService(app.bank, app.cache)
	app.transactionService = &service.TransactionService{Bank: app.bank, Cache: app.cache}
	app.dashboardService = &service.DashboardService{
		Bank:    app.bank,
		Timeout: app.cfg.DashboardTimeout,
	}
	app.statementService = &service.StatementService{Bank: app.bank}
	app.userService = &service.UserService{Bank: app.bank}
}

// Run executes one command line.
func (app *Application) Run(ctx context.Context, args []string) error {
	ctx = slogx.WithContext(ctx, app.logger)

	if len(args) == 0 {
		app.printHelp(app.errOut)
		return ErrUsage
	}
	return app.execute(ctx, args)
}

// logFormat picks text for a human at a terminal and JSON otherwise.
func logFormat(configured string, w io.Writer) string {
	if configured != "" {
		return configured
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "text"
	}
	return "json"
}

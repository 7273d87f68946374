package banksdk

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a single API call, replay included.
const DefaultTimeout = 30 * time.Second

// Config configures an SDKClient.
type Config struct {
	// BaseURL includes the /api prefix, e.g. http://localhost:8080/api.
	BaseURL string

	// Credentials holds the credential pair. Defaults to MemoryCredentials.
	Credentials CredentialStore

	// Navigator and OnLogout are told about terminal logouts.
	Navigator Navigator
	OnLogout  func(ctx context.Context)

	// Proactive refreshes an access token that is about to expire before
	// sending, instead of waiting for the server to reject it.
	Proactive bool

	Timeout time.Duration

	// Base is the transport below the refresh coordinator. Logging and
	// rate limiting are installed here. Defaults to http.DefaultTransport.
	Base http.RoundTripper

	Metrics *Metrics
	Logger  *slog.Logger
}

// SDKClient is a client for the EGA bank REST API. Every call except the
// auth endpoints carries the stored access token and survives its expiry
// through the RefreshTransport.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	credentials CredentialStore
	transport   *RefreshTransport
}

// New creates a client from cfg.
func New(cfg Config) *SDKClient {
	if cfg.Credentials == nil {
		cfg.Credentials = &MemoryCredentials{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &SDKClient{
		BaseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		credentials: cfg.Credentials,
	}
	c.transport = &RefreshTransport{
		Base:        cfg.Base,
		Credentials: cfg.Credentials,
		Refresh:     c.Refresh,
		Navigator:   cfg.Navigator,
		OnLogout:    cfg.OnLogout,
		Proactive:   cfg.Proactive,
		Metrics:     cfg.Metrics,
		Logger:      cfg.Logger,
	}
	c.HTTPClient = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: c.transport,
	}
	return c
}

// Transport returns the refresh coordinator installed on HTTPClient.
func (c *SDKClient) Transport() *RefreshTransport {
	return c.transport
}

// Credentials returns the store holding the credential pair.
func (c *SDKClient) Credentials() CredentialStore {
	return c.credentials
}

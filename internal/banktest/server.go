// Package banktest runs an in-process EGA bank backend for tests.
//
// The server speaks the same REST dialect as the real backend (base path
// /api, French field names, Spring style error bodies) and issues HS256
// tokens, so the SDK, its refresh coordinator and everything built on top
// can be exercised end to end without a network dependency.
package banktest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/egabank/pkg/banksdk"
	"github.com/aussiebroadwan/egabank/pkg/httpx"
	"github.com/aussiebroadwan/egabank/pkg/jwtx"
)

// Seeded administrator, as created on first start of the real backend.
const (
	AdminUsername = "admin"
	AdminPassword = "Admin123!"
	AdminEmail    = "admin@egabank.com"
)

// Option configures a Server.
type Option func(*Server)

// WithAccessTTL sets the lifetime of issued access tokens.
func WithAccessTTL(d time.Duration) Option {
	return func(s *Server) { s.accessTTL = d }
}

// WithClock replaces the server clock used for issuing and verifying tokens.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithoutBalances makes transactions come back without post-operation
// balances, as the reference backend does.
func WithoutBalances() Option {
	return func(s *Server) { s.omitBalances = true }
}

// WithoutDestinationBalance drops only the destination post-balance of
// transfers.
func WithoutDestinationBalance() Option {
	return func(s *Server) { s.omitDestination = true }
}

type user struct {
	id       int64
	username string
	password string
	email    string
	role     string
	active   bool
	clientID int64
	created  time.Time
}

type fault struct {
	delay  time.Duration
	status int
}

// Server is a fake EGA bank backend on an httptest.Server.
type Server struct {
	srv       *httptest.Server
	signer    *jwtx.HS256
	refresh   *jwtx.HS256
	now       func() time.Time
	accessTTL time.Duration

	mu              sync.Mutex
	nextID          int64
	users           []*user
	clients         map[int64]*banksdk.Client
	clientOrder     []int64
	accounts        map[string]*banksdk.Account
	accountOrder    []string
	transactions    []banksdk.Transaction
	liveAccess      map[string]bool
	liveRefresh     map[string]string
	faults          map[string]fault
	hits            map[string]int
	omitBalances    bool
	omitDestination bool

	refreshes atomic.Int64
}

// New starts a server seeded with the administrator account. It is closed
// when the test ends.
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()

	s := &Server{
		signer:      jwtx.NewHS256([]byte("banktest-secret")),
		now:         time.Now,
		accessTTL:   jwtx.DefaultAccessTokenTTL,
		clients:     map[int64]*banksdk.Client{},
		accounts:    map[string]*banksdk.Account{},
		liveAccess:  map[string]bool{},
		liveRefresh: map[string]string{},
		faults:      map[string]fault{},
		hits:        map[string]int{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.signer.Now = s.now
	s.refresh = s.signer.WithUse(jwtx.UseRefresh)

	admin := s.AddClient(banksdk.ClientRequest{LastName: "Administrateur", FirstName: "Système", Email: AdminEmail})
	s.AddUser(AdminUsername, AdminPassword, banksdk.RoleAdmin, admin.ID)

	s.srv = httptest.NewServer(s.inject(s.routes()))
	t.Cleanup(s.srv.Close)
	return s
}

// BaseURL is the API root, /api included.
func (s *Server) BaseURL() string {
	return s.srv.URL + "/api"
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/refresh", s.handleRefresh)

	mux.Handle("GET /api/accounts", s.admin(s.handleListAccounts))
	mux.Handle("POST /api/accounts", s.admin(s.handleCreateAccount))
	mux.Handle("GET /api/accounts/{numero}", s.authed(s.handleGetAccount))
	mux.Handle("GET /api/accounts/client/{id}", s.authed(s.handleAccountsForClient))
	mux.Handle("DELETE /api/accounts/{id}", s.admin(s.handleDeleteAccount))
	mux.Handle("PUT /api/accounts/{id}/deactivate", s.admin(s.handleDeactivateAccount))

	mux.Handle("GET /api/clients", s.admin(s.handleListClients))
	mux.Handle("GET /api/clients/search", s.admin(s.handleSearchClients))
	mux.Handle("GET /api/clients/me", s.authed(s.handleMe))
	mux.Handle("PUT /api/clients/me", s.authed(s.handleUpdateMe))
	mux.Handle("GET /api/clients/{id}", s.authed(s.handleGetClient))
	mux.Handle("GET /api/clients/{id}/details", s.authed(s.handleClientDetails))
	mux.Handle("POST /api/clients", s.admin(s.handleCreateClient))
	mux.Handle("PUT /api/clients/{id}", s.admin(s.handleUpdateClient))
	mux.Handle("DELETE /api/clients/{id}", s.admin(s.handleDeleteClient))

	mux.Handle("POST /api/transactions/{numero}/deposit", s.authed(s.handleDeposit))
	mux.Handle("POST /api/transactions/{numero}/withdraw", s.authed(s.handleWithdraw))
	mux.Handle("POST /api/transactions/transfer", s.authed(s.handleTransfer))
	mux.Handle("GET /api/transactions", s.admin(s.handleAllTransactions))
	mux.Handle("GET /api/transactions/me", s.authed(s.handleMyTransactions))
	mux.Handle("GET /api/transactions/{numero}", s.authed(s.handleAccountTransactions))
	mux.Handle("GET /api/transactions/{numero}/history", s.authed(s.handleHistory))

	mux.Handle("GET /api/dashboard/stats", s.admin(s.handleStats))
	mux.Handle("GET /api/statements/{numero}", s.authed(s.handleStatement))

	mux.Handle("GET /api/users/pending", s.admin(s.handlePendingUsers))
	mux.Handle("PUT /api/users/{id}/activate", s.admin(s.handleActivateUser))
	mux.Handle("PUT /api/users/{id}/deactivate", s.admin(s.handleDeactivateUser))

	return mux
}

func (s *Server) authed(fn http.HandlerFunc) http.Handler {
	return httpx.AuthnMiddleware(accessVerifier{s})(fn)
}

func (s *Server) admin(fn http.HandlerFunc) http.Handler {
	return s.authed(httpx.RequireRole(banksdk.RoleAdmin)(fn).ServeHTTP)
}

// inject counts hits and applies the faults registered with Delay and Fail.
func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api")

		s.mu.Lock()
		s.hits[path]++
		f := s.faults[path]
		s.mu.Unlock()

		if f.delay > 0 {
			select {
			case <-time.After(f.delay):
			case <-r.Context().Done():
				return
			}
		}
		if f.status != 0 {
			httpx.WriteError(w, r, f.status, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ============================================================================
// Test controls
// ============================================================================

// Delay holds every request to path (relative to /api) for d.
func (s *Server) Delay(path string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.faults[path]
	f.delay = d
	s.faults[path] = f
}

// Fail answers every request to path (relative to /api) with status.
// A zero status clears the failure.
func (s *Server) Fail(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.faults[path]
	f.status = status
	s.faults[path] = f
}

// Hits returns how many requests reached path (relative to /api).
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// Refreshes returns how many refresh calls the server answered.
func (s *Server) Refreshes() int {
	return int(s.refreshes.Load())
}

// ExpireAccessTokens invalidates every access token issued so far. The next
// request with one of them is answered 401.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.liveAccess)
}

// RevokeRefreshTokens invalidates every refresh token issued so far.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.liveRefresh)
}

// accessVerifier accepts signed access tokens that have not been expired
// with ExpireAccessTokens.
type accessVerifier struct{ s *Server }

func (v accessVerifier) Verify(token string) (jwtx.Claims, error) {
	claims, err := v.s.signer.WithUse(jwtx.UseAccess).Verify(token)
	if err != nil {
		return jwtx.Claims{}, err
	}
	v.s.mu.Lock()
	live := v.s.liveAccess[claims.ID]
	v.s.mu.Unlock()
	if !live {
		return jwtx.Claims{}, jwtx.ErrExpired
	}
	return claims, nil
}

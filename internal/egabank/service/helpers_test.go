package service_test

import (
	"context"
	"net/url"
	"sync"
	"testing"

	"github.com/aussiebroadwan/egabank/internal/banktest"
	"github.com/aussiebroadwan/egabank/internal/egabank/appstore"
	"github.com/aussiebroadwan/egabank/pkg/banksdk"
	"github.com/stretchr/testify/require"
)

type env struct {
	bank   *banktest.Server
	client *banksdk.SDKClient
	cache  *appstore.Store
	nav    *navigator
	events *recorder
}

func newEnv(t *testing.T, opts ...banktest.Option) *env {
	t.Helper()

	e := &env{
		bank:   banktest.New(t, opts...),
		cache:  appstore.New(),
		nav:    &navigator{route: "/dashboard"},
		events: &recorder{},
	}
	e.client = banksdk.New(banksdk.Config{
		BaseURL:   e.bank.BaseURL(),
		Navigator: e.nav,
	})
	e.cache.Subscribe(e.events.handle)
	return e
}

func (e *env) login(t *testing.T, username, password string) {
	t.Helper()
	_, err := e.client.Login(context.Background(), username, password)
	require.NoError(t, err)
}

func (e *env) loginAdmin(t *testing.T) {
	t.Helper()
	e.login(t, banktest.AdminUsername, banktest.AdminPassword)
}

type recorder struct {
	mu     sync.Mutex
	events []appstore.Event
}

func (r *recorder) handle(ev appstore.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []appstore.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]appstore.Event(nil), r.events...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type navigator struct {
	mu    sync.Mutex
	route string
	query url.Values
}

func (n *navigator) CurrentRoute() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.route
}

func (n *navigator) Navigate(route string, query url.Values) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.route = route
	n.query = query
}

func (n *navigator) current() (string, url.Values) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.route, n.query
}

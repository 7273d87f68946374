// Package nav tracks which screen the user is on.
package nav

import (
	"net/url"
	"slices"
	"sync"

	"github.com/aussiebroadwan/egabank/pkg/banksdk"
)

// Screens of the client.
const (
	RouteLogin        = banksdk.RouteLogin
	RouteRegister     = banksdk.RouteRegister
	RouteDashboard    = "/dashboard"
	RouteAccounts     = "/accounts"
	RouteTransactions = "/transactions"
	RouteClients      = "/clients"
)

// Listener is told about every navigation.
type Listener func(route string, query url.Values)

// Router holds the current route and implements banksdk.Navigator.
type Router struct {
	mu        sync.Mutex
	route     string
	query     url.Values
	history   []string
	listeners []*listener
}

type listener struct{ fn Listener }

// New returns a router positioned on initial.
func New(initial string) *Router {
	return &Router{route: initial, history: []string{initial}}
}

// CurrentRoute returns the route with its query string, the form used as
// a returnUrl.
func (r *Router) CurrentRoute() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return join(r.route, r.query)
}

// Path returns the current route without its query.
func (r *Router) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.route
}

// Query returns a copy of the current query.
func (r *Router) Query() url.Values {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneValues(r.query)
}

// Navigate moves to route and notifies listeners in registration order.
func (r *Router) Navigate(route string, query url.Values) {
	r.mu.Lock()
	r.route = route
	r.query = cloneValues(query)
	r.history = append(r.history, join(route, query))
	listeners := slices.Clone(r.listeners)
	r.mu.Unlock()

	for _, l := range listeners {
		l.fn(route, cloneValues(query))
	}
}

// OnNavigate registers fn and returns a function that removes it.
func (r *Router) OnNavigate(fn Listener) (cancel func()) {
	l := &listener{fn: fn}
	r.mu.Lock()
	r.listeners = append(r.listeners, l)
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.listeners = slices.DeleteFunc(r.listeners, func(x *listener) bool { return x == l })
	}
}

// History returns every route visited, oldest first.
func (r *Router) History() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.history)
}

// SessionExpired reports whether the user was sent to the login screen
// because the session could not be renewed.
func (r *Router) SessionExpired() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.route == RouteLogin && r.query.Get("expired") == "true"
}

// ReturnURL is where to go after signing in again, or "" when unknown.
func (r *Router) ReturnURL() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.query.Get("returnUrl")
}

func join(route string, query url.Values) string {
	if len(query) == 0 {
		return route
	}
	return route + "?" + query.Encode()
}

func cloneValues(v url.Values) url.Values {
	if v == nil {
		return nil
	}
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = slices.Clone(vals)
	}
	return out
}

package httpx

import "net/http"

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// TransportMiddleware decorates a RoundTripper.
type TransportMiddleware func(http.RoundTripper) http.RoundTripper

// Middleware decorates a server handler.
type Middleware func(http.Handler) http.Handler

// Chain wraps base with mws. The first middleware is the outermost, so
// Chain(base, a, b) sends requests through a, then b, then base.
func Chain(base http.RoundTripper, mws ...TransportMiddleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}
	return base
}

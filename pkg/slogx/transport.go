package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/egabank/pkg/idx"
)

// RequestIDHeader carries the correlation ID of an outgoing request.
const RequestIDHeader = "X-Request-ID"

// Transport logs every outgoing request and tags it with a request ID.
// The logger placed on the request context downstream carries the req_id.
type Transport struct {
	Base   http.RoundTripper
	Logger *slog.Logger
}

// NewTransport wraps base. A nil base means http.DefaultTransport.
func NewTransport(base http.RoundTripper, logger *slog.Logger) *Transport {
	return &Transport{Base: base, Logger: logger}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	logger := t.Logger
	if logger == nil {
		logger = FromContext(req.Context())
	}

	reqID := req.Header.Get(RequestIDHeader)
	if reqID == "" {
		reqID = idx.New().String()
	}

	logger = logger.With(
		"req_id", reqID,
		"method", req.Method,
		"path", req.URL.Path,
	)

	out := req.Clone(WithContext(req.Context(), logger))
	out.Header.Set(RequestIDHeader, reqID)

	start := time.Now()
	resp, err := base.RoundTrip(out)
	duration := time.Since(start).Milliseconds()

	if err != nil {
		logger.Warn("http_client_request", "error", err, "duration_ms", duration)
		return nil, err
	}

	logger.Debug("http_client_request",
		"status", resp.StatusCode,
		"duration_ms", duration,
	)
	return resp, nil
}

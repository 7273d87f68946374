package banksdk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/egabank/pkg/cryptox"
	"github.com/aussiebroadwan/egabank/pkg/jwtx"
	"github.com/aussiebroadwan/egabank/pkg/slogx"
)

// State of the refresh coordinator.
type State int

const (
	// StateIdle means no refresh is in flight.
	StateIdle State = iota
	// StateRefreshing means one refresh call is in flight and later
	// rejections wait for its outcome instead of starting another.
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRefreshing:
		return "refreshing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// RefreshFunc exchanges a refresh token for a new credential pair.
type RefreshFunc func(ctx context.Context, refreshToken string) (*AuthResponse, error)

// DefaultRefreshTimeout bounds the shared refresh call.
const DefaultRefreshTimeout = 10 * time.Second

// RefreshTransport attaches the stored access token to every request and
// recovers from 401 responses by refreshing the credential once and
// replaying the request.
//
// Concurrent rejections are coalesced: the first one starts the refresh and
// every other request that is rejected while it runs waits for its outcome,
// so one expiry costs exactly one refresh call. When the refresh cannot
// succeed the credential pair is cleared, the user is sent to the login
// screen and every caller involved gets an error wrapping ErrSessionExpired.
//
// Requests to the auth endpoints pass through untouched.
type RefreshTransport struct {
	Base        http.RoundTripper
	Credentials CredentialStore
	Refresh     RefreshFunc

	// Navigator receives the redirect to the login screen. Optional.
	Navigator Navigator

	// OnLogout runs after a terminal refresh failure cleared the credentials.
	OnLogout func(ctx context.Context)

	// Proactive refreshes before sending when the stored access token is
	// already inside the expiry grace window.
	Proactive bool

	// Grace defaults to jwtx.ExpiryGrace.
	Grace time.Duration

	// RefreshTimeout defaults to DefaultRefreshTimeout.
	RefreshTimeout time.Duration

	Metrics *Metrics
	Logger  *slog.Logger
	Now     func() time.Time

	mu         sync.Mutex
	refreshing bool
	signal     *tokenSignal
	waiters    atomic.Int64
}

// State returns whether a refresh is currently in flight.
func (t *RefreshTransport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.refreshing {
		return StateRefreshing
	}
	return StateIdle
}

// Waiting returns how many requests are parked on the in-flight refresh.
func (t *RefreshTransport) Waiting() int {
	return int(t.waiters.Load())
}

func (t *RefreshTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if IsAuthEndpoint(req.URL.Path) {
		return t.base().RoundTrip(req)
	}

	ctx := req.Context()
	logger := t.logger(ctx)

	getBody, err := replayableBody(req)
	if err != nil {
		return nil, err
	}

	token, err := t.Credentials.Get(ctx, KeyAccessToken)
	if err != nil {
		return nil, fmt.Errorf("banksdk: read access token: %w", err)
	}

	if t.Proactive && token != "" && jwtx.Expired(token, t.now(), t.grace()) {
		logger.Debug("access token inside expiry window, refreshing before send",
			"token_fp", cryptox.Fingerprint(token),
		)
		token, _, err = t.recover(ctx, token)
		if err != nil {
			return nil, err
		}
	}

	resp, err := t.send(req, getBody, token)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	drain(resp)

	logger.Debug("request rejected, recovering credential", "path", req.URL.Path)
	fresh, reason, err := t.recover(ctx, token)
	if err != nil {
		return nil, err
	}

	t.Metrics.replay(reason)
	return t.send(req, getBody, fresh)
}

// recover returns a credential to replay with after token was rejected.
func (t *RefreshTransport) recover(ctx context.Context, used string) (string, string, error) {
	t.mu.Lock()
	if t.refreshing {
		sig := t.signal
		t.mu.Unlock()
		return t.await(ctx, sig)
	}

	// Another request already replaced the credential this one was sent
	// with. Replay with the stored one instead of refreshing again.
	current, err := t.Credentials.Get(ctx, KeyAccessToken)
	if err == nil && current != "" && current != used {
		t.mu.Unlock()
		return current, ReplayStale, nil
	}

	// The session this request belonged to has already ended. A late
	// rejection must not log out a second time.
	if err == nil && current == "" && used != "" {
		if rt, rerr := t.Credentials.Get(ctx, KeyRefreshToken); rerr == nil && rt == "" {
			t.mu.Unlock()
			return "", "", &SessionExpiredError{Cause: ErrNoRefreshToken}
		}
	}

	sig := newTokenSignal()
	t.signal = sig
	t.refreshing = true
	t.mu.Unlock()

	token, err := t.refresh(ctx)

	t.mu.Lock()
	t.refreshing = false
	t.mu.Unlock()
	sig.resolve(token, err)

	if err != nil {
		return "", "", err
	}
	return token, ReplayRefreshed, nil
}

func (t *RefreshTransport) await(ctx context.Context, sig *tokenSignal) (string, string, error) {
	t.waiters.Add(1)
	t.Metrics.waiterAdd(1)
	defer func() {
		t.waiters.Add(-1)
		t.Metrics.waiterAdd(-1)
	}()

	token, err := sig.wait(ctx)
	if err != nil {
		return "", "", err
	}
	return token, ReplayWaited, nil
}

// refresh performs the single refresh call and persists its result.
func (t *RefreshTransport) refresh(ctx context.Context) (string, error) {
	// Waiters share this call, so it must outlive the request that started it.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.refreshTimeout())
	defer cancel()

	refreshToken, err := t.Credentials.Get(ctx, KeyRefreshToken)
	if err != nil {
		return "", t.expire(ctx, OutcomeFailed, fmt.Errorf("read refresh token: %w", err))
	}
	if refreshToken == "" {
		return "", t.expire(ctx, OutcomeNoRefreshToken, ErrNoRefreshToken)
	}

	resp, err := t.Refresh(ctx, refreshToken)
	if err != nil {
		return "", t.expire(ctx, OutcomeFailed, err)
	}
	if resp == nil || resp.AccessToken == "" {
		return "", t.expire(ctx, OutcomeRejected, ErrRefreshRejected)
	}

	if err := t.Credentials.Set(ctx, KeyAccessToken, resp.AccessToken); err != nil {
		return "", t.expire(ctx, OutcomeFailed, fmt.Errorf("store access token: %w", err))
	}
	if resp.RefreshToken != "" {
		if err := t.Credentials.Set(ctx, KeyRefreshToken, resp.RefreshToken); err != nil {
			return "", t.expire(ctx, OutcomeFailed, fmt.Errorf("store refresh token: %w", err))
		}
	}

	t.Metrics.refresh(OutcomeSuccess)
	t.logger(ctx).Info("access token refreshed", "token_fp", cryptox.Fingerprint(resp.AccessToken))
	return resp.AccessToken, nil
}

// expire ends the session: both credentials are removed, the user is sent
// to the login screen and OnLogout runs.
func (t *RefreshTransport) expire(ctx context.Context, outcome string, cause error) error {
	logger := t.logger(ctx)
	logger.Warn("session expired", "outcome", outcome, "cause", cause)

	t.Metrics.refresh(outcome)
	t.Metrics.logout()

	for _, key := range []string{KeyAccessToken, KeyRefreshToken} {
		if err := t.Credentials.Delete(ctx, key); err != nil {
			logger.Error("failed to clear credential", "key", key, "error", err)
		}
	}

	if t.Navigator != nil {
		route, query := loginRedirect(t.Navigator.CurrentRoute())
		t.Navigator.Navigate(route, query)
	}
	if t.OnLogout != nil {
		t.OnLogout(ctx)
	}

	return &SessionExpiredError{Cause: cause}
}

func (t *RefreshTransport) send(
	req *http.Request,
	getBody func() (io.ReadCloser, error),
	token string,
) (*http.Response, error) {
	out := req.Clone(req.Context())
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return nil, fmt.Errorf("banksdk: rewind request body: %w", err)
		}
		out.Body = body
		out.GetBody = getBody
	}
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}
	return t.base().RoundTrip(out)
}

func (t *RefreshTransport) base() http.RoundTripper {
	if t.Base == nil {
		return http.DefaultTransport
	}
	return t.Base
}

func (t *RefreshTransport) logger(ctx context.Context) *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slogx.FromContext(ctx)
}

func (t *RefreshTransport) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *RefreshTransport) grace() time.Duration {
	if t.Grace > 0 {
		return t.Grace
	}
	return jwtx.ExpiryGrace
}

func (t *RefreshTransport) refreshTimeout() time.Duration {
	if t.RefreshTimeout > 0 {
		return t.RefreshTimeout
	}
	return DefaultRefreshTimeout
}

// replayableBody makes the request body readable more than once. The
// original body is consumed and closed.
func replayableBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()

	if req.GetBody != nil {
		return req.GetBody, nil
	}

	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("banksdk: buffer request body: %w", err)
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

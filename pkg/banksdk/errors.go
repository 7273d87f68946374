package banksdk

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// ============================================================================
// Session errors
// ============================================================================

var (
	// ErrSessionExpired is wrapped by every error that ends the session:
	// the credential pair was cleared and the user sent to the login screen.
	ErrSessionExpired = errors.New("banksdk: session expired")

	// ErrNoRefreshToken means a 401 arrived and there was nothing to refresh with.
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrRefreshRejected means the refresh call succeeded but carried no access token.
	ErrRefreshRejected = errors.New("token refresh failed")
)

// SessionExpiredError carries the reason a session ended.
// errors.Is(err, ErrSessionExpired) holds for every SessionExpiredError.
type SessionExpiredError struct {
	Cause error
}

func (e *SessionExpiredError) Error() string {
	if e.Cause == nil {
		return ErrSessionExpired.Error()
	}
	return fmt.Sprintf("%s: %v", ErrSessionExpired, e.Cause)
}

func (e *SessionExpiredError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrSessionExpired}
	}
	return []error{ErrSessionExpired, e.Cause}
}

// ============================================================================
// API errors
// ============================================================================

// APIError is a non-success response from the bank API.
type APIError struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int

	// Code is the short error name ("Not Found", "Bad Request", ...).
	Code string

	// Message is the human readable reason given by the server.
	Message string

	// Fields holds per-field validation messages, if any.
	Fields map[string]string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "bank api: %d", e.StatusCode)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+e.Fields[k])
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}
	return b.String()
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

func IsNotFound(err error) bool     { return IsStatus(err, http.StatusNotFound) }
func IsUnauthorized(err error) bool { return IsStatus(err, http.StatusUnauthorized) }
func IsForbidden(err error) bool    { return IsStatus(err, http.StatusForbidden) }
func IsConflict(err error) bool     { return IsStatus(err, http.StatusConflict) }

// ============================================================================
// Error Parsing Helpers
// ============================================================================

// parseErrorResponse turns an error body into an APIError. The backend is not
// consistent about the envelope (exception handler, Spring default, plain
// text), so fields are picked leniently.
func parseErrorResponse(resp *http.Response, body []byte) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Code:       http.StatusText(resp.StatusCode),
	}

	if !gjson.ValidBytes(body) {
		if msg := strings.TrimSpace(string(body)); msg != "" && len(msg) < 512 {
			apiErr.Message = msg
		}
		return apiErr
	}

	parsed := gjson.ParseBytes(body)
	if code := parsed.Get("error"); code.Type == gjson.String && code.String() != "" {
		apiErr.Code = code.String()
	}
	for _, path := range []string{"message", "error_description", "detail"} {
		if msg := parsed.Get(path); msg.Exists() && msg.String() != "" {
			apiErr.Message = msg.String()
			break
		}
	}

	for _, path := range []string{"validationErrors", "errors", "fieldErrors"} {
		fields := parsed.Get(path)
		if !fields.Exists() {
			continue
		}
		apiErr.Fields = map[string]string{}
		switch {
		case fields.IsObject():
			fields.ForEach(func(k, v gjson.Result) bool {
				apiErr.Fields[k.String()] = v.String()
				return true
			})
		case fields.IsArray():
			fields.ForEach(func(_, v gjson.Result) bool {
				name := v.Get("field").String()
				if name == "" {
					name = v.Get("name").String()
				}
				msg := v.Get("defaultMessage").String()
				if msg == "" {
					msg = v.Get("message").String()
				}
				if name != "" {
					apiErr.Fields[name] = msg
				}
				return true
			})
		}
		if len(apiErr.Fields) == 0 {
			apiErr.Fields = nil
		}
		break
	}

	return apiErr
}

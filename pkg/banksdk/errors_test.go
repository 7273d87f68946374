package banksdk

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseErrorResponse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		body   string
		want   *APIError
	}{
		{
			name:   "exception handler envelope",
			status: http.StatusNotFound,
			body:   `{"timestamp":"2025-01-01T10:00:00","status":404,"error":"Not Found","message":"Compte non trouvé","path":"/api/accounts/X"}`,
			want:   &APIError{StatusCode: 404, Code: "Not Found", Message: "Compte non trouvé"},
		},
		{
			name:   "validation map",
			status: http.StatusBadRequest,
			body:   `{"status":400,"error":"Validation Failed","message":"Erreur de validation","validationErrors":{"montant":"Le montant doit être positif"}}`,
			want: &APIError{
				StatusCode: 400,
				Code:       "Validation Failed",
				Message:    "Erreur de validation",
				Fields:     map[string]string{"montant": "Le montant doit être positif"},
			},
		},
		{
			name:   "spring field errors",
			status: http.StatusBadRequest,
			body:   `{"error":"Bad Request","errors":[{"field":"nom","defaultMessage":"must not be blank"}]}`,
			want: &APIError{
				StatusCode: 400,
				Code:       "Bad Request",
				Fields:     map[string]string{"nom": "must not be blank"},
			},
		},
		{
			name:   "plain text",
			status: http.StatusBadGateway,
			body:   "upstream down",
			want:   &APIError{StatusCode: 502, Code: "Bad Gateway", Message: "upstream down"},
		},
		{
			name:   "empty body",
			status: http.StatusUnauthorized,
			body:   "",
			want:   &APIError{StatusCode: 401, Code: "Unauthorized"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := parseErrorResponse(&http.Response{StatusCode: tc.status}, []byte(tc.body))

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			require.Equal(t, tc.want, apiErr)
		})
	}
}

func TestAPIErrorHelpers(t *testing.T) {
	t.Parallel()

	err := error(&APIError{StatusCode: http.StatusConflict, Message: "Email déjà utilisé"})
	require.True(t, IsConflict(err))
	require.False(t, IsNotFound(err))
	require.Equal(t, "bank api: 409: Email déjà utilisé", err.Error())

	wrapped := &SessionExpiredError{Cause: &APIError{StatusCode: http.StatusInternalServerError}}
	require.ErrorIs(t, wrapped, ErrSessionExpired)
	require.True(t, IsStatus(wrapped, http.StatusInternalServerError))
	require.False(t, IsUnauthorized(wrapped))
}

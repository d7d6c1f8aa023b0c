package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func sign(t *testing.T, claims jwt.MapClaims, key string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

func TestAuthMiddleware(t *testing.T) {
	var seen int64
	handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserIDFromContext(r.Context())
		require.True(t, ok)
		seen = id
		w.WriteHeader(http.StatusNoContent)
	}), AuthMiddleware(secret))

	exp := time.Now().Add(time.Hour).Unix()
	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"scheme", "Basic abc", http.StatusUnauthorized},
		{"bad signature", "Bearer " + sign(t, jwt.MapClaims{"user_id": 7, "exp": exp}, "other"), http.StatusUnauthorized},
		{"expired", "Bearer " + sign(t, jwt.MapClaims{"user_id": 7, "exp": time.Now().Add(-time.Minute).Unix()}, secret), http.StatusUnauthorized},
		{"refresh token", "Bearer " + sign(t, jwt.MapClaims{"user_id": 7, "typ": "refresh", "exp": exp}, secret), http.StatusUnauthorized},
		{"no user", "Bearer " + sign(t, jwt.MapClaims{"exp": exp}, secret), http.StatusUnauthorized},
		{"access", "Bearer " + sign(t, jwt.MapClaims{"user_id": 7, "typ": "access", "exp": exp}, secret), http.StatusNoContent},
		{"lowercase scheme", "bearer " + sign(t, jwt.MapClaims{"user_id": 7, "exp": exp}, secret), http.StatusNoContent},
		{"no expiry", "Bearer " + sign(t, jwt.MapClaims{"user_id": 7}, secret), http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = 0
			req := httptest.NewRequest(http.MethodGet, "/wallet", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			assert.Equal(t, tc.status, rr.Code)
			if tc.status == http.StatusNoContent {
				assert.Equal(t, int64(7), seen)
			} else {
				assert.Contains(t, rr.Body.String(), "error")
				assert.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), AuthMiddleware(secret), RequireRole("operator"))

	exp := time.Now().Add(time.Hour).Unix()
	for role, want := range map[string]int{
		"operator": http.StatusNoContent,
		"driver":   http.StatusForbidden,
		"":         http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodPut, "/stations/1/connectors/DC-001/status", nil)
		req.Header.Set("Authorization", "Bearer "+sign(t, jwt.MapClaims{"user_id": 1, "role": role, "exp": exp}, secret))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, want, rr.Code, "role %q", role)
	}
}

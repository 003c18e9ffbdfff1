package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/acquisitions/pkg/auth"
	"github.com/platinummonkey/acquisitions/pkg/contextkeys"
	"github.com/platinummonkey/acquisitions/pkg/httputil"
)

const testSecret = "middleware-test-secret"

func signToken(t *testing.T, id int64, role auth.Role) string {
	t.Helper()
	token, err := auth.NewTokenCodec(testSecret, time.Hour).Sign(auth.Identity{ID: id, Role: role})
	require.NoError(t, err)
	return token
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	var body httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		cookie string
		header string
		want   string
	}{
		{"none", "", "", ""},
		{"cookie", "cookie-token", "", "cookie-token"},
		{"bearer header", "", "Bearer header-token", "header-token"},
		{"lowercase scheme", "", "bearer header-token", "header-token"},
		{"cookie wins", "cookie-token", "Bearer header-token", "cookie-token"},
		{"basic auth ignored", "", "Basic dXNlcjpwYXNz", ""},
		{"bare token ignored", "", "header-token", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: TokenCookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, TokenFromRequest(r))
		})
	}
}

func TestAuthenticate(t *testing.T) {
	authn := NewAuthMiddleware(auth.NewTokenCodec(testSecret, time.Hour))

	var got auth.Identity
	var gotUserID string
	handler := authn.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFrom(r.Context())
		gotUserID = contextkeys.GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users/1", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, httputil.ErrorResponse{Error: "Access denied", Message: "No token provided"}, decodeError(t, w))
	})

	t.Run("invalid token", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/users/1", nil)
		r.Header.Set("Authorization", "Bearer not-a-jwt")
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, httputil.ErrorResponse{Error: "Access denied", Message: "Invalid token"}, decodeError(t, w))
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		other, err := auth.NewTokenCodec("other-secret", time.Hour).Sign(auth.Identity{ID: 1, Role: auth.RoleAdmin})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/users/1", nil)
		r.AddCookie(&http.Cookie{Name: TokenCookieName, Value: other})
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid cookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/users/7", nil)
		r.AddCookie(&http.Cookie{Name: TokenCookieName, Value: signToken(t, 7, auth.RoleUser)})
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, auth.Identity{ID: 7, Role: auth.RoleUser}, got)
		assert.Equal(t, "7", gotUserID)
	})
}

func TestRequireAdmin(t *testing.T) {
	authn := NewAuthMiddleware(auth.NewTokenCodec(testSecret, time.Hour))
	handler := authn.Authenticate(RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	t.Run("user is forbidden", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		r.Header.Set("Authorization", "Bearer "+signToken(t, 2, auth.RoleUser))
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, httputil.ErrorResponse{Error: "Forbidden", Message: "Admin access required"}, decodeError(t, w))
	})

	t.Run("admin passes", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		r.Header.Set("Authorization", "Bearer "+signToken(t, 1, auth.RoleAdmin))
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("without authenticate", func(t *testing.T) {
		w := httptest.NewRecorder()
		RequireAdmin(http.NotFoundHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

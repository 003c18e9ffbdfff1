package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/acquisitions/pkg/auth"
)

// TestAuthRegisterRoutes verifies all routes are registered
func TestAuthRegisterRoutes(t *testing.T) {
	handlers := NewAuthHandlers(nil, nil, false, nil)
	router := mux.NewRouter()
	handlers.RegisterRoutes(router)

	for _, path := range []string{"/api/auth/sign-up", "/api/auth/sign-in", "/api/auth/sign-out"} {
		t.Run(path, func(t *testing.T) {
			var match mux.RouteMatch
			matched := router.Match(httptest.NewRequest(http.MethodPost, path, nil), &match)
			assert.True(t, matched, "Route POST %s should be registered", path)
		})
	}
}

func TestAuthRoutes_RejectOtherMethods(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/auth/sign-in", "", "")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method not allowed", decodeBody(t, rec)["error"])
}

func TestSignUp_Success(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/sign-up",
		`{"name":"  Ada Lovelace ","email":"ADA@Example.com","password":"secret123"}`, "")

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "User registered", body["message"])

	user := body["user"].(map[string]interface{})
	assert.Equal(t, "Ada Lovelace", user["name"])
	assert.Equal(t, "ada@example.com", user["email"])
	assert.Equal(t, "user", user["role"])
	assert.NotContains(t, user, "password")
	assert.NotContains(t, rec.Body.String(), "secret123")

	cookie := tokenCookie(rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.False(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, 3600, cookie.MaxAge)

	identity, err := env.tokens.Verify(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, int64(user["id"].(float64)), identity.ID)
	assert.Equal(t, auth.RoleUser, identity.Role)

	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.AuthEventsTotal.WithLabelValues("sign_up", "success")))
}

func TestSignUp_AdminRole(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/sign-up",
		`{"name":"Root","email":"root@example.com","password":"secret123","role":"admin"}`, "")

	require.Equal(t, http.StatusCreated, rec.Code)
	identity, err := env.tokens.Verify(tokenCookie(rec).Value)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, identity.Role)
}

func TestSignUp_SecureCookie(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) { cfg.SecureCookies = true })

	rec := env.do(http.MethodPost, "/api/auth/sign-up",
		`{"name":"Ada","email":"ada@example.com","password":"secret123"}`, "")

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, tokenCookie(rec).Secure)
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "Ada", "ada@example.com", auth.RoleUser)

	rec := env.do(http.MethodPost, "/api/auth/sign-up",
		`{"name":"Ada Again","email":"ada@example.com","password":"secret123"}`, "")

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Email already exist", body["error"])
	assert.Equal(t, "User with this email already exists", body["message"])
	assert.Equal(t, 0, env.directory.Creates)
	assert.Nil(t, tokenCookie(rec))
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.AuthEventsTotal.WithLabelValues("sign_up", "duplicate")))
}

func TestSignUp_ValidationFailure(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/sign-up",
		`{"name":"A","email":"not-an-email","password":"123","role":"root"}`, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Validation failed", body["error"])
	assert.NotEmpty(t, body["message"])

	details := body["details"].(map[string]interface{})
	assert.Contains(t, details, "name")
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")
	assert.Contains(t, details, "role")
	assert.Equal(t, 0, env.directory.Creates)
}

func TestSignUp_MalformedJSON(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/sign-up", `{"name":`, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body["details"], "body")
}

func TestSignUp_TrailingDataRejected(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/sign-up",
		`{"name":"Ada","email":"ada@example.com","password":"secret123"} garbage`, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["details"], "body")
	assert.Equal(t, 0, env.directory.Creates)
}

func TestSignUp_InternalErrorIsHidden(t *testing.T) {
	env := newTestEnv(t)
	env.directory.Err = errors.New("dial tcp 10.0.0.1:5432: connection refused")

	rec := env.do(http.MethodPost, "/api/auth/sign-up",
		`{"name":"Ada","email":"ada@example.com","password":"secret123"}`, "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Internal server error", body["error"])
	assert.Equal(t, "Something went wrong", body["message"])
	assert.NotContains(t, rec.Body.String(), "connection refused")
	assert.Contains(t, env.logs.String(), "connection refused")
}

func TestSignIn_Success(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seed(t, "Ada", "ada@example.com", auth.RoleAdmin)

	rec := env.do(http.MethodPost, "/api/auth/sign-in",
		`{"email":"Ada@Example.com","password":"password123"}`, "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "User signed in successfully", body["message"])

	user := body["user"].(map[string]interface{})
	assert.Equal(t, float64(seeded.ID), user["id"])
	assert.NotContains(t, user, "password")

	identity, err := env.tokens.Verify(tokenCookie(rec).Value)
	require.NoError(t, err)
	assert.Equal(t, auth.Identity{ID: seeded.ID, Role: auth.RoleAdmin}, identity)
}

func TestSignIn_NoEnumeration(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "Ada", "ada@example.com", auth.RoleUser)

	wrongPassword := env.do(http.MethodPost, "/api/auth/sign-in",
		`{"email":"ada@example.com","password":"wrong-password"}`, "")
	unknownEmail := env.do(http.MethodPost, "/api/auth/sign-in",
		`{"email":"nobody@example.com","password":"password123"}`, "")

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, wrongPassword.Code, unknownEmail.Code)
	assert.JSONEq(t, wrongPassword.Body.String(), unknownEmail.Body.String())

	body := decodeBody(t, wrongPassword)
	assert.Equal(t, "Invalid credentials", body["error"])
	assert.Equal(t, "Invalid email or password", body["message"])
	assert.Nil(t, tokenCookie(wrongPassword))
	assert.Equal(t, float64(2), testutil.ToFloat64(env.metrics.AuthEventsTotal.WithLabelValues("sign_in", "invalid_credentials")))
}

func TestSignIn_ValidationFailure(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/sign-in", `{"email":"ada@example.com"}`, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body["details"], "password")
}

func TestSignOut(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/sign-out", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User signed out successfully", decodeBody(t, rec)["message"])

	cookie := tokenCookie(rec)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Less(t, cookie.MaxAge, 0)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.AuthEventsTotal.WithLabelValues("sign_out", "success")))
}

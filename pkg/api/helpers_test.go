package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/platinummonkey/acquisitions/pkg/accounts"
	"github.com/platinummonkey/acquisitions/pkg/auth"
	"github.com/platinummonkey/acquisitions/pkg/middleware"
	"github.com/platinummonkey/acquisitions/pkg/observability"
	"github.com/platinummonkey/acquisitions/pkg/users"
	"github.com/platinummonkey/acquisitions/pkg/users/userstest"
)

const (
	testSecret = "test-secret"
	browserUA  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0) AppleWebKit/605.1.15 Version/17.0 Safari/605.1.15"
)

type testEnv struct {
	server    *Server
	directory *userstest.Directory
	tokens    *auth.TokenCodec
	metrics   *observability.Metrics
	logs      *bytes.Buffer
}

func newTestEnv(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()

	logs := &bytes.Buffer{}
	logger := observability.NewLogger(observability.InfoLevel, logs)
	directory := userstest.NewDirectory()
	tokens := auth.NewTokenCodec(testSecret, time.Hour)
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	cfg := Config{
		Accounts:  accounts.NewService(directory, auth.NewBcryptHasher(bcrypt.MinCost), logger),
		Directory: directory,
		Tokens:    tokens,
		Logger:    logger,
		Metrics:   metrics,
	}
	for _, fn := range mutate {
		fn(&cfg)
	}

	return &testEnv{
		server:    NewServer(cfg),
		directory: directory,
		tokens:    tokens,
		metrics:   metrics,
		logs:      logs,
	}
}

// seed stores a user whose password is "password123"
func (e *testEnv) seed(t *testing.T, name, email string, role auth.Role) users.User {
	t.Helper()
	hash, err := auth.NewBcryptHasher(bcrypt.MinCost).Hash("password123")
	require.NoError(t, err)
	return e.directory.Seed(users.User{Name: name, Email: email, Password: hash, Role: role})
}

func (e *testEnv) tokenFor(t *testing.T, user users.User) string {
	t.Helper()
	token, err := e.tokens.Sign(user.Identity())
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(method, path, body, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("User-Agent", browserUA)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "body: %s", rec.Body.String())
	return body
}

func tokenCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.TokenCookieName {
			return c
		}
	}
	return nil
}

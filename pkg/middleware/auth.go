package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/platinummonkey/acquisitions/pkg/auth"
	"github.com/platinummonkey/acquisitions/pkg/contextkeys"
	"github.com/platinummonkey/acquisitions/pkg/httputil"
	"github.com/platinummonkey/acquisitions/pkg/observability"
)

// TokenCookieName is the cookie that carries the identity token
const TokenCookieName = "token"

// TokenVerifier validates identity tokens
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

// TokenFromRequest returns the token from the cookie, falling back to the
// Authorization bearer header
func TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(TokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AuthMiddleware rejects requests without a valid identity token
type AuthMiddleware struct {
	verifier TokenVerifier
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Authenticate verifies the token and stores the identity in the request context
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := observability.FromContext(r.Context())

		token := TokenFromRequest(r)
		if token == "" {
			httputil.WriteUnauthorized(w, "No token provided")
			return
		}

		identity, err := m.verifier.Verify(token)
		if err != nil {
			log.WithError(err).Warn("Authentication failed")
			httputil.WriteUnauthorized(w, "Invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// RequireAdmin admits only identities with the admin role. It must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		if !ok {
			httputil.WriteUnauthorized(w, "No token provided")
			return
		}
		if !identity.IsAdmin() {
			observability.FromContext(r.Context()).
				WithField("role", identity.Role.String()).
				Warn("Admin access denied")
			httputil.WriteForbidden(w, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithIdentity stores the identity and its user id in ctx and tags the
// request logger with the user id
func WithIdentity(ctx context.Context, identity auth.Identity) context.Context {
	userID := strconv.FormatInt(identity.ID, 10)
	ctx = contextkeys.WithIdentity(ctx, identity)
	ctx = contextkeys.WithUserID(ctx, userID)
	return observability.WithLogger(ctx, observability.GetLogger(ctx).WithField("user_id", userID))
}

// IdentityFrom returns the identity stored by Authenticate
func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(contextkeys.IdentityKey).(auth.Identity)
	return identity, ok
}

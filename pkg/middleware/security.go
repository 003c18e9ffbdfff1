package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/platinummonkey/acquisitions/pkg/auth"
	"github.com/platinummonkey/acquisitions/pkg/contextkeys"
	"github.com/platinummonkey/acquisitions/pkg/httputil"
	"github.com/platinummonkey/acquisitions/pkg/observability"
	"github.com/platinummonkey/acquisitions/pkg/policy"
)

// SecurityConfig configures the SecurityMiddleware
type SecurityConfig struct {
	Oracle   policy.Oracle
	Verifier TokenVerifier
	Limits   *RoleLimits
	// TrustProxy honours X-Forwarded-For and X-Real-IP
	TrustProxy bool
	Now        func() time.Time
}

// SecurityMiddleware runs every request past the policy oracle with the
// budget of the caller's role
type SecurityMiddleware struct {
	oracle     policy.Oracle
	verifier   TokenVerifier
	limits     *RoleLimits
	trustProxy bool
	now        func() time.Time
}

// NewSecurityMiddleware creates the security middleware
func NewSecurityMiddleware(cfg SecurityConfig) *SecurityMiddleware {
	if cfg.Limits == nil {
		cfg.Limits = NewRoleLimits(nil, DefaultLimitInterval, policy.ModeLive)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &SecurityMiddleware{
		oracle:     cfg.Oracle,
		verifier:   cfg.Verifier,
		limits:     cfg.Limits,
		trustProxy: cfg.TrustProxy,
		now:        cfg.Now,
	}
}

// Handler wraps next. Invalid tokens are treated as guest here; protected
// routes reject them in Authenticate.
func (m *SecurityMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		role := m.resolveRole(r)
		ip := getClientIP(r, m.trustProxy)

		log := observability.FromContext(ctx).WithFields(map[string]interface{}{
			"ip":        ip,
			"userAgent": r.UserAgent(),
			"path":      r.URL.Path,
			"role":      role.String(),
		})

		decision, err := m.oracle.Protect(ctx, policy.RequestFromHTTP(r, ip), m.limits.Window(role))
		if err != nil {
			log.WithError(err).Error("Security middleware error")
			httputil.WriteInternalError(w, "Something went wrong with security middleware")
			return
		}

		if decision.IsDenied() {
			switch decision.Reason {
			case policy.ReasonBot:
				log.WithField("category", string(decision.Bot)).Warn("Bot request blocked")
				httputil.WriteForbidden(w, "Automated requests are not allowed")
			case policy.ReasonShield:
				log.WithField("threat", decision.Threat).Warn("Shield blocked request")
				httputil.WriteForbidden(w, "Request blocked by security policy")
			case policy.ReasonRateLimit:
				log.WithField("rule", decision.Rule).Warn("Rate limit exceeded")
				log.Warn(m.limits.ExceededMessage(role))
				m.setRateHeaders(w, decision)
				w.Header().Set("Retry-After", m.retryAfter(decision.Reset))
				httputil.WriteForbidden(w, "Too many requests")
			default:
				log.WithField("reason", decision.Reason.String()).Warn("Request denied")
				httputil.WriteForbidden(w, "Request blocked by security policy")
			}
			return
		}

		m.setRateHeaders(w, decision)
		ctx = contextkeys.WithRole(ctx, role.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *SecurityMiddleware) resolveRole(r *http.Request) auth.Role {
	token := TokenFromRequest(r)
	if token == "" || m.verifier == nil {
		return auth.RoleGuest
	}
	identity, err := m.verifier.Verify(token)
	if err != nil {
		return auth.RoleGuest
	}
	return identity.Role
}

func (m *SecurityMiddleware) setRateHeaders(w http.ResponseWriter, d policy.Decision) {
	if d.Limit <= 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	if !d.Reset.IsZero() {
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
	}
}

func (m *SecurityMiddleware) retryAfter(reset time.Time) string {
	seconds := 1.0
	if !reset.IsZero() {
		seconds = math.Max(1, math.Ceil(reset.Sub(m.now()).Seconds()))
	}
	return fmt.Sprintf("%.0f", seconds)
}

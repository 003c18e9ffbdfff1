// Package middleware provides the authorization pipeline: the always-on
// security middleware and the per-route authentication checks.
//
// # Overview
//
// SecurityMiddleware runs on every request. It resolves the caller role from
// the identity token (a missing or invalid token means guest), then asks the
// policy oracle to evaluate the request with the role's sliding-window
// budget. Denials are answered with 403 and a message per denial reason.
// Oracle errors fail closed with 500.
//
//	security := middleware.NewSecurityMiddleware(middleware.SecurityConfig{
//		Oracle:   engine,
//		Verifier: tokenCodec,
//		Limits:   middleware.NewRoleLimits(nil, time.Minute, policy.ModeLive),
//	})
//	router.Use(security.Handler)
//
// AuthMiddleware.Authenticate and RequireAdmin are applied per route:
//
//	authn := middleware.NewAuthMiddleware(tokenCodec)
//	users.Handle("", authn.Authenticate(middleware.RequireAdmin(listHandler)))
//
// # Tokens
//
// The token is read from the "token" cookie first, then from an
// "Authorization: Bearer <token>" header.
//
// # Rate Limiting
//
//	guest: 5 req/min
//	user:  10 req/min
//	admin: 20 req/min
//
// On admission the X-RateLimit-Limit, X-RateLimit-Remaining and
// X-RateLimit-Reset headers describe the tightest window evaluated.
package middleware

// Package api provides the HTTP REST API of the acquisitions service.
//
// # Overview
//
// The API is built on gorilla/mux and organized into handler groups, each
// registering its own routes:
//
//   - AuthHandlers: sign-up, sign-in and sign-out under /api/auth
//   - UserHandlers: list, get, update and delete under /api/users
//
// The Server adds the root, /api and /health routes and wraps the router in
// the middleware chain: request id, panic recovery, access logging, metrics,
// security headers, CORS, body limits and finally the security pipeline
// (bot, shield and role rate limits).
//
// # Usage
//
//	server := api.NewServer(api.Config{
//		Accounts:  accounts.NewService(store, auth.NewBcryptHasher(auth.DefaultBcryptCost), logger),
//		Directory: store,
//		Tokens:    auth.NewTokenCodec(secret, auth.DefaultTokenTTL),
//		Security:  security,
//		Logger:    logger,
//	})
//	http.ListenAndServe(":3000", server.Handler())
//
// # Tokens
//
// Sign-up and sign-in set an httpOnly `token` cookie. Protected routes accept
// either that cookie or an `Authorization: Bearer` header.
//
// # Errors
//
// Every error body is JSON {error, message}; validation failures add a
// details object keyed by field. Internal error text is never returned.
package api

// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helpers for JSON encoding/decoding, error bodies,
// path parameter parsing and the generic middleware that wraps every route.
//
// # Response Helpers
//
// Every error body has the shape {error, message} with an optional details
// map for validation failures:
//
//	httputil.WriteError(w, http.StatusNotFound, "User not found", "User with ID 7 does not exist")
//	httputil.WriteValidationError(w, "Invalid user ID", map[string]string{"id": "ID must be a valid number"})
//	httputil.WriteForbidden(w, "Admin access required")
//	httputil.WriteInternalError(w, "")
//
// Success bodies:
//
//	httputil.WriteSuccess(w, body)
//	httputil.WriteCreated(w, body)
//	httputil.WriteMessage(w, "User signed out successfully")
//
// # Request Parsing
//
//	var req validation.SignupRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
//	raw, _ := httputil.ParsePathString(r, "id")
//
// # Middleware
//
// Apply in this order so the request id reaches the access log and panics
// are logged with it:
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//		httputil.SecurityHeadersMiddleware,
//		httputil.CORSMiddleware(origins),
//		httputil.MaxBytesMiddleware(1<<20),
//	)(router)
package httputil

package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/acquisitions/pkg/httputil"
	"github.com/platinummonkey/acquisitions/pkg/middleware"
	"github.com/platinummonkey/acquisitions/pkg/observability"
	"github.com/platinummonkey/acquisitions/pkg/users"
	"github.com/platinummonkey/acquisitions/pkg/validation"
)

// UserListResponse is the body of GET /api/users
type UserListResponse struct {
	Message string         `json:"message"`
	Users   []users.Public `json:"users"`
	Count   int            `json:"count"`
}

// UserResponse is the body of the single-user routes
type UserResponse struct {
	Message string      `json:"message"`
	User    interface{} `json:"user"`
}

// UserHandlers handles the user directory routes
type UserHandlers struct {
	directory users.Directory
	auth      *middleware.AuthMiddleware
}

// NewUserHandlers creates a new user handlers instance
func NewUserHandlers(directory users.Directory, authMiddleware *middleware.AuthMiddleware) *UserHandlers {
	return &UserHandlers{
		directory: directory,
		auth:      authMiddleware,
	}
}

// RegisterRoutes registers user routes. Every route requires a token and
// listing additionally requires the admin role.
func (h *UserHandlers) RegisterRoutes(router *mux.Router) {
	authenticated := func(fn http.HandlerFunc) http.Handler {
		return h.auth.Authenticate(fn)
	}

	router.Handle("/api/users", h.auth.Authenticate(middleware.RequireAdmin(http.HandlerFunc(h.listUsers)))).Methods("GET")
	router.Handle("/api/users/{id}", authenticated(h.getUser)).Methods("GET")
	router.Handle("/api/users/{id}", authenticated(h.updateUser)).Methods("PUT")
	router.Handle("/api/users/{id}", authenticated(h.deleteUser)).Methods("DELETE")
}

// listUsers handles GET /api/users
func (h *UserHandlers) listUsers(w http.ResponseWriter, r *http.Request) {
	log := observability.FromContext(r.Context())
	log.Info("Getting users...")

	all, err := h.directory.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if all == nil {
		all = []users.Public{}
	}

	httputil.WriteSuccess(w, UserListResponse{
		Message: "Successfully retrieved users",
		Users:   all,
		Count:   len(all),
	})
}

// getUser handles GET /api/users/{id}
func (h *UserHandlers) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := validation.UserID(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	observability.FromContext(r.Context()).Infof("Getting user by ID: %d", id)

	user, err := h.directory.GetByID(r.Context(), id)
	if err != nil {
		writeUserError(w, r, id, err)
		return
	}

	httputil.WriteSuccess(w, UserResponse{Message: "Successfully retrieved user", User: user})
}

// updateUser handles PUT /api/users/{id}
func (h *UserHandlers) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := validation.UserID(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req validation.UserUpdateInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	changes, err := validation.UserUpdate(req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	requester, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "No token provided")
		return
	}
	if !requester.Owns(id) && !requester.IsAdmin() {
		httputil.WriteForbidden(w, "You can only update your own information")
		return
	}
	if changes.Role != nil && !requester.IsAdmin() {
		httputil.WriteForbidden(w, "Only administrators can change user roles")
		return
	}

	observability.FromContext(r.Context()).
		WithField("requester_id", requester.ID).
		WithField("updates", changes.Fields()).
		Infof("Updating user ID: %d", id)

	updated, err := h.directory.Update(r.Context(), id, changes)
	if err != nil {
		writeUserError(w, r, id, err)
		return
	}

	httputil.WriteSuccess(w, UserResponse{Message: "User updated successfully", User: updated})
}

// deleteUser handles DELETE /api/users/{id}
func (h *UserHandlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := validation.UserID(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	requester, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "No token provided")
		return
	}
	if !requester.Owns(id) && !requester.IsAdmin() {
		httputil.WriteForbidden(w, "You can only delete your own account")
		return
	}

	observability.FromContext(r.Context()).
		WithField("requester_id", requester.ID).
		Infof("Deleting user ID: %d", id)

	deleted, err := h.directory.Delete(r.Context(), id)
	if err != nil {
		writeUserError(w, r, id, err)
		return
	}

	httputil.WriteSuccess(w, UserResponse{Message: "User deleted successfully", User: deleted})
}

package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/acquisitions/pkg/accounts"
	"github.com/platinummonkey/acquisitions/pkg/auth"
	"github.com/platinummonkey/acquisitions/pkg/httputil"
	"github.com/platinummonkey/acquisitions/pkg/middleware"
	"github.com/platinummonkey/acquisitions/pkg/observability"
	"github.com/platinummonkey/acquisitions/pkg/users"
	"github.com/platinummonkey/acquisitions/pkg/validation"
)

// Auth event names and outcomes reported to the AuthEventRecorder
const (
	eventSignUp  = "sign_up"
	eventSignIn  = "sign_in"
	eventSignOut = "sign_out"

	outcomeSuccess            = "success"
	outcomeInvalid            = "invalid"
	outcomeDuplicate          = "duplicate"
	outcomeInvalidCredentials = "invalid_credentials"
	outcomeError              = "error"
)

// SignupResponse is the body of a successful sign-up
type SignupResponse struct {
	Message string         `json:"message"`
	User    *users.Created `json:"user"`
}

// SigninResponse is the body of a successful sign-in
type SigninResponse struct {
	Message string        `json:"message"`
	User    *users.Public `json:"user"`
}

// AuthHandlers handles sign-up, sign-in and sign-out
type AuthHandlers struct {
	accounts      AccountService
	tokens        TokenCodec
	secureCookies bool
	events        AuthEventRecorder
}

// NewAuthHandlers creates a new auth handlers instance. events may be nil.
func NewAuthHandlers(accounts AccountService, tokens TokenCodec, secureCookies bool, events AuthEventRecorder) *AuthHandlers {
	return &AuthHandlers{
		accounts:      accounts,
		tokens:        tokens,
		secureCookies: secureCookies,
		events:        events,
	}
}

// RegisterRoutes registers authentication routes
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/auth/sign-up", h.signUp).Methods("POST")
	router.HandleFunc("/api/auth/sign-in", h.signIn).Methods("POST")
	router.HandleFunc("/api/auth/sign-out", h.signOut).Methods("POST")
}

// signUp handles POST /api/auth/sign-up
func (h *AuthHandlers) signUp(w http.ResponseWriter, r *http.Request) {
	log := observability.FromContext(r.Context())

	var req validation.SignupRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		h.record(eventSignUp, outcomeInvalid)
		return
	}

	in, err := validation.Signup(req)
	if err != nil {
		h.record(eventSignUp, outcomeInvalid)
		writeServiceError(w, r, err)
		return
	}

	created, err := h.accounts.Signup(r.Context(), in)
	if err != nil {
		h.record(eventSignUp, outcomeFor(err))
		writeServiceError(w, r, err)
		return
	}

	if !h.issueToken(w, r, auth.Identity{ID: created.ID, Role: created.Role}) {
		h.record(eventSignUp, outcomeError)
		return
	}

	log.WithField("email", created.Email).Info("User registered successfully")
	h.record(eventSignUp, outcomeSuccess)
	httputil.WriteCreated(w, SignupResponse{Message: "User registered", User: created})
}

// signIn handles POST /api/auth/sign-in
func (h *AuthHandlers) signIn(w http.ResponseWriter, r *http.Request) {
	log := observability.FromContext(r.Context())

	var req validation.SigninRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		h.record(eventSignIn, outcomeInvalid)
		return
	}

	in, err := validation.Signin(req)
	if err != nil {
		h.record(eventSignIn, outcomeInvalid)
		writeServiceError(w, r, err)
		return
	}

	user, err := h.accounts.Signin(r.Context(), in)
	if err != nil {
		h.record(eventSignIn, outcomeFor(err))
		writeServiceError(w, r, err)
		return
	}

	if !h.issueToken(w, r, auth.Identity{ID: user.ID, Role: user.Role}) {
		h.record(eventSignIn, outcomeError)
		return
	}

	log.WithField("email", user.Email).Info("User signed in successfully")
	h.record(eventSignIn, outcomeSuccess)
	httputil.WriteSuccess(w, SigninResponse{Message: "User signed in successfully", User: user})
}

// signOut handles POST /api/auth/sign-out. It always succeeds.
func (h *AuthHandlers) signOut(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.cookie("", -1))

	observability.FromContext(r.Context()).Info("User signed out successfully")
	h.record(eventSignOut, outcomeSuccess)
	httputil.WriteMessage(w, "User signed out successfully")
}

// issueToken signs a token for identity and sets it as the token cookie.
// On failure it writes a 500 and returns false.
func (h *AuthHandlers) issueToken(w http.ResponseWriter, r *http.Request, identity auth.Identity) bool {
	token, err := h.tokens.Sign(identity)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("Failed to sign token")
		httputil.WriteInternalError(w, "")
		return false
	}

	http.SetCookie(w, h.cookie(token, int(h.tokens.TTL().Seconds())))
	return true
}

func (h *AuthHandlers) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	}
}

func (h *AuthHandlers) record(event, outcome string) {
	if h.events != nil {
		h.events.RecordAuthEvent(event, outcome)
	}
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, accounts.ErrDuplicateUser), errors.Is(err, users.ErrDuplicateEmail):
		return outcomeDuplicate
	case errors.Is(err, accounts.ErrInvalidCredentials):
		return outcomeInvalidCredentials
	default:
		return outcomeError
	}
}

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/acquisitions/pkg/accounts"
	"github.com/platinummonkey/acquisitions/pkg/auth"
	"github.com/platinummonkey/acquisitions/pkg/httputil"
	"github.com/platinummonkey/acquisitions/pkg/middleware"
	"github.com/platinummonkey/acquisitions/pkg/observability"
	"github.com/platinummonkey/acquisitions/pkg/users"
)

// DefaultMaxBodyBytes caps JSON request bodies
const DefaultMaxBodyBytes int64 = 1 << 20

// AccountService signs users up and in
type AccountService interface {
	Signup(ctx context.Context, in accounts.SignupInput) (*users.Created, error)
	Signin(ctx context.Context, in accounts.SigninInput) (*users.Public, error)
}

// TokenCodec issues and verifies identity tokens
type TokenCodec interface {
	middleware.TokenVerifier
	Sign(identity auth.Identity) (string, error)
	TTL() time.Duration
}

// AuthEventRecorder counts sign-up, sign-in and sign-out outcomes
type AuthEventRecorder interface {
	RecordAuthEvent(event, outcome string)
}

// Config holds the collaborators of the API server
type Config struct {
	Accounts  AccountService
	Directory users.Directory
	Tokens    TokenCodec
	Logger    *observability.Logger

	// Security runs the policy pipeline ahead of every route. Nil disables it.
	Security *middleware.SecurityMiddleware
	// Health serves /health and its probes. Nil serves uptime only.
	Health *observability.HealthChecker
	// Metrics, when set, records HTTP and auth event metrics
	Metrics *observability.Metrics

	CORSOrigins   []string
	SecureCookies bool
	MaxBodyBytes  int64
}

// Server is the acquisitions HTTP API
type Server struct {
	router  *mux.Router
	handler http.Handler
	logger  *observability.Logger

	authHandlers *AuthHandlers
	userHandlers *UserHandlers
	health       *observability.HealthChecker
}

// NewServer creates the API server and registers every route
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if cfg.Health == nil {
		cfg.Health = observability.NewHealthChecker(nil, nil, "")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	var events AuthEventRecorder
	if cfg.Metrics != nil {
		events = cfg.Metrics
	}

	s := &Server{
		router:       mux.NewRouter(),
		logger:       cfg.Logger,
		authHandlers: NewAuthHandlers(cfg.Accounts, cfg.Tokens, cfg.SecureCookies, events),
		userHandlers: NewUserHandlers(cfg.Directory, middleware.NewAuthMiddleware(cfg.Tokens)),
		health:       cfg.Health,
	}
	s.setupRoutes()

	middlewares := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
		httputil.RecoveryMiddleware(cfg.Logger),
		httputil.LoggingMiddleware(cfg.Logger),
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, observability.HTTPMetricsMiddleware(cfg.Metrics, observability.RouteTemplate(s.router)))
	}
	middlewares = append(middlewares,
		httputil.SecurityHeadersMiddleware,
		httputil.CORSMiddleware(cfg.CORSOrigins),
		httputil.MaxBytesMiddleware(cfg.MaxBodyBytes),
	)
	if cfg.Security != nil {
		middlewares = append(middlewares, cfg.Security.Handler)
	}
	s.handler = httputil.Chain(middlewares...)(s.router)

	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/", s.root).Methods("GET")

	s.router.HandleFunc("/health", s.health.Uptime).Methods("GET")
	s.router.HandleFunc("/health/live", s.health.Liveness).Methods("GET")
	s.router.HandleFunc("/health/ready", s.health.Readiness).Methods("GET")

	s.router.HandleFunc("/api", s.apiStatus).Methods("GET")

	s.authHandlers.RegisterRoutes(s.router)
	s.userHandlers.RegisterRoutes(s.router)

	s.router.NotFoundHandler = http.HandlerFunc(s.notFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.methodNotAllowed)
}

// Handler returns the router wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router exposes the underlying router
func (s *Server) Router() *mux.Router {
	return s.router
}

// root handles GET /
func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	observability.FromContext(r.Context()).Info("Hello from Acquisitions!")
	httputil.WriteText(w, http.StatusOK, "Hello World!")
}

// apiStatus handles GET /api
func (s *Server) apiStatus(w http.ResponseWriter, r *http.Request) {
	httputil.WriteMessage(w, "API is running")
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	httputil.WriteError(w, http.StatusNotFound, "Not found", "Route "+r.Method+" "+r.URL.Path+" does not exist")
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", "Method "+r.Method+" is not allowed on "+r.URL.Path)
}

package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/coachdesk/coachdesk/pkg/auth"
	"github.com/coachdesk/coachdesk/pkg/httputil"
	"github.com/coachdesk/coachdesk/pkg/middleware"
	"github.com/coachdesk/coachdesk/pkg/observability"
	"github.com/coachdesk/coachdesk/pkg/orgs"
	"github.com/coachdesk/coachdesk/pkg/rbac"
	"github.com/coachdesk/coachdesk/pkg/usage"
)

const maxRequestBody = 1 << 20 // 1 MiB

// Config holds the server's tunables.
type Config struct {
	// CacheTTL bounds how stale a cached user role may be.
	CacheTTL time.Duration
	// AllowedOrigins for CORS. Empty disables CORS handling.
	AllowedOrigins []string
	// Redis enables distributed rate limiting when set.
	Redis *redis.Client
}

// Server is the CoachDesk HTTP API.
type Server struct {
	router   *mux.Router
	db       *sql.DB
	logger   *observability.Logger
	metrics  *observability.Metrics
	resolver *rbac.Resolver
	limiter  *usage.Limiter
	orgStore *orgs.Store
	keys     *auth.KeyStore
	audit    *auth.AuditLogger
}

// NewServer creates a new API server wired to the given database.
func NewServer(db *sql.DB, cfg Config, logger *observability.Logger, metrics *observability.Metrics) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		db:       db,
		logger:   logger,
		metrics:  metrics,
		resolver: rbac.NewResolver(db, cfg.CacheTTL, logger, metrics),
		limiter:  usage.NewLimiter(db, logger, metrics),
		orgStore: orgs.NewStore(db),
		keys:     auth.NewKeyStore(db),
		audit:    auth.NewAuditLogger(db),
	}

	s.setupRoutes(cfg)
	return s
}

// Resolver exposes the server's permission resolver.
func (s *Server) Resolver() *rbac.Resolver { return s.resolver }

// Limiter exposes the server's usage limiter.
func (s *Server) Limiter() *usage.Limiter { return s.limiter }

func (s *Server) setupRoutes(cfg Config) {
	s.router.Use(httputil.RequestIDMiddleware)
	s.router.Use(httputil.RecoveryMiddleware(s.logger))
	if len(cfg.AllowedOrigins) > 0 {
		s.router.Use(httputil.CORSMiddleware(cfg.AllowedOrigins))
	}
	s.router.Use(httputil.MaxBytesMiddleware(maxRequestBody))
	if s.metrics != nil {
		s.router.Use(s.metrics.HTTPMiddleware)
	}

	if cfg.Redis != nil {
		s.router.Use(middleware.NewDistributedRateLimitMiddleware(cfg.Redis).Handler)
	} else {
		s.router.Use(middleware.NewRateLimitMiddleware().Handler)
	}

	// Unauthenticated probes.
	s.router.HandleFunc("/healthz", s.healthz).Methods("GET")
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	// Everything under /v1 requires an API key.
	v1 := s.router.PathPrefix("/v1").Subrouter()
	authMw := middleware.NewAuthMiddleware(s.keys, s.logger, false)
	v1.Use(authMw.Handler)
	v1.Use(middleware.OrgContextMiddleware(s.orgStore))

	rbacHandlers := NewRBACHandlers(s.resolver, s.audit, s.logger)
	rbacHandlers.RegisterRoutes(v1)

	usageHandlers := NewUsageHandlers(s.limiter, s.logger)
	usageHandlers.RegisterRoutes(v1)

	keyHandlers := NewKeyHandlers(s.keys, s.resolver, s.audit, s.logger)
	keyHandlers.RegisterRoutes(v1)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the server wrapped with OpenTelemetry HTTP tracing.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s, "coachdesk-api")
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		httputil.WriteServiceUnavailable(w, "database unavailable")
		return
	}
	httputil.WriteSuccess(w, map[string]string{"status": "ok"})
}

package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"seguimiento/internal/activity"
	"seguimiento/internal/aggregate"
	"seguimiento/internal/cache"
	"seguimiento/internal/editbuffer"
	"seguimiento/internal/gateway"
	"seguimiento/internal/log"
	"seguimiento/internal/logfeed"
	"seguimiento/internal/session"
)

const (
	versionCacheTTL      = 5 * time.Minute
	cacheCleanupInterval = 5 * time.Minute
	readHeaderTimeout    = 10 * time.Second
	writeTimeout         = 60 * time.Second
	idleTimeout          = 120 * time.Second
)

// Deps are the collaborators the handlers call.
type Deps struct {
	Gateway  gateway.Gateway
	Engine   *aggregate.Engine
	Sessions *session.Service
	Edits    *editbuffer.Buffer
	// Activity may be nil, in which case nothing is logged remotely.
	Activity *activity.Recorder
	// Feed may be nil; /api/logs then reads the gateway directly.
	Feed   *logfeed.Feed
	Logger *log.Logger
}

type Server struct {
	http.Server

	deps          Deps
	logger        *log.Logger
	limiter       *rateLimiter
	metrics       *securityMetrics
	version       *cache.LRUCache[string]
	caches        *cache.Manager
	secureCookies bool
	now           func() time.Time
}

type Option func(*Server)

// WithSecureCookies marks the session cookie Secure, for TLS deployments.
func WithSecureCookies(secure bool) Option {
	return func(s *Server) { s.secureCookies = secure }
}

// WithRateLimit sets the number of mutating requests a client may send per minute.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) { s.limiter = newRateLimiter(perMinute) }
}

func NewServer(addr string, deps Deps, opts ...Option) *Server {
	if deps.Engine == nil {
		deps.Engine = aggregate.NewEngine(nil)
	}
	if deps.Edits == nil {
		deps.Edits = editbuffer.New(session.DefaultTTL)
	}
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		deps:    deps,
		logger:  deps.Logger.WithComponent(log.ComponentHTTP),
		limiter: newRateLimiter(defaultRateLimit),
		metrics: &securityMetrics{},
		version: cache.NewLRUCache[string](1, versionCacheTTL),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.caches = cache.NewManager(s.logger.Logger)
	s.caches.Register(s.limiter)
	s.caches.Register(s.version)

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.authed(s.handleLogout))
	mux.HandleFunc("GET /api/session", s.authed(s.handleSession))
	mux.HandleFunc("GET /api/dashboard", s.authed(s.handleDashboard))
	mux.HandleFunc("GET /api/version", s.authed(s.handleVersion))

	mux.HandleFunc("GET /api/financiera/resumen", s.authed(s.handleFinancialSummary))
	mux.HandleFunc("GET /api/financiera/comparacion", s.authed(s.handleCompareMonths))
	mux.HandleFunc("GET /api/financiera/periodos", s.authed(s.handlePeriods))
	mux.HandleFunc("GET /api/presentacion", s.authed(s.handlePresentation))
	mux.HandleFunc("GET /api/export/financiera.xlsx", s.authed(s.handleExport))

	mux.HandleFunc("GET /api/proyectos", s.authed(s.handleProjects))
	mux.HandleFunc("PUT /api/avances/edit", s.authed(s.handleStageEdit))
	mux.HandleFunc("DELETE /api/avances/edit", s.authed(s.handleDiscardEdits))
	mux.HandleFunc("POST /api/avances/save", s.authed(s.handleSaveMonthly))
	mux.HandleFunc("POST /api/avance-general/save", s.authed(s.handleSaveOverall))
	mux.HandleFunc("POST /api/observaciones/save", s.authed(s.handleSaveObservation))

	mux.HandleFunc("GET /api/logs", s.authed(s.handleLogs))

	mux.HandleFunc("GET /api/admin/verificar", s.authed(s.handleVerifyAdmin))
	mux.HandleFunc("POST /api/admin/financiera", s.admin(s.handleSaveFinancial))
	mux.HandleFunc("POST /api/admin/mes-activo", s.admin(s.handleSetActiveMonth))
	mux.HandleFunc("POST /api/admin/version", s.admin(s.handleSetVersion))
	mux.HandleFunc("GET /api/admin/selectores", s.admin(s.handleSelectors))
	mux.HandleFunc("POST /api/admin/proyecto", s.admin(s.handleLegacyProject))
	mux.HandleFunc("GET /api/admin/usuarios", s.admin(s.handleListUsers))
	mux.HandleFunc("PUT /api/admin/usuarios", s.admin(s.handleReplaceUsers))
	mux.HandleFunc("POST /api/admin/usuarios", s.admin(s.handleAddUser))
	mux.HandleFunc("DELETE /api/admin/usuarios", s.admin(s.handleRemoveUser))

	mux.HandleFunc("GET /api/debug/nombres", s.admin(s.handleDebugNames))
	mux.HandleFunc("GET /api/debug/datos", s.admin(s.handleDebugData))
}

// Start begins the periodic sweep of the server's caches. It does not
// start listening; call ListenAndServe for that.
func (s *Server) Start() {
	s.caches.StartCleanup(cacheCleanupInterval)
}

// Shutdown stops the cache sweeper and drains open connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.caches.Stop()
	if err := s.Server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, "ok")
}

// handleReady reports the security counters along with readiness.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	writeData(w, map[string]any{
		"estado":    "ready",
		"seguridad": s.metrics.snapshot(),
	})
}

// record sends an activity event for the request's user. Failures are
// logged by the recorder and never reach the client.
func (s *Server) record(r *http.Request, email, action, description string) {
	s.deps.Activity.Record(r.Context(), email, action, description)
}

// Package adminapi exposes a read-mostly HTTP surface over a booted
// system: feature listing, license status, and audit-log query/export. It
// is never part of the boot path (spec §4.6 does not mention HTTP at
// all) — cmd/qmtool-server mounts it only after loader.Boot succeeds.
package adminapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/qmtool-platform/qmtool-core/pkg/audit"
	"github.com/qmtool-platform/qmtool-core/pkg/configurator"
	"github.com/qmtool-platform/qmtool-core/pkg/container"
	"github.com/qmtool-platform/qmtool-core/pkg/license"
	"github.com/qmtool-platform/qmtool-core/pkg/loader"
)

// requestIDHeader carries a client-facing correlation id, distinct from
// chi's own internal middleware.RequestID (a process-local counter meant
// for cross-referencing a single server's own log lines). This one is
// globally unique so a caller can hand it to support/another service.
const requestIDHeader = "X-Request-Id"

// requestIDMiddleware stamps every response with a fresh request id before
// the route handler runs, so writeError can echo it back in the error body.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(requestIDHeader, uuid.NewString())
		next.ServeHTTP(w, r)
	})
}

// Server hosts the administrative HTTP API over a booted container's
// services.
type Server struct {
	configurator *configurator.Service
	auditSvc     *audit.Service
	licenseSvc   *license.Service
	gatekeeper   *license.Gatekeeper
	logger       *slog.Logger
	auth         AuthConfig
	startedAt    time.Time
}

// NewServer resolves the well-known services from c and wraps them behind
// the administrative API. c must belong to an already-booted Loader.
func NewServer(c *container.Container, auth AuthConfig, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfgRaw, err := c.Resolve(loader.KeyConfiguratorService)
	if err != nil {
		return nil, err
	}
	auditRaw, err := c.Resolve(loader.KeyAuditService)
	if err != nil {
		return nil, err
	}

	s := &Server{
		configurator: cfgRaw.(*configurator.Service),
		auditSvc:     auditRaw.(*audit.Service),
		gatekeeper:   license.NewGatekeeper(logger),
		logger:       logger,
		auth:         auth,
		startedAt:    time.Now(),
	}

	if licRaw, _, err := c.TryResolve(loader.KeyLicensingService); err == nil && licRaw != nil {
		s.licenseSvc, _ = licRaw.(*license.Service)
	}

	return s, nil
}

// Router builds the chi router: common middleware, bearer-auth caller-id
// propagation (grounded on the teacher's JWT role extractor, adapted here
// to feed pkg/audit's context-propagated caller id instead of an RBAC
// role), and the route table.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(s.callerIDMiddleware)

	r.Get("/healthz", s.healthHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/features", s.featuresHandler)
		r.Get("/license", s.licenseHandler)
		r.Get("/audit", s.auditHandler)
		r.Get("/audit/export", s.auditExportHandler)
	})

	return r
}

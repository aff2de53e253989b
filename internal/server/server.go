// Package server exposes the wizard's page routes over HTTP for browsers.
// Each browser gets its own session namespace, keyed by cookie or, behind
// tsnet, by tailnet login.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/claude/coachwizard/internal/lookup"
	"github.com/claude/coachwizard/internal/session"
	"github.com/claude/coachwizard/internal/wizard"
	"github.com/go-chi/chi/v5"
)

// DefaultIdleTimeout applies when Options.IdleTimeout is unset.
const DefaultIdleTimeout = 30 * time.Minute

// Options configures browser identity and controller lifetime.
type Options struct {
	CookieName string
	// AllowedOrigins may call the gateway with the session cookie.
	AllowedOrigins []string
	// IdleTimeout is how long an unused controller is kept in memory.
	IdleTimeout time.Duration
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	factory    session.Factory
	backend    wizard.Backend
	catalog    *lookup.Catalog
	log        *slog.Logger
	cookieName string
	origins    []string
	idle       time.Duration
	ts         WhoIser
	router     chi.Router
	now        func() time.Time

	mu          sync.Mutex
	controllers map[string]*controllerEntry
}

type controllerEntry struct {
	ctrl     *wizard.Controller
	lastUsed time.Time
}

// New creates a new Server with all routes configured.
func New(factory session.Factory, backend wizard.Backend, catalog *lookup.Catalog, opts Options, log *slog.Logger) *Server {
	s := &Server{
		factory:     factory,
		backend:     backend,
		catalog:     catalog,
		log:         log,
		cookieName:  opts.CookieName,
		origins:     opts.AllowedOrigins,
		idle:        opts.IdleTimeout,
		router:      chi.NewRouter(),
		now:         time.Now,
		controllers: make(map[string]*controllerEntry),
	}
	if s.idle <= 0 {
		s.idle = DefaultIdleTimeout
	}
	s.routes()
	return s
}

// SetTailscale switches browser identity from cookies to tailnet logins.
func (s *Server) SetTailscale(ts WhoIser) {
	s.ts = ts
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS(s.origins))

	s.router.Group(func(r chi.Router) {
		r.Use(s.BrowserSession)

		r.Get("/register", s.handleRegisterOptions)
		r.Post("/register", s.handleRegister)
		r.Get("/select-sport", s.handleSportOptions)
		r.Post("/select-sport", s.handleSport)
		r.Get("/competition-details", s.handleCompetitionOptions)
		r.Post("/competition-details", s.handleCompetition)
		r.Get("/past-history", s.handleHistory)
		r.Post("/past-history/injuries", s.handleAddInjury)
		r.Post("/past-history/achievements", s.handleAddAchievement)
		r.Get("/diet-preferences", s.handleDietOptions)
		r.Post("/diet-preferences", s.handleDiet)
		r.Get("/plan", s.handlePlanRedirect)
		r.Get("/plan/{id}", s.handlePlan)
		r.Post("/start-over", s.handleStartOver)
		r.Get("/api/wizard/status", s.handleStatus)
	})
}

// controller returns the wizard for a browser namespace, creating it on
// first use. One controller per namespace keeps the double-submit guard
// effective across concurrent requests.
func (s *Server) controller(namespace string) *wizard.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.controllers[namespace]
	if !ok {
		e = &controllerEntry{
			ctrl: wizard.New(s.backend, s.factory.Scope(namespace), s.log.With("namespace", namespace)),
		}
		s.controllers[namespace] = e
	}
	e.lastUsed = s.now()
	return e.ctrl
}

// Sweep drops controllers unused for longer than the idle timeout. Persisted
// sessions stay in the store; only in-memory display state is released.
// Controllers with a submission in flight are kept.
func (s *Server) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.idle)
	n := 0
	for ns, e := range s.controllers {
		if e.lastUsed.Before(cutoff) && !e.ctrl.Busy() {
			delete(s.controllers, ns)
			n++
		}
	}
	return n
}

// EvictIdle sweeps idle controllers every interval until ctx is done.
func (s *Server) EvictIdle(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.log.Debug("evicted idle controllers", "count", n)
			}
		}
	}
}

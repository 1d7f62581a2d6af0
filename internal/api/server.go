// Package api serves the campaign document over a loopback HTTP API so
// companion tools on the same machine can read and edit it while the desktop
// app is running.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/MJE43/dnd-master-desktop/internal/appstore"
	"github.com/MJE43/dnd-master-desktop/internal/metrics"
)

const DefaultPort = 17889

// Pinger reports storage health. *kvstore.Store implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Port int
	// Token guards /api/v1; empty disables the check.
	Token  string
	Logger logrus.FieldLogger
	DB     Pinger
	// RequestTimeout bounds every non-streaming request. Zero means 30s.
	RequestTimeout time.Duration
}

type Server struct {
	store   *appstore.Store
	db      Pinger
	token   string
	addr    string
	timeout time.Duration
	log     logrus.FieldLogger
	started time.Time
	now     func() time.Time

	hub        *eventHub
	unsub      func()
	httpServer *http.Server
	ln         net.Listener
}

// New builds a server for store. It subscribes to the store's change feed
// immediately; call Shutdown to release it.
func New(store *appstore.Store, opts Options) *Server {
	if opts.Port <= 0 {
		opts.Port = DefaultPort
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	log := opts.Logger.WithField("component", "api")
	s := &Server{
		store:   store,
		db:      opts.DB,
		token:   opts.Token,
		addr:    fmt.Sprintf("127.0.0.1:%d", opts.Port),
		timeout: opts.RequestTimeout,
		log:     log,
		started: time.Now(),
		now:     time.Now,
		hub:     newEventHub(log),
	}
	s.unsub = store.Subscribe(s.hub.broadcast)
	return s
}

// Routes returns the full handler tree.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(s.recoverer)
	r.Use(cors)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requireToken)

		// The change feed is long-lived and must not inherit the request timeout.
		r.Get("/events", s.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.timeout))

			r.Get("/data", s.handleGetData)
			r.Get("/settings", s.handleGetSettings)
			r.Patch("/settings", s.handlePatchSettings)

			r.Get("/maps", s.handleListMaps)
			r.Post("/maps", s.handleCreateMap)
			r.Get("/maps/{id}", s.handleGetMap)
			r.Patch("/maps/{id}", s.handlePatchMap)
			r.Delete("/maps/{id}", s.handleDeleteMap)

			r.Get("/characters", s.handleListCharacters)
			r.Post("/characters", s.handleCreateCharacter)
			r.Get("/characters/{id}", s.handleGetCharacter)
			r.Patch("/characters/{id}", s.handlePatchCharacter)
			r.Delete("/characters/{id}", s.handleDeleteCharacter)
			r.Get("/characters/{id}/wealth", s.handleCharacterWealth)

			r.Get("/creatures", s.handleListCreatures)
			r.Post("/creatures/seed", s.handleSeedCreatures)
			r.Get("/creatures/custom", s.handleListCustomCreatures)
			r.Post("/creatures/custom", s.handleCreateCustomCreature)
			r.Patch("/creatures/custom/{id}", s.handlePatchCustomCreature)
			r.Delete("/creatures/custom/{id}", s.handleDeleteCustomCreature)
			r.Get("/creatures/{id}", s.handleGetCreature)

			r.Get("/sessions", s.handleListSessions)
			r.Post("/sessions", s.handleCreateSession)
			r.Get("/sessions/{id}", s.handleGetSession)
			r.Patch("/sessions/{id}", s.handlePatchSession)
			r.Delete("/sessions/{id}", s.handleDeleteSession)

			r.Get("/export", s.handleExport)
			r.Post("/import", s.handleImport)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, CodeNotFound, "route not found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed", "")
	})
	return r
}

// Start binds the loopback socket and serves in a goroutine. It returns once
// the socket is bound.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("api: listen %s: %w", s.addr, err)
	}
	s.ln = ln
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("serve")
		}
	}()
	s.log.WithField("addr", s.addr).Info("api listening")
	return nil
}

// URL returns the base URL of the bound server.
func (s *Server) URL() string {
	if s.ln != nil {
		return "http://" + s.ln.Addr().String()
	}
	return "http://" + s.addr
}

func (s *Server) Token() string { return s.token }

// Shutdown drops feed subscribers and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
	s.hub.closeAll()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Package server exposes the REST and realtime surfaces of the service.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"personakit/core"
	"personakit/router"
	"personakit/sessions"
	"personakit/tasks"
)

// Config controls the HTTP server.
type Config struct {
	Addr string
}

// Server owns the HTTP mux, the websocket handshake and the REST handlers.
type Server struct {
	config   Config
	mux      *http.ServeMux
	server   *http.Server
	upgrader websocket.Upgrader

	registry   *sessions.Registry
	router     *router.Router
	convs      core.ConversationStore
	characters core.CharacterStore
	users      core.UserStore
	queue      *tasks.Queue
	assistant  core.Assistant
}

// New wires the server. queue may be nil when background processing is
// disabled; character creation then skips enqueueing.
func New(cfg Config, registry *sessions.Registry, rt *router.Router,
	convs core.ConversationStore, characters core.CharacterStore, users core.UserStore,
	assistant core.Assistant, queue *tasks.Queue) *Server {

	s := &Server{
		config:     cfg,
		mux:        http.NewServeMux(),
		upgrader:   websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		registry:   registry,
		router:     rt,
		convs:      convs,
		characters: characters,
		users:      users,
		queue:      queue,
		assistant:  assistant,
	}
	s.registerRoutes()
	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)

	s.mux.HandleFunc("POST /characters", s.handleCreateCharacter)
	s.mux.HandleFunc("GET /characters", s.handleListCharacters)

	s.mux.HandleFunc("POST /chat", s.handleChat)

	s.mux.HandleFunc("POST /signup", s.handleSignup)
	s.mux.HandleFunc("POST /login", s.handleLogin)
	s.mux.HandleFunc("GET /users/{username}", s.handleGetUser)

	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves until the context is cancelled, then drains gracefully.
func (s *Server) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		log.Info().Str("addr", s.config.Addr).Msg("starting server")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "listen")
		}
		return nil
	})

	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
			return err
		}
		log.Info().Msg("server shutdown complete")
		return nil
	})

	return eg.Wait()
}

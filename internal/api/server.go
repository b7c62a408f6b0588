package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"transbuddy/internal/metrics"
)

// Config configures the local control server.
type Config struct {
	Addr         string
	Token        string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

// NewRouter builds the control API routes.
func NewRouter(token string, deps Deps, log zerolog.Logger) http.Handler {
	h := &handlers{deps: deps}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(log))
	r.Use(metrics.InstrumentHandler)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(token))

		r.Get("/metrics", promhttp.Handler().ServeHTTP)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/status", h.status)
			r.Post("/recording/toggle", h.toggle)
			r.Post("/recording/start", h.start)
			r.Post("/recording/cancel", h.cancel)
			r.Get("/audio-devices", h.audioDevices)
			r.Get("/settings", h.getSettings)
			r.Put("/settings", h.saveSettings)
			r.Get("/backends", h.backends)
		})
	})
	return r
}

func NewServer(cfg Config, deps Deps, log zerolog.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:         cfg.Addr,
			Handler:      NewRouter(cfg.Token, deps, log),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		log: log,
	}
}

// Start serves until Shutdown. A closed server is not an error.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

func (s *Server) Serve(listener net.Listener) error {
	s.log.Info().Str("addr", listener.Addr().String()).Msg("control api listening")
	err := s.http.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("control api shutting down")
	return s.http.Shutdown(ctx)
}

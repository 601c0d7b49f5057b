// Package server exposes the token pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-token-server/auth"
	"github.com/jrsteele09/go-token-server/internal/config"
	"github.com/jrsteele09/go-token-server/internal/metrics"
	"github.com/jrsteele09/go-token-server/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Config is the part of the application configuration the HTTP layer reads.
type Config interface {
	config.EnvConfig
	config.CorsConfig
}

// HealthCheck reports whether a dependency (usually the credential store) is reachable.
type HealthCheck func(ctx context.Context) error

type Server struct {
	env         string // Environment (e.g., "DEV", "PROD")
	mux         *http.ServeMux
	routes      []string
	config      Config
	provider    *auth.Provider
	encoder     *token.Encoder
	metrics     *metrics.Metrics
	healthCheck HealthCheck
}

// Option defines a function type to modify the Server instance.
type Option func(*Server)

// WithMetrics records request metrics and serves them on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithHealthCheck sets the check behind /healthz.
func WithHealthCheck(check HealthCheck) Option {
	return func(s *Server) {
		s.healthCheck = check
	}
}

func New(cfg Config, provider *auth.Provider, encoder *token.Encoder, options ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("[Server New] config is required")
	}
	if provider == nil {
		return nil, errors.New("[Server New] provider is required")
	}
	if encoder == nil {
		return nil, errors.New("[Server New] encoder is required")
	}

	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		provider: provider,
		encoder:  encoder,
	}
	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Routes returns the registered route patterns in registration order.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	log.Info().Msgf("[%-19s] %s", color+paddedMethod+ResetColor, path)
}

// Package api provides the HTTP surface of the library server: the GraphQL
// endpoint, the REST operations endpoints and the event stream.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/libraryapp/library-server/internal/auth"
	"github.com/libraryapp/library-server/internal/metrics"
	"github.com/libraryapp/library-server/internal/pubsub"
	"github.com/libraryapp/library-server/internal/search"
	"github.com/libraryapp/library-server/internal/service"
	"github.com/libraryapp/library-server/internal/sse"
)

// Version is reported by the OpenAPI document.
const Version = "1.0.0"

// Pinger reports whether the persistence backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups everything the HTTP surface serves from.
type Services struct {
	Store    Pinger
	Bus      *pubsub.Bus
	Catalog  *service.CatalogService
	Accounts *service.AccountService
	Auth     *auth.ContextBuilder
	Search   *search.SearchIndex // nil when search is disabled
	Streams  *sse.Manager
	Metrics  *metrics.Metrics // nil disables /metrics
}

// Options tunes the HTTP surface.
type Options struct {
	AllowedOrigins  []string
	ComplexityLimit int
	Playground      bool
}

// Server holds the router and the handlers mounted on it.
type Server struct {
	services *Services
	opts     Options
	router   *chi.Mux
	api      huma.API
	graphql  *handler.Server
	logger   *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, opts Options, logger *slog.Logger) *Server {
	s := &Server{
		services: services,
		opts:     opts,
		router:   chi.NewRouter(),
		logger:   logger,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Library API", Version)
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.graphql = s.newGraphQLHandler()

	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mostly for tests.
func (s *Server) API() huma.API {
	return s.api
}

func (s *Server) setupMiddleware() {
	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerStatsRoutes()
	s.registerSearchRoutes()

	s.router.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Handle("/graphql", s.graphql)
	})

	if s.services.Streams != nil {
		s.router.Get("/api/v1/events", sse.NewHandler(s.services.Streams, s.logger).ServeHTTP)
	}
	if s.services.Metrics != nil {
		s.router.Handle("/metrics", s.services.Metrics.Handler())
	}
	if s.opts.Playground {
		s.router.Get("/", playground.Handler("Library", "/graphql"))
	}
}

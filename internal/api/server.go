// Package api serves the last resolved catalog graph over HTTP.
package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/prospectus/catalog-source/internal/logger"
	"github.com/prospectus/catalog-source/internal/service"
)

// GraphSource hands out the most recent completed run, or nil before the first one.
type GraphSource interface {
	Last() *service.Result
}

// Options configures the server.
type Options struct {
	Source GraphSource
	// AllowedOrigins are the CORS origins allowed to read the API. Empty allows any.
	AllowedOrigins []string
	Version        string
	Logger         *logger.Logger
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	source GraphSource
	router *chi.Mux
	api    huma.API
	logger *logger.Logger
}

// NewServer creates the server with all routes registered.
func NewServer(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	config := huma.DefaultConfig("Catalog Source API", version)
	config.Transformers = append(config.Transformers, EnvelopeTransformer)

	s := &Server{
		source: opts.Source,
		router: router,
		api:    humachi.New(router, config),
		logger: log.Component("api"),
	}
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerGraphRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the underlying huma API.
func (s *Server) API() huma.API {
	return s.api
}

// Package server serves the web pages behind the session route guard.
package server

import (
	"net/http"
	"strings"

	"github.com/Sadraka/maherkar-sub001/internal/config"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env    string // Environment (e.g., "DEV", "PROD")
	mux    *http.ServeMux
	routes []string
	config config.Config
}

// New routes every page to pages through the standard middleware and the
// session route guard built from cfg.
func New(cfg config.Config, pages http.Handler) *Server {
	s := &Server{
		env:    cfg.GetEnv(),
		mux:    http.NewServeMux(),
		config: cfg,
	}
	s.initRoutes(pages)
	s.logRoutes()
	return s
}

func (s *Server) initRoutes(pages http.Handler) {
	guard := RequireSession(s.config.GetProtectedPaths(), s.config.GetAuthOnlyPaths(), WithLoginPath(s.config.GetLoginPath()))
	s.RegisterRouteFunc("GET /healthz", ChainMiddleware(healthHandler, s.RecoverMiddleware))
	s.RegisterRouteFunc("/", ChainMiddleware(pages.ServeHTTP, s.PageMiddleware(guard)...))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler http.HandlerFunc) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	log.Debug().Str("routes", strings.Join(s.routes, ", ")).Msg("registered routes")
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

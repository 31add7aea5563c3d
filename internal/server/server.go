package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ziadkadry99/ai-runner/internal/audit"
	"github.com/ziadkadry99/ai-runner/internal/auth"
	"github.com/ziadkadry99/ai-runner/internal/inference"
)

// Config holds server configuration.
type Config struct {
	Port           int
	AllowAll       bool  // allow all CORS origins
	MaxUploadBytes int64 // limit on /add_reference bodies
	RequestTimeout time.Duration
}

// Server exposes the inference dispatcher over HTTP.
type Server struct {
	cfg        Config
	dispatcher *inference.Dispatcher
	verifier   *auth.Verifier
	trail      *audit.Store
	router     chi.Router
	httpServer *http.Server
}

// New creates a server. A nil verifier disables authentication and a nil
// trail disables the audit log of reference changes.
func New(cfg Config, dispatcher *inference.Dispatcher, verifier *auth.Verifier, trail *audit.Store) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 50 << 20
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Minute
	}
	s := &Server{
		cfg:        cfg,
		dispatcher: dispatcher,
		verifier:   verifier,
		trail:      trail,
	}

	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	// Health checks stay reachable without a token.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("OK"))
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.verifier))

		r.Post("/summarize", s.handleSummarize)
		r.Post("/translate", s.handleTranslate)
		r.Post("/context_predict", s.handleContextPredict)
		r.Post("/rag_predict", s.handleRagPredict)
		r.Get("/documentary_bases", s.handleListBases)
		r.Post("/add_reference", s.handleAddReference)
		r.Delete("/delete_reference", s.handleDeleteReference)
		r.Get("/languages", s.handleLanguages)

		if s.trail != nil {
			audit.RegisterRoutes(r, s.trail)
		}
	})

	return r
}

// Router returns the chi router.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("airunner server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

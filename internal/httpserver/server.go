package httpserver

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mikronet-dev/hotspot-backend/internal/config"
	"github.com/mikronet-dev/hotspot-backend/internal/handlers"
	requesttracking "github.com/mikronet-dev/hotspot-backend/internal/middleware"
	"github.com/mikronet-dev/hotspot-backend/internal/worker"
)

// Server wraps an http.Server with convenience helpers for startup/shutdown.
type Server struct {
	httpServer *http.Server
	worker     *worker.Worker
}

// New constructs an HTTP server using the provided configuration and
// collaborators. db and jobWorker may be nil in tests.
func New(cfg config.Config, db *sql.DB, plans handlers.PlanLister, pipeline handlers.PaymentRedeemer, jobWorker *worker.Worker) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// Request audit middleware; continue without it if the store cannot be
	// built.
	if db != nil {
		if requestTracker, err := requesttracking.NewRequestTracker(db); err != nil {
			log.Printf("[server] request tracking disabled: %v", err)
		} else {
			router.Use(requestTracker.Middleware())
		}
	}

	router.Get("/healthz", handlers.Health)
	router.Get("/plans", handlers.Plans(plans))
	router.Get("/verify-payment", handlers.VerifyPayment(pipeline, cfg.FrontendURL))

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{httpServer: srv, worker: jobWorker}
}

// Start begins serving HTTP traffic and starts the worker.
func (s *Server) Start() error {
	if s.worker != nil {
		log.Println("[server] Starting job worker...")
		s.worker.Start(context.Background())
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server and worker.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.worker != nil {
		log.Println("[server] Shutting down job worker...")
		if err := s.worker.Stop(ctx); err != nil {
			log.Printf("[server] Worker shutdown error: %v", err)
		}
	}
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

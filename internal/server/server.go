// Package server exposes the view model over a JSON HTTP API. It is a thin
// presentation wrapper: every endpoint is a projection of, or an action on,
// the facade — the server owns no dashboard state of its own.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"drainwatch.sh/internal/metrics"
	"drainwatch.sh/viewmodel"
)

// Config holds the server configuration.
type Config struct {
	ListenAddr string

	// AllowedOrigins configures CORS. Empty means same origin only.
	AllowedOrigins []string
}

// Server serves the dashboard API.
type Server struct {
	config     Config
	vm         *viewmodel.ViewModel
	router     *mux.Router
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a server over the given view model and registers all routes.
func New(config Config, vm *viewmodel.ViewModel) *Server {
	s := &Server{
		config: config,
		vm:     vm,
		router: mux.NewRouter(),
		logger: slog.Default().With("component", "server"),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.metricsMiddleware)

	api.HandleFunc("/snapshot", s.handleSnapshot).Methods("GET")
	api.HandleFunc("/zones", s.handleZones).Methods("GET")
	api.HandleFunc("/sensors", s.handleSensors).Methods("GET")
	api.HandleFunc("/sensors/{id}", s.handleSensor).Methods("GET")
	api.HandleFunc("/sensors/{id}", s.handleRemoveSensor).Methods("DELETE")
	api.HandleFunc("/alerts", s.handleAlerts).Methods("GET")
	api.HandleFunc("/alerts/acknowledge", s.handleBulkAcknowledge).Methods("POST")
	api.HandleFunc("/alerts/resolve", s.handleBulkResolve).Methods("POST")
	api.HandleFunc("/alerts/{id}/acknowledge", s.handleAcknowledge).Methods("POST")
	api.HandleFunc("/alerts/{id}/resolve", s.handleResolve).Methods("POST")
	api.HandleFunc("/ingest", s.handleIngest).Methods("POST")
}

// Handler returns the full handler chain. Exposed for tests.
func (s *Server) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(s.router)
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.config.ListenAddr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down HTTP server")
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// metricsMiddleware records request counts and latency per route.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

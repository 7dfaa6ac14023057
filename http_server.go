package ignite

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the analytics engine over HTTP. store, archive and hub are
// optional; routes that need a missing one answer 404.
type Server struct {
	config   Config
	analyzer *Analyzer
	store    *SQLStore
	archive  *ReportArchive
	hub      *StreamHub
	logger   Logger
	validate *validator.Validate
	router   *mux.Router
}

// NewServer wires routes for the given components.
func NewServer(config Config, analyzer *Analyzer, store *SQLStore, archive *ReportArchive, hub *StreamHub, logger Logger) *Server {
	if config.HTTP.MaxBodyBytes <= 0 {
		config.HTTP.MaxBodyBytes = DefaultConfig().HTTP.MaxBodyBytes
	}
	s := &Server{
		config:   config,
		analyzer: analyzer,
		store:    store,
		archive:  archive,
		hub:      hub,
		logger:   loggerOrNop(logger),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		router:   mux.NewRouter(),
	}
	s.router.Use(s.instrument)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	s.setupAnalysisRoutes(api)
	s.setupPredictRoutes(api)
	s.setupPrometheusRoutes(api)
	s.setupAdminRoutes(api)

	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.HTTP.Addr,
		Handler:           s.router,
		ReadTimeout:       s.config.HTTP.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.config.HTTP.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	if s.hub != nil {
		s.hub.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		httpRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":      "ok",
		"store":       s.store != nil,
		"archive":     s.archive != nil,
		"subscribers": s.subscriberCount(),
	})
}

func (s *Server) subscriberCount() int {
	if s.hub == nil {
		return 0
	}
	return s.hub.Count()
}

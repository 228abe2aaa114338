package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"epiwatch/internal/alert"
	"epiwatch/internal/export"
	"epiwatch/internal/logger"
	"epiwatch/internal/pipeline"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type server struct {
	svc *Service
	log logger.Logger
	now func() time.Time
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewRouter builds the HTTP API over svc. /metrics serves gatherer.
func NewRouter(svc *Service, gatherer prometheus.Gatherer) http.Handler {
	srv := &server{svc: svc, log: svc.Log, now: time.Now}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", srv.handleHealth)
	r.Get("/alerts", srv.handleAlerts)
	r.Get("/alerts.xlsx", srv.handleAlertsXLSX)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	set, status, err := s.run(r)
	if err != nil {
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *server) handleAlertsXLSX(w http.ResponseWriter, r *http.Request) {
	set, status, err := s.run(r)
	if err != nil {
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, set); err != nil {
		s.log.Error("Export failed", logger.String("run_id", set.RunID), logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "export failed"})
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="epiwatch-alerts.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *server) run(r *http.Request) (alert.AlertSet, int, error) {
	q := r.URL.Query()
	start, end, err := ParseWindow(q.Get("from"), q.Get("to"), s.now())
	if err != nil {
		return alert.AlertSet{}, http.StatusBadRequest, err
	}

	set, err := s.svc.Run(r.Context(), RunRequest{Start: start, End: end, Keywords: parseCSV(q.Get("keywords"))})
	if errors.Is(err, pipeline.ErrInvalidRequest) {
		return alert.AlertSet{}, http.StatusBadRequest, err
	}
	if err != nil {
		s.log.Error("Run failed", logger.Error(err))
		return alert.AlertSet{}, http.StatusInternalServerError, err
	}
	return set, http.StatusOK, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Serve runs the API until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, svc *Service, handler http.Handler) error {
	cfg := svc.Config.Server
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		svc.Log.Info("API server starting", logger.String("addr", cfg.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	svc.Log.Info("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

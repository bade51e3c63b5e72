// Package server exposes the engine over HTTP: telemetry push, session
// commands, report export and metrics.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/verte-zerg/neurocursor/internal/ingest"
	"github.com/verte-zerg/neurocursor/internal/metrics"
	"github.com/verte-zerg/neurocursor/internal/model"
	"github.com/verte-zerg/neurocursor/internal/session"
)

const maxBodySize = 1 << 20

// Controller is the part of the engine the HTTP surface drives.
type Controller interface {
	ingest.Sink
	RequestCalibration(ctx context.Context, now time.Time)
	StartNewSession(ctx context.Context, now time.Time) string
	SkipReset(now time.Time) bool
	SetMuted(muted bool, now time.Time)
	State(now time.Time) session.State
	Report(now time.Time) model.WellbeingReport
}

// Server holds the HTTP handlers.
type Server struct {
	engine    Controller
	metrics   *metrics.Metrics
	log       *slog.Logger
	accessLog io.Writer
	clock     func() time.Time
}

// Options configure a Server. Zero values are usable.
type Options struct {
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	AccessLog io.Writer
	Clock     func() time.Time
}

// New returns a server for engine.
func New(engine Controller, opts Options) *Server {
	s := &Server{
		engine:    engine,
		metrics:   opts.Metrics,
		log:       opts.Logger,
		accessLog: opts.AccessLog,
		clock:     opts.Clock,
	}
	if s.log == nil {
		s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.accessLog == nil {
		s.accessLog = io.Discard
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	return s
}

// Handler returns the routed handler with access logging and panic recovery.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	route := func(path string, h http.HandlerFunc, methods ...string) {
		r.Handle(path, s.metrics.WrapHandler(path, h)).Methods(methods...)
	}

	route("/health", s.health, http.MethodGet)
	route("/api/telemetry", s.postTelemetry, http.MethodPost)
	route("/api/calibration", s.postCalibration, http.MethodPost)
	route("/api/calibration/started", s.postCalibrationStarted, http.MethodPost)
	route("/api/calibration/finished", s.postCalibrationFinished, http.MethodPost)
	route("/api/session", s.postSession, http.MethodPost)
	route("/api/reset/skip", s.postSkipReset, http.MethodPost)
	route("/api/voice", s.putVoice, http.MethodPut)
	route("/api/state", s.getState, http.MethodGet)
	route("/api/report", s.getReport, http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	recovered := handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{s.log}))(r)
	return handlers.LoggingHandler(s.accessLog, recovered)
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve http: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down http server: %w", err)
		}
		return nil
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) postTelemetry(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	accepted, skipped := 0, 0
	var lastErr error
	for _, line := range bytes.Split(body, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		p, err := ingest.Decode(line)
		if err != nil {
			skipped++
			lastErr = err
			continue
		}
		// Live packets are stamped on receipt; a client "at" only matters for replay.
		ingest.Apply(p, s.engine, s.clock())
		accepted++
	}
	if accepted == 0 {
		msg := "no packets"
		if lastErr != nil {
			msg = lastErr.Error()
		}
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if skipped > 0 {
		s.log.Warn("skipped telemetry packets", "skipped", skipped, "error", lastErr)
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"accepted": accepted, "skipped": skipped})
}

func (s *Server) postCalibration(w http.ResponseWriter, r *http.Request) {
	s.engine.RequestCalibration(r.Context(), s.clock())
	writeJSON(w, http.StatusAccepted, map[string]any{"calibrating": true})
}

func (s *Server) postCalibrationStarted(w http.ResponseWriter, r *http.Request) {
	s.engine.CalibrationStarted(s.clock())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) postCalibrationFinished(w http.ResponseWriter, r *http.Request) {
	s.engine.CalibrationFinished(s.clock())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) postSession(w http.ResponseWriter, r *http.Request) {
	id := s.engine.StartNewSession(r.Context(), s.clock())
	writeJSON(w, http.StatusCreated, map[string]any{"session_id": id})
}

func (s *Server) postSkipReset(w http.ResponseWriter, r *http.Request) {
	skipped := s.engine.SkipReset(s.clock())
	writeJSON(w, http.StatusOK, map[string]any{"skipped": skipped})
}

func (s *Server) putVoice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Muted *bool `json:"muted"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Muted == nil {
		writeError(w, http.StatusBadRequest, "muted is required")
		return
	}
	s.engine.SetMuted(*req.Muted, s.clock())
	writeJSON(w, http.StatusOK, map[string]any{"muted": *req.Muted})
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newStateView(s.engine.State(s.clock())))
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	report := s.engine.Report(s.clock())
	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, newReportView(report))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, report.FormattedSummary)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	http.Error(w, msg, status)
}

type recoveryLogger struct {
	log *slog.Logger
}

func (l recoveryLogger) Println(v ...any) {
	l.log.Error("http handler panic", "panic", fmt.Sprint(v...))
}

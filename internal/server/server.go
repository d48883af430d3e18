// Package server assembles the HTTP surface: the /ws streaming endpoint, the
// /config capability report, health probes, and the Prometheus /metrics
// scrape target.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/streamscribe/streamscribe/internal/config"
	"github.com/streamscribe/streamscribe/internal/engine"
	"github.com/streamscribe/streamscribe/internal/gateway"
	"github.com/streamscribe/streamscribe/internal/health"
	"github.com/streamscribe/streamscribe/internal/observe"
	"github.com/streamscribe/streamscribe/internal/session"
)

// Server owns the HTTP listener and its routes.
type Server struct {
	cfg     *config.Config
	eng     engine.Engine
	httpSrv *http.Server
}

// New wires all routes and returns a Server ready to Run. The /ws endpoint
// bypasses the observability middleware; hijacked WebSocket connections
// outlive their request span and would distort the latency histogram.
func New(cfg *config.Config, eng engine.Engine, registry *session.Registry, metrics *observe.Metrics, checkers ...health.Checker) *Server {
	s := &Server{cfg: cfg, eng: eng}

	instrumented := http.NewServeMux()
	instrumented.HandleFunc("GET /config", s.handleConfig)
	instrumented.Handle("GET /metrics", promhttp.Handler())
	health.New(eng.Name(), registry.Len, checkers...).Register(instrumented)

	root := http.NewServeMux()
	root.Handle("/ws", gateway.NewHandler(cfg, eng, registry, metrics))
	root.Handle("/", observe.Middleware(metrics)(instrumented))

	s.httpSrv = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until the listener fails or Shutdown is called. A clean
// shutdown returns nil.
func (s *Server) Run() error {
	slog.Info("http server listening", "addr", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and drains in-flight requests until
// ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler exposes the root handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// configResponse is the capability report served at /config: everything a
// client needs to produce well-formed audio and interpret the transcript
// stream.
type configResponse struct {
	SampleRate         int    `json:"sample_rate"`
	Format             string `json:"format"`
	ChunkDurationMs    int    `json:"chunk_duration_ms"`
	ProcessingWindowMs int    `json:"processing_window_ms"`
	MinProcessingMs    int    `json:"min_processing_ms"`
	DebounceMs         int    `json:"debounce_ms"`
	StallTimeoutMs     int    `json:"stall_timeout_ms"`
	OverlapMs          int    `json:"overlap_ms"`

	Engine          string   `json:"engine"`
	Model           string   `json:"model,omitempty"`
	Modes           []string `json:"modes"`
	DefaultLanguage string   `json:"default_language"`

	VADEnhanced     bool    `json:"vad_enhanced"`
	EnergyThreshold float64 `json:"energy_threshold"`
	MinConfidence   float64 `json:"min_confidence"`
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	resp := configResponse{
		SampleRate:         config.SampleRate,
		Format:             "float32le",
		ChunkDurationMs:    s.cfg.Audio.ChunkDurationMs,
		ProcessingWindowMs: s.cfg.Audio.ProcessingWindowMs,
		MinProcessingMs:    s.cfg.Audio.MinProcessingMs,
		DebounceMs:         s.cfg.Audio.DebounceMs,
		StallTimeoutMs:     s.cfg.Audio.StallTimeoutMs,
		OverlapMs:          s.cfg.Audio.OverlapMs,
		Engine:             s.eng.Name(),
		Model:              s.cfg.Engine.Model,
		Modes:              []string{string(session.ModeTranscription), string(session.ModeTranslation)},
		DefaultLanguage:    s.cfg.Session.DefaultLanguage,
		VADEnhanced:        s.cfg.VAD.Enhanced,
		EnergyThreshold:    s.cfg.VAD.BaseEnergyThreshold,
		MinConfidence:      s.cfg.Filter.MinConfidence,
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}

// Command streamscribe is the real-time speech-to-text gateway server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/streamscribe/streamscribe/internal/config"
	"github.com/streamscribe/streamscribe/internal/engine"
	openaiengine "github.com/streamscribe/streamscribe/internal/engine/openai"
	"github.com/streamscribe/streamscribe/internal/engine/whisperhttp"
	"github.com/streamscribe/streamscribe/internal/engine/whispernative"
	"github.com/streamscribe/streamscribe/internal/health"
	"github.com/streamscribe/streamscribe/internal/observe"
	"github.com/streamscribe/streamscribe/internal/server"
	"github.com/streamscribe/streamscribe/internal/session"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "streamscribe: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "streamscribe: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("streamscribe starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"engine", cfg.Engine.Name,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "streamscribe",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	eng, checkers, err := buildEngine(cfg)
	if err != nil {
		slog.Error("failed to build engine", "err", err)
		return 1
	}
	if closer, ok := eng.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				slog.Warn("engine close error", "err", err)
			}
		}()
	}
	slog.Info("engine ready", "engine", eng.Name())

	registry := session.NewRegistry()
	srv := server.New(cfg, eng, registry, observe.DefaultMetrics(), checkers...)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	slog.Info("server ready — press Ctrl+C to shut down")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			slog.Error("server error", "err", err)
			return 1
		}
		return 0
	}

	slog.Info("shutdown signal received, stopping…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildEngine constructs the configured recognition backend along with its
// readiness checkers.
func buildEngine(cfg *config.Config) (engine.Engine, []health.Checker, error) {
	switch cfg.Engine.Name {
	case config.EngineWhisperServer:
		eng, err := whisperhttp.New(cfg.Engine.BaseURL,
			whisperhttp.WithModel(cfg.Engine.Model),
			whisperhttp.WithHTTPClient(&http.Client{Timeout: cfg.Engine.Timeout()}),
		)
		if err != nil {
			return nil, nil, err
		}
		check := health.Checker{Name: "whisper-server", Check: func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.Engine.BaseURL, nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			resp.Body.Close()
			return nil
		}}
		return eng, []health.Checker{check}, nil

	case config.EngineWhisperNative:
		eng, err := whispernative.New(cfg.Engine.ModelPath)
		if err != nil {
			return nil, nil, err
		}
		// A loaded model is the readiness condition; no live probe needed.
		return eng, nil, nil

	case config.EngineOpenAI:
		eng, err := openaiengine.New(cfg.Engine.APIKey, cfg.Engine.Model,
			openaiengine.WithTimeout(cfg.Engine.Timeout()),
		)
		if err != nil {
			return nil, nil, err
		}
		return eng, nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown engine %q", cfg.Engine.Name)
	}
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// Package whispernative implements the Engine interface on the whisper.cpp
// CGO bindings, eliminating HTTP overhead entirely. The whisper.cpp static
// library (libwhisper.a) and headers (whisper.h) must be available at link
// time via LIBRARY_PATH and C_INCLUDE_PATH environment variables.
//
// The model is loaded once at startup and shared across all sessions; each
// recognition call creates its own whisper context, since contexts are not
// safe for concurrent use while the model is.
package whispernative

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/streamscribe/streamscribe/internal/engine"
)

// Compile-time assertion that Model satisfies engine.Engine.
var _ engine.Engine = (*Model)(nil)

// Model wraps a loaded whisper.cpp model.
type Model struct {
	model whisperlib.Model
}

// New loads the ggml model from modelPath. The caller must call Close when
// the engine is no longer needed.
func New(modelPath string) (*Model, error) {
	if modelPath == "" {
		return nil, errors.New("whispernative: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whispernative: load model %q: %w", modelPath, err)
	}
	return &Model{model: model}, nil
}

// Close releases the whisper model.
func (m *Model) Close() error {
	if m.model != nil {
		return m.model.Close()
	}
	return nil
}

// Name implements engine.Engine.
func (m *Model) Name() string { return "whisper-native" }

// Transcribe runs whisper.cpp inference over samples using a fresh context
// and returns the recognised segments with their native timings. Token
// probabilities are averaged into a per-segment confidence.
func (m *Model) Transcribe(ctx context.Context, samples []float32, opts engine.Options) ([]engine.Segment, error) {
	if len(samples) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whispernative: context cancelled: %w", err)
	}

	wctx, err := m.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whispernative: create context: %w", err)
	}

	if opts.Language != "" {
		if err := wctx.SetLanguage(opts.Language); err != nil {
			slog.Warn("failed to set whisper language, using default",
				"language", opts.Language, "error", err)
		}
	}
	wctx.SetTranslate(opts.Task == engine.TaskTranslate)

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whispernative: process audio: %w", err)
	}

	var segments []engine.Segment
	for {
		seg, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("whispernative: read segment: %w", err)
		}
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		out := engine.Segment{
			Text:  text,
			Start: seg.Start.Seconds(),
			End:   seg.End.Seconds(),
		}
		if conf, ok := meanTokenProbability(seg.Tokens); ok {
			out.Confidence = conf
			out.ConfidenceReported = true
		}
		segments = append(segments, out)
	}
	return segments, nil
}

// meanTokenProbability averages the token probabilities of one segment.
// Reports false when the segment carries no tokens.
func meanTokenProbability(tokens []whisperlib.Token) (float64, bool) {
	if len(tokens) == 0 {
		return 0, false
	}
	var sum float64
	for _, t := range tokens {
		sum += float64(t.P)
	}
	return sum / float64(len(tokens)), true
}

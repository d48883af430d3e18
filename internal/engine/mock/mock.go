// Package mock provides a scriptable Engine for tests.
package mock

import (
	"context"
	"sync"

	"github.com/streamscribe/streamscribe/internal/engine"
)

// Compile-time assertion that Engine satisfies engine.Engine.
var _ engine.Engine = (*Engine)(nil)

// Engine returns scripted segments and records every call it receives.
type Engine struct {
	// TranscribeFunc, when set, handles each call. Otherwise Segments and Err
	// are returned as-is.
	TranscribeFunc func(ctx context.Context, samples []float32, opts engine.Options) ([]engine.Segment, error)

	Segments []engine.Segment
	Err      error

	mu    sync.Mutex
	calls []Call
}

// Call records the arguments of one Transcribe invocation.
type Call struct {
	Samples []float32
	Opts    engine.Options
}

func (e *Engine) Name() string { return "mock" }

func (e *Engine) Transcribe(ctx context.Context, samples []float32, opts engine.Options) ([]engine.Segment, error) {
	e.mu.Lock()
	e.calls = append(e.calls, Call{Samples: samples, Opts: opts})
	e.mu.Unlock()

	if e.TranscribeFunc != nil {
		return e.TranscribeFunc(ctx, samples, opts)
	}
	return e.Segments, e.Err
}

// Calls returns a copy of the recorded invocations in order.
func (e *Engine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Call, len(e.calls))
	copy(out, e.calls)
	return out
}

// Package audio provides the per-connection windowing buffer and the PCM
// codecs shared by the recognition engine adapters.
//
// The central type is [Buffer]: incoming float32 PCM chunks accumulate in a
// backlog, and a fixed-size sliding window with a retained overlap tail is
// handed to the recognition engine. The window bounds both latency (the stall
// timeout guarantees a cycle on any non-empty backlog) and engine cost (no
// call ever sees more than one window of audio), while the overlap reduces
// word-splitting at window boundaries.
package audio

import (
	"sync"
	"time"
)

// Params holds the windowing policy for a [Buffer]. All sample counts refer
// to 16 kHz mono float32 PCM.
type Params struct {
	// WindowSamples is the target window length handed to the engine.
	WindowSamples int

	// MinSamples is the smallest backlog that may be processed once Debounce
	// has elapsed since the previous cycle.
	MinSamples int

	// OverlapSamples is the window tail retained to seed the next window.
	OverlapSamples int

	// Debounce is the minimum interval between processing cycles for a
	// backlog between MinSamples and WindowSamples.
	Debounce time.Duration

	// StallTimeout forces a cycle on any non-empty backlog, so trailing
	// speech shorter than MinSamples is not held indefinitely.
	StallTimeout time.Duration
}

// Buffer accumulates PCM samples for one connection and decides when enough
// audio has accrued to run recognition. Safe for concurrent use: the
// transport read loop appends while the pipeline goroutine extracts.
type Buffer struct {
	params Params

	mu            sync.Mutex
	backlog       []float32
	lastProcessed time.Time
}

// NewBuffer creates an empty Buffer with the given policy. The debounce and
// stall clocks start at now, so a connection that never sends enough audio
// still gets its first stall-triggered cycle on schedule.
func NewBuffer(params Params, now time.Time) *Buffer {
	return &Buffer{
		params:        params,
		backlog:       make([]float32, 0, params.WindowSamples+params.OverlapSamples),
		lastProcessed: now,
	}
}

// Append concatenates chunk to the backlog.
func (b *Buffer) Append(chunk []float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.backlog = append(b.backlog, chunk...)
}

// Len returns the current backlog length in samples.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.backlog)
}

// Ready reports whether a processing cycle should run at now. True when a
// full window has accrued, when at least MinSamples have accrued and the
// debounce interval has elapsed, or when the stall timeout has elapsed and
// the backlog is non-empty.
func (b *Buffer) Ready(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.backlog)
	if n >= b.params.WindowSamples {
		return true
	}
	sinceLast := now.Sub(b.lastProcessed)
	if n >= b.params.MinSamples && sinceLast >= b.params.Debounce {
		return true
	}
	return n > 0 && sinceLast >= b.params.StallTimeout
}

// Extract returns a copy of the first min(backlog, WindowSamples) samples.
// The backlog is not modified; the caller advances it after the window has
// been processed so overlap retention sees any samples appended meanwhile.
func (b *Buffer) Extract() []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.backlog)
	if n > b.params.WindowSamples {
		n = b.params.WindowSamples
	}
	window := make([]float32, n)
	copy(window, b.backlog[:n])
	return window
}

// Advance trims the consumed region from the backlog, retaining up to
// OverlapSamples from its tail, and records now as the last processing time.
// If consumed covers the whole backlog the buffer becomes empty. Called once
// per cycle regardless of the speech decision.
func (b *Buffer) Advance(consumed int, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastProcessed = now

	if consumed >= len(b.backlog) {
		b.backlog = b.backlog[:0]
		return
	}

	keep := b.params.OverlapSamples
	if keep > consumed {
		keep = consumed
	}
	remaining := b.backlog[consumed-keep:]
	next := make([]float32, len(remaining), cap(b.backlog))
	copy(next, remaining)
	b.backlog = next
}

// LastProcessed returns the time of the most recent processing cycle (or the
// construction time if none has run).
func (b *Buffer) LastProcessed() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastProcessed
}

// SamplesForMs converts a duration in milliseconds to a 16 kHz sample count.
func SamplesForMs(sampleRate, ms int) int {
	return sampleRate * ms / 1000
}

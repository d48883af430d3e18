// Package engine defines the recognition backend abstraction. An Engine takes
// one window of 16 kHz mono float32 PCM and returns timed text segments;
// adapters for whisper-server, the whisper.cpp CGO bindings, and the hosted
// OpenAI API live in subpackages.
package engine

import "context"

// Task selects what the engine does with the audio.
type Task string

const (
	// TaskTranscribe produces text in the spoken language.
	TaskTranscribe Task = "transcribe"

	// TaskTranslate produces English text regardless of the spoken language.
	TaskTranslate Task = "translate"
)

// Options carries the per-call recognition parameters.
type Options struct {
	Task     Task
	Language string
}

// Segment is one timed span of recognised text. Start and End are offsets in
// seconds from the beginning of the submitted window.
type Segment struct {
	Text  string
	Start float64
	End   float64

	// Confidence is the engine-reported confidence in [0, 1]. Not every
	// backend produces one; ConfidenceReported distinguishes a real score from
	// an absent one so the transcript filter can skip its confidence rule.
	Confidence         float64
	ConfidenceReported bool
}

// DefaultConfidence is reported on the wire for backends that expose no
// confidence score of their own.
const DefaultConfidence = 0.95

// Engine is a recognition backend. Implementations must be safe for
// concurrent use; the gateway bounds in-flight calls but multiple sessions
// share one Engine.
type Engine interface {
	// Name identifies the backend on the wire and in the health report.
	Name() string

	// Transcribe runs recognition over one window of 16 kHz mono float32 PCM.
	// A window the backend hears nothing in yields zero segments and no error.
	Transcribe(ctx context.Context, samples []float32, opts Options) ([]Segment, error)
}

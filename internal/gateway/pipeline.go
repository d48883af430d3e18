package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/streamscribe/streamscribe/internal/audio"
	"github.com/streamscribe/streamscribe/internal/config"
	"github.com/streamscribe/streamscribe/internal/engine"
	"github.com/streamscribe/streamscribe/internal/filter"
	"github.com/streamscribe/streamscribe/internal/observe"
	"github.com/streamscribe/streamscribe/internal/session"
	"github.com/streamscribe/streamscribe/internal/vad"
)

// tickInterval is how often the pipeline re-checks buffer readiness when no
// audio is arriving, so the stall timeout fires even for a quiet client.
const tickInterval = 100 * time.Millisecond

// SegmentWriter delivers transcriptions to the client. The WebSocket handler
// implements it with a write-serialising wrapper around the connection.
type SegmentWriter interface {
	WriteSegment(ctx context.Context, t Transcription) error
}

// pipeline is the single goroutine driving recognition for one connection:
// it waits for the buffer to become ready, classifies the window, runs the
// engine under the shared concurrency limit, filters the output, and emits
// surviving segments in order. One goroutine per session gives both ordered
// emission and at-most-one in-flight recognition per session for free.
type pipeline struct {
	buf      *audio.Buffer
	sess     *session.Session
	detector *vad.Detector
	filter   *filter.Filter
	eng      engine.Engine
	sem      *semaphore.Weighted
	timeout  time.Duration
	metrics  *observe.Metrics
	writer   SegmentWriter
	log      *slog.Logger

	// notify wakes the loop when the read loop appends audio.
	notify chan struct{}
}

func newPipeline(
	buf *audio.Buffer,
	sess *session.Session,
	detector *vad.Detector,
	fil *filter.Filter,
	eng engine.Engine,
	sem *semaphore.Weighted,
	timeout time.Duration,
	metrics *observe.Metrics,
	writer SegmentWriter,
	log *slog.Logger,
) *pipeline {
	return &pipeline{
		buf:      buf,
		sess:     sess,
		detector: detector,
		filter:   fil,
		eng:      eng,
		sem:      sem,
		timeout:  timeout,
		metrics:  metrics,
		writer:   writer,
		log:      log,
		notify:   make(chan struct{}, 1),
	}
}

// wake signals the loop that new audio arrived. Non-blocking; a pending
// signal already covers the new data.
func (p *pipeline) wake() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// run loops until ctx is cancelled. It is the only goroutine that extracts
// from the buffer and writes segments, so emission order follows audio order.
func (p *pipeline) run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.notify:
		case <-ticker.C:
		}

		for p.buf.Ready(time.Now()) {
			p.cycle(ctx)
			if ctx.Err() != nil {
				return
			}
		}
	}
}

// cycle runs one processing pass: extract a window, decide speech, recognise,
// filter, emit. The buffer advances exactly once per cycle regardless of the
// outcome, so a failed engine call drops the window instead of wedging the
// session.
func (p *pipeline) cycle(ctx context.Context) {
	window := p.buf.Extract()
	defer p.buf.Advance(len(window), time.Now())

	decision := p.detector.Classify(window, p.sess.EnergyHistory())
	p.sess.RecordEnergy(decision.RMS)

	if !decision.Speech {
		p.metrics.RecordWindow(ctx, "silence")
		if p.sess.RecordSilence() {
			p.log.Debug("silence limit reached, repetition context dropped")
		}
		return
	}

	p.metrics.RecordWindow(ctx, "speech")
	p.sess.RecordSpeech()

	segments, err := p.recognize(ctx, window)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			p.log.Error("recognition failed", "engine", p.eng.Name(), "error", err)
			p.metrics.RecordEngineError(ctx, p.eng.Name())
		}
		return
	}

	p.emit(ctx, window, decision, segments)
}

// recognize runs the engine call under the process-wide concurrency limit
// with the per-request deadline. Mode and language are sampled once, so a
// control change mid-call takes effect from the next window.
func (p *pipeline) recognize(ctx context.Context, window []float32) ([]engine.Segment, error) {
	// Translation lets the engine detect the source language; only the
	// transcription task forces the selected one.
	opts := engine.Options{Task: engine.TaskTranscribe}
	if p.sess.Mode() == session.ModeTranslation {
		opts.Task = engine.TaskTranslate
	} else {
		opts.Language = p.sess.Language()
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	segments, err := p.eng.Transcribe(callCtx, window, opts)
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.metrics.RecordEngineCall(ctx, p.eng.Name(), string(opts.Task), status, time.Since(start).Seconds())
	return segments, err
}

// emit filters each recognised segment and writes the survivors in order.
func (p *pipeline) emit(ctx context.Context, window []float32, decision vad.Decision, segments []engine.Segment) {
	chunkMs := len(window) * 1000 / config.SampleRate
	mode := p.sess.Mode()
	language := p.sess.Language()
	if mode == session.ModeTranslation {
		// Translated output is always English whatever was spoken.
		language = "en"
	}

	for _, seg := range segments {
		verdict := p.filter.Evaluate(filter.Candidate{
			Text:       seg.Text,
			Confidence: seg.Confidence,
			Reported:   seg.ConfidenceReported,
		}, p.sess.FilterContext())
		if !verdict.Accept {
			p.metrics.RecordSuppressed(ctx, string(verdict.Reason))
			p.log.Debug("transcript suppressed", "reason", verdict.Reason, "text", seg.Text)
			continue
		}

		confidence := engine.DefaultConfidence
		if seg.ConfidenceReported {
			confidence = seg.Confidence
		}

		t := Transcription{
			Text:                verdict.Text,
			Start:               seg.Start,
			End:                 seg.End,
			Language:            language,
			LanguageProbability: 1,
			ChunkSizeMs:         chunkMs,
			Engine:              p.eng.Name(),
			Confidence:          confidence,
			Energy:              decision.RMS,
			Mode:                string(mode),
			IsFinal:             true,
		}
		if err := p.writer.WriteSegment(ctx, t); err != nil {
			p.log.Warn("segment write failed", "error", err)
			return
		}

		p.sess.Accept(verdict.Text)
		p.metrics.SegmentsEmitted.Add(ctx, 1)
	}
}

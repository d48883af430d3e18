// Package session holds the mutable per-connection state: recognition mode,
// language, repetition context for the transcript filter, the rolling energy
// history for the adaptive threshold, and the silence counter that eventually
// drops stale context.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/streamscribe/streamscribe/internal/config"
	"github.com/streamscribe/streamscribe/internal/filter"
)

// Mode selects what the recognition engine does with the audio.
type Mode string

const (
	// ModeTranscription emits text in the selected language.
	ModeTranscription Mode = "transcription"

	// ModeTranslation emits English regardless of the spoken language.
	ModeTranslation Mode = "translation"
)

// IsValid reports whether m is a recognised mode.
func (m Mode) IsValid() bool {
	return m == ModeTranscription || m == ModeTranslation
}

// Session is the state of one WebSocket connection. All methods are safe for
// concurrent use; the transport read loop mutates mode and language while the
// pipeline goroutine reads them.
type Session struct {
	id string

	mu            sync.Mutex
	mode          Mode
	language      string
	previousText  string
	recent        []string
	energyHistory []float64
	silentWindows int

	historySize       int
	energyHistorySize int
	silenceLimit      int
}

// New creates a Session in transcription mode with a fresh identifier.
func New(cfg config.SessionConfig) *Session {
	return &Session{
		id:                uuid.NewString(),
		mode:              ModeTranscription,
		language:          cfg.DefaultLanguage,
		historySize:       cfg.HistorySize,
		energyHistorySize: cfg.EnergyHistorySize,
		silenceLimit:      cfg.SilenceWindowLimit,
	}
}

// ID returns the session identifier, used for log correlation.
func (s *Session) ID() string { return s.id }

// Mode returns the current recognition mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode switches the recognition mode. Takes effect from the next
// processing cycle; an in-flight recognition keeps the mode it started with.
func (s *Session) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
}

// Language returns the current transcription language code.
func (s *Session) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// SetLanguage switches the transcription language.
func (s *Session) SetLanguage(lang string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = lang
}

// FilterContext returns the repetition context for the transcript filter. The
// recent list excludes the previous transcript itself, which is judged under
// separate rules.
func (s *Session) FilterContext() filter.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	recent := make([]string, len(s.recent))
	copy(recent, s.recent)
	return filter.Context{PreviousText: s.previousText, Recent: recent}
}

// Accept records an accepted transcript: the outgoing previous transcript
// moves into the bounded recent history and text becomes the new previous.
func (s *Session) Accept(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.previousText != "" {
		s.recent = append(s.recent, s.previousText)
		if len(s.recent) > s.historySize {
			s.recent = s.recent[len(s.recent)-s.historySize:]
		}
	}
	s.previousText = text
}

// RecordEnergy appends one window's RMS energy to the bounded rolling history
// and returns a copy of the updated history, oldest first.
func (s *Session) RecordEnergy(rms float64) []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.energyHistory = append(s.energyHistory, rms)
	if len(s.energyHistory) > s.energyHistorySize {
		s.energyHistory = s.energyHistory[len(s.energyHistory)-s.energyHistorySize:]
	}
	out := make([]float64, len(s.energyHistory))
	copy(out, s.energyHistory)
	return out
}

// EnergyHistory returns a copy of the rolling energy history, oldest first.
func (s *Session) EnergyHistory() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, len(s.energyHistory))
	copy(out, s.energyHistory)
	return out
}

// RecordSilence counts one non-speech window. When the count reaches the
// configured limit the repetition context is dropped, so speech resuming
// after a long pause is not suppressed as a repeat of stale text; the reset
// fires exactly once per silent stretch. Reports whether the context was
// reset on this call.
func (s *Session) RecordSilence() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.silentWindows++
	if s.silentWindows != s.silenceLimit {
		return false
	}
	s.previousText = ""
	s.recent = s.recent[:0]
	return true
}

// RecordSpeech resets the consecutive-silence counter.
func (s *Session) RecordSpeech() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.silentWindows = 0
}

// SilentWindows returns the current consecutive-silence count.
func (s *Session) SilentWindows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.silentWindows
}

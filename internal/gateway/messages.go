// Package gateway implements the duplex WebSocket endpoint: binary frames
// carry little-endian float32 PCM at 16 kHz, text frames carry JSON control
// messages, and recognised transcript segments flow back as JSON text frames.
package gateway

// TypeModeSet is the type tag on the state echo sent after every control
// message.
const TypeModeSet = "mode_set"

// ControlMessage is a client-to-server text frame. Both fields are optional;
// one message may set either or both.
type ControlMessage struct {
	Mode                  string `json:"mode"`
	TranscriptionLanguage string `json:"transcriptionLanguage"`
}

// ModeSet echoes the full session state back after a control message, whether
// or not anything changed.
type ModeSet struct {
	Type                  string `json:"type"`
	Mode                  string `json:"mode"`
	TranscriptionLanguage string `json:"transcriptionLanguage"`
}

// Transcription is one recognised segment delivered to the client.
type Transcription struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`

	// Language is the language of the emitted text: the selected language in
	// transcription mode, always "en" in translation mode. LanguageProbability
	// is fixed at 1 since the language is configured rather than detected.
	Language            string  `json:"language"`
	LanguageProbability float64 `json:"language_probability"`

	// ChunkSizeMs is the duration of the processed window in milliseconds.
	ChunkSizeMs int `json:"chunk_size_ms"`

	Engine     string  `json:"engine"`
	Confidence float64 `json:"confidence"`

	// Energy is the RMS energy of the window the segment came from.
	Energy float64 `json:"energy"`

	Mode string `json:"mode"`

	// IsFinal is always true: every emitted segment is authoritative, there
	// is no partial-then-revise stream.
	IsFinal bool `json:"is_final"`
}

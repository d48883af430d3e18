// Package config provides the configuration schema and loader for the
// streamscribe gateway.
package config

import "time"

// LogLevel controls log verbosity for the streamscribe server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// EngineName selects the recognition backend.
type EngineName string

const (
	// EngineWhisperServer talks to a running whisper-server binary over HTTP.
	EngineWhisperServer EngineName = "whisper-server"

	// EngineWhisperNative uses the whisper.cpp CGO bindings in-process.
	EngineWhisperNative EngineName = "whisper-native"

	// EngineOpenAI uses the hosted OpenAI audio transcription API.
	EngineOpenAI EngineName = "openai"
)

// IsValid reports whether e is a recognised engine name.
func (e EngineName) IsValid() bool {
	switch e {
	case EngineWhisperServer, EngineWhisperNative, EngineOpenAI:
		return true
	}
	return false
}

// SampleRate is the only sample rate the recognition engines accept. Clients
// must deliver 16 kHz mono float32 PCM; there is no resampling layer.
const SampleRate = 16000

// Config is the root configuration structure for streamscribe.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Engine  EngineConfig  `yaml:"engine"`
	Audio   AudioConfig   `yaml:"audio"`
	VAD     VADConfig     `yaml:"vad"`
	Filter  FilterConfig  `yaml:"filter"`
	Session SessionConfig `yaml:"session"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":61999").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// EngineConfig selects and configures the recognition backend.
type EngineConfig struct {
	// Name selects the backend implementation.
	Name EngineName `yaml:"name"`

	// BaseURL is the whisper-server endpoint (e.g., "http://localhost:8080").
	// Used only by the whisper-server engine.
	BaseURL string `yaml:"base_url"`

	// ModelPath is the ggml model file loaded by the whisper-native engine.
	ModelPath string `yaml:"model_path"`

	// APIKey authenticates against the hosted OpenAI engine.
	APIKey string `yaml:"api_key"`

	// Model is the model identifier forwarded to the backend (e.g., "small"
	// for whisper-server, "whisper-1" for openai). Empty uses the backend's
	// default.
	Model string `yaml:"model"`

	// MaxConcurrent bounds the number of recognition calls in flight across
	// all connections, so a burst of sessions cannot oversubscribe the engine.
	MaxConcurrent int `yaml:"max_concurrent"`

	// RequestTimeoutMs is the per-inference deadline in milliseconds.
	RequestTimeoutMs int `yaml:"request_timeout_ms"`
}

// Timeout returns the per-inference deadline as a [time.Duration].
func (e EngineConfig) Timeout() time.Duration {
	return time.Duration(e.RequestTimeoutMs) * time.Millisecond
}

// AudioConfig holds the windowing-buffer policy. All durations are in
// milliseconds of 16 kHz audio.
type AudioConfig struct {
	// ChunkDurationMs is the chunk length clients are expected to send. It is
	// advisory (any chunk length is accepted) and reported on /config.
	ChunkDurationMs int `yaml:"chunk_duration_ms"`

	// ProcessingWindowMs is the target window length submitted to the engine.
	ProcessingWindowMs int `yaml:"processing_window_ms"`

	// MinProcessingMs is the smallest backlog that may be processed once the
	// debounce interval has elapsed.
	MinProcessingMs int `yaml:"min_processing_ms"`

	// DebounceMs is the minimum interval between processing cycles when the
	// backlog is between MinProcessingMs and ProcessingWindowMs.
	DebounceMs int `yaml:"debounce_ms"`

	// StallTimeoutMs forces a processing cycle on any non-empty backlog,
	// bounding worst-case latency for trailing speech.
	StallTimeoutMs int `yaml:"stall_timeout_ms"`

	// OverlapMs is the window tail retained to seed the next window, reducing
	// boundary word-splitting.
	OverlapMs int `yaml:"overlap_ms"`
}

// VADConfig holds the energy estimator tunables.
type VADConfig struct {
	// BaseEnergyThreshold is the floor below which the adaptive threshold
	// never drops. Units are float32 PCM amplitude ([-1, 1] range).
	BaseEnergyThreshold float64 `yaml:"base_energy_threshold"`

	// ThresholdCeiling caps the adaptive threshold so loud steady background
	// noise cannot close the gate entirely.
	ThresholdCeiling float64 `yaml:"threshold_ceiling"`

	// EnergyPercentile and PercentileMultiplier derive the adaptive threshold
	// from the window's own amplitude distribution.
	EnergyPercentile     float64 `yaml:"energy_percentile"`
	PercentileMultiplier float64 `yaml:"percentile_multiplier"`

	// HistoryMultiplier scales the rolling average of recent window energies;
	// rising background noise raises the bar instead of triggering speech.
	HistoryMultiplier float64 `yaml:"history_multiplier"`

	// Enhanced enables sub-frame voting: the window is split into SubframeMs
	// frames and speech requires more than SubframeFraction of them to
	// individually clear SubframeFactor of the threshold.
	Enhanced         bool    `yaml:"enhanced"`
	SubframeMs       int     `yaml:"subframe_ms"`
	SubframeFactor   float64 `yaml:"subframe_factor"`
	SubframeFraction float64 `yaml:"subframe_fraction"`

	// SpectralGate requires zero-crossing rate and spectral centroid to agree
	// with the energy decision before declaring speech.
	SpectralGate  bool    `yaml:"spectral_gate"`
	ZCRMin        float64 `yaml:"zcr_min"`
	ZCRMax        float64 `yaml:"zcr_max"`
	CentroidMinHz float64 `yaml:"centroid_min_hz"`
	CentroidMaxHz float64 `yaml:"centroid_max_hz"`
}

// FilterConfig holds the transcript filter tunables.
type FilterConfig struct {
	// OverlapRatioThreshold rejects a candidate whose distinct-word overlap
	// with the previous accepted text exceeds this ratio.
	OverlapRatioThreshold float64 `yaml:"overlap_ratio_threshold"`

	// MinConfidence rejects candidates whose engine-reported confidence falls
	// below this value. Ignored when the engine reports no confidence.
	MinConfidence float64 `yaml:"min_confidence"`

	// SimilarityThreshold rejects candidates whose Jaro-Winkler similarity to
	// any recent transcription meets or exceeds this value.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// SessionConfig holds per-connection state tunables.
type SessionConfig struct {
	// DefaultLanguage is the initial transcription language for new sessions.
	DefaultLanguage string `yaml:"default_language"`

	// SilenceWindowLimit is the number of consecutive non-speech windows
	// after which the repetition context is dropped.
	SilenceWindowLimit int `yaml:"silence_window_limit"`

	// HistorySize bounds the recent-transcription history (oldest evicted
	// first).
	HistorySize int `yaml:"history_size"`

	// EnergyHistorySize bounds the rolling window-energy history.
	EnergyHistorySize int `yaml:"energy_history_size"`
}

// Default returns the configuration used when a field is absent from the
// YAML file. The tunable values are the deliberate fixed points for knobs
// that varied across earlier engine deployments.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":61999",
			LogLevel:   LogInfo,
		},
		Engine: EngineConfig{
			Name:             EngineWhisperServer,
			BaseURL:          "http://localhost:8080",
			MaxConcurrent:    4,
			RequestTimeoutMs: 30_000,
		},
		Audio: AudioConfig{
			ChunkDurationMs:    500,
			ProcessingWindowMs: 1500,
			MinProcessingMs:    1000,
			DebounceMs:         800,
			StallTimeoutMs:     2500,
			OverlapMs:          200,
		},
		VAD: VADConfig{
			BaseEnergyThreshold:  0.005,
			ThresholdCeiling:     0.02,
			EnergyPercentile:     85,
			PercentileMultiplier: 0.3,
			HistoryMultiplier:    0.6,
			Enhanced:             true,
			SubframeMs:           100,
			SubframeFactor:       0.8,
			SubframeFraction:     0.3,
			SpectralGate:         false,
			ZCRMin:               0.01,
			ZCRMax:               0.15,
			CentroidMinHz:        200,
			CentroidMaxHz:        4000,
		},
		Filter: FilterConfig{
			OverlapRatioThreshold: 0.7,
			MinConfidence:         0.7,
			SimilarityThreshold:   0.92,
		},
		Session: SessionConfig{
			DefaultLanguage:    "en",
			SilenceWindowLimit: 6,
			HistorySize:        5,
			EnergyHistorySize:  10,
		},
	}
}

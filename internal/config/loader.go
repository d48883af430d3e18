package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults for absent
// fields, and validates the result. Useful in tests where configs are
// constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.ListenAddr == "" {
		errs = append(errs, errors.New("server.listen_addr is required"))
	}
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Engine
	if !cfg.Engine.Name.IsValid() {
		errs = append(errs, fmt.Errorf("engine.name %q is invalid; valid values: whisper-server, whisper-native, openai", cfg.Engine.Name))
	}
	switch cfg.Engine.Name {
	case EngineWhisperServer:
		if cfg.Engine.BaseURL == "" {
			errs = append(errs, errors.New("engine.base_url is required for the whisper-server engine"))
		}
	case EngineWhisperNative:
		if cfg.Engine.ModelPath == "" {
			errs = append(errs, errors.New("engine.model_path is required for the whisper-native engine"))
		}
	case EngineOpenAI:
		if cfg.Engine.APIKey == "" {
			errs = append(errs, errors.New("engine.api_key is required for the openai engine"))
		}
	}
	if cfg.Engine.MaxConcurrent <= 0 {
		errs = append(errs, fmt.Errorf("engine.max_concurrent must be positive, got %d", cfg.Engine.MaxConcurrent))
	}
	if cfg.Engine.RequestTimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("engine.request_timeout_ms must be positive, got %d", cfg.Engine.RequestTimeoutMs))
	}

	// Audio windowing policy. The overlap must fit inside the window or
	// Advance would grow the backlog instead of trimming it.
	if cfg.Audio.ProcessingWindowMs <= 0 {
		errs = append(errs, fmt.Errorf("audio.processing_window_ms must be positive, got %d", cfg.Audio.ProcessingWindowMs))
	}
	if cfg.Audio.MinProcessingMs <= 0 || cfg.Audio.MinProcessingMs > cfg.Audio.ProcessingWindowMs {
		errs = append(errs, fmt.Errorf("audio.min_processing_ms %d must be in (0, processing_window_ms]", cfg.Audio.MinProcessingMs))
	}
	if cfg.Audio.OverlapMs < 0 || cfg.Audio.OverlapMs >= cfg.Audio.ProcessingWindowMs {
		errs = append(errs, fmt.Errorf("audio.overlap_ms %d must be in [0, processing_window_ms)", cfg.Audio.OverlapMs))
	}
	if cfg.Audio.DebounceMs <= 0 {
		errs = append(errs, fmt.Errorf("audio.debounce_ms must be positive, got %d", cfg.Audio.DebounceMs))
	}
	if cfg.Audio.StallTimeoutMs <= cfg.Audio.DebounceMs {
		errs = append(errs, fmt.Errorf("audio.stall_timeout_ms %d must exceed debounce_ms %d", cfg.Audio.StallTimeoutMs, cfg.Audio.DebounceMs))
	}

	// VAD
	if cfg.VAD.BaseEnergyThreshold <= 0 {
		errs = append(errs, fmt.Errorf("vad.base_energy_threshold must be positive, got %g", cfg.VAD.BaseEnergyThreshold))
	}
	if cfg.VAD.ThresholdCeiling < cfg.VAD.BaseEnergyThreshold {
		errs = append(errs, fmt.Errorf("vad.threshold_ceiling %g must be at least base_energy_threshold %g", cfg.VAD.ThresholdCeiling, cfg.VAD.BaseEnergyThreshold))
	}
	if cfg.VAD.EnergyPercentile <= 0 || cfg.VAD.EnergyPercentile >= 100 {
		errs = append(errs, fmt.Errorf("vad.energy_percentile %g must be in (0, 100)", cfg.VAD.EnergyPercentile))
	}
	if cfg.VAD.Enhanced && cfg.VAD.SubframeMs <= 0 {
		errs = append(errs, fmt.Errorf("vad.subframe_ms must be positive when vad.enhanced is set, got %d", cfg.VAD.SubframeMs))
	}
	if cfg.VAD.SpectralGate {
		if cfg.VAD.ZCRMin >= cfg.VAD.ZCRMax {
			errs = append(errs, fmt.Errorf("vad.zcr_min %g must be below vad.zcr_max %g", cfg.VAD.ZCRMin, cfg.VAD.ZCRMax))
		}
		if cfg.VAD.CentroidMinHz >= cfg.VAD.CentroidMaxHz {
			errs = append(errs, fmt.Errorf("vad.centroid_min_hz %g must be below vad.centroid_max_hz %g", cfg.VAD.CentroidMinHz, cfg.VAD.CentroidMaxHz))
		}
	}

	// Filter
	if cfg.Filter.OverlapRatioThreshold <= 0 || cfg.Filter.OverlapRatioThreshold > 1 {
		errs = append(errs, fmt.Errorf("filter.overlap_ratio_threshold %g must be in (0, 1]", cfg.Filter.OverlapRatioThreshold))
	}
	if cfg.Filter.MinConfidence < 0 || cfg.Filter.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("filter.min_confidence %g must be in [0, 1]", cfg.Filter.MinConfidence))
	}
	if cfg.Filter.SimilarityThreshold <= 0 || cfg.Filter.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("filter.similarity_threshold %g must be in (0, 1]", cfg.Filter.SimilarityThreshold))
	}

	// Session
	if cfg.Session.DefaultLanguage == "" {
		errs = append(errs, errors.New("session.default_language is required"))
	}
	if cfg.Session.SilenceWindowLimit <= 0 {
		errs = append(errs, fmt.Errorf("session.silence_window_limit must be positive, got %d", cfg.Session.SilenceWindowLimit))
	}
	if cfg.Session.HistorySize <= 0 {
		errs = append(errs, fmt.Errorf("session.history_size must be positive, got %d", cfg.Session.HistorySize))
	}
	if cfg.Session.EnergyHistorySize <= 0 {
		errs = append(errs, fmt.Errorf("session.energy_history_size must be positive, got %d", cfg.Session.EnergyHistorySize))
	}

	return errors.Join(errs...)
}

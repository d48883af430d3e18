package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadFromReader_EmptyYieldsDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":61999" {
		t.Errorf("ListenAddr = %q, want %q", cfg.Server.ListenAddr, ":61999")
	}
	if cfg.Engine.Name != EngineWhisperServer {
		t.Errorf("Engine.Name = %q, want %q", cfg.Engine.Name, EngineWhisperServer)
	}
	if cfg.Audio.ProcessingWindowMs != 1500 {
		t.Errorf("ProcessingWindowMs = %d, want 1500", cfg.Audio.ProcessingWindowMs)
	}
	if cfg.Session.SilenceWindowLimit != 6 {
		t.Errorf("SilenceWindowLimit = %d, want 6", cfg.Session.SilenceWindowLimit)
	}
}

func TestLoadFromReader_OverridesMergeWithDefaults(t *testing.T) {
	const yml = `
server:
  listen_addr: ":9000"
engine:
  name: openai
  api_key: sk-test
  request_timeout_ms: 10000
vad:
  enhanced: false
`
	cfg, err := LoadFromReader(strings.NewReader(yml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":9000" {
		t.Errorf("ListenAddr = %q, want %q", cfg.Server.ListenAddr, ":9000")
	}
	if cfg.Engine.Name != EngineOpenAI {
		t.Errorf("Engine.Name = %q, want %q", cfg.Engine.Name, EngineOpenAI)
	}
	if cfg.Engine.Timeout() != 10*time.Second {
		t.Errorf("Timeout = %s, want 10s", cfg.Engine.Timeout())
	}
	if cfg.VAD.Enhanced {
		t.Error("VAD.Enhanced = true, want false")
	}
	// Untouched sections keep their defaults.
	if cfg.Filter.OverlapRatioThreshold != 0.7 {
		t.Errorf("OverlapRatioThreshold = %g, want 0.7", cfg.Filter.OverlapRatioThreshold)
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("server:\n  listen_adr: \":9000\"\n"))
	if err == nil {
		t.Fatal("LoadFromReader err = nil for misspelled field, want error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "unknown engine",
			mutate:  func(c *Config) { c.Engine.Name = "parakeet" },
			wantErr: "engine.name",
		},
		{
			name: "whisper-server requires base_url",
			mutate: func(c *Config) {
				c.Engine.Name = EngineWhisperServer
				c.Engine.BaseURL = ""
			},
			wantErr: "engine.base_url",
		},
		{
			name: "whisper-native requires model_path",
			mutate: func(c *Config) {
				c.Engine.Name = EngineWhisperNative
			},
			wantErr: "engine.model_path",
		},
		{
			name: "openai requires api_key",
			mutate: func(c *Config) {
				c.Engine.Name = EngineOpenAI
			},
			wantErr: "engine.api_key",
		},
		{
			name:    "min above window",
			mutate:  func(c *Config) { c.Audio.MinProcessingMs = 2000 },
			wantErr: "audio.min_processing_ms",
		},
		{
			name:    "overlap not below window",
			mutate:  func(c *Config) { c.Audio.OverlapMs = 1500 },
			wantErr: "audio.overlap_ms",
		},
		{
			name:    "stall must exceed debounce",
			mutate:  func(c *Config) { c.Audio.StallTimeoutMs = 800 },
			wantErr: "audio.stall_timeout_ms",
		},
		{
			name:    "ceiling below base threshold",
			mutate:  func(c *Config) { c.VAD.ThresholdCeiling = 0.001 },
			wantErr: "vad.threshold_ceiling",
		},
		{
			name: "spectral gate range checks",
			mutate: func(c *Config) {
				c.VAD.SpectralGate = true
				c.VAD.ZCRMin = 0.2
			},
			wantErr: "vad.zcr_min",
		},
		{
			name:    "filter ratio out of range",
			mutate:  func(c *Config) { c.Filter.OverlapRatioThreshold = 1.5 },
			wantErr: "filter.overlap_ratio_threshold",
		},
		{
			name:    "empty default language",
			mutate:  func(c *Config) { c.Session.DefaultLanguage = "" },
			wantErr: "session.default_language",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := Validate(cfg)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate err = nil, want error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate err = %q, want mention of %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidate_JoinsAllFailures(t *testing.T) {
	cfg := Default()
	cfg.Server.ListenAddr = ""
	cfg.Engine.MaxConcurrent = 0
	cfg.Session.HistorySize = 0

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate err = nil, want joined errors")
	}
	for _, want := range []string{"server.listen_addr", "engine.max_concurrent", "session.history_size"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error missing %q: %v", want, err)
		}
	}
}

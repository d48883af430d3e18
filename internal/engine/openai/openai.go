// Package openai implements the Engine interface against the hosted OpenAI
// audio API. Transcription and translation are separate endpoints there, so
// the adapter dispatches on the requested task.
//
// The hosted API returns plain text without timings or confidence, so the
// adapter synthesises a single segment spanning the window and leaves
// confidence unreported.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/streamscribe/streamscribe/internal/audio"
	"github.com/streamscribe/streamscribe/internal/config"
	"github.com/streamscribe/streamscribe/internal/engine"
)

// DefaultModel is the default hosted recognition model.
const DefaultModel = oai.AudioModelWhisper1

// Compile-time assertion that Client satisfies engine.Engine.
var _ engine.Engine = (*Client)(nil)

// Client talks to the OpenAI audio endpoints. Safe for concurrent use.
type Client struct {
	client oai.Client
	model  string
}

// cfg holds optional configuration for the client.
type cfg struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Client.
type Option func(*cfg)

// WithBaseURL overrides the default OpenAI API base URL, e.g. to point at a
// compatible self-hosted endpoint or a test server.
func WithBaseURL(url string) Option {
	return func(c *cfg) { c.baseURL = url }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *cfg) { c.timeout = d }
}

// New constructs a Client. If model is empty, DefaultModel (whisper-1) is
// used.
func New(apiKey string, model string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	c := &cfg{}
	for _, o := range opts {
		o(c)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if c.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(c.baseURL))
	}
	if c.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: c.timeout,
		}))
	}

	return &Client{client: oai.NewClient(reqOpts...), model: model}, nil
}

// Name implements engine.Engine.
func (c *Client) Name() string { return "openai" }

// Transcribe implements engine.Engine. The window is uploaded as a WAV file;
// translation requests go to the translations endpoint, everything else to
// transcriptions.
func (c *Client) Transcribe(ctx context.Context, samples []float32, opts engine.Options) ([]engine.Segment, error) {
	if len(samples) == 0 {
		return nil, nil
	}

	wav := bytes.NewReader(audio.EncodeWAV(samples, config.SampleRate))
	file := oai.File(wav, "audio.wav", "audio/wav")

	var text string
	switch opts.Task {
	case engine.TaskTranslate:
		resp, err := c.client.Audio.Translations.New(ctx, oai.AudioTranslationNewParams{
			File:  file,
			Model: c.model,
		})
		if err != nil {
			return nil, fmt.Errorf("openai: translate: %w", err)
		}
		text = resp.Text
	default:
		params := oai.AudioTranscriptionNewParams{
			File:  file,
			Model: c.model,
		}
		if opts.Language != "" {
			params.Language = param.NewOpt(opts.Language)
		}
		resp, err := c.client.Audio.Transcriptions.New(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("openai: transcribe: %w", err)
		}
		text = resp.Text
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	return []engine.Segment{{
		Text:  text,
		Start: 0,
		End:   float64(len(samples)) / config.SampleRate,
	}}, nil
}

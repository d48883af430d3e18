// Package whisperhttp implements the Engine interface against a running
// whisper-server binary, which exposes batch inference at POST /inference.
//
// The window is wrapped in a WAV container and submitted as multipart
// form-data. whisper-server reports neither per-segment timings nor a
// confidence score, so the adapter synthesises a single segment spanning the
// whole window and leaves confidence unreported.
package whisperhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/streamscribe/streamscribe/internal/audio"
	"github.com/streamscribe/streamscribe/internal/config"
	"github.com/streamscribe/streamscribe/internal/engine"
)

// Compile-time assertion that Client satisfies engine.Engine.
var _ engine.Engine = (*Client)(nil)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithModel sets the model identifier forwarded to whisper-server (e.g.,
// "base.en", "small"). When empty the server uses whichever model it was
// started with — this is the default.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithHTTPClient replaces the HTTP client, e.g. to adjust the timeout or to
// point at an httptest server transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// Client talks to a whisper-server instance. Safe for concurrent use.
type Client struct {
	serverURL  string
	model      string
	httpClient *http.Client
}

// New creates a Client for the whisper-server at serverURL (e.g.,
// "http://localhost:8080"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Client, error) {
	if serverURL == "" {
		return nil, errors.New("whisperhttp: serverURL must not be empty")
	}
	c := &Client{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Name implements engine.Engine.
func (c *Client) Name() string { return "whisper-server" }

// Transcribe encodes samples as WAV, POSTs them to /inference, and returns
// the result as a single segment spanning the window. An empty transcript
// yields zero segments.
func (c *Client) Transcribe(ctx context.Context, samples []float32, opts engine.Options) ([]engine.Segment, error) {
	if len(samples) == 0 {
		return nil, nil
	}

	body, contentType, err := c.buildRequestBody(samples, opts)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/inference", body)
	if err != nil {
		return nil, fmt.Errorf("whisperhttp: create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisperhttp: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("whisperhttp: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("whisperhttp: read response body: %w", err)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("whisperhttp: parse JSON response: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return nil, nil
	}
	return []engine.Segment{{
		Text:  text,
		Start: 0,
		End:   float64(len(samples)) / config.SampleRate,
	}}, nil
}

// buildRequestBody assembles the multipart form: the WAV file plus the
// optional language, translate, and model hint fields.
func (c *Client) buildRequestBody(samples []float32, opts engine.Options) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, "", fmt.Errorf("whisperhttp: create form file: %w", err)
	}
	if _, err := fw.Write(audio.EncodeWAV(samples, config.SampleRate)); err != nil {
		return nil, "", fmt.Errorf("whisperhttp: write wav data: %w", err)
	}

	if opts.Language != "" {
		if err := mw.WriteField("language", opts.Language); err != nil {
			return nil, "", fmt.Errorf("whisperhttp: write language field: %w", err)
		}
	}
	if opts.Task == engine.TaskTranslate {
		if err := mw.WriteField("translate", "true"); err != nil {
			return nil, "", fmt.Errorf("whisperhttp: write translate field: %w", err)
		}
	}
	if c.model != "" {
		if err := mw.WriteField("model", c.model); err != nil {
			return nil, "", fmt.Errorf("whisperhttp: write model field: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("whisperhttp: close multipart writer: %w", err)
	}
	return &body, mw.FormDataContentType(), nil
}

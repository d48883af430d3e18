package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/sync/semaphore"

	"github.com/streamscribe/streamscribe/internal/audio"
	"github.com/streamscribe/streamscribe/internal/config"
	"github.com/streamscribe/streamscribe/internal/engine"
	"github.com/streamscribe/streamscribe/internal/filter"
	"github.com/streamscribe/streamscribe/internal/observe"
	"github.com/streamscribe/streamscribe/internal/session"
	"github.com/streamscribe/streamscribe/internal/vad"
)

// maxFrameBytes bounds incoming WebSocket frames. Two seconds of float32 PCM
// is 128 KiB; anything far beyond that is a misbehaving client.
const maxFrameBytes = 1 << 20

// Handler serves the /ws endpoint. One Handler is shared by all connections;
// the engine concurrency limit lives here so every session draws from the
// same pool.
type Handler struct {
	cfg      *config.Config
	eng      engine.Engine
	detector *vad.Detector
	filter   *filter.Filter
	registry *session.Registry
	sem      *semaphore.Weighted
	metrics  *observe.Metrics
	params   audio.Params
}

// NewHandler creates the WebSocket handler.
func NewHandler(cfg *config.Config, eng engine.Engine, registry *session.Registry, metrics *observe.Metrics) *Handler {
	return &Handler{
		cfg:      cfg,
		eng:      eng,
		detector: vad.New(cfg.VAD),
		filter:   filter.New(cfg.Filter),
		registry: registry,
		sem:      semaphore.NewWeighted(int64(cfg.Engine.MaxConcurrent)),
		metrics:  metrics,
		params: audio.Params{
			WindowSamples:  audio.SamplesForMs(config.SampleRate, cfg.Audio.ProcessingWindowMs),
			MinSamples:     audio.SamplesForMs(config.SampleRate, cfg.Audio.MinProcessingMs),
			OverlapSamples: audio.SamplesForMs(config.SampleRate, cfg.Audio.OverlapMs),
			Debounce:       time.Duration(cfg.Audio.DebounceMs) * time.Millisecond,
			StallTimeout:   time.Duration(cfg.Audio.StallTimeoutMs) * time.Millisecond,
		},
	}
}

// ServeHTTP upgrades the request and runs the connection until the client
// disconnects or the server shuts down.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Warn("websocket accept failed", "error", err, "remote", r.RemoteAddr)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxFrameBytes)

	sess := session.New(h.cfg.Session)
	log := slog.With("session_id", sess.ID(), "remote", r.RemoteAddr)
	log.Info("session opened")

	h.registry.Add(sess)
	h.metrics.ActiveSessions.Add(r.Context(), 1)
	defer func() {
		h.registry.Remove(sess)
		h.metrics.ActiveSessions.Add(context.Background(), -1)
		log.Info("session closed")
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	buf := audio.NewBuffer(h.params, time.Now())
	writer := &connWriter{conn: conn}
	pl := newPipeline(buf, sess, h.detector, h.filter, h.eng, h.sem,
		h.cfg.Engine.Timeout(), h.metrics, writer, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		pl.run(ctx)
	}()
	defer wg.Wait()

	h.readLoop(ctx, conn, writer, sess, buf, pl, log)
	cancel()
	conn.Close(websocket.StatusNormalClosure, "")
}

// readLoop dispatches incoming frames until the connection errors or closes.
// Binary frames are PCM audio; text frames are control messages. A malformed
// frame is dropped with a warning, never a disconnect.
func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, writer *connWriter, sess *session.Session, buf *audio.Buffer, pl *pipeline, log *slog.Logger) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return
			}
			if ctx.Err() == nil {
				log.Debug("websocket read ended", "error", err)
			}
			return
		}

		switch typ {
		case websocket.MessageBinary:
			samples, err := audio.DecodePCM(data)
			if err != nil {
				log.Warn("dropping malformed audio frame", "error", err)
				continue
			}
			buf.Append(samples)
			pl.wake()

		case websocket.MessageText:
			h.handleControl(ctx, writer, sess, data, log)
		}
	}
}

// handleControl applies the fields present in one JSON control message and
// echoes the resulting session state. Malformed messages are logged and
// ignored; the client sees no error frames, only the absence of an echo.
func (h *Handler) handleControl(ctx context.Context, writer *connWriter, sess *session.Session, data []byte, log *slog.Logger) {
	var msg ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Warn("ignoring malformed control message", "error", err)
		return
	}

	if msg.Mode != "" {
		mode := session.Mode(msg.Mode)
		if mode.IsValid() {
			sess.SetMode(mode)
			log.Info("mode changed", "mode", mode)
		} else {
			log.Warn("ignoring unknown mode", "mode", msg.Mode)
		}
	}
	if msg.TranscriptionLanguage != "" {
		sess.SetLanguage(msg.TranscriptionLanguage)
		log.Info("language changed", "language", msg.TranscriptionLanguage)
	}

	echo := ModeSet{
		Type:                  TypeModeSet,
		Mode:                  string(sess.Mode()),
		TranscriptionLanguage: sess.Language(),
	}
	if err := writer.writeJSON(ctx, echo); err != nil {
		log.Debug("control echo failed", "error", err)
	}
}

// connWriter serialises all writes to one connection: the pipeline emits
// segments while the read loop echoes control acknowledgements.
type connWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// WriteSegment implements SegmentWriter.
func (w *connWriter) WriteSegment(ctx context.Context, t Transcription) error {
	return w.writeJSON(ctx, t)
}

func (w *connWriter) writeJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("gateway: marshal message: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.Write(ctx, websocket.MessageText, data)
}


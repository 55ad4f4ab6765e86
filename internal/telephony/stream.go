package telephony

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"fareast/internal/monitoring"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Twilio media stream event names
const (
	EventConnected = "connected"
	EventStart     = "start"
	EventMedia     = "media"
	EventMark      = "mark"
	EventStop      = "stop"
)

// StreamEvent is one message Twilio sends on a media stream
type StreamEvent struct {
	Event          string       `json:"event"`
	SequenceNumber string       `json:"sequenceNumber,omitempty"`
	StreamSID      string       `json:"streamSid,omitempty"`
	Start          *StartInfo   `json:"start,omitempty"`
	Media          *MediaChunk  `json:"media,omitempty"`
	Stop           *StopInfo    `json:"stop,omitempty"`
	Mark           *MarkPayload `json:"mark,omitempty"`
}

// StartInfo describes the stream and the call behind it
type StartInfo struct {
	AccountSID       string            `json:"accountSid"`
	StreamSID        string            `json:"streamSid"`
	CallSID          string            `json:"callSid"`
	Tracks           []string          `json:"tracks"`
	CustomParameters map[string]string `json:"customParameters"`
	MediaFormat      struct {
		Encoding   string `json:"encoding"`
		SampleRate int    `json:"sampleRate"`
		Channels   int    `json:"channels"`
	} `json:"mediaFormat"`
}

// MediaChunk is a base64 audio frame
type MediaChunk struct {
	Track     string `json:"track"`
	Chunk     string `json:"chunk"`
	Timestamp string `json:"timestamp"`
	Payload   string `json:"payload"`
}

// StopInfo is sent when the stream ends
type StopInfo struct {
	AccountSID string `json:"accountSid"`
	CallSID    string `json:"callSid"`
}

// MarkPayload names a playback marker
type MarkPayload struct {
	Name string `json:"name"`
}

// StreamStart is what a handler learns when a call's stream begins
type StreamStart struct {
	StreamSID string
	CallSID   string
	Encoding  string
	Params    map[string]string
}

// CallSIDFrom returns the call SID passed as a stream parameter, or the one
// Twilio reports for the stream when the parameter is missing
func (s *StartInfo) CallSIDFrom() string {
	if s == nil {
		return ""
	}
	if sid := s.CustomParameters[CallSIDParameter]; sid != "" {
		return sid
	}
	return s.CallSID
}

// StreamHandler follows calls as their media streams start, carry audio and stop
type StreamHandler interface {
	OnStart(ctx context.Context, start StreamStart)
	OnMedia(ctx context.Context, streamSID string, audio []byte)
	OnStop(ctx context.Context, streamSID string)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // Twilio does not send an Origin we could check
	},
}

const streamReadTimeout = 60 * time.Second

// MediaStream receives Twilio media streams
type MediaStream struct {
	handler StreamHandler
	metrics *monitoring.MetricsCollector
	logger  *zap.SugaredLogger
}

// NewMediaStream creates the media stream endpoint
func NewMediaStream(handler StreamHandler, metrics *monitoring.MetricsCollector, logger *zap.SugaredLogger) *MediaStream {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if metrics == nil {
		metrics = monitoring.NewMetricsCollector()
	}
	return &MediaStream{handler: handler, metrics: metrics, logger: logger}
}

// HandleStream upgrades Twilio's request and reads stream events until the
// stream stops or the connection drops
func (m *MediaStream) HandleStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		m.logger.Warnw("Failed to upgrade media stream", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	streamSID := ""
	defer func() {
		if streamSID != "" {
			m.handler.OnStop(ctx, streamSID)
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				m.logger.Warnw("Media stream closed", "stream_sid", streamSID, "error", err)
			}
			return
		}

		var event StreamEvent
		if err := json.Unmarshal(data, &event); err != nil {
			m.logger.Debugw("Ignoring malformed stream frame", "error", err)
			continue
		}

		switch event.Event {
		case EventConnected:
			m.logger.Debugw("Media stream connected")

		case EventStart:
			if event.Start == nil {
				continue
			}
			streamSID = event.StreamSID
			if streamSID == "" {
				streamSID = event.Start.StreamSID
			}
			start := StreamStart{
				StreamSID: streamSID,
				CallSID:   event.Start.CallSIDFrom(),
				Encoding:  event.Start.MediaFormat.Encoding,
				Params:    event.Start.CustomParameters,
			}
			m.logger.Infow("Media stream started", "stream_sid", streamSID, "call_sid", start.CallSID)
			m.handler.OnStart(ctx, start)

		case EventMedia:
			if event.Media == nil || streamSID == "" {
				continue
			}
			audio, err := base64.StdEncoding.DecodeString(event.Media.Payload)
			if err != nil {
				continue
			}
			m.metrics.RecordMediaFrame()
			m.handler.OnMedia(ctx, streamSID, audio)

		case EventStop:
			m.logger.Infow("Media stream stopped", "stream_sid", streamSID)
			return
		}
	}
}

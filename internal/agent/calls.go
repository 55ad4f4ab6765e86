package agent

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"fareast/internal/telephony"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

// Call is a live phone call
type Call struct {
	StreamSID  string
	Tools      *CallTools
	StartedAt  time.Time
	Frames     int
	AudioBytes int
}

// Calls tracks live calls by stream SID and gives each one its own tools.
// It follows the telephony media streams and serves tool calls made by the
// speech agent bridged to each call.
type Calls struct {
	submitter Submitter
	hangUpper HangUpper
	logger    *zap.SugaredLogger

	mu    sync.RWMutex
	calls map[string]*Call
}

var _ telephony.StreamHandler = (*Calls)(nil)

// NewCalls creates an empty registry
func NewCalls(submitter Submitter, hangUpper HangUpper, logger *zap.SugaredLogger) *Calls {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Calls{
		submitter: submitter,
		hangUpper: hangUpper,
		logger:    logger,
		calls:     make(map[string]*Call),
	}
}

// OnStart registers the call and records its call SID
func (c *Calls) OnStart(_ context.Context, start telephony.StreamStart) {
	tools := NewCallTools(c.submitter, c.hangUpper)
	tools.SetCallSID(start.CallSID)

	c.mu.Lock()
	c.calls[start.StreamSID] = &Call{
		StreamSID: start.StreamSID,
		Tools:     tools,
		StartedAt: time.Now(),
	}
	c.mu.Unlock()

	if start.CallSID == "" {
		c.logger.Warnw("Call started without a call SID", "stream_sid", start.StreamSID)
	}
}

// OnMedia accounts for an inbound audio frame
func (c *Calls) OnMedia(_ context.Context, streamSID string, audio []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if call, ok := c.calls[streamSID]; ok {
		call.Frames++
		call.AudioBytes += len(audio)
	}
}

// OnStop forgets the call
func (c *Calls) OnStop(_ context.Context, streamSID string) {
	c.mu.Lock()
	call, ok := c.calls[streamSID]
	delete(c.calls, streamSID)
	c.mu.Unlock()

	if ok {
		c.logger.Infow("Call finished",
			"stream_sid", streamSID,
			"call_sid", call.Tools.CallSID(),
			"frames", call.Frames,
			"duration", time.Since(call.StartedAt).Round(time.Second),
		)
	}
}

// Get returns a copy of the live call for streamSID
func (c *Calls) Get(streamSID string) (Call, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	call, ok := c.calls[streamSID]
	if !ok {
		return Call{}, false
	}
	return *call, true
}

// Len returns the number of live calls
func (c *Calls) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.calls)
}

// ToolCallResponse is the body returned by HandleToolCall
type ToolCallResponse struct {
	Output string `json:"output"`
}

// HandleToolCall runs the tool named in the path for the call's stream.
// The request body holds the tool's JSON arguments.
func (c *Calls) HandleToolCall(g *gin.Context) {
	call, ok := c.Get(g.Param("streamSid"))
	if !ok {
		g.JSON(http.StatusNotFound, gin.H{"error": "Call not found"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(g.Request.Body, 1<<20))
	if err != nil {
		g.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	args := string(body)
	if args == "" {
		args = "{}"
	}

	result := Dispatch(g.Request.Context(), call.Tools, llms.ToolCall{
		ID:   uuid.NewString(),
		Type: "function",
		FunctionCall: &llms.FunctionCall{
			Name:      g.Param("tool"),
			Arguments: args,
		},
	})
	c.logger.Infow("Tool called", "stream_sid", call.StreamSID, "tool", result.Name, "output", result.Content)
	g.JSON(http.StatusOK, ToolCallResponse{Output: result.Content})
}

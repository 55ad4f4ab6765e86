package telephony

import (
	"context"
	"fmt"
	"time"

	"fareast/internal/monitoring"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// DefaultGrace lets the goodbye finish playing before the line drops
const DefaultGrace = 5 * time.Second

// Replies returned to the agent by HangUp
const (
	ReplyNoCallID   = "Could not end call - no call ID"
	ReplyFailed     = "Failed to end call"
	ReplyCallEnded  = "Call ended successfully"
	callStatusEnded = "completed"
)

// Controller ends calls at the telephony provider
type Controller interface {
	Complete(ctx context.Context, callSID string) error
}

// TwilioController ends calls through the Twilio REST API
type TwilioController struct {
	client *twilio.RestClient
}

// NewTwilioController creates a controller authenticated with the account
// SID and auth token
func NewTwilioController(accountSID, authToken string) *TwilioController {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioController{client: client}
}

// Complete marks the call completed, which hangs it up
func (t *TwilioController) Complete(ctx context.Context, callSID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &openapi.UpdateCallParams{}
	params.SetStatus(callStatusEnded)
	if _, err := t.client.Api.UpdateCall(callSID, params); err != nil {
		return fmt.Errorf("failed to complete call %s: %w", callSID, err)
	}
	return nil
}

// Terminator hangs up a call on the agent's behalf after a grace period
type Terminator struct {
	controller Controller
	grace      time.Duration
	metrics    *monitoring.MetricsCollector
	logger     *zap.SugaredLogger
}

// NewTerminator creates a terminator. A negative grace means DefaultGrace.
func NewTerminator(controller Controller, grace time.Duration, metrics *monitoring.MetricsCollector, logger *zap.SugaredLogger) *Terminator {
	if grace < 0 {
		grace = DefaultGrace
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if metrics == nil {
		metrics = monitoring.NewMetricsCollector()
	}
	return &Terminator{
		controller: controller,
		grace:      grace,
		metrics:    metrics,
		logger:     logger,
	}
}

// HangUp waits out the grace period and then ends the call. It always
// returns a reply for the agent; failures never escape as errors.
func (t *Terminator) HangUp(ctx context.Context, callSID string) string {
	t.logger.Infow("Agent requested hang up", "call_sid", callSID, "grace", t.grace)

	if t.grace > 0 {
		timer := time.NewTimer(t.grace)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			t.metrics.RecordHangUp("cancelled")
			t.logger.Warnw("Hang up abandoned", "call_sid", callSID, "error", ctx.Err())
			return ReplyFailed
		}
	}

	if callSID == "" {
		t.metrics.RecordHangUp("no_call_id")
		t.logger.Errorw("No call SID available for hang up")
		return ReplyNoCallID
	}

	if err := t.controller.Complete(ctx, callSID); err != nil {
		t.metrics.RecordHangUp("failed")
		t.logger.Errorw("Failed to hang up", "call_sid", callSID, "error", err)
		return ReplyFailed
	}

	t.metrics.RecordHangUp("completed")
	t.logger.Infow("Call ended", "call_sid", callSID)
	return ReplyCallEnded
}

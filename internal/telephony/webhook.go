// Package telephony talks to Twilio: it answers the incoming-call webhook,
// receives the call's media stream and hangs calls up.
package telephony

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/twiml"
	"go.uber.org/zap"
)

// StreamPath is where Twilio opens the call's media stream
const StreamPath = "/media-stream"

// CallSIDParameter names the stream parameter carrying the call SID
const CallSIDParameter = "callSid"

// StreamURL returns the wss URL Twilio should stream to for publicHost,
// which may be a bare host or a URL
func StreamURL(publicHost string) string {
	host := strings.TrimSpace(publicHost)
	if u, err := url.Parse(host); err == nil && u.Host != "" {
		host = u.Host
	}
	host = strings.TrimSuffix(host, "/")
	return fmt.Sprintf("wss://%s%s", host, StreamPath)
}

// IncomingCallTwiML answers a call by connecting it to a bidirectional media
// stream that carries the call SID as a parameter
func IncomingCallTwiML(streamURL, callSID string) (string, error) {
	stream := &twiml.VoiceStream{
		Url: streamURL,
		InnerElements: []twiml.Element{
			&twiml.VoiceParameter{Name: CallSIDParameter, Value: callSID},
		},
	}
	connect := &twiml.VoiceConnect{
		InnerElements: []twiml.Element{stream},
	}
	return twiml.Voice([]twiml.Element{connect})
}

// Webhook answers Twilio's incoming-call request
type Webhook struct {
	publicHost string
	logger     *zap.SugaredLogger
}

// NewWebhook creates the incoming-call handler
func NewWebhook(publicHost string, logger *zap.SugaredLogger) *Webhook {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Webhook{publicHost: publicHost, logger: logger}
}

// HandleIncomingCall responds with TwiML that streams the call here
func (w *Webhook) HandleIncomingCall(c *gin.Context) {
	callSID := c.PostForm("CallSid")
	w.logger.Infow("Incoming call", "call_sid", callSID, "from", c.PostForm("From"))

	host := w.publicHost
	if host == "" {
		host = c.Request.Host
	}

	body, err := IncomingCallTwiML(StreamURL(host), callSID)
	if err != nil {
		w.logger.Errorw("Failed to build TwiML", "call_sid", callSID, "error", err)
		c.String(http.StatusInternalServerError, "failed to answer call")
		return
	}
	c.Data(http.StatusOK, "text/xml", []byte(body))
}

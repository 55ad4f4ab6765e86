// Package agent connects the ordering conversation to the restaurant: the
// tools the language model may call, the prompt it works from and the
// per-call state those tools need.
package agent

import (
	"context"
	"math"
	"sync"

	"fareast/internal/orders"
)

// Capability is what the conversation can do on a call
type Capability interface {
	SubmitOrder(ctx context.Context, args SubmitOrderArgs) string
	HangUp(ctx context.Context) string
}

// Submitter places orders
type Submitter interface {
	Submit(ctx context.Context, req orders.SubmitRequest) string
}

// HangUpper ends calls
type HangUpper interface {
	HangUp(ctx context.Context, callSID string) string
}

// SubmitOrderArgs are the submit_order tool arguments
type SubmitOrderArgs struct {
	PhoneNumber string     `json:"phoneNumber"`
	Items       []ItemArgs `json:"items"`
	Notes       string     `json:"notes,omitempty"`
	TotalPrice  float64    `json:"totalPrice"`
}

// ItemArgs is one ordered item. Quantity is decoded as a number so "2.0"
// from the model still reads as two.
type ItemArgs struct {
	Name          string  `json:"name"`
	Quantity      float64 `json:"quantity"`
	Size          string  `json:"size,omitempty"`
	Price         float64 `json:"price"`
	Modifications string  `json:"modifications,omitempty"`
}

// Request converts the tool arguments into a pipeline request
func (a SubmitOrderArgs) Request(callSID string) orders.SubmitRequest {
	items := make([]orders.SubmitItem, 0, len(a.Items))
	for _, item := range a.Items {
		items = append(items, orders.SubmitItem{
			Name:          item.Name,
			Quantity:      int(math.Round(item.Quantity)),
			Size:          item.Size,
			Price:         item.Price,
			Modifications: item.Modifications,
		})
	}
	return orders.SubmitRequest{
		PhoneNumber: a.PhoneNumber,
		Items:       items,
		Notes:       a.Notes,
		TotalPrice:  a.TotalPrice,
		CallSID:     callSID,
	}
}

// CallTools is the capability of a single call. The call SID arrives with
// the stream's start event, possibly after the tools were created.
type CallTools struct {
	submitter Submitter
	hangUpper HangUpper

	mu      sync.RWMutex
	callSID string
}

// NewCallTools creates the tools for one call
func NewCallTools(submitter Submitter, hangUpper HangUpper) *CallTools {
	return &CallTools{submitter: submitter, hangUpper: hangUpper}
}

// SetCallSID records the call SID
func (t *CallTools) SetCallSID(sid string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.callSID = sid
}

// CallSID returns the call SID, empty if it was never captured
func (t *CallTools) CallSID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.callSID
}

// SubmitOrder places the order through the pipeline
func (t *CallTools) SubmitOrder(ctx context.Context, args SubmitOrderArgs) string {
	return t.submitter.Submit(ctx, args.Request(t.CallSID()))
}

// HangUp ends the call this tool set belongs to
func (t *CallTools) HangUp(ctx context.Context) string {
	return t.hangUpper.HangUp(ctx, t.CallSID())
}

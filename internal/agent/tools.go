package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// Tool names exposed to the model
const (
	ToolSubmitOrder = "submit_order"
	ToolHangUpCall  = "hang_up_call"
)

var submitOrderSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"phoneNumber": map[string]any{
			"type":        "string",
			"description": "Customer phone number for the order",
		},
		"items": map[string]any{
			"type":        "array",
			"description": "Ordered items, each named exactly as on the menu",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]any{
						"type":        "string",
						"description": "Menu item name",
					},
					"quantity": map[string]any{
						"type":        "integer",
						"description": "How many of this item",
					},
					"size": map[string]any{
						"type":        "string",
						"description": "Pt, Qt, or the option chosen for specialties",
					},
					"price": map[string]any{
						"type":        "number",
						"description": "Unit price after substitutions and extras",
					},
					"modifications": map[string]any{
						"type":        "string",
						"description": "Substitutions, extras and special instructions",
					},
				},
				"required": []string{"name", "quantity", "price"},
			},
		},
		"notes": map[string]any{
			"type":        "string",
			"description": "Notes for the whole order",
		},
		"totalPrice": map[string]any{
			"type":        "number",
			"description": "Grand total quoted to the customer",
		},
	},
	"required": []string{"phoneNumber", "items", "totalPrice"},
}

// Tools returns the tool definitions offered to the model
func Tools() []llms.Tool {
	return []llms.Tool{
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name: ToolSubmitOrder,
				Description: "Submit the order to the kitchen. Call this once, after the customer " +
					"confirmed the order and gave a phone number. Put any change to a menu item " +
					"in that item's modifications.",
				Parameters: submitOrderSchema,
			},
		},
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name: ToolHangUpCall,
				Description: "End the phone call. Only after the order was submitted, the pickup " +
					"time was given and the customer heard goodbye.",
				Parameters: map[string]any{
					"type":       "object",
					"properties": map[string]any{},
				},
			},
		},
	}
}

// Dispatch runs a tool call against capability. Every outcome, including bad
// arguments and unknown tools, comes back as text for the model.
func Dispatch(ctx context.Context, capability Capability, call llms.ToolCall) llms.ToolCallResponse {
	resp := llms.ToolCallResponse{ToolCallID: call.ID}
	if call.FunctionCall == nil {
		resp.Content = "No function was called"
		return resp
	}
	resp.Name = call.FunctionCall.Name

	switch call.FunctionCall.Name {
	case ToolSubmitOrder:
		var args SubmitOrderArgs
		if err := json.Unmarshal([]byte(call.FunctionCall.Arguments), &args); err != nil {
			resp.Content = fmt.Sprintf("Could not submit order: invalid arguments: %v", err)
			return resp
		}
		resp.Content = capability.SubmitOrder(ctx, args)

	case ToolHangUpCall:
		resp.Content = capability.HangUp(ctx)

	default:
		resp.Content = fmt.Sprintf("Unknown tool: %s", call.FunctionCall.Name)
	}
	return resp
}

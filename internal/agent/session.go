package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

// DefaultMaxToolRounds bounds how many tool exchanges one customer turn may take
const DefaultMaxToolRounds = 4

// ErrTooManyToolRounds is returned when the model keeps calling tools
var ErrTooManyToolRounds = errors.New("model did not answer after tool calls")

// Generator produces the next assistant message. Any langchaingo llms.Model
// satisfies it.
type Generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// ToolResult records a tool call made during a session
type ToolResult struct {
	Name      string
	Arguments string
	Output    string
}

// Session is one text conversation with the ordering assistant
type Session struct {
	generator  Generator
	capability Capability
	history    []llms.MessageContent
	maxRounds  int
	results    []ToolResult
	logger     *zap.SugaredLogger
}

// NewSession starts a conversation with the given system prompt
func NewSession(generator Generator, capability Capability, instructions string, maxRounds int, logger *zap.SugaredLogger) *Session {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxToolRounds
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Session{
		generator:  generator,
		capability: capability,
		history: []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, instructions),
		},
		maxRounds: maxRounds,
		logger:    logger,
	}
}

// Start makes the assistant open the call
func (s *Session) Start(ctx context.Context) (string, error) {
	return s.Say(ctx, Greeting)
}

// Say sends a customer turn and returns the assistant's reply, running any
// tools the model asks for along the way
func (s *Session) Say(ctx context.Context, text string) (string, error) {
	s.history = append(s.history, llms.TextParts(llms.ChatMessageTypeHuman, text))

	for round := 0; round <= s.maxRounds; round++ {
		resp, err := s.generator.GenerateContent(ctx, s.history, llms.WithTools(Tools()))
		if err != nil {
			return "", fmt.Errorf("failed to generate reply: %w", err)
		}
		if resp == nil || len(resp.Choices) == 0 {
			return "", fmt.Errorf("empty response from model")
		}

		choice := resp.Choices[0]
		if len(choice.ToolCalls) == 0 {
			s.history = append(s.history, llms.TextParts(llms.ChatMessageTypeAI, choice.Content))
			return choice.Content, nil
		}

		if round == s.maxRounds {
			break
		}

		assistant := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		if choice.Content != "" {
			assistant.Parts = append(assistant.Parts, llms.TextContent{Text: choice.Content})
		}
		for _, call := range choice.ToolCalls {
			assistant.Parts = append(assistant.Parts, call)
		}
		s.history = append(s.history, assistant)

		for _, call := range choice.ToolCalls {
			result := Dispatch(ctx, s.capability, call)
			args := ""
			if call.FunctionCall != nil {
				args = call.FunctionCall.Arguments
			}
			s.results = append(s.results, ToolResult{Name: result.Name, Arguments: args, Output: result.Content})
			s.logger.Infow("Tool called", "tool", result.Name, "output", result.Content)

			s.history = append(s.history, llms.MessageContent{
				Role:  llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{result},
			})
		}
	}

	return "", ErrTooManyToolRounds
}

// ToolResults returns the tool calls made so far
func (s *Session) ToolResults() []ToolResult {
	return append([]ToolResult(nil), s.results...)
}

// History returns the conversation so far, system prompt first
func (s *Session) History() []llms.MessageContent {
	return append([]llms.MessageContent(nil), s.history...)
}

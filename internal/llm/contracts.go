// Package llm defines the chat contract the pipeline depends on: multi-turn
// messages, strict-JSON mode, and tool calls, plus the bounded tool-call
// loop. Transport implementations live in subpackages.
package llm

import (
	"context"
	"errors"
)

// Failure categories; transports wrap their errors with one of these so
// operators can tell a refused connection from a timeout from a bad model.
var (
	ErrConnection    = errors.New("llm: connection failed")
	ErrTimeout       = errors.New("llm: request timed out")
	ErrModelNotFound = errors.New("llm: model not found")
)

// Message is one chat turn.
type Message struct {
	Role       string     `json:"role"` // system | user | assistant | tool
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall is a model-requested function invocation.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"` // "function"
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the tool name and raw JSON arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDef declares a callable tool to the model.
type ToolDef struct {
	Type     string      `json:"type"` // "function"
	Function FunctionDef `json:"function"`
}

// FunctionDef is the declared name/description/parameter schema.
type FunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ChatRequest is one round trip: messages in, one assistant message out.
type ChatRequest struct {
	Messages []Message
	Tools    []ToolDef
	JSONMode bool // request a strict-JSON object response
}

// ChatClient is the transport interface. One call, one assistant reply;
// the reply may carry tool calls instead of content.
type ChatClient interface {
	Chat(ctx context.Context, req ChatRequest) (Message, error)
}

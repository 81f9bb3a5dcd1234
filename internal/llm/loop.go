package llm

import (
	"context"
	"fmt"
	"log/slog"
)

// MaxToolIterations bounds the tool loop; exceeding it is fatal for the
// call, never silently truncated.
const MaxToolIterations = 3

// ToolExecutor runs one tool call and returns the JSON result envelope.
// Handler failures are returned inside the envelope, not as an error; the
// error return is reserved for unknown tools and protocol breakage.
type ToolExecutor interface {
	Execute(ctx context.Context, call ToolCall) (string, error)
}

// RunToolLoop drives the turn-based tool protocol: send messages and tool
// declarations, execute any tool calls in the reply, append the synthetic
// tool turns, repeat. A reply with no tool calls terminates the loop.
// Returns the final assistant message, the full transcript, and whether any
// tool was invoked along the way.
func RunToolLoop(ctx context.Context, client ChatClient, req ChatRequest, exec ToolExecutor, logger *slog.Logger) (Message, []Message, bool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	messages := req.Messages
	toolUsed := false

	for iter := 1; iter <= MaxToolIterations; iter++ {
		reply, err := client.Chat(ctx, ChatRequest{
			Messages: messages,
			Tools:    req.Tools,
			JSONMode: req.JSONMode,
		})
		if err != nil {
			return Message{}, messages, toolUsed, err
		}

		if len(reply.ToolCalls) == 0 {
			messages = append(messages, reply)
			return reply, messages, toolUsed, nil
		}

		toolUsed = true
		messages = append(messages, reply)
		for _, call := range reply.ToolCalls {
			logger.Debug("llm.tool.call", "iter", iter, "tool", call.Function.Name)
			result, err := exec.Execute(ctx, call)
			if err != nil {
				return Message{}, messages, toolUsed, fmt.Errorf("execute tool %q: %w", call.Function.Name, err)
			}
			messages = append(messages, Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: call.ID,
				Name:       call.Function.Name,
			})
		}
	}

	return Message{}, messages, toolUsed, fmt.Errorf("tool loop exceeded %d iterations", MaxToolIterations)
}

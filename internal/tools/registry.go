// Package tools declares the functions the model may call mid-conversation
// and executes them. Handler failures never propagate: the model sees an
// error envelope and the loop keeps its turn order.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/paperlens/docparse/internal/llm"
	"github.com/paperlens/docparse/internal/repository"
)

// Handler executes one tool call from raw JSON arguments. The returned
// value is marshaled into the tool-result turn.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Tool couples a wire declaration with its handler.
type Tool struct {
	Def     llm.ToolDef
	Handler Handler
}

// Registry is read-only after construction.
type Registry struct {
	tools  map[string]Tool
	usage  repository.ToolUsageLog
	logger *slog.Logger
}

func NewRegistry(usage repository.ToolUsageLog, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{tools: make(map[string]Tool), usage: usage, logger: logger}
}

// Register adds a tool. Registering twice under one name is a wiring bug.
func (r *Registry) Register(t Tool) error {
	name := t.Def.Function.Name
	if name == "" {
		return fmt.Errorf("tool has no name")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = t
	return nil
}

// Defs returns the wire declarations for a chat request.
func (r *Registry) Defs() []llm.ToolDef {
	defs := make([]llm.ToolDef, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Def)
	}
	return defs
}

// ForDocument binds the registry to one document for usage logging.
func (r *Registry) ForDocument(docID uuid.UUID) *DocumentExecutor {
	return &DocumentExecutor{registry: r, docID: docID}
}

// DocumentExecutor implements llm.ToolExecutor for one document.
type DocumentExecutor struct {
	registry *Registry
	docID    uuid.UUID
}

// Execute runs the named tool. Handler errors and panics are converted to
// an error envelope returned to the model; every call is appended to the
// usage log with its outcome and duration.
func (e *DocumentExecutor) Execute(ctx context.Context, call llm.ToolCall) (result string, err error) {
	r := e.registry
	start := time.Now()
	name := call.Function.Name
	args := json.RawMessage(call.Function.Arguments)

	success := false
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool.panic", "tool", name, "panic", rec)
			result = errorEnvelope(fmt.Sprintf("tool %s panicked", name))
			err = nil
		}
		e.record(ctx, name, args, result, success, time.Since(start))
	}()

	t, ok := r.tools[name]
	if !ok {
		return errorEnvelope(fmt.Sprintf("unknown tool %q", name)), nil
	}

	out, herr := t.Handler(ctx, args)
	if herr != nil {
		r.logger.Warn("tool.handler_error", "tool", name, "error", herr)
		return errorEnvelope(herr.Error()), nil
	}

	b, merr := json.Marshal(out)
	if merr != nil {
		r.logger.Error("tool.marshal_error", "tool", name, "error", merr)
		return errorEnvelope("tool result could not be encoded"), nil
	}
	success = true
	return string(b), nil
}

func (e *DocumentExecutor) record(ctx context.Context, name string, args json.RawMessage, result string, success bool, elapsed time.Duration) {
	r := e.registry
	if r.usage == nil {
		return
	}
	if err := r.usage.Append(ctx, repository.ToolUsage{
		DocumentID: e.docID,
		Tool:       name,
		Args:       args,
		Result:     json.RawMessage(result),
		Success:    success,
		Duration:   elapsed,
	}); err != nil {
		r.logger.Warn("tool.usage_log_failed", "tool", name, "error", err)
	}
}

// errorEnvelope keeps the retrieval tool's wire contract: the model always
// receives {"found": false, ...} on failure.
func errorEnvelope(msg string) string {
	b, _ := json.Marshal(map[string]any{"found": false, "error": msg})
	return string(b)
}

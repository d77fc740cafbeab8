// Package tools defines the capability registry exposed to the authoring
// conversation. Each capability is a pure external lookup: it may be invoked
// zero or more times per conversation and must degrade to an empty or
// negative result on failure so the conversation can continue.
package tools

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/xeipuuv/gojsonschema"
)

// Tool is one capability: a name, an input schema and an executor.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Execute     func(ctx context.Context, input map[string]any) (any, error)
}

// Registry dispatches tool calls by name.
type Registry struct {
	tools  map[string]Tool
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logger,
	}
}

// Register adds a tool. A duplicate name overwrites the earlier registration.
func (r *Registry) Register(tool Tool) {
	r.tools[tool.Name] = tool
}

// Tools returns the registered tools in no particular order.
func (r *Registry) Tools() []Tool {
	result := make([]Tool, 0, len(r.tools))

	for _, tool := range r.tools {
		result = append(result, tool)
	}

	return result
}

// Execute runs one tool call. Unknown names, schema violations and executor
// failures all degrade to an error payload rather than propagating, so a bad
// call costs the conversation one turn, not the whole exchange.
func (r *Registry) Execute(ctx context.Context, name string, input map[string]any) any {
	tool, exists := r.tools[name]
	if !exists {
		r.logger.WarnContext(ctx, "unknown tool requested", "tool", name)

		return map[string]any{"error": "unknown tool: " + name}
	}

	if len(tool.InputSchema) > 0 {
		result, err := gojsonschema.Validate(
			gojsonschema.NewBytesLoader(tool.InputSchema),
			gojsonschema.NewGoLoader(input),
		)
		if err != nil {
			r.logger.WarnContext(ctx, "tool input schema check failed", "tool", name, "error", err)

			return map[string]any{"error": "invalid input: " + err.Error()}
		}

		if !result.Valid() {
			messages := make([]string, 0, len(result.Errors()))
			for _, desc := range result.Errors() {
				messages = append(messages, desc.String())
			}

			r.logger.WarnContext(ctx, "tool input rejected", "tool", name, "violations", messages)

			return map[string]any{"error": "invalid input", "violations": messages}
		}
	}

	output, err := tool.Execute(ctx, input)
	if err != nil {
		r.logger.WarnContext(ctx, "tool execution failed", "tool", name, "error", err)

		return map[string]any{"error": err.Error()}
	}

	return output
}

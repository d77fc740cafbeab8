package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowsmith/flowsmith/pkg/assistant/tools"
	"github.com/flowsmith/flowsmith/pkg/models"
	"github.com/flowsmith/flowsmith/pkg/otelhelper"
)

// DefaultMaxTurns bounds the tool-calling loop of one authoring exchange.
const DefaultMaxTurns = 15

// ErrNoMessages is returned when a chat request carries no messages; it is
// rejected synchronously, before any backend call.
var ErrNoMessages = errors.New("chat requires at least one message")

// ChatRequest is one authoring exchange: the conversation so far, the
// currently-known definition and the scoping identifiers.
type ChatRequest struct {
	Messages   []models.ChatMessage
	Definition *models.Definition
	Context    RuntimeContext
}

// Orchestrator drives the bounded multi-turn conversation against the
// generative backend. It never writes to storage; its only side effects are
// backend and capability-tool calls.
type Orchestrator struct {
	client   ModelClient
	registry *tools.Registry
	maxTurns int
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewOrchestrator creates an orchestrator. A non-positive maxTurns selects
// DefaultMaxTurns.
func NewOrchestrator(client ModelClient, registry *tools.Registry, maxTurns int, logger *slog.Logger) *Orchestrator {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	return &Orchestrator{
		client:   client,
		registry: registry,
		maxTurns: maxTurns,
		logger:   logger,
		tracer:   otel.Tracer("flowsmith.assistant"),
		now:      time.Now,
	}
}

// Chat runs one authoring exchange. It terminates on the first turn producing
// final text, or at the turn cap with a best-effort reply built from the last
// text seen. Backend failures propagate to the caller untranslated.
func (o *Orchestrator) Chat(ctx context.Context, req ChatRequest) (*models.AssistantReply, error) {
	if len(req.Messages) == 0 {
		return nil, ErrNoMessages
	}

	attrs := []attribute.KeyValue{
		attribute.String(otelhelper.AccountIDKey, req.Context.AccountID),
		attribute.String(otelhelper.SessionIDKey, req.Context.SessionID),
		attribute.String(otelhelper.TemplateIDKey, req.Context.TemplateID),
	}
	if req.Context.OrganizationID != nil {
		attrs = append(attrs, attribute.String(otelhelper.OrganizationIDKey, *req.Context.OrganizationID))
	}

	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "assistant.chat", attrs...)
	defer span.End()

	system := BuildSystemPrompt(req.Definition, req.Context, o.now)

	turns := make([]Turn, 0, len(req.Messages))
	for _, message := range req.Messages {
		turns = append(turns, Turn{Role: string(message.Role), Text: message.Content})
	}

	specs := o.toolSpecs()

	var lastText string

	for turn := range o.maxTurns {
		completion, err := o.client.Complete(ctx, CompletionRequest{
			System:   system,
			Messages: turns,
			Tools:    specs,
		})
		if err != nil {
			err = fmt.Errorf("backend call failed on turn %d: %w", turn+1, err)
			otelhelper.SetError(span, err, attribute.Int(otelhelper.TurnKey, turn+1))

			return nil, err
		}

		if completion.Text != "" {
			lastText = completion.Text
		}

		if len(completion.ToolCalls) == 0 {
			return Interpret(completion.Text, req.Definition), nil
		}

		turns = append(turns, Turn{
			Role:      "assistant",
			Text:      completion.Text,
			ToolCalls: completion.ToolCalls,
		})

		results := make([]ToolResult, 0, len(completion.ToolCalls))

		for _, call := range completion.ToolCalls {
			o.logger.DebugContext(ctx, "executing tool call", "tool", call.Name)

			callCtx, callSpan := otelhelper.StartSpan(ctx, o.tracer, "assistant.tool",
				attribute.String(otelhelper.ToolNameKey, call.Name),
				attribute.Int(otelhelper.TurnKey, turn+1),
			)

			results = append(results, ToolResult{
				ToolCallID: call.ID,
				Content:    o.registry.Execute(callCtx, call.Name, call.Input),
			})

			callSpan.End()
		}

		turns = append(turns, Turn{Role: "user", ToolResults: results})
	}

	o.logger.WarnContext(ctx, "turn cap reached, returning best-effort reply", "max_turns", o.maxTurns)

	return Interpret(lastText, req.Definition), nil
}

func (o *Orchestrator) toolSpecs() []ToolSpec {
	registered := o.registry.Tools()
	specs := make([]ToolSpec, 0, len(registered))

	for _, tool := range registered {
		specs = append(specs, ToolSpec{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}

	return specs
}

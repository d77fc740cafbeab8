package tools

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/flowsmith/flowsmith/pkg/forms"
	"github.com/flowsmith/flowsmith/pkg/shortid"
	"github.com/flowsmith/flowsmith/pkg/validation"
)

// Tool names, as advertised to the generative backend.
const (
	ToolListLinkedForms       = "list-available-linked-forms"
	ToolListFactCatalog       = "list-fact-catalog-for-form"
	ToolGenerateShortID       = "generate-short-id"
	ToolValidateDefinition    = "validate-definition"
	ToolCheckPublishReadiness = "check-publish-readiness"
)

// NewAuthoringRegistry builds the fixed capability set for one authoring
// conversation, with the account/organization scope baked in.
func NewAuthoringRegistry(logger *slog.Logger, directory forms.Directory, accountID string, organizationID *string) *Registry {
	registry := NewRegistry(logger)

	registry.Register(Tool{
		Name:        ToolListLinkedForms,
		Description: "List the request-intake forms this template can link to.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{},"additionalProperties":false}`),
		Execute: func(ctx context.Context, _ map[string]any) (any, error) {
			available, err := directory.ListForms(ctx, accountID, organizationID)
			if err != nil {
				return nil, err
			}

			if available == nil {
				available = []forms.Form{}
			}

			return map[string]any{"forms": available}, nil
		},
	})

	registry.Register(Tool{
		Name:        ToolListFactCatalog,
		Description: "List the fact catalog (available fields) of one linked form.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"formId": {"type": "string", "minLength": 1}
			},
			"required": ["formId"],
			"additionalProperties": false
		}`),
		Execute: func(ctx context.Context, input map[string]any) (any, error) {
			formID, _ := input["formId"].(string)

			facts, err := directory.ListFacts(ctx, accountID, formID)
			if err != nil {
				return nil, err
			}

			if facts == nil {
				facts = []forms.Fact{}
			}

			return map[string]any{"facts": facts}, nil
		},
	})

	registry.Register(Tool{
		Name:        ToolGenerateShortID,
		Description: "Generate a new unique 10-character step id.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{},"additionalProperties":false}`),
		Execute: func(_ context.Context, _ map[string]any) (any, error) {
			id, err := shortid.New()
			if err != nil {
				return nil, err
			}

			return map[string]any{"id": id}, nil
		},
	})

	registry.Register(Tool{
		Name:        ToolValidateDefinition,
		Description: "Run structural validation on a candidate workflow definition.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"definition": {"type": "object"}
			},
			"required": ["definition"],
			"additionalProperties": false
		}`),
		Execute: func(_ context.Context, input map[string]any) (any, error) {
			return validation.Validate(input["definition"]), nil
		},
	})

	registry.Register(Tool{
		Name:        ToolCheckPublishReadiness,
		Description: "Check whether a labeled definition is ready to publish.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"label": {"type": "string"},
				"definition": {"type": "object"}
			},
			"required": ["definition"],
			"additionalProperties": false
		}`),
		Execute: func(_ context.Context, input map[string]any) (any, error) {
			label, _ := input["label"].(string)

			return validation.CheckPublishReadiness(label, input["definition"]), nil
		},
	})

	return registry
}

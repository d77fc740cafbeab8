// Package web provides the HTTP surface of the template authoring API.
package web

import "github.com/flowsmith/flowsmith/pkg/models"

// CreateTemplateRequest is the body of POST /templates.
type CreateTemplateRequest struct {
	ID         string             `json:"id,omitempty"`
	Version    string             `json:"version,omitempty"`
	Label      string             `json:"label"                validate:"required"`
	Definition *models.Definition `json:"definition,omitempty"`
	Tags       []string           `json:"tags,omitempty"`
}

// UpdateTemplateRequest is the body of PATCH /templates/:id. ExpectedVersion
// is the optimistic-concurrency condition; all other fields are optional.
type UpdateTemplateRequest struct {
	ExpectedVersion string             `json:"expectedVersion"      validate:"required"`
	Version         *string            `json:"version,omitempty"`
	Label           *string            `json:"label,omitempty"`
	Definition      *models.Definition `json:"definition,omitempty"`
	Tags            []string           `json:"tags,omitempty"`
}

// PublishTemplateRequest is the body of POST /templates/:id/publish.
type PublishTemplateRequest struct {
	ExpectedVersion string `json:"expectedVersion" validate:"required"`
}

// ChatRequest is the body of POST /assistant/chat.
type ChatRequest struct {
	SessionID  string               `json:"sessionId,omitempty"`
	TemplateID string               `json:"templateId,omitempty"`
	Messages   []models.ChatMessage `json:"messages"             validate:"required,min=1,dive"`
	Definition *models.Definition   `json:"definition,omitempty"`
}

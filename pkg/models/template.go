package models

import "time"

// TemplateStatus represents the lifecycle state of a template.
type TemplateStatus string

const (
	TemplateStatusDraft     TemplateStatus = "draft"     // Editable, not yet promoted
	TemplateStatusPublished TemplateStatus = "published" // Passed publish-readiness checks
)

// Template is the persisted, versioned wrapper around a Definition.
// Identity is (account, id, version); the optional organization scopes
// visibility, not identity. Account and organization are fixed at creation
// and never reassigned.
type Template struct {
	AccountID      string         `json:"accountId"                validate:"required"`
	OrganizationID *string        `json:"organizationId,omitempty"`
	ID             string         `json:"id"                       validate:"required"`
	Version        string         `json:"version"                  validate:"required"`
	Label          string         `json:"label"                    validate:"required"`
	Status         TemplateStatus `json:"status"`
	Definition     *Definition    `json:"definition"`
	Tags           []string       `json:"tags,omitempty"`

	// Denormalized from the definition's step graph on every write.
	LinkedFormID string `json:"linkedFormId,omitempty"`
	WorkflowType string `json:"workflowType,omitempty"`

	// Cached rendering of the definition, refreshed on save.
	Diagram string `json:"diagram,omitempty"`

	CreatedBy string    `json:"createdBy,omitempty"`
	UpdatedBy string    `json:"updatedBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

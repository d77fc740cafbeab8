package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/flowsmith/flowsmith/pkg/diagram"
	"github.com/flowsmith/flowsmith/pkg/eventbus"
	"github.com/flowsmith/flowsmith/pkg/events"
	"github.com/flowsmith/flowsmith/pkg/models"
	"github.com/flowsmith/flowsmith/pkg/persistence"
	"github.com/flowsmith/flowsmith/pkg/validation"
)

// Template is the authoring service for workflow templates. Every write is
// gated on structural validation of the definition and, for publication, on
// the publish-readiness check.
type Template struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventPublisher
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewTemplate creates a new template service. The event bus may be nil, in
// which case lifecycle events are skipped.
func NewTemplate(p persistence.Persistence, eventBus eventbus.EventPublisher, logger *slog.Logger) *Template {
	return &Template{
		persistence: p,
		eventBus:    eventBus,
		validate:    validator.New(),
		logger:      logger,
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Template) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// CreateTemplateRequest contains the fields for creating a template.
type CreateTemplateRequest struct {
	AccountID      string `validate:"required"`
	OrganizationID *string
	ID             string
	Version        string
	Label          string `validate:"required"`
	Definition     *models.Definition
	Tags           []string
	CreatedBy      string
}

// Create validates and stores a new draft template. The definition must pass
// structural validation before anything is written.
func (s *Template) Create(ctx context.Context, req CreateTemplateRequest) (*models.Template, error) {
	err := s.validate.Struct(req)
	if err != nil {
		return nil, NewValidationError("Create", "INVALID_REQUEST", err.Error(), ErrInvalidRequest)
	}

	if result := validation.Validate(req.Definition); !result.Valid {
		return nil, &DefinitionValidationError{Op: "Create", Result: result}
	}

	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	if req.Version == "" {
		req.Version = "1.0.0"
	}

	template := &models.Template{
		AccountID:      req.AccountID,
		OrganizationID: req.OrganizationID,
		ID:             req.ID,
		Version:        req.Version,
		Label:          req.Label,
		Status:         models.TemplateStatusDraft,
		Definition:     req.Definition,
		Tags:           req.Tags,
		Diagram:        diagram.Render(req.Definition),
		CreatedBy:      req.CreatedBy,
		UpdatedBy:      req.CreatedBy,
	}

	created, err := s.persistence.TemplateRepository().Create(ctx, template)
	if err != nil {
		if persistence.IsTemplateAlreadyExists(err) {
			return nil, &ServiceError{Op: "Create", Code: "TEMPLATE_EXISTS", Err: ErrTemplateAlreadyExists}
		}

		return nil, fmt.Errorf("failed to create template: %w", err)
	}

	s.publishEvent(ctx, created.AccountID+":"+created.ID, &events.TemplateCreated{
		BaseEvent:    s.baseEvent(events.TemplateCreatedEvent, created),
		Label:        created.Label,
		WorkflowType: created.WorkflowType,
		CreatedBy:    created.CreatedBy,
	})

	return created, nil
}

// Get retrieves a template, resolving the latest version when version is empty.
func (s *Template) Get(ctx context.Context, accountID string, organizationID *string, id, version string) (*models.Template, error) {
	template, err := s.persistence.TemplateRepository().Get(ctx, accountID, organizationID, id, version)
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	if template == nil {
		return nil, ErrTemplateNotFound
	}

	return template, nil
}

// List retrieves one page of templates matching the options.
func (s *Template) List(ctx context.Context, accountID string, opts persistence.ListTemplatesOptions) (*persistence.TemplateListResult, error) {
	if accountID == "" {
		return nil, ErrEmptyAccountID
	}

	result, err := s.persistence.TemplateRepository().List(ctx, accountID, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	return result, nil
}

// UpdateTemplateRequest contains the mutable fields of a version-gated update.
type UpdateTemplateRequest struct {
	Version    *string
	Label      *string
	Definition *models.Definition
	Tags       []string
	UpdatedBy  string
}

// Update replaces fields of a template conditioned on the expected version.
// A replaced definition is validated first and its cached diagram re-rendered.
func (s *Template) Update(ctx context.Context, accountID, id, expectedVersion string, req UpdateTemplateRequest) (*models.Template, error) {
	patch := persistence.TemplatePatch{
		Version:   req.Version,
		Label:     req.Label,
		Tags:      req.Tags,
		UpdatedBy: req.UpdatedBy,
	}

	if req.Definition != nil {
		if result := validation.Validate(req.Definition); !result.Valid {
			return nil, &DefinitionValidationError{Op: "Update", Result: result}
		}

		rendered := diagram.Render(req.Definition)
		patch.Definition = req.Definition
		patch.Diagram = &rendered
	}

	updated, err := s.persistence.TemplateRepository().Update(ctx, accountID, id, expectedVersion, patch)
	if err != nil {
		if persistence.IsTemplateAlreadyExists(err) {
			return nil, &ServiceError{Op: "Update", Code: "TEMPLATE_EXISTS", Err: ErrTemplateAlreadyExists}
		}

		return nil, fmt.Errorf("failed to update template: %w", err)
	}

	if updated == nil {
		return nil, &ServiceError{
			Op:      "Update",
			Code:    "VERSION_CONFLICT",
			Message: fmt.Sprintf("template %s is no longer at version %s", id, expectedVersion),
			Err:     ErrVersionConflict,
		}
	}

	s.publishEvent(ctx, updated.AccountID+":"+updated.ID, &events.TemplateUpdated{
		BaseEvent:       s.baseEvent(events.TemplateUpdatedEvent, updated),
		PreviousVersion: expectedVersion,
		UpdatedBy:       updated.UpdatedBy,
	})

	return updated, nil
}

// Publish promotes a template to published after the readiness check passes.
func (s *Template) Publish(ctx context.Context, accountID string, organizationID *string, id, expectedVersion, publishedBy string) (*models.Template, error) {
	template, err := s.Get(ctx, accountID, organizationID, id, expectedVersion)
	if err != nil {
		return nil, err
	}

	if result := validation.CheckPublishReadiness(template.Label, template.Definition); !result.Valid {
		return nil, &DefinitionValidationError{Op: "Publish", Result: result}
	}

	status := models.TemplateStatusPublished
	version := template.Version

	published, err := s.persistence.TemplateRepository().Update(ctx, accountID, id, template.Version, persistence.TemplatePatch{
		Version:   &version,
		Status:    &status,
		UpdatedBy: publishedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to publish template: %w", err)
	}

	if published == nil {
		return nil, &ServiceError{
			Op:      "Publish",
			Code:    "VERSION_CONFLICT",
			Message: fmt.Sprintf("template %s is no longer at version %s", id, template.Version),
			Err:     ErrVersionConflict,
		}
	}

	s.publishEvent(ctx, published.AccountID+":"+published.ID, &events.TemplatePublished{
		BaseEvent:    s.baseEvent(events.TemplatePublishedEvent, published),
		Label:        published.Label,
		LinkedFormID: published.LinkedFormID,
		WorkflowType: published.WorkflowType,
		PublishedBy:  publishedBy,
	})

	return published, nil
}

// Delete removes a template version.
func (s *Template) Delete(ctx context.Context, accountID string, organizationID *string, id, version string) error {
	deleted, err := s.persistence.TemplateRepository().Delete(ctx, accountID, id, version)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}

	if !deleted {
		return ErrTemplateNotFound
	}

	s.publishEvent(ctx, accountID+":"+id, &events.TemplateDeleted{
		BaseEvent: events.BaseEvent{
			ID:             uuid.New().String(),
			Type:           events.TemplateDeletedEvent,
			Timestamp:      time.Now().UTC(),
			AccountID:      accountID,
			OrganizationID: organizationID,
			TemplateID:     id,
			Version:        version,
		},
	})

	return nil
}

// ValidateDefinition runs structural validation without touching storage.
func (s *Template) ValidateDefinition(definition any) validation.Result {
	return validation.Validate(definition)
}

// CheckPublishReadiness runs the publication gate without touching storage.
func (s *Template) CheckPublishReadiness(label string, definition any) validation.Result {
	return validation.CheckPublishReadiness(label, definition)
}

func (s *Template) baseEvent(eventType events.EventType, template *models.Template) events.BaseEvent {
	return events.BaseEvent{
		ID:             uuid.New().String(),
		Type:           eventType,
		Timestamp:      time.Now().UTC(),
		AccountID:      template.AccountID,
		OrganizationID: template.OrganizationID,
		TemplateID:     template.ID,
		Version:        template.Version,
	}
}

// publishEvent emits a lifecycle event best-effort; a broker failure never
// fails the persisted operation.
func (s *Template) publishEvent(ctx context.Context, key string, event eventbus.Event) {
	if s.eventBus == nil {
		return
	}

	err := s.eventBus.Publish(ctx, key, event)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to publish template event",
			"event_type", event.GetType(), "error", err)
	}
}

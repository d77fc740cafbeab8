package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/flowsmith/flowsmith/pkg/assistant"
	"github.com/flowsmith/flowsmith/pkg/assistant/tools"
	"github.com/flowsmith/flowsmith/pkg/forms"
	"github.com/flowsmith/flowsmith/pkg/models"
	"github.com/flowsmith/flowsmith/pkg/persistence"
	"github.com/flowsmith/flowsmith/pkg/services"
	"github.com/flowsmith/flowsmith/pkg/session"
)

// Scoping identifiers are supplied out-of-band by the authorization layer.
const (
	HeaderAccountID      = "X-Account-ID"
	HeaderOrganizationID = "X-Organization-ID"
	HeaderUserID         = "X-User-ID"
)

type APIHandlers struct {
	templateService *services.Template
	modelClient     assistant.ModelClient
	formsDirectory  forms.Directory
	sessions        session.Store
	validator       *validator.Validate
	logger          *slog.Logger
	maxTurns        int
}

func NewAPIHandlers(
	templateService *services.Template,
	modelClient assistant.ModelClient,
	formsDirectory forms.Directory,
	sessions session.Store,
	validator *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		templateService: templateService,
		modelClient:     modelClient,
		formsDirectory:  formsDirectory,
		sessions:        sessions,
		validator:       validator,
		logger:          logger,
		maxTurns:        assistant.DefaultMaxTurns,
	}
}

// scope extracts the account/organization/user identifiers from headers.
func scope(c fiber.Ctx) (string, *string, string) {
	accountID := c.Get(HeaderAccountID)

	var organizationID *string
	if value := c.Get(HeaderOrganizationID); value != "" {
		organizationID = &value
	}

	return accountID, organizationID, c.Get(HeaderUserID)
}

func (h *APIHandlers) CreateTemplate(c fiber.Ctx) error {
	accountID, organizationID, userID := scope(c)
	if accountID == "" {
		return badRequest(c, "X-Account-ID header is required")
	}

	var req CreateTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.templateService.Create(c.Context(), services.CreateTemplateRequest{
		AccountID:      accountID,
		OrganizationID: organizationID,
		ID:             req.ID,
		Version:        req.Version,
		Label:          req.Label,
		Definition:     req.Definition,
		Tags:           req.Tags,
		CreatedBy:      userID,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetTemplate(c fiber.Ctx) error {
	accountID, organizationID, _ := scope(c)
	if accountID == "" {
		return badRequest(c, "X-Account-ID header is required")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Template ID is required")
	}

	template, err := h.templateService.Get(c.Context(), accountID, organizationID, id, c.Query("version"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(template)
}

func (h *APIHandlers) ListTemplates(c fiber.Ctx) error {
	accountID, organizationID, _ := scope(c)
	if accountID == "" {
		return badRequest(c, "X-Account-ID header is required")
	}

	opts, err := parseListOptions(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	// The header is authoritative; the query parameter covers callers that
	// cannot set scoping headers.
	if organizationID == nil {
		if value := c.Query("organization"); value != "" {
			organizationID = &value
		}
	}

	opts.OrganizationID = organizationID

	result, err := h.templateService.List(c.Context(), accountID, *opts)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func parseListOptions(c fiber.Ctx) (*persistence.ListTemplatesOptions, error) {
	opts := &persistence.ListTemplatesOptions{
		Label:        c.Query("label"),
		WorkflowType: c.Query("type"),
	}

	if statusStr := c.Query("status"); statusStr != "" {
		for _, status := range strings.Split(statusStr, ",") {
			opts.Statuses = append(opts.Statuses, models.TemplateStatus(status))
		}
	}

	if tagsStr := c.Query("tags"); tagsStr != "" {
		opts.Tags = strings.Split(tagsStr, ",")
	}

	if createdAfter := c.Query("createdAfter"); createdAfter != "" {
		parsed, err := time.Parse(time.RFC3339, createdAfter)
		if err != nil {
			return nil, err
		}

		opts.CreatedAfter = &parsed
	}

	if createdBefore := c.Query("createdBefore"); createdBefore != "" {
		parsed, err := time.Parse(time.RFC3339, createdBefore)
		if err != nil {
			return nil, err
		}

		opts.CreatedBefore = &parsed
	}

	if pageStr := c.Query("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil {
			return nil, err
		}

		opts.Page = page
	}

	if pageSizeStr := c.Query("pageSize"); pageSizeStr != "" {
		pageSize, err := strconv.Atoi(pageSizeStr)
		if err != nil {
			return nil, err
		}

		opts.PageSize = pageSize
	}

	return opts, nil
}

func (h *APIHandlers) UpdateTemplate(c fiber.Ctx) error {
	accountID, _, userID := scope(c)
	if accountID == "" {
		return badRequest(c, "X-Account-ID header is required")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Template ID is required")
	}

	var req UpdateTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.templateService.Update(c.Context(), accountID, id, req.ExpectedVersion, services.UpdateTemplateRequest{
		Version:    req.Version,
		Label:      req.Label,
		Definition: req.Definition,
		Tags:       req.Tags,
		UpdatedBy:  userID,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteTemplate(c fiber.Ctx) error {
	accountID, organizationID, _ := scope(c)
	if accountID == "" {
		return badRequest(c, "X-Account-ID header is required")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Template ID is required")
	}

	version := c.Query("version")
	if version == "" {
		return badRequest(c, "version query parameter is required")
	}

	err := h.templateService.Delete(c.Context(), accountID, organizationID, id, version)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) PublishTemplate(c fiber.Ctx) error {
	accountID, organizationID, userID := scope(c)
	if accountID == "" {
		return badRequest(c, "X-Account-ID header is required")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Template ID is required")
	}

	var req PublishTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	published, err := h.templateService.Publish(c.Context(), accountID, organizationID, id, req.ExpectedVersion, userID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(published)
}

// ValidateTemplate runs structural validation on an arbitrary payload. A
// payload carrying a label is additionally checked for publish readiness.
func (h *APIHandlers) ValidateTemplate(c fiber.Ctx) error {
	var payload map[string]any
	if err := c.Bind().JSON(&payload); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if label, exists := payload["label"]; exists {
		labelStr, _ := label.(string)

		return c.JSON(h.templateService.CheckPublishReadiness(labelStr, payload))
	}

	return c.JSON(h.templateService.ValidateDefinition(payload))
}

// Chat runs one authoring exchange against the generative backend.
func (h *APIHandlers) Chat(c fiber.Ctx) error {
	accountID, organizationID, userID := scope(c)
	if accountID == "" {
		return badRequest(c, "X-Account-ID header is required")
	}

	var req ChatRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	messages := req.Messages

	if req.SessionID != "" {
		history, err := h.sessions.History(c.Context(), req.SessionID)
		if err != nil {
			return internalError(c, err)
		}

		messages = append(history, messages...)
	}

	registry := tools.NewAuthoringRegistry(h.logger, h.formsDirectory, accountID, organizationID)
	orchestrator := assistant.NewOrchestrator(h.modelClient, registry, h.maxTurns, h.logger)

	reply, err := orchestrator.Chat(c.Context(), assistant.ChatRequest{
		Messages:   messages,
		Definition: req.Definition,
		Context: assistant.RuntimeContext{
			AccountID:      accountID,
			OrganizationID: organizationID,
			UserID:         userID,
			TemplateID:     req.TemplateID,
			SessionID:      req.SessionID,
		},
	})
	if err != nil {
		if errors.Is(err, assistant.ErrNoMessages) {
			return badRequest(c, err.Error())
		}

		return badGateway(c, "generative backend failed: "+err.Error())
	}

	if req.SessionID != "" {
		stored := append(req.Messages, models.ChatMessage{
			Role:    models.ChatRoleAssistant,
			Content: reply.Text,
		})

		if err := h.sessions.Append(c.Context(), req.SessionID, stored...); err != nil {
			h.logger.ErrorContext(c.Context(), "failed to store chat history", "error", err)
		}
	}

	return c.JSON(reply)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.templateService.HealthCheck(c.Context())

	status := "unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

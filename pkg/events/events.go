// Package events defines event types and structures for template lifecycle notifications.
package events

import (
	"time"
)

type EventType string

// Topic is the Kafka topic carrying template lifecycle events.
const Topic = "flowsmith.template.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	TemplateCreatedEvent   EventType = "template.created"
	TemplateUpdatedEvent   EventType = "template.updated"
	TemplateDeletedEvent   EventType = "template.deleted"
	TemplatePublishedEvent EventType = "template.published"
)

// BaseEvent carries the fields shared by every template lifecycle event.
type BaseEvent struct {
	ID             string         `json:"id"`
	Type           EventType      `json:"type"`
	Timestamp      time.Time      `json:"timestamp"`
	AccountID      string         `json:"accountId"`
	OrganizationID *string        `json:"organizationId,omitempty"`
	TemplateID     string         `json:"templateId"`
	Version        string         `json:"version"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

type TemplateCreated struct {
	BaseEvent

	Label        string `json:"label"`
	WorkflowType string `json:"workflowType,omitempty"`
	CreatedBy    string `json:"createdBy,omitempty"`
}

func (e TemplateCreated) GetType() EventType {
	return TemplateCreatedEvent
}

type TemplateUpdated struct {
	BaseEvent

	PreviousVersion string `json:"previousVersion"`
	UpdatedBy       string `json:"updatedBy,omitempty"`
}

func (e TemplateUpdated) GetType() EventType {
	return TemplateUpdatedEvent
}

type TemplateDeleted struct {
	BaseEvent
}

func (e TemplateDeleted) GetType() EventType {
	return TemplateDeletedEvent
}

type TemplatePublished struct {
	BaseEvent

	Label        string `json:"label"`
	LinkedFormID string `json:"linkedFormId,omitempty"`
	WorkflowType string `json:"workflowType,omitempty"`
	PublishedBy  string `json:"publishedBy,omitempty"`
}

func (e TemplatePublished) GetType() EventType {
	return TemplatePublishedEvent
}

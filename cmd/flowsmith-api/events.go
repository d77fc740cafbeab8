package main

import (
	"context"
	"log/slog"

	"github.com/flowsmith/flowsmith/pkg/eventbus"
	"github.com/flowsmith/flowsmith/pkg/events"
)

// subscribeLifecycleLog consumes template lifecycle events and writes them to
// the audit log. The API is its own first consumer; external consumers attach
// to the same topic through the Kafka channel.
func subscribeLifecycleLog(ctx context.Context, logger *slog.Logger, bus eventbus.EventBus) error {
	logEvent := func(ctx context.Context, event any) error {
		switch e := event.(type) {
		case *events.TemplateCreated:
			logger.InfoContext(ctx, "template created",
				"account_id", e.AccountID, "template_id", e.TemplateID, "version", e.Version, "label", e.Label)
		case *events.TemplateUpdated:
			logger.InfoContext(ctx, "template updated",
				"account_id", e.AccountID, "template_id", e.TemplateID,
				"version", e.Version, "previous_version", e.PreviousVersion)
		case *events.TemplatePublished:
			logger.InfoContext(ctx, "template published",
				"account_id", e.AccountID, "template_id", e.TemplateID,
				"version", e.Version, "linked_form_id", e.LinkedFormID)
		case *events.TemplateDeleted:
			logger.InfoContext(ctx, "template deleted",
				"account_id", e.AccountID, "template_id", e.TemplateID, "version", e.Version)
		}

		return nil
	}

	for _, eventType := range []events.EventType{
		events.TemplateCreatedEvent,
		events.TemplateUpdatedEvent,
		events.TemplatePublishedEvent,
		events.TemplateDeletedEvent,
	} {
		if err := bus.Handle(eventType, logEvent); err != nil {
			return err
		}
	}

	return bus.Subscribe(ctx)
}

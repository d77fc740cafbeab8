// Package main provides the Flowsmith API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/flowsmith/flowsmith/pkg/assistant"
	"github.com/flowsmith/flowsmith/pkg/eventbus"
	"github.com/flowsmith/flowsmith/pkg/forms"
	"github.com/flowsmith/flowsmith/pkg/persistence"
	"github.com/flowsmith/flowsmith/pkg/services"
	"github.com/flowsmith/flowsmith/pkg/session"
	"github.com/flowsmith/flowsmith/pkg/web"
)

type API struct {
	logger         *slog.Logger
	persistence    persistence.Persistence
	eventBus       eventbus.EventBus
	modelClient    assistant.ModelClient
	formsDirectory forms.Directory
	sessions       session.Store
	validate       *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	modelClient assistant.ModelClient,
	formsDirectory forms.Directory,
	sessions session.Store,
) *API {
	return &API{
		logger:         logger,
		persistence:    persistence,
		eventBus:       eventBus,
		modelClient:    modelClient,
		formsDirectory: formsDirectory,
		sessions:       sessions,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	templateService := services.NewTemplate(a.persistence, a.eventBus, a.logger)

	handlers := web.NewAPIHandlers(
		templateService,
		a.modelClient,
		a.formsDirectory,
		a.sessions,
		a.validate,
		a.logger,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Flowsmith API")
	})

	t := app.Group("/templates")
	t.Get("/", handlers.ListTemplates)
	t.Post("/", handlers.CreateTemplate)
	// Registered before the :id routes so "validate" is not captured as an ID.
	t.Post("/validate", handlers.ValidateTemplate)
	t.Get("/:id", handlers.GetTemplate)
	t.Patch("/:id", handlers.UpdateTemplate)
	t.Delete("/:id", handlers.DeleteTemplate)
	t.Post("/:id/publish", handlers.PublishTemplate)

	app.Post("/assistant/chat", handlers.Chat)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}

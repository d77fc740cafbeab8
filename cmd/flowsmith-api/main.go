package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/flowsmith/flowsmith/pkg/assistant"
	"github.com/flowsmith/flowsmith/pkg/cmd"
	"github.com/flowsmith/flowsmith/pkg/forms"
	"github.com/flowsmith/flowsmith/pkg/log"
	"github.com/flowsmith/flowsmith/pkg/otelhelper"
	"github.com/flowsmith/flowsmith/pkg/session"
)

const defaultPort = 9090

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "flowsmith-api",
		Usage:                 "Author and manage workflow templates",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis connection URL for chat session storage (in-memory when empty)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:     "model-api-key",
				Usage:    "API key for the generative backend",
				Required: true,
				Sources:  cli.EnvVars("MODEL_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "model-base-url",
				Usage:   "Base URL of the generative backend",
				Sources: cli.EnvVars("MODEL_BASE_URL"),
			},
			&cli.StringFlag{
				Name:    "model",
				Usage:   "Model identifier to request from the generative backend",
				Sources: cli.EnvVars("MODEL"),
			},
			&cli.StringFlag{
				Name:    "forms-url",
				Usage:   "Base URL of the linked-forms directory service (static directory when empty)",
				Sources: cli.EnvVars("FORMS_URL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing export",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Flowsmith API")

			if command.Bool("tracing") {
				_, err := otelhelper.NewTracer(ctx, "flowsmith-api")
				if err != nil {
					return err
				}
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			if err := subscribeLifecycleLog(ctx, logger, eventBus); err != nil {
				return err
			}

			modelClient, err := assistant.NewHTTPModelClient(assistant.ClientConfig{
				APIKey:  command.String("model-api-key"),
				BaseURL: command.String("model-base-url"),
				Model:   command.String("model"),
			})
			if err != nil {
				return err
			}

			var sessions session.Store
			if redisURL := command.String("redis-url"); redisURL != "" {
				sessions, err = session.NewRedisStore(redisURL)
				if err != nil {
					return err
				}
			} else {
				sessions = session.NewMemoryStore()
			}

			var formsDirectory forms.Directory
			if formsURL := command.String("forms-url"); formsURL != "" {
				formsDirectory = forms.NewHTTPDirectory(formsURL)
			} else {
				formsDirectory = &forms.StaticDirectory{}
			}

			api := NewAPI(
				logger,
				persistence,
				eventBus,
				modelClient,
				formsDirectory,
				sessions,
			)

			err = api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dukex/automations/pkg/client"
	"github.com/dukex/automations/pkg/cmd"
	"github.com/dukex/automations/pkg/eventbus"
	"github.com/dukex/automations/pkg/log"
	"github.com/dukex/automations/pkg/otelhelper"
	"github.com/dukex/automations/pkg/persistence"
	"github.com/dukex/automations/pkg/runtime"
	"github.com/dukex/automations/pkg/services"
	"github.com/dukex/automations/pkg/web"
	"github.com/dukex/automations/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

const defaultPort = 9091

type API struct {
	logger      *slog.Logger
	persistence persistence.Store
	tester      runtime.Tester
	eventBus    eventbus.EventBus
	tracer      trace.Tracer
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Store,
	tester runtime.Tester,
	eventBus eventbus.EventBus,
	tracer trace.Tracer,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		tester:      tester,
		eventBus:    eventBus,
		tracer:      tracer,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	service := services.NewAutomation(
		workflow.NewBuilder(),
		a.persistence,
		a.tester,
		a.logger,
		services.WithPublisher(a.eventBus),
		services.WithTracer(a.tracer),
	)

	handlers := web.NewAPIHandlers(service, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Automations API")
	})

	handlers.Routes(app)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}

// newTester uses runtimeURL when set, then an API-backed store, and nil otherwise.
func newTester(store persistence.Store, runtimeURL, token string) runtime.Tester {
	if runtimeURL != "" {
		return client.New(client.Config{BaseURL: runtimeURL, Token: token})
	}

	if c, ok := store.(*client.Client); ok {
		return c
	}

	return nil
}

func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the automation builder API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "store-url",
				Usage:   "Automation store: file://dir, http(s)://api, postgres://..., redis://...",
				Value:   "file://./data",
				Sources: cli.EnvVars("STORE_URL"),
			},
			&cli.StringFlag{
				Name:    "api-token",
				Usage:   "Bearer token for the automation API",
				Sources: cli.EnvVars("API_TOKEN"),
			},
			&cli.IntFlag{
				Name:    "api-retries",
				Usage:   "Retries for failed automation API calls",
				Value:   2,
				Sources: cli.EnvVars("API_RETRIES"),
			},
			&cli.StringFlag{
				Name:    "runtime-url",
				Usage:   "Base URL of the step test runtime (defaults to the API store)",
				Sources: cli.EnvVars("RUNTIME_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("TRACING"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("api")
			logger.InfoContext(ctx, "Initializing Automations API")

			tracer := otelhelper.NoopTracer()

			if command.Bool("tracing") {
				t, shutdown, err := otelhelper.NewTracer(ctx, "automations-api")
				if err != nil {
					return fmt.Errorf("failed to initialize tracer: %w", err)
				}

				defer func() {
					if err := shutdown(context.Background()); err != nil {
						logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
					}
				}()

				tracer = t
			}

			store, err := cmd.NewPersistence(ctx, logger, command.String("store-url"), cmd.APIOptions{
				Token:      command.String("api-token"),
				MaxRetries: command.Int("api-retries"),
			})
			if err != nil {
				return fmt.Errorf("failed to initialize persistence: %w", err)
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
			if err != nil {
				return fmt.Errorf("failed to initialize event bus: %w", err)
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			tester := newTester(store, command.String("runtime-url"), command.String("api-token"))
			if tester == nil {
				logger.WarnContext(ctx, "No step runtime configured, step tests will fail")
			}

			api := NewAPI(logger, store, tester, eventBus, tracer)

			return api.Start(command.Int("port"))
		},
	}
}

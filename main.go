package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"coursehub/api-gateway/config"
	"coursehub/api-gateway/handlers"
	"coursehub/api-gateway/internal/auth"
	"coursehub/api-gateway/internal/catalog"
	"coursehub/api-gateway/internal/policy"
	"coursehub/api-gateway/internal/realtime"
	"coursehub/api-gateway/internal/store"
	"coursehub/api-gateway/middleware"
)

// changeTransport is the realtime subscription socket. Deployments that carry
// a wire client assign it here; when nil the change channel is skipped and
// clients rely on polling.
var changeTransport realtime.Transport

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := config.NewLogger(cfg.LogLevel)

	supaClient, err := config.NewSupabaseClient(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize Supabase client: %v", err)
	}

	storeClient := store.New(supaClient, logger)
	gate := auth.NewSupabaseGate(supaClient, logger)

	templates := catalog.NewTemplateRepository(storeClient, gate, logger)
	instances := catalog.NewInstanceRepository(storeClient, gate, logger)
	instantiator := catalog.NewInstantiator(storeClient, instances, logger)
	propagator := catalog.NewPropagator(storeClient, gate, logger)
	policyStore := policy.NewStore(storeClient, gate, logger)

	h := handlers.NewApplicationHandler(logger, templates, instances, instantiator, propagator, policyStore)

	if changeTransport != nil {
		events := realtime.NewChannel(changeTransport, realtime.Config{
			Table:  "calendar_events",
			Logger: logger,
			OnRefresh: func() {
				logger.Debug("calendar_events changed remotely")
			},
			OnNotice: func(n realtime.Notice) {
				logger.Info(n.Message)
			},
		})
		events.Start()
		defer events.Close()
	}

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.RequestLogger(logger))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "ok",
			"message": "API Gateway is healthy",
		})
	})

	apiV1 := app.Group("/api/v1")

	// Template routes
	apiV1.Post("/templates", h.CreateTemplate)
	apiV1.Get("/templates", h.ListTemplates)
	apiV1.Get("/templates/:id", h.GetTemplate)
	apiV1.Patch("/templates/:id", h.UpdateTemplate)
	apiV1.Delete("/templates/:id", h.DeleteTemplate)
	apiV1.Post("/templates/:id/propagate", h.PropagateTemplate)
	apiV1.Post("/templates/:id/instantiate", h.InstantiateTemplate)

	// Event (instance) routes
	apiV1.Post("/events", h.CreateEvent)
	apiV1.Get("/events", h.ListEvents)
	apiV1.Get("/events/:id", h.GetEvent)
	apiV1.Patch("/events/:id", h.UpdateEvent)
	apiV1.Delete("/events/:id", h.DeleteEvent)

	// Sync settings routes
	apiV1.Get("/settings/sync", h.GetSyncSettings)
	apiV1.Put("/settings/sync", h.UpdateSyncSettings)

	logger.Infof("Starting API Gateway on port %s...", cfg.Port)
	logger.Fatal(app.Listen(":" + cfg.Port))
}

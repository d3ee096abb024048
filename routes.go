package jobs

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// NewServer wires the fiber app: CORS, panic recovery, the auth middleware
// guarding every route, and the API surface.
func NewServer(cfg Config, controller *APIController, signer TokenSigner, users Users, logger Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "go-jobs",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.GetCORSAllowedOrigins(),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	app.Use(NewAuthMiddleware(NewAuthorizationDecisionEngine(), signer, users, logger))

	RegisterAPIRoutes(app, controller)

	return app
}

// RegisterAPIRoutes attaches every endpoint to the app. The auth middleware
// has already gated access by the time these handlers run.
func RegisterAPIRoutes(app *fiber.App, controller *APIController) {
	authorize := app.Group("/authorize")
	authorize.Post("/token", controller.TokenPost)
	authorize.Post("/remembered", controller.RememberedPost)
	authorize.Post("/refresh", controller.RefreshPost)
	authorize.Post("/cleanup", controller.CleanupPost)

	register := app.Group("/register")
	register.Post("/", controller.RegisterPost)
	register.Post("/activate", controller.ActivatePost)
	register.Post("/deactivate", controller.DeactivatePost)

	jobs := app.Group("/jobs")
	jobs.Get("/statuscount", controller.StatusCountGet)
	jobs.Get("/countbystatus", controller.CountByStatusGet)
	jobs.Post("/search", controller.JobsSearch)
	jobs.Get("/", controller.JobsList)
	jobs.Post("/", controller.JobCreate)
	jobs.Get("/:id", controller.JobGet)
	jobs.Put("/:id", controller.JobUpdate)
	jobs.Delete("/:id", controller.JobDelete)

	app.Get("/labels", controller.LabelsGet)
}

package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/wheel-refurb/controllers"
	"github.com/meinhoongagan/wheel-refurb/middleware"
)

// SetupPageRoutes configures the HTML form
func SetupPageRoutes(app *fiber.App, h *controllers.Handler) {
	app.Get("/", h.ShowForm)
	app.Post("/", h.SubmitForm)
	app.Get("/healthcheck", h.Healthcheck)
}

// SetupAttemptRoutes configures the step-by-step submission API
func SetupAttemptRoutes(app *fiber.App, h *controllers.Handler) {
	attempts := app.Group("/api/attempts")
	attempts.Post("/", h.CreateAttempt)
	attempts.Get("/:id", h.GetAttempt)
	attempts.Delete("/:id", h.DeleteAttempt)
	attempts.Post("/:id/images", h.AddAttemptImages)
	attempts.Delete("/:id/images/:index", h.RemoveAttemptImage)
	attempts.Post("/:id/submit", h.SubmitAttempt)
	attempts.Post("/:id/reset", h.ResetAttempt)
}

// SetupAppointmentRoutes configures one-shot submission and its helpers
func SetupAppointmentRoutes(app *fiber.App, h *controllers.Handler) {
	api := app.Group("/api")
	api.Post("/appointments", h.CreateAppointment)
	api.Get("/previews/:handle", h.GetPreview)
	api.Post("/assessments", h.CreateAssessment)
}

// SetupAdminRoutes configures the read-only admin listing
func SetupAdminRoutes(app *fiber.App, h *controllers.Handler) {
	admin := app.Group("/admin")

	// Public routes
	admin.Post("/login", h.AdminLogin)

	// Protected routes
	if h.Admin.JWTSecret == "" {
		admin.Get("/appointments", h.AdminUnavailable)
		return
	}
	admin.Get("/appointments", middleware.Protected(h.Admin.JWTSecret, h.Log), h.ListAppointments)
}

package webhookRoutes

import (
	billingControllers "lms/controllers/billing"
	videoControllers "lms/controllers/video"

	"github.com/gofiber/fiber/v2"
)

// SetupWebhookRoutes sets up the unauthenticated provider webhooks. The
// billing endpoint verifies its own HMAC signature.
func SetupWebhookRoutes(app *fiber.App) {
	webhookGroup := app.Group("/webhooks")

	webhookGroup.Post("/billing", billingControllers.HandleWebhook)
	webhookGroup.Post("/video", videoControllers.HandleWebhook)
}

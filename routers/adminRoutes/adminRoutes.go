package adminRoutes

import (
	adminControllers "lms/controllers/admin"
	"lms/middleware"
	adminValidators "lms/validators/admin"

	"github.com/gofiber/fiber/v2"
)

func SetupAdminRoutes(app *fiber.App) {
	adminGroup := app.Group("/admin", middleware.JWTMiddleware, middleware.AdminOnly)

	adminGroup.Get("/users", adminValidators.UserList(), adminControllers.ListUsers)
	adminGroup.Put("/user/:userId/access-override", adminValidators.TargetUserID(), adminValidators.Override(), adminControllers.ToggleAccessOverride)

	adminGroup.Get("/email-queue/stats", adminControllers.EmailQueueStats)
	adminGroup.Post("/email-queue/process", adminControllers.ProcessQueueNow)
	adminGroup.Delete("/email-queue/:queueId", adminValidators.QueueID(), adminControllers.CancelQueuedEmail)
}

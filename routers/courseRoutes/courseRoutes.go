package courseRoutes

import (
	controllers "lms/controllers/course"
	"lms/middleware"
	validators "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupCourseRoutes sets up the learner-facing course routes
func SetupCourseRoutes(app *fiber.App) {
	courseGroup := app.Group("/course")

	courseGroup.Get("/modules", middleware.JWTMiddleware, controllers.GetModules)
	courseGroup.Get("/progress", middleware.JWTMiddleware, controllers.GetProgress)
	courseGroup.Get("/lesson/:lessonId", middleware.JWTMiddleware, validators.LessonID(), controllers.GetLesson)
	courseGroup.Post("/lesson/:lessonId/complete", middleware.JWTMiddleware, validators.LessonID(), controllers.MarkLessonComplete)
	courseGroup.Delete("/lesson/:lessonId/complete", middleware.JWTMiddleware, validators.LessonID(), controllers.MarkLessonIncomplete)
}

// SetupAdminCourseRoutes sets up the admin course management routes
func SetupAdminCourseRoutes(app *fiber.App) {
	adminGroup := app.Group("/admin/course", middleware.JWTMiddleware, middleware.AdminOnly)

	// Module management
	adminGroup.Get("/modules", controllers.AdminListModules)
	adminGroup.Post("/module", validators.Module(), controllers.AdminCreateModule)
	adminGroup.Put("/module/:moduleId", validators.ModuleID(), validators.Module(), controllers.AdminUpdateModule)
	adminGroup.Delete("/module/:moduleId", validators.ModuleID(), controllers.AdminDeleteModule)
	adminGroup.Put("/modules/reorder", validators.Reorder(), controllers.AdminReorderModules)

	// Lesson management
	adminGroup.Post("/module/:moduleId/lesson", validators.ModuleID(), validators.Lesson(), controllers.AdminCreateLesson)
	adminGroup.Put("/lesson/:lessonId", validators.LessonID(), validators.Lesson(), controllers.AdminUpdateLesson)
	adminGroup.Delete("/lesson/:lessonId", validators.LessonID(), controllers.AdminDeleteLesson)
	adminGroup.Put("/module/:moduleId/lessons/reorder", validators.ModuleID(), validators.Reorder(), controllers.AdminReorderLessons)
	adminGroup.Post("/lesson/:lessonId/video", validators.LessonID(), validators.Video(), controllers.AdminAttachVideo)
}

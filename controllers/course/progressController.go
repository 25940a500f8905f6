package controllers

import (
	"log"

	"lms/access"
	"lms/database"
	"lms/email"
	"lms/middleware"
	courseModels "lms/models/course"
	"lms/progress"
	"lms/utils"

	"github.com/gofiber/fiber/v2"
)

// MarkLessonComplete records a completion and fires the downstream lifecycle
// reactions. The celebration look-aheads run before the write, since the
// write itself would make "did this completion finish the module" ambiguous.
func MarkLessonComplete(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	lessonID := c.Locals("lessonID").(uint)

	decision, err := access.CheckLessonAccess(userID, lessonID)
	if err != nil {
		log.Printf("Error checking lesson access for user %d lesson %d: %v", userID, lessonID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to check access!", nil)
	}
	if !decision.HasAccess {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "You don't have access to this lesson!", fiber.Map{
			"access": decision,
		})
	}

	var lesson courseModels.Lesson
	if err := database.Database.Db.
		Where("id = ? AND is_deleted = ? AND is_published = ?", lessonID, false, true).
		First(&lesson).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson not found!", nil)
	}

	previous, err := progress.GetLessonProgress(userID, lessonID)
	if err != nil {
		log.Printf("Error loading lesson progress for user %d: %v", userID, err)
	}
	firstCompletion := previous == nil || !previous.Completed

	// Look-aheads before the write. Known gap: a concurrent completion of
	// the same module between this read and the write below can skew the
	// celebration flags.
	completesModule, moduleID, err := progress.WouldCompleteLessonCompleteModule(userID, lessonID)
	if err != nil {
		log.Printf("Error in module look-ahead for user %d: %v", userID, err)
	}
	completesCourse := false
	if completesModule {
		completesCourse, err = progress.WouldCompleteModuleCompleteCourse(userID, moduleID)
		if err != nil {
			log.Printf("Error in course look-ahead for user %d: %v", userID, err)
		}
	}

	if err := progress.MarkComplete(userID, lessonID); err != nil {
		log.Printf("Error marking lesson %d complete for user %d: %v", lessonID, userID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to save progress!", nil)
	}

	utils.TrackEvent(userID, utils.EventLessonCompleted, map[string]interface{}{"lesson_id": lessonID})
	if completesModule {
		utils.TrackEvent(userID, utils.EventModuleCompleted, map[string]interface{}{"module_id": moduleID})
	}
	if completesCourse {
		utils.TrackEvent(userID, utils.EventCourseCompleted, nil)
	}

	// Lifecycle emails are fired-and-forgotten; none of them may fail the
	// completion itself.
	go func() {
		if completesModule {
			email.TriggerModuleComplete(userID, moduleID)
		}
		if firstCompletion && lesson.IsFree {
			email.TriggerAbandonmentSequence(userID)
		}
		email.ScheduleInactiveNudge(userID)
	}()

	courseProgress, err := progress.CourseProgressFor(userID)
	if err != nil {
		log.Printf("Error computing course progress for user %d: %v", userID, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson marked complete!", fiber.Map{
		"module_completed": completesModule,
		"course_completed": completesCourse,
		"course":           courseProgress,
	})
}

// MarkLessonIncomplete undoes a completion. No emails fire on undo.
func MarkLessonIncomplete(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	lessonID := c.Locals("lessonID").(uint)

	var lesson courseModels.Lesson
	if err := database.Database.Db.
		Where("id = ? AND is_deleted = ? AND is_published = ?", lessonID, false, true).
		First(&lesson).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson not found!", nil)
	}

	if err := progress.MarkIncomplete(userID, lessonID); err != nil {
		log.Printf("Error marking lesson %d incomplete for user %d: %v", lessonID, userID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to save progress!", nil)
	}

	courseProgress, err := progress.CourseProgressFor(userID)
	if err != nil {
		log.Printf("Error computing course progress for user %d: %v", userID, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson marked incomplete!", fiber.Map{
		"course": courseProgress,
	})
}

package controllers

import (
	"log"

	"lms/access"
	"lms/database"
	"lms/middleware"
	courseModels "lms/models/course"
	"lms/progress"
	"lms/utils"
	"lms/video"

	"github.com/gofiber/fiber/v2"
)

// GetModules returns every published module with lessons, per-module progress
// and unlock state, plus the user's subscription standing for the banner.
func GetModules(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	modules, err := progress.ModulesWithProgress(userID)
	if err != nil {
		log.Printf("Error computing module progress for user %d: %v", userID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch modules!", nil)
	}

	userAccess, err := access.CheckUserAccess(userID)
	if err != nil {
		log.Printf("Error checking access for user %d: %v", userID, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Modules fetched successfully!", fiber.Map{
		"modules": modules,
		"access":  userAccess,
	})
}

// GetLesson resolves the access decision for one lesson and, when granted,
// returns the lesson with a short-lived playback token.
func GetLesson(c *fiber.Ctx) error {
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

	// Mint the playback token only for ready videos; token failures degrade
	// to a lesson without video rather than an error page.
	playbackURL := ""
	if lesson.VideoReady && lesson.VideoPlaybackID != "" {
		token, err := video.PlaybackToken(lesson.VideoPlaybackID)
		if err != nil {
			log.Printf("Error minting playback token for lesson %d: %v", lesson.ID, err)
		} else {
			playbackURL = video.StreamURL(lesson.VideoPlaybackID, token)
		}
	}

	lessonProgress, err := progress.GetLessonProgress(userID, lessonID)
	if err != nil {
		log.Printf("Error loading lesson progress for user %d: %v", userID, err)
	}

	utils.TrackEvent(userID, utils.EventLessonStarted, map[string]interface{}{"lesson_id": lesson.ID})

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson fetched successfully!", fiber.Map{
		"lesson":       lesson,
		"playback_url": playbackURL,
		"progress":     lessonProgress,
		"access":       decision,
	})
}

// GetProgress returns the aggregate course progress and the resume pointer.
func GetProgress(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	courseProgress, err := progress.CourseProgressFor(userID)
	if err != nil {
		log.Printf("Error computing course progress for user %d: %v", userID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch progress!", nil)
	}

	resume, err := progress.NextIncompleteLesson(userID)
	if err != nil {
		log.Printf("Error finding next lesson for user %d: %v", userID, err)
	}

	unlocked, err := progress.UnlockedModuleIDs(userID)
	if err != nil {
		log.Printf("Error computing unlocked modules for user %d: %v", userID, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress fetched successfully!", fiber.Map{
		"course":           courseProgress,
		"resume":           resume,
		"unlocked_modules": unlocked,
	})
}

package controllers

import (
	"log"

	"lms/database"
	"lms/middleware"
	courseModels "lms/models/course"
	"lms/video"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AdminCreateLesson creates a lesson at the end of its module's ordering.
func AdminCreateLesson(c *fiber.Ctx) error {
	moduleID := c.Locals("moduleID").(uint)

	reqData, ok := c.Locals("validatedLesson").(*struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		IsPublished bool   `json:"is_published"`
		IsFree      bool   `json:"is_free"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	var module courseModels.Module
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", moduleID, false).First(&module).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Module not found!", nil)
	}

	var maxOrder int
	database.Database.Db.Model(&courseModels.Lesson{}).
		Where("module_id = ? AND is_deleted = ?", moduleID, false).
		Select("COALESCE(MAX(order_index), 0)").Scan(&maxOrder)

	lesson := courseModels.Lesson{
		ModuleID:    moduleID,
		Title:       reqData.Title,
		Description: reqData.Description,
		OrderIndex:  maxOrder + 1,
		IsPublished: reqData.IsPublished,
		IsFree:      reqData.IsFree,
	}

	if err := database.Database.Db.Create(&lesson).Error; err != nil {
		log.Printf("Error creating lesson: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create lesson!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Lesson created successfully!", lesson)
}

// AdminUpdateLesson updates lesson fields.
func AdminUpdateLesson(c *fiber.Ctx) error {
	lessonID := c.Locals("lessonID").(uint)

	reqData, ok := c.Locals("validatedLesson").(*struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		IsPublished bool   `json:"is_published"`
		IsFree      bool   `json:"is_free"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	var lesson courseModels.Lesson
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", lessonID, false).First(&lesson).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson not found!", nil)
	}

	updates := map[string]interface{}{
		"title":        reqData.Title,
		"description":  reqData.Description,
		"is_published": reqData.IsPublished,
		"is_free":      reqData.IsFree,
	}
	if err := database.Database.Db.Model(&lesson).Updates(updates).Error; err != nil {
		log.Printf("Error updating lesson %d: %v", lessonID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update lesson!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson updated successfully!", lesson)
}

// AdminReorderLessons rewrites a module's lesson ordering in one transaction,
// same all-or-nothing rule as module reorder.
func AdminReorderLessons(c *fiber.Ctx) error {
	moduleID := c.Locals("moduleID").(uint)

	reqData, ok := c.Locals("validatedReorder").(*struct {
		OrderedIDs []uint `json:"ordered_ids"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	var count int64
	database.Database.Db.Model(&courseModels.Lesson{}).
		Where("module_id = ? AND is_deleted = ?", moduleID, false).Count(&count)
	if int64(len(reqData.OrderedIDs)) != count {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Reorder must include every lesson exactly once!", nil)
	}

	err := database.Database.Db.Transaction(func(tx *gorm.DB) error {
		for index, id := range reqData.OrderedIDs {
			// IDs not belonging to the claimed module roll everything back
			result := tx.Model(&courseModels.Lesson{}).
				Where("id = ? AND module_id = ? AND is_deleted = ?", id, moduleID, false).
				Update("order_index", index+1)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("Error reordering lessons in module %d: %v", moduleID, err)
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Failed to reorder lessons!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lessons reordered successfully!", nil)
}

// AdminAttachVideo links a hosting-provider asset to a lesson. If the asset
// is already ready the playback fields are filled immediately; otherwise the
// asset-ready webhook fills them later.
func AdminAttachVideo(c *fiber.Ctx) error {
	lessonID := c.Locals("lessonID").(uint)

	reqData, ok := c.Locals("validatedVideo").(*struct {
		AssetID string `json:"asset_id"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	var lesson courseModels.Lesson
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", lessonID, false).First(&lesson).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson not found!", nil)
	}

	updates := map[string]interface{}{
		"video_asset_id": reqData.AssetID,
		"video_ready":    false,
	}

	asset, err := video.GetAsset(reqData.AssetID)
	if err != nil {
		log.Printf("Error fetching video asset %s: %v", reqData.AssetID, err)
	} else if asset.Status == "ready" && len(asset.PlaybackIDs) > 0 {
		updates["video_playback_id"] = asset.PlaybackIDs[0].ID
		updates["video_duration"] = int(asset.Duration)
		updates["video_ready"] = true
	}

	if err := database.Database.Db.Model(&lesson).Updates(updates).Error; err != nil {
		log.Printf("Error attaching video to lesson %d: %v", lessonID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to attach video!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Video attached successfully!", lesson)
}

// AdminDeleteLesson soft-deletes a lesson and compacts the module's lesson
// ordering.
func AdminDeleteLesson(c *fiber.Ctx) error {
	lessonID := c.Locals("lessonID").(uint)

	var lesson courseModels.Lesson
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", lessonID, false).First(&lesson).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson not found!", nil)
	}

	err := database.Database.Db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&lesson).Update("is_deleted", true).Error; err != nil {
			return err
		}

		var remaining []courseModels.Lesson
		if err := tx.Where("module_id = ? AND is_deleted = ?", lesson.ModuleID, false).
			Order("order_index asc").Find(&remaining).Error; err != nil {
			return err
		}
		for index, l := range remaining {
			if l.OrderIndex == index+1 {
				continue
			}
			if err := tx.Model(&courseModels.Lesson{}).Where("id = ?", l.ID).
				Update("order_index", index+1).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("Error deleting lesson %d: %v", lessonID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to delete lesson!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson deleted successfully!", nil)
}

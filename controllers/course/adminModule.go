package controllers

import (
	"log"

	"lms/database"
	"lms/middleware"
	courseModels "lms/models/course"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AdminListModules returns all modules with their lessons, including
// unpublished ones.
func AdminListModules(c *fiber.Ctx) error {
	var modules []courseModels.Module
	if err := database.Database.Db.
		Where("is_deleted = ?", false).
		Order("order_index asc").
		Find(&modules).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch modules!", nil)
	}

	type moduleWithLessons struct {
		courseModels.Module
		Lessons []courseModels.Lesson `json:"lessons"`
	}

	result := make([]moduleWithLessons, len(modules))
	for i, m := range modules {
		result[i] = moduleWithLessons{Module: m}
		database.Database.Db.
			Where("module_id = ? AND is_deleted = ?", m.ID, false).
			Order("order_index asc").
			Find(&result[i].Lessons)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Modules fetched successfully!", result)
}

// AdminCreateModule creates a module at the end of the ordering.
func AdminCreateModule(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedModule").(*struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		IsPublished bool   `json:"is_published"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	// New modules take the next dense order slot
	var maxOrder int
	database.Database.Db.Model(&courseModels.Module{}).
		Where("is_deleted = ?", false).
		Select("COALESCE(MAX(order_index), 0)").Scan(&maxOrder)

	module := courseModels.Module{
		Title:       reqData.Title,
		Description: reqData.Description,
		OrderIndex:  maxOrder + 1,
		IsPublished: reqData.IsPublished,
	}

	if err := database.Database.Db.Create(&module).Error; err != nil {
		log.Printf("Error creating module: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create module!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Module created successfully!", module)
}

// AdminUpdateModule updates title/description/published of a module.
func AdminUpdateModule(c *fiber.Ctx) error {
	moduleID := c.Locals("moduleID").(uint)

	reqData, ok := c.Locals("validatedModule").(*struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		IsPublished bool   `json:"is_published"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	var module courseModels.Module
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", moduleID, false).First(&module).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Module not found!", nil)
	}

	updates := map[string]interface{}{
		"title":        reqData.Title,
		"description":  reqData.Description,
		"is_published": reqData.IsPublished,
	}
	if err := database.Database.Db.Model(&module).Updates(updates).Error; err != nil {
		log.Printf("Error updating module %d: %v", moduleID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update module!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Module updated successfully!", module)
}

// AdminReorderModules rewrites the whole ordering in one transaction: the
// posted id list becomes order 1..N. Partial application would corrupt the
// dense-ordering invariant, so any failure rolls the whole reorder back.
func AdminReorderModules(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedReorder").(*struct {
		OrderedIDs []uint `json:"ordered_ids"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	// The list must cover every live module exactly once
	var count int64
	database.Database.Db.Model(&courseModels.Module{}).
		Where("is_deleted = ?", false).Count(&count)
	if int64(len(reqData.OrderedIDs)) != count {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Reorder must include every module exactly once!", nil)
	}

	err := database.Database.Db.Transaction(func(tx *gorm.DB) error {
		for index, id := range reqData.OrderedIDs {
			result := tx.Model(&courseModels.Module{}).
				Where("id = ? AND is_deleted = ?", id, false).
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
		log.Printf("Error reordering modules: %v", err)
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Failed to reorder modules!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Modules reordered successfully!", nil)
}

// AdminDeleteModule soft-deletes a module and compacts the remaining order
// values back to a dense 1..N, all in one transaction.
func AdminDeleteModule(c *fiber.Ctx) error {
	moduleID := c.Locals("moduleID").(uint)

	var module courseModels.Module
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", moduleID, false).First(&module).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Module not found!", nil)
	}

	err := database.Database.Db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&module).Update("is_deleted", true).Error; err != nil {
			return err
		}

		var remaining []courseModels.Module
		if err := tx.Where("is_deleted = ?", false).Order("order_index asc").Find(&remaining).Error; err != nil {
			return err
		}
		for index, m := range remaining {
			if m.OrderIndex == index+1 {
				continue
			}
			if err := tx.Model(&courseModels.Module{}).Where("id = ?", m.ID).
				Update("order_index", index+1).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("Error deleting module %d: %v", moduleID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to delete module!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Module deleted successfully!", nil)
}

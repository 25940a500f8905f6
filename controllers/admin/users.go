package adminController

import (
	"log"

	"lms/access"
	"lms/database"
	"lms/email"
	"lms/middleware"
	"lms/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ListUsers returns users with their subscription state, paginated.
func ListUsers(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedUserList").(*struct {
		Page  *int `json:"page"`
		Limit *int `json:"limit"`
	})

	page, limit := 1, 20
	if ok && reqData.Page != nil {
		page = *reqData.Page
	}
	if ok && reqData.Limit != nil {
		limit = *reqData.Limit
	}
	offset := (page - 1) * limit

	db := database.Database.Db.Model(&models.User{}).Where("is_deleted = ?", false)

	var total int64
	db.Count(&total)

	var users []models.User
	if err := db.Offset(offset).Limit(limit).Order("created_at desc").Find(&users).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch users!", nil)
	}

	type userWithSubscription struct {
		models.User
		Subscription *models.Subscription `json:"subscription"`
	}

	result := make([]userWithSubscription, len(users))
	for i, u := range users {
		u.Password = ""
		result[i] = userWithSubscription{User: u}
		var sub models.Subscription
		if err := database.Database.Db.Where("user_id = ?", u.ID).First(&sub).Error; err == nil {
			result[i].Subscription = &sub
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Users fetched successfully!", fiber.Map{
		"users": result,
		"pagination": fiber.Map{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// ToggleAccessOverride grants or revokes the admin access override for a
// user. The flag flip and its audit event land in one transaction.
func ToggleAccessOverride(c *fiber.Ctx) error {
	admin, ok := c.Locals("adminUser").(models.User)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	targetID := c.Locals("targetUserID").(uint)

	reqData, ok := c.Locals("validatedOverride").(*struct {
		Override *bool `json:"override"`
	})
	if !ok || reqData.Override == nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	if err := access.ToggleAccessOverride(targetID, admin.ID, *reqData.Override); err != nil {
		if err == gorm.ErrRecordNotFound {
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "User not found!", nil)
		}
		log.Printf("Error toggling access override for user %d: %v", targetID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update access override!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Access override updated successfully!", fiber.Map{
		"user_id":  targetID,
		"override": *reqData.Override,
	})
}

// EmailQueueStats reports queue depth per status, for the admin dashboard.
func EmailQueueStats(c *fiber.Ctx) error {
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Queue stats fetched successfully!", email.Stats())
}

// ProcessQueueNow runs the email queue processor on demand, outside its cron
// schedule. Useful when verifying a fix without waiting for the next tick.
func ProcessQueueNow(c *fiber.Ctx) error {
	result := email.ProcessEmailQueue()
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Queue processed!", result)
}

// CancelQueuedEmail cancels one PENDING queue entry by id.
func CancelQueuedEmail(c *fiber.Ctx) error {
	queueID := c.Locals("queueID").(uint)

	var entry models.EmailQueue
	if err := database.Database.Db.Where("id = ?", queueID).First(&entry).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Queue entry not found!", nil)
	}
	if entry.Status != models.EmailPending {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Only pending emails can be cancelled!", nil)
	}

	if err := email.CancelQueuedEmail(queueID); err != nil {
		log.Printf("Error cancelling queue entry %d: %v", queueID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to cancel email!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Email cancelled successfully!", nil)
}

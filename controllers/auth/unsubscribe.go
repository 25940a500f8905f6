package authController

import (
	"log"

	"lms/database"
	"lms/middleware"
	"lms/models"

	"github.com/gofiber/fiber/v2"
)

// Unsubscribe opts a user out of marketing emails via the token embedded in
// every message. No auth: the token itself is the credential.
func Unsubscribe(c *fiber.Ctx) error {
	token := c.Params("token")
	if token == "" {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid unsubscribe link!", nil)
	}

	result := database.Database.Db.Model(&models.User{}).
		Where("unsubscribe_token = ? AND is_deleted = ?", token, false).
		Update("marketing_opt_out", true)
	if result.Error != nil {
		log.Printf("Error processing unsubscribe token: %v", result.Error)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to unsubscribe!", nil)
	}
	if result.RowsAffected == 0 {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Invalid unsubscribe link!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "You have been unsubscribed from marketing emails.", nil)
}

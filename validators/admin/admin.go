package adminValidator

import (
	"strconv"

	"lms/middleware"

	"github.com/gofiber/fiber/v2"
)

// UserList validator middleware for pagination query params
func UserList() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Page  *int `json:"page"`
			Limit *int `json:"limit"`
		})
		if err := c.QueryParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		// Validate Page
		if reqData.Page != nil && *reqData.Page < 1 {
			errors["page"] = "Page must be greater than 0!"
		}

		// Validate Limit
		if reqData.Limit != nil && (*reqData.Limit < 1 || *reqData.Limit > 100) {
			errors["limit"] = "Limit must be between 1 and 100!"
		}

		// Respond with validation errors if any exist
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedUserList", reqData)
		return c.Next()
	}
}

// TargetUserID validator middleware for the :userId route param
func TargetUserID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Params("userId")
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid user id!", nil)
		}

		c.Locals("targetUserID", uint(id))
		return c.Next()
	}
}

// QueueID validator middleware for the :queueId route param
func QueueID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Params("queueId")
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid queue id!", nil)
		}

		c.Locals("queueID", uint(id))
		return c.Next()
	}
}

// Override validator middleware for toggling access
func Override() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Override *bool `json:"override"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		// Validate Override flag
		if reqData.Override == nil {
			errors["override"] = "Override flag is required!"
		}

		// Respond with errors if any exist
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedOverride", reqData)
		return c.Next()
	}
}

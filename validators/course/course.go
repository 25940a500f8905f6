package courseValidator

import (
	"strconv"
	"strings"

	"lms/middleware"

	"github.com/gofiber/fiber/v2"
)

// parseIDParam reads a positive integer route param
func parseIDParam(c *fiber.Ctx, name string) (uint, bool) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// LessonID validator middleware for the :lessonId route param
func LessonID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseIDParam(c, "lessonId")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid lesson id!", nil)
		}

		c.Locals("lessonID", id)
		return c.Next()
	}
}

// ModuleID validator middleware for the :moduleId route param
func ModuleID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseIDParam(c, "moduleId")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid module id!", nil)
		}

		c.Locals("moduleID", id)
		return c.Next()
	}
}

// Module validator middleware for create and update bodies
func Module() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			IsPublished bool   `json:"is_published"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		// Validate Title
		if len(strings.TrimSpace(reqData.Title)) == 0 {
			errors["title"] = "Title is required!"
		}

		// Respond with errors if any exist
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		// Pass validated module to the next middleware
		c.Locals("validatedModule", reqData)
		return c.Next()
	}
}

// Lesson validator middleware for create and update bodies
func Lesson() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			IsPublished bool   `json:"is_published"`
			IsFree      bool   `json:"is_free"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		// Validate Title
		if len(strings.TrimSpace(reqData.Title)) == 0 {
			errors["title"] = "Title is required!"
		}

		// Respond with errors if any exist
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		// Pass validated lesson to the next middleware
		c.Locals("validatedLesson", reqData)
		return c.Next()
	}
}

// Reorder validator middleware for module and lesson ordering
func Reorder() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			OrderedIDs []uint `json:"ordered_ids"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		// Validate ordering list
		if len(reqData.OrderedIDs) == 0 {
			errors["ordered_ids"] = "Ordered ids are required!"
		} else {
			seen := make(map[uint]bool)
			for _, id := range reqData.OrderedIDs {
				if id == 0 || seen[id] {
					errors["ordered_ids"] = "Ordered ids must be unique and non-zero!"
					break
				}
				seen[id] = true
			}
		}

		// Respond with errors if any exist
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		// Pass validated ordering to the next middleware
		c.Locals("validatedReorder", reqData)
		return c.Next()
	}
}

// Video validator middleware for attaching a video asset
func Video() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			AssetID string `json:"asset_id"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		// Validate Asset ID
		if len(strings.TrimSpace(reqData.AssetID)) == 0 {
			errors["asset_id"] = "Asset id is required!"
		}

		// Respond with errors if any exist
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		// Pass validated asset to the next middleware
		c.Locals("validatedVideo", reqData)
		return c.Next()
	}
}

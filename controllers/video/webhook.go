package videoController

import (
	"encoding/json"
	"log"

	"lms/database"
	"lms/middleware"
	courseModel "lms/models/course"

	"github.com/gofiber/fiber/v2"
)

type assetEvent struct {
	Type string `json:"type"`
	Data struct {
		ID          string  `json:"id"`
		Duration    float64 `json:"duration"`
		PlaybackIDs []struct {
			ID     string `json:"id"`
			Policy string `json:"policy"`
		} `json:"playback_ids"`
	} `json:"data"`
}

// HandleWebhook marks lessons playable when the video host finishes
// processing their asset. Events for assets no lesson references are
// acknowledged so the host stops retrying.
func HandleWebhook(c *fiber.Ctx) error {
	var event assetEvent
	if err := json.Unmarshal(c.Body(), &event); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid payload!", nil)
	}

	if event.Type != "video.asset.ready" {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Acknowledged.", nil)
	}

	playbackID := ""
	if len(event.Data.PlaybackIDs) > 0 {
		playbackID = event.Data.PlaybackIDs[0].ID
	}

	result := database.Database.Db.Model(&courseModel.Lesson{}).
		Where("video_asset_id = ? AND is_deleted = ?", event.Data.ID, false).
		Updates(map[string]interface{}{
			"video_playback_id": playbackID,
			"video_duration":    event.Data.Duration,
			"video_ready":       true,
		})
	if result.Error != nil {
		log.Printf("[VIDEO] Failed to update lessons for asset %s: %v", event.Data.ID, result.Error)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process event!", nil)
	}
	if result.RowsAffected == 0 {
		log.Printf("[VIDEO] Asset %s ready but no lesson references it", event.Data.ID)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Processed.", nil)
}

package utils

import (
	"encoding/json"
	"log"

	"lms/database"
	"lms/models"

	"gorm.io/datatypes"
)

// Event names, as stored in the events table.
const (
	EventSignupCompleted       = "signup_completed"
	EventLessonStarted         = "lesson_started"
	EventLessonCompleted       = "lesson_completed"
	EventModuleCompleted       = "module_completed"
	EventCourseCompleted       = "course_completed"
	EventSubscriptionStarted   = "subscription_started"
	EventSubscriptionRenewed   = "subscription_renewed"
	EventSubscriptionCancelled = "subscription_cancelled"
	EventPaymentFailed         = "payment_failed"
)

// TrackEvent writes an analytics event. Failures are logged and swallowed -
// tracking must never break the operation that produced the event.
func TrackEvent(userID uint, name string, properties map[string]interface{}) {
	event := models.Event{
		UserID: userID,
		Name:   name,
	}

	if properties != nil {
		raw, err := json.Marshal(properties)
		if err != nil {
			log.Printf("[TRACKING] Failed to encode properties for %s: %v", name, err)
		} else {
			event.Properties = datatypes.JSON(raw)
		}
	}

	if err := database.Database.Db.Create(&event).Error; err != nil {
		log.Printf("[TRACKING] Failed to track event %s: %v", name, err)
	}
}

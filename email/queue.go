package email

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"lms/database"
	"lms/models"

	"gorm.io/datatypes"
)

const (
	maxBatchSize       = 100
	maxRetryCount      = 3
	staleThresholdDays = 7
)

// QueueResult reports a single enqueue attempt.
type QueueResult struct {
	Success bool
	QueueID uint
	Error   string
}

// ProcessResult aggregates one queue run. Entries left PENDING for retry are
// not counted as processed.
type ProcessResult struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// QueueStats is the per-status row count, for the admin dashboard.
type QueueStats struct {
	Pending   int64 `json:"pending"`
	Sent      int64 `json:"sent"`
	Failed    int64 `json:"failed"`
	Cancelled int64 `json:"cancelled"`
}

// QueueEmail schedules a template for later delivery. If a PENDING entry for
// the same (user, template) already exists the call is rejected, not raised.
// The existence check is a separate read before the insert, so two concurrent
// callers can both pass it; a duplicate send is tolerated (spec'd behavior).
func QueueEmail(userID uint, templateKey string, scheduledFor time.Time, data Variables) QueueResult {
	db := database.Database.Db

	var count int64
	db.Model(&models.EmailQueue{}).
		Where("user_id = ? AND template = ? AND status = ?", userID, templateKey, models.EmailPending).
		Count(&count)
	if count > 0 {
		return QueueResult{Error: fmt.Sprintf("email %s already queued for this user", templateKey)}
	}

	entry := models.EmailQueue{
		UserID:       userID,
		Template:     templateKey,
		ScheduledFor: scheduledFor,
		Status:       models.EmailPending,
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return QueueResult{Error: err.Error()}
		}
		entry.Data = datatypes.JSON(raw)
	}

	if err := db.Create(&entry).Error; err != nil {
		log.Printf("[EMAIL-QUEUE] Failed to queue %s for user %d: %v", templateKey, userID, err)
		return QueueResult{Error: err.Error()}
	}

	return QueueResult{Success: true, QueueID: entry.ID}
}

// CancelQueuedEmails bulk-cancels the user's PENDING entries. With no
// templates given, every pending entry for the user is cancelled. Returns the
// number of rows transitioned.
func CancelQueuedEmails(userID uint, templates ...string) (int64, error) {
	now := time.Now()

	db := database.Database.Db.Model(&models.EmailQueue{}).
		Where("user_id = ? AND status = ?", userID, models.EmailPending)
	if len(templates) > 0 {
		db = db.Where("template IN ?", templates)
	}

	result := db.Updates(map[string]interface{}{
		"status":       models.EmailCancelled,
		"processed_at": now,
	})
	return result.RowsAffected, result.Error
}

// CancelQueuedEmail cancels one PENDING entry by id.
func CancelQueuedEmail(queueID uint) error {
	now := time.Now()
	return database.Database.Db.Model(&models.EmailQueue{}).
		Where("id = ? AND status = ?", queueID, models.EmailPending).
		Updates(map[string]interface{}{
			"status":       models.EmailCancelled,
			"processed_at": now,
		}).Error
}

// ProcessEmailQueue is the idempotent entry point the cron invoker calls.
// It scans up to 100 due PENDING entries oldest-first and resolves each one:
//
//   - scheduled more than 7 days ago      -> CANCELLED (stale, never sent)
//   - user or email address gone          -> CANCELLED (orphaned)
//   - ABANDONMENT* and subscription ACTIVE -> CANCELLED (superseded)
//   - sender reports opted-out             -> CANCELLED
//   - sender reports success               -> SENT
//   - sender reports failure               -> retryCount++; FAILED at 3,
//     otherwise left PENDING with the same scheduledFor for the next run
//
// Each row's update is its own atomic unit; one entry's failure never aborts
// the batch, and a crash mid-batch just leaves the remainder for the next run.
func ProcessEmailQueue() ProcessResult {
	db := database.Database.Db
	now := time.Now()
	staleBefore := now.AddDate(0, 0, -staleThresholdDays)

	var results ProcessResult

	var entries []models.EmailQueue
	if err := db.
		Where("status = ? AND scheduled_for <= ?", models.EmailPending, now).
		Order("scheduled_for asc").
		Limit(maxBatchSize).
		Find(&entries).Error; err != nil {
		log.Printf("[EMAIL-QUEUE] Failed to fetch pending entries: %v", err)
		return results
	}

	for _, entry := range entries {
		results.Processed++

		// Stale: scheduled too long ago to still make sense.
		if entry.ScheduledFor.Before(staleBefore) {
			cancelEntry(entry.ID, now, "email expired (scheduled more than 7 days ago)")
			results.Skipped++
			continue
		}

		// Orphaned: user record or email address is gone.
		var user models.User
		err := db.Where("id = ? AND is_deleted = ?", entry.UserID, false).First(&user).Error
		if err != nil || user.Email == "" {
			cancelEntry(entry.ID, now, "user not found or has no email")
			results.Skipped++
			continue
		}

		// Superseded: abandonment emails no longer apply to subscribers.
		if strings.HasPrefix(entry.Template, AbandonmentPrefix) {
			var sub models.Subscription
			if err := db.Where("user_id = ?", entry.UserID).First(&sub).Error; err == nil &&
				sub.Status == models.SubscriptionActive {
				cancelEntry(entry.ID, now, "user subscribed since email was queued")
				results.Skipped++
				continue
			}
		}

		var vars Variables
		if len(entry.Data) > 0 {
			if err := json.Unmarshal(entry.Data, &vars); err != nil {
				log.Printf("[EMAIL-QUEUE] Bad data payload on entry %d: %v", entry.ID, err)
			}
		}

		sendResult := Send(entry.UserID, entry.Template, vars)

		switch {
		case sendResult.Skipped:
			cancelEntry(entry.ID, now, sendResult.Reason)
			results.Skipped++

		case sendResult.Success:
			db.Model(&models.EmailQueue{}).Where("id = ?", entry.ID).
				Updates(map[string]interface{}{
					"status":       models.EmailSent,
					"processed_at": now,
				})
			results.Sent++

		default:
			newRetryCount := entry.RetryCount + 1
			if newRetryCount >= maxRetryCount {
				db.Model(&models.EmailQueue{}).Where("id = ?", entry.ID).
					Updates(map[string]interface{}{
						"status":       models.EmailFailed,
						"processed_at": now,
						"error":        sendResult.Error,
						"retry_count":  newRetryCount,
					})
				results.Failed++
			} else {
				// Still PENDING; scheduledFor is never advanced, so the entry
				// is retried on every subsequent run until the ceiling.
				db.Model(&models.EmailQueue{}).Where("id = ?", entry.ID).
					Updates(map[string]interface{}{
						"error":       sendResult.Error,
						"retry_count": newRetryCount,
					})
				results.Processed--
			}
		}
	}

	if results.Processed > 0 || len(entries) > 0 {
		log.Printf("[EMAIL-QUEUE] Run complete: processed=%d sent=%d failed=%d skipped=%d",
			results.Processed, results.Sent, results.Failed, results.Skipped)
	}

	return results
}

func cancelEntry(id uint, now time.Time, reason string) {
	if err := database.Database.Db.Model(&models.EmailQueue{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       models.EmailCancelled,
			"processed_at": now,
			"error":        reason,
		}).Error; err != nil {
		log.Printf("[EMAIL-QUEUE] Failed to cancel entry %d: %v", id, err)
	}
}

// PendingCount returns the number of PENDING entries, for monitoring.
func PendingCount() int64 {
	var count int64
	database.Database.Db.Model(&models.EmailQueue{}).
		Where("status = ?", models.EmailPending).
		Count(&count)
	return count
}

// Stats returns per-status queue counts for the admin dashboard.
func Stats() QueueStats {
	db := database.Database.Db
	var stats QueueStats
	db.Model(&models.EmailQueue{}).Where("status = ?", models.EmailPending).Count(&stats.Pending)
	db.Model(&models.EmailQueue{}).Where("status = ?", models.EmailSent).Count(&stats.Sent)
	db.Model(&models.EmailQueue{}).Where("status = ?", models.EmailFailed).Count(&stats.Failed)
	db.Model(&models.EmailQueue{}).Where("status = ?", models.EmailCancelled).Count(&stats.Cancelled)
	return stats
}

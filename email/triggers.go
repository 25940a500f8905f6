package email

import (
	"fmt"
	"log"
	"time"

	"lms/config"
	"lms/database"
	"lms/models"
	courseModels "lms/models/course"
	"lms/progress"

	"github.com/jinzhu/now"
)

// Lifecycle triggers. Every trigger is best-effort: failures are logged and
// swallowed so a broken email path can never abort the signup, completion or
// webhook that fired it.

// TriggerWelcome sends the welcome email and queues the start-journey nudge
// for 24 hours later. Safe against OAuth double-callbacks via the sent-log.
func TriggerWelcome(userID uint) {
	if WasEmailSent(userID, TemplateWelcome, 24) {
		log.Printf("[EMAIL] Welcome already sent to user %d", userID)
		return
	}

	Send(userID, TemplateWelcome, nil)

	QueueEmail(userID, TemplateStartJourney, time.Now().Add(24*time.Hour), nil)
}

// TriggerModuleComplete sends the module-completion email, or the
// course-completion email when the finished module was the last one.
func TriggerModuleComplete(userID, moduleID uint) {
	db := database.Database.Db

	var module courseModels.Module
	if err := db.Where("id = ? AND is_deleted = ?", moduleID, false).First(&module).Error; err != nil {
		log.Printf("[EMAIL] Module %d not found for completion trigger: %v", moduleID, err)
		return
	}

	var next courseModels.Module
	err := db.Where("is_published = ? AND is_deleted = ? AND order_index > ?", true, false, module.OrderIndex).
		Order("order_index asc").
		First(&next).Error
	if err != nil {
		// No next module: the course is done.
		TriggerCourseComplete(userID)
		return
	}

	courseProgress, err := progress.CourseProgressFor(userID)
	if err != nil {
		log.Printf("[EMAIL] Failed to compute progress for user %d: %v", userID, err)
	}

	Send(userID, TemplateModuleComplete, Variables{
		"moduleNumber":       module.OrderIndex,
		"moduleTitle":        module.Title,
		"nextModuleNumber":   next.OrderIndex,
		"nextModuleUrl":      fmt.Sprintf("%s/course/%d", config.AppConfig.AppURL, next.ID),
		"progressPercentage": courseProgress.Percentage,
	})
}

// TriggerCourseComplete sends the course-completion email.
func TriggerCourseComplete(userID uint) {
	var completedLessons int64
	database.Database.Db.Model(&courseModels.LessonProgress{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Count(&completedLessons)

	Send(userID, TemplateCourseComplete, Variables{
		"lessonsCompleted": completedLessons,
	})
}

// TriggerPaymentFailed sends the immediate notice and queues the final
// warning for 3 days later. The final warning is cancelled by the webhook if
// payment recovers first.
func TriggerPaymentFailed(userID uint) {
	Send(userID, TemplatePaymentFailed, nil)

	QueueEmail(userID, TemplatePaymentFailedFinal, time.Now().Add(3*24*time.Hour), nil)
}

// TriggerSubscriptionCancelled confirms a cancellation and names the date
// access lapses.
func TriggerSubscriptionCancelled(userID uint, accessEnd time.Time) {
	Send(userID, TemplateSubscriptionCancelled, Variables{
		"accessEndDate": accessEnd.Format("2 January 2006"),
	})
}

// TriggerAbandonmentSequence queues the three abandonment emails after the
// first free lesson. Subscribers never enter the sequence; the queue
// processor additionally cancels entries for users who subscribe later.
func TriggerAbandonmentSequence(userID uint) {
	var sub models.Subscription
	if err := database.Database.Db.Where("user_id = ?", userID).First(&sub).Error; err == nil &&
		sub.Status == models.SubscriptionActive {
		log.Printf("[EMAIL] Skipping abandonment sequence - user %d is subscribed", userID)
		return
	}

	base := time.Now()
	QueueEmail(userID, TemplateAbandonment1, base.Add(1*time.Hour), nil)
	QueueEmail(userID, TemplateAbandonment2, base.Add(24*time.Hour), nil)
	QueueEmail(userID, TemplateAbandonment3, base.Add(3*24*time.Hour), nil)

	log.Printf("[EMAIL] Abandonment sequence queued for user %d", userID)
}

// ScheduleInactiveNudge resets the 7-day inactivity timer: any pending nudge
// is cancelled and a new one queued for 09:00 a week out.
func ScheduleInactiveNudge(userID uint) {
	if _, err := CancelQueuedEmails(userID, TemplateInactiveNudge); err != nil {
		log.Printf("[EMAIL] Failed to cancel pending nudge for user %d: %v", userID, err)
	}

	nudgeAt := now.With(time.Now().AddDate(0, 0, 7)).BeginningOfDay().Add(9 * time.Hour)

	vars := Variables{}

	var last courseModels.LessonProgress
	err := database.Database.Db.
		Where("user_id = ? AND completed = ?", userID, true).
		Order("completed_at desc").
		First(&last).Error
	if err == nil {
		var lesson courseModels.Lesson
		if database.Database.Db.First(&lesson, last.LessonID).Error == nil {
			vars["lastLesson"] = lesson.Title
		}
	}
	if vars["lastLesson"] == nil {
		vars["lastLesson"] = "Getting started"
	}

	vars["nextLesson"] = "Your next lesson"
	if next, err := progress.NextIncompleteLesson(userID); err == nil && next != nil {
		vars["nextLesson"] = next.Title
	}

	QueueEmail(userID, TemplateInactiveNudge, nudgeAt, vars)
}

// ScheduleRenewalReminder queues a reminder 3 days before renewal, replacing
// any pending one. Nothing is queued when the reminder slot is already past.
func ScheduleRenewalReminder(userID uint, renewalDate time.Time, amountPence int) {
	if _, err := CancelQueuedEmails(userID, TemplateRenewalReminder); err != nil {
		log.Printf("[EMAIL] Failed to cancel pending renewal reminder for user %d: %v", userID, err)
	}

	reminderAt := renewalDate.Add(-3 * 24 * time.Hour)
	if !reminderAt.After(time.Now()) {
		return
	}

	courseProgress, err := progress.CourseProgressFor(userID)
	if err != nil {
		log.Printf("[EMAIL] Failed to compute progress for user %d: %v", userID, err)
	}

	QueueEmail(userID, TemplateRenewalReminder, reminderAt, Variables{
		"renewalDate":        renewalDate.Format("2 January 2006"),
		"amount":             fmt.Sprintf("£%.2f", float64(amountPence)/100),
		"progressPercentage": courseProgress.Percentage,
	})
}

package access

import (
	"fmt"
	"time"

	"lms/database"
	"lms/models"
	courseModels "lms/models/course"
	"lms/progress"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Access reasons returned to callers (and surfaced to the UI).
const (
	ReasonFree        = "free"
	ReasonSubscribed  = "subscribed"
	ReasonOverride    = "override"
	ReasonPastDue     = "past_due"
	ReasonGracePeriod = "grace_period"
	ReasonNoAccess    = "no_access"
)

// SubscriptionInfo is the slice of subscription state callers may see.
type SubscriptionInfo struct {
	Status           string     `json:"status"`
	Plan             string     `json:"plan"`
	CurrentPeriodEnd *time.Time `json:"current_period_end"`
}

// Result is the outcome of an access decision.
type Result struct {
	HasAccess    bool              `json:"has_access"`
	Reason       string            `json:"reason"`
	SoftLock     bool              `json:"soft_lock"`
	Subscription *SubscriptionInfo `json:"subscription"`
}

// LockedByModule names the module blocking a lesson.
type LockedByModule struct {
	ModuleID    uint   `json:"module_id"`
	ModuleTitle string `json:"module_title"`
	ModuleOrder int    `json:"module_order"`
}

// LessonResult extends Result with module gating detail.
type LessonResult struct {
	Result
	IsFree         bool            `json:"is_free"`
	ModuleUnlocked bool            `json:"module_unlocked"`
	LockedByModule *LockedByModule `json:"locked_by_module,omitempty"`
}

func subInfo(sub *models.Subscription) *SubscriptionInfo {
	if sub == nil {
		return nil
	}
	return &SubscriptionInfo{
		Status:           sub.Status,
		Plan:             sub.Plan,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
	}
}

// CheckUserAccess decides whether a user may view premium content.
// First match wins:
//  1. accessOverride -> granted ("override")
//  2. no subscription -> denied ("no_access")
//  3. ACTIVE -> granted ("subscribed")
//  4. PAST_DUE -> granted with soft lock ("past_due")
//  5. CANCELLED with currentPeriodEnd in the future -> granted ("grace_period")
//  6. otherwise -> denied ("no_access")
//
// A missing user resolves to no access, never an error (fail closed).
func CheckUserAccess(userID uint) (Result, error) {
	db := database.Database.Db

	var user models.User
	err := db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		return Result{Reason: ReasonNoAccess}, nil
	}
	if err != nil {
		return Result{Reason: ReasonNoAccess}, err
	}

	var sub *models.Subscription
	var row models.Subscription
	if err := db.Where("user_id = ?", userID).First(&row).Error; err == nil {
		sub = &row
	} else if err != gorm.ErrRecordNotFound {
		return Result{Reason: ReasonNoAccess}, err
	}

	if user.AccessOverride {
		return Result{HasAccess: true, Reason: ReasonOverride, Subscription: subInfo(sub)}, nil
	}

	if sub == nil {
		return Result{Reason: ReasonNoAccess}, nil
	}

	switch sub.Status {
	case models.SubscriptionActive:
		return Result{HasAccess: true, Reason: ReasonSubscribed, Subscription: subInfo(sub)}, nil
	case models.SubscriptionPastDue:
		return Result{HasAccess: true, Reason: ReasonPastDue, SoftLock: true, Subscription: subInfo(sub)}, nil
	case models.SubscriptionCancelled:
		if sub.CurrentPeriodEnd != nil && sub.CurrentPeriodEnd.After(time.Now()) {
			return Result{HasAccess: true, Reason: ReasonGracePeriod, Subscription: subInfo(sub)}, nil
		}
	}

	return Result{Reason: ReasonNoAccess, Subscription: subInfo(sub)}, nil
}

// CheckLessonAccess composes module gating with subscription gating. The
// module lock is checked first: a locked module denies access even to free
// lessons. Free lessons in unlocked modules short-circuit to granted.
func CheckLessonAccess(userID, lessonID uint) (LessonResult, error) {
	db := database.Database.Db

	var lesson courseModels.Lesson
	err := db.Where("id = ? AND is_deleted = ?", lessonID, false).First(&lesson).Error
	if err == gorm.ErrRecordNotFound {
		return LessonResult{Result: Result{Reason: ReasonNoAccess}}, nil
	}
	if err != nil {
		return LessonResult{Result: Result{Reason: ReasonNoAccess}}, err
	}

	var module courseModels.Module
	err = db.Where("id = ? AND is_deleted = ?", lesson.ModuleID, false).First(&module).Error
	if err != nil || !module.IsPublished {
		return LessonResult{Result: Result{Reason: ReasonNoAccess}, IsFree: lesson.IsFree}, nil
	}

	unlocked, err := progress.IsModuleUnlocked(userID, lesson.ModuleID)
	if err != nil {
		return LessonResult{Result: Result{Reason: ReasonNoAccess}, IsFree: lesson.IsFree}, err
	}

	if !unlocked {
		result := LessonResult{
			Result: Result{Reason: ReasonNoAccess},
			IsFree: lesson.IsFree,
		}
		// Name the closest preceding published module as the blocker.
		if module.OrderIndex > 1 {
			var prev courseModels.Module
			if err := db.
				Where("is_published = ? AND is_deleted = ? AND order_index < ?", true, false, module.OrderIndex).
				Order("order_index desc").
				First(&prev).Error; err == nil {
				result.LockedByModule = &LockedByModule{
					ModuleID:    prev.ID,
					ModuleTitle: prev.Title,
					ModuleOrder: prev.OrderIndex,
				}
			}
		}
		return result, nil
	}

	if lesson.IsFree {
		return LessonResult{
			Result:         Result{HasAccess: true, Reason: ReasonFree},
			IsFree:         true,
			ModuleUnlocked: true,
		}, nil
	}

	userAccess, err := CheckUserAccess(userID)
	if err != nil {
		return LessonResult{Result: Result{Reason: ReasonNoAccess}, ModuleUnlocked: true}, err
	}
	return LessonResult{Result: userAccess, ModuleUnlocked: true}, nil
}

// ToggleAccessOverride flips the admin override flag and writes the audit
// event in the same transaction - both land or neither does.
func ToggleAccessOverride(userID, adminID uint, override bool) error {
	name := "access_override_revoked"
	if override {
		name = "access_override_granted"
	}

	props := datatypes.JSON([]byte(fmt.Sprintf(
		`{"admin_id":%d,"timestamp":%q}`, adminID, time.Now().UTC().Format(time.RFC3339),
	)))

	return database.Database.Db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.User{}).
			Where("id = ? AND is_deleted = ?", userID, false).
			Update("access_override", override)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return tx.Create(&models.Event{
			UserID:     userID,
			Name:       name,
			Properties: props,
		}).Error
	})
}


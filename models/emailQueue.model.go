package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Email queue entry statuses.
const (
	EmailPending   = "PENDING"
	EmailSent      = "SENT"
	EmailFailed    = "FAILED"
	EmailCancelled = "CANCELLED"
)

// EmailQueue is a time-delayed, cancellable email awaiting dispatch.
// At most one PENDING row per (user, template) - enforced best-effort by a
// pre-insert check, not by a constraint.
type EmailQueue struct {
	gorm.Model
	UserID       uint           `json:"user_id" gorm:"index;not null"`
	Template     string         `json:"template" gorm:"index;not null"`
	ScheduledFor time.Time      `json:"scheduled_for" gorm:"index;not null"`
	Status       string         `json:"status" gorm:"index;default:'PENDING'"`
	RetryCount   int            `json:"retry_count" gorm:"default:0"`
	Data         datatypes.JSON `json:"data"` // opaque template variables
	Error        string         `json:"error" gorm:"default:''"`
	ProcessedAt  *time.Time     `json:"processed_at"`
}

// EmailLog records every send attempt, sent or not, for auditing.
type EmailLog struct {
	gorm.Model
	UserID   uint           `json:"user_id" gorm:"index;not null"`
	Template string         `json:"template" gorm:"index;not null"`
	Status   string         `json:"status" gorm:"not null"` // SENT, FAILED, CANCELLED
	SentAt   *time.Time     `json:"sent_at"`
	Detail   datatypes.JSON `json:"detail"`
}

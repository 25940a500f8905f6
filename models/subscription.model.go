package models

import (
	"time"

	"gorm.io/gorm"
)

// Subscription statuses as reported by the billing provider.
const (
	SubscriptionActive     = "ACTIVE"
	SubscriptionPastDue    = "PAST_DUE"
	SubscriptionCancelled  = "CANCELLED"
	SubscriptionIncomplete = "INCOMPLETE"
	SubscriptionTrialing   = "TRIALING"
	SubscriptionUnpaid     = "UNPAID"
)

// Subscription is the local mirror of the billing provider's subscription
// state. At most one row per user; mutated only by webhook handlers.
type Subscription struct {
	gorm.Model
	UserID           uint   `json:"user_id" gorm:"uniqueIndex;not null"`
	Status           string `json:"status" gorm:"default:'INCOMPLETE'"`
	Plan             string `json:"plan" gorm:"default:''"` // MONTHLY, ANNUAL
	ProviderSubID    string `json:"provider_sub_id" gorm:"index"`
	CurrentPeriodEnd *time.Time `json:"current_period_end"`
	CancelledAt      *time.Time `json:"cancelled_at"`
}

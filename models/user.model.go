package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Name             string `gorm:"default:''"`
	Email            string `gorm:"unique;not null"`
	Role             string `gorm:"default:'USER'"` // USER, ADMIN
	Password         string `gorm:"not null"`
	AccessOverride   bool   `gorm:"default:false"` // admin-granted access regardless of subscription
	MarketingOptOut  bool   `gorm:"default:false"`
	UnsubscribeToken string `gorm:"index"`
	BillingCustomer  string `json:"billing_customer" gorm:"index"` // payment provider customer id
	LastLogin        time.Time
	IsDeleted        bool `gorm:"default:false"`
}

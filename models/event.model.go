package models

import (
	"gorm.io/gorm"
	"gorm.io/datatypes"
)

// Event is the generic analytics/audit log. Writes are fire-and-forget;
// a failed insert must never break the operation that produced it.
type Event struct {
	gorm.Model
	UserID     uint           `json:"user_id" gorm:"index;not null"`
	Name       string         `json:"name" gorm:"index;not null"`
	Properties datatypes.JSON `json:"properties"`
}

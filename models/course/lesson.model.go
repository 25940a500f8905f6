package course

import (
	"time"

	"gorm.io/gorm"
)

// Lesson is an atomic content unit within a module. IsFree lessons bypass
// subscription checks but not module-lock checks.
type Lesson struct {
	gorm.Model
	ModuleID    uint   `json:"module_id" gorm:"index;not null"`
	Title       string `json:"title"`
	Description string `json:"description"`
	OrderIndex  int    `json:"order_index" gorm:"default:0"` // 1-based within module
	IsPublished bool   `json:"is_published" gorm:"default:false"`
	IsFree      bool   `json:"is_free" gorm:"default:false"`

	// Video hosting provider references, populated by the asset-ready webhook.
	VideoAssetID    string `json:"video_asset_id" gorm:"index"`
	VideoPlaybackID string `json:"video_playback_id"`
	VideoDuration   int    `json:"video_duration" gorm:"default:0"` // seconds
	VideoReady      bool   `json:"video_ready" gorm:"default:false"`

	IsDeleted bool `gorm:"default:false"`
}

// LessonProgress is one row per (user, lesson), created on the first
// completion attempt and updated, never deleted, on undo.
type LessonProgress struct {
	gorm.Model
	UserID      uint       `json:"user_id" gorm:"index:idx_user_lesson,unique;not null"`
	LessonID    uint       `json:"lesson_id" gorm:"index:idx_user_lesson,unique;not null"`
	Completed   bool       `json:"completed" gorm:"default:false"`
	CompletedAt *time.Time `json:"completed_at"`
}

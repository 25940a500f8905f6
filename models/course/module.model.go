package course

import "gorm.io/gorm"

// Module represents a top-level ordered unit of course content.
// OrderIndex values are dense positive integers starting at 1, unique across
// the module set; the reorder operation rewrites all of them in one
// transaction to keep that invariant.
type Module struct {
	gorm.Model
	Title       string `json:"title"`
	Description string `json:"description"`
	OrderIndex  int    `json:"order_index" gorm:"index;default:0"`
	IsPublished bool   `json:"is_published" gorm:"default:false"`
	IsDeleted   bool   `gorm:"default:false"`
}

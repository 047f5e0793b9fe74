package tag

import (
	"time"
)

// Tag is either a plain label (unlimited per item) or, with IsCategory set,
// a category: at most one per item, optionally binding a field schema that
// supplies category-specific fields.
type Tag struct {
	ID          uint64    `json:"id"`
	WorkspaceID uint64    `json:"workspace_id" gorm:"not null;uniqueIndex:uidx_tags_workspace_name,priority:1"`
	Name        string    `json:"name" gorm:"not null;uniqueIndex:uidx_tags_workspace_name,priority:2"`
	Color       string    `json:"color" gorm:"size:7;default:#1976d2"`
	IsCategory  bool      `json:"is_category" gorm:"not null;default:false"`
	SchemaID    *uint64   `json:"schema_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ItemTag is the item<->tag junction.
type ItemTag struct {
	ItemID    uint64    `json:"item_id" gorm:"primaryKey;autoIncrement:false"`
	TagID     uint64    `json:"tag_id" gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time `json:"created_at"`
}

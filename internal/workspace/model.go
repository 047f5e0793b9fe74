package workspace

import (
	"time"
)

// Workspace scopes items, tags, fields and schemas for one owner. Its
// optional default schema supplies fields to every item regardless of
// category.
type Workspace struct {
	ID              uint64    `json:"id"`
	Name            string    `json:"name" gorm:"not null"`
	OwnerID         uint64    `json:"owner_id" gorm:"not null;index"`
	DefaultSchemaID *uint64   `json:"default_schema_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

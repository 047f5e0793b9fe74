package item

import (
	"time"
)

// Item is one saved video/bookmark link.
type Item struct {
	ID          uint64    `json:"id"`
	WorkspaceID uint64    `json:"workspace_id" gorm:"not null;index"`
	URL         string    `json:"url" gorm:"not null"`
	Title       string    `json:"title"`
	Note        *string   `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

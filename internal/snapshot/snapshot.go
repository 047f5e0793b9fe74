// Package snapshot implements the advisory key-value store that holds an
// item's category-scoped field values across category changes. The store is
// best-effort by contract: presence of a snapshot is never authoritative over
// the primary store, and readers must treat corruption as absence.
package snapshot

import (
	"context"
	"errors"
	"time"
)

// Key identifies one snapshot: the values an item held under one category.
type Key struct {
	ItemID     uint64
	CategoryID uint64
}

// ValueRecord is one saved field value. Exactly one slot is set.
type ValueRecord struct {
	FieldID uint64  `json:"field_id"`
	Text    *string `json:"text,omitempty"`
	Number  *int    `json:"number,omitempty"`
	Bool    *bool   `json:"bool,omitempty"`
}

type Payload struct {
	Timestamp time.Time     `json:"timestamp"`
	Values    []ValueRecord `json:"values"`
}

// Entry is a listing row: which category a backup exists for and when it
// was taken.
type Entry struct {
	CategoryID uint64    `json:"category_id"`
	Timestamp  time.Time `json:"timestamp"`
}

var (
	ErrNotFound  = errors.New("snapshot not found")
	ErrCorrupted = errors.New("snapshot unreadable")
)

// Store is the atomic per-key snapshot store. Put must never leave a
// partially-written record visible to a concurrent reader.
type Store interface {
	Put(ctx context.Context, key Key, payload *Payload) error
	Get(ctx context.Context, key Key) (*Payload, error)
	List(ctx context.Context, itemID uint64) ([]Entry, error)
	Delete(ctx context.Context, key Key) (bool, error)
}

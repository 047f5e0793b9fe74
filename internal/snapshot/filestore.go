package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// FileStore keeps one JSON file per (item, category) key:
//
//	<root>/item_<itemID>/category_<categoryID>.json
//
// Writes go to a temp file in the same directory followed by a single rename,
// so a crash mid-write never leaves a half-written file under the final name.
type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot root: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) itemDir(itemID uint64) string {
	return filepath.Join(s.root, fmt.Sprintf("item_%d", itemID))
}

func (s *FileStore) path(key Key) string {
	return filepath.Join(s.itemDir(key.ItemID), fmt.Sprintf("category_%d.json", key.CategoryID))
}

func (s *FileStore) Put(ctx context.Context, key Key, payload *Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Validate before touching the disk: an unmarshalable payload must never
	// reach the final key.
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := s.itemDir(key.ItemID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".category_*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	// Atomic commit; same directory so the rename can't cross filesystems.
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, key Key) (*Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}

	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return &payload, nil
}

func (s *FileStore) List(ctx context.Context, itemID uint64) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(s.itemDir(itemID))
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, err
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if !strings.HasPrefix(name, "category_") || !strings.HasSuffix(name, ".json") {
			continue // temp files and strays
		}
		idStr := strings.TrimSuffix(strings.TrimPrefix(name, "category_"), ".json")
		categoryID, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			continue
		}

		key := Key{ItemID: itemID, CategoryID: categoryID}
		payload, err := s.Get(ctx, key)
		if err != nil {
			continue // unreadable backups are invisible, not fatal
		}
		entries = append(entries, Entry{CategoryID: categoryID, Timestamp: payload.Timestamp})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].CategoryID < entries[j].CategoryID })
	return entries, nil
}

func (s *FileStore) Delete(ctx context.Context, key Key) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	err := os.Remove(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

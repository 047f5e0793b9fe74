package tag

import (
	"clipshelf/internal/errors"
	"clipshelf/internal/field"
	"clipshelf/internal/snapshot"
	"context"
	defError "errors"
	"log"
	"time"

	"gorm.io/gorm"
)

// FieldProvider is the slice of the field service the category manager needs:
// which fields a schema carries and reading/writing an item's values.
type FieldProvider interface {
	SchemaFields(ctx context.Context, schemaID uint64) ([]field.CustomField, error)
	ValuesForItem(ctx context.Context, itemID uint64, fieldIDs []uint64) ([]field.FieldValue, error)
	UpsertValues(ctx context.Context, itemID uint64, values []field.FieldValue) (int, error)
}

// CategoryChangeResult reports what SetCategory did. SnapshotWriteFailed is a
// warning, not an error: the category change itself went through.
type CategoryChangeResult struct {
	SnapshotCreated     bool `json:"snapshot_created"`
	SnapshotAvailable   bool `json:"snapshot_available"`
	SnapshotWriteFailed bool `json:"snapshot_write_failed,omitempty"`
}

type Service interface {
	CreateTag(ctx context.Context, t *Tag) error
	GetTag(ctx context.Context, id uint64) (*Tag, error)
	ListTags(ctx context.Context, workspaceID uint64) ([]Tag, error)
	UpdateTag(ctx context.Context, t *Tag) error
	DeleteTag(ctx context.Context, id uint64) error

	ListItemTags(ctx context.Context, itemID uint64) ([]Tag, error)
	CurrentCategory(ctx context.Context, itemID uint64) (*Tag, error)
	SetCategory(ctx context.Context, itemID uint64, categoryID *uint64) (*CategoryChangeResult, error)
	Restore(ctx context.Context, itemID, categoryID uint64) (int, error)
	ListBackups(ctx context.Context, itemID uint64) ([]snapshot.Entry, error)
	DeleteBackup(ctx context.Context, itemID, categoryID uint64) (bool, error)

	ValidateAssignment(ctx context.Context, itemID uint64, tagIDs []uint64) error
	AssignTags(ctx context.Context, itemID uint64, tagIDs []uint64) error
	DetachTag(ctx context.Context, itemID, tagID uint64) error

	CleanupItemBackups(ctx context.Context, itemID uint64)
}

type DefaultService struct {
	repository Repository
	fields     FieldProvider
	snapshots  snapshot.Store
}

func NewService(repository Repository, fields FieldProvider, snapshots snapshot.Store) Service {
	return &DefaultService{
		repository: repository,
		fields:     fields,
		snapshots:  snapshots,
	}
}

func (s *DefaultService) CreateTag(ctx context.Context, t *Tag) error {
	if err := s.checkSchemaBinding(ctx, t); err != nil {
		return err
	}

	if err := s.repository.CreateTag(ctx, t); err != nil {
		if defError.Is(err, gorm.ErrDuplicatedKey) {
			return errors.Conflict("A tag with this name already exists in the workspace", err)
		}
		return err
	}
	return nil
}

func (s *DefaultService) GetTag(ctx context.Context, id uint64) (*Tag, error) {
	t, err := s.repository.FindTagByID(ctx, id)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Tag not found", err)
		}
		return nil, err
	}
	return t, nil
}

func (s *DefaultService) ListTags(ctx context.Context, workspaceID uint64) ([]Tag, error) {
	return s.repository.ListTags(ctx, workspaceID)
}

func (s *DefaultService) UpdateTag(ctx context.Context, t *Tag) error {
	if err := s.checkSchemaBinding(ctx, t); err != nil {
		return err
	}

	stored, err := s.repository.FindTagByID(ctx, t.ID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return errors.NotFound("Tag not found", err)
		}
		return err
	}

	// Promoting a label to a category would hand a second category to any
	// item that carries this tag and is already categorized through another.
	if !stored.IsCategory && t.IsCategory {
		n, err := s.repository.CountItemsWithOtherCategory(ctx, t.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return errors.Conflict("Tag can't become a category: items carrying it already have one", nil)
		}
	}

	if err := s.repository.UpdateTag(ctx, t); err != nil {
		if defError.Is(err, gorm.ErrDuplicatedKey) {
			return errors.Conflict("A tag with this name already exists in the workspace", err)
		}
		return err
	}
	return nil
}

// checkSchemaBinding: only categories may bind a schema, and it may be absent
// even then.
func (s *DefaultService) checkSchemaBinding(ctx context.Context, t *Tag) error {
	if t.SchemaID == nil {
		return nil
	}
	if !t.IsCategory {
		return errors.UnprocessableEntity("Only category tags can bind a field schema", nil)
	}
	return nil
}

func (s *DefaultService) DeleteTag(ctx context.Context, id uint64) error {
	if _, err := s.GetTag(ctx, id); err != nil {
		return err
	}
	return s.repository.DeleteTag(ctx, id)
}

func (s *DefaultService) ListItemTags(ctx context.Context, itemID uint64) ([]Tag, error) {
	return s.repository.ListItemTags(ctx, itemID)
}

func (s *DefaultService) CurrentCategory(ctx context.Context, itemID uint64) (*Tag, error) {
	return s.repository.CurrentCategory(ctx, itemID)
}

// SetCategory runs the category transition: snapshot the outgoing category's
// exclusive values (best-effort), then detach+attach atomically, and report
// whether a backup exists for the incoming category.
func (s *DefaultService) SetCategory(ctx context.Context, itemID uint64, categoryID *uint64) (*CategoryChangeResult, error) {
	itemCtx, err := s.repository.ResolveItem(ctx, itemID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Item not found", err)
		}
		return nil, err
	}

	current, err := s.repository.CurrentCategory(ctx, itemID)
	if err != nil {
		return nil, err
	}

	// Reassigning the same category (or none to none) is a no-op.
	if sameCategory(current, categoryID) {
		return &CategoryChangeResult{}, nil
	}

	var newTag *Tag
	if categoryID != nil {
		newTag, err = s.GetTag(ctx, *categoryID)
		if err != nil {
			return nil, err
		}
		if !newTag.IsCategory {
			return nil, errors.UnprocessableEntity("Tag is not a category", nil)
		}
		if newTag.WorkspaceID != itemCtx.WorkspaceID {
			return nil, errors.UnprocessableEntity("Category belongs to a different workspace", nil)
		}
	}

	result := &CategoryChangeResult{}

	// Snapshot the outgoing category's exclusive values before it goes
	// dormant. A write failure must not block the category change.
	if current != nil {
		created, failed := s.backupCategoryValues(ctx, itemID, itemCtx, current)
		result.SnapshotCreated = created
		result.SnapshotWriteFailed = failed
	}

	var oldID *uint64
	if current != nil {
		oldID = &current.ID
	}
	if err := s.repository.SwitchCategory(ctx, itemID, oldID, categoryID); err != nil {
		return nil, err
	}

	// Offer a replay if this item was in the new category before.
	if categoryID != nil {
		_, err := s.snapshots.Get(ctx, snapshot.Key{ItemID: itemID, CategoryID: *categoryID})
		result.SnapshotAvailable = err == nil
	}

	return result, nil
}

func sameCategory(current *Tag, categoryID *uint64) bool {
	if current == nil {
		return categoryID == nil
	}
	return categoryID != nil && current.ID == *categoryID
}

// backupCategoryValues writes the snapshot for the outgoing category. Returns
// (created, writeFailed); nothing to save yields (false, false).
func (s *DefaultService) backupCategoryValues(ctx context.Context, itemID uint64, itemCtx *field.ItemContext, current *Tag) (bool, bool) {
	if current.SchemaID == nil {
		return false, false // category carries no fields
	}

	categoryFields, err := s.fields.SchemaFields(ctx, *current.SchemaID)
	if err != nil {
		log.Printf("[SNAPSHOT] can't load schema %d fields for item %d: %v", *current.SchemaID, itemID, err)
		return false, true
	}

	var workspaceFields []field.CustomField
	if itemCtx.DefaultSchemaID != nil {
		workspaceFields, err = s.fields.SchemaFields(ctx, *itemCtx.DefaultSchemaID)
		if err != nil {
			log.Printf("[SNAPSHOT] can't load default schema fields for item %d: %v", itemID, err)
			return false, true
		}
	}

	// Only category-exclusive values go dormant; workspace-shared fields stay
	// visible and need no copy.
	ids := field.CategoryOnlyFieldIDs(workspaceFields, categoryFields)
	if len(ids) == 0 {
		return false, false
	}

	values, err := s.fields.ValuesForItem(ctx, itemID, ids)
	if err != nil {
		log.Printf("[SNAPSHOT] can't read values for item %d: %v", itemID, err)
		return false, true
	}
	if len(values) == 0 {
		return false, false
	}

	payload := &snapshot.Payload{
		Timestamp: time.Now().UTC(),
		Values:    toValueRecords(values),
	}
	key := snapshot.Key{ItemID: itemID, CategoryID: current.ID}
	if err := s.snapshots.Put(ctx, key, payload); err != nil {
		log.Printf("[SNAPSHOT] write failed for item %d category %d: %v", itemID, current.ID, err)
		return false, true
	}

	return true, false
}

// Restore replays a backup into the primary store. Missing or corrupted
// snapshots are a recoverable condition: restore 0 values, never fail.
func (s *DefaultService) Restore(ctx context.Context, itemID, categoryID uint64) (int, error) {
	payload, err := s.snapshots.Get(ctx, snapshot.Key{ItemID: itemID, CategoryID: categoryID})
	if err != nil {
		if defError.Is(err, snapshot.ErrNotFound) || defError.Is(err, snapshot.ErrCorrupted) {
			log.Printf("[SNAPSHOT] nothing to restore for item %d category %d: %v", itemID, categoryID, err)
			return 0, nil
		}
		return 0, err
	}

	return s.fields.UpsertValues(ctx, itemID, fromValueRecords(itemID, payload.Values))
}

func (s *DefaultService) ListBackups(ctx context.Context, itemID uint64) ([]snapshot.Entry, error) {
	return s.snapshots.List(ctx, itemID)
}

func (s *DefaultService) DeleteBackup(ctx context.Context, itemID, categoryID uint64) (bool, error) {
	return s.snapshots.Delete(ctx, snapshot.Key{ItemID: itemID, CategoryID: categoryID})
}

// ValidateAssignment enforces the one-category invariant on a batch before
// anything mutates.
func (s *DefaultService) ValidateAssignment(ctx context.Context, itemID uint64, tagIDs []uint64) error {
	tags, err := s.repository.FindTagsByIDs(ctx, tagIDs)
	if err != nil {
		return err
	}
	if len(tags) != len(dedupe(tagIDs)) {
		return errors.UnprocessableEntity("Assignment references unknown tags", nil)
	}

	var categoryIDs []uint64
	for _, t := range tags {
		if t.IsCategory {
			categoryIDs = append(categoryIDs, t.ID)
		}
	}
	if len(categoryIDs) > 1 {
		return &errors.MultipleCategoryError{TagIDs: categoryIDs}
	}

	if len(categoryIDs) == 1 {
		current, err := s.repository.CurrentCategory(ctx, itemID)
		if err != nil {
			return err
		}
		if current != nil && current.ID != categoryIDs[0] {
			return &errors.CategoryConflictError{CurrentID: current.ID, NewID: categoryIDs[0]}
		}
	}

	return nil
}

// AssignTags attaches a batch of tags after validation. Label tags always go
// through; a category is only accepted when it matches the current one or the
// item is uncategorized.
func (s *DefaultService) AssignTags(ctx context.Context, itemID uint64, tagIDs []uint64) error {
	if _, err := s.repository.ResolveItem(ctx, itemID); err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return errors.NotFound("Item not found", err)
		}
		return err
	}

	if err := s.ValidateAssignment(ctx, itemID, tagIDs); err != nil {
		return err
	}

	return s.repository.AttachTags(ctx, itemID, dedupe(tagIDs))
}

func (s *DefaultService) DetachTag(ctx context.Context, itemID, tagID uint64) error {
	return s.repository.DetachTag(ctx, itemID, tagID)
}

// CleanupItemBackups drops every snapshot of a deleted item. Best effort,
// meant to run on the worker pool.
func (s *DefaultService) CleanupItemBackups(ctx context.Context, itemID uint64) {
	entries, err := s.snapshots.List(ctx, itemID)
	if err != nil {
		log.Printf("[SNAPSHOT] cleanup list failed for item %d: %v", itemID, err)
		return
	}
	for _, e := range entries {
		if _, err := s.snapshots.Delete(ctx, snapshot.Key{ItemID: itemID, CategoryID: e.CategoryID}); err != nil {
			log.Printf("[SNAPSHOT] cleanup delete failed for item %d category %d: %v", itemID, e.CategoryID, err)
		}
	}
}

func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func toValueRecords(values []field.FieldValue) []snapshot.ValueRecord {
	records := make([]snapshot.ValueRecord, 0, len(values))
	for _, v := range values {
		records = append(records, snapshot.ValueRecord{
			FieldID: v.FieldID,
			Text:    v.TextValue,
			Number:  v.NumberValue,
			Bool:    v.BoolValue,
		})
	}
	return records
}

func fromValueRecords(itemID uint64, records []snapshot.ValueRecord) []field.FieldValue {
	values := make([]field.FieldValue, 0, len(records))
	for _, rec := range records {
		values = append(values, field.FieldValue{
			ItemID:      itemID,
			FieldID:     rec.FieldID,
			TextValue:   rec.Text,
			NumberValue: rec.Number,
			BoolValue:   rec.Bool,
		})
	}
	return values
}

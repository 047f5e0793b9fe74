package field

import (
	"clipshelf/internal/errors"
	"context"
	defError "errors"

	"gorm.io/gorm"
)

// ItemContext is everything the aggregation engine needs to know about an
// item: which workspace it lives in and which schemas feed its field list.
type ItemContext struct {
	WorkspaceID      uint64
	DefaultSchemaID  *uint64
	CategorySchemaID *uint64
}

// ItemResolver is implemented by the tag repository, which owns the
// item-tag association and can see the workspace's default schema.
type ItemResolver interface {
	ResolveItem(ctx context.Context, itemID uint64) (*ItemContext, error)
}

type Service interface {
	CreateField(ctx context.Context, f *CustomField) error
	GetField(ctx context.Context, id uint64) (*CustomField, error)
	ListFields(ctx context.Context, workspaceID uint64) ([]CustomField, error)
	UpdateFieldConfig(ctx context.Context, id uint64, name string, config Config) (*CustomField, error)
	DeleteField(ctx context.Context, id uint64) error

	CreateSchema(ctx context.Context, s *FieldSchema) error
	ListSchemas(ctx context.Context, workspaceID uint64) ([]FieldSchema, error)
	DeleteSchema(ctx context.Context, id uint64) error
	AddFieldToSchema(ctx context.Context, schemaID, fieldID uint64, displayOrder int) error
	RemoveFieldFromSchema(ctx context.Context, schemaID, fieldID uint64) error
	ReorderSchema(ctx context.Context, schemaID uint64, fieldIDs []uint64) error
	SchemaFields(ctx context.Context, schemaID uint64) ([]CustomField, error)

	AvailableFields(ctx context.Context, itemID uint64) ([]CustomField, error)
	ItemValues(ctx context.Context, itemID uint64) ([]FieldValue, error)
	SetValue(ctx context.Context, itemID uint64, v *FieldValue) error
	ClearValue(ctx context.Context, itemID, fieldID uint64) error

	ValuesForItem(ctx context.Context, itemID uint64, fieldIDs []uint64) ([]FieldValue, error)
	UpsertValues(ctx context.Context, itemID uint64, values []FieldValue) (int, error)
	FieldsByIDs(ctx context.Context, ids []uint64) ([]CustomField, error)
}

type DefaultService struct {
	repository Repository
	items      ItemResolver
}

func NewService(repository Repository, items ItemResolver) Service {
	return &DefaultService{repository: repository, items: items}
}

func (s *DefaultService) CreateField(ctx context.Context, f *CustomField) error {
	if !f.Type.Valid() {
		return errors.UnprocessableEntity("Unknown field type", nil)
	}
	if err := f.ValidateConfig(); err != nil {
		return errors.UnprocessableEntity("Invalid field config", err)
	}

	if err := s.repository.CreateField(ctx, f); err != nil {
		if defError.Is(err, gorm.ErrDuplicatedKey) {
			return errors.Conflict("A field with this name already exists in the workspace", err)
		}
		return err
	}
	return nil
}

func (s *DefaultService) GetField(ctx context.Context, id uint64) (*CustomField, error) {
	f, err := s.repository.FindFieldByID(ctx, id)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Field not found", err)
		}
		return nil, err
	}
	return f, nil
}

func (s *DefaultService) ListFields(ctx context.Context, workspaceID uint64) ([]CustomField, error) {
	return s.repository.ListFields(ctx, workspaceID)
}

// UpdateFieldConfig edits a field's name and config. The type is identity and
// can't change once values may exist.
func (s *DefaultService) UpdateFieldConfig(ctx context.Context, id uint64, name string, config Config) (*CustomField, error) {
	f, err := s.GetField(ctx, id)
	if err != nil {
		return nil, err
	}

	if name != "" {
		f.Name = name
	}
	f.Config = config
	if err := f.ValidateConfig(); err != nil {
		return nil, errors.UnprocessableEntity("Invalid field config", err)
	}

	if err := s.repository.UpdateField(ctx, f); err != nil {
		if defError.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.Conflict("A field with this name already exists in the workspace", err)
		}
		return nil, err
	}
	return f, nil
}

func (s *DefaultService) DeleteField(ctx context.Context, id uint64) error {
	if _, err := s.GetField(ctx, id); err != nil {
		return err
	}
	return s.repository.DeleteField(ctx, id)
}

func (s *DefaultService) CreateSchema(ctx context.Context, schema *FieldSchema) error {
	return s.repository.CreateSchema(ctx, schema)
}

func (s *DefaultService) ListSchemas(ctx context.Context, workspaceID uint64) ([]FieldSchema, error) {
	return s.repository.ListSchemas(ctx, workspaceID)
}

func (s *DefaultService) DeleteSchema(ctx context.Context, id uint64) error {
	if _, err := s.repository.FindSchemaByID(ctx, id); err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return errors.NotFound("Schema not found", err)
		}
		return err
	}
	return s.repository.DeleteSchema(ctx, id)
}

func (s *DefaultService) AddFieldToSchema(ctx context.Context, schemaID, fieldID uint64, displayOrder int) error {
	schema, err := s.repository.FindSchemaByID(ctx, schemaID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return errors.NotFound("Schema not found", err)
		}
		return err
	}

	f, err := s.GetField(ctx, fieldID)
	if err != nil {
		return err
	}
	if f.WorkspaceID != schema.WorkspaceID {
		return errors.UnprocessableEntity("Field and schema belong to different workspaces", nil)
	}

	if err := s.repository.AddSchemaField(ctx, schemaID, fieldID, displayOrder); err != nil {
		if defError.Is(err, gorm.ErrDuplicatedKey) {
			return errors.Conflict("Field already in schema", err)
		}
		return err
	}
	return nil
}

func (s *DefaultService) RemoveFieldFromSchema(ctx context.Context, schemaID, fieldID uint64) error {
	return s.repository.RemoveSchemaField(ctx, schemaID, fieldID)
}

func (s *DefaultService) ReorderSchema(ctx context.Context, schemaID uint64, fieldIDs []uint64) error {
	return s.repository.ReorderSchemaFields(ctx, schemaID, fieldIDs)
}

func (s *DefaultService) SchemaFields(ctx context.Context, schemaID uint64) ([]CustomField, error) {
	return s.repository.ListSchemaFields(ctx, schemaID)
}

// AvailableFields computes the ordered, deduplicated field list for an item:
// workspace default schema first, then the category schema minus duplicates.
// Missing schemas on either side degrade to an empty component, never an error.
func (s *DefaultService) AvailableFields(ctx context.Context, itemID uint64) ([]CustomField, error) {
	itemCtx, err := s.items.ResolveItem(ctx, itemID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Item not found", err)
		}
		return nil, err
	}

	var workspaceFields, categoryFields []CustomField

	if itemCtx.DefaultSchemaID != nil {
		workspaceFields, err = s.repository.ListSchemaFields(ctx, *itemCtx.DefaultSchemaID)
		if err != nil {
			return nil, err
		}
	}

	if itemCtx.CategorySchemaID != nil {
		categoryFields, err = s.repository.ListSchemaFields(ctx, *itemCtx.CategorySchemaID)
		if err != nil {
			return nil, err
		}
	}

	return MergeFields(workspaceFields, categoryFields), nil
}

// ItemValues returns the stored values restricted to the fields currently
// visible on the item. Dormant values stay in the table but are not surfaced.
func (s *DefaultService) ItemValues(ctx context.Context, itemID uint64) ([]FieldValue, error) {
	fields, err := s.AvailableFields(ctx, itemID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(fields))
	for _, f := range fields {
		ids = append(ids, f.ID)
	}
	return s.repository.ValuesForItem(ctx, itemID, ids)
}

func (s *DefaultService) SetValue(ctx context.Context, itemID uint64, v *FieldValue) error {
	f, err := s.GetField(ctx, v.FieldID)
	if err != nil {
		return err
	}

	if err := f.ValidateValue(v); err != nil {
		return errors.UnprocessableEntity("Invalid field value", err)
	}

	v.ItemID = itemID
	return s.repository.UpsertValue(ctx, v)
}

func (s *DefaultService) ClearValue(ctx context.Context, itemID, fieldID uint64) error {
	return s.repository.DeleteValue(ctx, itemID, fieldID)
}

func (s *DefaultService) ValuesForItem(ctx context.Context, itemID uint64, fieldIDs []uint64) ([]FieldValue, error) {
	return s.repository.ValuesForItem(ctx, itemID, fieldIDs)
}

// UpsertValues writes back a batch of values, dropping any whose field no
// longer exists, and reports how many were applied. Used by snapshot restore.
func (s *DefaultService) UpsertValues(ctx context.Context, itemID uint64, values []FieldValue) (int, error) {
	ids := make([]uint64, 0, len(values))
	for _, v := range values {
		ids = append(ids, v.FieldID)
	}

	existing, err := s.repository.FindFieldsByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}
	known := make(map[uint64]bool, len(existing))
	for _, f := range existing {
		known[f.ID] = true
	}

	restored := 0
	for i := range values {
		if !known[values[i].FieldID] {
			continue // field deleted since the snapshot was taken
		}
		values[i].ItemID = itemID
		if err := s.repository.UpsertValue(ctx, &values[i]); err != nil {
			return restored, err
		}
		restored++
	}
	return restored, nil
}

func (s *DefaultService) FieldsByIDs(ctx context.Context, ids []uint64) ([]CustomField, error) {
	return s.repository.FindFieldsByIDs(ctx, ids)
}

package field

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	CreateField(ctx context.Context, f *CustomField) error
	FindFieldByID(ctx context.Context, id uint64) (*CustomField, error)
	FindFieldsByIDs(ctx context.Context, ids []uint64) ([]CustomField, error)
	ListFields(ctx context.Context, workspaceID uint64) ([]CustomField, error)
	UpdateField(ctx context.Context, f *CustomField) error
	DeleteField(ctx context.Context, id uint64) error

	CreateSchema(ctx context.Context, s *FieldSchema) error
	FindSchemaByID(ctx context.Context, id uint64) (*FieldSchema, error)
	ListSchemas(ctx context.Context, workspaceID uint64) ([]FieldSchema, error)
	DeleteSchema(ctx context.Context, id uint64) error

	AddSchemaField(ctx context.Context, schemaID, fieldID uint64, displayOrder int) error
	RemoveSchemaField(ctx context.Context, schemaID, fieldID uint64) error
	ReorderSchemaFields(ctx context.Context, schemaID uint64, fieldIDs []uint64) error
	ListSchemaFields(ctx context.Context, schemaID uint64) ([]CustomField, error)

	UpsertValue(ctx context.Context, v *FieldValue) error
	DeleteValue(ctx context.Context, itemID, fieldID uint64) error
	ValuesForItem(ctx context.Context, itemID uint64, fieldIDs []uint64) ([]FieldValue, error)
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) CreateField(ctx context.Context, f *CustomField) error {
	f.CreatedAt = time.Now().UTC()
	f.UpdatedAt = f.CreatedAt
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *RepositoryImpl) FindFieldByID(ctx context.Context, id uint64) (*CustomField, error) {
	var f CustomField
	err := r.db.WithContext(ctx).First(&f, id).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *RepositoryImpl) FindFieldsByIDs(ctx context.Context, ids []uint64) ([]CustomField, error) {
	var fields []CustomField
	if len(ids) == 0 {
		return fields, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&fields).Error
	return fields, err
}

func (r *RepositoryImpl) ListFields(ctx context.Context, workspaceID uint64) ([]CustomField, error) {
	var fields []CustomField
	err := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("id ASC").
		Find(&fields).Error
	return fields, err
}

func (r *RepositoryImpl) UpdateField(ctx context.Context, f *CustomField) error {
	f.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(f).Error
}

// DeleteField removes the field, its schema memberships and every stored
// value in one transaction.
func (r *RepositoryImpl) DeleteField(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("field_id = ?", id).Delete(&FieldValue{}).Error; err != nil {
			return err
		}
		if err := tx.Where("field_id = ?", id).Delete(&SchemaField{}).Error; err != nil {
			return err
		}
		return tx.Delete(&CustomField{}, id).Error
	})
}

func (r *RepositoryImpl) CreateSchema(ctx context.Context, s *FieldSchema) error {
	s.CreatedAt = time.Now().UTC()
	s.UpdatedAt = s.CreatedAt
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *RepositoryImpl) FindSchemaByID(ctx context.Context, id uint64) (*FieldSchema, error) {
	var s FieldSchema
	err := r.db.WithContext(ctx).First(&s, id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RepositoryImpl) ListSchemas(ctx context.Context, workspaceID uint64) ([]FieldSchema, error) {
	var schemas []FieldSchema
	err := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("id ASC").
		Find(&schemas).Error
	return schemas, err
}

// DeleteSchema removes the schema and its junction rows only; fields and
// their values survive.
func (r *RepositoryImpl) DeleteSchema(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("schema_id = ?", id).Delete(&SchemaField{}).Error; err != nil {
			return err
		}
		return tx.Delete(&FieldSchema{}, id).Error
	})
}

func (r *RepositoryImpl) AddSchemaField(ctx context.Context, schemaID, fieldID uint64, displayOrder int) error {
	return r.db.WithContext(ctx).Create(&SchemaField{
		SchemaID:     schemaID,
		FieldID:      fieldID,
		DisplayOrder: displayOrder,
	}).Error
}

func (r *RepositoryImpl) RemoveSchemaField(ctx context.Context, schemaID, fieldID uint64) error {
	return r.db.WithContext(ctx).
		Where("schema_id = ? AND field_id = ?", schemaID, fieldID).
		Delete(&SchemaField{}).Error
}

func (r *RepositoryImpl) ReorderSchemaFields(ctx context.Context, schemaID uint64, fieldIDs []uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, fieldID := range fieldIDs {
			err := tx.Model(&SchemaField{}).
				Where("schema_id = ? AND field_id = ?", schemaID, fieldID).
				Update("display_order", i).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *RepositoryImpl) ListSchemaFields(ctx context.Context, schemaID uint64) ([]CustomField, error) {
	var fields []CustomField
	err := r.db.WithContext(ctx).
		Joins("JOIN schema_fields ON schema_fields.field_id = custom_fields.id").
		Where("schema_fields.schema_id = ?", schemaID).
		Order("schema_fields.display_order ASC, custom_fields.id ASC").
		Find(&fields).Error
	return fields, err
}

// UpsertValue keeps the (item, field) pair unique by updating in place.
func (r *RepositoryImpl) UpsertValue(ctx context.Context, v *FieldValue) error {
	v.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}, {Name: "field_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"text_value", "number_value", "bool_value", "updated_at"}),
	}).Create(v).Error
}

func (r *RepositoryImpl) DeleteValue(ctx context.Context, itemID, fieldID uint64) error {
	return r.db.WithContext(ctx).
		Where("item_id = ? AND field_id = ?", itemID, fieldID).
		Delete(&FieldValue{}).Error
}

func (r *RepositoryImpl) ValuesForItem(ctx context.Context, itemID uint64, fieldIDs []uint64) ([]FieldValue, error) {
	var values []FieldValue
	q := r.db.WithContext(ctx).Where("item_id = ?", itemID)
	if fieldIDs != nil {
		if len(fieldIDs) == 0 {
			return values, nil
		}
		q = q.Where("field_id IN ?", fieldIDs)
	}
	err := q.Find(&values).Error
	return values, err
}

package tag

import (
	"clipshelf/internal/field"
	"context"
	defError "errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	CreateTag(ctx context.Context, t *Tag) error
	FindTagByID(ctx context.Context, id uint64) (*Tag, error)
	FindTagsByIDs(ctx context.Context, ids []uint64) ([]Tag, error)
	ListTags(ctx context.Context, workspaceID uint64) ([]Tag, error)
	UpdateTag(ctx context.Context, t *Tag) error
	DeleteTag(ctx context.Context, id uint64) error

	ListItemTags(ctx context.Context, itemID uint64) ([]Tag, error)
	CurrentCategory(ctx context.Context, itemID uint64) (*Tag, error)
	CountItemsWithOtherCategory(ctx context.Context, tagID uint64) (int64, error)
	SwitchCategory(ctx context.Context, itemID uint64, oldTagID, newTagID *uint64) error
	AttachTags(ctx context.Context, itemID uint64, tagIDs []uint64) error
	DetachTag(ctx context.Context, itemID, tagID uint64) error

	ResolveItem(ctx context.Context, itemID uint64) (*field.ItemContext, error)
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) CreateTag(ctx context.Context, t *Tag) error {
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *RepositoryImpl) FindTagByID(ctx context.Context, id uint64) (*Tag, error) {
	var t Tag
	err := r.db.WithContext(ctx).First(&t, id).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *RepositoryImpl) FindTagsByIDs(ctx context.Context, ids []uint64) ([]Tag, error) {
	var tags []Tag
	if len(ids) == 0 {
		return tags, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&tags).Error
	return tags, err
}

func (r *RepositoryImpl) ListTags(ctx context.Context, workspaceID uint64) ([]Tag, error) {
	var tags []Tag
	err := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("name ASC").
		Find(&tags).Error
	return tags, err
}

func (r *RepositoryImpl) UpdateTag(ctx context.Context, t *Tag) error {
	t.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(t).Error
}

// DeleteTag removes the tag and every item association.
func (r *RepositoryImpl) DeleteTag(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tag_id = ?", id).Delete(&ItemTag{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Tag{}, id).Error
	})
}

func (r *RepositoryImpl) ListItemTags(ctx context.Context, itemID uint64) ([]Tag, error) {
	var tags []Tag
	err := r.db.WithContext(ctx).
		Joins("JOIN item_tags ON item_tags.tag_id = tags.id").
		Where("item_tags.item_id = ?", itemID).
		Order("tags.name ASC").
		Find(&tags).Error
	return tags, err
}

// CurrentCategory returns the item's single category tag, or nil when the
// item is uncategorized.
func (r *RepositoryImpl) CurrentCategory(ctx context.Context, itemID uint64) (*Tag, error) {
	var t Tag
	err := r.db.WithContext(ctx).
		Joins("JOIN item_tags ON item_tags.tag_id = tags.id").
		Where("item_tags.item_id = ? AND tags.is_category = ?", itemID, true).
		First(&t).Error
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// CountItemsWithOtherCategory counts items carrying the tag that already have
// a category through some other tag. Promoting such a tag to a category would
// give those items two.
func (r *RepositoryImpl) CountItemsWithOtherCategory(ctx context.Context, tagID uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(DISTINCT it.item_id)
		FROM item_tags it
		JOIN item_tags other ON other.item_id = it.item_id AND other.tag_id <> it.tag_id
		JOIN tags ON tags.id = other.tag_id
		WHERE it.tag_id = ? AND tags.is_category = TRUE
	`, tagID).Scan(&n).Error
	return n, err
}

// SwitchCategory detaches the old category and attaches the new one in one
// transaction, so no reader ever observes two categories or a torn state.
func (r *RepositoryImpl) SwitchCategory(ctx context.Context, itemID uint64, oldTagID, newTagID *uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if oldTagID != nil {
			err := tx.Where("item_id = ? AND tag_id = ?", itemID, *oldTagID).
				Delete(&ItemTag{}).Error
			if err != nil {
				return err
			}
		}
		if newTagID != nil {
			err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ItemTag{
				ItemID:    itemID,
				TagID:     *newTagID,
				CreatedAt: time.Now().UTC(),
			}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *RepositoryImpl) AttachTags(ctx context.Context, itemID uint64, tagIDs []uint64) error {
	if len(tagIDs) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([]ItemTag, 0, len(tagIDs))
	for _, id := range tagIDs {
		rows = append(rows, ItemTag{ItemID: itemID, TagID: id, CreatedAt: now})
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

func (r *RepositoryImpl) DetachTag(ctx context.Context, itemID, tagID uint64) error {
	return r.db.WithContext(ctx).
		Where("item_id = ? AND tag_id = ?", itemID, tagID).
		Delete(&ItemTag{}).Error
}

// ResolveItem collects the schema context the aggregation engine needs. Raw
// SQL keeps this package from depending on the item and workspace models.
func (r *RepositoryImpl) ResolveItem(ctx context.Context, itemID uint64) (*field.ItemContext, error) {
	var base struct {
		WorkspaceID     uint64
		DefaultSchemaID *uint64
	}
	res := r.db.WithContext(ctx).Raw(`
		SELECT items.workspace_id, workspaces.default_schema_id
		FROM items
		JOIN workspaces ON workspaces.id = items.workspace_id
		WHERE items.id = ?
	`, itemID).Scan(&base)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	itemCtx := &field.ItemContext{
		WorkspaceID:     base.WorkspaceID,
		DefaultSchemaID: base.DefaultSchemaID,
	}

	category, err := r.CurrentCategory(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if category != nil {
		itemCtx.CategorySchemaID = category.SchemaID
	}

	return itemCtx, nil
}

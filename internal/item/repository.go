package item

import (
	"clipshelf/internal/field"
	"clipshelf/internal/filter"
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ListQuery carries everything the filtered listing needs: validated field
// filters (AND), tag selection (OR), and a sort pushed into SQL.
type ListQuery struct {
	WorkspaceID uint64
	Filters     []filter.ActiveFilter
	TagIDs      []uint64
	Sort        filter.Sort
	SortField   *field.CustomField // resolved when Sort targets a custom field
	Page        int
	PageSize    int
}

type ItemsMeta struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	TotalPage   int   `json:"total_page"`
}

type Repository interface {
	Create(ctx context.Context, item *Item) error
	FindByID(ctx context.Context, id uint64) (*Item, error)
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, q ListQuery) ([]Item, ItemsMeta, error)
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Create(ctx context.Context, item *Item) error {
	item.CreatedAt = time.Now().UTC()
	item.UpdatedAt = item.CreatedAt
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *RepositoryImpl) FindByID(ctx context.Context, id uint64) (*Item, error) {
	var item Item
	err := r.db.WithContext(ctx).First(&item, id).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *RepositoryImpl) Update(ctx context.Context, item *Item) error {
	item.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(item).Error
}

// Delete removes the item, its tag associations and its field values in one
// transaction. Snapshot cleanup happens out of band.
func (r *RepositoryImpl) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM item_tags WHERE item_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM field_values WHERE item_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&Item{}, id).Error
	})
}

func (r *RepositoryImpl) List(ctx context.Context, q ListQuery) ([]Item, ItemsMeta, error) {
	var items []Item
	var totalRecords int64

	base := r.db.WithContext(ctx).Model(&Item{}).
		Where("items.workspace_id = ?", q.WorkspaceID)

	// Tag selection is OR across the chosen tags.
	if len(q.TagIDs) > 0 {
		base = base.Where(
			"EXISTS (SELECT 1 FROM item_tags WHERE item_tags.item_id = items.id AND item_tags.tag_id IN ?)",
			q.TagIDs,
		)
	}

	// Field filters AND together; each becomes its own EXISTS subquery.
	for _, f := range q.Filters {
		cond, args := filterCondition(f)
		if cond == "" {
			continue
		}
		base = base.Where(
			"EXISTS (SELECT 1 FROM field_values fv WHERE fv.item_id = items.id AND fv.field_id = ? AND "+cond+")",
			append([]interface{}{f.FieldID}, args...)...,
		)
	}

	if err := base.Count(&totalRecords).Error; err != nil {
		return items, ItemsMeta{}, err
	}

	offset := (q.Page - 1) * q.PageSize
	err := base.Order(orderClause(q)).
		Offset(offset).
		Limit(q.PageSize).
		Find(&items).Error

	totalPages := int((totalRecords + int64(q.PageSize) - 1) / int64(q.PageSize))

	return items, ItemsMeta{
		Total:       totalRecords,
		PerPage:     q.PageSize,
		TotalPage:   totalPages,
		CurrentPage: q.Page,
	}, err
}

func filterCondition(f filter.ActiveFilter) (string, []interface{}) {
	switch f.Operator {
	case filter.OpGte:
		return "fv.number_value >= ?", []interface{}{f.Number}
	case filter.OpLte:
		return "fv.number_value <= ?", []interface{}{f.Number}
	case filter.OpEq:
		return "fv.number_value = ?", []interface{}{f.Number}
	case filter.OpBetween:
		return "fv.number_value BETWEEN ? AND ?", []interface{}{f.NumberMin, f.NumberMax}
	case filter.OpIn:
		return "fv.text_value = ?", []interface{}{f.Choice}
	case filter.OpContains:
		return "fv.text_value ILIKE ? ESCAPE '\\'", []interface{}{"%" + escapeLike(f.Text) + "%"}
	case filter.OpIs:
		return "fv.bool_value = ?", []interface{}{f.Bool}
	}
	return "", nil
}

// escapeLike neutralizes LIKE metacharacters so the query text matches
// literally, the same way filter.Matches treats it.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func orderClause(q ListQuery) string {
	dir := "ASC"
	if q.Sort.Desc {
		dir = "DESC"
	}

	if q.SortField != nil {
		column := "text_value"
		switch q.SortField.Type {
		case field.TypeNumericRating:
			column = "number_value"
		case field.TypeBoolean:
			column = "bool_value"
		}
		return fmt.Sprintf(
			"(SELECT fv.%s FROM field_values fv WHERE fv.item_id = items.id AND fv.field_id = %d) %s NULLS LAST",
			column, q.SortField.ID, dir,
		)
	}

	switch q.Sort.Key {
	case "title", "created_at", "updated_at":
		return fmt.Sprintf("items.%s %s", q.Sort.Key, dir)
	}
	return "items.created_at DESC"
}

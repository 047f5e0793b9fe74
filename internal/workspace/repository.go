package workspace

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, w *Workspace) error
	FindByID(ctx context.Context, id uint64) (*Workspace, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]Workspace, error)
	Update(ctx context.Context, w *Workspace) error
	Delete(ctx context.Context, id uint64) error
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Create(ctx context.Context, w *Workspace) error {
	w.CreatedAt = time.Now().UTC()
	w.UpdatedAt = w.CreatedAt
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *RepositoryImpl) FindByID(ctx context.Context, id uint64) (*Workspace, error) {
	var w Workspace
	err := r.db.WithContext(ctx).First(&w, id).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *RepositoryImpl) ListByOwner(ctx context.Context, ownerID uint64) ([]Workspace, error) {
	var workspaces []Workspace
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("id ASC").
		Find(&workspaces).Error
	return workspaces, err
}

func (r *RepositoryImpl) Update(ctx context.Context, w *Workspace) error {
	w.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(w).Error
}

func (r *RepositoryImpl) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&Workspace{}, id).Error
}

package workspace

import (
	"clipshelf/internal/errors"
	"clipshelf/internal/field"
	"context"
	defError "errors"

	"gorm.io/gorm"
)

// SchemaProvider checks that a schema exists and belongs to the workspace
// before it becomes the default.
type SchemaProvider interface {
	ListSchemas(ctx context.Context, workspaceID uint64) ([]field.FieldSchema, error)
}

type Service interface {
	CreateWorkspace(ctx context.Context, w *Workspace) error
	GetWorkspace(ctx context.Context, id uint64) (*Workspace, error)
	ListWorkspaces(ctx context.Context, ownerID uint64) ([]Workspace, error)
	RenameWorkspace(ctx context.Context, id, ownerID uint64, name string) (*Workspace, error)
	SetDefaultSchema(ctx context.Context, id, ownerID uint64, schemaID *uint64) (*Workspace, error)
	DeleteWorkspace(ctx context.Context, id, ownerID uint64) error
	RequireOwned(ctx context.Context, id, ownerID uint64) (*Workspace, error)
}

type DefaultService struct {
	repository Repository
	schemas    SchemaProvider
}

func NewService(repository Repository, schemas SchemaProvider) Service {
	return &DefaultService{repository: repository, schemas: schemas}
}

func (s *DefaultService) CreateWorkspace(ctx context.Context, w *Workspace) error {
	if w.Name == "" {
		return errors.BadRequest("Workspace name can't be empty", nil)
	}
	return s.repository.Create(ctx, w)
}

func (s *DefaultService) GetWorkspace(ctx context.Context, id uint64) (*Workspace, error) {
	w, err := s.repository.FindByID(ctx, id)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Workspace not found", err)
		}
		return nil, err
	}
	return w, nil
}

func (s *DefaultService) ListWorkspaces(ctx context.Context, ownerID uint64) ([]Workspace, error) {
	return s.repository.ListByOwner(ctx, ownerID)
}

// RequireOwned loads a workspace and rejects callers that don't own it.
func (s *DefaultService) RequireOwned(ctx context.Context, id, ownerID uint64) (*Workspace, error) {
	w, err := s.GetWorkspace(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.OwnerID != ownerID {
		return nil, errors.Forbidden("Not your workspace", nil)
	}
	return w, nil
}

func (s *DefaultService) RenameWorkspace(ctx context.Context, id, ownerID uint64, name string) (*Workspace, error) {
	if name == "" {
		return nil, errors.BadRequest("Workspace name can't be empty", nil)
	}

	w, err := s.RequireOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	w.Name = name
	if err := s.repository.Update(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// SetDefaultSchema binds (or clears, with nil) the schema whose fields every
// item in the workspace sees.
func (s *DefaultService) SetDefaultSchema(ctx context.Context, id, ownerID uint64, schemaID *uint64) (*Workspace, error) {
	w, err := s.RequireOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if schemaID != nil {
		schemas, err := s.schemas.ListSchemas(ctx, id)
		if err != nil {
			return nil, err
		}
		found := false
		for _, schema := range schemas {
			if schema.ID == *schemaID {
				found = true
				break
			}
		}
		if !found {
			return nil, errors.UnprocessableEntity("Schema doesn't belong to this workspace", nil)
		}
	}

	w.DefaultSchemaID = schemaID
	if err := s.repository.Update(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *DefaultService) DeleteWorkspace(ctx context.Context, id, ownerID uint64) error {
	if _, err := s.RequireOwned(ctx, id, ownerID); err != nil {
		return err
	}
	return s.repository.Delete(ctx, id)
}

package item

import (
	"clipshelf/internal/cache"
	"clipshelf/internal/errors"
	"clipshelf/internal/field"
	"clipshelf/internal/filter"
	"clipshelf/internal/worker"
	"context"
	defError "errors"
	"fmt"
	"log"
	"net/url"
	"time"

	"gorm.io/gorm"
)

// CatalogProvider resolves the workspace's field catalog so decoded filter
// state can be validated against live field definitions.
type CatalogProvider interface {
	ListFields(ctx context.Context, workspaceID uint64) ([]field.CustomField, error)
}

// TitleResolver fills in a title for a bare URL, best effort.
type TitleResolver interface {
	FetchTitle(ctx context.Context, rawURL string) (string, error)
}

// BackupCleaner drops an item's snapshots after the item is gone.
type BackupCleaner interface {
	CleanupItemBackups(ctx context.Context, itemID uint64)
}

type TaskRunner interface {
	Submit(t worker.Task)
}

type ListResult struct {
	Data           []Item                   `json:"data"`
	Meta           ItemsMeta                `json:"meta"`
	InvalidFilters []filter.ValidationError `json:"invalid_filters,omitempty"`
}

type Service interface {
	CreateItem(ctx context.Context, item *Item) error
	GetItem(ctx context.Context, id uint64) (*Item, error)
	UpdateItem(ctx context.Context, item *Item) error
	DeleteItem(ctx context.Context, id uint64) error
	ListItems(ctx context.Context, workspaceID uint64, params url.Values, page, pageSize int) (*ListResult, error)
}

type DefaultService struct {
	repository Repository
	catalog    CatalogProvider
	titles     TitleResolver
	backups    BackupCleaner
	cache      *cache.Cache
	pool       TaskRunner
}

func NewService(
	repository Repository,
	catalog CatalogProvider,
	titles TitleResolver,
	backups BackupCleaner,
	c *cache.Cache,
	pool TaskRunner,
) Service {
	return &DefaultService{
		repository: repository,
		catalog:    catalog,
		titles:     titles,
		backups:    backups,
		cache:      c,
		pool:       pool,
	}
}

func (s *DefaultService) CreateItem(ctx context.Context, item *Item) error {
	if item.Title == "" && s.titles != nil {
		// cancel if the resolver is slow
		titleCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		title, err := s.titles.FetchTitle(titleCtx, item.URL)
		cancel()
		if err != nil {
			log.Printf("[OEMBED] title lookup failed for %s: %v", item.URL, err)
		} else {
			item.Title = title
		}
	}

	if err := s.repository.Create(ctx, item); err != nil {
		return err
	}

	s.bumpListVersion(ctx, item.WorkspaceID)
	return nil
}

func (s *DefaultService) GetItem(ctx context.Context, id uint64) (*Item, error) {
	item, err := s.repository.FindByID(ctx, id)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Item not found", err)
		}
		return nil, err
	}
	return item, nil
}

func (s *DefaultService) UpdateItem(ctx context.Context, item *Item) error {
	if err := s.repository.Update(ctx, item); err != nil {
		return err
	}
	s.bumpListVersion(ctx, item.WorkspaceID)
	return nil
}

func (s *DefaultService) DeleteItem(ctx context.Context, id uint64) error {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repository.Delete(ctx, id); err != nil {
		return err
	}

	s.bumpListVersion(ctx, item.WorkspaceID)

	// Snapshots are advisory; prune them off the request path.
	if s.pool != nil && s.backups != nil {
		itemID := id
		s.pool.Submit(func(taskCtx context.Context) error {
			s.backups.CleanupItemBackups(taskCtx, itemID)
			return nil
		})
	}

	return nil
}

// ListItems decodes the flat parameter state, validates it against the
// catalog (stale filters dropped, invalid ones reported) and runs the query.
// Only the unfiltered listing is cached; filter permutations aren't worth
// the key space.
func (s *DefaultService) ListItems(ctx context.Context, workspaceID uint64, params url.Values, page, pageSize int) (*ListResult, error) {
	fields, err := s.catalog.ListFields(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	catalog := make(map[uint64]field.CustomField, len(fields))
	for _, f := range fields {
		catalog[f.ID] = f
	}

	state, rejected := filter.Decode(params, catalog)

	unfiltered := len(state.Filters) == 0 && len(state.TagIDs) == 0 && state.Sort.Key == ""
	var cacheKey string
	if unfiltered {
		v := s.cache.GetVersion(ctx, s.versionKey(workspaceID))
		cacheKey = fmt.Sprintf("items:w:%d:v:%d:p:%d:ps:%d", workspaceID, v, page, pageSize)

		var result ListResult
		found, _ := s.cache.Get(ctx, cacheKey, &result)
		if found {
			return &result, nil
		}
	}

	q := ListQuery{
		WorkspaceID: workspaceID,
		Filters:     state.Filters,
		TagIDs:      state.TagIDs,
		Sort:        state.Sort,
		Page:        page,
		PageSize:    pageSize,
	}
	if id, ok := state.Sort.SortFieldID(); ok {
		if def, ok := catalog[id]; ok {
			q.SortField = &def
		}
	}

	items, meta, err := s.repository.List(ctx, q)
	if err != nil {
		return nil, err
	}

	result := &ListResult{Data: items, Meta: meta, InvalidFilters: rejected}
	if unfiltered && s.pool != nil {
		// set value to cache off the request path
		key := cacheKey
		cached := *result
		s.pool.Submit(func(taskCtx context.Context) error {
			s.cache.Set(taskCtx, key, cached, 24*time.Hour)
			return nil
		})
	}

	return result, nil
}

func (s *DefaultService) versionKey(workspaceID uint64) string {
	return fmt.Sprintf("workspace:%d:items:version", workspaceID)
}

func (s *DefaultService) bumpListVersion(ctx context.Context, workspaceID uint64) {
	// increase cache key, so any new fetch will get new version
	s.cache.IncrementVersion(ctx, s.versionKey(workspaceID))
}

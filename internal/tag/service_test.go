package tag

import (
	"clipshelf/internal/errors"
	"clipshelf/internal/field"
	"clipshelf/internal/snapshot"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateTag(ctx context.Context, t *Tag) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockRepository) FindTagByID(ctx context.Context, id uint64) (*Tag, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tag), args.Error(1)
}

func (m *MockRepository) FindTagsByIDs(ctx context.Context, ids []uint64) ([]Tag, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Tag), args.Error(1)
}

func (m *MockRepository) ListTags(ctx context.Context, workspaceID uint64) ([]Tag, error) {
	args := m.Called(ctx, workspaceID)
	return args.Get(0).([]Tag), args.Error(1)
}

func (m *MockRepository) UpdateTag(ctx context.Context, t *Tag) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockRepository) DeleteTag(ctx context.Context, id uint64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) ListItemTags(ctx context.Context, itemID uint64) ([]Tag, error) {
	args := m.Called(ctx, itemID)
	return args.Get(0).([]Tag), args.Error(1)
}

func (m *MockRepository) CurrentCategory(ctx context.Context, itemID uint64) (*Tag, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tag), args.Error(1)
}

func (m *MockRepository) CountItemsWithOtherCategory(ctx context.Context, tagID uint64) (int64, error) {
	args := m.Called(ctx, tagID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) SwitchCategory(ctx context.Context, itemID uint64, oldTagID, newTagID *uint64) error {
	args := m.Called(ctx, itemID, oldTagID, newTagID)
	return args.Error(0)
}

func (m *MockRepository) AttachTags(ctx context.Context, itemID uint64, tagIDs []uint64) error {
	args := m.Called(ctx, itemID, tagIDs)
	return args.Error(0)
}

func (m *MockRepository) DetachTag(ctx context.Context, itemID, tagID uint64) error {
	args := m.Called(ctx, itemID, tagID)
	return args.Error(0)
}

func (m *MockRepository) ResolveItem(ctx context.Context, itemID uint64) (*field.ItemContext, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*field.ItemContext), args.Error(1)
}

// MockFieldProvider is a mock implementation of the FieldProvider interface
type MockFieldProvider struct {
	mock.Mock
}

func (m *MockFieldProvider) SchemaFields(ctx context.Context, schemaID uint64) ([]field.CustomField, error) {
	args := m.Called(ctx, schemaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]field.CustomField), args.Error(1)
}

func (m *MockFieldProvider) ValuesForItem(ctx context.Context, itemID uint64, fieldIDs []uint64) ([]field.FieldValue, error) {
	args := m.Called(ctx, itemID, fieldIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]field.FieldValue), args.Error(1)
}

func (m *MockFieldProvider) UpsertValues(ctx context.Context, itemID uint64, values []field.FieldValue) (int, error) {
	args := m.Called(ctx, itemID, values)
	return args.Int(0), args.Error(1)
}

func u64(v uint64) *uint64 { return &v }
func iPtr(n int) *int      { return &n }

func newTestService(t *testing.T) (*DefaultService, *MockRepository, *MockFieldProvider, snapshot.Store) {
	t.Helper()
	repo := new(MockRepository)
	fields := new(MockFieldProvider)
	store, err := snapshot.NewFileStore(t.TempDir())
	require.NoError(t, err)
	svc := NewService(repo, fields, store).(*DefaultService)
	return svc, repo, fields, store
}

func TestSetCategory_SameCategoryIsNoOp(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	repo.On("ResolveItem", ctx, uint64(1)).
		Return(&field.ItemContext{WorkspaceID: 1}, nil)
	repo.On("CurrentCategory", ctx, uint64(1)).
		Return(&Tag{ID: 10, WorkspaceID: 1, IsCategory: true}, nil)

	result, err := svc.SetCategory(ctx, 1, u64(10))

	require.NoError(t, err)
	assert.False(t, result.SnapshotCreated)
	assert.False(t, result.SnapshotAvailable)
	assert.False(t, result.SnapshotWriteFailed)
	repo.AssertNotCalled(t, "SwitchCategory", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSetCategory_DetachSnapshotsExclusiveValues(t *testing.T) {
	svc, repo, fields, store := newTestService(t)
	ctx := context.Background()

	current := &Tag{ID: 10, WorkspaceID: 1, IsCategory: true, SchemaID: u64(5)}
	repo.On("ResolveItem", ctx, uint64(1)).
		Return(&field.ItemContext{WorkspaceID: 1, DefaultSchemaID: u64(2)}, nil)
	repo.On("CurrentCategory", ctx, uint64(1)).Return(current, nil)
	repo.On("SwitchCategory", ctx, uint64(1), u64(10), (*uint64)(nil)).Return(nil)

	// Field 3 is shared with the default schema, field 7 is category-only.
	fields.On("SchemaFields", ctx, uint64(5)).Return([]field.CustomField{
		{ID: 3, Type: field.TypeText},
		{ID: 7, Type: field.TypeNumericRating},
	}, nil)
	fields.On("SchemaFields", ctx, uint64(2)).Return([]field.CustomField{
		{ID: 3, Type: field.TypeText},
	}, nil)
	fields.On("ValuesForItem", ctx, uint64(1), []uint64{7}).Return([]field.FieldValue{
		{ItemID: 1, FieldID: 7, NumberValue: iPtr(4)},
	}, nil)

	result, err := svc.SetCategory(ctx, 1, nil)

	require.NoError(t, err)
	assert.True(t, result.SnapshotCreated)
	assert.False(t, result.SnapshotWriteFailed)
	repo.AssertExpectations(t)

	payload, err := store.Get(ctx, snapshot.Key{ItemID: 1, CategoryID: 10})
	require.NoError(t, err)
	require.Len(t, payload.Values, 1)
	assert.Equal(t, uint64(7), payload.Values[0].FieldID)
	assert.Equal(t, 4, *payload.Values[0].Number)
}

func TestSetCategory_NoExclusiveValuesMeansNoSnapshot(t *testing.T) {
	svc, repo, fields, store := newTestService(t)
	ctx := context.Background()

	current := &Tag{ID: 10, WorkspaceID: 1, IsCategory: true, SchemaID: u64(5)}
	repo.On("ResolveItem", ctx, uint64(1)).
		Return(&field.ItemContext{WorkspaceID: 1}, nil)
	repo.On("CurrentCategory", ctx, uint64(1)).Return(current, nil)
	repo.On("SwitchCategory", ctx, uint64(1), u64(10), (*uint64)(nil)).Return(nil)

	fields.On("SchemaFields", ctx, uint64(5)).Return([]field.CustomField{
		{ID: 7, Type: field.TypeNumericRating},
	}, nil)
	fields.On("ValuesForItem", ctx, uint64(1), []uint64{7}).
		Return([]field.FieldValue{}, nil)

	result, err := svc.SetCategory(ctx, 1, nil)

	require.NoError(t, err)
	assert.False(t, result.SnapshotCreated)
	assert.False(t, result.SnapshotWriteFailed)

	_, err = store.Get(ctx, snapshot.Key{ItemID: 1, CategoryID: 10})
	assert.ErrorIs(t, err, snapshot.ErrNotFound)
}

func TestSetCategory_CategoryWithoutSchema(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	current := &Tag{ID: 10, WorkspaceID: 1, IsCategory: true}
	repo.On("ResolveItem", ctx, uint64(1)).
		Return(&field.ItemContext{WorkspaceID: 1}, nil)
	repo.On("CurrentCategory", ctx, uint64(1)).Return(current, nil)
	repo.On("SwitchCategory", ctx, uint64(1), u64(10), (*uint64)(nil)).Return(nil)

	result, err := svc.SetCategory(ctx, 1, nil)

	require.NoError(t, err)
	assert.False(t, result.SnapshotCreated)
}

func TestSetCategory_ReportsExistingBackupOnAttach(t *testing.T) {
	svc, repo, _, store := newTestService(t)
	ctx := context.Background()

	// The item was in category 20 before; its backup is still around.
	require.NoError(t, store.Put(ctx, snapshot.Key{ItemID: 1, CategoryID: 20}, &snapshot.Payload{
		Timestamp: time.Now().UTC(),
		Values:    []snapshot.ValueRecord{{FieldID: 7, Number: iPtr(3)}},
	}))

	newTag := &Tag{ID: 20, WorkspaceID: 1, IsCategory: true}
	repo.On("ResolveItem", ctx, uint64(1)).
		Return(&field.ItemContext{WorkspaceID: 1}, nil)
	repo.On("CurrentCategory", ctx, uint64(1)).Return(nil, nil)
	repo.On("FindTagByID", ctx, uint64(20)).Return(newTag, nil)
	repo.On("SwitchCategory", ctx, uint64(1), (*uint64)(nil), u64(20)).Return(nil)

	result, err := svc.SetCategory(ctx, 1, u64(20))

	require.NoError(t, err)
	assert.False(t, result.SnapshotCreated)
	assert.True(t, result.SnapshotAvailable)
}

func TestSetCategory_RejectsNonCategoryTag(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	repo.On("ResolveItem", ctx, uint64(1)).
		Return(&field.ItemContext{WorkspaceID: 1}, nil)
	repo.On("CurrentCategory", ctx, uint64(1)).Return(nil, nil)
	repo.On("FindTagByID", ctx, uint64(30)).
		Return(&Tag{ID: 30, WorkspaceID: 1, IsCategory: false}, nil)

	_, err := svc.SetCategory(ctx, 1, u64(30))

	assert.Error(t, err)
	repo.AssertNotCalled(t, "SwitchCategory", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSetCategory_SnapshotWriteFailureDoesNotBlock(t *testing.T) {
	repo := new(MockRepository)
	fields := new(MockFieldProvider)
	svc := NewService(repo, fields, failingStore{}).(*DefaultService)
	ctx := context.Background()

	current := &Tag{ID: 10, WorkspaceID: 1, IsCategory: true, SchemaID: u64(5)}
	repo.On("ResolveItem", ctx, uint64(1)).
		Return(&field.ItemContext{WorkspaceID: 1}, nil)
	repo.On("CurrentCategory", ctx, uint64(1)).Return(current, nil)
	repo.On("SwitchCategory", ctx, uint64(1), u64(10), (*uint64)(nil)).Return(nil)

	fields.On("SchemaFields", ctx, uint64(5)).Return([]field.CustomField{
		{ID: 7, Type: field.TypeNumericRating},
	}, nil)
	fields.On("ValuesForItem", ctx, uint64(1), []uint64{7}).Return([]field.FieldValue{
		{ItemID: 1, FieldID: 7, NumberValue: iPtr(4)},
	}, nil)

	result, err := svc.SetCategory(ctx, 1, nil)

	require.NoError(t, err)
	assert.False(t, result.SnapshotCreated)
	assert.True(t, result.SnapshotWriteFailed)
	repo.AssertCalled(t, "SwitchCategory", ctx, uint64(1), u64(10), (*uint64)(nil))
}

// failingStore simulates an unreachable snapshot backend.
type failingStore struct{}

func (failingStore) Put(ctx context.Context, key snapshot.Key, payload *snapshot.Payload) error {
	return assert.AnError
}

func (failingStore) Get(ctx context.Context, key snapshot.Key) (*snapshot.Payload, error) {
	return nil, assert.AnError
}

func (failingStore) List(ctx context.Context, itemID uint64) ([]snapshot.Entry, error) {
	return nil, assert.AnError
}

func (failingStore) Delete(ctx context.Context, key snapshot.Key) (bool, error) {
	return false, assert.AnError
}

func TestRestore_ReplaysSavedValues(t *testing.T) {
	svc, _, fields, store := newTestService(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, snapshot.Key{ItemID: 1, CategoryID: 20}, &snapshot.Payload{
		Timestamp: time.Now().UTC(),
		Values: []snapshot.ValueRecord{
			{FieldID: 7, Number: iPtr(3)},
			{FieldID: 8, Text: strP("hard")},
		},
	}))

	fields.On("UpsertValues", ctx, uint64(1), mock.MatchedBy(func(values []field.FieldValue) bool {
		return len(values) == 2 && values[0].FieldID == 7 && values[1].FieldID == 8
	})).Return(2, nil)

	restored, err := svc.Restore(ctx, 1, 20)

	require.NoError(t, err)
	assert.Equal(t, 2, restored)
	fields.AssertExpectations(t)
}

func TestRestore_MissingSnapshotRestoresNothing(t *testing.T) {
	svc, _, fields, _ := newTestService(t)

	restored, err := svc.Restore(context.Background(), 1, 99)

	require.NoError(t, err)
	assert.Zero(t, restored)
	fields.AssertNotCalled(t, "UpsertValues", mock.Anything, mock.Anything, mock.Anything)
}

func TestValidateAssignment_MultipleCategoriesRejected(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	repo.On("FindTagsByIDs", ctx, []uint64{10, 20}).Return([]Tag{
		{ID: 10, IsCategory: true},
		{ID: 20, IsCategory: true},
	}, nil)

	err := svc.ValidateAssignment(ctx, 1, []uint64{10, 20})

	var multiErr *errors.MultipleCategoryError
	require.ErrorAs(t, err, &multiErr)
	assert.ElementsMatch(t, []uint64{10, 20}, multiErr.TagIDs)
}

func TestValidateAssignment_ConflictingCategoryRejected(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	repo.On("FindTagsByIDs", ctx, []uint64{20}).Return([]Tag{
		{ID: 20, IsCategory: true},
	}, nil)
	repo.On("CurrentCategory", ctx, uint64(1)).
		Return(&Tag{ID: 10, IsCategory: true}, nil)

	err := svc.ValidateAssignment(ctx, 1, []uint64{20})

	var conflict *errors.CategoryConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, uint64(10), conflict.CurrentID)
	assert.Equal(t, uint64(20), conflict.NewID)
}

func TestValidateAssignment_SameCategoryAllowed(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	repo.On("FindTagsByIDs", ctx, []uint64{10, 30}).Return([]Tag{
		{ID: 10, IsCategory: true},
		{ID: 30, IsCategory: false},
	}, nil)
	repo.On("CurrentCategory", ctx, uint64(1)).
		Return(&Tag{ID: 10, IsCategory: true}, nil)

	assert.NoError(t, svc.ValidateAssignment(ctx, 1, []uint64{10, 30}))
}

func TestValidateAssignment_UnknownTagsRejected(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	repo.On("FindTagsByIDs", ctx, []uint64{10, 99}).Return([]Tag{
		{ID: 10, IsCategory: false},
	}, nil)

	assert.Error(t, svc.ValidateAssignment(ctx, 1, []uint64{10, 99}))
}

func TestAssignTags_LabelsOnly(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	repo.On("ResolveItem", ctx, uint64(1)).
		Return(&field.ItemContext{WorkspaceID: 1}, nil)
	repo.On("FindTagsByIDs", ctx, []uint64{30, 40, 30}).Return([]Tag{
		{ID: 30, IsCategory: false},
		{ID: 40, IsCategory: false},
	}, nil)
	repo.On("AttachTags", ctx, uint64(1), []uint64{30, 40}).Return(nil)

	require.NoError(t, svc.AssignTags(ctx, 1, []uint64{30, 40, 30}))
	repo.AssertCalled(t, "AttachTags", ctx, uint64(1), []uint64{30, 40})
}

func TestUpdateTag_PromotionBlockedByCategorizedItems(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	repo.On("FindTagByID", ctx, uint64(30)).
		Return(&Tag{ID: 30, WorkspaceID: 1, Name: "mood", IsCategory: false}, nil)
	repo.On("CountItemsWithOtherCategory", ctx, uint64(30)).Return(int64(2), nil)

	err := svc.UpdateTag(ctx, &Tag{ID: 30, WorkspaceID: 1, Name: "mood", IsCategory: true})

	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 409, apiErr.Status)
	repo.AssertNotCalled(t, "UpdateTag", mock.Anything, mock.Anything)
}

func TestUpdateTag_PromotionAllowedWhenNoItemConflicts(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	updated := &Tag{ID: 30, WorkspaceID: 1, Name: "mood", IsCategory: true}
	repo.On("FindTagByID", ctx, uint64(30)).
		Return(&Tag{ID: 30, WorkspaceID: 1, Name: "mood", IsCategory: false}, nil)
	repo.On("CountItemsWithOtherCategory", ctx, uint64(30)).Return(int64(0), nil)
	repo.On("UpdateTag", ctx, updated).Return(nil)

	require.NoError(t, svc.UpdateTag(ctx, updated))
	repo.AssertExpectations(t)
}

func TestUpdateTag_RenameSkipsAssociationCheck(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	updated := &Tag{ID: 30, WorkspaceID: 1, Name: "vibe", IsCategory: false}
	repo.On("FindTagByID", ctx, uint64(30)).
		Return(&Tag{ID: 30, WorkspaceID: 1, Name: "mood", IsCategory: false}, nil)
	repo.On("UpdateTag", ctx, updated).Return(nil)

	require.NoError(t, svc.UpdateTag(ctx, updated))
	repo.AssertNotCalled(t, "CountItemsWithOtherCategory", mock.Anything, mock.Anything)
}

func TestCleanupItemBackups(t *testing.T) {
	svc, _, _, store := newTestService(t)
	ctx := context.Background()

	for _, categoryID := range []uint64{10, 20} {
		require.NoError(t, store.Put(ctx, snapshot.Key{ItemID: 1, CategoryID: categoryID}, &snapshot.Payload{
			Timestamp: time.Now().UTC(),
			Values:    []snapshot.ValueRecord{{FieldID: 7, Number: iPtr(1)}},
		}))
	}

	svc.CleanupItemBackups(ctx, 1)

	entries, err := store.List(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func strP(s string) *string { return &s }

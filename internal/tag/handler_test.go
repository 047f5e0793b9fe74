package tag

import (
	"bytes"
	"clipshelf/internal/errors"
	"clipshelf/internal/middleware"
	"clipshelf/internal/snapshot"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockTagService is a mock implementation of the Service interface
type MockTagService struct {
	mock.Mock
}

func (m *MockTagService) CreateTag(ctx context.Context, t *Tag) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTagService) GetTag(ctx context.Context, id uint64) (*Tag, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tag), args.Error(1)
}

func (m *MockTagService) ListTags(ctx context.Context, workspaceID uint64) ([]Tag, error) {
	args := m.Called(ctx, workspaceID)
	return args.Get(0).([]Tag), args.Error(1)
}

func (m *MockTagService) UpdateTag(ctx context.Context, t *Tag) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTagService) DeleteTag(ctx context.Context, id uint64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTagService) ListItemTags(ctx context.Context, itemID uint64) ([]Tag, error) {
	args := m.Called(ctx, itemID)
	return args.Get(0).([]Tag), args.Error(1)
}

func (m *MockTagService) CurrentCategory(ctx context.Context, itemID uint64) (*Tag, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tag), args.Error(1)
}

func (m *MockTagService) SetCategory(ctx context.Context, itemID uint64, categoryID *uint64) (*CategoryChangeResult, error) {
	args := m.Called(ctx, itemID, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CategoryChangeResult), args.Error(1)
}

func (m *MockTagService) Restore(ctx context.Context, itemID, categoryID uint64) (int, error) {
	args := m.Called(ctx, itemID, categoryID)
	return args.Int(0), args.Error(1)
}

func (m *MockTagService) ListBackups(ctx context.Context, itemID uint64) ([]snapshot.Entry, error) {
	args := m.Called(ctx, itemID)
	return args.Get(0).([]snapshot.Entry), args.Error(1)
}

func (m *MockTagService) DeleteBackup(ctx context.Context, itemID, categoryID uint64) (bool, error) {
	args := m.Called(ctx, itemID, categoryID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTagService) ValidateAssignment(ctx context.Context, itemID uint64, tagIDs []uint64) error {
	args := m.Called(ctx, itemID, tagIDs)
	return args.Error(0)
}

func (m *MockTagService) AssignTags(ctx context.Context, itemID uint64, tagIDs []uint64) error {
	args := m.Called(ctx, itemID, tagIDs)
	return args.Error(0)
}

func (m *MockTagService) DetachTag(ctx context.Context, itemID, tagID uint64) error {
	args := m.Called(ctx, itemID, tagID)
	return args.Error(0)
}

func (m *MockTagService) CleanupItemBackups(ctx context.Context, itemID uint64) {
	m.Called(ctx, itemID)
}

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandler())
	return router
}

func TestUpdateTagEndpoint_PartialPayloadKeepsOmittedFields(t *testing.T) {
	mockService := new(MockTagService)
	handler := NewHandler(mockService)
	router := setupRouter()
	router.PUT("/tags/:id", handler.UpdateTag)

	mockService.On("GetTag", mock.Anything, uint64(30)).Return(&Tag{
		ID: 30, WorkspaceID: 1, Name: "books", Color: "#1976d2",
		IsCategory: true, SchemaID: u64(5),
	}, nil)
	mockService.On("UpdateTag", mock.Anything, mock.MatchedBy(func(tag *Tag) bool {
		return tag.Name == "books" &&
			tag.Color == "#ff5722" &&
			tag.IsCategory &&
			tag.SchemaID != nil && *tag.SchemaID == 5
	})).Return(nil)

	req := httptest.NewRequest("PUT", "/tags/30", bytes.NewBufferString(`{"color": "#ff5722"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestSetCategoryEndpoint_ReportsSnapshotState(t *testing.T) {
	mockService := new(MockTagService)
	handler := NewHandler(mockService)
	router := setupRouter()
	router.PUT("/items/:id/category", handler.SetCategory)

	mockService.On("SetCategory", mock.Anything, uint64(1), mock.MatchedBy(func(id *uint64) bool {
		return id != nil && *id == 20
	})).Return(&CategoryChangeResult{SnapshotCreated: true, SnapshotAvailable: true}, nil)

	body, _ := json.Marshal(map[string]uint64{"category_id": 20})
	req := httptest.NewRequest("PUT", "/items/1/category", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var result CategoryChangeResult
	json.Unmarshal(w.Body.Bytes(), &result)
	assert.True(t, result.SnapshotCreated)
	assert.True(t, result.SnapshotAvailable)
	mockService.AssertExpectations(t)
}

func TestSetCategoryEndpoint_NullDetaches(t *testing.T) {
	mockService := new(MockTagService)
	handler := NewHandler(mockService)
	router := setupRouter()
	router.PUT("/items/:id/category", handler.SetCategory)

	mockService.On("SetCategory", mock.Anything, uint64(1), (*uint64)(nil)).
		Return(&CategoryChangeResult{SnapshotCreated: true}, nil)

	req := httptest.NewRequest("PUT", "/items/1/category", bytes.NewBufferString(`{"category_id": null}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestAssignTagsEndpoint_MultipleCategoriesIs422(t *testing.T) {
	mockService := new(MockTagService)
	handler := NewHandler(mockService)
	router := setupRouter()
	router.POST("/items/:id/tags", handler.AssignTags)

	mockService.On("AssignTags", mock.Anything, uint64(1), []uint64{10, 20}).
		Return(&errors.MultipleCategoryError{TagIDs: []uint64{10, 20}})

	body, _ := json.Marshal(map[string][]uint64{"tag_ids": {10, 20}})
	req := httptest.NewRequest("POST", "/items/1/tags", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAssignTagsEndpoint_CategoryConflictIs409(t *testing.T) {
	mockService := new(MockTagService)
	handler := NewHandler(mockService)
	router := setupRouter()
	router.POST("/items/:id/tags", handler.AssignTags)

	mockService.On("AssignTags", mock.Anything, uint64(1), []uint64{20}).
		Return(&errors.CategoryConflictError{CurrentID: 10, NewID: 20})

	body, _ := json.Marshal(map[string][]uint64{"tag_ids": {20}})
	req := httptest.NewRequest("POST", "/items/1/tags", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRestoreEndpoint(t *testing.T) {
	mockService := new(MockTagService)
	handler := NewHandler(mockService)
	router := setupRouter()
	router.POST("/items/:id/backups/:categoryId/restore", handler.RestoreBackup)

	mockService.On("Restore", mock.Anything, uint64(1), uint64(20)).Return(2, nil)

	req := httptest.NewRequest("POST", "/items/1/backups/20/restore", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]int
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, 2, response["restored"])
}

func TestDeleteBackupEndpoint_MissingIs404(t *testing.T) {
	mockService := new(MockTagService)
	handler := NewHandler(mockService)
	router := setupRouter()
	router.DELETE("/items/:id/backups/:categoryId", handler.DeleteBackup)

	mockService.On("DeleteBackup", mock.Anything, uint64(1), uint64(99)).Return(false, nil)

	req := httptest.NewRequest("DELETE", "/items/1/backups/99", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

package tag

import (
	"clipshelf/internal/errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type TagForm struct {
	Name       string  `json:"name" binding:"required,min=1,max=100"`
	Color      string  `json:"color" binding:"omitempty,max=20"`
	IsCategory bool    `json:"is_category"`
	SchemaID   *uint64 `json:"schema_id"`
}

func (h *Handler) CreateTag(c *gin.Context) {
	workspaceID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var form TagForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	t := &Tag{
		WorkspaceID: workspaceID,
		Name:        form.Name,
		Color:       form.Color,
		IsCategory:  form.IsCategory,
		SchemaID:    form.SchemaID,
	}
	if err := h.service.CreateTag(c.Request.Context(), t); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, t)
}

func (h *Handler) ListTags(c *gin.Context) {
	workspaceID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	tags, err := h.service.ListTags(c.Request.Context(), workspaceID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, tags)
}

type UpdateTagForm struct {
	Name       *string `json:"name" binding:"omitempty,min=1,max=100"`
	Color      *string `json:"color" binding:"omitempty,max=20"`
	IsCategory *bool   `json:"is_category"`
	SchemaID   *uint64 `json:"schema_id"`
}

func (h *Handler) UpdateTag(c *gin.Context) {
	tagID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var form UpdateTagForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	t, err := h.service.GetTag(c.Request.Context(), tagID)
	if err != nil {
		c.Error(err)
		return
	}

	// Only touch what the payload carries, so a partial update can't wipe
	// the color or the schema binding.
	if form.Name != nil {
		t.Name = *form.Name
	}
	if form.Color != nil {
		t.Color = *form.Color
	}
	if form.IsCategory != nil {
		t.IsCategory = *form.IsCategory
	}
	if form.SchemaID != nil {
		t.SchemaID = form.SchemaID
	}
	if err := h.service.UpdateTag(c.Request.Context(), t); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, t)
}

func (h *Handler) DeleteTag(c *gin.Context) {
	tagID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.service.DeleteTag(c.Request.Context(), tagID); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ListItemTags(c *gin.Context) {
	itemID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	tags, err := h.service.ListItemTags(c.Request.Context(), itemID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, tags)
}

type AssignTagsForm struct {
	TagIDs []uint64 `json:"tag_ids" binding:"required,min=1"`
}

func (h *Handler) AssignTags(c *gin.Context) {
	itemID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var form AssignTagsForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	if err := h.service.AssignTags(c.Request.Context(), itemID, form.TagIDs); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) DetachTag(c *gin.Context) {
	itemID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	tagID, err := pathID(c, "tagId")
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.service.DetachTag(c.Request.Context(), itemID, tagID); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) GetCategory(c *gin.Context) {
	itemID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	category, err := h.service.CurrentCategory(c.Request.Context(), itemID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category})
}

type SetCategoryForm struct {
	CategoryID *uint64 `json:"category_id"`
}

// SetCategory moves the item between categories. A null category_id detaches.
func (h *Handler) SetCategory(c *gin.Context) {
	itemID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var form SetCategoryForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	result, err := h.service.SetCategory(c.Request.Context(), itemID, form.CategoryID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) RestoreBackup(c *gin.Context) {
	itemID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	categoryID, err := pathID(c, "categoryId")
	if err != nil {
		c.Error(err)
		return
	}

	restored, err := h.service.Restore(c.Request.Context(), itemID, categoryID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"restored": restored})
}

func (h *Handler) ListBackups(c *gin.Context) {
	itemID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	entries, err := h.service.ListBackups(c.Request.Context(), itemID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, entries)
}

func (h *Handler) DeleteBackup(c *gin.Context) {
	itemID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	categoryID, err := pathID(c, "categoryId")
	if err != nil {
		c.Error(err)
		return
	}

	deleted, err := h.service.DeleteBackup(c.Request.Context(), itemID, categoryID)
	if err != nil {
		c.Error(err)
		return
	}
	if !deleted {
		c.Error(errors.NotFound("Backup not found", nil))
		return
	}

	c.Status(http.StatusNoContent)
}

func pathID(c *gin.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, errors.NotFound("Invalid id", err)
	}
	return id, nil
}

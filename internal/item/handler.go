package item

import (
	"clipshelf/internal/errors"
	"clipshelf/internal/utils"
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GuardFunc rejects callers that don't own the workspace.
type GuardFunc func(ctx context.Context, workspaceID, ownerID uint64) error

type Handler struct {
	service Service
	guard   GuardFunc
}

func NewHandler(service Service, guard GuardFunc) *Handler {
	return &Handler{service: service, guard: guard}
}

type CreateItemForm struct {
	URL   string  `json:"url" binding:"required,url"`
	Title string  `json:"title" binding:"omitempty,max=500"`
	Note  *string `json:"note"`
}

func (h *Handler) CreateItem(c *gin.Context) {
	workspaceID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var form CreateItemForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	userID, _ := c.Get("user_id")
	if err := h.guard(c.Request.Context(), workspaceID, userID.(uint64)); err != nil {
		c.Error(err)
		return
	}

	item := &Item{
		WorkspaceID: workspaceID,
		URL:         form.URL,
		Title:       form.Title,
		Note:        form.Note,
	}
	if err := h.service.CreateItem(c.Request.Context(), item); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

// ListItems runs the filtered, sorted, paginated listing. Filter, tag and
// sort state rides in the query string next to the pagination params.
func (h *Handler) ListItems(c *gin.Context) {
	workspaceID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	userID, _ := c.Get("user_id")
	if err := h.guard(c.Request.Context(), workspaceID, userID.(uint64)); err != nil {
		c.Error(err)
		return
	}

	page, pageSize := utils.GetPaginationParams(c)
	result, err := h.service.ListItems(c.Request.Context(), workspaceID, c.Request.URL.Query(), page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetItem(c *gin.Context) {
	itemID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	item, err := h.service.GetItem(c.Request.Context(), itemID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, item)
}

type UpdateItemForm struct {
	URL   string  `json:"url" binding:"omitempty,url"`
	Title string  `json:"title" binding:"omitempty,max=500"`
	Note  *string `json:"note"`
}

func (h *Handler) UpdateItem(c *gin.Context) {
	itemID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var form UpdateItemForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	item, err := h.service.GetItem(c.Request.Context(), itemID)
	if err != nil {
		c.Error(err)
		return
	}

	if form.URL != "" {
		item.URL = form.URL
	}
	if form.Title != "" {
		item.Title = form.Title
	}
	if form.Note != nil {
		item.Note = form.Note
	}
	if err := h.service.UpdateItem(c.Request.Context(), item); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *Handler) DeleteItem(c *gin.Context) {
	itemID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.service.DeleteItem(c.Request.Context(), itemID); err != nil {
		c.Error(err)
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

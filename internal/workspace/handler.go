package workspace

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

type WorkspaceForm struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

func (h *Handler) CreateWorkspace(c *gin.Context) {
	var form WorkspaceForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	userID, _ := c.Get("user_id")
	w := &Workspace{Name: form.Name, OwnerID: userID.(uint64)}
	if err := h.service.CreateWorkspace(c.Request.Context(), w); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, w)
}

func (h *Handler) ListWorkspaces(c *gin.Context) {
	userID, _ := c.Get("user_id")

	workspaces, err := h.service.ListWorkspaces(c.Request.Context(), userID.(uint64))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, workspaces)
}

func (h *Handler) GetWorkspace(c *gin.Context) {
	workspaceID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	userID, _ := c.Get("user_id")
	w, err := h.service.RequireOwned(c.Request.Context(), workspaceID, userID.(uint64))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, w)
}

func (h *Handler) RenameWorkspace(c *gin.Context) {
	workspaceID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var form WorkspaceForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	userID, _ := c.Get("user_id")
	w, err := h.service.RenameWorkspace(c.Request.Context(), workspaceID, userID.(uint64), form.Name)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, w)
}

type DefaultSchemaForm struct {
	SchemaID *uint64 `json:"schema_id"`
}

// SetDefaultSchema binds the workspace's default field schema. A null
// schema_id clears it.
func (h *Handler) SetDefaultSchema(c *gin.Context) {
	workspaceID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var form DefaultSchemaForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	userID, _ := c.Get("user_id")
	w, err := h.service.SetDefaultSchema(c.Request.Context(), workspaceID, userID.(uint64), form.SchemaID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, w)
}

func (h *Handler) DeleteWorkspace(c *gin.Context) {
	workspaceID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	userID, _ := c.Get("user_id")
	if err := h.service.DeleteWorkspace(c.Request.Context(), workspaceID, userID.(uint64)); err != nil {
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

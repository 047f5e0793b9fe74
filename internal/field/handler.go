package field

import (
	"clipshelf/internal/errors"
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

type CreateFieldRequest struct {
	Name   string `json:"name" binding:"required,min=1,max=100"`
	Type   string `json:"field_type" binding:"required,oneof=text numeric_rating boolean single_choice"`
	Config Config `json:"config"`
}

func (h *Handler) CreateField(c *gin.Context) {
	workspaceID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var form CreateFieldRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	userID, _ := c.Get("user_id")
	if err := h.guard(c.Request.Context(), workspaceID, userID.(uint64)); err != nil {
		c.Error(err)
		return
	}

	f := &CustomField{
		WorkspaceID: workspaceID,
		Name:        form.Name,
		Type:        FieldType(form.Type),
		Config:      form.Config,
	}

	if err := h.service.CreateField(c.Request.Context(), f); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, f)
}

func (h *Handler) ListFields(c *gin.Context) {
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

	fields, err := h.service.ListFields(c.Request.Context(), workspaceID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, fields)
}

type UpdateFieldRequest struct {
	Name   string `json:"name" binding:"omitempty,min=1,max=100"`
	Config Config `json:"config"`
}

func (h *Handler) UpdateField(c *gin.Context) {
	fieldID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var form UpdateFieldRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	f, err := h.service.UpdateFieldConfig(c.Request.Context(), fieldID, form.Name, form.Config)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, f)
}

func (h *Handler) DeleteField(c *gin.Context) {
	fieldID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.service.DeleteField(c.Request.Context(), fieldID); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

type CreateSchemaRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

func (h *Handler) CreateSchema(c *gin.Context) {
	workspaceID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var form CreateSchemaRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	userID, _ := c.Get("user_id")
	if err := h.guard(c.Request.Context(), workspaceID, userID.(uint64)); err != nil {
		c.Error(err)
		return
	}

	schema := &FieldSchema{WorkspaceID: workspaceID, Name: form.Name}
	if err := h.service.CreateSchema(c.Request.Context(), schema); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, schema)
}

func (h *Handler) ListSchemas(c *gin.Context) {
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

	schemas, err := h.service.ListSchemas(c.Request.Context(), workspaceID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, schemas)
}

func (h *Handler) DeleteSchema(c *gin.Context) {
	schemaID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.service.DeleteSchema(c.Request.Context(), schemaID); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

type AddSchemaFieldRequest struct {
	FieldID      uint64 `json:"field_id" binding:"required"`
	DisplayOrder int    `json:"display_order"`
}

func (h *Handler) AddSchemaField(c *gin.Context) {
	schemaID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var form AddSchemaFieldRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	if err := h.service.AddFieldToSchema(c.Request.Context(), schemaID, form.FieldID, form.DisplayOrder); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusCreated)
}

type ReorderSchemaRequest struct {
	FieldIDs []uint64 `json:"field_ids" binding:"required"`
}

func (h *Handler) ReorderSchema(c *gin.Context) {
	schemaID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var form ReorderSchemaRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	if err := h.service.ReorderSchema(c.Request.Context(), schemaID, form.FieldIDs); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) RemoveSchemaField(c *gin.Context) {
	schemaID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	fieldID, err := pathID(c, "fieldId")
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.service.RemoveFieldFromSchema(c.Request.Context(), schemaID, fieldID); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ListSchemaFields(c *gin.Context) {
	schemaID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	fields, err := h.service.SchemaFields(c.Request.Context(), schemaID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, fields)
}

// ShowItemFields returns the aggregated field list for an item.
func (h *Handler) ShowItemFields(c *gin.Context) {
	itemID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	fields, err := h.service.AvailableFields(c.Request.Context(), itemID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, fields)
}

// ShowItemValues returns the stored values for the item's visible fields.
func (h *Handler) ShowItemValues(c *gin.Context) {
	itemID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	values, err := h.service.ItemValues(c.Request.Context(), itemID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, values)
}

type SetValueRequest struct {
	TextValue   *string `json:"text_value"`
	NumberValue *int    `json:"number_value"`
	BoolValue   *bool   `json:"bool_value"`
}

func (h *Handler) SetItemValue(c *gin.Context) {
	itemID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	fieldID, err := pathID(c, "fieldId")
	if err != nil {
		c.Error(err)
		return
	}

	var form SetValueRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	value := &FieldValue{
		FieldID:     fieldID,
		TextValue:   form.TextValue,
		NumberValue: form.NumberValue,
		BoolValue:   form.BoolValue,
	}
	if err := h.service.SetValue(c.Request.Context(), itemID, value); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, value)
}

func (h *Handler) ClearItemValue(c *gin.Context) {
	itemID, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	fieldID, err := pathID(c, "fieldId")
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.service.ClearValue(c.Request.Context(), itemID, fieldID); err != nil {
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

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/facility-admin-api/internal/service"
	appErrors "github.com/noah-isme/facility-admin-api/pkg/errors"
	"github.com/noah-isme/facility-admin-api/pkg/response"
)

// CategoryHandler exposes work order categories.
type CategoryHandler struct {
	categories *service.CategoryService
}

func NewCategoryHandler(categories *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

// List godoc
// @Summary List categories
// @Tags Categories
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.categories.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categories, nil)
}

// Create godoc
// @Summary Create category
// @Tags Categories
// @Accept json
// @Produce json
// @Param payload body service.CategoryRequest true "Category payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	var req service.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid category payload"))
		return
	}
	category, err := h.categories.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, category)
}

// Update godoc
// @Summary Rename category
// @Tags Categories
// @Accept json
// @Produce json
// @Param id path string true "Category ID"
// @Param payload body service.CategoryRequest true "Category payload"
// @Success 200 {object} response.Envelope
// @Router /categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	var req service.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid category payload"))
		return
	}
	category, err := h.categories.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, category, nil)
}

// Delete godoc
// @Summary Delete category
// @Tags Categories
// @Param id path string true "Category ID"
// @Success 204
// @Router /categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	if err := h.categories.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/facility-admin-api/internal/models"
	"github.com/noah-isme/facility-admin-api/internal/service"
	appErrors "github.com/noah-isme/facility-admin-api/pkg/errors"
	"github.com/noah-isme/facility-admin-api/pkg/response"
)

// TechnicianHandler exposes technician endpoints.
type TechnicianHandler struct {
	technicians *service.TechnicianService
}

// NewTechnicianHandler constructs TechnicianHandler.
func NewTechnicianHandler(technicians *service.TechnicianService) *TechnicianHandler {
	return &TechnicianHandler{technicians: technicians}
}

// List godoc
// @Summary List technicians
// @Tags Technicians
// @Produce json
// @Param search query string false "Search by name, email or phone"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort column"
// @Param order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /technicians [get]
func (h *TechnicianHandler) List(c *gin.Context) {
	filter := models.TechnicianFilter{
		Search:    trimmedQuery(c, "search"),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	filter.Page, filter.PageSize = pageParams(c)

	technicians, pagination, err := h.technicians.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, technicians, pagination)
}

// Get godoc
// @Summary Get technician
// @Tags Technicians
// @Produce json
// @Param id path string true "Technician ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /technicians/{id} [get]
func (h *TechnicianHandler) Get(c *gin.Context) {
	technician, err := h.technicians.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, technician, nil)
}

// Register godoc
// @Summary Register technician
// @Description Registering an existing email refreshes that technician.
// @Tags Technicians
// @Accept json
// @Produce json
// @Param payload body service.RegisterTechnicianRequest true "Technician payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /technicians [post]
func (h *TechnicianHandler) Register(c *gin.Context) {
	var req service.RegisterTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid technician payload"))
		return
	}
	technician, err := h.technicians.Register(c.Request.Context(), currentAdminID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"message": "Technician created successfully.", "technician": technician})
}

// Update godoc
// @Summary Update technician
// @Tags Technicians
// @Accept json
// @Produce json
// @Param id path string true "Technician ID"
// @Param payload body service.UpdateTechnicianRequest true "Technician payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /technicians/{id} [put]
func (h *TechnicianHandler) Update(c *gin.Context) {
	var req service.UpdateTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid technician payload"))
		return
	}
	technician, err := h.technicians.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, technician, nil)
}

// Delete godoc
// @Summary Delete technician
// @Tags Technicians
// @Param id path string true "Technician ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /technicians/{id} [delete]
func (h *TechnicianHandler) Delete(c *gin.Context) {
	if err := h.technicians.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/shams-connect/school-needs-api/internal/models"
	"github.com/shams-connect/school-needs-api/internal/service"
	appErrors "github.com/shams-connect/school-needs-api/pkg/errors"
	"github.com/shams-connect/school-needs-api/pkg/response"
)

// NeedHandler wires HTTP endpoints to the need service.
type NeedHandler struct {
	needs     *service.NeedService
	dashboard *service.DashboardService
}

// NewNeedHandler creates a new handler.
func NewNeedHandler(needs *service.NeedService, dashboard *service.DashboardService) *NeedHandler {
	return &NeedHandler{needs: needs, dashboard: dashboard}
}

func needFilterFromQuery(c *gin.Context) models.NeedFilter {
	filter := models.NeedFilter{
		SchoolID:    c.Query("school_id"),
		Category:    c.Query("category"),
		Priority:    c.Query("priority"),
		Status:      c.Query("status"),
		Governorate: c.Query("governorate"),
		Search:      c.Query("search"),
		Sort:        c.Query("sort"),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return filter
}

// List godoc
// @Summary List needs
// @Description Filter and sort needs across the platform
// @Tags Needs
// @Produce json
// @Param category query string false "Category filter, 'all' disables"
// @Param priority query string false "Priority filter"
// @Param status query string false "Status filter"
// @Param governorate query string false "Governorate of the owning school"
// @Param search query string false "Substring search on title and description"
// @Param sort query string false "Sort key (newest, oldest, priority)"
// @Success 200 {object} response.Envelope
// @Router /needs [get]
func (h *NeedHandler) List(c *gin.Context) {
	needs, pagination, err := h.needs.List(c.Request.Context(), needFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, needs, pagination)
}

// ListForSchool godoc
// @Summary List needs for one school
// @Tags Needs
// @Produce json
// @Param id path string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{id}/needs [get]
func (h *NeedHandler) ListForSchool(c *gin.Context) {
	filter := needFilterFromQuery(c)
	filter.SchoolID = c.Param("id")

	needs, pagination, err := h.needs.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, needs, pagination)
}

// Get godoc
// @Summary Get a need
// @Tags Needs
// @Produce json
// @Param id path string true "Need ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /needs/{id} [get]
func (h *NeedHandler) Get(c *gin.Context) {
	need, err := h.needs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, need, nil)
}

// Create godoc
// @Summary Publish a need
// @Description Principals publish for their own approved school, admins for any
// @Tags Needs
// @Accept json
// @Produce json
// @Param payload body service.CreateNeedRequest true "Need payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /needs [post]
func (h *NeedHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateNeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid need payload"))
		return
	}

	need, err := h.needs.Create(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, need)
}

// Update godoc
// @Summary Edit a need
// @Tags Needs
// @Accept json
// @Produce json
// @Param id path string true "Need ID"
// @Param payload body service.UpdateNeedRequest true "Partial update"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /needs/{id} [patch]
func (h *NeedHandler) Update(c *gin.Context) {
	var req service.UpdateNeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid need payload"))
		return
	}

	need, err := h.needs.Update(c.Request.Context(), c.Param("id"), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, need, nil)
}

// SetStatus godoc
// @Summary Move a need to a new status
// @Tags Needs
// @Accept json
// @Produce json
// @Param id path string true "Need ID"
// @Param payload body service.SetNeedStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /needs/{id}/status [put]
func (h *NeedHandler) SetStatus(c *gin.Context) {
	var req service.SetNeedStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}

	need, err := h.needs.SetStatus(c.Request.Context(), c.Param("id"), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, need, nil)
}

// BulkSetStatus godoc
// @Summary Move several needs to a new status
// @Tags Needs
// @Accept json
// @Produce json
// @Param payload body service.BulkNeedStatusRequest true "IDs and target status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/needs/status [put]
func (h *NeedHandler) BulkSetStatus(c *gin.Context) {
	var req service.BulkNeedStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bulk status payload"))
		return
	}

	affected, err := h.needs.BulkSetStatus(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"updated": affected}, nil)
}

// Delete godoc
// @Summary Delete a need
// @Tags Needs
// @Param id path string true "Need ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /needs/{id} [delete]
func (h *NeedHandler) Delete(c *gin.Context) {
	if err := h.needs.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stats godoc
// @Summary Platform-wide need statistics
// @Tags Needs
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /needs/stats [get]
func (h *NeedHandler) Stats(c *gin.Context) {
	stats, err := h.dashboard.NeedStatsFor(c.Request.Context(), "")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

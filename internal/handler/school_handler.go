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

// SchoolHandler wires HTTP endpoints to the school service.
type SchoolHandler struct {
	schools   *service.SchoolService
	dashboard *service.DashboardService
}

// NewSchoolHandler creates a new handler.
func NewSchoolHandler(schools *service.SchoolService, dashboard *service.DashboardService) *SchoolHandler {
	return &SchoolHandler{schools: schools, dashboard: dashboard}
}

func schoolFilterFromQuery(c *gin.Context) models.SchoolFilter {
	filter := models.SchoolFilter{
		Search:         c.Query("search"),
		Governorate:    c.Query("governorate"),
		EducationLevel: c.Query("education_level"),
		Sort:           c.Query("sort"),
	}
	if filter.Governorate == "all" {
		filter.Governorate = ""
	}
	if filter.EducationLevel == "all" {
		filter.EducationLevel = ""
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return filter
}

// List godoc
// @Summary List approved schools
// @Description Public listing of approved schools with filter and sort
// @Tags Schools
// @Produce json
// @Param governorate query string false "Governorate filter"
// @Param education_level query string false "Education level filter"
// @Param search query string false "Substring search on name, description and address"
// @Param sort query string false "Sort key (newest, oldest)"
// @Success 200 {object} response.Envelope
// @Router /schools [get]
func (h *SchoolHandler) List(c *gin.Context) {
	schools, pagination, err := h.schools.ListPublic(c.Request.Context(), schoolFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schools, pagination)
}

// AdminList godoc
// @Summary List schools for administrators
// @Description Lists schools in any moderation status
// @Tags Schools
// @Produce json
// @Param status query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Router /admin/schools [get]
func (h *SchoolHandler) AdminList(c *gin.Context) {
	filter := schoolFilterFromQuery(c)
	if raw := c.Query("status"); raw != "" && raw != "all" {
		status := models.SchoolStatus(raw)
		filter.Status = &status
	}
	filter.PrincipalID = c.Query("principal_id")

	schools, pagination, err := h.schools.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schools, pagination)
}

// Get godoc
// @Summary Get a school
// @Tags Schools
// @Produce json
// @Param id path string true "School ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schools/{id} [get]
func (h *SchoolHandler) Get(c *gin.Context) {
	school, err := h.schools.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, school, nil)
}

// GetOwn godoc
// @Summary Get the caller's own school
// @Tags Schools
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schools/me [get]
func (h *SchoolHandler) GetOwn(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	school, err := h.schools.GetOwn(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, school, nil)
}

// Register godoc
// @Summary Register a school
// @Description Principal registers their school; it starts in pending status
// @Tags Schools
// @Accept json
// @Produce json
// @Param payload body service.RegisterSchoolRequest true "School payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schools [post]
func (h *SchoolHandler) Register(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.RegisterSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid school payload"))
		return
	}

	school, err := h.schools.Register(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, school)
}

// Update godoc
// @Summary Update a school
// @Tags Schools
// @Accept json
// @Produce json
// @Param id path string true "School ID"
// @Param payload body service.UpdateSchoolRequest true "Partial update"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /schools/{id} [patch]
func (h *SchoolHandler) Update(c *gin.Context) {
	var req service.UpdateSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid school payload"))
		return
	}

	school, err := h.schools.Update(c.Request.Context(), c.Param("id"), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, school, nil)
}

// Moderate godoc
// @Summary Approve or reject a school registration
// @Tags Schools
// @Accept json
// @Produce json
// @Param id path string true "School ID"
// @Param payload body service.ModerateSchoolRequest true "Moderation decision"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/schools/{id}/moderate [post]
func (h *SchoolHandler) Moderate(c *gin.Context) {
	var req service.ModerateSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid moderation payload"))
		return
	}

	school, err := h.schools.Moderate(c.Request.Context(), c.Param("id"), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, school, nil)
}

// Delete godoc
// @Summary Delete a school
// @Tags Schools
// @Param id path string true "School ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /schools/{id} [delete]
func (h *SchoolHandler) Delete(c *gin.Context) {
	if err := h.schools.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stats godoc
// @Summary Platform-wide school statistics
// @Tags Schools
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schools/stats [get]
func (h *SchoolHandler) Stats(c *gin.Context) {
	stats, err := h.dashboard.SchoolStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// NeedStats godoc
// @Summary Need statistics for one school
// @Tags Schools
// @Produce json
// @Param id path string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{id}/stats [get]
func (h *SchoolHandler) NeedStats(c *gin.Context) {
	// Visibility follows the school itself.
	if _, err := h.schools.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}

	stats, err := h.dashboard.NeedStatsFor(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

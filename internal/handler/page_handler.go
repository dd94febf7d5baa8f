package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shams-connect/school-needs-api/internal/models"
	"github.com/shams-connect/school-needs-api/internal/service"
	appErrors "github.com/shams-connect/school-needs-api/pkg/errors"
	"github.com/shams-connect/school-needs-api/pkg/response"
)

// PageHandler wires HTTP endpoints to the page service.
type PageHandler struct {
	pages *service.PageService
}

// NewPageHandler creates a new handler.
func NewPageHandler(pages *service.PageService) *PageHandler {
	return &PageHandler{pages: pages}
}

// List godoc
// @Summary List content pages
// @Description Public callers see published pages, admins see all
// @Tags Pages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /pages [get]
func (h *PageHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	includeUnpublished := claims != nil && claims.Role == models.RoleAdmin

	pages, err := h.pages.List(c.Request.Context(), includeUnpublished)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pages, nil)
}

// Get godoc
// @Summary Fetch a content page by slug
// @Tags Pages
// @Produce json
// @Param slug path string true "Page slug"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /pages/{slug} [get]
func (h *PageHandler) Get(c *gin.Context) {
	page, err := h.pages.GetBySlug(c.Request.Context(), c.Param("slug"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page, nil)
}

// Create godoc
// @Summary Create a content page
// @Tags Pages
// @Accept json
// @Produce json
// @Param payload body service.PageRequest true "Page payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/pages [post]
func (h *PageHandler) Create(c *gin.Context) {
	var req service.PageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid page payload"))
		return
	}

	page, err := h.pages.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, page)
}

// Update godoc
// @Summary Update a content page
// @Tags Pages
// @Accept json
// @Produce json
// @Param slug path string true "Page slug"
// @Param payload body service.PageRequest true "Page payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/pages/{slug} [put]
func (h *PageHandler) Update(c *gin.Context) {
	var req service.PageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid page payload"))
		return
	}

	page, err := h.pages.Update(c.Request.Context(), c.Param("slug"), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page, nil)
}

// Delete godoc
// @Summary Delete a content page
// @Tags Pages
// @Param slug path string true "Page slug"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /admin/pages/{slug} [delete]
func (h *PageHandler) Delete(c *gin.Context) {
	if err := h.pages.Delete(c.Request.Context(), c.Param("slug"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

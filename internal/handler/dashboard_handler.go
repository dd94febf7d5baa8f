package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shams-connect/school-needs-api/internal/middleware"
	"github.com/shams-connect/school-needs-api/internal/models"
	"github.com/shams-connect/school-needs-api/internal/service"
	appErrors "github.com/shams-connect/school-needs-api/pkg/errors"
	"github.com/shams-connect/school-needs-api/pkg/response"
)

// DashboardHandler wires HTTP endpoints to the dashboard service.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler creates a new handler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Overview godoc
// @Summary Role-aware dashboard overview
// @Description Admins get the platform summary, principals their own school
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Overview(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if claims.Role == models.RoleAdmin {
		dashboard, cached, err := h.dashboard.AdminOverview(c.Request.Context())
		if err != nil {
			response.Error(c, err)
			return
		}
		middleware.SetCacheHit(c, cached)
		response.JSON(c, http.StatusOK, dashboard, nil, middleware.ExtractMeta(c))
		return
	}

	dashboard, cached, err := h.dashboard.PrincipalOverview(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, dashboard, nil, middleware.ExtractMeta(c))
}

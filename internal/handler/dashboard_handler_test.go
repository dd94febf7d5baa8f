package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shams-connect/school-needs-api/internal/models"
	"github.com/shams-connect/school-needs-api/internal/service"
)

type handlerDashboardCache struct {
	entries map[string][]byte
}

func newHandlerDashboardCache() *handlerDashboardCache {
	return &handlerDashboardCache{entries: make(map[string][]byte)}
}

func (f *handlerDashboardCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := f.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (f *handlerDashboardCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = raw
	return nil
}

type handlerAuditSource struct{}

func (handlerAuditSource) ListAuditLogs(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error) {
	return nil, 0, nil
}

func newDashboardHandler(needs *handlerNeedRepo, schools *handlerSchoolRepo) *DashboardHandler {
	dashboard := service.NewDashboardService(needs, schools, handlerAuditSource{}, newHandlerDashboardCache(), time.Minute, testLogger())
	return NewDashboardHandler(dashboard)
}

func TestDashboardOverviewRequiresAuth(t *testing.T) {
	h := newDashboardHandler(newHandlerNeedRepo(), newHandlerSchoolRepo())

	c, rec := testContext(t, http.MethodGet, "/dashboard", "")
	h.Overview(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardAdminOverviewReportsCacheHit(t *testing.T) {
	needs := newHandlerNeedRepo()
	needs.needs["need-1"] = models.NeedDetail{Need: models.Need{
		ID: "need-1", SchoolID: "school-1", Status: models.NeedStatusPending, Priority: models.NeedPriorityHigh,
	}}
	schools := newHandlerSchoolRepo()
	schools.put(models.School{ID: "school-1", PrincipalID: "principal-1", Status: models.SchoolStatusApproved})
	h := newDashboardHandler(needs, schools)

	c, rec := testContext(t, http.MethodGet, "/dashboard", "")
	authenticate(c, "admin-1", models.RoleAdmin)
	h.Overview(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, false, envelope.Meta["cache_hit"])

	c, rec = testContext(t, http.MethodGet, "/dashboard", "")
	authenticate(c, "admin-1", models.RoleAdmin)
	h.Overview(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope = decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
}

func TestDashboardPrincipalOverviewWithoutSchool(t *testing.T) {
	h := newDashboardHandler(newHandlerNeedRepo(), newHandlerSchoolRepo())

	c, rec := testContext(t, http.MethodGet, "/dashboard", "")
	authenticate(c, "principal-1", models.RolePrincipal)
	h.Overview(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)

	var dashboard service.PrincipalDashboard
	require.NoError(t, json.Unmarshal(envelope.Data, &dashboard))
	assert.Nil(t, dashboard.School)
	assert.Zero(t, dashboard.Needs.Total)
}

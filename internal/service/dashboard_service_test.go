package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shams-connect/school-needs-api/internal/models"
)

type fakeDashboardCache struct {
	entries map[string][]byte
	sets    []string
}

func newFakeDashboardCache() *fakeDashboardCache {
	return &fakeDashboardCache{entries: make(map[string][]byte)}
}

func (f *fakeDashboardCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := f.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (f *fakeDashboardCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = raw
	f.sets = append(f.sets, key)
	return nil
}

type fakeAuditSource struct {
	logs []models.AuditLog
}

func (f *fakeAuditSource) ListAuditLogs(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error) {
	return f.logs, len(f.logs), nil
}

func TestDashboardServiceAdminOverview(t *testing.T) {
	needs := newFakeNeedRepo()
	schools := newFakeSchoolRepo()
	schools.put(approvedSchool("school-1", "principal-1"))
	pending := approvedSchool("school-2", "principal-2")
	pending.Status = models.SchoolStatusPending
	schools.put(pending)

	needs.needs["need-1"] = models.NeedDetail{Need: models.Need{ID: "need-1", SchoolID: "school-1", Priority: models.NeedPriorityHigh, Status: models.NeedStatusPending, Category: models.NeedCategoryFurniture}}
	needs.needs["need-2"] = models.NeedDetail{Need: models.Need{ID: "need-2", SchoolID: "school-1", Priority: models.NeedPriorityLow, Status: models.NeedStatusFulfilled, Category: models.NeedCategoryFurniture}}

	cache := newFakeDashboardCache()
	audits := &fakeAuditSource{logs: []models.AuditLog{{Action: models.AuditActionLogin}}}
	svc := NewDashboardService(needs, schools, audits, cache, time.Minute, zap.NewNop())

	dashboard, cached, err := svc.AdminOverview(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, dashboard.Schools.Total)
	assert.Equal(t, 50, dashboard.Schools.ApprovalPercentage)
	assert.Equal(t, 2, dashboard.Needs.Total)
	assert.Equal(t, 1, dashboard.Needs.Urgent)
	assert.Equal(t, 50, dashboard.Needs.FulfillmentRate)
	require.Len(t, dashboard.UrgentNeeds, 1)
	assert.Equal(t, "need-1", dashboard.UrgentNeeds[0].ID)
	assert.Len(t, dashboard.RecentActivity, 1)

	// Second call is served from cache.
	_, cached, err = svc.AdminOverview(context.Background())
	require.NoError(t, err)
	assert.True(t, cached)
}

func TestDashboardServiceAdminOverviewCapsUrgentNeeds(t *testing.T) {
	needs := newFakeNeedRepo()
	schools := newFakeSchoolRepo()
	schools.put(approvedSchool("school-1", "principal-1"))
	for i := 0; i < dashboardUrgentNeeds+5; i++ {
		id := fmt.Sprintf("need-%d", i)
		needs.needs[id] = models.NeedDetail{Need: models.Need{ID: id, SchoolID: "school-1", Priority: models.NeedPriorityHigh, Status: models.NeedStatusPending, Category: models.NeedCategoryFurniture}}
	}
	svc := NewDashboardService(needs, schools, &fakeAuditSource{}, nil, time.Minute, zap.NewNop())

	dashboard, _, err := svc.AdminOverview(context.Background())
	require.NoError(t, err)
	assert.Len(t, dashboard.UrgentNeeds, dashboardUrgentNeeds)
	assert.Equal(t, dashboardUrgentNeeds+5, dashboard.Needs.Urgent)
}

func TestDashboardServicePrincipalOverviewWithoutSchool(t *testing.T) {
	svc := NewDashboardService(newFakeNeedRepo(), newFakeSchoolRepo(), &fakeAuditSource{}, nil, time.Minute, zap.NewNop())

	dashboard, cached, err := svc.PrincipalOverview(context.Background(), "principal-without-school")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Nil(t, dashboard.School)
	assert.Equal(t, 0, dashboard.Needs.Total)
}

func TestDashboardServicePrincipalOverviewScopesNeeds(t *testing.T) {
	needs := newFakeNeedRepo()
	schools := newFakeSchoolRepo()
	schools.put(approvedSchool("school-1", "principal-1"))
	schools.put(approvedSchool("school-2", "principal-2"))
	needs.needs["need-1"] = models.NeedDetail{Need: models.Need{ID: "need-1", SchoolID: "school-1", Status: models.NeedStatusPending}}
	needs.needs["need-2"] = models.NeedDetail{Need: models.Need{ID: "need-2", SchoolID: "school-2", Status: models.NeedStatusPending}}
	svc := NewDashboardService(needs, schools, &fakeAuditSource{}, nil, time.Minute, zap.NewNop())

	dashboard, _, err := svc.PrincipalOverview(context.Background(), "principal-1")
	require.NoError(t, err)
	require.NotNil(t, dashboard.School)
	assert.Equal(t, "school-1", dashboard.School.ID)
	assert.Equal(t, 1, dashboard.Needs.Total)
}

func TestDashboardServiceSchoolStats(t *testing.T) {
	schools := newFakeSchoolRepo()
	school := approvedSchool("school-1", "principal-1")
	school.StudentCount = 250
	schools.put(school)
	svc := NewDashboardService(newFakeNeedRepo(), schools, &fakeAuditSource{}, nil, time.Minute, zap.NewNop())

	stats, err := svc.SchoolStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 250, stats.TotalStudents)
	assert.Equal(t, 100, stats.ApprovalPercentage)
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/shams-connect/school-needs-api/internal/listing"
	"github.com/shams-connect/school-needs-api/internal/models"
	appErrors "github.com/shams-connect/school-needs-api/pkg/errors"
)

const (
	adminDashboardCacheKey  = "dash:admin"
	principalDashboardKey   = "dash:principal:"
	dashboardRecentActivity = 10
	dashboardUrgentNeeds    = 10
)

type dashboardNeedSource interface {
	ListAll(ctx context.Context, schoolID string) ([]models.NeedDetail, error)
}

type dashboardSchoolSource interface {
	ListAll(ctx context.Context) ([]models.School, error)
	FindByPrincipal(ctx context.Context, principalID string) (*models.School, error)
}

type dashboardAuditSource interface {
	ListAuditLogs(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error)
}

// AdminDashboard is the aggregate payload for the admin overview.
type AdminDashboard struct {
	Schools        listing.SchoolStats `json:"schools"`
	Needs          listing.NeedStats   `json:"needs"`
	UrgentNeeds    []models.NeedDetail `json:"urgent_needs"`
	RecentActivity []models.AuditLog   `json:"recent_activity"`
	GeneratedAt    time.Time           `json:"generated_at"`
}

// PrincipalDashboard is the aggregate payload for a principal's own
// school overview.
type PrincipalDashboard struct {
	School      *models.School    `json:"school,omitempty"`
	Needs       listing.NeedStats `json:"needs"`
	GeneratedAt time.Time         `json:"generated_at"`
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// DashboardService composes overview payloads from the listing core,
// with a Redis-backed cache in front.
type DashboardService struct {
	needs    dashboardNeedSource
	schools  dashboardSchoolSource
	audits   dashboardAuditSource
	cache    dashboardCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewDashboardService constructs a DashboardService instance.
func NewDashboardService(needs dashboardNeedSource, schools dashboardSchoolSource, audits dashboardAuditSource, cache dashboardCache, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &DashboardService{needs: needs, schools: schools, audits: audits, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// AdminOverview returns platform-wide statistics. The second return
// value reports whether the payload came from cache.
func (s *DashboardService) AdminOverview(ctx context.Context) (*AdminDashboard, bool, error) {
	if s.cache != nil {
		var cached AdminDashboard
		if hit, err := s.cache.Get(ctx, adminDashboardCacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	schools, err := s.schools.ListAll(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schools")
	}
	needs, err := s.needs.ListAll(ctx, "")
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load needs")
	}

	urgent := listing.FilterNeeds(needs, listing.NeedCriteria{
		Priority: string(models.NeedPriorityHigh),
		Status:   string(models.NeedStatusPending),
	})
	urgent = listing.SortNeeds(urgent, listing.SortNewest)
	if len(urgent) > dashboardUrgentNeeds {
		urgent = urgent[:dashboardUrgentNeeds]
	}

	dashboard := &AdminDashboard{
		Schools:     listing.SchoolStatistics(schools),
		Needs:       listing.NeedStatistics(needs),
		UrgentNeeds: urgent,
		GeneratedAt: time.Now().UTC(),
	}

	if s.audits != nil {
		recent, _, err := s.audits.ListAuditLogs(ctx, models.AuditLogFilter{Page: 1, PageSize: dashboardRecentActivity})
		if err != nil {
			s.logger.Warn("failed to load recent activity", zap.Error(err))
		} else {
			dashboard.RecentActivity = recent
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, adminDashboardCacheKey, dashboard, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache admin dashboard", zap.Error(err))
		}
	}
	return dashboard, false, nil
}

// PrincipalOverview returns statistics for the principal's own school.
// A principal without a registered school gets an empty payload rather
// than an error.
func (s *DashboardService) PrincipalOverview(ctx context.Context, principalID string) (*PrincipalDashboard, bool, error) {
	cacheKey := principalDashboardKey + principalID
	if s.cache != nil {
		var cached PrincipalDashboard
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	dashboard := &PrincipalDashboard{GeneratedAt: time.Now().UTC()}

	school, err := s.schools.FindByPrincipal(ctx, principalID)
	switch {
	case err == nil:
		dashboard.School = school
		needs, err := s.needs.ListAll(ctx, school.ID)
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load needs")
		}
		dashboard.Needs = listing.NeedStatistics(needs)
	case errors.Is(err, sql.ErrNoRows):
		dashboard.Needs = listing.NeedStatistics(nil)
	default:
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, dashboard, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache principal dashboard", zap.Error(err))
		}
	}
	return dashboard, false, nil
}

// NeedStatsFor computes need statistics, optionally scoped to one school.
func (s *DashboardService) NeedStatsFor(ctx context.Context, schoolID string) (listing.NeedStats, error) {
	needs, err := s.needs.ListAll(ctx, schoolID)
	if err != nil {
		return listing.NeedStats{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load needs")
	}
	return listing.NeedStatistics(needs), nil
}

// SchoolStats computes platform-wide school statistics.
func (s *DashboardService) SchoolStats(ctx context.Context) (listing.SchoolStats, error) {
	schools, err := s.schools.ListAll(ctx)
	if err != nil {
		return listing.SchoolStats{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schools")
	}
	return listing.SchoolStatistics(schools), nil
}

package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shams-connect/school-needs-api/internal/models"
)

type fakeAudit struct {
	logs []models.AuditLog
	err  error
}

func (f *fakeAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if f.err != nil {
		return f.err
	}
	f.logs = append(f.logs, *log)
	return nil
}

type fakeNotifier struct {
	sent []models.Notification
	err  error
}

func (f *fakeNotifier) Notify(ctx context.Context, notification *models.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, *notification)
	return nil
}

type fakeCacheInvalidator struct {
	patterns []string
}

func (f *fakeCacheInvalidator) Invalidate(ctx context.Context, pattern string) error {
	f.patterns = append(f.patterns, pattern)
	return nil
}

type fakeSchoolRepo struct {
	schools     map[string]models.School
	byPrincipal map[string]string
	lastFilter  models.SchoolFilter
	listTotal   int
	deleted     []string
	err         error
}

func newFakeSchoolRepo() *fakeSchoolRepo {
	return &fakeSchoolRepo{schools: make(map[string]models.School), byPrincipal: make(map[string]string)}
}

func (f *fakeSchoolRepo) put(school models.School) {
	f.schools[school.ID] = school
	f.byPrincipal[school.PrincipalID] = school.ID
}

func (f *fakeSchoolRepo) List(ctx context.Context, filter models.SchoolFilter) ([]models.School, int, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, 0, f.err
	}
	out := make([]models.School, 0, len(f.schools))
	for _, s := range f.schools {
		out = append(out, s)
	}
	return out, f.listTotal, nil
}

func (f *fakeSchoolRepo) ListAll(ctx context.Context) ([]models.School, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.School, 0, len(f.schools))
	for _, s := range f.schools {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSchoolRepo) FindByID(ctx context.Context, id string) (*models.School, error) {
	if s, ok := f.schools[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSchoolRepo) FindByPrincipal(ctx context.Context, principalID string) (*models.School, error) {
	if id, ok := f.byPrincipal[principalID]; ok {
		s := f.schools[id]
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSchoolRepo) Create(ctx context.Context, school *models.School) error {
	if school.ID == "" {
		school.ID = fmt.Sprintf("school-%d", len(f.schools)+1)
	}
	school.CreatedAt = time.Now().UTC()
	school.UpdatedAt = school.CreatedAt
	f.put(*school)
	return nil
}

func (f *fakeSchoolRepo) Update(ctx context.Context, school *models.School) error {
	f.put(*school)
	return nil
}

func (f *fakeSchoolRepo) UpdateStatus(ctx context.Context, id string, status models.SchoolStatus) error {
	s, ok := f.schools[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.Status = status
	f.put(s)
	return nil
}

func (f *fakeSchoolRepo) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.schools, id)
	return nil
}

type fakeNeedRepo struct {
	needs      map[string]models.NeedDetail
	lastFilter models.NeedFilter
	listTotal  int
	deleted    []string
	bulkIDs    []string
	bulkStatus models.NeedStatus
	bulkTime   *time.Time
	err        error
}

func newFakeNeedRepo() *fakeNeedRepo {
	return &fakeNeedRepo{needs: make(map[string]models.NeedDetail)}
}

func (f *fakeNeedRepo) List(ctx context.Context, filter models.NeedFilter) ([]models.NeedDetail, int, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, 0, f.err
	}
	out := make([]models.NeedDetail, 0, len(f.needs))
	for _, n := range f.needs {
		out = append(out, n)
	}
	return out, f.listTotal, nil
}

func (f *fakeNeedRepo) ListAll(ctx context.Context, schoolID string) ([]models.NeedDetail, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.NeedDetail, 0, len(f.needs))
	for _, n := range f.needs {
		if schoolID != "" && n.SchoolID != schoolID {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (f *fakeNeedRepo) FindByID(ctx context.Context, id string) (*models.NeedDetail, error) {
	if n, ok := f.needs[id]; ok {
		return &n, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeNeedRepo) Create(ctx context.Context, need *models.Need) error {
	if need.ID == "" {
		need.ID = fmt.Sprintf("need-%d", len(f.needs)+1)
	}
	need.CreatedAt = time.Now().UTC()
	need.UpdatedAt = need.CreatedAt
	f.needs[need.ID] = models.NeedDetail{Need: *need}
	return nil
}

func (f *fakeNeedRepo) Update(ctx context.Context, need *models.Need) error {
	detail := f.needs[need.ID]
	detail.Need = *need
	f.needs[need.ID] = detail
	return nil
}

func (f *fakeNeedRepo) UpdateStatus(ctx context.Context, id string, status models.NeedStatus, fulfilledAt *time.Time) error {
	detail, ok := f.needs[id]
	if !ok {
		return sql.ErrNoRows
	}
	detail.Status = status
	detail.FulfilledAt = fulfilledAt
	f.needs[id] = detail
	return nil
}

func (f *fakeNeedRepo) BulkUpdateStatus(ctx context.Context, ids []string, status models.NeedStatus, fulfilledAt *time.Time) (int64, error) {
	f.bulkIDs = ids
	f.bulkStatus = status
	f.bulkTime = fulfilledAt
	var affected int64
	for _, id := range ids {
		if detail, ok := f.needs[id]; ok {
			detail.Status = status
			detail.FulfilledAt = fulfilledAt
			f.needs[id] = detail
			affected++
		}
	}
	return affected, nil
}

func (f *fakeNeedRepo) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.needs, id)
	return nil
}

type fakeAdminLister struct {
	ids []string
	err error
}

func (f *fakeAdminLister) ListAdminIDs(ctx context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ids, nil
}

func adminClaims(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleAdmin}
}

func principalClaims(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RolePrincipal}
}

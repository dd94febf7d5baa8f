package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shams-connect/school-needs-api/internal/middleware"
	"github.com/shams-connect/school-needs-api/internal/models"
)

type responseEnvelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      map[string]interface{} `json:"error"`
	Pagination map[string]interface{} `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func testContext(t *testing.T, method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	return c, rec
}

func authenticate(c *gin.Context, userID string, role models.UserRole) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: userID, Role: role})
}

func testValidator() *validator.Validate { return validator.New() }

func testLogger() *zap.Logger { return zap.NewNop() }

// handlerSchoolRepo is a minimal in-memory school store for handler tests.
type handlerSchoolRepo struct {
	schools     map[string]models.School
	byPrincipal map[string]string
	lastFilter  models.SchoolFilter
}

func newHandlerSchoolRepo() *handlerSchoolRepo {
	return &handlerSchoolRepo{schools: make(map[string]models.School), byPrincipal: make(map[string]string)}
}

func (f *handlerSchoolRepo) put(school models.School) {
	f.schools[school.ID] = school
	f.byPrincipal[school.PrincipalID] = school.ID
}

func (f *handlerSchoolRepo) List(ctx context.Context, filter models.SchoolFilter) ([]models.School, int, error) {
	f.lastFilter = filter
	out := make([]models.School, 0, len(f.schools))
	for _, s := range f.schools {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (f *handlerSchoolRepo) ListAll(ctx context.Context) ([]models.School, error) {
	out := make([]models.School, 0, len(f.schools))
	for _, s := range f.schools {
		out = append(out, s)
	}
	return out, nil
}

func (f *handlerSchoolRepo) FindByID(ctx context.Context, id string) (*models.School, error) {
	if s, ok := f.schools[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (f *handlerSchoolRepo) FindByPrincipal(ctx context.Context, principalID string) (*models.School, error) {
	if id, ok := f.byPrincipal[principalID]; ok {
		s := f.schools[id]
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (f *handlerSchoolRepo) Create(ctx context.Context, school *models.School) error {
	if school.ID == "" {
		school.ID = "school-new"
	}
	f.put(*school)
	return nil
}

func (f *handlerSchoolRepo) Update(ctx context.Context, school *models.School) error {
	f.put(*school)
	return nil
}

func (f *handlerSchoolRepo) UpdateStatus(ctx context.Context, id string, status models.SchoolStatus) error {
	s := f.schools[id]
	s.Status = status
	f.put(s)
	return nil
}

func (f *handlerSchoolRepo) Delete(ctx context.Context, id string) error {
	delete(f.schools, id)
	return nil
}

type handlerAudit struct{}

func (handlerAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error { return nil }

type handlerNotifier struct{ sent []models.Notification }

func (f *handlerNotifier) Notify(ctx context.Context, n *models.Notification) error {
	f.sent = append(f.sent, *n)
	return nil
}

type handlerCache struct{}

func (handlerCache) Invalidate(ctx context.Context, pattern string) error { return nil }

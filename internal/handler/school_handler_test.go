package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shams-connect/school-needs-api/internal/models"
	"github.com/shams-connect/school-needs-api/internal/service"
)

func newSchoolHandler(repo *handlerSchoolRepo) (*SchoolHandler, *handlerNotifier) {
	notifier := &handlerNotifier{}
	schools := service.NewSchoolService(repo, handlerAudit{}, notifier, handlerCache{}, testValidator(), testLogger())
	return NewSchoolHandler(schools, nil), notifier
}

func TestSchoolListParsesFilterQuery(t *testing.T) {
	repo := newHandlerSchoolRepo()
	h, _ := newSchoolHandler(repo)

	c, rec := testContext(t, http.MethodGet, "/schools?governorate=aleppo&education_level=all&search=amal&sort=oldest&page=2&page_size=5", "")
	h.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "aleppo", repo.lastFilter.Governorate)
	assert.Empty(t, repo.lastFilter.EducationLevel)
	assert.Equal(t, "amal", repo.lastFilter.Search)
	assert.Equal(t, "oldest", repo.lastFilter.Sort)
	assert.Equal(t, 2, repo.lastFilter.Page)
	assert.Equal(t, 5, repo.lastFilter.PageSize)

	require.NotNil(t, repo.lastFilter.Status)
	assert.Equal(t, models.SchoolStatusApproved, *repo.lastFilter.Status)
}

func TestSchoolListRejectsUnknownGovernorate(t *testing.T) {
	h, _ := newSchoolHandler(newHandlerSchoolRepo())

	c, rec := testContext(t, http.MethodGet, "/schools?governorate=Aleppo", "")
	h.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error["code"])
}

func TestSchoolGetHidesPendingFromAnonymous(t *testing.T) {
	repo := newHandlerSchoolRepo()
	repo.put(models.School{ID: "school-1", PrincipalID: "principal-1", Status: models.SchoolStatusPending})
	h, _ := newSchoolHandler(repo)

	c, rec := testContext(t, http.MethodGet, "/schools/school-1", "")
	c.Params = []gin.Param{{Key: "id", Value: "school-1"}}
	h.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSchoolRegisterCreatesPending(t *testing.T) {
	repo := newHandlerSchoolRepo()
	h, _ := newSchoolHandler(repo)

	body := `{"name":"Al Amal Primary","address":"Main St","governorate":"aleppo","education_level":"primary","student_count":300}`
	c, rec := testContext(t, http.MethodPost, "/schools", body)
	authenticate(c, "principal-1", models.RolePrincipal)
	h.Register(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	envelope := decodeEnvelope(t, rec)

	var school models.School
	require.NoError(t, json.Unmarshal(envelope.Data, &school))
	assert.Equal(t, models.SchoolStatusPending, school.Status)
	assert.Equal(t, "principal-1", school.PrincipalID)
}

func TestSchoolRegisterUnauthenticated(t *testing.T) {
	h, _ := newSchoolHandler(newHandlerSchoolRepo())

	c, rec := testContext(t, http.MethodPost, "/schools", `{"name":"Al Amal"}`)
	h.Register(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSchoolModerateNotifiesPrincipal(t *testing.T) {
	repo := newHandlerSchoolRepo()
	repo.put(models.School{ID: "school-1", PrincipalID: "principal-1", Name: "Al Amal", Status: models.SchoolStatusPending})
	h, notifier := newSchoolHandler(repo)

	c, rec := testContext(t, http.MethodPost, "/admin/schools/school-1/moderate", `{"status":"approved"}`)
	c.Params = []gin.Param{{Key: "id", Value: "school-1"}}
	authenticate(c, "admin-1", models.RoleAdmin)
	h.Moderate(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.SchoolStatusApproved, repo.schools["school-1"].Status)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "principal-1", notifier.sent[0].UserID)
}

package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shams-connect/school-needs-api/internal/models"
	appErrors "github.com/shams-connect/school-needs-api/pkg/errors"
)

func newSchoolService(repo *fakeSchoolRepo, audit *fakeAudit, notifier *fakeNotifier) *SchoolService {
	return NewSchoolService(repo, audit, notifier, &fakeCacheInvalidator{}, validator.New(), zap.NewNop())
}

func TestSchoolServiceRegisterStartsPending(t *testing.T) {
	repo := newFakeSchoolRepo()
	svc := newSchoolService(repo, &fakeAudit{}, &fakeNotifier{})

	school, err := svc.Register(context.Background(), "principal-1", RegisterSchoolRequest{
		Name:           "Al Amal",
		Address:        "Main street",
		Governorate:    "aleppo",
		EducationLevel: "primary",
		StudentCount:   320,
	})
	require.NoError(t, err)
	assert.Equal(t, models.SchoolStatusPending, school.Status)
	assert.Equal(t, "principal-1", school.PrincipalID)
}

func TestSchoolServiceRegisterRejectsSecondSchool(t *testing.T) {
	repo := newFakeSchoolRepo()
	repo.put(approvedSchool("school-1", "principal-1"))
	svc := newSchoolService(repo, &fakeAudit{}, &fakeNotifier{})

	_, err := svc.Register(context.Background(), "principal-1", RegisterSchoolRequest{
		Name:           "Second school",
		Address:        "Other street",
		Governorate:    "homs",
		EducationLevel: "middle",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSchoolServiceRegisterRejectsUnknownGovernorate(t *testing.T) {
	svc := newSchoolService(newFakeSchoolRepo(), &fakeAudit{}, &fakeNotifier{})

	_, err := svc.Register(context.Background(), "principal-1", RegisterSchoolRequest{
		Name:           "Al Amal",
		Address:        "Main street",
		Governorate:    "Aleppo",
		EducationLevel: "primary",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSchoolServicePublicListForcesApprovedOnly(t *testing.T) {
	repo := newFakeSchoolRepo()
	svc := newSchoolService(repo, &fakeAudit{}, &fakeNotifier{})

	rejected := models.SchoolStatusRejected
	_, _, err := svc.ListPublic(context.Background(), models.SchoolFilter{Status: &rejected, PrincipalID: "sneaky"})
	require.NoError(t, err)
	require.NotNil(t, repo.lastFilter.Status)
	assert.Equal(t, models.SchoolStatusApproved, *repo.lastFilter.Status)
	assert.Empty(t, repo.lastFilter.PrincipalID)
}

func TestSchoolServiceGetHidesPendingFromStrangers(t *testing.T) {
	repo := newFakeSchoolRepo()
	school := approvedSchool("school-1", "principal-1")
	school.Status = models.SchoolStatusPending
	repo.put(school)
	svc := newSchoolService(repo, &fakeAudit{}, &fakeNotifier{})

	_, err := svc.Get(context.Background(), "school-1", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	got, err := svc.Get(context.Background(), "school-1", principalClaims("principal-1"))
	require.NoError(t, err)
	assert.Equal(t, "school-1", got.ID)

	got, err = svc.Get(context.Background(), "school-1", adminClaims("admin-1"))
	require.NoError(t, err)
	assert.Equal(t, "school-1", got.ID)
}

func TestSchoolServiceUpdateForbiddenForOtherPrincipal(t *testing.T) {
	repo := newFakeSchoolRepo()
	repo.put(approvedSchool("school-1", "principal-1"))
	svc := newSchoolService(repo, &fakeAudit{}, &fakeNotifier{})

	name := "Renamed"
	_, err := svc.Update(context.Background(), "school-1", principalClaims("principal-2"), UpdateSchoolRequest{Name: &name})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSchoolServiceModerateApproveNotifiesPrincipal(t *testing.T) {
	repo := newFakeSchoolRepo()
	school := approvedSchool("school-1", "principal-1")
	school.Status = models.SchoolStatusPending
	repo.put(school)
	notifier := &fakeNotifier{}
	audit := &fakeAudit{}
	svc := newSchoolService(repo, audit, notifier)

	moderated, err := svc.Moderate(context.Background(), "school-1", adminClaims("admin-1"), ModerateSchoolRequest{Status: models.SchoolStatusApproved})
	require.NoError(t, err)
	assert.Equal(t, models.SchoolStatusApproved, moderated.Status)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "principal-1", notifier.sent[0].UserID)
	assert.Equal(t, models.NotificationTypeSchoolModerate, notifier.sent[0].Type)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionSchoolModerate, audit.logs[0].Action)
}

func TestSchoolServiceModerateRejectIncludesReason(t *testing.T) {
	repo := newFakeSchoolRepo()
	school := approvedSchool("school-1", "principal-1")
	school.Status = models.SchoolStatusPending
	repo.put(school)
	notifier := &fakeNotifier{}
	svc := newSchoolService(repo, &fakeAudit{}, notifier)

	_, err := svc.Moderate(context.Background(), "school-1", adminClaims("admin-1"), ModerateSchoolRequest{
		Status: models.SchoolStatusRejected,
		Reason: "missing address details",
	})
	require.NoError(t, err)
	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0].Body, "missing address details")
}

func TestSchoolServiceModerateRejectsPendingTarget(t *testing.T) {
	repo := newFakeSchoolRepo()
	repo.put(approvedSchool("school-1", "principal-1"))
	svc := newSchoolService(repo, &fakeAudit{}, &fakeNotifier{})

	_, err := svc.Moderate(context.Background(), "school-1", adminClaims("admin-1"), ModerateSchoolRequest{Status: models.SchoolStatusPending})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSchoolServiceDeleteByAdmin(t *testing.T) {
	repo := newFakeSchoolRepo()
	repo.put(approvedSchool("school-1", "principal-1"))
	svc := newSchoolService(repo, &fakeAudit{}, &fakeNotifier{})

	require.NoError(t, svc.Delete(context.Background(), "school-1", adminClaims("admin-1")))
	assert.Equal(t, []string{"school-1"}, repo.deleted)
}

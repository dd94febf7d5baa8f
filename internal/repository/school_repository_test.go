package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shams-connect/school-needs-api/internal/models"
)

func schoolRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "principal_id", "name", "address", "governorate", "education_level", "student_count",
		"phone", "email", "description", "image_url", "status", "created_at", "updated_at",
	}).AddRow("s1", "u1", "Al Amal", "Main Street", "damascus", "primary", 320,
		nil, nil, nil, nil, "approved", time.Now(), time.Now())
}

func TestSchoolRepositoryListApprovedOnly(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM schools s WHERE 1=1 AND s\.status = \$1 ORDER BY s\.created_at DESC LIMIT 20 OFFSET 0`).
		WithArgs("approved").
		WillReturnRows(schoolRows())
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM schools s WHERE 1=1 AND s\.status = \$1`).
		WithArgs("approved").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	status := models.SchoolStatusApproved
	schools, total, err := repo.List(context.Background(), models.SchoolFilter{Status: &status})
	require.NoError(t, err)
	assert.Len(t, schools, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolRepositoryListSearchAndGovernorate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	mock.ExpectQuery(`AND s\.governorate = \$1 AND \(LOWER\(s\.name\) LIKE \$2 OR LOWER\(COALESCE\(s\.description, ''\)\) LIKE \$2 OR LOWER\(s\.address\) LIKE \$2\)`).
		WithArgs("damascus", "%amal%").
		WillReturnRows(schoolRows())
	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs("damascus", "%amal%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	schools, _, err := repo.List(context.Background(), models.SchoolFilter{Governorate: "damascus", Search: "Amal"})
	require.NoError(t, err)
	assert.Len(t, schools, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	mock.ExpectExec("INSERT INTO schools").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	school := &models.School{
		PrincipalID:    "u1",
		Name:           "Al Amal",
		Address:        "Main Street",
		Governorate:    "damascus",
		EducationLevel: models.EducationLevelPrimary,
		StudentCount:   320,
		Status:         models.SchoolStatusPending,
	}
	err := repo.Create(context.Background(), school)
	require.NoError(t, err)
	assert.NotEmpty(t, school.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	mock.ExpectExec(`UPDATE schools SET status = \$2, updated_at = \$3 WHERE id = \$1`).
		WithArgs("s1", "approved", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "s1", models.SchoolStatusApproved))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolRepositoryFindByPrincipal(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	mock.ExpectQuery(`FROM schools s WHERE s\.principal_id = \$1`).
		WithArgs("u1").
		WillReturnRows(schoolRows())

	school, err := repo.FindByPrincipal(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "s1", school.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

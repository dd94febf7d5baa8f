package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/shams-connect/school-needs-api/internal/models"
)

// SchoolRepository manages persistence for school records.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository constructs a SchoolRepository.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

const schoolColumns = `s.id, s.principal_id, s.name, s.address, s.governorate, s.education_level, s.student_count,
        s.phone, s.email, s.description, s.image_url, s.status, s.created_at, s.updated_at`

// List returns schools matching the provided filters.
func (r *SchoolRepository) List(ctx context.Context, filter models.SchoolFilter) ([]models.School, int, error) {
	base := "FROM schools s"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Governorate != "" {
		conditions = append(conditions, fmt.Sprintf("s.governorate = $%d", len(args)+1))
		args = append(args, filter.Governorate)
	}
	if filter.EducationLevel != "" {
		conditions = append(conditions, fmt.Sprintf("s.education_level = $%d", len(args)+1))
		args = append(args, filter.EducationLevel)
	}
	if filter.PrincipalID != "" {
		conditions = append(conditions, fmt.Sprintf("s.principal_id = $%d", len(args)+1))
		args = append(args, filter.PrincipalID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.name) LIKE $%d OR LOWER(COALESCE(s.description, '')) LIKE $%d OR LOWER(s.address) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	order := "s.created_at DESC"
	if filter.Sort == "oldest" {
		order = "s.created_at ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s LIMIT %d OFFSET %d`, schoolColumns, base, order, size, offset)

	var schools []models.School
	if err := r.db.SelectContext(ctx, &schools, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schools: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schools: %w", err)
	}
	return schools, total, nil
}

// ListAll fetches every school without pagination, for statistics passes.
func (r *SchoolRepository) ListAll(ctx context.Context) ([]models.School, error) {
	query := fmt.Sprintf(`SELECT %s FROM schools s ORDER BY s.created_at ASC`, schoolColumns)
	var schools []models.School
	if err := r.db.SelectContext(ctx, &schools, query); err != nil {
		return nil, fmt.Errorf("list all schools: %w", err)
	}
	return schools, nil
}

// FindByID fetches a school by ID.
func (r *SchoolRepository) FindByID(ctx context.Context, id string) (*models.School, error) {
	query := fmt.Sprintf(`SELECT %s FROM schools s WHERE s.id = $1`, schoolColumns)
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, id); err != nil {
		return nil, err
	}
	return &school, nil
}

// FindByPrincipal fetches the school owned by a principal user.
func (r *SchoolRepository) FindByPrincipal(ctx context.Context, principalID string) (*models.School, error) {
	query := fmt.Sprintf(`SELECT %s FROM schools s WHERE s.principal_id = $1`, schoolColumns)
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, principalID); err != nil {
		return nil, err
	}
	return &school, nil
}

// Create inserts a new school record.
func (r *SchoolRepository) Create(ctx context.Context, school *models.School) error {
	if school.ID == "" {
		school.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if school.CreatedAt.IsZero() {
		school.CreatedAt = now
	}
	school.UpdatedAt = now
	const query = `INSERT INTO schools (id, principal_id, name, address, governorate, education_level, student_count, phone, email, description, image_url, status, created_at, updated_at)
        VALUES (:id, :principal_id, :name, :address, :governorate, :education_level, :student_count, :phone, :email, :description, :image_url, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, school); err != nil {
		return fmt.Errorf("create school: %w", err)
	}
	return nil
}

// Update modifies an existing school.
func (r *SchoolRepository) Update(ctx context.Context, school *models.School) error {
	school.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schools SET name = :name, address = :address, governorate = :governorate, education_level = :education_level,
        student_count = :student_count, phone = :phone, email = :email, description = :description, image_url = :image_url,
        status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, school); err != nil {
		return fmt.Errorf("update school: %w", err)
	}
	return nil
}

// UpdateStatus applies a moderation decision.
func (r *SchoolRepository) UpdateStatus(ctx context.Context, id string, status models.SchoolStatus) error {
	const query = `UPDATE schools SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update school status: %w", err)
	}
	return nil
}

// Delete removes a school permanently. Needs cascade at the schema level.
func (r *SchoolRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM schools WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete school: %w", err)
	}
	return nil
}

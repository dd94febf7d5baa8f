package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/shams-connect/school-needs-api/internal/models"
)

// NeedRepository manages persistence for need records.
type NeedRepository struct {
	db *sqlx.DB
}

// NewNeedRepository constructs a NeedRepository.
func NewNeedRepository(db *sqlx.DB) *NeedRepository {
	return &NeedRepository{db: db}
}

const needColumns = `n.id, n.school_id, n.title, n.description, n.category, n.priority, n.quantity, n.status,
        n.image_url, n.created_at, n.updated_at, n.fulfilled_at, s.name AS school_name, s.governorate AS school_governorate`

// List returns needs matching the provided filters, joined with school context.
func (r *NeedRepository) List(ctx context.Context, filter models.NeedFilter) ([]models.NeedDetail, int, error) {
	base := "FROM needs n JOIN schools s ON s.id = n.school_id"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.SchoolID != "" {
		conditions = append(conditions, fmt.Sprintf("n.school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("n.category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.Priority != "" {
		conditions = append(conditions, fmt.Sprintf("n.priority = $%d", len(args)+1))
		args = append(args, filter.Priority)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("n.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.SchoolStatus != "" {
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", len(args)+1))
		args = append(args, filter.SchoolStatus)
	}
	if filter.Governorate != "" {
		conditions = append(conditions, fmt.Sprintf("s.governorate = $%d", len(args)+1))
		args = append(args, filter.Governorate)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(n.title) LIKE $%d OR LOWER(COALESCE(n.description, '')) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(filter.Search))+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	order := "n.created_at DESC"
	switch filter.Sort {
	case "oldest":
		order = "n.created_at ASC"
	case "priority":
		// high=1, medium=2, low=3; unknown values sort last.
		order = `CASE n.priority WHEN 'high' THEN 1 WHEN 'medium' THEN 2 WHEN 'low' THEN 3 ELSE 4 END ASC, n.created_at DESC`
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

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s LIMIT %d OFFSET %d`, needColumns, base, order, size, offset)

	var needs []models.NeedDetail
	if err := r.db.SelectContext(ctx, &needs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list needs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count needs: %w", err)
	}
	return needs, total, nil
}

// ListAll fetches every need (optionally scoped to one school) for
// statistics passes, in creation order.
func (r *NeedRepository) ListAll(ctx context.Context, schoolID string) ([]models.NeedDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM needs n JOIN schools s ON s.id = n.school_id`, needColumns)
	args := []interface{}{}
	if schoolID != "" {
		query += " WHERE n.school_id = $1"
		args = append(args, schoolID)
	}
	query += " ORDER BY n.created_at ASC"

	var needs []models.NeedDetail
	if err := r.db.SelectContext(ctx, &needs, query, args...); err != nil {
		return nil, fmt.Errorf("list all needs: %w", err)
	}
	return needs, nil
}

// FindByID fetches a need with school context.
func (r *NeedRepository) FindByID(ctx context.Context, id string) (*models.NeedDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM needs n JOIN schools s ON s.id = n.school_id WHERE n.id = $1`, needColumns)
	var need models.NeedDetail
	if err := r.db.GetContext(ctx, &need, query, id); err != nil {
		return nil, err
	}
	return &need, nil
}

// Create inserts a new need record.
func (r *NeedRepository) Create(ctx context.Context, need *models.Need) error {
	if need.ID == "" {
		need.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if need.CreatedAt.IsZero() {
		need.CreatedAt = now
	}
	need.UpdatedAt = now
	const query = `INSERT INTO needs (id, school_id, title, description, category, priority, quantity, status, image_url, created_at, updated_at, fulfilled_at)
        VALUES (:id, :school_id, :title, :description, :category, :priority, :quantity, :status, :image_url, :created_at, :updated_at, :fulfilled_at)`
	if _, err := r.db.NamedExecContext(ctx, query, need); err != nil {
		return fmt.Errorf("create need: %w", err)
	}
	return nil
}

// Update modifies an existing need.
func (r *NeedRepository) Update(ctx context.Context, need *models.Need) error {
	need.UpdatedAt = time.Now().UTC()
	const query = `UPDATE needs SET title = :title, description = :description, category = :category, priority = :priority,
        quantity = :quantity, status = :status, image_url = :image_url, updated_at = :updated_at, fulfilled_at = :fulfilled_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, need); err != nil {
		return fmt.Errorf("update need: %w", err)
	}
	return nil
}

// UpdateStatus sets the status for one need, maintaining fulfilled_at.
func (r *NeedRepository) UpdateStatus(ctx context.Context, id string, status models.NeedStatus, fulfilledAt *time.Time) error {
	const query = `UPDATE needs SET status = $2, fulfilled_at = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, fulfilledAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("update need status: %w", err)
	}
	return nil
}

// BulkUpdateStatus applies a status to many needs at once and returns the
// number of rows changed.
func (r *NeedRepository) BulkUpdateStatus(ctx context.Context, ids []string, status models.NeedStatus, fulfilledAt *time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const query = `UPDATE needs SET status = $2, fulfilled_at = $3, updated_at = $4 WHERE id = ANY($1)`
	res, err := r.db.ExecContext(ctx, query, pq.Array(ids), status, fulfilledAt, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("bulk update need status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("bulk update rows affected: %w", err)
	}
	return affected, nil
}

// Delete removes a need permanently.
func (r *NeedRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM needs WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete need: %w", err)
	}
	return nil
}

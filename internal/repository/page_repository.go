package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/shams-connect/school-needs-api/internal/models"
)

// PageRepository manages persistence for custom content pages.
type PageRepository struct {
	db *sqlx.DB
}

// NewPageRepository constructs a PageRepository.
func NewPageRepository(db *sqlx.DB) *PageRepository {
	return &PageRepository{db: db}
}

const pageColumns = `p.id, p.slug, p.title_en, p.title_ar, p.body_en, p.body_ar, p.published, p.created_by, p.created_at, p.updated_at`

// List returns all pages, optionally restricted to published ones.
func (r *PageRepository) List(ctx context.Context, publishedOnly bool) ([]models.Page, error) {
	query := fmt.Sprintf("SELECT %s FROM pages p", pageColumns)
	if publishedOnly {
		query += " WHERE p.published = true"
	}
	query += " ORDER BY p.slug ASC"

	var pages []models.Page
	if err := r.db.SelectContext(ctx, &pages, query); err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return pages, nil
}

// FindBySlug fetches a page by its slug.
func (r *PageRepository) FindBySlug(ctx context.Context, slug string) (*models.Page, error) {
	query := fmt.Sprintf("SELECT %s FROM pages p WHERE p.slug = $1", pageColumns)
	var page models.Page
	if err := r.db.GetContext(ctx, &page, query, slug); err != nil {
		return nil, err
	}
	return &page, nil
}

// Create inserts a new page.
func (r *PageRepository) Create(ctx context.Context, page *models.Page) error {
	if page.ID == "" {
		page.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if page.CreatedAt.IsZero() {
		page.CreatedAt = now
	}
	page.UpdatedAt = now
	const query = `INSERT INTO pages (id, slug, title_en, title_ar, body_en, body_ar, published, created_by, created_at, updated_at)
        VALUES (:id, :slug, :title_en, :title_ar, :body_en, :body_ar, :published, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, page); err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	return nil
}

// Update modifies an existing page.
func (r *PageRepository) Update(ctx context.Context, page *models.Page) error {
	page.UpdatedAt = time.Now().UTC()
	const query = `UPDATE pages SET slug = :slug, title_en = :title_en, title_ar = :title_ar, body_en = :body_en,
        body_ar = :body_ar, published = :published, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, page); err != nil {
		return fmt.Errorf("update page: %w", err)
	}
	return nil
}

// Delete removes a page permanently.
func (r *PageRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM pages WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	return nil
}

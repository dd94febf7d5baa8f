package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/shams-connect/school-needs-api/internal/models"
	appErrors "github.com/shams-connect/school-needs-api/pkg/errors"
)

type pageRepository interface {
	List(ctx context.Context, publishedOnly bool) ([]models.Page, error)
	FindBySlug(ctx context.Context, slug string) (*models.Page, error)
	Create(ctx context.Context, page *models.Page) error
	Update(ctx context.Context, page *models.Page) error
	Delete(ctx context.Context, id string) error
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// PageRequest is the payload for creating or updating a content page.
// Pages carry bilingual content; both languages are required.
type PageRequest struct {
	Slug      string `json:"slug" validate:"required"`
	TitleEN   string `json:"title_en" validate:"required"`
	TitleAR   string `json:"title_ar" validate:"required"`
	BodyEN    string `json:"body_en" validate:"required"`
	BodyAR    string `json:"body_ar" validate:"required"`
	Published bool   `json:"published"`
}

// PageService manages custom content pages addressed by slug.
type PageService struct {
	repo      pageRepository
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPageService constructs a PageService instance.
func NewPageService(repo pageRepository, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *PageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PageService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns pages. Unauthenticated callers only see published ones.
func (s *PageService) List(ctx context.Context, includeUnpublished bool) ([]models.Page, error) {
	pages, err := s.repo.List(ctx, !includeUnpublished)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pages")
	}
	return pages, nil
}

// GetBySlug returns one page. Unpublished pages are only visible to
// admins; everyone else gets the page-not-found error.
func (s *PageService) GetBySlug(ctx context.Context, slug string, viewer *models.JWTClaims) (*models.Page, error) {
	page, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPageNotFound, "no page at this address")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load page")
	}

	if !page.Published && (viewer == nil || viewer.Role != models.RoleAdmin) {
		return nil, appErrors.Clone(appErrors.ErrPageNotFound, "no page at this address")
	}
	return page, nil
}

// Create stores a new page under a unique slug.
func (s *PageService) Create(ctx context.Context, actor *models.JWTClaims, req PageRequest) (*models.Page, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid page payload")
	}
	if !slugPattern.MatchString(req.Slug) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slug must be lowercase words separated by hyphens")
	}

	if _, err := s.repo.FindBySlug(ctx, req.Slug); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a page with this slug already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check slug")
	}

	page := &models.Page{
		Slug:      req.Slug,
		TitleEN:   req.TitleEN,
		TitleAR:   req.TitleAR,
		BodyEN:    req.BodyEN,
		BodyAR:    req.BodyAR,
		Published: req.Published,
		CreatedBy: actor.UserID,
	}
	if err := s.repo.Create(ctx, page); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create page")
	}

	s.writeAudit(ctx, actor.UserID, page.ID, nil, page)
	return page, nil
}

// Update replaces the content of an existing page. The slug in the path
// addresses the page; the payload slug renames it.
func (s *PageService) Update(ctx context.Context, slug string, actor *models.JWTClaims, req PageRequest) (*models.Page, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid page payload")
	}
	if !slugPattern.MatchString(req.Slug) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slug must be lowercase words separated by hyphens")
	}

	page, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPageNotFound, "no page at this address")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load page")
	}

	if req.Slug != slug {
		if _, err := s.repo.FindBySlug(ctx, req.Slug); err == nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a page with this slug already exists")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check slug")
		}
	}

	before := *page
	page.Slug = req.Slug
	page.TitleEN = req.TitleEN
	page.TitleAR = req.TitleAR
	page.BodyEN = req.BodyEN
	page.BodyAR = req.BodyAR
	page.Published = req.Published

	if err := s.repo.Update(ctx, page); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update page")
	}

	s.writeAudit(ctx, actor.UserID, page.ID, &before, page)
	return page, nil
}

// Delete removes a page.
func (s *PageService) Delete(ctx context.Context, slug string, actor *models.JWTClaims) error {
	page, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrPageNotFound, "no page at this address")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load page")
	}

	if err := s.repo.Delete(ctx, page.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete page")
	}

	s.writeAudit(ctx, actor.UserID, page.ID, page, nil)
	return nil
}

func (s *PageService) writeAudit(ctx context.Context, actorID, pageID string, before, after interface{}) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionPageChange,
		Resource:   "page",
		ResourceID: &pageID,
	}
	if before != nil {
		log.OldValues, _ = json.Marshal(before)
	}
	if after != nil {
		log.NewValues, _ = json.Marshal(after)
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to write page audit log", zap.Error(err))
	}
}

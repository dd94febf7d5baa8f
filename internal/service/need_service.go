package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/shams-connect/school-needs-api/internal/models"
	appErrors "github.com/shams-connect/school-needs-api/pkg/errors"
)

type needRepository interface {
	List(ctx context.Context, filter models.NeedFilter) ([]models.NeedDetail, int, error)
	ListAll(ctx context.Context, schoolID string) ([]models.NeedDetail, error)
	FindByID(ctx context.Context, id string) (*models.NeedDetail, error)
	Create(ctx context.Context, need *models.Need) error
	Update(ctx context.Context, need *models.Need) error
	UpdateStatus(ctx context.Context, id string, status models.NeedStatus, fulfilledAt *time.Time) error
	BulkUpdateStatus(ctx context.Context, ids []string, status models.NeedStatus, fulfilledAt *time.Time) (int64, error)
	Delete(ctx context.Context, id string) error
}

type needSchoolFinder interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
	FindByPrincipal(ctx context.Context, principalID string) (*models.School, error)
}

type adminLister interface {
	ListAdminIDs(ctx context.Context) ([]string, error)
}

// CreateNeedRequest is the payload for publishing a need.
type CreateNeedRequest struct {
	SchoolID    string  `json:"school_id"`
	Title       string  `json:"title" validate:"required,min=3"`
	Description *string `json:"description,omitempty"`
	Category    string  `json:"category" validate:"required"`
	Priority    string  `json:"priority" validate:"required"`
	Quantity    int     `json:"quantity" validate:"required,gt=0"`
	ImageURL    *string `json:"image_url,omitempty"`
}

// UpdateNeedRequest is the payload for editing a need. Nil fields are
// left unchanged.
type UpdateNeedRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=3"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	Quantity    *int    `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	ImageURL    *string `json:"image_url,omitempty"`
}

// SetNeedStatusRequest moves a need to a new status.
type SetNeedStatusRequest struct {
	Status models.NeedStatus `json:"status" validate:"required"`
}

// BulkNeedStatusRequest moves several needs to a new status at once.
type BulkNeedStatusRequest struct {
	IDs    []string          `json:"ids" validate:"required,min=1"`
	Status models.NeedStatus `json:"status" validate:"required"`
}

// NeedService provides need publishing, listing and fulfilment tracking.
type NeedService struct {
	repo      needRepository
	schools   needSchoolFinder
	admins    adminLister
	audit     auditWriter
	notifier  notifier
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNeedService constructs a NeedService instance.
func NewNeedService(repo needRepository, schools needSchoolFinder, admins adminLister, audit auditWriter, notifier notifier, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *NeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &NeedService{
		repo:      repo,
		schools:   schools,
		admins:    admins,
		audit:     audit,
		notifier:  notifier,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// List returns a filtered, sorted page of needs.
func (s *NeedService) List(ctx context.Context, filter models.NeedFilter) ([]models.NeedDetail, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	if filter.Category != "" && filter.Category != "all" && !models.ValidNeedCategory(models.NeedCategory(filter.Category)) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown category")
	}
	if filter.Governorate != "" && filter.Governorate != "all" && !models.ValidGovernorate(filter.Governorate) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown governorate")
	}
	// Needs belong to listings only while their school stays approved; a
	// school moderated back to rejected takes its needs off the public feed.
	filter.SchoolStatus = models.SchoolStatusApproved

	needs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list needs")
	}
	return needs, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a single need with its school context.
func (s *NeedService) Get(ctx context.Context, id string) (*models.NeedDetail, error) {
	need, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "need not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load need")
	}
	return need, nil
}

// Create publishes a new need. Principals publish for their own approved
// school; admins may publish on behalf of any approved school.
func (s *NeedService) Create(ctx context.Context, actor *models.JWTClaims, req CreateNeedRequest) (*models.Need, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid need payload")
	}
	if !models.ValidNeedCategory(models.NeedCategory(req.Category)) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown category")
	}
	if !models.ValidNeedPriority(models.NeedPriority(req.Priority)) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown priority")
	}

	school, err := s.resolveSchool(ctx, actor, req.SchoolID)
	if err != nil {
		return nil, err
	}
	if school.Status != models.SchoolStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrSchoolNotApproved, "needs can only be published for approved schools")
	}

	need := &models.Need{
		SchoolID:    school.ID,
		Title:       req.Title,
		Description: req.Description,
		Category:    models.NeedCategory(req.Category),
		Priority:    models.NeedPriority(req.Priority),
		Quantity:    req.Quantity,
		Status:      models.NeedStatusPending,
		ImageURL:    req.ImageURL,
	}
	if err := s.repo.Create(ctx, need); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create need")
	}

	s.writeAudit(ctx, actor.UserID, models.AuditActionNeedCreate, need.ID, nil, need)
	s.invalidate(ctx)
	s.notifyAdmins(ctx, need, school)
	return need, nil
}

// Update applies a partial edit to a need. Only the owning principal or
// an admin may edit.
func (s *NeedService) Update(ctx context.Context, id string, actor *models.JWTClaims, req UpdateNeedRequest) (*models.Need, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid need payload")
	}

	detail, _, err := s.loadForWrite(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	need := detail.Need
	before := need
	if req.Title != nil {
		need.Title = *req.Title
	}
	if req.Description != nil {
		need.Description = req.Description
	}
	if req.Category != nil {
		if !models.ValidNeedCategory(models.NeedCategory(*req.Category)) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown category")
		}
		need.Category = models.NeedCategory(*req.Category)
	}
	if req.Priority != nil {
		if !models.ValidNeedPriority(models.NeedPriority(*req.Priority)) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown priority")
		}
		need.Priority = models.NeedPriority(*req.Priority)
	}
	if req.Quantity != nil {
		need.Quantity = *req.Quantity
	}
	if req.ImageURL != nil {
		need.ImageURL = req.ImageURL
	}

	if err := s.repo.Update(ctx, &need); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update need")
	}

	s.writeAudit(ctx, actor.UserID, models.AuditActionNeedUpdate, need.ID, &before, &need)
	s.invalidate(ctx)
	return &need, nil
}

// SetStatus moves a need to the requested status. Any transition is
// accepted, including moving a fulfilled need back. fulfilled_at is set
// on entering fulfilled and cleared on leaving it.
func (s *NeedService) SetStatus(ctx context.Context, id string, actor *models.JWTClaims, req SetNeedStatusRequest) (*models.Need, error) {
	if !models.ValidNeedStatus(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status")
	}

	detail, school, err := s.loadForWrite(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	need := detail.Need
	before := need
	fulfilledAt := fulfilledAtFor(req.Status)
	if err := s.repo.UpdateStatus(ctx, id, req.Status, fulfilledAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update need status")
	}
	need.Status = req.Status
	need.FulfilledAt = fulfilledAt

	s.writeAudit(ctx, actor.UserID, models.AuditActionNeedStatus, need.ID, &before, &need)
	s.invalidate(ctx)

	if actor.UserID != school.PrincipalID {
		s.notifyStatus(ctx, &need, school)
	}
	return &need, nil
}

// BulkSetStatus moves several needs at once. Admin only; the handler
// gates the role, the service applies the same fulfilled_at rule to the
// whole batch. Returns the number of needs updated.
func (s *NeedService) BulkSetStatus(ctx context.Context, actor *models.JWTClaims, req BulkNeedStatusRequest) (int64, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk status payload")
	}
	if !models.ValidNeedStatus(req.Status) {
		return 0, appErrors.Clone(appErrors.ErrValidation, "unknown status")
	}

	affected, err := s.repo.BulkUpdateStatus(ctx, req.IDs, req.Status, fulfilledAtFor(req.Status))
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bulk update needs")
	}

	payload, _ := json.Marshal(map[string]interface{}{"ids": req.IDs, "status": req.Status})
	if s.audit != nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:    &actor.UserID,
			Action:    models.AuditActionNeedStatus,
			Resource:  "need",
			NewValues: payload,
		}); err != nil {
			s.logger.Warn("failed to write bulk status audit log", zap.Error(err))
		}
	}
	s.invalidate(ctx)
	return affected, nil
}

// Delete removes a need permanently.
func (s *NeedService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	detail, _, err := s.loadForWrite(ctx, id, actor)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete need")
	}

	s.writeAudit(ctx, actor.UserID, models.AuditActionNeedDelete, id, &detail.Need, nil)
	s.invalidate(ctx)
	return nil
}

// resolveSchool determines the target school for a create. Principals
// always target their own school; the request field only matters for
// admins.
func (s *NeedService) resolveSchool(ctx context.Context, actor *models.JWTClaims, schoolID string) (*models.School, error) {
	if actor.Role == models.RolePrincipal {
		school, err := s.schools.FindByPrincipal(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "no school registered for this account")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
		}
		return school, nil
	}

	if schoolID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "school_id is required")
	}
	school, err := s.schools.FindByID(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	return school, nil
}

func (s *NeedService) loadForWrite(ctx context.Context, id string, actor *models.JWTClaims) (*models.NeedDetail, *models.School, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "need not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load need")
	}

	school, err := s.schools.FindByID(ctx, detail.SchoolID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	if !canManageSchool(actor, school) {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to modify this need")
	}
	return detail, school, nil
}

func (s *NeedService) writeAudit(ctx context.Context, actorID, action, resourceID string, before, after interface{}) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "need",
		ResourceID: &resourceID,
	}
	if before != nil {
		log.OldValues, _ = json.Marshal(before)
	}
	if after != nil {
		log.NewValues, _ = json.Marshal(after)
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to write audit log", zap.Error(err), zap.String("action", action))
	}
}

func (s *NeedService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "dash:*"); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

func (s *NeedService) notifyAdmins(ctx context.Context, need *models.Need, school *models.School) {
	if s.notifier == nil || s.admins == nil {
		return
	}
	adminIDs, err := s.admins.ListAdminIDs(ctx)
	if err != nil {
		s.logger.Warn("failed to list admins for notification", zap.Error(err))
		return
	}
	for _, adminID := range adminIDs {
		if err := s.notifier.Notify(ctx, &models.Notification{
			UserID:     adminID,
			Type:       models.NotificationTypeNeedCreated,
			Title:      "New need published",
			Body:       fmt.Sprintf("%s published %q (%s, %s priority).", school.Name, need.Title, need.Category, need.Priority),
			ResourceID: &need.ID,
		}); err != nil {
			s.logger.Warn("failed to notify admin", zap.Error(err), zap.String("admin_id", adminID))
		}
	}
}

func (s *NeedService) notifyStatus(ctx context.Context, need *models.Need, school *models.School) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, &models.Notification{
		UserID:     school.PrincipalID,
		Type:       models.NotificationTypeNeedStatus,
		Title:      "Need status updated",
		Body:       fmt.Sprintf("%q is now %s.", need.Title, need.Status),
		ResourceID: &need.ID,
	}); err != nil {
		s.logger.Warn("failed to notify principal about status change", zap.Error(err), zap.String("need_id", need.ID))
	}
}

// fulfilledAtFor returns the fulfilled_at value matching the target
// status: now when entering fulfilled, nil otherwise.
func fulfilledAtFor(status models.NeedStatus) *time.Time {
	if status != models.NeedStatusFulfilled {
		return nil
	}
	now := time.Now().UTC()
	return &now
}

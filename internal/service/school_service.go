package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/shams-connect/school-needs-api/internal/models"
	appErrors "github.com/shams-connect/school-needs-api/pkg/errors"
)

type schoolRepository interface {
	List(ctx context.Context, filter models.SchoolFilter) ([]models.School, int, error)
	ListAll(ctx context.Context) ([]models.School, error)
	FindByID(ctx context.Context, id string) (*models.School, error)
	FindByPrincipal(ctx context.Context, principalID string) (*models.School, error)
	Create(ctx context.Context, school *models.School) error
	Update(ctx context.Context, school *models.School) error
	UpdateStatus(ctx context.Context, id string, status models.SchoolStatus) error
	Delete(ctx context.Context, id string) error
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type notifier interface {
	Notify(ctx context.Context, notification *models.Notification) error
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// RegisterSchoolRequest is the payload for registering a school.
type RegisterSchoolRequest struct {
	Name           string  `json:"name" validate:"required,min=3"`
	Address        string  `json:"address" validate:"required"`
	Governorate    string  `json:"governorate" validate:"required"`
	EducationLevel string  `json:"education_level" validate:"required"`
	StudentCount   int     `json:"student_count" validate:"gte=0"`
	Phone          *string `json:"phone,omitempty"`
	Email          *string `json:"email,omitempty" validate:"omitempty,email"`
	Description    *string `json:"description,omitempty"`
}

// UpdateSchoolRequest is the payload for updating school details. Nil
// fields are left unchanged.
type UpdateSchoolRequest struct {
	Name           *string `json:"name,omitempty" validate:"omitempty,min=3"`
	Address        *string `json:"address,omitempty"`
	Governorate    *string `json:"governorate,omitempty"`
	EducationLevel *string `json:"education_level,omitempty"`
	StudentCount   *int    `json:"student_count,omitempty" validate:"omitempty,gte=0"`
	Phone          *string `json:"phone,omitempty"`
	Email          *string `json:"email,omitempty" validate:"omitempty,email"`
	Description    *string `json:"description,omitempty"`
	ImageURL       *string `json:"image_url,omitempty"`
}

// ModerateSchoolRequest approves or rejects a pending registration.
type ModerateSchoolRequest struct {
	Status models.SchoolStatus `json:"status" validate:"required"`
	Reason string              `json:"reason,omitempty"`
}

// SchoolService provides school registration, listing and moderation.
type SchoolService struct {
	repo      schoolRepository
	audit     auditWriter
	notifier  notifier
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSchoolService constructs a SchoolService instance.
func NewSchoolService(repo schoolRepository, audit auditWriter, notifier notifier, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *SchoolService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SchoolService{repo: repo, audit: audit, notifier: notifier, cache: cache, validator: validate, logger: logger}
}

// ListPublic lists approved schools for unauthenticated callers. The
// status filter is forced to approved regardless of what was requested.
func (s *SchoolService) ListPublic(ctx context.Context, filter models.SchoolFilter) ([]models.School, *models.Pagination, error) {
	approved := models.SchoolStatusApproved
	filter.Status = &approved
	filter.PrincipalID = ""
	return s.list(ctx, filter)
}

// List lists schools for admins with the full filter surface.
func (s *SchoolService) List(ctx context.Context, filter models.SchoolFilter) ([]models.School, *models.Pagination, error) {
	return s.list(ctx, filter)
}

func (s *SchoolService) list(ctx context.Context, filter models.SchoolFilter) ([]models.School, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	if filter.Governorate != "" && !models.ValidGovernorate(filter.Governorate) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown governorate")
	}

	schools, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schools")
	}
	return schools, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one school. Unauthenticated and donor-facing callers only
// see approved schools; the owning principal and admins see any status.
func (s *SchoolService) Get(ctx context.Context, id string, viewer *models.JWTClaims) (*models.School, error) {
	school, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}

	if school.Status != models.SchoolStatusApproved && !canManageSchool(viewer, school) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
	}
	return school, nil
}

// GetOwn returns the school registered by the given principal.
func (s *SchoolService) GetOwn(ctx context.Context, principalID string) (*models.School, error) {
	school, err := s.repo.FindByPrincipal(ctx, principalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no school registered for this account")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	return school, nil
}

// Register creates a school in pending status for the principal. A
// principal may register at most one school.
func (s *SchoolService) Register(ctx context.Context, principalID string, req RegisterSchoolRequest) (*models.School, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid school payload")
	}
	if !models.ValidGovernorate(req.Governorate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown governorate")
	}
	if !validEducationLevel(models.EducationLevel(req.EducationLevel)) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown education level")
	}

	if _, err := s.repo.FindByPrincipal(ctx, principalID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a school is already registered for this account")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing school")
	}

	school := &models.School{
		PrincipalID:    principalID,
		Name:           req.Name,
		Address:        req.Address,
		Governorate:    req.Governorate,
		EducationLevel: models.EducationLevel(req.EducationLevel),
		StudentCount:   req.StudentCount,
		Phone:          req.Phone,
		Email:          req.Email,
		Description:    req.Description,
		Status:         models.SchoolStatusPending,
	}
	if err := s.repo.Create(ctx, school); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create school")
	}

	s.writeAudit(ctx, principalID, models.AuditActionSchoolCreate, school.ID, nil, school)
	s.invalidate(ctx)
	return school, nil
}

// Update applies a partial update. Only the owning principal or an
// admin may update a school.
func (s *SchoolService) Update(ctx context.Context, id string, actor *models.JWTClaims, req UpdateSchoolRequest) (*models.School, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid school payload")
	}

	school, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	if !canManageSchool(actor, school) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to modify this school")
	}

	before := *school
	if req.Name != nil {
		school.Name = *req.Name
	}
	if req.Address != nil {
		school.Address = *req.Address
	}
	if req.Governorate != nil {
		if !models.ValidGovernorate(*req.Governorate) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown governorate")
		}
		school.Governorate = *req.Governorate
	}
	if req.EducationLevel != nil {
		level := models.EducationLevel(*req.EducationLevel)
		if !validEducationLevel(level) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown education level")
		}
		school.EducationLevel = level
	}
	if req.StudentCount != nil {
		school.StudentCount = *req.StudentCount
	}
	if req.Phone != nil {
		school.Phone = req.Phone
	}
	if req.Email != nil {
		school.Email = req.Email
	}
	if req.Description != nil {
		school.Description = req.Description
	}
	if req.ImageURL != nil {
		school.ImageURL = req.ImageURL
	}

	if err := s.repo.Update(ctx, school); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update school")
	}

	s.writeAudit(ctx, actor.UserID, models.AuditActionSchoolUpdate, school.ID, &before, school)
	s.invalidate(ctx)
	return school, nil
}

// Moderate approves or rejects a school registration and notifies the
// owning principal.
func (s *SchoolService) Moderate(ctx context.Context, id string, actor *models.JWTClaims, req ModerateSchoolRequest) (*models.School, error) {
	if req.Status != models.SchoolStatusApproved && req.Status != models.SchoolStatusRejected {
		return nil, appErrors.Clone(appErrors.ErrValidation, "moderation status must be approved or rejected")
	}

	school, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}

	before := *school
	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update school status")
	}
	school.Status = req.Status

	s.writeAudit(ctx, actor.UserID, models.AuditActionSchoolModerate, school.ID, &before, school)
	s.invalidate(ctx)

	title := "School approved"
	body := fmt.Sprintf("Your school %q has been approved and is now visible to donors.", school.Name)
	if req.Status == models.SchoolStatusRejected {
		title = "School registration rejected"
		body = fmt.Sprintf("Your school %q was rejected.", school.Name)
		if req.Reason != "" {
			body = fmt.Sprintf("%s Reason: %s", body, req.Reason)
		}
	}
	if err := s.notifier.Notify(ctx, &models.Notification{
		UserID:     school.PrincipalID,
		Type:       models.NotificationTypeSchoolModerate,
		Title:      title,
		Body:       body,
		ResourceID: &school.ID,
	}); err != nil {
		s.logger.Warn("failed to notify principal about moderation", zap.Error(err), zap.String("school_id", school.ID))
	}

	return school, nil
}

// Delete removes a school and, through the schema cascade, its needs.
func (s *SchoolService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	school, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	if !canManageSchool(actor, school) {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to delete this school")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete school")
	}

	s.writeAudit(ctx, actor.UserID, models.AuditActionSchoolDelete, id, school, nil)
	s.invalidate(ctx)
	return nil
}

func (s *SchoolService) writeAudit(ctx context.Context, actorID, action, resourceID string, before, after interface{}) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "school",
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

func (s *SchoolService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "dash:*"); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

func canManageSchool(actor *models.JWTClaims, school *models.School) bool {
	if actor == nil {
		return false
	}
	if actor.Role == models.RoleAdmin {
		return true
	}
	return actor.Role == models.RolePrincipal && actor.UserID == school.PrincipalID
}

func validEducationLevel(level models.EducationLevel) bool {
	switch level {
	case models.EducationLevelPrimary, models.EducationLevelMiddle, models.EducationLevelHighSchool, models.EducationLevelMixed:
		return true
	}
	return false
}

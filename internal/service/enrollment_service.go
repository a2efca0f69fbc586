package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/farmhub/farmhub-api/internal/access"
	"github.com/farmhub/farmhub-api/internal/models"
	appErrors "github.com/farmhub/farmhub-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	ExistsForUserFarm(ctx context.Context, userID, farmID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Update(ctx context.Context, enrollment *models.Enrollment) error
	Deactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// CreateEnrollmentRequest holds payload for enrolling a farmer into a farm.
type CreateEnrollmentRequest struct {
	UserID string `json:"user_id" validate:"required"`
	FarmID string `json:"farm_id" validate:"required"`
}

// UpdateEnrollmentRequest holds payload for updating enrollment progress.
// The farmer and farm links are fixed after creation.
type UpdateEnrollmentRequest struct {
	IsActive           bool    `json:"is_active"`
	Progress           int     `json:"progress" validate:"min=0,max=100"`
	IsCompleted        bool    `json:"is_completed"`
	TotalYield         float64 `json:"total_yield" validate:"min=0"`
	IsCertificateReady bool    `json:"is_certificate_ready"`
}

// EnrollmentService handles farm enrollment use-cases.
type EnrollmentService struct {
	repo      enrollmentRepository
	farms     cowFarmReader
	users     farmUserReader
	policy    *access.Policy
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(repo enrollmentRepository, farms cowFarmReader, users farmUserReader, policy *access.Policy, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, farms: farms, users: users, policy: policy, validator: validate, logger: logger}
}

// List returns enrollments visible to the principal.
func (s *EnrollmentService) List(ctx context.Context, p access.Principal, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	scope, err := s.policy.ListScopeFor(ctx, p, access.ResourceEnrollment)
	if err != nil {
		return nil, nil, err
	}
	pagination := &models.Pagination{Page: normalizePage(filter.Page), PageSize: normalizeSize(filter.PageSize)}
	if scope.Empty {
		return []models.EnrollmentDetail{}, pagination, nil
	}
	filter.AgentID = scope.AgentID
	filter.UserID = scope.UserID

	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	pagination.TotalCount = total
	return enrollments, pagination, nil
}

// Get returns a single enrollment the principal may view.
func (s *EnrollmentService) Get(ctx context.Context, p access.Principal, id string) (*models.EnrollmentDetail, error) {
	enrollment, farm, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Allow(ctx, p, access.ResourceEnrollment, access.ActionView, access.Target{Farm: farm, OwnerID: enrollment.UserID}); err != nil {
		return nil, err
	}
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// Create enrolls a farmer into a farm. One enrollment per (farmer, farm)
// pair; re-enrolling the same pair is a conflict.
func (s *EnrollmentService) Create(ctx context.Context, p access.Principal, req CreateEnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	farm, err := s.farms.FindByID(ctx, req.FarmID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "farm not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load farm")
	}
	if err := s.policy.Allow(ctx, p, access.ResourceEnrollment, access.ActionCreate, access.Target{Farm: farm}); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.Role != models.RoleFarmer {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only farmers can be enrolled")
	}

	exists, err := s.repo.ExistsForUserFarm(ctx, req.UserID, req.FarmID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "farmer is already enrolled in this farm")
	}

	enrollment := &models.Enrollment{
		UserID:   req.UserID,
		FarmID:   req.FarmID,
		IsActive: true,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	return enrollment, nil
}

// Update modifies enrollment progress fields.
func (s *EnrollmentService) Update(ctx context.Context, p access.Principal, id string, req UpdateEnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	enrollment, farm, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Allow(ctx, p, access.ResourceEnrollment, access.ActionUpdate, access.Target{Farm: farm, OwnerID: enrollment.UserID}); err != nil {
		return nil, err
	}

	enrollment.IsActive = req.IsActive
	enrollment.Progress = req.Progress
	enrollment.IsCompleted = req.IsCompleted
	enrollment.TotalYield = req.TotalYield
	enrollment.IsCertificateReady = req.IsCertificateReady
	if err := s.repo.Update(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment")
	}
	return enrollment, nil
}

// Delete removes an enrollment. Admins remove the row outright; agents
// deactivate it so the history survives.
func (s *EnrollmentService) Delete(ctx context.Context, p access.Principal, id string) error {
	enrollment, farm, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.policy.Allow(ctx, p, access.ResourceEnrollment, access.ActionDelete, access.Target{Farm: farm, OwnerID: enrollment.UserID}); err != nil {
		return err
	}

	if p.IsAdmin() {
		if err := s.repo.Delete(ctx, id); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
		}
		return nil
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate enrollment")
	}
	return nil
}

func (s *EnrollmentService) load(ctx context.Context, id string) (*models.Enrollment, *models.Farm, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	farm, err := s.farms.FindByID(ctx, enrollment.FarmID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "farm not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load farm")
	}
	return enrollment, farm, nil
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/farmhub/farmhub-api/internal/access"
	"github.com/farmhub/farmhub-api/internal/models"
	appErrors "github.com/farmhub/farmhub-api/pkg/errors"
)

type activityRepository interface {
	List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Activity, error)
	FindDetailByID(ctx context.Context, id string) (*models.ActivityDetail, error)
	Create(ctx context.Context, activity *models.Activity) error
	Update(ctx context.Context, activity *models.Activity) error
	Delete(ctx context.Context, id string) error
}

// CreateActivityRequest holds payload for logging a cow activity.
type CreateActivityRequest struct {
	CowID        string    `json:"cow_id" validate:"required"`
	ActivityType string    `json:"activity_type" validate:"required"`
	Date         time.Time `json:"date" validate:"required"`
	Description  *string   `json:"description"`
	Category     *string   `json:"category"`
	// RecordedBy is honored for admin and agent callers only; farmers
	// always record as themselves.
	RecordedBy string `json:"recorded_by"`
}

// UpdateActivityRequest holds payload for correcting an activity. The cow
// and recorder links are fixed.
type UpdateActivityRequest struct {
	ActivityType string    `json:"activity_type" validate:"required"`
	Date         time.Time `json:"date" validate:"required"`
	Description  *string   `json:"description"`
	Category     *string   `json:"category"`
}

// ActivityService handles activity logging use-cases.
type ActivityService struct {
	repo      activityRepository
	cows      recordCowReader
	farms     cowFarmReader
	policy    *access.Policy
	validator *validator.Validate
	logger    *zap.Logger
}

// NewActivityService constructs the activity service.
func NewActivityService(repo activityRepository, cows recordCowReader, farms cowFarmReader, policy *access.Policy, validate *validator.Validate, logger *zap.Logger) *ActivityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{repo: repo, cows: cows, farms: farms, policy: policy, validator: validate, logger: logger}
}

// List returns activities visible to the principal.
func (s *ActivityService) List(ctx context.Context, p access.Principal, filter models.ActivityFilter) ([]models.ActivityDetail, *models.Pagination, error) {
	scope, err := s.policy.ListScopeFor(ctx, p, access.ResourceActivity)
	if err != nil {
		return nil, nil, err
	}
	pagination := &models.Pagination{Page: normalizePage(filter.Page), PageSize: normalizeSize(filter.PageSize)}
	if scope.Empty {
		return []models.ActivityDetail{}, pagination, nil
	}
	filter.AgentID = scope.AgentID
	filter.RecorderID = scope.RecorderID

	activities, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activities")
	}
	pagination.TotalCount = total
	return activities, pagination, nil
}

// Get returns a single activity the principal may view.
func (s *ActivityService) Get(ctx context.Context, p access.Principal, id string) (*models.ActivityDetail, error) {
	activity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	cow, err := s.loadCow(ctx, activity.CowID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Allow(ctx, p, access.ResourceActivity, access.ActionView, access.Target{Cow: cow, RecorderID: activity.RecordedBy}); err != nil {
		return nil, err
	}
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity detail")
	}
	return detail, nil
}

// Create logs a new activity against a cow.
func (s *ActivityService) Create(ctx context.Context, p access.Principal, req CreateActivityRequest) (*models.Activity, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity payload")
	}

	cow, err := s.cows.FindByID(ctx, req.CowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cow not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cow")
	}
	farm, err := s.farms.FindByID(ctx, cow.FarmID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "farm not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load farm")
	}
	if err := s.policy.Allow(ctx, p, access.ResourceActivity, access.ActionCreate, access.Target{Farm: farm, Cow: cow}); err != nil {
		return nil, err
	}

	recordedBy := p.ID
	if !p.IsFarmer() && req.RecordedBy != "" {
		recordedBy = req.RecordedBy
	}
	activity := &models.Activity{
		ActivityType: req.ActivityType,
		Description:  req.Description,
		Date:         req.Date,
		Category:     req.Category,
		CowID:        cow.ID,
		RecordedBy:   recordedBy,
	}
	if err := s.repo.Create(ctx, activity); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create activity")
	}
	return activity, nil
}

// Update corrects an activity the principal recorded (or any, for admin).
func (s *ActivityService) Update(ctx context.Context, p access.Principal, id string, req UpdateActivityRequest) (*models.Activity, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity payload")
	}
	activity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	cow, err := s.loadCow(ctx, activity.CowID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Allow(ctx, p, access.ResourceActivity, access.ActionUpdate, access.Target{Cow: cow, RecorderID: activity.RecordedBy}); err != nil {
		return nil, err
	}

	activity.ActivityType = req.ActivityType
	activity.Date = req.Date
	activity.Description = req.Description
	activity.Category = req.Category
	if err := s.repo.Update(ctx, activity); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update activity")
	}
	return activity, nil
}

// Delete removes an activity the principal may act on.
func (s *ActivityService) Delete(ctx context.Context, p access.Principal, id string) error {
	activity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	cow, err := s.loadCow(ctx, activity.CowID)
	if err != nil {
		return err
	}
	if err := s.policy.Allow(ctx, p, access.ResourceActivity, access.ActionDelete, access.Target{Cow: cow, RecorderID: activity.RecordedBy}); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete activity")
	}
	return nil
}

func (s *ActivityService) loadCow(ctx context.Context, id string) (*models.Cow, error) {
	cow, err := s.cows.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cow not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cow")
	}
	return cow, nil
}

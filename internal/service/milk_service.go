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
	"github.com/farmhub/farmhub-api/pkg/database"
	appErrors "github.com/farmhub/farmhub-api/pkg/errors"
)

type milkRepository interface {
	List(ctx context.Context, filter models.MilkFilter) ([]models.MilkProductionDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.MilkProduction, error)
	FindDetailByID(ctx context.Context, id string) (*models.MilkProductionDetail, error)
	ExistsForCowDate(ctx context.Context, cowID string, date time.Time, excludeID string) (bool, error)
	Create(ctx context.Context, record *models.MilkProduction) error
	Update(ctx context.Context, record *models.MilkProduction) error
	Delete(ctx context.Context, id string) error
}

type recordCowReader interface {
	FindByID(ctx context.Context, id string) (*models.Cow, error)
}

// CreateMilkRequest holds payload for logging a milk yield. RecordedBy lets
// admins and agents log on another user's behalf; farmers always record as
// themselves. A dry day is a legitimate zero-liter record.
type CreateMilkRequest struct {
	CowID      string    `json:"cow_id" validate:"required"`
	Date       time.Time `json:"date" validate:"required"`
	Quantity   float64   `json:"quantity" validate:"min=0"`
	RecordedBy string    `json:"recorded_by"`
}

// UpdateMilkRequest holds payload for correcting a milk record. The cow and
// recorder links are fixed.
type UpdateMilkRequest struct {
	Date     time.Time `json:"date" validate:"required"`
	Quantity float64   `json:"quantity" validate:"min=0"`
}

// MilkService handles milk production use-cases.
type MilkService struct {
	repo      milkRepository
	cows      recordCowReader
	farms     cowFarmReader
	policy    *access.Policy
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMilkService constructs the milk production service.
func NewMilkService(repo milkRepository, cows recordCowReader, farms cowFarmReader, policy *access.Policy, validate *validator.Validate, logger *zap.Logger) *MilkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MilkService{repo: repo, cows: cows, farms: farms, policy: policy, validator: validate, logger: logger}
}

// List returns milk records visible to the principal.
func (s *MilkService) List(ctx context.Context, p access.Principal, filter models.MilkFilter) ([]models.MilkProductionDetail, *models.Pagination, error) {
	scope, err := s.policy.ListScopeFor(ctx, p, access.ResourceMilk)
	if err != nil {
		return nil, nil, err
	}
	pagination := &models.Pagination{Page: normalizePage(filter.Page), PageSize: normalizeSize(filter.PageSize)}
	if scope.Empty {
		return []models.MilkProductionDetail{}, pagination, nil
	}
	filter.AgentID = scope.AgentID
	filter.RecorderID = scope.RecorderID

	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list milk records")
	}
	pagination.TotalCount = total
	return records, pagination, nil
}

// Get returns a single milk record the principal may view.
func (s *MilkService) Get(ctx context.Context, p access.Principal, id string) (*models.MilkProductionDetail, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "milk record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load milk record")
	}
	cow, err := s.loadCow(ctx, record.CowID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Allow(ctx, p, access.ResourceMilk, access.ActionView, access.Target{Cow: cow, RecorderID: record.RecordedBy}); err != nil {
		return nil, err
	}
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load milk record detail")
	}
	return detail, nil
}

// Create logs a milk yield against a cow. One record per cow per day.
func (s *MilkService) Create(ctx context.Context, p access.Principal, req CreateMilkRequest) (*models.MilkProduction, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid milk payload")
	}

	cow, err := s.cows.FindByID(ctx, req.CowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cow not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cow")
	}
	farm, err := s.loadFarm(ctx, cow.FarmID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Allow(ctx, p, access.ResourceMilk, access.ActionCreate, access.Target{Farm: farm, Cow: cow}); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsForCowDate(ctx, cow.ID, req.Date, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate milk record")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "milk record already exists for this cow and date")
	}

	recordedBy := p.ID
	if !p.IsFarmer() && req.RecordedBy != "" {
		recordedBy = req.RecordedBy
	}
	record := &models.MilkProduction{
		Date:       req.Date,
		Quantity:   req.Quantity,
		CowID:      cow.ID,
		RecordedBy: recordedBy,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "milk record already exists for this cow and date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create milk record")
	}
	return record, nil
}

// Update corrects the date or quantity of an existing milk record.
func (s *MilkService) Update(ctx context.Context, p access.Principal, id string, req UpdateMilkRequest) (*models.MilkProduction, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid milk payload")
	}
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "milk record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load milk record")
	}
	cow, err := s.loadCow(ctx, record.CowID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Allow(ctx, p, access.ResourceMilk, access.ActionUpdate, access.Target{Cow: cow, RecorderID: record.RecordedBy}); err != nil {
		return nil, err
	}

	if !req.Date.Equal(record.Date) {
		exists, err := s.repo.ExistsForCowDate(ctx, record.CowID, req.Date, record.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate milk record")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "milk record already exists for this cow and date")
		}
	}

	record.Date = req.Date
	record.Quantity = req.Quantity
	if err := s.repo.Update(ctx, record); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "milk record already exists for this cow and date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update milk record")
	}
	return record, nil
}

// Delete removes a milk record the principal may act on.
func (s *MilkService) Delete(ctx context.Context, p access.Principal, id string) error {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "milk record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load milk record")
	}
	cow, err := s.loadCow(ctx, record.CowID)
	if err != nil {
		return err
	}
	if err := s.policy.Allow(ctx, p, access.ResourceMilk, access.ActionDelete, access.Target{Cow: cow, RecorderID: record.RecordedBy}); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete milk record")
	}
	return nil
}

func (s *MilkService) loadCow(ctx context.Context, id string) (*models.Cow, error) {
	cow, err := s.cows.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cow not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cow")
	}
	return cow, nil
}

func (s *MilkService) loadFarm(ctx context.Context, id string) (*models.Farm, error) {
	farm, err := s.farms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "farm not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load farm")
	}
	return farm, nil
}

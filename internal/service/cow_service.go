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

type cowRepository interface {
	List(ctx context.Context, filter models.CowFilter) ([]models.CowDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Cow, error)
	FindDetailByID(ctx context.Context, id string) (*models.CowDetail, error)
	ExistsTag(ctx context.Context, tagNumber, excludeID string) (bool, error)
	Create(ctx context.Context, cow *models.Cow) error
	Update(ctx context.Context, cow *models.Cow) error
	Delete(ctx context.Context, id string) error
}

type cowFarmReader interface {
	FindByID(ctx context.Context, id string) (*models.Farm, error)
}

// CreateCowRequest holds payload for registering cows. FarmerID is required
// for admin and agent callers and ignored for farmers, who always register
// cows under their own name. The farm is never taken from the request: it
// comes from the owning farmer's active enrollment.
type CreateCowRequest struct {
	TagNumber    string    `json:"tag_number" validate:"required"`
	Breed        string    `json:"breed" validate:"required"`
	BirthDate    time.Time `json:"birth_date" validate:"required"`
	HealthStatus *string   `json:"health_status"`
	FarmerID     string    `json:"farmer_id"`
}

// UpdateCowRequest holds payload for updating cows. FarmID and FarmerID
// reassign the cow's links and are honored for admin callers only; agents
// and farmers cannot move a cow between farms or owners.
type UpdateCowRequest struct {
	TagNumber    string    `json:"tag_number" validate:"required"`
	Breed        string    `json:"breed" validate:"required"`
	BirthDate    time.Time `json:"birth_date" validate:"required"`
	HealthStatus *string   `json:"health_status"`
	IsActive     bool      `json:"is_active"`
	FarmID       string    `json:"farm_id"`
	FarmerID     string    `json:"farmer_id"`
}

// CowService handles cow use-cases.
type CowService struct {
	repo      cowRepository
	farms     cowFarmReader
	users     farmUserReader
	policy    *access.Policy
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCowService constructs the cow service.
func NewCowService(repo cowRepository, farms cowFarmReader, users farmUserReader, policy *access.Policy, validate *validator.Validate, logger *zap.Logger) *CowService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CowService{repo: repo, farms: farms, users: users, policy: policy, validator: validate, logger: logger}
}

// List returns the cows visible to the principal with pagination metadata.
func (s *CowService) List(ctx context.Context, p access.Principal, filter models.CowFilter) ([]models.CowDetail, *models.Pagination, error) {
	scope, err := s.policy.ListScopeFor(ctx, p, access.ResourceCow)
	if err != nil {
		return nil, nil, err
	}
	pagination := &models.Pagination{Page: normalizePage(filter.Page), PageSize: normalizeSize(filter.PageSize)}
	if scope.Empty {
		return []models.CowDetail{}, pagination, nil
	}
	filter.AgentID = scope.AgentID
	filter.FarmerID = scope.UserID

	cows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cows")
	}
	pagination.TotalCount = total
	return cows, pagination, nil
}

// Get returns a single cow the principal may view.
func (s *CowService) Get(ctx context.Context, p access.Principal, id string) (*models.CowDetail, error) {
	cow, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cow not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cow")
	}
	if err := s.policy.Allow(ctx, p, access.ResourceCow, access.ActionView, access.Target{Cow: cow}); err != nil {
		return nil, err
	}
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cow detail")
	}
	return detail, nil
}

// Create registers a new cow. A farmer without an active farm enrollment
// gets a validation error, not a permission denial: the request shape is
// what is wrong, not the caller's standing.
func (s *CowService) Create(ctx context.Context, p access.Principal, req CreateCowRequest) (*models.Cow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cow payload")
	}

	farmerID := req.FarmerID
	var farm *models.Farm
	if p.IsFarmer() {
		active, err := s.policy.Resolver().ActiveFarmOf(ctx, p.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve active farm")
		}
		if active == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "no active farm enrollment")
		}
		farm = active
		farmerID = p.ID
	} else {
		if farmerID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "farmer_id is required")
		}
		if err := s.ensureFarmer(ctx, farmerID); err != nil {
			return nil, err
		}
		active, err := s.policy.Resolver().ActiveFarmOf(ctx, farmerID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve active farm")
		}
		if active == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "target farmer has no active farm enrollment")
		}
		farm = active
	}

	if err := s.policy.Allow(ctx, p, access.ResourceCow, access.ActionCreate, access.Target{Farm: farm}); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsTag(ctx, req.TagNumber, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate tag number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "tag number already used")
	}

	cow := &models.Cow{
		TagNumber:    req.TagNumber,
		Breed:        req.Breed,
		BirthDate:    req.BirthDate,
		HealthStatus: req.HealthStatus,
		FarmID:       farm.ID,
		FarmerID:     farmerID,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, cow); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create cow")
	}
	return cow, nil
}

// Update modifies a cow the principal may act on.
func (s *CowService) Update(ctx context.Context, p access.Principal, id string, req UpdateCowRequest) (*models.Cow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cow payload")
	}
	cow, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cow not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cow")
	}
	if err := s.policy.Allow(ctx, p, access.ResourceCow, access.ActionUpdate, access.Target{Cow: cow}); err != nil {
		return nil, err
	}

	if req.TagNumber != cow.TagNumber {
		exists, err := s.repo.ExistsTag(ctx, req.TagNumber, cow.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate tag number")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "tag number already used")
		}
	}

	if p.IsAdmin() {
		if err := s.reassignLinks(ctx, cow, req); err != nil {
			return nil, err
		}
	}

	cow.TagNumber = req.TagNumber
	cow.Breed = req.Breed
	cow.BirthDate = req.BirthDate
	cow.HealthStatus = req.HealthStatus
	cow.IsActive = req.IsActive
	if err := s.repo.Update(ctx, cow); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update cow")
	}
	return cow, nil
}

// reassignLinks moves a cow to another farmer or farm. When the farmer
// changes and no farm is given, the cow follows the new farmer's active
// enrollment.
func (s *CowService) reassignLinks(ctx context.Context, cow *models.Cow, req UpdateCowRequest) error {
	if req.FarmerID != "" && req.FarmerID != cow.FarmerID {
		if err := s.ensureFarmer(ctx, req.FarmerID); err != nil {
			return err
		}
		cow.FarmerID = req.FarmerID
		if req.FarmID == "" {
			active, err := s.policy.Resolver().ActiveFarmOf(ctx, req.FarmerID)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve active farm")
			}
			if active == nil {
				return appErrors.Clone(appErrors.ErrValidation, "new farmer has no active farm enrollment")
			}
			cow.FarmID = active.ID
			return nil
		}
	}
	if req.FarmID != "" && req.FarmID != cow.FarmID {
		if _, err := s.farms.FindByID(ctx, req.FarmID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrValidation, "farm not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load farm")
		}
		cow.FarmID = req.FarmID
	}
	return nil
}

// Delete removes a cow the principal may act on.
func (s *CowService) Delete(ctx context.Context, p access.Principal, id string) error {
	cow, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "cow not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cow")
	}
	if err := s.policy.Allow(ctx, p, access.ResourceCow, access.ActionDelete, access.Target{Cow: cow}); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete cow")
	}
	return nil
}

func (s *CowService) ensureFarmer(ctx context.Context, id string) error {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "farmer not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load farmer")
	}
	if user.Role != models.RoleFarmer {
		return appErrors.Clone(appErrors.ErrValidation, "designated user is not a farmer")
	}
	return nil
}

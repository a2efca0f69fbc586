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

type farmRepository interface {
	List(ctx context.Context, filter models.FarmFilter) ([]models.FarmDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Farm, error)
	FindDetailByID(ctx context.Context, id string) (*models.FarmDetail, error)
	Create(ctx context.Context, farm *models.Farm) error
	Update(ctx context.Context, farm *models.Farm) error
	Delete(ctx context.Context, id string) error
}

type farmUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CreateFarmRequest holds payload for creating farms. AgentID is required
// for admin callers and ignored for agents, who always own what they create.
type CreateFarmRequest struct {
	Name     string   `json:"name" validate:"required"`
	Location string   `json:"location" validate:"required"`
	AgentID  string   `json:"agent_id"`
	FarmType *string  `json:"farm_type"`
	FarmSize *float64 `json:"farm_size"`
}

// UpdateFarmRequest holds payload for updating farms. AgentID reassignment
// is honoured for admin callers only.
type UpdateFarmRequest struct {
	Name     string   `json:"name" validate:"required"`
	Location string   `json:"location" validate:"required"`
	AgentID  string   `json:"agent_id"`
	FarmType *string  `json:"farm_type"`
	FarmSize *float64 `json:"farm_size"`
	IsActive bool     `json:"is_active"`
}

// FarmService handles farm use-cases.
type FarmService struct {
	repo      farmRepository
	users     farmUserReader
	policy    *access.Policy
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFarmService constructs the farm service.
func NewFarmService(repo farmRepository, users farmUserReader, policy *access.Policy, validate *validator.Validate, logger *zap.Logger) *FarmService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FarmService{repo: repo, users: users, policy: policy, validator: validate, logger: logger}
}

// List returns the farms visible to the principal with pagination metadata.
func (s *FarmService) List(ctx context.Context, p access.Principal, filter models.FarmFilter) ([]models.FarmDetail, *models.Pagination, error) {
	scope, err := s.policy.ListScopeFor(ctx, p, access.ResourceFarm)
	if err != nil {
		return nil, nil, err
	}
	pagination := &models.Pagination{Page: normalizePage(filter.Page), PageSize: normalizeSize(filter.PageSize)}
	if scope.Empty {
		return []models.FarmDetail{}, pagination, nil
	}
	filter.AgentID = scope.AgentID
	filter.FarmID = scope.FarmID

	farms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list farms")
	}
	pagination.TotalCount = total
	return farms, pagination, nil
}

// Get returns a single farm the principal may view.
func (s *FarmService) Get(ctx context.Context, p access.Principal, id string) (*models.FarmDetail, error) {
	farm, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "farm not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load farm")
	}
	if err := s.policy.Allow(ctx, p, access.ResourceFarm, access.ActionView, access.Target{Farm: farm}); err != nil {
		return nil, err
	}
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load farm detail")
	}
	return detail, nil
}

// Create registers a new farm. Agents become the owner of farms they
// create; admins must designate the owning agent.
func (s *FarmService) Create(ctx context.Context, p access.Principal, req CreateFarmRequest) (*models.Farm, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid farm payload")
	}
	if err := s.policy.Allow(ctx, p, access.ResourceFarm, access.ActionCreate, access.Target{}); err != nil {
		return nil, err
	}

	agentID := p.ID
	if p.IsAdmin() {
		if req.AgentID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "agent_id is required")
		}
		agentID = req.AgentID
	}
	if err := s.ensureAgent(ctx, agentID); err != nil {
		return nil, err
	}

	farm := &models.Farm{
		Name:     req.Name,
		Location: req.Location,
		AgentID:  agentID,
		FarmType: req.FarmType,
		FarmSize: req.FarmSize,
		IsActive: true,
	}
	if err := s.repo.Create(ctx, farm); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create farm")
	}
	return farm, nil
}

// Update modifies a farm the principal manages.
func (s *FarmService) Update(ctx context.Context, p access.Principal, id string, req UpdateFarmRequest) (*models.Farm, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid farm payload")
	}
	farm, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "farm not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load farm")
	}
	if err := s.policy.Allow(ctx, p, access.ResourceFarm, access.ActionUpdate, access.Target{Farm: farm}); err != nil {
		return nil, err
	}

	farm.Name = req.Name
	farm.Location = req.Location
	farm.FarmType = req.FarmType
	farm.FarmSize = req.FarmSize
	farm.IsActive = req.IsActive
	if p.IsAdmin() && req.AgentID != "" && req.AgentID != farm.AgentID {
		if err := s.ensureAgent(ctx, req.AgentID); err != nil {
			return nil, err
		}
		farm.AgentID = req.AgentID
	}

	if err := s.repo.Update(ctx, farm); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update farm")
	}
	return farm, nil
}

// Delete removes a farm the principal manages.
func (s *FarmService) Delete(ctx context.Context, p access.Principal, id string) error {
	farm, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "farm not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load farm")
	}
	if err := s.policy.Allow(ctx, p, access.ResourceFarm, access.ActionDelete, access.Target{Farm: farm}); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete farm")
	}
	return nil
}

// ensureAgent verifies the referenced user exists and holds the agent role.
func (s *FarmService) ensureAgent(ctx context.Context, id string) error {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "agent not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load agent")
	}
	if user.Role != models.RoleAgent {
		return appErrors.Clone(appErrors.ErrValidation, "designated user is not an agent")
	}
	return nil
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func normalizeSize(size int) int {
	if size <= 0 {
		return 20
	}
	return size
}

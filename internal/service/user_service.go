package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/farmhub/farmhub-api/internal/access"
	"github.com/farmhub/farmhub-api/internal/models"
	"github.com/farmhub/farmhub-api/pkg/database"
	appErrors "github.com/farmhub/farmhub-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	CreateFarmerWithEnrollment(ctx context.Context, user *models.User, enrollment *models.Enrollment) error
}

// CreateFarmerRequest holds payload for the composite farmer-onboarding
// operation: a new farmer account plus an active enrollment in the target
// farm, created atomically.
type CreateFarmerRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	MobileNo string `json:"mobile_no"`
	FarmID   string `json:"farm_id" validate:"required"`
}

// CreateAgentRequest holds payload for admin-driven agent provisioning.
type CreateAgentRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	MobileNo string `json:"mobile_no"`
}

// UserService handles user directory use-cases.
type UserService struct {
	repo      userRepository
	farms     cowFarmReader
	policy    *access.Policy
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs the user service.
func NewUserService(repo userRepository, farms cowFarmReader, policy *access.Policy, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, farms: farms, policy: policy, validator: validate, logger: logger}
}

// List returns the users visible to the principal: everyone for admins,
// the agent plus their enrolled farmers for agents, only themself for
// farmers.
func (s *UserService) List(ctx context.Context, p access.Principal, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	scope, err := s.policy.ListScopeFor(ctx, p, access.ResourceUser)
	if err != nil {
		return nil, nil, err
	}
	pagination := &models.Pagination{Page: normalizePage(filter.Page), PageSize: normalizeSize(filter.PageSize)}
	if scope.Empty {
		return []models.User{}, pagination, nil
	}
	filter.AgentID = scope.AgentID
	filter.UserID = scope.UserID

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	pagination.TotalCount = total
	return users, pagination, nil
}

// Get returns a single user the principal may view.
func (s *UserService) Get(ctx context.Context, p access.Principal, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if err := s.policy.Allow(ctx, p, access.ResourceUser, access.ActionView, access.Target{OwnerID: user.ID}); err != nil {
		return nil, err
	}
	return user, nil
}

// CreateFarmer onboards a farmer into a farm: the account and its active
// enrollment are persisted in one transaction, both or neither. Admins may
// target any farm, agents only farms they manage.
func (s *UserService) CreateFarmer(ctx context.Context, p access.Principal, req CreateFarmerRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid farmer payload")
	}

	farm, err := s.farms.FindByID(ctx, req.FarmID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "farm not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load farm")
	}
	// Farmer onboarding is an enrollment grant, so the enrollment rule
	// arbitrates: admins anywhere, agents in their own farms.
	if err := s.policy.Allow(ctx, p, access.ResourceEnrollment, access.ActionCreate, access.Target{Farm: farm}); err != nil {
		return nil, err
	}

	if err := s.ensureUsernameFree(ctx, req.Username); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         models.RoleFarmer,
		MobileNo:     req.MobileNo,
		Active:       true,
	}
	enrollment := &models.Enrollment{
		FarmID:     farm.ID,
		IsActive:   true,
		EnrolledAt: time.Now().UTC(),
	}
	if err := s.repo.CreateFarmerWithEnrollment(ctx, user, enrollment); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "username already taken")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create farmer")
	}
	return user, nil
}

// CreateAgent provisions an agent account. Admin only.
func (s *UserService) CreateAgent(ctx context.Context, p access.Principal, req CreateAgentRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid agent payload")
	}
	if !p.IsAdmin() {
		return nil, appErrors.ErrForbidden
	}

	if err := s.ensureUsernameFree(ctx, req.Username); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         models.RoleAgent,
		MobileNo:     req.MobileNo,
		Active:       true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "username already taken")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create agent")
	}
	return user, nil
}

func (s *UserService) ensureUsernameFree(ctx context.Context, username string) error {
	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return appErrors.Clone(appErrors.ErrConflict, "username already taken")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}
	return nil
}

package access

import (
	"context"
	"database/sql"
	"errors"

	"github.com/farmhub/farmhub-api/internal/models"
)

// Principal identifies the authenticated caller for policy decisions.
type Principal struct {
	ID   string
	Role models.UserRole
}

func (p Principal) IsAdmin() bool  { return p.Role == models.RoleAdmin }
func (p Principal) IsAgent() bool  { return p.Role == models.RoleAgent }
func (p Principal) IsFarmer() bool { return p.Role == models.RoleFarmer }

type farmReader interface {
	FindByID(ctx context.Context, id string) (*models.Farm, error)
	ListByAgent(ctx context.Context, agentID string) ([]models.Farm, error)
}

type enrollmentReader interface {
	FindLatestActiveByUser(ctx context.Context, userID string) (*models.Enrollment, error)
	ExistsActiveForUserInAgentFarms(ctx context.Context, userID, agentID string) (bool, error)
}

// Resolver answers ownership and management questions for the policy
// engine. Every method is a plain read against current store state,
// recomputed per request; nothing is cached.
type Resolver struct {
	farms       farmReader
	enrollments enrollmentReader
}

// NewResolver constructs a Resolver over the farm and enrollment stores.
func NewResolver(farms farmReader, enrollments enrollmentReader) *Resolver {
	return &Resolver{farms: farms, enrollments: enrollments}
}

// FarmsManagedBy returns the farms owned by the principal. Only agents
// manage farms; any other role yields an empty set.
func (r *Resolver) FarmsManagedBy(ctx context.Context, p Principal) ([]models.Farm, error) {
	if !p.IsAgent() {
		return nil, nil
	}
	return r.farms.ListByAgent(ctx, p.ID)
}

// ActiveFarmOf resolves a farmer's current farm: the farm of the active
// enrollment with the latest enrolled_at. Returns nil when the farmer has
// no active enrollment.
func (r *Resolver) ActiveFarmOf(ctx context.Context, farmerID string) (*models.Farm, error) {
	enrollment, err := r.enrollments.FindLatestActiveByUser(ctx, farmerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	farm, err := r.farms.FindByID(ctx, enrollment.FarmID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return farm, nil
}

// AgentOwnsFarm reports whether the farm is managed by the given agent.
func (r *Resolver) AgentOwnsFarm(agentID string, farm *models.Farm) bool {
	return farm != nil && farm.AgentID == agentID
}

// CowAccessOK reports whether the principal may act on the cow: admins
// always, agents when they own the cow's farm, farmers when the cow is
// theirs.
func (r *Resolver) CowAccessOK(ctx context.Context, p Principal, cow *models.Cow) (bool, error) {
	switch {
	case p.IsAdmin():
		return true, nil
	case p.IsAgent():
		farm, err := r.farms.FindByID(ctx, cow.FarmID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return false, nil
			}
			return false, err
		}
		return r.AgentOwnsFarm(p.ID, farm), nil
	case p.IsFarmer():
		return cow.FarmerID == p.ID, nil
	}
	return false, nil
}

// RecordAccessOK reports whether the principal may act on a milk or
// activity record attached to the cow. For farmers the check is keyed on
// the recorder, not on cow ownership: a farmer who owns the cow but did
// not record the entry is refused. This asymmetry with CowAccessOK is
// deliberate and mirrored in the tests.
func (r *Resolver) RecordAccessOK(ctx context.Context, p Principal, cow *models.Cow, recorderID string) (bool, error) {
	switch {
	case p.IsAdmin():
		return true, nil
	case p.IsAgent():
		farm, err := r.farms.FindByID(ctx, cow.FarmID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return false, nil
			}
			return false, err
		}
		return r.AgentOwnsFarm(p.ID, farm), nil
	case p.IsFarmer():
		return recorderID != "" && recorderID == p.ID, nil
	}
	return false, nil
}

// FarmerVisibleToAgent reports whether the user holds an active enrollment
// in any farm the agent manages.
func (r *Resolver) FarmerVisibleToAgent(ctx context.Context, agentID, userID string) (bool, error) {
	return r.enrollments.ExistsActiveForUserInAgentFarms(ctx, userID, agentID)
}

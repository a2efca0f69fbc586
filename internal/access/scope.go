package access

import (
	"context"

	"github.com/farmhub/farmhub-api/internal/models"
	appErrors "github.com/farmhub/farmhub-api/pkg/errors"
)

// ListScope narrows a list query to the rows a principal may see. Exactly
// one of the narrowing fields is set unless All is true; Empty means the
// scope resolves to no rows at all (e.g. a farmer with no active farm).
type ListScope struct {
	All bool
	// AgentID restricts rows to farms managed by this agent.
	AgentID string
	// UserID restricts rows to ones owned by this user.
	UserID string
	// RecorderID restricts records to ones logged by this user.
	RecorderID string
	// FarmID restricts rows to a single farm.
	FarmID string
	Empty  bool
}

// ListScopeFor computes the visibility scope for listing a resource, per
// the same rule matrix the mutation table implements.
func (p *Policy) ListScopeFor(ctx context.Context, pr Principal, res Resource) (ListScope, error) {
	if pr.IsAdmin() {
		return ListScope{All: true}, nil
	}

	switch res {
	case ResourceUser:
		if pr.IsAgent() {
			return ListScope{AgentID: pr.ID}, nil
		}
		return ListScope{UserID: pr.ID}, nil

	case ResourceFarm:
		if pr.IsAgent() {
			return ListScope{AgentID: pr.ID}, nil
		}
		farm, err := p.resolver.ActiveFarmOf(ctx, pr.ID)
		if err != nil {
			return ListScope{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve active farm")
		}
		if farm == nil {
			return ListScope{Empty: true}, nil
		}
		return ListScope{FarmID: farm.ID}, nil

	case ResourceCow:
		if pr.IsAgent() {
			return ListScope{AgentID: pr.ID}, nil
		}
		return ListScope{UserID: pr.ID}, nil

	case ResourceMilk, ResourceActivity:
		if pr.IsAgent() {
			return ListScope{AgentID: pr.ID}, nil
		}
		return ListScope{RecorderID: pr.ID}, nil

	case ResourceEnrollment:
		if pr.IsAgent() {
			return ListScope{AgentID: pr.ID}, nil
		}
		return ListScope{UserID: pr.ID}, nil
	}

	return ListScope{}, appErrors.ErrForbidden
}

// PrincipalFromClaims converts JWT claims to a policy principal.
func PrincipalFromClaims(claims *models.JWTClaims) Principal {
	if claims == nil {
		return Principal{}
	}
	return Principal{ID: claims.UserID, Role: claims.Role}
}

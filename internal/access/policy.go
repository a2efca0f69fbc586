package access

import (
	"context"

	"github.com/farmhub/farmhub-api/internal/models"
	appErrors "github.com/farmhub/farmhub-api/pkg/errors"
)

// Resource enumerates the protected resource types.
type Resource string

const (
	ResourceUser       Resource = "user"
	ResourceFarm       Resource = "farm"
	ResourceCow        Resource = "cow"
	ResourceMilk       Resource = "milk"
	ResourceActivity   Resource = "activity"
	ResourceEnrollment Resource = "enrollment"
)

// Action enumerates the operations the policy engine arbitrates.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Target carries the resource instance context a rule may need. Only the
// fields relevant to the (resource, action) pair are populated by callers.
type Target struct {
	Farm       *models.Farm
	Cow        *models.Cow
	RecorderID string
	// OwnerID is the row-owning user id (user rows, enrollment rows).
	OwnerID string
}

// Decision evaluates a single rule. A nil return grants access; any other
// outcome is the uniform permission-denied error so that a denial never
// leaks resource structure.
type Decision func(ctx context.Context, p Principal, t Target) error

type ruleKey struct {
	Resource Resource
	Action   Action
	Role     models.UserRole
}

// Policy is the access policy engine: an explicit rule table keyed by
// (resource, action, role). A missing entry denies. Role conditionals live
// here and nowhere else.
type Policy struct {
	resolver *Resolver
	rules    map[ruleKey]Decision
}

// NewPolicy builds the rule table over the given resolver.
func NewPolicy(resolver *Resolver) *Policy {
	p := &Policy{resolver: resolver, rules: make(map[ruleKey]Decision)}

	allow := func(context.Context, Principal, Target) error { return nil }

	ownsFarm := func(ctx context.Context, pr Principal, t Target) error {
		if resolver.AgentOwnsFarm(pr.ID, t.Farm) {
			return nil
		}
		return appErrors.ErrForbidden
	}
	ownsCow := func(ctx context.Context, pr Principal, t Target) error {
		ok, err := resolver.CowAccessOK(ctx, pr, t.Cow)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve cow ownership")
		}
		if !ok {
			return appErrors.ErrForbidden
		}
		return nil
	}
	ownsRecord := func(ctx context.Context, pr Principal, t Target) error {
		ok, err := resolver.RecordAccessOK(ctx, pr, t.Cow, t.RecorderID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve record ownership")
		}
		if !ok {
			return appErrors.ErrForbidden
		}
		return nil
	}
	isRecorder := func(ctx context.Context, pr Principal, t Target) error {
		if t.RecorderID != "" && t.RecorderID == pr.ID {
			return nil
		}
		return appErrors.ErrForbidden
	}
	isOwner := func(ctx context.Context, pr Principal, t Target) error {
		if t.OwnerID != "" && t.OwnerID == pr.ID {
			return nil
		}
		return appErrors.ErrForbidden
	}
	activeFarmMatches := func(ctx context.Context, pr Principal, t Target) error {
		farm, err := resolver.ActiveFarmOf(ctx, pr.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve active farm")
		}
		if farm != nil && t.Farm != nil && farm.ID == t.Farm.ID {
			return nil
		}
		return appErrors.ErrForbidden
	}
	enrolledWithAgent := func(ctx context.Context, pr Principal, t Target) error {
		if t.OwnerID == pr.ID {
			return nil
		}
		ok, err := resolver.FarmerVisibleToAgent(ctx, pr.ID, t.OwnerID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve enrollment visibility")
		}
		if !ok {
			return appErrors.ErrForbidden
		}
		return nil
	}

	admin, agent, farmer := models.RoleAdmin, models.RoleAgent, models.RoleFarmer

	add := func(res Resource, act Action, role models.UserRole, d Decision) {
		p.rules[ruleKey{res, act, role}] = d
	}

	// Users. Creation of farmers/agents is arbitrated separately by the
	// composite operations; here only row visibility.
	add(ResourceUser, ActionView, admin, allow)
	add(ResourceUser, ActionView, agent, enrolledWithAgent)
	add(ResourceUser, ActionView, farmer, isOwner)

	// Farms.
	add(ResourceFarm, ActionView, admin, allow)
	add(ResourceFarm, ActionView, agent, ownsFarm)
	add(ResourceFarm, ActionView, farmer, activeFarmMatches)
	add(ResourceFarm, ActionCreate, admin, allow)
	add(ResourceFarm, ActionCreate, agent, allow)
	add(ResourceFarm, ActionUpdate, admin, allow)
	add(ResourceFarm, ActionUpdate, agent, ownsFarm)
	add(ResourceFarm, ActionDelete, admin, allow)
	add(ResourceFarm, ActionDelete, agent, ownsFarm)

	// Cows. Creation targets a farm: farmers their own active farm (the
	// service resolves it before consulting the table), agents only farms
	// they manage.
	add(ResourceCow, ActionView, admin, allow)
	add(ResourceCow, ActionView, agent, ownsCow)
	add(ResourceCow, ActionView, farmer, ownsCow)
	add(ResourceCow, ActionCreate, admin, allow)
	add(ResourceCow, ActionCreate, agent, ownsFarm)
	add(ResourceCow, ActionCreate, farmer, allow)
	add(ResourceCow, ActionUpdate, admin, allow)
	add(ResourceCow, ActionUpdate, agent, ownsCow)
	add(ResourceCow, ActionUpdate, farmer, ownsCow)
	add(ResourceCow, ActionDelete, admin, allow)
	add(ResourceCow, ActionDelete, agent, ownsCow)
	add(ResourceCow, ActionDelete, farmer, ownsCow)

	// Milk and activity records share one rule set. Viewing is keyed on
	// the recorder for farmers; update/delete is recorder-or-admin only,
	// agents have no mutation entry at all.
	for _, res := range []Resource{ResourceMilk, ResourceActivity} {
		add(res, ActionView, admin, allow)
		add(res, ActionView, agent, ownsRecord)
		add(res, ActionView, farmer, ownsRecord)
		add(res, ActionCreate, admin, allow)
		add(res, ActionCreate, agent, ownsFarm)
		add(res, ActionCreate, farmer, ownsCow)
		add(res, ActionUpdate, admin, allow)
		add(res, ActionUpdate, farmer, isRecorder)
		add(res, ActionDelete, admin, allow)
		add(res, ActionDelete, farmer, isRecorder)
	}

	// Enrollments. Agent deletion is handled as soft-deactivation by the
	// service; the table only decides whether the caller may act at all.
	add(ResourceEnrollment, ActionView, admin, allow)
	add(ResourceEnrollment, ActionView, agent, ownsFarm)
	add(ResourceEnrollment, ActionView, farmer, isOwner)
	add(ResourceEnrollment, ActionCreate, admin, allow)
	add(ResourceEnrollment, ActionCreate, agent, ownsFarm)
	add(ResourceEnrollment, ActionUpdate, admin, allow)
	add(ResourceEnrollment, ActionUpdate, agent, ownsFarm)
	add(ResourceEnrollment, ActionDelete, admin, allow)
	add(ResourceEnrollment, ActionDelete, agent, ownsFarm)

	return p
}

// Resolver exposes the underlying ownership resolver.
func (p *Policy) Resolver() *Resolver {
	return p.resolver
}

// Allow evaluates the rule table for the principal. A missing entry is a
// denial; every refusal is the same generic permission-denied error.
func (p *Policy) Allow(ctx context.Context, pr Principal, res Resource, act Action, t Target) error {
	rule, ok := p.rules[ruleKey{res, act, pr.Role}]
	if !ok {
		return appErrors.ErrForbidden
	}
	return rule(ctx, pr, t)
}

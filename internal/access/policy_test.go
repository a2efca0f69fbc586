package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmhub/farmhub-api/internal/models"
	appErrors "github.com/farmhub/farmhub-api/pkg/errors"
)

func newTestPolicy() (*Policy, *fakeEnrollmentReader) {
	resolver, _, enrollments := newTestResolver()
	return NewPolicy(resolver), enrollments
}

func TestPolicyAdminAlwaysAllowed(t *testing.T) {
	policy, _ := newTestPolicy()
	admin := Principal{ID: "admin-1", Role: models.RoleAdmin}

	for _, res := range []Resource{ResourceFarm, ResourceCow, ResourceMilk, ResourceActivity, ResourceEnrollment} {
		for _, act := range []Action{ActionView, ActionCreate, ActionUpdate, ActionDelete} {
			assert.NoError(t, policy.Allow(context.Background(), admin, res, act, Target{}),
				"%s %s should be open to admins", res, act)
		}
	}
}

func TestPolicyMissingEntryDenies(t *testing.T) {
	policy, _ := newTestPolicy()
	agent := Principal{ID: "agent-1", Role: models.RoleAgent}
	ownFarm := &models.Farm{ID: "farm-1", AgentID: "agent-1"}
	ownCow := &models.Cow{ID: "cow-1", FarmID: "farm-1", FarmerID: "farmer-1"}

	// Agents may create records on their own farms but have no
	// update/delete entry at all, even when everything is theirs.
	target := Target{Farm: ownFarm, Cow: ownCow, RecorderID: "farmer-1"}
	require.NoError(t, policy.Allow(context.Background(), agent, ResourceMilk, ActionCreate, target))

	for _, act := range []Action{ActionUpdate, ActionDelete} {
		err := policy.Allow(context.Background(), agent, ResourceMilk, act, target)
		assert.ErrorIs(t, err, appErrors.ErrForbidden)
		err = policy.Allow(context.Background(), agent, ResourceActivity, act, target)
		assert.ErrorIs(t, err, appErrors.ErrForbidden)
	}
}

func TestPolicyDenialIsUniform(t *testing.T) {
	policy, _ := newTestPolicy()
	farmer := Principal{ID: "farmer-2", Role: models.RoleFarmer}
	cow := &models.Cow{ID: "cow-1", FarmID: "farm-1", FarmerID: "farmer-1"}

	missing := policy.Allow(context.Background(), farmer, ResourceUser, ActionDelete, Target{})
	failed := policy.Allow(context.Background(), farmer, ResourceCow, ActionUpdate, Target{Cow: cow})

	var m, f *appErrors.Error
	require.ErrorAs(t, missing, &m)
	require.ErrorAs(t, failed, &f)
	assert.Equal(t, m.Message, f.Message)
	assert.Equal(t, "permission denied", m.Message)
}

func TestPolicyAgentFarmOwnership(t *testing.T) {
	policy, _ := newTestPolicy()
	agent := Principal{ID: "agent-1", Role: models.RoleAgent}
	own := &models.Farm{ID: "farm-1", AgentID: "agent-1"}
	foreign := &models.Farm{ID: "farm-2", AgentID: "agent-2"}

	assert.NoError(t, policy.Allow(context.Background(), agent, ResourceFarm, ActionUpdate, Target{Farm: own}))
	assert.ErrorIs(t, policy.Allow(context.Background(), agent, ResourceFarm, ActionUpdate, Target{Farm: foreign}), appErrors.ErrForbidden)
	assert.ErrorIs(t, policy.Allow(context.Background(), agent, ResourceEnrollment, ActionCreate, Target{Farm: foreign}), appErrors.ErrForbidden)
}

func TestPolicyFarmerRecordMutation(t *testing.T) {
	policy, _ := newTestPolicy()
	cow := &models.Cow{ID: "cow-1", FarmID: "farm-1", FarmerID: "farmer-1"}

	// Recorder identity, not cow ownership, decides mutation rights.
	owner := Principal{ID: "farmer-1", Role: models.RoleFarmer}
	recorder := Principal{ID: "farmer-2", Role: models.RoleFarmer}
	target := Target{Cow: cow, RecorderID: "farmer-2"}

	assert.ErrorIs(t, policy.Allow(context.Background(), owner, ResourceMilk, ActionUpdate, target), appErrors.ErrForbidden)
	assert.NoError(t, policy.Allow(context.Background(), recorder, ResourceMilk, ActionUpdate, target))
	assert.NoError(t, policy.Allow(context.Background(), recorder, ResourceActivity, ActionDelete, target))
}

func TestPolicyUserVisibility(t *testing.T) {
	policy, enrollments := newTestPolicy()
	enrollments.activeInFarm["farmer-1:agent-1"] = true

	agent := Principal{ID: "agent-1", Role: models.RoleAgent}
	assert.NoError(t, policy.Allow(context.Background(), agent, ResourceUser, ActionView, Target{OwnerID: "farmer-1"}))
	assert.ErrorIs(t, policy.Allow(context.Background(), agent, ResourceUser, ActionView, Target{OwnerID: "farmer-9"}), appErrors.ErrForbidden)

	farmer := Principal{ID: "farmer-1", Role: models.RoleFarmer}
	assert.NoError(t, policy.Allow(context.Background(), farmer, ResourceUser, ActionView, Target{OwnerID: "farmer-1"}))
	assert.ErrorIs(t, policy.Allow(context.Background(), farmer, ResourceUser, ActionView, Target{OwnerID: "farmer-2"}), appErrors.ErrForbidden)
}

func TestListScopeFor(t *testing.T) {
	policy, _ := newTestPolicy()
	resolver := policy.Resolver()

	t.Run("admin sees everything", func(t *testing.T) {
		scope, err := policy.ListScopeFor(context.Background(), Principal{ID: "a", Role: models.RoleAdmin}, ResourceCow)
		require.NoError(t, err)
		assert.True(t, scope.All)
	})

	t.Run("agent is scoped to managed farms", func(t *testing.T) {
		scope, err := policy.ListScopeFor(context.Background(), Principal{ID: "agent-1", Role: models.RoleAgent}, ResourceMilk)
		require.NoError(t, err)
		assert.Equal(t, "agent-1", scope.AgentID)
	})

	t.Run("farmer records are scoped to the recorder", func(t *testing.T) {
		scope, err := policy.ListScopeFor(context.Background(), Principal{ID: "farmer-1", Role: models.RoleFarmer}, ResourceActivity)
		require.NoError(t, err)
		assert.Equal(t, "farmer-1", scope.RecorderID)
	})

	t.Run("farmer without active farm gets an empty farm scope", func(t *testing.T) {
		farm, err := resolver.ActiveFarmOf(context.Background(), "farmer-unenrolled")
		require.NoError(t, err)
		require.Nil(t, farm)

		scope, err := policy.ListScopeFor(context.Background(), Principal{ID: "farmer-unenrolled", Role: models.RoleFarmer}, ResourceFarm)
		require.NoError(t, err)
		assert.True(t, scope.Empty)
	})
}

func TestPrincipalFromClaims(t *testing.T) {
	p := PrincipalFromClaims(&models.JWTClaims{UserID: "u-1", Role: models.RoleAgent})
	assert.Equal(t, Principal{ID: "u-1", Role: models.RoleAgent}, p)
	assert.Equal(t, Principal{}, PrincipalFromClaims(nil))
}

package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/farmhub/farmhub-api/internal/models"
	appErrors "github.com/farmhub/farmhub-api/pkg/errors"
)

type mockFarmRepo struct {
	farms      map[string]models.Farm
	created    *models.Farm
	updated    *models.Farm
	deleted    []string
	lastFilter models.FarmFilter
	listCalled bool
}

func (m *mockFarmRepo) List(ctx context.Context, filter models.FarmFilter) ([]models.FarmDetail, int, error) {
	m.lastFilter = filter
	m.listCalled = true
	out := make([]models.FarmDetail, 0, len(m.farms))
	for _, farm := range m.farms {
		out = append(out, models.FarmDetail{Farm: farm})
	}
	return out, len(out), nil
}

func (m *mockFarmRepo) FindByID(ctx context.Context, id string) (*models.Farm, error) {
	if farm, ok := m.farms[id]; ok {
		return &farm, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockFarmRepo) FindDetailByID(ctx context.Context, id string) (*models.FarmDetail, error) {
	farm, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.FarmDetail{Farm: *farm}, nil
}

func (m *mockFarmRepo) Create(ctx context.Context, farm *models.Farm) error {
	farm.ID = "farm-new"
	m.created = farm
	return nil
}

func (m *mockFarmRepo) Update(ctx context.Context, farm *models.Farm) error {
	m.updated = farm
	return nil
}

func (m *mockFarmRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func newFarmFixture(world *testWorld) (*FarmService, *mockFarmRepo) {
	repo := &mockFarmRepo{farms: map[string]models.Farm{}}
	for id, farm := range world.farms.farms {
		repo.farms[id] = farm
	}
	svc := NewFarmService(repo, world.users, world.policy, validator.New(), zap.NewNop())
	return svc, repo
}

func TestFarmServiceCreate(t *testing.T) {
	world := newTestWorld()
	svc, repo := newFarmFixture(world)

	t.Run("agents own what they create", func(t *testing.T) {
		farm, err := svc.Create(context.Background(), asAgent1(), CreateFarmRequest{
			Name:     "East Pasture",
			Location: "East",
			// A supplied agent_id is ignored for agent callers.
			AgentID: "agent-2",
		})
		require.NoError(t, err)
		assert.Equal(t, "agent-1", farm.AgentID)
		assert.True(t, farm.IsActive)
		require.NotNil(t, repo.created)
	})

	t.Run("admins must designate the owning agent", func(t *testing.T) {
		_, err := svc.Create(context.Background(), asAdmin(), CreateFarmRequest{
			Name:     "West Pasture",
			Location: "West",
		})
		var appErr *appErrors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
		assert.Equal(t, "agent_id is required", appErr.Message)

		farm, err := svc.Create(context.Background(), asAdmin(), CreateFarmRequest{
			Name:     "West Pasture",
			Location: "West",
			AgentID:  "agent-2",
		})
		require.NoError(t, err)
		assert.Equal(t, "agent-2", farm.AgentID)
	})

	t.Run("designated owner must hold the agent role", func(t *testing.T) {
		_, err := svc.Create(context.Background(), asAdmin(), CreateFarmRequest{
			Name:     "Bad Pasture",
			Location: "Nowhere",
			AgentID:  "farmer-1",
		})
		var appErr *appErrors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	})

	t.Run("farmers may not create farms", func(t *testing.T) {
		_, err := svc.Create(context.Background(), asFarmer1(), CreateFarmRequest{
			Name:     "Rogue Pasture",
			Location: "Hidden",
		})
		assert.ErrorIs(t, err, appErrors.ErrForbidden)
	})
}

func TestFarmServiceUpdate(t *testing.T) {
	world := newTestWorld()
	svc, repo := newFarmFixture(world)
	req := UpdateFarmRequest{Name: "North Pasture", Location: "North", IsActive: true}

	t.Run("agent reassignment is admin only", func(t *testing.T) {
		req := req
		req.AgentID = "agent-2"

		farm, err := svc.Update(context.Background(), asAgent1(), "farm-1", req)
		require.NoError(t, err)
		assert.Equal(t, "agent-1", farm.AgentID, "non-admin reassignment must be ignored")

		farm, err = svc.Update(context.Background(), asAdmin(), "farm-1", req)
		require.NoError(t, err)
		assert.Equal(t, "agent-2", farm.AgentID)
		require.NotNil(t, repo.updated)
	})

	t.Run("agents touch only their farms", func(t *testing.T) {
		_, err := svc.Update(context.Background(), asAgent1(), "farm-2", req)
		assert.ErrorIs(t, err, appErrors.ErrForbidden)
	})

	t.Run("missing farm", func(t *testing.T) {
		_, err := svc.Update(context.Background(), asAdmin(), "missing", req)
		var appErr *appErrors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	})
}

func TestFarmServiceList(t *testing.T) {
	world := newTestWorld()
	svc, repo := newFarmFixture(world)

	t.Run("agent scope", func(t *testing.T) {
		_, _, err := svc.List(context.Background(), asAgent1(), models.FarmFilter{})
		require.NoError(t, err)
		assert.Equal(t, "agent-1", repo.lastFilter.AgentID)
	})

	t.Run("farmer sees only the active farm", func(t *testing.T) {
		_, _, err := svc.List(context.Background(), asFarmer1(), models.FarmFilter{})
		require.NoError(t, err)
		assert.Equal(t, "farm-1", repo.lastFilter.FarmID)
	})

	t.Run("unenrolled farmer gets an empty page without a query", func(t *testing.T) {
		repo.listCalled = false
		farms, pagination, err := svc.List(context.Background(), asFarmer2(), models.FarmFilter{})
		require.NoError(t, err)
		assert.Empty(t, farms)
		assert.NotNil(t, pagination)
		assert.False(t, repo.listCalled)
	})
}

func TestFarmServiceGetAndDelete(t *testing.T) {
	world := newTestWorld()
	svc, repo := newFarmFixture(world)

	detail, err := svc.Get(context.Background(), asFarmer1(), "farm-1")
	require.NoError(t, err)
	assert.Equal(t, "farm-1", detail.ID)

	_, err = svc.Get(context.Background(), asFarmer1(), "farm-2")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	assert.ErrorIs(t, svc.Delete(context.Background(), asAgent2(), "farm-1"), appErrors.ErrForbidden)
	require.NoError(t, svc.Delete(context.Background(), asAgent1(), "farm-1"))
	assert.Equal(t, []string{"farm-1"}, repo.deleted)
}

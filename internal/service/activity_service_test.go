package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/farmhub/farmhub-api/internal/models"
	appErrors "github.com/farmhub/farmhub-api/pkg/errors"
)

type mockActivityRepo struct {
	activities map[string]models.Activity
	created    *models.Activity
	updated    *models.Activity
	deleted    []string
	lastFilter models.ActivityFilter
}

func (m *mockActivityRepo) List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityDetail, int, error) {
	m.lastFilter = filter
	return nil, 0, nil
}

func (m *mockActivityRepo) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	if activity, ok := m.activities[id]; ok {
		return &activity, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockActivityRepo) FindDetailByID(ctx context.Context, id string) (*models.ActivityDetail, error) {
	activity, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.ActivityDetail{Activity: *activity}, nil
}

func (m *mockActivityRepo) Create(ctx context.Context, activity *models.Activity) error {
	activity.ID = "act-new"
	m.created = activity
	return nil
}

func (m *mockActivityRepo) Update(ctx context.Context, activity *models.Activity) error {
	m.updated = activity
	return nil
}

func (m *mockActivityRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func newActivityFixture(world *testWorld) (*ActivityService, *mockActivityRepo) {
	repo := &mockActivityRepo{
		activities: map[string]models.Activity{
			"act-1": {ID: "act-1", ActivityType: "vaccination", Date: time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC), CowID: "cow-1", RecordedBy: "farmer-1"},
		},
	}
	cows := &stubCowReader{cows: map[string]models.Cow{
		"cow-1": {ID: "cow-1", TagNumber: "N-001", FarmID: "farm-1", FarmerID: "farmer-1", IsActive: true},
	}}
	svc := NewActivityService(repo, cows, world.farms, world.policy, validator.New(), zap.NewNop())
	return svc, repo
}

func TestActivityServiceCreate(t *testing.T) {
	world := newTestWorld()
	svc, repo := newActivityFixture(world)
	date := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	t.Run("farmers always record as themselves", func(t *testing.T) {
		activity, err := svc.Create(context.Background(), asFarmer1(), CreateActivityRequest{
			CowID:        "cow-1",
			ActivityType: "deworming",
			Date:         date,
			RecordedBy:   "farmer-2",
		})
		require.NoError(t, err)
		assert.Equal(t, "farmer-1", activity.RecordedBy)
		require.NotNil(t, repo.created)
	})

	t.Run("agent may log on a farmer's behalf", func(t *testing.T) {
		activity, err := svc.Create(context.Background(), asAgent1(), CreateActivityRequest{
			CowID:        "cow-1",
			ActivityType: "vaccination",
			Date:         date,
			RecordedBy:   "farmer-1",
		})
		require.NoError(t, err)
		assert.Equal(t, "farmer-1", activity.RecordedBy)
	})

	t.Run("same cow and day is fine, unlike milk", func(t *testing.T) {
		_, err := svc.Create(context.Background(), asFarmer1(), CreateActivityRequest{
			CowID:        "cow-1",
			ActivityType: "hoof trim",
			Date:         date,
		})
		require.NoError(t, err)
	})

	t.Run("non-owner farmer denied", func(t *testing.T) {
		_, err := svc.Create(context.Background(), asFarmer2(), CreateActivityRequest{
			CowID:        "cow-1",
			ActivityType: "deworming",
			Date:         date,
		})
		assert.ErrorIs(t, err, appErrors.ErrForbidden)
	})

	t.Run("unknown cow", func(t *testing.T) {
		_, err := svc.Create(context.Background(), asFarmer1(), CreateActivityRequest{
			CowID:        "missing",
			ActivityType: "deworming",
			Date:         date,
		})
		var appErr *appErrors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	})
}

func TestActivityServiceMutationAccess(t *testing.T) {
	world := newTestWorld()
	svc, repo := newActivityFixture(world)
	req := UpdateActivityRequest{ActivityType: "vaccination", Date: time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)}

	activity, err := svc.Update(context.Background(), asFarmer1(), "act-1", req)
	require.NoError(t, err)
	assert.Equal(t, "vaccination", activity.ActivityType)
	require.NotNil(t, repo.updated)

	// Agents may view and create but never mutate records.
	_, err = svc.Update(context.Background(), asAgent1(), "act-1", req)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(context.Background(), asAgent1(), "act-1"), appErrors.ErrForbidden)

	require.NoError(t, svc.Delete(context.Background(), asFarmer1(), "act-1"))
	assert.Equal(t, []string{"act-1"}, repo.deleted)
}

func TestActivityServiceListScoping(t *testing.T) {
	world := newTestWorld()
	svc, repo := newActivityFixture(world)

	_, _, err := svc.List(context.Background(), asFarmer1(), models.ActivityFilter{})
	require.NoError(t, err)
	assert.Equal(t, "farmer-1", repo.lastFilter.RecorderID)

	_, _, err = svc.List(context.Background(), asAgent1(), models.ActivityFilter{})
	require.NoError(t, err)
	assert.Equal(t, "agent-1", repo.lastFilter.AgentID)
}

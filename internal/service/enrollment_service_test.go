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

type mockEnrollmentRepo struct {
	enrollments map[string]models.Enrollment
	pairs       map[string]bool
	created     *models.Enrollment
	updated     *models.Enrollment
	deactivated []string
	deleted     []string
	lastFilter  models.EnrollmentFilter
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	m.lastFilter = filter
	return nil, 0, nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	e, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.EnrollmentDetail{Enrollment: *e}, nil
}

func (m *mockEnrollmentRepo) ExistsForUserFarm(ctx context.Context, userID, farmID string) (bool, error) {
	return m.pairs[userID+":"+farmID], nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	enrollment.ID = "enr-new"
	m.created = enrollment
	return nil
}

func (m *mockEnrollmentRepo) Update(ctx context.Context, enrollment *models.Enrollment) error {
	m.updated = enrollment
	return nil
}

func (m *mockEnrollmentRepo) Deactivate(ctx context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	return nil
}

func (m *mockEnrollmentRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func newEnrollmentFixture(world *testWorld) (*EnrollmentService, *mockEnrollmentRepo) {
	repo := &mockEnrollmentRepo{
		enrollments: map[string]models.Enrollment{
			"enr-1": {ID: "enr-1", UserID: "farmer-1", FarmID: "farm-1", IsActive: true, Progress: 40},
		},
		pairs: map[string]bool{"farmer-1:farm-1": true},
	}
	svc := NewEnrollmentService(repo, world.farms, world.users, world.policy, validator.New(), zap.NewNop())
	return svc, repo
}

func TestEnrollmentServiceCreate(t *testing.T) {
	world := newTestWorld()
	svc, repo := newEnrollmentFixture(world)

	t.Run("agent enrolls a farmer into an own farm", func(t *testing.T) {
		enrollment, err := svc.Create(context.Background(), asAgent1(), CreateEnrollmentRequest{
			UserID: "farmer-2",
			FarmID: "farm-1",
		})
		require.NoError(t, err)
		assert.True(t, enrollment.IsActive)
		require.NotNil(t, repo.created)
	})

	t.Run("foreign farm denied", func(t *testing.T) {
		_, err := svc.Create(context.Background(), asAgent1(), CreateEnrollmentRequest{
			UserID: "farmer-2",
			FarmID: "farm-2",
		})
		assert.ErrorIs(t, err, appErrors.ErrForbidden)
	})

	t.Run("only farmers can be enrolled", func(t *testing.T) {
		_, err := svc.Create(context.Background(), asAdmin(), CreateEnrollmentRequest{
			UserID: "agent-2",
			FarmID: "farm-1",
		})
		var appErr *appErrors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
		assert.Equal(t, "only farmers can be enrolled", appErr.Message)
	})

	t.Run("re-enrolling the same pair conflicts", func(t *testing.T) {
		_, err := svc.Create(context.Background(), asAdmin(), CreateEnrollmentRequest{
			UserID: "farmer-1",
			FarmID: "farm-1",
		})
		var appErr *appErrors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	})

	t.Run("unknown farm is a validation error", func(t *testing.T) {
		_, err := svc.Create(context.Background(), asAdmin(), CreateEnrollmentRequest{
			UserID: "farmer-2",
			FarmID: "missing",
		})
		var appErr *appErrors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	})
}

func TestEnrollmentServiceUpdate(t *testing.T) {
	world := newTestWorld()
	svc, repo := newEnrollmentFixture(world)
	req := UpdateEnrollmentRequest{IsActive: true, Progress: 75, TotalYield: 120.5}

	enrollment, err := svc.Update(context.Background(), asAgent1(), "enr-1", req)
	require.NoError(t, err)
	assert.Equal(t, 75, enrollment.Progress)
	assert.Equal(t, 120.5, enrollment.TotalYield)
	require.NotNil(t, repo.updated)

	_, err = svc.Update(context.Background(), asAgent2(), "enr-1", req)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	// Farmers have no update entry at all.
	_, err = svc.Update(context.Background(), asFarmer1(), "enr-1", req)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Update(context.Background(), asAgent1(), "enr-1", UpdateEnrollmentRequest{Progress: 150})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestEnrollmentServiceDelete(t *testing.T) {
	t.Run("admins remove the row", func(t *testing.T) {
		world := newTestWorld()
		svc, repo := newEnrollmentFixture(world)

		require.NoError(t, svc.Delete(context.Background(), asAdmin(), "enr-1"))
		assert.Equal(t, []string{"enr-1"}, repo.deleted)
		assert.Empty(t, repo.deactivated)
	})

	t.Run("agents deactivate so history survives", func(t *testing.T) {
		world := newTestWorld()
		svc, repo := newEnrollmentFixture(world)

		require.NoError(t, svc.Delete(context.Background(), asAgent1(), "enr-1"))
		assert.Equal(t, []string{"enr-1"}, repo.deactivated)
		assert.Empty(t, repo.deleted)
	})

	t.Run("foreign agents and farmers are refused", func(t *testing.T) {
		world := newTestWorld()
		svc, _ := newEnrollmentFixture(world)

		assert.ErrorIs(t, svc.Delete(context.Background(), asAgent2(), "enr-1"), appErrors.ErrForbidden)
		assert.ErrorIs(t, svc.Delete(context.Background(), asFarmer1(), "enr-1"), appErrors.ErrForbidden)
	})
}

func TestEnrollmentServiceGet(t *testing.T) {
	world := newTestWorld()
	svc, _ := newEnrollmentFixture(world)

	detail, err := svc.Get(context.Background(), asFarmer1(), "enr-1")
	require.NoError(t, err)
	assert.Equal(t, "enr-1", detail.ID)

	_, err = svc.Get(context.Background(), asFarmer2(), "enr-1")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

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

type mockMilkRepo struct {
	records    map[string]models.MilkProduction
	taken      map[string]string
	created    *models.MilkProduction
	updated    *models.MilkProduction
	deleted    []string
	lastFilter models.MilkFilter
}

func milkDayKey(cowID string, date time.Time) string {
	return cowID + "@" + date.Format("2006-01-02")
}

func (m *mockMilkRepo) List(ctx context.Context, filter models.MilkFilter) ([]models.MilkProductionDetail, int, error) {
	m.lastFilter = filter
	return nil, 0, nil
}

func (m *mockMilkRepo) FindByID(ctx context.Context, id string) (*models.MilkProduction, error) {
	if record, ok := m.records[id]; ok {
		return &record, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockMilkRepo) FindDetailByID(ctx context.Context, id string) (*models.MilkProductionDetail, error) {
	record, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.MilkProductionDetail{MilkProduction: *record}, nil
}

func (m *mockMilkRepo) ExistsForCowDate(ctx context.Context, cowID string, date time.Time, excludeID string) (bool, error) {
	holder, ok := m.taken[milkDayKey(cowID, date)]
	return ok && holder != excludeID, nil
}

func (m *mockMilkRepo) Create(ctx context.Context, record *models.MilkProduction) error {
	record.ID = "milk-new"
	m.created = record
	return nil
}

func (m *mockMilkRepo) Update(ctx context.Context, record *models.MilkProduction) error {
	m.updated = record
	return nil
}

func (m *mockMilkRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type stubCowReader struct {
	cows map[string]models.Cow
}

func (s *stubCowReader) FindByID(ctx context.Context, id string) (*models.Cow, error) {
	if cow, ok := s.cows[id]; ok {
		return &cow, nil
	}
	return nil, sql.ErrNoRows
}

func newMilkFixture(world *testWorld) (*MilkService, *mockMilkRepo) {
	day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	repo := &mockMilkRepo{
		records: map[string]models.MilkProduction{
			"milk-1": {ID: "milk-1", Date: day, Quantity: 12.5, CowID: "cow-1", RecordedBy: "farmer-1"},
		},
		taken: map[string]string{milkDayKey("cow-1", day): "milk-1"},
	}
	cows := &stubCowReader{cows: map[string]models.Cow{
		"cow-1": {ID: "cow-1", TagNumber: "N-001", FarmID: "farm-1", FarmerID: "farmer-1", IsActive: true},
	}}
	svc := NewMilkService(repo, cows, world.farms, world.policy, validator.New(), zap.NewNop())
	return svc, repo
}

func TestMilkServiceCreate(t *testing.T) {
	world := newTestWorld()
	svc, repo := newMilkFixture(world)

	t.Run("farmers always record as themselves", func(t *testing.T) {
		record, err := svc.Create(context.Background(), asFarmer1(), CreateMilkRequest{
			CowID:      "cow-1",
			Date:       time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC),
			Quantity:   14.2,
			RecordedBy: "farmer-2",
		})
		require.NoError(t, err)
		assert.Equal(t, "farmer-1", record.RecordedBy)
		require.NotNil(t, repo.created)
	})

	t.Run("admin may log on another user's behalf", func(t *testing.T) {
		record, err := svc.Create(context.Background(), asAdmin(), CreateMilkRequest{
			CowID:      "cow-1",
			Date:       time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC),
			Quantity:   11,
			RecordedBy: "farmer-1",
		})
		require.NoError(t, err)
		assert.Equal(t, "farmer-1", record.RecordedBy)

		record, err = svc.Create(context.Background(), asAdmin(), CreateMilkRequest{
			CowID:    "cow-1",
			Date:     time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC),
			Quantity: 11,
		})
		require.NoError(t, err)
		assert.Equal(t, "admin-1", record.RecordedBy)
	})

	t.Run("one record per cow per day", func(t *testing.T) {
		_, err := svc.Create(context.Background(), asFarmer1(), CreateMilkRequest{
			CowID:    "cow-1",
			Date:     time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
			Quantity: 10,
		})
		var appErr *appErrors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
		assert.Equal(t, "milk record already exists for this cow and date", appErr.Message)
	})

	t.Run("unknown cow", func(t *testing.T) {
		_, err := svc.Create(context.Background(), asFarmer1(), CreateMilkRequest{
			CowID:    "missing",
			Date:     time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC),
			Quantity: 10,
		})
		var appErr *appErrors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	})

	t.Run("negative quantity rejected", func(t *testing.T) {
		_, err := svc.Create(context.Background(), asFarmer1(), CreateMilkRequest{
			CowID:    "cow-1",
			Date:     time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC),
			Quantity: -1,
		})
		var appErr *appErrors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	})

	t.Run("a dry day records zero liters", func(t *testing.T) {
		record, err := svc.Create(context.Background(), asFarmer1(), CreateMilkRequest{
			CowID:    "cow-1",
			Date:     time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
			Quantity: 0,
		})
		require.NoError(t, err)
		assert.Equal(t, 0.0, record.Quantity)
	})

	t.Run("agent logs on own farm only", func(t *testing.T) {
		_, err := svc.Create(context.Background(), asAgent1(), CreateMilkRequest{
			CowID:    "cow-1",
			Date:     time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC),
			Quantity: 9,
		})
		require.NoError(t, err)

		_, err = svc.Create(context.Background(), asAgent2(), CreateMilkRequest{
			CowID:    "cow-1",
			Date:     time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC),
			Quantity: 9,
		})
		assert.ErrorIs(t, err, appErrors.ErrForbidden)
	})
}

func TestMilkServiceUpdate(t *testing.T) {
	world := newTestWorld()
	svc, repo := newMilkFixture(world)
	req := UpdateMilkRequest{Date: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), Quantity: 13.0}

	t.Run("recorder may correct their entry", func(t *testing.T) {
		record, err := svc.Update(context.Background(), asFarmer1(), "milk-1", req)
		require.NoError(t, err)
		assert.Equal(t, 13.0, record.Quantity)
		require.NotNil(t, repo.updated)
	})

	t.Run("cow owner who did not record is refused", func(t *testing.T) {
		repo.records["milk-2"] = models.MilkProduction{
			ID: "milk-2", Date: time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC),
			Quantity: 8, CowID: "cow-1", RecordedBy: "agent-1",
		}
		_, err := svc.Update(context.Background(), asFarmer1(), "milk-2", req)
		assert.ErrorIs(t, err, appErrors.ErrForbidden)
	})

	t.Run("agents have no mutation path", func(t *testing.T) {
		_, err := svc.Update(context.Background(), asAgent1(), "milk-1", req)
		assert.ErrorIs(t, err, appErrors.ErrForbidden)
	})

	t.Run("moving onto an occupied day conflicts", func(t *testing.T) {
		day := time.Date(2026, 8, 18, 0, 0, 0, 0, time.UTC)
		repo.records["milk-3"] = models.MilkProduction{ID: "milk-3", Date: day, Quantity: 7, CowID: "cow-1", RecordedBy: "farmer-1"}
		repo.taken[milkDayKey("cow-1", day)] = "milk-3"

		_, err := svc.Update(context.Background(), asFarmer1(), "milk-3", UpdateMilkRequest{
			Date:     time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
			Quantity: 7,
		})
		var appErr *appErrors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	})
}

func TestMilkServiceDelete(t *testing.T) {
	world := newTestWorld()
	svc, repo := newMilkFixture(world)

	assert.ErrorIs(t, svc.Delete(context.Background(), asAgent1(), "milk-1"), appErrors.ErrForbidden)

	require.NoError(t, svc.Delete(context.Background(), asAdmin(), "milk-1"))
	assert.Equal(t, []string{"milk-1"}, repo.deleted)
}

func TestMilkServiceGetVisibility(t *testing.T) {
	world := newTestWorld()
	svc, _ := newMilkFixture(world)

	detail, err := svc.Get(context.Background(), asAgent1(), "milk-1")
	require.NoError(t, err)
	assert.Equal(t, "milk-1", detail.ID)

	_, err = svc.Get(context.Background(), asFarmer2(), "milk-1")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestMilkServiceListScoping(t *testing.T) {
	world := newTestWorld()
	svc, repo := newMilkFixture(world)

	_, _, err := svc.List(context.Background(), asFarmer1(), models.MilkFilter{})
	require.NoError(t, err)
	assert.Equal(t, "farmer-1", repo.lastFilter.RecorderID)

	_, _, err = svc.List(context.Background(), asAgent2(), models.MilkFilter{})
	require.NoError(t, err)
	assert.Equal(t, "agent-2", repo.lastFilter.AgentID)
	assert.Empty(t, repo.lastFilter.RecorderID)
}

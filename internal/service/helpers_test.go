package service

import (
	"context"
	"database/sql"

	"github.com/farmhub/farmhub-api/internal/access"
	"github.com/farmhub/farmhub-api/internal/models"
)

// Shared stub stores backing the access policy and the services' narrow
// reader interfaces in tests.

type stubFarmStore struct {
	farms map[string]models.Farm
	err   error
}

func (s *stubFarmStore) FindByID(ctx context.Context, id string) (*models.Farm, error) {
	if s.err != nil {
		return nil, s.err
	}
	if farm, ok := s.farms[id]; ok {
		return &farm, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubFarmStore) ListByAgent(ctx context.Context, agentID string) ([]models.Farm, error) {
	var out []models.Farm
	for _, farm := range s.farms {
		if farm.AgentID == agentID {
			out = append(out, farm)
		}
	}
	return out, nil
}

type stubEnrollmentStore struct {
	latestByUser map[string]models.Enrollment
	visible      map[string]bool
}

func (s *stubEnrollmentStore) FindLatestActiveByUser(ctx context.Context, userID string) (*models.Enrollment, error) {
	if e, ok := s.latestByUser[userID]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubEnrollmentStore) ExistsActiveForUserInAgentFarms(ctx context.Context, userID, agentID string) (bool, error) {
	return s.visible[userID+":"+agentID], nil
}

type stubUserStore struct {
	users map[string]models.User
	err   error
}

func (s *stubUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if user, ok := s.users[id]; ok {
		return &user, nil
	}
	return nil, sql.ErrNoRows
}

// testWorld is the common fixture: two agents, two farms, one enrolled
// farmer on farm-1.
type testWorld struct {
	farms       *stubFarmStore
	enrollments *stubEnrollmentStore
	users       *stubUserStore
	policy      *access.Policy
}

func newTestWorld() *testWorld {
	farms := &stubFarmStore{farms: map[string]models.Farm{
		"farm-1": {ID: "farm-1", Name: "North Pasture", Location: "North", AgentID: "agent-1", IsActive: true},
		"farm-2": {ID: "farm-2", Name: "South Pasture", Location: "South", AgentID: "agent-2", IsActive: true},
	}}
	enrollments := &stubEnrollmentStore{
		latestByUser: map[string]models.Enrollment{
			"farmer-1": {ID: "enr-1", UserID: "farmer-1", FarmID: "farm-1", IsActive: true},
		},
		visible: map[string]bool{"farmer-1:agent-1": true},
	}
	users := &stubUserStore{users: map[string]models.User{
		"admin-1":  {ID: "admin-1", Username: "root", Role: models.RoleAdmin, Active: true},
		"agent-1":  {ID: "agent-1", Username: "agent_north", Role: models.RoleAgent, Active: true},
		"agent-2":  {ID: "agent-2", Username: "agent_south", Role: models.RoleAgent, Active: true},
		"farmer-1": {ID: "farmer-1", Username: "farmer_one", Role: models.RoleFarmer, Active: true},
		"farmer-2": {ID: "farmer-2", Username: "farmer_two", Role: models.RoleFarmer, Active: true},
	}}
	resolver := access.NewResolver(farms, enrollments)
	return &testWorld{
		farms:       farms,
		enrollments: enrollments,
		users:       users,
		policy:      access.NewPolicy(resolver),
	}
}

func asAdmin() access.Principal  { return access.Principal{ID: "admin-1", Role: models.RoleAdmin} }
func asAgent1() access.Principal { return access.Principal{ID: "agent-1", Role: models.RoleAgent} }
func asAgent2() access.Principal { return access.Principal{ID: "agent-2", Role: models.RoleAgent} }
func asFarmer1() access.Principal {
	return access.Principal{ID: "farmer-1", Role: models.RoleFarmer}
}
func asFarmer2() access.Principal {
	return access.Principal{ID: "farmer-2", Role: models.RoleFarmer}
}

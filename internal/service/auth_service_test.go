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
	"golang.org/x/crypto/bcrypt"

	"github.com/farmhub/farmhub-api/internal/models"
	appErrors "github.com/farmhub/farmhub-api/pkg/errors"
)

type mockAuthRepo struct {
	users         map[string]models.User
	refreshTokens map[string]models.RefreshToken
	auditLogs     []models.AuditLog
	revoked       []string
	lastLogin     map[string]time.Time
}

func newMockAuthRepo() *mockAuthRepo {
	hash, _ := bcrypt.GenerateFromPassword([]byte("valid-password"), bcrypt.MinCost)
	return &mockAuthRepo{
		users: map[string]models.User{
			"user-1": {ID: "user-1", Username: "existing", Email: "existing@example.com", PasswordHash: string(hash), Role: models.RoleFarmer, Active: true},
			"user-2": {ID: "user-2", Username: "dormant", Email: "dormant@example.com", PasswordHash: string(hash), Role: models.RoleFarmer, Active: false},
		},
		refreshTokens: map[string]models.RefreshToken{},
		lastLogin:     map[string]time.Time{},
	}
}

func (m *mockAuthRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, user := range m.users {
		if user.Username == username {
			return &user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		return &user, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	m.users[user.ID] = *user
	return nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLogin[id] = ts
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	for key, token := range m.refreshTokens {
		if token.UserID == userID {
			token.Revoked = true
			m.refreshTokens[key] = token
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.refreshTokens[token.Token] = *token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if stored, ok := m.refreshTokens[token]; ok {
		return &stored, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	m.revoked = append(m.revoked, id)
	for key, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
			m.refreshTokens[key] = token
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, *log)
	return nil
}

func newAuthFixture(allowAgentSignup bool) (*AuthService, *mockAuthRepo) {
	repo := newMockAuthRepo()
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "unit-test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "farmhub-test",
		AllowAgentSignup:   allowAgentSignup,
	})
	return svc, repo
}

func registerPayload(username string, role models.UserRole) models.RegisterRequest {
	return models.RegisterRequest{
		Username:  username,
		Email:     username + "@example.com",
		Password:  "valid-password",
		Password2: "valid-password",
		Role:      role,
	}
}

func TestAuthServiceRegister(t *testing.T) {
	t.Run("role defaults to farmer", func(t *testing.T) {
		svc, repo := newAuthFixture(false)
		info, err := svc.Register(context.Background(), registerPayload("fresh", ""), false)
		require.NoError(t, err)
		assert.Equal(t, models.RoleFarmer, info.Role)
		require.Len(t, repo.auditLogs, 1)
		assert.Equal(t, models.AuditActionRegister, repo.auditLogs[0].Action)
	})

	t.Run("password mismatch", func(t *testing.T) {
		svc, _ := newAuthFixture(false)
		req := registerPayload("fresh", "")
		req.Password2 = "something-else"
		_, err := svc.Register(context.Background(), req, false)
		var appErr *appErrors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	})

	t.Run("admin self-registration is always rejected", func(t *testing.T) {
		svc, _ := newAuthFixture(true)
		_, err := svc.Register(context.Background(), registerPayload("boss", models.RoleAdmin), true)
		var appErr *appErrors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	})

	t.Run("agent signup needs the flag or an admin", func(t *testing.T) {
		svc, _ := newAuthFixture(false)
		_, err := svc.Register(context.Background(), registerPayload("hopeful", models.RoleAgent), false)
		var appErr *appErrors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

		// An authenticated admin overrides the disabled flag.
		info, err := svc.Register(context.Background(), registerPayload("hopeful", models.RoleAgent), true)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAgent, info.Role)

		svc2, _ := newAuthFixture(true)
		_, err = svc2.Register(context.Background(), registerPayload("hopeful", models.RoleAgent), false)
		require.NoError(t, err)
	})

	t.Run("taken username conflicts", func(t *testing.T) {
		svc, _ := newAuthFixture(false)
		_, err := svc.Register(context.Background(), registerPayload("existing", ""), false)
		var appErr *appErrors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	})
}

func TestAuthServiceLogin(t *testing.T) {
	t.Run("issues both tokens", func(t *testing.T) {
		svc, repo := newAuthFixture(false)
		resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "existing", Password: "valid-password"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
		assert.Equal(t, "user-1", resp.User.ID)
		assert.Contains(t, repo.refreshTokens, resp.RefreshToken)
		assert.Contains(t, repo.lastLogin, "user-1")

		claims, err := svc.ValidateToken(resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, models.RoleFarmer, claims.Role)
	})

	t.Run("wrong password and unknown user look the same", func(t *testing.T) {
		svc, _ := newAuthFixture(false)
		_, err1 := svc.Login(context.Background(), models.LoginRequest{Username: "existing", Password: "wrong"})
		_, err2 := svc.Login(context.Background(), models.LoginRequest{Username: "nobody", Password: "wrong"})

		var appErr1, appErr2 *appErrors.Error
		require.ErrorAs(t, err1, &appErr1)
		require.ErrorAs(t, err2, &appErr2)
		assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr1.Code)
		assert.Equal(t, appErr1.Message, appErr2.Message)
	})

	t.Run("inactive account", func(t *testing.T) {
		svc, _ := newAuthFixture(false)
		_, err := svc.Login(context.Background(), models.LoginRequest{Username: "dormant", Password: "valid-password"})
		var appErr *appErrors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
	})
}

func TestAuthServiceRefreshRotation(t *testing.T) {
	svc, repo := newAuthFixture(false)
	login, err := svc.Login(context.Background(), models.LoginRequest{Username: "existing", Password: "valid-password"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The presented token is spent: replaying it must fail.
	old := repo.refreshTokens[login.RefreshToken]
	assert.True(t, old.Revoked)
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "never-issued"})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthServiceRefreshExpired(t *testing.T) {
	svc, repo := newAuthFixture(false)
	repo.refreshTokens["stale"] = models.RefreshToken{
		ID:        "rt-stale",
		UserID:    "user-1",
		Token:     "stale",
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthServiceLogout(t *testing.T) {
	svc, repo := newAuthFixture(false)
	login, err := svc.Login(context.Background(), models.LoginRequest{Username: "existing", Password: "valid-password"})
	require.NoError(t, err)

	t.Run("only the owner may revoke", func(t *testing.T) {
		err := svc.Logout(context.Background(), "someone-else", models.LogoutRequest{RefreshToken: login.RefreshToken})
		var appErr *appErrors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
		assert.Empty(t, repo.revoked)
	})

	t.Run("owner revokes and the logout is audited", func(t *testing.T) {
		require.NoError(t, svc.Logout(context.Background(), "user-1", models.LogoutRequest{RefreshToken: login.RefreshToken}))
		assert.NotEmpty(t, repo.revoked)
		last := repo.auditLogs[len(repo.auditLogs)-1]
		assert.Equal(t, models.AuditActionLogout, last.Action)
	})
}

func TestAuthServiceValidateToken(t *testing.T) {
	svc, _ := newAuthFixture(false)

	_, err := svc.ValidateToken("not-a-jwt")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)

	// A token signed with a different secret is rejected.
	other := NewAuthService(newMockAuthRepo(), validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "different-secret",
		AccessTokenExpiry: time.Minute,
	})
	login, err := other.Login(context.Background(), models.LoginRequest{Username: "existing", Password: "valid-password"})
	require.NoError(t, err)
	_, err = svc.ValidateToken(login.AccessToken)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

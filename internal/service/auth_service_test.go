package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/accrediflow-api/internal/models"
	appErrors "github.com/noah-isme/accrediflow-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail         *models.User
	userByID            *models.User
	findByEmailErr      error
	findByIDErr         error
	refreshTokens       map[string]*models.RefreshToken
	createRefreshErr    error
	revokeRefreshErr    error
	revokeUserTokensErr error
	revokedAllFor       string
	auditLogs           []*models.AuditLog
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	if m.userByEmail == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	if m.userByID != nil {
		return m.userByID, nil
	}
	if m.userByEmail == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedAllFor = userID
	return m.revokeUserTokensErr
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.createRefreshErr != nil {
		return m.createRefreshErr
	}
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	if m.revokeRefreshErr != nil {
		return m.revokeRefreshErr
	}
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, RefreshTokenExpiry: 24 * time.Hour}
}

func hashedUser(t *testing.T, role models.UserRole, approved bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:            "u1",
		Name:          "Asha Rao",
		Email:         "asha@example.edu",
		PasswordHash:  string(hash),
		Role:          role,
		Approved:      approved,
		InstituteName: testInstitute,
	}
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: hashedUser(t, models.RoleHOD, true)}
	svc := NewAuthService(repo, nil, zap.NewNop(), testAuthConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "asha@example.edu", Password: "password", Role: models.RoleHOD})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, testInstitute, res.User.InstituteName)
	assert.Len(t, repo.refreshTokens, 1)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogin, repo.auditLogs[0].Action)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleHOD, claims.Role)
	assert.Equal(t, testInstitute, claims.InstituteName)
	assert.Equal(t, "Asha Rao", claims.Name)
}

func TestAuthServiceLoginRejections(t *testing.T) {
	cases := []struct {
		name string
		user *models.User
		req  models.LoginRequest
		code string
	}{
		{
			name: "unknown email",
			req:  models.LoginRequest{Email: "nobody@example.edu", Password: "password"},
			code: appErrors.ErrInvalidCredentials.Code,
		},
		{
			name: "wrong password",
			user: hashedUser(t, models.RoleAdmin, true),
			req:  models.LoginRequest{Email: "asha@example.edu", Password: "nope"},
			code: appErrors.ErrInvalidCredentials.Code,
		},
		{
			name: "pending approval",
			user: hashedUser(t, models.RoleAdmin, false),
			req:  models.LoginRequest{Email: "asha@example.edu", Password: "password"},
			code: appErrors.ErrPendingApproval.Code,
		},
		{
			name: "role mismatch",
			user: hashedUser(t, models.RoleFaculty, true),
			req:  models.LoginRequest{Email: "asha@example.edu", Password: "password", Role: models.RoleCoordinator},
			code: appErrors.ErrForbidden.Code,
		},
		{
			name: "invalid payload",
			req:  models.LoginRequest{Email: "not-an-email", Password: "password"},
			code: appErrors.ErrValidation.Code,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockAuthRepo{userByEmail: tc.user}
			svc := NewAuthService(repo, nil, zap.NewNop(), testAuthConfig())
			_, err := svc.Login(context.Background(), tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.code, appErrors.FromError(err).Code)
			assert.Empty(t, repo.refreshTokens)
		})
	}
}

func TestAuthServiceLoginSingleSession(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: hashedUser(t, models.RoleAdmin, true)}
	cfg := testAuthConfig()
	cfg.SingleSession = true
	svc := NewAuthService(repo, nil, zap.NewNop(), cfg)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "asha@example.edu", Password: "password"})
	require.NoError(t, err)
	assert.Equal(t, "u1", repo.revokedAllFor)
}

func TestAuthServiceRefreshToken(t *testing.T) {
	user := hashedUser(t, models.RoleAdmin, true)
	repo := &mockAuthRepo{userByID: user, refreshTokens: map[string]*models.RefreshToken{
		"token": {ID: "rt1", UserID: user.ID, Token: "token", ExpiresAt: time.Now().Add(time.Hour)},
	}}
	svc := NewAuthService(repo, nil, zap.NewNop(), testAuthConfig())

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, "token", res.RefreshToken)
	assert.True(t, repo.refreshTokens["token"].Revoked)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshTokenExpired(t *testing.T) {
	repo := &mockAuthRepo{refreshTokens: map[string]*models.RefreshToken{
		"old": {ID: "rt1", UserID: "u1", Token: "old", ExpiresAt: time.Now().Add(-time.Minute)},
	}}
	svc := NewAuthService(repo, nil, zap.NewNop(), testAuthConfig())

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old"})
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLogout(t *testing.T) {
	repo := &mockAuthRepo{refreshTokens: map[string]*models.RefreshToken{
		"token": {ID: "rt1", UserID: "u1", Token: "token", ExpiresAt: time.Now().Add(time.Hour)},
	}}
	svc := NewAuthService(repo, nil, zap.NewNop(), testAuthConfig())

	err := svc.Logout(context.Background(), "token", "u2", models.LoginRequest{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Logout(context.Background(), "token", "u1", models.LoginRequest{}))
	assert.True(t, repo.refreshTokens["token"].Revoked)
	assert.Equal(t, models.AuditActionLogout, repo.auditLogs[len(repo.auditLogs)-1].Action)
}

func TestValidateTokenRejectsForeignSignatures(t *testing.T) {
	svc := NewAuthService(&mockAuthRepo{}, nil, zap.NewNop(), testAuthConfig())
	other := NewAuthService(&mockAuthRepo{}, nil, zap.NewNop(), AuthConfig{AccessTokenSecret: "other", AccessTokenExpiry: time.Hour})

	token, _, err := other.generateAccessToken(&models.User{ID: "u1", Role: models.RoleAdmin})
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateToken(unsigned)
	assert.Error(t, err)
}

func TestValidateTokenRejectsUnknownRole(t *testing.T) {
	svc := NewAuthService(&mockAuthRepo{}, nil, zap.NewNop(), testAuthConfig())
	token, _, err := svc.generateAccessToken(&models.User{ID: "u1", Role: models.UserRole("visitor")})
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

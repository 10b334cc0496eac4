package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/accrediflow-api/internal/dto"
	"github.com/noah-isme/accrediflow-api/internal/models"
	appErrors "github.com/noah-isme/accrediflow-api/pkg/errors"
)

type mockUserRepo struct {
	users       map[string]*models.User
	lastFilter  models.UserFilter
	approveHits int
	auditLogs   []*models.AuditLog
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	m.lastFilter = filter
	var users []models.User
	for _, u := range m.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.Approved != nil && u.Approved != *filter.Approved {
			continue
		}
		if filter.InstituteName != "" && u.InstituteName != filter.InstituteName {
			continue
		}
		users = append(users, *u)
	}
	return users, len(users), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.users == nil {
		m.users = make(map[string]*models.User)
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *mockUserRepo) Approve(ctx context.Context, id string) error {
	m.approveHits++
	user, ok := m.users[id]
	if !ok || user.Approved {
		return sql.ErrNoRows
	}
	user.Approved = true
	return nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func newUserServiceForTest() (*UserService, *mockUserRepo) {
	repo := &mockUserRepo{users: map[string]*models.User{}}
	svc := NewUserService(repo, nil, zap.NewNop())
	svc.bcryptCost = bcrypt.MinCost
	return svc, repo
}

func registerRequest() dto.RegisterRequest {
	return dto.RegisterRequest{
		InstituteName:     testInstitute,
		InstituteType:     "Engineering College",
		AccreditationBody: "NBA",
		EmailDomain:       "tit.edu",
		Name:              "Principal Admin",
		Email:             "Admin@TIT.edu",
		Password:          "secret123",
	}
}

func TestUserServiceRegisterCreatesPendingAdmin(t *testing.T) {
	svc, repo := newUserServiceForTest()

	user, err := svc.Register(context.Background(), registerRequest(), models.LoginRequest{IP: "127.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.False(t, user.Approved)
	assert.Equal(t, "admin@tit.edu", user.Email)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users[user.ID].PasswordHash), []byte("secret123")))
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionRegister, repo.auditLogs[0].Action)

	_, err = svc.Register(context.Background(), registerRequest(), models.LoginRequest{})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserServiceRegisterValidation(t *testing.T) {
	svc, _ := newUserServiceForTest()
	req := registerRequest()
	req.InstituteName = " "
	req.Password = "123"

	_, err := svc.Register(context.Background(), req, models.LoginRequest{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "instituteName is required")
	assert.Contains(t, appErr.Message, "password must be at least 6 characters")
}

func TestUserServiceApproveFlow(t *testing.T) {
	svc, repo := newUserServiceForTest()
	superadmin := &models.JWTClaims{UserID: "root", Role: models.RoleSuperAdmin}
	pending, err := svc.Register(context.Background(), registerRequest(), models.LoginRequest{})
	require.NoError(t, err)

	list, page, err := svc.ListPendingAdmins(context.Background(), superadmin, 1, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, page.TotalCount)

	approved, err := svc.ApproveUser(context.Background(), superadmin, pending.ID, models.LoginRequest{})
	require.NoError(t, err)
	assert.True(t, approved.Approved)
	assert.True(t, repo.users[pending.ID].Approved)

	_, err = svc.ApproveUser(context.Background(), superadmin, pending.ID, models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.approveHits)

	list, _, err = svc.ListPendingAdmins(context.Background(), superadmin, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.ApproveUser(context.Background(), superadmin, "missing", models.LoginRequest{})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.ApproveUser(context.Background(), admin, pending.ID, models.LoginRequest{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUserServiceCreateInstituteUser(t *testing.T) {
	svc, repo := newUserServiceForTest()

	user, err := svc.CreateInstituteUser(context.Background(), admin, dto.CreateInstituteUserRequest{
		Name:     "Dr. Meera",
		Email:    "meera@tit.edu",
		Password: "secret123",
		Role:     models.RoleHOD,
	}, models.LoginRequest{})
	require.NoError(t, err)
	assert.True(t, user.Approved)
	assert.Equal(t, testInstitute, user.InstituteName)
	require.NotNil(t, user.CreatedBy)
	assert.Equal(t, admin.UserID, *user.CreatedBy)
	assert.Contains(t, repo.users, user.ID)

	_, err = svc.CreateInstituteUser(context.Background(), admin, dto.CreateInstituteUserRequest{
		Name: "Root", Email: "root@tit.edu", Password: "secret123", Role: models.RoleSuperAdmin,
	}, models.LoginRequest{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.CreateInstituteUser(context.Background(), hod, dto.CreateInstituteUserRequest{
		Name: "X", Email: "x@tit.edu", Password: "secret123", Role: models.RoleFaculty,
	}, models.LoginRequest{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUserServiceListInstituteUsers(t *testing.T) {
	svc, repo := newUserServiceForTest()
	repo.users["a"] = &models.User{ID: "a", InstituteName: testInstitute, Role: models.RoleFaculty}
	repo.users["b"] = &models.User{ID: "b", InstituteName: "Elsewhere College", Role: models.RoleFaculty}

	users, page, err := svc.ListInstituteUsers(context.Background(), admin, 0, 0)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "a", users[0].ID)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Equal(t, testInstitute, repo.lastFilter.InstituteName)
}

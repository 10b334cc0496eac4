package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/accrediflow-api/internal/dto"
	"github.com/noah-isme/accrediflow-api/internal/models"
	appErrors "github.com/noah-isme/accrediflow-api/pkg/errors"
)

type userServiceMock struct {
	user       *models.User
	users      []models.User
	err        error
	approvedID string
	page       int
	pageSize   int
}

func (m *userServiceMock) Register(ctx context.Context, req dto.RegisterRequest, meta models.LoginRequest) (*models.User, error) {
	return m.user, m.err
}

func (m *userServiceMock) ListPendingAdmins(ctx context.Context, actor *models.JWTClaims, page, pageSize int) ([]models.User, *models.Pagination, error) {
	m.page, m.pageSize = page, pageSize
	return m.users, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: len(m.users)}, m.err
}

func (m *userServiceMock) ApproveUser(ctx context.Context, actor *models.JWTClaims, id string, meta models.LoginRequest) (*models.User, error) {
	m.approvedID = id
	return m.user, m.err
}

func (m *userServiceMock) CreateInstituteUser(ctx context.Context, actor *models.JWTClaims, req dto.CreateInstituteUserRequest, meta models.LoginRequest) (*models.User, error) {
	return m.user, m.err
}

func (m *userServiceMock) ListInstituteUsers(ctx context.Context, actor *models.JWTClaims, page, pageSize int) ([]models.User, *models.Pagination, error) {
	return m.users, nil, m.err
}

func TestUserHandlerRegister(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &userServiceMock{user: &models.User{ID: "u-1", Role: models.RoleAdmin}}
	handler := NewUserHandler(svc)

	c, w := newGinContext(http.MethodPost, "/users/register", []byte(`{"instituteName":"Test Institute","email":"a@b.edu"}`))
	handler.Register(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), "awaiting superadmin approval")
}

func TestUserHandlerRegisterConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewUserHandler(&userServiceMock{err: appErrors.Clone(appErrors.ErrConflict, "email already registered")})

	c, w := newGinContext(http.MethodPost, "/users/register", []byte(`{}`))
	handler.Register(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestUserHandlerPendingUsesPaging(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &userServiceMock{users: []models.User{{ID: "u-1"}}}
	handler := NewUserHandler(svc)

	c, w := newGinContext(http.MethodGet, "/users/pending?page=3&page_size=5", nil)
	withUser(c, "root", models.RoleSuperAdmin)

	handler.Pending(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 3, svc.page)
	require.Equal(t, 5, svc.pageSize)
}

func TestUserHandlerApprove(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &userServiceMock{user: &models.User{ID: "u-1", Approved: true}}
	handler := NewUserHandler(svc)

	c, w := newGinContext(http.MethodPut, "/users/u-1/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: "u-1"}}
	withUser(c, "root", models.RoleSuperAdmin)

	handler.Approve(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "u-1", svc.approvedID)
}

func TestUserHandlerCreateRequiresUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewUserHandler(&userServiceMock{})

	c, w := newGinContext(http.MethodPost, "/users", []byte(`{}`))
	handler.Create(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/accrediflow-api/internal/models"
	appErrors "github.com/noah-isme/accrediflow-api/pkg/errors"
)

type authServiceMock struct {
	loginReq     models.LoginRequest
	loginErr     error
	loggedOut    string
	logoutUserID string
}

func (m *authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	m.loginReq = req
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return &models.LoginResponse{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (m *authServiceMock) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	return &models.RefreshTokenResponse{AccessToken: "access-2", RefreshToken: "refresh-2"}, nil
}

func (m *authServiceMock) Logout(ctx context.Context, refreshToken string, userID string, meta models.LoginRequest) error {
	m.loggedOut = refreshToken
	m.logoutUserID = userID
	return nil
}

func TestAuthHandlerLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &authServiceMock{}
	handler := NewAuthHandler(svc)

	c, w := newGinContext(http.MethodPost, "/users/login", []byte(`{"email":"hod@test.edu","password":"secret","role":"hod"}`))
	c.Request.Header.Set("User-Agent", "handler-test")

	handler.Login(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, models.RoleHOD, svc.loginReq.Role)
	require.Equal(t, "handler-test", svc.loginReq.UserAgent)
}

func TestAuthHandlerLoginPendingApproval(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&authServiceMock{loginErr: appErrors.ErrPendingApproval})

	c, w := newGinContext(http.MethodPost, "/users/login", []byte(`{"email":"admin@test.edu","password":"secret"}`))
	handler.Login(c)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "ACCOUNT_PENDING_APPROVAL", errorCodeOf(t, w))
}

func TestAuthHandlerLogout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &authServiceMock{}
	handler := NewAuthHandler(svc)

	c, _ := newGinContext(http.MethodPost, "/auth/logout", []byte(`{"refresh_token":"refresh"}`))
	withUser(c, "user-1", models.RoleFaculty)

	handler.Logout(c)
	require.Equal(t, http.StatusNoContent, c.Writer.Status())
	require.Equal(t, "refresh", svc.loggedOut)
	require.Equal(t, "user-1", svc.logoutUserID)
}

func TestAuthHandlerMe(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&authServiceMock{})

	c, w := newGinContext(http.MethodGet, "/auth/me", nil)
	withUser(c, "user-1", models.RoleCoordinator)

	handler.Me(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"institute_name":"Test Institute"`)
}

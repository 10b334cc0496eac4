package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/accrediflow-api/internal/dto"
	"github.com/noah-isme/accrediflow-api/internal/models"
	appErrors "github.com/noah-isme/accrediflow-api/pkg/errors"
	"github.com/noah-isme/accrediflow-api/pkg/response"
)

type userService interface {
	Register(ctx context.Context, req dto.RegisterRequest, meta models.LoginRequest) (*models.User, error)
	ListPendingAdmins(ctx context.Context, actor *models.JWTClaims, page, pageSize int) ([]models.User, *models.Pagination, error)
	ApproveUser(ctx context.Context, actor *models.JWTClaims, id string, meta models.LoginRequest) (*models.User, error)
	CreateInstituteUser(ctx context.Context, actor *models.JWTClaims, req dto.CreateInstituteUserRequest, meta models.LoginRequest) (*models.User, error)
	ListInstituteUsers(ctx context.Context, actor *models.JWTClaims, page, pageSize int) ([]models.User, *models.Pagination, error)
}

// UserHandler handles registration and account provisioning.
type UserHandler struct {
	service userService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc userService) *UserHandler {
	return &UserHandler{service: svc}
}

// Register godoc
// @Summary Register an institute
// @Description Creates an institute admin account that waits for superadmin approval
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body dto.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /users/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	user, err := h.service.Register(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.RegisterResponse{
		Message: "registration received; awaiting superadmin approval",
		User:    user,
	})
}

// Pending godoc
// @Summary List admins awaiting approval
// @Tags Users
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users/pending [get]
func (h *UserHandler) Pending(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	page := pageQuery(c, 20)

	users, pagination, err := h.service.ListPendingAdmins(c.Request.Context(), claims, page.Page, page.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, users, pagination)
}

// Approve godoc
// @Summary Approve an institute admin
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id}/approve [put]
func (h *UserHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	user, err := h.service.ApproveUser(c.Request.Context(), claims, c.Param("id"), requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, user, nil)
}

// Create godoc
// @Summary Provision an institute account
// @Description Admins create coordinator, hod and faculty accounts inside their institute
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body dto.CreateInstituteUserRequest true "User payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateInstituteUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid user payload"))
		return
	}

	user, err := h.service.CreateInstituteUser(c.Request.Context(), claims, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, user)
}

// List godoc
// @Summary List institute accounts
// @Tags Users
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	page := pageQuery(c, 20)

	users, pagination, err := h.service.ListInstituteUsers(c.Request.Context(), claims, page.Page, page.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, users, pagination)
}

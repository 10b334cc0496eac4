package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/accrediflow-api/internal/dto"
	"github.com/noah-isme/accrediflow-api/internal/models"
	"github.com/noah-isme/accrediflow-api/internal/repository"
	appErrors "github.com/noah-isme/accrediflow-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Approve(ctx context.Context, id string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UserService handles institute onboarding and staff provisioning.
type UserService struct {
	repo       userRepository
	validator  *validator.Validate
	logger     *zap.Logger
	bcryptCost int
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &UserService{repo: repo, validator: validate, logger: logger, bcryptCost: bcrypt.DefaultCost}
}

// Register signs up an institute admin. The account stays unapproved until a
// superadmin approves it.
func (s *UserService) Register(ctx context.Context, req dto.RegisterRequest, meta models.LoginRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	user := &models.User{
		Name:              strings.TrimSpace(req.Name),
		Email:             strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:             strings.TrimSpace(req.Phone),
		Role:              models.RoleAdmin,
		Approved:          false,
		InstituteName:     strings.TrimSpace(req.InstituteName),
		InstituteType:     strings.TrimSpace(req.InstituteType),
		AccreditationBody: strings.TrimSpace(req.AccreditationBody),
		EmailDomain:       strings.TrimSpace(req.EmailDomain),
	}
	if err := s.create(ctx, user, req.Password); err != nil {
		return nil, err
	}
	s.audit(ctx, user.ID, models.AuditActionRegister, user, nil, map[string]interface{}{"email": user.Email, "institute": user.InstituteName}, meta)
	return user, nil
}

// ListPendingAdmins returns institute admins awaiting approval.
func (s *UserService) ListPendingAdmins(ctx context.Context, actor *models.JWTClaims, page, pageSize int) ([]models.User, *models.Pagination, error) {
	if err := requireRole(actor, models.RoleSuperAdmin); err != nil {
		return nil, nil, err
	}
	role := models.RoleAdmin
	approved := false
	return s.list(ctx, models.UserFilter{Role: &role, Approved: &approved, Page: page, PageSize: pageSize})
}

// ApproveUser opens the login gate for a pending account. Approving an already
// approved account is a no-op.
func (s *UserService) ApproveUser(ctx context.Context, actor *models.JWTClaims, id string, meta models.LoginRequest) (*models.User, error) {
	if err := requireRole(actor, models.RoleSuperAdmin); err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.Approved {
		return user, nil
	}
	if err := s.repo.Approve(ctx, id); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve user")
	}
	user.Approved = true
	s.audit(ctx, actor.UserID, models.AuditActionUserApprove, user,
		map[string]interface{}{"approved": false}, map[string]interface{}{"approved": true}, meta)
	return user, nil
}

// CreateInstituteUser provisions a coordinator, HOD or faculty account inside
// the admin's institute. Such accounts are approved on creation.
func (s *UserService) CreateInstituteUser(ctx context.Context, actor *models.JWTClaims, req dto.CreateInstituteUserRequest, meta models.LoginRequest) (*models.User, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	createdBy := actor.UserID
	user := &models.User{
		Name:          strings.TrimSpace(req.Name),
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:         strings.TrimSpace(req.Phone),
		Role:          req.Role,
		Approved:      true,
		InstituteName: actor.InstituteName,
		CreatedBy:     &createdBy,
	}
	if err := s.create(ctx, user, req.Password); err != nil {
		return nil, err
	}
	s.audit(ctx, actor.UserID, models.AuditActionUserCreate, user, nil,
		map[string]interface{}{"id": user.ID, "email": user.Email, "role": user.Role}, meta)
	return user, nil
}

// ListInstituteUsers returns every account in the admin's institute.
func (s *UserService) ListInstituteUsers(ctx context.Context, actor *models.JWTClaims, page, pageSize int) ([]models.User, *models.Pagination, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, nil, err
	}
	return s.list(ctx, models.UserFilter{InstituteName: actor.InstituteName, Page: page, PageSize: pageSize})
}

func (s *UserService) create(ctx context.Context, user *models.User, password string) error {
	if _, err := s.repo.FindByEmail(ctx, user.Email); err == nil {
		return appErrors.Clone(appErrors.ErrConflict, "user with this email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	user.PasswordHash = string(hash)

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return appErrors.Clone(appErrors.ErrConflict, "user with this email already exists")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}
	return nil
}

func (s *UserService) list(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	if users == nil {
		users = []models.User{}
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return users, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

func (s *UserService) audit(ctx context.Context, actorID, action string, target *models.User, oldValues, newValues map[string]interface{}, meta models.LoginRequest) {
	entry := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "users",
		ResourceID: &target.ID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if oldValues != nil {
		entry.OldValues, _ = json.Marshal(oldValues)
	}
	if newValues != nil {
		entry.NewValues, _ = json.Marshal(newValues)
	}
	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record user audit log", zap.String("action", action), zap.Error(err))
	}
}

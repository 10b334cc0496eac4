package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/accrediflow-api/internal/models"
)

var userColumnNames = []string{"id", "name", "email", "phone", "password_hash", "role", "approved", "institute_name", "institute_type", "accreditation_body", "email_domain", "created_by", "created_at", "updated_at"}

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(userColumnNames).
		AddRow("1", "Admin", "admin@x.edu", "", "hash", string(models.RoleAdmin), true, "X", "University", "NAAC", "x.edu", nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1")).
		WithArgs("admin@x.edu").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), " admin@x.edu ")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.Equal(t, "X", user.InstituteName)
	assert.Nil(t, user.CreatedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.User{Email: "dup@x.edu", Role: models.RoleFaculty})
	require.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET approved = TRUE")).
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET approved = TRUE")).
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Approve(context.Background(), "u1"))
	require.ErrorIs(t, repo.Approve(context.Background(), "u1"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRefreshToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateRefreshToken(context.Background(), &models.RefreshToken{ID: "1", UserID: "u1", Token: "token", ExpiresAt: time.Now(), CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsersByInstitute(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	creator := "admin-1"
	rows := sqlmock.NewRows(userColumnNames).
		AddRow("2", "Hod", "hod@x.edu", "", "hash", string(models.RoleHOD), true, "X", "", "", "", creator, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE 1=1 AND institute_name = $1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("X").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE 1=1 AND institute_name = $1")).
		WithArgs("X").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	users, total, err := repo.List(context.Background(), models.UserFilter{InstituteName: "X"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, 1, total)
	require.NotNil(t, users[0].CreatedBy)
	assert.Equal(t, creator, *users[0].CreatedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))
	entry := &models.AuditLog{Action: models.AuditActionDocumentDecision, Resource: "document"}
	require.NoError(t, repo.CreateAuditLog(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

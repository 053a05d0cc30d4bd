package postgres_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalconseils/chefsocial-auth/internal/auth/domain"
	"github.com/cardinalconseils/chefsocial-auth/internal/auth/repository/postgres"
	autherror "github.com/cardinalconseils/chefsocial-auth/internal/errors"
)

func newUserRepoMock(t *testing.T) (pgxmock.PgxPoolIface, *postgres.UserRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, postgres.NewUserRepository(mock)
}

func TestUserGetByEmail(t *testing.T) {
	mock, repo := newUserRepoMock(t)

	now := time.Now()
	rows := pgxmock.NewRows([]string{"id", "email", "password_hash", "role", "status", "created_at", "updated_at"}).
		AddRow("user-1", "test@example.com", "hashed", "user", "active", now, now)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash, role, status, created_at, updated_at")).
		WithArgs("test@example.com").
		WillReturnRows(rows)

	user, err := repo.GetByEmail(context.Background(), "test@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, "test@example.com", user.Email)
	assert.Equal(t, domain.UserStatusActive, user.Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByEmailNotFound(t *testing.T) {
	mock, repo := newUserRepoMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash")).
		WithArgs("ghost@example.com").
		WillReturnError(pgx.ErrNoRows)

	user, err := repo.GetByEmail(context.Background(), "ghost@example.com")
	require.NoError(t, err)
	assert.Nil(t, user)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreate(t *testing.T) {
	mock, repo := newUserRepoMock(t)

	now := time.Now()
	user := &domain.User{
		ID:           "user-1",
		Email:        "new@example.com",
		PasswordHash: "hashed",
		Role:         "user",
		Status:       domain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs(user.ID, user.Email, user.PasswordHash, user.Role, user.Status, now, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), user))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	mock, repo := newUserRepoMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &domain.User{ID: "user-1", Email: "taken@example.com"})
	assert.ErrorIs(t, err, autherror.ErrEmailAlreadyInUse)

	assert.NoError(t, mock.ExpectationsWereMet())
}

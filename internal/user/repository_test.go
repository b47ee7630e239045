// AngelaMos | 2026
// repository_test.go

package user

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nthalt/user-api/internal/core"
)

var columns = []string{
	"id", "username", "email", "first_name", "last_name", "password_hash",
	"role", "is_active", "created_at", "updated_at",
	"password_reset_token", "password_reset_expiration",
}

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestRepository_Create(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("alice", "alice@example.com", "Alice", "Smith", "hash", RoleUser, true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(42), now, now))

	u := &User{
		Username:     "alice",
		Email:        "alice@example.com",
		FirstName:    "Alice",
		LastName:     "Smith",
		PasswordHash: "hash",
		Role:         RoleUser,
		IsActive:     true,
	}
	require.NoError(t, repo.Create(context.Background(), u))

	assert.Equal(t, int64(42), u.ID)
	assert.Equal(t, now, u.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CreateMapsUniqueViolations(t *testing.T) {
	tests := []struct {
		constraint string
		want       error
	}{
		{"users_username_key", core.ErrUsernameTaken},
		{"users_email_key", core.ErrEmailTaken},
		{"users_password_reset_token_key", core.ErrDuplicateKey},
	}

	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			repo, mock := newMockRepo(t)

			mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tt.constraint})

			err := repo.Create(context.Background(), &User{Username: "a", Email: "a@b.co"})
			assert.ErrorIs(t, err, core.ErrDuplicateKey)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRepository_CreateOtherErrorsPassThrough(t *testing.T) {
	repo, mock := newMockRepo(t)
	boom := errors.New("connection reset")

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).WillReturnError(boom)

	err := repo.Create(context.Background(), &User{})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, core.ErrDuplicateKey)
}

func TestRepository_GetByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			int64(7), "bob", "bob@example.com", "Bob", "Jones", "hash",
			RoleAdmin, true, now, now, nil, nil,
		))

	u, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Username)
	assert.True(t, u.IsAdmin())
	assert.Nil(t, u.PasswordResetToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRepository_GetByIDForUpdateLocksRow(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.GetByIDForUpdate(context.Background(), 3)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateMapsDuplicateEmail(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users")).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	err := repo.Update(context.Background(), &User{ID: 1})
	assert.ErrorIs(t, err, core.ErrEmailTaken)
}

func TestRepository_DeleteMissing(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 5)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRepository_ListWithSearch(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE (username ILIKE $1")).
		WithArgs(`%al\_ice%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("LIMIT $2 OFFSET $3")).
		WithArgs(`%al\_ice%`, 10, 10).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			int64(1), "al_ice", "alice@example.com", "Alice", "Smith", "hash",
			RoleUser, true, now, now, nil, nil,
		))

	users, total, err := repo.List(context.Background(), ListUsersParams{
		Page:     2,
		PageSize: 10,
		Search:   "al_ice",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, "al_ice", users[0].Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Exists(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)")).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	found, err := repo.ExistsByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = repo.ExistsByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
}

func TestRepository_CountByRole(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY role")).
		WillReturnRows(sqlmock.NewRows([]string{"role", "count"}).AddRow(RoleUser, 4))

	counts, err := repo.CountByRole(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{RoleAdmin: 0, RoleUser: 4}, counts)
}

func TestSQLTxRunner_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()

	run := SQLTxRunner(sqlx.NewDb(db, "sqlmock"))
	err = run(context.Background(), func(Repository) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLTxRunner_Commits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users")).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	run := SQLTxRunner(sqlx.NewDb(db, "sqlmock"))
	err = run(context.Background(), func(r Repository) error {
		return r.Delete(context.Background(), 2)
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

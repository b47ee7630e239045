// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/nthalt/user-api/internal/core"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, params ListUsersParams) ([]User, int, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	CountByRole(ctx context.Context) (map[string]int, error)
}

// TxRunner runs fn against a Repository bound to a single transaction.
type TxRunner func(ctx context.Context, fn func(Repository) error) error

func SQLTxRunner(db *sqlx.DB) TxRunner {
	return func(ctx context.Context, fn func(Repository) error) error {
		return core.InTx(ctx, db, func(tx *sqlx.Tx) error {
			return fn(NewRepository(tx))
		})
	}
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const userColumns = `id, username, email, first_name, last_name, password_hash,
	role, is_active, created_at, updated_at,
	password_reset_token, password_reset_expiration`

func (r *repository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (username, email, first_name, last_name,
		                   password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		user.Role,
		user.IsActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", mapWriteError(err))
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByIDForUpdate locks the row until the surrounding transaction ends.
func (r *repository) GetByIDForUpdate(ctx context.Context, id int64) (*User, error) {
	return r.getOne(ctx, "id = $1 FOR UPDATE", id)
}

func (r *repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getOne(ctx, "username = $1", username)
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, "email = $1", email)
}

func (r *repository) getOne(ctx context.Context, cond string, arg any) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, "SELECT "+userColumns+" FROM users WHERE "+cond, arg)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("get user where %s: %w", cond, core.ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("get user where %s: %w", cond, err)
	}
	return &u, nil
}

func (r *repository) Update(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET username = $2, email = $3, first_name = $4, last_name = $5,
		    role = $6, is_active = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &user.UpdatedAt, query,
		user.ID,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Role,
		user.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update user: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update user: %w", mapWriteError(err))
	}

	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete user: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) List(ctx context.Context, params ListUsersParams) ([]User, int, error) {
	params.Normalize()

	where, args := searchFilter(params.Search)

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM users WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf("SELECT %s FROM users WHERE %s ORDER BY id LIMIT $%d OFFSET $%d",
		userColumns, where, n+1, n+2)
	args = append(args, params.PageSize, params.Offset())

	users := []User{}
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// searchFilter matches term case-insensitively against the name and
// contact columns. LIKE wildcards in term are taken literally.
func searchFilter(term string) (string, []any) {
	if term == "" {
		return "TRUE", nil
	}

	cols := []string{"username", "email", "first_name", "last_name"}
	conds := make([]string, len(cols))
	for i, c := range cols {
		conds[i] = c + " ILIKE $1"
	}
	return "(" + strings.Join(conds, " OR ") + ")", []any{"%" + escapeLike(term) + "%"}
}

func (r *repository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username", username)
}

func (r *repository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email", email)
}

// exists only takes column names from this file, never user input.
func (r *repository) exists(ctx context.Context, column, value string) (bool, error) {
	var found bool
	query := "SELECT EXISTS(SELECT 1 FROM users WHERE " + column + " = $1)"
	if err := r.db.GetContext(ctx, &found, query, value); err != nil {
		return false, fmt.Errorf("check %s exists: %w", column, err)
	}
	return found, nil
}

func (r *repository) CountByRole(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Role  string `db:"role"`
		Count int    `db:"count"`
	}

	query := `SELECT role, COUNT(*) AS count FROM users GROUP BY role`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count users by role: %w", err)
	}

	counts := map[string]int{RoleAdmin: 0, RoleUser: 0}
	for _, row := range rows {
		counts[row.Role] = row.Count
	}

	return counts, nil
}

// mapWriteError turns unique violations into the duplicate sentinels,
// keyed on the constraint names from the users migration.
func mapWriteError(err error) error {
	constraint, ok := core.UniqueViolation(err)
	if !ok {
		return err
	}

	switch constraint {
	case "users_username_key":
		return fmt.Errorf("%w: %w", core.ErrDuplicateKey, core.ErrUsernameTaken)
	case "users_email_key":
		return fmt.Errorf("%w: %w", core.ErrDuplicateKey, core.ErrEmailTaken)
	default:
		return core.ErrDuplicateKey
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

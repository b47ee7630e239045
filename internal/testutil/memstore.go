// AngelaMos | 2026
// memstore.go

package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nthalt/user-api/internal/auth"
	"github.com/nthalt/user-api/internal/core"
	"github.com/nthalt/user-api/internal/user"
)

// MemStore is an in-memory users table. It enforces the same unique
// constraints as the migration, so duplicate inserts fail the way the
// Postgres repository does. Transactions are serialized and roll back by
// restoring a snapshot.
type MemStore struct {
	txMu sync.Mutex

	mu     sync.Mutex
	users  map[int64]*user.User
	nextID int64
	now    func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		users:  make(map[int64]*user.User),
		nextID: 1,
		now:    time.Now,
	}
}

func (m *MemStore) UserTx() user.TxRunner {
	return func(ctx context.Context, fn func(user.Repository) error) error {
		return m.inTx(func() error { return fn(m) })
	}
}

func (m *MemStore) AuthTx() auth.TxRunner {
	return func(ctx context.Context, fn func(auth.Repository) error) error {
		return m.inTx(func() error { return fn(m) })
	}
}

func (m *MemStore) inTx(fn func() error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snapshot := m.snapshot()
	if err := fn(); err != nil {
		m.mu.Lock()
		m.users = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *MemStore) snapshot() map[int64]*user.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[int64]*user.User, len(m.users))
	for id, u := range m.users {
		out[id] = cloneUser(u)
	}
	return out
}

func (m *MemStore) Create(ctx context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkUnique(u, 0); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	now := m.now()
	u.ID = m.nextID
	u.CreatedAt = now
	u.UpdatedAt = now
	m.nextID++

	m.users[u.ID] = cloneUser(u)
	return nil
}

func (m *MemStore) GetByID(ctx context.Context, id int64) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
}

func (m *MemStore) GetByIDForUpdate(ctx context.Context, id int64) (*user.User, error) {
	return m.GetByID(ctx, id)
}

func (m *MemStore) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return m.find("get user by username", func(u *user.User) bool {
		return u.Username == username
	})
}

func (m *MemStore) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return m.find("get user by email", func(u *user.User) bool {
		return u.Email == email
	})
}

func (m *MemStore) find(op string, match func(*user.User) bool) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
}

func (m *MemStore) Update(ctx context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.users[u.ID]
	if !ok {
		return fmt.Errorf("update user: %w", core.ErrNotFound)
	}

	if err := m.checkUnique(u, u.ID); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	stored.Username = u.Username
	stored.Email = u.Email
	stored.FirstName = u.FirstName
	stored.LastName = u.LastName
	stored.Role = u.Role
	stored.IsActive = u.IsActive
	stored.UpdatedAt = m.now()
	u.UpdatedAt = stored.UpdatedAt
	return nil
}

func (m *MemStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return fmt.Errorf("delete user: %w", core.ErrNotFound)
	}
	delete(m.users, id)
	return nil
}

func (m *MemStore) List(
	ctx context.Context,
	params user.ListUsersParams,
) ([]user.User, int, error) {
	params.Normalize()
	search := strings.ToLower(params.Search)

	m.mu.Lock()
	matched := make([]user.User, 0, len(m.users))
	for _, u := range m.users {
		if search == "" || containsFold(u, search) {
			matched = append(matched, *cloneUser(u))
		}
	}
	m.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := len(matched)
	start := min(params.Offset(), total)
	end := min(start+params.PageSize, total)

	return matched[start:end], total, nil
}

func (m *MemStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := m.GetByUsername(ctx, username)
	return err == nil, nil
}

func (m *MemStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	return err == nil, nil
}

func (m *MemStore) CountByRole(ctx context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := map[string]int{user.RoleAdmin: 0, user.RoleUser: 0}
	for _, u := range m.users {
		counts[u.Role]++
	}
	return counts, nil
}

func (m *MemStore) SetResetToken(
	ctx context.Context,
	userID int64,
	token string,
	expiresAt time.Time,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, u := range m.users {
		if id != userID && u.PasswordResetToken != nil && *u.PasswordResetToken == token {
			return fmt.Errorf("set reset token: %w", core.ErrDuplicateKey)
		}
	}

	u, ok := m.users[userID]
	if !ok {
		return fmt.Errorf("set reset token: %w", core.ErrNotFound)
	}

	u.PasswordResetToken = &token
	u.PasswordResetExpiration = &expiresAt
	return nil
}

func (m *MemStore) FindByResetToken(ctx context.Context, token string) (*auth.ResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.PasswordResetToken != nil && *u.PasswordResetToken == token {
			tok := *u.PasswordResetToken
			exp := *u.PasswordResetExpiration
			return &auth.ResetToken{
				UserID:    u.ID,
				Email:     u.Email,
				Token:     &tok,
				ExpiresAt: &exp,
			}, nil
		}
	}
	return nil, fmt.Errorf("find reset token: %w", core.ErrNotFound)
}

func (m *MemStore) ClearResetToken(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return fmt.Errorf("clear reset token: %w", core.ErrNotFound)
	}
	u.PasswordResetToken = nil
	u.PasswordResetExpiration = nil
	return nil
}

func (m *MemStore) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = m.now()
	return nil
}

// User returns a copy of the stored row, or nil.
func (m *MemStore) User(id int64) *user.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[id]; ok {
		return cloneUser(u)
	}
	return nil
}

// ExpireResetToken moves the user's reset expiration into the past.
func (m *MemStore) ExpireResetToken(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[id]; ok && u.PasswordResetExpiration != nil {
		past := m.now().Add(-time.Second)
		u.PasswordResetExpiration = &past
	}
}

// SetActive flips is_active directly, bypassing the service layer.
func (m *MemStore) SetActive(id int64, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[id]; ok {
		u.IsActive = active
	}
}

// checkUnique must be called with mu held.
func (m *MemStore) checkUnique(u *user.User, self int64) error {
	for id, other := range m.users {
		if id == self {
			continue
		}
		if other.Username == u.Username {
			return fmt.Errorf("%w: %w", core.ErrDuplicateKey, core.ErrUsernameTaken)
		}
		if other.Email == u.Email {
			return fmt.Errorf("%w: %w", core.ErrDuplicateKey, core.ErrEmailTaken)
		}
	}
	return nil
}

func containsFold(u *user.User, needle string) bool {
	for _, field := range []string{u.Username, u.Email, u.FirstName, u.LastName} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func cloneUser(u *user.User) *user.User {
	c := *u
	if u.PasswordResetToken != nil {
		tok := *u.PasswordResetToken
		c.PasswordResetToken = &tok
	}
	if u.PasswordResetExpiration != nil {
		exp := *u.PasswordResetExpiration
		c.PasswordResetExpiration = &exp
	}
	return &c
}

var (
	_ user.Repository = (*MemStore)(nil)
	_ auth.Repository = (*MemStore)(nil)
)

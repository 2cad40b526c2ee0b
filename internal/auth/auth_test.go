package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]*core.User
	cats  map[string][]core.Category
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]*core.User{}, cats: map[string][]core.Category{}}
}

func (m *memUsers) CreateUser(_ context.Context, u *core.User, cats []core.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return core.Conflictf("email already exists")
	}
	u.ID = "id-" + u.Email
	m.users[u.Email] = u
	m.cats[u.ID] = cats
	return nil
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (*core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[strings.ToLower(email)]; ok {
		return u, nil
	}
	return nil, core.NotFoundf("user not found")
}

func (m *memUsers) GetUserByID(_ context.Context, id string) (*core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, core.NotFoundf("user not found")
}

func TestTokenManager(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	user := &core.User{ID: "u1", Email: "a@example.com"}

	token, err := m.Generate(user)
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewTokenManager("other", time.Hour).Validate(token)
		assert.True(t, errors.Is(err, core.ErrUnauthenticated))
	})

	t.Run("expired", func(t *testing.T) {
		later := NewTokenManager("secret", time.Hour)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.Validate(token)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("missing", func(t *testing.T) {
		_, err := m.Validate("")
		assert.True(t, errors.Is(err, ErrMissingToken))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Validate("not.a.token")
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})
}

func TestPasswordAuthenticator(t *testing.T) {
	ctx := context.Background()
	store := newMemUsers()
	a := NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)

	user, err := a.Register(ctx, " Alice@Example.com ", "Alice", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "correct-horse", user.PasswordHash)
	assert.Len(t, store.cats[user.ID], 15, "default categories are seeded")

	_, err = a.Register(ctx, "alice@example.com", "Again", "correct-horse")
	assert.True(t, errors.Is(err, ErrEmailExists))

	cases := []struct {
		name, email, who, pass string
		want                   error
	}{
		{"weak password", "b@example.com", "B", "short", ErrWeakPassword},
		{"bad email", "nope", "B", "longenough", ErrInvalidEmail},
		{"empty name", "b@example.com", " ", "longenough", core.ErrEmptyName},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := a.Register(ctx, tc.email, tc.who, tc.pass)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
			assert.True(t, errors.Is(err, core.ErrValidation))
		})
	}

	got, err := a.Authenticate(ctx, "alice@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = a.Authenticate(ctx, "alice@example.com", "wrong-password")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))

	_, err = a.Authenticate(ctx, "nobody@example.com", "whatever1")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"fintrack/internal/core"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = fmt.Errorf("%w: incorrect email or password", core.ErrUnauthenticated)
	ErrWeakPassword       = fmt.Errorf("%w: password must be at least 8 characters", core.ErrValidation)
	ErrInvalidEmail       = fmt.Errorf("%w: invalid email address", core.ErrValidation)
	ErrEmailExists        = fmt.Errorf("%w: email already registered", core.ErrConflict)
)

// UserStorage is the persistence the authenticator needs.
type UserStorage interface {
	CreateUser(ctx context.Context, user *core.User, categories []core.Category) error
	GetUserByEmail(ctx context.Context, email string) (*core.User, error)
	GetUserByID(ctx context.Context, id string) (*core.User, error)
}

// PasswordAuthenticator registers and authenticates users with bcrypt
// hashed passwords.
type PasswordAuthenticator struct {
	storage UserStorage
	cost    int
}

func NewPasswordAuthenticator(storage UserStorage) *PasswordAuthenticator {
	return &PasswordAuthenticator{storage: storage, cost: bcrypt.DefaultCost}
}

// WithCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (a *PasswordAuthenticator) WithCost(cost int) *PasswordAuthenticator {
	a.cost = cost
	return a
}

func (a *PasswordAuthenticator) ValidateCredential(credential string) error {
	if len(credential) < 8 {
		return ErrWeakPassword
	}
	return nil
}

// Register creates the account and seeds its default categories.
func (a *PasswordAuthenticator) Register(ctx context.Context, email, name, credential string) (*core.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, core.ErrEmptyName
	}
	if err := a.ValidateCredential(credential); err != nil {
		return nil, err
	}

	if existing, err := a.storage.GetUserByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrEmailExists
	} else if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(credential), a.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &core.User{Email: email, Name: name, PasswordHash: string(hashed)}
	if err := a.storage.CreateUser(ctx, user, core.DefaultCategories()); err != nil {
		if errors.Is(err, core.ErrConflict) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate checks the email and password.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, email, credential string) (*core.User, error) {
	user, err := a.storage.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(credential)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// User loads an authenticated user by id.
func (a *PasswordAuthenticator) User(ctx context.Context, id string) (*core.User, error) {
	return a.storage.GetUserByID(ctx, id)
}

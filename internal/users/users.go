// internal/users/users.go
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/packduel/packduel/internal/auth"
	"github.com/packduel/packduel/internal/models"
	"github.com/packduel/packduel/internal/store"
)

const usersCollection = "users"

// ErrEmailTaken is returned when registering with an email that exists.
var ErrEmailTaken = errors.New("email address is already in use")

// Service persists user accounts in the shared document store and issues
// session tokens. Account balances live in the ledger, not here.
type Service struct {
	store store.Store
}

func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// Create registers a new user with an argon2id-hashed password.
func (s *Service) Create(ctx context.Context, email, password, username string) (*models.User, error) {
	var existing models.User
	err := s.store.FindOne(ctx, usersCollection, store.Filter{store.Eq("email", email)}, &existing)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, store.ErrNoDocument) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &models.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  hash,
		Username:  username,
		CreatedAt: time.Now(),
	}
	if err := s.store.Insert(ctx, usersCollection, user); err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}

// GetByID fetches one user.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := s.store.FindOne(ctx, usersCollection, store.Filter{store.Eq("userId", id)}, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Authenticate verifies credentials and returns a signed session token.
func (s *Service) Authenticate(ctx context.Context, email, password string) (string, error) {
	var u models.User
	err := s.store.FindOne(ctx, usersCollection, store.Filter{store.Eq("email", email)}, &u)
	if err != nil {
		return "", fmt.Errorf("user not found or store error: %w", err)
	}
	match, err := auth.VerifyPassword(password, u.Password)
	if err != nil || !match {
		return "", fmt.Errorf("invalid credentials")
	}
	token, err := auth.CreateJWT(u.ID.String())
	if err != nil {
		return "", fmt.Errorf("failed to create jwt: %w", err)
	}
	return token, nil
}

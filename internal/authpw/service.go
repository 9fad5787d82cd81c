// Package authpw provides email/password authentication.
package authpw

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"campusfind/internal/auth"
	"campusfind/internal/store"
	"campusfind/internal/util"
)

var (
	ErrEmailTaken     = errors.New("email already registered")
	ErrBadCredentials = errors.New("invalid email or password")
	ErrBadResetToken  = errors.New("invalid or expired reset token")
	ErrWeakPassword   = errors.New("password must be at least 8 characters")
	ErrMissingFields  = errors.New("name, email, and password are required")
)

// UserStore is the slice of storage the auth flows need.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByID(ctx context.Context, id string) (store.User, error)
	InsertUser(ctx context.Context, user store.User) error
	UpdateUserPassword(ctx context.Context, userID, passwordHash string) error
	SavePasswordReset(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	ConsumePasswordReset(ctx context.Context, tokenHash string) (store.User, error)
}

type Service struct {
	store    UserStore
	resetTTL time.Duration
}

func NewService(store UserStore) *Service {
	return &Service{store: store, resetTTL: time.Hour}
}

type RegisterRequest struct {
	Name     string
	Email    string
	Password string
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (store.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return store.User{}, ErrMissingFields
	}
	if len(req.Password) < 8 {
		return store.User{}, ErrWeakPassword
	}

	if _, err := s.store.GetUserByEmail(ctx, req.Email); err == nil {
		return store.User{}, ErrEmailTaken
	} else if !store.IsNotFound(err) {
		return store.User{}, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := store.User{
		ID:           util.NewID("usr"),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	if err := s.store.InsertUser(ctx, user); err != nil {
		return store.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (store.User, error) {
	if email == "" || password == "" {
		return store.User{}, ErrBadCredentials
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if store.IsNotFound(err) {
			return store.User{}, ErrBadCredentials
		}
		return store.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return store.User{}, ErrBadCredentials
	}
	return user, nil
}

// RequestPasswordReset issues a reset token for the address. The raw token
// goes out by email and only its hash is stored. An unknown address yields
// an empty token with no error, so the endpoint cannot probe for accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, store.User, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if store.IsNotFound(err) {
			return "", store.User{}, nil
		}
		return "", store.User{}, fmt.Errorf("lookup user: %w", err)
	}

	token, err := generateToken()
	if err != nil {
		return "", store.User{}, fmt.Errorf("generate reset token: %w", err)
	}

	expiresAt := time.Now().Add(s.resetTTL)
	if err := s.store.SavePasswordReset(ctx, auth.HashToken(token), user.ID, expiresAt); err != nil {
		return "", store.User{}, fmt.Errorf("save password reset: %w", err)
	}
	return token, user, nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return ErrBadResetToken
	}
	if len(newPassword) < 8 {
		return ErrWeakPassword
	}

	user, err := s.store.ConsumePasswordReset(ctx, auth.HashToken(token))
	if err != nil {
		if store.IsNotFound(err) {
			return ErrBadResetToken
		}
		return fmt.Errorf("consume password reset: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdateUserPassword(ctx, user.ID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

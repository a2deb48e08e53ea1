package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"homeguard/internal/auth"
	"homeguard/internal/model"
	"homeguard/internal/repository"
)

// AuthResult is returned by Signup and Login.
type AuthResult struct {
	Token string
	Email string
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(c auth.Claims) (string, error)
}

// UserService defines account use cases.
type UserService interface {
	// CreateUser hashes the password and stores a new account. A taken email
	// yields ErrEmailTaken.
	CreateUser(ctx context.Context, email, password string) (*model.User, error)
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	FindUserByID(ctx context.Context, id string) (*model.User, error)
	VerifyPassword(u *model.User, password string) bool
	// RecordLogin stamps last_login with the current time.
	RecordLogin(ctx context.Context, u *model.User) (*model.User, error)

	Signup(ctx context.Context, email, password string) (*AuthResult, error)
	// Login answers ErrInvalidCredentials for both an unknown email and a wrong password.
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	// Profile returns the account with the ids of the files it owns.
	Profile(ctx context.Context, userID string) (*model.UserProfile, error)
}

type userService struct {
	users  repository.UserRepository
	ledger repository.LedgerRepository
	tokens TokenIssuer
	now    func() time.Time
}

// NewUserService constructs a new UserService.
func NewUserService(users repository.UserRepository, ledger repository.LedgerRepository, tokens TokenIssuer) UserService {
	return &userService{users: users, ledger: ledger, tokens: tokens, now: time.Now}
}

func (s *userService) CreateUser(ctx context.Context, email, password string) (*model.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Create(ctx, email, hash)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *userService) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return u, err
}

func (s *userService) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return u, err
}

func (s *userService) VerifyPassword(u *model.User, password string) bool {
	if u == nil {
		return false
	}
	return auth.CheckPassword(u.PasswordHash, password)
}

func (s *userService) RecordLogin(ctx context.Context, u *model.User) (*model.User, error) {
	updated, err := s.users.TouchLastLogin(ctx, u.ID, s.now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return updated, err
}

func (s *userService) Signup(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.CreateUser(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.issue(u)
}

func (s *userService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := s.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.VerifyPassword(u, password) {
		return nil, ErrInvalidCredentials
	}
	u, err = s.RecordLogin(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	return s.issue(u)
}

func (s *userService) issue(u *model.User) (*AuthResult, error) {
	tok, err := s.tokens.Issue(auth.Claims{
		UserID:    u.ID,
		Email:     u.Email,
		LastLogin: u.LastLogin,
	})
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: tok, Email: u.Email}, nil
}

func (s *userService) Profile(ctx context.Context, userID string) (*model.UserProfile, error) {
	u, err := s.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	files, err := s.ledger.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list owned files: %w", err)
	}
	return &model.UserProfile{User: *u, Files: files}, nil
}

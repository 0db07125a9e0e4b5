// Package service contains the business logic layer.
//
// The layering follows the usual shape: handlers parse HTTP and write JSON,
// services enforce the domain rules, repositories talk to storage. Services
// accept primitives and return domain errors (apperror), never HTTP types —
// the handler translates at the boundary.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dayeon-k/examboard/internal/apperror"
	"github.com/dayeon-k/examboard/internal/auth"
	"github.com/dayeon-k/examboard/internal/model"
	"github.com/dayeon-k/examboard/internal/repository"
)

const (
	MaxNameLength     = 50
	MaxNicknameLength = 50
	MinPasswordLength = 8
)

// AuthService handles registration, login and profile maintenance.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the authenticated user with their freshly issued token.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates a new account with the default user role.
//
// Name and email are pre-checked for duplicates so the caller gets a clean
// Conflict with a useful message; the UNIQUE constraints in the repository
// still backstop the race where two registrations slip past the check
// together.
func (s *AuthService) Register(ctx context.Context, name, email, password, nickname string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	nickname = strings.TrimSpace(nickname)

	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if len(name) > MaxNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxNameLength))
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperror.ValidationFailed("email", "a valid email is required")
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if nickname == "" {
		return nil, apperror.ValidationFailed("nickname", "nickname is required")
	}
	if len(nickname) > MaxNicknameLength {
		return nil, apperror.ValidationFailed("nickname",
			fmt.Sprintf("nickname must be %d characters or less", MaxNicknameLength))
	}

	if _, err := s.users.GetUserByName(ctx, name); err == nil {
		return nil, apperror.Conflict("name already in use")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking name %q: %w", name, err)
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict("email already in use")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking email %q: %w", email, err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Nickname:     nickname,
		Role:         model.RoleUser,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user %q: %w", name, err)
	}

	s.logger.Info("user registered",
		slog.Int64("userID", user.ID),
		slog.String("name", user.Name),
	)

	return user, nil
}

// Login authenticates by name and password and issues an access token.
//
// A missing user and a wrong password produce the same Unauthorized error —
// the response must not reveal which half failed.
func (s *AuthService) Login(ctx context.Context, name, password string) (*AuthResult, error) {
	const badCredentials = "invalid name or password"

	user, err := s.users.GetUserByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(badCredentials)
		}
		return nil, fmt.Errorf("service/auth: looking up user %q: %w", name, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Unauthorized(badCredentials)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for user %d: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.Int64("userID", user.ID))

	return &AuthResult{User: user, Token: token}, nil
}

// UpdateProfile changes the user's nickname, the only mutable profile field.
func (s *AuthService) UpdateProfile(ctx context.Context, user *model.User, nickname string) (*model.User, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, apperror.ValidationFailed("nickname", "nickname is required")
	}
	if len(nickname) > MaxNicknameLength {
		return nil, apperror.ValidationFailed("nickname",
			fmt.Sprintf("nickname must be %d characters or less", MaxNicknameLength))
	}

	user.Nickname = nickname
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: updating profile for user %d: %w", user.ID, err)
	}

	return user, nil
}

// ChangePassword verifies the current password before setting the new one.
func (s *AuthService) ChangePassword(ctx context.Context, user *model.User, current, newPassword string) error {
	if err := s.passwords.Verify(user.PasswordHash, current); err != nil {
		return apperror.ValidationFailed("current_password", "current password is incorrect")
	}
	if len(newPassword) < MinPasswordLength {
		return apperror.ValidationFailed("new_password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("service/auth: hashing new password: %w", err)
	}

	user.PasswordHash = hash
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("service/auth: changing password for user %d: %w", user.ID, err)
	}

	s.logger.Info("password changed", slog.Int64("userID", user.ID))
	return nil
}

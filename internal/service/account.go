package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/trashmob-eco/trashmob/internal/apperror"
	"github.com/trashmob-eco/trashmob/internal/model"
	"github.com/trashmob-eco/trashmob/internal/repository"
)

// AccountService answers questions about the caller's own account: the
// profile behind /api/me and whether the caller may use admin endpoints.
type AccountService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewAccountService(users repository.UserRepository, logger *slog.Logger) *AccountService {
	return &AccountService{users: users, logger: logger}
}

// Profile returns the user record for id.
func (s *AccountService) Profile(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if id == uuid.Nil {
		return nil, apperror.ValidationFailed("id", "user ID must not be empty")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/account: fetching user %s: %w", id, err)
	}
	return user, nil
}

// IsSiteAdmin reports whether id belongs to a site administrator. A user
// that does not exist is not an admin.
func (s *AccountService) IsSiteAdmin(ctx context.Context, id uuid.UUID) (bool, error) {
	user, err := s.Profile(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Warn("admin check for unknown user", slog.String("userID", id.String()))
			return false, nil
		}
		return false, err
	}
	return user.IsSiteAdmin, nil
}

package repository

import (
	"context"
	"errors"

	"token-management-backend/internal/features/user/models"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository interface {
	// Create persists the user only if no record exists for the address.
	// It reports whether a new record was written; an existing record is
	// left untouched either way.
	Create(ctx context.Context, user *models.User) (bool, error)
	GetByAddress(ctx context.Context, address string) (*models.User, error)
}

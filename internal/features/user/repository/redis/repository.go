package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"token-management-backend/internal/features/user/models"
	"token-management-backend/internal/features/user/repository"
)

type userRepository struct {
	client *redis.Client
}

func NewUserRepository(client *redis.Client) repository.UserRepository {
	return &userRepository{
		client: client,
	}
}

func userKey(address string) string {
	return fmt.Sprintf("user:%s", strings.ToLower(address))
}

// Create writes the user with SETNX so that a concurrent first login
// cannot rewrite an already assigned role.
func (r *userRepository) Create(ctx context.Context, user *models.User) (bool, error) {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return false, err
	}

	return r.client.SetNX(ctx, userKey(user.WalletAddress), userJSON, 0).Result()
}

func (r *userRepository) GetByAddress(ctx context.Context, address string) (*models.User, error) {
	userJSON, err := r.client.Get(ctx, userKey(address)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, repository.ErrUserNotFound
		}
		return nil, err
	}

	var user models.User
	if err := json.Unmarshal(userJSON, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

package admin

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/himlearning/storyhub/internal/config"
	"github.com/himlearning/storyhub/internal/models"
	"github.com/himlearning/storyhub/internal/modules/auth/user"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// SeedStore is what bootstrapping the first administrator needs.
type SeedStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Insert(ctx context.Context, u *models.User) error
	MarkVerified(ctx context.Context, id primitive.ObjectID) error
}

// Seed creates the configured administrator. When the email is already
// registered the account is only marked verified. It reports whether a new
// account was created.
func Seed(ctx context.Context, users SeedStore, seed config.AdminSeed, defaultAvatar string, log *zap.Logger) (*models.User, bool, error) {
	if log == nil {
		log = zap.NewNop()
	}
	email := strings.ToLower(strings.TrimSpace(seed.Email))
	username := strings.TrimSpace(seed.Username)
	if email == "" || username == "" || seed.Password == "" {
		return nil, false, errors.New("admin username, email and password are required")
	}
	if len(seed.Password) < minPasswordLen {
		return nil, false, errors.New("admin password must be at least 6 characters")
	}

	existing, err := users.FindByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		log.Info("admin already exists",
			zap.String("email", email),
			zap.String("username", existing.Username),
			zap.String("role", string(existing.Role)),
		)
		if !existing.IsEmailVerified {
			if err := users.MarkVerified(ctx, existing.ID); err != nil {
				return nil, false, err
			}
			existing.IsEmailVerified = true
			log.Info("admin email marked verified")
		}
		return existing, false, nil
	}

	hash, err := user.HashPassword(seed.Password)
	if err != nil {
		return nil, false, err
	}
	u := &models.User{
		Username:        username,
		Email:           email,
		Password:        hash,
		Photo:           defaultAvatar,
		Role:            models.RoleAdmin,
		IsEmailVerified: true,
	}
	u.Touch(time.Now())
	if err := users.Insert(ctx, u); err != nil {
		return nil, false, err
	}
	log.Info("admin created", zap.String("email", email), zap.String("username", username))
	return u, true, nil
}

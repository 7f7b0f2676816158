package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"trade-journal/internal/database"
	"trade-journal/internal/logging"
)

// SeedAdmin ensures an admin account exists when ADMIN_USERNAME and
// ADMIN_PASSWORD are configured. Existing accounts are promoted, never
// re-hashed.
func SeedAdmin(ctx context.Context, repo *database.Repository, passwordManager *PasswordManager, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil
	}

	user, err := repo.GetUserByUsername(ctx, username)
	if err == nil {
		if user.IsAdmin {
			return nil
		}
		_, err := repo.GetDB().Pool.Exec(ctx,
			`UPDATE users SET is_admin = TRUE WHERE id = $1`, user.ID)
		if err != nil {
			return fmt.Errorf("failed to promote admin user: %w", err)
		}
		logging.Info("Promoted existing user to admin", "username", username)
		return nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("failed to look up admin user: %w", err)
	}

	passwordHash, err := passwordManager.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &database.User{
		ID:                 uuid.New().String(),
		Username:           username,
		Email:              username + "@local",
		PasswordHash:       passwordHash,
		EmailAlertsEnabled: false,
		IsAdmin:            true,
	}
	if err := repo.CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logging.Info("Seeded admin user", "username", username)
	return nil
}

package test_utils

import (
	"context"
	"testing"
	"time"

	"github.com/fintrack/fintrack/pkg/user"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CreateTestUser inserts a user and returns a context carrying it, the way
// the identity middleware would for an authenticated request.
func CreateTestUser(t *testing.T, db *pgxpool.Pool) context.Context {
	t.Helper()

	// uid and username are random so each test can create its own user.
	repo := user.NewUserRepo(db)
	testUser := user.User{
		Uid:         uuid.NewString(),
		Username:    "test_user_" + uuid.NewString()[:8],
		DisplayName: "Test User",
		Email:       "test_user@example.com",
		Settings: user.Settings{
			Timezone:     "Europe/Warsaw",
			WeekFirstDay: time.Monday,
			Currency:     "EUR",
		},
	}

	id, err := repo.CreateUser(context.Background(), testUser)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	testUser.Id = id

	return user.WithUser(context.Background(), testUser)
}

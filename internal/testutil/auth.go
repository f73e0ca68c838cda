package testutil

import (
	"context"
	"testing"

	"github.com/vrsandeep/podcatch/internal/auth"
	"github.com/vrsandeep/podcatch/internal/models"
	"github.com/vrsandeep/podcatch/internal/store"
)

// CreateUserWithKey creates a user and an API key for it. It returns the user
// and the plaintext key.
func CreateUserWithKey(t *testing.T, st *store.Store, username, role string) (*models.User, string) {
	t.Helper()
	ctx := context.Background()

	user, err := st.CreateUser(ctx, username, role)
	if err != nil {
		t.Fatalf("Failed to create test user '%s': %v", username, err)
	}
	key, prefix, err := auth.GenerateAPIKey()
	if err != nil {
		t.Fatalf("Failed to generate api key: %v", err)
	}
	_, secret, _ := auth.SplitAPIKey(key)
	hash, err := auth.HashSecret(secret)
	if err != nil {
		t.Fatalf("Failed to hash api key: %v", err)
	}
	if err := st.CreateAPIKey(ctx, user.ID, prefix, hash); err != nil {
		t.Fatalf("Failed to store api key: %v", err)
	}
	return user, key
}

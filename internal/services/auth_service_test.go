package services

import (
	"context"
	"testing"

	"challenge-pool/internal/models"
)

func TestLoginCreatesUserWithInitialBalance(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	user, err := env.auth.Login(ctx, "alice", "Alice")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if user.Balance != 1000 {
		t.Errorf("expected initial balance 1000, got %d", user.Balance)
	}
	if user.DisplayName != "Alice" {
		t.Errorf("expected display name Alice, got %s", user.DisplayName)
	}

	var deposit models.Transaction
	err = env.db.Where("user_id = ? AND type = ?", user.ID, models.TransactionTypeDeposit).First(&deposit).Error
	if err != nil {
		t.Fatalf("expected welcome deposit entry: %v", err)
	}
	if deposit.Amount != 1000 {
		t.Errorf("expected deposit 1000, got %d", deposit.Amount)
	}
}

func TestLoginExistingUser(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	first, err := env.auth.Login(ctx, "alice", "Alice")
	if err != nil {
		t.Fatalf("first login failed: %v", err)
	}

	// Spend some coins so a second login can't be a re-create.
	if err := env.db.Model(&models.User{}).Where("id = ?", first.ID).Update("balance", 400).Error; err != nil {
		t.Fatalf("failed to update balance: %v", err)
	}

	second, err := env.auth.Login(ctx, "alice", "Someone Else")
	if err != nil {
		t.Fatalf("second login failed: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("expected same user, got %d and %d", first.ID, second.ID)
	}
	if second.Balance != 400 {
		t.Errorf("expected balance 400, got %d", second.Balance)
	}
	if second.DisplayName != "Alice" {
		t.Errorf("login must not overwrite display name, got %s", second.DisplayName)
	}
}

func TestLoginDefaultsDisplayName(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.auth.Login(context.Background(), "bob", "")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.DisplayName != "bob" {
		t.Errorf("expected display name to default to username, got %s", user.DisplayName)
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"challenge-pool/internal/models"
	"challenge-pool/internal/repository"

	"gorm.io/gorm"
)

// AuthService handles authentication business logic
type AuthService struct {
	repo           *repository.Repository
	initialBalance int64
}

// NewAuthService creates a new AuthService
func NewAuthService(repo *repository.Repository, initialBalance int64) *AuthService {
	return &AuthService{
		repo:           repo,
		initialBalance: initialBalance,
	}
}

// Login finds or creates a user by username. New accounts receive the
// configured starting balance, recorded as a deposit in the ledger.
func (s *AuthService) Login(ctx context.Context, username, displayName string) (*models.User, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err == nil {
		log.Printf("User logged in: %s (ID: %d)", username, user.ID)
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	if displayName == "" {
		displayName = username
	}

	user = &models.User{
		Username:    username,
		DisplayName: displayName,
		Balance:     s.initialBalance,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// Concurrent signup with the same username; the row exists now.
			return s.repo.GetUserByUsername(ctx, username)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if s.initialBalance > 0 {
		tx := &models.Transaction{
			UserID:      user.ID,
			Type:        models.TransactionTypeDeposit,
			Amount:      s.initialBalance,
			Description: "Welcome bonus",
			CreatedAt:   time.Now(),
		}
		if err := s.repo.CreateTransaction(ctx, tx); err != nil {
			log.Printf("Warning: failed to record welcome deposit for user %d: %v", user.ID, err)
		}
	}

	log.Printf("New user created: %s (ID: %d)", username, user.ID)
	return user, nil
}

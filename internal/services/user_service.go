package services

import (
	"context"
	"errors"
	"fmt"

	"challenge-pool/internal/models"
	"challenge-pool/internal/repository"

	"gorm.io/gorm"
)

// UserService handles user-related business logic
type UserService struct {
	repo *repository.Repository
}

// NewUserService creates a new UserService
func NewUserService(repo *repository.Repository) *UserService {
	return &UserService{repo: repo}
}

// GetProfile retrieves a user with their challenge aggregates
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*models.User, *models.UserStatistics, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}

	stats, err := s.repo.GetUserStatistics(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get statistics: %w", err)
	}

	return user, stats, nil
}

// GetTransactions retrieves a user's coin ledger
func (s *UserService) GetTransactions(ctx context.Context, userID uint, limit, offset int) ([]*models.Transaction, error) {
	return s.repo.GetUserTransactions(ctx, userID, limit, offset)
}

// GetStatistics retrieves a user's challenge aggregates
func (s *UserService) GetStatistics(ctx context.Context, userID uint) (*models.UserStatistics, error) {
	return s.repo.GetUserStatistics(ctx, userID)
}

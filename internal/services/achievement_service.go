package services

import (
	"context"
	"fmt"
	"log"

	"challenge-pool/internal/models"
	"challenge-pool/internal/repository"
)

const (
	AchievementFirstJoin       = "first_join"
	AchievementFirstCompletion = "first_completion"
	AchievementFirstWin        = "first_win"
)

var achievementCatalog = []models.Achievement{
	{ID: AchievementFirstJoin, Title: "In the Game", Description: "Join your first challenge", Icon: "🎯"},
	{ID: AchievementFirstCompletion, Title: "Finisher", Description: "Reach 100% on a challenge", Icon: "🏁"},
	{ID: AchievementFirstWin, Title: "Winner Winner", Description: "Win your first stake pool", Icon: "🏆"},
}

// AchievementService handles the achievement catalog and unlocks
type AchievementService struct {
	repo          *repository.Repository
	notifications *NotificationService
}

func NewAchievementService(repo *repository.Repository, notifications *NotificationService) *AchievementService {
	return &AchievementService{
		repo:          repo,
		notifications: notifications,
	}
}

// Seed inserts the achievement catalog (idempotent)
func (s *AchievementService) Seed(ctx context.Context) error {
	if err := s.repo.SeedAchievements(ctx, achievementCatalog); err != nil {
		return fmt.Errorf("failed to seed achievements: %w", err)
	}
	return nil
}

// Unlock records an achievement for a user and notifies on first unlock.
// Repeated unlocks are no-ops.
func (s *AchievementService) Unlock(ctx context.Context, userID uint, achievementID string) error {
	unlocked, err := s.repo.UnlockAchievement(ctx, userID, achievementID)
	if err != nil {
		return fmt.Errorf("failed to unlock achievement: %w", err)
	}

	if !unlocked {
		return nil
	}

	var title string
	for _, a := range achievementCatalog {
		if a.ID == achievementID {
			title = a.Title
			break
		}
	}

	if err := s.notifications.Notify(ctx, userID,
		"Achievement unlocked",
		fmt.Sprintf("You earned %q", title),
		models.NotificationAchievement,
	); err != nil {
		log.Printf("[Achievements] Warning: failed to notify user %d: %v", userID, err)
	}

	return nil
}

// ListForUser retrieves the catalog plus the user's unlocks
func (s *AchievementService) ListForUser(ctx context.Context, userID uint) ([]*models.Achievement, []*models.UserAchievement, error) {
	catalog, err := s.repo.ListAchievements(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list achievements: %w", err)
	}

	unlocks, err := s.repo.GetUserAchievements(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get unlocks: %w", err)
	}

	return catalog, unlocks, nil
}

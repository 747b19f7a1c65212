package services

import (
	"context"
	"fmt"
	"time"

	"challenge-pool/internal/models"
	"challenge-pool/internal/repository"

	"github.com/google/uuid"
)

// NotificationService handles in-app notifications. Delivery is best-effort:
// callers on the settlement path log failures and move on.
type NotificationService struct {
	repo *repository.Repository
}

func NewNotificationService(repo *repository.Repository) *NotificationService {
	return &NotificationService{repo: repo}
}

// Notify creates a notification for a user
func (s *NotificationService) Notify(
	ctx context.Context,
	userID uint,
	title string,
	message string,
	category models.NotificationCategory,
) error {
	n := &models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Category:  category,
		CreatedAt: time.Now(),
	}

	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// List retrieves a user's notifications with the unread count
func (s *NotificationService) List(ctx context.Context, userID uint, limit, offset int) ([]*models.Notification, int64, error) {
	notifications, err := s.repo.GetUserNotifications(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get notifications: %w", err)
	}

	unread, err := s.repo.CountUnreadNotifications(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return notifications, unread, nil
}

// MarkRead marks one notification as read
func (s *NotificationService) MarkRead(ctx context.Context, notificationID uuid.UUID, userID uint) error {
	return s.repo.MarkNotificationRead(ctx, notificationID, userID)
}

// MarkAllRead marks all of a user's notifications as read
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) error {
	return s.repo.MarkAllNotificationsRead(ctx, userID)
}

package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationCategory string

const (
	NotificationChallenge   NotificationCategory = "challenge"
	NotificationAchievement NotificationCategory = "achievement"
	NotificationSystem      NotificationCategory = "system"
)

// Notification represents an in-app notification for a user
type Notification struct {
	ID        uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uint                 `gorm:"not null;index" json:"user_id"`
	Title     string               `gorm:"size:255;not null" json:"title"`
	Message   string               `gorm:"type:text" json:"message"`
	Category  NotificationCategory `gorm:"size:50;not null;default:system" json:"category"`
	IsRead    bool                 `gorm:"not null;default:false;index" json:"is_read"`
	CreatedAt time.Time            `gorm:"index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

package models

import "time"

// Achievement is one entry in the seeded achievement catalog
type Achievement struct {
	ID          string    `gorm:"primaryKey;size:50" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Icon        string    `gorm:"size:50" json:"icon"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Achievement) TableName() string {
	return "achievements"
}

// UserAchievement records an unlocked achievement for a user
type UserAchievement struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;uniqueIndex:idx_user_achievement" json:"user_id"`
	AchievementID string    `gorm:"size:50;not null;uniqueIndex:idx_user_achievement" json:"achievement_id"`
	UnlockedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"unlocked_at"`
}

func (UserAchievement) TableName() string {
	return "user_achievements"
}

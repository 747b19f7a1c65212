package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a user in the system
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"uniqueIndex;not null;size:255" json:"username"`
	DisplayName string    `gorm:"size:255" json:"display_name"`
	AvatarURL   *string   `gorm:"size:500" json:"avatar_url,omitempty"`
	Balance     int64     `gorm:"not null;default:0" json:"balance"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// UserStatistics represents per-user challenge aggregates
type UserStatistics struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	UserID              uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	ChallengesJoined    int64           `gorm:"default:0" json:"challenges_joined"`
	ChallengesCompleted int64           `gorm:"default:0" json:"challenges_completed"`
	ChallengesWon       int64           `gorm:"default:0" json:"challenges_won"`
	TotalStaked         int64           `gorm:"default:0" json:"total_staked"`
	TotalWon            int64           `gorm:"default:0" json:"total_won"`
	WinRate             decimal.Decimal `gorm:"type:decimal(5,2);default:0" json:"win_rate"`
	UpdatedAt           time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName specifies the table name for UserStatistics model
func (UserStatistics) TableName() string {
	return "user_statistics"
}

package models

import (
	"time"

	"github.com/google/uuid"
)

type ChallengeCategory string

const (
	CategoryFitness      ChallengeCategory = "fitness"
	CategoryLearning     ChallengeCategory = "learning"
	CategoryProductivity ChallengeCategory = "productivity"
	CategoryHealth       ChallengeCategory = "health"
	CategoryFinance      ChallengeCategory = "finance"
	CategoryOther        ChallengeCategory = "other"
)

type ChallengeType string

const (
	TypeAccumulative ChallengeType = "accumulative"
	TypeStreak       ChallengeType = "streak"
	TypeCompletion   ChallengeType = "completion"
)

// ChallengeState is derived from the stored timestamps and completion flag,
// never persisted.
type ChallengeState string

const (
	StateUpcoming         ChallengeState = "UPCOMING"
	StateActive           ChallengeState = "ACTIVE"
	StateExpiredUnsettled ChallengeState = "EXPIRED_UNSETTLED"
	StateCompleted        ChallengeState = "COMPLETED"
)

// Challenge represents a time-boxed goal with a fixed per-participant stake
type Challenge struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string            `gorm:"size:255;not null" json:"title"`
	Description string            `gorm:"type:text" json:"description"`
	Category    ChallengeCategory `gorm:"size:50;not null;default:other;index" json:"category"`
	Type        ChallengeType     `gorm:"size:50;not null;default:completion" json:"type"`
	Stake       int64             `gorm:"not null" json:"stake"`
	Target      int64             `gorm:"not null" json:"target"`
	Unit        string            `gorm:"size:50" json:"unit"`
	StartDate   time.Time         `gorm:"not null" json:"start_date"`
	EndDate     time.Time         `gorm:"not null;index" json:"end_date"`
	IsPublic    bool              `gorm:"not null;default:true;index" json:"is_public"`
	CreatorID   uint              `gorm:"not null;index" json:"creator_id"`
	IsCompleted bool              `gorm:"not null;default:false;index" json:"is_completed"`
	CreatedAt   time.Time         `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	Participants []Participant `gorm:"foreignKey:ChallengeID" json:"participants,omitempty"`
}

func (Challenge) TableName() string {
	return "challenges"
}

// State derives the lifecycle state from the completion flag and timestamps.
// Completion is the only persisted transition; everything else follows the
// clock.
func (c *Challenge) State(now time.Time) ChallengeState {
	if c.IsCompleted {
		return StateCompleted
	}
	if now.Before(c.StartDate) {
		return StateUpcoming
	}
	if now.After(c.EndDate) {
		return StateExpiredUnsettled
	}
	return StateActive
}

// Participant represents one user's membership and progress in a challenge
type Participant struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ChallengeID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_participants_challenge_user" json:"challenge_id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_participants_challenge_user;index" json:"user_id"`
	Username    string    `gorm:"size:255" json:"username"`
	Progress    int       `gorm:"not null;default:0" json:"progress"`
	IsCompleted bool      `gorm:"not null;default:false" json:"is_completed"`
	JoinedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"joined_at"`
	LastUpdated time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"last_updated"`
}

func (Participant) TableName() string {
	return "participants"
}

// ProgressEntry is a per-day progress snapshot. Later writes on the same day
// overwrite the earlier value.
type ProgressEntry struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ParticipantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_progress_participant_day" json:"participant_id"`
	Day           string    `gorm:"size:10;not null;uniqueIndex:idx_progress_participant_day" json:"day"`
	Value         int       `gorm:"not null" json:"value"`
	CreatedAt     time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (ProgressEntry) TableName() string {
	return "progress_entries"
}

// SettlementResult stores the one-time outcome of settling a challenge
type SettlementResult struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ChallengeID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"challenge_id"`
	TotalPool       int64     `gorm:"not null" json:"total_pool"`
	WinnerCount     int       `gorm:"not null" json:"winner_count"`
	RewardPerWinner int64     `gorm:"not null" json:"reward_per_winner"`
	Remainder       int64     `gorm:"not null;default:0" json:"remainder"`
	ForfeitedPool   int64     `gorm:"not null;default:0" json:"forfeited_pool"`
	CompletedAt     time.Time `gorm:"not null" json:"completed_at"`
}

func (SettlementResult) TableName() string {
	return "settlement_results"
}

// InviteCode grants access to a private challenge
type InviteCode struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ChallengeID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"challenge_id"`
	Code        string    `gorm:"uniqueIndex;not null;size:50" json:"code"`
	CreatedAt   time.Time `json:"created_at"`
}

func (InviteCode) TableName() string {
	return "invite_codes"
}

// CreateChallengeRequest represents a request to create a new challenge
type CreateChallengeRequest struct {
	Title       string            `json:"title" binding:"required"`
	Description string            `json:"description"`
	Category    ChallengeCategory `json:"category"`
	Type        ChallengeType     `json:"type"`
	Stake       int64             `json:"stake" binding:"required,gt=0"`
	Target      int64             `json:"target" binding:"required,gt=0"`
	Unit        string            `json:"unit"`
	StartDate   time.Time         `json:"start_date" binding:"required"`
	EndDate     time.Time         `json:"end_date" binding:"required"`
	IsPublic    *bool             `json:"is_public"`
	Join        bool              `json:"join"`
}

// UpdateChallengeRequest represents a creator-only challenge update
type UpdateChallengeRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	EndDate     *time.Time `json:"end_date"`
}

// RecordProgressRequest represents a self-reported progress update
type RecordProgressRequest struct {
	Value int `json:"value" binding:"min=0,max=100"`
}

// JoinByCodeRequest represents a join attempt via invite code
type JoinByCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// SettlementWinner is one credited winner, persisted with the settlement
// result so later reads serve the stored list instead of recomputing it from
// live participant rows
type SettlementWinner struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	SettlementID uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	UserID       uint      `gorm:"not null" json:"user_id"`
	Username     string    `gorm:"size:255" json:"username"`
	Reward       int64     `gorm:"not null" json:"reward"`
}

func (SettlementWinner) TableName() string {
	return "settlement_winners"
}

// SettlementOutcome is the settlement result plus the winners list
type SettlementOutcome struct {
	Result  *SettlementResult  `json:"result"`
	Winners []SettlementWinner `json:"winners"`
}

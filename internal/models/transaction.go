package models

import (
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TransactionTypeDeposit TransactionType = "deposit"
	TransactionTypeStake   TransactionType = "stake"
	TransactionTypeReward  TransactionType = "reward"
	TransactionTypeForfeit TransactionType = "forfeit"
)

// Transaction represents a virtual coin ledger entry. UserID 0 marks house
// entries (forfeited pools, rounding remainders).
type Transaction struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	Type        TransactionType `gorm:"size:50;not null;index" json:"type"`
	Amount      int64           `gorm:"not null" json:"amount"`
	Description string          `gorm:"type:text" json:"description"`
	ChallengeID *uuid.UUID      `gorm:"type:uuid;index" json:"challenge_id,omitempty"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for Transaction model
func (Transaction) TableName() string {
	return "transactions"
}

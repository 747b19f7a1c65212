package models

import (
	"time"

	"github.com/google/uuid"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationApproved VerificationStatus = "APPROVED"
	VerificationRejected VerificationStatus = "REJECTED"
)

type ProofType string

const (
	ProofTypeImage ProofType = "image"
	ProofTypeText  ProofType = "text"
)

// Verification represents a proof submission awaiting validation. Approval
// feeds the verified value back into the progress-mutation path.
type Verification struct {
	ID            uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	ChallengeID   uuid.UUID          `gorm:"type:uuid;not null;index" json:"challenge_id"`
	ParticipantID uuid.UUID          `gorm:"type:uuid;not null;index" json:"participant_id"`
	UserID        uint               `gorm:"not null;index" json:"user_id"`
	ProofURL      string             `gorm:"size:500;not null" json:"proof_url"`
	ProofType     ProofType          `gorm:"size:50;not null" json:"proof_type"`
	Value         int                `gorm:"not null" json:"value"`
	Status        VerificationStatus `gorm:"size:50;not null;default:PENDING;index" json:"status"`
	Confidence    float64            `gorm:"type:decimal(5,4);default:0" json:"confidence"`
	StatusReason  string             `gorm:"size:255" json:"status_reason"`
	CreatedAt     time.Time          `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	VerifiedAt    *time.Time         `json:"verified_at,omitempty"`
}

func (Verification) TableName() string {
	return "verifications"
}

// SubmitProofRequest represents a proof submission
type SubmitProofRequest struct {
	ChallengeID uuid.UUID `json:"challenge_id" binding:"required"`
	ProofURL    string    `json:"proof_url" binding:"required"`
	ProofType   ProofType `json:"proof_type" binding:"required"`
	Value       int       `json:"value" binding:"min=0,max=100"`
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"challenge-pool/internal/models"
	"challenge-pool/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// confidenceThreshold is the minimum validator confidence for approval.
const confidenceThreshold = 0.6

// ProofValidator scores a proof submission. Implementations return a
// confidence in [0,1] and a human-readable reason.
type ProofValidator interface {
	Validate(ctx context.Context, v *models.Verification) (float64, string, error)
}

// MockValidator is the built-in deterministic validator. Image proofs score
// higher than text proofs; an empty proof URL always fails.
type MockValidator struct{}

func (MockValidator) Validate(_ context.Context, v *models.Verification) (float64, string, error) {
	if strings.TrimSpace(v.ProofURL) == "" {
		return 0, "empty proof", nil
	}

	switch v.ProofType {
	case models.ProofTypeImage:
		return 0.9, "image proof accepted", nil
	case models.ProofTypeText:
		return 0.8, "text proof accepted", nil
	default:
		return 0, fmt.Sprintf("unsupported proof type %q", v.ProofType), nil
	}
}

// VerificationService handles proof submissions. Approved proofs feed the
// verified value back through the regular progress-mutation path.
type VerificationService struct {
	repo       *repository.Repository
	challenges *ChallengeService
	validator  ProofValidator
}

func NewVerificationService(
	repo *repository.Repository,
	challenges *ChallengeService,
	validator ProofValidator,
) *VerificationService {
	if validator == nil {
		validator = MockValidator{}
	}
	return &VerificationService{
		repo:       repo,
		challenges: challenges,
		validator:  validator,
	}
}

// SubmitProof records a pending verification and kicks off validation in the
// background. The caller gets the PENDING row back immediately.
func (s *VerificationService) SubmitProof(ctx context.Context, userID uint, req *models.SubmitProofRequest) (*models.Verification, error) {
	challenge, err := s.challenges.GetChallenge(ctx, req.ChallengeID)
	if err != nil {
		return nil, err
	}
	if challenge.IsCompleted {
		return nil, ErrChallengeClosed
	}

	participant, err := s.repo.GetParticipant(ctx, req.ChallengeID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotAParticipant
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}

	verification := &models.Verification{
		ID:            uuid.New(),
		ChallengeID:   req.ChallengeID,
		ParticipantID: participant.ID,
		UserID:        userID,
		ProofURL:      req.ProofURL,
		ProofType:     req.ProofType,
		Value:         req.Value,
		Status:        models.VerificationPending,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.CreateVerification(ctx, verification); err != nil {
		return nil, fmt.Errorf("failed to create verification: %w", err)
	}

	go s.process(verification.ID)

	return verification, nil
}

// GetVerification retrieves a submission. Users only see their own.
func (s *VerificationService) GetVerification(ctx context.Context, verificationID uuid.UUID, userID uint) (*models.Verification, error) {
	verification, err := s.repo.GetVerificationByID(ctx, verificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotAParticipant
		}
		return nil, fmt.Errorf("failed to get verification: %w", err)
	}
	if verification.UserID != userID {
		return nil, ErrNotAParticipant
	}
	return verification, nil
}

// process runs in its own goroutine with a fresh context; the submitting
// request has usually already returned.
func (s *VerificationService) process(verificationID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.Process(ctx, verificationID); err != nil {
		log.Printf("[Verification] Error processing %s: %v", verificationID, err)
	}
}

// Process validates a pending submission and, on approval, records the
// verified value as progress. Exposed for synchronous use in tests.
func (s *VerificationService) Process(ctx context.Context, verificationID uuid.UUID) error {
	verification, err := s.repo.GetVerificationByID(ctx, verificationID)
	if err != nil {
		return fmt.Errorf("failed to get verification: %w", err)
	}
	if verification.Status != models.VerificationPending {
		return nil
	}

	confidence, reason, err := s.validator.Validate(ctx, verification)
	if err != nil {
		return fmt.Errorf("validator error: %w", err)
	}

	status := models.VerificationRejected
	if confidence >= confidenceThreshold {
		status = models.VerificationApproved
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":        status,
		"confidence":    confidence,
		"status_reason": reason,
		"verified_at":   now,
	}
	if err := s.repo.UpdateVerification(ctx, verificationID, updates); err != nil {
		return fmt.Errorf("failed to update verification: %w", err)
	}

	log.Printf("[Verification] %s %s (confidence %.2f)", verificationID, status, confidence)

	if status != models.VerificationApproved {
		return nil
	}

	if _, err := s.challenges.RecordProgress(ctx, verification.ChallengeID, verification.UserID, verification.Value); err != nil {
		// Progress rules still apply to verified values. A proof for a
		// value at or below the current one approves without moving it.
		if errors.Is(err, ErrInvalidProgress) || errors.Is(err, ErrChallengeClosed) {
			log.Printf("[Verification] %s approved but progress unchanged: %v", verificationID, err)
			return nil
		}
		return fmt.Errorf("failed to record verified progress: %w", err)
	}

	return nil
}

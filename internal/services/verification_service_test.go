package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"challenge-pool/internal/models"

	"github.com/google/uuid"
)

// waitForVerdict polls until the async validator has processed the submission
func waitForVerdict(t *testing.T, env *testEnv, verificationID uuid.UUID) *models.Verification {
	t.Helper()
	ctx := context.Background()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		v, err := env.repo.GetVerificationByID(ctx, verificationID)
		if err != nil {
			t.Fatalf("failed to get verification: %v", err)
		}
		if v.Status != models.VerificationPending {
			return v
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatal("verification stayed pending")
	return nil
}

func TestSubmitProofApproved(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	creator := env.createUser(t, "alice", 1000)
	user := env.createUser(t, "bob", 200)
	start, end := activeWindow()
	challenge := env.createChallenge(t, creator.ID, 50, start, end)

	if _, err := env.challenges.JoinChallenge(ctx, challenge.ID, user.ID, user.Username); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	submitted, err := env.verification.SubmitProof(ctx, user.ID, &models.SubmitProofRequest{
		ChallengeID: challenge.ID,
		ProofURL:    "https://example.com/run.png",
		ProofType:   models.ProofTypeImage,
		Value:       40,
	})
	if err != nil {
		t.Fatalf("SubmitProof failed: %v", err)
	}
	if submitted.Status != models.VerificationPending {
		t.Errorf("expected PENDING on submit, got %s", submitted.Status)
	}

	verdict := waitForVerdict(t, env, submitted.ID)
	if verdict.Status != models.VerificationApproved {
		t.Fatalf("expected APPROVED, got %s (%s)", verdict.Status, verdict.StatusReason)
	}
	if verdict.Confidence < 0.6 {
		t.Errorf("expected confidence above threshold, got %f", verdict.Confidence)
	}

	participant, err := env.repo.GetParticipant(ctx, challenge.ID, user.ID)
	if err != nil {
		t.Fatalf("failed to get participant: %v", err)
	}
	if participant.Progress != 40 {
		t.Errorf("expected verified progress 40, got %d", participant.Progress)
	}
}

func TestSubmitProofRejected(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	creator := env.createUser(t, "alice", 1000)
	user := env.createUser(t, "bob", 200)
	start, end := activeWindow()
	challenge := env.createChallenge(t, creator.ID, 50, start, end)

	if _, err := env.challenges.JoinChallenge(ctx, challenge.ID, user.ID, user.Username); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	submitted, err := env.verification.SubmitProof(ctx, user.ID, &models.SubmitProofRequest{
		ChallengeID: challenge.ID,
		ProofURL:    "   ",
		ProofType:   models.ProofTypeImage,
		Value:       40,
	})
	if err != nil {
		t.Fatalf("SubmitProof failed: %v", err)
	}

	verdict := waitForVerdict(t, env, submitted.ID)
	if verdict.Status != models.VerificationRejected {
		t.Fatalf("expected REJECTED, got %s", verdict.Status)
	}

	participant, err := env.repo.GetParticipant(ctx, challenge.ID, user.ID)
	if err != nil {
		t.Fatalf("failed to get participant: %v", err)
	}
	if participant.Progress != 0 {
		t.Errorf("rejected proof must not move progress, got %d", participant.Progress)
	}
}

func TestSubmitProofNotParticipant(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	creator := env.createUser(t, "alice", 1000)
	outsider := env.createUser(t, "mallory", 200)
	start, end := activeWindow()
	challenge := env.createChallenge(t, creator.ID, 50, start, end)

	_, err := env.verification.SubmitProof(ctx, outsider.ID, &models.SubmitProofRequest{
		ChallengeID: challenge.ID,
		ProofURL:    "https://example.com/run.png",
		ProofType:   models.ProofTypeImage,
		Value:       40,
	})
	if !errors.Is(err, ErrNotAParticipant) {
		t.Fatalf("expected ErrNotAParticipant, got %v", err)
	}
}

func TestGetVerificationOwnership(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	creator := env.createUser(t, "alice", 1000)
	user := env.createUser(t, "bob", 200)
	other := env.createUser(t, "carol", 200)
	start, end := activeWindow()
	challenge := env.createChallenge(t, creator.ID, 50, start, end)

	if _, err := env.challenges.JoinChallenge(ctx, challenge.ID, user.ID, user.Username); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	submitted, err := env.verification.SubmitProof(ctx, user.ID, &models.SubmitProofRequest{
		ChallengeID: challenge.ID,
		ProofURL:    "https://example.com/run.png",
		ProofType:   models.ProofTypeImage,
		Value:       40,
	})
	if err != nil {
		t.Fatalf("SubmitProof failed: %v", err)
	}

	if _, err := env.verification.GetVerification(ctx, submitted.ID, user.ID); err != nil {
		t.Errorf("owner should read their submission: %v", err)
	}
	if _, err := env.verification.GetVerification(ctx, submitted.ID, other.ID); !errors.Is(err, ErrNotAParticipant) {
		t.Errorf("expected ErrNotAParticipant for non-owner, got %v", err)
	}
}

func TestMockValidatorScores(t *testing.T) {
	validator := MockValidator{}
	ctx := context.Background()

	cases := []struct {
		name       string
		proof      models.Verification
		confidence float64
	}{
		{"image", models.Verification{ProofURL: "https://x/y.png", ProofType: models.ProofTypeImage}, 0.9},
		{"text", models.Verification{ProofURL: "I did it", ProofType: models.ProofTypeText}, 0.8},
		{"empty", models.Verification{ProofURL: "", ProofType: models.ProofTypeImage}, 0},
		{"unknown type", models.Verification{ProofURL: "https://x/y", ProofType: "video"}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			confidence, _, err := validator.Validate(ctx, &tc.proof)
			if err != nil {
				t.Fatalf("Validate failed: %v", err)
			}
			if confidence != tc.confidence {
				t.Errorf("expected confidence %f, got %f", tc.confidence, confidence)
			}
		})
	}
}

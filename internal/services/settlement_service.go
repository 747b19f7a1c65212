package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"challenge-pool/internal/models"
	"challenge-pool/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// errAlreadySettled signals that a concurrent caller won the completion-flag
// compare-and-set. Never surfaced; the loser re-reads the stored result.
var errAlreadySettled = errors.New("already settled")

// SettlementService converts a challenge's final progress values into a
// reward distribution, exactly once per challenge.
type SettlementService struct {
	repo          *repository.Repository
	notifications *NotificationService
	achievements  *AchievementService
}

func NewSettlementService(
	repo *repository.Repository,
	notifications *NotificationService,
	achievements *AchievementService,
) *SettlementService {
	return &SettlementService{
		repo:          repo,
		notifications: notifications,
		achievements:  achievements,
	}
}

// Settle freezes an expired challenge and distributes the stake pool.
//
// Winners are the participants at exactly 100%. The pool is every
// participant's stake; each winner gets floor(pool/winners). The integer
// remainder and, with zero winners, the whole pool go to the house ledger.
// Settling an already-completed challenge returns the stored result
// unchanged. Settling before the end date fails with ErrNotYetExpired.
func (s *SettlementService) Settle(ctx context.Context, challengeID uuid.UUID) (*models.SettlementOutcome, error) {
	challenge, err := s.repo.GetChallengeByID(ctx, challengeID)
	if err != nil {
		return nil, challengeLoadError(err)
	}

	switch challenge.State(time.Now()) {
	case models.StateCompleted:
		return s.storedOutcome(ctx, challengeID)
	case models.StateUpcoming, models.StateActive:
		return nil, ErrNotYetExpired
	}

	var (
		result       *models.SettlementResult
		winnerRows   []models.SettlementWinner
		participants []*models.Participant
	)

	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		flipped, err := tx.MarkChallengeCompleted(ctx, challengeID)
		if err != nil {
			return fmt.Errorf("failed to mark challenge completed: %w", err)
		}
		if !flipped {
			return errAlreadySettled
		}

		// Winners are read inside the transaction, after the flip, so a
		// progress write racing the settlement cannot change who is paid.
		participants, err = tx.ListParticipants(ctx, challengeID)
		if err != nil {
			return fmt.Errorf("failed to list participants: %w", err)
		}

		var winners []*models.Participant
		for _, p := range participants {
			if p.Progress == 100 {
				winners = append(winners, p)
			}
		}

		totalPool := challenge.Stake * int64(len(participants))
		var rewardPerWinner, remainder, forfeited int64
		if len(winners) > 0 {
			rewardPerWinner = totalPool / int64(len(winners))
			remainder = totalPool % int64(len(winners))
		} else {
			forfeited = totalPool
		}

		now := time.Now()
		result = &models.SettlementResult{
			ID:              uuid.New(),
			ChallengeID:     challengeID,
			TotalPool:       totalPool,
			WinnerCount:     len(winners),
			RewardPerWinner: rewardPerWinner,
			Remainder:       remainder,
			ForfeitedPool:   forfeited,
			CompletedAt:     now,
		}

		for _, w := range winners {
			if err := tx.CreditBalance(ctx, w.UserID, rewardPerWinner); err != nil {
				return fmt.Errorf("failed to credit winner %d: %w", w.UserID, err)
			}

			ledger := &models.Transaction{
				UserID:      w.UserID,
				Type:        models.TransactionTypeReward,
				Amount:      rewardPerWinner,
				Description: fmt.Sprintf("Reward for %q", challenge.Title),
				ChallengeID: &challengeID,
				CreatedAt:   now,
			}
			if err := tx.CreateTransaction(ctx, ledger); err != nil {
				return fmt.Errorf("failed to record reward: %w", err)
			}

			if err := tx.IncrementUserStats(ctx, w.UserID, 0, 0, 1, 0, rewardPerWinner); err != nil {
				return fmt.Errorf("failed to update winner stats: %w", err)
			}
		}

		// Forfeited pools and rounding remainders land in the house ledger
		// (user 0) so every coin stays accounted for.
		if house := forfeited + remainder; house > 0 {
			ledger := &models.Transaction{
				UserID:      0,
				Type:        models.TransactionTypeForfeit,
				Amount:      house,
				Description: fmt.Sprintf("Retained pool for %q", challenge.Title),
				ChallengeID: &challengeID,
				CreatedAt:   now,
			}
			if err := tx.CreateTransaction(ctx, ledger); err != nil {
				return fmt.Errorf("failed to record forfeiture: %w", err)
			}
		}

		if err := tx.CreateSettlementResult(ctx, result); err != nil {
			return fmt.Errorf("failed to store settlement result: %w", err)
		}

		winnerRows = make([]models.SettlementWinner, 0, len(winners))
		for _, w := range winners {
			winnerRows = append(winnerRows, models.SettlementWinner{
				ID:           uuid.New(),
				SettlementID: result.ID,
				UserID:       w.UserID,
				Username:     w.Username,
				Reward:       rewardPerWinner,
			})
		}
		return tx.CreateSettlementWinners(ctx, winnerRows)
	})

	if errors.Is(err, errAlreadySettled) {
		return s.storedOutcome(ctx, challengeID)
	}
	if err != nil {
		return nil, err
	}

	log.Printf("[Settlement] Challenge %s settled: pool=%d winners=%d reward=%d remainder=%d forfeited=%d",
		challengeID, result.TotalPool, result.WinnerCount, result.RewardPerWinner, result.Remainder, result.ForfeitedPool)

	s.notifyParticipants(ctx, challenge.Title, participants, winnerRows)

	return &models.SettlementOutcome{
		Result:  result,
		Winners: winnerRows,
	}, nil
}

// SettleExpired settles every expired unsettled challenge, returning how many
// were settled. Used by the background settler.
func (s *SettlementService) SettleExpired(ctx context.Context, limit int) (int, error) {
	expired, err := s.repo.GetExpiredUnsettled(ctx, time.Now(), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired challenges: %w", err)
	}

	settled := 0
	for _, challenge := range expired {
		if _, err := s.Settle(ctx, challenge.ID); err != nil {
			log.Printf("[Settlement] Error settling challenge %s: %v", challenge.ID, err)
			continue
		}
		settled++
	}

	return settled, nil
}

// GetResult retrieves the stored settlement outcome of a completed challenge
func (s *SettlementService) GetResult(ctx context.Context, challengeID uuid.UUID) (*models.SettlementOutcome, error) {
	challenge, err := s.repo.GetChallengeByID(ctx, challengeID)
	if err != nil {
		return nil, challengeLoadError(err)
	}
	if !challenge.IsCompleted {
		return nil, ErrNotYetExpired
	}
	return s.storedOutcome(ctx, challengeID)
}

// storedOutcome serves the outcome of an already-settled challenge from the
// stored result and winner rows. Nothing is recomputed.
func (s *SettlementService) storedOutcome(ctx context.Context, challengeID uuid.UUID) (*models.SettlementOutcome, error) {
	result, err := s.repo.GetSettlementResult(ctx, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement result: %w", err)
	}

	winners, err := s.repo.GetSettlementWinners(ctx, result.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement winners: %w", err)
	}

	return &models.SettlementOutcome{
		Result:  result,
		Winners: winners,
	}, nil
}

// notifyParticipants sends the post-settlement notifications. Failures are
// logged and ignored; the settlement already committed.
func (s *SettlementService) notifyParticipants(
	ctx context.Context,
	title string,
	participants []*models.Participant,
	winners []models.SettlementWinner,
) {
	for _, p := range participants {
		if err := s.notifications.Notify(ctx, p.UserID,
			"Challenge completed",
			fmt.Sprintf("%q has ended", title),
			models.NotificationChallenge,
		); err != nil {
			log.Printf("[Settlement] Warning: failed to notify participant %d: %v", p.UserID, err)
		}
	}

	for _, w := range winners {
		if err := s.notifications.Notify(ctx, w.UserID,
			"Reward received",
			fmt.Sprintf("You won %d coins in %q", w.Reward, title),
			models.NotificationChallenge,
		); err != nil {
			log.Printf("[Settlement] Warning: failed to notify winner %d: %v", w.UserID, err)
		}

		if err := s.achievements.Unlock(ctx, w.UserID, AchievementFirstWin); err != nil {
			log.Printf("[Settlement] Warning: achievement unlock failed for user %d: %v", w.UserID, err)
		}
	}
}

func challengeLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrChallengeNotFound
	}
	return fmt.Errorf("failed to get challenge: %w", err)
}

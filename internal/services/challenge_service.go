package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"challenge-pool/internal/models"
	"challenge-pool/internal/repository"
	"challenge-pool/internal/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChallengeService handles challenge lifecycle and participant mutations.
// Every mutation validates its preconditions before touching state and runs
// its side effects in a single transaction.
type ChallengeService struct {
	repo          *repository.Repository
	notifications *NotificationService
	achievements  *AchievementService
}

func NewChallengeService(
	repo *repository.Repository,
	notifications *NotificationService,
	achievements *AchievementService,
) *ChallengeService {
	return &ChallengeService{
		repo:          repo,
		notifications: notifications,
		achievements:  achievements,
	}
}

var validCategories = map[models.ChallengeCategory]bool{
	models.CategoryFitness:      true,
	models.CategoryLearning:     true,
	models.CategoryProductivity: true,
	models.CategoryHealth:       true,
	models.CategoryFinance:      true,
	models.CategoryOther:        true,
}

var validTypes = map[models.ChallengeType]bool{
	models.TypeAccumulative: true,
	models.TypeStreak:       true,
	models.TypeCompletion:   true,
}

// CreateChallenge creates a new challenge. Private challenges get an invite
// code; with req.Join set the creator joins immediately, staking coins like
// any other participant.
func (s *ChallengeService) CreateChallenge(
	ctx context.Context,
	creatorID uint,
	req *models.CreateChallengeRequest,
) (*models.Challenge, error) {
	if req.Stake <= 0 || req.Target <= 0 {
		return nil, ErrInvalidChallenge
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, ErrInvalidChallenge
	}

	category := req.Category
	if category == "" {
		category = models.CategoryOther
	}
	if !validCategories[category] {
		return nil, ErrInvalidChallenge
	}

	challengeType := req.Type
	if challengeType == "" {
		challengeType = models.TypeCompletion
	}
	if !validTypes[challengeType] {
		return nil, ErrInvalidChallenge
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	challenge := &models.Challenge{
		ID:          uuid.New(),
		Title:       req.Title,
		Description: req.Description,
		Category:    category,
		Type:        challengeType,
		Stake:       req.Stake,
		Target:      req.Target,
		Unit:        req.Unit,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		IsPublic:    isPublic,
		CreatorID:   creatorID,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	var invite *models.InviteCode
	if !isPublic {
		code, err := utils.GenerateInviteCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate invite code: %w", err)
		}
		invite = &models.InviteCode{
			ChallengeID: challenge.ID,
			Code:        code,
			CreatedAt:   time.Now(),
		}
	}

	var participant *models.Participant
	if req.Join {
		user, err := s.repo.GetUserByID(ctx, creatorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		participant = newParticipant(challenge.ID, creatorID, user.Username)
	}

	// A failed creator stake rolls the challenge and its invite code back;
	// nothing half-created survives.
	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		if err := tx.CreateChallenge(ctx, challenge); err != nil {
			return fmt.Errorf("failed to create challenge: %w", err)
		}
		if invite != nil {
			if err := tx.CreateInviteCode(ctx, invite); err != nil {
				return fmt.Errorf("failed to store invite code: %w", err)
			}
		}
		if participant != nil {
			return s.stake(ctx, tx, challenge, participant)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Challenges] Created challenge %s (%q) by user %d", challenge.ID, challenge.Title, creatorID)

	if participant != nil {
		if err := s.achievements.Unlock(ctx, creatorID, AchievementFirstJoin); err != nil {
			log.Printf("[Challenges] Warning: achievement unlock failed for user %d: %v", creatorID, err)
		}
	}

	return challenge, nil
}

// JoinChallenge adds a user to a challenge, deducting the stake exactly once.
// The deduction, the participant insert and the ledger entry commit together
// or not at all. The username comes from the caller's token claims.
func (s *ChallengeService) JoinChallenge(
	ctx context.Context,
	challengeID uuid.UUID,
	userID uint,
	username string,
) (*models.Participant, error) {
	challenge, err := s.getChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	switch challenge.State(time.Now()) {
	case models.StateUpcoming, models.StateActive:
		// joinable
	default:
		return nil, ErrChallengeClosed
	}

	if _, err := s.repo.GetParticipant(ctx, challengeID, userID); err == nil {
		return nil, ErrAlreadyJoined
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	participant := newParticipant(challengeID, userID, username)

	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		return s.stake(ctx, tx, challenge, participant)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Challenges] User %d joined challenge %s (stake %d)", userID, challengeID, challenge.Stake)

	if err := s.achievements.Unlock(ctx, userID, AchievementFirstJoin); err != nil {
		log.Printf("[Challenges] Warning: achievement unlock failed for user %d: %v", userID, err)
	}

	return participant, nil
}

// stake deducts the challenge stake and inserts the participant with its
// ledger entry and stats increment. Runs inside the caller's transaction.
func (s *ChallengeService) stake(
	ctx context.Context,
	tx *repository.Repository,
	challenge *models.Challenge,
	participant *models.Participant,
) error {
	deducted, err := tx.DeductBalance(ctx, participant.UserID, challenge.Stake)
	if err != nil {
		return fmt.Errorf("failed to deduct stake: %w", err)
	}
	if !deducted {
		return ErrInsufficientBalance
	}

	if err := tx.CreateParticipant(ctx, participant); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// Concurrent join by the same user; the constraint is the
			// arbiter, the transaction rolls the deduction back.
			return ErrAlreadyJoined
		}
		return fmt.Errorf("failed to create participant: %w", err)
	}

	ledger := &models.Transaction{
		UserID:      participant.UserID,
		Type:        models.TransactionTypeStake,
		Amount:      -challenge.Stake,
		Description: fmt.Sprintf("Stake for %q", challenge.Title),
		ChallengeID: &challenge.ID,
		CreatedAt:   time.Now(),
	}
	if err := tx.CreateTransaction(ctx, ledger); err != nil {
		return fmt.Errorf("failed to record stake: %w", err)
	}

	return tx.IncrementUserStats(ctx, participant.UserID, 1, 0, 0, challenge.Stake, 0)
}

func newParticipant(challengeID uuid.UUID, userID uint, username string) *models.Participant {
	now := time.Now()
	return &models.Participant{
		ID:          uuid.New(),
		ChallengeID: challengeID,
		UserID:      userID,
		Username:    username,
		Progress:    0,
		JoinedAt:    now,
		LastUpdated: now,
	}
}

// JoinByCode joins a private challenge via its invite code
func (s *ChallengeService) JoinByCode(ctx context.Context, code string, userID uint, username string) (*models.Participant, error) {
	invite, err := s.repo.GetInviteCodeByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidInviteCode
		}
		return nil, fmt.Errorf("failed to look up invite code: %w", err)
	}

	return s.JoinChallenge(ctx, invite.ChallengeID, userID, username)
}

// RecordProgress updates a participant's progress. Values must be strictly
// increasing and within [0, 100]; this is enforced here, at the mutation
// boundary, not in any client.
func (s *ChallengeService) RecordProgress(
	ctx context.Context,
	challengeID uuid.UUID,
	userID uint,
	value int,
) (*models.Participant, error) {
	challenge, err := s.getChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	if challenge.IsCompleted {
		return nil, ErrChallengeClosed
	}

	participant, err := s.repo.GetParticipant(ctx, challengeID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotAParticipant
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}

	if value < 0 || value > 100 {
		return nil, ErrInvalidProgress
	}
	if value <= participant.Progress {
		return nil, ErrInvalidProgress
	}

	now := time.Now()
	completed := value == 100

	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		updated, err := tx.UpdateParticipantProgress(ctx, participant.ID, value, completed, now)
		if err != nil {
			return fmt.Errorf("failed to update progress: %w", err)
		}
		if !updated {
			// The challenge settled between the precondition check and this
			// transaction.
			return ErrChallengeClosed
		}

		entry := &models.ProgressEntry{
			ID:            uuid.New(),
			ParticipantID: participant.ID,
			Day:           now.Format("2006-01-02"),
			Value:         value,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.UpsertProgressEntry(ctx, entry); err != nil {
			return fmt.Errorf("failed to record daily snapshot: %w", err)
		}

		if completed {
			return tx.IncrementUserStats(ctx, userID, 0, 1, 0, 0, 0)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	participant.Progress = value
	participant.IsCompleted = completed
	participant.LastUpdated = now

	if completed {
		if err := s.achievements.Unlock(ctx, userID, AchievementFirstCompletion); err != nil {
			log.Printf("[Challenges] Warning: achievement unlock failed for user %d: %v", userID, err)
		}
		if err := s.notifications.Notify(ctx, userID,
			"Challenge complete",
			fmt.Sprintf("You hit 100%% on %q", challenge.Title),
			models.NotificationChallenge,
		); err != nil {
			log.Printf("[Challenges] Warning: failed to notify user %d: %v", userID, err)
		}
	}

	return participant, nil
}

// UpdateChallenge applies a creator-only edit. The end date is frozen once
// any participant has recorded progress, so a shrinking or growing window
// cannot change who wins.
func (s *ChallengeService) UpdateChallenge(
	ctx context.Context,
	challengeID uuid.UUID,
	userID uint,
	req *models.UpdateChallengeRequest,
) (*models.Challenge, error) {
	challenge, err := s.getChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	if challenge.CreatorID != userID {
		return nil, ErrNotCreator
	}
	if challenge.IsCompleted {
		return nil, ErrChallengeClosed
	}

	updates := map[string]interface{}{"updated_at": time.Now()}

	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.EndDate != nil && !req.EndDate.Equal(challenge.EndDate) {
		locked, err := s.repo.HasRecordedProgress(ctx, challengeID)
		if err != nil {
			return nil, fmt.Errorf("failed to check progress: %w", err)
		}
		if locked {
			return nil, ErrEndDateLocked
		}
		if !req.EndDate.After(challenge.StartDate) {
			return nil, ErrInvalidChallenge
		}
		updates["end_date"] = *req.EndDate
	}

	if err := s.repo.UpdateChallengeFields(ctx, challengeID, updates); err != nil {
		return nil, fmt.Errorf("failed to update challenge: %w", err)
	}

	return s.getChallenge(ctx, challengeID)
}

// GetChallenge retrieves a challenge with participants
func (s *ChallengeService) GetChallenge(ctx context.Context, challengeID uuid.UUID) (*models.Challenge, error) {
	return s.getChallenge(ctx, challengeID)
}

// ListPublicChallenges retrieves public challenges with pagination, optionally
// narrowed to one lifecycle state
func (s *ChallengeService) ListPublicChallenges(ctx context.Context, state models.ChallengeState, limit, offset int) ([]*models.Challenge, int64, error) {
	switch state {
	case "", models.StateUpcoming, models.StateActive, models.StateExpiredUnsettled, models.StateCompleted:
	default:
		return nil, 0, ErrInvalidChallenge
	}
	return s.repo.ListPublicChallenges(ctx, state, limit, offset)
}

// ListUserChallenges retrieves the challenges a user created or joined
func (s *ChallengeService) ListUserChallenges(ctx context.Context, userID uint) ([]*models.Challenge, error) {
	return s.repo.ListUserChallenges(ctx, userID)
}

// GetLeaderboard retrieves a challenge's participants in ranking order
func (s *ChallengeService) GetLeaderboard(ctx context.Context, challengeID uuid.UUID) ([]*models.Participant, error) {
	if _, err := s.getChallenge(ctx, challengeID); err != nil {
		return nil, err
	}
	return s.repo.ListParticipants(ctx, challengeID)
}

// GetProgressHistory retrieves a participant's daily snapshots
func (s *ChallengeService) GetProgressHistory(ctx context.Context, challengeID uuid.UUID, userID uint) ([]*models.ProgressEntry, error) {
	participant, err := s.repo.GetParticipant(ctx, challengeID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotAParticipant
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return s.repo.GetProgressEntries(ctx, participant.ID)
}

func (s *ChallengeService) getChallenge(ctx context.Context, challengeID uuid.UUID) (*models.Challenge, error) {
	challenge, err := s.repo.GetChallengeByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return challenge, nil
}

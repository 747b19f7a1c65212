package repository

import (
	"context"
	"errors"
	"time"

	"challenge-pool/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrDuplicateKey is returned when an insert hits a uniqueness constraint.
// Callers map it to their domain error (duplicate join, reused code).
var ErrDuplicateKey = errors.New("duplicate key")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx runs fn inside a database transaction, giving it a Repository bound
// to that transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(txRepo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// isUniqueViolation detects uniqueness-constraint failures from Postgres and
// from the sqlite driver used in tests.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// ============================================================================
// Users
// ============================================================================

// CreateUser creates a new user
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if isUniqueViolation(err) {
		return ErrDuplicateKey
	}
	return err
}

// GetUserByID retrieves a user by ID
func (r *Repository) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// DeductBalance atomically subtracts amount from a user's balance. Returns
// false when the balance is insufficient; the row is left untouched.
func (r *Repository) DeductBalance(ctx context.Context, userID uint, amount int64) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND balance >= ?", userID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CreditBalance atomically adds amount to a user's balance
func (r *Repository) CreditBalance(ctx context.Context, userID uint, amount int64) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", amount)).Error
}

// ============================================================================
// Challenges
// ============================================================================

// CreateChallenge creates a new challenge
func (r *Repository) CreateChallenge(ctx context.Context, challenge *models.Challenge) error {
	return r.db.WithContext(ctx).Create(challenge).Error
}

// GetChallengeByID retrieves a challenge with its participants
func (r *Repository) GetChallengeByID(ctx context.Context, challengeID uuid.UUID) (*models.Challenge, error) {
	var challenge models.Challenge
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("id = ?", challengeID).
		First(&challenge).Error
	if err != nil {
		return nil, err
	}
	return &challenge, nil
}

// UpdateChallengeFields applies a partial update to a challenge
func (r *Repository) UpdateChallengeFields(ctx context.Context, challengeID uuid.UUID, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.Challenge{}).
		Where("id = ?", challengeID).
		Updates(updates).Error
}

// ListPublicChallenges retrieves public challenges, newest first. A non-empty
// state narrows the list; derived states translate to timestamp conditions.
func (r *Repository) ListPublicChallenges(ctx context.Context, state models.ChallengeState, limit, offset int) ([]*models.Challenge, int64, error) {
	scope := func() *gorm.DB {
		q := r.db.WithContext(ctx).Where("is_public = ?", true)
		now := time.Now()
		switch state {
		case models.StateUpcoming:
			q = q.Where("is_completed = ? AND start_date > ?", false, now)
		case models.StateActive:
			q = q.Where("is_completed = ? AND start_date <= ? AND end_date >= ?", false, now, now)
		case models.StateExpiredUnsettled:
			q = q.Where("is_completed = ? AND end_date < ?", false, now)
		case models.StateCompleted:
			q = q.Where("is_completed = ?", true)
		}
		return q
	}

	var total int64
	if err := scope().Model(&models.Challenge{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var challenges []*models.Challenge
	err := scope().
		Preload("Participants").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&challenges).Error
	if err != nil {
		return nil, 0, err
	}

	return challenges, total, nil
}

// ListUserChallenges retrieves all challenges a user participates in or created
func (r *Repository) ListUserChallenges(ctx context.Context, userID uint) ([]*models.Challenge, error) {
	var challenges []*models.Challenge
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("creator_id = ? OR id IN (?)",
			userID,
			r.db.Model(&models.Participant{}).Select("challenge_id").Where("user_id = ?", userID)).
		Order("created_at DESC").
		Find(&challenges).Error
	if err != nil {
		return nil, err
	}
	return challenges, nil
}

// GetExpiredUnsettled retrieves challenges past their end date that have not
// been settled yet
func (r *Repository) GetExpiredUnsettled(ctx context.Context, now time.Time, limit int) ([]*models.Challenge, error) {
	var challenges []*models.Challenge
	err := r.db.WithContext(ctx).
		Where("is_completed = ? AND end_date < ?", false, now).
		Order("end_date ASC").
		Limit(limit).
		Find(&challenges).Error
	if err != nil {
		return nil, err
	}
	return challenges, nil
}

// MarkChallengeCompleted flips the completion flag as a compare-and-set.
// Returns false when the challenge was already completed.
func (r *Repository) MarkChallengeCompleted(ctx context.Context, challengeID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Challenge{}).
		Where("id = ? AND is_completed = ?", challengeID, false).
		Update("is_completed", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// HasRecordedProgress reports whether any participant of a challenge has
// progress above zero
func (r *Repository) HasRecordedProgress(ctx context.Context, challengeID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Participant{}).
		Where("challenge_id = ? AND progress > 0", challengeID).
		Count(&count).Error
	return count > 0, err
}

// ============================================================================
// Participants
// ============================================================================

// CreateParticipant inserts a participant row. A duplicate (challenge, user)
// pair returns ErrDuplicateKey.
func (r *Repository) CreateParticipant(ctx context.Context, participant *models.Participant) error {
	err := r.db.WithContext(ctx).Create(participant).Error
	if isUniqueViolation(err) {
		return ErrDuplicateKey
	}
	return err
}

// GetParticipant retrieves a participant by challenge and user
func (r *Repository) GetParticipant(ctx context.Context, challengeID uuid.UUID, userID uint) (*models.Participant, error) {
	var participant models.Participant
	err := r.db.WithContext(ctx).
		Where("challenge_id = ? AND user_id = ?", challengeID, userID).
		First(&participant).Error
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

// UpdateParticipantProgress updates a participant's progress and completion.
// The update carries its own settlement guard: once the challenge is marked
// completed the row is left untouched and false is returned.
func (r *Repository) UpdateParticipantProgress(ctx context.Context, participantID uuid.UUID, progress int, completed bool, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Participant{}).
		Where("id = ? AND challenge_id IN (?)", participantID,
			r.db.Model(&models.Challenge{}).Select("id").Where("is_completed = ?", false)).
		Updates(map[string]interface{}{
			"progress":     progress,
			"is_completed": completed,
			"last_updated": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListParticipants retrieves participants of a challenge ordered for the
// leaderboard: highest progress first, earliest update breaking ties
func (r *Repository) ListParticipants(ctx context.Context, challengeID uuid.UUID) ([]*models.Participant, error) {
	var participants []*models.Participant
	err := r.db.WithContext(ctx).
		Where("challenge_id = ?", challengeID).
		Order("progress DESC, last_updated ASC").
		Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}

// UpsertProgressEntry writes the per-day snapshot; a later write on the same
// day overwrites the value
func (r *Repository) UpsertProgressEntry(ctx context.Context, entry *models.ProgressEntry) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "participant_id"}, {Name: "day"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      entry.Value,
			"updated_at": entry.UpdatedAt,
		}),
	}).Create(entry).Error
}

// GetProgressEntries retrieves a participant's daily snapshots in day order
func (r *Repository) GetProgressEntries(ctx context.Context, participantID uuid.UUID) ([]*models.ProgressEntry, error) {
	var entries []*models.ProgressEntry
	err := r.db.WithContext(ctx).
		Where("participant_id = ?", participantID).
		Order("day ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ============================================================================
// Settlement
// ============================================================================

// CreateSettlementResult creates a settlement result record
func (r *Repository) CreateSettlementResult(ctx context.Context, result *models.SettlementResult) error {
	return r.db.WithContext(ctx).Create(result).Error
}

// GetSettlementResult retrieves the settlement result for a challenge
func (r *Repository) GetSettlementResult(ctx context.Context, challengeID uuid.UUID) (*models.SettlementResult, error) {
	var result models.SettlementResult
	err := r.db.WithContext(ctx).Where("challenge_id = ?", challengeID).First(&result).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateSettlementWinners persists the credited winners of a settlement
func (r *Repository) CreateSettlementWinners(ctx context.Context, winners []models.SettlementWinner) error {
	if len(winners) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&winners).Error
}

// GetSettlementWinners retrieves the stored winners of a settlement
func (r *Repository) GetSettlementWinners(ctx context.Context, settlementID uuid.UUID) ([]models.SettlementWinner, error) {
	var winners []models.SettlementWinner
	err := r.db.WithContext(ctx).
		Where("settlement_id = ?", settlementID).
		Order("user_id ASC").
		Find(&winners).Error
	if err != nil {
		return nil, err
	}
	return winners, nil
}

// ============================================================================
// Transactions
// ============================================================================

// CreateTransaction creates a coin ledger entry
func (r *Repository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// GetUserTransactions retrieves a user's ledger entries, newest first
func (r *Repository) GetUserTransactions(ctx context.Context, userID uint, limit, offset int) ([]*models.Transaction, error) {
	var transactions []*models.Transaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

// ============================================================================
// User statistics
// ============================================================================

// IncrementUserStats updates per-user aggregates atomically via upsert
func (r *Repository) IncrementUserStats(
	ctx context.Context,
	userID uint,
	joinedIncr int64,
	completedIncr int64,
	wonIncr int64,
	stakedIncr int64,
	wonAmountIncr int64,
) error {
	initialStats := models.UserStatistics{
		UserID:              userID,
		ChallengesJoined:    joinedIncr,
		ChallengesCompleted: completedIncr,
		ChallengesWon:       wonIncr,
		TotalStaked:         stakedIncr,
		TotalWon:            wonAmountIncr,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"challenges_joined":    gorm.Expr("user_statistics.challenges_joined + ?", joinedIncr),
			"challenges_completed": gorm.Expr("user_statistics.challenges_completed + ?", completedIncr),
			"challenges_won":       gorm.Expr("user_statistics.challenges_won + ?", wonIncr),
			"total_staked":         gorm.Expr("user_statistics.total_staked + ?", stakedIncr),
			"total_won":            gorm.Expr("user_statistics.total_won + ?", wonAmountIncr),
			// ON CONFLICT DO UPDATE sees the OLD column values, so the
			// increment is repeated inside the derived calculation.
			"win_rate":   gorm.Expr("CASE WHEN (user_statistics.challenges_joined + ?) > 0 THEN (CAST((user_statistics.challenges_won + ?) AS NUMERIC) / (user_statistics.challenges_joined + ?) * 100) ELSE 0 END", joinedIncr, wonIncr, joinedIncr),
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&initialStats).Error
}

// GetUserStatistics retrieves aggregates for a user, creating an empty row on
// first access
func (r *Repository) GetUserStatistics(ctx context.Context, userID uint) (*models.UserStatistics, error) {
	var stats models.UserStatistics
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&stats).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		stats = models.UserStatistics{UserID: userID}
		if err := r.db.WithContext(ctx).Create(&stats).Error; err != nil {
			return nil, err
		}
		return &stats, nil
	}

	if err != nil {
		return nil, err
	}

	return &stats, nil
}

// ============================================================================
// Notifications
// ============================================================================

// CreateNotification creates a notification row
func (r *Repository) CreateNotification(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// GetUserNotifications retrieves a user's notifications, newest first
func (r *Repository) GetUserNotifications(ctx context.Context, userID uint, limit, offset int) ([]*models.Notification, error) {
	var notifications []*models.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// CountUnreadNotifications counts a user's unread notifications
func (r *Repository) CountUnreadNotifications(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkNotificationRead marks one of the user's notifications as read
func (r *Repository) MarkNotificationRead(ctx context.Context, notificationID uuid.UUID, userID uint) error {
	return r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("is_read", true).Error
}

// MarkAllNotificationsRead marks all of the user's notifications as read
func (r *Repository) MarkAllNotificationsRead(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}

// ============================================================================
// Verifications
// ============================================================================

// CreateVerification creates a proof submission record
func (r *Repository) CreateVerification(ctx context.Context, v *models.Verification) error {
	return r.db.WithContext(ctx).Create(v).Error
}

// GetVerificationByID retrieves a verification by ID
func (r *Repository) GetVerificationByID(ctx context.Context, verificationID uuid.UUID) (*models.Verification, error) {
	var verification models.Verification
	err := r.db.WithContext(ctx).Where("id = ?", verificationID).First(&verification).Error
	if err != nil {
		return nil, err
	}
	return &verification, nil
}

// UpdateVerification applies a partial update to a verification record
func (r *Repository) UpdateVerification(ctx context.Context, verificationID uuid.UUID, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.Verification{}).
		Where("id = ?", verificationID).
		Updates(updates).Error
}

// ============================================================================
// Achievements
// ============================================================================

// SeedAchievements inserts the achievement catalog, skipping existing entries
func (r *Repository) SeedAchievements(ctx context.Context, achievements []models.Achievement) error {
	if len(achievements) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&achievements).Error
}

// UnlockAchievement records an unlock. Returns false when it was already
// unlocked.
func (r *Repository) UnlockAchievement(ctx context.Context, userID uint, achievementID string) (bool, error) {
	unlock := models.UserAchievement{
		UserID:        userID,
		AchievementID: achievementID,
		UnlockedAt:    time.Now(),
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&unlock)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListAchievements retrieves the full achievement catalog
func (r *Repository) ListAchievements(ctx context.Context) ([]*models.Achievement, error) {
	var achievements []*models.Achievement
	err := r.db.WithContext(ctx).Order("id ASC").Find(&achievements).Error
	if err != nil {
		return nil, err
	}
	return achievements, nil
}

// GetUserAchievements retrieves a user's unlocked achievements
func (r *Repository) GetUserAchievements(ctx context.Context, userID uint) ([]*models.UserAchievement, error) {
	var unlocks []*models.UserAchievement
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("unlocked_at ASC").
		Find(&unlocks).Error
	if err != nil {
		return nil, err
	}
	return unlocks, nil
}

// ============================================================================
// Invite codes
// ============================================================================

// CreateInviteCode creates an invite code for a private challenge
func (r *Repository) CreateInviteCode(ctx context.Context, code *models.InviteCode) error {
	err := r.db.WithContext(ctx).Create(code).Error
	if isUniqueViolation(err) {
		return ErrDuplicateKey
	}
	return err
}

// GetInviteCodeByCode retrieves an invite code record by its code
func (r *Repository) GetInviteCodeByCode(ctx context.Context, code string) (*models.InviteCode, error) {
	var invite models.InviteCode
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&invite).Error
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

// GetInviteCodeByChallenge retrieves the invite code for a challenge
func (r *Repository) GetInviteCodeByChallenge(ctx context.Context, challengeID uuid.UUID) (*models.InviteCode, error) {
	var invite models.InviteCode
	err := r.db.WithContext(ctx).Where("challenge_id = ?", challengeID).First(&invite).Error
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

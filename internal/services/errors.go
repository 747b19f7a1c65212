package services

import "errors"

// Domain errors surfaced by the challenge, settlement and verification
// services. Anything else coming out of a service is a storage failure
// wrapped with context.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAlreadyJoined       = errors.New("already joined this challenge")
	ErrChallengeClosed     = errors.New("challenge is closed")
	ErrNotAParticipant     = errors.New("not a participant of this challenge")
	ErrInvalidProgress     = errors.New("progress must increase and stay within 0-100")
	ErrNotYetExpired       = errors.New("challenge has not ended yet")
	ErrChallengeNotFound   = errors.New("challenge not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrNotCreator          = errors.New("only the creator can modify a challenge")
	ErrEndDateLocked       = errors.New("end date cannot change once progress has been recorded")
	ErrInvalidInviteCode   = errors.New("invalid invite code")
	ErrInvalidChallenge    = errors.New("invalid challenge parameters")
)

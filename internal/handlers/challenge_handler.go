package handlers

import (
	"net/http"
	"time"

	"challenge-pool/internal/auth"
	"challenge-pool/internal/models"
	"challenge-pool/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ChallengeHandler struct {
	challengeService  *services.ChallengeService
	settlementService *services.SettlementService
}

func NewChallengeHandler(
	challengeService *services.ChallengeService,
	settlementService *services.SettlementService,
) *ChallengeHandler {
	return &ChallengeHandler{
		challengeService:  challengeService,
		settlementService: settlementService,
	}
}

// CreateChallenge creates a new challenge
// POST /api/challenges
func (h *ChallengeHandler) CreateChallenge(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.CreateChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	challenge, err := h.challengeService.CreateChallenge(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, challenge)
}

// GetChallenge retrieves a challenge by ID
// GET /api/challenges/:id
func (h *ChallengeHandler) GetChallenge(c *gin.Context) {
	challengeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid challenge id"})
		return
	}

	challenge, err := h.challengeService.GetChallenge(c.Request.Context(), challengeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenge": challenge,
		"state":     challenge.State(time.Now()),
	})
}

// ListChallenges retrieves public challenges, optionally filtered by state
// GET /api/challenges?state=ACTIVE
func (h *ChallengeHandler) ListChallenges(c *gin.Context) {
	limit, offset := parsePagination(c)
	state := models.ChallengeState(c.Query("state"))

	challenges, total, err := h.challengeService.ListPublicChallenges(c.Request.Context(), state, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenges": challenges,
		"total":      total,
	})
}

// ListMyChallenges retrieves the current user's challenges
// GET /api/challenges/mine
func (h *ChallengeHandler) ListMyChallenges(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	challenges, err := h.challengeService.ListUserChallenges(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenges": challenges,
		"total":      len(challenges),
	})
}

// UpdateChallenge applies creator edits to a challenge
// PUT /api/challenges/:id
func (h *ChallengeHandler) UpdateChallenge(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	challengeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid challenge id"})
		return
	}

	var req models.UpdateChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	challenge, err := h.challengeService.UpdateChallenge(c.Request.Context(), challengeID, userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, challenge)
}

// JoinChallenge stakes the current user into a challenge
// POST /api/challenges/:id/join
func (h *ChallengeHandler) JoinChallenge(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	username, ok := auth.GetUsername(c)
	if !exists || !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	challengeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid challenge id"})
		return
	}

	participant, err := h.challengeService.JoinChallenge(c.Request.Context(), challengeID, userID, username)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, participant)
}

// JoinByCode stakes the current user into a private challenge via invite code
// POST /api/challenges/join-by-code
func (h *ChallengeHandler) JoinByCode(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	username, ok := auth.GetUsername(c)
	if !exists || !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.JoinByCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	participant, err := h.challengeService.JoinByCode(c.Request.Context(), req.Code, userID, username)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, participant)
}

// RecordProgress updates the current user's progress on a challenge
// POST /api/challenges/:id/progress
func (h *ChallengeHandler) RecordProgress(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	challengeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid challenge id"})
		return
	}

	var req models.RecordProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	participant, err := h.challengeService.RecordProgress(c.Request.Context(), challengeID, userID, req.Value)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, participant)
}

// GetLeaderboard retrieves participants ranked by progress
// GET /api/challenges/:id/leaderboard
func (h *ChallengeHandler) GetLeaderboard(c *gin.Context) {
	challengeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid challenge id"})
		return
	}

	participants, err := h.challengeService.GetLeaderboard(c.Request.Context(), challengeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"participants": participants,
		"total":        len(participants),
	})
}

// GetProgressHistory retrieves the current user's daily progress snapshots
// GET /api/challenges/:id/progress
func (h *ChallengeHandler) GetProgressHistory(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	challengeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid challenge id"})
		return
	}

	entries, err := h.challengeService.GetProgressHistory(c.Request.Context(), challengeID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// SettleChallenge settles an expired challenge on demand
// POST /api/challenges/:id/settle
func (h *ChallengeHandler) SettleChallenge(c *gin.Context) {
	if _, exists := auth.GetUserID(c); !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	challengeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid challenge id"})
		return
	}

	outcome, err := h.settlementService.Settle(c.Request.Context(), challengeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// GetResult retrieves the settlement result of a completed challenge
// GET /api/challenges/:id/result
func (h *ChallengeHandler) GetResult(c *gin.Context) {
	challengeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid challenge id"})
		return
	}

	outcome, err := h.settlementService.GetResult(c.Request.Context(), challengeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

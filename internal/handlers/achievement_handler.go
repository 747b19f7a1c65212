package handlers

import (
	"net/http"

	"challenge-pool/internal/auth"
	"challenge-pool/internal/services"

	"github.com/gin-gonic/gin"
)

type AchievementHandler struct {
	achievementService *services.AchievementService
}

func NewAchievementHandler(achievementService *services.AchievementService) *AchievementHandler {
	return &AchievementHandler{achievementService: achievementService}
}

// ListAchievements returns the catalog with the current user's unlocks
// GET /api/achievements
func (h *AchievementHandler) ListAchievements(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	catalog, unlocks, err := h.achievementService.ListForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"achievements": catalog,
		"unlocked":     unlocks,
	})
}

package handlers

import (
	"net/http"
	"time"

	"challenge-pool/internal/auth"

	"github.com/gin-gonic/gin"
)

// Handlers bundles every route handler for registration
type Handlers struct {
	Auth         *AuthHandler
	User         *UserHandler
	Challenge    *ChallengeHandler
	Notification *NotificationHandler
	Verification *VerificationHandler
	Achievement  *AchievementHandler
}

// RegisterRoutes wires all endpoints onto the router. Shared between main
// and the handler tests.
func (h *Handlers) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/login", h.Auth.Login)
	}

	// Authenticated /auth/me route
	authProtected := router.Group("/auth")
	authProtected.Use(auth.AuthMiddleware())
	{
		authProtected.GET("/me", h.Auth.GetMe)
	}

	// Public challenge routes
	router.GET("/api/challenges", h.Challenge.ListChallenges)
	router.GET("/api/challenges/:id", h.Challenge.GetChallenge)
	router.GET("/api/challenges/:id/leaderboard", h.Challenge.GetLeaderboard)
	router.GET("/api/challenges/:id/result", h.Challenge.GetResult)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// User endpoints
		userRoutes := api.Group("/users")
		{
			userRoutes.GET("/profile", h.User.GetProfile)
			userRoutes.GET("/transactions", h.User.GetTransactions)
			userRoutes.GET("/stats", h.User.GetStatistics)
		}

		// Challenge endpoints
		api.POST("/challenges", h.Challenge.CreateChallenge)
		api.GET("/challenges/mine", h.Challenge.ListMyChallenges)
		api.PUT("/challenges/:id", h.Challenge.UpdateChallenge)
		api.POST("/challenges/:id/join", h.Challenge.JoinChallenge)
		api.POST("/challenges/join-by-code", h.Challenge.JoinByCode)
		api.POST("/challenges/:id/progress", h.Challenge.RecordProgress)
		api.GET("/challenges/:id/progress", h.Challenge.GetProgressHistory)
		api.POST("/challenges/:id/settle", h.Challenge.SettleChallenge)

		// Verification endpoints
		api.POST("/verifications", h.Verification.SubmitProof)
		api.GET("/verifications/:id", h.Verification.GetVerification)

		// Notification endpoints
		api.GET("/notifications", h.Notification.ListNotifications)
		api.POST("/notifications/:id/read", h.Notification.MarkRead)
		api.POST("/notifications/read-all", h.Notification.MarkAllRead)

		// Achievement endpoints
		api.GET("/achievements", h.Achievement.ListAchievements)
	}
}

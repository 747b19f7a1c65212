package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"challenge-pool/internal/auth"
	"challenge-pool/internal/models"
	"challenge-pool/internal/repository"
	"challenge-pool/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.UserStatistics{},
		&models.Challenge{},
		&models.Participant{},
		&models.ProgressEntry{},
		&models.SettlementResult{},
		&models.SettlementWinner{},
		&models.InviteCode{},
		&models.Transaction{},
		&models.Notification{},
		&models.Verification{},
		&models.Achievement{},
		&models.UserAchievement{},
	))

	auth.InitJWT("test-secret")

	repo := repository.NewRepository(db)
	notificationService := services.NewNotificationService(repo)
	achievementService := services.NewAchievementService(repo, notificationService)
	authService := services.NewAuthService(repo, 1000)
	userService := services.NewUserService(repo)
	challengeService := services.NewChallengeService(repo, notificationService, achievementService)
	settlementService := services.NewSettlementService(repo, notificationService, achievementService)
	verificationService := services.NewVerificationService(repo, challengeService, nil)

	h := &Handlers{
		Auth:         NewAuthHandler(authService, userService),
		User:         NewUserHandler(userService),
		Challenge:    NewChallengeHandler(challengeService, settlementService),
		Notification: NewNotificationHandler(notificationService),
		Verification: NewVerificationHandler(verificationService),
		Achievement:  NewAchievementHandler(achievementService),
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	h.RegisterRoutes(router)

	return router, db
}

func doRequest(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func login(t *testing.T, router *gin.Engine, username string) string {
	t.Helper()
	w := doRequest(t, router, http.MethodPost, "/auth/login", "", gin.H{"username": username})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token, ok := decode(t, w)["token"].(string)
	require.True(t, ok, "login response missing token")
	return token
}

func TestChallengeLifecycleOverHTTP(t *testing.T) {
	router, db := setupRouter(t)

	alice := login(t, router, "alice")
	bob := login(t, router, "bob")

	// Alice creates a challenge and stakes in immediately.
	w := doRequest(t, router, http.MethodPost, "/api/challenges", alice, gin.H{
		"title":      "Run 100km",
		"stake":      50,
		"target":     100,
		"unit":       "km",
		"start_date": time.Now().Add(-time.Hour).Format(time.RFC3339),
		"end_date":   time.Now().Add(time.Hour).Format(time.RFC3339),
		"join":       true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	challengeID, ok := decode(t, w)["id"].(string)
	require.True(t, ok, "create response missing id")

	// The stake shows up on her profile.
	w = doRequest(t, router, http.MethodGet, "/api/users/profile", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	user := decode(t, w)["user"].(map[string]interface{})
	require.EqualValues(t, 950, user["balance"])

	// Bob joins, once.
	w = doRequest(t, router, http.MethodPost, "/api/challenges/"+challengeID+"/join", bob, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doRequest(t, router, http.MethodPost, "/api/challenges/"+challengeID+"/join", bob, nil)
	require.Equal(t, http.StatusConflict, w.Code)

	// Bob finishes, Alice stalls at 60.
	w = doRequest(t, router, http.MethodPost, "/api/challenges/"+challengeID+"/progress", bob, gin.H{"value": 100})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(t, router, http.MethodPost, "/api/challenges/"+challengeID+"/progress", alice, gin.H{"value": 60})
	require.Equal(t, http.StatusOK, w.Code)

	// Backwards progress is refused.
	w = doRequest(t, router, http.MethodPost, "/api/challenges/"+challengeID+"/progress", alice, gin.H{"value": 40})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// The leaderboard is public and ordered.
	w = doRequest(t, router, http.MethodGet, "/api/challenges/"+challengeID+"/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	board := decode(t, w)["participants"].([]interface{})
	require.Len(t, board, 2)
	first := board[0].(map[string]interface{})
	require.Equal(t, "bob", first["username"])

	// Settling before the end date is refused.
	w = doRequest(t, router, http.MethodPost, "/api/challenges/"+challengeID+"/settle", alice, nil)
	require.Equal(t, http.StatusConflict, w.Code)

	// Time passes.
	require.NoError(t, db.Model(&models.Challenge{}).
		Where("id = ?", challengeID).
		Update("end_date", time.Now().Add(-time.Minute)).Error)

	// Bob takes the whole pool of two stakes.
	w = doRequest(t, router, http.MethodPost, "/api/challenges/"+challengeID+"/settle", alice, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	outcome := decode(t, w)
	result := outcome["result"].(map[string]interface{})
	require.EqualValues(t, 100, result["total_pool"])
	require.EqualValues(t, 1, result["winner_count"])
	require.EqualValues(t, 100, result["reward_per_winner"])

	// The result is public and stable.
	w = doRequest(t, router, http.MethodGet, "/api/challenges/"+challengeID+"/result", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Bob's balance: 1000 - 50 + 100.
	w = doRequest(t, router, http.MethodGet, "/api/users/profile", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	user = decode(t, w)["user"].(map[string]interface{})
	require.EqualValues(t, 1050, user["balance"])

	// Settlement left notifications behind.
	w = doRequest(t, router, http.MethodGet, "/api/notifications", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, decode(t, w)["notifications"])
}

func TestAuthRequired(t *testing.T) {
	router, _ := setupRouter(t)

	for _, path := range []string{
		"/api/users/profile",
		"/api/notifications",
		"/api/achievements",
		"/auth/me",
	} {
		w := doRequest(t, router, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := doRequest(t, router, http.MethodGet, "/api/users/profile", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJoinWithInsufficientBalance(t *testing.T) {
	router, _ := setupRouter(t)

	alice := login(t, router, "alice")
	bob := login(t, router, "bob")

	w := doRequest(t, router, http.MethodPost, "/api/challenges", alice, gin.H{
		"title":      "High stakes",
		"stake":      5000,
		"target":     1,
		"start_date": time.Now().Add(-time.Hour).Format(time.RFC3339),
		"end_date":   time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	challengeID := decode(t, w)["id"].(string)

	w = doRequest(t, router, http.MethodPost, "/api/challenges/"+challengeID+"/join", bob, nil)
	require.Equal(t, http.StatusPaymentRequired, w.Code, w.Body.String())

	// Balance untouched.
	w = doRequest(t, router, http.MethodGet, "/api/users/profile", bob, nil)
	user := decode(t, w)["user"].(map[string]interface{})
	require.EqualValues(t, 1000, user["balance"])
}

func TestProgressByNonParticipant(t *testing.T) {
	router, _ := setupRouter(t)

	alice := login(t, router, "alice")
	carol := login(t, router, "carol")

	w := doRequest(t, router, http.MethodPost, "/api/challenges", alice, gin.H{
		"title":      "Solo effort",
		"stake":      10,
		"target":     1,
		"start_date": time.Now().Add(-time.Hour).Format(time.RFC3339),
		"end_date":   time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	challengeID := decode(t, w)["id"].(string)

	w = doRequest(t, router, http.MethodPost, "/api/challenges/"+challengeID+"/progress", carol, gin.H{"value": 50})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(t, router, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", decode(t, w)["status"])
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"challenge-pool/internal/auth"
	"challenge-pool/internal/config"
	"challenge-pool/internal/database"
	"challenge-pool/internal/handlers"
	"challenge-pool/internal/jobs"
	"challenge-pool/internal/repository"
	"challenge-pool/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repository
	repo := repository.NewRepository(database.GetDB())

	// Initialize services
	notificationService := services.NewNotificationService(repo)
	achievementService := services.NewAchievementService(repo, notificationService)
	authService := services.NewAuthService(repo, cfg.App.InitialBalance)
	userService := services.NewUserService(repo)
	challengeService := services.NewChallengeService(repo, notificationService, achievementService)
	settlementService := services.NewSettlementService(repo, notificationService, achievementService)
	verificationService := services.NewVerificationService(repo, challengeService, nil)

	// Seed the achievement catalog
	if err := achievementService.Seed(context.Background()); err != nil {
		log.Fatalf("Failed to seed achievements: %v", err)
	}

	// Start the settlement job
	settler := jobs.NewChallengeSettler(settlementService, cfg.App.SettleInterval)
	go settler.Start()
	defer settler.Stop()

	// Initialize handlers
	h := &handlers.Handlers{
		Auth:         handlers.NewAuthHandler(authService, userService),
		User:         handlers.NewUserHandler(userService),
		Challenge:    handlers.NewChallengeHandler(challengeService, settlementService),
		Notification: handlers.NewNotificationHandler(notificationService),
		Verification: handlers.NewVerificationHandler(verificationService),
		Achievement:  handlers.NewAchievementHandler(achievementService),
	}

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	h.RegisterRoutes(router)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}

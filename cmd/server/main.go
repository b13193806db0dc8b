package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"selfmanager/internal/config"
	"selfmanager/internal/database"
	"selfmanager/internal/handlers"
	"selfmanager/internal/media"
	"selfmanager/internal/notify"
	"selfmanager/internal/repository"
	"selfmanager/internal/security"
	"selfmanager/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Push notifications fall back to logging when Firebase is not configured
	var sender notify.Sender = notify.NoopSender{}
	if fcm, err := notify.NewFCMSender(ctx, cfg.FirebaseCredentials, cfg.FCMAndroidChannel); err != nil {
		log.Printf("Warning: FCM disabled: %v", err)
	} else {
		sender = fcm
	}

	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)

	dispatcher := notify.NewDispatcher(sender, userRepo, 30*time.Second)
	store := media.NewStore(cfg.MediaPath, cfg.MediaURL, cfg.UploadMaxSize)
	tokens := security.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	// Initialize services
	authService := service.NewAuthService(userRepo, repository.NewOTPRepository(db), tokens, emailService,
		&service.GoogleUserInfoClient{UserInfoURL: cfg.GoogleUserInfoURL})
	userService := service.NewUserService(userRepo, familyRepo, cfg.AccountPurgeAfter)
	chatService := service.NewChatService(repository.NewMessageRepository(db), familyRepo, dispatcher)
	familyService := service.NewFamilyService(familyRepo, userRepo, chatService)
	expenseService := service.NewExpenseService(repository.NewExpenseRepository(db), familyRepo, dispatcher)
	udharService := service.NewUdharService(repository.NewUdharRepository(db))
	attendanceService := service.NewAttendanceService(repository.NewAttendanceRepository(db))
	noteService := service.NewNoteService(repository.NewNoteRepository(db))

	// Rate limiter for OTP and login endpoints: 10 requests per minute per IP
	limiter := security.NewRateLimiter(10, time.Minute)
	go limiter.RunCleanup(ctx, 5*time.Minute)

	// Setup routes
	router := &handlers.Router{
		Middleware: handlers.NewMiddleware(authService, limiter),
		Auth:       handlers.NewAuthHandler(authService),
		Users:      handlers.NewUserHandler(userService),
		Families:   handlers.NewFamilyHandler(familyService),
		Chat:       handlers.NewChatHandler(chatService, store),
		Ledger:     handlers.NewLedgerHandler(expenseService, udharService, attendanceService, noteService, store),
		Media:      store,
	}
	mux := http.NewServeMux()
	router.Register(mux)

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background account and OTP cleanup
	go runHousekeeping(ctx, authService, userService)

	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	log.Println("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error waiting for notifications: %v", err)
	}
}

// runHousekeeping periodically purges soft-deleted accounts and stale OTPs
func runHousekeeping(ctx context.Context, authService *service.AuthService, userService *service.UserService) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if n, err := userService.PurgeDeletedAccounts(); err != nil {
			log.Printf("Error purging deleted accounts: %v", err)
		} else if n > 0 {
			log.Printf("Purged %d deleted accounts", n)
		}

		if n, err := authService.CleanupExpiredOTPs(); err != nil {
			log.Printf("Error cleaning up expired OTPs: %v", err)
		} else if n > 0 {
			log.Printf("Removed %d expired OTPs", n)
		}
	}
}

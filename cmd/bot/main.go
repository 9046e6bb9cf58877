package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"todogram/internal/bot"
	"todogram/internal/config"
	"todogram/internal/database"
	"todogram/internal/gateway"
	"todogram/internal/notifier"
	"todogram/internal/repository"
	"todogram/internal/scheduler"
	"todogram/internal/server"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Validate required config
	if cfg.DatabaseURI == "" {
		log.Fatal("DATABASE_URI is required")
	}
	if cfg.TelegramToken == "" {
		log.Fatal("TELEGRAM_TOKEN is required")
	}
	if cfg.TaskAPIURL == "" {
		log.Fatal("TASK_API_URL is required")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db, err := database.New(ctx, cfg.DatabaseURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to database")

	// Run migrations
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Create Telegram API client
	tgAPI, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatalf("Failed to create Telegram API: %v", err)
	}

	reminderRepo := repository.NewReminderRepository(db)
	linkRepo := repository.NewLinkRepository(db)
	taskGateway := gateway.New(cfg.TaskAPIURL, cfg.TaskAPITimeout)
	sender := notifier.New(tgAPI)

	// Create and start scheduler
	sched := scheduler.New(reminderRepo, linkRepo, taskGateway, sender)
	go sched.Start(ctx)

	// Webhook server
	handlers := bot.New(taskGateway, reminderRepo, linkRepo)
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.New(handlers, sender, cfg.WebhookSecret).Router(),
	}

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown: %v", err)
		}
	}()

	log.Printf("Starting webhook server on %s", cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}
}

package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"contestbot/bot"
	"contestbot/config"
	"contestbot/database"
	"contestbot/events"
	"contestbot/repository"
	"contestbot/scheduler"
	"contestbot/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting contest bot...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize event bus
	eventBus := events.NewBus()

	// Initialize unit of work factory
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Initialize Telegram client and the service-facing transport
	log.Println("Connecting to Telegram...")
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("failed to connect to Telegram: %w", err)
	}
	transport := bot.NewTransport(api, cfg.OperatorID())

	// Initialize services
	log.Println("Initializing services...")
	contestService := service.NewContestService(uowFactory)
	referralService := service.NewReferralService(uowFactory)
	verificationService := service.NewVerificationService(uowFactory, transport, transport)
	broadcastService := service.NewBroadcastService(uowFactory, transport, transport)
	log.Println("Services initialized successfully")

	// Initialize Telegram bot
	contestBot := bot.New(api, cfg, transport, contestService, referralService, verificationService, broadcastService, eventBus)
	contestBot.Start(ctx)

	// Initialize lifecycle scheduler
	lifecycle := scheduler.New(contestService, verificationService, transport, cfg.LifecycleCheckInterval)
	if err := lifecycle.Start(); err != nil {
		return fmt.Errorf("failed to start lifecycle scheduler: %w", err)
	}

	// Wait for context cancellation
	log.Printf("Bot is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Println("Shutting down bot...")

	if err := lifecycle.Shutdown(); err != nil {
		log.Printf("Error stopping scheduler: %v", err)
	}
	contestBot.Stop()

	// Give cleanup operations time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close database connection
	log.Println("Closing database connection...")
	db.Close()

	select {
	case <-shutdownCtx.Done():
		log.Println("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Println("Shutdown completed")
	}

	return nil
}

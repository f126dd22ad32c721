package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dieuphamit/giapha/internal/api"
	"github.com/dieuphamit/giapha/internal/config"
	"github.com/dieuphamit/giapha/internal/notify"
	"github.com/dieuphamit/giapha/internal/repository/postgres"
	"github.com/dieuphamit/giapha/internal/service"
	"github.com/dieuphamit/giapha/pkg/logger"
)

func main() {
	// Local development keeps its environment in a .env file; in deployed
	// environments the file is simply absent.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel)
	l.Info("Starting giapha...")

	// Database
	db, err := config.NewDatabase(cfg.DatabaseURL, l)
	if err != nil {
		l.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(config.MigrationsPath); err != nil {
		l.Fatalf("Failed to run migrations: %v", err)
	}

	// Repositories
	personRepo := postgres.NewPersonRepository(db.DB)
	familyRepo := postgres.NewFamilyRepository(db.DB)
	contributionRepo := postgres.NewContributionRepository(db.DB)
	auditRepo := postgres.NewAuditRepository(db.DB)
	eventRepo := postgres.NewEventRepository(db.DB)
	postRepo := postgres.NewPostRepository(db.DB)
	quizRepo := postgres.NewQuizRepository(db.DB)

	// Reviewer notifications (optional)
	var notifier notify.Notifier = notify.Noop{}
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.ReviewerChatID, l)
		if err != nil {
			l.Fatalf("Failed to create Telegram notifier: %v", err)
		}
		notifier = tg
	}

	// Service layer
	svc := service.New(l, notifier,
		personRepo, familyRepo, contributionRepo, auditRepo,
		eventRepo, postRepo, quizRepo,
	)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Received shutdown signal...")
		cancel()
	}()

	// HTTP server
	apiServer := api.NewServer(svc, l)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: apiServer.Handler(),
	}

	go func() {
		l.Infof("HTTP server listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("HTTP server error: %v", err)
		}
	}()

	l.Info("giapha started successfully")

	<-ctx.Done()

	l.Info("Shutting down HTTP server...")
	httpServer.Close()

	l.Info("giapha stopped")
}

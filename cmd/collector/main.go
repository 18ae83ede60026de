// File: cmd/collector/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/iyunix/go-chatstats/internal/config"
	"github.com/iyunix/go-chatstats/internal/database"
	"github.com/iyunix/go-chatstats/internal/repository/history"
	"github.com/iyunix/go-chatstats/internal/services"
	"github.com/iyunix/go-chatstats/internal/telegram"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("FATAL: Invalid configuration: %v", err)
	}
	if cfg.TelegramBotToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is not set")
	}
	logger := services.NewLogger("chatstats_collector", cfg.LogLevel)

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("DB Error: %v", err)
	}
	defer database.Close(db)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	historyRepo := history.NewHistoryRepository(db)
	if err := historyRepo.AutoMigrate(ctx); err != nil {
		log.Fatalf("DB Migration Error: %v", err)
	}

	historyService, err := services.NewHistoryService(historyRepo, nil, logger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize History Service: %v", err)
	}
	statsService := services.NewStatsService(historyRepo, logger)
	collector := telegram.NewCollector(historyService, statsService, cfg.ReportWindowDays, logger)

	b, err := bot.New(cfg.TelegramBotToken,
		bot.WithAllowedUpdates(bot.AllowedUpdates{models.AllowedUpdateMessage}),
		bot.WithDefaultHandler(collector.Handle),
	)
	if err != nil {
		log.Fatalf("failed to init bot: %v", err)
	}

	logger.Info("collector started", "report_window_days", cfg.ReportWindowDays)
	b.Start(ctx)
	logger.Info("collector stopped")
}

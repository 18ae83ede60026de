// File: cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/iyunix/go-chatstats/internal/config"
	"github.com/iyunix/go-chatstats/internal/database"
	"github.com/iyunix/go-chatstats/internal/handlers"
	"github.com/iyunix/go-chatstats/internal/middleware"
	"github.com/iyunix/go-chatstats/internal/ratelimit"
	"github.com/iyunix/go-chatstats/internal/repository/history"
	"github.com/iyunix/go-chatstats/internal/services"
)

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("FATAL: Invalid configuration: %v", err)
	}
	logger := services.NewLogger("chatstats_server", cfg.LogLevel)

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("DB Error: %v", err)
	}
	defer database.Close(db)

	// --- Repositories ---
	historyRepo := history.NewHistoryRepository(db)
	if err := historyRepo.AutoMigrate(context.Background()); err != nil {
		log.Fatalf("DB Migration Error: %v", err)
	}

	// --- Services ---
	historyConfig := services.DefaultHistoryConfig()
	historyConfig.BatchSize = cfg.ImportBatchSize
	historyService, err := services.NewHistoryService(historyRepo, historyConfig, logger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize History Service: %v", err)
	}
	statsService := services.NewStatsService(historyRepo, logger)

	// --- Ingestion guards ---
	limiter, err := ratelimit.NewMemoryRateLimiter(ratelimit.IngestConfig(cfg.IngestRateLimit))
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize rate limiter: %v", err)
	}
	defer limiter.Stop()

	ingest := []mux.MiddlewareFunc{middleware.RateLimitMiddleware(limiter, "ingest", cfg.TrustProxyHeaders)}
	if cfg.JWTSecretKey != "" {
		ingest = append(ingest, middleware.NewBearerAuthMiddleware([]byte(cfg.JWTSecretKey)))
	} else {
		logger.Warn("JWT_SECRET_KEY is empty, ingestion endpoints accept unauthenticated requests")
	}

	// --- Router Setup ---
	historyHandler := handlers.NewHistoryHandler(historyService, statsService, logger)
	r := handlers.NewRouter(historyHandler, ingest...)
	r.Use(corsMiddleware)
	r.Use(middleware.RecoverPanic)
	r.Use(middleware.LoggingMiddleware(logger))

	// --- Server Configuration ---
	port := ":8080"
	if cfg.ServerPort != "" {
		port = ":" + cfg.ServerPort
	}
	srv := &http.Server{
		Addr:              port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("==================================================")
	log.Printf("Chat history service starting on port %s", port)
	log.Printf("Database driver: %s", cfg.DBDriver)
	log.Printf("Health check: http://localhost%s/health", port)
	log.Printf("==================================================")

	// --- Start Server in Goroutine ---
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server startup failed: %v", err)
		}
	}()

	// --- Graceful Shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down server gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
		return
	}
	log.Println("Server stopped gracefully")
}

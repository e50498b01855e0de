package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"dmchat/internal/app/chat"
	"dmchat/internal/app/db"
	"dmchat/internal/app/message"
	"dmchat/internal/app/storage"
	"dmchat/internal/app/user"
	"dmchat/internal/configs"
	"dmchat/internal/handler"
	"dmchat/internal/pkg/auth/jwt"
	"dmchat/internal/pkg/limiter"
	"dmchat/internal/pkg/logx"
	"dmchat/internal/pkg/pow"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat server (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(cfg)
	},
}

// openStores returns the account and message stores. Without a DSN, which is
// only allowed in development, both live in memory.
func openStores(cfg *configs.AppConfig) (user.Store, message.Store, *pgxpool.Pool, error) {
	if cfg.DatabaseDSN == "" {
		logx.Warn("DATABASE_URL not set, using in-memory stores. Data is lost on restart.")
		return user.NewMemStore(), message.NewMemStore(), nil, nil
	}

	pool, err := db.NewPool(cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, nil, err
	}

	if err := db.Migrate(pool); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}

	return db.NewUserStore(pool), db.NewMessageStore(pool), pool, nil
}

func serve(cfg *configs.AppConfig) error {
	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users, messages, pool, err := openStores(cfg)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	attachments, err := storage.NewService(storage.ServiceConfig{
		Driver:            cfg.StorageDriver,
		UploadDir:         cfg.UploadDir,
		S3BucketName:      cfg.S3BucketName,
		S3Endpoint:        cfg.S3Endpoint,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize attachment storage: %w", err)
	}

	verifier := jwt.NewVerifier(cfg.JWTSecret)

	manager := chat.NewManager(chat.Options{
		Store:        messages,
		Attachments:  attachments,
		Verifier:     verifier,
		PingInterval: cfg.PingInterval,
		PongTimeout:  cfg.PongTimeout,
	})

	powGate := pow.NewGate(cfg.PowDifficulty)
	defer powGate.Stop()

	authLimiter := limiter.NewIPRateLimiter(rate.Limit(handler.AuthRate), handler.AuthBurst)
	defer authLimiter.Stop()

	wsLimiter := limiter.NewIPRateLimiter(rate.Limit(handler.WSRate), handler.WSBurst)
	defer wsLimiter.Stop()

	router := handler.Router(&handler.AppDeps{
		Config:      cfg,
		Manager:     manager,
		Verifier:    verifier,
		Users:       users,
		Messages:    messages,
		Attachments: attachments,
		PowGate:     powGate,
		AuthLimiter: authLimiter,
		WSLimiter:   wsLimiter,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logx.Info(fmt.Sprintf("dmchat server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		manager.Shutdown()
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
	}

	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	manager.Shutdown()

	logx.Info("Server gracefully stopped.")
	return nil
}

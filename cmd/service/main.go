package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gitlab.com/dirk.krummacker/address-book/internal/auth"
	"gitlab.com/dirk.krummacker/address-book/internal/config"
	"gitlab.com/dirk.krummacker/address-book/internal/database"
	"gitlab.com/dirk.krummacker/address-book/internal/events"
	"gitlab.com/dirk.krummacker/address-book/internal/logger"
	"gitlab.com/dirk.krummacker/address-book/internal/service"
)

// Usage example on the command line:
// > PORT=8080 DBUSER=dirk DBPWD=bullo92 JWT_SECRET=change-me-to-something-long GIN_MODE=release GIN_LOGGING=OFF go run main.go
func main() {
	if err := run(); err != nil {
		slog.Error("address book stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.SetupDefault(os.Stdout, cfg.LogLevel())
	if err := cfg.Validate(); err != nil {
		return err
	}

	db, err := database.CreateDatabase(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	err = database.WaitUntilAvailable(ctx, db, 2*time.Second)
	cancel()
	if err != nil {
		return err
	}

	opts := service.Options{Logger: log}
	if cfg.Redis.URL != "" {
		cache, err := auth.NewUserCache(cfg.Redis.URL, cfg.Redis.UserCacheTTL)
		if err != nil {
			return err
		}
		defer cache.Close()
		if err := cache.Ping(context.Background()); err != nil {
			log.Warn("user cache not reachable, continuing anyway", "error", err)
		}
		opts.UserCache = cache
		log.Info("user cache enabled")
	}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer publisher.Close()
		opts.Publisher = publisher
		log.Info("publishing contact events", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	server, err := service.SetupServer(db.DB, cfg, opts)
	if err != nil {
		return err
	}
	defer server.Close()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           server.SetupHttpRouter(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("address book listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

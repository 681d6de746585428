package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"budgettracker/internal/cli"
	apphttp "budgettracker/internal/http"
	"budgettracker/internal/log"
	"budgettracker/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	res := cli.InitBackend(context.Background(), logger, cfg)

	srv := apphttp.NewServer(":"+cfg.Port, res.Services, apphttp.Options{
		SecureCookies:      cfg.SecureCookies,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger.WithComponent(log.ComponentHTTP),
		Ready:              res.Repo,
	})

	sweeper := worker.NewSweeper(res.Sessions, res.Accounts, cfg.SessionSweepInterval,
		logger.Logger.With(log.FieldComponent, log.ComponentWorker),
		res.Services.Transactions)

	var wg sync.WaitGroup
	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		wg.Wait()
		if err := res.Cleanup(); err != nil {
			logger.Error("Cleanup error", "error", err)
		}
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()

	logger.Info("Starting budget tracker server",
		"port", cfg.Port,
		"amqp_enabled", cfg.AMQPEnabled(),
		"sheets_enabled", cfg.SheetsEnabled())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/felipesemedo05/parcelas-servico/internal/cli"
	apphttp "github.com/felipesemedo05/parcelas-servico/internal/http"
	applog "github.com/felipesemedo05/parcelas-servico/internal/log"
	"github.com/felipesemedo05/parcelas-servico/internal/schedule"
	"github.com/felipesemedo05/parcelas-servico/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentHTTP)
	cfg := cli.LoadAndValidateConfig(logger.Logger)

	policy, err := schedule.GetDuePolicy(cfg.FirstDuePolicy)
	if err != nil {
		logger.Error("Invalid first due policy", "error", err, "policy", cfg.FirstDuePolicy)
		os.Exit(1)
	}

	ctx := context.Background()
	res := cli.InitBackend(ctx, logger.Logger, cfg)

	ledger := services.NewLedger(res.Store, schedule.NewGenerator(policy), res.Publisher)
	if err := ledger.Load(ctx); err != nil {
		logger.Error("Failed to load installments", "error", err, "backend", cfg.DataBackend)
		_ = res.Cleanup()
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, ledger, apphttp.Options{
		CacheSize: cfg.ViewCacheSize,
		CacheTTL:  cfg.ViewCacheTTL,
		Logger:    logger,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	shutdownCtx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	logger.Info("Starting parcelas server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"policy", policy.Name(),
		"installments", ledger.Len(),
		"events", cfg.AMQPEnabled())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		_ = res.Cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}

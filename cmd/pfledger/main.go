package main

import (
	"context"
	"fmt"
	"os"

	"pfledger/internal/backend"
	"pfledger/internal/cli"
	"pfledger/internal/config"
	apphttp "pfledger/internal/http"
	"pfledger/internal/log"
	"pfledger/internal/services"
	"pfledger/internal/storage"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		cli.Exit(logger, "pfledger stopped with error", err)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}

	persister := storage.NewPersister(result.Store, cfg.StorageKey, logger)

	ledger := services.NewLedgerService(ctx, persister, services.Options{
		AmountPolicy: cfg.AmountPolicy,
		FreshStart:   cfg.FreshStart,
		Publisher:    result.Publisher,
		Logger:       logger,
	})

	srv := apphttp.NewServer(":"+cfg.Port, ledger,
		apphttp.WithLogger(logger),
		apphttp.WithCurrencySymbol(cfg.CurrencySymbol),
		apphttp.WithRateLimit(cfg.RateLimitPerMinute),
		apphttp.WithCORS(cfg.CORSAllowedOrigins))

	logger.Info("Starting pfledger server",
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend,
		log.FieldStorageKey, persister.Key(),
		"amount_policy", string(cfg.AmountPolicy),
		"fresh_start", cfg.FreshStart)

	return cli.Serve(ctx, srv, cfg.ShutdownTimeout, logger, result.Cleanup)
}

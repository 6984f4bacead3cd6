// Command admin is the back-office console for the wallet ledger. It runs the
// same ledger operations as the admin HTTP API against the configured store.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flash-service/flash_service/internal/domain/services/reconciliation"
	"github.com/flash-service/flash_service/internal/infrastructure/config"
	"github.com/flash-service/flash_service/internal/infrastructure/di"
	"github.com/flash-service/flash_service/pkg/logger"
	"github.com/flash-service/flash_service/pkg/retry"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(os.Stdout)
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	// The console never runs the scheduler; reconcile runs on demand
	cfg.Reconciliation.Enabled = false

	log := logger.New(cfg.LogLevel, cfg.Environment)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := di.NewContainer(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup: %v\n", err)
		return 1
	}
	defer container.Close()

	policy := retry.DefaultPolicy()
	policy.MaxRetries = cfg.Admin.MaxRetries
	if cfg.Admin.RetryBaseDelay > 0 {
		policy.InitialDelay = time.Duration(cfg.Admin.RetryBaseDelay) * time.Millisecond
	}
	if policy.InitialDelay > policy.MaxDelay {
		policy.MaxDelay = policy.InitialDelay
	}

	reconciler := container.GetReconciliationService()
	a := newApp(
		container.GetLedgerService(),
		func(ctx context.Context) (*reconciliation.Report, error) {
			return reconciler.RunReconciliation(ctx, "manual")
		},
		retry.NewRetrier(policy, log.Zap()),
		TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer},
		os.Stdout,
	)

	if err := a.run(ctx, args); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			usage(os.Stderr)
			return 2
		}
		fmt.Fprintln(os.Stderr, describe(err))
		return 1
	}
	return 0
}

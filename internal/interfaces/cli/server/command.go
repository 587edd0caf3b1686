// Package server implements the `serve` command: full wiring and the HTTP
// server lifecycle.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	betusecases "blocklotto/internal/application/bet/usecases"
	drawusecases "blocklotto/internal/application/draw/usecases"
	paymentusecases "blocklotto/internal/application/payment/usecases"
	roundservices "blocklotto/internal/application/round/services"
	"blocklotto/internal/domain/round"
	"blocklotto/internal/infrastructure/blockchain"
	"blocklotto/internal/infrastructure/cache"
	"blocklotto/internal/infrastructure/config"
	"blocklotto/internal/infrastructure/database"
	"blocklotto/internal/infrastructure/exchangerate"
	"blocklotto/internal/infrastructure/migration"
	"blocklotto/internal/infrastructure/repository"
	"blocklotto/internal/infrastructure/scheduler"
	httpiface "blocklotto/internal/interfaces/http"
	"blocklotto/internal/interfaces/http/handlers"
	"blocklotto/internal/shared/biztime"
	"blocklotto/internal/shared/db"
	"blocklotto/internal/shared/logger"
)

// NewCommand builds the serve command.
func NewCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the lottery API server and background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configFile)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "path to config file")
	return cmd
}

func run(configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	log := logger.NewLogger()

	if err := biztime.Init(""); err != nil {
		return fmt.Errorf("initializing timezone: %w", err)
	}

	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer database.Close()
	gormDB := database.Get()

	if err := migration.NewManager(log).Migrate(gormDB, cfg.Server.Mode); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	stateStore, err := cache.NewRedisStateStore(&cfg.Redis)
	if err != nil {
		return fmt.Errorf("initializing redis: %w", err)
	}
	defer stateStore.Close()

	gateway, err := blockchain.NewPolygonGateway(&cfg.Chain, log)
	if err != nil {
		return fmt.Errorf("initializing chain gateway: %w", err)
	}
	defer gateway.Close()

	amounts, err := parseAmounts(cfg)
	if err != nil {
		return err
	}

	// Repositories and shared services.
	betRepo := repository.NewBetRepository(gormDB)
	roundRepo := repository.NewRoundRepository(gormDB)
	resultRepo := repository.NewResultRepository(gormDB)
	txManager := db.NewTransactionManager(gormDB)
	rates := exchangerate.NewCoinGeckoService(log)

	schedule := round.NewDrawSchedule(
		toWeekdays(cfg.Lottery.DrawWeekdays),
		cfg.Lottery.DrawHour,
		cfg.Lottery.DrawMinute,
		biztime.Location(),
	)
	roundManager := roundservices.NewRoundManager(roundRepo, txManager, schedule, log)

	// Use cases.
	placeBet := betusecases.NewPlaceBetUseCase(
		betRepo, roundManager, gateway, txManager,
		cfg.Lottery.PickSize, cfg.Lottery.MaxNumber,
		amounts.betAmount, amounts.tolerance, log,
	)
	placeMultiple := betusecases.NewPlaceMultipleBetsUseCase(
		betRepo, roundManager, gateway, txManager,
		cfg.Lottery.PickSize, cfg.Lottery.MaxNumber,
		amounts.betAmount, amounts.tolerance, log,
	)
	betQueries := betusecases.NewBetQueries(betRepo, roundRepo)
	currentRound := betusecases.NewCurrentRoundUseCase(
		betRepo, roundManager, gateway, rates,
		amounts.split.Winner, cfg.Lottery.PoolFromBalance, log,
	)
	manualPayout := betusecases.NewManualPayoutUseCase(betRepo, gateway, log)

	reconcile := paymentusecases.NewReconcilePaymentsUseCase(
		betRepo, roundRepo, gateway,
		amounts.betAmount, amounts.tolerance,
		cfg.Lottery.MaxCheckAttempts, log,
	)
	checkPayment := paymentusecases.NewCheckBetPaymentUseCase(
		betRepo, roundRepo, gateway,
		amounts.betAmount, amounts.tolerance, log,
	)
	sessions := paymentusecases.NewPaymentSessionService(
		stateStore, betRepo, roundManager, txManager, checkPayment,
		cfg.Lottery.PickSize, cfg.Lottery.MaxNumber,
		time.Duration(cfg.Lottery.SessionTTLMinutes)*time.Minute, log,
	)
	monitorStatus := paymentusecases.NewMonitorStatusUseCase(
		betRepo, gateway,
		cfg.Lottery.PollIntervalSeconds, cfg.Lottery.MaxCheckAttempts, log,
	)

	finalizeRound := drawusecases.NewFinalizeRoundUseCase(
		betRepo, roundRepo, roundManager, gateway,
		amounts.split, cfg.Lottery.PickSize, cfg.Lottery.MaxNumber, log,
	)
	submitResult := drawusecases.NewSubmitResultUseCase(
		resultRepo, roundRepo, finalizeRound,
		cfg.Lottery.PickSize, cfg.Lottery.MaxNumber, log,
	)
	checkResults := drawusecases.NewCheckResultsUseCase(resultRepo, roundRepo, finalizeRound, log)
	latestResults := drawusecases.NewLatestResultsUseCase(resultRepo)
	roundQueries := drawusecases.NewRoundQueries(roundRepo)

	// Background workers.
	paymentMonitor := scheduler.NewPaymentMonitorScheduler(
		reconcile,
		time.Duration(cfg.Lottery.PollIntervalSeconds)*time.Second,
		log,
	)
	paymentMonitor.Start()
	defer paymentMonitor.Stop()

	schedulerManager, err := scheduler.NewSchedulerManager(log)
	if err != nil {
		return fmt.Errorf("initializing scheduler: %w", err)
	}
	if cfg.Lottery.ResultsFetchEnabled {
		if err := schedulerManager.RegisterSettlementJob(checkResults); err != nil {
			return fmt.Errorf("registering settlement job: %w", err)
		}
	}
	schedulerManager.Start()
	defer schedulerManager.Stop()

	// HTTP server.
	betHandler := handlers.NewBetHandler(
		placeBet, placeMultiple, betQueries, currentRound,
		manualPayout, checkPayment, sessions, monitorStatus, log,
	)
	drawHandler := handlers.NewDrawHandler(
		submitResult, latestResults, checkResults,
		finalizeRound, roundQueries, roundManager, log,
	)

	engine := httpiface.NewRouter(httpiface.RouterDeps{
		BetHandler:  betHandler,
		DrawHandler: drawHandler,
		DB:          gormDB,
		Logger:      log,
		Mode:        ginMode(cfg.Server.Mode),
	})

	srv := &http.Server{
		Addr:              cfg.Server.GetAddr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		log.Infow("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	return nil
}

type parsedAmounts struct {
	betAmount decimal.Decimal
	tolerance decimal.Decimal
	split     drawusecases.PoolSplit
}

func parseAmounts(cfg *config.Config) (parsedAmounts, error) {
	var out parsedAmounts
	var err error

	if out.betAmount, err = decimal.NewFromString(cfg.Lottery.BetAmount); err != nil {
		return out, fmt.Errorf("parsing lottery.bet_amount: %w", err)
	}
	if out.tolerance, err = decimal.NewFromString(cfg.Lottery.PaymentTolerance); err != nil {
		return out, fmt.Errorf("parsing lottery.payment_tolerance: %w", err)
	}
	if out.split.HouseFee, err = decimal.NewFromString(cfg.Lottery.HouseFeePct); err != nil {
		return out, fmt.Errorf("parsing lottery.house_fee_pct: %w", err)
	}
	if out.split.Rollover, err = decimal.NewFromString(cfg.Lottery.RolloverPct); err != nil {
		return out, fmt.Errorf("parsing lottery.rollover_pct: %w", err)
	}
	if out.split.Winner, err = decimal.NewFromString(cfg.Lottery.WinnerPct); err != nil {
		return out, fmt.Errorf("parsing lottery.winner_pct: %w", err)
	}
	if err := out.split.Validate(); err != nil {
		return out, fmt.Errorf("validating pool split: %w", err)
	}

	return out, nil
}

func toWeekdays(days []int) []time.Weekday {
	out := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		out = append(out, time.Weekday(d))
	}
	return out
}

func ginMode(serverMode string) string {
	switch serverMode {
	case "development":
		return "debug"
	case "test":
		return "test"
	default:
		return "release"
	}
}

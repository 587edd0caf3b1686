package usecases

import (
	"context"
	"fmt"

	"blocklotto/internal/application/payment/blockchain"
	"blocklotto/internal/domain/bet"
	"blocklotto/internal/shared/logger"
)

// MonitorStatusResult describes the live state of the payment monitor.
type MonitorStatusResult struct {
	PendingBets      int64  `json:"pending_bets"`
	PollIntervalSecs int    `json:"poll_interval_seconds"`
	MaxAttempts      int    `json:"max_attempts"`
	ReceivingAddress string `json:"receiving_address"`
	WalletBalance    string `json:"wallet_balance,omitempty"`
}

// MonitorStatusUseCase reports reconciliation backlog and wallet state for
// operators.
type MonitorStatusUseCase struct {
	betRepo          bet.Repository
	gateway          blockchain.Gateway
	pollIntervalSecs int
	maxAttempts      int
	logger           logger.Interface
}

// NewMonitorStatusUseCase creates a MonitorStatusUseCase.
func NewMonitorStatusUseCase(
	betRepo bet.Repository,
	gateway blockchain.Gateway,
	pollIntervalSecs, maxAttempts int,
	logger logger.Interface,
) *MonitorStatusUseCase {
	return &MonitorStatusUseCase{
		betRepo:          betRepo,
		gateway:          gateway,
		pollIntervalSecs: pollIntervalSecs,
		maxAttempts:      maxAttempts,
		logger:           logger.Named("monitor-status"),
	}
}

// Execute returns the monitor status. The balance read is best effort.
func (uc *MonitorStatusUseCase) Execute(ctx context.Context) (*MonitorStatusResult, error) {
	pending, err := uc.betRepo.CountPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting pending bets: %w", err)
	}

	result := &MonitorStatusResult{
		PendingBets:      pending,
		PollIntervalSecs: uc.pollIntervalSecs,
		MaxAttempts:      uc.maxAttempts,
		ReceivingAddress: uc.gateway.ReceivingAddress(),
	}

	if balance, err := uc.gateway.Balance(ctx, uc.gateway.ReceivingAddress()); err != nil {
		uc.logger.Warnw("wallet balance unavailable", "error", err)
	} else {
		result.WalletBalance = balance.String()
	}

	return result, nil
}

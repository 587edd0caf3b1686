// Package usecases implements the payment application operations: matching
// inbound transactions to pending bets and the short-lived payment sessions.
package usecases

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"blocklotto/internal/application/payment/blockchain"
	"blocklotto/internal/domain/bet"
	"blocklotto/internal/domain/round"
	"blocklotto/internal/shared/logger"
)

const reconcileBatchLimit = 200

// ReconcileStats summarizes one reconciliation pass.
type ReconcileStats struct {
	Checked   int `json:"checked"`
	Confirmed int `json:"confirmed"`
	Failed    int `json:"failed"`
	Errors    int `json:"errors"`
}

// ReconcilePaymentsUseCase matches recent inbound transactions to pending
// bets. Passes are serialized: a transaction is only ever claimed inside a
// pass, so first match wins and no transaction pays two bets.
type ReconcilePaymentsUseCase struct {
	betRepo     bet.Repository
	roundRepo   round.Repository
	gateway     blockchain.Gateway
	betAmount   decimal.Decimal
	tolerance   decimal.Decimal
	maxAttempts int
	logger      logger.Interface

	executeMu sync.Mutex
}

// NewReconcilePaymentsUseCase creates a ReconcilePaymentsUseCase.
func NewReconcilePaymentsUseCase(
	betRepo bet.Repository,
	roundRepo round.Repository,
	gateway blockchain.Gateway,
	betAmount, tolerance decimal.Decimal,
	maxAttempts int,
	logger logger.Interface,
) *ReconcilePaymentsUseCase {
	return &ReconcilePaymentsUseCase{
		betRepo:     betRepo,
		roundRepo:   roundRepo,
		gateway:     gateway,
		betAmount:   betAmount,
		tolerance:   tolerance,
		maxAttempts: maxAttempts,
		logger:      logger.Named("reconcile-payments"),
	}
}

// Execute runs one pass. A failure on one bet is logged and does not stop the
// rest of the pass.
func (uc *ReconcilePaymentsUseCase) Execute(ctx context.Context) (*ReconcileStats, error) {
	uc.executeMu.Lock()
	defer uc.executeMu.Unlock()

	stats := &ReconcileStats{}

	pending, err := uc.betRepo.ListPendingForCheck(ctx, uc.maxAttempts, reconcileBatchLimit)
	if err != nil {
		return nil, fmt.Errorf("listing pending bets: %w", err)
	}
	if len(pending) == 0 {
		return stats, nil
	}

	inbound, err := uc.gateway.RecentInbound(ctx, reconcileBatchLimit)
	if err != nil {
		return nil, fmt.Errorf("scanning inbound transactions: %w", err)
	}

	// Transactions claimed during this pass. DB claims are checked per
	// candidate; together with the serialized pass this keeps one
	// transaction on one bet.
	claimed := make(map[string]bool)
	rounds := make(map[int]*round.Round)

	for _, b := range pending {
		stats.Checked++
		if err := uc.reconcileBet(ctx, b, inbound, claimed, rounds, stats); err != nil {
			stats.Errors++
			uc.logger.Errorw("reconcile failed for bet", "bet_id", b.ID(), "error", err)
			// The attempt still counts: a bet that errors every pass must
			// approach the attempt bound, not retry forever.
			if err := uc.betRepo.Update(ctx, b); err != nil {
				uc.logger.Errorw("persisting check attempt failed", "bet_id", b.ID(), "error", err)
			}
		}
	}

	if stats.Confirmed > 0 || stats.Failed > 0 {
		uc.logger.Infow("reconcile pass complete",
			"checked", stats.Checked,
			"confirmed", stats.Confirmed,
			"failed", stats.Failed,
			"errors", stats.Errors,
		)
	}

	return stats, nil
}

func (uc *ReconcilePaymentsUseCase) reconcileBet(
	ctx context.Context,
	b *bet.Bet,
	inbound []blockchain.Transaction,
	claimed map[string]bool,
	rounds map[int]*round.Round,
	stats *ReconcileStats,
) error {
	b.RecordCheckAttempt()

	tx, err := uc.findMatch(ctx, b, inbound, claimed)
	if err != nil {
		return err
	}

	if tx == nil {
		if b.PaymentCheckAttempts() >= uc.maxAttempts {
			if err := b.FailPayment("no matching payment found within the check window"); err != nil {
				return err
			}
			stats.Failed++
			uc.logger.Warnw("bet payment expired",
				"bet_id", b.ID(),
				"attempts", b.PaymentCheckAttempts(),
			)
		}
		return uc.betRepo.Update(ctx, b)
	}

	if err := b.ConfirmPayment(tx.Hash, tx.From, tx.Value, tx.Timestamp); err != nil {
		return err
	}
	claimed[tx.Hash] = true

	r, err := uc.roundFor(ctx, b.RoundID(), rounds)
	if err != nil {
		return err
	}
	if r != nil && tx.Timestamp.After(r.DrawDate()) {
		b.FlagValidationError("payment received after draw cutoff")
	}

	if err := uc.betRepo.Update(ctx, b); err != nil {
		return err
	}

	stats.Confirmed++
	uc.logger.Infow("bet payment confirmed",
		"bet_id", b.ID(),
		"tx", tx.Hash,
		"value", tx.Value.String(),
	)

	return nil
}

// findMatch picks the oldest unclaimed inbound transaction that fits the bet:
// right value within tolerance and mined at or after the bet was placed.
func (uc *ReconcilePaymentsUseCase) findMatch(
	ctx context.Context,
	b *bet.Bet,
	inbound []blockchain.Transaction,
	claimed map[string]bool,
) (*blockchain.Transaction, error) {
	for i := len(inbound) - 1; i >= 0; i-- {
		tx := inbound[i]
		if claimed[tx.Hash] {
			continue
		}
		if tx.Timestamp.Before(b.PlacedAt()) {
			continue
		}
		if tx.Value.Sub(uc.betAmount).Abs().GreaterThan(uc.tolerance) {
			continue
		}

		prior, err := uc.betRepo.GetByTransactionID(ctx, tx.Hash)
		if err != nil {
			return nil, fmt.Errorf("checking transaction claim: %w", err)
		}
		if prior != nil {
			claimed[tx.Hash] = true
			continue
		}

		return &tx, nil
	}
	return nil, nil
}

func (uc *ReconcilePaymentsUseCase) roundFor(ctx context.Context, roundID int, cache map[int]*round.Round) (*round.Round, error) {
	if r, ok := cache[roundID]; ok {
		return r, nil
	}
	r, err := uc.roundRepo.GetByRoundID(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("getting round %d: %w", roundID, err)
	}
	cache[roundID] = r
	return r, nil
}

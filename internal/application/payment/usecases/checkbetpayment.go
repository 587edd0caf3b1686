package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"blocklotto/internal/application/payment/blockchain"
	"blocklotto/internal/domain/bet"
	"blocklotto/internal/domain/round"
	apperrors "blocklotto/internal/shared/errors"
	"blocklotto/internal/shared/logger"
)

// CheckBetPaymentCommand forces a payment check for one bet. TransactionID is
// optional; when present that specific transaction is verified instead of
// scanning recent inbound transfers.
type CheckBetPaymentCommand struct {
	BetID         uint
	TransactionID string
}

// CheckBetPaymentResult reports the outcome of the forced check.
type CheckBetPaymentResult struct {
	BetID         uint    `json:"bet_id"`
	Status        string  `json:"status"`
	TransactionID *string `json:"transaction_id,omitempty"`
	Attempts      int     `json:"attempts"`
}

// CheckBetPaymentUseCase verifies one bet's payment on demand, outside the
// scheduled reconciliation loop.
type CheckBetPaymentUseCase struct {
	betRepo   bet.Repository
	roundRepo round.Repository
	gateway   blockchain.Gateway
	betAmount decimal.Decimal
	tolerance decimal.Decimal
	logger    logger.Interface
}

// NewCheckBetPaymentUseCase creates a CheckBetPaymentUseCase.
func NewCheckBetPaymentUseCase(
	betRepo bet.Repository,
	roundRepo round.Repository,
	gateway blockchain.Gateway,
	betAmount, tolerance decimal.Decimal,
	logger logger.Interface,
) *CheckBetPaymentUseCase {
	return &CheckBetPaymentUseCase{
		betRepo:   betRepo,
		roundRepo: roundRepo,
		gateway:   gateway,
		betAmount: betAmount,
		tolerance: tolerance,
		logger:    logger.Named("check-bet-payment"),
	}
}

// Execute checks the bet. Already-paid bets return their current state.
func (uc *CheckBetPaymentUseCase) Execute(ctx context.Context, cmd CheckBetPaymentCommand) (*CheckBetPaymentResult, error) {
	b, err := uc.betRepo.GetByID(ctx, cmd.BetID)
	if err != nil {
		return nil, fmt.Errorf("getting bet: %w", err)
	}
	if b == nil {
		return nil, apperrors.NewNotFoundError("bet not found")
	}

	if b.Status().IsFinal() {
		return uc.result(b), nil
	}

	var tx *blockchain.Transaction
	if cmd.TransactionID != "" {
		tx, err = uc.verifyExplicit(ctx, cmd.TransactionID)
	} else {
		tx, err = uc.scanForMatch(ctx, b)
	}
	if err != nil {
		return nil, err
	}

	b.RecordCheckAttempt()

	if tx == nil {
		if err := uc.betRepo.Update(ctx, b); err != nil {
			return nil, fmt.Errorf("updating bet: %w", err)
		}
		return uc.result(b), nil
	}

	if err := b.ConfirmPayment(tx.Hash, tx.From, tx.Value, tx.Timestamp); err != nil {
		return nil, apperrors.NewConflictError(err.Error())
	}

	r, err := uc.roundRepo.GetByRoundID(ctx, b.RoundID())
	if err != nil {
		return nil, fmt.Errorf("getting round: %w", err)
	}
	if r != nil && tx.Timestamp.After(r.DrawDate()) {
		b.FlagValidationError("payment received after draw cutoff")
	}

	if err := uc.betRepo.Update(ctx, b); err != nil {
		return nil, fmt.Errorf("updating bet: %w", err)
	}

	uc.logger.Infow("forced check confirmed payment", "bet_id", b.ID(), "tx", tx.Hash)
	return uc.result(b), nil
}

func (uc *CheckBetPaymentUseCase) verifyExplicit(ctx context.Context, txID string) (*blockchain.Transaction, error) {
	prior, err := uc.betRepo.GetByTransactionID(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("checking transaction claim: %w", err)
	}
	if prior != nil {
		return nil, apperrors.NewConflictError("transaction already claimed by another bet")
	}

	tx, err := uc.gateway.TransactionByHash(ctx, txID)
	if err != nil {
		switch {
		case errors.Is(err, blockchain.ErrTxNotFound):
			return nil, apperrors.NewNotFoundError("transaction not found on chain")
		case errors.Is(err, blockchain.ErrTxPending):
			return nil, apperrors.NewConflictError("transaction is not confirmed yet")
		case errors.Is(err, blockchain.ErrTxFailed),
			errors.Is(err, blockchain.ErrWrongRecipient),
			errors.Is(err, blockchain.ErrValueTooLow):
			return nil, apperrors.NewValidationError("transaction is not a valid bet payment", err.Error())
		default:
			return nil, fmt.Errorf("fetching transaction: %w", err)
		}
	}

	if tx.Value.Sub(uc.betAmount).Abs().GreaterThan(uc.tolerance) {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("transaction value %s does not match bet amount %s", tx.Value, uc.betAmount))
	}

	return tx, nil
}

func (uc *CheckBetPaymentUseCase) scanForMatch(ctx context.Context, b *bet.Bet) (*blockchain.Transaction, error) {
	inbound, err := uc.gateway.RecentInbound(ctx, reconcileBatchLimit)
	if err != nil {
		return nil, fmt.Errorf("scanning inbound transactions: %w", err)
	}

	for i := len(inbound) - 1; i >= 0; i-- {
		tx := inbound[i]
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
			continue
		}
		return &tx, nil
	}
	return nil, nil
}

func (uc *CheckBetPaymentUseCase) result(b *bet.Bet) *CheckBetPaymentResult {
	return &CheckBetPaymentResult{
		BetID:         b.ID(),
		Status:        b.Status().String(),
		TransactionID: b.TransactionID(),
		Attempts:      b.PaymentCheckAttempts(),
	}
}

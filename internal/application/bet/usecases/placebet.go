// Package usecases implements the bet application operations: placement,
// queries and prize payout administration.
package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"blocklotto/internal/application/payment/blockchain"
	roundservices "blocklotto/internal/application/round/services"
	"blocklotto/internal/domain/bet"
	vo "blocklotto/internal/domain/bet/valueobjects"
	"blocklotto/internal/shared/db"
	apperrors "blocklotto/internal/shared/errors"
	"blocklotto/internal/shared/logger"
)

// PlaceBetCommand carries a single bet submission. TransactionID is optional;
// when present the payment is verified synchronously instead of waiting for
// the reconciler.
type PlaceBetCommand struct {
	Numbers       []int
	Nickname      string
	TransactionID string
}

// PlaceBetResult reports the stored bet and the payment instructions the
// caller needs when the bet is still unpaid.
type PlaceBetResult struct {
	BetID            uint      `json:"bet_id"`
	RoundID          int       `json:"round_id"`
	DrawDate         time.Time `json:"draw_date"`
	Numbers          []int     `json:"numbers"`
	Status           string    `json:"status"`
	ReceivingAddress string    `json:"receiving_address"`
	BetAmount        string    `json:"bet_amount"`
}

// PlaceBetUseCase stores a bet against the current round.
type PlaceBetUseCase struct {
	betRepo      bet.Repository
	roundManager *roundservices.RoundManager
	gateway      blockchain.Gateway
	txManager    *db.TransactionManager
	pickSize     int
	maxNumber    int
	betAmount    decimal.Decimal
	tolerance    decimal.Decimal
	logger       logger.Interface
}

// NewPlaceBetUseCase creates a PlaceBetUseCase.
func NewPlaceBetUseCase(
	betRepo bet.Repository,
	roundManager *roundservices.RoundManager,
	gateway blockchain.Gateway,
	txManager *db.TransactionManager,
	pickSize, maxNumber int,
	betAmount, tolerance decimal.Decimal,
	logger logger.Interface,
) *PlaceBetUseCase {
	return &PlaceBetUseCase{
		betRepo:      betRepo,
		roundManager: roundManager,
		gateway:      gateway,
		txManager:    txManager,
		pickSize:     pickSize,
		maxNumber:    maxNumber,
		betAmount:    betAmount,
		tolerance:    tolerance,
		logger:       logger.Named("place-bet"),
	}
}

// Execute validates the pick, attaches the bet to the open round and, when a
// transaction hash was supplied, verifies the payment on the spot.
func (uc *PlaceBetUseCase) Execute(ctx context.Context, cmd PlaceBetCommand) (*PlaceBetResult, error) {
	numbers, err := vo.NewNumbers(cmd.Numbers, uc.pickSize, uc.maxNumber)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid numbers", err.Error())
	}

	current, err := uc.roundManager.GetOrOpenCurrent(ctx)
	if err != nil {
		return nil, err
	}

	b, err := bet.NewBet(numbers, current.RoundID(), cmd.Nickname)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid bet", err.Error())
	}

	if cmd.TransactionID != "" {
		if err := uc.verifyAndConfirm(ctx, b, current.DrawDate(), cmd.TransactionID); err != nil {
			return nil, err
		}
	}

	err = uc.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := uc.betRepo.Create(txCtx, b); err != nil {
			return fmt.Errorf("creating bet: %w", err)
		}
		return uc.roundManager.IncrementTotalBets(txCtx, current.RoundID())
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Infow("bet placed",
		"bet_id", b.ID(),
		"round_id", b.RoundID(),
		"status", b.Status().String(),
	)

	return &PlaceBetResult{
		BetID:            b.ID(),
		RoundID:          b.RoundID(),
		DrawDate:         current.DrawDate(),
		Numbers:          b.Numbers().Values(),
		Status:           b.Status().String(),
		ReceivingAddress: uc.gateway.ReceivingAddress(),
		BetAmount:        uc.betAmount.String(),
	}, nil
}

// verifyAndConfirm checks a caller-supplied transaction against the chain and
// against prior claims, then confirms the bet.
func (uc *PlaceBetUseCase) verifyAndConfirm(ctx context.Context, b *bet.Bet, drawDate time.Time, txID string) error {
	claimed, err := uc.betRepo.GetByTransactionID(ctx, txID)
	if err != nil {
		return fmt.Errorf("checking transaction claim: %w", err)
	}
	if claimed != nil {
		return apperrors.NewConflictError("transaction already claimed by another bet")
	}

	tx, err := uc.gateway.TransactionByHash(ctx, txID)
	if err != nil {
		switch {
		case errors.Is(err, blockchain.ErrTxNotFound):
			return apperrors.NewNotFoundError("transaction not found on chain")
		case errors.Is(err, blockchain.ErrTxPending):
			return apperrors.NewConflictError("transaction is not confirmed yet")
		case errors.Is(err, blockchain.ErrTxFailed),
			errors.Is(err, blockchain.ErrWrongRecipient),
			errors.Is(err, blockchain.ErrValueTooLow):
			return apperrors.NewValidationError("transaction is not a valid bet payment", err.Error())
		default:
			return fmt.Errorf("fetching transaction: %w", err)
		}
	}

	if tx.Value.Sub(uc.betAmount).Abs().GreaterThan(uc.tolerance) {
		return apperrors.NewValidationError(
			fmt.Sprintf("transaction value %s does not match bet amount %s", tx.Value, uc.betAmount))
	}

	if err := b.ConfirmPayment(tx.Hash, tx.From, tx.Value, tx.Timestamp); err != nil {
		return apperrors.NewConflictError(err.Error())
	}
	if tx.Timestamp.After(drawDate) {
		b.FlagValidationError("payment received after draw cutoff")
	}

	return nil
}

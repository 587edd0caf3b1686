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

// maxBetsPerBatch bounds one batch submission.
const maxBetsPerBatch = 100

// PlaceMultipleBetsCommand carries a batch of picks funded, optionally, by a
// single transaction covering the whole batch.
type PlaceMultipleBetsCommand struct {
	Bets          []BatchBetEntry
	TransactionID string
}

// BatchBetEntry is one pick inside a batch.
type BatchBetEntry struct {
	Numbers  []int
	Nickname string
}

// PlaceMultipleBetsResult reports the stored batch.
type PlaceMultipleBetsResult struct {
	RoundID          int              `json:"round_id"`
	Bets             []PlaceBetResult `json:"bets"`
	TotalAmount      string           `json:"total_amount"`
	ReceivingAddress string           `json:"receiving_address"`
}

// PlaceMultipleBetsUseCase stores a batch of bets atomically: either every
// pick is accepted or none is.
type PlaceMultipleBetsUseCase struct {
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

// NewPlaceMultipleBetsUseCase creates a PlaceMultipleBetsUseCase.
func NewPlaceMultipleBetsUseCase(
	betRepo bet.Repository,
	roundManager *roundservices.RoundManager,
	gateway blockchain.Gateway,
	txManager *db.TransactionManager,
	pickSize, maxNumber int,
	betAmount, tolerance decimal.Decimal,
	logger logger.Interface,
) *PlaceMultipleBetsUseCase {
	return &PlaceMultipleBetsUseCase{
		betRepo:      betRepo,
		roundManager: roundManager,
		gateway:      gateway,
		txManager:    txManager,
		pickSize:     pickSize,
		maxNumber:    maxNumber,
		betAmount:    betAmount,
		tolerance:    tolerance,
		logger:       logger.Named("place-multiple-bets"),
	}
}

// Execute validates every pick up front, verifies the shared payment when a
// transaction hash was supplied, then stores the batch in one transaction.
func (uc *PlaceMultipleBetsUseCase) Execute(ctx context.Context, cmd PlaceMultipleBetsCommand) (*PlaceMultipleBetsResult, error) {
	if len(cmd.Bets) == 0 {
		return nil, apperrors.NewValidationError("at least one bet is required")
	}
	if len(cmd.Bets) > maxBetsPerBatch {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("at most %d bets per batch, got %d", maxBetsPerBatch, len(cmd.Bets)))
	}

	current, err := uc.roundManager.GetOrOpenCurrent(ctx)
	if err != nil {
		return nil, err
	}

	bets := make([]*bet.Bet, 0, len(cmd.Bets))
	for i, entry := range cmd.Bets {
		numbers, err := vo.NewNumbers(entry.Numbers, uc.pickSize, uc.maxNumber)
		if err != nil {
			return nil, apperrors.NewValidationError(
				fmt.Sprintf("bet %d: invalid numbers", i+1), err.Error())
		}
		b, err := bet.NewBet(numbers, current.RoundID(), entry.Nickname)
		if err != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("bet %d: %s", i+1, err.Error()))
		}
		bets = append(bets, b)
	}

	totalAmount := uc.betAmount.Mul(decimal.NewFromInt(int64(len(bets))))

	if cmd.TransactionID != "" {
		if err := uc.verifyBatchPayment(ctx, bets, current.DrawDate(), cmd.TransactionID, totalAmount); err != nil {
			return nil, err
		}
	}

	err = uc.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		for _, b := range bets {
			if err := uc.betRepo.Create(txCtx, b); err != nil {
				return fmt.Errorf("creating bet: %w", err)
			}
			if err := uc.roundManager.IncrementTotalBets(txCtx, current.RoundID()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Infow("batch placed",
		"round_id", current.RoundID(),
		"count", len(bets),
		"total_amount", totalAmount.String(),
	)

	results := make([]PlaceBetResult, 0, len(bets))
	for _, b := range bets {
		results = append(results, PlaceBetResult{
			BetID:            b.ID(),
			RoundID:          b.RoundID(),
			DrawDate:         current.DrawDate(),
			Numbers:          b.Numbers().Values(),
			Status:           b.Status().String(),
			ReceivingAddress: uc.gateway.ReceivingAddress(),
			BetAmount:        uc.betAmount.String(),
		})
	}

	return &PlaceMultipleBetsResult{
		RoundID:          current.RoundID(),
		Bets:             results,
		TotalAmount:      totalAmount.String(),
		ReceivingAddress: uc.gateway.ReceivingAddress(),
	}, nil
}

// verifyBatchPayment validates one transaction covering the whole batch and
// confirms every pick against it. The per-bet recorded value is the batch
// total divided evenly.
func (uc *PlaceMultipleBetsUseCase) verifyBatchPayment(
	ctx context.Context,
	bets []*bet.Bet,
	drawDate time.Time,
	txID string,
	totalAmount decimal.Decimal,
) error {
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

	if tx.Value.Sub(totalAmount).Abs().GreaterThan(uc.tolerance) {
		return apperrors.NewValidationError(
			fmt.Sprintf("transaction value %s does not match batch total %s", tx.Value, totalAmount))
	}

	perBet := tx.Value.Div(decimal.NewFromInt(int64(len(bets))))
	late := tx.Timestamp.After(drawDate)
	for _, b := range bets {
		if err := b.ConfirmPayment(tx.Hash, tx.From, perBet, tx.Timestamp); err != nil {
			return apperrors.NewConflictError(err.Error())
		}
		if late {
			b.FlagValidationError("payment received after draw cutoff")
		}
	}

	return nil
}

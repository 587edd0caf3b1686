package usecases

import (
	"context"
	"fmt"

	"blocklotto/internal/application/payment/blockchain"
	"blocklotto/internal/domain/bet"
	"blocklotto/internal/shared/biztime"
	apperrors "blocklotto/internal/shared/errors"
	"blocklotto/internal/shared/logger"
)

// ManualPayoutCommand retries the prize payout of one winning bet.
type ManualPayoutCommand struct {
	BetID uint
}

// ManualPayoutResult reports the sent payout.
type ManualPayoutResult struct {
	BetID       uint   `json:"bet_id"`
	Amount      string `json:"amount"`
	To          string `json:"to"`
	PaymentTxID string `json:"payment_tx_id"`
}

// ManualPayoutUseCase pays a winner whose automatic payout failed during
// finalization.
type ManualPayoutUseCase struct {
	betRepo bet.Repository
	gateway blockchain.Gateway
	logger  logger.Interface
}

// NewManualPayoutUseCase creates a ManualPayoutUseCase.
func NewManualPayoutUseCase(betRepo bet.Repository, gateway blockchain.Gateway, logger logger.Interface) *ManualPayoutUseCase {
	return &ManualPayoutUseCase{
		betRepo: betRepo,
		gateway: gateway,
		logger:  logger.Named("manual-payout"),
	}
}

// Execute sends the awarded prize to the bet's funding address and records
// the payout.
func (uc *ManualPayoutUseCase) Execute(ctx context.Context, cmd ManualPayoutCommand) (*ManualPayoutResult, error) {
	b, err := uc.betRepo.GetByID(ctx, cmd.BetID)
	if err != nil {
		return nil, fmt.Errorf("getting bet: %w", err)
	}
	if b == nil {
		return nil, apperrors.NewNotFoundError("bet not found")
	}
	if b.PrizeAmount().IsZero() {
		return nil, apperrors.NewConflictError("bet has no prize to pay")
	}
	if b.IsPaid() {
		return nil, apperrors.NewConflictError("prize already paid")
	}
	if b.FromAddress() == "" {
		return nil, apperrors.NewConflictError("bet has no funding address to pay back to")
	}

	payment, err := uc.gateway.SendPayment(ctx, b.FromAddress(), b.PrizeAmount())
	if err != nil {
		return nil, apperrors.NewInternalError("sending payout failed", err.Error())
	}

	if err := b.MarkPrizePaid(payment.TxHash, biztime.NowUTC()); err != nil {
		return nil, apperrors.NewConflictError(err.Error())
	}
	if err := uc.betRepo.Update(ctx, b); err != nil {
		// The payout is on chain; losing the record here needs operator eyes.
		uc.logger.Errorw("payout sent but bet update failed",
			"bet_id", b.ID(),
			"payment_tx", payment.TxHash,
			"error", err,
		)
		return nil, fmt.Errorf("recording payout: %w", err)
	}

	uc.logger.Infow("manual payout sent",
		"bet_id", b.ID(),
		"to", b.FromAddress(),
		"amount", b.PrizeAmount().String(),
		"payment_tx", payment.TxHash,
	)

	return &ManualPayoutResult{
		BetID:       b.ID(),
		Amount:      b.PrizeAmount().String(),
		To:          b.FromAddress(),
		PaymentTxID: payment.TxHash,
	}, nil
}

package bet

import (
	"context"

	vo "blocklotto/internal/domain/bet/valueobjects"
)

// Repository persists bets. Each read path is an explicit typed query; there
// is no generic filter object.
type Repository interface {
	Create(ctx context.Context, b *Bet) error
	Update(ctx context.Context, b *Bet) error

	GetByID(ctx context.Context, id uint) (*Bet, error)
	// GetByTransactionID returns nil, nil when no bet claimed the transaction.
	GetByTransactionID(ctx context.Context, txID string) (*Bet, error)

	ListRecent(ctx context.Context, limit int) ([]*Bet, error)
	ListByRound(ctx context.Context, roundID int) ([]*Bet, error)
	ListByRoundAndStatus(ctx context.Context, roundID int, status vo.PaymentStatus) ([]*Bet, error)
	// ListPending returns bets awaiting payment, oldest first, capped at limit.
	ListPending(ctx context.Context, limit int) ([]*Bet, error)
	// ListPendingForCheck returns pending bets still within the retry bound,
	// oldest first, capped at limit.
	ListPendingForCheck(ctx context.Context, maxAttempts, limit int) ([]*Bet, error)
	// ListWinnersByRound returns bets of the round with a prize awarded,
	// highest match count first.
	ListWinnersByRound(ctx context.Context, roundID int) ([]*Bet, error)
	// ListUnpaidWinners returns bets with an awarded prize and no successful
	// payout yet, across all rounds.
	ListUnpaidWinners(ctx context.Context) ([]*Bet, error)

	CountPending(ctx context.Context) (int64, error)
}

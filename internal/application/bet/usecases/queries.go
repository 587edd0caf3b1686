package usecases

import (
	"context"
	"fmt"

	"blocklotto/internal/domain/bet"
	"blocklotto/internal/domain/round"
	apperrors "blocklotto/internal/shared/errors"
)

const defaultRecentLimit = 50

// BetQueries bundles the read-only bet lookups behind one dependency.
type BetQueries struct {
	betRepo   bet.Repository
	roundRepo round.Repository
}

// NewBetQueries creates a BetQueries.
func NewBetQueries(betRepo bet.Repository, roundRepo round.Repository) *BetQueries {
	return &BetQueries{betRepo: betRepo, roundRepo: roundRepo}
}

// Recent returns the latest bets across rounds, newest first.
func (q *BetQueries) Recent(ctx context.Context, limit int) ([]BetDTO, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultRecentLimit
	}
	bets, err := q.betRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent bets: %w", err)
	}
	return toBetDTOs(bets), nil
}

// ByID returns one bet.
func (q *BetQueries) ByID(ctx context.Context, id uint) (*BetDTO, error) {
	b, err := q.betRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting bet: %w", err)
	}
	if b == nil {
		return nil, apperrors.NewNotFoundError("bet not found")
	}
	dto := toBetDTO(b)
	return &dto, nil
}

// ByTransaction returns the bet that claimed a transaction hash.
func (q *BetQueries) ByTransaction(ctx context.Context, txID string) (*BetDTO, error) {
	if txID == "" {
		return nil, apperrors.NewValidationError("transaction ID is required")
	}
	b, err := q.betRepo.GetByTransactionID(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("getting bet by transaction: %w", err)
	}
	if b == nil {
		return nil, apperrors.NewNotFoundError("no bet for transaction")
	}
	dto := toBetDTO(b)
	return &dto, nil
}

// ByRound returns every bet of a round.
func (q *BetQueries) ByRound(ctx context.Context, roundID int) ([]BetDTO, error) {
	if roundID < 1 {
		return nil, apperrors.NewValidationError("round ID must be positive")
	}
	bets, err := q.betRepo.ListByRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("listing round bets: %w", err)
	}
	return toBetDTOs(bets), nil
}

// WinnersByRound returns the bets of a round that won a prize, best first.
// Winners only exist once the round is finalized.
func (q *BetQueries) WinnersByRound(ctx context.Context, roundID int) ([]BetDTO, error) {
	if roundID < 1 {
		return nil, apperrors.NewValidationError("round ID must be positive")
	}

	r, err := q.roundRepo.GetByRoundID(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("getting round: %w", err)
	}
	if r == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("round %d not found", roundID))
	}
	if !r.IsFinalized() {
		return nil, apperrors.NewConflictError(fmt.Sprintf("round %d is not finalized yet", roundID))
	}

	bets, err := q.betRepo.ListWinnersByRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("listing round winners: %w", err)
	}
	return toBetDTOs(bets), nil
}

// Pending returns bets still awaiting payment, oldest first.
func (q *BetQueries) Pending(ctx context.Context, limit int) ([]BetDTO, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultRecentLimit
	}
	bets, err := q.betRepo.ListPending(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing pending bets: %w", err)
	}
	return toBetDTOs(bets), nil
}

// UnpaidWinners returns awarded bets that still lack a successful payout.
func (q *BetQueries) UnpaidWinners(ctx context.Context) ([]BetDTO, error) {
	bets, err := q.betRepo.ListUnpaidWinners(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing unpaid winners: %w", err)
	}
	return toBetDTOs(bets), nil
}

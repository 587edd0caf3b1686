package usecases

import (
	"context"
	"fmt"
	"time"

	"blocklotto/internal/domain/round"
	apperrors "blocklotto/internal/shared/errors"
)

const defaultHistoryLimit = 20

// RoundDTO is the transport shape of a round.
type RoundDTO struct {
	RoundID           int         `json:"round_id"`
	StartTime         time.Time   `json:"start_time"`
	DrawDate          time.Time   `json:"draw_date"`
	IsFinalized       bool        `json:"is_finalized"`
	FinalizedAt       *time.Time  `json:"finalized_at,omitempty"`
	WinningNumbers    []int       `json:"winning_numbers,omitempty"`
	TotalBets         int         `json:"total_bets"`
	TotalPrizePool    string      `json:"total_prize_pool"`
	AccumulatedAmount string      `json:"accumulated_amount"`
	RolloverAmount    string      `json:"rollover_amount"`
	Winners           map[int]int `json:"winners,omitempty"`
}

func toRoundDTO(r *round.Round) RoundDTO {
	dto := RoundDTO{
		RoundID:           r.RoundID(),
		StartTime:         r.StartTime(),
		DrawDate:          r.DrawDate(),
		IsFinalized:       r.IsFinalized(),
		FinalizedAt:       r.FinalizedAt(),
		TotalBets:         r.TotalBets(),
		TotalPrizePool:    r.TotalPrizePool().String(),
		AccumulatedAmount: r.AccumulatedAmount().String(),
		RolloverAmount:    r.RolloverAmount().String(),
	}
	if r.IsFinalized() {
		dto.WinningNumbers = r.WinningNumbers().Values()
		dto.Winners = r.Winners()
	}
	return dto
}

// RoundQueries bundles the read-only round lookups.
type RoundQueries struct {
	roundRepo round.Repository
}

// NewRoundQueries creates a RoundQueries.
func NewRoundQueries(roundRepo round.Repository) *RoundQueries {
	return &RoundQueries{roundRepo: roundRepo}
}

// ByID returns one round.
func (q *RoundQueries) ByID(ctx context.Context, roundID int) (*RoundDTO, error) {
	if roundID < 1 {
		return nil, apperrors.NewValidationError("round ID must be positive")
	}
	r, err := q.roundRepo.GetByRoundID(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("getting round: %w", err)
	}
	if r == nil {
		return nil, apperrors.NewNotFoundError("round not found")
	}
	dto := toRoundDTO(r)
	return &dto, nil
}

// History returns recent rounds, newest first.
func (q *RoundQueries) History(ctx context.Context, limit int) ([]RoundDTO, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultHistoryLimit
	}
	rounds, err := q.roundRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing rounds: %w", err)
	}
	out := make([]RoundDTO, 0, len(rounds))
	for _, r := range rounds {
		out = append(out, toRoundDTO(r))
	}
	return out, nil
}

// Package round holds the betting round aggregate and its draw schedule.
package round

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	vo "blocklotto/internal/domain/bet/valueobjects"
	"blocklotto/internal/shared/biztime"
)

// Round is one betting cycle between two draws. At most one round may be open
// (not finalized) at any time; it is the round new bets attach to.
type Round struct {
	id      uint
	roundID int

	startTime time.Time
	drawDate  time.Time

	isFinalized    bool
	finalizedAt    *time.Time
	winningNumbers vo.Numbers

	totalBets int

	totalPrizePool    decimal.Decimal
	accumulatedAmount decimal.Decimal
	rolloverAmount    decimal.Decimal

	// winners maps a match count to the number of paid bets that achieved it.
	winners map[int]int

	createdAt time.Time
	updatedAt time.Time
}

// NewRound opens a round. accumulated is the rollover carried from the last
// finalized round, zero for the first round.
func NewRound(roundID int, drawDate time.Time, accumulated decimal.Decimal) (*Round, error) {
	if roundID < 1 {
		return nil, fmt.Errorf("round ID must be positive")
	}
	now := biztime.NowUTC()
	if !drawDate.After(now) {
		return nil, fmt.Errorf("draw date must be in the future")
	}
	if accumulated.IsNegative() {
		return nil, fmt.Errorf("accumulated amount cannot be negative")
	}

	return &Round{
		roundID:           roundID,
		startTime:         now,
		drawDate:          drawDate.UTC(),
		totalPrizePool:    decimal.Zero,
		accumulatedAmount: accumulated,
		rolloverAmount:    decimal.Zero,
		winners:           map[int]int{},
		createdAt:         now,
		updatedAt:         now,
	}, nil
}

// IsAcceptingBets reports whether the draw cutoff has not passed yet.
func (r *Round) IsAcceptingBets(now time.Time) bool {
	return !r.isFinalized && now.Before(r.drawDate)
}

// FinalizeStats carries the pool figures computed by the prize engine.
type FinalizeStats struct {
	TotalPrizePool decimal.Decimal
	RolloverAmount decimal.Decimal
	Winners        map[int]int
}

// Finalize applies the winning numbers and pool figures. A round can be
// finalized exactly once; a second attempt is rejected so the prize engine
// never reprocesses payouts.
func (r *Round) Finalize(winning vo.Numbers, stats FinalizeStats) error {
	if r.isFinalized {
		return fmt.Errorf("round %d is already finalized", r.roundID)
	}
	if winning.IsEmpty() {
		return fmt.Errorf("winning numbers are required")
	}

	now := biztime.NowUTC()
	r.isFinalized = true
	r.finalizedAt = &now
	r.winningNumbers = winning
	r.totalPrizePool = stats.TotalPrizePool
	r.rolloverAmount = stats.RolloverAmount
	r.winners = map[int]int{}
	for matches, count := range stats.Winners {
		r.winners[matches] = count
	}
	r.updatedAt = now

	return nil
}

func (r *Round) ID() uint                            { return r.id }
func (r *Round) RoundID() int                        { return r.roundID }
func (r *Round) StartTime() time.Time                { return r.startTime }
func (r *Round) DrawDate() time.Time                 { return r.drawDate }
func (r *Round) IsFinalized() bool                   { return r.isFinalized }
func (r *Round) FinalizedAt() *time.Time             { return r.finalizedAt }
func (r *Round) WinningNumbers() vo.Numbers          { return r.winningNumbers }
func (r *Round) TotalBets() int                      { return r.totalBets }
func (r *Round) TotalPrizePool() decimal.Decimal     { return r.totalPrizePool }
func (r *Round) AccumulatedAmount() decimal.Decimal  { return r.accumulatedAmount }
func (r *Round) RolloverAmount() decimal.Decimal     { return r.rolloverAmount }
func (r *Round) CreatedAt() time.Time                { return r.createdAt }
func (r *Round) UpdatedAt() time.Time                { return r.updatedAt }

// Winners returns a copy of the per-match-count winner tally.
func (r *Round) Winners() map[int]int {
	out := make(map[int]int, len(r.winners))
	for k, v := range r.winners {
		out[k] = v
	}
	return out
}

// SetID sets the database ID after persistence.
func (r *Round) SetID(id uint) {
	r.id = id
}

// RoundReconstructParams carries persisted state for rebuilding a Round.
type RoundReconstructParams struct {
	ID                uint
	RoundID           int
	StartTime         time.Time
	DrawDate          time.Time
	IsFinalized       bool
	FinalizedAt       *time.Time
	WinningNumbers    vo.Numbers
	TotalBets         int
	TotalPrizePool    decimal.Decimal
	AccumulatedAmount decimal.Decimal
	RolloverAmount    decimal.Decimal
	Winners           map[int]int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ReconstructRound rebuilds a Round from persistence.
func ReconstructRound(p RoundReconstructParams) *Round {
	winners := p.Winners
	if winners == nil {
		winners = map[int]int{}
	}
	return &Round{
		id:                p.ID,
		roundID:           p.RoundID,
		startTime:         p.StartTime,
		drawDate:          p.DrawDate,
		isFinalized:       p.IsFinalized,
		finalizedAt:       p.FinalizedAt,
		winningNumbers:    p.WinningNumbers,
		totalBets:         p.TotalBets,
		totalPrizePool:    p.TotalPrizePool,
		accumulatedAmount: p.AccumulatedAmount,
		rolloverAmount:    p.RolloverAmount,
		winners:           winners,
		createdAt:         p.CreatedAt,
		updatedAt:         p.UpdatedAt,
	}
}

// Package result holds the draw result aggregate: the winning numbers
// published for a draw date.
package result

import (
	"fmt"
	"time"

	vo "blocklotto/internal/domain/bet/valueobjects"
	"blocklotto/internal/shared/biztime"
)

// Result is a published set of winning numbers, keyed uniquely by draw date.
type Result struct {
	id        uint
	drawDate  time.Time
	numbers   vo.Numbers
	processed bool
	createdAt time.Time
	updatedAt time.Time
}

// NewResult creates an unprocessed draw result.
func NewResult(drawDate time.Time, numbers vo.Numbers) (*Result, error) {
	if numbers.IsEmpty() {
		return nil, fmt.Errorf("winning numbers are required")
	}
	if drawDate.IsZero() {
		return nil, fmt.Errorf("draw date is required")
	}

	now := biztime.NowUTC()
	return &Result{
		drawDate:  drawDate.UTC(),
		numbers:   numbers,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// MarkProcessed records that the result has been applied to a round.
func (r *Result) MarkProcessed() {
	r.processed = true
	r.updatedAt = biztime.NowUTC()
}

func (r *Result) ID() uint             { return r.id }
func (r *Result) DrawDate() time.Time  { return r.drawDate }
func (r *Result) Numbers() vo.Numbers  { return r.numbers }
func (r *Result) Processed() bool      { return r.processed }
func (r *Result) CreatedAt() time.Time { return r.createdAt }
func (r *Result) UpdatedAt() time.Time { return r.updatedAt }

// SetID sets the database ID after persistence.
func (r *Result) SetID(id uint) {
	r.id = id
}

// ReconstructResult rebuilds a Result from persistence.
func ReconstructResult(id uint, drawDate time.Time, numbers vo.Numbers, processed bool, createdAt, updatedAt time.Time) *Result {
	return &Result{
		id:        id,
		drawDate:  drawDate,
		numbers:   numbers,
		processed: processed,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

package result

import (
	"context"
	"time"
)

// Repository persists draw results. Draw date carries a uniqueness constraint.
type Repository interface {
	Create(ctx context.Context, r *Result) error
	Update(ctx context.Context, r *Result) error

	// GetByDrawDate returns nil, nil when no result exists for the date.
	GetByDrawDate(ctx context.Context, drawDate time.Time) (*Result, error)
	// FindFirstOnOrAfter returns the earliest result drawn on or after the
	// given date, nil when none exists.
	FindFirstOnOrAfter(ctx context.Context, drawDate time.Time) (*Result, error)
	ListLatest(ctx context.Context, limit int) ([]*Result, error)
}

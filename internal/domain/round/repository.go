package round

import "context"

// Repository persists rounds. The single-open-round invariant is enforced by
// the round manager on top of these operations; FindOpen and Create must be
// combinable inside one storage transaction.
type Repository interface {
	Create(ctx context.Context, r *Round) error
	Update(ctx context.Context, r *Round) error

	GetByRoundID(ctx context.Context, roundID int) (*Round, error)
	// FindOpen returns the unique non-finalized round, or nil, nil when every
	// round is finalized.
	FindOpen(ctx context.Context) (*Round, error)
	// MaxRoundID returns the highest round ID ever assigned, 0 when no round
	// exists yet.
	MaxRoundID(ctx context.Context) (int, error)
	// ListRecent returns rounds ordered by round ID descending.
	ListRecent(ctx context.Context, limit int) ([]*Round, error)
	// IncrementTotalBets atomically increments the bet counter of a round at
	// the storage layer, avoiding read-modify-write races.
	IncrementTotalBets(ctx context.Context, roundID int) error
}

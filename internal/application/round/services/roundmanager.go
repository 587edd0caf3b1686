// Package services holds round lifecycle coordination shared by the bet and
// draw use cases.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"blocklotto/internal/domain/round"
	"blocklotto/internal/shared/db"
	apperrors "blocklotto/internal/shared/errors"
	"blocklotto/internal/shared/logger"
)

// RoundManager owns the single-open-round invariant. Every path that needs
// the current round, or opens a new one, goes through it.
type RoundManager struct {
	roundRepo round.Repository
	txManager *db.TransactionManager
	schedule  round.DrawSchedule
	logger    logger.Interface
}

// NewRoundManager creates a RoundManager.
func NewRoundManager(
	roundRepo round.Repository,
	txManager *db.TransactionManager,
	schedule round.DrawSchedule,
	logger logger.Interface,
) *RoundManager {
	return &RoundManager{
		roundRepo: roundRepo,
		txManager: txManager,
		schedule:  schedule,
		logger:    logger.Named("round-manager"),
	}
}

// GetOrOpenCurrent returns the open round, creating it when none exists. The
// lookup and the create run in one storage transaction; a concurrent creator
// losing the race falls back to reading the winner's round.
func (m *RoundManager) GetOrOpenCurrent(ctx context.Context) (*round.Round, error) {
	var current *round.Round

	err := m.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		open, err := m.roundRepo.FindOpen(txCtx)
		if err != nil {
			return fmt.Errorf("finding open round: %w", err)
		}
		if open != nil {
			current = open
			return nil
		}

		opened, err := m.openNext(txCtx, decimal.Zero)
		if err != nil {
			return err
		}
		current = opened
		return nil
	})
	if err != nil {
		if apperrors.IsDuplicateError(err) {
			return m.readOpenAfterRace(ctx)
		}
		return nil, err
	}

	return current, nil
}

// OpenNext opens the round following a finalized one, carrying the rollover
// forward as the new accumulated amount. Fails when a round is still open.
func (m *RoundManager) OpenNext(ctx context.Context, accumulated decimal.Decimal) (*round.Round, error) {
	var opened *round.Round

	err := m.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		open, err := m.roundRepo.FindOpen(txCtx)
		if err != nil {
			return fmt.Errorf("finding open round: %w", err)
		}
		if open != nil {
			return apperrors.NewConflictError(fmt.Sprintf("round %d is still open", open.RoundID()))
		}

		opened, err = m.openNext(txCtx, accumulated)
		return err
	})
	if err != nil {
		return nil, err
	}

	return opened, nil
}

// IncrementTotalBets bumps the bet counter of a round atomically.
func (m *RoundManager) IncrementTotalBets(ctx context.Context, roundID int) error {
	return m.roundRepo.IncrementTotalBets(ctx, roundID)
}

// NextDrawDate exposes the schedule for status reporting.
func (m *RoundManager) NextDrawDate(now time.Time) time.Time {
	return m.schedule.NextDrawDate(now)
}

func (m *RoundManager) openNext(ctx context.Context, accumulated decimal.Decimal) (*round.Round, error) {
	maxID, err := m.roundRepo.MaxRoundID(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading max round ID: %w", err)
	}

	drawDate := m.schedule.NextDrawDate(time.Now())
	r, err := round.NewRound(maxID+1, drawDate, accumulated)
	if err != nil {
		return nil, fmt.Errorf("building round: %w", err)
	}

	if err := m.roundRepo.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("creating round: %w", err)
	}

	m.logger.Infow("opened round",
		"round_id", r.RoundID(),
		"draw_date", r.DrawDate().Format(time.RFC3339),
		"accumulated", accumulated.String(),
	)

	return r, nil
}

// readOpenAfterRace re-reads the open round after losing a creation race to a
// concurrent caller.
func (m *RoundManager) readOpenAfterRace(ctx context.Context) (*round.Round, error) {
	open, err := m.roundRepo.FindOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("re-reading open round: %w", err)
	}
	if open == nil {
		return nil, apperrors.NewInternalError("no open round after creation race")
	}
	return open, nil
}

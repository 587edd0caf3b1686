// Package repository implements the domain repositories on GORM.
package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"blocklotto/internal/domain/bet"
	vo "blocklotto/internal/domain/bet/valueobjects"
	"blocklotto/internal/infrastructure/persistence/mappers"
	"blocklotto/internal/infrastructure/persistence/models"
	"blocklotto/internal/shared/db"
)

// BetRepository is the GORM implementation of bet.Repository.
type BetRepository struct {
	db     *gorm.DB
	mapper *mappers.BetMapper
}

// NewBetRepository creates a BetRepository.
func NewBetRepository(database *gorm.DB) *BetRepository {
	return &BetRepository{
		db:     database,
		mapper: mappers.NewBetMapper(),
	}
}

// Create inserts the bet and writes the generated ID back.
func (r *BetRepository) Create(ctx context.Context, b *bet.Bet) error {
	row, err := r.mapper.ToModel(b)
	if err != nil {
		return err
	}

	conn := db.GetTxFromContext(ctx, r.db)
	if err := conn.Create(row).Error; err != nil {
		return fmt.Errorf("creating bet: %w", err)
	}

	b.SetID(row.ID)
	return nil
}

// Update saves the full bet row.
func (r *BetRepository) Update(ctx context.Context, b *bet.Bet) error {
	row, err := r.mapper.ToModel(b)
	if err != nil {
		return err
	}

	conn := db.GetTxFromContext(ctx, r.db)
	if err := conn.Save(row).Error; err != nil {
		return fmt.Errorf("updating bet: %w", err)
	}
	return nil
}

// GetByID returns one bet, nil when absent.
func (r *BetRepository) GetByID(ctx context.Context, id uint) (*bet.Bet, error) {
	conn := db.GetTxFromContext(ctx, r.db)

	var row models.BetModel
	if err := conn.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting bet: %w", err)
	}
	return r.mapper.ToDomain(&row)
}

// GetByTransactionID returns the bet that claimed the transaction, nil when
// none did.
func (r *BetRepository) GetByTransactionID(ctx context.Context, txID string) (*bet.Bet, error) {
	conn := db.GetTxFromContext(ctx, r.db)

	var row models.BetModel
	err := conn.Where("transaction_id = ?", txID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting bet by transaction: %w", err)
	}
	return r.mapper.ToDomain(&row)
}

// ListRecent returns the latest bets across all rounds.
func (r *BetRepository) ListRecent(ctx context.Context, limit int) ([]*bet.Bet, error) {
	conn := db.GetTxFromContext(ctx, r.db)

	var rows []models.BetModel
	err := conn.Order("placed_at DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing recent bets: %w", err)
	}
	return r.mapper.ToDomainList(rows)
}

// ListByRound returns every bet of a round, oldest first.
func (r *BetRepository) ListByRound(ctx context.Context, roundID int) ([]*bet.Bet, error) {
	conn := db.GetTxFromContext(ctx, r.db)

	var rows []models.BetModel
	err := conn.Where("round_id = ?", roundID).Order("placed_at ASC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing round bets: %w", err)
	}
	return r.mapper.ToDomainList(rows)
}

// ListByRoundAndStatus filters a round's bets by payment status.
func (r *BetRepository) ListByRoundAndStatus(ctx context.Context, roundID int, status vo.PaymentStatus) ([]*bet.Bet, error) {
	conn := db.GetTxFromContext(ctx, r.db)

	var rows []models.BetModel
	err := conn.
		Where("round_id = ? AND status = ?", roundID, status.String()).
		Order("placed_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing round bets by status: %w", err)
	}
	return r.mapper.ToDomainList(rows)
}

// ListPending returns bets awaiting payment, oldest first.
func (r *BetRepository) ListPending(ctx context.Context, limit int) ([]*bet.Bet, error) {
	conn := db.GetTxFromContext(ctx, r.db)

	var rows []models.BetModel
	err := conn.
		Where("status = ?", vo.PaymentStatusPending.String()).
		Order("placed_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing pending bets: %w", err)
	}
	return r.mapper.ToDomainList(rows)
}

// ListPendingForCheck returns pending bets still within the retry bound,
// oldest first.
func (r *BetRepository) ListPendingForCheck(ctx context.Context, maxAttempts, limit int) ([]*bet.Bet, error) {
	conn := db.GetTxFromContext(ctx, r.db)

	var rows []models.BetModel
	err := conn.
		Where("status = ? AND payment_check_attempts < ?", vo.PaymentStatusPending.String(), maxAttempts).
		Order("placed_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing pending bets: %w", err)
	}
	return r.mapper.ToDomainList(rows)
}

// ListWinnersByRound returns awarded bets of a round, best match first.
func (r *BetRepository) ListWinnersByRound(ctx context.Context, roundID int) ([]*bet.Bet, error) {
	conn := db.GetTxFromContext(ctx, r.db)

	var rows []models.BetModel
	err := conn.
		Where("round_id = ? AND prize_amount > 0", roundID).
		Order("matches DESC, placed_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing round winners: %w", err)
	}
	return r.mapper.ToDomainList(rows)
}

// ListUnpaidWinners returns awarded bets without a successful payout, across
// all rounds.
func (r *BetRepository) ListUnpaidWinners(ctx context.Context) ([]*bet.Bet, error) {
	conn := db.GetTxFromContext(ctx, r.db)

	var rows []models.BetModel
	err := conn.
		Where("prize_amount > 0 AND is_paid = ?", false).
		Order("round_id ASC, placed_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing unpaid winners: %w", err)
	}
	return r.mapper.ToDomainList(rows)
}

// CountPending counts bets awaiting payment.
func (r *BetRepository) CountPending(ctx context.Context) (int64, error) {
	conn := db.GetTxFromContext(ctx, r.db)

	var count int64
	err := conn.Model(&models.BetModel{}).
		Where("status = ?", vo.PaymentStatusPending.String()).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("counting pending bets: %w", err)
	}
	return count, nil
}

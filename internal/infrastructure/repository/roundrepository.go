package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"blocklotto/internal/domain/round"
	"blocklotto/internal/infrastructure/persistence/mappers"
	"blocklotto/internal/infrastructure/persistence/models"
	"blocklotto/internal/shared/db"
)

// RoundRepository is the GORM implementation of round.Repository.
type RoundRepository struct {
	db     *gorm.DB
	mapper *mappers.RoundMapper
}

// NewRoundRepository creates a RoundRepository.
func NewRoundRepository(database *gorm.DB) *RoundRepository {
	return &RoundRepository{
		db:     database,
		mapper: mappers.NewRoundMapper(),
	}
}

// Create inserts the round and writes the generated ID back.
func (r *RoundRepository) Create(ctx context.Context, rd *round.Round) error {
	row, err := r.mapper.ToModel(rd)
	if err != nil {
		return err
	}

	conn := db.GetTxFromContext(ctx, r.db)
	if err := conn.Create(row).Error; err != nil {
		return fmt.Errorf("creating round: %w", err)
	}

	rd.SetID(row.ID)
	return nil
}

// Update saves the full round row.
func (r *RoundRepository) Update(ctx context.Context, rd *round.Round) error {
	row, err := r.mapper.ToModel(rd)
	if err != nil {
		return err
	}

	conn := db.GetTxFromContext(ctx, r.db)
	if err := conn.Save(row).Error; err != nil {
		return fmt.Errorf("updating round: %w", err)
	}
	return nil
}

// GetByRoundID returns one round, nil when absent.
func (r *RoundRepository) GetByRoundID(ctx context.Context, roundID int) (*round.Round, error) {
	conn := db.GetTxFromContext(ctx, r.db)

	var row models.RoundModel
	err := conn.Where("round_id = ?", roundID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting round: %w", err)
	}
	return r.mapper.ToDomain(&row)
}

// FindOpen returns the non-finalized round, nil when every round is settled.
func (r *RoundRepository) FindOpen(ctx context.Context) (*round.Round, error) {
	conn := db.GetTxFromContext(ctx, r.db)

	var row models.RoundModel
	err := conn.
		Where("is_finalized = ?", false).
		Order("round_id DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding open round: %w", err)
	}
	return r.mapper.ToDomain(&row)
}

// MaxRoundID returns the highest assigned round ID, 0 when the table is empty.
func (r *RoundRepository) MaxRoundID(ctx context.Context) (int, error) {
	conn := db.GetTxFromContext(ctx, r.db)

	var highest sql.NullInt64
	err := conn.Model(&models.RoundModel{}).
		Select("MAX(round_id)").
		Scan(&highest).Error
	if err != nil {
		return 0, fmt.Errorf("reading max round ID: %w", err)
	}
	if !highest.Valid {
		return 0, nil
	}
	return int(highest.Int64), nil
}

// ListRecent returns rounds by descending round ID.
func (r *RoundRepository) ListRecent(ctx context.Context, limit int) ([]*round.Round, error) {
	conn := db.GetTxFromContext(ctx, r.db)

	var rows []models.RoundModel
	err := conn.Order("round_id DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing rounds: %w", err)
	}
	return r.mapper.ToDomainList(rows)
}

// IncrementTotalBets bumps the bet counter with a single atomic UPDATE.
func (r *RoundRepository) IncrementTotalBets(ctx context.Context, roundID int) error {
	conn := db.GetTxFromContext(ctx, r.db)

	result := conn.Model(&models.RoundModel{}).
		Where("round_id = ?", roundID).
		UpdateColumn("total_bets", gorm.Expr("total_bets + 1"))
	if result.Error != nil {
		return fmt.Errorf("incrementing total bets: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("round %d not found", roundID)
	}
	return nil
}

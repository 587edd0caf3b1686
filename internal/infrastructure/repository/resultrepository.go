package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"blocklotto/internal/domain/result"
	"blocklotto/internal/infrastructure/persistence/mappers"
	"blocklotto/internal/infrastructure/persistence/models"
	"blocklotto/internal/shared/db"
)

// ResultRepository is the GORM implementation of result.Repository.
type ResultRepository struct {
	db     *gorm.DB
	mapper *mappers.ResultMapper
}

// NewResultRepository creates a ResultRepository.
func NewResultRepository(database *gorm.DB) *ResultRepository {
	return &ResultRepository{
		db:     database,
		mapper: mappers.NewResultMapper(),
	}
}

// Create inserts the result and writes the generated ID back.
func (r *ResultRepository) Create(ctx context.Context, res *result.Result) error {
	row, err := r.mapper.ToModel(res)
	if err != nil {
		return err
	}

	conn := db.GetTxFromContext(ctx, r.db)
	if err := conn.Create(row).Error; err != nil {
		return fmt.Errorf("creating result: %w", err)
	}

	res.SetID(row.ID)
	return nil
}

// Update saves the full result row.
func (r *ResultRepository) Update(ctx context.Context, res *result.Result) error {
	row, err := r.mapper.ToModel(res)
	if err != nil {
		return err
	}

	conn := db.GetTxFromContext(ctx, r.db)
	if err := conn.Save(row).Error; err != nil {
		return fmt.Errorf("updating result: %w", err)
	}
	return nil
}

// GetByDrawDate returns the result for a draw date, matched at day
// granularity, nil when absent.
func (r *ResultRepository) GetByDrawDate(ctx context.Context, drawDate time.Time) (*result.Result, error) {
	conn := db.GetTxFromContext(ctx, r.db)

	day := mappers.TruncateToDay(drawDate)

	var row models.ResultModel
	err := conn.
		Where("draw_date >= ? AND draw_date < ?", day, day.AddDate(0, 0, 1)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting result: %w", err)
	}
	return r.mapper.ToDomain(&row)
}

// FindFirstOnOrAfter returns the earliest result drawn on or after the given
// date, matched at day granularity, nil when none exists.
func (r *ResultRepository) FindFirstOnOrAfter(ctx context.Context, drawDate time.Time) (*result.Result, error) {
	conn := db.GetTxFromContext(ctx, r.db)

	day := mappers.TruncateToDay(drawDate)

	var row models.ResultModel
	err := conn.
		Where("draw_date >= ?", day).
		Order("draw_date ASC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting result: %w", err)
	}
	return r.mapper.ToDomain(&row)
}

// ListLatest returns the most recent results, newest draw first.
func (r *ResultRepository) ListLatest(ctx context.Context, limit int) ([]*result.Result, error) {
	conn := db.GetTxFromContext(ctx, r.db)

	var rows []models.ResultModel
	err := conn.Order("draw_date DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}

	out := make([]*result.Result, 0, len(rows))
	for i := range rows {
		res, err := r.mapper.ToDomain(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

package mappers

import (
	"fmt"
	"time"

	"blocklotto/internal/domain/result"
	"blocklotto/internal/infrastructure/persistence/models"
)

// ResultMapper converts draw results. Draw dates are stored at day
// granularity in UTC.
type ResultMapper struct{}

// NewResultMapper creates a ResultMapper.
func NewResultMapper() *ResultMapper {
	return &ResultMapper{}
}

// ToModel converts a domain result to its row.
func (m *ResultMapper) ToModel(r *result.Result) (*models.ResultModel, error) {
	numbers, err := encodeNumbers(r.Numbers())
	if err != nil {
		return nil, err
	}

	return &models.ResultModel{
		ID:        r.ID(),
		DrawDate:  TruncateToDay(r.DrawDate()),
		Numbers:   numbers,
		Processed: r.Processed(),
		CreatedAt: r.CreatedAt(),
		UpdatedAt: r.UpdatedAt(),
	}, nil
}

// ToDomain converts a row back to the domain result.
func (m *ResultMapper) ToDomain(row *models.ResultModel) (*result.Result, error) {
	numbers, err := decodeNumbers(row.Numbers)
	if err != nil {
		return nil, fmt.Errorf("result %d: %w", row.ID, err)
	}

	return result.ReconstructResult(
		row.ID,
		row.DrawDate,
		numbers,
		row.Processed,
		row.CreatedAt,
		row.UpdatedAt,
	), nil
}

// TruncateToDay drops the time-of-day component in UTC.
func TruncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

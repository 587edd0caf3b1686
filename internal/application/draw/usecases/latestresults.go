package usecases

import (
	"context"
	"fmt"
	"time"

	"blocklotto/internal/domain/result"
)

const defaultResultsLimit = 10

// ResultDTO is the transport shape of a draw result.
type ResultDTO struct {
	DrawDate  time.Time `json:"draw_date"`
	Numbers   []int     `json:"numbers"`
	Processed bool      `json:"processed"`
}

// LatestResultsUseCase returns recent draw results, newest first.
type LatestResultsUseCase struct {
	resultRepo result.Repository
}

// NewLatestResultsUseCase creates a LatestResultsUseCase.
func NewLatestResultsUseCase(resultRepo result.Repository) *LatestResultsUseCase {
	return &LatestResultsUseCase{resultRepo: resultRepo}
}

// Execute lists up to limit results.
func (uc *LatestResultsUseCase) Execute(ctx context.Context, limit int) ([]ResultDTO, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultResultsLimit
	}

	results, err := uc.resultRepo.ListLatest(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}

	out := make([]ResultDTO, 0, len(results))
	for _, r := range results {
		out = append(out, ResultDTO{
			DrawDate:  r.DrawDate(),
			Numbers:   r.Numbers().Values(),
			Processed: r.Processed(),
		})
	}
	return out, nil
}

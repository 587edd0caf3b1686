package usecases

import (
	"context"
	"fmt"
	"time"

	"blocklotto/internal/domain/bet/valueobjects"
	"blocklotto/internal/domain/result"
	"blocklotto/internal/domain/round"
	apperrors "blocklotto/internal/shared/errors"
	"blocklotto/internal/shared/logger"
)

// SubmitResultCommand records the winning numbers for a draw date.
type SubmitResultCommand struct {
	DrawDate time.Time
	Numbers  []int
}

// SubmitResultResult reports the stored result and, when a round was settled
// off the back of it, the settlement.
type SubmitResultResult struct {
	DrawDate  time.Time            `json:"draw_date"`
	Numbers   []int                `json:"numbers"`
	Processed bool                 `json:"processed"`
	Round     *FinalizeRoundResult `json:"round,omitempty"`
}

// SubmitResultUseCase stores manually entered winning numbers and settles the
// matching round when its cutoff has passed.
type SubmitResultUseCase struct {
	resultRepo result.Repository
	roundRepo  round.Repository
	finalize   *FinalizeRoundUseCase
	pickSize   int
	maxNumber  int
	logger     logger.Interface
}

// NewSubmitResultUseCase creates a SubmitResultUseCase.
func NewSubmitResultUseCase(
	resultRepo result.Repository,
	roundRepo round.Repository,
	finalize *FinalizeRoundUseCase,
	pickSize, maxNumber int,
	logger logger.Interface,
) *SubmitResultUseCase {
	return &SubmitResultUseCase{
		resultRepo: resultRepo,
		roundRepo:  roundRepo,
		finalize:   finalize,
		pickSize:   pickSize,
		maxNumber:  maxNumber,
		logger:     logger.Named("submit-result"),
	}
}

// Execute stores the result. A result already on record for the draw date is
// a conflict; results never change once entered.
func (uc *SubmitResultUseCase) Execute(ctx context.Context, cmd SubmitResultCommand) (*SubmitResultResult, error) {
	numbers, err := valueobjects.NewNumbers(cmd.Numbers, uc.pickSize, uc.maxNumber)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid winning numbers", err.Error())
	}

	existing, err := uc.resultRepo.GetByDrawDate(ctx, cmd.DrawDate)
	if err != nil {
		return nil, fmt.Errorf("checking existing result: %w", err)
	}
	if existing != nil {
		return nil, apperrors.NewConflictError("a result already exists for this draw date")
	}

	res, err := result.NewResult(cmd.DrawDate, numbers)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if err := uc.resultRepo.Create(ctx, res); err != nil {
		if apperrors.IsDuplicateError(err) {
			return nil, apperrors.NewConflictError("a result already exists for this draw date")
		}
		return nil, fmt.Errorf("creating result: %w", err)
	}

	uc.logger.Infow("result recorded",
		"draw_date", res.DrawDate().Format(time.RFC3339),
		"numbers", numbers.Values(),
	)

	out := &SubmitResultResult{
		DrawDate: res.DrawDate(),
		Numbers:  numbers.Values(),
	}

	settled, err := uc.settleMatchingRound(ctx, res)
	if err != nil {
		// The result is saved; settlement retries on the next scheduled check.
		uc.logger.Errorw("round settlement failed after result entry", "error", err)
		return out, nil
	}
	if settled != nil {
		res.MarkProcessed()
		if err := uc.resultRepo.Update(ctx, res); err != nil {
			return nil, fmt.Errorf("marking result processed: %w", err)
		}
		out.Processed = true
		out.Round = settled
	}

	return out, nil
}

// settleMatchingRound finalizes the open round drawn on or before the
// result's draw day, once its cutoff has passed. The on-or-before match keeps
// a round with a missed draw from staying open forever: the next entered
// result settles it. No matching round is not an error.
func (uc *SubmitResultUseCase) settleMatchingRound(ctx context.Context, res *result.Result) (*FinalizeRoundResult, error) {
	open, err := uc.roundRepo.FindOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("finding open round: %w", err)
	}
	if open == nil {
		return nil, nil
	}
	if drawDay(open.DrawDate()).After(drawDay(res.DrawDate())) {
		return nil, nil
	}
	if time.Now().UTC().Before(open.DrawDate()) {
		return nil, nil
	}

	return uc.finalize.Execute(ctx, FinalizeRoundCommand{
		RoundID:        open.RoundID(),
		WinningNumbers: res.Numbers().Values(),
	})
}

// drawDay truncates a draw timestamp to its UTC day; draw slots are matched
// at day granularity.
func drawDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

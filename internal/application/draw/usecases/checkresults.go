package usecases

import (
	"context"
	"fmt"
	"time"

	"blocklotto/internal/domain/result"
	"blocklotto/internal/domain/round"
	"blocklotto/internal/shared/biztime"
	"blocklotto/internal/shared/logger"
)

// CheckResultsUseCase is the scheduled settlement sweep: when the open round
// is past its cutoff and a result for its draw date is on record, the round
// is finalized. It also catches results whose settlement failed at entry
// time.
type CheckResultsUseCase struct {
	resultRepo result.Repository
	roundRepo  round.Repository
	finalize   *FinalizeRoundUseCase
	logger     logger.Interface
}

// NewCheckResultsUseCase creates a CheckResultsUseCase.
func NewCheckResultsUseCase(
	resultRepo result.Repository,
	roundRepo round.Repository,
	finalize *FinalizeRoundUseCase,
	logger logger.Interface,
) *CheckResultsUseCase {
	return &CheckResultsUseCase{
		resultRepo: resultRepo,
		roundRepo:  roundRepo,
		finalize:   finalize,
		logger:     logger.Named("check-results"),
	}
}

// Execute runs one sweep. It settles at most one round per run; the next run
// picks up the newly opened round.
func (uc *CheckResultsUseCase) Execute(ctx context.Context) (*FinalizeRoundResult, error) {
	open, err := uc.roundRepo.FindOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("finding open round: %w", err)
	}
	if open == nil {
		return nil, nil
	}
	if biztime.NowUTC().Before(open.DrawDate()) {
		return nil, nil
	}

	// Any result drawn on or after the round's draw day settles it, so a
	// round whose own draw was missed is picked up by the next result.
	res, err := uc.resultRepo.FindFirstOnOrAfter(ctx, open.DrawDate())
	if err != nil {
		return nil, fmt.Errorf("looking up result: %w", err)
	}
	if res == nil {
		uc.logger.Debugw("round past cutoff, no result yet",
			"round_id", open.RoundID(),
			"draw_date", open.DrawDate().Format(time.RFC3339),
		)
		return nil, nil
	}

	settled, err := uc.finalize.Execute(ctx, FinalizeRoundCommand{
		RoundID:        open.RoundID(),
		WinningNumbers: res.Numbers().Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("finalizing round %d: %w", open.RoundID(), err)
	}

	res.MarkProcessed()
	if err := uc.resultRepo.Update(ctx, res); err != nil {
		return nil, fmt.Errorf("marking result processed: %w", err)
	}

	return settled, nil
}

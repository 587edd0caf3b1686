// Package usecases implements the draw application operations: result entry,
// round finalization and the prize distribution.
package usecases

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"blocklotto/internal/application/payment/blockchain"
	roundservices "blocklotto/internal/application/round/services"
	"blocklotto/internal/domain/bet"
	vo "blocklotto/internal/domain/bet/valueobjects"
	"blocklotto/internal/domain/round"
	"blocklotto/internal/shared/biztime"
	apperrors "blocklotto/internal/shared/errors"
	"blocklotto/internal/shared/logger"
)

// prizeScale is the decimal precision of per-winner shares. The division
// remainder below this scale rolls into the next round.
const prizeScale = 6

// PoolSplit is the configured three-way split of each round's new payments.
// The three percentages must sum to one.
type PoolSplit struct {
	HouseFee decimal.Decimal
	Rollover decimal.Decimal
	Winner   decimal.Decimal
}

// Validate checks the split sums to one and has no negative share.
func (s PoolSplit) Validate() error {
	if s.HouseFee.IsNegative() || s.Rollover.IsNegative() || s.Winner.IsNegative() {
		return fmt.Errorf("pool split shares cannot be negative")
	}
	sum := s.HouseFee.Add(s.Rollover).Add(s.Winner)
	if !sum.Equal(decimal.NewFromInt(1)) {
		return fmt.Errorf("pool split must sum to 1, got %s", sum)
	}
	return nil
}

// FinalizeRoundCommand applies winning numbers to a round.
type FinalizeRoundCommand struct {
	RoundID        int
	WinningNumbers []int
}

// FinalizeRoundResult reports the settled round.
type FinalizeRoundResult struct {
	RoundID        int         `json:"round_id"`
	WinningNumbers []int       `json:"winning_numbers"`
	PaidBets       int         `json:"paid_bets"`
	MaxMatches     int         `json:"max_matches"`
	WinnerCount    int         `json:"winner_count"`
	TotalPrizePool string      `json:"total_prize_pool"`
	PrizePerWinner string      `json:"prize_per_winner,omitempty"`
	RolloverAmount string      `json:"rollover_amount"`
	HouseFee       string      `json:"house_fee"`
	PayoutFailures []uint      `json:"payout_failures,omitempty"`
	Winners        map[int]int `json:"winners"`
	NextRoundID    int         `json:"next_round_id"`
}

// FinalizeRoundUseCase settles a round: scores every paid bet, splits the
// pool, pays the winners and opens the next round with the rollover.
type FinalizeRoundUseCase struct {
	betRepo      bet.Repository
	roundRepo    round.Repository
	roundManager *roundservices.RoundManager
	gateway      blockchain.Gateway
	split        PoolSplit
	pickSize     int
	maxNumber    int
	logger       logger.Interface
}

// NewFinalizeRoundUseCase creates a FinalizeRoundUseCase.
func NewFinalizeRoundUseCase(
	betRepo bet.Repository,
	roundRepo round.Repository,
	roundManager *roundservices.RoundManager,
	gateway blockchain.Gateway,
	split PoolSplit,
	pickSize, maxNumber int,
	logger logger.Interface,
) *FinalizeRoundUseCase {
	return &FinalizeRoundUseCase{
		betRepo:      betRepo,
		roundRepo:    roundRepo,
		roundManager: roundManager,
		gateway:      gateway,
		split:        split,
		pickSize:     pickSize,
		maxNumber:    maxNumber,
		logger:       logger.Named("finalize-round"),
	}
}

// Execute settles the round. Payout failures do not abort the settlement:
// the affected bets keep their awarded prize and stay unpaid for the manual
// payout path.
func (uc *FinalizeRoundUseCase) Execute(ctx context.Context, cmd FinalizeRoundCommand) (*FinalizeRoundResult, error) {
	winning, err := vo.NewNumbers(cmd.WinningNumbers, uc.pickSize, uc.maxNumber)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid winning numbers", err.Error())
	}

	r, err := uc.roundRepo.GetByRoundID(ctx, cmd.RoundID)
	if err != nil {
		return nil, fmt.Errorf("getting round: %w", err)
	}
	if r == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("round %d not found", cmd.RoundID))
	}
	if r.IsFinalized() {
		return nil, apperrors.NewConflictError(fmt.Sprintf("round %d is already finalized", r.RoundID()))
	}

	paid, err := uc.betRepo.ListByRoundAndStatus(ctx, r.RoundID(), vo.PaymentStatusPaid)
	if err != nil {
		return nil, fmt.Errorf("listing paid bets: %w", err)
	}

	// Score every paid bet before any money moves. A bet scored by an earlier
	// settlement attempt keeps its count, so a retry can pass through here.
	maxMatches := 0
	tally := map[int]int{}
	for _, b := range paid {
		matches := b.CountMatches(winning)
		if prior := b.Matches(); prior != nil {
			if *prior != matches {
				return nil, fmt.Errorf("bet %d already scored %d against a different result", b.ID(), *prior)
			}
		} else if err := b.SetMatches(matches); err != nil {
			return nil, fmt.Errorf("scoring bet %d: %w", b.ID(), err)
		}
		tally[matches]++
		if matches > maxMatches {
			maxMatches = matches
		}
	}

	newBetsPool := decimal.Zero
	for _, b := range paid {
		newBetsPool = newBetsPool.Add(b.TransactionValue())
	}

	houseFee := newBetsPool.Mul(uc.split.HouseFee)
	rollover := newBetsPool.Mul(uc.split.Rollover)
	winnersPool := newBetsPool.Mul(uc.split.Winner)
	totalPrizePool := winnersPool.Add(r.AccumulatedAmount())

	var winners []*bet.Bet
	if maxMatches > 0 {
		for _, b := range paid {
			if *b.Matches() == maxMatches {
				winners = append(winners, b)
			}
		}
	}

	prizePerWinner := decimal.Zero
	if len(winners) == 0 {
		// Nobody matched: the whole prize pool rolls over on top of the
		// regular rollover share.
		rollover = rollover.Add(totalPrizePool)
		totalPrizePool = decimal.Zero
	} else {
		prizePerWinner = totalPrizePool.
			Div(decimal.NewFromInt(int64(len(winners)))).
			Truncate(prizeScale)
		remainder := totalPrizePool.Sub(prizePerWinner.Mul(decimal.NewFromInt(int64(len(winners)))))
		rollover = rollover.Add(remainder)
	}

	for _, w := range winners {
		if err := w.AwardPrize(prizePerWinner); err != nil {
			return nil, fmt.Errorf("awarding prize to bet %d: %w", w.ID(), err)
		}
	}

	// Persist the scored bets and close the round before any payout leaves
	// the wallet: a settlement retried after a mid-flight failure must hit
	// the finalized-round conflict above, never pay the winners again.
	for _, b := range paid {
		if err := uc.betRepo.Update(ctx, b); err != nil {
			return nil, fmt.Errorf("updating bet %d: %w", b.ID(), err)
		}
	}

	winnerTally := map[int]int{}
	if maxMatches > 0 {
		winnerTally[maxMatches] = len(winners)
	}
	if err := r.Finalize(winning, round.FinalizeStats{
		TotalPrizePool: totalPrizePool,
		RolloverAmount: rollover,
		Winners:        winnerTally,
	}); err != nil {
		return nil, apperrors.NewConflictError(err.Error())
	}
	if err := uc.roundRepo.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("updating round: %w", err)
	}

	next, err := uc.roundManager.OpenNext(ctx, rollover)
	if err != nil {
		return nil, fmt.Errorf("opening next round: %w", err)
	}

	// Payouts come last, each one recorded as soon as it succeeds. A winner
	// whose payout or record write fails stays unpaid for the manual path.
	var payoutFailures []uint
	for _, w := range winners {
		if err := uc.payWinner(ctx, w); err != nil {
			payoutFailures = append(payoutFailures, w.ID())
			uc.logger.Errorw("winner payout failed, left for manual payout",
				"bet_id", w.ID(),
				"to", w.FromAddress(),
				"amount", prizePerWinner.String(),
				"error", err,
			)
			continue
		}
		if err := uc.betRepo.Update(ctx, w); err != nil {
			uc.logger.Errorw("payout sent but not recorded, reconcile before any manual payout",
				"bet_id", w.ID(),
				"payout_tx", *w.PaymentTxID(),
				"error", err,
			)
		}
	}

	uc.logger.Infow("round finalized",
		"round_id", r.RoundID(),
		"paid_bets", len(paid),
		"max_matches", maxMatches,
		"winners", len(winners),
		"total_prize_pool", totalPrizePool.String(),
		"rollover", rollover.String(),
		"house_fee", houseFee.String(),
		"next_round_id", next.RoundID(),
	)

	result := &FinalizeRoundResult{
		RoundID:        r.RoundID(),
		WinningNumbers: winning.Values(),
		PaidBets:       len(paid),
		MaxMatches:     maxMatches,
		WinnerCount:    len(winners),
		TotalPrizePool: totalPrizePool.String(),
		RolloverAmount: rollover.String(),
		HouseFee:       houseFee.String(),
		PayoutFailures: payoutFailures,
		Winners:        winnerTally,
		NextRoundID:    next.RoundID(),
	}
	if len(winners) > 0 {
		result.PrizePerWinner = prizePerWinner.String()
	}
	return result, nil
}

func (uc *FinalizeRoundUseCase) payWinner(ctx context.Context, w *bet.Bet) error {
	if w.FromAddress() == "" {
		return fmt.Errorf("no funding address on record")
	}
	payment, err := uc.gateway.SendPayment(ctx, w.FromAddress(), w.PrizeAmount())
	if err != nil {
		return err
	}
	return w.MarkPrizePaid(payment.TxHash, biztime.NowUTC())
}

package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"blocklotto/internal/application/payment/blockchain"
	"blocklotto/internal/application/payment/exchangerate"
	roundservices "blocklotto/internal/application/round/services"
	"blocklotto/internal/domain/bet"
	vo "blocklotto/internal/domain/bet/valueobjects"
	"blocklotto/internal/shared/biztime"
	"blocklotto/internal/shared/logger"
)

// CurrentRoundResult is the public status of the open round, including the
// projected prize pool in native currency and USD.
type CurrentRoundResult struct {
	RoundID           int       `json:"round_id"`
	DrawDate          time.Time `json:"draw_date"`
	AcceptingBets     bool      `json:"accepting_bets"`
	TotalBets         int       `json:"total_bets"`
	PaidBets          int       `json:"paid_bets"`
	NewBetsPool       string    `json:"new_bets_pool"`
	AccumulatedAmount string    `json:"accumulated_amount"`
	EstimatedPrize    string    `json:"estimated_prize"`
	EstimatedPrizeUSD string    `json:"estimated_prize_usd,omitempty"`
}

// CurrentRoundUseCase reports the open round and its projected pool.
type CurrentRoundUseCase struct {
	betRepo         bet.Repository
	roundManager    *roundservices.RoundManager
	gateway         blockchain.Gateway
	rates           exchangerate.RateService
	winnerPct       decimal.Decimal
	poolFromBalance bool
	logger          logger.Interface
}

// NewCurrentRoundUseCase creates a CurrentRoundUseCase.
func NewCurrentRoundUseCase(
	betRepo bet.Repository,
	roundManager *roundservices.RoundManager,
	gateway blockchain.Gateway,
	rates exchangerate.RateService,
	winnerPct decimal.Decimal,
	poolFromBalance bool,
	logger logger.Interface,
) *CurrentRoundUseCase {
	return &CurrentRoundUseCase{
		betRepo:         betRepo,
		roundManager:    roundManager,
		gateway:         gateway,
		rates:           rates,
		winnerPct:       winnerPct,
		poolFromBalance: poolFromBalance,
		logger:          logger.Named("current-round"),
	}
}

// Execute returns the open round status. The projected prize is the carried
// accumulation plus the winner share of payments received so far. A rate or
// balance failure degrades the response instead of failing it.
func (uc *CurrentRoundUseCase) Execute(ctx context.Context) (*CurrentRoundResult, error) {
	current, err := uc.roundManager.GetOrOpenCurrent(ctx)
	if err != nil {
		return nil, err
	}

	paid, err := uc.betRepo.ListByRoundAndStatus(ctx, current.RoundID(), vo.PaymentStatusPaid)
	if err != nil {
		return nil, fmt.Errorf("listing paid bets: %w", err)
	}

	newBetsPool := decimal.Zero
	if uc.poolFromBalance {
		balance, err := uc.gateway.Balance(ctx, uc.gateway.ReceivingAddress())
		if err != nil {
			uc.logger.Warnw("wallet balance unavailable, falling back to bet sum", "error", err)
			newBetsPool = sumPaid(paid)
		} else {
			newBetsPool = balance
		}
	} else {
		newBetsPool = sumPaid(paid)
	}

	estimated := current.AccumulatedAmount().Add(newBetsPool.Mul(uc.winnerPct))

	result := &CurrentRoundResult{
		RoundID:           current.RoundID(),
		DrawDate:          current.DrawDate(),
		AcceptingBets:     current.IsAcceptingBets(biztime.NowUTC()),
		TotalBets:         current.TotalBets(),
		PaidBets:          len(paid),
		NewBetsPool:       newBetsPool.String(),
		AccumulatedAmount: current.AccumulatedAmount().String(),
		EstimatedPrize:    estimated.String(),
	}

	if rate, err := uc.rates.GetUSDRate(ctx); err != nil {
		uc.logger.Warnw("exchange rate unavailable", "error", err)
	} else {
		usd := estimated.Mul(decimal.NewFromFloat(rate)).Round(2)
		result.EstimatedPrizeUSD = usd.String()
	}

	return result, nil
}

func sumPaid(bets []*bet.Bet) decimal.Decimal {
	total := decimal.Zero
	for _, b := range bets {
		total = total.Add(b.TransactionValue())
	}
	return total
}

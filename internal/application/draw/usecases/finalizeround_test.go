package usecases

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	appchain "blocklotto/internal/application/payment/blockchain"
	roundservices "blocklotto/internal/application/round/services"
	"blocklotto/internal/domain/bet"
	vo "blocklotto/internal/domain/bet/valueobjects"
	"blocklotto/internal/domain/round"
	"blocklotto/internal/shared/db"
	apperrors "blocklotto/internal/shared/errors"
	"blocklotto/internal/shared/logger"
)

// fakeBetRepo is an in-memory bet.Repository. Update fails once for bet IDs
// listed in failUpdateOnce.
type fakeBetRepo struct {
	bets           []*bet.Bet
	nextID         uint
	failUpdateOnce map[uint]bool
}

func (r *fakeBetRepo) Create(_ context.Context, b *bet.Bet) error {
	r.nextID++
	b.SetID(r.nextID)
	r.bets = append(r.bets, b)
	return nil
}

func (r *fakeBetRepo) Update(_ context.Context, b *bet.Bet) error {
	if r.failUpdateOnce[b.ID()] {
		delete(r.failUpdateOnce, b.ID())
		return fmt.Errorf("storage unavailable")
	}
	for i, existing := range r.bets {
		if existing.ID() == b.ID() {
			r.bets[i] = b
			return nil
		}
	}
	return fmt.Errorf("bet %d not found", b.ID())
}

func (r *fakeBetRepo) GetByID(_ context.Context, id uint) (*bet.Bet, error) {
	for _, b := range r.bets {
		if b.ID() == id {
			return b, nil
		}
	}
	return nil, nil
}

func (r *fakeBetRepo) GetByTransactionID(_ context.Context, txID string) (*bet.Bet, error) {
	for _, b := range r.bets {
		if b.TransactionID() != nil && *b.TransactionID() == txID {
			return b, nil
		}
	}
	return nil, nil
}

func (r *fakeBetRepo) ListRecent(_ context.Context, limit int) ([]*bet.Bet, error) {
	if len(r.bets) < limit {
		limit = len(r.bets)
	}
	return r.bets[:limit], nil
}

func (r *fakeBetRepo) ListByRound(_ context.Context, roundID int) ([]*bet.Bet, error) {
	var out []*bet.Bet
	for _, b := range r.bets {
		if b.RoundID() == roundID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBetRepo) ListByRoundAndStatus(_ context.Context, roundID int, status vo.PaymentStatus) ([]*bet.Bet, error) {
	var out []*bet.Bet
	for _, b := range r.bets {
		if b.RoundID() == roundID && b.Status() == status {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBetRepo) ListPending(ctx context.Context, limit int) ([]*bet.Bet, error) {
	return r.ListPendingForCheck(ctx, 1<<30, limit)
}

func (r *fakeBetRepo) ListPendingForCheck(_ context.Context, maxAttempts, limit int) ([]*bet.Bet, error) {
	var out []*bet.Bet
	for _, b := range r.bets {
		if b.Status() == vo.PaymentStatusPending && b.PaymentCheckAttempts() < maxAttempts {
			out = append(out, b)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeBetRepo) ListWinnersByRound(_ context.Context, roundID int) ([]*bet.Bet, error) {
	var out []*bet.Bet
	for _, b := range r.bets {
		if b.RoundID() == roundID && b.PrizeAmount().IsPositive() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBetRepo) ListUnpaidWinners(_ context.Context) ([]*bet.Bet, error) {
	var out []*bet.Bet
	for _, b := range r.bets {
		if b.PrizeAmount().IsPositive() && !b.IsPaid() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBetRepo) CountPending(_ context.Context) (int64, error) {
	var count int64
	for _, b := range r.bets {
		if b.Status() == vo.PaymentStatusPending {
			count++
		}
	}
	return count, nil
}

// fakeRoundRepo is an in-memory round.Repository.
type fakeRoundRepo struct {
	rounds []*round.Round
	nextID uint
}

func (r *fakeRoundRepo) Create(_ context.Context, rd *round.Round) error {
	r.nextID++
	rd.SetID(r.nextID)
	r.rounds = append(r.rounds, rd)
	return nil
}

func (r *fakeRoundRepo) Update(_ context.Context, rd *round.Round) error {
	for i, existing := range r.rounds {
		if existing.RoundID() == rd.RoundID() {
			r.rounds[i] = rd
			return nil
		}
	}
	return fmt.Errorf("round %d not found", rd.RoundID())
}

func (r *fakeRoundRepo) GetByRoundID(_ context.Context, roundID int) (*round.Round, error) {
	for _, rd := range r.rounds {
		if rd.RoundID() == roundID {
			return rd, nil
		}
	}
	return nil, nil
}

func (r *fakeRoundRepo) FindOpen(_ context.Context) (*round.Round, error) {
	for _, rd := range r.rounds {
		if !rd.IsFinalized() {
			return rd, nil
		}
	}
	return nil, nil
}

func (r *fakeRoundRepo) MaxRoundID(_ context.Context) (int, error) {
	maxID := 0
	for _, rd := range r.rounds {
		if rd.RoundID() > maxID {
			maxID = rd.RoundID()
		}
	}
	return maxID, nil
}

func (r *fakeRoundRepo) ListRecent(_ context.Context, limit int) ([]*round.Round, error) {
	if len(r.rounds) < limit {
		limit = len(r.rounds)
	}
	return r.rounds[:limit], nil
}

func (r *fakeRoundRepo) IncrementTotalBets(_ context.Context, _ int) error {
	return nil
}

// fakeGateway records payouts and can be told to fail for given addresses.
type fakeGateway struct {
	payments []appchain.Payment
	failFor  map[string]bool
}

func (g *fakeGateway) TransactionByHash(_ context.Context, _ string) (*appchain.Transaction, error) {
	return nil, appchain.ErrTxNotFound
}

func (g *fakeGateway) RecentInbound(_ context.Context, _ int) ([]appchain.Transaction, error) {
	return nil, nil
}

func (g *fakeGateway) SendPayment(_ context.Context, to string, amount decimal.Decimal) (*appchain.Payment, error) {
	if g.failFor[to] {
		return nil, fmt.Errorf("rpc unavailable")
	}
	p := appchain.Payment{
		TxHash: fmt.Sprintf("0xpayout%d", len(g.payments)+1),
		To:     to,
		Amount: amount,
	}
	g.payments = append(g.payments, p)
	return &p, nil
}

func (g *fakeGateway) Balance(_ context.Context, _ string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (g *fakeGateway) ReceivingAddress() string {
	return "0xreceiver"
}

type finalizeFixture struct {
	betRepo   *fakeBetRepo
	roundRepo *fakeRoundRepo
	gateway   *fakeGateway
	usecase   *FinalizeRoundUseCase
}

func newFinalizeFixture(t *testing.T) *finalizeFixture {
	t.Helper()

	testDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	betRepo := &fakeBetRepo{}
	roundRepo := &fakeRoundRepo{}
	gateway := &fakeGateway{failFor: map[string]bool{}}
	log := logger.NewLogger()

	schedule := round.NewDrawSchedule(
		[]time.Weekday{
			time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
			time.Thursday, time.Friday, time.Saturday,
		},
		23, 59, time.UTC,
	)
	manager := roundservices.NewRoundManager(roundRepo, db.NewTransactionManager(testDB), schedule, log)

	split := PoolSplit{
		HouseFee: decimal.RequireFromString("0.05"),
		Rollover: decimal.RequireFromString("0.15"),
		Winner:   decimal.RequireFromString("0.80"),
	}
	require.NoError(t, split.Validate())

	return &finalizeFixture{
		betRepo:   betRepo,
		roundRepo: roundRepo,
		gateway:   gateway,
		usecase: NewFinalizeRoundUseCase(
			betRepo, roundRepo, manager, gateway, split, 6, 60, log,
		),
	}
}

func (f *finalizeFixture) openRound(t *testing.T, roundID int, accumulated string) *round.Round {
	t.Helper()
	r, err := round.NewRound(roundID, time.Now().UTC().Add(time.Hour), decimal.RequireFromString(accumulated))
	require.NoError(t, err)
	require.NoError(t, f.roundRepo.Create(context.Background(), r))
	return r
}

func (f *finalizeFixture) paidBet(t *testing.T, roundID int, numbers []int, from, value string) *bet.Bet {
	t.Helper()
	pick, err := vo.NewNumbers(numbers, 6, 60)
	require.NoError(t, err)
	b, err := bet.NewBet(pick, roundID, "")
	require.NoError(t, err)
	require.NoError(t, f.betRepo.Create(context.Background(), b))
	require.NoError(t, b.ConfirmPayment(
		fmt.Sprintf("0xtx%d", b.ID()), from,
		decimal.RequireFromString(value), time.Now().UTC(),
	))
	return b
}

func TestFinalizeRoundSplitsPool(t *testing.T) {
	f := newFinalizeFixture(t)
	f.openRound(t, 1, "2")

	// Five paid bets of 2 each: 10 into the pool. One bet matches everything.
	winner := f.paidBet(t, 1, []int{5, 12, 23, 34, 45, 56}, "0xwinner", "2")
	for i := 0; i < 4; i++ {
		f.paidBet(t, 1, []int{1, 2, 3, 4, 6, 7}, fmt.Sprintf("0xloser%d", i), "2")
	}

	result, err := f.usecase.Execute(context.Background(), FinalizeRoundCommand{
		RoundID:        1,
		WinningNumbers: []int{5, 12, 23, 34, 45, 56},
	})
	require.NoError(t, err)

	// house 0.5, rollover 1.5, winners pool 8 + 2 accumulated = 10.
	assert.Equal(t, "0.5", result.HouseFee)
	assert.Equal(t, "1.5", result.RolloverAmount)
	assert.Equal(t, "10", result.TotalPrizePool)
	assert.Equal(t, 6, result.MaxMatches)
	assert.Equal(t, 1, result.WinnerCount)
	assert.Equal(t, "10", result.PrizePerWinner)
	assert.Empty(t, result.PayoutFailures)

	assert.True(t, winner.PrizeAmount().Equal(decimal.RequireFromString("10")))
	assert.True(t, winner.IsPaid())
	require.Len(t, f.gateway.payments, 1)
	assert.Equal(t, "0xwinner", f.gateway.payments[0].To)

	settled, err := f.roundRepo.GetByRoundID(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, settled.IsFinalized())
	assert.Equal(t, map[int]int{6: 1}, settled.Winners())
}

func TestFinalizeRoundOpensNextWithRollover(t *testing.T) {
	f := newFinalizeFixture(t)
	f.openRound(t, 1, "0")
	f.paidBet(t, 1, []int{5, 12, 23, 34, 45, 56}, "0xwinner", "10")

	result, err := f.usecase.Execute(context.Background(), FinalizeRoundCommand{
		RoundID:        1,
		WinningNumbers: []int{5, 12, 23, 34, 45, 56},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.NextRoundID)

	next, err := f.roundRepo.GetByRoundID(context.Background(), 2)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.False(t, next.IsFinalized())
	assert.True(t, next.AccumulatedAmount().Equal(decimal.RequireFromString("1.5")))
}

func TestFinalizeRoundNoWinnersRollsEverythingOver(t *testing.T) {
	f := newFinalizeFixture(t)
	f.openRound(t, 1, "2")
	for i := 0; i < 5; i++ {
		f.paidBet(t, 1, []int{1, 2, 3, 4, 6, 7}, fmt.Sprintf("0xplayer%d", i), "2")
	}

	result, err := f.usecase.Execute(context.Background(), FinalizeRoundCommand{
		RoundID: 1,
		// Winning numbers disjoint from every pick.
		WinningNumbers: []int{50, 51, 52, 53, 54, 55},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.WinnerCount)
	assert.Equal(t, "0", result.TotalPrizePool)
	// 1.5 rollover share + 8 winners pool + 2 accumulated.
	assert.Equal(t, "11.5", result.RolloverAmount)
	assert.Empty(t, f.gateway.payments)

	next, err := f.roundRepo.GetByRoundID(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, next.AccumulatedAmount().Equal(decimal.RequireFromString("11.5")))
}

func TestFinalizeRoundHighestTierTakesAll(t *testing.T) {
	f := newFinalizeFixture(t)
	f.openRound(t, 1, "0")

	best := f.paidBet(t, 1, []int{5, 12, 23, 34, 1, 2}, "0xbest", "5")     // 4 matches
	partial := f.paidBet(t, 1, []int{5, 12, 40, 41, 42, 43}, "0xpart", "5") // 2 matches

	result, err := f.usecase.Execute(context.Background(), FinalizeRoundCommand{
		RoundID:        1,
		WinningNumbers: []int{5, 12, 23, 34, 45, 56},
	})
	require.NoError(t, err)

	assert.Equal(t, 4, result.MaxMatches)
	assert.Equal(t, 1, result.WinnerCount)
	assert.True(t, best.PrizeAmount().IsPositive())
	assert.True(t, partial.PrizeAmount().IsZero())
	require.NotNil(t, partial.Matches())
	assert.Equal(t, 2, *partial.Matches())
}

func TestFinalizeRoundSharesPrizeWithRemainderToRollover(t *testing.T) {
	f := newFinalizeFixture(t)
	f.openRound(t, 1, "2")

	// Three identical winning picks, 10 total in: winners pool 8 + 2 = 10.
	for i := 0; i < 3; i++ {
		f.paidBet(t, 1, []int{5, 12, 23, 34, 45, 56}, fmt.Sprintf("0xwin%d", i), "2")
	}
	f.paidBet(t, 1, []int{1, 2, 3, 4, 6, 7}, "0xloser", "2")
	f.paidBet(t, 1, []int{1, 2, 3, 4, 6, 8}, "0xloser2", "2")

	result, err := f.usecase.Execute(context.Background(), FinalizeRoundCommand{
		RoundID:        1,
		WinningNumbers: []int{5, 12, 23, 34, 45, 56},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.WinnerCount)
	// 10 / 3 truncated to six decimals; the 0.000001 remainder rolls over.
	assert.Equal(t, "3.333333", result.PrizePerWinner)
	assert.Equal(t, "1.500001", result.RolloverAmount)
}

func TestFinalizeRoundPayoutFailureLeavesWinnerUnpaid(t *testing.T) {
	f := newFinalizeFixture(t)
	f.openRound(t, 1, "0")

	winner := f.paidBet(t, 1, []int{5, 12, 23, 34, 45, 56}, "0xbroken", "10")
	f.gateway.failFor["0xbroken"] = true

	result, err := f.usecase.Execute(context.Background(), FinalizeRoundCommand{
		RoundID:        1,
		WinningNumbers: []int{5, 12, 23, 34, 45, 56},
	})
	require.NoError(t, err)

	assert.Equal(t, []uint{winner.ID()}, result.PayoutFailures)
	assert.True(t, winner.PrizeAmount().IsPositive())
	assert.False(t, winner.IsPaid())

	unpaid, err := f.betRepo.ListUnpaidWinners(context.Background())
	require.NoError(t, err)
	require.Len(t, unpaid, 1)
	assert.Equal(t, winner.ID(), unpaid[0].ID())
}

func TestFinalizeRoundRejectsSecondSettlement(t *testing.T) {
	f := newFinalizeFixture(t)
	f.openRound(t, 1, "0")
	f.paidBet(t, 1, []int{5, 12, 23, 34, 45, 56}, "0xwinner", "10")

	_, err := f.usecase.Execute(context.Background(), FinalizeRoundCommand{
		RoundID:        1,
		WinningNumbers: []int{5, 12, 23, 34, 45, 56},
	})
	require.NoError(t, err)

	_, err = f.usecase.Execute(context.Background(), FinalizeRoundCommand{
		RoundID:        1,
		WinningNumbers: []int{5, 12, 23, 34, 45, 56},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflictError(err))

	// Only one payout ever sent.
	assert.Len(t, f.gateway.payments, 1)
}

func TestFinalizeRoundRetryAfterStorageFailureDoesNotDoublePay(t *testing.T) {
	f := newFinalizeFixture(t)
	f.openRound(t, 1, "2")
	winner := f.paidBet(t, 1, []int{5, 12, 23, 34, 45, 56}, "0xwinner", "5")
	f.paidBet(t, 1, []int{1, 2, 3, 4, 6, 7}, "0xloser", "5")

	f.betRepo.failUpdateOnce = map[uint]bool{winner.ID(): true}

	cmd := FinalizeRoundCommand{
		RoundID:        1,
		WinningNumbers: []int{5, 12, 23, 34, 45, 56},
	}

	_, err := f.usecase.Execute(context.Background(), cmd)
	require.Error(t, err)
	// The failed write aborted the settlement before any money moved.
	assert.Empty(t, f.gateway.payments)

	result, err := f.usecase.Execute(context.Background(), cmd)
	require.NoError(t, err)

	assert.Equal(t, 1, result.WinnerCount)
	require.Len(t, f.gateway.payments, 1)
	assert.Equal(t, "0xwinner", f.gateway.payments[0].To)
	assert.True(t, winner.IsPaid())
}

func TestFinalizeRoundIgnoresPendingBets(t *testing.T) {
	f := newFinalizeFixture(t)
	f.openRound(t, 1, "0")
	f.paidBet(t, 1, []int{5, 12, 23, 34, 45, 56}, "0xwinner", "10")

	// A pending bet with a winning pick must not score or win.
	pick, err := vo.NewNumbers([]int{5, 12, 23, 34, 45, 56}, 6, 60)
	require.NoError(t, err)
	pending, err := bet.NewBet(pick, 1, "")
	require.NoError(t, err)
	require.NoError(t, f.betRepo.Create(context.Background(), pending))

	result, err := f.usecase.Execute(context.Background(), FinalizeRoundCommand{
		RoundID:        1,
		WinningNumbers: []int{5, 12, 23, 34, 45, 56},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.PaidBets)
	assert.Equal(t, 1, result.WinnerCount)
	assert.Nil(t, pending.Matches())
	assert.True(t, pending.PrizeAmount().IsZero())
}

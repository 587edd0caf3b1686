package usecases

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blocklotto/internal/application/payment/blockchain"
	"blocklotto/internal/domain/bet"
	vo "blocklotto/internal/domain/bet/valueobjects"
	"blocklotto/internal/domain/round"
	"blocklotto/internal/shared/logger"
)

// memBetRepo is an in-memory bet.Repository for reconcile tests. Update fails
// for IDs in failFor; GetByTransactionID fails when txLookupErr is set.
type memBetRepo struct {
	bets        []*bet.Bet
	nextID      uint
	failFor     map[uint]bool
	txLookupErr error
	updates     map[uint]int
}

func (r *memBetRepo) Create(_ context.Context, b *bet.Bet) error {
	r.nextID++
	b.SetID(r.nextID)
	r.bets = append(r.bets, b)
	return nil
}

func (r *memBetRepo) Update(_ context.Context, b *bet.Bet) error {
	if r.updates == nil {
		r.updates = map[uint]int{}
	}
	r.updates[b.ID()]++
	if r.failFor[b.ID()] {
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

func (r *memBetRepo) GetByID(_ context.Context, id uint) (*bet.Bet, error) {
	for _, b := range r.bets {
		if b.ID() == id {
			return b, nil
		}
	}
	return nil, nil
}

func (r *memBetRepo) GetByTransactionID(_ context.Context, txID string) (*bet.Bet, error) {
	if r.txLookupErr != nil {
		return nil, r.txLookupErr
	}
	for _, b := range r.bets {
		if b.TransactionID() != nil && *b.TransactionID() == txID {
			return b, nil
		}
	}
	return nil, nil
}

func (r *memBetRepo) ListRecent(_ context.Context, limit int) ([]*bet.Bet, error) {
	if len(r.bets) < limit {
		limit = len(r.bets)
	}
	return r.bets[:limit], nil
}

func (r *memBetRepo) ListByRound(_ context.Context, roundID int) ([]*bet.Bet, error) {
	var out []*bet.Bet
	for _, b := range r.bets {
		if b.RoundID() == roundID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memBetRepo) ListByRoundAndStatus(_ context.Context, roundID int, status vo.PaymentStatus) ([]*bet.Bet, error) {
	var out []*bet.Bet
	for _, b := range r.bets {
		if b.RoundID() == roundID && b.Status() == status {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memBetRepo) ListPending(ctx context.Context, limit int) ([]*bet.Bet, error) {
	return r.ListPendingForCheck(ctx, 1<<30, limit)
}

func (r *memBetRepo) ListPendingForCheck(_ context.Context, maxAttempts, limit int) ([]*bet.Bet, error) {
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

func (r *memBetRepo) ListWinnersByRound(_ context.Context, roundID int) ([]*bet.Bet, error) {
	var out []*bet.Bet
	for _, b := range r.bets {
		if b.RoundID() == roundID && b.PrizeAmount().IsPositive() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memBetRepo) ListUnpaidWinners(_ context.Context) ([]*bet.Bet, error) {
	var out []*bet.Bet
	for _, b := range r.bets {
		if b.PrizeAmount().IsPositive() && !b.IsPaid() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memBetRepo) CountPending(_ context.Context) (int64, error) {
	var count int64
	for _, b := range r.bets {
		if b.Status() == vo.PaymentStatusPending {
			count++
		}
	}
	return count, nil
}

// memRoundRepo holds rounds keyed by round ID.
type memRoundRepo struct {
	rounds map[int]*round.Round
}

func (r *memRoundRepo) Create(_ context.Context, rd *round.Round) error {
	r.rounds[rd.RoundID()] = rd
	return nil
}

func (r *memRoundRepo) Update(_ context.Context, rd *round.Round) error {
	r.rounds[rd.RoundID()] = rd
	return nil
}

func (r *memRoundRepo) GetByRoundID(_ context.Context, roundID int) (*round.Round, error) {
	return r.rounds[roundID], nil
}

func (r *memRoundRepo) FindOpen(_ context.Context) (*round.Round, error) {
	for _, rd := range r.rounds {
		if !rd.IsFinalized() {
			return rd, nil
		}
	}
	return nil, nil
}

func (r *memRoundRepo) MaxRoundID(_ context.Context) (int, error) {
	maxID := 0
	for id := range r.rounds {
		if id > maxID {
			maxID = id
		}
	}
	return maxID, nil
}

func (r *memRoundRepo) ListRecent(_ context.Context, _ int) ([]*round.Round, error) {
	return nil, nil
}

func (r *memRoundRepo) IncrementTotalBets(_ context.Context, _ int) error {
	return nil
}

// scanGateway serves a fixed inbound transaction list, newest first.
type scanGateway struct {
	inbound   []blockchain.Transaction
	scanCalls int
}

func (g *scanGateway) TransactionByHash(_ context.Context, hash string) (*blockchain.Transaction, error) {
	for _, tx := range g.inbound {
		if tx.Hash == hash {
			return &tx, nil
		}
	}
	return nil, blockchain.ErrTxNotFound
}

func (g *scanGateway) RecentInbound(_ context.Context, _ int) ([]blockchain.Transaction, error) {
	g.scanCalls++
	return g.inbound, nil
}

func (g *scanGateway) SendPayment(_ context.Context, _ string, _ decimal.Decimal) (*blockchain.Payment, error) {
	return nil, fmt.Errorf("not supported")
}

func (g *scanGateway) Balance(_ context.Context, _ string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (g *scanGateway) ReceivingAddress() string {
	return "0xreceiver"
}

type reconcileFixture struct {
	betRepo   *memBetRepo
	roundRepo *memRoundRepo
	gateway   *scanGateway
	usecase   *ReconcilePaymentsUseCase
}

func newReconcileFixture(t *testing.T, maxAttempts int) *reconcileFixture {
	t.Helper()
	betRepo := &memBetRepo{failFor: map[uint]bool{}}
	roundRepo := &memRoundRepo{rounds: map[int]*round.Round{}}
	gateway := &scanGateway{}
	return &reconcileFixture{
		betRepo:   betRepo,
		roundRepo: roundRepo,
		gateway:   gateway,
		usecase: NewReconcilePaymentsUseCase(
			betRepo, roundRepo, gateway,
			decimal.RequireFromString("1"),
			decimal.RequireFromString("0.01"),
			maxAttempts,
			logger.NewLogger(),
		),
	}
}

func (f *reconcileFixture) pendingBet(t *testing.T, roundID int) *bet.Bet {
	t.Helper()
	pick, err := vo.NewNumbers([]int{5, 12, 23, 34, 45, 56}, 6, 60)
	require.NoError(t, err)
	b, err := bet.NewBet(pick, roundID, "")
	require.NoError(t, err)
	require.NoError(t, f.betRepo.Create(context.Background(), b))
	return b
}

func (f *reconcileFixture) openRound(t *testing.T, roundID int, drawIn time.Duration) *round.Round {
	t.Helper()
	r, err := round.NewRound(roundID, time.Now().UTC().Add(drawIn), decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, f.roundRepo.Create(context.Background(), r))
	return r
}

func inboundTx(hash, value string, at time.Time) blockchain.Transaction {
	return blockchain.Transaction{
		Hash:      hash,
		From:      "0xsender",
		To:        "0xreceiver",
		Value:     decimal.RequireFromString(value),
		Timestamp: at,
	}
}

func TestReconcileConfirmsMatchingPayment(t *testing.T) {
	f := newReconcileFixture(t, 240)
	f.openRound(t, 1, time.Hour)
	b := f.pendingBet(t, 1)

	f.gateway.inbound = []blockchain.Transaction{
		inboundTx("0xaaa", "1", time.Now().UTC().Add(time.Minute)),
	}

	stats, err := f.usecase.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, &ReconcileStats{Checked: 1, Confirmed: 1}, stats)
	assert.Equal(t, vo.PaymentStatusPaid, b.Status())
	require.NotNil(t, b.TransactionID())
	assert.Equal(t, "0xaaa", *b.TransactionID())
	assert.Nil(t, b.ValidationError())
}

func TestReconcileOneTransactionPaysOneBet(t *testing.T) {
	f := newReconcileFixture(t, 240)
	f.openRound(t, 1, time.Hour)
	first := f.pendingBet(t, 1)
	second := f.pendingBet(t, 1)

	// A single payment cannot settle both pending bets.
	f.gateway.inbound = []blockchain.Transaction{
		inboundTx("0xaaa", "1", time.Now().UTC().Add(time.Minute)),
	}

	stats, err := f.usecase.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Checked)
	assert.Equal(t, 1, stats.Confirmed)
	assert.Equal(t, vo.PaymentStatusPaid, first.Status())
	assert.Equal(t, vo.PaymentStatusPending, second.Status())
	assert.Equal(t, 1, second.PaymentCheckAttempts())
}

func TestReconcilePrefersOldestTransaction(t *testing.T) {
	f := newReconcileFixture(t, 240)
	f.openRound(t, 1, time.Hour)
	b := f.pendingBet(t, 1)

	// Inbound list is newest first; the oldest eligible payment wins.
	now := time.Now().UTC()
	f.gateway.inbound = []blockchain.Transaction{
		inboundTx("0xnewer", "1", now.Add(10*time.Minute)),
		inboundTx("0xolder", "1", now.Add(time.Minute)),
	}

	_, err := f.usecase.Execute(context.Background())
	require.NoError(t, err)

	require.NotNil(t, b.TransactionID())
	assert.Equal(t, "0xolder", *b.TransactionID())
}

func TestReconcileSkipsAlreadyClaimedTransaction(t *testing.T) {
	f := newReconcileFixture(t, 240)
	f.openRound(t, 1, time.Hour)

	claimant := f.pendingBet(t, 1)
	require.NoError(t, claimant.ConfirmPayment(
		"0xaaa", "0xsender", decimal.RequireFromString("1"), time.Now().UTC(),
	))

	b := f.pendingBet(t, 1)
	f.gateway.inbound = []blockchain.Transaction{
		inboundTx("0xaaa", "1", time.Now().UTC().Add(time.Minute)),
	}

	stats, err := f.usecase.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Confirmed)
	assert.Equal(t, vo.PaymentStatusPending, b.Status())
}

func TestReconcileSkipsTransactionBeforePlacement(t *testing.T) {
	f := newReconcileFixture(t, 240)
	f.openRound(t, 1, time.Hour)
	b := f.pendingBet(t, 1)

	f.gateway.inbound = []blockchain.Transaction{
		inboundTx("0xold", "1", b.PlacedAt().Add(-time.Hour)),
	}

	stats, err := f.usecase.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Confirmed)
	assert.Equal(t, vo.PaymentStatusPending, b.Status())
}

func TestReconcileSkipsWrongValue(t *testing.T) {
	f := newReconcileFixture(t, 240)
	f.openRound(t, 1, time.Hour)
	b := f.pendingBet(t, 1)

	now := time.Now().UTC()
	f.gateway.inbound = []blockchain.Transaction{
		inboundTx("0xlow", "0.5", now.Add(time.Minute)),
		inboundTx("0xhigh", "2", now.Add(time.Minute)),
		// 0.995 is inside the 0.01 tolerance.
		inboundTx("0xclose", "0.995", now.Add(time.Minute)),
	}

	stats, err := f.usecase.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Confirmed)
	require.NotNil(t, b.TransactionID())
	assert.Equal(t, "0xclose", *b.TransactionID())
}

func TestReconcileFlagsLatePayment(t *testing.T) {
	f := newReconcileFixture(t, 240)
	r := f.openRound(t, 1, time.Minute)
	b := f.pendingBet(t, 1)

	// Payment mined after the draw cutoff: confirmed but flagged.
	f.gateway.inbound = []blockchain.Transaction{
		inboundTx("0xlate", "1", r.DrawDate().Add(time.Minute)),
	}

	stats, err := f.usecase.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Confirmed)
	assert.Equal(t, vo.PaymentStatusPaid, b.Status())
	require.NotNil(t, b.ValidationError())
	assert.Contains(t, *b.ValidationError(), "after draw cutoff")
}

func TestReconcileFailsBetAtAttemptBound(t *testing.T) {
	f := newReconcileFixture(t, 2)
	f.openRound(t, 1, time.Hour)
	b := f.pendingBet(t, 1)

	// No inbound payments at all.
	stats, err := f.usecase.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, vo.PaymentStatusPending, b.Status())

	stats, err = f.usecase.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, vo.PaymentStatusFailed, b.Status())
	assert.Equal(t, 2, b.PaymentCheckAttempts())

	// A failed bet leaves the pending queue.
	stats, err = f.usecase.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Checked)
}

func TestReconcilePersistsAttemptWhenCheckErrors(t *testing.T) {
	f := newReconcileFixture(t, 240)
	f.openRound(t, 1, time.Hour)
	b := f.pendingBet(t, 1)

	f.gateway.inbound = []blockchain.Transaction{
		inboundTx("0xaaa", "1", time.Now().UTC().Add(time.Minute)),
	}
	// The claim lookup fails transiently; the attempt must still be written.
	f.betRepo.txLookupErr = fmt.Errorf("storage unavailable")

	stats, err := f.usecase.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, vo.PaymentStatusPending, b.Status())
	assert.Equal(t, 1, b.PaymentCheckAttempts())
	assert.Equal(t, 1, f.betRepo.updates[b.ID()])
}

func TestReconcileNoPendingBetsSkipsScan(t *testing.T) {
	f := newReconcileFixture(t, 240)

	stats, err := f.usecase.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, &ReconcileStats{}, stats)
	assert.Equal(t, 0, f.gateway.scanCalls)
}

func TestReconcileIsolatesPerBetFailures(t *testing.T) {
	f := newReconcileFixture(t, 240)
	f.openRound(t, 1, time.Hour)
	broken := f.pendingBet(t, 1)
	healthy := f.pendingBet(t, 1)
	f.betRepo.failFor[broken.ID()] = true

	now := time.Now().UTC()
	f.gateway.inbound = []blockchain.Transaction{
		inboundTx("0xbbb", "1", now.Add(2*time.Minute)),
		inboundTx("0xaaa", "1", now.Add(time.Minute)),
	}

	stats, err := f.usecase.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Checked)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 1, stats.Confirmed)
	assert.Equal(t, vo.PaymentStatusPaid, healthy.Status())
}

package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	roundservices "blocklotto/internal/application/round/services"
	"blocklotto/internal/domain/bet"
	vo "blocklotto/internal/domain/bet/valueobjects"
	"blocklotto/internal/domain/round"
	"blocklotto/internal/shared/db"
	apperrors "blocklotto/internal/shared/errors"
	"blocklotto/internal/shared/logger"
)

// memStateStore is an in-memory StateStore. TTLs are not enforced; expiry
// behavior belongs to the Redis implementation.
type memStateStore struct {
	data map[string]string
}

func (s *memStateStore) StoreState(_ context.Context, key, value string, _ time.Duration) error {
	s.data[key] = value
	return nil
}

func (s *memStateStore) GetState(_ context.Context, key string) (string, error) {
	return s.data[key], nil
}

func (s *memStateStore) ConsumeState(_ context.Context, key string) (string, error) {
	value := s.data[key]
	delete(s.data, key)
	return value, nil
}

func (s *memStateStore) DeleteState(_ context.Context, key string) error {
	delete(s.data, key)
	return nil
}

type sessionFixture struct {
	store     *memStateStore
	betRepo   *memBetRepo
	roundRepo *memRoundRepo
	gateway   *scanGateway
	service   *PaymentSessionService
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	testDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	store := &memStateStore{data: map[string]string{}}
	betRepo := &memBetRepo{failFor: map[uint]bool{}}
	roundRepo := &memRoundRepo{rounds: map[int]*round.Round{}}
	gateway := &scanGateway{}
	log := logger.NewLogger()

	schedule := round.NewDrawSchedule(
		[]time.Weekday{
			time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
			time.Thursday, time.Friday, time.Saturday,
		},
		23, 59, time.UTC,
	)
	txManager := db.NewTransactionManager(testDB)
	manager := roundservices.NewRoundManager(roundRepo, txManager, schedule, log)

	check := NewCheckBetPaymentUseCase(
		betRepo, roundRepo, gateway,
		decimal.RequireFromString("1"),
		decimal.RequireFromString("0.01"),
		log,
	)

	return &sessionFixture{
		store:     store,
		betRepo:   betRepo,
		roundRepo: roundRepo,
		gateway:   gateway,
		service: NewPaymentSessionService(
			store, betRepo, manager, txManager, check,
			6, 60, 30*time.Minute, log,
		),
	}
}

func (f *sessionFixture) openSession(t *testing.T) *PaymentSessionResult {
	t.Helper()
	session, err := f.service.Init(context.Background(), InitSessionCommand{
		Numbers:  []int{5, 12, 23, 34, 45, 56},
		Nickname: "alice",
	})
	require.NoError(t, err)
	return session
}

func TestSessionInitReturnsPaymentInstructions(t *testing.T) {
	f := newSessionFixture(t)

	session := f.openSession(t)

	assert.NotEmpty(t, session.SessionID)
	assert.Equal(t, []int{5, 12, 23, 34, 45, 56}, session.Numbers)
	assert.Equal(t, "alice", session.Nickname)
	assert.Equal(t, "1", session.Amount)
	assert.Equal(t, "0xreceiver", session.ReceivingAddress)
	assert.Equal(t, "awaiting_payment", session.Status)
	assert.True(t, session.ExpiresAt.After(time.Now().UTC()))

	// No bet exists until the session is completed.
	count, err := f.betRepo.CountPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSessionInitRejectsBadNumbers(t *testing.T) {
	f := newSessionFixture(t)

	_, err := f.service.Init(context.Background(), InitSessionCommand{Numbers: []int{1, 2}})

	assert.True(t, apperrors.IsValidationError(err))
	assert.Empty(t, f.store.data)
}

func TestSessionCheckReportsPaymentReceived(t *testing.T) {
	f := newSessionFixture(t)
	session := f.openSession(t)

	f.gateway.inbound = append(f.gateway.inbound,
		inboundTx("0xpay", "1", time.Now().UTC().Add(time.Minute)),
	)

	checked, err := f.service.Check(context.Background(), session.SessionID)
	require.NoError(t, err)

	assert.Equal(t, "payment_received", checked.Status)
	assert.Equal(t, "0xpay", checked.TransactionID)

	// Check is non-consuming.
	again, err := f.service.Check(context.Background(), session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "payment_received", again.Status)
}

func TestSessionCheckNoPaymentYet(t *testing.T) {
	f := newSessionFixture(t)
	session := f.openSession(t)

	checked, err := f.service.Check(context.Background(), session.SessionID)
	require.NoError(t, err)

	assert.Equal(t, "awaiting_payment", checked.Status)
	assert.Empty(t, checked.TransactionID)
}

func TestSessionCheckUnknownSession(t *testing.T) {
	f := newSessionFixture(t)

	_, err := f.service.Check(context.Background(), "nope")

	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestSessionCompleteRegistersPaidBet(t *testing.T) {
	f := newSessionFixture(t)
	session := f.openSession(t)

	f.gateway.inbound = append(f.gateway.inbound,
		inboundTx("0xpay", "1", time.Now().UTC().Add(time.Minute)),
	)

	result, err := f.service.Complete(context.Background(), session.SessionID, "")
	require.NoError(t, err)

	assert.Equal(t, uint(1), result.BetID)
	assert.Equal(t, 1, result.RoundID)
	assert.Equal(t, []int{5, 12, 23, 34, 45, 56}, result.Numbers)
	assert.Equal(t, vo.PaymentStatusPaid.String(), result.Status)
	require.NotNil(t, result.TransactionID)
	assert.Equal(t, "0xpay", *result.TransactionID)

	b, err := f.betRepo.GetByID(context.Background(), result.BetID)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, vo.PaymentStatusPaid, b.Status())
	assert.Equal(t, "alice", b.Nickname())

	// Completion opened the first round.
	assert.NotNil(t, f.roundRepo.rounds[1])

	// The consume is one-shot.
	_, err = f.service.Complete(context.Background(), session.SessionID, "")
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestSessionCompleteWithExplicitTransaction(t *testing.T) {
	f := newSessionFixture(t)
	session := f.openSession(t)

	f.gateway.inbound = append(f.gateway.inbound,
		inboundTx("0xexplicit", "1", time.Now().UTC().Add(time.Minute)),
	)

	result, err := f.service.Complete(context.Background(), session.SessionID, "0xexplicit")
	require.NoError(t, err)

	require.NotNil(t, result.TransactionID)
	assert.Equal(t, "0xexplicit", *result.TransactionID)
}

func TestSessionAbandonDiscardsSession(t *testing.T) {
	f := newSessionFixture(t)
	session := f.openSession(t)

	require.NoError(t, f.service.Abandon(context.Background(), session.SessionID))

	_, err := f.service.Check(context.Background(), session.SessionID)
	assert.True(t, apperrors.IsNotFoundError(err))

	// Abandoning an unknown session is fine; expiry may have beaten us.
	assert.NoError(t, f.service.Abandon(context.Background(), session.SessionID))
}

func TestSessionCompleteNoPaymentFound(t *testing.T) {
	f := newSessionFixture(t)
	session := f.openSession(t)

	_, err := f.service.Complete(context.Background(), session.SessionID, "")
	assert.True(t, apperrors.IsNotFoundError(err))

	// A failed completion still consumes the session.
	_, err = f.service.Check(context.Background(), session.SessionID)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestSessionCompleteIgnoresPaymentBeforeSession(t *testing.T) {
	f := newSessionFixture(t)
	session := f.openSession(t)

	f.gateway.inbound = append(f.gateway.inbound,
		inboundTx("0xearly", "1", time.Now().UTC().Add(-time.Hour)),
	)

	_, err := f.service.Complete(context.Background(), session.SessionID, "")
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestSessionCompleteSkipsClaimedTransaction(t *testing.T) {
	f := newSessionFixture(t)

	pick, err := vo.NewNumbers([]int{1, 2, 3, 4, 5, 6}, 6, 60)
	require.NoError(t, err)
	prior, err := bet.NewBet(pick, 1, "")
	require.NoError(t, err)
	require.NoError(t, f.betRepo.Create(context.Background(), prior))
	require.NoError(t, prior.ConfirmPayment(
		"0xclaimed", "0xsender", decimal.RequireFromString("1"), time.Now().UTC(),
	))

	session := f.openSession(t)
	f.gateway.inbound = append(f.gateway.inbound,
		inboundTx("0xclaimed", "1", time.Now().UTC().Add(time.Minute)),
	)

	_, err = f.service.Complete(context.Background(), session.SessionID, "0xclaimed")
	assert.True(t, apperrors.IsConflictError(err))
}

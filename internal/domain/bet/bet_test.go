package bet

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "blocklotto/internal/domain/bet/valueobjects"
)

func newTestBet(t *testing.T) *Bet {
	t.Helper()
	numbers, err := vo.NewNumbers([]int{5, 12, 23, 34, 45, 56}, 6, 60)
	require.NoError(t, err)
	b, err := NewBet(numbers, 1, "alice")
	require.NoError(t, err)
	return b
}

func TestNewBet(t *testing.T) {
	b := newTestBet(t)

	assert.Equal(t, vo.PaymentStatusPending, b.Status())
	assert.Equal(t, 1, b.RoundID())
	assert.Equal(t, "alice", b.Nickname())
	assert.True(t, b.TransactionValue().IsZero())
	assert.Nil(t, b.Matches())
	assert.False(t, b.IsPaid())
}

func TestNewBetRequiresNumbersAndRound(t *testing.T) {
	_, err := NewBet(vo.Numbers{}, 1, "")
	assert.ErrorContains(t, err, "numbers are required")

	numbers, err := vo.NewNumbers([]int{1, 2, 3, 4, 5, 6}, 6, 60)
	require.NoError(t, err)
	_, err = NewBet(numbers, 0, "")
	assert.ErrorContains(t, err, "round ID is required")
}

func TestConfirmPayment(t *testing.T) {
	b := newTestBet(t)
	txTime := time.Now().UTC()

	err := b.ConfirmPayment("0xabc", "0xsender", decimal.RequireFromString("1"), txTime)
	require.NoError(t, err)

	assert.Equal(t, vo.PaymentStatusPaid, b.Status())
	require.NotNil(t, b.TransactionID())
	assert.Equal(t, "0xabc", *b.TransactionID())
	assert.Equal(t, "0xsender", b.FromAddress())
	assert.True(t, b.TransactionValue().Equal(decimal.RequireFromString("1")))
}

func TestConfirmPaymentIdempotentForSameTransaction(t *testing.T) {
	b := newTestBet(t)
	txTime := time.Now().UTC()

	require.NoError(t, b.ConfirmPayment("0xabc", "0xsender", decimal.RequireFromString("1"), txTime))
	assert.NoError(t, b.ConfirmPayment("0xabc", "0xsender", decimal.RequireFromString("1"), txTime))
}

func TestConfirmPaymentRejectsDifferentTransactionWhenPaid(t *testing.T) {
	b := newTestBet(t)
	txTime := time.Now().UTC()

	require.NoError(t, b.ConfirmPayment("0xabc", "0xsender", decimal.RequireFromString("1"), txTime))
	err := b.ConfirmPayment("0xdef", "0xsender", decimal.RequireFromString("1"), txTime)
	assert.ErrorContains(t, err, "already paid")
}

func TestFailPayment(t *testing.T) {
	b := newTestBet(t)

	require.NoError(t, b.FailPayment("no matching payment"))
	assert.Equal(t, vo.PaymentStatusFailed, b.Status())
	require.NotNil(t, b.ValidationError())
	assert.Equal(t, "no matching payment", *b.ValidationError())
}

func TestFailPaymentRejectedOnFinalStatus(t *testing.T) {
	b := newTestBet(t)
	require.NoError(t, b.ConfirmPayment("0xabc", "0xsender", decimal.RequireFromString("1"), time.Now()))

	assert.Error(t, b.FailPayment("too late"))
}

func TestRecordCheckAttempt(t *testing.T) {
	b := newTestBet(t)

	b.RecordCheckAttempt()
	b.RecordCheckAttempt()

	assert.Equal(t, 2, b.PaymentCheckAttempts())
	assert.NotNil(t, b.LastPaymentCheck())
}

func TestSetMatchesOnce(t *testing.T) {
	b := newTestBet(t)

	require.NoError(t, b.SetMatches(4))
	require.NotNil(t, b.Matches())
	assert.Equal(t, 4, *b.Matches())

	assert.ErrorContains(t, b.SetMatches(5), "already set")
}

func TestSetMatchesBounds(t *testing.T) {
	b := newTestBet(t)

	assert.Error(t, b.SetMatches(-1))
	assert.Error(t, b.SetMatches(7))
	assert.NoError(t, b.SetMatches(6))
}

func TestMarkPrizePaid(t *testing.T) {
	b := newTestBet(t)
	require.NoError(t, b.AwardPrize(decimal.RequireFromString("12.5")))

	require.NoError(t, b.MarkPrizePaid("0xpayout", time.Now()))
	assert.True(t, b.IsPaid())
	require.NotNil(t, b.PaymentTxID())
	assert.Equal(t, "0xpayout", *b.PaymentTxID())

	assert.ErrorContains(t, b.MarkPrizePaid("0xother", time.Now()), "already paid")
}

func TestMarkPrizePaidRequiresPrize(t *testing.T) {
	b := newTestBet(t)

	assert.ErrorContains(t, b.MarkPrizePaid("0xpayout", time.Now()), "no prize")
}

package bet

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	vo "blocklotto/internal/domain/bet/valueobjects"
	"blocklotto/internal/shared/biztime"
)

// Bet is a submitted numbers pick tied to a round and, eventually, to an
// inbound payment transaction and a prize payout record.
type Bet struct {
	id       uint
	numbers  vo.Numbers
	nickname string
	roundID  int

	status          vo.PaymentStatus
	fromAddress     string
	transactionID   *string
	transactionValue decimal.Decimal
	transactionTime *time.Time
	validationError *string

	matches     *int
	prizeAmount decimal.Decimal

	isPaid      bool
	paymentTxID *string
	paymentDate *time.Time

	paymentCheckAttempts int
	lastPaymentCheck     *time.Time

	placedAt  time.Time
	updatedAt time.Time
}

// NewBet creates a pending bet attached to the given round.
func NewBet(numbers vo.Numbers, roundID int, nickname string) (*Bet, error) {
	if numbers.IsEmpty() {
		return nil, fmt.Errorf("numbers are required")
	}
	if roundID < 1 {
		return nil, fmt.Errorf("round ID is required")
	}

	now := biztime.NowUTC()
	return &Bet{
		numbers:          numbers,
		nickname:         nickname,
		roundID:          roundID,
		status:           vo.PaymentStatusPending,
		transactionValue: decimal.Zero,
		prizeAmount:      decimal.Zero,
		placedAt:         now,
		updatedAt:        now,
	}, nil
}

// ConfirmPayment records the matched inbound transaction and moves the bet to
// paid. Confirming an already-paid bet with the same transaction is a no-op;
// any other re-confirmation attempt is rejected.
func (b *Bet) ConfirmPayment(txID, fromAddress string, value decimal.Decimal, txTime time.Time) error {
	if b.status == vo.PaymentStatusPaid {
		if b.transactionID != nil && *b.transactionID == txID {
			return nil
		}
		return fmt.Errorf("bet already paid with transaction %s", *b.transactionID)
	}
	if b.status != vo.PaymentStatusPending {
		return fmt.Errorf("cannot confirm payment with status %s", b.status)
	}
	if txID == "" {
		return fmt.Errorf("transaction ID is required")
	}

	now := biztime.NowUTC()
	t := txTime.UTC()
	b.status = vo.PaymentStatusPaid
	b.transactionID = &txID
	b.fromAddress = fromAddress
	b.transactionValue = value
	b.transactionTime = &t
	b.validationError = nil
	b.updatedAt = now

	return nil
}

// FailPayment moves a pending bet to failed with the given reason.
func (b *Bet) FailPayment(reason string) error {
	if b.status.IsFinal() {
		return fmt.Errorf("cannot fail payment with final status %s", b.status)
	}

	b.status = vo.PaymentStatusFailed
	b.validationError = &reason
	b.updatedAt = biztime.NowUTC()

	return nil
}

// FlagValidationError records a non-fatal validation problem (for example a
// payment observed after the draw cutoff) without changing the status.
func (b *Bet) FlagValidationError(reason string) {
	b.validationError = &reason
	b.updatedAt = biztime.NowUTC()
}

// RecordCheckAttempt advances the reconciliation bookkeeping.
func (b *Bet) RecordCheckAttempt() {
	now := biztime.NowUTC()
	b.paymentCheckAttempts++
	b.lastPaymentCheck = &now
	b.updatedAt = now
}

// SetMatches records the match count computed at draw time. It may be set
// exactly once per bet.
func (b *Bet) SetMatches(matches int) error {
	if b.matches != nil {
		return fmt.Errorf("matches already set to %d", *b.matches)
	}
	if matches < 0 || matches > b.numbers.Size() {
		return fmt.Errorf("match count %d out of range [0, %d]", matches, b.numbers.Size())
	}

	b.matches = &matches
	b.updatedAt = biztime.NowUTC()
	return nil
}

// CountMatches returns the intersection size between this bet's numbers and
// the winning numbers.
func (b *Bet) CountMatches(winning vo.Numbers) int {
	return b.numbers.Matches(winning)
}

// AwardPrize records the prize share won by this bet.
func (b *Bet) AwardPrize(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("prize amount cannot be negative")
	}
	b.prizeAmount = amount
	b.updatedAt = biztime.NowUTC()
	return nil
}

// MarkPrizePaid records a successful outbound payout.
func (b *Bet) MarkPrizePaid(payoutTxID string, paidAt time.Time) error {
	if b.isPaid {
		return fmt.Errorf("prize already paid with transaction %s", *b.paymentTxID)
	}
	if b.prizeAmount.IsZero() {
		return fmt.Errorf("no prize to pay")
	}

	t := paidAt.UTC()
	b.isPaid = true
	b.paymentTxID = &payoutTxID
	b.paymentDate = &t
	b.updatedAt = biztime.NowUTC()

	return nil
}

func (b *Bet) ID() uint                        { return b.id }
func (b *Bet) Numbers() vo.Numbers             { return b.numbers }
func (b *Bet) Nickname() string                { return b.nickname }
func (b *Bet) RoundID() int                    { return b.roundID }
func (b *Bet) Status() vo.PaymentStatus        { return b.status }
func (b *Bet) FromAddress() string             { return b.fromAddress }
func (b *Bet) TransactionID() *string          { return b.transactionID }
func (b *Bet) TransactionValue() decimal.Decimal { return b.transactionValue }
func (b *Bet) TransactionTime() *time.Time     { return b.transactionTime }
func (b *Bet) ValidationError() *string        { return b.validationError }
func (b *Bet) Matches() *int                   { return b.matches }
func (b *Bet) PrizeAmount() decimal.Decimal    { return b.prizeAmount }
func (b *Bet) IsPaid() bool                    { return b.isPaid }
func (b *Bet) PaymentTxID() *string            { return b.paymentTxID }
func (b *Bet) PaymentDate() *time.Time         { return b.paymentDate }
func (b *Bet) PaymentCheckAttempts() int       { return b.paymentCheckAttempts }
func (b *Bet) LastPaymentCheck() *time.Time    { return b.lastPaymentCheck }
func (b *Bet) PlacedAt() time.Time             { return b.placedAt }
func (b *Bet) UpdatedAt() time.Time            { return b.updatedAt }

// SetID sets the bet ID after persistence (used by the repository after Create).
func (b *Bet) SetID(id uint) {
	b.id = id
}

// BetReconstructParams carries persisted state for rebuilding a Bet.
type BetReconstructParams struct {
	ID               uint
	Numbers          vo.Numbers
	Nickname         string
	RoundID          int
	Status           vo.PaymentStatus
	FromAddress      string
	TransactionID    *string
	TransactionValue decimal.Decimal
	TransactionTime  *time.Time
	ValidationError  *string
	Matches          *int
	PrizeAmount      decimal.Decimal
	IsPaid           bool
	PaymentTxID      *string
	PaymentDate      *time.Time
	CheckAttempts    int
	LastPaymentCheck *time.Time
	PlacedAt         time.Time
	UpdatedAt        time.Time
}

// ReconstructBet rebuilds a Bet from persistence.
func ReconstructBet(p BetReconstructParams) *Bet {
	return &Bet{
		id:                   p.ID,
		numbers:              p.Numbers,
		nickname:             p.Nickname,
		roundID:              p.RoundID,
		status:               p.Status,
		fromAddress:          p.FromAddress,
		transactionID:        p.TransactionID,
		transactionValue:     p.TransactionValue,
		transactionTime:      p.TransactionTime,
		validationError:      p.ValidationError,
		matches:              p.Matches,
		prizeAmount:          p.PrizeAmount,
		isPaid:               p.IsPaid,
		paymentTxID:          p.PaymentTxID,
		paymentDate:          p.PaymentDate,
		paymentCheckAttempts: p.CheckAttempts,
		lastPaymentCheck:     p.LastPaymentCheck,
		placedAt:             p.PlacedAt,
		updatedAt:            p.UpdatedAt,
	}
}

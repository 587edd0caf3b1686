package usecases

import (
	"time"

	"blocklotto/internal/domain/bet"
)

// BetDTO is the transport shape of a bet.
type BetDTO struct {
	ID               uint       `json:"id"`
	Numbers          []int      `json:"numbers"`
	Nickname         string     `json:"nickname,omitempty"`
	RoundID          int        `json:"round_id"`
	Status           string     `json:"status"`
	FromAddress      string     `json:"from_address,omitempty"`
	TransactionID    *string    `json:"transaction_id,omitempty"`
	TransactionValue string     `json:"transaction_value"`
	ValidationError  *string    `json:"validation_error,omitempty"`
	Matches          *int       `json:"matches,omitempty"`
	PrizeAmount      string     `json:"prize_amount"`
	IsPaid           bool       `json:"is_paid"`
	PaymentTxID      *string    `json:"payment_tx_id,omitempty"`
	PaymentDate      *time.Time `json:"payment_date,omitempty"`
	PlacedAt         time.Time  `json:"placed_at"`
}

func toBetDTO(b *bet.Bet) BetDTO {
	return BetDTO{
		ID:               b.ID(),
		Numbers:          b.Numbers().Values(),
		Nickname:         b.Nickname(),
		RoundID:          b.RoundID(),
		Status:           b.Status().String(),
		FromAddress:      b.FromAddress(),
		TransactionID:    b.TransactionID(),
		TransactionValue: b.TransactionValue().String(),
		ValidationError:  b.ValidationError(),
		Matches:          b.Matches(),
		PrizeAmount:      b.PrizeAmount().String(),
		IsPaid:           b.IsPaid(),
		PaymentTxID:      b.PaymentTxID(),
		PaymentDate:      b.PaymentDate(),
		PlacedAt:         b.PlacedAt(),
	}
}

func toBetDTOs(bets []*bet.Bet) []BetDTO {
	out := make([]BetDTO, 0, len(bets))
	for _, b := range bets {
		out = append(out, toBetDTO(b))
	}
	return out
}

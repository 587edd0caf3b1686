// Package mappers converts between domain aggregates and persistence models.
package mappers

import (
	"encoding/json"
	"fmt"

	"blocklotto/internal/domain/bet"
	vo "blocklotto/internal/domain/bet/valueobjects"
	"blocklotto/internal/infrastructure/persistence/models"
)

// BetMapper converts bets.
type BetMapper struct{}

// NewBetMapper creates a BetMapper.
func NewBetMapper() *BetMapper {
	return &BetMapper{}
}

// ToModel converts a domain bet to its row.
func (m *BetMapper) ToModel(b *bet.Bet) (*models.BetModel, error) {
	numbers, err := encodeNumbers(b.Numbers())
	if err != nil {
		return nil, err
	}

	return &models.BetModel{
		ID:                   b.ID(),
		Numbers:              numbers,
		Nickname:             b.Nickname(),
		RoundID:              b.RoundID(),
		Status:               b.Status().String(),
		FromAddress:          b.FromAddress(),
		TransactionID:        b.TransactionID(),
		TransactionValue:     b.TransactionValue(),
		TransactionTime:      b.TransactionTime(),
		ValidationError:      b.ValidationError(),
		Matches:              b.Matches(),
		PrizeAmount:          b.PrizeAmount(),
		IsPaid:               b.IsPaid(),
		PaymentTxID:          b.PaymentTxID(),
		PaymentDate:          b.PaymentDate(),
		PaymentCheckAttempts: b.PaymentCheckAttempts(),
		LastPaymentCheck:     b.LastPaymentCheck(),
		PlacedAt:             b.PlacedAt(),
		UpdatedAt:            b.UpdatedAt(),
	}, nil
}

// ToDomain converts a row back to the domain bet.
func (m *BetMapper) ToDomain(row *models.BetModel) (*bet.Bet, error) {
	numbers, err := decodeNumbers(row.Numbers)
	if err != nil {
		return nil, fmt.Errorf("bet %d: %w", row.ID, err)
	}

	return bet.ReconstructBet(bet.BetReconstructParams{
		ID:               row.ID,
		Numbers:          numbers,
		Nickname:         row.Nickname,
		RoundID:          row.RoundID,
		Status:           vo.PaymentStatus(row.Status),
		FromAddress:      row.FromAddress,
		TransactionID:    row.TransactionID,
		TransactionValue: row.TransactionValue,
		TransactionTime:  row.TransactionTime,
		ValidationError:  row.ValidationError,
		Matches:          row.Matches,
		PrizeAmount:      row.PrizeAmount,
		IsPaid:           row.IsPaid,
		PaymentTxID:      row.PaymentTxID,
		PaymentDate:      row.PaymentDate,
		CheckAttempts:    row.PaymentCheckAttempts,
		LastPaymentCheck: row.LastPaymentCheck,
		PlacedAt:         row.PlacedAt,
		UpdatedAt:        row.UpdatedAt,
	}), nil
}

// ToDomainList converts rows in bulk.
func (m *BetMapper) ToDomainList(rows []models.BetModel) ([]*bet.Bet, error) {
	out := make([]*bet.Bet, 0, len(rows))
	for i := range rows {
		b, err := m.ToDomain(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func encodeNumbers(n vo.Numbers) (string, error) {
	raw, err := json.Marshal(n.Values())
	if err != nil {
		return "", fmt.Errorf("encoding numbers: %w", err)
	}
	return string(raw), nil
}

func decodeNumbers(raw string) (vo.Numbers, error) {
	if raw == "" {
		return vo.Numbers{}, nil
	}
	var values []int
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return vo.Numbers{}, fmt.Errorf("decoding numbers: %w", err)
	}
	return vo.ReconstructNumbers(values), nil
}

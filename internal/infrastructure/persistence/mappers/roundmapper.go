package mappers

import (
	"encoding/json"
	"fmt"
	"strconv"

	vo "blocklotto/internal/domain/bet/valueobjects"
	"blocklotto/internal/domain/round"
	"blocklotto/internal/infrastructure/persistence/models"
)

// RoundMapper converts rounds.
type RoundMapper struct{}

// NewRoundMapper creates a RoundMapper.
func NewRoundMapper() *RoundMapper {
	return &RoundMapper{}
}

// ToModel converts a domain round to its row.
func (m *RoundMapper) ToModel(r *round.Round) (*models.RoundModel, error) {
	winning := ""
	if !r.WinningNumbers().IsEmpty() {
		var err error
		winning, err = encodeNumbers(r.WinningNumbers())
		if err != nil {
			return nil, err
		}
	}

	winners, err := encodeWinners(r.Winners())
	if err != nil {
		return nil, err
	}

	return &models.RoundModel{
		ID:                r.ID(),
		RoundID:           r.RoundID(),
		StartTime:         r.StartTime(),
		DrawDate:          r.DrawDate(),
		IsFinalized:       r.IsFinalized(),
		FinalizedAt:       r.FinalizedAt(),
		WinningNumbers:    winning,
		TotalBets:         r.TotalBets(),
		TotalPrizePool:    r.TotalPrizePool(),
		AccumulatedAmount: r.AccumulatedAmount(),
		RolloverAmount:    r.RolloverAmount(),
		Winners:           winners,
		CreatedAt:         r.CreatedAt(),
		UpdatedAt:         r.UpdatedAt(),
	}, nil
}

// ToDomain converts a row back to the domain round.
func (m *RoundMapper) ToDomain(row *models.RoundModel) (*round.Round, error) {
	var winning vo.Numbers
	if row.WinningNumbers != "" {
		var err error
		winning, err = decodeNumbers(row.WinningNumbers)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", row.RoundID, err)
		}
	}

	winners, err := decodeWinners(row.Winners)
	if err != nil {
		return nil, fmt.Errorf("round %d: %w", row.RoundID, err)
	}

	return round.ReconstructRound(round.RoundReconstructParams{
		ID:                row.ID,
		RoundID:           row.RoundID,
		StartTime:         row.StartTime,
		DrawDate:          row.DrawDate,
		IsFinalized:       row.IsFinalized,
		FinalizedAt:       row.FinalizedAt,
		WinningNumbers:    winning,
		TotalBets:         row.TotalBets,
		TotalPrizePool:    row.TotalPrizePool,
		AccumulatedAmount: row.AccumulatedAmount,
		RolloverAmount:    row.RolloverAmount,
		Winners:           winners,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}), nil
}

// ToDomainList converts rows in bulk.
func (m *RoundMapper) ToDomainList(rows []models.RoundModel) ([]*round.Round, error) {
	out := make([]*round.Round, 0, len(rows))
	for i := range rows {
		r, err := m.ToDomain(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// encodeWinners stores the match-count tally as a JSON object with string
// keys, the only map shape JSON allows.
func encodeWinners(winners map[int]int) (string, error) {
	if len(winners) == 0 {
		return "", nil
	}
	tmp := make(map[string]int, len(winners))
	for k, v := range winners {
		tmp[strconv.Itoa(k)] = v
	}
	raw, err := json.Marshal(tmp)
	if err != nil {
		return "", fmt.Errorf("encoding winners: %w", err)
	}
	return string(raw), nil
}

func decodeWinners(raw string) (map[int]int, error) {
	if raw == "" {
		return map[int]int{}, nil
	}
	var tmp map[string]int
	if err := json.Unmarshal([]byte(raw), &tmp); err != nil {
		return nil, fmt.Errorf("decoding winners: %w", err)
	}
	out := make(map[int]int, len(tmp))
	for k, v := range tmp {
		matches, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("decoding winners key %q: %w", k, err)
		}
		out[matches] = v
	}
	return out, nil
}

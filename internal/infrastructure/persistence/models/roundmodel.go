package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoundModel is the rounds table row.
type RoundModel struct {
	ID      uint `gorm:"primaryKey;autoIncrement"`
	RoundID int  `gorm:"not null;uniqueIndex:idx_rounds_round_id"`

	StartTime time.Time `gorm:"not null"`
	DrawDate  time.Time `gorm:"not null;index:idx_rounds_draw_date"`

	IsFinalized    bool `gorm:"not null;default:false;index:idx_rounds_finalized"`
	FinalizedAt    *time.Time
	WinningNumbers string `gorm:"type:varchar(128)"`

	TotalBets int `gorm:"not null;default:0"`

	TotalPrizePool    decimal.Decimal `gorm:"type:decimal(30,18);not null;default:0"`
	AccumulatedAmount decimal.Decimal `gorm:"type:decimal(30,18);not null;default:0"`
	RolloverAmount    decimal.Decimal `gorm:"type:decimal(30,18);not null;default:0"`

	Winners string `gorm:"type:varchar(255)"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name.
func (RoundModel) TableName() string {
	return "rounds"
}

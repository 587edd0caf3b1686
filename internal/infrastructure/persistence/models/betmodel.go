// Package models holds the GORM persistence models.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BetModel is the bets table row.
type BetModel struct {
	ID       uint   `gorm:"primaryKey;autoIncrement"`
	Numbers  string `gorm:"type:varchar(128);not null"`
	Nickname string `gorm:"type:varchar(64)"`
	RoundID  int    `gorm:"not null;index:idx_bets_round"`

	Status           string          `gorm:"type:varchar(16);not null;index:idx_bets_status"`
	FromAddress      string          `gorm:"type:varchar(64)"`
	TransactionID    *string         `gorm:"type:varchar(80);index:idx_bets_tx"`
	TransactionValue decimal.Decimal `gorm:"type:decimal(30,18);not null;default:0"`
	TransactionTime  *time.Time
	ValidationError  *string `gorm:"type:varchar(255)"`

	Matches     *int
	PrizeAmount decimal.Decimal `gorm:"type:decimal(30,18);not null;default:0"`

	IsPaid      bool    `gorm:"not null;default:false;index:idx_bets_paid"`
	PaymentTxID *string `gorm:"type:varchar(80)"`
	PaymentDate *time.Time

	PaymentCheckAttempts int `gorm:"not null;default:0"`
	LastPaymentCheck     *time.Time

	PlacedAt  time.Time `gorm:"not null;index:idx_bets_placed"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name.
func (BetModel) TableName() string {
	return "bets"
}

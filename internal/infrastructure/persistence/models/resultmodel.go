package models

import "time"

// ResultModel is the results table row. DrawDate is stored at day granularity
// and is unique: one result per draw date, forever.
type ResultModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	DrawDate  time.Time `gorm:"type:date;not null;uniqueIndex:idx_results_draw_date"`
	Numbers   string    `gorm:"type:varchar(128);not null"`
	Processed bool      `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name.
func (ResultModel) TableName() string {
	return "results"
}

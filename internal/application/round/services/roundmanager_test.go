package services

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

	vo "blocklotto/internal/domain/bet/valueobjects"
	"blocklotto/internal/domain/round"
	"blocklotto/internal/infrastructure/persistence/models"
	"blocklotto/internal/infrastructure/repository"
	"blocklotto/internal/shared/db"
	apperrors "blocklotto/internal/shared/errors"
	"blocklotto/internal/shared/logger"
)

func newManager(t *testing.T) (*RoundManager, round.Repository) {
	t.Helper()

	database, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(&models.RoundModel{}))

	repo := repository.NewRoundRepository(database)
	schedule := round.NewDrawSchedule(
		[]time.Weekday{
			time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
			time.Thursday, time.Friday, time.Saturday,
		},
		23, 59, time.UTC,
	)
	manager := NewRoundManager(repo, db.NewTransactionManager(database), schedule, logger.NewLogger())
	return manager, repo
}

func TestGetOrOpenCurrentCreatesFirstRound(t *testing.T) {
	manager, _ := newManager(t)
	ctx := context.Background()

	r, err := manager.GetOrOpenCurrent(ctx)
	require.NoError(t, err)
	require.NotNil(t, r)

	assert.Equal(t, 1, r.RoundID())
	assert.False(t, r.IsFinalized())
	assert.True(t, r.DrawDate().After(time.Now().UTC()))
}

func TestGetOrOpenCurrentReturnsExistingRound(t *testing.T) {
	manager, _ := newManager(t)
	ctx := context.Background()

	first, err := manager.GetOrOpenCurrent(ctx)
	require.NoError(t, err)

	second, err := manager.GetOrOpenCurrent(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.RoundID(), second.RoundID())
}

func TestOpenNextRejectsWhileRoundOpen(t *testing.T) {
	manager, _ := newManager(t)
	ctx := context.Background()

	_, err := manager.GetOrOpenCurrent(ctx)
	require.NoError(t, err)

	_, err = manager.OpenNext(ctx, decimal.Zero)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflictError(err))
}

func TestOpenNextCarriesAccumulation(t *testing.T) {
	manager, repo := newManager(t)
	ctx := context.Background()

	current, err := manager.GetOrOpenCurrent(ctx)
	require.NoError(t, err)

	winning, err := vo.NewNumbers([]int{5, 12, 23, 34, 45, 56}, 6, 60)
	require.NoError(t, err)
	require.NoError(t, current.Finalize(winning, round.FinalizeStats{
		TotalPrizePool: decimal.Zero,
		RolloverAmount: decimal.RequireFromString("7.25"),
	}))
	require.NoError(t, repo.Update(ctx, current))

	next, err := manager.OpenNext(ctx, decimal.RequireFromString("7.25"))
	require.NoError(t, err)

	assert.Equal(t, current.RoundID()+1, next.RoundID())
	assert.True(t, next.AccumulatedAmount().Equal(decimal.RequireFromString("7.25")))

	open, err := repo.FindOpen(ctx)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, next.RoundID(), open.RoundID())
}

package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	drawusecases "blocklotto/internal/application/draw/usecases"
	"blocklotto/internal/shared/biztime"
	"blocklotto/internal/shared/logger"
)

// settlementSweepInterval paces the draw settlement check. The sweep is cheap
// when nothing is due, so a short interval keeps settlement latency low.
const settlementSweepInterval = 5 * time.Minute

// SchedulerManager manages the gocron-backed jobs. The payment monitor runs
// on its own loop; everything else registers here.
type SchedulerManager struct {
	scheduler gocron.Scheduler
	logger    logger.Interface

	started   bool
	startedMu sync.RWMutex
}

// NewSchedulerManager creates a SchedulerManager anchored to the business
// timezone.
func NewSchedulerManager(log logger.Interface) (*SchedulerManager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(biztime.Location()),
	)
	if err != nil {
		return nil, err
	}

	return &SchedulerManager{
		scheduler: scheduler,
		logger:    log.Named("scheduler"),
	}, nil
}

// RegisterSettlementJob registers the draw settlement sweep: settle the open
// round once its cutoff has passed and a result is on record.
func (m *SchedulerManager) RegisterSettlementJob(check *drawusecases.CheckResultsUseCase) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(settlementSweepInterval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), settlementSweepInterval)
			defer cancel()
			m.runSettlementSweep(ctx, check)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("draw", "settlement"),
		gocron.WithName("draw-settlement"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered settlement job", "interval", settlementSweepInterval.String())
	return nil
}

func (m *SchedulerManager) runSettlementSweep(ctx context.Context, check *drawusecases.CheckResultsUseCase) {
	startTime := biztime.NowUTC()

	settled, err := check.Execute(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.logger.Errorw("settlement sweep failed",
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}

	if settled != nil {
		m.logger.Infow("round settled by sweep",
			"round_id", settled.RoundID,
			"winners", settled.WinnerCount,
			"duration", time.Since(startTime),
		)
	}
}

// Start starts the scheduler and all registered jobs.
func (m *SchedulerManager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler started", "job_count", len(m.scheduler.Jobs()))
}

// Stop shuts the scheduler down, waiting for running jobs.
func (m *SchedulerManager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	err := m.scheduler.Shutdown()
	m.started = false
	if err != nil {
		m.logger.Errorw("scheduler shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler stopped")
	return nil
}

// IsStarted reports whether the scheduler is running.
func (m *SchedulerManager) IsStarted() bool {
	m.startedMu.RLock()
	defer m.startedMu.RUnlock()
	return m.started
}

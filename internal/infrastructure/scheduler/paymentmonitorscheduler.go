// Package scheduler runs the background jobs: the payment reconciliation
// loop and the draw settlement sweep.
package scheduler

import (
	"context"
	"sync"
	"time"

	paymentusecases "blocklotto/internal/application/payment/usecases"
	"blocklotto/internal/shared/logger"
)

// PaymentMonitorScheduler drives the payment reconciliation loop at a fixed
// interval.
type PaymentMonitorScheduler struct {
	reconcile *paymentusecases.ReconcilePaymentsUseCase
	interval  time.Duration
	logger    logger.Interface

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPaymentMonitorScheduler creates a PaymentMonitorScheduler.
func NewPaymentMonitorScheduler(
	reconcile *paymentusecases.ReconcilePaymentsUseCase,
	interval time.Duration,
	log logger.Interface,
) *PaymentMonitorScheduler {
	return &PaymentMonitorScheduler{
		reconcile: reconcile,
		interval:  interval,
		logger:    log.Named("payment-monitor"),
		stopChan:  make(chan struct{}),
	}
}

// Start launches the loop. The first pass runs immediately.
func (s *PaymentMonitorScheduler) Start() {
	s.wg.Add(1)
	go s.run()
	s.logger.Infow("payment monitor started", "interval", s.interval.String())
}

// Stop signals the loop and waits for the in-flight pass to finish.
func (s *PaymentMonitorScheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
	s.logger.Infow("payment monitor stopped")
}

func (s *PaymentMonitorScheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *PaymentMonitorScheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval*4)
	defer cancel()

	stats, err := s.reconcile.Execute(ctx)
	if err != nil {
		s.logger.Errorw("reconcile pass failed", "error", err)
		return
	}
	if stats.Checked > 0 {
		s.logger.Debugw("reconcile pass done",
			"checked", stats.Checked,
			"confirmed", stats.Confirmed,
			"failed", stats.Failed,
			"errors", stats.Errors,
		)
	}
}

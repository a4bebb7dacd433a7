package schedule

// Retention sweeper: expired dedup claims, aged dead letters and terminal
// notifications past audit retention are removed on a fixed cadence so the
// tables stay bounded without a DBA task.

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"Mazraaty/config"
	"Mazraaty/internal/repository"
	"Mazraaty/pkg/logger"
)

var (
	sweeperOnce sync.Once
	sweeperInst *RetentionSweeper
)

type RetentionSweeper struct {
	cron   *cron.Cron
	logger *zap.Logger

	runMu   sync.Mutex
	running bool
}

func GetSweeper() *RetentionSweeper {
	sweeperOnce.Do(func() {
		sweeperInst = &RetentionSweeper{
			cron:   cron.New(),
			logger: logger.Logger,
		}
	})
	return sweeperInst
}

// Start registers the sweep jobs and starts the cron loop. Hourly is frequent
// enough: retention windows are measured in days.
func (s *RetentionSweeper) Start() error {
	if _, err := s.cron.AddFunc("@hourly", func() {
		s.sweep(context.Background())
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Retention sweeper started", zap.String("schedule", "@hourly"))
	return nil
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (s *RetentionSweeper) Stop() {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		s.logger.Warn("Retention sweeper stop timed out")
	}
}

func (s *RetentionSweeper) sweep(ctx context.Context) {
	s.runMu.Lock()
	if s.running {
		s.runMu.Unlock()
		s.logger.Info("Sweep already running, skipping")
		return
	}
	s.running = true
	s.runMu.Unlock()

	defer func() {
		s.runMu.Lock()
		s.running = false
		s.runMu.Unlock()
	}()

	sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	start := time.Now()

	dedupRemoved, err := repository.SweepExpiredDedup(sweepCtx)
	if err != nil {
		s.logger.Error("Dedup sweep failed", zap.Error(err))
	}

	dlqRetention := time.Duration(config.Cfg.DLQRetentionSeconds) * time.Second
	dlqRemoved, err := repository.SweepExpiredDeadLetters(sweepCtx, dlqRetention)
	if err != nil {
		s.logger.Error("Dead letter sweep failed", zap.Error(err))
	}

	auditRetention := time.Duration(config.Cfg.AuditRetentionSeconds) * time.Second
	agedRemoved, err := repository.SweepAgedNotifications(sweepCtx, auditRetention)
	if err != nil {
		s.logger.Error("Aged notification sweep failed", zap.Error(err))
	}

	s.logger.Info("Retention sweep finished",
		zap.Int64("dedup_removed", dedupRemoved),
		zap.Int64("dead_letters_removed", dlqRemoved),
		zap.Int64("notifications_removed", agedRemoved),
		zap.Duration("elapsed", time.Since(start)),
	)
}

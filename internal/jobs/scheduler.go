// Package jobs runs the periodic expiry and cleanup sweeps.
package jobs

import (
	"alcyxob/coaching-programmes/internal/platform/logger"
	"alcyxob/coaching-programmes/internal/service"
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultInterval = time.Hour
	DefaultLeaseTTL = 5 * time.Minute

	lockKey = "sweep"
)

// SweepJob runs both sweeps on a ticker under a lease.
type SweepJob struct {
	sweeper  service.Sweeper
	locker   Locker
	metrics  *Metrics
	interval time.Duration
	leaseTTL time.Duration
	log      *logger.Logger
	now      func() time.Time
}

// SweepJobConfig tunes the schedule. Zero values fall back to the defaults.
type SweepJobConfig struct {
	Interval time.Duration
	LeaseTTL time.Duration
}

func NewSweepJob(sweeper service.Sweeper, locker Locker, metrics *Metrics, cfg SweepJobConfig, log *logger.Logger) *SweepJob {
	if locker == nil {
		locker = NoopLocker{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = DefaultLeaseTTL
	}
	return &SweepJob{
		sweeper:  sweeper,
		locker:   locker,
		metrics:  metrics,
		interval: cfg.Interval,
		leaseTTL: cfg.LeaseTTL,
		log:      log.With("job", "sweep"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
func (j *SweepJob) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.log.Info("Sweep job started", "interval", j.interval.String())
	for {
		if err := j.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			j.log.Error("Sweep pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			j.log.Info("Sweep job stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce takes the lease and runs cleanup then expiry. Losing the lease is not an error.
func (j *SweepJob) RunOnce(ctx context.Context) error {
	release, ok, err := j.locker.TryLock(ctx, lockKey, j.leaseTTL)
	if err != nil {
		j.observeRun("lease", "error")
		return err
	}
	if !ok {
		j.log.Debug("Sweep lease held elsewhere, skipping")
		j.observeRun("lease", "skipped")
		return nil
	}
	defer func() {
		// Release on a fresh context so a cancelled run still frees the lease.
		relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := release(relCtx); err != nil {
			j.log.Warn("Failed to release sweep lease", "error", err)
		}
	}()

	at := j.now()
	var errs []error

	timer := j.timer("cleanup")
	cleanup, err := j.sweeper.CleanupOldRejected(ctx, at, nil)
	timer()
	j.observe("cleanup", err)
	if j.metrics != nil {
		j.metrics.Purged.Add(float64(cleanup.Purged))
	}
	if err != nil {
		errs = append(errs, err)
	}

	timer = j.timer("expiry")
	expiry, err := j.sweeper.ExpireStalePendingUpdates(ctx, at, nil)
	timer()
	j.observe("expiry", err)
	if j.metrics != nil {
		j.metrics.Expired.Add(float64(expiry.Expired))
		j.metrics.Conflicts.Add(float64(expiry.Conflicts))
	}
	if err != nil {
		errs = append(errs, err)
	}

	j.log.Debug("Sweep pass done",
		"purged", cleanup.Purged, "archiveFailures", cleanup.ArchiveFailure,
		"expired", expiry.Expired, "conflicts", expiry.Conflicts)
	return errors.Join(errs...)
}

func (j *SweepJob) observe(task string, err error) {
	if err != nil {
		j.observeRun(task, "error")
		return
	}
	j.observeRun(task, "ok")
}

func (j *SweepJob) observeRun(task, outcome string) {
	if j.metrics == nil {
		return
	}
	j.metrics.Runs.WithLabelValues(task, outcome).Inc()
}

func (j *SweepJob) timer(task string) func() {
	if j.metrics == nil {
		return func() {}
	}
	t := prometheus.NewTimer(j.metrics.Duration.WithLabelValues(task))
	return func() { t.ObserveDuration() }
}

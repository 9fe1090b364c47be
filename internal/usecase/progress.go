package usecase

import (
	"sync"
	"time"

	"SweepLab/internal/domain/models"
	"SweepLab/pkg/logger"
)

// DefaultProgressStride is how many combinations pass between progress logs.
const DefaultProgressStride = 500

// ProgressCounter counts finished combinations for one sweep. It is shared by
// all workers of that sweep and is the only mutable state they share.
type ProgressCounter struct {
	mu      sync.Mutex
	done    uint64
	total   uint64
	stride  uint64
	started time.Time

	// reportMu orders log lines and reports; reported is the highest Done
	// already emitted, so a worker that loses the race drops its stale snapshot.
	reportMu sync.Mutex
	reported uint64

	log    *logger.Logger
	report func(models.ProgressSnapshot)
}

// NewProgressCounter builds a counter. report, if set, receives a snapshot at
// every stride (and at completion) from the worker that crossed it.
func NewProgressCounter(log *logger.Logger, stride uint64, report func(models.ProgressSnapshot)) *ProgressCounter {
	if stride == 0 {
		stride = DefaultProgressStride
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ProgressCounter{stride: stride, log: log, report: report}
}

// Reset starts a new sweep of total combinations.
func (p *ProgressCounter) Reset(total uint64) {
	p.reportMu.Lock()
	p.reported = 0
	p.reportMu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.done = 0
	p.total = total
	p.started = time.Now()
}

// Increment records one finished combination and returns the new count. The
// log line and report run after the counter lock is released and never go
// backwards.
func (p *ProgressCounter) Increment(worker int) uint64 {
	p.mu.Lock()
	p.done++
	done := p.done
	if done%p.stride != 0 && done != p.total {
		p.mu.Unlock()
		return done
	}
	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.reportMu.Lock()
	defer p.reportMu.Unlock()
	if snap.Done <= p.reported {
		return done
	}
	p.reported = snap.Done

	p.log.Info("sweep progress",
		logger.Uint64("iteration", snap.Done),
		logger.Float64("percent", snap.Percent),
		logger.Uint64("total", snap.Total),
		logger.Int("worker", worker),
		logger.Duration("elapsed_ms", snap.Elapsed),
		logger.Duration("expected_ms", snap.Expected),
	)
	if p.report != nil {
		p.report(snap)
	}
	return done
}

// Snapshot returns the current progress.
func (p *ProgressCounter) Snapshot() models.ProgressSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *ProgressCounter) snapshotLocked() models.ProgressSnapshot {
	snap := models.ProgressSnapshot{Done: p.done, Total: p.total}
	if p.started.IsZero() {
		return snap
	}
	snap.Elapsed = time.Since(p.started)
	if p.total > 0 {
		snap.Percent = float64(p.done) / float64(p.total) * 100
	}
	if p.done > 0 {
		snap.Expected = time.Duration(float64(snap.Elapsed) * float64(p.total) / float64(p.done))
	}
	return snap
}

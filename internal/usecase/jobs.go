package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"SweepLab/internal/domain/models"
	"SweepLab/pkg/logger"
)

// Runner executes one sweep. *SweepService satisfies it.
type Runner interface {
	Execute(ctx context.Context, runID string, req models.SweepRequest, progress *ProgressCounter) (*models.SweepReport, error)
}

type job struct {
	id       string
	status   models.JobStatus
	progress *ProgressCounter
	report   *models.SweepReport
	err      error
	created  time.Time
	finished time.Time
	cancel   context.CancelFunc
	subs     map[int]chan models.JobView
	nextSub  int
}

// JobRegistry tracks asynchronous sweeps by id.
type JobRegistry struct {
	mu        sync.Mutex
	jobs      map[string]*job
	runner    Runner
	stride    uint64
	retention time.Duration
	baseCtx   context.Context
	stop      context.CancelFunc
	wg        sync.WaitGroup
	log       *logger.Logger
}

// NewJobRegistry builds a registry. Finished jobs are forgotten after retention.
func NewJobRegistry(runner Runner, stride uint64, retention time.Duration, log *logger.Logger) *JobRegistry {
	if log == nil {
		log = logger.Nop()
	}
	if retention <= 0 {
		retention = time.Hour
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &JobRegistry{
		jobs:      make(map[string]*job),
		runner:    runner,
		stride:    stride,
		retention: retention,
		baseCtx:   ctx,
		stop:      cancel,
		log:       log,
	}
}

// Submit validates req and starts it in the background.
func (r *JobRegistry) Submit(ctx context.Context, req models.SweepRequest) (string, error) {
	if err := NormalizeRequest(ctx, &req); err != nil {
		return "", err
	}

	id := uuid.NewString()
	jctx, cancel := context.WithCancel(r.baseCtx)
	j := &job{
		id:      id,
		status:  models.JobQueued,
		created: time.Now(),
		cancel:  cancel,
		subs:    make(map[int]chan models.JobView),
	}
	j.progress = NewProgressCounter(r.log.With(logger.String("run_id", id)), r.stride, func(models.ProgressSnapshot) {
		r.broadcast(id)
	})

	r.mu.Lock()
	r.pruneLocked()
	r.jobs[id] = j
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(jctx, j, req)

	r.log.Info("sweep job submitted", logger.String("run_id", id))
	return id, nil
}

func (r *JobRegistry) run(ctx context.Context, j *job, req models.SweepRequest) {
	defer r.wg.Done()
	defer j.cancel()

	r.mu.Lock()
	j.status = models.JobRunning
	r.mu.Unlock()

	report, err := r.execute(ctx, j, req)

	r.mu.Lock()
	j.finished = time.Now()
	switch {
	case err == nil:
		j.status = models.JobSucceeded
		j.report = report
	case errors.Is(err, context.Canceled):
		j.status = models.JobCancelled
		j.err = err
	default:
		j.status = models.JobFailed
		j.err = err
	}
	view := viewOf(j)
	for k, ch := range j.subs {
		publish(ch, view)
		close(ch)
		delete(j.subs, k)
	}
	r.mu.Unlock()

	if err != nil {
		r.log.Error("sweep job ended", logger.String("run_id", j.id), logger.String("status", string(view.Status)), logger.Error(err))
		return
	}
	r.log.Info("sweep job ended", logger.String("run_id", j.id), logger.Int("results", view.Results))
}

// execute converts a runner panic into an error so the job still ends failed.
func (r *JobRegistry) execute(ctx context.Context, j *job, req models.SweepRequest) (report *models.SweepReport, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			report, err = nil, fmt.Errorf("sweep panicked: %v", rec)
		}
	}()
	return r.runner.Execute(ctx, j.id, req, j.progress)
}

// Get returns the current view of a job.
func (r *JobRegistry) Get(id string) (models.JobView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return models.JobView{}, models.ErrJobNotFound
	}
	return viewOf(j), nil
}

// Results returns the results of a succeeded job.
func (r *JobRegistry) Results(id string) ([]models.StrategyResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, models.ErrJobNotFound
	}
	switch j.status {
	case models.JobSucceeded:
		return j.report.Results, nil
	case models.JobFailed, models.JobCancelled:
		return nil, j.err
	default:
		return nil, models.ErrJobNotFinished
	}
}

// Cancel stops a running job. Cancelling a finished job is a no-op.
func (r *JobRegistry) Cancel(id string) error {
	r.mu.Lock()
	j, ok := r.jobs[id]
	r.mu.Unlock()
	if !ok {
		return models.ErrJobNotFound
	}
	j.cancel()
	return nil
}

// Subscribe streams job views at every progress stride.
func (r *JobRegistry) Subscribe(id string) (<-chan models.JobView, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, nil, models.ErrJobNotFound
	}

	ch := make(chan models.JobView, 8)
	ch <- viewOf(j)
	if j.status.Terminal() {
		close(ch)
		return ch, func() {}, nil
	}

	key := j.nextSub
	j.nextSub++
	j.subs[key] = ch
	unsubscribe := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if c, ok := j.subs[key]; ok {
			delete(j.subs, key)
			close(c)
		}
	}
	return ch, unsubscribe, nil
}

// Shutdown cancels all jobs and waits for them until ctx expires.
func (r *JobRegistry) Shutdown(ctx context.Context) error {
	r.stop()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *JobRegistry) broadcast(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return
	}
	view := viewOf(j)
	for _, ch := range j.subs {
		publish(ch, view)
	}
}

// publish drops the update when the subscriber is behind.
func publish(ch chan models.JobView, v models.JobView) {
	select {
	case ch <- v:
	default:
	}
}

func (r *JobRegistry) pruneLocked() {
	cutoff := time.Now().Add(-r.retention)
	for id, j := range r.jobs {
		if j.status.Terminal() && j.finished.Before(cutoff) {
			delete(r.jobs, id)
		}
	}
}

func viewOf(j *job) models.JobView {
	v := models.JobView{
		ID:        j.id,
		Status:    j.status,
		Progress:  j.progress.Snapshot(),
		CreatedAt: j.created,
	}
	if j.report != nil {
		v.Results = len(j.report.Results)
		v.Cached = j.report.Cached
	}
	if j.err != nil {
		v.Error = j.err.Error()
	}
	if !j.finished.IsZero() {
		f := j.finished
		v.FinishedAt = &f
	}
	return v
}

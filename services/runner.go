package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/risiti/risiti-backend/logger"
	"github.com/risiti/risiti-backend/store"
	"github.com/risiti/risiti-backend/types"
)

// JobProcessor is the runner's view of the processing engine; tests mock it.
type JobProcessor interface {
	Process(ctx context.Context, sub *types.Submission) types.JobResult
}

// Runner drains the submission queue. A run first heals jobs stuck in
// processing longer than the staleness threshold, then claims and processes
// queued submissions one at a time until the backlog is empty. Runs are
// single-flight: triggers arriving mid-run are coalesced into at most one
// follow-up run.
type Runner struct {
	log         *zap.SugaredLogger
	submissions store.SubmissionStore
	processor   JobProcessor

	staleThreshold time.Duration

	runMu   sync.Mutex
	trigger chan struct{}
}

// NewRunner creates a queue runner.
func NewRunner(submissions store.SubmissionStore, processor JobProcessor, staleThreshold time.Duration) *Runner {
	return &Runner{
		log:            logger.GetLogger().Named("runner"),
		submissions:    submissions,
		processor:      processor,
		staleThreshold: staleThreshold,
		trigger:        make(chan struct{}, 1),
	}
}

// Trigger requests a background run. It never blocks: if a run is already
// pending the request is coalesced into it.
func (r *Runner) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Start launches the background loop that services Trigger requests. It
// returns immediately; the loop exits when ctx is cancelled.
func (r *Runner) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.trigger:
				if _, err := r.RunOnce(ctx); err != nil {
					r.log.Errorw("Background queue run failed", "error", err)
				}
			}
		}
	}()
}

// RunOnce performs one complete run and returns its report. Individual job
// failures are contained and reported per job; only infrastructure errors
// (rescue or claim queries failing) abort the run.
func (r *Runner) RunOnce(ctx context.Context) (*types.RunnerReport, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	report := &types.RunnerReport{Details: []types.JobResult{}}

	rescueMsg := fmt.Sprintf("rescued: stuck in processing for over %s", r.staleThreshold)
	rescued, err := r.submissions.RescueStuck(ctx, r.staleThreshold, rescueMsg)
	if err != nil {
		return nil, fmt.Errorf("failed to rescue stuck submissions: %w", err)
	}
	report.RescuedCount = len(rescued)
	if len(rescued) > 0 {
		metricSubmissionsRescued.Add(float64(len(rescued)))
		r.log.Warnw("Rescued stuck submissions", "count", len(rescued), "ids", rescued)
	}

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		sub, err := r.submissions.ClaimOldestQueued(ctx)
		if err != nil {
			if errors.Is(err, store.ErrNoQueuedSubmissions) {
				break
			}
			return report, fmt.Errorf("failed to claim next submission: %w", err)
		}

		result := r.processor.Process(ctx, sub)
		report.ProcessedCount++
		report.Details = append(report.Details, result)
	}

	if depth, err := r.submissions.CountQueued(ctx); err == nil {
		metricQueueDepth.Set(float64(depth))
	}

	r.log.Infow("Queue run finished",
		"processed", report.ProcessedCount, "rescued", report.RescuedCount)
	return report, nil
}

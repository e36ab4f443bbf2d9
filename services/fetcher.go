package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/risiti/risiti-backend/errors"
	"github.com/risiti/risiti-backend/logger"
	"github.com/risiti/risiti-backend/pkg/traportal"
	"github.com/risiti/risiti-backend/store"
	"github.com/risiti/risiti-backend/types"
)

// Fetcher resolves url-type submissions against the receipt portal with
// bounded, fixed-delay retries. Retry progress is persisted on the submission
// so a process restart resumes where the previous run stopped.
type Fetcher struct {
	log         *zap.SugaredLogger
	portal      traportal.ClientInterface
	submissions store.SubmissionStore

	maxRetries int
	retryDelay time.Duration

	// sleep is swapped out in tests to avoid real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates a fetcher. maxRetries bounds retries beyond the first
// attempt; retryDelay is the fixed sleep between attempts.
func NewFetcher(portal traportal.ClientInterface, submissions store.SubmissionStore, maxRetries int, retryDelay time.Duration) *Fetcher {
	return &Fetcher{
		log:         logger.GetLogger().Named("fetcher"),
		portal:      portal,
		submissions: submissions,
		maxRetries:  maxRetries,
		retryDelay:  retryDelay,
		sleep:       sleepCtx,
	}
}

// Fetch fetches and cleans the receipt content for a url-type submission.
//
// Return contract: (content, true, nil) on success. (_, false, nil) means the
// fetch failed terminally and the failure has already been recorded on the
// submission; the caller must stop without reporting again. A non-nil error
// is an unexpected store failure, left to the caller's catch-all.
func (f *Fetcher) Fetch(ctx context.Context, sub *types.Submission) (string, bool, error) {
	timeToken, err := traportal.ExtractTimeToken(sub.InputRef)
	if err != nil {
		// A URL without the time token can never verify; fail without
		// burning a single retry.
		f.log.Warnw("Receipt URL missing time token", "submissionId", sub.ID, "url", sub.InputRef)
		msg := fmt.Sprintf("invalid receipt URL: %v", err)
		if serr := f.submissions.UpdateStatus(ctx, sub.ID, types.SubmissionStatusFailed, &msg); serr != nil {
			return "", false, serr
		}
		return "", false, nil
	}

	for {
		content, ferr := f.portal.FetchReceipt(ctx, sub.InputRef, timeToken)
		if ferr == nil {
			f.log.Infow("Portal fetch succeeded",
				"submissionId", sub.ID, "retryCount", sub.RetryCount)
			return content, true, nil
		}

		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}

		newCount, serr := f.submissions.IncrementRetryCount(ctx, sub.ID)
		if serr != nil {
			return "", false, serr
		}
		sub.RetryCount = newCount
		metricFetchRetries.Inc()

		werr := apperrors.TransientFetch(ferr, fmt.Sprintf("attempt %d of %d", newCount, f.maxRetries+1))
		f.log.Warnw("Portal fetch attempt failed",
			"submissionId", sub.ID,
			"retryCount", newCount,
			"maxRetries", f.maxRetries,
			"error", werr,
		)

		if newCount > f.maxRetries {
			msg := fmt.Sprintf("portal fetch failed after %d attempts: %v", newCount, werr)
			if serr := f.submissions.UpdateStatus(ctx, sub.ID, types.SubmissionStatusFailed, &msg); serr != nil {
				return "", false, serr
			}
			return "", false, nil
		}

		if err := f.sleep(ctx, f.retryDelay); err != nil {
			return "", false, err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

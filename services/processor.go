package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/risiti/risiti-backend/logger"
	"github.com/risiti/risiti-backend/store"
	"github.com/risiti/risiti-backend/types"
)

// ContentFetcher is the engine's view of Fetch-with-Retry; tests mock it.
type ContentFetcher interface {
	Fetch(ctx context.Context, sub *types.Submission) (string, bool, error)
}

// Processor drives a single submission through fetch, extraction,
// deduplication, persistence and notification, handling every failure path
// so no error ever escapes to abort the runner's drain loop.
type Processor struct {
	log         *zap.SugaredLogger
	configStore store.ConfigStore
	submissions store.SubmissionStore
	receipts    store.ReceiptStore
	fetcher     ContentFetcher
	extractor   Extractor
	notifier    EventNotifier
}

// NewProcessor creates a processing engine.
func NewProcessor(
	configStore store.ConfigStore,
	submissions store.SubmissionStore,
	receipts store.ReceiptStore,
	fetcher ContentFetcher,
	extractor Extractor,
	notifier EventNotifier,
) *Processor {
	return &Processor{
		log:         logger.GetLogger().Named("processor"),
		configStore: configStore,
		submissions: submissions,
		receipts:    receipts,
		fetcher:     fetcher,
		extractor:   extractor,
		notifier:    notifier,
	}
}

// Process runs the per-submission state machine for a submission already
// claimed into processing. The returned result is the runner's report line;
// Process itself never returns an error.
func (p *Processor) Process(ctx context.Context, sub *types.Submission) types.JobResult {
	result, err := p.process(ctx, sub)
	if err != nil {
		return p.failSubmission(ctx, sub.ID, err)
	}
	return result
}

func (p *Processor) process(ctx context.Context, sub *types.Submission) (types.JobResult, error) {
	cfg, err := p.configStore.Get(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.JobResult{}, fmt.Errorf("instance is not configured")
		}
		return types.JobResult{}, err
	}
	if !cfg.IsConfigured() {
		return types.JobResult{}, fmt.Errorf("instance is missing extraction credentials")
	}

	content, isImage, ok, err := p.resolveContent(ctx, sub)
	if err != nil {
		return types.JobResult{}, err
	}
	if !ok {
		// Fetch-with-retry exhausted its attempts and already recorded the
		// failure; report it without writing the status a second time.
		return p.reportRecordedFailure(ctx, sub.ID), nil
	}

	extracted, err := p.extractor.Extract(ctx, content, isImage, cfg)
	if err != nil {
		return types.JobResult{}, err
	}

	if extracted.HasVerificationCode() {
		original, err := p.receipts.FindByVerificationCode(ctx, extracted.VerificationCode)
		if err == nil {
			return p.markDuplicate(ctx, sub, extracted.VerificationCode, original.SubmissionID)
		}
		if !errors.Is(err, store.ErrNotFound) {
			return types.JobResult{}, err
		}
	}

	receipt := p.buildReceipt(sub, extracted)
	if err := p.receipts.Create(ctx, receipt); err != nil {
		if errors.Is(err, store.ErrAlreadyProcessed) {
			// Another worker already wrote this submission's receipt (only
			// possible when a rescue re-queued a live job); report the
			// settled outcome without touching it.
			return p.reportSettled(ctx, sub.ID), nil
		}
		if errors.Is(err, store.ErrConflict) {
			// Lost a race on the verification-code uniqueness constraint;
			// resolve to the duplicate outcome, same as the pre-check.
			originalID := ""
			if original, lookupErr := p.receipts.FindByVerificationCode(ctx, extracted.VerificationCode); lookupErr == nil {
				originalID = original.SubmissionID
			}
			return p.markDuplicate(ctx, sub, extracted.VerificationCode, originalID)
		}
		return types.JobResult{}, err
	}

	stats, err := p.receipts.GetStats(ctx)
	if err != nil {
		p.log.Warnw("Failed to recompute dashboard stats", "submissionId", sub.ID, "error", err)
		stats = nil
	}

	p.notifier.Notify(ctx, types.NewEvent(types.EventTypeSubmissionProcessed, sub.ID, types.ProcessedPayload{
		SubmissionID: sub.ID,
		Status:       string(types.SubmissionStatusCompleted),
		ProcessedAt:  receipt.ProcessedAt,
		Data:         extracted,
		Stats:        stats,
	}))
	metricSubmissionsFinished.WithLabelValues(string(types.SubmissionStatusCompleted)).Inc()

	p.log.Infow("Submission completed",
		"submissionId", sub.ID, "receiptId", receipt.ID, "retryCount", sub.RetryCount)
	return types.JobResult{ID: sub.ID, FinalStatus: types.SubmissionStatusCompleted}, nil
}

func (p *Processor) resolveContent(ctx context.Context, sub *types.Submission) (content string, isImage bool, ok bool, err error) {
	switch sub.InputType {
	case types.InputTypeURL:
		content, ok, err = p.fetcher.Fetch(ctx, sub)
		return content, false, ok, err
	case types.InputTypePhoto:
		return sub.InputRef, true, true, nil
	default:
		return "", false, false, fmt.Errorf("unknown input type %q", sub.InputType)
	}
}

func (p *Processor) buildReceipt(sub *types.Submission, extracted *types.ExtractionResult) *types.Receipt {
	var code *string
	if extracted.HasVerificationCode() {
		c := extracted.VerificationCode
		code = &c
	}

	// The extractor's refined description is considered more authoritative
	// than the device user's free text.
	description := sub.Description
	if extracted.ExtractedDescription != "" {
		description = extracted.ExtractedDescription
	}

	var receiptDate *time.Time
	if extracted.ReceiptDate != "" {
		if t, err := time.Parse("2006-01-02", extracted.ReceiptDate); err == nil {
			receiptDate = &t
		} else {
			p.log.Warnw("Unparseable receipt date, leaving unset",
				"submissionId", sub.ID, "date", extracted.ReceiptDate)
		}
	}

	return &types.Receipt{
		ID:               uuid.New().String(),
		SubmissionID:     sub.ID,
		DeviceID:         sub.DeviceID,
		VendorName:       extracted.VendorName,
		VendorTIN:        extracted.VendorTIN,
		VendorPhone:      extracted.VendorPhone,
		VRN:              extracted.VRN,
		ReceiptNumber:    extracted.ReceiptNumber,
		UIN:              extracted.UIN,
		VerificationCode: code,
		ReceiptDate:      receiptDate,
		TotalAmount:      extracted.TotalAmount,
		VATAmount:        extracted.VATAmount,
		CustomerName:     extracted.CustomerName,
		CustomerIDType:   extracted.CustomerIDType,
		CustomerID:       extracted.CustomerID,
		Description:      description,
		TaxAnalysis:      extracted.TaxAnalysis,
		RawPayload:       extracted.Raw,
	}
}

func (p *Processor) markDuplicate(ctx context.Context, sub *types.Submission, code, originalID string) (types.JobResult, error) {
	msg := fmt.Sprintf("duplicate receipt: verification code already recorded by submission %s", originalID)
	if err := p.submissions.UpdateStatus(ctx, sub.ID, types.SubmissionStatusDuplicate, &msg); err != nil {
		return types.JobResult{}, err
	}

	p.notifier.Notify(ctx, types.NewEvent(types.EventTypeSubmissionDuplicate, sub.ID, types.DuplicatePayload{
		SubmissionID:         sub.ID,
		Status:               string(types.SubmissionStatusDuplicate),
		VerificationCode:     code,
		OriginalSubmissionID: originalID,
	}))
	metricSubmissionsFinished.WithLabelValues(string(types.SubmissionStatusDuplicate)).Inc()

	p.log.Infow("Submission resolved as duplicate",
		"submissionId", sub.ID, "originalSubmissionId", originalID)
	return types.JobResult{ID: sub.ID, FinalStatus: types.SubmissionStatusDuplicate, ErrorMessage: msg}, nil
}

// failSubmission is the catch-all for step 8: reload the submission fresh
// (stale in-memory state must never be written back), record the failure,
// and emit the failed event. It swallows its own errors so the runner's
// drain loop always continues.
func (p *Processor) failSubmission(ctx context.Context, submissionID string, cause error) types.JobResult {
	p.log.Errorw("Submission processing failed", "submissionId", submissionID, "error", cause)

	msg := cause.Error()
	if fresh, err := p.submissions.GetByID(ctx, submissionID); err == nil && fresh.Status.IsTerminal() {
		// Something already settled this submission (e.g. fetch exhaustion
		// recorded the failure itself); don't overwrite the stored outcome.
		if fresh.ErrorMessage != nil {
			msg = *fresh.ErrorMessage
		}
	} else if err := p.submissions.UpdateStatus(ctx, submissionID, types.SubmissionStatusFailed, &msg); err != nil {
		p.log.Errorw("Failed to record submission failure",
			"submissionId", submissionID, "error", err)
	}

	p.notifier.Notify(ctx, types.NewEvent(types.EventTypeSubmissionFailed, submissionID, types.FailedPayload{
		SubmissionID: submissionID,
		Status:       string(types.SubmissionStatusFailed),
		ErrorMessage: msg,
	}))
	metricSubmissionsFinished.WithLabelValues(string(types.SubmissionStatusFailed)).Inc()

	return types.JobResult{ID: submissionID, FinalStatus: types.SubmissionStatusFailed, ErrorMessage: msg}
}

// reportSettled builds the report line for a submission another worker
// finished first. The first writer already recorded the status and emitted
// the event, so neither happens again here.
func (p *Processor) reportSettled(ctx context.Context, submissionID string) types.JobResult {
	result := types.JobResult{ID: submissionID, FinalStatus: types.SubmissionStatusCompleted}
	if fresh, err := p.submissions.GetByID(ctx, submissionID); err == nil {
		result.FinalStatus = fresh.Status
		if fresh.ErrorMessage != nil {
			result.ErrorMessage = *fresh.ErrorMessage
		}
	}
	p.log.Warnw("Submission was already settled by another worker",
		"submissionId", submissionID, "status", result.FinalStatus)
	return result
}

// reportRecordedFailure builds the report line for a failure Fetch-with-Retry
// already persisted, emitting the failed event without touching the status.
func (p *Processor) reportRecordedFailure(ctx context.Context, submissionID string) types.JobResult {
	msg := "portal fetch failed"
	if fresh, err := p.submissions.GetByID(ctx, submissionID); err == nil && fresh.ErrorMessage != nil {
		msg = *fresh.ErrorMessage
	}

	p.notifier.Notify(ctx, types.NewEvent(types.EventTypeSubmissionFailed, submissionID, types.FailedPayload{
		SubmissionID: submissionID,
		Status:       string(types.SubmissionStatusFailed),
		ErrorMessage: msg,
	}))
	metricSubmissionsFinished.WithLabelValues(string(types.SubmissionStatusFailed)).Inc()

	return types.JobResult{ID: submissionID, FinalStatus: types.SubmissionStatusFailed, ErrorMessage: msg}
}

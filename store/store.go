// Package store defines the persistence contracts of the submission pipeline.
// PostgreSQL implementations live in store/postgres; tests substitute mocks.
package store

import (
	"context"
	"time"

	"github.com/risiti/risiti-backend/types"
)

// DeviceStore reads registered devices. Enrollment is an external admin
// action, so the pipeline only ever authenticates against existing rows.
type DeviceStore interface {
	GetByAPIKey(ctx context.Context, apiKey string) (*types.Device, error)
	GetByID(ctx context.Context, id string) (*types.Device, error)
}

// ConfigStore reads the admin-managed instance configuration. Get must hit
// the database every call: the admin may change configuration concurrently
// and the pipeline is specified to see a fresh snapshot per operation.
type ConfigStore interface {
	Get(ctx context.Context) (*types.InstanceConfig, error)
}

// SubmissionStore is the source of truth for submission state transitions.
type SubmissionStore interface {
	Create(ctx context.Context, sub *types.Submission) error
	GetByID(ctx context.Context, id string) (*types.Submission, error)

	// ClaimOldestQueued atomically selects the single oldest queued
	// submission, marks it processing and clears its error message, all in
	// one conditional update so two concurrent runner invocations can never
	// claim the same job. Returns ErrNoQueuedSubmissions when the backlog
	// is empty.
	ClaimOldestQueued(ctx context.Context) (*types.Submission, error)

	// RescueStuck reverts submissions stuck at processing for longer than
	// olderThan back to queued, recording message as their error message.
	// Committed as one batch; returns the rescued IDs.
	RescueStuck(ctx context.Context, olderThan time.Duration, message string) ([]string, error)

	// UpdateStatus sets the submission's status and error message
	// (nil clears it).
	UpdateStatus(ctx context.Context, id string, status types.SubmissionStatus, errorMessage *string) error

	// IncrementRetryCount persists one more retry attempt and returns the
	// new counter, so retry progress survives a process restart.
	IncrementRetryCount(ctx context.Context, id string) (int, error)

	CountQueued(ctx context.Context) (int64, error)
}

// ReceiptStore persists extracted receipts and serves dedup lookups.
type ReceiptStore interface {
	// Create inserts the receipt and flips its submission to completed in
	// the same transaction; the two writes are never observed apart.
	Create(ctx context.Context, receipt *types.Receipt) error

	// FindByVerificationCode returns the receipt holding the given non-empty
	// code, or ErrNotFound.
	FindByVerificationCode(ctx context.Context, code string) (*types.Receipt, error)

	// GetStats recomputes the aggregate dashboard statistics.
	GetStats(ctx context.Context) (*types.DashboardStats, error)
}

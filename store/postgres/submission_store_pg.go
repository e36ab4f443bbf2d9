package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/risiti/risiti-backend/logger"
	"github.com/risiti/risiti-backend/store"
	"github.com/risiti/risiti-backend/types"
)

// Ensure pgSubmissionStore implements store.SubmissionStore.
var _ store.SubmissionStore = (*pgSubmissionStore)(nil)

type pgSubmissionStore struct {
	db PGXQuerier
}

// NewPgSubmissionStore creates a new PostgreSQL submission store.
func NewPgSubmissionStore(db PGXQuerier) store.SubmissionStore {
	return &pgSubmissionStore{db: db}
}

const submissionColumns = `id, device_id, received_at, status, input_type, input_ref,
       description, location, error_message, retry_count`

func scanSubmission(row pgx.Row) (*types.Submission, error) {
	var sub types.Submission
	err := row.Scan(
		&sub.ID,
		&sub.DeviceID,
		&sub.ReceivedAt,
		&sub.Status,
		&sub.InputType,
		&sub.InputRef,
		&sub.Description,
		&sub.Location,
		&sub.ErrorMessage,
		&sub.RetryCount,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Create inserts a new submission. The caller supplies the ID; received_at
// and retry_count come from column defaults and are read back.
func (s *pgSubmissionStore) Create(ctx context.Context, sub *types.Submission) error {
	log := logger.GetLogger()

	err := s.db.QueryRow(ctx, `
        INSERT INTO submissions (id, device_id, status, input_type, input_ref, description, location)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING received_at, retry_count`,
		sub.ID,
		sub.DeviceID,
		string(sub.Status),
		string(sub.InputType),
		sub.InputRef,
		sub.Description,
		sub.Location,
	).Scan(&sub.ReceivedAt, &sub.RetryCount)
	if err != nil {
		log.Errorw("Failed to create submission", "deviceId", sub.DeviceID, "error", err)
		return fmt.Errorf("failed to insert submission: %w", err)
	}

	log.Infow("Created submission", "submissionId", sub.ID, "inputType", sub.InputType)
	return nil
}

func (s *pgSubmissionStore) GetByID(ctx context.Context, id string) (*types.Submission, error) {
	sub, err := scanSubmission(s.db.QueryRow(ctx, `
        SELECT `+submissionColumns+`
        FROM submissions
        WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get submission %s: %w", id, err)
	}
	return sub, nil
}

// ClaimOldestQueued flips the single oldest queued submission to processing
// in one atomic statement. FOR UPDATE SKIP LOCKED makes concurrent runner
// invocations claim disjoint rows instead of blocking or double-processing.
func (s *pgSubmissionStore) ClaimOldestQueued(ctx context.Context) (*types.Submission, error) {
	sub, err := scanSubmission(s.db.QueryRow(ctx, `
        UPDATE submissions
        SET status = $1, error_message = NULL
        WHERE id = (
            SELECT id FROM submissions
            WHERE status = $2
            ORDER BY received_at ASC
            LIMIT 1
            FOR UPDATE SKIP LOCKED
        )
        RETURNING `+submissionColumns,
		string(types.SubmissionStatusProcessing),
		string(types.SubmissionStatusQueued),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNoQueuedSubmissions
		}
		return nil, fmt.Errorf("failed to claim queued submission: %w", err)
	}
	return sub, nil
}

// RescueStuck reverts stale processing submissions to queued in one batch.
// Staleness is judged by intake time, matching the healing pass contract.
func (s *pgSubmissionStore) RescueStuck(ctx context.Context, olderThan time.Duration, message string) ([]string, error) {
	log := logger.GetLogger()

	cutoff := time.Now().UTC().Add(-olderThan)
	rows, err := s.db.Query(ctx, `
        UPDATE submissions
        SET status = $1, error_message = $2
        WHERE status = $3 AND received_at < $4
        RETURNING id`,
		string(types.SubmissionStatusQueued),
		message,
		string(types.SubmissionStatusProcessing),
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to rescue stuck submissions: %w", err)
	}
	defer rows.Close()

	var rescued []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan rescued id: %w", err)
		}
		rescued = append(rescued, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rescued rows: %w", err)
	}

	if len(rescued) > 0 {
		log.Warnw("Rescued stuck submissions", "count", len(rescued), "ids", rescued)
	}
	return rescued, nil
}

func (s *pgSubmissionStore) UpdateStatus(ctx context.Context, id string, status types.SubmissionStatus, errorMessage *string) error {
	tag, err := s.db.Exec(ctx, `
        UPDATE submissions
        SET status = $1, error_message = $2
        WHERE id = $3`,
		string(status), errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to update submission %s status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *pgSubmissionStore) IncrementRetryCount(ctx context.Context, id string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
        UPDATE submissions
        SET retry_count = retry_count + 1
        WHERE id = $1
        RETURNING retry_count`, id).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, store.ErrNotFound
		}
		return 0, fmt.Errorf("failed to increment retry count for %s: %w", id, err)
	}
	return count, nil
}

func (s *pgSubmissionStore) CountQueued(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx, `
        SELECT COUNT(*) FROM submissions WHERE status = $1`,
		string(types.SubmissionStatusQueued)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count queued submissions: %w", err)
	}
	return count, nil
}

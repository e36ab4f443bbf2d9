package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/risiti/risiti-backend/logger"
	"github.com/risiti/risiti-backend/store"
	"github.com/risiti/risiti-backend/types"
)

// Ensure pgReceiptStore implements store.ReceiptStore.
var _ store.ReceiptStore = (*pgReceiptStore)(nil)

type pgReceiptStore struct {
	db PGXQuerier
}

// NewPgReceiptStore creates a new PostgreSQL receipt store.
func NewPgReceiptStore(db PGXQuerier) store.ReceiptStore {
	return &pgReceiptStore{db: db}
}

// Create inserts the receipt and marks its submission completed inside one
// transaction. A verification-code uniqueness violation surfaces as
// store.ErrConflict so the engine can fall back to the duplicate path; a
// submission_id violation surfaces as store.ErrAlreadyProcessed so a
// double-claimed submission keeps its first outcome.
func (s *pgReceiptStore) Create(ctx context.Context, receipt *types.Receipt) error {
	log := logger.GetLogger()

	err := WithTx(ctx, s.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
            INSERT INTO receipts (
                id, submission_id, device_id,
                vendor_name, vendor_tin, vendor_phone, vrn, receipt_number, uin,
                verification_code, receipt_date, total_amount, vat_amount,
                customer_name, customer_id_type, customer_id,
                description, tax_analysis, raw_payload
            )
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
            RETURNING processed_at`,
			receipt.ID,
			receipt.SubmissionID,
			receipt.DeviceID,
			receipt.VendorName,
			receipt.VendorTIN,
			receipt.VendorPhone,
			receipt.VRN,
			receipt.ReceiptNumber,
			receipt.UIN,
			receipt.VerificationCode,
			receipt.ReceiptDate,
			receipt.TotalAmount,
			receipt.VATAmount,
			receipt.CustomerName,
			receipt.CustomerIDType,
			receipt.CustomerID,
			receipt.Description,
			receipt.TaxAnalysis,
			receipt.RawPayload,
		).Scan(&receipt.ProcessedAt)
		if err != nil {
			return fmt.Errorf("failed to insert receipt: %w", err)
		}

		_, err = tx.Exec(ctx, `
            UPDATE submissions
            SET status = $1, error_message = NULL
            WHERE id = $2`,
			string(types.SubmissionStatusCompleted),
			receipt.SubmissionID,
		)
		if err != nil {
			return fmt.Errorf("failed to complete submission %s: %w", receipt.SubmissionID, err)
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 = unique_violation; which index tripped decides the outcome.
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case "idx_receipts_verification_code":
				log.Warnw("Verification code collision on receipt insert",
					"submissionId", receipt.SubmissionID)
				return store.ErrConflict
			case "receipts_submission_id_key":
				log.Warnw("Submission already has a receipt",
					"submissionId", receipt.SubmissionID)
				return store.ErrAlreadyProcessed
			}
		}
		log.Errorw("Failed to create receipt", "submissionId", receipt.SubmissionID, "error", err)
		return err
	}

	log.Infow("Created receipt", "receiptId", receipt.ID, "submissionId", receipt.SubmissionID)
	return nil
}

const receiptColumns = `id, submission_id, device_id,
       vendor_name, vendor_tin, vendor_phone, vrn, receipt_number, uin,
       verification_code, receipt_date, total_amount, vat_amount,
       customer_name, customer_id_type, customer_id,
       description, tax_analysis, raw_payload, processed_at`

func (s *pgReceiptStore) FindByVerificationCode(ctx context.Context, code string) (*types.Receipt, error) {
	var r types.Receipt
	err := s.db.QueryRow(ctx, `
        SELECT `+receiptColumns+`
        FROM receipts
        WHERE verification_code = $1`, code).Scan(
		&r.ID,
		&r.SubmissionID,
		&r.DeviceID,
		&r.VendorName,
		&r.VendorTIN,
		&r.VendorPhone,
		&r.VRN,
		&r.ReceiptNumber,
		&r.UIN,
		&r.VerificationCode,
		&r.ReceiptDate,
		&r.TotalAmount,
		&r.VATAmount,
		&r.CustomerName,
		&r.CustomerIDType,
		&r.CustomerID,
		&r.Description,
		&r.TaxAnalysis,
		&r.RawPayload,
		&r.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find receipt by verification code: %w", err)
	}
	return &r, nil
}

// GetStats recomputes the dashboard aggregates in a single round trip.
func (s *pgReceiptStore) GetStats(ctx context.Context) (*types.DashboardStats, error) {
	var stats types.DashboardStats
	err := s.db.QueryRow(ctx, `
        SELECT
            (SELECT COUNT(*) FROM submissions),
            (SELECT COUNT(*) FROM submissions WHERE status = 'queued'),
            (SELECT COUNT(*) FROM submissions WHERE status = 'processing'),
            (SELECT COUNT(*) FROM submissions WHERE status = 'completed'),
            (SELECT COUNT(*) FROM submissions WHERE status = 'duplicate'),
            (SELECT COUNT(*) FROM submissions WHERE status = 'failed'),
            COALESCE((SELECT SUM(total_amount) FROM receipts), 0),
            COALESCE((SELECT SUM(vat_amount) FROM receipts), 0)`,
	).Scan(
		&stats.TotalSubmissions,
		&stats.Queued,
		&stats.Processing,
		&stats.Completed,
		&stats.Duplicates,
		&stats.Failed,
		&stats.TotalAmount,
		&stats.TotalVAT,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute dashboard stats: %w", err)
	}
	return &stats, nil
}

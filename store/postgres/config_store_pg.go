package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/risiti/risiti-backend/store"
	"github.com/risiti/risiti-backend/types"
)

// Ensure pgConfigStore implements store.ConfigStore.
var _ store.ConfigStore = (*pgConfigStore)(nil)

type pgConfigStore struct {
	db PGXQuerier
}

// NewPgConfigStore creates a new PostgreSQL instance-config store.
func NewPgConfigStore(db PGXQuerier) store.ConfigStore {
	return &pgConfigStore{db: db}
}

// Get reads the single instance configuration row. Deliberately uncached:
// the admin may change sinks or credentials at any time and the pipeline is
// specified to observe a fresh snapshot per operation.
func (s *pgConfigStore) Get(ctx context.Context) (*types.InstanceConfig, error) {
	var c types.InstanceConfig
	err := s.db.QueryRow(ctx, `
        SELECT id, admin_email, llm_provider, llm_api_key,
               webhook_url, s3_bucket, s3_region, s3_access_key_id, s3_secret_access_key,
               spreadsheet_path
        FROM instance_config
        LIMIT 1`).Scan(
		&c.ID,
		&c.AdminEmail,
		&c.LLMProvider,
		&c.LLMAPIKey,
		&c.WebhookURL,
		&c.S3Bucket,
		&c.S3Region,
		&c.S3AccessKeyID,
		&c.S3SecretAccessKey,
		&c.SpreadsheetPath,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get instance config: %w", err)
	}
	return &c, nil
}

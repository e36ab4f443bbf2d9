package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/risiti/risiti-backend/store"
	"github.com/risiti/risiti-backend/types"
)

// Ensure pgDeviceStore implements store.DeviceStore.
var _ store.DeviceStore = (*pgDeviceStore)(nil)

type pgDeviceStore struct {
	db PGXQuerier
}

// NewPgDeviceStore creates a new PostgreSQL device store.
func NewPgDeviceStore(db PGXQuerier) store.DeviceStore {
	return &pgDeviceStore{db: db}
}

func (s *pgDeviceStore) GetByAPIKey(ctx context.Context, apiKey string) (*types.Device, error) {
	var d types.Device
	err := s.db.QueryRow(ctx, `
        SELECT id, name, api_key FROM devices WHERE api_key = $1`, apiKey).
		Scan(&d.ID, &d.Name, &d.APIKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get device by api key: %w", err)
	}
	return &d, nil
}

func (s *pgDeviceStore) GetByID(ctx context.Context, id string) (*types.Device, error) {
	var d types.Device
	err := s.db.QueryRow(ctx, `
        SELECT id, name, api_key FROM devices WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &d.APIKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get device %s: %w", id, err)
	}
	return &d, nil
}

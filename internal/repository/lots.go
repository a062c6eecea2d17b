package repository

import (
	"context"
	"database/sql"

	"parkly/internal/database"
	"parkly/internal/models"
)

type LotRepository struct {
	db *database.DB
}

func NewLotRepository(db *database.DB) *LotRepository {
	return &LotRepository{db: db}
}

func (r *LotRepository) GetByID(ctx context.Context, id int64) (*models.ParkingLot, error) {
	lot := &models.ParkingLot{}
	query := `
		SELECT id, owner_id, name, address, whitelist_only, created_at
		FROM parking_lots
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&lot.ID,
		&lot.OwnerID,
		&lot.Name,
		&lot.Address,
		&lot.WhitelistOnly,
		&lot.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return lot, err
}

// Credentials returns the lot owner's gateway secrets, or nil when the lot
// has never been configured for bank payments.
func (r *LotRepository) Credentials(ctx context.Context, lotID int64) (*models.LotCredentials, error) {
	creds := &models.LotCredentials{}
	query := `
		SELECT lot_id, client_key, api_key, checksum_key
		FROM lot_credentials
		WHERE lot_id = $1`

	err := r.db.QueryRowContext(ctx, query, lotID).Scan(
		&creds.LotID,
		&creds.ClientKey,
		&creds.APIKey,
		&creds.ChecksumKey,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return creds, err
}

// IsWhitelisted checks lot access membership. Only consulted for lots with
// whitelist mode enabled.
func (r *LotRepository) IsWhitelisted(ctx context.Context, lotID, clientID int64) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM whitelist_entries
			WHERE lot_id = $1 AND client_id = $2
		)`

	err := r.db.QueryRowContext(ctx, query, lotID, clientID).Scan(&exists)
	return exists, err
}

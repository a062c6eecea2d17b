package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createParkingLotsTable,
		createLotCredentialsTable,
		createVehiclesTable,
		createWhitelistTable,
		createFeeSchedulesTable,
		createSessionsTable,
		createSessionsOpenIndex,
		createSessionsTransactionIndex,
		createGuestSessionsTable,
		createGuestSessionsOpenIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createParkingLotsTable = `
CREATE TABLE IF NOT EXISTS parking_lots (
    id BIGSERIAL PRIMARY KEY,
    owner_id BIGINT NOT NULL,
    name VARCHAR(255) NOT NULL,
    address TEXT NOT NULL DEFAULT '',
    whitelist_only BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createLotCredentialsTable = `
CREATE TABLE IF NOT EXISTS lot_credentials (
    lot_id BIGINT PRIMARY KEY REFERENCES parking_lots(id),
    client_key VARCHAR(255) NOT NULL,
    api_key VARCHAR(255) NOT NULL,
    checksum_key VARCHAR(255) NOT NULL
);`

const createVehiclesTable = `
CREATE TABLE IF NOT EXISTS vehicles (
    id BIGSERIAL PRIMARY KEY,
    owner_id BIGINT NOT NULL,
    current_holder_id BIGINT,
    plate VARCHAR(32) UNIQUE NOT NULL,
    vehicle_type VARCHAR(20) NOT NULL DEFAULT 'Car',
    shared BOOLEAN NOT NULL DEFAULT FALSE
);`

const createWhitelistTable = `
CREATE TABLE IF NOT EXISTS whitelist_entries (
    lot_id BIGINT NOT NULL REFERENCES parking_lots(id),
    client_id BIGINT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    PRIMARY KEY (lot_id, client_id)
);`

const createFeeSchedulesTable = `
CREATE TABLE IF NOT EXISTS parking_fee_schedules (
    id BIGSERIAL PRIMARY KEY,
    lot_id BIGINT NOT NULL REFERENCES parking_lots(id),
    vehicle_type VARCHAR(20) NOT NULL,
    weekdays INTEGER NOT NULL,
    start_minute INTEGER NOT NULL DEFAULT 0,
    end_minute INTEGER NOT NULL DEFAULT 1439,
    initial_fee BIGINT NOT NULL DEFAULT 0,
    additional_fee BIGINT NOT NULL DEFAULT 0,
    block_minutes INTEGER NOT NULL DEFAULT 0,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createSessionsTable = `
CREATE TABLE IF NOT EXISTS parking_sessions (
    id BIGSERIAL PRIMARY KEY,
    lot_id BIGINT NOT NULL REFERENCES parking_lots(id),
    plate VARCHAR(32) NOT NULL,
    vehicle_id BIGINT,
    driver_id BIGINT,
    check_in_staff_id BIGINT NOT NULL,
    check_out_staff_id BIGINT,
    vehicle_type VARCHAR(20) NOT NULL,
    schedule_id BIGINT,
    entry_time TIMESTAMP NOT NULL,
    check_out_time TIMESTAMP,
    exit_time TIMESTAMP,
    cost BIGINT NOT NULL DEFAULT 0,
    payment_method VARCHAR(10) NOT NULL DEFAULT '',
    payment_status VARCHAR(10) NOT NULL DEFAULT 'NotPaid',
    transaction_id BIGINT,
    payment_information TEXT,
    transaction_count INTEGER NOT NULL DEFAULT 0,
    status VARCHAR(15) NOT NULL DEFAULT 'Parking',
    entry_front_url TEXT NOT NULL DEFAULT '',
    entry_back_url TEXT NOT NULL DEFAULT '',
    exit_front_url TEXT NOT NULL DEFAULT '',
    exit_back_url TEXT NOT NULL DEFAULT '',
    version BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

// One open session per (plate, lot). The engine checks before inserting but
// the index is what actually holds under concurrent check-ins.
const createSessionsOpenIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS parking_sessions_open_plate_lot
ON parking_sessions (plate, lot_id)
WHERE status = 'Parking';`

const createSessionsTransactionIndex = `
CREATE INDEX IF NOT EXISTS parking_sessions_transaction_id
ON parking_sessions (transaction_id)
WHERE transaction_id IS NOT NULL;`

const createGuestSessionsTable = `
CREATE TABLE IF NOT EXISTS guest_parking_sessions (
    id BIGSERIAL PRIMARY KEY,
    lot_id BIGINT NOT NULL REFERENCES parking_lots(id),
    plate VARCHAR(32) NOT NULL,
    check_in_staff_id BIGINT NOT NULL,
    check_out_staff_id BIGINT,
    vehicle_type VARCHAR(20) NOT NULL,
    schedule_id BIGINT,
    entry_time TIMESTAMP NOT NULL,
    exit_time TIMESTAMP,
    cost BIGINT NOT NULL DEFAULT 0,
    status VARCHAR(15) NOT NULL DEFAULT 'Parking',
    entry_front_url TEXT NOT NULL DEFAULT '',
    entry_back_url TEXT NOT NULL DEFAULT '',
    exit_front_url TEXT NOT NULL DEFAULT '',
    exit_back_url TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createGuestSessionsOpenIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS guest_parking_sessions_open_plate_lot
ON guest_parking_sessions (plate, lot_id)
WHERE status = 'Parking';`

package power

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Configuration keys in the power_config table. The credentials are written
// by the HomeTracker UI; the worker only reads them. The device GID is
// written by the worker after auto-discovery.
const (
	configKeyEmail     = "emporia_email"
	configKeyPassword  = "emporia_password"
	configKeyDeviceGID = "device_gid"
)

// SQLiteRepository is the persistence gateway for normalized readings,
// the learning-status counter and the small key/value configuration.
//
// Every method is a single statement committed on its own; a call either
// fully commits or has no effect.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on an open SQLite connection.
//
// Parameters:
//   - db: Open SQLite connection used for all statements
//
// Returns:
//   - *SQLiteRepository: Repository ready for use
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Credentials reads the Emporia account credentials from power_config.
//
// Missing rows return empty strings with a nil error. A missing table
// returns ErrSchemaMissing: the worker treats both as "not configured yet"
// and keeps waiting.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//
// Returns:
//   - email: Account email, empty if unconfigured
//   - password: Account password, empty if unconfigured
//   - error: ErrSchemaMissing before first migration, otherwise a storage fault
func (r *SQLiteRepository) Credentials(ctx context.Context) (email, password string, err error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT key, value FROM power_config WHERE key IN (?, ?)",
		configKeyEmail, configKeyPassword,
	)
	if err != nil {
		return "", "", mapSchemaError("querying credentials", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return "", "", fmt.Errorf("scanning credentials: %w", err)
		}
		switch key {
		case configKeyEmail:
			email = value
		case configKeyPassword:
			password = value
		}
	}
	if err := rows.Err(); err != nil {
		return "", "", fmt.Errorf("iterating credentials: %w", err)
	}

	return email, password, nil
}

// DeviceGID reads the configured device identifier from power_config.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//
// Returns:
//   - string: Device GID, empty if not yet chosen
//   - error: ErrSchemaMissing before first migration, otherwise a storage fault
func (r *SQLiteRepository) DeviceGID(ctx context.Context) (string, error) {
	var gid string
	err := r.db.QueryRowContext(ctx,
		"SELECT value FROM power_config WHERE key = ?", configKeyDeviceGID,
	).Scan(&gid)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", mapSchemaError("querying device gid", err)
	}
	return gid, nil
}

// SaveDeviceGID persists the selected device identifier.
// The upsert is idempotent; updated_at is refreshed on every write.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - gid: Device identifier to persist
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (r *SQLiteRepository) SaveDeviceGID(ctx context.Context, gid string) error {
	if gid == "" {
		return fmt.Errorf("device gid is required")
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO power_config (key, value, updated_at) VALUES (?, ?, datetime('now'))",
		configKeyDeviceGID, gid,
	)
	if err != nil {
		return fmt.Errorf("saving device gid: %w", err)
	}
	return nil
}

// StoreReading appends a normalized reading to power_readings_raw.
// The circuits map is serialized as a compact JSON object; values are
// stored unrounded (rounding happens only at the emit boundary).
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - reading: Normalized reading to persist
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (r *SQLiteRepository) StoreReading(ctx context.Context, reading Reading) error {
	circuits := reading.Circuits
	if circuits == nil {
		circuits = map[string]float64{}
	}
	circuitsJSON, err := json.Marshal(circuits)
	if err != nil {
		return fmt.Errorf("marshalling circuits: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO power_readings_raw (ts, total, phase_a, phase_b, circuits) VALUES (?, ?, ?, ?, ?)",
		reading.TS,
		reading.Total,
		reading.PhaseA,
		reading.PhaseB,
		string(circuitsJSON),
	)
	if err != nil {
		return mapSchemaError("inserting reading", err)
	}
	return nil
}

// BumpLearningStatus records one stored reading against the singleton
// learning-status row: first_reading_ts is set only if currently unset,
// total_readings increments by exactly 1, last_updated is refreshed.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - ts: Timestamp of the reading being recorded
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (r *SQLiteRepository) BumpLearningStatus(ctx context.Context, ts int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE power_learning_status SET
			first_reading_ts = COALESCE(first_reading_ts, ?),
			total_readings = total_readings + 1,
			last_updated = datetime('now')
		WHERE id = 1`,
		ts,
	)
	if err != nil {
		return mapSchemaError("updating learning status", err)
	}
	return nil
}

// LearningStatus reads the singleton learning-status row.
// Primarily for diagnostics and tests.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//
// Returns:
//   - LearningStatus: Current counters
//   - error: ErrSchemaMissing before first migration, otherwise a storage fault
func (r *SQLiteRepository) LearningStatus(ctx context.Context) (LearningStatus, error) {
	var status LearningStatus
	err := r.db.QueryRowContext(ctx,
		"SELECT first_reading_ts, total_readings, last_updated FROM power_learning_status WHERE id = 1",
	).Scan(&status.FirstReadingTS, &status.TotalReadings, &status.LastUpdated)
	if err != nil {
		return LearningStatus{}, mapSchemaError("querying learning status", err)
	}
	return status, nil
}

// mapSchemaError distinguishes a missing table from a genuine storage fault.
// SQLite reports absent tables as a generic error with a recognisable
// message; there is no dedicated error code to match on.
func mapSchemaError(op string, err error) error {
	if strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("%s: %w", op, ErrSchemaMissing)
	}
	return fmt.Errorf("%s: %w", op, err)
}

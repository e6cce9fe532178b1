// Package db implements the roster store and the append-only verification
// ledger on Postgres.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zerotwo/platewatch/internal/models"
)

// ErrDuplicate reports a roster insert that collides with an existing
// holder id or plate.
var ErrDuplicate = errors.New("roster entry already exists")

// Store wraps database access helpers.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const schemaSQL = `
CREATE SCHEMA IF NOT EXISTS platewatch;

CREATE TABLE IF NOT EXISTS platewatch.roster (
    id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    holder_id TEXT UNIQUE NOT NULL,
    name TEXT NOT NULL,
    vehicle_color TEXT,
    plate TEXT UNIQUE NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS platewatch.verifications (
    id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    scanned_plate TEXT NOT NULL,
    holder_id TEXT,
    match_found BOOLEAN NOT NULL,
    confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
    scanned_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// EnsureSchema creates the roster and ledger tables if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const lookupPlateSQL = `
    SELECT id, holder_id, name, COALESCE(vehicle_color, ''), plate, created_at, updated_at
    FROM platewatch.roster
    WHERE plate = $1
`

// LookupPlate finds the roster entry for a plate, or nil when unknown.
// The plate is normalized (trimmed, uppercased) before lookup.
func (s *Store) LookupPlate(ctx context.Context, plate string) (*models.RosterEntry, error) {
	plate = strings.ToUpper(strings.TrimSpace(plate))

	var e models.RosterEntry
	err := s.pool.QueryRow(ctx, lookupPlateSQL, plate).Scan(
		&e.ID, &e.HolderID, &e.Name, &e.VehicleColor, &e.Plate, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

const appendVerificationSQL = `
    INSERT INTO platewatch.verifications (scanned_plate, holder_id, match_found, confidence, scanned_at)
    VALUES ($1, $2, $3, $4, $5)
`

// AppendVerification writes one ledger record. The ledger is append-only:
// no update or delete paths exist.
func (s *Store) AppendVerification(ctx context.Context, entry models.VerificationEntry) error {
	_, err := s.pool.Exec(ctx, appendVerificationSQL,
		entry.ScannedPlate, entry.HolderID, entry.MatchFound, entry.Confidence, entry.ScannedAt)
	return err
}

const listVerificationsSQL = `
    SELECT id, scanned_plate, holder_id, match_found, confidence, scanned_at
    FROM platewatch.verifications
    ORDER BY scanned_at DESC, id DESC
    LIMIT $1
`

// ListVerifications returns the most recent ledger entries.
func (s *Store) ListVerifications(ctx context.Context, limit int) ([]models.VerificationEntry, error) {
	rows, err := s.pool.Query(ctx, listVerificationsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.VerificationEntry, 0)
	for rows.Next() {
		var e models.VerificationEntry
		if err := rows.Scan(&e.ID, &e.ScannedPlate, &e.HolderID, &e.MatchFound, &e.Confidence, &e.ScannedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const listRosterSQL = `
    SELECT id, holder_id, name, COALESCE(vehicle_color, ''), plate, created_at, updated_at
    FROM platewatch.roster
    ORDER BY name
`

// ListRoster returns all registered vehicles.
func (s *Store) ListRoster(ctx context.Context) ([]models.RosterEntry, error) {
	rows, err := s.pool.Query(ctx, listRosterSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.RosterEntry, 0)
	for rows.Next() {
		var e models.RosterEntry
		if err := rows.Scan(&e.ID, &e.HolderID, &e.Name, &e.VehicleColor, &e.Plate, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const addRosterSQL = `
    INSERT INTO platewatch.roster (holder_id, name, vehicle_color, plate)
    VALUES ($1, $2, NULLIF($3, ''), $4)
    ON CONFLICT DO NOTHING
    RETURNING id, created_at, updated_at
`

// AddRosterEntry registers a vehicle. The plate is stored normalized so
// recognition output matches byte-for-byte.
func (s *Store) AddRosterEntry(ctx context.Context, entry models.RosterEntry) (models.RosterEntry, error) {
	entry.Plate = strings.ToUpper(strings.TrimSpace(entry.Plate))

	err := s.pool.QueryRow(ctx, addRosterSQL,
		entry.HolderID, entry.Name, entry.VehicleColor, entry.Plate,
	).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return entry, ErrDuplicate
	}
	if err != nil {
		return entry, err
	}
	return entry, nil
}

const deleteRosterSQL = `DELETE FROM platewatch.roster WHERE holder_id = $1`

// DeleteRosterEntry removes a vehicle by holder id, reporting whether a
// row existed.
func (s *Store) DeleteRosterEntry(ctx context.Context, holderID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, deleteRosterSQL, holderID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/glucolog/internal/apperror"
	"github.com/sakif/glucolog/internal/model"
	"github.com/sakif/glucolog/internal/repository"
)

// Compile-time check that *DB implements repository.RecordRepository.
// A missing method fails the build here instead of at a distant call site.
var _ repository.RecordRepository = (*DB)(nil)

// Create inserts a new record for record.UserID.
//
// The record is modified in place: ID (a fresh xid) and both timestamps are
// set before the INSERT, and MeasuredAt is stored in UTC so records entered
// in different timezones sort correctly.
func (db *DB) Create(ctx context.Context, record *model.Record) error {
	record.ID = xid.New().String()

	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	record.MeasuredAt = record.MeasuredAt.UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO records (id, user_id, level, measured_at, note, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.UserID,
		record.Level,
		record.MeasuredAt,
		record.Note,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating record: %w", err)
	}

	return nil
}

// GetByOwner retrieves a single record, but only if ownerID owns it.
//
// The WHERE clause filters on BOTH id and user_id, so "no such record" and
// "someone else's record" produce the same sql.ErrNoRows → NotFound. This
// is the mechanical guarantee that record ids never leak across users.
func (db *DB) GetByOwner(ctx context.Context, id, ownerID string) (*model.Record, error) {
	var r model.Record

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, level, measured_at, note, created_at, updated_at
		 FROM records
		 WHERE id = ? AND user_id = ?`,
		id, ownerID,
	).Scan(
		&r.ID,
		&r.UserID,
		&r.Level,
		&r.MeasuredAt,
		&r.Note,
		&r.CreatedAt,
		&r.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("record", id)
		}
		return nil, fmt.Errorf("sqlite: getting record %s: %w", id, err)
	}

	return &r, nil
}

// ListByOwner retrieves all of ownerID's records, newest measurement first.
// The id DESC tie-break keeps the order deterministic when two records
// share a measurement time.
func (db *DB) ListByOwner(ctx context.Context, ownerID string) ([]model.Record, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, level, measured_at, note, created_at, updated_at
		 FROM records
		 WHERE user_id = ?
		 ORDER BY measured_at DESC, id DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing records: %w", err)
	}
	defer rows.Close()

	records := make([]model.Record, 0, 16)

	for rows.Next() {
		var r model.Record
		if err := rows.Scan(
			&r.ID, &r.UserID, &r.Level, &r.MeasuredAt, &r.Note,
			&r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning record row: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating records: %w", err)
	}

	return records, nil
}

// Update modifies level, measured_at, and note of an existing record.
//
// record.UserID must be the resolved owner — it is part of the WHERE
// clause, never a SET target. RowsAffected == 0 means the record doesn't
// exist or isn't theirs; either way the caller gets NotFound.
func (db *DB) Update(ctx context.Context, record *model.Record) error {
	record.UpdatedAt = time.Now().UTC()
	record.MeasuredAt = record.MeasuredAt.UTC()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE records
		 SET level = ?, measured_at = ?, note = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		record.Level,
		record.MeasuredAt,
		record.Note,
		record.UpdatedAt,
		record.ID,
		record.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating record %s: %w", record.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("record", record.ID)
	}

	return nil
}

// Delete removes a record if ownerID owns it. Same RowsAffected pattern as
// Update — cross-owner deletes look exactly like deletes of nonexistent ids.
func (db *DB) Delete(ctx context.Context, id, ownerID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM records WHERE id = ? AND user_id = ?`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting record %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("record", id)
	}

	return nil
}

// StatsByOwner aggregates ownerID's records for the dashboard summary.
//
// COALESCE turns the NULL aggregates of an empty result set into zeros so
// Scan doesn't need sql.Null* types. Latest is fetched separately via the
// same ordered query the list uses.
func (db *DB) StatsByOwner(ctx context.Context, ownerID string) (*model.RecordStats, error) {
	var stats model.RecordStats

	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(level), 0), COALESCE(MIN(level), 0), COALESCE(MAX(level), 0)
		 FROM records
		 WHERE user_id = ?`,
		ownerID,
	).Scan(&stats.Count, &stats.Average, &stats.Min, &stats.Max)
	if err != nil {
		return nil, fmt.Errorf("sqlite: aggregating records: %w", err)
	}

	if stats.Count == 0 {
		return &stats, nil
	}

	var latest model.Record
	err = db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, level, measured_at, note, created_at, updated_at
		 FROM records
		 WHERE user_id = ?
		 ORDER BY measured_at DESC, id DESC
		 LIMIT 1`,
		ownerID,
	).Scan(
		&latest.ID, &latest.UserID, &latest.Level, &latest.MeasuredAt,
		&latest.Note, &latest.CreatedAt, &latest.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: fetching latest record: %w", err)
	}
	stats.Latest = &latest

	return &stats, nil
}

// Package history archives booking lifecycle records to SQLite so that the
// ledger survives restarts for reporting purposes.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/evgrid/chargeq/core/model"
)

// Query filters archived bookings. Zero fields are ignored.
type Query struct {
	RequesterID string
	StationID   string
	Date        string
	Status      model.BookingStatus
	Start       time.Time
	End         time.Time
}

// SQLiteStore persists booking records to a SQLite database. It implements
// ledger.Archive.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS booking_history (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        ts INTEGER,
        booking_id TEXT,
        requester_id TEXT,
        station_id TEXT,
        date TEXT,
        status TEXT,
        record TEXT
    );`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Append writes the booking snapshot to the database. Called on every status
// transition, so one booking yields multiple rows.
func (s *SQLiteStore) Append(ctx context.Context, b model.Booking) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO booking_history (ts, booking_id, requester_id, station_id, date, status, record)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.CreatedAt.Unix(), b.ID, b.Request.RequesterID, b.Slot.StationID, b.Slot.Date, string(b.Status), string(data))
	return err
}

// Query returns archived snapshots matching q, oldest first.
func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]model.Booking, error) {
	var args []any
	query := `SELECT record FROM booking_history WHERE 1=1`
	if q.RequesterID != "" {
		query += ` AND requester_id = ?`
		args = append(args, q.RequesterID)
	}
	if q.StationID != "" {
		query += ` AND station_id = ?`
		args = append(args, q.StationID)
	}
	if q.Date != "" {
		query += ` AND date = ?`
		args = append(args, q.Date)
	}
	if q.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(q.Status))
	}
	if !q.Start.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, q.Start.Unix())
	}
	if !q.End.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, q.End.Unix())
	}
	query += ` ORDER BY ts, id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.Booking
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var b model.Booking
		if err := json.Unmarshal([]byte(data), &b); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		res = append(res, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

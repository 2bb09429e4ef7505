package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Auditor records store events in the Postgres store_events table created
// by the migrations in internal/db.
type Auditor struct {
	db  *sql.DB
	now func() time.Time
}

// NewAuditor returns an Auditor writing through db.
func NewAuditor(db *sql.DB) *Auditor {
	return &Auditor{db: db, now: time.Now}
}

// Record inserts ev, assigning an id and timestamp when they are unset.
func (a *Auditor) Record(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Time.IsZero() {
		ev.Time = a.now().UTC()
	}

	var details []byte
	if len(ev.Details) > 0 {
		var err error
		if details, err = json.Marshal(ev.Details); err != nil {
			return fmt.Errorf("audit: encode details: %w", err)
		}
	}

	_, err := a.db.ExecContext(ctx, `
		INSERT INTO store_events (
			id, created_at, kind, name, sha256, size_bytes, source, request_id, details
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ev.ID,
		ev.Time,
		string(ev.Kind),
		nullString(ev.Name),
		nullString(ev.Checksum),
		ev.Size,
		nullString(ev.Source),
		nullString(ev.RequestID),
		nullBytes(details),
	)
	if err != nil {
		return fmt.Errorf("audit: insert %s event: %w", ev.Kind, err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (a *Auditor) Recent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, created_at, kind, name, sha256, size_bytes, source, request_id, details
		FROM store_events
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var (
			ev                     Event
			kind                   string
			name, sum, source, rid sql.NullString
			details                []byte
		)
		if err := rows.Scan(&ev.ID, &ev.Time, &kind, &name, &sum, &ev.Size, &source, &rid, &details); err != nil {
			return nil, fmt.Errorf("audit: scan event: %w", err)
		}
		ev.Kind = EventKind(kind)
		ev.Name, ev.Checksum, ev.Source, ev.RequestID = name.String, sum.String, source.String, rid.String
		if len(details) > 0 {
			if err := json.Unmarshal(details, &ev.Details); err != nil {
				return nil, fmt.Errorf("audit: decode details of %s: %w", ev.ID, err)
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Ping checks the database connection.
func (a *Auditor) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

// nullString helper for nullable strings
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

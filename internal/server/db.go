package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	// auditPoolSize bounds connections used for store_events writes and the
	// /admin/events read-back.
	auditPoolSize = 5
	auditPingWait = 2 * time.Second
)

// OpenDB connects to the Postgres database holding the store_events audit
// trail. The returned pool has answered a ping.
func OpenDB(ctx context.Context, databaseURL string) (*sql.DB, error) {
	if databaseURL == "" {
		return nil, errors.New("audit db: DATABASE_URL is empty")
	}

	conn, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("audit db: %w", err)
	}
	conn.SetMaxOpenConns(auditPoolSize)
	conn.SetMaxIdleConns(auditPoolSize)
	conn.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, auditPingWait)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("audit db: ping: %w", err)
	}
	return conn, nil
}

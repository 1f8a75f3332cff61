// Package db provides PostgreSQL-backed repository implementations for the
// notification configuration store: groups, channel configs, templates, rich
// content, placeholders, and profile summaries. The pipeline reads these as
// eventually-consistent snapshots; the only write is the accident record.
//
// All repositories accept a DBTX interface satisfied by both *pgxpool.Pool
// (for normal queries) and pgx.Tx, enabling clean transaction support.
package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"vehiclenotify/internal/config"
)

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPool creates a pgx connection pool from the database configuration.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("db: invalid DATABASE_URL: %w", err)
	}

	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("db: pool creation failed: %w", err)
	}

	return pool, nil
}

// placeholders builds a comma-separated $n parameter list starting at `from`,
// for IN clauses with variable arity.
func placeholders(from, count int) string {
	out := ""
	for i := 0; i < count; i++ {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("$%d", from+i)
	}
	return out
}

// stringArgs converts a string slice to []any for variadic query args.
func stringArgs(args []any, values []string) []any {
	for _, v := range values {
		args = append(args, v)
	}
	return args
}

// scanJSONBColumn unmarshals a JSONB column value into dest, handling the
// []byte and string representations pgx may produce.
func scanJSONBColumn(dest any, value any) error {
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("db: unsupported jsonb scan type %T", value)
	}
	return json.Unmarshal(data, dest)
}

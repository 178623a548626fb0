package store

import (
	"context"
	"fmt"
	"time"

	"github.com/guregu/null/v6"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/spreadcache/internal/model"
)

// Schema creates the table used by PostgresStore.
const Schema = `
CREATE TABLE IF NOT EXISTS series_points (
	ticker TEXT             NOT NULL,
	field  TEXT             NOT NULL,
	day    DATE             NOT NULL,
	value  DOUBLE PRECISION,
	PRIMARY KEY (ticker, field, day)
)`

var pointColumns = []string{"ticker", "field", "day", "value"}

// PostgresStore keeps points in the series_points table. Save replaces all
// rows of a key inside one transaction.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore wraps a connection pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the series_points table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Load reads the rows of key ordered by day.
func (s *PostgresStore) Load(ctx context.Context, key model.Key) (model.Series, error) {
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("invalid key: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT day, value FROM series_points
		WHERE ticker = $1 AND field = $2
		ORDER BY day
	`, key.Ticker, key.Field)
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	var series model.Series
	for rows.Next() {
		var (
			day   time.Time
			value *float64
		)
		if err := rows.Scan(&day, &value); err != nil {
			return nil, &CorruptionError{Key: key, Err: err}
		}
		v := null.FloatFromPtr(value)
		if v.Valid {
			v = model.FloatValue(v.Float64)
		}
		series = append(series, model.Point{Date: model.Day(day), Value: v})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read series rows: %w", err)
	}

	if len(series) == 0 {
		return nil, ErrNotFound
	}
	if err := series.Validate(); err != nil {
		return nil, &CorruptionError{Key: key, Err: err}
	}
	return series, nil
}

// Save deletes the key's rows and copies the new series in one transaction.
func (s *PostgresStore) Save(ctx context.Context, key model.Key, series model.Series) error {
	if err := checkSave(key, series); err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM series_points WHERE ticker = $1 AND field = $2`,
		key.Ticker, key.Field,
	); err != nil {
		return fmt.Errorf("delete series: %w", err)
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"series_points"},
		pointColumns,
		pgx.CopyFromRows(copyRows(key, series)),
	); err != nil {
		return fmt.Errorf("copy series: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Lock takes a session-level advisory lock on a dedicated connection.
func (s *PostgresStore) Lock(ctx context.Context, key model.Key) (func(), error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire conn: %w", err)
	}

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(hashtext($1))`, key.String()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("advisory lock: %w", err)
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		conn.Exec(ctx, `SELECT pg_advisory_unlock(hashtext($1))`, key.String())
		conn.Release()
	}, nil
}

// copyRows converts a series into COPY rows. Missing values become NULL.
func copyRows(key model.Key, series model.Series) [][]any {
	rows := make([][]any, len(series))
	for i, p := range series {
		var value any
		if p.Value.Valid {
			value = p.Value.Float64
		}
		rows[i] = []any{key.Ticker, key.Field, p.Date, value}
	}
	return rows
}

package reputation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const (
	postgresMaxConns          = 10
	postgresHealthCheckPeriod = 30 * time.Second
)

// PostgresStore persists reputation lists in postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to postgres, verifies the connection and applies migrations.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}

	cfg.MaxConns = postgresMaxConns
	cfg.HealthCheckPeriod = postgresHealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close() //nolint:errcheck

	if err := migrate(ctx, db, goose.DialectPostgres, postgresMigrationsDir); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// ReadList returns every entry of a list sorted by value.
func (s *PostgresStore) ReadList(ctx context.Context, name ListName) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT value, reason, risk_level, category, domains::text, disabled, updated_at
		FROM reputation_entries
		WHERE list = $1
		ORDER BY value`, string(name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0)

	for rows.Next() {
		var (
			e       Entry
			domains string
		)

		if err := rows.Scan(&e.Value, &e.Reason, &e.RiskLevel, &e.Category, &domains, &e.Disabled, &e.UpdatedAt); err != nil {
			return nil, err
		}

		e.Domains = decodeDomains(domains)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Upsert writes an entry and returns the previous value.
func (s *PostgresStore) Upsert(ctx context.Context, name ListName, entry Entry) (*Entry, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	previous, err := postgresLookup(ctx, tx, name, entry.Value)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO reputation_entries (list, value, reason, risk_level, category, domains, disabled, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, now())
		ON CONFLICT (list, value) DO UPDATE SET
			reason = EXCLUDED.reason,
			risk_level = EXCLUDED.risk_level,
			category = EXCLUDED.category,
			domains = EXCLUDED.domains,
			disabled = EXCLUDED.disabled,
			updated_at = now()`,
		string(name), entry.Value, entry.Reason, entry.RiskLevel, entry.Category,
		encodeDomains(entry.Domains), entry.Disabled)
	if err != nil {
		return nil, err
	}

	return previous, tx.Commit(ctx)
}

// Remove deletes an entry.
func (s *PostgresStore) Remove(ctx context.Context, name ListName, value string) (*Entry, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	previous, err := postgresLookup(ctx, tx, name, value)
	if err != nil {
		return nil, err
	}

	if previous == nil {
		return nil, ErrEntryNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM reputation_entries WHERE list = $1 AND value = $2`, string(name), value); err != nil {
		return nil, err
	}

	return previous, tx.Commit(ctx)
}

func postgresLookup(ctx context.Context, tx pgx.Tx, name ListName, value string) (*Entry, error) {
	var (
		e       Entry
		domains string
	)

	err := tx.QueryRow(ctx, `
		SELECT value, reason, risk_level, category, domains::text, disabled, updated_at
		FROM reputation_entries
		WHERE list = $1 AND value = $2
		FOR UPDATE`, string(name), value).
		Scan(&e.Value, &e.Reason, &e.RiskLevel, &e.Category, &domains, &e.Disabled, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	e.Domains = decodeDomains(domains)

	return &e, nil
}

// AppendHistory records an audit entry.
func (s *PostgresStore) AppendHistory(ctx context.Context, entry HistoryEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reputation_history (id, list, action, value, previous, current, actor, created_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7, $8)`,
		entry.ID, string(entry.List), string(entry.Action), entry.Value,
		encodeEntry(entry.Previous), encodeEntry(entry.Current), entry.Actor, entry.At.UTC())

	return err
}

// History returns the newest entries first.
func (s *PostgresStore) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, list, action, value, previous::text, current::text, actor, created_at
		FROM reputation_history
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]HistoryEntry, 0)

	for rows.Next() {
		var (
			h                 HistoryEntry
			list, action      string
			previous, current sql.NullString
		)

		if err := rows.Scan(&h.ID, &list, &action, &h.Value, &previous, &current, &h.Actor, &h.At); err != nil {
			return nil, err
		}

		h.List = ListName(list)
		h.Action = Action(action)
		h.Previous = decodeEntry(previous)
		h.Current = decodeEntry(current)
		out = append(out, h)
	}

	return out, rows.Err()
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()

	return nil
}

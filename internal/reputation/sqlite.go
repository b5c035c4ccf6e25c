package reputation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite driver
	"github.com/pressly/goose/v3"
)

// DefaultSQLiteDSN keeps the database next to the binary with WAL enabled.
const DefaultSQLiteDSN = "file:urlscout.db?_journal_mode=WAL&_busy_timeout=5000"

// SQLiteStore persists reputation lists in a local sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) and migrates a sqlite database.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = DefaultSQLiteDSN
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}

	if err := migrate(ctx, db, goose.DialectSQLite3, sqliteMigrationsDir); err != nil {
		_ = db.Close()
		return nil, err
	}

	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	return &SQLiteStore{db: db}, nil
}

// ReadList returns every entry of a list sorted by value.
func (s *SQLiteStore) ReadList(ctx context.Context, name ListName) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT value, reason, risk_level, category, domains, disabled, updated_at
		FROM reputation_entries
		WHERE list = ?
		ORDER BY value`, string(name))
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

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
func (s *SQLiteStore) Upsert(ctx context.Context, name ListName, entry Entry) (*Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	previous, err := sqliteLookup(ctx, tx, name, entry.Value)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reputation_entries (list, value, reason, risk_level, category, domains, disabled, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (list, value) DO UPDATE SET
			reason = excluded.reason,
			risk_level = excluded.risk_level,
			category = excluded.category,
			domains = excluded.domains,
			disabled = excluded.disabled,
			updated_at = excluded.updated_at`,
		string(name), entry.Value, entry.Reason, entry.RiskLevel, entry.Category,
		encodeDomains(entry.Domains), entry.Disabled, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	return previous, tx.Commit()
}

// Remove deletes an entry.
func (s *SQLiteStore) Remove(ctx context.Context, name ListName, value string) (*Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	previous, err := sqliteLookup(ctx, tx, name, value)
	if err != nil {
		return nil, err
	}

	if previous == nil {
		return nil, ErrEntryNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM reputation_entries WHERE list = ? AND value = ?`, string(name), value); err != nil {
		return nil, err
	}

	return previous, tx.Commit()
}

func sqliteLookup(ctx context.Context, tx *sql.Tx, name ListName, value string) (*Entry, error) {
	var (
		e       Entry
		domains string
	)

	err := tx.QueryRowContext(ctx, `
		SELECT value, reason, risk_level, category, domains, disabled, updated_at
		FROM reputation_entries
		WHERE list = ? AND value = ?`, string(name), value).
		Scan(&e.Value, &e.Reason, &e.RiskLevel, &e.Category, &domains, &e.Disabled, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	e.Domains = decodeDomains(domains)

	return &e, nil
}

// AppendHistory records an audit entry.
func (s *SQLiteStore) AppendHistory(ctx context.Context, entry HistoryEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reputation_history (id, list, action, value, previous, current, actor, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, string(entry.List), string(entry.Action), entry.Value,
		encodeEntry(entry.Previous), encodeEntry(entry.Current), entry.Actor, entry.At.UTC())

	return err
}

// History returns the newest entries first.
func (s *SQLiteStore) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, list, action, value, previous, current, actor, created_at
		FROM reputation_history
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

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

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

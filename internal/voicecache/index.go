package voicecache

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// ErrSchemaMismatch indicates the index was written by an incompatible version.
var ErrSchemaMismatch = errors.New("voice index schema version mismatch")

// index is the sqlite table of cached utterances.
type index struct {
	db   *sql.DB
	path string
}

func openIndex(ctx context.Context, path string) (*index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	idx := &index{db: db, path: path}
	if err := idx.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func (i *index) initSchema(ctx context.Context) error {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	var version int
	err = tx.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version != schemaVersion:
		return fmt.Errorf("%w: %s has version %d, expected %d (delete the index to rebuild it)",
			ErrSchemaMismatch, i.path, version, schemaVersion)
	}
	return tx.Commit()
}

func (i *index) close() error {
	if i == nil || i.db == nil {
		return nil
	}
	return i.db.Close()
}

func (i *index) lookup(ctx context.Context, key Key) (Entry, bool, error) {
	row := i.db.QueryRowContext(ctx,
		`SELECT key, voice, text, duration_seconds, size_bytes, created_at
		 FROM voice_entries WHERE key = ?`, string(key))
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

// upsert records entry. Voice and text already on the row are kept when
// entry carries none, so a backfill never erases what a synthesis recorded.
func (i *index) upsert(ctx context.Context, entry Entry) error {
	_, err := i.db.ExecContext(ctx,
		`INSERT INTO voice_entries (key, voice, text, duration_seconds, size_bytes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   voice = CASE WHEN excluded.voice != '' THEN excluded.voice ELSE voice_entries.voice END,
		   text = CASE WHEN excluded.text != '' THEN excluded.text ELSE voice_entries.text END,
		   duration_seconds = excluded.duration_seconds,
		   size_bytes = excluded.size_bytes`,
		string(entry.Key), entry.Voice, entry.Text, entry.DurationSeconds, entry.SizeBytes,
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert voice entry %s: %w", entry.Key, err)
	}
	return nil
}

func (i *index) list(ctx context.Context) ([]Entry, error) {
	rows, err := i.db.QueryContext(ctx,
		`SELECT key, voice, text, duration_seconds, size_bytes, created_at
		 FROM voice_entries ORDER BY created_at, key`)
	if err != nil {
		return nil, fmt.Errorf("list voice entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		entry   Entry
		key     string
		created string
	)
	if err := s.Scan(&key, &entry.Voice, &entry.Text, &entry.DurationSeconds, &entry.SizeBytes, &created); err != nil {
		return Entry{}, err
	}
	entry.Key = Key(key)
	if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
		entry.CreatedAt = ts
	}
	return entry, nil
}

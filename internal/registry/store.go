package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store persists registry entries in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open initializes or connects to the registry database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("open registry: path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure registry directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const selectColumns = "id, name, date, description, photos"

// List returns every entry in registry order.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT "+selectColumns+" FROM artifacts ORDER BY position, id")
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return entries, nil
}

// Get returns the entry with the given id or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM artifacts WHERE id = ?", strings.TrimSpace(id))
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return entry, err
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM artifacts").Scan(&count); err != nil {
		return 0, fmt.Errorf("count artifacts: %w", err)
	}
	return count, nil
}

// Upsert inserts or updates an entry. Entries without an id receive a new
// UUID; new entries are appended after the existing ones. The stored entry
// is returned.
func (s *Store) Upsert(ctx context.Context, entry Entry) (Entry, error) {
	ctx = ensureContext(ctx)
	entry.normalize()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if err := entry.validate(); err != nil {
		return Entry{}, err
	}
	photos, err := encodePhotos(entry.Photos)
	if err != nil {
		return Entry{}, err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	err = retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, `
INSERT INTO artifacts (id, position, name, date, description, photos, created_at, updated_at)
VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM artifacts), ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    date = excluded.date,
    description = excluded.description,
    photos = excluded.photos,
    updated_at = excluded.updated_at`,
			entry.ID, entry.Name, entry.Date, entry.Description, photos, now, now)
		return execErr
	})
	if err != nil {
		return Entry{}, fmt.Errorf("upsert artifact %s: %w", entry.ID, err)
	}
	return entry, nil
}

// ReplaceAll atomically swaps the registry contents for entries, preserving
// their order.
func (s *Store) ReplaceAll(ctx context.Context, entries []Entry) error {
	ctx = ensureContext(ctx)
	prepared := make([]Entry, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		entry.normalize()
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		if err := entry.validate(); err != nil {
			return err
		}
		if _, dup := seen[entry.ID]; dup {
			return fmt.Errorf("replace artifacts: duplicate id %q", entry.ID)
		}
		seen[entry.ID] = struct{}{}
		prepared = append(prepared, entry)
	}

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin replace tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, "DELETE FROM artifacts"); err != nil {
			return fmt.Errorf("clear artifacts: %w", err)
		}
		now := time.Now().UTC().Format(time.RFC3339Nano)
		for idx, entry := range prepared {
			photos, err := encodePhotos(entry.Photos)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO artifacts (id, position, name, date, description, photos, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				entry.ID, idx+1, entry.Name, entry.Date, entry.Description, photos, now, now); err != nil {
				return fmt.Errorf("insert artifact %s: %w", entry.ID, err)
			}
		}
		return tx.Commit()
	})
}

// Delete removes the entry with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, "DELETE FROM artifacts WHERE id = ?", strings.TrimSpace(id))
		return execErr
	})
	if err != nil {
		return fmt.Errorf("delete artifact %s: %w", id, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		entry  Entry
		photos string
	)
	if err := row.Scan(&entry.ID, &entry.Name, &entry.Date, &entry.Description, &photos); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan artifact: %w", err)
	}
	decoded, err := decodePhotos(photos)
	if err != nil {
		return Entry{}, fmt.Errorf("artifact %s: %w", entry.ID, err)
	}
	entry.Photos = decoded
	return entry, nil
}

func encodePhotos(photos []string) (string, error) {
	if photos == nil {
		photos = []string{}
	}
	data, err := json.Marshal(photos)
	if err != nil {
		return "", fmt.Errorf("encode photos: %w", err)
	}
	return string(data), nil
}

func decodePhotos(value string) ([]string, error) {
	photos := []string{}
	if strings.TrimSpace(value) == "" {
		return photos, nil
	}
	if err := json.Unmarshal([]byte(value), &photos); err != nil {
		return nil, fmt.Errorf("decode photos: %w", err)
	}
	return photos, nil
}

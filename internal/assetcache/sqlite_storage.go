package assetcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStorage keeps cache generations in their own SQLite file, separate
// from the workout database.
type SQLiteStorage struct {
	db *sql.DB
}

// OpenSQLiteStorage opens (or creates) the cache database at path.
func OpenSQLiteStorage(path string) (*SQLiteStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS cache_generations (
		name       TEXT PRIMARY KEY,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS cache_entries (
		generation TEXT NOT NULL REFERENCES cache_generations(name) ON DELETE CASCADE,
		url        TEXT NOT NULL,
		status     INTEGER NOT NULL,
		header     TEXT NOT NULL,
		body       BLOB NOT NULL,
		stored_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (generation, url)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache tables: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Keys lists generation names in creation order.
func (s *SQLiteStorage) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM cache_generations ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("listing generations: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning generation: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Delete removes a generation; its entries go with it.
func (s *SQLiteStorage) Delete(ctx context.Context, name string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_entries WHERE generation = ?`, name); err != nil {
		return false, fmt.Errorf("deleting entries of %s: %w", name, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM cache_generations WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("deleting generation %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, tx.Commit()
}

// Match looks up url in the named generation. A miss returns nil, nil.
func (s *SQLiteStorage) Match(ctx context.Context, name, url string) (*Entry, error) {
	var (
		e      = Entry{URL: url}
		header string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT status, header, body FROM cache_entries WHERE generation = ? AND url = ?`,
		name, url,
	).Scan(&e.Status, &header, &e.Body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("matching %s in %s: %w", url, name, err)
	}
	if err := json.Unmarshal([]byte(header), &e.Header); err != nil {
		return nil, fmt.Errorf("decoding cached header for %s: %w", url, err)
	}
	return &e, nil
}

// Put stores entries in one transaction, replacing any with the same URL.
func (s *SQLiteStorage) Put(ctx context.Context, name string, entries ...Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO cache_generations (name) VALUES (?)`, name); err != nil {
		return fmt.Errorf("creating generation %s: %w", name, err)
	}
	for _, e := range entries {
		header, err := json.Marshal(e.Header)
		if err != nil {
			return fmt.Errorf("encoding header for %s: %w", e.URL, err)
		}
		body := e.Body
		if body == nil {
			body = []byte{}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO cache_entries (generation, url, status, header, body) VALUES (?, ?, ?, ?, ?)`,
			name, e.URL, e.Status, string(header), body,
		); err != nil {
			return fmt.Errorf("storing %s: %w", e.URL, err)
		}
	}
	return tx.Commit()
}

// Close closes the cache database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

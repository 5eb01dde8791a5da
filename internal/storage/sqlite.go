package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/meltforce/gainslog/internal/models"
	_ "modernc.org/sqlite"
)

type sqliteBackend struct {
	db *sql.DB
}

func openSQLite(ctx context.Context, cfg Config) (*sqliteBackend, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: no database path configured", ErrStorageUnavailable)
	}
	if err := ensureWritableDir(filepath.Dir(cfg.Path)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	if err := RunMigrations(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	dsn := cfg.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: opening sqlite db: %w", ErrConnection, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: pinging sqlite db: %w", ErrConnection, err)
	}
	return &sqliteBackend{db: db}, nil
}

// ensureWritableDir creates dir and proves a file can be written in it.
func ensureWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating data dir %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, ".writecheck-*")
	if err != nil {
		return fmt.Errorf("data dir %s is not writable: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func (b *sqliteBackend) insertSession(ctx context.Context, date string, exercises []byte) (int64, error) {
	res, err := b.db.ExecContext(ctx,
		`INSERT INTO workout_sessions (session_date, exercises) VALUES (?, ?)`,
		date, string(exercises))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (b *sqliteBackend) listSessions(ctx context.Context) ([]sessionRow, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT id, session_date, exercises FROM workout_sessions ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []sessionRow
	for rows.Next() {
		var r sessionRow
		var exercises string
		if err := rows.Scan(&r.id, &r.date, &exercises); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		r.exercises = []byte(exercises)
		result = append(result, r)
	}
	return result, rows.Err()
}

func (b *sqliteBackend) upsertRecords(ctx context.Context, recs []models.PersonalRecord) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO personal_records (name, weight, reps, record_date) VALUES (?, ?, ?, ?)
		 ON CONFLICT (name) DO UPDATE
			SET weight = excluded.weight, reps = excluded.reps, record_date = excluded.record_date`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx, r.Name, r.Weight, r.Reps, r.Date); err != nil {
			return fmt.Errorf("upserting record %q: %w", r.Name, err)
		}
	}
	return tx.Commit()
}

func (b *sqliteBackend) listRecords(ctx context.Context) ([]models.PersonalRecord, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT name, weight, reps, record_date FROM personal_records`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.PersonalRecord
	for rows.Next() {
		var r models.PersonalRecord
		if err := rows.Scan(&r.Name, &r.Weight, &r.Reps, &r.Date); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (b *sqliteBackend) clear(ctx context.Context) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM workout_sessions`); err != nil {
		return fmt.Errorf("clearing sessions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM personal_records`); err != nil {
		return fmt.Errorf("clearing records: %w", err)
	}
	return tx.Commit()
}

func (b *sqliteBackend) close() error {
	return b.db.Close()
}

package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meltforce/gainslog/internal/models"
)

// pgBackend wraps a pgxpool.Pool.
type pgBackend struct {
	pool *pgxpool.Pool
}

func openPostgres(ctx context.Context, cfg Config) (*pgBackend, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%w: no postgres DSN configured", ErrStorageUnavailable)
	}
	if err := RunMigrations(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: creating pool: %w", ErrConnection, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: pinging database: %w", ErrConnection, err)
	}
	return &pgBackend{pool: pool}, nil
}

func (b *pgBackend) insertSession(ctx context.Context, date string, exercises []byte) (int64, error) {
	var id int64
	err := b.pool.QueryRow(ctx,
		`INSERT INTO workout_sessions (session_date, exercises) VALUES ($1::date, $2::jsonb) RETURNING id`,
		date, string(exercises)).Scan(&id)
	return id, err
}

func (b *pgBackend) listSessions(ctx context.Context) ([]sessionRow, error) {
	rows, err := b.pool.Query(ctx,
		`SELECT id, session_date::text, exercises::text FROM workout_sessions ORDER BY id ASC`)
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

func (b *pgBackend) upsertRecords(ctx context.Context, recs []models.PersonalRecord) error {
	return pgx.BeginFunc(ctx, b.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, r := range recs {
			batch.Queue(
				`INSERT INTO personal_records (name, weight, reps, record_date) VALUES ($1, $2, $3, $4::date)
				 ON CONFLICT (name) DO UPDATE
					SET weight = EXCLUDED.weight, reps = EXCLUDED.reps, record_date = EXCLUDED.record_date`,
				r.Name, r.Weight, r.Reps, r.Date)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (b *pgBackend) listRecords(ctx context.Context) ([]models.PersonalRecord, error) {
	rows, err := b.pool.Query(ctx,
		`SELECT name, weight, reps, record_date::text FROM personal_records`)
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

// clear truncates both tables in one statement; identity values keep counting.
func (b *pgBackend) clear(ctx context.Context) error {
	_, err := b.pool.Exec(ctx, `TRUNCATE workout_sessions, personal_records CONTINUE IDENTITY`)
	return err
}

func (b *pgBackend) close() error {
	b.pool.Close()
	return nil
}

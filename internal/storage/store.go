package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/meltforce/gainslog/internal/models"
)

var (
	// ErrStorageUnavailable means the host offers no durable storage.
	ErrStorageUnavailable = errors.New("durable storage unavailable")
	// ErrConnection means the connection could not be established.
	ErrConnection = errors.New("storage connection error")
	// ErrNotOpen means the store was used before Open completed.
	ErrNotOpen = errors.New("storage is not open")
	ErrWrite   = errors.New("storage write failed")
	ErrRead    = errors.New("storage read failed")
	ErrClear   = errors.New("storage clear failed")
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SchemaVersion is the latest migration number shipped with this build.
const SchemaVersion = 1

// Config selects and locates the backing database.
type Config struct {
	Driver string
	Path   string // sqlite database file
	DSN    string // postgres connection string
}

// backend is the per-driver implementation behind Store.
type backend interface {
	insertSession(ctx context.Context, date string, exercises []byte) (int64, error)
	listSessions(ctx context.Context) ([]sessionRow, error)
	upsertRecords(ctx context.Context, recs []models.PersonalRecord) error
	listRecords(ctx context.Context) ([]models.PersonalRecord, error)
	clear(ctx context.Context) error
	close() error
}

type sessionRow struct {
	id        int64
	date      string
	exercises []byte
}

// Store holds workout sessions and personal records.
type Store struct {
	cfg Config
	log *slog.Logger

	mu      sync.RWMutex
	backend backend
}

// New creates a Store. No connection is made until Open.
func New(cfg Config, log *slog.Logger) *Store {
	return &Store{cfg: cfg, log: log}
}

// Open connects to the database, applying schema migrations first.
// Opening an already open store is a no-op.
func (s *Store) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend != nil {
		return nil
	}

	var (
		b   backend
		err error
	)
	switch s.cfg.Driver {
	case DriverSQLite, "":
		b, err = openSQLite(ctx, s.cfg)
	case DriverPostgres:
		b, err = openPostgres(ctx, s.cfg)
	default:
		return fmt.Errorf("%w: unknown driver %q", ErrConnection, s.cfg.Driver)
	}
	if err != nil {
		return err
	}
	s.backend = b
	s.log.Info("store opened", "driver", s.driver(), "schema_version", SchemaVersion)
	return nil
}

// Close releases the connection. The store can be opened again afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend == nil {
		return nil
	}
	err := s.backend.close()
	s.backend = nil
	return err
}

func (s *Store) driver() string {
	if s.cfg.Driver == "" {
		return DriverSQLite
	}
	return s.cfg.Driver
}

// with runs fn against the open backend, holding the read lock so Close
// cannot race an in-flight operation.
func (s *Store) with(fn func(backend) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.backend == nil {
		return ErrNotOpen
	}
	return fn(s.backend)
}

// AddSession inserts a finished session. Any id already on the session is
// ignored; on success the assigned id is written back and returned, and on
// failure the session is left as it was.
func (s *Store) AddSession(ctx context.Context, session *models.WorkoutSession) (int64, error) {
	exercises, err := json.Marshal(session.Exercises)
	if err != nil {
		return 0, fmt.Errorf("%w: encoding exercises: %w", ErrWrite, err)
	}

	var id int64
	err = s.with(func(b backend) error {
		var err error
		id, err = b.insertSession(ctx, session.Date, exercises)
		if err != nil {
			return fmt.Errorf("%w: inserting session: %w", ErrWrite, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	session.ID = id
	return id, nil
}

// GetAllSessions returns every stored session in insertion order.
func (s *Store) GetAllSessions(ctx context.Context) ([]models.WorkoutSession, error) {
	var rows []sessionRow
	err := s.with(func(b backend) error {
		var err error
		rows, err = b.listSessions(ctx)
		if err != nil {
			return fmt.Errorf("%w: querying sessions: %w", ErrRead, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sessions := make([]models.WorkoutSession, 0, len(rows))
	for _, r := range rows {
		ws := models.WorkoutSession{ID: r.id, Date: r.date}
		if err := json.Unmarshal(r.exercises, &ws.Exercises); err != nil {
			return nil, fmt.Errorf("%w: decoding session %d: %w", ErrRead, r.id, err)
		}
		sessions = append(sessions, ws)
	}
	return sessions, nil
}

// PutRecord upserts a single record keyed by name.
func (s *Store) PutRecord(ctx context.Context, rec models.PersonalRecord) error {
	return s.PutRecords(ctx, []models.PersonalRecord{rec})
}

// PutRecords upserts a batch of records in one transaction.
func (s *Store) PutRecords(ctx context.Context, recs []models.PersonalRecord) error {
	if len(recs) == 0 {
		return s.with(func(backend) error { return nil })
	}
	for _, r := range recs {
		if r.Name == "" {
			return fmt.Errorf("%w: record without name", ErrWrite)
		}
	}
	return s.with(func(b backend) error {
		if err := b.upsertRecords(ctx, recs); err != nil {
			return fmt.Errorf("%w: upserting %d records: %w", ErrWrite, len(recs), err)
		}
		return nil
	})
}

// GetAllRecords returns every personal record, in no particular order.
func (s *Store) GetAllRecords(ctx context.Context) ([]models.PersonalRecord, error) {
	var recs []models.PersonalRecord
	err := s.with(func(b backend) error {
		var err error
		recs, err = b.listRecords(ctx)
		if err != nil {
			return fmt.Errorf("%w: querying records: %w", ErrRead, err)
		}
		return nil
	})
	return recs, err
}

// ClearAll empties both collections in one transaction.
func (s *Store) ClearAll(ctx context.Context) error {
	return s.with(func(b backend) error {
		if err := b.clear(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrClear, err)
		}
		s.log.Info("store cleared")
		return nil
	})
}

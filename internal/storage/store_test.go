package storage

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/meltforce/gainslog/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestStore(t *testing.T) (*Store, Config) {
	t.Helper()
	cfg := Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "gainslog.db")}
	s := New(cfg, testLogger())
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, cfg
}

func sampleSession() models.WorkoutSession {
	return models.WorkoutSession{
		ID:   99,
		Date: "2025-03-01",
		Exercises: []models.Exercise{
			{ID: "ex-1", Name: "Bench Press", Sets: []models.Set{
				{SetNumber: 1, Weight: models.Float(100), Reps: models.Int(5), Completed: true},
				{SetNumber: 2, Weight: models.Float(102.5), Reps: nil, Completed: false},
			}},
			{ID: "ex-2", Name: "Row", Sets: []models.Set{{SetNumber: 1}}},
		},
	}
}

// TestNotOpen verifies that every operation fails with ErrNotOpen before Open
// and after Close.
func TestNotOpen(t *testing.T) {
	ctx := context.Background()
	s := New(Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "x.db")}, testLogger())

	session := sampleSession()
	session.ID = 42
	if _, err := s.AddSession(ctx, &session); !errors.Is(err, ErrNotOpen) {
		t.Errorf("AddSession err = %v, want ErrNotOpen", err)
	}
	if session.ID != 42 {
		t.Errorf("failed AddSession changed id to %d, want 42", session.ID)
	}
	if _, err := s.GetAllSessions(ctx); !errors.Is(err, ErrNotOpen) {
		t.Errorf("GetAllSessions err = %v, want ErrNotOpen", err)
	}
	if err := s.PutRecord(ctx, models.PersonalRecord{Name: "SQUAT"}); !errors.Is(err, ErrNotOpen) {
		t.Errorf("PutRecord err = %v, want ErrNotOpen", err)
	}
	if _, err := s.GetAllRecords(ctx); !errors.Is(err, ErrNotOpen) {
		t.Errorf("GetAllRecords err = %v, want ErrNotOpen", err)
	}
	if err := s.ClearAll(ctx); !errors.Is(err, ErrNotOpen) {
		t.Errorf("ClearAll err = %v, want ErrNotOpen", err)
	}

	if err := s.Open(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetAllRecords(ctx); !errors.Is(err, ErrNotOpen) {
		t.Errorf("after Close err = %v, want ErrNotOpen", err)
	}
}

// TestOpenStorageUnavailable verifies that an unusable data directory is
// reported as ErrStorageUnavailable rather than a generic failure.
func TestOpenStorageUnavailable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := New(Config{Driver: DriverSQLite, Path: filepath.Join(blocker, "gainslog.db")}, testLogger())
	err := s.Open(context.Background())
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("Open err = %v, want ErrStorageUnavailable", err)
	}

	s = New(Config{Driver: DriverSQLite}, testLogger())
	if err := s.Open(context.Background()); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("empty path err = %v, want ErrStorageUnavailable", err)
	}
}

// TestOpenUnknownDriver verifies that a misconfigured driver is a connection error.
func TestOpenUnknownDriver(t *testing.T) {
	s := New(Config{Driver: "indexeddb"}, testLogger())
	if err := s.Open(context.Background()); !errors.Is(err, ErrConnection) {
		t.Errorf("err = %v, want ErrConnection", err)
	}
}

// TestAddSessionRoundTrip verifies that a stored session comes back with
// identical content and a store-assigned id, ignoring the caller's id.
func TestAddSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	session := sampleSession()
	want := session.Clone()

	id, err := s.AddSession(ctx, &session)
	if err != nil {
		t.Fatalf("AddSession: %v", err)
	}
	if id == 0 || id == 99 {
		t.Errorf("assigned id = %d, want a fresh non-zero id", id)
	}
	if session.ID != id {
		t.Errorf("session.ID = %d, want %d", session.ID, id)
	}

	got, err := s.GetAllSessions(ctx)
	if err != nil {
		t.Fatalf("GetAllSessions: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("sessions = %d, want 1", len(got))
	}
	want.ID = id
	if !reflect.DeepEqual(got[0], want) {
		t.Errorf("round trip mismatch\n got: %+v\nwant: %+v", got[0], want)
	}
}

// TestSessionsInInsertionOrder verifies storage order and id monotonicity,
// including across a ClearAll.
func TestSessionsInInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	var ids []int64
	for _, date := range []string{"2025-03-01", "2025-03-03", "2025-03-02"} {
		ws := models.WorkoutSession{Date: date}
		id, err := s.AddSession(ctx, &ws)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	got, err := s.GetAllSessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for i, ws := range got {
		if ws.ID != ids[i] {
			t.Errorf("sessions[%d].ID = %d, want %d", i, ws.ID, ids[i])
		}
	}

	if err := s.ClearAll(ctx); err != nil {
		t.Fatal(err)
	}
	ws := models.WorkoutSession{Date: "2025-03-04"}
	id, err := s.AddSession(ctx, &ws)
	if err != nil {
		t.Fatal(err)
	}
	for _, old := range ids {
		if id == old {
			t.Errorf("id %d reused after ClearAll", id)
		}
	}
}

// TestPutRecordUpsert verifies that records are keyed by name and overwritten.
func TestPutRecordUpsert(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	if err := s.PutRecord(ctx, models.PersonalRecord{Name: "BENCH PRESS", Weight: 100, Reps: 5, Date: "2025-03-01"}); err != nil {
		t.Fatal(err)
	}
	if err := s.PutRecords(ctx, []models.PersonalRecord{
		{Name: "BENCH PRESS", Weight: 100, Reps: 8, Date: "2025-03-08"},
		{Name: "SQUAT", Weight: 140, Reps: 3, Date: "2025-03-08"},
	}); err != nil {
		t.Fatal(err)
	}

	recs, err := s.GetAllRecords(ctx)
	if err != nil {
		t.Fatal(err)
	}
	byName := map[string]models.PersonalRecord{}
	for _, r := range recs {
		byName[r.Name] = r
	}
	if len(byName) != 2 || len(recs) != 2 {
		t.Fatalf("records = %+v, want 2 unique", recs)
	}
	if got := byName["BENCH PRESS"]; got.Reps != 8 || got.Date != "2025-03-08" {
		t.Errorf("bench = %+v, want 100x8 on 2025-03-08", got)
	}

	if err := s.PutRecord(ctx, models.PersonalRecord{Weight: 1}); !errors.Is(err, ErrWrite) {
		t.Errorf("nameless record err = %v, want ErrWrite", err)
	}
}

// TestClearAllIdempotent verifies that clearing twice leaves both collections
// empty and never errors on the second call.
func TestClearAllIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	session := sampleSession()
	if _, err := s.AddSession(ctx, &session); err != nil {
		t.Fatal(err)
	}
	if err := s.PutRecord(ctx, models.PersonalRecord{Name: "ROW", Weight: 60, Reps: 10, Date: "2025-03-01"}); err != nil {
		t.Fatal(err)
	}

	for i := range 2 {
		if err := s.ClearAll(ctx); err != nil {
			t.Fatalf("ClearAll #%d: %v", i+1, err)
		}
		sessions, err := s.GetAllSessions(ctx)
		if err != nil {
			t.Fatal(err)
		}
		recs, err := s.GetAllRecords(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(sessions) != 0 || len(recs) != 0 {
			t.Errorf("after ClearAll #%d: %d sessions, %d records", i+1, len(sessions), len(recs))
		}
	}
}

// TestReopenAppliesSchemaOnce verifies that data survives a reopen and the
// schema version is recorded by the migrator.
func TestReopenAppliesSchemaOnce(t *testing.T) {
	ctx := context.Background()
	s, cfg := openTestStore(t)

	session := sampleSession()
	if _, err := s.AddSession(ctx, &session); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Open(ctx); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	sessions, err := s.GetAllSessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Errorf("sessions after reopen = %d, want 1", len(sessions))
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var version int
	var dirty bool
	if err := db.QueryRow(`SELECT version, dirty FROM schema_migrations`).Scan(&version, &dirty); err != nil {
		t.Fatalf("reading schema version: %v", err)
	}
	if version != SchemaVersion || dirty {
		t.Errorf("schema version = %d (dirty=%v), want %d", version, dirty, SchemaVersion)
	}
}

// TestDropRecreatesEmpty verifies that Drop removes the database file and a
// subsequent Open starts from an empty schema.
func TestDropRecreatesEmpty(t *testing.T) {
	ctx := context.Background()
	s, cfg := openTestStore(t)

	session := sampleSession()
	if _, err := s.AddSession(ctx, &session); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	if err := Drop(ctx, cfg); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if _, err := os.Stat(cfg.Path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("database file still present: %v", err)
	}
	// Dropping an absent database is not an error.
	if err := Drop(ctx, cfg); err != nil {
		t.Errorf("second Drop: %v", err)
	}

	if err := s.Open(ctx); err != nil {
		t.Fatalf("Open after drop: %v", err)
	}
	sessions, err := s.GetAllSessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 0 {
		t.Errorf("sessions after drop = %d, want 0", len(sessions))
	}
}

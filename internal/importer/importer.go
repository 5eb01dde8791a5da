// Package importer loads workout history from Alpha Progression exports
// into the GainsLog store, advancing personal records on the way.
package importer

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/meltforce/gainslog/internal/importer/alpha"
	"github.com/meltforce/gainslog/internal/models"
	"github.com/meltforce/gainslog/internal/records"
)

// Store is the subset of storage the importer writes through.
type Store interface {
	AddSession(ctx context.Context, session *models.WorkoutSession) (int64, error)
	GetAllSessions(ctx context.Context) ([]models.WorkoutSession, error)
	PutRecords(ctx context.Context, recs []models.PersonalRecord) error
	GetAllRecords(ctx context.Context) ([]models.PersonalRecord, error)
}

// Stats tracks import progress.
type Stats struct {
	SessionsParsed     int
	SessionsInserted   int
	SessionsDuplicated int
	SessionsEmpty      int
	WarmupsSkipped     int
	RecordsAdvanced    int
}

// Importer converts parsed sessions and stores them oldest first so records
// advance in the order they were set.
type Importer struct {
	store  Store
	engine *records.Engine
	log    *slog.Logger
	dryRun bool
	stats  Stats
}

// New creates a new Importer. In dry-run mode nothing is written; records
// are still evaluated so the report shows what would advance.
func New(store Store, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{
		store:  store,
		engine: records.NewEngine(store, log),
		log:    log,
		dryRun: dryRun,
	}
}

// Import parses an export and stores every session not already present.
// A session counts as present when a stored session has the same date and
// exercise names.
func (imp *Importer) Import(ctx context.Context, r io.Reader) (*Stats, error) {
	parsed, err := alpha.Parse(r)
	if err != nil {
		return &imp.stats, fmt.Errorf("parsing export: %w", err)
	}
	imp.stats.SessionsParsed = len(parsed)

	existing, err := imp.store.GetAllSessions(ctx)
	if err != nil {
		return &imp.stats, fmt.Errorf("loading sessions: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, s := range existing {
		seen[fingerprint(s)] = true
	}

	stored, err := imp.store.GetAllRecords(ctx)
	if err != nil {
		return &imp.stats, fmt.Errorf("loading records: %w", err)
	}
	known := make(map[string]models.PersonalRecord, len(stored))
	for _, rec := range stored {
		known[rec.Name] = rec
	}

	sessions := imp.convert(parsed)
	slices.SortStableFunc(sessions, func(a, b models.WorkoutSession) int {
		return cmp.Compare(a.Date, b.Date)
	})

	for _, s := range sessions {
		if err := ctx.Err(); err != nil {
			return &imp.stats, err
		}
		fp := fingerprint(s)
		if seen[fp] {
			imp.stats.SessionsDuplicated++
			continue
		}
		seen[fp] = true

		if imp.dryRun {
			advanced := records.Evaluate(known, s)
			for _, rec := range advanced {
				known[rec.Name] = rec
			}
			imp.stats.RecordsAdvanced += len(advanced)
			imp.stats.SessionsInserted++
			continue
		}

		advanced, err := imp.engine.Apply(ctx, known, s)
		if err != nil {
			return &imp.stats, fmt.Errorf("updating records for %s: %w", s.Date, err)
		}
		imp.stats.RecordsAdvanced += len(advanced)
		if _, err := imp.store.AddSession(ctx, &s); err != nil {
			return &imp.stats, fmt.Errorf("saving session %s: %w", s.Date, err)
		}
		imp.stats.SessionsInserted++
		imp.log.Debug("session imported", "date", s.Date, "exercises", len(s.Exercises))
	}

	return &imp.stats, nil
}

// convert maps export sessions to workout sessions. Working sets become
// completed sets; warm-ups are dropped. Sessions without working sets are
// skipped.
func (imp *Importer) convert(parsed []alpha.Session) []models.WorkoutSession {
	var out []models.WorkoutSession
	for _, ps := range parsed {
		s := models.WorkoutSession{Date: ps.Date.Format(models.DateLayout)}
		for _, pe := range ps.Exercises {
			ex := models.Exercise{ID: uuid.NewString(), Name: pe.Name}
			for _, set := range pe.Sets {
				if set.IsWarmup {
					imp.stats.WarmupsSkipped++
					continue
				}
				ex.Sets = append(ex.Sets, models.Set{
					SetNumber: len(ex.Sets) + 1,
					Weight:    models.Float(set.WeightKg),
					Reps:      models.Int(set.Reps),
					Completed: true,
				})
			}
			if len(ex.Sets) > 0 {
				s.Exercises = append(s.Exercises, ex)
			}
		}
		if len(s.Exercises) == 0 {
			imp.stats.SessionsEmpty++
			continue
		}
		out = append(out, s)
	}
	return out
}

func fingerprint(s models.WorkoutSession) string {
	fp := s.Date
	for _, ex := range s.Exercises {
		fp += "|" + records.Normalize(ex.Name)
	}
	return fp
}

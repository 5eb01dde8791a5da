// Package records decides when a completed set becomes a personal record.
//
// Records are ordered by weight first, then reps: a candidate replaces the
// incumbent only with a strictly heavier weight, or the same weight for
// strictly more reps. Equal results never replace the incumbent, so a
// record never moves backwards.
package records

import (
	"context"
	"log/slog"
	"strings"

	"github.com/meltforce/gainslog/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize returns the record key for an exercise name. A Caser holds
// state, so one is built per call.
func Normalize(name string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(name))
}

// Beats reports whether candidate strictly improves on incumbent.
func Beats(candidate, incumbent models.PersonalRecord) bool {
	if candidate.Weight != incumbent.Weight {
		return candidate.Weight > incumbent.Weight
	}
	return candidate.Reps > incumbent.Reps
}

// Evaluate returns the records advanced by the session's completed sets, one
// per key, in the order the keys first advanced. known is not modified.
func Evaluate(known map[string]models.PersonalRecord, session models.WorkoutSession) []models.PersonalRecord {
	best := make(map[string]models.PersonalRecord)
	var order []string

	for _, ex := range session.Exercises {
		key := Normalize(ex.Name)
		if key == "" {
			continue
		}
		for _, set := range ex.Sets {
			if !set.HasResult() {
				continue
			}
			candidate := models.PersonalRecord{
				Name:   key,
				Weight: *set.Weight,
				Reps:   *set.Reps,
				Date:   session.Date,
			}

			incumbent, advanced := best[key]
			if !advanced {
				var ok bool
				incumbent, ok = known[key]
				if !ok {
					best[key] = candidate
					order = append(order, key)
					continue
				}
			}
			if Beats(candidate, incumbent) {
				if !advanced {
					order = append(order, key)
				}
				best[key] = candidate
			}
		}
	}

	out := make([]models.PersonalRecord, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}

// Writer persists a batch of records atomically.
type Writer interface {
	PutRecords(ctx context.Context, recs []models.PersonalRecord) error
}

// Engine applies Evaluate and persists the result.
type Engine struct {
	w   Writer
	log *slog.Logger
}

// NewEngine creates an Engine writing through w.
func NewEngine(w Writer, log *slog.Logger) *Engine {
	return &Engine{w: w, log: log}
}

// Apply evaluates the session against known, writes every advanced record in
// one batch and, only once the write succeeded, merges them into known.
// Write errors are returned unchanged and leave known untouched.
func (e *Engine) Apply(ctx context.Context, known map[string]models.PersonalRecord, session models.WorkoutSession) ([]models.PersonalRecord, error) {
	advanced := Evaluate(known, session)
	if len(advanced) == 0 {
		return nil, nil
	}
	if err := e.w.PutRecords(ctx, advanced); err != nil {
		return nil, err
	}
	for _, r := range advanced {
		known[r.Name] = r
		e.log.Info("new personal record", "exercise", r.Name, "weight", r.Weight, "reps", r.Reps)
	}
	return advanced, nil
}

// Package app is the foreground of GainsLog: the active session, the
// in-memory personal records, routines and settings, and the data wipe.
package app

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/meltforce/gainslog/internal/models"
	"github.com/meltforce/gainslog/internal/records"
	"github.com/meltforce/gainslog/internal/settings"
)

var (
	ErrEmptySession   = errors.New("cannot save an empty workout")
	ErrInvalidSession = errors.New("invalid workout session")
)

// Store is the structured store as used by the foreground.
type Store interface {
	Open(ctx context.Context) error
	Close() error
	AddSession(ctx context.Context, session *models.WorkoutSession) (int64, error)
	GetAllSessions(ctx context.Context) ([]models.WorkoutSession, error)
	PutRecords(ctx context.Context, recs []models.PersonalRecord) error
	GetAllRecords(ctx context.Context) ([]models.PersonalRecord, error)
	ClearAll(ctx context.Context) error
}

// Controller is the foreground's view of the background controller.
type Controller interface {
	Active() bool
	RequestClear(ctx context.Context) error
}

// App owns all foreground state. Nothing here is shared with the background
// controller except through the Controller.
type App struct {
	store    Store
	ctrl     Controller
	settings *settings.Store
	engine   *records.Engine
	log      *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	records map[string]models.PersonalRecord
	current models.WorkoutSession
}

// New creates an App. ctrl may be nil when no background controller runs.
func New(store Store, ctrl Controller, st *settings.Store, log *slog.Logger) *App {
	a := &App{
		store:    store,
		ctrl:     ctrl,
		settings: st,
		engine:   records.NewEngine(store, log),
		log:      log,
		now:      time.Now,
		records:  map[string]models.PersonalRecord{},
	}
	a.current = a.emptySession()
	return a
}

func (a *App) emptySession() models.WorkoutSession {
	return models.WorkoutSession{Date: models.Today(a.now())}
}

// Init loads the personal records from the store. The store must be open.
func (a *App) Init(ctx context.Context) error {
	recs, err := a.store.GetAllRecords(ctx)
	if err != nil {
		return fmt.Errorf("loading personal records: %w", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = make(map[string]models.PersonalRecord, len(recs))
	for _, r := range recs {
		a.records[r.Name] = r
	}
	a.log.Info("personal records loaded", "count", len(recs))
	return nil
}

// Current returns a copy of the session being logged.
func (a *App) Current() models.WorkoutSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current.Clone()
}

// SetCurrent replaces the session being logged.
func (a *App) SetCurrent(s models.WorkoutSession) {
	a.mu.Lock()
	a.current = s.Clone()
	a.mu.Unlock()
}

// FinishSession stamps the session with today's date, advances personal
// records, and stores it. The session is only stored once the records are.
func (a *App) FinishSession(ctx context.Context, s models.WorkoutSession) (models.WorkoutSession, []models.PersonalRecord, error) {
	if len(s.Exercises) == 0 {
		return models.WorkoutSession{}, nil, ErrEmptySession
	}
	s = s.Clone()
	s.ID = 0
	s.Date = models.Today(a.now())
	if err := s.Validate(); err != nil {
		return models.WorkoutSession{}, nil, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	advanced, err := a.engine.Apply(ctx, a.records, s)
	if err != nil {
		return models.WorkoutSession{}, nil, fmt.Errorf("updating personal records: %w", err)
	}
	if _, err := a.store.AddSession(ctx, &s); err != nil {
		return models.WorkoutSession{}, advanced, fmt.Errorf("saving session: %w", err)
	}

	a.current = a.emptySession()
	a.log.Info("workout saved", "id", s.ID, "exercises", len(s.Exercises), "new_records", len(advanced))
	return s, advanced, nil
}

// History returns all stored sessions, most recent first.
func (a *App) History(ctx context.Context) ([]models.WorkoutSession, error) {
	sessions, err := a.store.GetAllSessions(ctx)
	if err != nil {
		return nil, err
	}
	slices.Reverse(sessions)
	return sessions, nil
}

// Records returns the personal records, heaviest first.
func (a *App) Records() []models.PersonalRecord {
	a.mu.Lock()
	out := make([]models.PersonalRecord, 0, len(a.records))
	for _, r := range a.records {
		out = append(out, r)
	}
	a.mu.Unlock()

	slices.SortFunc(out, func(x, y models.PersonalRecord) int {
		if c := cmp.Compare(y.Weight, x.Weight); c != 0 {
			return c
		}
		return cmp.Compare(x.Name, y.Name)
	})
	return out
}

// Stats summarizes the profile.
type Stats struct {
	Sessions int `json:"sessions"`
	Records  int `json:"records"`
}

// Stats counts completed sessions and personal records.
func (a *App) Stats(ctx context.Context) (Stats, error) {
	sessions, err := a.store.GetAllSessions(ctx)
	if err != nil {
		return Stats{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return Stats{Sessions: len(sessions), Records: len(a.records)}, nil
}

// RestDuration returns the rest timer length.
func (a *App) RestDuration() time.Duration {
	return time.Duration(a.settings.RestDuration()) * time.Second
}

// SetRestDuration stores the rest timer length in whole seconds.
func (a *App) SetRestDuration(seconds int) error {
	return a.settings.SetRestDuration(seconds)
}

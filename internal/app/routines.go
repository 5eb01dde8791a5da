package app

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/meltforce/gainslog/internal/models"
)

var ErrRoutineNotFound = errors.New("routine not found")

// Routines returns the saved routine templates.
func (a *App) Routines() []models.Routine {
	return a.settings.Routines()
}

// CreateRoutine saves a new routine. Exercises without an id get one.
func (a *App) CreateRoutine(name string, exercises []models.Exercise) (models.Routine, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Routine{}, fmt.Errorf("routine name must not be blank")
	}
	r := models.Routine{ID: uuid.NewString(), Name: name, Exercises: make([]models.Exercise, 0, len(exercises))}
	for _, ex := range exercises {
		ex = ex.Clone()
		if ex.ID == "" {
			ex.ID = uuid.NewString()
		}
		r.Exercises = append(r.Exercises, ex)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	routines := append(a.settings.Routines(), r)
	if err := a.settings.SetRoutines(routines); err != nil {
		return models.Routine{}, fmt.Errorf("saving routines: %w", err)
	}
	return r, nil
}

// DeleteRoutine removes a routine by id.
func (a *App) DeleteRoutine(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	routines := a.settings.Routines()
	i := slices.IndexFunc(routines, func(r models.Routine) bool { return r.ID == id })
	if i < 0 {
		return ErrRoutineNotFound
	}
	if err := a.settings.SetRoutines(slices.Delete(routines, i, i+1)); err != nil {
		return fmt.Errorf("saving routines: %w", err)
	}
	return nil
}

// StartRoutine replaces the current session with a fresh copy of the
// routine: new exercise ids and no completed sets.
func (a *App) StartRoutine(id string) (models.WorkoutSession, error) {
	routines := a.settings.Routines()
	i := slices.IndexFunc(routines, func(r models.Routine) bool { return r.ID == id })
	if i < 0 {
		return models.WorkoutSession{}, ErrRoutineNotFound
	}

	s := a.emptySession()
	for _, ex := range routines[i].Exercises {
		ex = ex.Clone()
		ex.ID = uuid.NewString()
		for j := range ex.Sets {
			ex.Sets[j].Completed = false
		}
		s.Exercises = append(s.Exercises, ex)
	}

	a.SetCurrent(s)
	a.log.Info("routine started", "routine", routines[i].Name, "exercises", len(s.Exercises))
	return s, nil
}

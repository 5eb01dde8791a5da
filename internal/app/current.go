package app

import (
	"strings"

	"github.com/google/uuid"
	"github.com/meltforce/gainslog/internal/models"
)

// editCurrent applies fn to the session being logged and returns a copy of
// the result. The session is left unchanged when fn fails.
func (a *App) editCurrent(fn func(s *models.WorkoutSession) error) (models.WorkoutSession, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.current.Clone()
	if err := fn(&s); err != nil {
		return models.WorkoutSession{}, err
	}
	a.current = s
	return s.Clone(), nil
}

// AddExercise appends an exercise with one empty set.
func (a *App) AddExercise(name string) (models.WorkoutSession, error) {
	if strings.TrimSpace(name) == "" {
		return models.WorkoutSession{}, models.ErrBlankName
	}
	return a.editCurrent(func(s *models.WorkoutSession) error {
		s.AddExercise(uuid.NewString(), name)
		return nil
	})
}

func (a *App) RenameExercise(id, name string) (models.WorkoutSession, error) {
	return a.editCurrent(func(s *models.WorkoutSession) error {
		return s.RenameExercise(id, name)
	})
}

func (a *App) RemoveExercise(id string) (models.WorkoutSession, error) {
	return a.editCurrent(func(s *models.WorkoutSession) error {
		return s.RemoveExercise(id)
	})
}

// AddSet appends a set prefilled from the exercise's last set.
func (a *App) AddSet(exerciseID string) (models.WorkoutSession, error) {
	return a.editCurrent(func(s *models.WorkoutSession) error {
		ex, err := s.Exercise(exerciseID)
		if err != nil {
			return err
		}
		ex.AddSet()
		return nil
	})
}

// CompleteSet marks a set done; completing the last set opens the next one.
func (a *App) CompleteSet(exerciseID string, setNumber int) (models.WorkoutSession, error) {
	return a.editCurrent(func(s *models.WorkoutSession) error {
		ex, err := s.Exercise(exerciseID)
		if err != nil {
			return err
		}
		return ex.CompleteSet(setNumber)
	})
}

func (a *App) UncompleteSet(exerciseID string, setNumber int) (models.WorkoutSession, error) {
	return a.editCurrent(func(s *models.WorkoutSession) error {
		ex, err := s.Exercise(exerciseID)
		if err != nil {
			return err
		}
		return ex.UncompleteSet(setNumber)
	})
}

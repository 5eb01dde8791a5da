package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrSetNotFound      = errors.New("set not found")
	ErrBlankName        = errors.New("exercise name must not be blank")
)

// AddExercise appends a new exercise with a single empty set.
func (s *WorkoutSession) AddExercise(id, name string) *Exercise {
	s.Exercises = append(s.Exercises, Exercise{
		ID:   id,
		Name: strings.TrimSpace(name),
		Sets: []Set{{SetNumber: 1}},
	})
	return &s.Exercises[len(s.Exercises)-1]
}

// Exercise returns the exercise with the given id.
func (s *WorkoutSession) Exercise(id string) (*Exercise, error) {
	for i := range s.Exercises {
		if s.Exercises[i].ID == id {
			return &s.Exercises[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrExerciseNotFound, id)
}

// RemoveExercise drops the exercise and all of its sets.
func (s *WorkoutSession) RemoveExercise(id string) error {
	for i := range s.Exercises {
		if s.Exercises[i].ID == id {
			s.Exercises = append(s.Exercises[:i], s.Exercises[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrExerciseNotFound, id)
}

// RenameExercise replaces an exercise name. Blank names are rejected.
func (s *WorkoutSession) RenameExercise(id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrBlankName
	}
	ex, err := s.Exercise(id)
	if err != nil {
		return err
	}
	ex.Name = name
	return nil
}

// AddSet appends a set pre-filled with the previous set's weight and reps.
func (e *Exercise) AddSet() *Set {
	next := Set{SetNumber: len(e.Sets) + 1}
	if n := len(e.Sets); n > 0 {
		prev := e.Sets[n-1].Clone()
		next.Weight, next.Reps = prev.Weight, prev.Reps
	}
	e.Sets = append(e.Sets, next)
	return &e.Sets[len(e.Sets)-1]
}

// CompleteSet marks a set completed. Empty weight or reps are taken from the
// previous set, and completing the last set appends a fresh one.
func (e *Exercise) CompleteSet(setNumber int) error {
	if setNumber < 1 || setNumber > len(e.Sets) {
		return fmt.Errorf("%w: exercise %q has no set %d", ErrSetNotFound, e.Name, setNumber)
	}
	set := &e.Sets[setNumber-1]
	if setNumber > 1 {
		prev := e.Sets[setNumber-2].Clone()
		if set.Weight == nil {
			set.Weight = prev.Weight
		}
		if set.Reps == nil {
			set.Reps = prev.Reps
		}
	}
	set.Completed = true
	if setNumber == len(e.Sets) {
		e.AddSet()
	}
	return nil
}

// UncompleteSet reverts a completed set and clears its values.
func (e *Exercise) UncompleteSet(setNumber int) error {
	if setNumber < 1 || setNumber > len(e.Sets) {
		return fmt.Errorf("%w: exercise %q has no set %d", ErrSetNotFound, e.Name, setNumber)
	}
	set := &e.Sets[setNumber-1]
	set.Completed = false
	set.Weight = nil
	set.Reps = nil
	return nil
}

package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO calendar-day form used for session and record dates.
const DateLayout = "2006-01-02"

// Today returns t as an ISO calendar day.
func Today(t time.Time) string {
	return t.Format(DateLayout)
}

// WorkoutSession is one logged workout. ID is zero until the store assigns one.
type WorkoutSession struct {
	ID        int64      `json:"id,omitempty"`
	Date      string     `json:"date"`
	Exercises []Exercise `json:"exercises"`
}

// Exercise is a single exercise performed within a session.
type Exercise struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Sets []Set  `json:"sets"`
}

// Set is one set of an exercise. Nil Weight or Reps means the field is empty.
type Set struct {
	SetNumber int      `json:"setNumber"`
	Weight    *float64 `json:"weight"`
	Reps      *int     `json:"reps"`
	Completed bool     `json:"completed"`
}

// PersonalRecord is the best known (weight, reps) for a normalized exercise name.
type PersonalRecord struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Reps   int     `json:"reps"`
	Date   string  `json:"date"`
}

// Routine is a reusable session template.
type Routine struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Exercises []Exercise `json:"exercises"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Clone returns a deep copy of the session.
func (s WorkoutSession) Clone() WorkoutSession {
	out := WorkoutSession{ID: s.ID, Date: s.Date}
	if s.Exercises != nil {
		out.Exercises = make([]Exercise, len(s.Exercises))
		for i, ex := range s.Exercises {
			out.Exercises[i] = ex.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the exercise.
func (e Exercise) Clone() Exercise {
	out := Exercise{ID: e.ID, Name: e.Name}
	if e.Sets != nil {
		out.Sets = make([]Set, len(e.Sets))
		for i, set := range e.Sets {
			out.Sets[i] = set.Clone()
		}
	}
	return out
}

// Clone returns a copy of the set that shares no pointers with the original.
func (s Set) Clone() Set {
	out := Set{SetNumber: s.SetNumber, Completed: s.Completed}
	if s.Weight != nil {
		out.Weight = Float(*s.Weight)
	}
	if s.Reps != nil {
		out.Reps = Int(*s.Reps)
	}
	return out
}

// HasResult reports whether the set counts toward records: completed with
// both weight and reps present.
func (s Set) HasResult() bool {
	return s.Completed && s.Weight != nil && s.Reps != nil
}

// Validate checks the structural invariants of a session before it is stored.
func (s WorkoutSession) Validate() error {
	if _, err := time.Parse(DateLayout, s.Date); err != nil {
		return fmt.Errorf("invalid session date %q: %w", s.Date, err)
	}
	seen := make(map[string]bool, len(s.Exercises))
	for i, ex := range s.Exercises {
		if ex.ID == "" {
			return fmt.Errorf("exercise %d has no id", i+1)
		}
		if seen[ex.ID] {
			return fmt.Errorf("duplicate exercise id %q", ex.ID)
		}
		seen[ex.ID] = true
		if strings.TrimSpace(ex.Name) == "" {
			return fmt.Errorf("exercise %q has no name", ex.ID)
		}
		for j, set := range ex.Sets {
			if set.SetNumber != j+1 {
				return fmt.Errorf("exercise %q: set %d has number %d", ex.Name, j+1, set.SetNumber)
			}
		}
	}
	return nil
}

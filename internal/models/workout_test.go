package models

import "testing"

// TestCompleteSetPrefillsFromPrevious verifies that completing a set with empty
// values copies the previous set and appends a new set after the last one.
func TestCompleteSetPrefillsFromPrevious(t *testing.T) {
	var s WorkoutSession
	ex := s.AddExercise("ex-1", "  Bench Press ")
	if ex.Name != "Bench Press" {
		t.Errorf("name = %q, want trimmed", ex.Name)
	}
	ex.Sets[0].Weight = Float(100)
	ex.Sets[0].Reps = Int(5)
	if err := ex.CompleteSet(1); err != nil {
		t.Fatalf("CompleteSet(1): %v", err)
	}
	if len(ex.Sets) != 2 {
		t.Fatalf("sets = %d, want 2 after completing the last set", len(ex.Sets))
	}

	// Second set was auto-filled by AddSet; clear it to exercise the prefill path.
	ex.Sets[1].Weight = nil
	ex.Sets[1].Reps = nil
	if err := ex.CompleteSet(2); err != nil {
		t.Fatalf("CompleteSet(2): %v", err)
	}
	got := ex.Sets[1]
	if got.Weight == nil || *got.Weight != 100 || got.Reps == nil || *got.Reps != 5 {
		t.Errorf("set 2 = %+v, want prefilled 100x5", got)
	}
	if ex.Sets[2].SetNumber != 3 {
		t.Errorf("set numbers not dense: %d", ex.Sets[2].SetNumber)
	}

	// Prefilled values must not alias the previous set.
	*ex.Sets[1].Weight = 110
	if *ex.Sets[0].Weight != 100 {
		t.Errorf("set 1 weight changed through alias: %v", *ex.Sets[0].Weight)
	}
}

// TestUncompleteSetClears verifies that reverting a set empties its values.
func TestUncompleteSetClears(t *testing.T) {
	ex := &Exercise{ID: "a", Name: "Squat", Sets: []Set{{SetNumber: 1, Weight: Float(80), Reps: Int(8), Completed: true}}}
	if err := ex.UncompleteSet(1); err != nil {
		t.Fatal(err)
	}
	if ex.Sets[0].Completed || ex.Sets[0].Weight != nil || ex.Sets[0].Reps != nil {
		t.Errorf("set = %+v, want cleared", ex.Sets[0])
	}
	if err := ex.UncompleteSet(2); err == nil {
		t.Error("expected error for missing set")
	}
}

// TestRemoveAndRenameExercise covers exercise management on an active session.
func TestRemoveAndRenameExercise(t *testing.T) {
	var s WorkoutSession
	s.AddExercise("a", "Squat")
	s.AddExercise("b", "Deadlift")

	if err := s.RenameExercise("b", "  "); err == nil {
		t.Error("expected error for blank name")
	}
	if err := s.RenameExercise("b", "Romanian Deadlift"); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveExercise("a"); err != nil {
		t.Fatal(err)
	}
	if len(s.Exercises) != 1 || s.Exercises[0].Name != "Romanian Deadlift" {
		t.Errorf("exercises = %+v", s.Exercises)
	}
	if err := s.RemoveExercise("a"); err == nil {
		t.Error("expected error removing a missing exercise")
	}
}

// TestValidate checks date format, exercise ids, and dense set numbering.
func TestValidate(t *testing.T) {
	valid := WorkoutSession{Date: "2025-03-01", Exercises: []Exercise{
		{ID: "a", Name: "Squat", Sets: []Set{{SetNumber: 1}, {SetNumber: 2}}},
	}}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid session rejected: %v", err)
	}

	tests := []struct {
		name string
		s    WorkoutSession
	}{
		{"bad date", WorkoutSession{Date: "03/01/2025"}},
		{"missing id", WorkoutSession{Date: "2025-03-01", Exercises: []Exercise{{Name: "Squat"}}}},
		{"duplicate id", WorkoutSession{Date: "2025-03-01", Exercises: []Exercise{{ID: "a", Name: "x"}, {ID: "a", Name: "y"}}}},
		{"gap in sets", WorkoutSession{Date: "2025-03-01", Exercises: []Exercise{{ID: "a", Name: "x", Sets: []Set{{SetNumber: 2}}}}}},
	}
	for _, tt := range tests {
		if err := tt.s.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

// TestCloneIsDeep verifies that a cloned session shares no set pointers.
func TestCloneIsDeep(t *testing.T) {
	s := WorkoutSession{ID: 3, Date: "2025-03-01", Exercises: []Exercise{
		{ID: "a", Name: "Squat", Sets: []Set{{SetNumber: 1, Weight: Float(60), Reps: Int(10)}}},
	}}
	c := s.Clone()
	*c.Exercises[0].Sets[0].Weight = 70
	c.Exercises[0].Name = "Front Squat"
	if *s.Exercises[0].Sets[0].Weight != 60 || s.Exercises[0].Name != "Squat" {
		t.Errorf("original mutated through clone: %+v", s.Exercises[0])
	}
}

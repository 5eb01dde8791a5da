package alpha

import (
	"strings"
	"testing"
)

const sampleCSV = `
"Legs · Day 2 · Week 4 · Push-Pull-Legs";"2026-02-19 4:54 h";"1:02 hr"
"1. Hack Squats · Machine · 8 reps";"WU1 · 37,5 kg · 9 reps<br>WU2 · 72,5 kg · 7 reps"
#;KG;REPS;RIR
1;115;8;1
2;115;10;1
3;115;10;1
"2. Sumo Squats · Smith machine · 10 reps";"WU1 · 35 kg · 8 reps"
#;KG;REPS;RIR
1;70;8;1
2;70;12;1
"3. Hyperextensions on Roman Chair · Bodyweight · 10 reps";"WU1 · +0 kg · 8 reps"
#;KG;REPS;RIR
1;+35;10;0
2;+35;9;1
3;+35;10;0
"4. Reverse Lunges · Dumbbells · 10 reps"
#;KG;REPS;RIR
1;10;10;1
2;10;10;1
3;10;10;0
"5. Standing Calf Raises · Machine · 12 reps";"WU1 · 47,5 kg · 8 reps"
#;KG;REPS;RIR
1;157,5;11;1
2;157,5;11;0
3;157,5;10;0
"6. Hanging Leg Raises · Bodyweight · 12 reps · 2 dropsets"
#;KG;REPS;RIR
1;+0;12;1
2;+0;12;1
3;+0;12;0

"Push · Day 1 · Week 4 · Push-Pull-Legs";"2026-02-17 5:04 h";"1:12 hr"
"1. Bench Press · Barbell · 6 reps";"WU1 · 22,5 kg · 10 reps<br>WU2 · 47,5 kg · 8 reps<br>WU3 · 77,5 kg · 6 reps"
#;KG;REPS;RIR
1;102,5;6;0
2;102,5;6;0
3;100;6;0
`

// TestParseCompleteSessions covers the happy path: two sessions, warm-ups,
// multi-word names and equipment, modifiers and bodyweight sets.
func TestParseCompleteSessions(t *testing.T) {
	sessions, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}

	s1 := sessions[0]
	if s1.Name != "Legs · Day 2 · Week 4 · Push-Pull-Legs" {
		t.Errorf("s1.Name = %q", s1.Name)
	}
	if s1.Duration != "1:02 hr" {
		t.Errorf("s1.Duration = %q", s1.Duration)
	}
	if got := s1.Date.Format("2006-01-02 15:04"); got != "2026-02-19 04:54" {
		t.Errorf("s1.Date = %s", got)
	}
	if len(s1.Exercises) != 6 {
		t.Fatalf("s1 exercises = %d, want 6", len(s1.Exercises))
	}

	tests := []struct {
		name      string
		equipment string
		target    int
		sets      int
	}{
		{"Hack Squats", "Machine", 8, 5},
		{"Sumo Squats", "Smith machine", 10, 3},
		{"Hyperextensions on Roman Chair", "Bodyweight", 10, 4},
		{"Reverse Lunges", "Dumbbells", 10, 3},
		{"Standing Calf Raises", "Machine", 12, 4},
		{"Hanging Leg Raises", "Bodyweight", 12, 3},
	}
	for i, tt := range tests {
		ex := s1.Exercises[i]
		if ex.Number != i+1 {
			t.Errorf("ex%d.Number = %d", i+1, ex.Number)
		}
		if ex.Name != tt.name {
			t.Errorf("ex%d.Name = %q, want %q", i+1, ex.Name, tt.name)
		}
		if ex.Equipment != tt.equipment {
			t.Errorf("ex%d.Equipment = %q, want %q", i+1, ex.Equipment, tt.equipment)
		}
		if ex.TargetReps != tt.target {
			t.Errorf("ex%d.TargetReps = %d, want %d", i+1, ex.TargetReps, tt.target)
		}
		if len(ex.Sets) != tt.sets {
			t.Errorf("ex%d sets = %d, want %d", i+1, len(ex.Sets), tt.sets)
		}
	}

	calf := s1.Exercises[4].Sets[1]
	if calf.IsWarmup || calf.WeightKg != 157.5 || calf.Reps != 11 {
		t.Errorf("calf set 1 = %+v, want working 157.5x11", calf)
	}

	s2 := sessions[1]
	if s2.Name != "Push · Day 1 · Week 4 · Push-Pull-Legs" {
		t.Errorf("s2.Name = %q", s2.Name)
	}
	if len(s2.Exercises) != 1 || len(s2.Exercises[0].Sets) != 6 {
		t.Errorf("s2 = %+v, want bench press with 3 warm-ups and 3 working sets", s2.Exercises)
	}
}

// TestParseErrors verifies structural problems are reported with a line.
func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"exercise without session", `"1. Bench Press · Barbell · 6 reps"`},
		{"set without exercise", "\"Push\";\"2026-02-17 5:04 h\";\"1:12 hr\"\n1;100;6;0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), "line ") {
				t.Errorf("error %q does not name a line", err)
			}
		})
	}
}

// TestParseWeight verifies decimal commas and the +N bodyweight notation.
func TestParseWeight(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantBW bool
	}{
		{"102,5", 102.5, false},
		{"100", 100, false},
		{"+35", 35, true},
		{"+0", 0, true},
		{" 0,5 ", 0.5, false},
	}
	for _, tt := range tests {
		got, bw := parseWeight(tt.in)
		if got != tt.want || bw != tt.wantBW {
			t.Errorf("parseWeight(%q) = (%v, %v), want (%v, %v)", tt.in, got, bw, tt.want, tt.wantBW)
		}
	}
}

// TestWarmupParsing verifies warm-up extraction from the exercise header's
// second field.
func TestWarmupParsing(t *testing.T) {
	sets := parseWarmups("WU1 · 37,5 kg · 9 reps<br>WU2 · +0 kg · 7 reps")
	if len(sets) != 2 {
		t.Fatalf("warmup sets = %d, want 2", len(sets))
	}
	if sets[0].WeightKg != 37.5 || sets[0].Reps != 9 || !sets[0].IsWarmup {
		t.Errorf("wu1 = %+v", sets[0])
	}
	if !sets[1].IsBodyweightPlus || sets[1].WeightKg != 0 {
		t.Errorf("wu2 = %+v, want bodyweight +0", sets[1])
	}
}

// TestEmptyInput verifies that empty input returns no sessions without error.
func TestEmptyInput(t *testing.T) {
	sessions, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("sessions = %d, want 0", len(sessions))
	}
}

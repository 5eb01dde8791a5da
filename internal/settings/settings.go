// Package settings persists small user preferences outside the workout
// database, as a flat string map in a YAML file.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/meltforce/gainslog/internal/models"
	"gopkg.in/yaml.v3"
)

const (
	KeyRestDuration = "gainslog_rest_duration"
	KeyRoutines     = "gainslog_routines"

	DefaultRestDuration = 90
	MinRestDuration     = 30
	MaxRestDuration     = 300
)

// ErrRestDurationRange is returned for a rest duration outside 30-300 seconds.
var ErrRestDurationRange = fmt.Errorf("rest duration must be between %d and %d seconds", MinRestDuration, MaxRestDuration)

// Store is a string key-value map saved to a YAML file on every change.
type Store struct {
	path string

	mu     sync.Mutex
	values map[string]string
}

// Open loads the settings file at path. A missing file is an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path, values: map[string]string{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("parsing settings: %w", err)
	}
	if s.values == nil {
		s.values = map[string]string{}
	}
	return s, nil
}

// Get returns the value for key and whether it was set.
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key and saves the file.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.values[key]
	s.values[key] = value
	if err := s.save(); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return err
	}
	return nil
}

// Remove deletes the given keys and saves the file.
func (s *Store) Remove(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.values, k)
	}
	return s.save()
}

// save writes the map to a temp file and renames it over the settings file.
func (s *Store) save() error {
	data, err := yaml.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing settings: %w", err)
	}
	return nil
}

// RestDuration returns the rest timer length in seconds. Unset or
// unparseable values fall back to the default.
func (s *Store) RestDuration() int {
	v, ok := s.Get(KeyRestDuration)
	if !ok {
		return DefaultRestDuration
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < MinRestDuration || n > MaxRestDuration {
		return DefaultRestDuration
	}
	return n
}

// SetRestDuration stores the rest timer length in seconds.
func (s *Store) SetRestDuration(seconds int) error {
	if seconds < MinRestDuration || seconds > MaxRestDuration {
		return ErrRestDurationRange
	}
	return s.Set(KeyRestDuration, strconv.Itoa(seconds))
}

// Routines returns the saved routines. A corrupt value reads as none.
func (s *Store) Routines() []models.Routine {
	v, ok := s.Get(KeyRoutines)
	if !ok {
		return nil
	}
	var rs []models.Routine
	if err := json.Unmarshal([]byte(v), &rs); err != nil {
		return nil
	}
	return rs
}

// SetRoutines replaces the saved routines.
func (s *Store) SetRoutines(rs []models.Routine) error {
	data, err := json.Marshal(rs)
	if err != nil {
		return fmt.Errorf("encoding routines: %w", err)
	}
	return s.Set(KeyRoutines, string(data))
}

// Wipe removes every key owned by the application.
func (s *Store) Wipe() error {
	return s.Remove(KeyRestDuration, KeyRoutines)
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/meltforce/gainslog/internal/app"
	"github.com/meltforce/gainslog/internal/models"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.app.History(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleFinishSession(w http.ResponseWriter, r *http.Request) {
	var session models.WorkoutSession
	if err := json.NewDecoder(r.Body).Decode(&session); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	saved, advanced, err := s.app.FinishSession(r.Context(), session)
	switch {
	case errors.Is(err, app.ErrEmptySession), errors.Is(err, app.ErrInvalidSession):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	case err != nil:
		s.log.Error("finish session", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if advanced == nil {
		advanced = []models.PersonalRecord{}
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":          saved.ID,
		"date":        saved.Date,
		"new_records": advanced,
	})
}

func (s *Server) handleGetCurrent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Current())
}

func (s *Server) handlePutCurrent(w http.ResponseWriter, r *http.Request) {
	var session models.WorkoutSession
	if err := json.NewDecoder(r.Body).Decode(&session); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	s.app.SetCurrent(session)
	writeJSON(w, http.StatusOK, s.app.Current())
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Records())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.app.Stats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.app.ClearAllData(r.Context())
	body := map[string]string{"outcome": outcome.String(), "message": outcome.Message()}
	if err != nil {
		body["error"] = err.Error()
	}
	status := http.StatusOK
	if outcome == app.ClearFailed {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, body)
}

func (s *Server) handleListRoutines(w http.ResponseWriter, r *http.Request) {
	routines := s.app.Routines()
	if routines == nil {
		routines = []models.Routine{}
	}
	writeJSON(w, http.StatusOK, routines)
}

func (s *Server) handleCreateRoutine(w http.ResponseWriter, r *http.Request) {
	var req models.Routine
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	routine, err := s.app.CreateRoutine(req.Name, req.Exercises)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, routine)
}

func (s *Server) handleDeleteRoutine(w http.ResponseWriter, r *http.Request) {
	if err := s.app.DeleteRoutine(chi.URLParam(r, "id")); err != nil {
		writeRoutineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStartRoutine(w http.ResponseWriter, r *http.Request) {
	session, err := s.app.StartRoutine(chi.URLParam(r, "id"))
	if err != nil {
		writeRoutineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func writeRoutineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, app.ErrRoutineNotFound) {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

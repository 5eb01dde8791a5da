package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/meltforce/gainslog/internal/models"
)

type exerciseName struct {
	Name string `json:"name"`
}

func (s *Server) handleAddExercise(w http.ResponseWriter, r *http.Request) {
	var body exerciseName
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	session, err := s.app.AddExercise(body.Name)
	if err != nil {
		writeEditError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleRenameExercise(w http.ResponseWriter, r *http.Request) {
	var body exerciseName
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	session, err := s.app.RenameExercise(chi.URLParam(r, "id"), body.Name)
	if err != nil {
		writeEditError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleRemoveExercise(w http.ResponseWriter, r *http.Request) {
	session, err := s.app.RemoveExercise(chi.URLParam(r, "id"))
	if err != nil {
		writeEditError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleAddSet(w http.ResponseWriter, r *http.Request) {
	session, err := s.app.AddSet(chi.URLParam(r, "id"))
	if err != nil {
		writeEditError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleCompleteSet(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "set number must be an integer"})
		return
	}
	session, err := s.app.CompleteSet(chi.URLParam(r, "id"), n)
	if err != nil {
		writeEditError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleUncompleteSet(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "set number must be an integer"})
		return
	}
	session, err := s.app.UncompleteSet(chi.URLParam(r, "id"), n)
	if err != nil {
		writeEditError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func writeEditError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrExerciseNotFound), errors.Is(err, models.ErrSetNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrBlankName):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

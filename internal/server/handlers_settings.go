package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/meltforce/gainslog/internal/settings"
)

type restDuration struct {
	Seconds int `json:"seconds"`
}

func (s *Server) handleGetRestDuration(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, restDuration{Seconds: int(s.app.RestDuration().Seconds())})
}

func (s *Server) handlePutRestDuration(w http.ResponseWriter, r *http.Request) {
	var req restDuration
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if err := s.app.SetRestDuration(req.Seconds); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, settings.ErrRestDurationRange) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, req)
}

type restTimerStatus struct {
	Running          bool `json:"running"`
	RemainingSeconds int  `json:"remaining_seconds"`
}

func (s *Server) timerStatus() restTimerStatus {
	return restTimerStatus{
		Running:          s.timer.Running(),
		RemainingSeconds: int(s.timer.Remaining().Round(1e9).Seconds()),
	}
}

func (s *Server) handleRestTimerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.timerStatus())
}

func (s *Server) handleStartRestTimer(w http.ResponseWriter, r *http.Request) {
	s.timer.Start(s.app.RestDuration())
	writeJSON(w, http.StatusOK, s.timerStatus())
}

func (s *Server) handleStopRestTimer(w http.ResponseWriter, r *http.Request) {
	s.timer.Stop()
	writeJSON(w, http.StatusOK, s.timerStatus())
}

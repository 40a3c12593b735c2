// internal/handlers/ping.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shieldbattery/lobby-server/internal/rallypoint"
)

type reportPingRequest struct {
	Player      string `json:"player"`
	ServerIndex int    `json:"serverIndex"`
	LatencyMs   int    `json:"latencyMs"`
}

// ReportPingHandler ingests one latency sample from a client. Game loading
// blocks until every player has reported at least one sample, so clients
// report continuously while in a lobby.
func (s *Server) ReportPingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req reportPingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.Player == "" || req.LatencyMs < 0 {
		http.Error(w, "player and a non-negative latencyMs are required", http.StatusBadRequest)
		return
	}

	latency := time.Duration(req.LatencyMs) * time.Millisecond
	if err := s.Pings.RecordPing(req.Player, req.ServerIndex, latency); err != nil {
		if errors.Is(err, rallypoint.ErrServerOutOfRange) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "error recording ping", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListServersHandler returns the relay fleet so clients know what to ping.
func (s *Server) ListServersHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Pings.Servers())
}

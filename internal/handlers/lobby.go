// internal/handlers/lobby.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shieldbattery/lobby-server/internal/cache"
	"github.com/shieldbattery/lobby-server/internal/lobby"
)

type createLobbyRequest struct {
	Name        string `json:"name"`
	Map         string `json:"map"`
	GameType    string `json:"gameType"`
	GameSubType int    `json:"gameSubType"`
	NumSlots    int    `json:"numSlots"`
	HostName    string `json:"hostName"`
	HostRace    string `json:"hostRace"`
}

// CreateLobbyHandler opens a new named lobby with the caller seated as host.
func (s *Server) CreateLobbyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req createLobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.HostName == "" {
		http.Error(w, "name and hostName are required", http.StatusBadRequest)
		return
	}

	l, err := s.Lobbies.Create(req.Name, req.Map, lobby.GameType(req.GameType),
		req.GameSubType, req.NumSlots, req.HostName, lobby.Race(req.HostRace))
	switch {
	case errors.Is(err, lobby.ErrLobbyExists):
		http.Error(w, "lobby name already in use", http.StatusConflict)
		return
	case errors.Is(err, lobby.ErrBadLobbyConfig):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, "error creating lobby", http.StatusInternalServerError)
		return
	}

	s.Logger.WithField("lobby", l.Name).Info("lobby created")
	if cache.Rdb != nil {
		if err := cache.PublishLifecycleEvent(r.Context(), cache.LifecycleEvent{
			Type:  cache.EventLobbyCreated,
			Lobby: l.Name,
		}); err != nil {
			s.Logger.Warnf("failed to publish lobby_created event: %v", err)
		}
	}
	writeJSON(w, http.StatusCreated, l)
}

// ListLobbiesHandler returns summaries of every open lobby.
func (s *Server) ListLobbiesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Lobbies.List())
}

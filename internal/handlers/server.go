// internal/handlers/server.go

// Package handlers exposes the HTTP and WebSocket surface: user accounts,
// lobby creation/listing, latency reporting, and the per-lobby websocket that
// streams slot updates and drives the countdown/game-load flow.
package handlers

import (
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/shieldbattery/lobby-server/internal/gameloader"
	"github.com/shieldbattery/lobby-server/internal/lobby"
	"github.com/shieldbattery/lobby-server/internal/rallypoint"
)

// Server bundles the collaborators the handlers need.
type Server struct {
	Logger  *logrus.Logger
	Lobbies *lobby.Store
	Loader  *gameloader.Loader
	Pings   *rallypoint.PingRegistry

	mu    sync.Mutex
	rooms map[string]*room
}

// NewServer wires a handler server over the given collaborators.
func NewServer(logger *logrus.Logger, lobbies *lobby.Store, loader *gameloader.Loader, pings *rallypoint.PingRegistry) *Server {
	return &Server{
		Logger:  logger,
		Lobbies: lobbies,
		Loader:  loader,
		Pings:   pings,
		rooms:   make(map[string]*room),
	}
}

// Routes registers every handler on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/create", CreateUserHandler)
	mux.HandleFunc("/users/login", LoginHandler)
	mux.HandleFunc("/lobbies/create", s.CreateLobbyHandler)
	mux.HandleFunc("/lobbies/list", s.ListLobbiesHandler)
	mux.HandleFunc("/lobbies/ws/", s.LobbyWSHandler())
	mux.HandleFunc("/pings/report", s.ReportPingHandler)
	mux.HandleFunc("/pings/servers", s.ListServersHandler)
	return mux
}

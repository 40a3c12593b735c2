// internal/handlers/lobby_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/shieldbattery/lobby-server/internal/auth"
	"github.com/shieldbattery/lobby-server/internal/cache"
	"github.com/shieldbattery/lobby-server/internal/database"
	"github.com/shieldbattery/lobby-server/internal/gameloader"
	"github.com/shieldbattery/lobby-server/internal/lobby"
	"github.com/shieldbattery/lobby-server/internal/middleware"
)

// client is one live websocket connection in a lobby room.
type client struct {
	name string
	out  chan map[string]interface{}
}

// room tracks the live connections of one lobby.
type room struct {
	mu      sync.Mutex
	clients map[string]*client
}

func (rm *room) add(c *client) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.clients[c.name] = c
}

func (rm *room) remove(name string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	delete(rm.clients, name)
}

// broadcast queues msg to every connected client. Slow consumers have their
// message dropped rather than stalling the lobby.
func (rm *room) broadcast(msg map[string]interface{}) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for _, c := range rm.clients {
		select {
		case c.out <- msg:
		default:
		}
	}
}

func (rm *room) sendTo(name string, msg map[string]interface{}) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if c, ok := rm.clients[name]; ok {
		select {
		case c.out <- msg:
		default:
		}
	}
}

func (s *Server) roomFor(lobbyName string) *room {
	s.mu.Lock()
	defer s.mu.Unlock()
	rm, ok := s.rooms[lobbyName]
	if !ok {
		rm = &room{clients: make(map[string]*client)}
		s.rooms[lobbyName] = rm
	}
	return rm
}

func (s *Server) dropRoom(lobbyName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, lobbyName)
}

func stateMsg(l lobby.Lobby) map[string]interface{} {
	return map[string]interface{}{"type": "lobbyState", "lobby": l}
}

func errorMsg(err error) map[string]interface{} {
	return map[string]interface{}{"type": "error", "error": err.Error()}
}

// wsRequest is the envelope for every client-to-server lobby message.
type wsRequest struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	TeamIndex int    `json:"teamIndex"`
	SlotIndex int    `json:"slotIndex"`
	Race      string `json:"race,omitempty"`
	ToTeam    int    `json:"toTeam"`
	ToSlot    int    `json:"toSlot"`
	GameID    string `json:"gameId,omitempty"`
}

// LobbyWSHandler upgrades /lobbies/ws/{name}?player={playerName}&race={race}
// to a websocket. The host's connection attaches to their existing seat;
// anyone else is seated through the balancer. The socket then carries chat,
// slot changes, the countdown, and the game-load notifications.
func (s *Server) LobbyWSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lobbyName := strings.TrimPrefix(r.URL.Path, "/lobbies/ws/")
		if lobbyName == "" {
			http.Error(w, "missing lobby name", http.StatusBadRequest)
			return
		}
		playerName := r.URL.Query().Get("player")
		race := lobby.Race(r.URL.Query().Get("race"))

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"lobby"},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			s.Logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "lobby" {
			c.Close(BadSubprotocolError, "client must speak the lobby subprotocol")
			return
		}
		if playerName == "" {
			c.Close(InvalidPlayerError, "player query parameter is required")
			return
		}
		// Session tokens are optional for lobby sockets, but a presented token
		// must be valid.
		if token := extractCookieToken(r.Header.Get("Cookie"), "auth_token"); token != "" {
			if _, err := auth.AuthenticateJWT(token); err != nil {
				c.Close(websocket.StatusPolicyViolation, "invalid auth token")
				return
			}
		}

		current, ok := s.Lobbies.Get(lobbyName)
		if !ok {
			c.Close(InvalidLobbyError, "lobby does not exist")
			return
		}

		var state lobby.Lobby
		if host, hasHost := current.Host(); hasHost && host.Name == playerName {
			state = current
		} else if _, _, _, seated := lobby.FindSlotByName(current, playerName); seated {
			c.Close(LobbyJoinFailedError, "player name already in use")
			return
		} else {
			state, _, err = s.Lobbies.Join(lobbyName, playerName, race)
			if err != nil {
				c.Close(LobbyJoinFailedError, err.Error())
				return
			}
		}

		middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, r.URL.Path)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		cl := &client{
			name: playerName,
			out:  make(chan map[string]interface{}, 16),
		}
		rm := s.roomFor(lobbyName)
		rm.add(cl)

		go s.writePump(ctx, c, cl)
		rm.broadcast(stateMsg(state))

		readErr := s.readPump(ctx, c, rm, lobbyName, cl)

		rm.remove(cl.name)
		if left, leaveErr := s.Lobbies.Leave(lobbyName, playerName); leaveErr == nil {
			if left == nil {
				rm.broadcast(map[string]interface{}{"type": "lobbyClosed"})
				s.dropRoom(lobbyName)
				s.publishEvent(cache.LifecycleEvent{Type: cache.EventLobbyClosed, Lobby: lobbyName})
			} else {
				rm.broadcast(stateMsg(*left))
			}
		}
		middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, r.URL.Path, readErr)
		c.Close(websocket.StatusNormalClosure, "bye")
	}
}

func (s *Server) writePump(ctx context.Context, c *websocket.Conn, cl *client) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-cl.out:
			data, err := json.Marshal(msg)
			if err != nil {
				s.Logger.Warnf("failed to marshal ws message: %v", err)
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// readPump consumes client messages until the connection drops or the client
// leaves. Returns the terminal read error, if any.
func (s *Server) readPump(ctx context.Context, c *websocket.Conn, rm *room, lobbyName string, cl *client) error {
	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			rm.sendTo(cl.name, errorMsg(err))
			continue
		}

		switch req.Type {
		case "chat":
			rm.broadcast(map[string]interface{}{
				"type": "chat",
				"from": cl.name,
				"text": req.Text,
			})

		case "setRace":
			next, err := s.Lobbies.SetPlayerRace(lobbyName, cl.name, req.TeamIndex, req.SlotIndex, lobby.Race(req.Race))
			if err != nil {
				rm.sendTo(cl.name, errorMsg(err))
				continue
			}
			rm.broadcast(stateMsg(next))

		case "addComputer":
			next, err := s.Lobbies.AddComputer(lobbyName, cl.name, req.TeamIndex, req.SlotIndex, lobby.Race(req.Race))
			if err != nil {
				rm.sendTo(cl.name, errorMsg(err))
				continue
			}
			rm.broadcast(stateMsg(next))

		case "move":
			next, err := s.Lobbies.Move(lobbyName, cl.name, req.ToTeam, req.ToSlot)
			if err != nil {
				rm.sendTo(cl.name, errorMsg(err))
				continue
			}
			rm.broadcast(stateMsg(next))

		case "startCountdown":
			err := s.Lobbies.StartCountdown(lobbyName, cl.name, func(final lobby.Lobby) {
				s.startGameLoad(rm, final)
			})
			if err != nil {
				rm.sendTo(cl.name, errorMsg(err))
				continue
			}
			rm.broadcast(map[string]interface{}{
				"type":    "countdownStarted",
				"seconds": int(lobby.CountdownDuration / time.Second),
			})

		case "cancelCountdown":
			if err := s.Lobbies.CancelCountdown(lobbyName, cl.name); err != nil {
				rm.sendTo(cl.name, errorMsg(err))
				continue
			}
			rm.broadcast(map[string]interface{}{"type": "countdownCanceled"})

		case "ready":
			gameID, err := uuid.Parse(req.GameID)
			if err != nil {
				rm.sendTo(cl.name, errorMsg(err))
				continue
			}
			if err := s.Loader.RegisterGame(gameID, cl.name); err != nil {
				rm.sendTo(cl.name, errorMsg(err))
			}

		case "leave":
			return nil

		default:
			s.Logger.Warnf("lobby %s: unknown message type %q from %s", lobbyName, req.Type, cl.name)
		}
	}
}

// startGameLoad runs the load for a lobby whose countdown completed, fanning
// the loader's notifications out over the room's sockets.
func (s *Server) startGameLoad(rm *room, final lobby.Lobby) {
	players := lobby.HumanSlots(final)

	go func() {
		var mu sync.Mutex
		var gameID uuid.UUID
		var seed int64

		callbacks := gameloader.Callbacks{
			OnGameSetup: func(setup gameloader.Setup) {
				mu.Lock()
				gameID, seed = setup.GameID, setup.Seed
				mu.Unlock()
				rm.broadcast(map[string]interface{}{
					"type":   "gameSetup",
					"gameId": setup.GameID,
					"seed":   setup.Seed,
				})
			},
			OnRoutesSet: func(playerName string, routes []gameloader.RouteAssignment) {
				rm.sendTo(playerName, map[string]interface{}{
					"type":   "routesSet",
					"routes": routes,
				})
			},
			OnLoadingCanceled: func() {
				rm.broadcast(map[string]interface{}{"type": "loadCanceled"})
				s.publishEvent(cache.LifecycleEvent{Type: cache.EventLoadCanceled, Lobby: final.Name})
			},
			OnGameLoaded: func(loaded []lobby.Slot) {
				rm.broadcast(map[string]interface{}{"type": "gameLoaded"})

				mu.Lock()
				id, gameSeed := gameID, seed
				mu.Unlock()
				names := make([]string, len(loaded))
				for i, p := range loaded {
					names[i] = p.Name
				}
				if database.DB != nil {
					ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer cancel()
					if err := database.RecordLoadedGame(ctx, id, gameSeed, final.Map, final.GameType, loaded); err != nil {
						s.Logger.Errorf("failed to record loaded game %s: %v", id, err)
					}
				}
				s.publishEvent(cache.LifecycleEvent{
					Type: cache.EventGameLoaded, Lobby: final.Name, GameID: id, Players: names,
				})
			},
		}

		if err := s.Loader.LoadGame(context.Background(), players, callbacks); err != nil {
			s.Logger.WithField("lobby", final.Name).Warnf("game load failed: %v", err)
		}
	}()
}

func (s *Server) publishEvent(event cache.LifecycleEvent) {
	if cache.Rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cache.PublishLifecycleEvent(ctx, event); err != nil {
		s.Logger.Warnf("failed to publish %s event: %v", event.Type, err)
	}
}

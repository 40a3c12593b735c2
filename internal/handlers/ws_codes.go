// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the lobby handler. These give clients
// more specific reasons for closure than the standard codes.
const (
	BadSubprotocolError  = 3000 // Client connected with an unsupported subprotocol.
	InvalidLobbyError    = 3001 // Target lobby named in the WS URL does not exist.
	InvalidPlayerError   = 3002 // Missing or unusable player name.
	LobbyJoinFailedError = 3003 // Lobby was full or the name was already taken.
)

// internal/lobby/store.go
package lobby

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrLobbyExists     = errors.New("lobby name already in use")
	ErrLobbyNotFound   = errors.New("lobby not found")
	ErrLobbyFull       = errors.New("lobby is full")
	ErrNameTaken       = errors.New("player name already in use in this lobby")
	ErrNotHost         = errors.New("only the host may do that")
	ErrNotInLobby      = errors.New("player is not in this lobby")
	ErrCountdownActive = errors.New("countdown already running")
	ErrNoOpposingSides = errors.New("lobby needs players on opposing sides")
)

// CountdownDuration is how long the pre-game countdown runs before the lobby
// is handed off to game loading.
const CountdownDuration = 5 * time.Second

type entry struct {
	lobby     Lobby
	countdown *time.Timer
}

// Store owns the current value of every named lobby and serializes the
// read-transition-replace cycle for each of them. Lobby values handed out are
// snapshots; callers never observe partial transitions.
type Store struct {
	mu        sync.Mutex
	lobbies   map[string]*entry
	countdown time.Duration
}

// NewStore returns an in-memory store for lobbies.
func NewStore() *Store {
	return &Store{
		lobbies:   make(map[string]*entry),
		countdown: CountdownDuration,
	}
}

// Create registers a new named lobby with the given host seated.
func (s *Store) Create(name, mapName string, gameType GameType, gameSubType, numSlots int, hostName string, hostRace Race) (Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lobbies[name]; ok {
		return Lobby{}, ErrLobbyExists
	}
	l, err := Create(name, mapName, gameType, gameSubType, numSlots, hostName, hostRace)
	if err != nil {
		return Lobby{}, err
	}
	s.lobbies[name] = &entry{lobby: l}
	return l, nil
}

// Get returns a snapshot of the named lobby.
func (s *Store) Get(name string) (Lobby, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lobbies[name]
	if !ok {
		return Lobby{}, false
	}
	return e.lobby, true
}

// List returns summaries of every open lobby, for the lobby browser.
func (s *Store) List() []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	summaries := make([]Summary, 0, len(s.lobbies))
	for _, e := range s.lobbies {
		summaries = append(summaries, ToSummary(e.lobby))
	}
	return summaries
}

// Join seats a new human in the named lobby, picking the seat via the
// balancing rule. Returns the updated lobby and the player's slot.
func (s *Store) Join(lobbyName, playerName string, race Race) (Lobby, Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lobbies[lobbyName]
	if !ok {
		return Lobby{}, Slot{}, ErrLobbyNotFound
	}
	if _, _, _, taken := FindSlotByName(e.lobby, playerName); taken {
		return Lobby{}, Slot{}, ErrNameTaken
	}
	ti, si := FindAvailableSlot(e.lobby)
	if ti == -1 {
		return Lobby{}, Slot{}, ErrLobbyFull
	}
	player := NewHuman(playerName, race)
	next, err := AddPlayer(e.lobby, ti, si, player)
	if err != nil {
		return Lobby{}, Slot{}, err
	}
	e.lobby = next
	_, _, seated, _ := FindSlotByID(next, player.ID)
	return next, seated, nil
}

// AddComputer seats a computer player at the given address. Host only.
func (s *Store) AddComputer(lobbyName, actorName string, teamIndex, slotIndex int, race Race) (Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lobbies[lobbyName]
	if !ok {
		return Lobby{}, ErrLobbyNotFound
	}
	if err := requireHost(e.lobby, actorName); err != nil {
		return Lobby{}, err
	}
	next, err := AddPlayer(e.lobby, teamIndex, slotIndex, NewComputer(race))
	if err != nil {
		return Lobby{}, err
	}
	e.lobby = next
	return next, nil
}

// Leave removes the named player. Returns nil when the departure dissolved
// the lobby, in which case the lobby is dropped from the store and any
// running countdown is stopped.
func (s *Store) Leave(lobbyName, playerName string) (*Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lobbies[lobbyName]
	if !ok {
		return nil, ErrLobbyNotFound
	}
	ti, si, slot, found := FindSlotByName(e.lobby, playerName)
	if !found {
		return nil, ErrNotInLobby
	}
	next := RemovePlayer(e.lobby, ti, si, slot)
	if next == nil {
		s.dropLocked(lobbyName, e)
		return nil, nil
	}
	e.lobby = *next
	return next, nil
}

// SetPlayerRace changes a slot's race. A player may change their own seat;
// the host may also change computer and placeholder seats.
func (s *Store) SetPlayerRace(lobbyName, actorName string, teamIndex, slotIndex int, race Race) (Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lobbies[lobbyName]
	if !ok {
		return Lobby{}, ErrLobbyNotFound
	}
	if teamIndex < 0 || teamIndex >= len(e.lobby.Teams) ||
		slotIndex < 0 || slotIndex >= len(e.lobby.Teams[teamIndex].Slots) {
		return Lobby{}, ErrSlotOutOfRange
	}
	target := e.lobby.Teams[teamIndex].Slots[slotIndex]
	ownSeat := target.IsHuman() && target.Name == actorName
	if !ownSeat {
		if err := requireHost(e.lobby, actorName); err != nil {
			return Lobby{}, err
		}
	}
	next, err := SetRace(e.lobby, teamIndex, slotIndex, race)
	if err != nil {
		return Lobby{}, err
	}
	e.lobby = next
	return next, nil
}

// Move relocates the named player to the given seat.
func (s *Store) Move(lobbyName, playerName string, toTeam, toSlot int) (Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lobbies[lobbyName]
	if !ok {
		return Lobby{}, ErrLobbyNotFound
	}
	ti, si, _, found := FindSlotByName(e.lobby, playerName)
	if !found {
		return Lobby{}, ErrNotInLobby
	}
	next, err := MovePlayerToSlot(e.lobby, ti, si, toTeam, toSlot)
	if err != nil {
		return Lobby{}, err
	}
	e.lobby = next
	return next, nil
}

// StartCountdown begins the pre-game countdown. Host only, and the lobby must
// hold opposing sides. When the countdown fires, the lobby is removed from
// the store and its final snapshot is handed to onComplete (on the timer
// goroutine), which is expected to kick off game loading.
func (s *Store) StartCountdown(lobbyName, actorName string, onComplete func(Lobby)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lobbies[lobbyName]
	if !ok {
		return ErrLobbyNotFound
	}
	if err := requireHost(e.lobby, actorName); err != nil {
		return err
	}
	if e.countdown != nil {
		return ErrCountdownActive
	}
	if !HasOpposingSides(e.lobby) {
		return ErrNoOpposingSides
	}
	e.countdown = time.AfterFunc(s.countdown, func() {
		s.mu.Lock()
		cur, ok := s.lobbies[lobbyName]
		if !ok || cur != e || cur.countdown == nil {
			// Lobby dissolved or countdown canceled while the timer was firing.
			s.mu.Unlock()
			return
		}
		snapshot := cur.lobby
		s.dropLocked(lobbyName, cur)
		s.mu.Unlock()
		onComplete(snapshot)
	})
	return nil
}

// CancelCountdown stops a running countdown. Host only.
func (s *Store) CancelCountdown(lobbyName, actorName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lobbies[lobbyName]
	if !ok {
		return ErrLobbyNotFound
	}
	if err := requireHost(e.lobby, actorName); err != nil {
		return err
	}
	if e.countdown != nil {
		e.countdown.Stop()
		e.countdown = nil
	}
	return nil
}

func (s *Store) dropLocked(name string, e *entry) {
	if e.countdown != nil {
		e.countdown.Stop()
		e.countdown = nil
	}
	delete(s.lobbies, name)
}

func requireHost(l Lobby, actorName string) error {
	host, ok := l.Host()
	if !ok || host.Name != actorName {
		return ErrNotHost
	}
	return nil
}

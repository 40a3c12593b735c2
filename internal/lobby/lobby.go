// internal/lobby/lobby.go

// Package lobby implements the pre-game lobby slot/team state machine.
// A Lobby is an immutable value: every transition returns a fresh Lobby (or
// nil for dissolution) and never mutates its input, so callers can hand
// snapshots to other goroutines freely. The owner of a lobby's current value
// (see Store) is responsible for serializing read-transition-replace cycles.
package lobby

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// GameType is the lobby format. It determines team layout and which slot
// cascades apply on join/leave.
type GameType string

const (
	GameTypeMelee      GameType = "melee"
	GameTypeTopVBottom GameType = "topVBottom"
	GameTypeTeamMelee  GameType = "teamMelee"
	GameTypeUms        GameType = "ums"
)

var (
	ErrBadLobbyConfig   = errors.New("invalid lobby configuration")
	ErrSlotOutOfRange   = errors.New("slot address out of range")
	ErrSlotNotAvailable = errors.New("slot is not available")
	ErrSlotNotOccupied  = errors.New("slot is not occupied")
)

// Team is an ordered, fixed-size sequence of slots.
type Team struct {
	Slots []Slot `json:"slots"`
}

// Lobby is the aggregate root. HostID references a slot inside Teams; the
// host is never stored separately from its seat.
type Lobby struct {
	Name        string    `json:"name"`
	Map         string    `json:"map"`
	GameType    GameType  `json:"gameType"`
	GameSubType int       `json:"gameSubType"`
	NumSlots    int       `json:"numSlots"`
	Teams       []Team    `json:"teams"`
	HostID      uuid.UUID `json:"hostId"`
}

// Host returns the slot currently designated host.
func (l Lobby) Host() (Slot, bool) {
	for _, team := range l.Teams {
		for _, s := range team.Slots {
			if s.ID == l.HostID {
				return s, true
			}
		}
	}
	return Slot{}, false
}

// teamSizes distributes numSlots across the teams implied by the game type.
// topVBottom sizes team 0 by gameSubType; teamMelee splits into gameSubType
// teams as evenly as possible, larger teams first.
func teamSizes(gameType GameType, gameSubType, numSlots int) ([]int, error) {
	if numSlots < 2 {
		return nil, fmt.Errorf("%w: need at least 2 slots, got %d", ErrBadLobbyConfig, numSlots)
	}
	switch gameType {
	case GameTypeMelee, GameTypeUms:
		return []int{numSlots}, nil
	case GameTypeTopVBottom:
		if gameSubType < 1 || gameSubType >= numSlots {
			return nil, fmt.Errorf("%w: top team size %d out of range for %d slots",
				ErrBadLobbyConfig, gameSubType, numSlots)
		}
		return []int{gameSubType, numSlots - gameSubType}, nil
	case GameTypeTeamMelee:
		if gameSubType < 2 || gameSubType > 4 || gameSubType > numSlots {
			return nil, fmt.Errorf("%w: %d teams unsupported for %d slots",
				ErrBadLobbyConfig, gameSubType, numSlots)
		}
		sizes := make([]int, gameSubType)
		base, rem := numSlots/gameSubType, numSlots%gameSubType
		for i := range sizes {
			sizes[i] = base
			if i < rem {
				sizes[i]++
			}
		}
		return sizes, nil
	default:
		return nil, fmt.Errorf("%w: unknown game type %q", ErrBadLobbyConfig, gameType)
	}
}

// Create builds a new lobby with the host seated in team 0, slot 0. In
// teamMelee the rest of the host's team is immediately back-filled with
// placeholders controlled by the host.
func Create(name, mapName string, gameType GameType, gameSubType, numSlots int, hostName string, hostRace Race) (Lobby, error) {
	sizes, err := teamSizes(gameType, gameSubType, numSlots)
	if err != nil {
		return Lobby{}, err
	}

	host := NewHuman(hostName, hostRace)
	teams := make([]Team, len(sizes))
	for ti, size := range sizes {
		slots := make([]Slot, size)
		for si := range slots {
			slots[si] = NewOpen(RaceRandom)
		}
		teams[ti] = Team{Slots: slots}
	}
	teams[0].Slots[0] = host
	if gameType == GameTypeTeamMelee {
		for si := 1; si < len(teams[0].Slots); si++ {
			teams[0].Slots[si] = NewControlledOpen(host.Race, host.ID)
		}
	}

	return Lobby{
		Name:        name,
		Map:         mapName,
		GameType:    gameType,
		GameSubType: gameSubType,
		NumSlots:    numSlots,
		Teams:       teams,
		HostID:      host.ID,
	}, nil
}

// clone deep-copies the team/slot structure so transitions never alias the
// input lobby's backing arrays.
func clone(l Lobby) Lobby {
	teams := make([]Team, len(l.Teams))
	for ti, team := range l.Teams {
		slots := make([]Slot, len(team.Slots))
		copy(slots, team.Slots)
		teams[ti] = Team{Slots: slots}
	}
	l.Teams = teams
	return l
}

func availableCount(team Team) int {
	n := 0
	for _, s := range team.Slots {
		if s.IsAvailable() {
			n++
		}
	}
	return n
}

func occupiedCount(team Team) int {
	n := 0
	for _, s := range team.Slots {
		if s.HasPlayer() {
			n++
		}
	}
	return n
}

// FindAvailableSlot returns the address of the seat a joining player should
// take, or (-1, -1) when the lobby is full. Joins are steered toward the team
// with the most available seats (ties to the lowest team index), then the
// lowest slot index within that team.
func FindAvailableSlot(l Lobby) (int, int) {
	bestTeam, bestAvail := -1, 0
	for ti, team := range l.Teams {
		if avail := availableCount(team); avail > bestAvail {
			bestTeam, bestAvail = ti, avail
		}
	}
	if bestTeam == -1 {
		return -1, -1
	}
	for si, s := range l.Teams[bestTeam].Slots {
		if s.IsAvailable() {
			return bestTeam, si
		}
	}
	return -1, -1
}

// AddPlayer seats player at the given address. Claiming a controlled seat
// keeps the seat's race when the player hasn't picked one. Seating the first
// occupant of an empty teamMelee team back-fills the rest of that team:
// humans get controlled placeholders mirroring them, computers get allied
// computers of the same race.
func AddPlayer(l Lobby, teamIndex, slotIndex int, player Slot) (Lobby, error) {
	if teamIndex < 0 || teamIndex >= len(l.Teams) ||
		slotIndex < 0 || slotIndex >= len(l.Teams[teamIndex].Slots) {
		return l, ErrSlotOutOfRange
	}
	target := l.Teams[teamIndex].Slots[slotIndex]
	if !target.IsAvailable() {
		return l, ErrSlotNotAvailable
	}
	if target.IsControlledOpen() && player.Race == RaceRandom {
		player.Race = target.Race
	}

	wasEmpty := occupiedCount(l.Teams[teamIndex]) == 0
	next := clone(l)
	team := &next.Teams[teamIndex]
	team.Slots[slotIndex] = player

	if next.GameType == GameTypeTeamMelee && wasEmpty && player.HasPlayer() {
		for si := range team.Slots {
			if si == slotIndex {
				continue
			}
			if player.IsHuman() {
				team.Slots[si] = NewControlledOpen(player.Race, player.ID)
			} else {
				team.Slots[si] = NewComputer(player.Race)
			}
		}
	}
	return next, nil
}

// vacateTeamMelee applies the teamMelee teardown cascades after `removed`
// leaves the seat at slotIndex. The team must already hold the post-move
// layout everywhere except that seat.
func vacateTeamMelee(team *Team, slotIndex int, removed Slot) {
	occupied := 0
	var controller Slot
	hasController := false
	for i, s := range team.Slots {
		if i == slotIndex {
			continue
		}
		if s.HasPlayer() {
			occupied++
		}
		if s.IsHuman() && !hasController {
			controller, hasController = s, true
		}
	}

	// Allied computers act as a unit: pulling one (with no human on the team)
	// pulls them all. An emptied team reverts fully to open.
	if occupied == 0 || (removed.IsComputer() && !hasController) {
		for i := range team.Slots {
			team.Slots[i] = NewOpen(RaceRandom)
		}
		return
	}

	if !hasController {
		// Computers remain but no human does: their placeholders lose their
		// controller and the vacated seat opens up.
		for i, s := range team.Slots {
			if s.IsControlledOpen() {
				team.Slots[i] = NewOpen(s.Race)
			}
		}
		team.Slots[slotIndex] = NewOpen(RaceRandom)
		return
	}

	if removed.IsHuman() {
		controlledAny := false
		for _, s := range team.Slots {
			if s.ControlledBy == removed.ID {
				controlledAny = true
				break
			}
		}
		if controlledAny {
			// The controller left: everything they owned, including their own
			// seat, is handed to the next human on the team. Fresh slot ids so
			// the departing player's id never survives in a placeholder.
			for i, s := range team.Slots {
				if s.ControlledBy == removed.ID {
					team.Slots[i] = NewControlledOpen(s.Race, controller.ID)
				}
			}
			team.Slots[slotIndex] = NewControlledOpen(removed.Race, controller.ID)
			return
		}
	}

	team.Slots[slotIndex] = NewControlledOpen(controller.Race, controller.ID)
}

// RemovePlayer removes the occupant at the given address, provided it matches
// target by id. Returns the input unchanged when the address doesn't match an
// occupied seat, a fresh lobby after teardown cascades and host transfer
// otherwise, and nil when the removal leaves no human players (dissolution).
func RemovePlayer(l Lobby, teamIndex, slotIndex int, target Slot) *Lobby {
	if teamIndex < 0 || teamIndex >= len(l.Teams) ||
		slotIndex < 0 || slotIndex >= len(l.Teams[teamIndex].Slots) {
		return &l
	}
	current := l.Teams[teamIndex].Slots[slotIndex]
	if current.ID != target.ID || !current.HasPlayer() {
		return &l
	}

	next := clone(l)
	if next.GameType == GameTypeTeamMelee {
		vacateTeamMelee(&next.Teams[teamIndex], slotIndex, current)
	} else {
		next.Teams[teamIndex].Slots[slotIndex] = NewOpen(RaceRandom)
	}

	if HumanSlotCount(next) == 0 {
		return nil
	}
	if current.ID == next.HostID {
		// Host transfer: next human in team-major scan order.
		transferred := false
		for _, team := range next.Teams {
			for _, s := range team.Slots {
				if s.IsHuman() {
					next.HostID = s.ID
					transferred = true
					break
				}
			}
			if transferred {
				break
			}
		}
		if !transferred {
			return nil
		}
	}
	return &next
}

// SetRace changes the race of the addressed slot. No cascades; the slot
// keeps its id.
func SetRace(l Lobby, teamIndex, slotIndex int, race Race) (Lobby, error) {
	if teamIndex < 0 || teamIndex >= len(l.Teams) ||
		slotIndex < 0 || slotIndex >= len(l.Teams[teamIndex].Slots) {
		return l, ErrSlotOutOfRange
	}
	next := clone(l)
	next.Teams[teamIndex].Slots[slotIndex].Race = race
	return next, nil
}

// MovePlayerToSlot relocates an occupant, preserving their id and race, and
// re-runs the same cascades a leave+join at those addresses would. A move is
// atomic: it never dissolves the lobby or transfers host status.
func MovePlayerToSlot(l Lobby, fromTeam, fromSlot, toTeam, toSlot int) (Lobby, error) {
	if fromTeam < 0 || fromTeam >= len(l.Teams) ||
		fromSlot < 0 || fromSlot >= len(l.Teams[fromTeam].Slots) {
		return l, ErrSlotOutOfRange
	}
	player := l.Teams[fromTeam].Slots[fromSlot]
	if !player.HasPlayer() {
		return l, ErrSlotNotOccupied
	}
	if fromTeam == toTeam && fromSlot == toSlot {
		return l, nil
	}

	next, err := AddPlayer(l, toTeam, toSlot, player)
	if err != nil {
		return l, err
	}
	if next.GameType == GameTypeTeamMelee {
		vacateTeamMelee(&next.Teams[fromTeam], fromSlot, player)
	} else {
		next.Teams[fromTeam].Slots[fromSlot] = NewOpen(RaceRandom)
	}
	return next, nil
}

// FindSlotByName locates a human (or observer) slot by player name. Computer
// slots are not addressable by name. ok is false when no such player is seated.
func FindSlotByName(l Lobby, name string) (teamIndex, slotIndex int, slot Slot, ok bool) {
	for ti, team := range l.Teams {
		for si, s := range team.Slots {
			if (s.IsHuman() || s.Type == SlotObserver) && s.Name == name {
				return ti, si, s, true
			}
		}
	}
	return -1, -1, Slot{}, false
}

// FindSlotByID locates any slot by id.
func FindSlotByID(l Lobby, id uuid.UUID) (teamIndex, slotIndex int, slot Slot, ok bool) {
	for ti, team := range l.Teams {
		for si, s := range team.Slots {
			if s.ID == id {
				return ti, si, s, true
			}
		}
	}
	return -1, -1, Slot{}, false
}

// HumanSlotCount counts seated human players.
func HumanSlotCount(l Lobby) int {
	n := 0
	for _, team := range l.Teams {
		for _, s := range team.Slots {
			if s.IsHuman() {
				n++
			}
		}
	}
	return n
}

// HumanSlots returns every seated human slot in team-major scan order.
func HumanSlots(l Lobby) []Slot {
	var humans []Slot
	for _, team := range l.Teams {
		for _, s := range team.Slots {
			if s.IsHuman() {
				humans = append(humans, s)
			}
		}
	}
	return humans
}

// OpenSlotCount counts seats a new player could still claim.
func OpenSlotCount(l Lobby) int {
	n := 0
	for _, team := range l.Teams {
		n += availableCount(team)
	}
	return n
}

// HasOpposingSides reports whether the lobby holds occupants on at least two
// different sides. In team formats sides are teams; in melee/ums every
// occupied seat is its own side, so any two occupants oppose each other.
func HasOpposingSides(l Lobby) bool {
	switch l.GameType {
	case GameTypeTopVBottom, GameTypeTeamMelee:
		first := -1
		for ti, team := range l.Teams {
			for _, s := range team.Slots {
				if !s.HasPlayer() {
					continue
				}
				if first == -1 {
					first = ti
				} else if ti != first {
					return true
				}
			}
		}
		return false
	default:
		occupied := 0
		for _, team := range l.Teams {
			occupied += occupiedCount(team)
		}
		return occupied >= 2
	}
}

// Summary is the listing view of a lobby: enough to render a lobby browser
// without exposing full slot detail.
type Summary struct {
	Name        string   `json:"name"`
	Map         string   `json:"map"`
	GameType    GameType `json:"gameType"`
	GameSubType int      `json:"gameSubType"`
	Host        Slot     `json:"host"`
	OpenSlots   int      `json:"openSlots"`
}

// ToSummary projects a lobby into its listing view.
func ToSummary(l Lobby) Summary {
	host, _ := l.Host()
	return Summary{
		Name:        l.Name,
		Map:         l.Map,
		GameType:    l.GameType,
		GameSubType: l.GameSubType,
		Host:        host,
		OpenSlots:   OpenSlotCount(l),
	}
}

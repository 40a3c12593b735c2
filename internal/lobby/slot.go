// internal/lobby/slot.go
package lobby

import "github.com/google/uuid"

// SlotType is the closed set of slot variants a lobby seat can hold.
type SlotType string

const (
	SlotHuman          SlotType = "human"
	SlotComputer       SlotType = "computer"
	SlotOpen           SlotType = "open"
	SlotControlledOpen SlotType = "controlledOpen"
	SlotUmsComputer    SlotType = "umsComputer"
	SlotObserver       SlotType = "observer"
)

// Race uses the single-letter convention carried over the wire to game clients.
type Race string

const (
	RaceRandom  Race = "r"
	RaceZerg    Race = "z"
	RaceTerran  Race = "t"
	RaceProtoss Race = "p"
)

// Slot is one seat in a team. Slots are immutable values; every factory
// assigns a fresh id, and a moved player keeps their id while a vacated seat
// converted back to a placeholder always gets a new one.
type Slot struct {
	ID   uuid.UUID `json:"id"`
	Type SlotType  `json:"type"`
	Name string    `json:"name,omitempty"`
	Race Race      `json:"race"`

	// ControlledBy is set only for controlledOpen slots: the id of the human
	// slot that owns this placeholder until a real player or computer claims it.
	ControlledBy uuid.UUID `json:"controlledBy,omitempty"`
}

// NewHuman creates a human slot. An empty race defaults to random.
func NewHuman(name string, race Race) Slot {
	if race == "" {
		race = RaceRandom
	}
	return Slot{ID: uuid.New(), Type: SlotHuman, Name: name, Race: race}
}

// NewComputer creates a computer slot. Computers share a fixed display name.
func NewComputer(race Race) Slot {
	if race == "" {
		race = RaceRandom
	}
	return Slot{ID: uuid.New(), Type: SlotComputer, Name: "Computer", Race: race}
}

// NewObserver creates an observer slot. Observers occupy no playing seat
// semantics: they never count as occupied and have no race.
func NewObserver(name string) Slot {
	return Slot{ID: uuid.New(), Type: SlotObserver, Name: name}
}

// NewOpen creates a vacant slot anyone may claim.
func NewOpen(race Race) Slot {
	if race == "" {
		race = RaceRandom
	}
	return Slot{ID: uuid.New(), Type: SlotOpen, Race: race}
}

// NewControlledOpen creates a vacant slot whose race is steered by the human
// slot identified by controllerID.
func NewControlledOpen(race Race, controllerID uuid.UUID) Slot {
	if race == "" {
		race = RaceRandom
	}
	return Slot{ID: uuid.New(), Type: SlotControlledOpen, Race: race, ControlledBy: controllerID}
}

// NewUmsComputer creates a computer slot predefined by a UMS map.
func NewUmsComputer(name string, race Race) Slot {
	if race == "" {
		race = RaceRandom
	}
	return Slot{ID: uuid.New(), Type: SlotUmsComputer, Name: name, Race: race}
}

// IsHuman reports whether the slot holds a human player.
func (s Slot) IsHuman() bool { return s.Type == SlotHuman }

// IsComputer reports whether the slot holds a computer player.
func (s Slot) IsComputer() bool { return s.Type == SlotComputer || s.Type == SlotUmsComputer }

// IsOpen reports whether the slot is a plain open seat.
func (s Slot) IsOpen() bool { return s.Type == SlotOpen }

// IsControlledOpen reports whether the slot is a controlled placeholder.
func (s Slot) IsControlledOpen() bool { return s.Type == SlotControlledOpen }

// HasPlayer reports whether the slot counts toward occupancy.
func (s Slot) HasPlayer() bool { return s.IsHuman() || s.IsComputer() }

// IsAvailable reports whether a new player may claim this seat.
func (s Slot) IsAvailable() bool { return s.IsOpen() || s.IsControlledOpen() }

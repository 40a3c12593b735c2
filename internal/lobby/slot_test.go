// internal/lobby/slot_test.go
package lobby

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlotFactories(t *testing.T) {
	human := NewHuman("dronebabo", RaceZerg)
	assert.Equal(t, SlotHuman, human.Type)
	assert.Equal(t, "dronebabo", human.Name)
	assert.Equal(t, RaceZerg, human.Race)
	assert.True(t, human.IsHuman())
	assert.True(t, human.HasPlayer())
	assert.False(t, human.IsAvailable())

	defaulted := NewHuman("pachi", "")
	assert.Equal(t, RaceRandom, defaulted.Race)

	comp := NewComputer(RaceTerran)
	assert.Equal(t, "Computer", comp.Name)
	assert.True(t, comp.IsComputer())
	assert.True(t, comp.HasPlayer())
	assert.False(t, comp.IsHuman())

	umsComp := NewUmsComputer("Zerg Force", RaceZerg)
	assert.True(t, umsComp.IsComputer())
	assert.Equal(t, "Zerg Force", umsComp.Name)

	open := NewOpen(RaceRandom)
	assert.True(t, open.IsOpen())
	assert.True(t, open.IsAvailable())
	assert.False(t, open.HasPlayer())

	controller := NewHuman("host", RaceProtoss)
	co := NewControlledOpen(controller.Race, controller.ID)
	assert.True(t, co.IsControlledOpen())
	assert.True(t, co.IsAvailable())
	assert.False(t, co.HasPlayer())
	assert.Equal(t, controller.ID, co.ControlledBy)
	assert.Equal(t, RaceProtoss, co.Race)

	obs := NewObserver("watcher")
	assert.False(t, obs.HasPlayer())
	assert.False(t, obs.IsAvailable())
}

func TestSlotIDsAreUnique(t *testing.T) {
	a := NewOpen(RaceRandom)
	b := NewOpen(RaceRandom)
	assert.NotEqual(t, a.ID, b.ID)
}

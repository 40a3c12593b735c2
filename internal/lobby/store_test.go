// internal/lobby/store_test.go
package lobby

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	s.countdown = 10 * time.Millisecond
	_, err := s.Create("bgh", "Big Game Hunters.scm", GameTypeMelee, 0, 4, "Slayers`Boxer", RaceRandom)
	require.NoError(t, err)
	return s
}

func TestStoreCreateDuplicateName(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Create("bgh", "Lost Temple.scm", GameTypeMelee, 0, 4, "pachi", RaceRandom)
	assert.ErrorIs(t, err, ErrLobbyExists)
}

func TestStoreJoinAndList(t *testing.T) {
	s := newTestStore(t)

	l, seated, err := s.Join("bgh", "dronebabo", RaceZerg)
	require.NoError(t, err)
	assert.Equal(t, "dronebabo", seated.Name)
	assert.Equal(t, 2, HumanSlotCount(l))

	_, _, err = s.Join("bgh", "dronebabo", RaceZerg)
	assert.ErrorIs(t, err, ErrNameTaken)

	_, _, err = s.Join("nope", "pachi", RaceTerran)
	assert.ErrorIs(t, err, ErrLobbyNotFound)

	summaries := s.List()
	require.Len(t, summaries, 1)
	assert.Equal(t, "bgh", summaries[0].Name)
	assert.Equal(t, 2, summaries[0].OpenSlots)
}

func TestStoreJoinFullLobby(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"a", "b", "c"} {
		_, _, err := s.Join("bgh", name, RaceRandom)
		require.NoError(t, err)
	}
	_, _, err := s.Join("bgh", "d", RaceRandom)
	assert.ErrorIs(t, err, ErrLobbyFull)
}

func TestStoreAddComputerHostOnly(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.Join("bgh", "dronebabo", RaceZerg)
	require.NoError(t, err)

	_, err = s.AddComputer("bgh", "dronebabo", 0, 2, RaceTerran)
	assert.ErrorIs(t, err, ErrNotHost)

	l, err := s.AddComputer("bgh", "Slayers`Boxer", 0, 2, RaceTerran)
	require.NoError(t, err)
	assert.Equal(t, SlotComputer, l.Teams[0].Slots[2].Type)
}

func TestStoreLeaveAndDissolve(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.Join("bgh", "dronebabo", RaceZerg)
	require.NoError(t, err)

	l, err := s.Leave("bgh", "dronebabo")
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.Equal(t, 1, HumanSlotCount(*l))

	_, err = s.Leave("bgh", "dronebabo")
	assert.ErrorIs(t, err, ErrNotInLobby)

	l, err = s.Leave("bgh", "Slayers`Boxer")
	require.NoError(t, err)
	assert.Nil(t, l, "last human leaving dissolves the lobby")
	_, ok := s.Get("bgh")
	assert.False(t, ok)
}

func TestStoreSetPlayerRaceGuards(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.Join("bgh", "dronebabo", RaceZerg)
	require.NoError(t, err)
	_, err = s.AddComputer("bgh", "Slayers`Boxer", 0, 2, RaceTerran)
	require.NoError(t, err)

	// Own seat is fine.
	l, err := s.SetPlayerRace("bgh", "dronebabo", 0, 1, RaceProtoss)
	require.NoError(t, err)
	assert.Equal(t, RaceProtoss, l.Teams[0].Slots[1].Race)

	// Someone else's seat needs host status.
	_, err = s.SetPlayerRace("bgh", "dronebabo", 0, 2, RaceZerg)
	assert.ErrorIs(t, err, ErrNotHost)
	l, err = s.SetPlayerRace("bgh", "Slayers`Boxer", 0, 2, RaceZerg)
	require.NoError(t, err)
	assert.Equal(t, RaceZerg, l.Teams[0].Slots[2].Race)
}

func TestStoreMove(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.Join("bgh", "dronebabo", RaceZerg)
	require.NoError(t, err)

	l, err := s.Move("bgh", "dronebabo", 0, 3)
	require.NoError(t, err)
	assert.Equal(t, "dronebabo", l.Teams[0].Slots[3].Name)
	assert.Equal(t, SlotOpen, l.Teams[0].Slots[1].Type)

	_, err = s.Move("bgh", "ghost", 0, 2)
	assert.ErrorIs(t, err, ErrNotInLobby)
}

func TestStoreCountdown(t *testing.T) {
	s := newTestStore(t)

	err := s.StartCountdown("bgh", "Slayers`Boxer", func(Lobby) {})
	assert.ErrorIs(t, err, ErrNoOpposingSides)

	_, _, err = s.Join("bgh", "dronebabo", RaceZerg)
	require.NoError(t, err)

	err = s.StartCountdown("bgh", "dronebabo", func(Lobby) {})
	assert.ErrorIs(t, err, ErrNotHost)

	done := make(chan Lobby, 1)
	require.NoError(t, s.StartCountdown("bgh", "Slayers`Boxer", func(l Lobby) { done <- l }))
	err = s.StartCountdown("bgh", "Slayers`Boxer", func(Lobby) {})
	assert.ErrorIs(t, err, ErrCountdownActive)

	select {
	case l := <-done:
		assert.Equal(t, 2, HumanSlotCount(l))
	case <-time.After(time.Second):
		t.Fatal("countdown never fired")
	}
	_, ok := s.Get("bgh")
	assert.False(t, ok, "completed countdown hands the lobby off")
}

func TestStoreCancelCountdown(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.Join("bgh", "dronebabo", RaceZerg)
	require.NoError(t, err)

	fired := make(chan struct{}, 1)
	require.NoError(t, s.StartCountdown("bgh", "Slayers`Boxer", func(Lobby) { fired <- struct{}{} }))
	require.NoError(t, s.CancelCountdown("bgh", "Slayers`Boxer"))

	select {
	case <-fired:
		t.Fatal("canceled countdown fired anyway")
	case <-time.After(50 * time.Millisecond):
	}
	_, ok := s.Get("bgh")
	assert.True(t, ok, "canceled countdown keeps the lobby open")
}

// internal/gameloader/loader.go

// Package gameloader coordinates the handoff from a lobby countdown to a
// running game: it hands out the game id and seed, waits for relay latency
// results, sets up pairwise relay routes, and tracks per-player load
// completion until every client has checked in (or the load fails).
package gameloader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/shieldbattery/lobby-server/internal/lobby"
	"github.com/shieldbattery/lobby-server/internal/rallypoint"
)

// LoadTimeout bounds the whole load, from setup to the last client check-in.
const LoadTimeout = 30 * time.Second

var (
	ErrNoPlayers     = errors.New("game load requires at least one player")
	ErrLoadCanceled  = errors.New("game load canceled")
	ErrLoadTimeout   = errors.New("game load timed out")
	ErrNoServerMatch = errors.New("no relay server matches both players")
	ErrUnknownGame   = errors.New("unknown game id")
	ErrUnknownPlayer = errors.New("player is not part of this game")
)

// Setup carries the parameters every client needs before it starts loading.
// The seed doubles as the game's wall-clock start in replay tooling, so it is
// Unix seconds rather than an arbitrary random value.
type Setup struct {
	GameID uuid.UUID `json:"gameId"`
	Seed   int64     `json:"seed"`
}

// RouteAssignment is one relay route entry delivered to a single player: the
// opponent it connects to, the relay server, and this player's credential.
type RouteAssignment struct {
	For      uuid.UUID         `json:"for"`
	Server   rallypoint.Server `json:"server"`
	RouteID  uuid.UUID         `json:"routeId"`
	PlayerID uuid.UUID         `json:"playerId"`
}

// Callbacks are the notification hooks for one load. They are scoped to that
// load, so concurrent loads never see each other's events. Exactly one of
// OnGameLoaded / OnLoadingCanceled fires per load. Nil hooks are skipped.
type Callbacks struct {
	OnGameSetup       func(Setup)
	OnRoutesSet       func(playerName string, routes []RouteAssignment)
	OnLoadingCanceled func()
	OnGameLoaded      func(players []lobby.Slot)
}

type loadingGame struct {
	players   []lobby.Slot
	finished  map[uuid.UUID]bool
	callbacks Callbacks
	cancel    context.CancelFunc

	finishOnce sync.Once
	result     chan error
}

// Loader runs game loads. Safe for concurrent use.
type Loader struct {
	mu      sync.Mutex
	loading map[uuid.UUID]*loadingGame

	pings   *rallypoint.PingRegistry
	routes  rallypoint.RouteCreator
	timeout time.Duration
}

// New returns a Loader backed by the given ping registry and route creator.
func New(pings *rallypoint.PingRegistry, routes rallypoint.RouteCreator) *Loader {
	return &Loader{
		loading: make(map[uuid.UUID]*loadingGame),
		pings:   pings,
		routes:  routes,
		timeout: LoadTimeout,
	}
}

// LoadGame runs one game load to completion and blocks until every player
// has registered, the load is canceled, the timeout elapses, or ctx is done.
// The game id is delivered through OnGameSetup; clients respond to the
// notifications by loading and then checking in via RegisterGame.
func (l *Loader) LoadGame(ctx context.Context, players []lobby.Slot, callbacks Callbacks) error {
	if len(players) == 0 {
		return ErrNoPlayers
	}

	gameID := uuid.New()
	loadCtx, cancel := context.WithCancel(ctx)
	game := &loadingGame{
		players:   players,
		finished:  make(map[uuid.UUID]bool),
		callbacks: callbacks,
		cancel:    cancel,
		result:    make(chan error, 1),
	}
	l.mu.Lock()
	l.loading[gameID] = game
	l.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"gameId":  gameID,
		"players": len(players),
	}).Info("starting game load")

	timer := time.AfterFunc(l.timeout, func() {
		l.cancelWith(gameID, ErrLoadTimeout)
	})
	defer timer.Stop()

	if err := l.negotiate(loadCtx, gameID, game); err != nil {
		l.finishLoad(gameID, game, err)
	}

	select {
	case err := <-game.result:
		return err
	case <-ctx.Done():
		l.finishLoad(gameID, game, ctx.Err())
		return <-game.result
	}
}

// RegisterGame records that playerName's client finished loading gameID.
// When the last player checks in the load completes and OnGameLoaded fires.
func (l *Loader) RegisterGame(gameID uuid.UUID, playerName string) error {
	l.mu.Lock()
	game, ok := l.loading[gameID]
	if !ok {
		l.mu.Unlock()
		return ErrUnknownGame
	}
	var player *lobby.Slot
	for i := range game.players {
		if game.players[i].Name == playerName {
			player = &game.players[i]
			break
		}
	}
	if player == nil {
		l.mu.Unlock()
		return ErrUnknownPlayer
	}
	game.finished[player.ID] = true
	allFinished := true
	for _, p := range game.players {
		if !game.finished[p.ID] {
			allFinished = false
			break
		}
	}
	l.mu.Unlock()

	if allFinished {
		l.finishLoad(gameID, game, nil)
	}
	return nil
}

// MaybeCancelLoading cancels the load if it is still in progress. Canceling
// an unknown or already-finished game is a no-op.
func (l *Loader) MaybeCancelLoading(gameID uuid.UUID) {
	l.cancelWith(gameID, ErrLoadCanceled)
}

// IsLoading reports whether gameID is still mid-load.
func (l *Loader) IsLoading(gameID uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.loading[gameID]
	return ok
}

func (l *Loader) cancelWith(gameID uuid.UUID, reason error) {
	l.mu.Lock()
	game, ok := l.loading[gameID]
	l.mu.Unlock()
	if !ok {
		return
	}
	l.finishLoad(gameID, game, reason)
}

// finishLoad settles a load exactly once: the record is removed, the load
// context is canceled, and the terminal callback fires. Later calls for the
// same load are no-ops regardless of reason.
func (l *Loader) finishLoad(gameID uuid.UUID, game *loadingGame, err error) {
	game.finishOnce.Do(func() {
		l.mu.Lock()
		delete(l.loading, gameID)
		l.mu.Unlock()
		game.cancel()

		if err == nil {
			logrus.WithField("gameId", gameID).Info("game load complete")
			if game.callbacks.OnGameLoaded != nil {
				game.callbacks.OnGameLoaded(game.players)
			}
		} else {
			logrus.WithFields(logrus.Fields{
				"gameId": gameID,
				"reason": err,
			}).Info("game load canceled")
			if game.callbacks.OnLoadingCanceled != nil {
				game.callbacks.OnLoadingCanceled()
			}
		}
		game.result <- err
	})
}

// negotiate drives the pre-registration phases: setup, pings, routes, route
// delivery. ctx is re-checked after every blocking step so a cancellation
// between phases never leaks into the next one.
func (l *Loader) negotiate(ctx context.Context, gameID uuid.UUID, game *loadingGame) error {
	if game.callbacks.OnGameSetup != nil {
		game.callbacks.OnGameSetup(Setup{GameID: gameID, Seed: time.Now().Unix()})
	}

	multiplayer := len(game.players) > 1
	if multiplayer {
		for _, p := range game.players {
			if _, err := l.pings.WaitForPingResult(ctx, p.Name); err != nil {
				return err
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var byPlayer map[string][]RouteAssignment
	if multiplayer {
		created, err := l.createRoutes(ctx, game.players)
		if err != nil {
			return err
		}
		byPlayer = make(map[string][]RouteAssignment)
		for _, cr := range created {
			byPlayer[cr.p1.Name] = append(byPlayer[cr.p1.Name], RouteAssignment{
				For: cr.p2.ID, Server: cr.server, RouteID: cr.route.ID, PlayerID: cr.route.P1ID,
			})
			byPlayer[cr.p2.Name] = append(byPlayer[cr.p2.Name], RouteAssignment{
				For: cr.p1.ID, Server: cr.server, RouteID: cr.route.ID, PlayerID: cr.route.P2ID,
			})
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if game.callbacks.OnRoutesSet != nil {
		for _, p := range game.players {
			routes := byPlayer[p.Name]
			if routes == nil {
				routes = []RouteAssignment{}
			}
			game.callbacks.OnRoutesSet(p.Name, routes)
		}
	}

	return ctx.Err()
}

type createdRoute struct {
	p1, p2 lobby.Slot
	server rallypoint.Server
	route  rallypoint.Route
}

// createRoutes picks a relay server for every player pairing and creates the
// routes in parallel. A single unservable pair or failed creation fails the
// whole batch.
func (l *Loader) createRoutes(ctx context.Context, players []lobby.Slot) ([]createdRoute, error) {
	servers := l.pings.Servers()
	pingsByPlayer := make(map[string][]time.Duration, len(players))
	for _, p := range players {
		pingsByPlayer[p.Name] = l.pings.GetPings(p.Name)
	}

	type pairing struct {
		p1, p2 lobby.Slot
		server int
	}
	var pairings []pairing
	for i := range players {
		for j := i + 1; j < len(players); j++ {
			p1, p2 := players[i], players[j]
			idx := rallypoint.PickServer(pingsByPlayer[p1.Name], pingsByPlayer[p2.Name])
			if idx == -1 {
				return nil, fmt.Errorf("%w: %s and %s", ErrNoServerMatch, p1.Name, p2.Name)
			}
			pairings = append(pairings, pairing{p1: p1, p2: p2, server: idx})
		}
	}

	created := make([]createdRoute, len(pairings))
	errs := make(chan error, len(pairings))
	var wg sync.WaitGroup
	for i, pr := range pairings {
		wg.Add(1)
		go func(i int, pr pairing) {
			defer wg.Done()
			route, err := l.routes.CreateRoute(ctx, servers[pr.server])
			if err != nil {
				errs <- fmt.Errorf("route for %s and %s: %w", pr.p1.Name, pr.p2.Name, err)
				return
			}
			created[i] = createdRoute{p1: pr.p1, p2: pr.p2, server: servers[pr.server], route: route}
		}(i, pr)
	}
	wg.Wait()

	select {
	case err := <-errs:
		return nil, err
	default:
	}
	return created, nil
}

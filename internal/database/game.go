// internal/database/game.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shieldbattery/lobby-server/internal/lobby"
)

// RecordLoadedGame persists a game whose load completed: one games row plus a
// game_players row per seated player. Called once per game, right after every
// client has checked in.
func RecordLoadedGame(ctx context.Context, gameID uuid.UUID, seed int64, mapName string, gameType lobby.GameType, players []lobby.Slot) error {
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		insertGame := `
			INSERT INTO games (id, seed, map, game_type, started_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
		`
		startedAt := time.Unix(seed, 0).UTC()
		if _, e := tx.Exec(ctx, insertGame, gameID, seed, mapName, string(gameType), startedAt); e != nil {
			return e
		}

		insertPlayer := `
			INSERT INTO game_players (game_id, slot_id, name, race)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (game_id, slot_id) DO NOTHING
		`
		for _, p := range players {
			if _, e := tx.Exec(ctx, insertPlayer, gameID, p.ID, p.Name, string(p.Race)); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx insert game and players: %w", err)
	}
	return nil
}

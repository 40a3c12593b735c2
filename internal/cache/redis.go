// internal/cache/redis.go

// Package cache publishes lobby and game lifecycle events to a Redis queue,
// consumed by an out-of-process stats worker.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultQueueName is the Redis list (queue) name for lifecycle events.
var DefaultQueueName = "lobby_events"

// Lifecycle event types pushed to the queue.
const (
	EventLobbyCreated = "lobby_created"
	EventLobbyClosed  = "lobby_closed"
	EventGameLoaded   = "game_loaded"
	EventLoadCanceled = "load_canceled"
)

// LifecycleEvent is the minimal record the stats worker needs. GameID and
// Players are set only for game events.
type LifecycleEvent struct {
	Type      string    `json:"type"`
	Lobby     string    `json:"lobby"`
	GameID    uuid.UUID `json:"game_id,omitempty"`
	Players   []string  `json:"players,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// PublishLifecycleEvent serializes the event to JSON and pushes it onto the
// queue. A missing timestamp is filled in.
func PublishLifecycleEvent(ctx context.Context, event LifecycleEvent) error {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal LifecycleEvent: %w", err)
	}

	queueName := getEnv("EVENT_QUEUE_NAME", DefaultQueueName)
	if err := Rdb.RPush(ctx, queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queueName, err)
	}
	return nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

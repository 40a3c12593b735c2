// cmd/server/main.go
package main

import (
	"encoding/json"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/shieldbattery/lobby-server/internal/auth"
	"github.com/shieldbattery/lobby-server/internal/cache"
	"github.com/shieldbattery/lobby-server/internal/database"
	"github.com/shieldbattery/lobby-server/internal/gameloader"
	"github.com/shieldbattery/lobby-server/internal/handlers"
	"github.com/shieldbattery/lobby-server/internal/lobby"
	"github.com/shieldbattery/lobby-server/internal/middleware"
	"github.com/shieldbattery/lobby-server/internal/rallypoint"
)

// loadRelayServers reads the relay fleet from RALLY_POINT_SERVERS (a JSON
// array of {address, description}), falling back to a single local relay.
func loadRelayServers(logger *logrus.Logger) []rallypoint.Server {
	raw := os.Getenv("RALLY_POINT_SERVERS")
	if raw == "" {
		return []rallypoint.Server{{Address: "localhost:14098", Description: "Local relay"}}
	}
	var servers []rallypoint.Server
	if err := json.Unmarshal([]byte(raw), &servers); err != nil || len(servers) == 0 {
		logger.Warnf("unusable RALLY_POINT_SERVERS, falling back to local relay: %v", err)
		return []rallypoint.Server{{Address: "localhost:14098", Description: "Local relay"}}
	}
	return servers
}

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	if err := auth.Init(); err != nil {
		logger.Fatalf("auth init failed: %v", err)
	}
	if err := database.ConnectDB(); err != nil {
		logger.Fatalf("database connect failed: %v", err)
	}
	if err := cache.ConnectRedis(); err != nil {
		logger.Fatalf("redis connect failed: %v", err)
	}

	pings := rallypoint.NewPingRegistry(loadRelayServers(logger))
	loader := gameloader.New(pings, rallypoint.LocalRouteCreator{})
	server := handlers.NewServer(logger, lobby.NewStore(), loader, pings)

	mux := server.Routes()
	handler := middleware.LogMiddleware(logger)(mux)

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bomberman-arena/internal/api"
	"bomberman-arena/internal/config"
	"bomberman-arena/internal/game"
	"bomberman-arena/internal/room"
)

func main() {
	if err := godotenv.Load("../.env"); err != nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("💣 ================================")
	log.Println("💣  BOMBERMAN ARENA")
	log.Println("💣 ================================")

	appConfig := config.Load()
	gameCfg := appConfig.Game
	lobbyCfg := appConfig.Lobby
	serverCfg := appConfig.Server

	log.Printf("🎮 Game: block %dpx, bomb timer %v, power-up chance %.2f, %d lives",
		gameCfg.BlockSize, gameCfg.BombTimer, gameCfg.PowerUpChance, gameCfg.StartLives)
	log.Printf("🚪 Lobby: %d-%d players, wait %v, countdown %ds",
		lobbyCfg.MinPlayers, lobbyCfg.MaxPlayers, lobbyCfg.WaitTimer, lobbyCfg.Countdown)
	log.Printf("🛡️ Limits: %d connections, %d per IP, %.0f msg/s",
		appConfig.Limits.MaxConnections, appConfig.Limits.MaxConnectionsPerIP, appConfig.Limits.MessagesPerSecond)

	maps := make([]string, 0, len(game.MapIDs()))
	for _, id := range game.MapIDs() {
		def, _ := game.LookupMap(id)
		maps = append(maps, strconv.Itoa(id)+":"+def.Name)
	}
	log.Printf("🗺️ Maps: %s", strings.Join(maps, ", "))

	if serverCfg.DebugServer {
		debugCfg := api.DefaultObservabilityConfig()
		if serverCfg.DebugAddr != "" {
			debugCfg.ListenAddr = serverCfg.DebugAddr
		}
		debugCfg.BasicAuthUser = os.Getenv("DEBUG_USER")
		debugCfg.BasicAuthPass = os.Getenv("DEBUG_PASS")
		if err := api.StartDebugServer(debugCfg); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	manager := room.NewManager(gameCfg, lobbyCfg, room.ManagerOptions{})
	server := api.NewServer(manager, appConfig)

	go func() {
		addr := ":" + strconv.Itoa(serverCfg.Port)
		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")

	// Players get GAME_OVER before their sockets close
	manager.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ HTTP shutdown: %v", err)
	}
	log.Println("👋 Goodbye!")
}

package main

import (
	"context"

	"bazinga/bus"
	"bazinga/config"
	"bazinga/content"
	"bazinga/handlers"
	"bazinga/logger"
	"bazinga/middleware"
	"bazinga/models"
	"bazinga/routes"
	"bazinga/services"
	"bazinga/store"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to connect to database: ", err)
	}

	// Auto-migrate database models
	err = db.AutoMigrate(
		&models.User{},
		&models.Room{},
		&models.Game{},
		&models.Question{},
		&models.Answer{},
		&models.Vote{},
		&models.PlayerGameScore{},
	)
	if err != nil {
		logger.Log.Fatal("Failed to migrate database: ", err)
	}

	// Initialize Redis
	redisClient := config.InitRedis(cfg)

	// Sessions are ephemeral by design: wipe persisted data and round state
	// on every start.
	dataStore := store.New(db)
	if err := dataStore.ClearAll(); err != nil {
		logger.Log.Fatal("Failed to clear database: ", err)
	}
	if err := redisClient.FlushDB(context.Background()).Err(); err != nil {
		logger.Log.Fatal("Failed to flush Redis: ", err)
	}

	// Initialize services
	broadcastBus := bus.New(redisClient)
	sessions := services.NewRedisSessions(redisClient)
	provider := content.NewFileProvider(cfg.QuestionsFile)
	gameService := services.NewGameService(dataStore, sessions, broadcastBus, provider)

	// Initialize WebSocket hub
	hub := services.NewHub(gameService, broadcastBus)
	go hub.Run()

	// Initialize handlers
	roomHandler := handlers.NewRoomHandler(dataStore, gameService)

	// Setup Gin router
	router := gin.Default()
	router.Use(middleware.CORS(cfg.AllowOrigins))
	routes.SetupRoutes(router, roomHandler, hub)

	// Start server
	logger.Infof("Server starting on %s:%s", cfg.BindAddress, cfg.Port)
	if err := router.Run(cfg.BindAddress + ":" + cfg.Port); err != nil {
		logger.Log.Fatal("Failed to start server: ", err)
	}
}

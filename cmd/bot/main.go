package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rzn0/forgetn-t/internal/config"
	"github.com/rzn0/forgetn-t/internal/database"
	"github.com/rzn0/forgetn-t/internal/gateway"
	"github.com/rzn0/forgetn-t/internal/handlers"
	"github.com/rzn0/forgetn-t/internal/middleware"
	"github.com/rzn0/forgetn-t/internal/publisher"
	"github.com/rzn0/forgetn-t/internal/repository"
	"github.com/rzn0/forgetn-t/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	if cfg.BotToken == "" {
		log.Fatal("DISCORD_TOKEN is not set")
	}
	if cfg.PublicKey == "" {
		log.Fatal("DISCORD_PUBLIC_KEY is not set")
	}

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	if err := database.AddIndexes(database.GetDB()); err != nil {
		log.Fatalf("Failed to add indexes: %v", err)
	}

	// Wire the reconciliation engine
	client := gateway.NewDiscordClient(cfg.BotToken, cfg.DiscordAPI)
	taskRepo := repository.NewTaskRepository(database.GetDB())
	configRepo := repository.NewGuildConfigRepository(database.GetDB())
	pub := publisher.New(client, taskRepo)
	taskService := services.NewTaskService(taskRepo, configRepo, pub)

	// Startup consistency pass: bring every guild's chat state back in step
	// with the store before taking traffic
	if cfg.BootResync {
		go resyncAll(taskService, configRepo)
	}

	// Initialize handlers
	interactionHandler := handlers.NewInteractionHandler(taskService, client)

	// Initialize Gin router
	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Task bot is running",
		})
	})

	r.POST("/interactions", middleware.VerifyInteraction(cfg.PublicKey), interactionHandler.Handle)

	// Start server
	log.Printf("Server starting on %s", cfg.ListenAddr)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func resyncAll(taskService *services.TaskService, configRepo repository.GuildConfigRepository) {
	guildIDs, err := configRepo.ListGuildIDs()
	if err != nil {
		log.Printf("Startup resync: could not list guilds: %v", err)
		return
	}

	for _, guildID := range guildIDs {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		report, err := taskService.Resync(ctx, guildID)
		cancel()
		if err != nil {
			log.Printf("Startup resync failed for guild %s: %v", guildID, err)
			continue
		}
		log.Printf("Startup resync for guild %s: %d open, %d in progress, %d errors",
			guildID, report.OpenResynced, report.InProgressResynced, len(report.Errors))
	}
}

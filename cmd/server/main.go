package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/agenthands/detour/internal/assist"
	"github.com/agenthands/detour/internal/config"
	"github.com/agenthands/detour/internal/geomap"
	"github.com/agenthands/detour/internal/llm"
	"github.com/agenthands/detour/internal/server"
	"github.com/agenthands/detour/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	client, err := llm.NewClient(context.Background(), cfg.LLM)
	if err != nil {
		logger.Fatal("failed to initialize LLM client", zap.Error(err))
	}

	tables := store.NewTables(cfg.Store)
	convLog := store.NewConversationLog(cfg.Store.ConversationsPath)
	conv := assist.NewConversationalist(client, cfg.Prompts)
	assistant := assist.NewAssistant(conv, tables, convLog, cfg.Assistant, cfg.Prompts, logger)
	maps := geomap.NewMapBuilder(cfg.Mapping, nil, logger)

	srv := server.New(assistant, conv, maps, logger)
	r := srv.SetupRouter()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info("starting server", zap.String("port", port))
	if err := r.Run(":" + port); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

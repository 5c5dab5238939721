package main

import (
	"log"
	"os"
	"path/filepath"

	"sentinel-bot/bot"
	"sentinel-bot/config"
	"sentinel-bot/handlers"
	"sentinel-bot/utils/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.GuildDBPath), os.ModePerm); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	db, err := database.Init(cfg.GuildDBPath)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}
	if err := database.LoadGuildConfigs(db, cfg); err != nil {
		log.Fatalf("Error loading guild configs: %v", err)
	}

	b, err := bot.New(cfg, db)
	if err != nil {
		log.Fatalf("Error creating bot: %v", err)
	}
	defer b.Close()

	handlers.Register(b)

	b.Run()
}

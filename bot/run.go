package bot

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"sentinel-bot/modlog"
)

func (b *Bot) Run() {
	if err := b.Session.Open(); err != nil {
		log.Fatalf("Error opening connection: %v", err)
	}

	log.Println("Registering commands for enabled guilds...")
	b.RegisteredCommands = nil
	for _, gc := range b.GetConfig().GuildConfigs {
		if gc.Enabled {
			b.RefreshCommands(gc.GuildID)
		}
	}

	ctx := context.Background()
	if err := b.Relay.Init(ctx); err != nil {
		log.Printf("Error initializing watch relay: %v", err)
	}
	if err := b.Silencer.Rebuild(ctx); err != nil {
		log.Printf("Error rebuilding silence schedules: %v", err)
	}
	if err := b.Engine.RescheduleAll(ctx); err != nil {
		log.Printf("Error rescheduling infraction expirations: %v", err)
	}

	fmt.Println("Bot is now running. Press CTRL-C to exit.")
	b.ModLog.Post(modlog.Entry{
		Title:    "Startup",
		Severity: modlog.Info,
		Body:     "Bot has started successfully.",
	})

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc
}

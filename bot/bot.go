package bot

import (
	"log"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"sentinel-bot/commands"
	"sentinel-bot/infractions"
	"sentinel-bot/model"
	"sentinel-bot/modlog"
	"sentinel-bot/silence"
	"sentinel-bot/site"
	"sentinel-bot/watch"
)

type Bot struct {
	Session            *discordgo.Session
	RegisteredCommands []*discordgo.ApplicationCommand
	CommandHandlers    map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)

	DB       *sqlx.DB
	Redis    *redis.Client
	Site     *site.Client
	ModLog   *modlog.Logger
	Engine   *infractions.Engine
	Relay    *watch.Relay
	Silencer *silence.Silencer

	config atomic.Value // *model.Config
	done   chan struct{}
}

func (b *Bot) GetConfig() *model.Config {
	return b.config.Load().(*model.Config)
}

func New(cfg *model.Config, db *sqlx.DB) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentMessageContent

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	siteClient := site.NewClient(cfg.SiteAPIURL, cfg.SiteAPIToken)
	auditLog := modlog.New(dg, cfg.ModLogChannelID, cfg.ModPingRoleID)
	relay := watch.New(siteClient, &watch.SessionSender{Session: dg}, cfg.WatchChannelID)

	b := &Bot{
		Session: dg,
		DB:      db,
		Redis:   rdb,
		Site:    siteClient,
		ModLog:  auditLog,
		Engine: infractions.New(
			&infractions.DiscordPlatform{Session: dg},
			siteClient,
			relay,
			auditLog,
			infractions.Config{VoiceVerifiedRoleID: cfg.VoiceVerifiedRoleID},
		),
		Relay:    relay,
		Silencer: silence.New(&silence.DiscordOverwrites{Session: dg}, silence.NewRedisDeadlines(rdb)),
		done:     make(chan struct{}),
	}
	b.config.Store(cfg)
	return b, nil
}

func (b *Bot) Close() {
	log.Println("Gracefully shutting down.")
	close(b.done)

	b.Engine.Close()
	b.Silencer.Close()
	if err := b.Session.Close(); err != nil {
		log.Printf("Error closing session: %v", err)
	}
	if err := b.Redis.Close(); err != nil {
		log.Printf("Error closing redis client: %v", err)
	}
}

func (b *Bot) RefreshCommands(guildID string) {
	log.Printf("Updating commands for guild %s", guildID)

	cmds := commands.GenerateCommands()
	registeredCmds, err := b.Session.ApplicationCommandBulkOverwrite(b.Session.State.User.ID, guildID, cmds)
	if err != nil {
		log.Printf("cannot update commands for guild '%s': %v", guildID, err)
		return
	}
	b.RegisteredCommands = append(b.RegisteredCommands, registeredCmds...)
}

// Package config loads bot configuration from the environment. The
// per-guild role lists live in the guild config database and are
// loaded separately (utils/database).
package config

import (
	"errors"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"sentinel-bot/model"
)

// Load reads .env (if present) and the environment.
func Load() (*model.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: .env file not found, relying on environment variables")
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("GUILD_DB_PATH", "./data/guilds.db")
	v.SetDefault("REDIS_ADDR", "localhost:6379")

	cfg := &model.Config{
		BotToken:            v.GetString("BOT_TOKEN"),
		SiteAPIURL:          v.GetString("SITE_API_URL"),
		SiteAPIToken:        v.GetString("SITE_API_TOKEN"),
		RedisAddr:           v.GetString("REDIS_ADDR"),
		RedisPassword:       v.GetString("REDIS_PASSWORD"),
		GuildDBPath:         v.GetString("GUILD_DB_PATH"),
		ModLogChannelID:     v.GetString("MOD_LOG_CHANNEL_ID"),
		ModPingRoleID:       v.GetString("MOD_PING_ROLE_ID"),
		WatchChannelID:      v.GetString("WATCH_CHANNEL_ID"),
		VoiceVerifiedRoleID: v.GetString("VOICE_VERIFIED_ROLE_ID"),
		GuildConfigs:        make(map[string]model.GuildConfig),
	}

	if cfg.BotToken == "" {
		return nil, errors.New("BOT_TOKEN environment variable not set")
	}
	if cfg.SiteAPIURL == "" {
		return nil, errors.New("SITE_API_URL environment variable not set")
	}
	if cfg.ModLogChannelID == "" {
		log.Println("Warning: MOD_LOG_CHANNEL_ID not set, audit log posting will be disabled")
	}

	return cfg, nil
}

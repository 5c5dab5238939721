package model

// GuildConfig holds the per-guild role setup, loaded from the guild
// config database.
type GuildConfig struct {
	GuildID      string
	Name         string
	AdminRoleIDs []string
	ModRoleIDs   []string
	Enabled      bool
}

// Config is the bot-wide configuration assembled from the environment
// and the guild config database.
type Config struct {
	BotToken string

	SiteAPIURL   string
	SiteAPIToken string

	RedisAddr     string
	RedisPassword string

	GuildDBPath string

	// Moderation surface.
	ModLogChannelID     string
	ModPingRoleID       string
	WatchChannelID      string
	VoiceVerifiedRoleID string

	GuildConfigs map[string]GuildConfig
}

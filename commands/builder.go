package commands

import (
	"github.com/bwmarrin/discordgo"

	"sentinel-bot/commands/defs"
)

// GenerateCommands returns the full command set registered per guild.
func GenerateCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		defs.Ban,
		defs.TempBan,
		defs.Kick,
		defs.Timeout,
		defs.Warn,
		defs.Note,
		defs.VoiceMute,
		defs.Superstarify,
		defs.Pardon,
		defs.InfractionEdit,
		defs.InfractionSearch,
		defs.Watch,
		defs.Unwatch,
		defs.Silence,
		defs.Unsilence,
		defs.Clean,
		defs.SystemInfo,
	}
}

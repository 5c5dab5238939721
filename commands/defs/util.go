package defs

import "github.com/bwmarrin/discordgo"

var Clean = &discordgo.ApplicationCommand{
	Name:        "clean",
	Description: "Bulk-delete recent messages in this channel",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "count",
			Description: "How many messages to delete (max 100)",
			Required:    true,
		},
	},
}

var SystemInfo = &discordgo.ApplicationCommand{
	Name:        "system-info",
	Description: "Show bot host and session statistics",
}

package defs

import "github.com/bwmarrin/discordgo"

var Silence = &discordgo.ApplicationCommand{
	Name:        "silence",
	Description: "Silence the current channel",
	Options: []*discordgo.ApplicationCommandOption{
		durationOption("How long to silence, e.g. 10m (omit for indefinite)", false),
	},
}

var Unsilence = &discordgo.ApplicationCommand{
	Name:        "unsilence",
	Description: "Unsilence the current channel",
}

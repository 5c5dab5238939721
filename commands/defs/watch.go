package defs

import "github.com/bwmarrin/discordgo"

var Watch = &discordgo.ApplicationCommand{
	Name:        "watch",
	Description: "Relay a user's messages to the watch channel",
	Options: []*discordgo.ApplicationCommandOption{
		userOption(true),
		reasonOption(true),
	},
}

var Unwatch = &discordgo.ApplicationCommand{
	Name:        "unwatch",
	Description: "Stop relaying a user's messages",
	Options: []*discordgo.ApplicationCommandOption{
		userOption(true),
	},
}

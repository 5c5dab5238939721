package defs

import "github.com/bwmarrin/discordgo"

func userOption(required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: "The target user",
		Required:    required,
	}
}

func reasonOption(required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "reason",
		Description: "Reason for the action",
		Required:    required,
	}
}

func durationOption(description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "duration",
		Description: description,
		Required:    required,
	}
}

var hiddenOption = &discordgo.ApplicationCommandOption{
	Type:        discordgo.ApplicationCommandOptionBoolean,
	Name:        "hidden",
	Description: "Shadow infraction: the user is not notified",
	Required:    false,
}

var Ban = &discordgo.ApplicationCommand{
	Name:        "ban",
	Description: "Permanently ban a user",
	Options: []*discordgo.ApplicationCommandOption{
		userOption(true),
		reasonOption(true),
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "purge_days",
			Description: "Days of messages to purge (0-7)",
			Required:    false,
		},
		hiddenOption,
	},
}

var TempBan = &discordgo.ApplicationCommand{
	Name:        "tempban",
	Description: "Temporarily ban a user",
	Options: []*discordgo.ApplicationCommandOption{
		userOption(true),
		durationOption("Ban duration, e.g. 7d or 12h", true),
		reasonOption(true),
		hiddenOption,
	},
}

var Kick = &discordgo.ApplicationCommand{
	Name:        "kick",
	Description: "Kick a user from the server",
	Options: []*discordgo.ApplicationCommandOption{
		userOption(true),
		reasonOption(true),
	},
}

var Timeout = &discordgo.ApplicationCommand{
	Name:        "timeout",
	Description: "Time a user out (mute)",
	Options: []*discordgo.ApplicationCommandOption{
		userOption(true),
		durationOption("Timeout duration, e.g. 1h or 3d (omit for indefinite)", false),
		reasonOption(false),
		hiddenOption,
	},
}

var Warn = &discordgo.ApplicationCommand{
	Name:        "warn",
	Description: "Warn a user",
	Options: []*discordgo.ApplicationCommandOption{
		userOption(true),
		reasonOption(true),
	},
}

var Note = &discordgo.ApplicationCommand{
	Name:        "note",
	Description: "Attach a private note to a user's record",
	Options: []*discordgo.ApplicationCommandOption{
		userOption(true),
		reasonOption(true),
	},
}

var VoiceMute = &discordgo.ApplicationCommand{
	Name:        "voicemute",
	Description: "Revoke a user's voice access",
	Options: []*discordgo.ApplicationCommandOption{
		userOption(true),
		durationOption("Mute duration, e.g. 1h (omit for indefinite)", false),
		reasonOption(false),
		hiddenOption,
	},
}

var Superstarify = &discordgo.ApplicationCommand{
	Name:        "superstarify",
	Description: "Lock a user's nickname to a star's name",
	Options: []*discordgo.ApplicationCommandOption{
		userOption(true),
		durationOption("Lock duration, e.g. 3d", true),
		reasonOption(false),
	},
}

var Pardon = &discordgo.ApplicationCommand{
	Name:        "pardon",
	Description: "End a user's active infraction",
	Options: []*discordgo.ApplicationCommandOption{
		userOption(true),
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "type",
			Description: "Infraction type to pardon",
			Required:    true,
			Choices: []*discordgo.ApplicationCommandOptionChoice{
				{Name: "ban", Value: "ban"},
				{Name: "timeout", Value: "timeout"},
				{Name: "voice mute", Value: "voice_mute"},
				{Name: "superstar", Value: "superstar"},
				{Name: "watch", Value: "watch"},
			},
		},
		reasonOption(false),
	},
}

var InfractionEdit = &discordgo.ApplicationCommand{
	Name:        "infraction-edit",
	Description: "Change the reason or expiry of an active infraction",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "id",
			Description: "Infraction ID",
			Required:    true,
		},
		durationOption("New duration from now, e.g. 2d", false),
		reasonOption(false),
	},
}

var InfractionSearch = &discordgo.ApplicationCommand{
	Name:        "infraction-search",
	Description: "List a user's infractions",
	Options: []*discordgo.ApplicationCommandOption{
		userOption(true),
		{
			Type:        discordgo.ApplicationCommandOptionBoolean,
			Name:        "active_only",
			Description: "Only show active infractions",
			Required:    false,
		},
	},
}

// Package handlers wires slash commands and gateway events to the
// moderation subsystems.
package handlers

import (
	"context"
	"log"

	"github.com/bwmarrin/discordgo"

	"sentinel-bot/bot"
	"sentinel-bot/model"
	"sentinel-bot/utils"
)

// Register installs all command and event handlers on the bot.
func Register(b *bot.Bot) {
	b.CommandHandlers = commandHandlers(b)

	b.Session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		if handler, ok := b.CommandHandlers[i.ApplicationCommandData().Name]; ok {
			handler(s, i)
		}
	})

	b.Session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot {
			return
		}
		b.Relay.HandleMessage(m.Author.ID, m.Author.Username, m.ChannelID, m.Content)
	})

	b.Session.AddHandler(func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
		if err := b.Engine.ReapplyOnRejoin(context.Background(), m.User.ID); err != nil {
			log.Printf("Rejoin check failed for %s: %v", m.User.ID, err)
		}
	})
}

// requireMod wraps a handler with a moderator permission gate.
func requireMod(b *bot.Bot, handler func(s *discordgo.Session, i *discordgo.InteractionCreate)) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		gc, ok := b.GetConfig().GuildConfigs[i.GuildID]
		if !ok {
			log.Printf("Could not find guild config for guild: %s", i.GuildID)
			utils.SendErrorResponse(s, i, "This server is not configured.")
			return
		}
		if i.Member == nil {
			return
		}
		level := utils.CheckPermission(i.Member.Roles, gc.AdminRoleIDs, gc.ModRoleIDs)
		if level == utils.GuestPermission {
			utils.SendErrorResponse(s, i, "You do not have permission to use this command.")
			return
		}
		handler(s, i)
	}
}

func commandHandlers(b *bot.Bot) map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	applyCommand := func(typ model.InfractionType) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		return requireMod(b, func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleApplyCommand(s, i, b, typ)
		})
	}

	return map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate){
		"ban":          applyCommand(model.TypeBan),
		"tempban":      applyCommand(model.TypeBan),
		"kick":         applyCommand(model.TypeKick),
		"timeout":      applyCommand(model.TypeTimeout),
		"warn":         applyCommand(model.TypeWarning),
		"note":         applyCommand(model.TypeNote),
		"voicemute":    applyCommand(model.TypeVoiceMute),
		"superstarify": applyCommand(model.TypeSuperstar),
		"pardon": requireMod(b, func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandlePardonCommand(s, i, b)
		}),
		"infraction-edit": requireMod(b, func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleEditCommand(s, i, b)
		}),
		"infraction-search": requireMod(b, func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleSearchCommand(s, i, b)
		}),
		"watch": requireMod(b, func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleWatchCommand(s, i, b)
		}),
		"unwatch": requireMod(b, func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleUnwatchCommand(s, i, b)
		}),
		"silence": requireMod(b, func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleSilenceCommand(s, i, b)
		}),
		"unsilence": requireMod(b, func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleUnsilenceCommand(s, i, b)
		}),
		"clean": requireMod(b, func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleCleanCommand(s, i, b)
		}),
		"system-info": requireMod(b, func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			SystemInfoHandler(s, i)
		}),
	}
}

package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"sentinel-bot/bot"
	"sentinel-bot/silence"
	"sentinel-bot/utils"
)

// HandleSilenceCommand revokes send permission in the current channel,
// optionally for a limited duration.
func HandleSilenceCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, false); err != nil {
		log.Printf("Error deferring response: %v", err)
		return
	}

	opts := optionMap(i)
	var d time.Duration
	if opt, ok := opts["duration"]; ok {
		parsed, err := utils.ParseDuration(opt.StringValue())
		if err != nil {
			utils.SendFollowUpError(s, i.Interaction, fmt.Sprintf("Invalid duration %q. Use forms like 10m or 1h.", opt.StringValue()))
			return
		}
		d = parsed
	}

	if err := b.Silencer.Silence(context.Background(), i.ChannelID, d); err != nil {
		if errors.Is(err, silence.ErrLocked) {
			utils.SendFollowUpError(s, i.Interaction, "This channel is already being silenced or unsilenced. Try again in a moment.")
			return
		}
		log.Printf("Silence failed for channel %s: %v", i.ChannelID, err)
		utils.SendFollowUpError(s, i.Interaction, "Something went wrong silencing the channel. Check my permissions.")
		return
	}

	if d > 0 {
		utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("🔇 Channel silenced until <t:%d:R>.", time.Now().Add(d).Unix()))
	} else {
		utils.SendFollowUp(s, i.Interaction, "🔇 Channel silenced indefinitely.")
	}
}

// HandleUnsilenceCommand restores send permission in the current channel.
func HandleUnsilenceCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, false); err != nil {
		log.Printf("Error deferring response: %v", err)
		return
	}

	if err := b.Silencer.Unsilence(context.Background(), i.ChannelID); err != nil {
		if errors.Is(err, silence.ErrLocked) {
			utils.SendFollowUpError(s, i.Interaction, "This channel is already being silenced or unsilenced. Try again in a moment.")
			return
		}
		log.Printf("Unsilence failed for channel %s: %v", i.ChannelID, err)
		utils.SendFollowUpError(s, i.Interaction, "Something went wrong unsilencing the channel. Check my permissions.")
		return
	}
	utils.SendFollowUp(s, i.Interaction, "🔊 Channel unsilenced.")
}

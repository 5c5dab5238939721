package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"

	"sentinel-bot/bot"
	"sentinel-bot/infractions"
	"sentinel-bot/model"
	"sentinel-bot/utils"
)

// HandleWatchCommand starts relaying a user's messages to the watch
// channel. The watch is backed by a watch-type infraction so it shows
// up in the user's record and can be pardoned like any other.
func HandleWatchCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Printf("Error deferring response: %v", err)
		return
	}

	opts := optionMap(i)
	target := opts["user"].UserValue(s)
	reason := opts["reason"].StringValue()

	result, err := b.Engine.Apply(context.Background(), infractions.ApplyRequest{
		GuildID:  i.GuildID,
		UserID:   target.ID,
		UserName: target.Username,
		ActorID:  i.Member.User.ID,
		Type:     model.TypeWatch,
		Reason:   reason,
		// Watches are covert; the user is never notified.
		Hidden: true,
	})
	if err != nil {
		var conflict *infractions.ConflictError
		if errors.As(err, &conflict) {
			utils.SendFollowUpError(s, i.Interaction, fmt.Sprintf("<@%s> is already being watched (#%d).", target.ID, conflict.ExistingID))
			return
		}
		log.Printf("Watch failed: %v", err)
		utils.SendFollowUpError(s, i.Interaction, "Something went wrong starting the watch.")
		return
	}
	utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("👀 Now watching <@%s> (#%d).", target.ID, result.Infraction.ID))
}

// HandleUnwatchCommand stops relaying a user's messages by pardoning
// the backing watch infraction.
func HandleUnwatchCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Printf("Error deferring response: %v", err)
		return
	}

	opts := optionMap(i)
	target := opts["user"].UserValue(s)

	inf, err := b.Engine.Pardon(context.Background(), model.TypeWatch, target.ID, "")
	if err != nil {
		if errors.Is(err, infractions.ErrNoActiveInfraction) {
			utils.SendFollowUpError(s, i.Interaction, fmt.Sprintf("<@%s> is not being watched.", target.ID))
			return
		}
		log.Printf("Unwatch failed: %v", err)
		utils.SendFollowUpError(s, i.Interaction, "Something went wrong ending the watch.")
		return
	}
	utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("✅ Stopped watching <@%s> (#%d).", target.ID, inf.ID))
}

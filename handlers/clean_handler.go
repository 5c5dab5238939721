package handlers

import (
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"sentinel-bot/bot"
	"sentinel-bot/utils"
)

// Discord refuses bulk deletion of messages older than two weeks; those
// fall back to one-by-one deletion.
const bulkDeleteMaxAge = 14 * 24 * time.Hour

// HandleCleanCommand bulk-deletes recent messages in the current channel.
func HandleCleanCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Printf("Error deferring response: %v", err)
		return
	}

	count := int(optionMap(i)["count"].IntValue())
	if count < 1 || count > 100 {
		utils.SendFollowUpError(s, i.Interaction, "count must be between 1 and 100.")
		return
	}

	messages, err := s.ChannelMessages(i.ChannelID, count, "", "", "")
	if err != nil {
		log.Printf("Failed to fetch messages in %s: %v", i.ChannelID, err)
		utils.SendFollowUpError(s, i.Interaction, "Could not fetch messages in this channel.")
		return
	}
	if len(messages) == 0 {
		utils.SendFollowUp(s, i.Interaction, "Nothing to delete.")
		return
	}

	cutoff := time.Now().Add(-bulkDeleteMaxAge)
	var bulk []string
	var old []string
	for _, m := range messages {
		if m.Timestamp.After(cutoff) {
			bulk = append(bulk, m.ID)
		} else {
			old = append(old, m.ID)
		}
	}

	deleted := 0
	if len(bulk) == 1 {
		old = append(old, bulk[0])
		bulk = nil
	}
	if len(bulk) > 0 {
		if err := s.ChannelMessagesBulkDelete(i.ChannelID, bulk); err != nil {
			log.Printf("Bulk delete failed in %s: %v", i.ChannelID, err)
			utils.SendFollowUpError(s, i.Interaction, "Bulk delete failed. Check my permissions.")
			return
		}
		deleted += len(bulk)
	}
	for _, id := range old {
		if err := s.ChannelMessageDelete(i.ChannelID, id); err != nil {
			log.Printf("Failed to delete message %s in %s: %v", id, i.ChannelID, err)
			continue
		}
		deleted++
	}

	utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("🧹 Deleted %d message(s).", deleted))
}

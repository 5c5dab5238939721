package silence

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// DiscordOverwrites implements Overwrites by editing the everyone
// role's send-messages permission overwrite on the channel.
type DiscordOverwrites struct {
	Session *discordgo.Session
}

func (o *DiscordOverwrites) DenySend(channelID string) error {
	ch, err := o.Session.Channel(channelID)
	if err != nil {
		return fmt.Errorf("failed to fetch channel %s: %w", channelID, err)
	}
	// The everyone role shares the guild's ID.
	return o.Session.ChannelPermissionSet(channelID, ch.GuildID,
		discordgo.PermissionOverwriteTypeRole, 0, discordgo.PermissionSendMessages)
}

func (o *DiscordOverwrites) AllowSend(channelID string) error {
	ch, err := o.Session.Channel(channelID)
	if err != nil {
		return fmt.Errorf("failed to fetch channel %s: %w", channelID, err)
	}
	return o.Session.ChannelPermissionDelete(channelID, ch.GuildID)
}

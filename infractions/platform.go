package infractions

import (
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Platform is the guild-side action surface the engine needs. All
// methods may fail with forbidden (permission/hierarchy), not-found
// (member left) or generic HTTP errors.
type Platform interface {
	TimeoutMember(guildID, userID string, until *time.Time) error
	BanMember(guildID, userID, reason string, purgeDays int) error
	UnbanMember(guildID, userID string) error
	KickMember(guildID, userID, reason string) error
	AddRole(guildID, userID, roleID string) error
	RemoveRole(guildID, userID, roleID string) error
	SetNickname(guildID, userID, nick string) error
	DisconnectVoice(guildID, userID string) error
	SendDM(userID, content string) error
	// BotOutranks reports whether the bot's top role is strictly above
	// the target member's top role.
	BotOutranks(guildID, userID string) (bool, error)
}

// IsForbidden reports whether err is a Discord 403.
func IsForbidden(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode == http.StatusForbidden
	}
	return false
}

// IsNotFound reports whether err is a Discord 404, which for member
// actions means the user has left.
func IsNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode == http.StatusNotFound
	}
	return false
}

// DiscordPlatform implements Platform over a discordgo session.
type DiscordPlatform struct {
	Session *discordgo.Session
}

func (p *DiscordPlatform) TimeoutMember(guildID, userID string, until *time.Time) error {
	return p.Session.GuildMemberTimeout(guildID, userID, until)
}

func (p *DiscordPlatform) BanMember(guildID, userID, reason string, purgeDays int) error {
	return p.Session.GuildBanCreateWithReason(guildID, userID, reason, purgeDays)
}

func (p *DiscordPlatform) UnbanMember(guildID, userID string) error {
	return p.Session.GuildBanDelete(guildID, userID)
}

func (p *DiscordPlatform) KickMember(guildID, userID, reason string) error {
	return p.Session.GuildMemberDeleteWithReason(guildID, userID, reason)
}

func (p *DiscordPlatform) AddRole(guildID, userID, roleID string) error {
	return p.Session.GuildMemberRoleAdd(guildID, userID, roleID)
}

func (p *DiscordPlatform) RemoveRole(guildID, userID, roleID string) error {
	return p.Session.GuildMemberRoleRemove(guildID, userID, roleID)
}

func (p *DiscordPlatform) SetNickname(guildID, userID, nick string) error {
	return p.Session.GuildMemberNickname(guildID, userID, nick)
}

func (p *DiscordPlatform) DisconnectVoice(guildID, userID string) error {
	// Moving a member to an empty channel ID disconnects them.
	return p.Session.GuildMemberMove(guildID, userID, nil)
}

func (p *DiscordPlatform) SendDM(userID, content string) error {
	channel, err := p.Session.UserChannelCreate(userID)
	if err != nil {
		return err
	}
	_, err = p.Session.ChannelMessageSend(channel.ID, content)
	return err
}

func (p *DiscordPlatform) BotOutranks(guildID, userID string) (bool, error) {
	target, err := p.Session.GuildMember(guildID, userID)
	if err != nil {
		return false, err
	}
	self, err := p.Session.GuildMember(guildID, p.Session.State.User.ID)
	if err != nil {
		return false, err
	}
	guild, err := p.Session.Guild(guildID)
	if err != nil {
		return false, err
	}

	positions := make(map[string]int, len(guild.Roles))
	for _, role := range guild.Roles {
		positions[role.ID] = role.Position
	}
	top := func(roleIDs []string) int {
		highest := 0
		for _, id := range roleIDs {
			if pos, ok := positions[id]; ok && pos > highest {
				highest = pos
			}
		}
		return highest
	}
	return top(self.Roles) > top(target.Roles), nil
}

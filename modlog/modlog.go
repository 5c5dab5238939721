// Package modlog posts formatted audit records to the staff log
// channel. The lifecycle engine is a producer only; rendering is
// limited to a single embed per entry.
package modlog

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
)

// Severity selects the embed color.
type Severity int

const (
	Info Severity = iota
	Warn
	Error
)

func color(sev Severity) int {
	switch sev {
	case Info:
		return 3066993 // green
	case Warn:
		return 15105570 // orange
	case Error:
		return 15158332 // red
	default:
		return 3447003 // blue
	}
}

// Entry is one audit record.
type Entry struct {
	Title    string
	Severity Severity
	Body     string
	// FooterID is rendered as "ID: n" when non-zero so moderators can
	// reference the infraction later.
	FooterID int64
	// PingMods prepends a role mention outside the embed, which is the
	// only way a mention in an embed actually notifies anyone.
	PingMods bool
}

// Sink is the narrow interface the engine and handlers produce into.
type Sink interface {
	Post(entry Entry)
}

// Logger posts entries to a fixed channel over the gateway session.
type Logger struct {
	session       *discordgo.Session
	channelID     string
	modPingRoleID string
}

// New creates a Logger. An empty channelID disables posting; entries
// are still written to the process log.
func New(session *discordgo.Session, channelID, modPingRoleID string) *Logger {
	return &Logger{
		session:       session,
		channelID:     channelID,
		modPingRoleID: modPingRoleID,
	}
}

// Post delivers the entry. Delivery failures are logged and dropped;
// the audit log must never take the calling operation down with it.
func (l *Logger) Post(entry Entry) {
	log.Printf("modlog: %s: %s", entry.Title, entry.Body)
	if l.channelID == "" {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       entry.Title,
		Color:       color(entry.Severity),
		Description: entry.Body,
	}
	if entry.FooterID != 0 {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("ID: %d", entry.FooterID),
		}
	}

	msg := &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}
	if entry.PingMods && l.modPingRoleID != "" {
		msg.Content = fmt.Sprintf("<@&%s>", l.modPingRoleID)
		msg.AllowedMentions = &discordgo.MessageAllowedMentions{
			Roles: []string{l.modPingRoleID},
		}
	}

	if _, err := l.session.ChannelMessageSendComplex(l.channelID, msg); err != nil {
		log.Printf("Failed to post mod log entry %q: %v", entry.Title, err)
	}
}

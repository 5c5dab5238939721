package watch

import "github.com/bwmarrin/discordgo"

// SessionSender delivers relayed messages over the gateway session.
type SessionSender struct {
	Session *discordgo.Session
}

func (s *SessionSender) SendMessage(channelID, content string) error {
	_, err := s.Session.ChannelMessageSend(channelID, content)
	return err
}

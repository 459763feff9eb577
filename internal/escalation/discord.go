package escalation

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

type DiscordNotifier struct {
	Session   *discordgo.Session
	ChannelID string
}

func NewDiscordNotifier(token, channelID string) (*DiscordNotifier, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	return &DiscordNotifier{Session: session, ChannelID: channelID}, nil
}

func (d *DiscordNotifier) Name() string {
	return "discord"
}

func (d *DiscordNotifier) Notify(_ context.Context, text string) error {
	_, err := d.Session.ChannelMessageSend(d.ChannelID, text)
	return err
}

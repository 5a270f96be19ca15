// internal/infra/telegram/client.go
package telegram

import (
	"gopkg.in/telebot.v3"
)

// ChannelPublisher implements the publisher.Client interface using the
// gopkg.in/telebot.v3 library, posting to a fixed public channel.
type ChannelPublisher struct {
	bot    *telebot.Bot
	chatID int64
}

func NewChannelPublisher(b *telebot.Bot, chatID int64) *ChannelPublisher {
	return &ChannelPublisher{bot: b, chatID: chatID}
}

// Publish posts the text to the configured channel. The link preview stays
// on so the action page unfurls under the post.
func (p *ChannelPublisher) Publish(text string) error {
	_, err := p.bot.Send(&telebot.Chat{ID: p.chatID}, text, &telebot.SendOptions{})
	return err
}

package telegram

import "gopkg.in/telebot.v3"

// Client sends plain-text messages to a Telegram chat. Run summaries reach the admin through it.
type Client interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error
}

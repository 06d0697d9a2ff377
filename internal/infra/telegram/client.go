// internal/infra/telegram/client.go
package telegram

import (
	"fmt"
	"time"

	"gopkg.in/telebot.v3"
)

// NewBot creates a bot for the given token. Polling only starts when the caller runs bot.Start.
// An offline bot skips the getMe lookup, so creating it never touches the network; it can still send.
func NewBot(token string, offline bool) (*telebot.Bot, error) {
	b, err := telebot.NewBot(telebot.Settings{
		Token:   token,
		Poller:  &telebot.LongPoller{Timeout: 10 * time.Second},
		Offline: offline,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create Telegram bot: %w", err)
	}
	return b, nil
}

// TelebotAdapter implements the Client interface using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage sends a text message to the specified recipient.
func (tba *TelebotAdapter) SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error {
	if options == nil {
		options = &telebot.SendOptions{}
	}

	recipient := &telebot.User{ID: recipientChatID} // Admin reports go to a direct user chat
	_, err := tba.bot.Send(recipient, text, options)
	return err
}

// Package telegram adapts the Bot API library to the bot: long polling with
// backoff, deadlines on every call, call metrics and a classification of
// permanent delivery failures.
package telegram

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// UserID returns the id of the user who caused u, or 0.
func UserID(u tgbotapi.Update) int64 {
	switch {
	case u.Message != nil && u.Message.From != nil:
		return u.Message.From.ID
	case u.CallbackQuery != nil && u.CallbackQuery.From != nil:
		return u.CallbackQuery.From.ID
	}
	return 0
}

// ChatID returns the chat msg belongs to, or 0.
func ChatID(msg *tgbotapi.Message) int64 {
	if msg == nil || msg.Chat == nil {
		return 0
	}
	return msg.Chat.ID
}

// Package queue serializes incoming updates per user and spreads users over
// a pool of workers.
package queue

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/Veraticus/flatscout/internal/telegram"
)

// Message is one queued update.
type Message struct {
	ReceivedAt time.Time
	ID         string
	Update     tgbotapi.Update
	UserID     int64
}

// NewMessage wraps an update for queuing.
func NewMessage(u tgbotapi.Update) *Message {
	return &Message{
		ID:         uuid.NewString(),
		UserID:     telegram.UserID(u),
		Update:     u,
		ReceivedAt: time.Now(),
	}
}

package telegram

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ErrRecipientUnreachable matches errors meaning the user can no longer be
// messaged: the bot was blocked, the account is gone or the chat is unknown.
var ErrRecipientUnreachable = errors.New("telegram recipient unreachable")

// unreachableMarkers are lowercased Bot API descriptions of permanent
// delivery failures.
var unreachableMarkers = []string{
	"bot was blocked",
	"user is deactivated",
	"chat not found",
	"bot was kicked",
	"bot can't initiate conversation",
}

// CallError is a failed Bot API call.
type CallError struct {
	Err    error
	Method string
}

func (e *CallError) Error() string {
	return "telegram " + e.Method + ": " + e.Err.Error()
}

func (e *CallError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrRecipientUnreachable) match permanent failures.
func (e *CallError) Is(target error) bool {
	return target == ErrRecipientUnreachable && isPermanent(e.Err)
}

func newCallError(method string, err error) error {
	// Transport errors carry the request URL, which embeds the bot token.
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	return &CallError{Method: method, Err: err}
}

func isPermanent(err error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	desc := strings.ToLower(apiErr.Message)
	for _, m := range unreachableMarkers {
		if strings.Contains(desc, m) {
			return true
		}
	}
	return apiErr.Code == http.StatusForbidden
}

// IsRecipientUnreachable reports whether err is a permanent delivery failure.
func IsRecipientUnreachable(err error) bool {
	return errors.Is(err, ErrRecipientUnreachable)
}

// IsRateLimited reports whether err is a 429 from the Bot API.
func IsRateLimited(err error) bool {
	var apiErr *tgbotapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests
}

// RetryAfter returns the wait the Bot API asked for, in seconds, or 0.
func RetryAfter(err error) int {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	return 0
}

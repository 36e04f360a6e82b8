package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Client defaults.
const (
	DefaultBaseURL = "https://api.telegram.org"
	// DefaultTimeout bounds every call except long polling.
	DefaultTimeout = 15 * time.Second
	// DefaultPollTimeout is how long getUpdates waits server side.
	DefaultPollTimeout = 30 * time.Second
	pollGrace          = 5 * time.Second
)

// allowedUpdates are the update kinds the bot reacts to.
var allowedUpdates = []string{"message", "callback_query"}

// Client is a Bot API client. The library calls carry no context, so each
// one runs under a deadline and is abandoned when ctx ends first.
type Client struct {
	api         *tgbotapi.BotAPI
	httpClient  *http.Client
	logger      *slog.Logger
	baseURL     string
	timeout     time.Duration
	pollTimeout time.Duration
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithClientPollTimeout sets the longest getUpdates wait the client must
// allow for at the transport level.
func WithClientPollTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.pollTimeout = d
	}
}

// WithClientLogger sets a custom logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the bot identified by token. It calls
// getMe once to check the token.
func NewClient(token string, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	c := &Client{
		logger:      slog.Default(),
		baseURL:     DefaultBaseURL,
		timeout:     DefaultTimeout,
		pollTimeout: DefaultPollTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.pollTimeout + pollGrace}
	}

	api, err := tgbotapi.NewBotAPIWithClient(token, c.baseURL+"/bot%s/%s", c.httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", newCallError("getMe", err))
	}
	c.api = api
	c.logger.Info("Authorized on telegram", slog.String("bot", api.Self.UserName))
	return c, nil
}

// GetUpdates long-polls for updates starting at offset. It returns the
// offset to use for the next call.
func (c *Client) GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]tgbotapi.Update, int, error) {
	secs := max(int(timeout.Seconds()), 1)
	cfg := tgbotapi.NewUpdate(offset)
	cfg.Timeout = secs
	cfg.AllowedUpdates = allowedUpdates

	updates, err := call(ctx, "getUpdates", time.Duration(secs)*time.Second+pollGrace, func() ([]tgbotapi.Update, error) {
		return c.api.GetUpdates(cfg)
	})
	if err != nil {
		return nil, offset, err
	}

	next := offset
	for _, u := range updates {
		if u.UpdateID >= next {
			next = u.UpdateID + 1
		}
	}
	return updates, next, nil
}

// SendMessage sends msg and returns the id of the created message.
func (c *Client) SendMessage(ctx context.Context, msg tgbotapi.MessageConfig) (int, error) {
	if msg.ChatID == 0 {
		return 0, fmt.Errorf("chat id is required")
	}
	if strings.TrimSpace(msg.Text) == "" {
		return 0, fmt.Errorf("message text is required")
	}

	sent, err := call(ctx, "sendMessage", c.timeout, func() (tgbotapi.Message, error) {
		return c.api.Send(msg)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to send message: %w", err)
	}
	return sent.MessageID, nil
}

// DeleteMessage removes a message from a chat.
func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	_, err := call(ctx, "deleteMessage", c.timeout, func() (*tgbotapi.APIResponse, error) {
		return c.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	})
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// AnswerCallback acknowledges a callback query, optionally with a toast.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	_, err := call(ctx, "answerCallbackQuery", c.timeout, func() (*tgbotapi.APIResponse, error) {
		return c.api.Request(tgbotapi.NewCallback(callbackID, text))
	})
	if err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}

// call runs fn under timeout and records it. When ctx ends first the call
// is left to finish in the background; the HTTP client timeout bounds it.
func call[T any](ctx context.Context, method string, timeout time.Duration, fn func() (T, error)) (T, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		val, err := fn()
		done <- result{val: val, err: err}
	}()

	var r result
	select {
	case r = <-done:
	case <-ctx.Done():
		r.err = ctx.Err()
	}
	if r.err != nil {
		r.err = newCallError(method, r.err)
	}
	observe(method, start, r.err)
	return r.val, r.err
}

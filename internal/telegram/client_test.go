package telegram_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/flatscout/internal/telegram"
)

const getMeResponse = `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"FlatScout","username":"flatscout_bot"}}`

func newClient(t *testing.T, h http.HandlerFunc, opts ...telegram.ClientOption) *telegram.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/botTOKEN/getMe" {
			_, _ = w.Write([]byte(getMeResponse))
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	opts = append([]telegram.ClientOption{telegram.WithBaseURL(srv.URL), telegram.WithHTTPClient(srv.Client())}, opts...)
	c, err := telegram.NewClient("TOKEN", opts...)
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresToken(t *testing.T) {
	_, err := telegram.NewClient("")
	assert.Error(t, err)
}

func TestNewClient_RejectedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
	}))
	defer srv.Close()

	_, err := telegram.NewClient("BAD", telegram.WithBaseURL(srv.URL))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unauthorized")
}

func TestNewClient_TransportErrorHidesToken(t *testing.T) {
	_, err := telegram.NewClient("SECRET", telegram.WithBaseURL("http://127.0.0.1:1"))
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET")
	assert.False(t, telegram.IsRecipientUnreachable(err))
}

func TestSendMessage(t *testing.T) {
	var form map[string]string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, r.ParseForm())
		form = map[string]string{
			"chat_id":      r.PostForm.Get("chat_id"),
			"text":         r.PostForm.Get("text"),
			"reply_markup": r.PostForm.Get("reply_markup"),
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":77,"chat":{"id":5}}}`))
	})

	msg := tgbotapi.NewMessage(5, "hi")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("❤️", "fav_1"),
	))
	id, err := c.SendMessage(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, 77, id)
	assert.Equal(t, "5", form["chat_id"])
	assert.Equal(t, "hi", form["text"])

	var markup map[string]any
	require.NoError(t, json.Unmarshal([]byte(form["reply_markup"]), &markup))
	assert.Contains(t, markup, "inline_keyboard")
}

func TestSendMessage_Validation(t *testing.T) {
	c := newClient(t, func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected")
	})
	_, err := c.SendMessage(context.Background(), tgbotapi.NewMessage(0, "x"))
	assert.Error(t, err)
	_, err = c.SendMessage(context.Background(), tgbotapi.NewMessage(1, "  "))
	assert.Error(t, err)
}

func TestSendMessage_ErrorClassification(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		unreachable bool
		rateLimited bool
		retryAfter  int
	}{
		{"blocked", 403, `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`, true, false, 0},
		{"deactivated", 403, `{"ok":false,"error_code":403,"description":"Forbidden: user is deactivated"}`, true, false, 0},
		{"chat not found", 400, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`, true, false, 0},
		{"flood", 429, `{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":3}}`, false, true, 3},
		{"server", 502, `bad gateway`, false, false, 0},
		{"not ok", 200, `{"ok":false,"description":"weird"}`, false, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.SendMessage(context.Background(), tgbotapi.NewMessage(1, "x"))
			require.Error(t, err)
			assert.Equal(t, tt.unreachable, telegram.IsRecipientUnreachable(err))
			assert.Equal(t, tt.rateLimited, telegram.IsRateLimited(err))
			assert.Equal(t, tt.retryAfter, telegram.RetryAfter(err))

			var callErr *telegram.CallError
			require.True(t, errors.As(err, &callErr))
			assert.Equal(t, "sendMessage", callErr.Method)
			assert.NotContains(t, err.Error(), "TOKEN")
		})
	}
}

func TestSendMessage_Timeout(t *testing.T) {
	release := make(chan struct{})
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}, telegram.WithTimeout(30*time.Millisecond))
	t.Cleanup(func() { close(release) })

	start := time.Now()
	_, err := c.SendMessage(context.Background(), tgbotapi.NewMessage(1, "x"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGetUpdates_AdvancesOffset(t *testing.T) {
	var offset, timeout, allowed string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/getUpdates", r.URL.Path)
		require.NoError(t, r.ParseForm())
		offset = r.PostForm.Get("offset")
		timeout = r.PostForm.Get("timeout")
		allowed = r.PostForm.Get("allowed_updates")
		_, _ = w.Write([]byte(`{"ok":true,"result":[
			{"update_id":10,"message":{"message_id":1,"text":"hi","chat":{"id":5},"from":{"id":5}}},
			{"update_id":12,"callback_query":{"id":"cb","data":"fav_1","from":{"id":6}}}
		]}`))
	})

	updates, next, err := c.GetUpdates(context.Background(), 9, time.Second)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, 13, next)
	assert.Equal(t, "9", offset)
	assert.Equal(t, "1", timeout)
	assert.JSONEq(t, `["message","callback_query"]`, allowed)
	assert.Equal(t, int64(5), telegram.UserID(updates[0]))
	assert.Equal(t, int64(5), telegram.ChatID(updates[0].Message))
	assert.Equal(t, int64(6), telegram.UserID(updates[1]))
}

func TestDeleteAndAnswer(t *testing.T) {
	var paths []string
	var forms []map[string]string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		paths = append(paths, r.URL.Path)
		forms = append(forms, map[string]string{
			"message_id":        r.PostForm.Get("message_id"),
			"callback_query_id": r.PostForm.Get("callback_query_id"),
			"text":              r.PostForm.Get("text"),
		})
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	})

	require.NoError(t, c.DeleteMessage(context.Background(), 5, 9))
	require.NoError(t, c.AnswerCallback(context.Background(), "cb1", "done"))

	assert.Equal(t, []string{"/botTOKEN/deleteMessage", "/botTOKEN/answerCallbackQuery"}, paths)
	assert.Equal(t, "9", forms[0]["message_id"])
	assert.Equal(t, "cb1", forms[1]["callback_query_id"])
	assert.Equal(t, "done", forms[1]["text"])
}

func TestUserID(t *testing.T) {
	assert.Zero(t, telegram.UserID(tgbotapi.Update{UpdateID: 1}))
	assert.Zero(t, telegram.ChatID(nil))
	assert.Equal(t, int64(4), telegram.UserID(tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{From: &tgbotapi.User{ID: 4}},
	}))
}

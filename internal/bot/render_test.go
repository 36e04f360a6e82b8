package bot_test

import (
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/flatscout/internal/bot"
	"github.com/Veraticus/flatscout/internal/catalog"
	"github.com/Veraticus/flatscout/internal/session"
)

func TestAcceptable(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"➡️ Next", true},
		{"✅ 2", true},
		{"до 45000", true},
		{"200000+", true},
		{"  ", false},
		{"➡️", false},
		{"1; drop table", false},
		{"SELECT *", false},
		{"50%", false},
		{"$100", false},
		{"a--b", false},
		{strings.Repeat("я", 300), true},
		{strings.Repeat("я", 301), false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, bot.Acceptable(tt.text))
		})
	}
}

func TestItemCard(t *testing.T) {
	lat, lng := 50.45, 30.5234
	item := &catalog.Item{
		ID: 77, Title: "Sunny flat", Price: "15 000 грн", URL: "https://dom.ria.com/uk/x",
		Area: "42 m²", AdminDistrict: "Podilskyi", CityDistrict: "Vynohradar",
		Latitude: &lat, Longitude: &lng,
	}

	msg := bot.ItemCard(9, item, session.New(9), true)
	assert.Equal(t, int64(9), msg.ChatID)
	assert.True(t, strings.HasPrefix(msg.Text, "👀 Look!"))
	assert.Contains(t, msg.Text, "🌍 District: Podilskyi, Vynohradar")
	assert.Contains(t, msg.Text, "YeOselya support: ❌")

	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "fav_77", callbackData(t, kb.InlineKeyboard[0][0]))
	assert.Equal(t, "compare_77", callbackData(t, kb.InlineKeyboard[0][1]))
	require.NotNil(t, kb.InlineKeyboard[1][0].URL)
	assert.Equal(t, "https://www.google.com/maps?q=50.45,30.5234", *kb.InlineKeyboard[1][0].URL)

	s := session.New(9)
	s.AddFavorite(77)
	item.Latitude = nil
	msg = bot.ItemCard(9, item, s, false)
	assert.True(t, strings.HasPrefix(msg.Text, "🏠 Sunny flat"))
	kb, ok = msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Len(t, kb.InlineKeyboard, 1)
	assert.Equal(t, "unfav_77", callbackData(t, kb.InlineKeyboard[0][0]))
}

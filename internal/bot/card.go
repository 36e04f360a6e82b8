package bot

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Veraticus/flatscout/internal/catalog"
	"github.com/Veraticus/flatscout/internal/session"
)

// Callback data understood by HandleUpdate.
const (
	CallbackFavorite     = "fav_"
	CallbackUnfavorite   = "unfav_"
	CallbackCompare      = "compare_"
	CallbackCompareShow  = "compare_show"
	CallbackCompareReset = "compare_reset"
)

const mapsURL = "https://www.google.com/maps?q=%s,%s"

func yesNo(b bool) string {
	if b {
		return "✅"
	}
	return "❌"
}

// ItemCard renders one listing with its favourite, comparison and map
// buttons. The favourite button reflects s. announce prepends the heading
// used for background deliveries.
func ItemCard(chatID int64, item *catalog.Item, s *session.Session, announce bool) tgbotapi.MessageConfig {
	var b strings.Builder
	if announce {
		b.WriteString(msgAnnounceHeading)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "🏠 %s\n", item.Title)
	fmt.Fprintf(&b, "💰 %s\n", item.Price)
	fmt.Fprintf(&b, "📍 %s\n", item.URL)
	fmt.Fprintf(&b, "📐 Area: %s\n", item.Area)
	fmt.Fprintf(&b, "🚇 Metro: %s\n", item.Metro)
	fmt.Fprintf(&b, "🏢 Complex: %s\n", item.Complex)
	fmt.Fprintf(&b, "📍 Address: %s\n", item.Street)
	fmt.Fprintf(&b, "🌍 District: %s\n", joinDistricts(item))
	fmt.Fprintf(&b, "🏗️ Floor: %s\n", item.Floor)
	fmt.Fprintf(&b, "🕒 Published: %s\n", item.PublishedAt)
	fmt.Fprintf(&b, "🇺🇦 YeOselya support: %s", yesNo(item.RestrictedProgram))

	id := strconv.FormatInt(item.ID, 10)
	fav := tgbotapi.NewInlineKeyboardButtonData("❤️ Add to favourites", CallbackFavorite+id)
	if s != nil && s.IsFavorite(item.ID) {
		fav = tgbotapi.NewInlineKeyboardButtonData("💔 Remove from favourites", CallbackUnfavorite+id)
	}
	rows := [][]tgbotapi.InlineKeyboardButton{tgbotapi.NewInlineKeyboardRow(
		fav,
		tgbotapi.NewInlineKeyboardButtonData("🆚 Add to comparison", CallbackCompare+id),
	)}
	if item.HasLocation() {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("📍 Show on map", fmt.Sprintf(mapsURL,
				strconv.FormatFloat(*item.Latitude, 'f', -1, 64),
				strconv.FormatFloat(*item.Longitude, 'f', -1, 64))),
		))
	}

	msg := tgbotapi.NewMessage(chatID, b.String())
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	return msg
}

func joinDistricts(item *catalog.Item) string {
	if item.AdminDistrict == "" {
		return item.CityDistrict
	}
	return item.AdminDistrict + ", " + item.CityDistrict
}

// Comparison renders two listings side by side.
func Comparison(chatID int64, a, b *catalog.Item) tgbotapi.MessageConfig {
	e := html.EscapeString
	row := func(icon, left, right string) string {
		return fmt.Sprintf("%s %s | %s %s\n", icon, e(left), icon, e(right))
	}

	var sb strings.Builder
	sb.WriteString("🔎 Comparison:\n")
	fmt.Fprintf(&sb, "🏠 <a href=\"%s\">#%d</a> | 🏠 <a href=\"%s\">#%d</a>\n", e(a.URL), a.ID, e(b.URL), b.ID)
	sb.WriteString(row("💰", a.Price, b.Price))
	sb.WriteString(row("📐", a.Area, b.Area))
	sb.WriteString(row("🏢", a.Floor, b.Floor))
	sb.WriteString(row("📍", a.Street, b.Street))
	sb.WriteString(row("🚇", a.Metro, b.Metro))
	sb.WriteString(row("🌍", a.AdminDistrict, b.AdminDistrict))
	sb.WriteString(row("🕒", a.PublishedAt, b.PublishedAt))
	fmt.Fprintf(&sb, "🇺🇦 YeOselya: %s | %s", yesNo(a.RestrictedProgram), yesNo(b.RestrictedProgram))

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🗑 Clear comparison", CallbackCompareReset),
	))
	return msg
}

// Package bot turns Telegram updates into conversation steps: it screens
// input, runs the step machine, carries out the requested effect, persists
// the session and renders the reply.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Veraticus/flatscout/internal/catalog"
	"github.com/Veraticus/flatscout/internal/cursor"
	"github.com/Veraticus/flatscout/internal/flow"
	"github.com/Veraticus/flatscout/internal/session"
	"github.com/Veraticus/flatscout/internal/telegram"
)

// Messenger is the outbound part of the Bot API used by the conversation.
type Messenger interface {
	SendMessage(ctx context.Context, msg tgbotapi.MessageConfig) (int, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Config holds the collaborators of an Engine.
type Config struct {
	Store     session.Store
	Gateway   catalog.Gateway
	Messenger Messenger
	// Cursor defaults to cursor.New(Gateway).
	Cursor *cursor.Engine
	Logger *slog.Logger
}

// Engine handles one update at a time for a given user. Updates of
// different users may be handled concurrently.
type Engine struct {
	store     session.Store
	gateway   catalog.Gateway
	messenger Messenger
	cursor    *cursor.Engine
	logger    *slog.Logger
}

// NewEngine validates cfg and creates an engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("session store cannot be nil")
	}
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("catalog gateway cannot be nil")
	}
	if cfg.Messenger == nil {
		return nil, fmt.Errorf("messenger cannot be nil")
	}
	if cfg.Cursor == nil {
		cfg.Cursor = cursor.New(cfg.Gateway)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		store:     cfg.Store,
		gateway:   cfg.Gateway,
		messenger: cfg.Messenger,
		cursor:    cfg.Cursor,
		logger:    cfg.Logger.With(slog.String("component", "bot")),
	}, nil
}

// HandleUpdate processes a message or a callback query.
func (e *Engine) HandleUpdate(ctx context.Context, u tgbotapi.Update) error {
	start := time.Now()
	var (
		kind string
		err  error
	)
	switch {
	case u.CallbackQuery != nil:
		kind, err = e.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil:
		kind, err = e.handleMessage(ctx, u.Message)
	default:
		return nil
	}
	observeTurn(kind, start, err)

	userID := telegram.UserID(u)
	e.logger.DebugContext(ctx, "Turn handled",
		slog.Int64("user_id", userID),
		slog.String("kind", kind),
		slog.Duration("duration", time.Since(start)),
		slog.Bool("failed", err != nil))
	if telegram.IsRecipientUnreachable(err) {
		e.forget(ctx, userID, err)
	}
	return err
}

// forget drops the session of a user who can no longer be messaged.
func (e *Engine) forget(ctx context.Context, userID int64, cause error) {
	if userID == 0 {
		return
	}
	e.logger.InfoContext(ctx, "User unreachable, removing session",
		slog.Int64("user_id", userID),
		slog.Any("error", cause))
	if err := e.store.Delete(ctx, userID); err != nil && !errors.Is(err, session.ErrNotFound) {
		e.logger.ErrorContext(ctx, "Failed to remove session",
			slog.Int64("user_id", userID),
			slog.Any("error", err))
	}
}

// turn is one text input being processed.
type turn struct {
	cur       *session.Session
	next      *session.Session
	effect    flow.Effect
	chatID    int64
	messageID int
}

func (e *Engine) handleMessage(ctx context.Context, msg *tgbotapi.Message) (string, error) {
	chatID := telegram.ChatID(msg)
	if msg.From == nil || chatID == 0 {
		return "ignored", nil
	}
	if msg.Text == "" {
		return "non_text", e.reply(ctx, chatID, msgTextOnly, nil)
	}
	if !Acceptable(msg.Text) {
		return "rejected", e.reply(ctx, chatID, msgNotUnderstood, nil)
	}

	cur, err := session.Load(ctx, e.store, msg.From.ID)
	if err != nil {
		_ = e.reply(ctx, chatID, msgStoreDown, nil)
		return "load", fmt.Errorf("failed to load session %d: %w", msg.From.ID, err)
	}
	if err := e.ensureDistricts(ctx, cur); err != nil {
		_ = e.reply(ctx, chatID, msgCatalogDown, stepKeyboard(cur))
		return "districts", err
	}

	next, eff := flow.Transition(cur, msg.Text)
	t := turn{cur: cur, next: next, effect: eff, chatID: chatID, messageID: msg.MessageID}
	if eff.Kind != flow.EffectReprompt {
		if err := e.ensureDistricts(ctx, next); err != nil {
			_ = e.reply(ctx, chatID, msgCatalogDown, stepKeyboard(cur))
			return eff.Kind.String(), err
		}
	}
	return eff.Kind.String(), e.apply(ctx, t)
}

// ensureDistricts loads the district list into s when it is about to be
// needed and not cached yet.
func (e *Engine) ensureDistricts(ctx context.Context, s *session.Session) error {
	if s.Step != session.StepDistricts || len(s.AvailableDistricts) > 0 {
		return nil
	}
	districts, err := e.gateway.Districts(ctx)
	if err != nil {
		return fmt.Errorf("failed to load districts: %w", err)
	}
	s.AvailableDistricts = districts
	return nil
}

func (e *Engine) apply(ctx context.Context, t turn) error {
	switch t.effect.Kind {
	case flow.EffectReprompt:
		return e.reply(ctx, t.chatID, hints[t.effect.Hint], stepKeyboard(t.cur))

	case flow.EffectUnknown:
		kb := startMenu()
		if t.cur.Step == session.StepDone {
			kb = browseMenu()
		}
		return e.reply(ctx, t.chatID, msgUnknownCommand, kb)

	case flow.EffectPrompt:
		if err := e.persist(ctx, t.chatID, t.next); err != nil {
			return err
		}
		if notice, ok := hints[t.effect.Hint]; ok {
			if err := e.reply(ctx, t.chatID, notice, nil); err != nil {
				return err
			}
		}
		text, kb := screen(t.effect.Prompt, t.next)
		return e.reply(ctx, t.chatID, text, kb)

	case flow.EffectToIdle:
		if err := e.persist(ctx, t.chatID, t.next); err != nil {
			return err
		}
		return e.reply(ctx, t.chatID, msgGreeting, startMenu())

	case flow.EffectFavorites:
		e.deleteQuietly(ctx, t.chatID, t.messageID)
		return e.showFavorites(ctx, t.chatID, t.next)

	case flow.EffectCompare:
		e.deleteQuietly(ctx, t.chatID, t.messageID)
		return e.showComparison(ctx, t.chatID, t.next)

	case flow.EffectSearch:
		return e.search(ctx, t)

	case flow.EffectShowNext:
		return e.showNext(ctx, t)
	}
	return fmt.Errorf("unhandled effect %s", t.effect.Kind)
}

// search runs a new search with the filter of t.next.
func (e *Engine) search(ctx context.Context, t turn) error {
	var (
		w   cursor.Window
		s   *session.Session
		err error
	)
	if t.effect.Quiet {
		w, s, err = e.cursor.Reload(ctx, t.next)
	} else {
		w, s, err = e.cursor.Restart(ctx, t.next)
	}
	if err != nil {
		_ = e.reply(ctx, t.chatID, msgCatalogDown, stepKeyboard(t.cur))
		return fmt.Errorf("failed to search: %w", err)
	}

	if err := e.persist(ctx, t.chatID, s); err != nil {
		return err
	}
	switch {
	case w.Empty:
		return e.reply(ctx, t.chatID, msgNothingFound, startMenu())
	case t.effect.Quiet:
		return e.reply(ctx, t.chatID, msgSpecialUpdated, browseMenu())
	}
	return e.renderWindow(ctx, t.chatID, w, s)
}

// showNext continues browsing, searching first when nothing is loaded.
func (e *Engine) showNext(ctx context.Context, t turn) error {
	w, s, err := e.cursor.ShowNext(ctx, t.next)
	if err != nil {
		_ = e.reply(ctx, t.chatID, msgCatalogDown, browseMenu())
		return fmt.Errorf("failed to show next: %w", err)
	}

	if err := e.persist(ctx, t.chatID, s); err != nil {
		return err
	}
	if w.Empty {
		return e.reply(ctx, t.chatID, msgFiltersFirst, startMenu())
	}
	return e.renderWindow(ctx, t.chatID, w, s)
}

// renderWindow sends one card per listing followed by the progress line, or
// the end-of-results notice once the stream is exhausted.
func (e *Engine) renderWindow(ctx context.Context, chatID int64, w cursor.Window, s *session.Session) error {
	for _, id := range w.IDs {
		item, err := e.gateway.Detail(ctx, id)
		if err != nil {
			e.logger.WarnContext(ctx, "Failed to load listing",
				slog.Int64("listing_id", id),
				slog.Any("error", err))
			if err := e.reply(ctx, chatID, msgDetailFailed, nil); err != nil {
				return err
			}
			continue
		}
		if _, err := e.messenger.SendMessage(ctx, ItemCard(chatID, item, s, false)); err != nil {
			return fmt.Errorf("failed to send listing %d: %w", id, err)
		}
	}

	if w.Exhausted {
		return e.reply(ctx, chatID, msgAllShown, startMenu())
	}
	return e.reply(ctx, chatID, fmt.Sprintf(msgProgressFormat, e.cursor.Shown(s), s.TotalCount), browseMenu())
}

func (e *Engine) showFavorites(ctx context.Context, chatID int64, s *session.Session) error {
	if len(s.FavoriteIDs) == 0 {
		return e.reply(ctx, chatID, msgNoFavorites, nil)
	}
	for _, id := range s.FavoriteIDs {
		item, err := e.gateway.Detail(ctx, id)
		if err != nil {
			e.logger.WarnContext(ctx, "Skipping favourite",
				slog.Int64("listing_id", id),
				slog.Any("error", err))
			continue
		}
		if _, err := e.messenger.SendMessage(ctx, ItemCard(chatID, item, s, false)); err != nil {
			return fmt.Errorf("failed to send favourite %d: %w", id, err)
		}
	}
	return nil
}

func (e *Engine) showComparison(ctx context.Context, chatID int64, s *session.Session) error {
	switch len(s.CompareIDs) {
	case 0:
		return e.reply(ctx, chatID, msgCompareNone, nil)
	case 1:
		return e.reply(ctx, chatID, msgCompareOneMore, nil)
	}

	a, errA := e.gateway.Detail(ctx, s.CompareIDs[0])
	b, errB := e.gateway.Detail(ctx, s.CompareIDs[1])
	if err := errors.Join(errA, errB); err != nil {
		e.logger.WarnContext(ctx, "Failed to load comparison", slog.Any("error", err))
		return e.reply(ctx, chatID, msgCompareFailed, nil)
	}
	if _, err := e.messenger.SendMessage(ctx, Comparison(chatID, a, b)); err != nil {
		return fmt.Errorf("failed to send comparison: %w", err)
	}
	return nil
}

func (e *Engine) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) (string, error) {
	if cq.From == nil {
		return "ignored", nil
	}
	chatID := telegram.ChatID(cq.Message)
	if chatID == 0 {
		chatID = cq.From.ID
	}
	var messageID int
	if cq.Message != nil {
		messageID = cq.Message.MessageID
	}

	data := cq.Data
	switch {
	case data == CallbackCompareShow:
		return "compare_show", e.withSession(ctx, cq, chatID, func(s *session.Session) error {
			if err := e.answer(ctx, cq.ID, ""); err != nil {
				return err
			}
			return e.showComparison(ctx, chatID, s)
		})

	case data == CallbackCompareReset:
		return "compare_reset", e.withSession(ctx, cq, chatID, func(s *session.Session) error {
			s.CompareIDs = nil
			if err := e.persistCallback(ctx, cq, chatID, s); err != nil {
				return err
			}
			e.deleteQuietly(ctx, chatID, messageID)
			return e.answer(ctx, cq.ID, ansCompareCleared)
		})
	}

	action, id, ok := parseItemCallback(data)
	if !ok {
		return "unknown_callback", e.answer(ctx, cq.ID, "")
	}

	return action, e.withSession(ctx, cq, chatID, func(s *session.Session) error {
		switch action {
		case "favorite":
			if !s.AddFavorite(id) {
				return e.answer(ctx, cq.ID, ansFavoriteExists)
			}
			if err := e.persistCallback(ctx, cq, chatID, s); err != nil {
				return err
			}
			return e.answer(ctx, cq.ID, ansFavoriteAdded)

		case "unfavorite":
			if !s.RemoveFavorite(id) {
				return e.answer(ctx, cq.ID, ansFavoriteMissing)
			}
			if err := e.persistCallback(ctx, cq, chatID, s); err != nil {
				return err
			}
			e.deleteQuietly(ctx, chatID, messageID)
			return e.answer(ctx, cq.ID, ansFavoriteRemoved)
		}

		added, err := s.AddCompare(id)
		switch {
		case errors.Is(err, session.ErrCompareFull):
			return e.answer(ctx, cq.ID, ansCompareFull)
		case !added:
			return e.answer(ctx, cq.ID, ansCompareExists)
		}
		if err := e.persistCallback(ctx, cq, chatID, s); err != nil {
			return err
		}
		return e.answer(ctx, cq.ID, ansCompareAdded)
	})
}

// parseItemCallback splits fav_<id>, unfav_<id> and compare_<id>.
func parseItemCallback(data string) (string, int64, bool) {
	var action, raw string
	switch {
	case strings.HasPrefix(data, CallbackUnfavorite):
		action, raw = "unfavorite", strings.TrimPrefix(data, CallbackUnfavorite)
	case strings.HasPrefix(data, CallbackFavorite):
		action, raw = "favorite", strings.TrimPrefix(data, CallbackFavorite)
	case strings.HasPrefix(data, CallbackCompare):
		action, raw = "compare", strings.TrimPrefix(data, CallbackCompare)
	default:
		return "", 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, false
	}
	return action, id, true
}

// withSession loads the session of the callback's sender and runs fn.
func (e *Engine) withSession(ctx context.Context, cq *tgbotapi.CallbackQuery, chatID int64, fn func(*session.Session) error) error {
	s, err := session.Load(ctx, e.store, cq.From.ID)
	if err != nil {
		_ = e.answer(ctx, cq.ID, "")
		_ = e.reply(ctx, chatID, msgStoreDown, nil)
		return fmt.Errorf("failed to load session %d: %w", cq.From.ID, err)
	}
	return fn(s)
}

// persist saves s and tells the user when that fails. Nothing that depends
// on s may be rendered after an error.
func (e *Engine) persist(ctx context.Context, chatID int64, s *session.Session) error {
	if err := session.SaveMerged(ctx, e.store, s); err != nil {
		_ = e.reply(ctx, chatID, msgSaveFailed, nil)
		return fmt.Errorf("failed to persist session %d: %w", s.UserID, err)
	}
	return nil
}

func (e *Engine) persistCallback(ctx context.Context, cq *tgbotapi.CallbackQuery, chatID int64, s *session.Session) error {
	if err := e.persist(ctx, chatID, s); err != nil {
		_ = e.answer(ctx, cq.ID, ansSaveFailed)
		return err
	}
	return nil
}

func (e *Engine) reply(ctx context.Context, chatID int64, text string, kb *tgbotapi.ReplyKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if kb != nil {
		msg.ReplyMarkup = kb
	}
	if _, err := e.messenger.SendMessage(ctx, msg); err != nil {
		return fmt.Errorf("failed to reply to chat %d: %w", chatID, err)
	}
	return nil
}

func (e *Engine) answer(ctx context.Context, callbackID, text string) error {
	if err := e.messenger.AnswerCallback(ctx, callbackID, text); err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}

// deleteQuietly removes a message the user no longer needs. Failure only
// leaves clutter in the chat.
func (e *Engine) deleteQuietly(ctx context.Context, chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if err := e.messenger.DeleteMessage(ctx, chatID, messageID); err != nil {
		e.logger.DebugContext(ctx, "Failed to delete message",
			slog.Int64("chat_id", chatID),
			slog.Int("message_id", messageID),
			slog.Any("error", err))
	}
}

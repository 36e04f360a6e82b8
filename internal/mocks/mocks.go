// Package mocks provides test doubles for the catalog, the Bot API and the
// session store.
package mocks

import (
	"context"
	"errors"
	"slices"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Veraticus/flatscout/internal/bot"
	"github.com/Veraticus/flatscout/internal/catalog"
	"github.com/Veraticus/flatscout/internal/notify"
	"github.com/Veraticus/flatscout/internal/session"
)

// Compile-time checks to ensure mocks implement their interfaces.
var (
	_ catalog.Gateway = (*Gateway)(nil)
	_ bot.Messenger   = (*Messenger)(nil)
	_ notify.Sender   = (*Messenger)(nil)
	_ session.Store   = (*FlakyStore)(nil)
)

// SearchCall records one Search request.
type SearchCall struct {
	Query    catalog.Query
	Page     int
	PageSize int
}

type page struct {
	ids   []int64
	count int
}

// Gateway is an in-memory catalog. Pages that were never set are empty.
type Gateway struct {
	searchErr    error
	districtsErr error
	pages        map[int]page
	items        map[int64]*catalog.Item
	detailErrs   map[int64]error
	districts    []session.District
	searchCalls  []SearchCall
	detailCalls  []int64
	districtHits int
	mu           sync.Mutex

	// SearchFunc overrides the page table when set.
	SearchFunc func(q catalog.Query, page, pageSize int) (catalog.SearchResult, error)
}

// NewGateway creates an empty catalog.
func NewGateway() *Gateway {
	return &Gateway{
		pages:      make(map[int]page),
		items:      make(map[int64]*catalog.Item),
		detailErrs: make(map[int64]error),
	}
}

// SetPage sets the ids returned for page and the reported total count.
func (g *Gateway) SetPage(pageNum, count int, ids ...int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pages[pageNum] = page{ids: slices.Clone(ids), count: count}
}

// SetSearchError makes every Search fail with err.
func (g *Gateway) SetSearchError(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.searchErr = err
}

// SetItem registers a listing for Detail.
func (g *Gateway) SetItem(item *catalog.Item) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.items[item.ID] = item
}

// SetDetailError makes Detail fail for id.
func (g *Gateway) SetDetailError(id int64, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.detailErrs[id] = err
}

// SetDistricts sets the district reference list.
func (g *Gateway) SetDistricts(districts ...session.District) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.districts = slices.Clone(districts)
}

// SetDistrictsError makes Districts fail with err.
func (g *Gateway) SetDistrictsError(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.districtsErr = err
}

// Search implements catalog.Gateway.
func (g *Gateway) Search(_ context.Context, q catalog.Query, pageNum, pageSize int) (catalog.SearchResult, error) {
	g.mu.Lock()
	g.searchCalls = append(g.searchCalls, SearchCall{Query: q, Page: pageNum, PageSize: pageSize})
	fn := g.SearchFunc
	err := g.searchErr
	p := g.pages[pageNum]
	g.mu.Unlock()

	if fn != nil {
		return fn(q, pageNum, pageSize)
	}
	if err != nil {
		return catalog.SearchResult{}, err
	}
	return catalog.SearchResult{Items: slices.Clone(p.ids), Count: p.count}, nil
}

// Detail implements catalog.Gateway. Unknown ids get a generated listing.
func (g *Gateway) Detail(_ context.Context, id int64) (*catalog.Item, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.detailCalls = append(g.detailCalls, id)
	if err, ok := g.detailErrs[id]; ok {
		return nil, err
	}
	if item, ok := g.items[id]; ok {
		cp := *item
		return &cp, nil
	}
	return &catalog.Item{ID: id, Title: "Flat", Price: "10 000 грн"}, nil
}

// Districts implements catalog.Gateway.
func (g *Gateway) Districts(_ context.Context) ([]session.District, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.districtHits++
	if g.districtsErr != nil {
		return nil, g.districtsErr
	}
	return slices.Clone(g.districts), nil
}

// SearchCalls returns the recorded Search requests.
func (g *Gateway) SearchCalls() []SearchCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.searchCalls)
}

// DetailCalls returns the ids passed to Detail.
func (g *Gateway) DetailCalls() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.detailCalls)
}

// DistrictCalls returns how many times Districts was called.
func (g *Gateway) DistrictCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.districtHits
}

// Deletion records a DeleteMessage call.
type Deletion struct {
	ChatID    int64
	MessageID int
}

// CallbackAnswer records an AnswerCallback call.
type CallbackAnswer struct {
	CallbackID string
	Text       string
}

// Messenger records outgoing Bot API calls.
type Messenger struct {
	sendErr  error
	chatErrs map[int64]error
	sent     []tgbotapi.MessageConfig
	deleted  []Deletion
	answers  []CallbackAnswer
	nextID   int
	mu       sync.Mutex
}

// NewMessenger creates a recording messenger.
func NewMessenger() *Messenger {
	return &Messenger{chatErrs: make(map[int64]error), nextID: 1000}
}

// SetSendError makes every send fail with err.
func (m *Messenger) SetSendError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// SetChatError makes sends to chatID fail with err.
func (m *Messenger) SetChatError(chatID int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatErrs[chatID] = err
}

// SendMessage records msg and returns a fresh message id.
func (m *Messenger) SendMessage(_ context.Context, msg tgbotapi.MessageConfig) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.chatErrs[msg.ChatID]; ok {
		return 0, err
	}
	if m.sendErr != nil {
		return 0, m.sendErr
	}
	m.sent = append(m.sent, msg)
	m.nextID++
	return m.nextID, nil
}

// DeleteMessage records the deletion.
func (m *Messenger) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, Deletion{ChatID: chatID, MessageID: messageID})
	return nil
}

// AnswerCallback records the answer.
func (m *Messenger) AnswerCallback(_ context.Context, callbackID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers = append(m.answers, CallbackAnswer{CallbackID: callbackID, Text: text})
	return nil
}

// Sent returns every recorded message.
func (m *Messenger) Sent() []tgbotapi.MessageConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.sent)
}

// SentTo returns the messages sent to chatID.
func (m *Messenger) SentTo(chatID int64) []tgbotapi.MessageConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, msg := range m.sent {
		if msg.ChatID == chatID {
			out = append(out, msg)
		}
	}
	return out
}

// Texts returns the text of every recorded message.
func (m *Messenger) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, msg := range m.sent {
		out = append(out, msg.Text)
	}
	return out
}

// Deleted returns the recorded deletions.
func (m *Messenger) Deleted() []Deletion {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.deleted)
}

// Answers returns the recorded callback answers.
func (m *Messenger) Answers() []CallbackAnswer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.answers)
}

// Reset forgets everything recorded so far.
func (m *Messenger) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
	m.deleted = nil
	m.answers = nil
}

// ErrStoreDown is the default error injected by FlakyStore.
var ErrStoreDown = errors.New("store unavailable")

// FlakyStore wraps a store and fails selected operations.
type FlakyStore struct {
	session.Store

	mu         sync.Mutex
	getErr     error
	saveErr    error
	listErr    error
	beforeSave func(s *session.Session)
}

// NewFlakyStore wraps inner.
func NewFlakyStore(inner session.Store) *FlakyStore {
	return &FlakyStore{Store: inner}
}

// FailGet makes Get fail with err; nil restores it.
func (f *FlakyStore) FailGet(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getErr = err
}

// FailSave makes Save fail with err; nil restores it.
func (f *FlakyStore) FailSave(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveErr = err
}

// FailList makes List fail with err; nil restores it.
func (f *FlakyStore) FailList(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

// BeforeSave runs fn once, before the next Save reaches the inner store.
// Tests use it to interleave a concurrent writer.
func (f *FlakyStore) BeforeSave(fn func(s *session.Session)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.beforeSave = fn
}

// Get implements session.Store.
func (f *FlakyStore) Get(ctx context.Context, userID int64) (*session.Session, error) {
	f.mu.Lock()
	err := f.getErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Store.Get(ctx, userID)
}

// Save implements session.Store.
func (f *FlakyStore) Save(ctx context.Context, s *session.Session) error {
	f.mu.Lock()
	err := f.saveErr
	hook := f.beforeSave
	f.beforeSave = nil
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if hook != nil {
		hook(s)
	}
	return f.Store.Save(ctx, s)
}

// List implements session.Store.
func (f *FlakyStore) List(ctx context.Context) ([]*session.Session, error) {
	f.mu.Lock()
	err := f.listErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Store.List(ctx)
}

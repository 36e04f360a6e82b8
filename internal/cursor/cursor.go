// Package cursor walks a session through its result stream one window at a
// time, fetching catalog pages as the loaded one runs out.
package cursor

import (
	"context"
	"fmt"

	"github.com/Veraticus/flatscout/internal/catalog"
	"github.com/Veraticus/flatscout/internal/session"
)

const (
	// DefaultWindow is the number of listings shown per turn.
	DefaultWindow = 5
	// DefaultPageSize is the number of ids requested per catalog page.
	DefaultPageSize = 5
	// FirstPage is the catalog page a fresh search starts from.
	FirstPage = 0
	// maxFetches bounds the pages loaded in one call: the page the cursor
	// ran out of on entry plus the one crossed while filling the window.
	maxFetches = 2
)

// Window is the outcome of one browsing step.
type Window struct {
	// IDs are the listings to show, in order. They are already marked as
	// notified in the returned session.
	IDs []int64
	// Exhausted is set when the catalog returned an empty page; the
	// returned session is back at idle.
	Exhausted bool
	// Empty is set when a fresh search found nothing at all.
	Empty bool
}

// Engine pages through catalog results.
type Engine struct {
	gateway  catalog.Gateway
	window   int
	pageSize int
}

// Option configures the engine.
type Option func(*Engine)

// WithWindow sets the number of listings shown per turn.
func WithWindow(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.window = n
		}
	}
}

// WithPageSize sets the catalog page size.
func WithPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

// New creates an engine over gateway.
func New(gateway catalog.Gateway, opts ...Option) *Engine {
	e := &Engine{
		gateway:  gateway,
		window:   DefaultWindow,
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PageSize returns the catalog page size in use.
func (e *Engine) PageSize() int { return e.pageSize }

// ShowNext returns the next window of listings. When no results are loaded
// yet it performs the initial search. On error cur is returned unchanged and
// must not be persisted.
func (e *Engine) ShowNext(ctx context.Context, cur *session.Session) (Window, *session.Session, error) {
	s := cur.Clone()
	fresh := len(s.MatchingIDs) == 0

	w, err := e.fill(ctx, s)
	if err != nil {
		return Window{}, cur, err
	}
	if fresh && w.Exhausted && len(w.IDs) == 0 {
		w.Empty = true
	}
	return w, s, nil
}

// Restart drops the loaded results and shows the first window of a new
// search with the current filter.
func (e *Engine) Restart(ctx context.Context, cur *session.Session) (Window, *session.Session, error) {
	s := cur.Clone()
	s.ResetCursor()
	return e.ShowNext(ctx, s)
}

// Reload runs a new search and loads its first page without showing
// anything.
func (e *Engine) Reload(ctx context.Context, cur *session.Session) (Window, *session.Session, error) {
	s := cur.Clone()
	s.ResetCursor()
	exhausted, err := e.fetch(ctx, s)
	if err != nil {
		return Window{}, cur, err
	}
	return Window{Exhausted: exhausted, Empty: exhausted}, s, nil
}

// Shown returns how many listings of the stream the session has seen,
// assuming full pages before the current one.
func (e *Engine) Shown(s *session.Session) int {
	return s.CurrentPage*e.pageSize + s.CurrentIndex
}

func (e *Engine) fill(ctx context.Context, s *session.Session) (Window, error) {
	var w Window
	fetches := 0
	for {
		if s.CurrentIndex >= len(s.MatchingIDs) {
			if fetches == maxFetches {
				break
			}
			fetches++
			exhausted, err := e.fetch(ctx, s)
			if err != nil {
				return Window{}, err
			}
			if exhausted {
				w.Exhausted = true
				break
			}
		}
		if len(w.IDs) == e.window {
			break
		}

		take := min(e.window-len(w.IDs), s.Remaining())
		chunk := s.MatchingIDs[s.CurrentIndex : s.CurrentIndex+take]
		w.IDs = append(w.IDs, chunk...)
		s.MarkNotified(chunk...)
		s.CurrentIndex += take
	}
	return w, nil
}

// fetch loads the page after the current one, or the first page when
// nothing is loaded. An empty page ends the stream and idles the session.
func (e *Engine) fetch(ctx context.Context, s *session.Session) (bool, error) {
	page := s.CurrentPage + 1
	if len(s.MatchingIDs) == 0 {
		page = FirstPage
	}

	res, err := e.gateway.Search(ctx, catalog.QueryFrom(s), page, e.pageSize)
	if err != nil {
		return false, fmt.Errorf("failed to load page %d: %w", page, err)
	}
	if len(res.Items) == 0 {
		s.Step = session.StepIdle
		s.ReturnStep = session.StepIdle
		return true, nil
	}

	s.MatchingIDs = res.Items
	s.CurrentIndex = 0
	s.CurrentPage = page
	s.TotalCount = res.Count
	return false, nil
}

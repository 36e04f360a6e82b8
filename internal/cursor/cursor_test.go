package cursor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/flatscout/internal/cursor"
	"github.com/Veraticus/flatscout/internal/mocks"
	"github.com/Veraticus/flatscout/internal/session"
)

func browsing(ids []int64, index, page int) *session.Session {
	s := session.New(1)
	s.Step = session.StepDone
	s.MatchingIDs = ids
	s.CurrentIndex = index
	s.CurrentPage = page
	return s
}

func assertCursorBounds(t *testing.T, s *session.Session) {
	t.Helper()
	assert.GreaterOrEqual(t, s.CurrentIndex, 0)
	assert.LessOrEqual(t, s.CurrentIndex, len(s.MatchingIDs))
}

func TestShowNext_CrossesPageBoundary(t *testing.T) {
	g := mocks.NewGateway()
	g.SetPage(3, 20, 201, 202, 203, 204, 205)
	e := cursor.New(g)

	cur := browsing([]int64{1, 2, 3, 4, 5, 6, 7}, 5, 2)
	w, s, err := e.ShowNext(context.Background(), cur)
	require.NoError(t, err)

	assert.Equal(t, []int64{6, 7, 201, 202, 203}, w.IDs)
	assert.False(t, w.Exhausted)
	assert.Equal(t, 3, s.CurrentPage)
	assert.Equal(t, 3, s.CurrentIndex)
	assert.Equal(t, 20, s.TotalCount)
	assert.Equal(t, []int64{6, 7, 201, 202, 203}, s.NotifiedIDs)
	assertCursorBounds(t, s)

	// The input session is untouched.
	assert.Equal(t, 5, cur.CurrentIndex)
	assert.Empty(t, cur.NotifiedIDs)
}

func TestShowNext_PrefetchesAtExactBoundary(t *testing.T) {
	g := mocks.NewGateway()
	g.SetPage(1, 10, 6, 7, 8, 9, 10)
	e := cursor.New(g)

	w, s, err := e.ShowNext(context.Background(), browsing([]int64{1, 2, 3, 4, 5}, 0, 0))
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 3, 4, 5}, w.IDs)
	assert.Equal(t, []int64{6, 7, 8, 9, 10}, s.MatchingIDs)
	assert.Zero(t, s.CurrentIndex)
	assert.Equal(t, 1, s.CurrentPage)
	assertCursorBounds(t, s)
}

func TestShowNext_EmptyPageExhaustsStream(t *testing.T) {
	g := mocks.NewGateway()
	e := cursor.New(g)

	w, s, err := e.ShowNext(context.Background(), browsing([]int64{1, 2}, 2, 0))
	require.NoError(t, err)

	assert.True(t, w.Exhausted)
	assert.False(t, w.Empty)
	assert.Empty(t, w.IDs)
	assert.Equal(t, session.StepIdle, s.Step)
	assertCursorBounds(t, s)
}

func TestShowNext_ShowsTailThenReportsExhaustion(t *testing.T) {
	e := cursor.New(mocks.NewGateway())

	w, s, err := e.ShowNext(context.Background(), browsing([]int64{1, 2, 3}, 1, 0))
	require.NoError(t, err)

	assert.Equal(t, []int64{2, 3}, w.IDs)
	assert.True(t, w.Exhausted)
	assert.Equal(t, session.StepIdle, s.Step)
	assert.Equal(t, 3, s.CurrentIndex)
}

func TestShowNext_LazyInitialSearch(t *testing.T) {
	g := mocks.NewGateway()
	g.SetPage(0, 2, 11, 12)
	e := cursor.New(g)

	s := session.New(1)
	s.Step = session.StepDone
	w, s, err := e.ShowNext(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, []int64{11, 12}, w.IDs)
	assert.True(t, w.Exhausted)
	assert.False(t, w.Empty)

	calls := g.SearchCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, 0, calls[0].Page)
	assert.Equal(t, 1, calls[1].Page)
	assert.Equal(t, cursor.DefaultPageSize, calls[0].PageSize)
	assertCursorBounds(t, s)
}

func TestRestart_NothingFound(t *testing.T) {
	e := cursor.New(mocks.NewGateway())

	cur := browsing([]int64{1, 2}, 1, 4)
	w, s, err := e.Restart(context.Background(), cur)
	require.NoError(t, err)

	assert.True(t, w.Empty)
	assert.True(t, w.Exhausted)
	assert.Equal(t, session.StepIdle, s.Step)
	assert.Empty(t, s.MatchingIDs)
	assertCursorBounds(t, s)
}

func TestRestart_StartsFromFirstPage(t *testing.T) {
	g := mocks.NewGateway()
	g.SetPage(0, 12, 1, 2, 3, 4, 5, 6, 7)
	e := cursor.New(g)

	w, s, err := e.Restart(context.Background(), browsing([]int64{90, 91}, 2, 6))
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 3, 4, 5}, w.IDs)
	assert.Equal(t, 0, s.CurrentPage)
	assert.Equal(t, 5, s.CurrentIndex)
	assert.Equal(t, 5, e.Shown(s))
	assert.Len(t, g.SearchCalls(), 1)
}

func TestReload_LoadsWithoutShowing(t *testing.T) {
	g := mocks.NewGateway()
	g.SetPage(0, 3, 1, 2, 3)
	e := cursor.New(g)

	w, s, err := e.Reload(context.Background(), browsing(nil, 0, 0))
	require.NoError(t, err)
	assert.Empty(t, w.IDs)
	assert.False(t, w.Exhausted)
	assert.Equal(t, []int64{1, 2, 3}, s.MatchingIDs)
	assert.Empty(t, s.NotifiedIDs)
}

func TestShowNext_GatewayFailureLeavesSessionUntouched(t *testing.T) {
	g := mocks.NewGateway()
	g.SetSearchError(errors.New("timeout"))
	e := cursor.New(g)

	cur := browsing([]int64{1, 2, 3, 4, 5, 6, 7}, 5, 0)
	_, s, err := e.ShowNext(context.Background(), cur)
	require.Error(t, err)
	assert.Same(t, cur, s)
	assert.Equal(t, 5, cur.CurrentIndex)
	assert.Empty(t, cur.NotifiedIDs)
}

func TestShowNext_SmallPagesStopAfterTwoFetches(t *testing.T) {
	g := mocks.NewGateway()
	g.SetPage(1, 9, 10)
	g.SetPage(2, 9, 20)
	g.SetPage(3, 9, 30)
	e := cursor.New(g, cursor.WithPageSize(1))

	w, s, err := e.ShowNext(context.Background(), browsing([]int64{1}, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20}, w.IDs)
	assert.Equal(t, 2, s.CurrentPage)
	assertCursorBounds(t, s)
}

func TestShowNext_CursorBoundsOverManyTurns(t *testing.T) {
	g := mocks.NewGateway()
	for page := range 4 {
		ids := make([]int64, 0, 7)
		for i := range 7 {
			ids = append(ids, int64(page*100+i))
		}
		g.SetPage(page, 28, ids...)
	}
	e := cursor.New(g, cursor.WithPageSize(7))

	s := session.New(1)
	s.Step = session.StepDone
	seen := 0
	for range 10 {
		w, next, err := e.ShowNext(context.Background(), s)
		require.NoError(t, err)
		assertCursorBounds(t, next)
		assert.GreaterOrEqual(t, len(next.NotifiedIDs), len(s.NotifiedIDs))
		seen += len(w.IDs)
		s = next
		if w.Exhausted {
			break
		}
	}
	assert.Equal(t, 28, seen)
	assert.Equal(t, session.StepIdle, s.Step)
}

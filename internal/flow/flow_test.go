package flow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/flatscout/internal/flow"
	"github.com/Veraticus/flatscout/internal/session"
)

var podil = session.District{ID: 15187, Name: "Podilskyi"}

func withDistricts(s *session.Session) *session.Session {
	s.AvailableDistricts = []session.District{podil, {ID: 15189, Name: "Pecherskyi"}}
	return s
}

func run(t *testing.T, s *session.Session, inputs ...string) (*session.Session, flow.Effect) {
	t.Helper()
	var eff flow.Effect
	for _, in := range inputs {
		s, eff = flow.Transition(s, in)
		require.NoError(t, s.Validate(), "after %q", in)
	}
	return s, eff
}

func TestWizard_HappyPath(t *testing.T) {
	s := withDistricts(session.New(1))

	s, eff := run(t, s, flow.BtnFind, "2", flow.BtnNext, podil.Name, flow.BtnNext, "45000-55000")

	assert.Equal(t, []int{2}, s.RoomCounts)
	assert.Equal(t, []session.District{podil}, s.SelectedDistricts)
	require.NotNil(t, s.MinPrice)
	require.NotNil(t, s.MaxPrice)
	assert.Equal(t, 45000, *s.MinPrice)
	assert.Equal(t, 55000, *s.MaxPrice)
	assert.Equal(t, session.StepSortSelect, s.Step)
	assert.Equal(t, flow.Effect{Kind: flow.EffectPrompt, Prompt: flow.PromptSort}, eff)

	s, eff = run(t, s, flow.BtnSortCheap)
	assert.Equal(t, session.SortPriceAsc, s.SortBy)
	assert.Equal(t, session.StepDone, s.Step)
	assert.Equal(t, flow.EffectSearch, eff.Kind)
	assert.False(t, eff.Quiet)
}

func TestBudget_InvertedRangeIsSwapped(t *testing.T) {
	s := session.New(1)
	s.Step = session.StepBudget

	s, eff := run(t, s, "80000-60000")
	assert.Equal(t, 60000, *s.MinPrice)
	assert.Equal(t, 80000, *s.MaxPrice)
	assert.Equal(t, flow.PromptSort, eff.Prompt)
}

func TestBudget_Grammars(t *testing.T) {
	tests := []struct {
		in     string
		lo, hi *int
		ok     bool
	}{
		{"45000-55000", ptr(45000), ptr(55000), true},
		{"80000 - 60000 грн", ptr(60000), ptr(80000), true},
		{"до 45000", ptr(0), ptr(45000), true},
		{"до45000₴", ptr(0), ptr(45000), true},
		{"200000+", ptr(200000), nil, true},
		{"200 000 +", ptr(200000), nil, true},
		{"cheap", nil, nil, false},
		{"1-2-3", nil, nil, false},
		{"-5", nil, nil, false},
		{"+", nil, nil, false},
		{"до", nil, nil, false},
		{"", nil, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			lo, hi, ok := flow.ParseBudget(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.lo, lo)
			assert.Equal(t, tt.hi, hi)
		})
	}
}

func ptr(v int) *int { return &v }

func TestBudget_RejectsWithoutMutation(t *testing.T) {
	s := session.New(1)
	s.Step = session.StepBudget
	s.SetPriceRange(ptr(1), ptr(2))

	next, eff := flow.Transition(s, "a lot")
	assert.Same(t, s, next)
	assert.Equal(t, flow.EffectReprompt, eff.Kind)
	assert.Equal(t, flow.HintBudgetFormat, eff.Hint)
	assert.Equal(t, 1, *s.MinPrice)
}

func TestBudget_Back(t *testing.T) {
	s := session.New(1)
	s.Step = session.StepBudget
	s, eff := run(t, s, flow.BtnBack)
	assert.Equal(t, session.StepDistricts, s.Step)
	assert.Equal(t, flow.PromptDistricts, eff.Prompt)
}

func TestRooms(t *testing.T) {
	s := session.New(1)
	s.Step = session.StepRooms

	_, eff := flow.Transition(s, flow.BtnNext)
	assert.Equal(t, flow.Effect{Kind: flow.EffectReprompt, Hint: flow.HintPickRoom}, eff)

	_, eff = flow.Transition(s, "7")
	assert.Equal(t, flow.HintRoomRange, eff.Hint)

	_, eff = flow.Transition(s, "two")
	assert.Equal(t, flow.HintPickRoom, eff.Hint)

	s, _ = run(t, s, "3", "5", flow.Checked+"3")
	assert.Equal(t, []int{5}, s.RoomCounts)

	s, eff = run(t, s, flow.BtnBack)
	assert.Equal(t, session.StepRooms, s.Step)
	assert.Equal(t, flow.PromptRooms, eff.Prompt)
}

func TestRoomToggle_TwiceRestores(t *testing.T) {
	s := session.New(1)
	s.Step = session.StepRooms
	s, _ = run(t, s, "1")
	before := append([]int(nil), s.RoomCounts...)

	s, _ = run(t, s, "4", flow.Checked+"4")
	assert.Equal(t, before, s.RoomCounts)
}

func TestDistricts(t *testing.T) {
	s := withDistricts(session.New(1))
	s.Step = session.StepDistricts

	_, eff := flow.Transition(s, flow.BtnNext)
	assert.Equal(t, flow.HintPickDistrict, eff.Hint)

	_, eff = flow.Transition(s, "podilskyi")
	assert.Equal(t, flow.HintUnknownDistrict, eff.Hint)

	s, _ = run(t, s, podil.Name)
	assert.True(t, s.HasDistrict(podil.ID))
	s, _ = run(t, s, flow.Checked+podil.Name)
	assert.False(t, s.HasDistrict(podil.ID))

	s, eff = run(t, s, flow.BtnBack)
	assert.Equal(t, session.StepRooms, s.Step)
	assert.Equal(t, flow.PromptRooms, eff.Prompt)
}

func TestEditPath_RoomsNextSearchesImmediately(t *testing.T) {
	s := session.New(1)
	s.Step = session.StepDone
	s.MatchingIDs = []int64{1, 2}
	s.CurrentIndex = 2
	s.CurrentPage = 4

	s, eff := run(t, s, flow.BtnChangeFilter, flow.BtnEditRooms)
	assert.Equal(t, session.StepRooms, s.Step)
	assert.Equal(t, session.StepFilterSelect, s.ReturnStep)
	assert.Equal(t, flow.PromptRooms, eff.Prompt)

	s, eff = run(t, s, flow.BtnNext)
	assert.Equal(t, flow.EffectSearch, eff.Kind)
	assert.Equal(t, session.StepDone, s.Step)
	assert.Equal(t, session.StepIdle, s.ReturnStep)
	assert.Empty(t, s.MatchingIDs)
	assert.Zero(t, s.CurrentPage)
}

func TestEditPath_BackReturnsToMenuOnce(t *testing.T) {
	for _, entry := range []struct {
		button string
		step   session.Step
	}{
		{flow.BtnEditRooms, session.StepRooms},
		{flow.BtnEditDistricts, session.StepDistricts},
		{flow.BtnEditBudget, session.StepBudget},
	} {
		t.Run(entry.button, func(t *testing.T) {
			s := withDistricts(session.New(1))
			s.Step = session.StepFilterSelect

			s, _ = run(t, s, entry.button)
			assert.Equal(t, entry.step, s.Step)

			s, eff := run(t, s, flow.BtnBack)
			assert.Equal(t, session.StepFilterSelect, s.Step)
			assert.Equal(t, session.StepIdle, s.ReturnStep)
			assert.Equal(t, flow.PromptFilterSelect, eff.Prompt)
		})
	}
}

func TestEditPath_BudgetSearches(t *testing.T) {
	s := session.New(1)
	s.Step = session.StepFilterSelect
	s, eff := run(t, s, flow.BtnEditBudget, "200000+")
	assert.Equal(t, flow.EffectSearch, eff.Kind)
	assert.Equal(t, session.StepDone, s.Step)
	assert.Equal(t, 200000, *s.MinPrice)
	assert.Nil(t, s.MaxPrice)
}

func TestEditPath_DistrictsNextSearchesWithoutSelection(t *testing.T) {
	s := withDistricts(session.New(1))
	s.Step = session.StepFilterSelect
	s, eff := run(t, s, flow.BtnEditDistricts, flow.BtnNext)
	assert.Equal(t, flow.EffectSearch, eff.Kind)
	assert.Equal(t, session.StepDone, s.Step)
}

func TestFilterSelect_Reset(t *testing.T) {
	s := withDistricts(session.New(1))
	s.Step = session.StepFilterSelect
	_ = s.ToggleRoom(2)
	s.ToggleDistrict(podil)
	s.SetPriceRange(ptr(1), ptr(2))
	s.MatchingIDs = []int64{9}
	s.CurrentIndex = 1
	s.MarkNotified(9)

	s, eff := run(t, s, flow.BtnResetFilters)
	assert.Equal(t, session.StepRooms, s.Step)
	assert.Equal(t, flow.PromptRooms, eff.Prompt)
	assert.Equal(t, flow.HintFiltersReset, eff.Hint)
	assert.Empty(t, s.RoomCounts)
	assert.Empty(t, s.SelectedDistricts)
	assert.Nil(t, s.MinPrice)
	assert.Empty(t, s.MatchingIDs)
	assert.Zero(t, s.CurrentIndex)
	assert.Equal(t, []int64{9}, s.NotifiedIDs)

	_, eff = flow.Transition(s, "something")
	assert.Equal(t, flow.HintPickRoom, eff.Hint)
}

func TestSort_RejectsUnknownLabel(t *testing.T) {
	s := session.New(1)
	s.Step = session.StepSortSelect
	next, eff := flow.Transition(s, "by size")
	assert.Same(t, s, next)
	assert.Equal(t, flow.HintSortButtons, eff.Hint)
}

func TestSpecialFilters(t *testing.T) {
	s := session.New(1)
	s.Step = session.StepSpecialFilters

	s, eff := run(t, s, flow.BtnRestricted, flow.BtnNotFirstFloor, flow.Checked+flow.BtnRestricted, flow.BtnNotLastFloor)
	assert.False(t, s.OnlyRestrictedProgram)
	assert.True(t, s.NotFirstFloor)
	assert.True(t, s.NotLastFloor)
	assert.Equal(t, flow.PromptSpecialFilters, eff.Prompt)

	next, eff := flow.Transition(s, flow.BtnNext)
	assert.Equal(t, flow.Effect{Kind: flow.EffectSearch}, eff)
	assert.Equal(t, session.StepDone, next.Step)

	next, eff = flow.Transition(s, flow.BtnBack)
	assert.Equal(t, flow.Effect{Kind: flow.EffectSearch, Quiet: true}, eff)
	assert.Equal(t, session.StepDone, next.Step)

	_, eff = flow.Transition(s, "balcony")
	assert.Equal(t, flow.HintSpecialButtons, eff.Hint)
}

func TestStart_ResetsEverything(t *testing.T) {
	s := session.New(1)
	s.Step = session.StepBudget
	s.Version = 4
	s.AddFavorite(3)

	for _, cmd := range []string{"/start", "start", " START "} {
		next, eff := flow.Transition(s, cmd)
		assert.Equal(t, flow.EffectToIdle, eff.Kind)
		assert.Equal(t, session.StepIdle, next.Step)
		assert.Empty(t, next.FavoriteIDs)
		assert.Equal(t, int64(4), next.Version)
	}
}

func TestBackWhileIdle_ShowsMainMenu(t *testing.T) {
	_, eff := flow.Transition(session.New(1), flow.BtnBack)
	assert.Equal(t, flow.EffectToIdle, eff.Kind)
}

func TestGlobalCommands(t *testing.T) {
	tests := []struct {
		in   string
		step session.Step
		eff  flow.Effect
	}{
		{flow.BtnChangeSort, session.StepSortSelect, flow.Effect{Kind: flow.EffectPrompt, Prompt: flow.PromptSort}},
		{flow.BtnChangeFilter, session.StepFilterSelect, flow.Effect{Kind: flow.EffectPrompt, Prompt: flow.PromptFilterSelect}},
		{flow.BtnSpecial, session.StepSpecialFilters, flow.Effect{Kind: flow.EffectPrompt, Prompt: flow.PromptSpecialFilters}},
		{flow.BtnFavorites, session.StepDone, flow.Effect{Kind: flow.EffectFavorites}},
		{flow.BtnCompare, session.StepDone, flow.Effect{Kind: flow.EffectCompare}},
		{flow.BtnFind, session.StepRooms, flow.Effect{Kind: flow.EffectPrompt, Prompt: flow.PromptRooms}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			s := session.New(1)
			s.Step = session.StepDone
			next, eff := flow.Transition(s, tt.in)
			assert.Equal(t, tt.eff, eff)
			assert.Equal(t, tt.step, next.Step)
			assert.Equal(t, session.StepDone, s.Step, "input session must not change")
		})
	}
}

func TestDone(t *testing.T) {
	s := session.New(1)
	s.Step = session.StepDone

	_, eff := flow.Transition(s, flow.BtnNext)
	assert.Equal(t, flow.EffectShowNext, eff.Kind)

	_, eff = flow.Transition(s, "hello")
	assert.Equal(t, flow.EffectUnknown, eff.Kind)
}

// Package flow is the conversation state machine. It maps a session and one
// line of user input to the next session and the effect the caller must
// carry out. It performs no I/O.
package flow

import (
	"strings"

	"github.com/Veraticus/flatscout/internal/session"
)

// EffectKind says what the caller does after a transition.
type EffectKind uint8

const (
	// EffectPrompt renders Effect.Prompt for the new state.
	EffectPrompt EffectKind = iota
	// EffectReprompt rejects the input: the session is unchanged and
	// Effect.Hint explains what the current step expects.
	EffectReprompt
	// EffectSearch runs a fresh search from the first page and shows the
	// first window. An empty result returns the user to the main menu.
	EffectSearch
	// EffectShowNext continues browsing the loaded results.
	EffectShowNext
	// EffectToIdle shows the main menu of a fresh session.
	EffectToIdle
	// EffectFavorites lists the favourite listings.
	EffectFavorites
	// EffectCompare renders the comparison of the selected listings.
	EffectCompare
	// EffectUnknown answers input that matches nothing.
	EffectUnknown
)

func (k EffectKind) String() string {
	switch k {
	case EffectPrompt:
		return "prompt"
	case EffectReprompt:
		return "reprompt"
	case EffectSearch:
		return "search"
	case EffectShowNext:
		return "show_next"
	case EffectToIdle:
		return "to_idle"
	case EffectFavorites:
		return "favorites"
	case EffectCompare:
		return "compare"
	case EffectUnknown:
		return "unknown"
	}
	return "invalid"
}

// Prompt identifies a screen the caller renders.
type Prompt uint8

// Screens.
const (
	PromptNone Prompt = iota
	PromptMainMenu
	PromptRooms
	PromptDistricts
	PromptBudget
	PromptSort
	PromptSpecialFilters
	PromptFilterSelect
)

// Hint identifies the message sent with a rejected input, or a notice shown
// before a prompt.
type Hint uint8

// Hints.
const (
	HintNone Hint = iota
	HintPickRoom
	HintRoomRange
	HintPickDistrict
	HintUnknownDistrict
	HintBudgetFormat
	HintSortButtons
	HintSpecialButtons
	HintFilterButtons
	HintFiltersReset
)

// Effect is the single side effect requested by a transition.
type Effect struct {
	Kind   EffectKind
	Prompt Prompt
	Hint   Hint
	// Quiet asks EffectSearch to acknowledge with the browsing menu instead
	// of showing the first window.
	Quiet bool
}

func prompt(p Prompt) Effect { return Effect{Kind: EffectPrompt, Prompt: p} }

func reprompt(h Hint) Effect { return Effect{Kind: EffectReprompt, Hint: h} }

var (
	search   = Effect{Kind: EffectSearch}
	showNext = Effect{Kind: EffectShowNext}
	unknown  = Effect{Kind: EffectUnknown}
)

type handler func(s *session.Session, text string) Effect

var handlers = map[session.Step]handler{
	session.StepIdle:           handleIdle,
	session.StepRooms:          handleRooms,
	session.StepDistricts:      handleDistricts,
	session.StepBudget:         handleBudget,
	session.StepSortSelect:     handleSort,
	session.StepSpecialFilters: handleSpecialFilters,
	session.StepFilterSelect:   handleFilterSelect,
	session.StepDone:           handleDone,
}

// Transition applies one line of input to a copy of cur. The returned
// session is cur itself when the effect is a reprompt.
func Transition(cur *session.Session, text string) (*session.Session, Effect) {
	text = strings.TrimSpace(text)

	if text == CmdStart || strings.EqualFold(text, CmdStartPlain) {
		return restart(cur), Effect{Kind: EffectToIdle}
	}
	if cur.Step == session.StepIdle && isBack(text) {
		return restart(cur), Effect{Kind: EffectToIdle}
	}

	next := cur.Clone()
	if eff, ok := global(next, text); ok {
		return next, eff
	}

	h, ok := handlers[cur.Step]
	if !ok {
		return restart(cur), Effect{Kind: EffectToIdle}
	}
	eff := h(next, text)
	if eff.Kind == EffectReprompt {
		return cur, eff
	}
	return next, eff
}

// restart returns a fresh session that can still replace the stored one.
func restart(cur *session.Session) *session.Session {
	s := session.New(cur.UserID)
	s.Version = cur.Version
	return s
}

// global handles the menu commands accepted in every state.
func global(s *session.Session, text string) (Effect, bool) {
	switch text {
	case BtnFind:
		s.Step = session.StepRooms
		s.ReturnStep = session.StepIdle
		s.RoomCounts = nil
		return prompt(PromptRooms), true
	case BtnFavorites:
		return Effect{Kind: EffectFavorites}, true
	case BtnCompare:
		return Effect{Kind: EffectCompare}, true
	case BtnChangeSort:
		s.Step = session.StepSortSelect
		return prompt(PromptSort), true
	case BtnChangeFilter:
		s.Step = session.StepFilterSelect
		s.ReturnStep = session.StepIdle
		return prompt(PromptFilterSelect), true
	case BtnSpecial:
		s.Step = session.StepSpecialFilters
		return prompt(PromptSpecialFilters), true
	}
	return Effect{}, false
}

func isNext(text string) bool { return strings.HasPrefix(text, nextGlyph) }

func isBack(text string) bool { return strings.HasPrefix(text, backGlyph) }

// uncheck strips the selection mark a toggle keyboard adds to a label.
func uncheck(text string) string {
	return strings.TrimSpace(strings.TrimPrefix(text, checkMark))
}

// editing reports whether the current step was entered from the filter menu.
func editing(s *session.Session) bool {
	return s.ReturnStep == session.StepFilterSelect
}

// finishEdit leaves the single-field edit detour and asks for a search.
func finishEdit(s *session.Session) Effect {
	s.ReturnStep = session.StepIdle
	s.Step = session.StepDone
	s.ResetCursor()
	return search
}

// backToFilterMenu consumes the return state.
func backToFilterMenu(s *session.Session) Effect {
	s.ReturnStep = session.StepIdle
	s.Step = session.StepFilterSelect
	return prompt(PromptFilterSelect)
}

package flow

import (
	"strconv"
	"strings"

	"github.com/Veraticus/flatscout/internal/session"
)

func handleIdle(_ *session.Session, _ string) Effect {
	return unknown
}

func handleRooms(s *session.Session, text string) Effect {
	switch {
	case isNext(text):
		if editing(s) {
			return finishEdit(s)
		}
		if len(s.RoomCounts) == 0 {
			return reprompt(HintPickRoom)
		}
		s.Step = session.StepDistricts
		s.SelectedDistricts = nil
		return prompt(PromptDistricts)

	case isBack(text):
		if editing(s) {
			return backToFilterMenu(s)
		}
		return prompt(PromptRooms)
	}

	n, err := strconv.Atoi(uncheck(text))
	if err != nil {
		return reprompt(HintPickRoom)
	}
	if err := s.ToggleRoom(n); err != nil {
		return reprompt(HintRoomRange)
	}
	return prompt(PromptRooms)
}

func handleDistricts(s *session.Session, text string) Effect {
	switch {
	case isNext(text):
		if editing(s) {
			return finishEdit(s)
		}
		if len(s.SelectedDistricts) == 0 {
			return reprompt(HintPickDistrict)
		}
		s.Step = session.StepBudget
		return prompt(PromptBudget)

	case isBack(text):
		if editing(s) {
			return backToFilterMenu(s)
		}
		s.Step = session.StepRooms
		return prompt(PromptRooms)
	}

	d, ok := s.FindDistrict(uncheck(text))
	if !ok {
		return reprompt(HintUnknownDistrict)
	}
	s.ToggleDistrict(d)
	return prompt(PromptDistricts)
}

func handleBudget(s *session.Session, text string) Effect {
	if isBack(text) {
		if editing(s) {
			return backToFilterMenu(s)
		}
		s.Step = session.StepDistricts
		return prompt(PromptDistricts)
	}

	lo, hi, ok := ParseBudget(text)
	if !ok {
		return reprompt(HintBudgetFormat)
	}
	s.SetPriceRange(lo, hi)

	if editing(s) {
		return finishEdit(s)
	}
	s.Step = session.StepSortSelect
	return prompt(PromptSort)
}

var sortLabels = map[string]session.SortOrder{
	BtnSortCheap:     session.SortPriceAsc,
	BtnSortExpensive: session.SortPriceDesc,
	BtnSortNewest:    session.SortNewest,
}

func handleSort(s *session.Session, text string) Effect {
	order, ok := sortLabels[text]
	if !ok {
		return reprompt(HintSortButtons)
	}
	s.SortBy = order
	return finishEdit(s)
}

func handleSpecialFilters(s *session.Session, text string) Effect {
	switch {
	case strings.Contains(text, keyRestricted):
		s.OnlyRestrictedProgram = !s.OnlyRestrictedProgram
	case strings.Contains(text, keyNotFirstFloor):
		s.NotFirstFloor = !s.NotFirstFloor
	case strings.Contains(text, keyNotLastFloor):
		s.NotLastFloor = !s.NotLastFloor
	case isBack(text):
		eff := finishEdit(s)
		eff.Quiet = true
		return eff
	case isNext(text):
		return finishEdit(s)
	default:
		return reprompt(HintSpecialButtons)
	}
	return prompt(PromptSpecialFilters)
}

func handleFilterSelect(s *session.Session, text string) Effect {
	switch text {
	case BtnEditRooms:
		s.ReturnStep = session.StepFilterSelect
		s.Step = session.StepRooms
		return prompt(PromptRooms)
	case BtnEditDistricts:
		s.ReturnStep = session.StepFilterSelect
		s.Step = session.StepDistricts
		return prompt(PromptDistricts)
	case BtnEditBudget:
		s.ReturnStep = session.StepFilterSelect
		s.Step = session.StepBudget
		return prompt(PromptBudget)
	case BtnResetFilters:
		s.ResetFilters()
		s.ReturnStep = session.StepIdle
		s.Step = session.StepRooms
		return Effect{Kind: EffectPrompt, Prompt: PromptRooms, Hint: HintFiltersReset}
	}
	return reprompt(HintFilterButtons)
}

func handleDone(_ *session.Session, text string) Effect {
	if isNext(text) {
		return showNext
	}
	return unknown
}

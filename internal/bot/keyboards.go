package bot

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Veraticus/flatscout/internal/flow"
	"github.com/Veraticus/flatscout/internal/session"
)

const buttonsPerRow = 2

func keyboard(rows ...[]string) *tgbotapi.ReplyKeyboardMarkup {
	buttons := make([][]tgbotapi.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		r := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			r = append(r, tgbotapi.NewKeyboardButton(label))
		}
		buttons = append(buttons, tgbotapi.NewKeyboardButtonRow(r...))
	}
	kb := tgbotapi.NewReplyKeyboard(buttons...)
	return &kb
}

// chunk splits labels into rows of n.
func chunk(labels []string, n int) [][]string {
	var rows [][]string
	for len(labels) > n {
		rows = append(rows, labels[:n])
		labels = labels[n:]
	}
	if len(labels) > 0 {
		rows = append(rows, labels)
	}
	return rows
}

func checked(on bool, label string) string {
	if on {
		return flow.Checked + label
	}
	return label
}

// startMenu is shown to idle users.
func startMenu() *tgbotapi.ReplyKeyboardMarkup {
	return keyboard([]string{flow.BtnFind}, []string{flow.BtnFavorites})
}

// browseMenu is shown while results are being viewed.
func browseMenu() *tgbotapi.ReplyKeyboardMarkup {
	return keyboard(
		[]string{flow.BtnNext},
		[]string{flow.BtnChangeFilter},
		[]string{flow.BtnChangeSort},
		[]string{flow.BtnFavorites},
		[]string{flow.BtnSpecial},
		[]string{flow.BtnCompare},
	)
}

func roomsKeyboard(s *session.Session) *tgbotapi.ReplyKeyboardMarkup {
	labels := make([]string, 0, flow.RoomButtons)
	for n := 1; n <= flow.RoomButtons; n++ {
		labels = append(labels, checked(s.HasRoom(n), strconv.Itoa(n)))
	}
	rows := chunk(labels, buttonsPerRow)
	rows = append(rows, []string{flow.BtnNext})
	if s.ReturnStep == session.StepFilterSelect {
		rows = append(rows, []string{flow.BtnBack})
	}
	return keyboard(rows...)
}

func districtsKeyboard(s *session.Session) *tgbotapi.ReplyKeyboardMarkup {
	labels := make([]string, 0, len(s.AvailableDistricts))
	for _, d := range s.AvailableDistricts {
		labels = append(labels, checked(s.HasDistrict(d.ID), d.Name))
	}
	rows := chunk(labels, buttonsPerRow)
	rows = append(rows, []string{flow.BtnNext}, []string{flow.BtnBack})
	return keyboard(rows...)
}

func budgetKeyboard() *tgbotapi.ReplyKeyboardMarkup {
	rows := chunk(flow.BudgetPresets, buttonsPerRow)
	rows = append(rows, []string{flow.BtnBack})
	return keyboard(rows...)
}

func sortKeyboard() *tgbotapi.ReplyKeyboardMarkup {
	return keyboard(
		[]string{flow.BtnSortCheap, flow.BtnSortExpensive},
		[]string{flow.BtnSortNewest},
	)
}

func specialKeyboard(s *session.Session) *tgbotapi.ReplyKeyboardMarkup {
	return keyboard(
		[]string{checked(s.OnlyRestrictedProgram, flow.BtnRestricted)},
		[]string{checked(s.NotFirstFloor, flow.BtnNotFirstFloor)},
		[]string{checked(s.NotLastFloor, flow.BtnNotLastFloor)},
		[]string{flow.BtnBack, flow.BtnNext},
	)
}

func filterKeyboard() *tgbotapi.ReplyKeyboardMarkup {
	return keyboard(
		[]string{flow.BtnEditRooms},
		[]string{flow.BtnEditDistricts},
		[]string{flow.BtnEditBudget},
		[]string{flow.BtnResetFilters},
	)
}

// screen returns the text and keyboard of a prompt for s.
func screen(p flow.Prompt, s *session.Session) (string, *tgbotapi.ReplyKeyboardMarkup) {
	switch p {
	case flow.PromptRooms:
		return promptRooms, roomsKeyboard(s)
	case flow.PromptDistricts:
		return promptDistricts, districtsKeyboard(s)
	case flow.PromptBudget:
		return promptBudget, budgetKeyboard()
	case flow.PromptSort:
		return promptSort, sortKeyboard()
	case flow.PromptSpecialFilters:
		return promptSpecial, specialKeyboard(s)
	case flow.PromptFilterSelect:
		return promptFilters, filterKeyboard()
	}
	return msgGreeting, startMenu()
}

// stepKeyboard is the keyboard that belongs to the step s is in. It is
// attached to reprompts so the user keeps the right buttons.
func stepKeyboard(s *session.Session) *tgbotapi.ReplyKeyboardMarkup {
	switch s.Step {
	case session.StepRooms:
		return roomsKeyboard(s)
	case session.StepDistricts:
		return districtsKeyboard(s)
	case session.StepBudget:
		return budgetKeyboard()
	case session.StepSortSelect:
		return sortKeyboard()
	case session.StepSpecialFilters:
		return specialKeyboard(s)
	case session.StepFilterSelect:
		return filterKeyboard()
	case session.StepDone:
		return browseMenu()
	}
	return startMenu()
}

package session

import "fmt"

// Step is a state of the search conversation.
type Step uint8

// Conversation steps. StepIdle is the zero value: a fresh or finished session.
const (
	StepIdle Step = iota
	StepRooms
	StepDistricts
	StepBudget
	StepSortSelect
	StepSpecialFilters
	StepFilterSelect
	StepDone
)

var stepNames = map[Step]string{
	StepIdle:           "",
	StepRooms:          "rooms",
	StepDistricts:      "districts",
	StepBudget:         "budget",
	StepSortSelect:     "sort_select",
	StepSpecialFilters: "special_filters",
	StepFilterSelect:   "filter_select",
	StepDone:           "done",
}

// String returns the persisted name of the step. Idle is the empty string.
func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", uint8(s))
}

// ParseStep converts a persisted step name back into a Step.
func ParseStep(name string) (Step, error) {
	if name == "idle" {
		return StepIdle, nil
	}
	for step, n := range stepNames {
		if n == name {
			return step, nil
		}
	}
	return StepIdle, fmt.Errorf("unknown step %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Step) MarshalText() ([]byte, error) {
	if _, ok := stepNames[s]; !ok {
		return nil, fmt.Errorf("unknown step %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Step) UnmarshalText(text []byte) error {
	step, err := ParseStep(string(text))
	if err != nil {
		return err
	}
	*s = step
	return nil
}

// SortOrder is the result ordering requested by the user.
type SortOrder string

// Supported orderings. SortNewest is the default.
const (
	SortPriceAsc  SortOrder = "price_up"
	SortPriceDesc SortOrder = "price_down"
	SortNewest    SortOrder = "date"
)

// Valid reports whether o is one of the known orderings.
func (o SortOrder) Valid() bool {
	switch o {
	case SortPriceAsc, SortPriceDesc, SortNewest:
		return true
	}
	return false
}

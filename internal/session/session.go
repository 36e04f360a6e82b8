// Package session holds the per-user search record and its persistence.
package session

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
)

// Room count bounds accepted by the catalog.
const (
	MinRooms = 1
	MaxRooms = 5
)

// MaxCompare is the number of listings that can be compared side by side.
const MaxCompare = 2

// ErrCompareFull is returned when a third listing is added to the comparison.
var ErrCompareFull = errors.New("comparison already holds two listings")

// District is a city district as reported by the catalog.
type District struct {
	ID   int    `json:"id"`
	Name string `json:"name" validate:"required"`
}

// Session is the single persisted record per user: the filter being built,
// the result cursor and the interaction history.
type Session struct {
	UpdatedAt time.Time `json:"updated_at"`

	MinPrice *int `json:"min_price,omitempty" validate:"omitempty,gte=0"`
	MaxPrice *int `json:"max_price,omitempty" validate:"omitempty,gte=0"`

	SortBy SortOrder `json:"sort_by" validate:"omitempty,oneof=price_up price_down date"`

	RoomCounts         []int      `json:"room_counts,omitempty" validate:"dive,min=1,max=5"`
	SelectedDistricts  []District `json:"selected_districts,omitempty" validate:"dive"`
	AvailableDistricts []District `json:"available_districts,omitempty"`

	MatchingIDs []int64 `json:"matching_ids,omitempty"`
	FavoriteIDs []int64 `json:"favorite_ids,omitempty"`
	CompareIDs  []int64 `json:"compare_ids,omitempty" validate:"max=2"`
	NotifiedIDs []int64 `json:"notified_ids,omitempty"`

	UserID       int64 `json:"user_id" validate:"required"`
	CurrentIndex int   `json:"current_index" validate:"gte=0"`
	CurrentPage  int   `json:"current_page" validate:"gte=0"`
	TotalCount   int   `json:"total_count" validate:"gte=0"`

	// Version is bumped by the store on every successful save.
	Version int64 `json:"version"`

	Step Step `json:"step"`
	// ReturnStep is set when a single field is edited from the filter menu;
	// finishing that field runs the search instead of continuing the wizard.
	ReturnStep Step `json:"previous_step"`

	NotFirstFloor         bool `json:"not_first_floor"`
	NotLastFloor          bool `json:"not_last_floor"`
	OnlyRestrictedProgram bool `json:"only_restricted_program"`
}

var validate = validator.New()

// New returns a fresh idle session for userID.
func New(userID int64) *Session {
	return &Session{
		UserID: userID,
		SortBy: SortNewest,
	}
}

// Validate checks the record invariants.
func (s *Session) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid session %d: %w", s.UserID, err)
	}
	if s.MinPrice != nil && s.MaxPrice != nil && *s.MinPrice > *s.MaxPrice {
		return fmt.Errorf("invalid session %d: min price %d above max price %d", s.UserID, *s.MinPrice, *s.MaxPrice)
	}
	if s.CurrentIndex > len(s.MatchingIDs) {
		return fmt.Errorf("invalid session %d: cursor %d beyond %d matches", s.UserID, s.CurrentIndex, len(s.MatchingIDs))
	}
	return nil
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.MinPrice = clonePtr(s.MinPrice)
	c.MaxPrice = clonePtr(s.MaxPrice)
	c.RoomCounts = slices.Clone(s.RoomCounts)
	c.SelectedDistricts = slices.Clone(s.SelectedDistricts)
	c.AvailableDistricts = slices.Clone(s.AvailableDistricts)
	c.MatchingIDs = slices.Clone(s.MatchingIDs)
	c.FavoriteIDs = slices.Clone(s.FavoriteIDs)
	c.CompareIDs = slices.Clone(s.CompareIDs)
	c.NotifiedIDs = slices.Clone(s.NotifiedIDs)
	return &c
}

func clonePtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ToggleRoom flips membership of n in the room set.
func (s *Session) ToggleRoom(n int) error {
	if n < MinRooms || n > MaxRooms {
		return fmt.Errorf("room count %d out of range %d..%d", n, MinRooms, MaxRooms)
	}
	if i := slices.Index(s.RoomCounts, n); i >= 0 {
		s.RoomCounts = slices.Delete(s.RoomCounts, i, i+1)
		return nil
	}
	s.RoomCounts = append(s.RoomCounts, n)
	return nil
}

// HasRoom reports whether n is selected.
func (s *Session) HasRoom(n int) bool {
	return slices.Contains(s.RoomCounts, n)
}

// FindDistrict looks a district up by its exact display name.
func (s *Session) FindDistrict(name string) (District, bool) {
	for _, d := range s.AvailableDistricts {
		if d.Name == name {
			return d, true
		}
	}
	return District{}, false
}

// ToggleDistrict flips membership of d in the selected set.
func (s *Session) ToggleDistrict(d District) {
	i := slices.IndexFunc(s.SelectedDistricts, func(x District) bool { return x.ID == d.ID })
	if i >= 0 {
		s.SelectedDistricts = slices.Delete(s.SelectedDistricts, i, i+1)
		return
	}
	s.SelectedDistricts = append(s.SelectedDistricts, d)
}

// HasDistrict reports whether the district with id is selected.
func (s *Session) HasDistrict(id int) bool {
	return slices.ContainsFunc(s.SelectedDistricts, func(x District) bool { return x.ID == id })
}

// SetPriceRange stores the bounds, swapping them if they arrive inverted.
func (s *Session) SetPriceRange(lo, hi *int) {
	if lo != nil && hi != nil && *lo > *hi {
		lo, hi = hi, lo
	}
	s.MinPrice = clonePtr(lo)
	s.MaxPrice = clonePtr(hi)
}

// AddFavorite adds id and reports whether it was new.
func (s *Session) AddFavorite(id int64) bool {
	if slices.Contains(s.FavoriteIDs, id) {
		return false
	}
	s.FavoriteIDs = append(s.FavoriteIDs, id)
	return true
}

// RemoveFavorite removes id and reports whether it was present.
func (s *Session) RemoveFavorite(id int64) bool {
	i := slices.Index(s.FavoriteIDs, id)
	if i < 0 {
		return false
	}
	s.FavoriteIDs = slices.Delete(s.FavoriteIDs, i, i+1)
	return true
}

// IsFavorite reports whether id is a favourite.
func (s *Session) IsFavorite(id int64) bool {
	return slices.Contains(s.FavoriteIDs, id)
}

// AddCompare adds id to the comparison. It reports false without error when
// id is already there, and ErrCompareFull when the set is at capacity.
func (s *Session) AddCompare(id int64) (bool, error) {
	if slices.Contains(s.CompareIDs, id) {
		return false, nil
	}
	if len(s.CompareIDs) >= MaxCompare {
		return false, ErrCompareFull
	}
	s.CompareIDs = append(s.CompareIDs, id)
	return true, nil
}

// MarkNotified appends the ids not yet seen and returns how many were added.
func (s *Session) MarkNotified(ids ...int64) int {
	added := 0
	for _, id := range ids {
		if slices.Contains(s.NotifiedIDs, id) {
			continue
		}
		s.NotifiedIDs = append(s.NotifiedIDs, id)
		added++
	}
	return added
}

// IsNotified reports whether id has already been shown to the user.
func (s *Session) IsNotified(id int64) bool {
	return slices.Contains(s.NotifiedIDs, id)
}

// Unseen returns the ids from candidates that are not in the notified set,
// preserving order.
func (s *Session) Unseen(candidates []int64) []int64 {
	var out []int64
	for _, id := range candidates {
		if !s.IsNotified(id) && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// ResetCursor drops the loaded result window so the next browse starts a new search.
func (s *Session) ResetCursor() {
	s.MatchingIDs = nil
	s.CurrentIndex = 0
	s.CurrentPage = 0
	s.TotalCount = 0
}

// ResetFilters clears rooms, districts, prices and the cursor. The notified
// set, favourites and toggles survive.
func (s *Session) ResetFilters() {
	s.RoomCounts = nil
	s.SelectedDistricts = nil
	s.AvailableDistricts = nil
	s.MinPrice = nil
	s.MaxPrice = nil
	s.ResetCursor()
}

// Remaining returns the number of loaded ids not yet shown.
func (s *Session) Remaining() int {
	return len(s.MatchingIDs) - s.CurrentIndex
}

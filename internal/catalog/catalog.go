// Package catalog queries the DOM.RIA listing API.
package catalog

import (
	"context"
	"errors"
	"slices"

	"github.com/Veraticus/flatscout/internal/session"
)

var (
	// ErrNotFound is returned by Detail for an unknown listing.
	ErrNotFound = errors.New("listing not found")
	// ErrUnavailable wraps every transport, status and decoding failure.
	ErrUnavailable = errors.New("catalog unavailable")
)

// Gateway is the listing source used by the conversation and the notifier.
type Gateway interface {
	Search(ctx context.Context, q Query, page, pageSize int) (SearchResult, error)
	Detail(ctx context.Context, id int64) (*Item, error)
	Districts(ctx context.Context) ([]session.District, error)
}

// Query is the filter part of a session in catalog terms.
type Query struct {
	MinPrice              *int
	MaxPrice              *int
	Sort                  session.SortOrder
	Rooms                 []int
	DistrictIDs           []int
	NotFirstFloor         bool
	NotLastFloor          bool
	OnlyRestrictedProgram bool
}

// QueryFrom extracts the search filter from s.
func QueryFrom(s *session.Session) Query {
	q := Query{
		Sort:                  s.SortBy,
		Rooms:                 slices.Clone(s.RoomCounts),
		NotFirstFloor:         s.NotFirstFloor,
		NotLastFloor:          s.NotLastFloor,
		OnlyRestrictedProgram: s.OnlyRestrictedProgram,
	}
	if s.MinPrice != nil {
		v := *s.MinPrice
		q.MinPrice = &v
	}
	if s.MaxPrice != nil {
		v := *s.MaxPrice
		q.MaxPrice = &v
	}
	for _, d := range s.SelectedDistricts {
		q.DistrictIDs = append(q.DistrictIDs, d.ID)
	}
	return q
}

// SearchResult is one page of matching listing ids.
type SearchResult struct {
	Items []int64 `json:"items"`
	Count int     `json:"count"`
}

// Item is the display form of one listing.
type Item struct {
	Latitude          *float64
	Longitude         *float64
	Title             string
	Price             string
	URL               string
	Area              string
	Floor             string
	Street            string
	Metro             string
	Complex           string
	AdminDistrict     string
	CityDistrict      string
	PublishedAt       string
	ID                int64
	RestrictedProgram bool
}

// HasLocation reports whether the listing carries coordinates.
func (i *Item) HasLocation() bool {
	return i.Latitude != nil && i.Longitude != nil
}

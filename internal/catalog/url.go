package catalog

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/Veraticus/flatscout/internal/session"
)

// DOM.RIA characteristic ids.
const (
	charRooms             = "209"
	charPrice             = "234"
	charRestrictedProgram = "2001"
)

// Fixed search scope: flats, for rent.
const (
	categoryFlats = "1"
	operationRent = "1"
)

func sortParam(o session.SortOrder) string {
	switch o {
	case session.SortPriceAsc:
		return "p_a"
	case session.SortPriceDesc:
		return "p_d"
	default:
		return "created-at"
	}
}

// resourceURL renders a keyed GET of path.
func resourceURL(baseURL, path, apiKey string) string {
	return strings.TrimRight(baseURL, "/") + path + "?" + url.Values{"api_key": {apiKey}}.Encode()
}

// BuildSearchURL renders the search request for q. Inverted price bounds
// are swapped.
func BuildSearchURL(baseURL, apiKey string, cityID int, q Query, page, limit int) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(baseURL, "/"))
	b.WriteString("/dom/search?api_key=")
	b.WriteString(url.QueryEscape(apiKey))
	b.WriteString("&category=" + categoryFlats)
	b.WriteString("&operation_type=" + operationRent)
	b.WriteString("&city_id=" + strconv.Itoa(cityID))

	for _, r := range q.Rooms {
		b.WriteString("&characteristic[" + charRooms + "][]=" + strconv.Itoa(r))
	}
	for _, id := range q.DistrictIDs {
		b.WriteString("&district_id[]=" + strconv.Itoa(id))
	}

	lo, hi := q.MinPrice, q.MaxPrice
	if lo != nil && hi != nil && *lo > *hi {
		lo, hi = hi, lo
	}
	if lo != nil {
		b.WriteString("&characteristic[" + charPrice + "][from]=" + strconv.Itoa(*lo))
	}
	if hi != nil {
		b.WriteString("&characteristic[" + charPrice + "][to]=" + strconv.Itoa(*hi))
	}

	if q.NotFirstFloor {
		b.WriteString("&notFirstFloor=1")
	}
	if q.NotLastFloor {
		b.WriteString("&notLastFloor=1")
	}
	if q.OnlyRestrictedProgram {
		b.WriteString("&characteristic[" + charRestrictedProgram + "]=" + charRestrictedProgram)
	}

	b.WriteString("&sort=" + sortParam(q.Sort))
	b.WriteString("&page=" + strconv.Itoa(page))
	b.WriteString("&limit=" + strconv.Itoa(limit))
	return b.String()
}

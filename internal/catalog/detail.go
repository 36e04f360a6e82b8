package catalog

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Placeholders for fields the listing does not provide.
const (
	noTitle     = "No description"
	noPrice     = "Price not specified"
	noArea      = "Area not specified"
	noFloor     = "Floor not specified"
	noStreet    = "Street not specified"
	noMetro     = "No metro station"
	noComplex   = "No residential complex"
	noDistrict  = "District not specified"
	noPublished = "Publication date not specified"
)

type detailResponse struct {
	Price                 *int64                     `json:"price"`
	TotalSquareMeters     *float64                   `json:"total_square_meters"`
	Latitude              *float64                   `json:"latitude"`
	Longitude             *float64                   `json:"longitude"`
	CharacteristicsValues map[string]json.RawMessage `json:"characteristics_values"`
	DescriptionUK         string                     `json:"description_uk"`
	CurrencyType          string                     `json:"currency_type"`
	BeautifulURL          string                     `json:"beautiful_url"`
	FloorInfo             string                     `json:"floor_info"`
	StreetNameUK          string                     `json:"street_name_uk"`
	MetroStationNameUK    string                     `json:"metro_station_name_uk"`
	UserNewbuildNameUK    string                     `json:"user_newbuild_name_uk"`
	AdminDistrictNameUK   string                     `json:"admin_district_name_uk"`
	DistrictNameUK        string                     `json:"district_name_uk"`
	PublishingDateInfo    string                     `json:"publishing_date_info"`
	RealtyID              int64                      `json:"realty_id"`
}

func (r *detailResponse) toItem() *Item {
	item := &Item{
		ID:                r.RealtyID,
		Title:             orDefault(firstLine(r.DescriptionUK), noTitle),
		Price:             noPrice,
		URL:               listingBaseURL + "/",
		Area:              noArea,
		Floor:             orDefault(r.FloorInfo, noFloor),
		Street:            orDefault(r.StreetNameUK, noStreet),
		Metro:             orDefault(r.MetroStationNameUK, noMetro),
		Complex:           orDefault(r.UserNewbuildNameUK, noComplex),
		AdminDistrict:     r.AdminDistrictNameUK,
		CityDistrict:      orDefault(r.DistrictNameUK, noDistrict),
		PublishedAt:       orDefault(r.PublishingDateInfo, noPublished),
		Latitude:          r.Latitude,
		Longitude:         r.Longitude,
		RestrictedProgram: r.restrictedProgram(),
	}
	if r.Price != nil && r.CurrencyType != "" {
		item.Price = groupThousands(*r.Price) + " " + r.CurrencyType
	}
	if r.BeautifulURL != "" {
		item.URL = listingBaseURL + "/uk/" + r.BeautifulURL
	}
	if r.TotalSquareMeters != nil {
		area := math.Round(*r.TotalSquareMeters*100) / 100
		item.Area = strconv.FormatFloat(area, 'f', -1, 64) + " m²"
	}
	return item
}

func (r *detailResponse) restrictedProgram() bool {
	raw, ok := r.CharacteristicsValues[charRestrictedProgram]
	if !ok {
		return false
	}
	var v int
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	return v == 2001
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// groupThousands formats n with a space between digit groups.
func groupThousands(n int64) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(d)
	}
	return sign + b.String()
}

package domain

import (
	"fmt"
	"strings"
	"time"
)

// FetchMode tags how locations were requested. Normalization relies on it to
// decide whether a missing location column may be filled in.
type FetchMode string

const (
	// FetchModeSingle requests exactly one explicit location
	FetchModeSingle FetchMode = "single"
	// FetchModeList requests an explicit list of locations
	FetchModeList FetchMode = "list"
	// FetchModeAll requests every location the source knows, aggregates included
	FetchModeAll FetchMode = "all"
)

// AllLocationsSentinel is the source's token for "every location"
const AllLocationsSentinel = "all"

// LocationSelector is the set of locations a fetch targets, tagged with its mode
type LocationSelector struct {
	Mode  FetchMode `json:"mode"`
	Codes []string  `json:"codes,omitempty"`
}

// SingleLocation selects one explicit location
func SingleLocation(code string) LocationSelector {
	return LocationSelector{Mode: FetchModeSingle, Codes: []string{code}}
}

// LocationList selects an explicit list of locations
func LocationList(codes ...string) LocationSelector {
	return LocationSelector{Mode: FetchModeList, Codes: append([]string(nil), codes...)}
}

// AllLocations selects every location
func AllLocations() LocationSelector {
	return LocationSelector{Mode: FetchModeAll}
}

// ParseLocationSelector reads "all", "USA" or "USA,CHN,IND" (";" also accepted).
// A list holding a single code is treated as a single-location fetch.
func ParseLocationSelector(s string) (LocationSelector, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, AllLocationsSentinel) {
		return AllLocations(), nil
	}

	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	codes := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ToUpper(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		if strings.EqualFold(f, AllLocationsSentinel) {
			return LocationSelector{}, fmt.Errorf("%q cannot be combined with explicit locations", AllLocationsSentinel)
		}
		codes = append(codes, f)
	}

	switch len(codes) {
	case 0:
		return LocationSelector{}, fmt.Errorf("no location codes in %q", s)
	case 1:
		return SingleLocation(codes[0]), nil
	default:
		return LocationList(codes...), nil
	}
}

// SingleCode returns the one explicit code of a single-location selector
func (l LocationSelector) SingleCode() (string, bool) {
	if l.Mode != FetchModeSingle || len(l.Codes) != 1 {
		return "", false
	}
	return l.Codes[0], true
}

// PathSegment renders the selector the way the source expects it in a URL path
func (l LocationSelector) PathSegment() string {
	if l.Mode == FetchModeAll || len(l.Codes) == 0 {
		return AllLocationsSentinel
	}
	return strings.Join(l.Codes, ";")
}

// String implements fmt.Stringer
func (l LocationSelector) String() string {
	return fmt.Sprintf("%s[%s]", l.Mode, l.PathSegment())
}

// PeriodRange is an inclusive range of years
type PeriodRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// PeriodRangeFromDates derives the year range from ISO (2006-01-02) dates
func PeriodRangeFromDates(start, end string) (PeriodRange, error) {
	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		return PeriodRange{}, fmt.Errorf("parse start date %q: %w", start, err)
	}
	e, err := time.Parse("2006-01-02", end)
	if err != nil {
		return PeriodRange{}, fmt.Errorf("parse end date %q: %w", end, err)
	}
	r := PeriodRange{Start: s.Year(), End: e.Year()}
	if r.Start > r.End {
		return PeriodRange{}, fmt.Errorf("start year %d is after end year %d", r.Start, r.End)
	}
	return r, nil
}

// Query renders the range as the source's "start:end" date parameter
func (p PeriodRange) Query() string {
	return fmt.Sprintf("%d:%d", p.Start, p.End)
}

// Location is one country or aggregate known to the source
type Location struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	ISO2Code      string `json:"iso2_code"`
	RegionID      string `json:"region_id"`
	RegionName    string `json:"region_name"`
	IncomeLevelID string `json:"income_level_id"`
	IncomeLevel   string `json:"income_level"`
	LendingTypeID string `json:"lending_type_id"`
	LendingType   string `json:"lending_type"`
	CapitalCity   string `json:"capital_city"`
	Longitude     string `json:"longitude"`
	Latitude      string `json:"latitude"`
}

// IsAggregate reports whether the location is a regional or income aggregate
// rather than a country
func (l Location) IsAggregate() bool {
	return l.RegionID == "NA" || strings.EqualFold(l.RegionName, "Aggregates")
}

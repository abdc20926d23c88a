package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Observation is one indicator value as the World Bank API reports it
type Observation struct {
	ISO3   string
	ISO2   string
	Name   string
	Period string
	Value  *float64
}

// Obs builds an observation; a nil value is reported as JSON null
func Obs(iso3, period string, value *float64) Observation {
	iso2 := iso3
	if len(iso2) > 2 {
		iso2 = iso2[:2]
	}
	return Observation{ISO3: iso3, ISO2: iso2, Name: iso3, Period: period, Value: value}
}

// F returns a pointer to v
func F(v float64) *float64 { return &v }

// CountryFixture is one entry of the country listing
type CountryFixture struct {
	ID          string
	ISO2        string
	Name        string
	RegionID    string
	Region      string
	IncomeID    string
	Income      string
	LendingID   string
	Lending     string
	CapitalCity string
	Longitude   string
	Latitude    string
}

// WorldBankFixtures is the data a fake World Bank API serves
type WorldBankFixtures struct {
	// Indicators maps an indicator code to its observations
	Indicators map[string][]Observation
	// Errors maps an indicator code to an API error message
	Errors map[string]string
	// Status maps an indicator code to an HTTP status to fail with
	Status map[string]int
	// Countries is served by the country listing
	Countries []CountryFixture
	// CountriesStatus fails the country listing with this status when set
	CountriesStatus int
}

// DefaultWorldBankFixtures returns two countries with GDP and life expectancy
// for 2010-2012
func DefaultWorldBankFixtures() *WorldBankFixtures {
	return &WorldBankFixtures{
		Indicators: map[string][]Observation{
			"NY.GDP.PCAP.KD": {
				Obs("USA", "2012", F(121)),
				Obs("USA", "2011", F(110)),
				Obs("USA", "2010", F(100)),
				Obs("DEU", "2012", F(90)),
				Obs("DEU", "2011", nil),
				Obs("DEU", "2010", F(80)),
			},
			"SP.DYN.LE00.IN": {
				Obs("USA", "2011", F(78.5)),
				Obs("USA", "2010", F(78.0)),
				Obs("DEU", "2010", F(80.0)),
			},
		},
		Countries: []CountryFixture{
			{
				ID: "USA", ISO2: "US", Name: "United States",
				RegionID: "NAC", Region: "North America",
				IncomeID: "HIC", Income: "High income",
				LendingID: "LNX", Lending: "Not classified",
				CapitalCity: "Washington D.C.", Longitude: "-77.032", Latitude: "38.8895",
			},
			{
				ID: "DEU", ISO2: "DE", Name: "Germany",
				RegionID: "ECS", Region: "Europe & Central Asia",
				IncomeID: "HIC", Income: "High income",
				LendingID: "LNX", Lending: "Not classified",
				CapitalCity: "Berlin", Longitude: "13.4115", Latitude: "52.5235",
			},
			{
				ID: "WLD", ISO2: "1W", Name: "World",
				RegionID: "NA", Region: "Aggregates",
				IncomeID: "NA", Income: "Aggregates",
				LendingID: "", Lending: "Aggregates",
			},
		},
	}
}

// WorldBankServer is an httptest server speaking the World Bank API v2 JSON shape
// under /v2
type WorldBankServer struct {
	*httptest.Server

	fixtures *WorldBankFixtures

	mu       sync.Mutex
	requests []string
}

// NewWorldBankServer starts a fake API; it is closed when the test ends
func NewWorldBankServer(t *testing.T, fixtures *WorldBankFixtures) *WorldBankServer {
	t.Helper()
	if fixtures == nil {
		fixtures = DefaultWorldBankFixtures()
	}
	s := &WorldBankServer{fixtures: fixtures}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the API root clients should be configured with
func (s *WorldBankServer) BaseURL() string {
	return s.URL + "/v2"
}

// Requests returns the request URIs received so far
func (s *WorldBankServer) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *WorldBankServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.URL.RequestURI())
	s.mu.Unlock()

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 2 && parts[0] == "v2" && parts[1] == "country":
		s.serveCountries(w, r)
	case len(parts) == 5 && parts[0] == "v2" && parts[1] == "country" && parts[3] == "indicator":
		s.serveIndicator(w, r, parts[2], parts[4])
	default:
		http.NotFound(w, r)
	}
}

func (s *WorldBankServer) serveIndicator(w http.ResponseWriter, r *http.Request, locations, code string) {
	if status, ok := s.fixtures.Status[code]; ok {
		http.Error(w, http.StatusText(status), status)
		return
	}
	if msg, ok := s.fixtures.Errors[code]; ok {
		writeJSON(w, []any{map[string]any{
			"message": []map[string]string{{"id": "120", "key": "Invalid value", "value": msg}},
		}})
		return
	}

	wanted := map[string]bool{}
	if !strings.EqualFold(locations, "all") {
		for _, l := range strings.Split(locations, ";") {
			wanted[strings.ToUpper(l)] = true
		}
	}
	start, end := parseDateRange(r.URL.Query().Get("date"))

	var rows []map[string]any
	for _, o := range s.fixtures.Indicators[code] {
		if len(wanted) > 0 && !wanted[o.ISO3] {
			continue
		}
		if year, err := strconv.Atoi(o.Period); err == nil && (year < start || year > end) {
			continue
		}
		var value any
		if o.Value != nil {
			value = *o.Value
		}
		rows = append(rows, map[string]any{
			"indicator":       map[string]string{"id": code, "value": code},
			"country":         map[string]string{"id": o.ISO2, "value": o.Name},
			"countryiso3code": o.ISO3,
			"date":            o.Period,
			"value":           value,
			"unit":            "",
			"obs_status":      "",
			"decimal":         1,
		})
	}

	page, pages, perPage, slice := paginate(r, len(rows))
	writeJSON(w, []any{
		map[string]any{
			"page":        page,
			"pages":       pages,
			"per_page":    perPage,
			"total":       len(rows),
			"sourceid":    r.URL.Query().Get("source"),
			"lastupdated": "2024-01-01",
		},
		sliceOrNull(rows, slice),
	})
}

func (s *WorldBankServer) serveCountries(w http.ResponseWriter, r *http.Request) {
	if s.fixtures.CountriesStatus != 0 {
		http.Error(w, http.StatusText(s.fixtures.CountriesStatus), s.fixtures.CountriesStatus)
		return
	}

	rows := make([]map[string]any, 0, len(s.fixtures.Countries))
	for _, c := range s.fixtures.Countries {
		rows = append(rows, map[string]any{
			"id":          c.ID,
			"iso2Code":    c.ISO2,
			"name":        c.Name,
			"region":      map[string]string{"id": c.RegionID, "iso2code": "", "value": c.Region},
			"adminregion": map[string]string{"id": "", "iso2code": "", "value": ""},
			"incomeLevel": map[string]string{"id": c.IncomeID, "iso2code": "", "value": c.Income},
			"lendingType": map[string]string{"id": c.LendingID, "iso2code": "", "value": c.Lending},
			"capitalCity": c.CapitalCity,
			"longitude":   c.Longitude,
			"latitude":    c.Latitude,
		})
	}

	page, pages, perPage, slice := paginate(r, len(rows))
	// the country listing reports per_page and total as strings
	writeJSON(w, []any{
		map[string]any{
			"page":     page,
			"pages":    pages,
			"per_page": strconv.Itoa(perPage),
			"total":    strconv.Itoa(len(rows)),
		},
		sliceOrNull(rows, slice),
	})
}

// paginate resolves page/per_page and returns the [lo, hi) bounds of the page
func paginate(r *http.Request, total int) (page, pages, perPage int, bounds [2]int) {
	perPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage <= 0 {
		perPage = 50
	}
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	pages = (total + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}
	lo := (page - 1) * perPage
	if lo > total {
		lo = total
	}
	hi := lo + perPage
	if hi > total {
		hi = total
	}
	return page, pages, perPage, [2]int{lo, hi}
}

// sliceOrNull mirrors the API returning null instead of an empty row list
func sliceOrNull(rows []map[string]any, b [2]int) any {
	if len(rows) == 0 {
		return nil
	}
	return rows[b[0]:b[1]]
}

func parseDateRange(s string) (int, int) {
	start, end := 0, 1<<30
	if s == "" {
		return start, end
	}
	parts := strings.SplitN(s, ":", 2)
	if v, err := strconv.Atoi(parts[0]); err == nil {
		start = v
		end = v
	}
	if len(parts) == 2 {
		if v, err := strconv.Atoi(parts[1]); err == nil {
			end = v
		}
	}
	return start, end
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json;charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, fmt.Sprintf("encode fixture: %v", err), http.StatusInternalServerError)
	}
}

package worldbank

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// flexInt accepts both JSON numbers and numeric strings. The country listing
// reports per_page and total as strings while indicator pages use numbers.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("not an integer: %s", b)
	}
	*f = flexInt(n)
	return nil
}

// pageMeta is the first element of every response array
type pageMeta struct {
	Page    flexInt `json:"page"`
	Pages   flexInt `json:"pages"`
	PerPage flexInt `json:"per_page"`
	Total   flexInt `json:"total"`

	Message []apiMessage `json:"message"`
}

type apiMessage struct {
	ID    string `json:"id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// APIError is an error the API reported inside a 200 response
type APIError struct {
	Messages []apiMessage
}

func (e *APIError) Error() string {
	parts := make([]string, 0, len(e.Messages))
	for _, m := range e.Messages {
		parts = append(parts, strings.TrimSpace(fmt.Sprintf("%s %s: %s", m.ID, m.Key, m.Value)))
	}
	return "world bank api: " + strings.Join(parts, "; ")
}

type idValue struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

type observation struct {
	Indicator       idValue  `json:"indicator"`
	Country         idValue  `json:"country"`
	CountryISO3Code string   `json:"countryiso3code"`
	Date            string   `json:"date"`
	Value           *float64 `json:"value"`
}

// locationCode prefers the ISO3 code; aggregates sometimes carry none
func (o observation) locationCode() string {
	if o.CountryISO3Code != "" {
		return o.CountryISO3Code
	}
	return o.Country.ID
}

type country struct {
	ID          string  `json:"id"`
	ISO2Code    string  `json:"iso2Code"`
	Name        string  `json:"name"`
	Region      idValue `json:"region"`
	IncomeLevel idValue `json:"incomeLevel"`
	LendingType idValue `json:"lendingType"`
	CapitalCity string  `json:"capitalCity"`
	Longitude   string  `json:"longitude"`
	Latitude    string  `json:"latitude"`
}

// decodePage splits a [meta, rows] response. rows is left untouched when the
// API sends null for an empty result.
func decodePage(body []byte, rows any) (pageMeta, error) {
	var envelope []json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return pageMeta{}, fmt.Errorf("decode response: %w", err)
	}
	if len(envelope) == 0 {
		return pageMeta{}, fmt.Errorf("decode response: empty array")
	}

	var meta pageMeta
	if err := json.Unmarshal(envelope[0], &meta); err != nil {
		return pageMeta{}, fmt.Errorf("decode page metadata: %w", err)
	}
	if len(meta.Message) > 0 {
		return meta, &APIError{Messages: meta.Message}
	}

	if len(envelope) > 1 {
		if err := json.Unmarshal(envelope[1], rows); err != nil {
			return meta, fmt.Errorf("decode rows: %w", err)
		}
	}
	return meta, nil
}

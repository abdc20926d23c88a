package domain

import (
	"fmt"
	"strings"
)

// IndicatorSpec identifies one measured quantity and the panel column it feeds.
type IndicatorSpec struct {
	Code string `json:"code" yaml:"code" validate:"required"`
	Name string `json:"name" yaml:"name" validate:"required"`
}

// String returns "name (code)" for log and report output
func (s IndicatorSpec) String() string {
	return fmt.Sprintf("%s (%s)", s.Name, s.Code)
}

// YoYColumn returns the name of the derived year-over-year column
func (s IndicatorSpec) YoYColumn() string {
	return s.Name + "_yoy"
}

// Registry is the ordered, immutable set of indicators a run targets.
// The zero value is an empty registry.
type Registry struct {
	specs  []IndicatorSpec
	byCode map[string]int
}

// NewRegistry builds a registry, rejecting blank or duplicate codes and names
func NewRegistry(specs ...IndicatorSpec) (Registry, error) {
	r := Registry{
		specs:  make([]IndicatorSpec, 0, len(specs)),
		byCode: make(map[string]int, len(specs)),
	}
	names := make(map[string]bool, len(specs))

	for i, spec := range specs {
		spec.Code = strings.TrimSpace(spec.Code)
		spec.Name = strings.TrimSpace(spec.Name)
		if spec.Code == "" || spec.Name == "" {
			return Registry{}, fmt.Errorf("indicator %d: code and name are required", i)
		}
		if _, dup := r.byCode[spec.Code]; dup {
			return Registry{}, fmt.Errorf("duplicate indicator code %q", spec.Code)
		}
		if names[spec.Name] {
			return Registry{}, fmt.Errorf("duplicate indicator name %q", spec.Name)
		}
		names[spec.Name] = true
		r.byCode[spec.Code] = len(r.specs)
		r.specs = append(r.specs, spec)
	}

	return r, nil
}

// MustRegistry is like NewRegistry but panics on error. Intended for fixed defaults and tests.
func MustRegistry(specs ...IndicatorSpec) Registry {
	r, err := NewRegistry(specs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Specs returns the indicators in registry order
func (r Registry) Specs() []IndicatorSpec {
	out := make([]IndicatorSpec, len(r.specs))
	copy(out, r.specs)
	return out
}

// Len returns the number of indicators
func (r Registry) Len() int {
	return len(r.specs)
}

// Lookup finds an indicator by code
func (r Registry) Lookup(code string) (IndicatorSpec, bool) {
	idx, ok := r.byCode[code]
	if !ok {
		return IndicatorSpec{}, false
	}
	return r.specs[idx], true
}

// Names returns the column names in registry order
func (r Registry) Names() []string {
	names := make([]string, len(r.specs))
	for i, s := range r.specs {
		names[i] = s.Name
	}
	return names
}

// DefaultIndicators is the World Development Indicators set the panel is built from
func DefaultIndicators() []IndicatorSpec {
	return []IndicatorSpec{
		{Code: "NY.GDP.PCAP.KD", Name: "GDP_per_capita"},
		{Code: "SP.DYN.LE00.IN", Name: "life_expectancy"},
		{Code: "SE.ENR.TERT.FM.ZS", Name: "tertiary_education"},
		{Code: "EN.ATM.CO2E.PC", Name: "co2_emissions"},
		{Code: "SP.POP.TOTL", Name: "population"},
		{Code: "SE.ENR.PRSC.FM.ZS", Name: "primary_education"},
		{Code: "SH.MED.BEDS.ZS", Name: "hospital_beds"},
		{Code: "IT.NET.USER.ZS", Name: "internet_users"},
	}
}

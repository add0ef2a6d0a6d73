package models

import (
	"fmt"

	"github.com/goccy/go-json"
)

// SortFilter selects the total order applied to movie search results.
type SortFilter int

const (
	FilterNone SortFilter = iota
	FilterAlphabetical
	FilterPopular
	FilterLatest
	FilterTopRated
)

var filterNames = map[SortFilter]string{
	FilterNone:         "None",
	FilterAlphabetical: "Alphabetical",
	FilterPopular:      "Popular",
	FilterLatest:       "Latest",
	FilterTopRated:     "TopRated",
}

var filterValues = func() map[string]SortFilter {
	m := make(map[string]SortFilter, len(filterNames))
	for f, s := range filterNames {
		m[s] = f
	}
	return m
}()

// SortFilters lists every filter in declaration order.
func SortFilters() []SortFilter {
	return []SortFilter{FilterNone, FilterAlphabetical, FilterPopular, FilterLatest, FilterTopRated}
}

func (f SortFilter) String() string {
	if s, ok := filterNames[f]; ok {
		return s
	}
	return fmt.Sprintf("SortFilter(%d)", int(f))
}

// ParseSortFilter maps a wire literal to a filter. Matching is exact; unknown
// literals are an error rather than a fallback to FilterNone.
func ParseSortFilter(s string) (SortFilter, error) {
	f, ok := filterValues[s]
	if !ok {
		return 0, fmt.Errorf("unknown sort filter %q", s)
	}
	return f, nil
}

func (f SortFilter) MarshalJSON() ([]byte, error) {
	s, ok := filterNames[f]
	if !ok {
		return nil, fmt.Errorf("unknown sort filter %d", int(f))
	}
	return json.Marshal(s)
}

func (f *SortFilter) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("sort filter must be a string: %w", err)
	}
	v, err := ParseSortFilter(s)
	if err != nil {
		return err
	}
	*f = v
	return nil
}

package model

import (
	"sort"
	"strings"
)

// FilterKey names one client-side constraint.
type FilterKey string

// Filter keys understood by the list pipeline.
const (
	FilterSearch    FilterKey = "search"
	FilterStatus    FilterKey = "status"
	FilterCause     FilterKey = "cause"
	FilterMethod    FilterKey = "method"
	FilterRole      FilterKey = "role"
	FilterDateRange FilterKey = "dateRange"
)

// DateRange is a relative window ending at the moment of evaluation.
type DateRange string

// Date range buckets. The empty range is unbounded.
const (
	RangeAll    DateRange = ""
	Range7Days  DateRange = "7days"
	Range30Days DateRange = "30days"
	Range90Days DateRange = "90days"
)

// Days returns the window length, or 0 for an unbounded or unknown range.
func (r DateRange) Days() int {
	switch r {
	case Range7Days:
		return 7
	case Range30Days:
		return 30
	case Range90Days:
		return 90
	default:
		return 0
	}
}

// Label returns the human label for the range.
func (r DateRange) Label() string {
	switch r {
	case Range7Days:
		return "Last 7 Days"
	case Range30Days:
		return "Last 30 Days"
	case Range90Days:
		return "Last 90 Days"
	default:
		return "All Time"
	}
}

// FilterState maps filter keys to selected values. An empty or absent value
// applies no constraint.
type FilterState map[FilterKey]string

// Get returns the trimmed value for key.
func (f FilterState) Get(key FilterKey) string {
	if f == nil {
		return ""
	}
	return strings.TrimSpace(f[key])
}

// With returns a copy of f with key set to value.
func (f FilterState) With(key FilterKey, value string) FilterState {
	next := make(FilterState, len(f)+1)
	for k, v := range f {
		next[k] = v
	}
	if strings.TrimSpace(value) == "" {
		delete(next, key)
	} else {
		next[key] = value
	}
	return next
}

// Active returns the keys that currently constrain the result, sorted.
func (f FilterState) Active() []FilterKey {
	keys := make([]FilterKey, 0, len(f))
	for k := range f {
		if f.Get(k) != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// IsEmpty reports whether no constraint is active.
func (f FilterState) IsEmpty() bool {
	return len(f.Active()) == 0
}

// Clone returns an independent copy.
func (f FilterState) Clone() FilterState {
	next := make(FilterState, len(f))
	for k, v := range f {
		next[k] = v
	}
	return next
}

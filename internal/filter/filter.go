// Package filter applies client-side constraints to normalized records.
//
// Filtering is an order-preserving subsequence: a record survives only when it
// satisfies every active constraint. Keys without a declared field are ignored.
package filter

import (
	"strings"
	"time"

	"github.com/Veraticus/givedesk/internal/model"
)

// Field declares how one filter key constrains records of type T.
type Field[T any] struct {
	Match func(record T, value string, now time.Time) bool
	Key   model.FilterKey
}

// Apply returns the records matching every active constraint in state.
func Apply[T any](records []T, state model.FilterState, fields []Field[T], now time.Time) []T {
	active := make([]Field[T], 0, len(fields))
	values := make([]string, 0, len(fields))
	for _, f := range fields {
		if v := state.Get(f.Key); v != "" && f.Match != nil {
			active = append(active, f)
			values = append(values, v)
		}
	}

	out := make([]T, 0, len(records))
	if len(active) == 0 {
		return append(out, records...)
	}

	for _, rec := range records {
		if matchesAll(rec, active, values, now) {
			out = append(out, rec)
		}
	}
	return out
}

func matchesAll[T any](rec T, fields []Field[T], values []string, now time.Time) bool {
	for i, f := range fields {
		if !f.Match(rec, values[i], now) {
			return false
		}
	}
	return true
}

// Search matches a case-insensitive substring in any of the extracted fields.
// Blank fields never match.
func Search[T any](extract ...func(T) string) Field[T] {
	return Field[T]{
		Key: model.FilterSearch,
		Match: func(rec T, value string, _ time.Time) bool {
			term := strings.ToLower(value)
			for _, get := range extract {
				s := get(rec)
				if s != "" && strings.Contains(strings.ToLower(s), term) {
					return true
				}
			}
			return false
		},
	}
}

// Exact matches a categorical value exactly.
func Exact[T any](key model.FilterKey, extract func(T) string) Field[T] {
	return Field[T]{
		Key: key,
		Match: func(rec T, value string, _ time.Time) bool {
			return extract(rec) == value
		},
	}
}

// Fold matches a categorical value ignoring case.
func Fold[T any](key model.FilterKey, extract func(T) string) Field[T] {
	return Field[T]{
		Key: key,
		Match: func(rec T, value string, _ time.Time) bool {
			return strings.EqualFold(extract(rec), value)
		},
	}
}

// Since keeps records dated within the selected range, inclusive of the
// lower bound. Undated records never match an active range, and an unknown
// range name constrains nothing.
func Since[T any](extract func(T) model.Timestamp) Field[T] {
	return Field[T]{
		Key: model.FilterDateRange,
		Match: func(rec T, value string, now time.Time) bool {
			days := model.DateRange(value).Days()
			if days == 0 {
				return true
			}
			ts := extract(rec)
			if !ts.Valid() {
				return false
			}
			return !ts.Time.Before(now.AddDate(0, 0, -days))
		},
	}
}

// DistinctValues returns the unique non-blank values of extract in first-seen order.
func DistinctValues[T any](records []T, extract func(T) string) []string {
	seen := make(map[string]struct{}, len(records))
	out := make([]string, 0)
	for _, rec := range records {
		v := extract(rec)
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRawRecordAccessors(t *testing.T) {
	var raw RawRecord
	err := json.Unmarshal([]byte(`{
		"_id": "abc",
		"name": "Rana",
		"amount": 25.5,
		"target": "1,000",
		"isRecurring": true,
		"tags": ["a", 3, "b"],
		"email": null
	}`), &raw)
	assert.NoError(t, err)

	assert.Equal(t, "abc", raw.ID())
	assert.Equal(t, "Rana", raw.String("name"))
	assert.Equal(t, "25.5", raw.String("amount"))
	assert.Equal(t, "", raw.String("missing"))
	assert.False(t, raw.Has("email"))
	assert.True(t, raw.Has("name"))

	amount, ok := raw.Float("amount")
	assert.True(t, ok)
	assert.InDelta(t, 25.5, amount, 0.0001)

	target, ok := raw.Float("target")
	assert.True(t, ok)
	assert.InDelta(t, 1000, target, 0.0001)

	_, ok = raw.Float("name")
	assert.False(t, ok)

	assert.True(t, raw.Bool("isRecurring"))
	assert.False(t, raw.Bool("missing"))
	assert.Equal(t, []string{"a", "b"}, raw.Strings("tags"))
	assert.Equal(t, []string{}, raw.Strings("missing"))

	var nilRecord RawRecord
	assert.Equal(t, "", nilRecord.String("x"))
	assert.Equal(t, "", nilRecord.ID())
}

func TestFilterState(t *testing.T) {
	var empty FilterState
	assert.True(t, empty.IsEmpty())
	assert.Equal(t, "", empty.Get(FilterSearch))

	f := empty.With(FilterSearch, "anon").With(FilterStatus, " ")
	assert.Equal(t, []FilterKey{FilterSearch}, f.Active())
	assert.True(t, empty.IsEmpty(), "With must not mutate the receiver")

	cleared := f.With(FilterSearch, "")
	assert.True(t, cleared.IsEmpty())
	assert.Equal(t, "anon", f.Get(FilterSearch))
}

func TestDateRange(t *testing.T) {
	assert.Equal(t, 7, Range7Days.Days())
	assert.Equal(t, 0, RangeAll.Days())
	assert.Equal(t, 0, DateRange("1year").Days())
	assert.Equal(t, "Last 30 Days", Range30Days.Label())
	assert.Equal(t, "All Time", RangeAll.Label())
}

func TestPaginationStepping(t *testing.T) {
	p := PaginationState{CurrentPage: 2, TotalPages: 3, HasNextPage: true, HasPrevPage: true}
	assert.Equal(t, 3, p.NextPage())
	assert.Equal(t, 1, p.PrevPage())

	last := PaginationState{CurrentPage: 3, TotalPages: 3, HasPrevPage: true}
	assert.Equal(t, 3, last.NextPage())
}

package filter

import (
	"testing"
	"time"

	"github.com/Veraticus/givedesk/internal/model"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

type row struct {
	when   model.Timestamp
	name   string
	email  string
	status string
	cause  string
}

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) model.Timestamp {
	t := now.AddDate(0, 0, -n)
	return model.Timestamp{Time: t, Raw: t.Format(time.RFC3339), Label: t.Format("Jan 2, 2006")}
}

func fixtures() []row {
	return []row{
		{name: "Anonymous Donor", status: "Completed", cause: "Water", when: daysAgo(1)},
		{name: "Lina", email: "lina@example.com", status: "Pending", cause: "Food", when: daysAgo(10)},
		{name: "Omar", status: "completed", cause: "Water", when: daysAgo(40)},
		{name: "anonymous donor", status: "Failed", cause: "Shelter", when: model.Timestamp{Label: model.UnknownDate}},
		{name: "Sara", email: "sara@anon.org", status: "Completed", cause: "Water", when: daysAgo(7)},
	}
}

func fields() []Field[row] {
	return []Field[row]{
		Search(func(r row) string { return r.name }, func(r row) string { return r.email }),
		Fold(model.FilterStatus, func(r row) string { return r.status }),
		Exact(model.FilterCause, func(r row) string { return r.cause }),
		Since(func(r row) model.Timestamp { return r.when }),
	}
}

func names(rows []row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.name
	}
	return out
}

func TestApplyEmptyStateIsIdentity(t *testing.T) {
	in := fixtures()
	for _, state := range []model.FilterState{nil, {}, {model.FilterSearch: "", model.FilterStatus: "  "}} {
		got := Apply(in, state, fields(), now)
		assert.Empty(t, cmp.Diff(names(in), names(got)))
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		state    model.FilterState
		name     string
		expected []string
	}{
		{
			name:     "search is case-insensitive across fields",
			state:    model.FilterState{model.FilterSearch: "ANON"},
			expected: []string{"Anonymous Donor", "anonymous donor", "Sara"},
		},
		{
			name:     "status ignores case",
			state:    model.FilterState{model.FilterStatus: "completed"},
			expected: []string{"Anonymous Donor", "Omar", "Sara"},
		},
		{
			name:     "cause is exact",
			state:    model.FilterState{model.FilterCause: "water"},
			expected: []string{},
		},
		{
			name:     "constraints combine with AND",
			state:    model.FilterState{model.FilterCause: "Water", model.FilterStatus: "Completed", model.FilterSearch: "a"},
			expected: []string{"Anonymous Donor", "Omar", "Sara"},
		},
		{
			name:     "seven day window includes its lower bound and drops undated",
			state:    model.FilterState{model.FilterDateRange: string(model.Range7Days)},
			expected: []string{"Anonymous Donor", "Sara"},
		},
		{
			name:     "ninety days",
			state:    model.FilterState{model.FilterDateRange: string(model.Range90Days)},
			expected: []string{"Anonymous Donor", "Lina", "Omar", "Sara"},
		},
		{
			name:     "unknown key is ignored",
			state:    model.FilterState{model.FilterRole: "admin"},
			expected: []string{"Anonymous Donor", "Lina", "Omar", "anonymous donor", "Sara"},
		},
		{
			name:     "blank email never matches",
			state:    model.FilterState{model.FilterSearch: "@"},
			expected: []string{"Lina", "Sara"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(fixtures(), tt.state, fields(), now)
			assert.Equal(t, tt.expected, names(got))
		})
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	states := []model.FilterState{
		{model.FilterSearch: "a"},
		{model.FilterStatus: "Completed", model.FilterDateRange: "30days"},
		{model.FilterCause: "Water"},
	}
	for _, state := range states {
		once := Apply(fixtures(), state, fields(), now)
		twice := Apply(once, state, fields(), now)
		assert.Equal(t, names(once), names(twice))
	}
}

func TestApplyDoesNotAliasInput(t *testing.T) {
	in := fixtures()
	out := Apply(in, nil, fields(), now)
	out[0].name = "changed"
	assert.Equal(t, "Anonymous Donor", in[0].name)
}

func TestDistinctValues(t *testing.T) {
	got := DistinctValues(fixtures(), func(r row) string { return r.cause })
	assert.Equal(t, []string{"Water", "Food", "Shelter"}, got)

	assert.Equal(t, []string{}, DistinctValues([]row{{}}, func(r row) string { return r.cause }))
}

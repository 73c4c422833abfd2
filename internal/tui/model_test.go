package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/givedesk/internal/api"
	"github.com/Veraticus/givedesk/internal/common"
	"github.com/Veraticus/givedesk/internal/entity"
	"github.com/Veraticus/givedesk/internal/export"
	"github.com/Veraticus/givedesk/internal/listing"
	"github.com/Veraticus/givedesk/internal/model"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	err   error
	items []any
	mu    sync.Mutex
}

func (f *fakeSource) All(context.Context, string) ([]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items, f.err
}

func (f *fakeSource) List(_ context.Context, _ string, page, limit int) (api.Response, error) {
	return api.Paginated{Data: []any{}, Meta: api.Meta{CurrentPage: page, TotalPages: 1, Total: limit}}, nil
}

func (f *fakeSource) set(items []any, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items, f.err = items, err
}

func donations(n int) []any {
	items := make([]any, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, map[string]any{
			"_id":       fmt.Sprintf("d%02d", i),
			"name":      fmt.Sprintf("Donor %02d", i),
			"cause":     []string{"Water", "Food"}[i%2],
			"amount":    float64(i + 1),
			"createdAt": now.AddDate(0, 0, -i*10).Format(time.RFC3339),
		})
	}
	return items
}

type memorySink struct {
	tables []export.Table
}

func (s *memorySink) Deliver(_ context.Context, table export.Table, onRow func()) (string, error) {
	for range table.Rows {
		onRow()
	}
	s.tables = append(s.tables, table)
	return "mem://" + table.Name, nil
}

func newTestBrowser(t *testing.T, src *fakeSource, opts ...Option) Browser[model.Donation] {
	t.Helper()
	ctrl := listing.New(src, entity.Donations(),
		listing.WithClock(func() time.Time { return now }),
		listing.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(ctrl.Close)
	return NewBrowser(context.Background(), ctrl, opts...)
}

// settle runs cmd synchronously and feeds its result back, the way the
// bubbletea runtime would.
func settle(t *testing.T, m Browser[model.Donation], cmd tea.Cmd) Browser[model.Donation] {
	t.Helper()
	require.NotNil(t, cmd)
	next, _ := m.Update(cmd())
	return next.(Browser[model.Donation])
}

func press(m Browser[model.Donation], keys string) (Browser[model.Donation], tea.Cmd) {
	var msg tea.KeyMsg
	switch keys {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)}
	}
	next, cmd := m.Update(msg)
	return next.(Browser[model.Donation]), cmd
}

func loaded(t *testing.T, src *fakeSource, opts ...Option) Browser[model.Donation] {
	t.Helper()
	m := newTestBrowser(t, src, opts...)
	return settle(t, m, m.loadCmd())
}

func TestBrowserLoads(t *testing.T) {
	m := newTestBrowser(t, &fakeSource{items: donations(12)})
	assert.True(t, m.busy)
	assert.Contains(t, m.View(), "Loading donations")

	m = settle(t, m, m.loadCmd())

	assert.False(t, m.busy)
	assert.Equal(t, listing.Ready, m.snap.State)
	assert.Len(t, m.table.Rows(), 5)
	view := m.View()
	assert.Contains(t, view, "Donations")
	assert.Contains(t, view, "12 of 12")
	assert.Contains(t, view, "Page 1 of 3")
	assert.Contains(t, view, "Donor 00")
}

func TestBrowserPaging(t *testing.T) {
	m := loaded(t, &fakeSource{items: donations(12)})

	m, cmd := press(m, "h")
	assert.Nil(t, cmd, "no previous page on page 1")

	m, cmd = press(m, "l")
	m = settle(t, m, cmd)
	assert.Equal(t, 2, m.snap.Pagination.CurrentPage)
	assert.Contains(t, m.View(), "Page 2 of 3")
	assert.Equal(t, "Donor 05", m.table.Rows()[0][1])

	m, cmd = press(m, "l")
	m = settle(t, m, cmd)
	assert.Len(t, m.table.Rows(), 2)

	_, cmd = press(m, "l")
	assert.Nil(t, cmd, "no next page on the last page")
}

func TestBrowserSearch(t *testing.T) {
	m := loaded(t, &fakeSource{items: donations(12)})

	m, _ = press(m, "/")
	assert.Equal(t, modeSearch, m.mode)
	m, _ = press(m, "Donor 03")
	m, cmd := press(m, "enter")
	m = settle(t, m, cmd)

	assert.Equal(t, modeBrowse, m.mode)
	require.Len(t, m.snap.Filtered, 1)
	assert.Equal(t, "Donor 03", m.snap.Filtered[0].Donor)
	assert.Contains(t, m.View(), "search: Donor 03")
}

func TestBrowserSearchCancelKeepsFilter(t *testing.T) {
	m := loaded(t, &fakeSource{items: donations(12)})

	m, _ = press(m, "/")
	m, _ = press(m, "Donor")
	m, cmd := press(m, "esc")

	assert.Nil(t, cmd)
	assert.Equal(t, modeBrowse, m.mode)
	assert.Empty(t, m.search.Value())
	assert.Len(t, m.snap.Filtered, 12)
}

func TestBrowserCycleFilter(t *testing.T) {
	m := loaded(t, &fakeSource{items: donations(12)})
	require.Equal(t, []model.FilterKey{model.FilterCause, model.FilterMethod, model.FilterStatus}, m.filterKeys)

	m, cmd := press(m, "f")
	m = settle(t, m, cmd)
	assert.Equal(t, "Water", m.snap.Filters.Get(model.FilterCause))
	assert.Len(t, m.snap.Filtered, 6)

	m, cmd = press(m, "f")
	m = settle(t, m, cmd)
	assert.Equal(t, "Food", m.snap.Filters.Get(model.FilterCause))

	m, cmd = press(m, "f")
	m = settle(t, m, cmd)
	assert.Empty(t, m.snap.Filters.Get(model.FilterCause))
	assert.Len(t, m.snap.Filtered, 12)

	m, _ = press(m, "tab")
	assert.Contains(t, m.View(), "f cycles method")
}

func TestBrowserDateRangeAndClear(t *testing.T) {
	m := loaded(t, &fakeSource{items: donations(12)})

	m, cmd := press(m, "d")
	m = settle(t, m, cmd)
	assert.Equal(t, string(model.Range7Days), m.snap.Filters.Get(model.FilterDateRange))
	assert.Contains(t, m.View(), "Last 7 Days")
	assert.Less(t, len(m.snap.Filtered), 12)

	m, cmd = press(m, "c")
	m = settle(t, m, cmd)
	assert.True(t, m.snap.Filters.IsEmpty())
	assert.Len(t, m.snap.Filtered, 12)
	assert.Contains(t, m.View(), "No filters")
}

func TestBrowserErrorAndRetry(t *testing.T) {
	src := &fakeSource{err: &common.NetworkError{Op: "GET /donations", Err: context.DeadlineExceeded}}
	m := loaded(t, src)

	assert.Equal(t, listing.Failed, m.snap.State)
	assert.Contains(t, m.View(), "Press r to retry")

	// Filtering while failed does not leave the error state.
	m, cmd := press(m, "f")
	m = settle(t, m, cmd)
	assert.Equal(t, listing.Failed, m.snap.State)

	src.set(donations(3), nil)
	m, cmd = press(m, "r")
	m = settle(t, m, cmd)

	assert.Equal(t, listing.Ready, m.snap.State)
	assert.Equal(t, "Reloaded", m.status.text)
	assert.NotContains(t, m.View(), "Press r to retry")
}

func TestBrowserEmptyList(t *testing.T) {
	m := loaded(t, &fakeSource{items: []any{}})
	assert.Contains(t, m.View(), "No donations yet")
}

func TestBrowserExport(t *testing.T) {
	sink := &memorySink{}
	var hooked []export.Result
	m := loaded(t, &fakeSource{items: donations(12)},
		WithExporter(export.New(sink)),
		WithExportHook(func(_ context.Context, res export.Result) { hooked = append(hooked, res) }))

	m, cmd := press(m, "f")
	m = settle(t, m, cmd)

	m, cmd = press(m, "e")
	assert.True(t, m.busy)
	m = settle(t, m, cmd)

	require.Len(t, sink.tables, 1)
	assert.Len(t, sink.tables[0].Rows, 6, "exports the filtered collection, not the page")
	require.Len(t, hooked, 1)
	assert.Equal(t, 6, hooked[0].Rows)
	assert.Equal(t, statusSuccess, m.status.level)
	assert.Contains(t, m.status.text, "Exported 6 rows to mem://")
}

func TestBrowserExportWithoutExporter(t *testing.T) {
	m := loaded(t, &fakeSource{items: donations(2)})

	m, cmd := press(m, "e")
	assert.Nil(t, cmd)
	assert.Equal(t, "Export is not configured", m.status.text)
}

func TestBrowserExportEmpty(t *testing.T) {
	sink := &memorySink{}
	m := loaded(t, &fakeSource{items: []any{}}, WithExporter(export.New(sink)))

	m, cmd := press(m, "e")
	m = settle(t, m, cmd)

	assert.Empty(t, sink.tables)
	assert.Equal(t, "Nothing to export", m.status.text)
}

func TestBrowserQuit(t *testing.T) {
	m := loaded(t, &fakeSource{items: donations(2)})

	m, cmd := press(m, "q")
	require.NotNil(t, cmd)
	assert.True(t, m.quitting)
	assert.Empty(t, m.View())
	assert.ErrorIs(t, m.ctrl.Load(context.Background()), listing.ErrClosed)
}

func TestBrowserResize(t *testing.T) {
	m := loaded(t, &fakeSource{items: donations(2)})

	next, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	m = next.(Browser[model.Donation])

	assert.Equal(t, 60, m.width)
	assert.Equal(t, 60, m.help.Width)
	assert.Equal(t, 60, m.table.Width())
}

func TestNextValue(t *testing.T) {
	values := []string{"", "a", "b"}
	assert.Equal(t, "a", nextValue(values, ""))
	assert.Equal(t, "", nextValue(values, "b"))
	assert.Equal(t, "", nextValue(values, "missing"))
}

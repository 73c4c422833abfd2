// Package tui is an interactive terminal browser for the admin lists.
package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/Veraticus/givedesk/internal/common"
	"github.com/Veraticus/givedesk/internal/entity"
	"github.com/Veraticus/givedesk/internal/listing"
	"github.com/Veraticus/givedesk/internal/model"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type mode int

const (
	modeBrowse mode = iota
	modeSearch
)

// Rows taken by everything except the table body.
const chromeHeight = 9

var dateRanges = []model.DateRange{model.RangeAll, model.Range7Days, model.Range30Days, model.Range90Days}

// Browser is the bubbletea model for one list controller.
type Browser[T any] struct {
	ctx        context.Context
	ctrl       *listing.Controller[T]
	help       help.Model
	status     status
	filterKeys []model.FilterKey
	snap       listing.Snapshot[T]
	desc       entity.Descriptor[T]
	keymap     KeyMap
	search     textinput.Model
	spinner    spinner.Model
	config     Config
	table      table.Model
	filterIdx  int
	width      int
	height     int
	mode       mode
	hasRange   bool
	busy       bool
	quitting   bool
}

// NewBrowser creates a browser over ctrl. Nothing is fetched until Init.
func NewBrowser[T any](ctx context.Context, ctrl *listing.Controller[T], opts ...Option) Browser[T] {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	desc := ctrl.Descriptor()

	keys := make([]model.FilterKey, 0, len(desc.Options))
	for k := range desc.Options {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	search := textinput.New()
	search.Placeholder = "search"
	search.Prompt = "/ "
	search.CharLimit = 100

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = cfg.Theme.StatusInfo

	h := help.New()
	h.ShowAll = cfg.ShowHelp

	styles := table.DefaultStyles()
	styles.Header = cfg.Theme.Header
	styles.Selected = cfg.Theme.Selected

	t := table.New(table.WithFocused(true))
	t.SetStyles(styles)

	m := Browser[T]{
		ctx:        ctx,
		ctrl:       ctrl,
		desc:       desc,
		config:     cfg,
		keymap:     DefaultKeyMap(),
		table:      t,
		search:     search,
		spinner:    spin,
		help:       h,
		filterKeys: keys,
		hasRange:   slices.Contains(desc.FilterKeys(), model.FilterDateRange),
		width:      cfg.Width,
		height:     cfg.Height,
		busy:       true,
	}
	m.resize()
	return m
}

// Init starts the first load.
func (m Browser[T]) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCmd())
}

// Update handles messages and user input.
func (m Browser[T]) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case listUpdatedMsg:
		return m.handleListUpdated(msg), nil

	case exportedMsg:
		return m.handleExported(msg), nil

	case tea.KeyMsg:
		if m.mode == modeSearch {
			return m.handleSearchKey(msg)
		}
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Browser[T]) handleListUpdated(msg listUpdatedMsg) Browser[T] {
	if errors.Is(msg.err, listing.ErrStale) {
		return m
	}
	m.busy = false
	m.refresh()

	switch {
	case msg.err == nil:
		if msg.op == "retry" {
			m.status = status{text: "Reloaded", level: statusSuccess}
		}
	case m.snap.State == listing.Failed:
		// Rendered by the error banner.
		m.status = status{}
	default:
		m.status = status{text: common.UserMessage(msg.err), level: statusError}
	}
	return m
}

func (m Browser[T]) handleExported(msg exportedMsg) Browser[T] {
	m.busy = false
	switch {
	case msg.err != nil:
		m.config.Logger.Warn("export failed", "resource", m.desc.Resource, "error", msg.err)
		m.status = status{text: "Export failed: " + common.UserMessage(msg.err), level: statusError}
	case msg.result.Skipped:
		m.status = status{text: "Nothing to export", level: statusWarning}
	default:
		m.status = status{
			text:  fmt.Sprintf("Exported %d rows to %s", msg.result.Rows, msg.result.Location),
			level: statusSuccess,
		}
	}
	return m
}

func (m Browser[T]) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Accept):
		m.mode = modeBrowse
		m.search.Blur()
		m.busy = true
		return m, m.setFilterCmd(model.FilterSearch, m.search.Value())
	case key.Matches(msg, m.keymap.Cancel):
		m.mode = modeBrowse
		m.search.Blur()
		m.search.SetValue(m.snap.Filters.Get(model.FilterSearch))
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Browser[T]) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		m.ctrl.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
		return m, nil

	case key.Matches(msg, m.keymap.NextPage):
		if !m.snap.Pagination.HasNextPage {
			return m, nil
		}
		m.busy = true
		return m, m.setPageCmd(m.snap.Pagination.NextPage())

	case key.Matches(msg, m.keymap.PrevPage):
		if !m.snap.Pagination.HasPrevPage {
			return m, nil
		}
		m.busy = true
		return m, m.setPageCmd(m.snap.Pagination.PrevPage())

	case key.Matches(msg, m.keymap.Search):
		m.mode = modeSearch
		return m, m.search.Focus()

	case key.Matches(msg, m.keymap.CycleFilter):
		filterKey, ok := m.currentFilterKey()
		if !ok {
			return m, nil
		}
		m.busy = true
		next := nextValue(append([]string{""}, m.ctrl.Options(filterKey)...), m.snap.Filters.Get(filterKey))
		return m, m.setFilterCmd(filterKey, next)

	case key.Matches(msg, m.keymap.SwitchFilter):
		if len(m.filterKeys) > 0 {
			m.filterIdx = (m.filterIdx + 1) % len(m.filterKeys)
		}
		return m, nil

	case key.Matches(msg, m.keymap.CycleRange):
		if !m.hasRange {
			return m, nil
		}
		values := make([]string, len(dateRanges))
		for i, r := range dateRanges {
			values[i] = string(r)
		}
		m.busy = true
		return m, m.setFilterCmd(model.FilterDateRange, nextValue(values, m.snap.Filters.Get(model.FilterDateRange)))

	case key.Matches(msg, m.keymap.ClearFilters):
		m.search.SetValue("")
		m.busy = true
		return m, m.clearFiltersCmd()

	case key.Matches(msg, m.keymap.Retry):
		m.busy = true
		return m, m.retryCmd()

	case key.Matches(msg, m.keymap.Export):
		if m.config.Exporter == nil {
			m.status = status{text: "Export is not configured", level: statusWarning}
			return m, nil
		}
		m.busy = true
		m.status = status{text: "Exporting...", level: statusInfo}
		return m, m.exportCmd()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Browser[T]) currentFilterKey() (model.FilterKey, bool) {
	if len(m.filterKeys) == 0 {
		return "", false
	}
	return m.filterKeys[m.filterIdx], true
}

// nextValue returns the value after current in values, wrapping around.
func nextValue(values []string, current string) string {
	i := slices.Index(values, current)
	return values[(i+1)%len(values)]
}

// refresh re-reads the controller and rebuilds the table rows.
func (m *Browser[T]) refresh() {
	m.snap = m.ctrl.Snapshot()

	cols := len(m.desc.TableHead)
	rows := make([]table.Row, 0, len(m.snap.Page))
	for _, item := range m.snap.Page {
		cells := m.desc.Cells(item)
		row := make(table.Row, cols)
		copy(row, cells)
		rows = append(rows, row)
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

func (m *Browser[T]) resize() {
	cols := len(m.desc.TableHead)
	if cols == 0 {
		return
	}
	// Each cell carries one column of padding on both sides.
	width := max((m.width-2*cols)/cols, 6)
	columns := make([]table.Column, cols)
	for i, title := range m.desc.TableHead {
		columns[i] = table.Column{Title: title, Width: width}
	}
	m.table.SetColumns(columns)
	m.table.SetWidth(m.width)

	height := m.height - chromeHeight
	if m.help.ShowAll {
		height -= 3
	}
	m.table.SetHeight(max(height, 3))
	m.help.Width = m.width
}

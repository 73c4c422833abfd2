package tui

import (
	"fmt"
	"strings"

	"github.com/Veraticus/givedesk/internal/common"
	"github.com/Veraticus/givedesk/internal/listing"
	"github.com/Veraticus/givedesk/internal/model"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// View renders the browser.
func (m Browser[T]) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{
		m.renderHeader(),
		m.renderFilters(),
		m.renderBody(),
		m.renderFooter(),
		m.help.View(m.keymap),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Browser[T]) renderHeader() string {
	title := m.config.Theme.Title.Render(cases.Title(language.English).String(m.desc.Resource))
	count := m.config.Theme.Subtitle.Render(fmt.Sprintf("  %d of %d", len(m.snap.Filtered), m.snap.Total))
	if m.busy {
		count += " " + m.spinner.View()
	}
	return title + count
}

func (m Browser[T]) renderFilters() string {
	if m.mode == modeSearch {
		return m.search.View()
	}

	theme := m.config.Theme
	var chips []string
	for _, k := range m.snap.Filters.Active() {
		value := m.snap.Filters.Get(k)
		if k == model.FilterDateRange {
			value = model.DateRange(value).Label()
		}
		chips = append(chips, theme.Chip.Render(fmt.Sprintf("%s: %s", k, value)))
	}

	var hint string
	if filterKey, ok := m.currentFilterKey(); ok {
		hint = lipgloss.NewStyle().Foreground(theme.Muted).Render(fmt.Sprintf("f cycles %s", filterKey))
	}

	if len(chips) == 0 {
		return lipgloss.NewStyle().Foreground(theme.Muted).Render("No filters") + "  " + hint
	}
	return strings.Join(chips, " ") + "  " + hint
}

func (m Browser[T]) renderBody() string {
	theme := m.config.Theme

	switch {
	case m.snap.State == listing.Failed:
		msg := theme.StatusError.Render("Could not load "+m.desc.Resource) + "\n\n" +
			common.UserMessage(m.snap.Err) + "\n\n" +
			lipgloss.NewStyle().Foreground(theme.Muted).Render("Press r to retry")
		return theme.BorderedBox.Width(max(m.width-4, 20)).Render(msg)

	case len(m.snap.Page) == 0 && (m.busy || m.snap.State != listing.Ready):
		return theme.BorderedBox.Render(m.spinner.View() + " Loading " + m.desc.Resource + "...")

	case len(m.snap.Page) == 0:
		text := "No " + m.desc.Resource + " yet"
		if len(m.snap.Filters.Active()) > 0 {
			text = "No " + m.desc.Resource + " match these filters"
		}
		return theme.BorderedBox.Render(lipgloss.NewStyle().Foreground(theme.Muted).Render(text))
	}

	return m.table.View()
}

func (m Browser[T]) renderFooter() string {
	theme := m.config.Theme
	p := m.snap.Pagination

	pages := fmt.Sprintf("Page %d of %d", max(p.CurrentPage, 1), max(p.TotalPages, 1))
	if sp := m.snap.ServerPagination; sp != nil {
		pages += fmt.Sprintf(" (server %d/%d)", sp.CurrentPage, sp.TotalPages)
	}
	line := lipgloss.NewStyle().Foreground(theme.Muted).Render(pages)

	if m.status.text != "" {
		line += "  " + m.statusStyle().Render(m.status.text)
	}
	return line
}

func (m Browser[T]) statusStyle() lipgloss.Style {
	theme := m.config.Theme
	switch m.status.level {
	case statusSuccess:
		return theme.StatusSuccess
	case statusWarning:
		return theme.StatusWarning
	case statusError:
		return theme.StatusError
	default:
		return theme.StatusInfo
	}
}

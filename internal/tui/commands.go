package tui

import (
	"context"

	"github.com/Veraticus/givedesk/internal/model"
	tea "github.com/charmbracelet/bubbletea"
)

// run executes a controller operation off the update loop.
func (m Browser[T]) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	parent := m.ctx
	timeout := m.config.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		return listUpdatedMsg{op: op, err: fn(ctx)}
	}
}

func (m Browser[T]) loadCmd() tea.Cmd {
	return m.run("load", m.ctrl.Load)
}

func (m Browser[T]) retryCmd() tea.Cmd {
	return m.run("retry", m.ctrl.Retry)
}

func (m Browser[T]) setPageCmd(page int) tea.Cmd {
	return m.run("page", func(ctx context.Context) error {
		return m.ctrl.SetPage(ctx, page)
	})
}

func (m Browser[T]) setFilterCmd(key model.FilterKey, value string) tea.Cmd {
	return m.run("filter", func(ctx context.Context) error {
		return m.ctrl.SetFilter(ctx, key, value)
	})
}

func (m Browser[T]) clearFiltersCmd() tea.Cmd {
	return m.run("filter", m.ctrl.ClearFilters)
}

func (m Browser[T]) exportCmd() tea.Cmd {
	parent := m.ctx
	timeout := m.config.Timeout
	ctrl := m.ctrl
	exp := m.config.Exporter
	hook := m.config.OnExport
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		res, err := ctrl.Export(ctx, exp)
		if err == nil && !res.Skipped && hook != nil {
			hook(ctx, res)
		}
		return exportedMsg{result: res, err: err}
	}
}

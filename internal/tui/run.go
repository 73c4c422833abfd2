package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/givedesk/internal/listing"
	tea "github.com/charmbracelet/bubbletea"
)

// Run opens a full-screen browser over ctrl and blocks until the user quits
// or ctx is canceled. The controller is closed on return.
func Run[T any](ctx context.Context, ctrl *listing.Controller[T], opts ...Option) error {
	defer ctrl.Close()

	browser := NewBrowser(ctx, ctrl, opts...)
	program := tea.NewProgram(browser,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

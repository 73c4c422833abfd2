package tui

import "github.com/Veraticus/givedesk/internal/export"

// listUpdatedMsg is sent when a controller operation finishes. The
// snapshot is re-read on receipt, so the message only carries the outcome.
type listUpdatedMsg struct {
	err error
	op  string
}

type exportedMsg struct {
	err    error
	result export.Result
}

type statusLevel int

const (
	statusInfo statusLevel = iota
	statusSuccess
	statusWarning
	statusError
)

type status struct {
	text  string
	level statusLevel
}

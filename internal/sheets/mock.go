package sheets

import (
	"context"
	"sync"

	"github.com/Veraticus/givedesk/internal/model"
)

// MockWriter records WriteTable calls for tests of code that publishes to sheets.
type MockWriter struct {
	WriteFunc  func(ctx context.Context, title string, header []string, rows []model.ExportRow) (string, error)
	WriteCalls []WriteCall
	mu         sync.Mutex
}

// WriteCall represents a single call to WriteTable.
type WriteCall struct {
	Error  error
	Title  string
	Header []string
	Rows   []model.ExportRow
}

// NewMockWriter creates a new mock writer.
func NewMockWriter() *MockWriter {
	return &MockWriter{}
}

// WriteTable records the call and returns WriteFunc's result, or a link
// derived from title when WriteFunc is nil.
func (m *MockWriter) WriteTable(ctx context.Context, title string, header []string, rows []model.ExportRow) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	url := "https://docs.google.com/spreadsheets/d/mock/edit#" + title
	var err error
	if m.WriteFunc != nil {
		url, err = m.WriteFunc(ctx, title, header, rows)
	}

	m.WriteCalls = append(m.WriteCalls, WriteCall{
		Title:  title,
		Header: header,
		Rows:   rows,
		Error:  err,
	})
	return url, err
}

// Calls returns a copy of all recorded calls.
func (m *MockWriter) Calls() []WriteCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]WriteCall, len(m.WriteCalls))
	copy(calls, m.WriteCalls)
	return calls
}

// SetWriteError makes every subsequent call fail with err.
func (m *MockWriter) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteFunc = func(context.Context, string, []string, []model.ExportRow) (string, error) {
		return "", err
	}
}

// Package export serializes filtered collections into delimited files and
// delivers them to a download location.
package export

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/givedesk/internal/model"
)

// Column is one exported field of T.
type Column[T any] struct {
	Value  func(T) string
	Header string
}

// Table is a fully formatted export ready for a sink.
type Table struct {
	Name   string
	Header []string
	Rows   []model.ExportRow
}

// Build formats records with columns. A panicking column value is recorded as
// an empty cell rather than aborting the export.
func Build[T any](name string, records []T, columns []Column[T]) Table {
	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = c.Header
	}

	rows := make([]model.ExportRow, 0, len(records))
	for _, rec := range records {
		row := make(model.ExportRow, len(columns))
		for i, c := range columns {
			row[i] = safeValue(c.Value, rec)
		}
		rows = append(rows, row)
	}

	return Table{Name: name, Header: header, Rows: rows}
}

func safeValue[T any](value func(T) string, rec T) (out string) {
	defer func() {
		if recover() != nil {
			out = ""
		}
	}()
	if value == nil {
		return ""
	}
	return value(rec)
}

// Quote wraps a field in double quotes, doubling embedded quotes.
func Quote(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

func writeLine(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(Quote(f)); err != nil {
			return err
		}
	}
	return nil
}

// Encode writes the header row and one row per record. Every field is quoted
// and rows are separated by "\n" with no trailing newline. onRow, when set, is
// called after each data row.
func Encode(w io.Writer, table Table, onRow func()) error {
	bw := bufio.NewWriter(w)

	if err := writeLine(bw, table.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range table.Rows {
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
		if err := writeLine(bw, row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
		if onRow != nil {
			onRow()
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush export: %w", err)
	}
	return nil
}

// Bytes encodes table into memory.
func Bytes(table Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, table, nil); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

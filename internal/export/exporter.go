package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"
)

// ProgressThreshold is the row count above which a progress bar is shown.
const ProgressThreshold = 500

// Sink delivers an encoded table somewhere the user can pick it up. It
// returns a human-readable location. onRow is called once per data row.
type Sink interface {
	Deliver(ctx context.Context, table Table, onRow func()) (string, error)
}

// Result describes a finished export.
type Result struct {
	Location string
	Rows     int
	Skipped  bool
}

// Exporter triggers downloads through a Sink.
type Exporter struct {
	sink     Sink
	progress io.Writer
	logger   *slog.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithProgress renders a progress bar to w for large exports.
func WithProgress(w io.Writer) Option {
	return func(e *Exporter) {
		e.progress = w
	}
}

// WithLogger sets the exporter's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) {
		e.logger = logger
	}
}

// New creates an Exporter delivering to sink.
func New(sink Sink, opts ...Option) *Exporter {
	e := &Exporter{
		sink:   sink,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export delivers table. An empty table is a no-op and nothing is written.
func (e *Exporter) Export(ctx context.Context, table Table) (Result, error) {
	if len(table.Rows) == 0 {
		e.logger.Debug("nothing to export", "name", table.Name)
		return Result{Skipped: true}, nil
	}
	if e.sink == nil {
		return Result{}, fmt.Errorf("no export sink configured")
	}

	onRow, finish := e.progressFunc(len(table.Rows))
	location, err := e.sink.Deliver(ctx, table, onRow)
	finish()
	if err != nil {
		return Result{}, fmt.Errorf("failed to export %s: %w", table.Name, err)
	}

	e.logger.Info("export completed",
		"name", table.Name,
		"rows", len(table.Rows),
		"location", location)

	return Result{Location: location, Rows: len(table.Rows)}, nil
}

func (e *Exporter) progressFunc(total int) (func(), func()) {
	if e.progress == nil || total < ProgressThreshold {
		return func() {}, func() {}
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(e.progress),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Exporting rows...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	onRow := func() {
		if err := bar.Add(1); err != nil {
			e.logger.Warn("Failed to update progress bar", "error", err)
		}
	}
	finish := func() {
		if err := bar.Finish(); err != nil {
			e.logger.Warn("Failed to finish progress bar", "error", err)
		}
	}
	return onRow, finish
}

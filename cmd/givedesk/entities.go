package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/givedesk/internal/cli"
	"github.com/Veraticus/givedesk/internal/common"
	"github.com/Veraticus/givedesk/internal/entity"
	"github.com/Veraticus/givedesk/internal/export"
	"github.com/Veraticus/givedesk/internal/listing"
	"github.com/Veraticus/givedesk/internal/model"
	"github.com/Veraticus/givedesk/internal/paginate"
	"github.com/Veraticus/givedesk/internal/tui"
	"github.com/spf13/cobra"
)

// filterFlags are the list and export flags shared by every collection.
type filterFlags struct {
	values   map[model.FilterKey]*string
	page     int
	pageSize int
}

// flagName maps a filter key onto its command-line flag.
func flagName(key model.FilterKey) string {
	if key == model.FilterDateRange {
		return "range"
	}
	return string(key)
}

var flagUsage = map[model.FilterKey]string{
	model.FilterSearch:    "case-insensitive text search",
	model.FilterStatus:    "status to match",
	model.FilterCause:     "cause to match",
	model.FilterMethod:    "payment method to match",
	model.FilterRole:      "role to match",
	model.FilterDateRange: "date range (7days, 30days, 90days)",
}

// addFilterFlags registers one flag per filter key the collection knows.
func addFilterFlags(cmd *cobra.Command, keys []model.FilterKey, paging bool) *filterFlags {
	f := &filterFlags{values: make(map[model.FilterKey]*string, len(keys))}
	for _, key := range keys {
		f.values[key] = cmd.Flags().String(flagName(key), "", flagUsage[key])
	}
	if paging {
		cmd.Flags().IntVar(&f.page, "page", 1, "page to show")
		cmd.Flags().IntVar(&f.pageSize, "page-size", 0, "rows per page (default from list.page_size)")
	}
	return f
}

// state builds the filter state, rejecting unknown date ranges.
func (f *filterFlags) state() (model.FilterState, error) {
	state := model.FilterState{}
	for key, value := range f.values {
		v := strings.TrimSpace(*value)
		if key == model.FilterDateRange && v != "" && model.DateRange(v).Days() == 0 {
			return nil, common.NewValidationError("range", fmt.Sprintf("Unknown date range %q; use 7days, 30days or 90days", v))
		}
		state = state.With(key, v)
	}
	return state, nil
}

func entityCmd[T any](desc entity.Descriptor[T], short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   desc.Resource,
		Short: short,
	}

	cmd.AddCommand(listEntityCmd(desc))
	cmd.AddCommand(exportEntityCmd(desc))
	cmd.AddCommand(browseEntityCmd(desc))
	cmd.AddCommand(showEntityCmd(desc))
	cmd.AddCommand(editEntityCmd(desc))

	return cmd
}

func listEntityCmd[T any](desc entity.Descriptor[T]) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s", desc.Resource),
		Long: fmt.Sprintf(`Fetch every %s record, apply the filters and show one page.

Filters combine with AND; an empty flag means no constraint.`, desc.Resource),
		Args: cobra.NoArgs,
	}
	flags := addFilterFlags(cmd, desc.FilterKeys(), true)

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		state, err := flags.state()
		if err != nil {
			return err
		}

		a, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.requireAdmin(ctx); err != nil {
			return err
		}

		items, err := a.client.All(ctx, desc.Resource)
		if err != nil {
			return err
		}

		size := flags.pageSize
		if size <= 0 {
			size = a.settings.PageSize
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), renderList(desc, items, state, flags.page, size, time.Now()))
		return err
	}

	return cmd
}

// renderList runs the pipeline over raw items and formats one page. Pages
// past the end show the last page.
func renderList[T any](desc entity.Descriptor[T], items []any, state model.FilterState, page, size int, now time.Time) string {
	records := desc.NormalizeAll(items)
	res := desc.Run(records, state, page, size, now)
	if clamped := paginate.Clamp(page, res.Pagination.TotalPages); clamped != page {
		res = desc.Run(records, state, clamped, size, now)
	}
	if len(res.Filtered) == 0 {
		if state.IsEmpty() {
			return cli.FormatInfo(fmt.Sprintf("No %s yet", desc.Resource))
		}
		return cli.FormatInfo(fmt.Sprintf("No %s match these filters", desc.Resource))
	}

	rows := make([][]string, 0, len(res.Page))
	for _, item := range res.Page {
		rows = append(rows, desc.Cells(item))
	}

	p := res.Pagination
	footer := cli.SubtleStyle.Render(fmt.Sprintf("Page %d of %d · %d matching · %d total",
		p.CurrentPage, p.TotalPages, p.TotalCount, len(records)))

	return strings.Join([]string{cli.RenderTable(desc.TableHead, rows), "", footer}, "\n")
}

func exportEntityCmd[T any](desc entity.Descriptor[T]) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: fmt.Sprintf("Export %s as CSV", desc.Resource),
		Long: fmt.Sprintf(`Export every %s record matching the filters, not just one page.

The CSV goes to the configured sink: a local file (default), a Google Sheets
tab, or an S3 object. Nothing is written when no record matches.`, desc.Resource),
		Args: cobra.NoArgs,
	}
	flags := addFilterFlags(cmd, desc.FilterKeys(), false)
	cmd.Flags().String("sink", "", "export destination: file, sheets or s3 (default from export.sink)")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		state, err := flags.state()
		if err != nil {
			return err
		}

		a, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.requireAdmin(ctx); err != nil {
			return err
		}

		sink, _ := cmd.Flags().GetString("sink")
		if sink == "" {
			sink = a.settings.ExportSink
		}
		sink = strings.ToLower(sink)
		exp, err := newExporter(ctx, a.settings, sink)
		if err != nil {
			return err
		}

		items, err := a.client.All(ctx, desc.Resource)
		if err != nil {
			return err
		}

		res, err := exportItems(ctx, desc, items, state, exp, time.Now())
		if err != nil {
			return err
		}
		if res.Skipped {
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning("Nothing to export"))
			return err
		}

		a.recordExport(ctx, desc.Resource, sink, state, res)
		_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Exported %d rows to %s", res.Rows, res.Location)))
		return err
	}

	return cmd
}

// exportItems normalizes and filters items and hands the table to exp.
func exportItems[T any](ctx context.Context, desc entity.Descriptor[T], items []any, state model.FilterState, exp *export.Exporter, now time.Time) (export.Result, error) {
	filtered := desc.Filter(desc.NormalizeAll(items), state, now)
	return exp.Export(ctx, desc.Export(filtered, state))
}

func browseEntityCmd[T any](desc entity.Descriptor[T]) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse",
		Short: fmt.Sprintf("Browse %s interactively", desc.Resource),
		Long: `Open a full-screen table with search, filters, paging and export.

Press ? inside the browser for the key bindings.`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().String("sink", "", "export destination: file, sheets or s3 (default from export.sink)")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.requireAdmin(ctx); err != nil {
			return err
		}

		// The alternate screen owns the terminal; logging would corrupt it.
		quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

		ctrl := listing.New(a.client, desc,
			listing.WithPageSize(a.settings.PageSize),
			listing.WithServerPage(a.settings.FetchServerPage),
			listing.WithLogger(quiet),
		)

		opts := []tui.Option{
			tui.WithLogger(quiet),
			tui.WithTimeout(browseTimeout(a.settings.APITimeout)),
		}

		sink, _ := cmd.Flags().GetString("sink")
		if sink == "" {
			sink = a.settings.ExportSink
		}
		sink = strings.ToLower(sink)
		exportSink, err := newSink(ctx, a.settings, sink)
		if err != nil {
			slog.Warn("export disabled in browser", "sink", sink, "error", err)
		} else {
			opts = append(opts,
				tui.WithExporter(export.New(exportSink, export.WithLogger(quiet))),
				tui.WithExportHook(func(ctx context.Context, res export.Result) {
					a.recordExport(ctx, desc.Resource, sink, ctrl.Snapshot().Filters, res)
				}),
			)
		}

		return tui.Run(ctx, ctrl, opts...)
	}

	return cmd
}

// browseTimeout bounds one browser operation. A load is a single collection
// request, with the optional server page fetched alongside it, so one request
// timeout would do; the headroom is for exports, whose uploads retry with
// backoff under the same deadline.
func browseTimeout(request time.Duration) time.Duration {
	if request <= 0 {
		return 2 * time.Minute
	}
	return max(10*request, 30*time.Second)
}

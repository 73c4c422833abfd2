package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/givedesk/internal/cli"
	"github.com/Veraticus/givedesk/internal/model"
	"github.com/Veraticus/givedesk/internal/storage"
	"github.com/spf13/cobra"
)

func exportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exports",
		Short: "Show recent exports",
		Long: `List exports made from this machine, newest first, with the filters that
were active and where the file went.`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().String("entity", "", "only show exports of this collection")
	cmd.Flags().Int("limit", 20, "maximum exports to show")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		entityName, _ := cmd.Flags().GetString("entity")
		limit, _ := cmd.Flags().GetInt("limit")

		records, err := a.store.RecentExports(ctx, entityName, limit)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), renderExports(records))
		return err
	}

	return cmd
}

func renderExports(records []storage.ExportRecord) string {
	if len(records) == 0 {
		return cli.FormatInfo("No exports yet")
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.CreatedAt.Local().Format("2006-01-02 15:04"),
			rec.Entity,
			strconv.Itoa(rec.Rows),
			describeFilters(rec.Filters),
			rec.Sink,
			rec.Location,
		})
	}
	return cli.RenderTable([]string{"When", "Collection", "Rows", "Filters", "Sink", "Location"}, rows)
}

// describeFilters renders active filters as "key=value" pairs in key order.
func describeFilters(state model.FilterState) string {
	active := state.Active()
	if len(active) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(active))
	for _, key := range active {
		parts = append(parts, fmt.Sprintf("%s=%s", key, state.Get(key)))
	}
	return strings.Join(parts, " ")
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Veraticus/givedesk/internal/cli"
	"github.com/Veraticus/givedesk/internal/common"
	"github.com/Veraticus/givedesk/internal/entity"
	"github.com/Veraticus/givedesk/internal/model"
	"github.com/spf13/cobra"
)

func showEntityCmd[T any](desc entity.Descriptor[T]) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: fmt.Sprintf("Show one of the %s", desc.Resource),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return adminAction(cmd, func(ctx context.Context, a *app) error {
				rec, err := a.client.Get(ctx, desc.Resource, args[0])
				if err != nil {
					return err
				}
				return printRecord(cmd, desc, args[0], rec)
			})
		},
	}
}

func editEntityCmd[T any](desc entity.Descriptor[T]) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id> --set key=value...",
		Short: fmt.Sprintf("Change fields on one of the %s", desc.Resource),
		Long: `Send the given fields to the backend and show the updated record.

Values that read as JSON numbers, booleans or null are sent as such;
anything else is sent as a string.`,
		Args: cobra.ExactArgs(1),
	}
	sets := cmd.Flags().StringArray("set", nil, "field assignment as key=value (repeatable)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		fields, err := parseAssignments(*sets)
		if err != nil {
			return err
		}
		return adminAction(cmd, func(ctx context.Context, a *app) error {
			rec, err := a.client.Update(ctx, desc.Resource, args[0], fields)
			if err != nil {
				return err
			}
			if err := printSuccess(cmd, fmt.Sprintf("Updated %d field(s) on %s", len(fields), args[0])); err != nil {
				return err
			}
			// A bare acknowledgment carries no document to show.
			if rec.ID() == "" {
				return nil
			}
			return printRecord(cmd, desc, args[0], rec)
		})
	}
	return cmd
}

// parseAssignments turns key=value pairs into an update body.
func parseAssignments(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, common.NewValidationError("set", "Give at least one --set key=value")
	}

	fields := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, common.NewValidationError("set", fmt.Sprintf("Expected key=value, got %q", pair))
		}
		if key == "_id" || key == "id" {
			return nil, common.NewValidationError("set", "The record id cannot be changed")
		}
		fields[key] = fieldValue(value)
	}
	return fields, nil
}

func fieldValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		switch v.(type) {
		case float64, bool, nil:
			return v
		}
	}
	return raw
}

// printRecord shows rec the way its list row would read, one column per line.
func printRecord[T any](cmd *cobra.Command, desc entity.Descriptor[T], id string, rec model.RawRecord) error {
	records := desc.NormalizeAll([]any{rec})
	if len(records) == 0 {
		return common.NewUserError(fmt.Sprintf("The backend returned an unreadable record for %s.", id), common.ErrNotFound)
	}

	cells := desc.Cells(records[0])
	width := 0
	for _, h := range desc.TableHead {
		width = max(width, len(h)+1)
	}
	lines := make([]string, 0, len(desc.TableHead))
	for i, h := range desc.TableHead {
		value := ""
		if i < len(cells) {
			value = cells[i]
		}
		lines = append(lines, fmt.Sprintf("%-*s  %s", width, h+":", value))
	}

	_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox(fmt.Sprintf("%s %s", desc.Resource, id), strings.Join(lines, "\n")))
	return err
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/givedesk/internal/cli"
	"github.com/Veraticus/givedesk/internal/common"
	"github.com/spf13/cobra"
)

// adminAction opens the app, checks the session is an admin and runs fn.
func adminAction(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()

	a, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.requireAdmin(ctx); err != nil {
		return err
	}
	return fn(ctx, a)
}

func userSetRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-role <user-id> <role>",
		Short: "Change a user's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, role := args[0], strings.ToLower(strings.TrimSpace(args[1]))
			if role != "admin" && role != "user" {
				return common.NewValidationError("role", fmt.Sprintf("Unknown role %q; use admin or user", args[1]))
			}
			return adminAction(cmd, func(ctx context.Context, a *app) error {
				if err := a.client.UpdateUserRole(ctx, id, role); err != nil {
					return err
				}
				return printSuccess(cmd, fmt.Sprintf("User %s is now %s", id, role))
			})
		},
	}
}

func userVerifyEmailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-email <user-id>",
		Short: "Mark a user's email as verified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return adminAction(cmd, func(ctx context.Context, a *app) error {
				if err := a.client.VerifyUserEmail(ctx, args[0]); err != nil {
					return err
				}
				return printSuccess(cmd, fmt.Sprintf("Email verified for user %s", args[0]))
			})
		},
	}
}

func userResetPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <user-id>",
		Short: "Send a user password reset instructions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return adminAction(cmd, func(ctx context.Context, a *app) error {
				if err := a.client.ResetUserPassword(ctx, args[0]); err != nil {
					return err
				}
				return printSuccess(cmd, fmt.Sprintf("Password reset sent to user %s", args[0]))
			})
		},
	}
}

func campaignResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset <campaign-id>",
		Short: "Zero a campaign's raised total and donor count",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().Bool("yes", false, "skip the confirmation prompt")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return adminAction(cmd, func(ctx context.Context, a *app) error {
			ok, err := confirm(ctx, cmd, fmt.Sprintf("Reset campaign %s? Its raised total goes back to zero.", args[0]))
			if err != nil || !ok {
				return err
			}
			if err := a.client.ResetCampaign(ctx, args[0]); err != nil {
				return err
			}
			return printSuccess(cmd, fmt.Sprintf("Campaign %s reset", args[0]))
		})
	}
	return cmd
}

func deleteCmd(resource, noun string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   fmt.Sprintf("delete <%s-id>", noun),
		Short: fmt.Sprintf("Delete a %s", noun),
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().Bool("yes", false, "skip the confirmation prompt")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return adminAction(cmd, func(ctx context.Context, a *app) error {
			ok, err := confirm(ctx, cmd, fmt.Sprintf("Delete %s %s? This cannot be undone.", noun, args[0]))
			if err != nil || !ok {
				return err
			}
			if err := a.client.Delete(ctx, resource, args[0]); err != nil {
				return err
			}
			return printSuccess(cmd, fmt.Sprintf("Deleted %s %s", noun, args[0]))
		})
	}
	return cmd
}

// confirm asks a yes/no question unless --yes was given.
func confirm(ctx context.Context, cmd *cobra.Command, question string) (bool, error) {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return true, nil
	}

	out := cmd.OutOrStdout()
	if _, err := fmt.Fprint(out, cli.FormatPrompt(question+" [y/N]")); err != nil {
		return false, err
	}
	answer, err := cli.NewNonBlockingReader(cmd.InOrStdin()).ReadLine(ctx)
	if err != nil {
		return false, err
	}
	if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
		_, err = fmt.Fprintln(out, cli.FormatInfo("Canceled"))
		return false, err
	}
	return true, nil
}

func printSuccess(cmd *cobra.Command, msg string) error {
	_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(msg))
	return err
}

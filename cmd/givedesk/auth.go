package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/givedesk/internal/cli"
	"github.com/Veraticus/givedesk/internal/common"
	"github.com/Veraticus/givedesk/internal/export"
	"github.com/Veraticus/givedesk/internal/session"
	"github.com/spf13/cobra"
)

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the donation platform",
		Long: `Sign in with your email or username and password.

The session token is stored in the local database and used by every other
command until it expires or you run 'givedesk logout'.`,
		RunE: runLogin,
	}

	cmd.Flags().String("email", "", "email or username")
	cmd.Flags().String("password", "", "password (prompted when omitted)")

	return cmd
}

func runLogin(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	login, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")

	reader := cli.NewNonBlockingReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()
	if login == "" {
		fmt.Fprint(out, cli.FormatPrompt("Email or username")) //nolint:forbidigo // User-facing output
		if login, err = reader.ReadLine(ctx); err != nil {
			return err
		}
	}
	if password == "" {
		fmt.Fprint(out, cli.FormatPrompt("Password")) //nolint:forbidigo // User-facing output
		if password, err = reader.ReadLine(ctx); err != nil {
			return err
		}
	}
	if strings.TrimSpace(login) == "" || password == "" {
		return common.NewValidationError("login", "Email and password are required")
	}

	result, err := a.client.SignIn(ctx, login, password)
	if err != nil {
		return err
	}

	user, err := a.session.Login(ctx, result.Token)
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Signed in as %s", displayName(user)))) //nolint:forbidigo // User-facing output
	if !user.IsAdmin() {
		fmt.Fprintln(out, cli.FormatWarning("This account is not an admin; list and export commands will be refused.")) //nolint:forbidigo // User-facing output
	}
	return nil
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.session.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Signed out")) //nolint:forbidigo // User-facing output
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			user, err := a.session.CurrentUser(ctx)
			if errors.Is(err, common.ErrNotAuthenticated) {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Not signed in")) //nolint:forbidigo // User-facing output
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox("Session", describeUser(user, time.Now()))) //nolint:forbidigo // User-facing output
			if a.session.ExpiringSoon(ctx, session.DefaultExpiryWarning) {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning("Your session expires soon; sign in again to keep working.")) //nolint:forbidigo // User-facing output
			}
			return nil
		},
	}
}

func displayName(u session.User) string {
	switch {
	case u.Username != "":
		return u.Username
	case u.Email != "":
		return u.Email
	default:
		return u.ID
	}
}

func describeUser(u session.User, now time.Time) string {
	lines := []string{
		"User:    " + displayName(u),
		"Email:   " + export.Or(u.Email, "-"),
		"Role:    " + export.Or(u.Role, "-"),
	}
	if !u.ExpiresAt.IsZero() {
		lines = append(lines, fmt.Sprintf("Expires: %s (in %s)",
			u.ExpiresAt.Local().Format(time.RFC1123), u.ExpiresAt.Sub(now).Round(time.Minute)))
	}
	return strings.Join(lines, "\n")
}

package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/givedesk/internal/api"
	"github.com/Veraticus/givedesk/internal/cli"
	"github.com/Veraticus/givedesk/internal/common"
	"github.com/Veraticus/givedesk/internal/wizard"
	"github.com/spf13/cobra"
)

func donateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "donate",
		Short: "Make a donation",
		Long: `Walk through a donation: pick a cause and amount, pay by card or PayPal,
review and confirm.

Card details are exchanged for a token with the payment provider and never
reach the donation backend. Set GIVEDESK_STRIPE_PUBLISHABLE_KEY to enable
card payments.`,
		Args: cobra.NoArgs,
		RunE: runDonate,
	}

	cmd.AddCommand(donateCompleteCmd())

	return cmd
}

func runDonate(cmd *cobra.Command, _ []string) error {
	a, err := initApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()
	if a.secrets.StripePublishableKey == "" {
		fmt.Fprintln(out, cli.FormatWarning("Card payments are not configured; choose PayPal.")) //nolint:forbidigo // User-facing output
	}

	prompter := cli.NewPrompter(cmd.InOrStdin(), out)
	ctrl := wizard.New(a.client,
		api.StripeTokenizer{PublishableKey: a.secrets.StripePublishableKey},
		wizard.WithNotifier(prompter),
		wizard.WithLogger(slog.Default()),
	)

	interrupts := cli.NewInterruptHandler(out)
	ctx := interrupts.HandleInterrupts(cmd.Context(), func() bool {
		_, paid := ctrl.Receipt()
		return paid
	})

	fmt.Fprintln(out, cli.FormatTitle("Make a donation")) //nolint:forbidigo // User-facing output

	receipt, err := cli.RunDonation(ctx, ctrl, prompter)
	switch {
	case errors.Is(err, cli.ErrDonationCanceled):
		fmt.Fprintln(out, cli.FormatInfo("Donation canceled. No payment was made.")) //nolint:forbidigo // User-facing output
		return nil
	case interrupts.WasInterrupted():
		return nil
	case err != nil:
		return err
	}

	slog.Debug("donation completed", "method", receipt.Method, "amount", receipt.Amount)
	return nil
}

func donateCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <return-url>",
		Short: "Finish a PayPal donation from the URL PayPal returned you to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			prompter := cli.NewPrompter(cmd.InOrStdin(), out)
			ctrl := wizard.New(nil, nil, wizard.WithNotifier(prompter))

			_, ok, err := ctrl.ResumeFromCallback(args[0])
			if err != nil {
				return common.NewUserError("That is not a valid URL.", err)
			}
			if !ok {
				return common.NewUserError("That URL does not carry a PayPal approval.", common.ErrNotFound)
			}

			receipt, _ := ctrl.Receipt()
			fmt.Fprintln(out, cli.RenderBox("Thank you!", cli.ReceiptSummary(receipt))) //nolint:forbidigo // User-facing output
			return nil
		},
	}
}

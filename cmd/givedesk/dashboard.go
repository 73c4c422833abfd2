package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/givedesk/internal/cli"
	"github.com/Veraticus/givedesk/internal/dashboard"
	"github.com/Veraticus/givedesk/internal/export"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

func dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show fundraising statistics",
		Long: `Summarize donations and campaigns: totals, the last 30 days against the
30 before, this week's activity, campaign progress and donor retention.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.requireAdmin(ctx); err != nil {
				return err
			}

			stats, err := dashboard.Load(ctx, a.client, time.Now())
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderDashboard(stats))
			return err
		},
	}
}

func renderDashboard(s dashboard.Stats) string {
	donations := strings.Join([]string{
		"Total raised:     " + export.Currency(s.TotalRaised),
		"Donations:        " + export.Decimal(float64(s.TotalDonations)),
		"Average:          " + export.Currency(s.AverageDonation),
		"Last 30 days:     " + export.Currency(s.CurrentPeriodTotal) + " " + change(s.PercentageChange),
		"Previous 30 days: " + export.Currency(s.PreviousPeriodTotal),
		"Top method:       " + export.Or(s.TopPaymentMethod, "-"),
	}, "\n")

	week := strings.Join([]string{
		"This week:   " + export.Currency(s.WeeklyAmount) + fmt.Sprintf(" (%d donations)", s.WeeklyCount),
		"Last week:   " + export.Currency(s.PreviousWeekAmount),
		"Growth:      " + change(s.WeeklyGrowth),
	}, "\n")

	campaigns := strings.Join([]string{
		fmt.Sprintf("Total:       %d", s.TotalCampaigns),
		fmt.Sprintf("Active:      %d", s.ActiveCampaigns),
		fmt.Sprintf("Draft:       %d", s.DraftCampaigns),
		fmt.Sprintf("Completed:   %d", s.CompletedCampaigns),
		fmt.Sprintf("Best:        %d%% funded", s.HighestCompletion),
	}, "\n")

	causes := strings.Join([]string{
		"Most funded:  " + export.Or(s.MostFundedCause, "-"),
		"Least funded: " + export.Or(s.LeastFundedCause, "-") + fmt.Sprintf(" (%d%%, %d%% to go)", s.LeastFundedProgress, s.FundsNeeded),
		"Active:       " + export.Or(strings.Join(s.ActiveCauses, ", "), "-"),
	}, "\n")

	donors := strings.Join([]string{
		fmt.Sprintf("Donors:      %d", s.DonorCount),
		fmt.Sprintf("Returning:   %d", s.ReturningDonors),
		fmt.Sprintf("Retention:   %d%%", s.RetentionRate),
	}, "\n")

	return lipgloss.JoinVertical(lipgloss.Left,
		cli.FormatTitle("Fundraising dashboard"),
		lipgloss.JoinHorizontal(lipgloss.Top,
			cli.RenderBox("Donations", donations),
			cli.RenderBox("This week", week),
		),
		lipgloss.JoinHorizontal(lipgloss.Top,
			cli.RenderBox("Campaigns", campaigns),
			cli.RenderBox("Causes", causes),
			cli.RenderBox("Donors", donors),
		),
	)
}

// change renders a signed percentage with an arrow.
func change(pct float64) string {
	switch {
	case pct > 0:
		return cli.SuccessStyle.Render(fmt.Sprintf("▲ %.1f%%", pct))
	case pct < 0:
		return cli.ErrorStyle.Render(fmt.Sprintf("▼ %.1f%%", -pct))
	default:
		return cli.SubtleStyle.Render("– 0.0%")
	}
}

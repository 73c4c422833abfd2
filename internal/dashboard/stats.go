// Package dashboard computes the admin overview figures.
package dashboard

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Veraticus/givedesk/internal/model"
	"github.com/Veraticus/givedesk/internal/normalize"
	"golang.org/x/sync/errgroup"
)

// Stats is the dashboard summary.
type Stats struct {
	MostFundedCause     string
	LeastFundedCause    string
	TopPaymentMethod    string
	ActiveCauses        []string
	TotalRaised         float64
	AverageDonation     float64
	PercentageChange    float64
	WeeklyAmount        float64
	WeeklyGrowth        float64
	CurrentPeriodTotal  float64
	PreviousPeriodTotal float64
	PreviousWeekAmount  float64
	TotalDonations      int
	WeeklyCount         int
	ActiveCampaigns     int
	DraftCampaigns      int
	CompletedCampaigns  int
	TotalCampaigns      int
	HighestCompletion   int
	LeastFundedProgress int
	FundsNeeded         int
	ReturningDonors     int
	DonorCount          int
	RetentionRate       int
}

// Source fetches what the dashboard needs.
type Source interface {
	All(ctx context.Context, resource string) ([]any, error)
	CampaignTargets(ctx context.Context) ([]any, error)
}

// Load fetches donations and campaign targets concurrently and computes stats.
func Load(ctx context.Context, src Source, now time.Time) (Stats, error) {
	var donations, targets []any

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := src.All(gctx, "donations")
		if err != nil {
			return fmt.Errorf("failed to load donations: %w", err)
		}
		donations = items
		return nil
	})
	g.Go(func() error {
		items, err := src.CampaignTargets(gctx)
		if err != nil {
			return fmt.Errorf("failed to load campaign targets: %w", err)
		}
		targets = items
		return nil
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	return Compute(
		normalize.Collection(donations, normalize.Donation),
		normalize.Collection(targets, normalize.Campaign),
		now,
	), nil
}

// Compute derives the stats. Undated donations count toward totals but not
// toward any time window.
func Compute(donations []model.Donation, targets []model.Campaign, now time.Time) Stats {
	weekAgo := now.AddDate(0, 0, -7)
	twoWeeksAgo := now.AddDate(0, 0, -14)
	monthAgo := now.AddDate(0, 0, -30)
	twoMonthsAgo := now.AddDate(0, 0, -60)

	var s Stats
	methods := make(map[string]int)
	var methodOrder []string
	donors := make(map[string]int)

	for _, d := range donations {
		s.TotalRaised += d.Amount
		s.TotalDonations++

		if d.Date.Valid() {
			at := d.Date.Time
			switch {
			case !at.Before(weekAgo):
				s.WeeklyAmount += d.Amount
				s.WeeklyCount++
			case !at.Before(twoWeeksAgo):
				s.PreviousWeekAmount += d.Amount
			}
			switch {
			case !at.Before(monthAgo):
				s.CurrentPeriodTotal += d.Amount
			case !at.Before(twoMonthsAgo):
				s.PreviousPeriodTotal += d.Amount
			}
		}

		if _, seen := methods[d.Method]; !seen {
			methodOrder = append(methodOrder, d.Method)
		}
		methods[d.Method]++

		if email := strings.ToLower(strings.TrimSpace(d.Email)); email != "" {
			donors[email]++
		}
	}

	if s.TotalDonations > 0 {
		s.AverageDonation = round(s.TotalRaised/float64(s.TotalDonations), 2)
	}
	s.PercentageChange = round(growth(s.CurrentPeriodTotal, s.PreviousPeriodTotal), 1)
	s.WeeklyGrowth = round(growth(s.WeeklyAmount, s.PreviousWeekAmount), 1)

	best := 0
	for _, m := range methodOrder {
		if methods[m] > best {
			best = methods[m]
			s.TopPaymentMethod = m
		}
	}

	for _, count := range donors {
		if count > 1 {
			s.ReturningDonors++
		}
	}
	s.DonorCount = len(donors)
	if s.DonorCount > 0 {
		s.RetentionRate = int(math.Round(float64(s.ReturningDonors) / float64(s.DonorCount) * 100))
	}

	campaignStats(&s, targets)
	return s
}

func campaignStats(s *Stats, targets []model.Campaign) {
	s.TotalCampaigns = len(targets)
	s.MostFundedCause = "none"
	s.LeastFundedCause = "all"
	s.LeastFundedProgress = 100

	var least *model.Campaign
	for i, t := range targets {
		switch strings.ToLower(t.Status) {
		case "active":
			s.ActiveCampaigns++
			s.ActiveCauses = append(s.ActiveCauses, shortCause(t.Cause))
		case "draft":
			s.DraftCampaigns++
		case "completed", "archived":
			s.CompletedCampaigns++
		}

		if t.Progress > s.HighestCompletion {
			s.HighestCompletion = t.Progress
			s.MostFundedCause = shortCause(t.Cause)
		}
		if t.Progress < s.LeastFundedProgress {
			s.LeastFundedProgress = t.Progress
			s.LeastFundedCause = shortCause(t.Cause)
			least = &targets[i]
		}
	}

	if least != nil {
		s.FundsNeeded = int(math.Round(math.Max(0, least.TargetAmount-least.TotalRaised)))
	}
}

// growth is the percentage change from previous to current. With no previous
// activity any current activity counts as 100%.
func growth(current, previous float64) float64 {
	switch {
	case previous > 0:
		return (current - previous) / previous * 100
	case current > 0:
		return 100
	default:
		return 0
	}
}

func shortCause(cause string) string {
	fields := strings.Fields(cause)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

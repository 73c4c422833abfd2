package export

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/Veraticus/givedesk/internal/model"
)

const day = 24 * time.Hour

func dateCell(ts model.Timestamp) string {
	if ts.Raw == "" {
		return ts.Label
	}
	return LongDate(ts.Raw)
}

// DonationColumns is the donation export layout.
func DonationColumns() []Column[model.Donation] {
	return []Column[model.Donation]{
		{Header: "ID", Value: func(d model.Donation) string { return d.ID }},
		{Header: "Date", Value: func(d model.Donation) string { return dateCell(d.Date) }},
		{Header: "Donor Name", Value: func(d model.Donation) string { return d.Donor }},
		{Header: "Cause", Value: func(d model.Donation) string { return d.Cause }},
		{Header: "Amount (USD)", Value: func(d model.Donation) string { return Currency(d.Amount) }},
		{Header: "Payment Method", Value: func(d model.Donation) string { return d.Method }},
		{Header: "Status", Value: func(d model.Donation) string { return d.Status }},
		{Header: "Email", Value: func(d model.Donation) string { return Or(d.Email, "Not provided") }},
		{Header: "Country", Value: func(d model.Donation) string { return Or(d.Country, "Not provided") }},
		{Header: "Recurring Donation", Value: func(d model.Donation) string { return YesNo(d.IsRecurring) }},
		{Header: "Receipt URL", Value: func(d model.Donation) string { return Or(d.Receipt, "Not available") }},
		{Header: "Original Created Date", Value: func(d model.Donation) string { return Timestamp(d.Original.String("createdAt")) }},
		{Header: "Transaction ID", Value: func(d model.Donation) string { return Or(d.Original.String("transactionId"), "Not available") }},
		{Header: "Payment Status", Value: func(d model.Donation) string { return Or(d.Original.String("paymentStatus"), "Completed") }},
	}
}

// CampaignColumns is the campaign export layout. now anchors "Days Remaining".
func CampaignColumns(now func() time.Time) []Column[model.Campaign] {
	if now == nil {
		now = time.Now
	}
	return []Column[model.Campaign]{
		{Header: "ID", Value: func(c model.Campaign) string { return c.ID }},
		{Header: "Title", Value: func(c model.Campaign) string { return c.Title }},
		{Header: "Cause", Value: func(c model.Campaign) string { return c.Cause }},
		{Header: "Target Amount (USD)", Value: func(c model.Campaign) string { return Currency(c.TargetAmount) }},
		{Header: "Total Raised (USD)", Value: func(c model.Campaign) string { return Currency(c.TotalRaised) }},
		{Header: "Progress (%)", Value: func(c model.Campaign) string { return strconv.Itoa(c.Progress) + "%" }},
		{Header: "Remaining Amount (USD)", Value: func(c model.Campaign) string {
			return Currency(math.Max(0, c.TargetAmount-c.TotalRaised))
		}},
		{Header: "Status", Value: func(c model.Campaign) string { return c.Status }},
		{Header: "Donor Count", Value: func(c model.Campaign) string { return strconv.Itoa(c.DonorCount) }},
		{Header: "Start Date", Value: func(c model.Campaign) string { return dateCell(c.StartDate) }},
		{Header: "End Date", Value: func(c model.Campaign) string { return dateCell(c.EndDate) }},
		{Header: "Days Remaining", Value: func(c model.Campaign) string { return DaysRemaining(c.EndDate, now()) }},
		{Header: "Description", Value: func(c model.Campaign) string { return Or(c.Description, "No description") }},
		{Header: "Created At", Value: func(c model.Campaign) string { return Timestamp(c.Original.String("createdAt")) }},
		{Header: "Updated At", Value: func(c model.Campaign) string { return Timestamp(c.Original.String("updatedAt")) }},
		{Header: "Campaign Duration (Days)", Value: func(c model.Campaign) string { return Duration(c.StartDate, c.EndDate) }},
		{Header: "Average Donation (USD)", Value: func(c model.Campaign) string {
			if c.DonorCount <= 0 {
				return "$0.00"
			}
			return "$" + Fixed(c.TotalRaised/float64(c.DonorCount), 2)
		}},
		{Header: "Completion Rate (%)", Value: func(c model.Campaign) string {
			if c.TargetAmount <= 0 {
				return "0.0%"
			}
			return Fixed(c.TotalRaised/c.TargetAmount*100, 1) + "%"
		}},
	}
}

// DaysRemaining counts whole days until end, rounding up.
func DaysRemaining(end model.Timestamp, now time.Time) string {
	if end.Raw == "" {
		return model.Ongoing
	}
	if !end.Valid() {
		return model.InvalidDate
	}
	days := int(math.Ceil(float64(end.Time.Sub(now)) / float64(day)))
	if days <= 0 {
		return "Expired"
	}
	return strconv.Itoa(days)
}

// Duration counts whole days between start and end, rounding up.
func Duration(start, end model.Timestamp) string {
	if start.Raw == "" || end.Raw == "" {
		return model.Ongoing
	}
	if !start.Valid() || !end.Valid() {
		return "Invalid Dates"
	}
	days := int(math.Ceil(float64(end.Time.Sub(start.Time)) / float64(day)))
	if days <= 0 {
		return "Invalid"
	}
	return strconv.Itoa(days)
}

// UserColumns is the user export layout.
func UserColumns() []Column[model.User] {
	return []Column[model.User]{
		{Header: "ID", Value: func(u model.User) string { return u.ID }},
		{Header: "Name", Value: func(u model.User) string { return Or(u.Name, "N/A") }},
		{Header: "Username", Value: func(u model.User) string { return u.Username }},
		{Header: "Email", Value: func(u model.User) string { return u.Email }},
		{Header: "Role", Value: func(u model.User) string { return u.Role }},
		{Header: "Email Verified", Value: func(u model.User) string { return YesNo(u.EmailVerified) }},
		{Header: "Joined", Value: func(u model.User) string { return dateCell(u.Joined) }},
	}
}

// ArticleColumns is the article export layout.
func ArticleColumns() []Column[model.Article] {
	return []Column[model.Article]{
		{Header: "ID", Value: func(a model.Article) string { return a.ID }},
		{Header: "Title", Value: func(a model.Article) string { return a.Title }},
		{Header: "Author", Value: func(a model.Article) string { return a.Author }},
		{Header: "Date", Value: func(a model.Article) string { return dateCell(a.Date) }},
		{Header: "Status", Value: func(a model.Article) string { return a.Status }},
		{Header: "Impact Type", Value: func(a model.Article) string { return a.ImpactType }},
		{Header: "Location", Value: func(a model.Article) string { return a.Location }},
		{Header: "Slug", Value: func(a model.Article) string { return a.Slug }},
	}
}

// Summary describes an export for logs and confirmations.
func Summary(t Table) string {
	return fmt.Sprintf("%s: %d rows, %d columns", t.Name, len(t.Rows), len(t.Header))
}

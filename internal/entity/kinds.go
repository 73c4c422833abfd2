package entity

import (
	"strconv"
	"time"

	"github.com/Veraticus/givedesk/internal/export"
	"github.com/Veraticus/givedesk/internal/filter"
	"github.com/Veraticus/givedesk/internal/model"
	"github.com/Veraticus/givedesk/internal/normalize"
)

// Donations lists donations.
func Donations() Descriptor[model.Donation] {
	return Descriptor[model.Donation]{
		Kind:      model.KindDonation,
		Resource:  "donations",
		BaseName:  "donations",
		Normalize: normalize.Donation,
		Fields: []filter.Field[model.Donation]{
			filter.Search(
				func(d model.Donation) string { return d.Donor },
				func(d model.Donation) string { return d.Cause },
			),
			filter.Exact(model.FilterCause, func(d model.Donation) string { return d.Cause }),
			filter.Fold(model.FilterMethod, func(d model.Donation) string { return d.Method }),
			filter.Fold(model.FilterStatus, func(d model.Donation) string { return d.Status }),
			filter.Since(func(d model.Donation) model.Timestamp { return d.Date }),
		},
		Options: map[model.FilterKey]func(model.Donation) string{
			model.FilterCause:  func(d model.Donation) string { return d.Cause },
			model.FilterMethod: func(d model.Donation) string { return d.Method },
			model.FilterStatus: func(d model.Donation) string { return d.Status },
		},
		Columns:   export.DonationColumns,
		TableHead: []string{"Date", "Donor", "Cause", "Amount", "Method", "Status"},
		Cells: func(d model.Donation) []string {
			return []string{d.Date.Label, d.Donor, d.Cause, export.Currency(d.Amount), d.Method, d.Status}
		},
	}
}

// Campaigns lists campaigns.
func Campaigns() Descriptor[model.Campaign] {
	return Descriptor[model.Campaign]{
		Kind:      model.KindCampaign,
		Resource:  "campaigns",
		BaseName:  "campaigns",
		Normalize: normalize.Campaign,
		Fields: []filter.Field[model.Campaign]{
			filter.Search(
				func(c model.Campaign) string { return c.Title },
				func(c model.Campaign) string { return c.Cause },
			),
			filter.Exact(model.FilterStatus, func(c model.Campaign) string { return c.Status }),
			filter.Exact(model.FilterCause, func(c model.Campaign) string { return c.Cause }),
			filter.Since(func(c model.Campaign) model.Timestamp { return c.StartDate }),
		},
		Options: map[model.FilterKey]func(model.Campaign) string{
			model.FilterCause:  func(c model.Campaign) string { return c.Cause },
			model.FilterStatus: func(c model.Campaign) string { return c.Status },
		},
		Columns:   func() []export.Column[model.Campaign] { return export.CampaignColumns(time.Now) },
		TableHead: []string{"Title", "Cause", "Raised", "Target", "Progress", "Status", "Ends"},
		Cells: func(c model.Campaign) []string {
			return []string{
				c.Title, c.Cause,
				export.Currency(c.TotalRaised), export.Currency(c.TargetAmount),
				strconv.Itoa(c.Progress) + "%", c.Status, c.EndDate.Label,
			}
		},
	}
}

// Users lists platform users.
func Users() Descriptor[model.User] {
	return Descriptor[model.User]{
		Kind:      model.KindUser,
		Resource:  "users",
		BaseName:  "users",
		Normalize: normalize.User,
		Fields: []filter.Field[model.User]{
			filter.Search(
				func(u model.User) string { return u.Name },
				func(u model.User) string { return u.Username },
			),
			filter.Exact(model.FilterRole, func(u model.User) string { return u.Role }),
			filter.Since(func(u model.User) model.Timestamp { return u.Joined }),
		},
		Options: map[model.FilterKey]func(model.User) string{
			model.FilterRole: func(u model.User) string { return u.Role },
		},
		Columns:   export.UserColumns,
		TableHead: []string{"Name", "Username", "Email", "Role", "Verified", "Joined"},
		Cells: func(u model.User) []string {
			return []string{export.Or(u.Name, "N/A"), u.Username, u.Email, u.Role, export.YesNo(u.EmailVerified), u.Joined.Label}
		},
	}
}

// Articles lists impact articles.
func Articles() Descriptor[model.Article] {
	return Descriptor[model.Article]{
		Kind:      model.KindArticle,
		Resource:  "articles",
		BaseName:  "articles",
		Normalize: normalize.Article,
		Fields: []filter.Field[model.Article]{
			filter.Search(
				func(a model.Article) string { return a.Title },
				func(a model.Article) string { return a.Author },
			),
			filter.Exact(model.FilterStatus, func(a model.Article) string { return a.Status }),
			filter.Since(func(a model.Article) model.Timestamp { return a.Date }),
		},
		Options: map[model.FilterKey]func(model.Article) string{
			model.FilterStatus: func(a model.Article) string { return a.Status },
		},
		Columns:   export.ArticleColumns,
		TableHead: []string{"Title", "Author", "Date", "Status", "Impact", "Location"},
		Cells: func(a model.Article) []string {
			return []string{a.Title, a.Author, a.Date.Label, a.Status, a.ImpactType, a.Location}
		},
	}
}

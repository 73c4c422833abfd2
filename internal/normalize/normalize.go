// Package normalize turns loosely shaped backend documents into display
// records whose fields are always populated.
package normalize

import (
	"log/slog"
	"math"
	"strings"

	"github.com/Veraticus/givedesk/internal/model"
)

// Donation placeholders.
const (
	AnonymousDonor   = "Anonymous Donor"
	GeneralDonation  = "General Donation"
	UnknownMethod    = "Unknown"
	DefaultDonStatus = "Completed"
)

// Campaign placeholders.
const (
	UntitledCampaign = "Untitled Campaign"
	GeneralCause     = "General Cause"
	DefaultCampaign  = "Draft"
)

// User placeholders.
const (
	UnknownUser = "Unknown User"
	DefaultRole = "user"
)

// Article placeholders.
const (
	UntitledArticle   = "Untitled Article"
	UnknownAuthor     = "Unknown Author"
	GeneralImpact     = "General"
	DefaultImpactKind = "impact"
	NotSpecified      = "Not specified"
	DefaultArticle    = "Draft"
)

var donationStatuses = map[string]string{
	"success":  "Completed",
	"failed":   "Failed",
	"pending":  "Pending",
	"refunded": "Refunded",
}

var campaignStatuses = map[string]string{
	"draft":     "Draft",
	"active":    "Active",
	"archived":  "Archived",
	"completed": "Completed",
	"paused":    "Paused",
}

var articleStatuses = map[string]string{
	"draft":     "Draft",
	"published": "Published",
	"archived":  "Archived",
	"pending":   "Pending Review",
}

// Func normalizes one raw record. ok is false for entries that cannot be
// projected at all.
type Func[T any] func(raw model.RawRecord) (T, bool)

// Collection normalizes every entry, dropping nil and non-object values.
func Collection[T any](items []any, normalize Func[T]) []T {
	out := make([]T, 0, len(items))
	for i, item := range items {
		raw, ok := asRecord(item)
		if !ok {
			slog.Debug("skipping malformed record", "index", i)
			continue
		}
		if rec, ok := normalize(raw); ok {
			out = append(out, rec)
		}
	}
	return out
}

func asRecord(item any) (model.RawRecord, bool) {
	switch v := item.(type) {
	case model.RawRecord:
		return v, v != nil
	case map[string]any:
		return v, v != nil
	default:
		return nil, false
	}
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func mapStatus(table map[string]string, code, fallback string) string {
	if label, ok := table[strings.ToLower(strings.TrimSpace(code))]; ok {
		return label
	}
	return fallback
}

func finite(raw model.RawRecord, key string) float64 {
	v, ok := raw.Float(key)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Donation projects a donation document.
func Donation(raw model.RawRecord) (model.Donation, bool) {
	if raw == nil {
		return model.Donation{}, false
	}
	return model.Donation{
		ID:          raw.ID(),
		Date:        timestamp(raw.String("createdAt"), ShortDateLayout, model.UnknownDate),
		Donor:       orDefault(raw.String("name"), AnonymousDonor),
		Cause:       orDefault(raw.String("cause"), GeneralDonation),
		Amount:      finite(raw, "amount"),
		Method:      orDefault(raw.String("method"), UnknownMethod),
		Status:      mapStatus(donationStatuses, raw.String("paymentStatus"), DefaultDonStatus),
		Email:       raw.String("email"),
		Country:     raw.String("country"),
		IsRecurring: raw.Bool("isRecurring"),
		Receipt:     raw.String("transactionId"),
		Original:    raw,
	}, true
}

// Campaign projects a campaign document.
func Campaign(raw model.RawRecord) (model.Campaign, bool) {
	if raw == nil {
		return model.Campaign{}, false
	}

	target := finite(raw, "targetAmount")
	raised := finite(raw, "totalRaised")
	donors, _ := raw.Float("donorCount")

	return model.Campaign{
		ID:           raw.ID(),
		Title:        orDefault(raw.String("title"), UntitledCampaign),
		Cause:        orDefault(raw.String("cause"), GeneralCause),
		TargetAmount: target,
		TotalRaised:  raised,
		Progress:     Progress(raw, target, raised),
		Status:       mapStatus(campaignStatuses, raw.String("status"), DefaultCampaign),
		DonorCount:   int(math.Max(0, donors)),
		StartDate:    timestamp(raw.FirstString("startDate", "createdAt"), ShortDateLayout, model.UnknownDate),
		EndDate:      timestamp(raw.String("endDate"), ShortDateLayout, model.Ongoing),
		Description:  raw.String("description"),
		Original:     raw,
	}, true
}

// Progress prefers a positive backend-supplied progress and otherwise derives
// it from the raised and target amounts. A non-positive target yields 0.
func Progress(raw model.RawRecord, target, raised float64) int {
	if p, ok := raw.Float("progress"); ok && p > 0 && !math.IsInf(p, 0) {
		return int(math.Round(p))
	}
	if target <= 0 {
		return 0
	}
	return int(math.Round(raised / target * 100))
}

// User projects a user document.
func User(raw model.RawRecord) (model.User, bool) {
	if raw == nil {
		return model.User{}, false
	}
	return model.User{
		ID:            raw.ID(),
		Name:          raw.String("name"),
		Username:      orDefault(raw.String("username"), UnknownUser),
		Email:         raw.String("email"),
		Role:          orDefault(raw.String("role"), DefaultRole),
		EmailVerified: raw.Bool("emailVerified"),
		Joined:        timestamp(raw.String("createdAt"), ShortDateLayout, model.Never),
		Original:      raw,
	}, true
}

// Article projects an impact article.
func Article(raw model.RawRecord) (model.Article, bool) {
	if raw == nil {
		return model.Article{}, false
	}
	return model.Article{
		ID:         raw.ID(),
		Title:      orDefault(raw.String("title"), UntitledArticle),
		Date:       timestamp(raw.FirstString("date", "createdAt"), ArticleDateLayout, model.UnknownDate),
		Author:     orDefault(raw.String("userName"), UnknownAuthor),
		ImpactType: orDefault(raw.String("impactType"), GeneralImpact),
		ImpactKind: orDefault(raw.String("impactKind"), DefaultImpactKind),
		Location:   orDefault(raw.String("location"), NotSpecified),
		Content:    raw.String("content"),
		Status:     mapStatus(articleStatuses, raw.String("status"), DefaultArticle),
		MediaURL:   raw.String("mediaUrl"),
		Note:       raw.String("note"),
		ShowNote:   raw.Bool("showNote"),
		Actions:    raw.Strings("actions"),
		Impacts:    raw.Strings("impacts"),
		Slug:       raw.String("slug"),
		Original:   raw,
	}, true
}

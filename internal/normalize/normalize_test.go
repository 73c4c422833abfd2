package normalize

import (
	"math/rand"
	"testing"
	"time"

	"github.com/Veraticus/givedesk/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullDonation() model.RawRecord {
	return model.RawRecord{
		"_id":           "d1",
		"createdAt":     "2024-03-05T10:00:00.000Z",
		"name":          "Lina",
		"cause":         "Water",
		"amount":        50.0,
		"method":        "card",
		"paymentStatus": "success",
		"email":         "lina@example.com",
		"country":       "PS",
		"isRecurring":   true,
		"transactionId": "tx_1",
	}
}

func fullCampaign() model.RawRecord {
	return model.RawRecord{
		"_id":          "c1",
		"title":        "Winter Relief",
		"cause":        "Shelter",
		"targetAmount": 1000.0,
		"totalRaised":  250.0,
		"status":       "active",
		"donorCount":   12.0,
		"startDate":    "2024-01-01",
		"endDate":      "2024-06-30",
		"description":  "Blankets",
	}
}

func fullUser() model.RawRecord {
	return model.RawRecord{
		"_id":           "u1",
		"name":          "Sara",
		"username":      "sara",
		"email":         "sara@example.com",
		"role":          "admin",
		"emailVerified": true,
		"createdAt":     "2024-02-01T08:00:00Z",
	}
}

func fullArticle() model.RawRecord {
	return model.RawRecord{
		"_id":        "a1",
		"title":      "Wells finished",
		"date":       "2024-04-10T15:30:00Z",
		"userName":   "Omar",
		"impactType": "Water",
		"impactKind": "update",
		"location":   "Gaza",
		"status":     "published",
		"slug":       "wells-finished",
	}
}

func TestDonationDefaults(t *testing.T) {
	d, ok := Donation(model.RawRecord{})
	require.True(t, ok)
	assert.Equal(t, AnonymousDonor, d.Donor)
	assert.Equal(t, GeneralDonation, d.Cause)
	assert.Equal(t, UnknownMethod, d.Method)
	assert.Equal(t, "Completed", d.Status)
	assert.Zero(t, d.Amount)
	assert.Equal(t, model.UnknownDate, d.Date.Label)
	assert.False(t, d.Date.Valid())

	d, _ = Donation(model.RawRecord{"createdAt": "not a date", "paymentStatus": "refunded"})
	assert.Equal(t, model.InvalidDate, d.Date.Label)
	assert.Equal(t, "Refunded", d.Status)

	d, _ = Donation(fullDonation())
	assert.Equal(t, "Mar 5, 2024", d.Date.Label)
	assert.Equal(t, "tx_1", d.Receipt)
	assert.True(t, d.IsRecurring)
}

func TestCampaignProgress(t *testing.T) {
	tests := []struct {
		raw      model.RawRecord
		name     string
		expected int
	}{
		{
			name:     "derived from amounts",
			raw:      model.RawRecord{"targetAmount": 1000.0, "totalRaised": 250.0},
			expected: 25,
		},
		{
			name:     "zero target",
			raw:      model.RawRecord{"targetAmount": 0.0, "totalRaised": 250.0},
			expected: 0,
		},
		{
			name:     "missing target",
			raw:      model.RawRecord{"totalRaised": 250.0},
			expected: 0,
		},
		{
			name:     "backend progress wins",
			raw:      model.RawRecord{"progress": 40.4, "targetAmount": 1000.0, "totalRaised": 250.0},
			expected: 40,
		},
		{
			name:     "zero backend progress falls back",
			raw:      model.RawRecord{"progress": 0.0, "targetAmount": 200.0, "totalRaised": 50.0},
			expected: 25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := Campaign(tt.raw)
			require.True(t, ok)
			assert.Equal(t, tt.expected, c.Progress)
		})
	}
}

func TestCampaignDates(t *testing.T) {
	c, _ := Campaign(model.RawRecord{"createdAt": "2024-01-10"})
	assert.Equal(t, "Jan 10, 2024", c.StartDate.Label)
	assert.Equal(t, model.Ongoing, c.EndDate.Label)
	assert.Equal(t, "Draft", c.Status)
	assert.Equal(t, UntitledCampaign, c.Title)
}

func TestUserDefaults(t *testing.T) {
	u, ok := User(model.RawRecord{"_id": "u9"})
	require.True(t, ok)
	assert.Equal(t, "user", u.Role)
	assert.Equal(t, UnknownUser, u.Username)
	assert.Equal(t, "", u.Name)
	assert.Equal(t, model.Never, u.Joined.Label)
	assert.False(t, u.EmailVerified)
}

func TestArticleStatus(t *testing.T) {
	a, _ := Article(model.RawRecord{"status": "pending"})
	assert.Equal(t, "Pending Review", a.Status)

	a, _ = Article(model.RawRecord{"status": "mystery"})
	assert.Equal(t, "Draft", a.Status)
	assert.Equal(t, UnknownAuthor, a.Author)
	assert.Equal(t, NotSpecified, a.Location)
	assert.NotNil(t, a.Actions)

	a, _ = Article(fullArticle())
	assert.Equal(t, "April 10, 2024 at 03:30 PM", a.Date.Label)
}

func TestCollectionDropsMalformed(t *testing.T) {
	items := []any{
		map[string]any{"name": "A"},
		nil,
		"garbage",
		42.0,
		model.RawRecord{"name": "B"},
		map[string]any(nil),
	}
	got := Collection(items, Donation)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Donor)
	assert.Equal(t, "B", got[1].Donor)
}

// Randomly dropping fields must never leave a view-consumed field blank.
func TestNormalizersFillEveryViewField(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	omit := func(full model.RawRecord) model.RawRecord {
		out := model.RawRecord{}
		for k, v := range full {
			switch rng.Intn(3) {
			case 0:
				continue
			case 1:
				out[k] = nil
			default:
				out[k] = v
			}
		}
		return out
	}

	for i := 0; i < 200; i++ {
		d, ok := Donation(omit(fullDonation()))
		require.True(t, ok)
		assert.NotEmpty(t, d.Donor)
		assert.NotEmpty(t, d.Cause)
		assert.NotEmpty(t, d.Method)
		assert.NotEmpty(t, d.Status)
		assert.NotEmpty(t, d.Date.Label)

		c, ok := Campaign(omit(fullCampaign()))
		require.True(t, ok)
		assert.NotEmpty(t, c.Title)
		assert.NotEmpty(t, c.Cause)
		assert.NotEmpty(t, c.Status)
		assert.NotEmpty(t, c.StartDate.Label)
		assert.NotEmpty(t, c.EndDate.Label)
		assert.GreaterOrEqual(t, c.Progress, 0)

		u, ok := User(omit(fullUser()))
		require.True(t, ok)
		assert.NotEmpty(t, u.Username)
		assert.NotEmpty(t, u.Role)
		assert.NotEmpty(t, u.Joined.Label)

		a, ok := Article(omit(fullArticle()))
		require.True(t, ok)
		assert.NotEmpty(t, a.Title)
		assert.NotEmpty(t, a.Author)
		assert.NotEmpty(t, a.ImpactType)
		assert.NotEmpty(t, a.ImpactKind)
		assert.NotEmpty(t, a.Location)
		assert.NotEmpty(t, a.Status)
		assert.NotEmpty(t, a.Date.Label)
		assert.NotNil(t, a.Impacts)
	}
}

func TestParseTime(t *testing.T) {
	ts, ok := ParseTime("2024-05-01T12:00:00Z")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), ts)

	ts, ok = ParseTime("1714564800000")
	require.True(t, ok)
	assert.Equal(t, 2024, ts.Year())

	ts, ok = ParseTime("2024")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), ts)

	ts, ok = ParseTime("2024-03")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), ts)

	_, ok = ParseTime("12345")
	assert.False(t, ok)

	_, ok = ParseTime("")
	assert.False(t, ok)

	_, ok = ParseTime("yesterday")
	assert.False(t, ok)
}

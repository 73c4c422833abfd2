package model

import "time"

// Placeholders used when a backend field is missing or unusable.
const (
	UnknownDate = "Unknown Date"
	InvalidDate = "Invalid Date"
	Ongoing     = "Ongoing"
	Never       = "Never"
)

// Timestamp is a display-ready date. Label is always set; Time is zero when
// the source value was missing or unparseable.
type Timestamp struct {
	Time  time.Time
	Raw   string
	Label string
}

// Valid reports whether the timestamp carries a parsed time.
func (t Timestamp) Valid() bool {
	return !t.Time.IsZero()
}

func (t Timestamp) String() string {
	return t.Label
}

// Donation is the display projection of a donation document.
type Donation struct {
	Date        Timestamp
	Original    RawRecord
	ID          string
	Donor       string
	Cause       string
	Method      string
	Status      string
	Email       string
	Country     string
	Receipt     string
	Amount      float64
	IsRecurring bool
}

// Campaign is the display projection of a campaign document.
type Campaign struct {
	StartDate    Timestamp
	EndDate      Timestamp
	Original     RawRecord
	ID           string
	Title        string
	Cause        string
	Status       string
	Description  string
	TargetAmount float64
	TotalRaised  float64
	Progress     int
	DonorCount   int
}

// User is the display projection of a user document.
type User struct {
	Joined        Timestamp
	Original      RawRecord
	ID            string
	Name          string
	Username      string
	Email         string
	Role          string
	EmailVerified bool
}

// Article is the display projection of an impact article.
type Article struct {
	Date       Timestamp
	Original   RawRecord
	Actions    []string
	Impacts    []string
	ID         string
	Title      string
	Author     string
	ImpactType string
	ImpactKind string
	Location   string
	Content    string
	MediaURL   string
	Note       string
	Status     string
	Slug       string
	ShowNote   bool
}

// ExportRow is one record flattened to display strings for serialization.
type ExportRow []string

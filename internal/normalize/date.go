package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/givedesk/internal/model"
)

// Display layouts.
const (
	ShortDateLayout   = "Jan 2, 2006"
	ArticleDateLayout = "January 2, 2006 at 03:04 PM"
)

var parseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Mon Jan 02 2006 15:04:05 GMT-0700",
	"Jan 2, 2006",
	"January 2, 2006",
	"01/02/2006",
	"2006-01",
	"2006",
}

// Shorter digit runs are years, not epoch milliseconds.
const minEpochMillisDigits = 10

// ParseTime parses the date encodings the backend is known to emit. Digit
// strings of ten or more characters are Unix milliseconds; a bare four-digit
// value is a year.
func ParseTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	if len(raw) >= minEpochMillisDigits {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), true
		}
	}

	// Drop a trailing "(Zone Name)" as produced by Date.toString.
	if i := strings.Index(raw, " ("); i > 0 && strings.HasSuffix(raw, ")") {
		raw = raw[:i]
	}

	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// timestamp builds a display timestamp. missing is the label used when raw is
// blank; unparseable values are labelled model.InvalidDate.
func timestamp(raw, layout, missing string) model.Timestamp {
	if strings.TrimSpace(raw) == "" {
		return model.Timestamp{Label: missing}
	}
	t, ok := ParseTime(raw)
	if !ok {
		return model.Timestamp{Raw: raw, Label: model.InvalidDate}
	}
	return model.Timestamp{Time: t, Raw: raw, Label: t.Format(layout)}
}

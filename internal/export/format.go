package export

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/Veraticus/givedesk/internal/model"
	"github.com/Veraticus/givedesk/internal/normalize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Export date layouts.
const (
	LongDateLayout  = "January 2, 2006"
	TimestampLayout = "January 2, 2006, 03:04:05 PM MST"
)

var (
	printer    = message.NewPrinter(language.AmericanEnglish)
	whitespace = regexp.MustCompile(`\s+`)
)

// Decimal renders v with thousands separators and at most two fraction digits.
func Decimal(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	return printer.Sprintf("%v", number.Decimal(v, number.MaxFractionDigits(2)))
}

// Currency renders v as a dollar amount, e.g. "$1,234.5".
func Currency(v float64) string {
	return "$" + Decimal(v)
}

// Fixed renders v with the given number of fraction digits and no separators.
func Fixed(v float64, digits int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', digits, 64)
}

// LongDate renders raw as "January 2, 2006". Unparseable input is returned as is.
func LongDate(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	t, ok := normalize.ParseTime(raw)
	if !ok {
		return raw
	}
	return t.Format(LongDateLayout)
}

// Timestamp renders raw with time of day and zone, or "" when unparseable.
func Timestamp(raw string) string {
	t, ok := normalize.ParseTime(raw)
	if !ok {
		return ""
	}
	return t.Format(TimestampLayout)
}

// YesNo renders a flag.
func YesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// Or returns fallback when s is blank.
func Or(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// Filename builds "<base>[_<range>][_<cause>][_<method>][_<status>][_<role>].csv"
// from the active filters, lower-cased with whitespace runs replaced by "_".
func Filename(base string, state model.FilterState) string {
	parts := []string{base}

	if r := model.DateRange(state.Get(model.FilterDateRange)); r.Days() > 0 {
		parts = append(parts, r.Label())
	}
	for _, key := range []model.FilterKey{model.FilterCause, model.FilterMethod, model.FilterStatus, model.FilterRole} {
		if v := state.Get(key); v != "" {
			parts = append(parts, v)
		}
	}

	name := strings.ToLower(strings.Join(parts, "_"))
	name = whitespace.ReplaceAllString(name, "_")
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, name)
	return name + ".csv"
}

// Package model defines the records shared by the list pipeline and the donation wizard.
package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// EntityKind identifies which backend collection a record came from.
type EntityKind string

// Entity kinds served by the admin lists.
const (
	KindDonation EntityKind = "donation"
	KindCampaign EntityKind = "campaign"
	KindUser     EntityKind = "user"
	KindArticle  EntityKind = "article"
)

// RawRecord is a backend document decoded from JSON. Any field may be missing
// or carry an unexpected type.
type RawRecord map[string]any

// Has reports whether key is present and not null.
func (r RawRecord) Has(key string) bool {
	if r == nil {
		return false
	}
	v, ok := r[key]
	return ok && v != nil
}

// String returns the value at key as a string. Numbers and booleans are
// formatted; anything else yields "".
func (r RawRecord) String(key string) string {
	if r == nil {
		return ""
	}
	switch v := r[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// FirstString returns the first non-blank string among keys.
func (r RawRecord) FirstString(keys ...string) string {
	for _, key := range keys {
		if s := strings.TrimSpace(r.String(key)); s != "" {
			return r.String(key)
		}
	}
	return ""
}

// Float returns the value at key as a float64, reporting whether a usable
// number was found. Numeric strings are accepted.
func (r RawRecord) Float(key string) (float64, bool) {
	if r == nil {
		return 0, false
	}
	switch v := r[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(v, ",", "")), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Bool returns the value at key as a bool. Missing or non-boolean values are false.
func (r RawRecord) Bool(key string) bool {
	if r == nil {
		return false
	}
	switch v := r[key].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(v)
		return err == nil && b
	default:
		return false
	}
}

// Strings returns the value at key as a string slice, skipping non-string elements.
func (r RawRecord) Strings(key string) []string {
	if r == nil {
		return []string{}
	}
	items, ok := r[key].([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// ID returns the backend identifier, accepting both "_id" and "id".
func (r RawRecord) ID() string {
	return r.FirstString("_id", "id")
}

package api

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Veraticus/givedesk/internal/common"
)

// Meta is the pagination block attached to paginated list responses.
type Meta struct {
	CurrentPage int
	TotalPages  int
	Total       int
	HasNextPage bool
	HasPrevPage bool
}

var totalKeys = []string{"totalDonations", "totalCampaigns", "totalUsers", "totalArticle", "totalArticles", "total"}

// Response is either Paginated or Bare.
type Response interface {
	Records() []any
}

// Paginated is a list response carrying pagination metadata.
type Paginated struct {
	Data []any
	Meta Meta
}

// Records implements Response.
func (p Paginated) Records() []any { return p.Data }

// Bare is a list response without pagination metadata.
type Bare struct {
	Data []any
}

// Records implements Response.
func (b Bare) Records() []any { return b.Data }

// DecodeList adapts the backend's list shapes: a top-level array, an array
// under "data" with optional sibling or "pagination" metadata, or an object
// under "data" that nests the array and its metadata.
func DecodeList(body []byte) (Response, error) {
	var top any
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, fmt.Errorf("failed to decode list response: %w", err)
	}

	switch v := top.(type) {
	case []any:
		return Bare{Data: v}, nil
	case map[string]any:
		if err := rejected(v); err != nil {
			return nil, err
		}
		return fromObject(v), nil
	default:
		return Bare{Data: []any{}}, nil
	}
}

func fromObject(obj map[string]any) Response {
	switch data := obj["data"].(type) {
	case []any:
		if meta, ok := readMeta(obj); ok {
			return Paginated{Data: data, Meta: meta}
		}
		if nested, ok := obj["pagination"].(map[string]any); ok {
			if meta, ok := readMeta(nested); ok {
				return Paginated{Data: data, Meta: meta}
			}
		}
		return Bare{Data: data}
	case map[string]any:
		return fromObject(data)
	default:
		return Bare{Data: []any{}}
	}
}

func readMeta(obj map[string]any) (Meta, bool) {
	_, hasPage := obj["currentPage"]
	_, hasPages := obj["totalPages"]
	if !hasPage && !hasPages {
		return Meta{}, false
	}

	meta := Meta{
		CurrentPage: intField(obj, "currentPage", 1),
		TotalPages:  intField(obj, "totalPages", 1),
		HasNextPage: boolField(obj, "hasNextPage"),
		HasPrevPage: boolField(obj, "hasPrevPage"),
	}
	for _, key := range totalKeys {
		if _, ok := obj[key]; ok {
			meta.Total = intField(obj, key, 0)
			break
		}
	}
	return meta, true
}

func intField(obj map[string]any, key string, fallback int) int {
	if f, ok := obj[key].(float64); ok {
		return int(f)
	}
	return fallback
}

func boolField(obj map[string]any, key string) bool {
	b, _ := obj[key].(bool)
	return b
}

// rejected turns {"success": false, "message": ...} into a ServerRejection.
func rejected(obj map[string]any) error {
	success, ok := obj["success"].(bool)
	if !ok || success {
		return nil
	}
	return &common.ServerRejection{StatusCode: 200, Message: messageOf(obj)}
}

func messageOf(obj map[string]any) string {
	for _, key := range []string{"message", "error"} {
		if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// decodeObject decodes a single-document response, unwrapping "data" when present.
func decodeObject(body []byte) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if err := rejected(obj); err != nil {
		return nil, err
	}
	if inner, ok := obj["data"].(map[string]any); ok {
		return inner, nil
	}
	return obj, nil
}

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Veraticus/givedesk/internal/common"
	"github.com/Veraticus/givedesk/internal/model"
)

// List fetches one server-side page of resource.
func (c *Client) List(ctx context.Context, resource string, page, limit int) (Response, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	data, err := c.do(ctx, http.MethodGet, "/"+resource, query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", resource, err)
	}
	return DecodeList(data)
}

// All fetches the complete collection of resource.
func (c *Client) All(ctx context.Context, resource string) ([]any, error) {
	data, err := c.do(ctx, http.MethodGet, "/"+resource+"/all", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch all %s: %w", resource, err)
	}
	resp, err := DecodeList(data)
	if err != nil {
		return nil, err
	}
	return resp.Records(), nil
}

// Get fetches a single document.
func (c *Client) Get(ctx context.Context, resource, id string) (model.RawRecord, error) {
	path := "/" + resource + "/" + url.PathEscape(id)
	if resource == "campaigns" {
		path = "/campaigns/byid/" + url.PathEscape(id)
	}
	data, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s: %w", resource, id, err)
	}
	return decodeObject(data)
}

// Update replaces fields on a document.
func (c *Client) Update(ctx context.Context, resource, id string, fields map[string]any) (model.RawRecord, error) {
	data, err := c.do(ctx, http.MethodPut, "/"+resource+"/"+url.PathEscape(id), nil, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s %s: %w", resource, id, err)
	}
	return decodeObject(data)
}

// Delete removes a document.
func (c *Client) Delete(ctx context.Context, resource, id string) error {
	data, err := c.do(ctx, http.MethodDelete, "/"+resource+"/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", resource, id, err)
	}
	return acknowledged(data)
}

// UpdateUserRole changes a user's role.
func (c *Client) UpdateUserRole(ctx context.Context, id, role string) error {
	data, err := c.do(ctx, http.MethodPut, "/users/"+url.PathEscape(id)+"/role", nil, map[string]string{"role": role})
	if err != nil {
		return fmt.Errorf("failed to update role for user %s: %w", id, err)
	}
	return acknowledged(data)
}

// VerifyUserEmail marks a user's email as verified.
func (c *Client) VerifyUserEmail(ctx context.Context, id string) error {
	data, err := c.do(ctx, http.MethodPut, "/users/"+url.PathEscape(id)+"/verify-email", nil, map[string]any{})
	if err != nil {
		return fmt.Errorf("failed to verify email for user %s: %w", id, err)
	}
	return acknowledged(data)
}

// ResetUserPassword sends password reset instructions to a user.
func (c *Client) ResetUserPassword(ctx context.Context, id string) error {
	data, err := c.do(ctx, http.MethodPut, "/users/"+url.PathEscape(id)+"/reset-password", nil, nil)
	if err != nil {
		return fmt.Errorf("failed to reset password for user %s: %w", id, err)
	}
	return acknowledged(data)
}

// ResetCampaign zeroes a campaign's raised total and donor count.
func (c *Client) ResetCampaign(ctx context.Context, id string) error {
	data, err := c.do(ctx, http.MethodPut, "/campaigns/"+url.PathEscape(id)+"/reset", nil, map[string]any{})
	if err != nil {
		return fmt.Errorf("failed to reset campaign %s: %w", id, err)
	}
	return acknowledged(data)
}

// CampaignTargets fetches per-cause fundraising targets.
func (c *Client) CampaignTargets(ctx context.Context) ([]any, error) {
	data, err := c.do(ctx, http.MethodGet, "/donations/targets", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch targets: %w", err)
	}
	resp, err := DecodeList(data)
	if err != nil {
		return nil, err
	}
	return resp.Records(), nil
}

// SignInResult is the backend's answer to a successful sign-in.
type SignInResult struct {
	Token string
	User  model.RawRecord
}

// SignIn exchanges credentials for a bearer token.
func (c *Client) SignIn(ctx context.Context, login, password string) (SignInResult, error) {
	data, err := c.do(ctx, http.MethodPost, "/auth/signin", nil, map[string]string{
		"login":    login,
		"password": password,
	})
	if err != nil {
		return SignInResult{}, fmt.Errorf("failed to sign in: %w", err)
	}

	var resp struct {
		Success *bool           `json:"success"`
		Message string          `json:"message"`
		Token   string          `json:"token"`
		User    model.RawRecord `json:"user"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return SignInResult{}, fmt.Errorf("failed to decode sign-in response: %w", err)
	}
	if (resp.Success != nil && !*resp.Success) || resp.Token == "" {
		return SignInResult{}, &common.ServerRejection{StatusCode: http.StatusOK, Message: resp.Message}
	}
	return SignInResult{Token: resp.Token, User: resp.User}, nil
}

func acknowledged(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil //nolint:nilerr // non-JSON success bodies are accepted
	}
	return rejected(obj)
}

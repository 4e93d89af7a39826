package hubspot

import (
	"context"
	"net/http"
	"net/url"
)

// TokenInfo is the introspection answer for an OAuth access token.
type TokenInfo struct {
	User      string   `json:"user"`
	HubDomain string   `json:"hub_domain"`
	HubID     int64    `json:"hub_id"`
	UserID    int64    `json:"user_id"`
	AppID     int64    `json:"app_id"`
	Scopes    []string `json:"scopes"`
	ExpiresIn int64    `json:"expires_in"`
}

// TokenInfo calls GET /oauth/v1/access-tokens/{token}.
func (c *Client) TokenInfo(ctx context.Context, accessToken string) (*TokenInfo, error) {
	var out TokenInfo
	if err := c.do(ctx, http.MethodGet, "/oauth/v1/access-tokens/"+url.PathEscape(accessToken), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type Owner struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	UserID    int64  `json:"userId"`
}

// OwnerByEmail resolves the CRM owner for a login email. It returns
// ErrNotFound when HubSpot knows no owner with that address.
func (c *Client) OwnerByEmail(ctx context.Context, email string) (*Owner, error) {
	var resp struct {
		Results []Owner `json:"results"`
	}
	path := "/crm/v3/owners/?" + url.Values{"email": {email}, "limit": {"1"}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, &APIError{Method: http.MethodGet, Path: "/crm/v3/owners/", Status: http.StatusNotFound, Body: []byte(`{"message":"owner not found"}`)}
	}
	return &resp.Results[0], nil
}

package hubspot

import (
	"context"
	"net/http"
)

// Search operators used by the dashboard.
const (
	OpEQ            = "EQ"
	OpNEQ           = "NEQ"
	OpGTE           = "GTE"
	OpLTE           = "LTE"
	OpIn            = "IN"
	OpContainsToken = "CONTAINS_TOKEN"
)

// SearchPageSize is the largest page the search endpoint returns.
const SearchPageSize = 100

// maxSearchPages bounds SearchAll; HubSpot stops paging at 10k results anyway.
const maxSearchPages = 100

type Filter struct {
	PropertyName string   `json:"propertyName"`
	Operator     string   `json:"operator"`
	Value        string   `json:"value,omitempty"`
	Values       []string `json:"values,omitempty"`
}

// FilterGroup filters are ANDed; groups within a request are ORed.
type FilterGroup struct {
	Filters []Filter `json:"filters"`
}

type Sort struct {
	PropertyName string `json:"propertyName"`
	Direction    string `json:"direction"`
}

type SearchRequest struct {
	FilterGroups []FilterGroup `json:"filterGroups,omitempty"`
	Query        string        `json:"query,omitempty"`
	Sorts        []Sort        `json:"sorts,omitempty"`
	Properties   []string      `json:"properties,omitempty"`
	Limit        int           `json:"limit,omitempty"`
	After        string        `json:"after,omitempty"`
}

type SearchPage struct {
	Total   int      `json:"total"`
	Results []Object `json:"results"`
	Paging  *struct {
		Next *struct {
			After string `json:"after"`
		} `json:"next,omitempty"`
	} `json:"paging,omitempty"`
}

// NextAfter returns the cursor of the following page, or "" on the last page.
func (p *SearchPage) NextAfter() string {
	if p.Paging == nil || p.Paging.Next == nil {
		return ""
	}
	return p.Paging.Next.After
}

// Search runs one page of POST /crm/v3/objects/{type}/search.
func (c *Client) Search(ctx context.Context, objectType string, req SearchRequest) (*SearchPage, error) {
	if req.Limit == 0 {
		req.Limit = SearchPageSize
	}
	var page SearchPage
	if err := c.do(ctx, http.MethodPost, "/crm/v3/objects/"+objectType+"/search", req, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// SearchAll follows paging.next.after until the result set is exhausted.
func (c *Client) SearchAll(ctx context.Context, objectType string, req SearchRequest) ([]Object, error) {
	req.Limit = SearchPageSize
	var all []Object
	for i := 0; i < maxSearchPages; i++ {
		page, err := c.Search(ctx, objectType, req)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Results...)
		next := page.NextAfter()
		if next == "" {
			break
		}
		req.After = next
	}
	return all, nil
}

package hubspot

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// CRM object types as they appear in API paths.
const (
	ObjectMeetings  = "meetings"
	ObjectCompanies = "companies"
	ObjectContacts  = "contacts"
	ObjectDeals     = "deals"
	ObjectTasks     = "tasks"
	ObjectNotes     = "notes"
)

// Object is any CRM record. HubSpot returns every property value as a string.
type Object struct {
	ID           string                     `json:"id"`
	Properties   map[string]string          `json:"properties"`
	CreatedAt    string                     `json:"createdAt,omitempty"`
	UpdatedAt    string                     `json:"updatedAt,omitempty"`
	Archived     bool                       `json:"archived,omitempty"`
	Associations map[string]ObjectAssocList `json:"associations,omitempty"`
}

// ObjectAssocList is the "associations" block of a single-object GET.
type ObjectAssocList struct {
	Results []struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	} `json:"results"`
}

// Prop returns a property value or "".
func (o Object) Prop(name string) string {
	if o.Properties == nil {
		return ""
	}
	return o.Properties[name]
}

// AssociatedIDs lists ids from a GET ...?associations=toType response,
// deduplicated in response order.
func (o Object) AssociatedIDs(toType string) []string {
	list, ok := o.Associations[toType]
	if !ok {
		return nil
	}
	seen := map[string]struct{}{}
	var ids []string
	for _, r := range list.Results {
		if _, dup := seen[r.ID]; dup || r.ID == "" {
			continue
		}
		seen[r.ID] = struct{}{}
		ids = append(ids, r.ID)
	}
	return ids
}

// Association type ids (HUBSPOT_DEFINED) used when creating records.
const (
	AssocMeetingToContact = 200
	AssocMeetingToCompany = 188
	AssocMeetingToDeal    = 212
	AssocNoteToContact    = 202
	AssocNoteToCompany    = 190
	AssocNoteToDeal       = 214
	AssocTaskToContact    = 204
	AssocTaskToCompany    = 192
	AssocTaskToDeal       = 216
	AssocContactToCompany = 1
	AssocDealToCompany    = 5
	AssocDealToContact    = 3
)

// AssociationSpec links a new record to an existing one.
type AssociationSpec struct {
	ToID   string
	TypeID int
}

// Assoc builds a spec, returning nil for an empty id so optional links can be
// collected without branching.
func Assoc(toID string, typeID int) *AssociationSpec {
	if strings.TrimSpace(toID) == "" {
		return nil
	}
	return &AssociationSpec{ToID: toID, TypeID: typeID}
}

type createAssociation struct {
	To    struct{ ID string `json:"id"` } `json:"to"`
	Types []assocType                     `json:"types"`
}

type assocType struct {
	Category string `json:"associationCategory"`
	TypeID   int    `json:"associationTypeId"`
}

type createObjectReq struct {
	Properties   map[string]string   `json:"properties"`
	Associations []createAssociation `json:"associations,omitempty"`
}

// CreateObject creates a record with optional associations. Nil specs are skipped.
func (c *Client) CreateObject(ctx context.Context, objectType string, props map[string]string, assocs ...*AssociationSpec) (*Object, error) {
	req := createObjectReq{Properties: props}
	for _, a := range assocs {
		if a == nil {
			continue
		}
		var ca createAssociation
		ca.To.ID = a.ToID
		ca.Types = []assocType{{Category: "HUBSPOT_DEFINED", TypeID: a.TypeID}}
		req.Associations = append(req.Associations, ca)
	}
	var out Object
	if err := c.do(ctx, http.MethodPost, "/crm/v3/objects/"+objectType, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateObject patches properties on a record.
func (c *Client) UpdateObject(ctx context.Context, objectType, id string, props map[string]string) (*Object, error) {
	var out Object
	body := map[string]any{"properties": props}
	if err := c.do(ctx, http.MethodPatch, "/crm/v3/objects/"+objectType+"/"+url.PathEscape(id), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetObject reads one record with the given properties and association types.
func (c *Client) GetObject(ctx context.Context, objectType, id string, props, assocTypes []string) (*Object, error) {
	q := url.Values{}
	if len(props) > 0 {
		q.Set("properties", strings.Join(props, ","))
	}
	if len(assocTypes) > 0 {
		q.Set("associations", strings.Join(assocTypes, ","))
	}
	path := "/crm/v3/objects/" + objectType + "/" + url.PathEscape(id)
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	var out Object
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type batchInput struct {
	ID string `json:"id"`
}

type batchReadReq struct {
	Properties []string     `json:"properties,omitempty"`
	Inputs     []batchInput `json:"inputs"`
}

type batchReadResp struct {
	Status  string   `json:"status"`
	Results []Object `json:"results"`
}

// MaxBatchInputs is HubSpot's cap on inputs per batch call.
const MaxBatchInputs = 100

// BatchRead fetches records by id, splitting into calls of MaxBatchInputs.
func (c *Client) BatchRead(ctx context.Context, objectType string, ids, props []string) ([]Object, error) {
	var out []Object
	for _, chunk := range Chunk(ids, MaxBatchInputs) {
		req := batchReadReq{Properties: props, Inputs: inputs(chunk)}
		var resp batchReadResp
		if err := c.do(ctx, http.MethodPost, "/crm/v3/objects/"+objectType+"/batch/read", req, &resp); err != nil {
			return nil, fmt.Errorf("batch read %s: %w", objectType, err)
		}
		out = append(out, resp.Results...)
	}
	return out, nil
}

// AssociateDefault links two existing records with the default association type.
func (c *Client) AssociateDefault(ctx context.Context, fromType, fromID, toType, toID string) error {
	path := fmt.Sprintf("/crm/v4/objects/%s/%s/associations/default/%s/%s",
		fromType, url.PathEscape(fromID), toType, url.PathEscape(toID))
	return c.do(ctx, http.MethodPut, path, nil, nil)
}

func inputs(ids []string) []batchInput {
	in := make([]batchInput, len(ids))
	for i, id := range ids {
		in[i] = batchInput{ID: id}
	}
	return in
}

// Chunk splits ids into consecutive slices of at most size elements.
func Chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = len(ids)
	}
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}

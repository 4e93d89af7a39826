package hubspot_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdesk-service/internal/hubspot"
	"salesdesk-service/internal/hubspot/hubspottest"
)

func TestAPIErrorIsNotFound(t *testing.T) {
	fake := hubspottest.New(t)
	c := fake.Client()

	_, err := c.GetObject(context.Background(), hubspot.ObjectMeetings, "missing", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, hubspot.ErrNotFound))

	var apiErr *hubspot.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	details, ok := apiErr.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Object not found", details["message"])
}

func TestAPIErrorDetailsFallsBackToText(t *testing.T) {
	e := &hubspot.APIError{Status: 502, Body: []byte("bad gateway")}
	assert.Equal(t, "bad gateway", e.Details())
	assert.False(t, errors.Is(e, hubspot.ErrNotFound))
}

func TestSendsBearerToken(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","properties":{}}`))
	}))
	defer srv.Close()

	c := hubspot.New(srv.URL, "service", srv.Client())
	_, err := c.WithToken("user-token").GetObject(context.Background(), hubspot.ObjectDeals, "1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer user-token", got)

	_, err = c.GetObject(context.Background(), hubspot.ObjectDeals, "1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer service", got)
}

func TestCreateGetUpdate(t *testing.T) {
	fake := hubspottest.New(t)
	fake.Put(hubspot.ObjectCompanies, "10", map[string]string{"name": "Acme"})
	c := fake.Client()
	ctx := context.Background()

	created, err := c.CreateObject(ctx, hubspot.ObjectMeetings,
		map[string]string{"hs_meeting_title": "Intro"},
		hubspot.Assoc("10", hubspot.AssocMeetingToCompany),
		hubspot.Assoc("", hubspot.AssocMeetingToContact),
	)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, []string{"10"}, fake.Associations(hubspot.ObjectMeetings, created.ID, hubspot.ObjectCompanies))

	_, err = c.UpdateObject(ctx, hubspot.ObjectMeetings, created.ID, map[string]string{"hs_meeting_outcome": "COMPLETED"})
	require.NoError(t, err)

	got, err := c.GetObject(ctx, hubspot.ObjectMeetings, created.ID,
		[]string{"hs_meeting_title", "hs_meeting_outcome"}, []string{hubspot.ObjectCompanies})
	require.NoError(t, err)
	assert.Equal(t, "Intro", got.Prop("hs_meeting_title"))
	assert.Equal(t, "COMPLETED", got.Prop("hs_meeting_outcome"))
	assert.Equal(t, []string{"10"}, got.AssociatedIDs(hubspot.ObjectCompanies))
	assert.Nil(t, got.AssociatedIDs(hubspot.ObjectDeals))
}

func TestSearchAllFollowsPaging(t *testing.T) {
	fake := hubspottest.New(t)
	fake.PageSize = 3
	for i := 1; i <= 8; i++ {
		fake.Put(hubspot.ObjectMeetings, strconv.Itoa(i), map[string]string{
			"hubspot_owner_id":      "77",
			"hs_meeting_start_time": strconv.Itoa(1000 + i),
		})
	}
	fake.Put(hubspot.ObjectMeetings, "99", map[string]string{"hubspot_owner_id": "12", "hs_meeting_start_time": "1005"})

	objs, err := fake.Client().SearchAll(context.Background(), hubspot.ObjectMeetings, hubspot.SearchRequest{
		FilterGroups: []hubspot.FilterGroup{{Filters: []hubspot.Filter{
			{PropertyName: "hubspot_owner_id", Operator: hubspot.OpEQ, Value: "77"},
			{PropertyName: "hs_meeting_start_time", Operator: hubspot.OpGTE, Value: "1002"},
		}}},
		Properties: []string{"hs_meeting_start_time"},
	})
	require.NoError(t, err)
	assert.Len(t, objs, 7)
	assert.Equal(t, 3, fake.Calls("POST /crm/v3/objects/meetings/search"))
}

func TestSearchFilterGroupsAreORed(t *testing.T) {
	fake := hubspottest.New(t)
	fake.Put(hubspot.ObjectContacts, "1", map[string]string{"phone": "+491701234567"})
	fake.Put(hubspot.ObjectContacts, "2", map[string]string{"mobilephone": "01701234567"})
	fake.Put(hubspot.ObjectContacts, "3", map[string]string{"phone": "+44123"})

	variants := []string{"+491701234567", "01701234567"}
	page, err := fake.Client().Search(context.Background(), hubspot.ObjectContacts, hubspot.SearchRequest{
		FilterGroups: []hubspot.FilterGroup{
			{Filters: []hubspot.Filter{{PropertyName: "phone", Operator: hubspot.OpIn, Values: variants}}},
			{Filters: []hubspot.Filter{{PropertyName: "mobilephone", Operator: hubspot.OpIn, Values: variants}}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Empty(t, page.NextAfter())
}

func TestBatchReadChunksAt100(t *testing.T) {
	fake := hubspottest.New(t)
	ids := make([]string, 0, 250)
	for i := 0; i < 250; i++ {
		id := strconv.Itoa(i + 1)
		ids = append(ids, id)
		fake.Put(hubspot.ObjectCompanies, id, map[string]string{"name": "c" + id})
	}

	objs, err := fake.Client().BatchRead(context.Background(), hubspot.ObjectCompanies, ids, []string{"name"})
	require.NoError(t, err)
	assert.Len(t, objs, 250)
	assert.Equal(t, 3, fake.Calls("POST /crm/v3/objects/companies/batch/read"))
}

func TestBatchReadAssociationsAccepts207(t *testing.T) {
	fake := hubspottest.New(t)
	fake.Associate(hubspot.ObjectMeetings, "1", hubspot.ObjectDeals, "501")
	fake.Associate(hubspot.ObjectMeetings, "1", hubspot.ObjectDeals, "502")

	res, err := fake.Client().BatchReadAssociations(context.Background(),
		hubspot.ObjectMeetings, hubspot.ObjectDeals, []string{"1", "2"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "1", res[0].FromID)
	assert.Equal(t, []string{"501", "502"}, res[0].ToIDs)
}

func TestBatchReadAssociationsError(t *testing.T) {
	fake := hubspottest.New(t)
	fake.Fail("POST /crm/v4/associations", http.StatusInternalServerError)

	_, err := fake.Client().BatchReadAssociations(context.Background(),
		hubspot.ObjectMeetings, hubspot.ObjectDeals, []string{"1"})
	var apiErr *hubspot.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
}

func TestUploadFile(t *testing.T) {
	fake := hubspottest.New(t)
	f, err := fake.Client().UploadFile(context.Background(), "contract.pdf", strings.NewReader("%PDF-1.4"), "/contracts")
	require.NoError(t, err)
	assert.NotEmpty(t, f.ID)
	assert.Equal(t, "contract.pdf", fake.FileName(f.ID))
}

func TestOwnerByEmail(t *testing.T) {
	fake := hubspottest.New(t)
	fake.AddOwner(hubspot.Owner{ID: "77", Email: "rep@example.com", FirstName: "Rita"})
	c := fake.Client()

	o, err := c.OwnerByEmail(context.Background(), "REP@example.com")
	require.NoError(t, err)
	assert.Equal(t, "77", o.ID)

	_, err = c.OwnerByEmail(context.Background(), "nobody@example.com")
	assert.True(t, errors.Is(err, hubspot.ErrNotFound))
}

func TestTokenInfo(t *testing.T) {
	fake := hubspottest.New(t)
	info, err := fake.Client().TokenInfo(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "rep@example.com", info.User)
	assert.Equal(t, int64(4242), info.HubID)
}

func TestChunk(t *testing.T) {
	assert.Nil(t, hubspot.Chunk(nil, 10))
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, hubspot.Chunk([]string{"a", "b", "c"}, 2))
}

func TestAssociateDefault(t *testing.T) {
	fake := hubspottest.New(t)
	fake.Put(hubspot.ObjectMeetings, "101", nil)
	fake.Put(hubspot.ObjectDeals, "601", nil)

	require.NoError(t, fake.Client().AssociateDefault(context.Background(), hubspot.ObjectMeetings, "101", hubspot.ObjectDeals, "601"))
	assert.Equal(t, 1, fake.Calls("PUT /crm/v4/objects/meetings/101/associations/default/deals/601"))
	assert.Equal(t, []string{"601"}, fake.Associations(hubspot.ObjectMeetings, "101", hubspot.ObjectDeals))
	assert.Equal(t, []string{"101"}, fake.Associations(hubspot.ObjectDeals, "601", hubspot.ObjectMeetings))

	obj, err := fake.Client().GetObject(context.Background(), hubspot.ObjectMeetings, "101", nil, []string{hubspot.ObjectDeals})
	require.NoError(t, err)
	assert.Equal(t, []string{"601"}, obj.AssociatedIDs(hubspot.ObjectDeals))
}

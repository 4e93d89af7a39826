package views

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdesk-service/internal/cache"
	"salesdesk-service/internal/domain"
	"salesdesk-service/internal/hubspot"
	"salesdesk-service/internal/hubspot/hubspottest"
)

const meetingSearch = "POST /crm/v3/objects/meetings/search"

// Wednesday; the rolling window runs Feb 24 to Mar 23.
var refNow = time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)

func ms(t time.Time) string { return strconv.FormatInt(t.UnixMilli(), 10) }

func newService(store cache.Store) *MeetingService {
	s := NewMeetingService(store, 300*time.Second, time.UTC)
	s.Now = func() time.Time { return refNow }
	return s
}

func putMeeting(f *hubspottest.Fake, id, owner string, start time.Time) {
	f.Put(hubspot.ObjectMeetings, id, map[string]string{
		PropMeetingTitle: "Meeting " + id,
		PropMeetingStart: ms(start),
		PropMeetingEnd:   ms(start.Add(time.Hour)),
		PropOwnerID:      owner,
	})
}

func TestMeetingWithoutAssociationsUsesDefaults(t *testing.T) {
	fake := hubspottest.New(t)
	putMeeting(fake, "1", "77", refNow.Add(time.Hour))

	l, err := newService(cache.NewMemoryStore()).List(context.Background(), fake.Client(), MeetingQuery{OwnerID: "77"})
	require.NoError(t, err)
	require.Len(t, l.Meetings, 1)
	m := l.Meetings[0]

	assert.Equal(t, UnknownCompany, m.CompanyName)
	assert.Equal(t, UnknownAddress, m.CompanyAddress)
	assert.Nil(t, m.DealID)
	assert.False(t, m.ContractUploaded)
	assert.Equal(t, "", m.ContactName)
	assert.Equal(t, "", m.ContactPhone)
	assert.Equal(t, 0, m.CompanyCount)
	assert.Equal(t, []string{}, m.DealIDs)
	assert.Equal(t, "SCHEDULED", m.Status)
	assert.Equal(t, "5.3.2025", m.Date)
	assert.False(t, l.Degraded)

	raw, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"dealId":null`)
}

func TestMeetingWithSeveralAssociations(t *testing.T) {
	fake := hubspottest.New(t)
	putMeeting(fake, "1", "77", refNow)
	fake.Put(hubspot.ObjectCompanies, "501", map[string]string{PropCompanyName: "Acme GmbH", PropCompanyAddress: "Hauptstr. 1", PropCompanyCity: "Berlin"})
	fake.Put(hubspot.ObjectCompanies, "502", map[string]string{PropCompanyName: "Other AG"})
	fake.Put(hubspot.ObjectDeals, "601", map[string]string{PropDealName: "Solar", PropDealStage: "qualifiedtobuy", PropDealContractUploaded: "true", PropDealHot: "false"})
	fake.Put(hubspot.ObjectDeals, "602", map[string]string{PropDealName: "Battery"})
	fake.Put(hubspot.ObjectContacts, "701", map[string]string{PropContactFirstName: "Erika", PropContactLastName: "Muster", PropContactMobile: "+49170111"})
	for _, id := range []string{"501", "502"} {
		fake.Associate(hubspot.ObjectMeetings, "1", hubspot.ObjectCompanies, id)
	}
	for _, id := range []string{"601", "602"} {
		fake.Associate(hubspot.ObjectMeetings, "1", hubspot.ObjectDeals, id)
	}
	fake.Associate(hubspot.ObjectMeetings, "1", hubspot.ObjectContacts, "701")

	l, err := newService(nil).List(context.Background(), fake.Client(), MeetingQuery{OwnerID: "77"})
	require.NoError(t, err)
	require.Len(t, l.Meetings, 1)
	m := l.Meetings[0]

	assert.Equal(t, 2, m.CompanyCount)
	assert.Equal(t, []string{"501", "502"}, m.CompanyIDs)
	assert.Equal(t, "501", m.CompanyID)
	assert.Equal(t, "Acme GmbH", m.CompanyName)
	assert.Equal(t, "Hauptstr. 1, Berlin", m.CompanyAddress)

	assert.Equal(t, 2, m.DealCount)
	require.NotNil(t, m.DealID)
	assert.Equal(t, "601", *m.DealID)
	assert.Equal(t, "Solar", m.DealName)
	assert.True(t, m.ContractUploaded)
	assert.False(t, m.HotDeal)

	assert.Equal(t, 1, m.ContactCount)
	assert.Equal(t, "Erika Muster", m.ContactName)
	assert.Equal(t, "+49170111", m.ContactPhone)
}

func TestListOnlyReturnsOwnerMeetingsInWindow(t *testing.T) {
	fake := hubspottest.New(t)
	putMeeting(fake, "1", "77", time.Date(2025, 2, 24, 0, 0, 0, 0, time.UTC))
	putMeeting(fake, "2", "77", time.Date(2025, 3, 23, 23, 59, 0, 0, time.UTC))
	putMeeting(fake, "3", "77", time.Date(2025, 3, 24, 0, 0, 0, 0, time.UTC))
	putMeeting(fake, "4", "77", time.Date(2025, 2, 23, 23, 0, 0, 0, time.UTC))
	putMeeting(fake, "5", "12", refNow)

	l, err := newService(nil).List(context.Background(), fake.Client(), MeetingQuery{OwnerID: "77"})
	require.NoError(t, err)
	var ids []string
	for _, m := range l.Meetings {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"1", "2"}, ids)
}

func TestSecondListIsServedFromCache(t *testing.T) {
	fake := hubspottest.New(t)
	putMeeting(fake, "1", "77", refNow)
	fake.Put(hubspot.ObjectCompanies, "501", map[string]string{PropCompanyName: "Acme"})
	fake.Associate(hubspot.ObjectMeetings, "1", hubspot.ObjectCompanies, "501")
	svc := newService(cache.NewMemoryStore())
	ctx := context.Background()

	first, err := svc.List(ctx, fake.Client(), MeetingQuery{OwnerID: "77"})
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	calls := fake.CallsWithPrefix("POST ")

	second, err := svc.List(ctx, fake.Client(), MeetingQuery{OwnerID: "77"})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, calls, fake.CallsWithPrefix("POST "))

	a, _ := json.Marshal(first.Results())
	b, _ := json.Marshal(second.Results())
	assert.Equal(t, string(a), string(b))

	_, err = svc.List(ctx, fake.Client(), MeetingQuery{OwnerID: "77", ForceRefresh: true})
	require.NoError(t, err)
	assert.Equal(t, 2, fake.Calls(meetingSearch))
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	fake := hubspottest.New(t)
	putMeeting(fake, "1", "77", refNow)
	clock := refNow
	svc := newService(cache.NewMemoryStore().WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	_, err := svc.List(ctx, fake.Client(), MeetingQuery{OwnerID: "77"})
	require.NoError(t, err)
	clock = clock.Add(301 * time.Second)
	_, err = svc.List(ctx, fake.Client(), MeetingQuery{OwnerID: "77"})
	require.NoError(t, err)
	assert.Equal(t, 2, fake.Calls(meetingSearch))
}

func TestDegradedResultIsNotCached(t *testing.T) {
	fake := hubspottest.New(t)
	putMeeting(fake, "1", "77", refNow)
	fake.Put(hubspot.ObjectCompanies, "501", map[string]string{PropCompanyName: "Acme"})
	fake.Associate(hubspot.ObjectMeetings, "1", hubspot.ObjectCompanies, "501")
	fake.Fail("POST /crm/v4/associations/meetings/deals", http.StatusInternalServerError)
	svc := newService(cache.NewMemoryStore())
	ctx := context.Background()

	l, err := svc.List(ctx, fake.Client(), MeetingQuery{OwnerID: "77"})
	require.NoError(t, err)
	assert.True(t, l.Degraded)
	require.Len(t, l.Meetings, 1)
	assert.Equal(t, "Acme", l.Meetings[0].CompanyName)
	assert.Nil(t, l.Meetings[0].DealID)

	_, err = svc.List(ctx, fake.Client(), MeetingQuery{OwnerID: "77"})
	require.NoError(t, err)
	assert.Equal(t, 2, fake.Calls(meetingSearch))
}

func TestSearchFailureIsAnError(t *testing.T) {
	fake := hubspottest.New(t)
	fake.Fail(meetingSearch, http.StatusBadGateway)
	_, err := newService(nil).List(context.Background(), fake.Client(), MeetingQuery{OwnerID: "77"})
	var apiErr *hubspot.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
}

func TestLightMode(t *testing.T) {
	fake := hubspottest.New(t)
	putMeeting(fake, "1", "77", refNow.AddDate(0, 4, 0))
	fake.Put(hubspot.ObjectMeetings, "2", map[string]string{PropMeetingStart: ms(refNow.AddDate(0, -7, 0)), PropOwnerID: "77"})
	fake.Put(hubspot.ObjectMeetings, "3", map[string]string{PropMeetingStart: ms(refNow), PropOwnerID: "77", PropMeetingOutcome: "CANCELED"})
	store := cache.NewMemoryStore()
	svc := newService(store)

	l, err := svc.List(context.Background(), fake.Client(), MeetingQuery{OwnerID: "77", Light: true})
	require.NoError(t, err)
	assert.Equal(t, []LightMeeting{
		{ID: "3", StartTime: ms(refNow), Status: "CANCELED"},
		{ID: "1", StartTime: ms(refNow.AddDate(0, 4, 0)), Status: "SCHEDULED"},
	}, l.Light)
	assert.Equal(t, 0, fake.CallsWithPrefix("POST /crm/v4/"))

	_, ok, err := store.Get(context.Background(), cache.LightMeetingsKey("77"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAssociationReadsAreBatchedByTen(t *testing.T) {
	fake := hubspottest.New(t)
	for i := 1; i <= 25; i++ {
		putMeeting(fake, strconv.Itoa(i), "77", refNow.Add(time.Duration(i)*time.Minute))
	}
	fake.Put(hubspot.ObjectCompanies, "501", map[string]string{PropCompanyName: "Acme"})
	fake.Associate(hubspot.ObjectMeetings, "3", hubspot.ObjectCompanies, "501")
	fake.Associate(hubspot.ObjectMeetings, "24", hubspot.ObjectCompanies, "501")

	l, err := newService(nil).List(context.Background(), fake.Client(), MeetingQuery{OwnerID: "77"})
	require.NoError(t, err)
	assert.Len(t, l.Meetings, 25)
	assert.Equal(t, 3, fake.Calls("POST /crm/v4/associations/meetings/companies/batch/read"))
	assert.Equal(t, 3, fake.Calls("POST /crm/v4/associations/meetings/deals/batch/read"))
	assert.Equal(t, 1, fake.Calls("POST /crm/v3/objects/companies/batch/read"))
	assert.Equal(t, 0, fake.Calls("POST /crm/v3/objects/deals/batch/read"))
	assert.Equal(t, "Acme", l.Meetings[2].CompanyName)
	assert.Equal(t, "Acme", l.Meetings[23].CompanyName)
}

func TestGetAndByDate(t *testing.T) {
	fake := hubspottest.New(t)
	putMeeting(fake, "1", "77", refNow)
	putMeeting(fake, "2", "77", refNow.Add(24*time.Hour))
	svc := newService(cache.NewMemoryStore())
	ctx := context.Background()

	v, _, err := svc.Get(ctx, fake.Client(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Meeting 1", v.Title)

	_, _, err = svc.Get(ctx, fake.Client(), "404")
	assert.ErrorIs(t, err, ErrMeetingNotFound)
	assert.ErrorIs(t, err, hubspot.ErrNotFound)

	win, err := domain.DayWindow("2025-03-06", time.UTC)
	require.NoError(t, err)
	list, _, err := svc.ByDate(ctx, fake.Client(), "77", win)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "2", list[0].ID)
}

func TestInvalidateDropsMeetingKeys(t *testing.T) {
	fake := hubspottest.New(t)
	putMeeting(fake, "1", "77", refNow)
	svc := newService(cache.NewMemoryStore())
	ctx := context.Background()

	_, err := svc.List(ctx, fake.Client(), MeetingQuery{OwnerID: "77"})
	require.NoError(t, err)
	svc.Invalidate(ctx)
	_, err = svc.List(ctx, fake.Client(), MeetingQuery{OwnerID: "77"})
	require.NoError(t, err)
	assert.Equal(t, 2, fake.Calls(meetingSearch))
}

func TestTaskList(t *testing.T) {
	fake := hubspottest.New(t)
	due := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	fake.Put(hubspot.ObjectTasks, "11", map[string]string{PropTaskSubject: "Cancellation Task - Acme", PropOwnerID: "77", PropTaskStatus: "NOT_STARTED", PropTimestamp: ms(due.Add(time.Hour))})
	fake.Put(hubspot.ObjectTasks, "12", map[string]string{PropTaskSubject: "Followup Task - Beta", PropOwnerID: "77", PropTaskStatus: "NOT_STARTED", PropTimestamp: ms(due)})
	fake.Put(hubspot.ObjectTasks, "13", map[string]string{PropTaskSubject: "Call back", PropOwnerID: "77", PropTimestamp: ms(due)})
	fake.Put(hubspot.ObjectTasks, "14", map[string]string{PropTaskSubject: "Followup Task - Gamma", PropOwnerID: "12", PropTimestamp: ms(due)})
	fake.Put(hubspot.ObjectTasks, "15", map[string]string{PropTaskSubject: "Followup Task - Done", PropOwnerID: "77", PropTaskStatus: "COMPLETED", PropTimestamp: ms(due)})
	fake.Put(hubspot.ObjectCompanies, "501", map[string]string{PropCompanyName: "Beta KG"})
	fake.Associate(hubspot.ObjectTasks, "12", hubspot.ObjectCompanies, "501")
	fake.Associate(hubspot.ObjectTasks, "12", hubspot.ObjectDeals, "601")

	svc := &TaskService{Loc: time.UTC}
	tasks, degraded, err := svc.List(context.Background(), fake.Client(), TaskQuery{OwnerID: "77", Status: "NOT_STARTED"})
	require.NoError(t, err)
	assert.False(t, degraded)
	require.Len(t, tasks, 2)

	assert.Equal(t, "12", tasks[0].ID)
	assert.Equal(t, "followup", tasks[0].Type)
	assert.Equal(t, "Beta KG", tasks[0].CompanyName)
	require.NotNil(t, tasks[0].DealID)
	assert.Equal(t, "601", *tasks[0].DealID)
	assert.Equal(t, "10.3.2025", tasks[0].Date)

	assert.Equal(t, "11", tasks[1].ID)
	assert.Equal(t, "cancellation", tasks[1].Type)
	assert.Equal(t, UnknownCompany, tasks[1].CompanyName)
	assert.Nil(t, tasks[1].DealID)
	assert.Equal(t, 0, fake.Calls("POST /crm/v3/objects/deals/batch/read"))
}

package views

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"salesdesk-service/internal/cache"
	"salesdesk-service/internal/domain"
	"salesdesk-service/internal/hubspot"
)

// Placeholders used when a meeting has no linked record.
const (
	UnknownCompany = "Unknown Company"
	UnknownAddress = "Unknown Address"
)

var ErrMeetingNotFound = errors.New("meeting not found")

// MeetingView is one calendar entry with its first company, deal and
// contact flattened in, plus the full id lists.
type MeetingView struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	Date          string `json:"date"`
	Location      string `json:"location"`
	Status        string `json:"status"`
	InternalNotes string `json:"internalNotes"`
	OwnerID       string `json:"ownerId"`

	CompanyID      string   `json:"companyId"`
	CompanyIDs     []string `json:"companyIds"`
	CompanyCount   int      `json:"companyCount"`
	CompanyName    string   `json:"companyName"`
	CompanyAddress string   `json:"companyAddress"`

	DealID           *string  `json:"dealId"`
	DealIDs          []string `json:"dealIds"`
	DealCount        int      `json:"dealCount"`
	DealName         string   `json:"dealName"`
	DealStage        string   `json:"dealStage"`
	ContractUploaded bool     `json:"contractUploaded"`
	HotDeal          bool     `json:"hotDeal"`

	ContactID    string   `json:"contactId"`
	ContactIDs   []string `json:"contactIds"`
	ContactCount int      `json:"contactCount"`
	ContactName  string   `json:"contactName"`
	ContactPhone string   `json:"contactPhone"`
}

// LightMeeting is the cheap calendar-dot shape.
type LightMeeting struct {
	ID        string `json:"id"`
	StartTime string `json:"startTime"`
	Status    string `json:"status"`
}

var meetingTargets = []Target{
	{ObjectType: hubspot.ObjectCompanies, Properties: CompanyProps},
	{ObjectType: hubspot.ObjectDeals, Properties: DealProps},
	{ObjectType: hubspot.ObjectContacts, Properties: ContactProps},
}

type MeetingQuery struct {
	OwnerID string
	// Start and End default to the rolling window when zero.
	Start        time.Time
	End          time.Time
	Light        bool
	ForceRefresh bool
}

// Listing is the answer of MeetingService.List. Exactly one of Meetings and
// Light is used, depending on the query.
type Listing struct {
	Meetings  []MeetingView
	Light     []LightMeeting
	Degraded  bool
	FromCache bool
	Window    domain.Window
	light     bool
}

func (l *Listing) Results() any {
	if l.light {
		return l.Light
	}
	return l.Meetings
}

type MeetingService struct {
	Cache cache.Store
	TTL   time.Duration
	Loc   *time.Location
	Now   func() time.Time
}

func NewMeetingService(store cache.Store, ttl time.Duration, loc *time.Location) *MeetingService {
	if loc == nil {
		loc = time.UTC
	}
	return &MeetingService{Cache: store, TTL: ttl, Loc: loc, Now: time.Now}
}

// List returns an owner's meetings in a window, served from cache unless
// ForceRefresh is set. Degraded results are returned but not cached.
func (s *MeetingService) List(ctx context.Context, crm CRM, q MeetingQuery) (*Listing, error) {
	if strings.TrimSpace(q.OwnerID) == "" {
		return nil, fmt.Errorf("ownerId required")
	}
	win := domain.Window{Start: q.Start, End: q.End}
	if q.Light {
		win = domain.LightWindow(s.Now())
	} else if win.Start.IsZero() || win.End.IsZero() {
		win = domain.RollingWindow(s.Now(), s.Loc)
	}

	key := cache.MeetingsKey(q.OwnerID, win.StartMillis(), win.EndMillis())
	if q.Light {
		key = cache.LightMeetingsKey(q.OwnerID)
	}
	out := &Listing{Window: win, light: q.Light}

	if !q.ForceRefresh && s.Cache != nil {
		var hit bool
		var err error
		if q.Light {
			hit, err = cache.GetJSON(ctx, s.Cache, key, &out.Light)
		} else {
			hit, err = cache.GetJSON(ctx, s.Cache, key, &out.Meetings)
		}
		if err != nil {
			log.Printf("⚠️ [meetings] cache read %s: %v", key, err)
		}
		if hit {
			out.FromCache = true
			return out, nil
		}
	}

	props := MeetingProps
	if q.Light {
		props = LightMeetingProps
	}
	meetings, err := crm.SearchAll(ctx, hubspot.ObjectMeetings, ownerWindowSearch(q.OwnerID, win, props))
	if err != nil {
		return nil, fmt.Errorf("search meetings: %w", err)
	}

	if q.Light {
		out.Light = make([]LightMeeting, 0, len(meetings))
		for _, m := range meetings {
			out.Light = append(out.Light, LightMeeting{ID: m.ID, StartTime: m.Prop(PropMeetingStart), Status: meetingStatus(m)})
		}
		s.store(ctx, key, out.Light)
		return out, nil
	}

	out.Meetings, out.Degraded = s.enrich(ctx, crm, meetings)
	if !out.Degraded {
		s.store(ctx, key, out.Meetings)
	}
	return out, nil
}

// ByDate lists one calendar day's meetings. It is never cached.
func (s *MeetingService) ByDate(ctx context.Context, crm CRM, ownerID string, win domain.Window) ([]MeetingView, bool, error) {
	meetings, err := crm.SearchAll(ctx, hubspot.ObjectMeetings, ownerWindowSearch(ownerID, win, MeetingProps))
	if err != nil {
		return nil, false, fmt.Errorf("search meetings: %w", err)
	}
	views, degraded := s.enrich(ctx, crm, meetings)
	return views, degraded, nil
}

// Get builds the view for a single meeting without touching the cache.
func (s *MeetingService) Get(ctx context.Context, crm CRM, id string) (*MeetingView, bool, error) {
	m, err := crm.GetObject(ctx, hubspot.ObjectMeetings, id, MeetingProps, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s: %w", ErrMeetingNotFound, id, err)
	}
	views, degraded := s.enrich(ctx, crm, []hubspot.Object{*m})
	return &views[0], degraded, nil
}

// Invalidate drops every cached meeting list after a write.
func (s *MeetingService) Invalidate(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.InvalidatePrefix(ctx, cache.MeetingsPrefix); err != nil {
		log.Printf("⚠️ [meetings] cache invalidate: %v", err)
	}
}

func (s *MeetingService) store(ctx context.Context, key string, v any) {
	if s.Cache == nil {
		return
	}
	if err := cache.SetJSON(ctx, s.Cache, key, v, s.TTL); err != nil {
		log.Printf("⚠️ [meetings] cache write %s: %v", key, err)
	}
}

func (s *MeetingService) enrich(ctx context.Context, crm CRM, meetings []hubspot.Object) ([]MeetingView, bool) {
	j := Builder{CRM: crm}.Build(ctx, hubspot.ObjectMeetings, sourceIDs(meetings), meetingTargets...)
	views := make([]MeetingView, 0, len(meetings))
	for _, m := range meetings {
		views = append(views, s.meetingView(m, j))
	}
	return views, j.Degraded
}

func (s *MeetingService) meetingView(m hubspot.Object, j *Join) MeetingView {
	v := MeetingView{
		ID:            m.ID,
		Title:         m.Prop(PropMeetingTitle),
		StartTime:     m.Prop(PropMeetingStart),
		EndTime:       m.Prop(PropMeetingEnd),
		Location:      m.Prop(PropMeetingLocation),
		Status:        meetingStatus(m),
		InternalNotes: m.Prop(PropMeetingNotes),
		OwnerID:       m.Prop(PropOwnerID),
	}
	if start, ok := domain.ParseHubSpotTime(v.StartTime); ok {
		v.Date = domain.FormatGermanDate(start, s.Loc)
	}
	fillCompany(&v.CompanyID, &v.CompanyIDs, &v.CompanyCount, &v.CompanyName, &v.CompanyAddress, j, m.ID)
	fillContact(&v.ContactID, &v.ContactIDs, &v.ContactCount, &v.ContactName, &v.ContactPhone, j, m.ID)

	v.DealIDs = j.IDs(hubspot.ObjectDeals, m.ID)
	v.DealCount = len(v.DealIDs)
	if deal, ok := j.First(hubspot.ObjectDeals, m.ID); ok {
		id := deal.ID
		v.DealID = &id
		v.DealName = deal.Prop(PropDealName)
		v.DealStage = deal.Prop(PropDealStage)
		v.ContractUploaded = truthy(deal.Prop(PropDealContractUploaded))
		v.HotDeal = truthy(deal.Prop(PropDealHot))
	}
	return v
}

func fillCompany(id *string, ids *[]string, count *int, name, address *string, j *Join, fromID string) {
	*ids = j.IDs(hubspot.ObjectCompanies, fromID)
	*count = len(*ids)
	*name = UnknownCompany
	*address = UnknownAddress
	company, ok := j.First(hubspot.ObjectCompanies, fromID)
	if !ok {
		return
	}
	*id = company.ID
	if n := strings.TrimSpace(company.Prop(PropCompanyName)); n != "" {
		*name = n
	}
	if a := CompanyAddress(company); a != "" {
		*address = a
	}
}

func fillContact(id *string, ids *[]string, count *int, name, phone *string, j *Join, fromID string) {
	*ids = j.IDs(hubspot.ObjectContacts, fromID)
	*count = len(*ids)
	contact, ok := j.First(hubspot.ObjectContacts, fromID)
	if !ok {
		return
	}
	*id = contact.ID
	*name = ContactName(contact)
	*phone = contact.Prop(PropContactPhone)
	if *phone == "" {
		*phone = contact.Prop(PropContactMobile)
	}
}

// CompanyAddress joins street and city the way the dashboard prints them.
func CompanyAddress(c hubspot.Object) string {
	var parts []string
	for _, p := range []string{c.Prop(PropCompanyAddress), c.Prop(PropCompanyCity)} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func ContactName(c hubspot.Object) string {
	return strings.TrimSpace(c.Prop(PropContactFirstName) + " " + c.Prop(PropContactLastName))
}

func meetingStatus(m hubspot.Object) string {
	if st, err := domain.ParseMeetingStatus(m.Prop(PropMeetingOutcome)); err == nil {
		return string(st)
	}
	return strings.ToUpper(m.Prop(PropMeetingOutcome))
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

func ownerWindowSearch(ownerID string, win domain.Window, props []string) hubspot.SearchRequest {
	return hubspot.SearchRequest{
		FilterGroups: []hubspot.FilterGroup{{Filters: []hubspot.Filter{
			{PropertyName: PropOwnerID, Operator: hubspot.OpEQ, Value: ownerID},
			{PropertyName: PropMeetingStart, Operator: hubspot.OpGTE, Value: fmt.Sprint(win.StartMillis())},
			{PropertyName: PropMeetingStart, Operator: hubspot.OpLTE, Value: fmt.Sprint(win.EndMillis())},
		}}},
		Sorts:      []hubspot.Sort{{PropertyName: PropMeetingStart, Direction: "ASCENDING"}},
		Properties: props,
	}
}

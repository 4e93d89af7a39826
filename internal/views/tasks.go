package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	"salesdesk-service/internal/domain"
	"salesdesk-service/internal/hubspot"
)

type TaskView struct {
	ID       string `json:"id"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
	Type     string `json:"type"`
	DueDate  string `json:"dueDate"`
	Date     string `json:"date"`
	OwnerID  string `json:"ownerId"`

	CompanyID      string   `json:"companyId"`
	CompanyIDs     []string `json:"companyIds"`
	CompanyCount   int      `json:"companyCount"`
	CompanyName    string   `json:"companyName"`
	CompanyAddress string   `json:"companyAddress"`

	ContactID    string   `json:"contactId"`
	ContactIDs   []string `json:"contactIds"`
	ContactCount int      `json:"contactCount"`
	ContactName  string   `json:"contactName"`
	ContactPhone string   `json:"contactPhone"`

	DealID    *string  `json:"dealId"`
	DealIDs   []string `json:"dealIds"`
	DealCount int      `json:"dealCount"`
}

// Deals are linked by id only; the task list never shows deal details.
var taskTargets = []Target{
	{ObjectType: hubspot.ObjectCompanies, Properties: CompanyProps},
	{ObjectType: hubspot.ObjectContacts, Properties: ContactProps},
	{ObjectType: hubspot.ObjectDeals},
}

type TaskQuery struct {
	OwnerID string
	// Status filters on hs_task_status when set (NOT_STARTED, COMPLETED).
	Status string
}

type TaskService struct {
	Loc *time.Location
}

// List returns the owner's follow-up and cancellation tasks, oldest due first.
func (s *TaskService) List(ctx context.Context, crm CRM, q TaskQuery) ([]TaskView, bool, error) {
	if strings.TrimSpace(q.OwnerID) == "" {
		return nil, false, fmt.Errorf("ownerId required")
	}
	tasks, err := crm.SearchAll(ctx, hubspot.ObjectTasks, taskSearch(q))
	if err != nil {
		return nil, false, fmt.Errorf("search tasks: %w", err)
	}

	loc := s.Loc
	if loc == nil {
		loc = time.UTC
	}
	j := Builder{CRM: crm}.Build(ctx, hubspot.ObjectTasks, sourceIDs(tasks), taskTargets...)
	out := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		v := TaskView{
			ID:       t.ID,
			Subject:  t.Prop(PropTaskSubject),
			Body:     t.Prop(PropTaskBody),
			Status:   t.Prop(PropTaskStatus),
			Priority: t.Prop(PropTaskPriority),
			Type:     string(domain.TaskKindFromSubject(t.Prop(PropTaskSubject))),
			DueDate:  t.Prop(PropTimestamp),
			OwnerID:  t.Prop(PropOwnerID),
		}
		if due, ok := domain.ParseHubSpotTime(v.DueDate); ok {
			v.Date = domain.FormatGermanDate(due, loc)
		}
		fillCompany(&v.CompanyID, &v.CompanyIDs, &v.CompanyCount, &v.CompanyName, &v.CompanyAddress, j, t.ID)
		fillContact(&v.ContactID, &v.ContactIDs, &v.ContactCount, &v.ContactName, &v.ContactPhone, j, t.ID)
		v.DealIDs = j.IDs(hubspot.ObjectDeals, t.ID)
		v.DealCount = len(v.DealIDs)
		if len(v.DealIDs) > 0 {
			id := v.DealIDs[0]
			v.DealID = &id
		}
		out = append(out, v)
	}
	return out, j.Degraded, nil
}

// taskSearch ORs the two subject prefixes, each ANDed with the owner.
func taskSearch(q TaskQuery) hubspot.SearchRequest {
	group := func(subject string) hubspot.FilterGroup {
		filters := []hubspot.Filter{
			{PropertyName: PropTaskSubject, Operator: hubspot.OpContainsToken, Value: subject},
			{PropertyName: PropOwnerID, Operator: hubspot.OpEQ, Value: q.OwnerID},
		}
		if q.Status != "" {
			filters = append(filters, hubspot.Filter{PropertyName: PropTaskStatus, Operator: hubspot.OpEQ, Value: q.Status})
		}
		return hubspot.FilterGroup{Filters: filters}
	}
	return hubspot.SearchRequest{
		FilterGroups: []hubspot.FilterGroup{group(domain.FollowupSubject), group(domain.CancellationSubject)},
		Sorts:        []hubspot.Sort{{PropertyName: PropTimestamp, Direction: "ASCENDING"}},
		Properties:   TaskProps,
	}
}

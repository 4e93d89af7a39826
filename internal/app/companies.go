package app

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"salesdesk-service/internal/domain"
	"salesdesk-service/internal/hubspot"
	"salesdesk-service/internal/views"
)

const searchLimit = 20

type companyJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	City        string `json:"city"`
	Zip         string `json:"zip"`
	FullAddress string `json:"fullAddress"`
}

func toCompany(o hubspot.Object) companyJSON {
	return companyJSON{
		ID:          o.ID,
		Name:        o.Prop(views.PropCompanyName),
		Address:     o.Prop(views.PropCompanyAddress),
		City:        o.Prop(views.PropCompanyCity),
		Zip:         o.Prop(views.PropCompanyZip),
		FullAddress: views.CompanyAddress(o),
	}
}

type contactJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	FirstName   string `json:"firstname"`
	LastName    string `json:"lastname"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	MobilePhone string `json:"mobilephone"`
}

func toContact(o hubspot.Object) contactJSON {
	return contactJSON{
		ID:          o.ID,
		Name:        views.ContactName(o),
		FirstName:   o.Prop(views.PropContactFirstName),
		LastName:    o.Prop(views.PropContactLastName),
		Email:       o.Prop(views.PropContactEmail),
		Phone:       o.Prop(views.PropContactPhone),
		MobilePhone: o.Prop(views.PropContactMobile),
	}
}

type dealJSON struct {
	ID               string `json:"id"`
	Name             string `json:"dealname"`
	Stage            string `json:"dealstage"`
	Amount           string `json:"amount"`
	ContractUploaded bool   `json:"contractUploaded"`
	HotDeal          bool   `json:"hotDeal"`
}

func toDeal(o hubspot.Object) dealJSON {
	return dealJSON{
		ID:               o.ID,
		Name:             o.Prop(views.PropDealName),
		Stage:            o.Prop(views.PropDealStage),
		Amount:           o.Prop(views.PropDealAmount),
		ContractUploaded: o.Prop(views.PropDealContractUploaded) == "true",
		HotDeal:          o.Prop(views.PropDealHot) == "true",
	}
}

// GET /api/companies/search?q=
func (a *App) SearchCompaniesHandler(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		badRequest(c, "Query parameter q is required")
		return
	}
	page, err := a.crm(c).Search(c.Request.Context(), hubspot.ObjectCompanies, hubspot.SearchRequest{
		Query: q, Properties: views.CompanyProps, Limit: searchLimit,
	})
	if err != nil {
		upstreamError(c, "companies", "Failed to search companies", err)
		return
	}
	out := make([]companyJSON, 0, len(page.Results))
	for _, o := range page.Results {
		out = append(out, toCompany(o))
	}
	c.JSON(http.StatusOK, gin.H{"results": out, "total": page.Total})
}

// POST /api/companies/create
func (a *App) CreateCompanyHandler(c *gin.Context) {
	var req createCompanyReq
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		badRequest(c, "Company name is required")
		return
	}
	props := map[string]string{views.PropCompanyName: strings.TrimSpace(req.Name)}
	for k, v := range map[string]string{
		views.PropCompanyAddress: req.Address,
		views.PropCompanyCity:    req.City,
		views.PropCompanyZip:     req.Zip,
		views.PropCompanyPhone:   req.Phone,
	} {
		if v != "" {
			props[k] = v
		}
	}
	ctx := c.Request.Context()
	company, err := a.crm(c).CreateObject(ctx, hubspot.ObjectCompanies, props)
	if err != nil {
		upstreamError(c, "companies", "Failed to create company", err)
		return
	}
	if req.ContactID != "" {
		if err := a.crm(c).AssociateDefault(ctx, hubspot.ObjectCompanies, company.ID, hubspot.ObjectContacts, req.ContactID); err != nil {
			log.Printf("⚠️ [companies] link contact %s to %s: %v", req.ContactID, company.ID, err)
		}
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "company": toCompany(*company)})
}

// relatedOf reads company :id's linked records of one type.
func (a *App) relatedOf(c *gin.Context, toType string, props []string) ([]hubspot.Object, bool) {
	ctx := c.Request.Context()
	res, err := a.crm(c).BatchReadAssociations(ctx, hubspot.ObjectCompanies, toType, []string{c.Param("id")})
	if err != nil {
		upstreamError(c, "companies", "Failed to read company associations", err)
		return nil, false
	}
	var ids []string
	for _, r := range res {
		ids = append(ids, r.ToIDs...)
	}
	if len(ids) == 0 {
		return nil, true
	}
	objs, err := a.crm(c).BatchRead(ctx, toType, ids, props)
	if err != nil {
		upstreamError(c, "companies", "Failed to read associated "+toType, err)
		return nil, false
	}
	return objs, true
}

// GET /api/hubspot/company/:id/deals
func (a *App) CompanyDealsHandler(c *gin.Context) {
	objs, ok := a.relatedOf(c, hubspot.ObjectDeals, views.DealProps)
	if !ok {
		return
	}
	out := make([]dealJSON, 0, len(objs))
	for _, o := range objs {
		out = append(out, toDeal(o))
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

// GET /api/hubspot/company/:id/contacts
func (a *App) CompanyContactsHandler(c *gin.Context) {
	objs, ok := a.relatedOf(c, hubspot.ObjectContacts, views.ContactProps)
	if !ok {
		return
	}
	out := make([]contactJSON, 0, len(objs))
	for _, o := range objs {
		out = append(out, toContact(o))
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

// POST /api/companies/:id/associate-contact
func (a *App) AssociateContactHandler(c *gin.Context) {
	var req associateContactReq
	if !bindJSON(c, &req) {
		return
	}
	if req.ContactID == "" {
		badRequest(c, "contactId is required")
		return
	}
	if err := a.crm(c).AssociateDefault(c.Request.Context(), hubspot.ObjectCompanies, c.Param("id"), hubspot.ObjectContacts, req.ContactID); err != nil {
		upstreamError(c, "companies", "Failed to associate contact", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GET /api/contacts/search?q=
func (a *App) SearchContactsHandler(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		badRequest(c, "Query parameter q is required")
		return
	}
	page, err := a.crm(c).Search(c.Request.Context(), hubspot.ObjectContacts, hubspot.SearchRequest{
		Query: q, Properties: views.ContactProps, Limit: searchLimit,
	})
	if err != nil {
		upstreamError(c, "contacts", "Failed to search contacts", err)
		return
	}
	out := make([]contactJSON, 0, len(page.Results))
	for _, o := range page.Results {
		out = append(out, toContact(o))
	}
	c.JSON(http.StatusOK, gin.H{"results": out, "total": page.Total})
}

func contactProps(req createContactReq) map[string]string {
	props := map[string]string{}
	for k, v := range map[string]string{
		views.PropContactFirstName: req.FirstName,
		views.PropContactLastName:  req.LastName,
		views.PropContactEmail:     req.Email,
		views.PropContactPhone:     req.Phone,
		views.PropContactMobile:    req.MobilePhone,
	} {
		if v = strings.TrimSpace(v); v != "" {
			props[k] = v
		}
	}
	return props
}

func (a *App) createContact(c *gin.Context, req createContactReq) {
	if strings.TrimSpace(req.FirstName) == "" && strings.TrimSpace(req.LastName) == "" {
		badRequest(c, "firstname or lastname is required")
		return
	}
	contact, err := a.crm(c).CreateObject(c.Request.Context(), hubspot.ObjectContacts, contactProps(req),
		hubspot.Assoc(req.CompanyID, hubspot.AssocContactToCompany))
	if err != nil {
		upstreamError(c, "contacts", "Failed to create contact", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "contact": toContact(*contact)})
}

// POST /api/hubspot/contacts/create
func (a *App) CreateContactHandler(c *gin.Context) {
	var req createContactReq
	if !bindJSON(c, &req) {
		return
	}
	a.createContact(c, req)
}

// POST /api/hubspot/contact/create creates a contact unless one with the same
// email or phone already exists.
func (a *App) CreateContactCheckedHandler(c *gin.Context) {
	var req createContactReq
	if !bindJSON(c, &req) {
		return
	}
	var groups []hubspot.FilterGroup
	if email := strings.TrimSpace(req.Email); email != "" {
		groups = append(groups, hubspot.FilterGroup{Filters: []hubspot.Filter{
			{PropertyName: views.PropContactEmail, Operator: hubspot.OpEQ, Value: email},
		}})
	}
	for _, p := range []string{req.Phone, req.MobilePhone} {
		if variants := domain.PhoneVariants(p); len(variants) > 0 {
			groups = append(groups, phoneGroups(variants)...)
		}
	}
	if len(groups) > 0 {
		page, err := a.crm(c).Search(c.Request.Context(), hubspot.ObjectContacts, hubspot.SearchRequest{
			FilterGroups: groups, Properties: views.ContactProps, Limit: 1,
		})
		if err != nil {
			upstreamError(c, "contacts", "Failed to check for duplicates", err)
			return
		}
		if len(page.Results) > 0 {
			dup := page.Results[0]
			log.Printf("⚠️ [contacts] duplicate of %s, not creating", dup.ID)
			c.JSON(http.StatusConflict, gin.H{"error": "Contact already exists", "contactId": dup.ID, "contact": toContact(dup)})
			return
		}
	}
	a.createContact(c, req)
}

// phoneGroups matches any variant on either phone property.
func phoneGroups(variants []string) []hubspot.FilterGroup {
	return []hubspot.FilterGroup{
		{Filters: []hubspot.Filter{{PropertyName: views.PropContactPhone, Operator: hubspot.OpIn, Values: variants}}},
		{Filters: []hubspot.Filter{{PropertyName: views.PropContactMobile, Operator: hubspot.OpIn, Values: variants}}},
	}
}

package app

// Request bodies. Time fields are `any` because the dashboard sends epoch
// millis as numbers or strings, or ISO timestamps.

type listMeetingsReq struct {
	OwnerID      string `json:"ownerId"`
	ForceRefresh bool   `json:"forceRefresh"`
	LightMode    bool   `json:"lightMode"`
	StartTime    any    `json:"startTime"`
	EndTime      any    `json:"endTime"`
}

type meetingsByDateReq struct {
	OwnerID string `json:"ownerId"`
	Date    string `json:"date"`
}

type createMeetingReq struct {
	Title     string `json:"title"`
	StartTime any    `json:"startTime"`
	EndTime   any    `json:"endTime"`
	Location  string `json:"location"`
	Notes     string `json:"notes"`
	OwnerID   string `json:"ownerId"`
	CompanyID string `json:"companyId"`
	ContactID string `json:"contactId"`
	DealID    string `json:"dealId"`
}

type rescheduleReq struct {
	StartTime any    `json:"startTime"`
	EndTime   any    `json:"endTime"`
	Reason    string `json:"reason"`
}

type cancelMeetingReq struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
}

type completeMeetingReq struct {
	Notes string `json:"notes"`
}

type createCompanyReq struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Zip       string `json:"zip"`
	Phone     string `json:"phone"`
	ContactID string `json:"contactId"`
}

type associateContactReq struct {
	ContactID string `json:"contactId"`
}

type createContactReq struct {
	FirstName   string `json:"firstname"`
	LastName    string `json:"lastname"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	MobilePhone string `json:"mobilephone"`
	CompanyID   string `json:"companyId"`
}

type createDealReq struct {
	DealName  string `json:"dealname"`
	Amount    string `json:"amount"`
	Pipeline  string `json:"pipeline"`
	DealStage string `json:"dealstage"`
	OwnerID   string `json:"ownerId"`
	CompanyID string `json:"companyId"`
	ContactID string `json:"contactId"`
	MeetingID string `json:"meetingId"`
}

type closeLostReq struct {
	Reason          string `json:"reason"`
	ReattemptDate   any    `json:"reattemptDate"`
	ReattemptMonths int    `json:"reattemptMonths"`
}

type closeWonReq struct {
	Amount string `json:"amount"`
}

type hotDealReq struct {
	HotDeal *bool `json:"hotDeal"`
}

type listTasksReq struct {
	OwnerID string `json:"ownerId"`
	Status  string `json:"status"`
}

type createTaskReq struct {
	Type      string `json:"type"`
	Subject   string `json:"subject"`
	Label     string `json:"label"`
	Body      string `json:"body"`
	DueDate   any    `json:"dueDate"`
	OwnerID   string `json:"ownerId"`
	CompanyID string `json:"companyId"`
	ContactID string `json:"contactId"`
	DealID    string `json:"dealId"`
}

type completeTaskReq struct {
	TaskID string `json:"taskId"`
	Note   string `json:"note"`
}

type postponeTaskReq struct {
	DueDate any `json:"dueDate"`
	Days    int `json:"days"`
}

type appendNoteReq struct {
	Text string `json:"text"`
}

type companyNoteReq struct {
	CompanyID string `json:"companyId"`
	Note      string `json:"note"`
	MeetingID string `json:"meetingId"`
}

package views

// HubSpot property names read and written by the dashboard.
const (
	PropMeetingTitle    = "hs_meeting_title"
	PropMeetingStart    = "hs_meeting_start_time"
	PropMeetingEnd      = "hs_meeting_end_time"
	PropMeetingLocation = "hs_meeting_location"
	PropMeetingOutcome  = "hs_meeting_outcome"
	PropMeetingNotes    = "hs_internal_meeting_notes"
	PropMeetingBody     = "hs_meeting_body"
	PropCancelReason    = "cancellation_reason"
	PropOwnerID         = "hubspot_owner_id"
	PropTimestamp       = "hs_timestamp"

	PropCompanyName    = "name"
	PropCompanyAddress = "address"
	PropCompanyCity    = "city"
	PropCompanyZip     = "zip"
	PropCompanyPhone   = "phone"

	PropDealName             = "dealname"
	PropDealStage            = "dealstage"
	PropDealPipeline         = "pipeline"
	PropDealAmount           = "amount"
	PropDealCloseDate        = "closedate"
	PropDealContractUploaded = "contract_uploaded"
	PropDealHot              = "hot_deal"
	PropDealLostReason       = "closed_lost_reason"
	PropDealReattemptDate    = "reattempt_date"

	PropContactFirstName = "firstname"
	PropContactLastName  = "lastname"
	PropContactPhone     = "phone"
	PropContactMobile    = "mobilephone"
	PropContactEmail     = "email"

	PropTaskSubject  = "hs_task_subject"
	PropTaskBody     = "hs_task_body"
	PropTaskStatus   = "hs_task_status"
	PropTaskPriority = "hs_task_priority"
	PropTaskType     = "hs_task_type"

	PropNoteBody        = "hs_note_body"
	PropNoteAttachments = "hs_attachment_ids"
)

var (
	MeetingProps = []string{
		PropMeetingTitle, PropMeetingStart, PropMeetingEnd, PropMeetingLocation,
		PropMeetingOutcome, PropMeetingNotes, PropOwnerID,
	}
	LightMeetingProps = []string{PropMeetingStart, PropMeetingOutcome}
	CompanyProps      = []string{PropCompanyName, PropCompanyAddress, PropCompanyCity, PropCompanyZip}
	DealProps         = []string{PropDealName, PropDealStage, PropDealContractUploaded, PropDealHot, PropDealAmount}
	ContactProps      = []string{PropContactFirstName, PropContactLastName, PropContactPhone, PropContactMobile, PropContactEmail}
	TaskProps         = []string{PropTaskSubject, PropTaskBody, PropTaskStatus, PropTaskPriority, PropTimestamp, PropOwnerID}
)

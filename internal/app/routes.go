package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Routes mounts the OAuth flow, the public endpoints and the session-guarded
// /api group.
func (a *App) Routes(router *gin.Engine) {
	router.MaxMultipartMemory = maxUploadMemory
	router.Use(a.CORS())

	router.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "OK") })

	authGroup := router.Group("/auth")
	{
		authGroup.GET("/login", a.LoginHandler)
		authGroup.GET("/callback", a.CallbackHandler)
		authGroup.GET("/google/callback", a.GoogleCallbackHandler)
		authGroup.POST("/logout", a.LogoutHandler)
	}

	// Called by the phone system, not the dashboard.
	router.GET("/api/identify-caller", a.IdentifyCallerHandler)

	api := router.Group("/api", a.RequireSession())
	{
		api.GET("/me", a.MeHandler)
		api.GET("/hubspot-data", a.HubSpotDataHandler)

		api.POST("/meetings", a.ListMeetingsHandler)
		api.POST("/meetings/create", a.CreateMeetingHandler)
		api.POST("/meetings/by-date", a.MeetingsByDateHandler)
		api.PATCH("/meetings/:id/reschedule", a.RescheduleMeetingHandler)
		api.GET("/meeting/:id", a.GetMeetingHandler)
		api.POST("/meeting/:id/cancel", a.CancelMeetingHandler)
		api.POST("/meeting/:id/mark-completed", a.MarkCompletedHandler)
		api.POST("/meeting/send-voice", a.SendVoiceHandler)
		api.POST("/meeting/:id/upload-contract", a.UploadContractHandler)

		api.GET("/companies/search", a.SearchCompaniesHandler)
		api.POST("/companies/create", a.CreateCompanyHandler)
		api.POST("/companies/:id/associate-contact", a.AssociateContactHandler)
		api.POST("/company/note", a.CompanyNoteHandler)

		api.GET("/contacts/search", a.SearchContactsHandler)

		hs := api.Group("/hubspot")
		{
			hs.GET("/company/:id/deals", a.CompanyDealsHandler)
			hs.GET("/company/:id/contacts", a.CompanyContactsHandler)
			hs.POST("/contacts/create", a.CreateContactHandler)
			hs.POST("/contact/create", a.CreateContactCheckedHandler)
			hs.POST("/deals/create", a.CreateDealHandler)
			hs.POST("/tasks/create", a.CreateTaskHandler)
			hs.POST("/tasks/complete", a.CompleteTaskHandler)
		}

		api.PATCH("/deal/:id/close-lost", a.CloseLostHandler)
		api.PATCH("/deal/:id/close-won", a.CloseWonHandler)
		api.PATCH("/deal/:id/in-negotiation", a.InNegotiationHandler)
		api.PATCH("/deals/:id/hot-deal", a.HotDealHandler)

		api.POST("/tasks", a.ListTasksHandler)
		api.PATCH("/tasks/:id/postpone", a.PostponeTaskHandler)

		api.POST("/notes/:id/append", a.AppendNoteHandler)

		api.GET("/calendar/events", a.CalendarEventsHandler)
	}
}

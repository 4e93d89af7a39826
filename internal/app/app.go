package app

import (
	"time"

	"golang.org/x/oauth2"

	"salesdesk-service/internal/auth"
	"salesdesk-service/internal/cache"
	"salesdesk-service/internal/config"
	"salesdesk-service/internal/events"
	"salesdesk-service/internal/gcal"
	"salesdesk-service/internal/hubspot"
	"salesdesk-service/internal/session"
	"salesdesk-service/internal/views"
	"salesdesk-service/internal/zapier"
)

// App holds every collaborator the HTTP handlers need.
type App struct {
	Cfg config.Config

	// HubSpot authenticates with HUBSPOT_TOKEN. Session routes derive a
	// per-user copy with WithToken.
	HubSpot *hubspot.Client

	OAuth     *oauth2.Config
	Google    *oauth2.Config
	Sessions  session.Store
	Cookies   *session.Codec
	Refresher *auth.Refresher

	Meetings *views.MeetingService
	Tasks    *views.TaskService
	Calendar *gcal.Mirror
	Events   events.Publisher
	Zapier   *zapier.Forwarder

	Now func() time.Time
}

// Deps are the pieces that depend on the environment (stores, broker).
type Deps struct {
	HubSpot  *hubspot.Client
	Sessions session.Store
	Cache    cache.Store
	Events   events.Publisher
	Zapier   *zapier.Forwarder
}

func New(cfg config.Config, d Deps) *App {
	oc := auth.HubSpotConfig(cfg)
	google := gcal.Config(cfg)
	var mirror *gcal.Mirror
	if google != nil {
		mirror = gcal.NewMirror(google)
	}
	pub := d.Events
	if pub == nil {
		pub = events.NopPublisher{}
	}
	zap := d.Zapier
	if zap == nil {
		zap = zapier.New(nil)
	}
	loc := cfg.Location()
	return &App{
		Cfg:       cfg,
		HubSpot:   d.HubSpot,
		OAuth:     oc,
		Google:    google,
		Sessions:  d.Sessions,
		Cookies:   session.NewCodec(cfg.SessionSecret),
		Refresher: auth.NewRefresher(oc, d.Sessions),
		Meetings:  views.NewMeetingService(d.Cache, cfg.CacheTTL, loc),
		Tasks:     &views.TaskService{Loc: loc},
		Calendar:  mirror,
		Events:    pub,
		Zapier:    zap,
		Now:       time.Now,
	}
}

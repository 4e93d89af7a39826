package app

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"salesdesk-service/internal/auth"
	"salesdesk-service/internal/gcal"
	"salesdesk-service/internal/hubspot"
	"salesdesk-service/internal/session"
)

const (
	stateCookie = "salesdesk_oauth_state"

	ctxSession = "session"
	ctxHubSpot = "hubspot"
)

// RequireSession resolves the session cookie, refreshes an expiring HubSpot
// token and exposes a per-user HubSpot client to the handlers.
func (a *App) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := a.loadSession(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		if _, err := a.Refresher.Ensure(c.Request.Context(), s); err != nil {
			log.Printf("❌ [auth] token refresh for session %s: %v", s.ID, err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session expired, please log in again"})
			return
		}
		c.Set(ctxSession, s)
		c.Set(ctxHubSpot, a.HubSpot.WithToken(s.AccessToken))
		c.Next()
	}
}

func (a *App) loadSession(c *gin.Context) (*session.Session, error) {
	raw, err := c.Cookie(session.CookieName)
	if err != nil || raw == "" {
		return nil, session.ErrNotFound
	}
	id, err := a.Cookies.Decode(raw)
	if err != nil {
		return nil, err
	}
	return a.Sessions.Get(c.Request.Context(), id)
}

func sessionOf(c *gin.Context) *session.Session {
	return c.MustGet(ctxSession).(*session.Session)
}

func (a *App) crm(c *gin.Context) *hubspot.Client {
	if v, ok := c.Get(ctxHubSpot); ok {
		return v.(*hubspot.Client)
	}
	return a.HubSpot
}

// CORS lets the dashboard call the API with its session cookie.
func (a *App) CORS() gin.HandlerFunc {
	origin := strings.TrimRight(a.Cfg.FrontendURL, "/")
	return func(c *gin.Context) {
		if origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (a *App) setCookie(c *gin.Context, name, value string, maxAge time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, int(maxAge.Seconds()), "/", "", a.Cfg.CookieSecure, true)
}

// GET /auth/login
func (a *App) LoginHandler(c *gin.Context) {
	state := uuid.NewString()
	a.setCookie(c, stateCookie, state, 10*time.Minute)
	c.Redirect(http.StatusFound, auth.LoginURL(a.OAuth, state, a.Cfg.HubSpotOptionalScopes()))
}

// GET /auth/callback
func (a *App) CallbackHandler(c *gin.Context) {
	if e := c.Query("error"); e != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Authorization denied", "details": c.Query("error_description")})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization code required"})
		return
	}
	// The callback must come from a login this browser started.
	if want, err := c.Cookie(stateCookie); err != nil || want == "" || want != c.Query("state") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
		return
	}
	a.setCookie(c, stateCookie, "", -time.Second)

	ctx := c.Request.Context()
	tok, err := a.OAuth.Exchange(ctx, code)
	if err != nil {
		log.Printf("❌ [auth] code exchange: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to exchange code for token"})
		return
	}

	s := session.New(tok, a.Cfg.SessionTTL, a.Now())
	if info, err := a.HubSpot.TokenInfo(ctx, tok.AccessToken); err != nil {
		log.Printf("⚠️ [auth] token info: %v", err)
	} else {
		s.UserEmail = info.User
		s.HubID = info.HubID
		if owner, err := a.HubSpot.WithToken(tok.AccessToken).OwnerByEmail(ctx, info.User); err == nil {
			s.OwnerID = owner.ID
		} else {
			log.Printf("⚠️ [auth] owner lookup for %s: %v", info.User, err)
		}
	}
	if err := a.Sessions.Save(ctx, s); err != nil {
		log.Printf("❌ [auth] save session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store session"})
		return
	}
	cookie, err := a.Cookies.Encode(s)
	if err != nil {
		log.Printf("❌ [auth] sign cookie: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store session"})
		return
	}
	a.setCookie(c, session.CookieName, cookie, s.ExpiresAt.Sub(a.Now()))
	log.Printf("✅ [auth] %s logged in (hub %d, owner %s)", s.UserEmail, s.HubID, s.OwnerID)

	if a.Google != nil {
		c.Redirect(http.StatusFound, gcal.AuthURL(a.Google, s.ID))
		return
	}
	c.Redirect(http.StatusFound, a.Cfg.FrontendURL)
}

// GET /auth/google/callback
func (a *App) GoogleCallbackHandler(c *gin.Context) {
	if a.Google == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Google Calendar not configured"})
		return
	}
	s, err := a.loadSession(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	code := c.Query("code")
	if code == "" {
		// The rep may decline calendar access and still use the dashboard.
		log.Printf("⚠️ [auth] google consent skipped: %s", c.Query("error"))
		c.Redirect(http.StatusFound, a.Cfg.FrontendURL)
		return
	}
	tok, err := a.Google.Exchange(c.Request.Context(), code)
	if err != nil {
		log.Printf("❌ [auth] google code exchange: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to exchange code for token"})
		return
	}
	s.SetGoogleToken(tok)
	if err := a.Sessions.Save(c.Request.Context(), s); err != nil {
		log.Printf("❌ [auth] save session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store session"})
		return
	}
	c.Redirect(http.StatusFound, a.Cfg.FrontendURL)
}

// POST /auth/logout
func (a *App) LogoutHandler(c *gin.Context) {
	if s, err := a.loadSession(c); err == nil {
		if err := a.Sessions.Delete(c.Request.Context(), s.ID); err != nil {
			log.Printf("⚠️ [auth] delete session %s: %v", s.ID, err)
		}
	}
	a.setCookie(c, session.CookieName, "", -time.Second)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GET /api/me
func (a *App) MeHandler(c *gin.Context) {
	s := sessionOf(c)
	c.JSON(http.StatusOK, gin.H{
		"authenticated":   true,
		"user":            s.UserEmail,
		"hubId":           s.HubID,
		"ownerId":         s.OwnerID,
		"googleConnected": s.GoogleToken() != nil,
		"expiresAt":       s.ExpiresAt,
	})
}

// GET /api/hubspot-data
func (a *App) HubSpotDataHandler(c *gin.Context) {
	s := sessionOf(c)
	ctx := c.Request.Context()
	info, err := a.HubSpot.TokenInfo(ctx, s.AccessToken)
	if err != nil {
		upstreamError(c, "auth", "Failed to fetch HubSpot account data", err)
		return
	}
	owner, err := a.crm(c).OwnerByEmail(ctx, info.User)
	if err != nil && !errors.Is(err, hubspot.ErrNotFound) {
		log.Printf("⚠️ [auth] owner lookup: %v", err)
	}
	c.JSON(http.StatusOK, gin.H{"tokenInfo": info, "owner": owner})
}

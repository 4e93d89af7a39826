// Package auth wires the HubSpot OAuth app and keeps session tokens fresh.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"salesdesk-service/internal/config"
	"salesdesk-service/internal/session"
)

// AuthorizeURL is HubSpot's consent screen; the token endpoint lives on the API host.
const AuthorizeURL = "https://app.hubspot.com/oauth/authorize"

// RefreshLeeway refreshes tokens that expire within this window.
const RefreshLeeway = 60 * time.Second

var ErrNoRefreshToken = errors.New("session has no refresh token")

// HubSpotConfig builds the OAuth config for the HubSpot app.
func HubSpotConfig(cfg config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       cfg.HubSpotScopes(),
		Endpoint: oauth2.Endpoint{
			AuthURL:   AuthorizeURL,
			TokenURL:  strings.TrimRight(cfg.HubSpotBaseURL, "/") + "/oauth/v1/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// LoginURL returns the consent URL, passing optional scopes the way HubSpot expects.
func LoginURL(oc *oauth2.Config, state string, optional []string) string {
	var opts []oauth2.AuthCodeOption
	if len(optional) > 0 {
		opts = append(opts, oauth2.SetAuthURLParam("optional_scope", strings.Join(optional, " ")))
	}
	return oc.AuthCodeURL(state, opts...)
}

// Refresher renews a session's HubSpot access token before it lapses.
type Refresher struct {
	OAuth  *oauth2.Config
	Store  session.Store
	Leeway time.Duration
	Now    func() time.Time
}

func NewRefresher(oc *oauth2.Config, store session.Store) *Refresher {
	return &Refresher{OAuth: oc, Store: store, Leeway: RefreshLeeway, Now: time.Now}
}

// Ensure refreshes s in place when its token is expired or about to be, and
// saves it. It reports whether a refresh happened.
func (r *Refresher) Ensure(ctx context.Context, s *session.Session) (bool, error) {
	if s.TokenExpiry.IsZero() || r.Now().Add(r.Leeway).Before(s.TokenExpiry) {
		return false, nil
	}
	if s.RefreshToken == "" {
		return false, ErrNoRefreshToken
	}

	// An empty access token forces the source to hit the token endpoint.
	tok, err := r.OAuth.TokenSource(ctx, &oauth2.Token{RefreshToken: s.RefreshToken}).Token()
	if err != nil {
		return false, fmt.Errorf("refresh hubspot token: %w", err)
	}
	s.SetHubSpotToken(tok)
	if err := r.Store.Save(ctx, s); err != nil {
		return true, fmt.Errorf("save refreshed session: %w", err)
	}
	log.Printf("🔄 [auth] refreshed hubspot token for session %s", s.ID)
	return true, nil
}

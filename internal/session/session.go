// Package session keeps per-browser HubSpot (and optional Google) tokens
// server-side. The browser only holds a signed cookie naming the session id.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// DefaultTTL matches the cookie lifetime.
const DefaultTTL = 12 * time.Hour

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID string `json:"id"`

	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	TokenExpiry  time.Time `json:"tokenExpiry"`

	UserEmail string `json:"userEmail,omitempty"`
	HubID     int64  `json:"hubId,omitempty"`
	OwnerID   string `json:"ownerId,omitempty"`

	GoogleAccessToken  string    `json:"googleAccessToken,omitempty"`
	GoogleRefreshToken string    `json:"googleRefreshToken,omitempty"`
	GoogleTokenExpiry  time.Time `json:"googleTokenExpiry,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// New starts a session for a freshly exchanged HubSpot token.
func New(tok *oauth2.Token, ttl time.Duration, now time.Time) *Session {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Session{ID: uuid.NewString(), CreatedAt: now, ExpiresAt: now.Add(ttl)}
	s.SetHubSpotToken(tok)
	return s
}

func (s *Session) HubSpotToken() *oauth2.Token {
	return &oauth2.Token{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken, Expiry: s.TokenExpiry, TokenType: "Bearer"}
}

// SetHubSpotToken stores tok, keeping the old refresh token if HubSpot did
// not rotate it.
func (s *Session) SetHubSpotToken(tok *oauth2.Token) {
	s.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		s.RefreshToken = tok.RefreshToken
	}
	s.TokenExpiry = tok.Expiry
}

// GoogleToken returns nil when the calendar was never connected.
func (s *Session) GoogleToken() *oauth2.Token {
	if s.GoogleAccessToken == "" && s.GoogleRefreshToken == "" {
		return nil
	}
	return &oauth2.Token{AccessToken: s.GoogleAccessToken, RefreshToken: s.GoogleRefreshToken, Expiry: s.GoogleTokenExpiry, TokenType: "Bearer"}
}

func (s *Session) SetGoogleToken(tok *oauth2.Token) {
	s.GoogleAccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		s.GoogleRefreshToken = tok.RefreshToken
	}
	s.GoogleTokenExpiry = tok.Expiry
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps sessions in process; they are lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]Session{}, now: time.Now}
}

func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if s.Expired(m.now()) {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Config holds runtime settings read from the environment.
type Config struct {
	Port        string
	FrontendURL string

	// HubSpot OAuth app
	ClientID       string
	ClientSecret   string
	RedirectURI    string
	Scopes         string
	OptionalScopes string
	HubSpotBaseURL string
	HubSpotToken   string // private app token, used where no user session exists

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string

	SessionSecret string
	SessionTTL    time.Duration
	CookieSecure  bool

	CacheTTL    time.Duration
	RedisAddr   string
	DatabaseURL string
	AMQPURL     string

	ZapierVoiceWebhook       string
	ZapierCompanyNoteWebhook string

	Timezone       string
	ContractFolder string
}

// Load reads configuration values from environment variables. Missing optional
// integrations stay empty and the matching component is disabled at startup.
func Load() Config {
	cfg := Config{
		Port:        envStr("PORT", "8080"),
		FrontendURL: envStr("FRONTEND_URL", "http://localhost:3000"),

		ClientID:       os.Getenv("CLIENT_ID"),
		ClientSecret:   os.Getenv("CLIENT_SECRET"),
		RedirectURI:    envStr("REDIRECT_URI", "http://localhost:8080/auth/callback"),
		Scopes:         envStr("SCOPES", "crm.objects.contacts.read crm.objects.contacts.write crm.objects.companies.read crm.objects.companies.write crm.objects.deals.read crm.objects.deals.write"),
		OptionalScopes: os.Getenv("OPTIONAL_SCOPES"),
		HubSpotBaseURL: strings.TrimRight(envStr("HUBSPOT_BASE_URL", "https://api.hubapi.com"), "/"),
		HubSpotToken:   os.Getenv("HUBSPOT_TOKEN"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURI:  os.Getenv("GOOGLE_REDIRECT_URI"),

		SessionSecret: os.Getenv("SESSION_SECRET"),
		SessionTTL:    envDur("SESSION_TTL", 12*time.Hour),
		CookieSecure:  envBool("COOKIE_SECURE", false),

		CacheTTL:    envDur("CACHE_TTL", 300*time.Second),
		RedisAddr:   redisAddr(),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		AMQPURL:     firstNonEmpty(os.Getenv("AMQP_URL"), os.Getenv("RABBITMQ_URL")),

		ZapierVoiceWebhook:       os.Getenv("ZAPIER_VOICE_WEBHOOK_URL"),
		ZapierCompanyNoteWebhook: os.Getenv("ZAPIER_COMPANY_NOTE_WEBHOOK_URL"),

		Timezone:       envStr("TIMEZONE", "Europe/Berlin"),
		ContractFolder: envStr("CONTRACT_FOLDER", "/contracts"),
	}
	if cfg.SessionSecret == "" {
		log.Printf("⚠️ [config] SESSION_SECRET not set, falling back to CLIENT_SECRET for cookie signing")
		cfg.SessionSecret = cfg.ClientSecret
	}
	return cfg
}

// HubSpotScopes splits the space or comma separated SCOPES value.
func (c Config) HubSpotScopes() []string { return splitScopes(c.Scopes) }

// HubSpotOptionalScopes is passed as the optional_scope parameter on login.
func (c Config) HubSpotOptionalScopes() []string { return splitScopes(c.OptionalScopes) }

// GoogleEnabled reports whether the Google Calendar mirror can be used.
func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURI != ""
}

// Location resolves TIMEZONE, falling back to UTC on an unknown zone name.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("⚠️ [config] unknown TIMEZONE %q, using UTC", c.Timezone)
		return time.UTC
	}
	return loc
}

func splitScopes(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func redisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT")
	if host != "" && port != "" {
		return host + ":" + port
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	case "0", "false", "FALSE", "False", "no", "off":
		return false
	}
	return d
}

// envDur accepts Go durations ("5m") or a bare number of seconds ("300").
func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	if n := envInt(k, -1); n >= 0 {
		return time.Duration(n) * time.Second
	}
	return d
}

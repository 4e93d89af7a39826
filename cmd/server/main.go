package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"salesdesk-service/internal/app"
	"salesdesk-service/internal/cache"
	"salesdesk-service/internal/config"
	"salesdesk-service/internal/events"
	"salesdesk-service/internal/hubspot"
	"salesdesk-service/internal/server"
	"salesdesk-service/internal/session"
)

const janitorInterval = 10 * time.Minute

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		log.Fatal("CLIENT_ID and CLIENT_SECRET required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var store cache.Store
	var memCache *cache.MemoryStore
	if rdb := cache.NewRedisClient(cfg.RedisAddr); rdb != nil {
		defer rdb.Close()
		store = cache.NewRedisStore(rdb)
		log.Printf("✅ [cache] redis at %s", cfg.RedisAddr)
	} else {
		memCache = cache.NewMemoryStore()
		store = memCache
		log.Printf("ℹ️ [cache] in-memory")
	}

	var sessions session.Store
	var pgSessions *session.PostgresStore
	if cfg.DatabaseURL != "" {
		pg, err := session.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("session store: %v", err)
		}
		defer pg.Close()
		sessions, pgSessions = pg, pg
		log.Printf("✅ [session] postgres")
	} else {
		sessions = session.NewMemoryStore()
		log.Printf("ℹ️ [session] in-memory, sessions are lost on restart")
	}

	var pub events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		pub = events.NewAMQPPublisher(cfg.AMQPURL)
		log.Printf("✅ [events] publishing to queue %s", events.QueueName)
	}

	if cfg.HubSpotToken == "" {
		log.Printf("⚠️ [hubspot] HUBSPOT_TOKEN not set, /api/identify-caller will fail")
	}

	a := app.New(cfg, app.Deps{
		HubSpot:  hubspot.New(cfg.HubSpotBaseURL, cfg.HubSpotToken, nil),
		Sessions: sessions,
		Cache:    store,
		Events:   pub,
	})

	go janitor(ctx, memCache, pgSessions)

	router := gin.Default()
	a.Routes(router)

	if err := server.Run(ctx, cfg.Port, router); err != nil {
		log.Fatalf("http server: %v", err)
	}
}

// janitor drops expired cache entries and sessions that nobody reads again.
func janitor(ctx context.Context, mem *cache.MemoryStore, pg *session.PostgresStore) {
	t := time.NewTicker(janitorInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if mem != nil {
			if n := mem.Sweep(); n > 0 {
				log.Printf("🧹 [cache] swept %d expired entries", n)
			}
		}
		if pg != nil {
			n, err := pg.PurgeExpired(ctx)
			if err != nil {
				log.Printf("⚠️ [session] purge: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("🧹 [session] purged %d expired sessions", n)
			}
		}
	}
}

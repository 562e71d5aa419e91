package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/joho/godotenv"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/ankit-kumar-omnie/event-store-dashboard/api"
	"github.com/ankit-kumar-omnie/event-store-dashboard/playback"
	"github.com/ankit-kumar-omnie/event-store-dashboard/poll"
	"github.com/ankit-kumar-omnie/event-store-dashboard/querycache"
	"github.com/ankit-kumar-omnie/event-store-dashboard/storage"
	"github.com/ankit-kumar-omnie/event-store-dashboard/upstream"
)

func main() {
	godotenv.Load()

	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.New()
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		logger.WithField("environment", env).Info("starting event store dashboard")
	}

	baseURL := os.Getenv("EVENT_STORE_URL")
	if baseURL == "" {
		log.Fatal("missing event store config")
	}
	events, err := upstream.New(baseURL, envDur("UPSTREAM_TIMEOUT", 30*time.Second), logger)
	if err != nil {
		log.Fatalf("upstream: %v", err)
	}

	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		log.Fatal("missing redis config")
	}
	redisOpts, err := redis.ParseURL(redisConn)
	if err != nil {
		parts := strings.Split(redisConn, ",")
		redisOpts = &redis.Options{Addr: parts[0]}
		for _, p := range parts[1:] {
			kv := strings.SplitN(p, "=", 2)
			if len(kv) != 2 {
				continue
			}
			switch strings.ToLower(kv[0]) {
			case "password":
				redisOpts.Password = kv[1]
			case "ssl":
				if strings.ToLower(kv[1]) == "true" {
					redisOpts.TLSConfig = &tls.Config{}
				}
			}
		}
	}
	rc := redis.NewClient(redisOpts)

	cache := querycache.New(rc,
		envDur("CACHE_FRESH", 10*time.Second),
		envDur("CACHE_TTL", 5*time.Minute),
		upstream.IsNetwork, logger)

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	settingsTableName := os.Getenv("SETTINGS_TABLE")
	if connStr == "" || settingsTableName == "" {
		log.Fatal("missing storage config")
	}
	store, err := storage.New(connStr, settingsTableName)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	settings := storage.NewCache(store, rc, envDur("SETTINGS_CACHE_TTL", time.Hour))

	testMode := os.Getenv("AUTH_TEST_MODE") == "1" || os.Getenv("LOCAL_AUTH_MODE") != ""
	var auth *api.Auth
	if testMode {
		auth = api.NewAuth(nil, "", "")
	} else {
		issuer := os.Getenv("AUTH_ISSUER")
		audience := os.Getenv("AUTH_AUDIENCE")
		if issuer == "" || audience == "" {
			log.Fatal("missing auth config")
		}
		jwksURL := strings.TrimRight(issuer, "/") + "/.well-known/jwks.json"
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		auth = api.NewAuth(jwks, audience, issuer)
	}

	sessions := playback.NewManager(envDur("PLAYBACK_IDLE_TTL", 10*time.Minute), logger)

	pollCtx, stopPolling := context.WithCancel(context.Background())
	poller := poll.NewHealthPoller(events.Health, envDur("HEALTH_POLL_INTERVAL", 30*time.Second), logger)
	go poller.Run(pollCtx)

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echoprometheus.NewMiddleware("dashboard"))
	e.GET("/metrics", echoprometheus.NewHandler())

	api.Register(e, api.Deps{
		Events:   events,
		Cache:    cache,
		Settings: settings,
		Playback: sessions,
		Health:   poller,
		Auth:     auth,
		Logger:   logger,
	})

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("PORT"); ok {
		listenAddr = ":" + val
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down")
		stopPolling()
		sessions.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("shutdown: %v", err)
		}
	}()

	if err := e.Start(listenAddr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server: %v", err)
	}
}

func envDur(name string, def time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Fatalf("invalid %s: %v", name, raw)
	}
	return d
}

package main

import (
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskboard-api/api"
	"taskboard-api/storage"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	tasksTableName := os.Getenv("TASKS_TABLE")
	usersTableName := os.Getenv("USERS_TABLE")
	mailQueueName := os.Getenv("MAIL_QUEUE")
	if connStr == "" || tasksTableName == "" || usersTableName == "" || mailQueueName == "" {
		log.Fatal("missing storage config")
	}
	base, err := storage.New(connStr, tasksTableName, usersTableName, mailQueueName)
	if err != nil {
		log.Fatalf("storage: %v", err)
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
	cacheTTL := 5 * time.Minute
	if v := os.Getenv("CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			log.Fatalf("invalid CACHE_TTL: %v", err)
		}
		cacheTTL = d
	}
	store := storage.NewCache(base, rc, cacheTTL)

	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		log.Fatal("missing SESSION_SECRET")
	}
	sessionTTL := 24 * time.Hour
	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatalf("invalid SESSION_TTL: %v", err)
		}
		sessionTTL = d
	}

	// Bearer tokens from an external identity provider are accepted next to
	// local session cookies when a JWKS endpoint is configured.
	var jwks *keyfunc.JWKS
	audience := os.Getenv("AUTH_AUDIENCE")
	issuer := ""
	if domain := os.Getenv("AUTH_DOMAIN"); domain != "" {
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", domain)
		jwks, err = keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		issuer = "https://" + domain + "/"
	}
	auth := api.NewAuth([]byte(secret), sessionTTL, jwks, audience, issuer)

	cfg := api.Config{
		ConfirmBaseURL: os.Getenv("CONFIRM_BASE_URL"),
	}
	if v, err := strconv.ParseBool(os.Getenv("REQUIRE_EMAIL_CONFIRMATION")); err == nil {
		cfg.RequireConfirmation = v
	}
	if cfg.RequireConfirmation && cfg.ConfirmBaseURL == "" {
		log.Fatal("CONFIRM_BASE_URL is required when REQUIRE_EMAIL_CONFIRMATION is set")
	}

	e := echo.New()
	corsCfg := middleware.CORSConfig{
		AllowOrigins: strings.Split(envDefault("CORS_ORIGINS", "*"), ","),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}
	// Cookie-based sessions need credentialed CORS, which requires explicit
	// origins rather than the wildcard.
	if corsCfg.AllowOrigins[0] != "*" {
		corsCfg.AllowCredentials = true
	}
	e.Use(middleware.CORSWithConfig(corsCfg))
	e.Use(api.DecompressRequests())
	e.Use(echoprometheus.NewMiddleware("taskboard"))
	e.GET("/metrics", echoprometheus.NewHandler())

	logger := log.New()
	api.Register(e, store, auth, auth, cfg, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}

func envDefault(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

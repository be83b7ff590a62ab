package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
)

var (
	APIBaseURL = "http://localhost:4000/api"
	Port       = "8080"

	SessionSecret = "site-cms-dev-secret"
	SessionName   = "site-cms"

	// Logging
	LogLevel       = "info"
	LogDevelopment = false

	// Site definition (yaml or toml)
	SiteConfigPath = "./site.yml"

	// Upload and REST client settings
	MaxUploadMB   = int64(50)
	APITimeout    = 30 * time.Second
	UploadTimeout = 5 * time.Minute
	ListCacheTTL  = 30 * time.Second
)

var OauthConf *oauth2.Config

func Init() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found or error loading it.")
	}

	appURL := GetAppURL()

	APIBaseURL = getEnv("API_BASE_URL", APIBaseURL)
	Port = getEnv("PORT", Port)
	SessionSecret = getEnv("SESSION_SECRET", SessionSecret)
	LogLevel = getEnv("LOG_LEVEL", LogLevel)
	LogDevelopment = getEnv("LOG_DEVELOPMENT", "") == "true"
	SiteConfigPath = getEnv("SITE_CONFIG", SiteConfigPath)

	if v := os.Getenv("MAX_UPLOAD_MB"); v != "" {
		if mb, err := strconv.ParseInt(v, 10, 64); err == nil && mb > 0 {
			MaxUploadMB = mb
		}
	}
	APITimeout = getDuration("API_TIMEOUT", APITimeout)
	UploadTimeout = getDuration("UPLOAD_TIMEOUT", UploadTimeout)
	ListCacheTTL = getDuration("LIST_CACHE_TTL", ListCacheTTL)

	OauthConf = nil
	if clientID := os.Getenv("OAUTH_CLIENT_ID"); clientID != "" {
		OauthConf = &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: os.Getenv("OAUTH_CLIENT_SECRET"),
			Scopes:       []string{"admin"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  getEnv("OAUTH_AUTH_URL", APIBaseURL+"/oauth/authorize"),
				TokenURL: getEnv("OAUTH_TOKEN_URL", APIBaseURL+"/oauth/token"),
			},
			RedirectURL: getEnv("OAUTH_REDIRECT_URL", appURL+"/auth/callback"),
		}
	}
}

// MaxUploadBytes is the per-file pre-flight limit for media uploads.
func MaxUploadBytes() int64 {
	return MaxUploadMB << 20
}

func GetAppURL() string {
	appURL := os.Getenv("APP_URL")
	if appURL == "" {
		appURL = "http://localhost:" + getEnv("PORT", Port)
	}
	return appURL
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

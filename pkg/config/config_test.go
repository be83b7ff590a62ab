package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitReadsEnvironment(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.com")
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_UPLOAD_MB", "10")
	t.Setenv("API_TIMEOUT", "5s")
	t.Setenv("LIST_CACHE_TTL", "not-a-duration")
	t.Setenv("OAUTH_CLIENT_ID", "cms-admin")
	t.Setenv("APP_URL", "https://admin.example.com")

	Init()

	assert.Equal(t, "https://api.example.com", APIBaseURL)
	assert.Equal(t, "9090", Port)
	assert.Equal(t, int64(10<<20), MaxUploadBytes())
	assert.Equal(t, 5*time.Second, APITimeout)
	assert.Equal(t, 30*time.Second, ListCacheTTL)

	require.NotNil(t, OauthConf)
	assert.Equal(t, "https://api.example.com/oauth/token", OauthConf.Endpoint.TokenURL)
	assert.Equal(t, "https://admin.example.com/auth/callback", OauthConf.RedirectURL)
}

func TestInitWithoutOAuthClient(t *testing.T) {
	t.Setenv("OAUTH_CLIENT_ID", "")
	Init()
	assert.Nil(t, OauthConf)
}

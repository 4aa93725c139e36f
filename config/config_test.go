package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.com")

	cfg := New()

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "https://api.example.com", cfg.APIBaseURL)
	assert.Equal(t, 10*time.Second, cfg.APITimeout)
	assert.Equal(t, 5, cfg.PageLimit)
	assert.Equal(t, time.Minute, cfg.QueryStaleTime)
	assert.Equal(t, 5*time.Minute, cfg.QueryGCTime)
	assert.Empty(t, cfg.Dsn)
}

func TestNew_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PAGE_LIMIT", "10")
	t.Setenv("QUERY_STALE_TIME", "30s")
	t.Setenv("DSN", "postgres://localhost/bookgroups")

	cfg := New()

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 10, cfg.PageLimit)
	assert.Equal(t, 30*time.Second, cfg.QueryStaleTime)
	assert.Equal(t, "postgres://localhost/bookgroups", cfg.Dsn)
}

func TestValidate(t *testing.T) {
	assert.Error(t, (&Config{}).Validate())
	assert.NoError(t, (&Config{JwtSecret: "secret"}).Validate())
	assert.NoError(t, (&Config{AuthUnverified: true}).Validate())

	t.Setenv("AUTH_UNVERIFIED", "true")
	assert.True(t, New().AuthUnverified)
}

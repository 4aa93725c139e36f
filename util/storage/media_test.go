package storage

import (
	"testing"

	"github.com/bwise1/bookgroups/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMedia_AbsoluteURLPassesThrough(t *testing.T) {
	m, err := NewMedia(&config.Config{})
	require.NoError(t, err)

	assert.Equal(t, "https://img.example.com/a.png", m.Avatar("https://img.example.com/a.png"))
	assert.Equal(t, "", m.Avatar("profile_12"), "public ids need a cloud")
	assert.Equal(t, "", m.Cover("  "))
}

func TestMedia_CloudinaryURL(t *testing.T) {
	m, err := NewMedia(&config.Config{
		CloudinaryCloudName: "demo",
		CloudinaryAPIKey:    "key",
		CloudinaryAPISecret: "secret",
	})
	require.NoError(t, err)

	u := m.Avatar("profile_12")
	assert.Contains(t, u, "https://res.cloudinary.com/demo/image/upload/")
	assert.Contains(t, u, "c_fill")
	assert.Contains(t, u, "profile_12")

	cover := m.Cover("cover_7")
	assert.Contains(t, cover, "h_240")
}

func TestMedia_NilResolver(t *testing.T) {
	var m *Media
	assert.Equal(t, "", m.Cover("cover_7"))
	assert.Equal(t, "https://x.test/c.jpg", m.Cover("https://x.test/c.jpg"))
}

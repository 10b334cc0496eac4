package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	require.NotNil(t, cfg)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 30*24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, []string{"application/pdf"}, cfg.Uploads.AllowedMIMEs)
	assert.Equal(t, 4, cfg.Reports.ReadConcurrency)
	assert.False(t, cfg.Documents.EnforceCategoryCatalog)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("REPORTS_READ_CONCURRENCY", 0)
	v.Set("REPORT_CACHE_TTL", "not-a-duration")
	v.Set("ENFORCE_CATEGORY_CATALOG", true)
	v.Set("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg := fromViper(v)
	assert.Equal(t, 4, cfg.Reports.ReadConcurrency)
	assert.Equal(t, 5*time.Minute, cfg.Documents.ReportCacheTTL)
	assert.True(t, cfg.Documents.EnforceCategoryCatalog)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

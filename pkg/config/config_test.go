package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "Asia/Tokyo", cfg.Clinic.Timezone)
	assert.True(t, cfg.Clinic.YearEndClosure)
	assert.Equal(t, 30, cfg.Clinic.TotalSessions)
	assert.Equal(t, 5, cfg.Clinic.SessionsPerWeek)
	assert.Equal(t, 12*time.Hour, cfg.Holidays.CacheTTL)
	assert.False(t, cfg.Migrations.Auto)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("DEFAULT_TOTAL_SESSIONS", 0)
	v.Set("HOLIDAY_CACHE_TTL", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	v.Set("CLINIC_TIMEZONE", "Nowhere/Invalid")

	cfg := fromViper(v)

	assert.Equal(t, 30, cfg.Clinic.TotalSessions)
	assert.Equal(t, 12*time.Hour, cfg.Holidays.CacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, time.UTC, cfg.Clinic.Location())
}

func TestDatabaseURL(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "rtms", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/rtms?sslmode=disable", c.URL())
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=rtms sslmode=disable", c.DSN())
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("NOTIFY_ALLOWED_ORIGINS", "")

	cfg := Load()
	require.Equal(t, ":9090", cfg.HTTPAddr)
	require.Equal(t, 7*24*time.Hour, cfg.Session.TTL)
	require.Equal(t, "downpayment_screenshots", cfg.Storage.Bucket)
	require.Contains(t, cfg.NotifyAllowedOrigins, "https://lastrada-eg.com")
}

func TestEnvList_TrimsAndDropsEmpty(t *testing.T) {
	t.Setenv("X_LIST", " a , ,b,\tc ")
	require.Equal(t, []string{"a", "b", "c"}, envList("X_LIST", ""))
}

func TestLocation_FallsBackToUTC(t *testing.T) {
	cfg := Config{BusinessTimezone: "Not/AZone"}
	require.Equal(t, time.UTC, cfg.Location())
}

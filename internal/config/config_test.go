package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimitDefaultsAndClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "10s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	c := LoadRateLimitConfig()
	assert.Equal(t, 1, c.Capacity)
	assert.Equal(t, 50*time.Second, c.TTL)
	assert.Equal(t, "user_route", c.KeyStrategy)
}

func TestCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	c := LoadCacheConfig()
	assert.True(t, c.Methods["GET"])
	assert.True(t, c.Methods["HEAD"])
	assert.False(t, c.Methods["POST"])
	assert.Equal(t, 30*time.Second, c.TTL)
}

func TestDerivedDurations(t *testing.T) {
	c := Config{SlotLengthMin: 0, CheckinLeadMin: 60, HallTimezone: DefaultHallTimezone}
	assert.Equal(t, time.Hour, c.SlotLength())
	assert.Equal(t, time.Hour, c.CheckinLead())
	assert.Equal(t, "Europe/Belgrade", c.HallLocation().String())
	assert.Equal(t, []string{"a:9092", "b:9092"}, splitList(" a:9092, ,b:9092"))
}

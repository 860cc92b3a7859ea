package redis

import (
	"context"
	"testing"
	"time"

	"github.com/wonny/rsqm/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(&config.Config{
		Redis: config.RedisConfig{Enabled: false},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)

	if client.Enabled() {
		t.Error("Expected client to be disabled")
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "rsqm")

	// When Redis is disabled, all requests should be allowed
	allowed, remaining, err := limiter.Allow(context.Background(), YahooRateLimit)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Error("Expected request to be allowed when Redis disabled")
	}
	if remaining != YahooRateLimit.Limit {
		t.Errorf("Expected remaining = %d, got %d", YahooRateLimit.Limit, remaining)
	}
}

func TestBoundLimiter_Disabled(t *testing.T) {
	bound := NewRateLimiter(disabledClient(t), "rsqm").Bind(NSERateLimit)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < NSERateLimit.Limit*2; i++ {
		if err := bound.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "rsqm")

	if cache.Enabled() {
		t.Error("Expected cache to be disabled")
	}

	// When Redis is disabled, cache operations should be no-ops
	if err := cache.Set(context.Background(), "key", "value", TTLShort); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var result string
	found, err := cache.Get(context.Background(), "key", &result)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Expected cache miss when Redis disabled")
	}

	var nilCache *Cache
	if nilCache.Enabled() {
		t.Error("nil cache must report disabled")
	}
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"WatchlistKey", WatchlistKey("50"), "watchlist:nifty50"},
		{"UniverseKey", UniverseKey("200", "2024-01-15"), "universe:nifty200:2024-01-15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}

func TestClient_DisabledIsNilSafe(t *testing.T) {
	var nilClient *Client
	if nilClient.Enabled() {
		t.Error("nil client must be disabled")
	}
	if nilClient.Addr() != "" || nilClient.Redis() != nil {
		t.Error("nil client must expose no connection")
	}

	client := disabledClient(t)
	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping() on disabled client error = %v", err)
	}
}

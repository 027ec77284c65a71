package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig is one endpoint's budget. Paths ending in "/" are matched
// as prefixes, everything else matches exactly.
type EndpointConfig struct {
	Path   string
	Method string
	Limit  int // requests per Window
	Window time.Duration
	Burst  int // defaults to Limit when 0
}

// Config holds the limiter's settings.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Endpoints       []EndpointConfig
}

// LoadConfig reads limiter settings from the environment, falling back to
// sensible defaults. Endpoint budgets are fixed, not configurable.
func LoadConfig() *Config {
	if !getEnvBool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    getEnvInt("RATE_LIMIT_DEFAULT_LIMIT", 300),
		DefaultWindow:   getEnvDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		Endpoints:       defaultEndpoints(),
	}
}

// defaultEndpoints budgets the routes by how hard they lean on archive.org.
// Job creation and ad-hoc lookups trigger CDX sweeps and page fetches, so
// they get the tightest budgets. Signals are served from cache most of the
// time. Health is unthrottled.
func defaultEndpoints() []EndpointConfig {
	return []EndpointConfig{
		{Path: "/health", Method: "GET", Limit: 0},

		{Path: "/api/wayback/", Method: "POST", Limit: 12, Window: time.Hour, Burst: 3},
		{Path: "/api/wayback/", Method: "GET", Limit: 30, Window: time.Minute, Burst: 10},
		{Path: "/api/wayback/", Method: "DELETE", Limit: 30, Window: time.Minute, Burst: 10},

		{Path: "/api/signals/", Method: "GET", Limit: 120, Window: time.Minute, Burst: 30},
	}
}

// match finds the budget for a path+method, preferring exact path matches
// over prefix matches. Returns nil when only the default applies.
func (c *Config) match(path, method string) *EndpointConfig {
	for i := range c.Endpoints {
		ep := &c.Endpoints[i]
		if ep.Path == path && (ep.Method == method || ep.Method == "") {
			return ep
		}
	}
	for i := range c.Endpoints {
		ep := &c.Endpoints[i]
		if !strings.HasSuffix(ep.Path, "/") {
			continue
		}
		if strings.HasPrefix(path, ep.Path) && (ep.Method == method || ep.Method == "") {
			return ep
		}
	}
	return nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

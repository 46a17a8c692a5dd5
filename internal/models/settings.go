package models

import (
	"strings"
	"time"
)

// Setting keys stored in the single-row settings tables.
const (
	CorsConfigKey      = "default"
	RatelimitConfigKey = "default"
)

// CorsConfig is the operator-managed CORS policy. AllowedOrigins is stored
// as a comma separated list.
type CorsConfig struct {
	ConfigKey        string    `json:"config_key"`
	AllowedOrigins   string    `json:"allowed_origins"`
	AllowCredentials bool      `json:"allow_credentials"`
	MaxAge           int       `json:"max_age"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Origins returns the configured origins, trimmed and deduplicated.
func (c *CorsConfig) Origins() []string {
	return SplitOrigins(c.AllowedOrigins)
}

// SplitOrigins parses a comma separated origin list, dropping blanks and
// repeats while keeping the first-seen order.
func SplitOrigins(raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, dup := seen[origin]; dup {
			continue
		}
		seen[origin] = struct{}{}
		out = append(out, origin)
	}
	return out
}

// RatelimitConfig is the operator-managed request rate in limiter
// notation, e.g. "100-M".
type RatelimitConfig struct {
	ConfigKey string    `json:"config_key"`
	Rate      string    `json:"rate"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

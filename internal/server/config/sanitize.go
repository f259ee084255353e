package config

import (
	"slices"
	"strings"

	"github.com/yndnr/ovecore-go/internal/telemetry/logger"
)

// Sanitize returns a copy of cfg that is safe to log. The Redis password
// is masked and credentials embedded in peer and seed URLs are replaced.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	out := *cfg

	if out.Peers.Redis.Password != "" {
		out.Peers.Redis.Password = maskSecret(out.Peers.Redis.Password)
	}
	out.Peers.URLs = redactAll(cfg.Peers.URLs)
	out.Peers.Gossip.Seeds = slices.Clone(cfg.Peers.Gossip.Seeds)

	return &out
}

func redactAll(urls []string) []string {
	if urls == nil {
		return nil
	}
	redacted := make([]string, len(urls))
	for i, u := range urls {
		redacted[i] = logger.RedactURL(u)
	}
	return redacted
}

// maskSecret keeps the first and last two characters of s.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

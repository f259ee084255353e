package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if cfg.Spaces.File == "" {
		return errors.New("spaces.file is required")
	}
	if err := verifyIntervals(cfg); err != nil {
		return err
	}
	if err := verifyPeers(&cfg.Peers); err != nil {
		return err
	}
	return nil
}

func verifyServer(cfg *ServerSection) error {
	if !validHostPort(cfg.HTTP.Addr) {
		return fmt.Errorf("server.http.addr %q must be host:port", cfg.HTTP.Addr)
	}
	if cfg.PublicHost != "" && !validHostPort(cfg.PublicHost) {
		return fmt.Errorf("server.public_host %q must be host:port", cfg.PublicHost)
	}
	switch cfg.Protocol {
	case "http", "https":
	default:
		return fmt.Errorf("server.protocol must be http or https, got %q", cfg.Protocol)
	}

	if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
		return errors.New("server.http.tls_cert_file and tls_key_file must be set together")
	}
	for _, f := range []string{cfg.HTTP.TLSCertFile, cfg.HTTP.TLSKeyFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("tls file: %w", err)
		}
	}

	if cfg.RateLimit < 0 || cfg.RateBurst < 0 {
		return errors.New("server.rate_limit and rate_burst must not be negative")
	}
	return nil
}

func verifyIntervals(cfg *ServerConfig) error {
	switch {
	case cfg.Replication.Timeout < 0:
		return errors.New("replication.timeout must not be negative")
	case cfg.Broadcast.UpdateDelay < 0:
		return errors.New("broadcast.update_delay must not be negative")
	case cfg.Broadcast.SendBuffer < 0:
		return errors.New("broadcast.send_buffer must not be negative")
	case cfg.Clock.AggregateInterval < 0:
		return errors.New("clock.aggregate_interval must not be negative")
	case cfg.Server.ShutdownTimeout < 0:
		return errors.New("server.shutdown_timeout must not be negative")
	}
	return nil
}

func verifyPeers(cfg *PeersSection) error {
	for _, raw := range cfg.URLs {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
			return fmt.Errorf("peers.urls: %q is not a ws:// or wss:// url", raw)
		}
	}
	if cfg.Redis.Enabled && strings.TrimSpace(cfg.Redis.Addr) == "" {
		return errors.New("peers.redis.addr is required when redis is enabled")
	}
	if cfg.Gossip.Enabled && (cfg.Gossip.BindPort <= 0 || cfg.Gossip.BindPort > 65535) {
		return errors.New("peers.gossip.bind_port is required when gossip is enabled")
	}
	return nil
}

package config

import (
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/google/uuid"

	"github.com/yndnr/ovecore-go/internal/core/domain"
	"github.com/yndnr/ovecore-go/internal/server/peering"
)

// SelfEndpoint returns the endpoint other instances use to reach this one.
func SelfEndpoint(cfg *ServerConfig) domain.Endpoint {
	host := cfg.Server.PublicHost
	if host == "" {
		host = cfg.Server.HTTP.Addr
	}
	return domain.Endpoint{Host: host, Protocol: cfg.Server.Protocol}
}

// SocketURL returns the WebSocket URL of this instance's hub.
func SocketURL(cfg *ServerConfig) string {
	scheme := "ws"
	if cfg.Server.Protocol == "https" {
		scheme = "wss"
	}
	return scheme + "://" + SelfEndpoint(cfg).Host + "/ws"
}

// ToRedisConfig converts the peers.redis section to peering.RedisConfig.
func ToRedisConfig(cfg *ServerConfig, logger *slog.Logger) peering.RedisConfig {
	return peering.RedisConfig{
		Addr:     cfg.Peers.Redis.Addr,
		Password: cfg.Peers.Redis.Password,
		Channel:  cfg.Peers.Redis.Channel,
		Timeout:  cfg.Replication.Timeout,
		Logger:   logger,
	}
}

// ToDiscoveryConfig converts the peers.gossip section to
// peering.DiscoveryConfig. A node name is generated when none is set.
func ToDiscoveryConfig(cfg *ServerConfig, logger *slog.Logger) (peering.DiscoveryConfig, error) {
	if cfg == nil {
		return peering.DiscoveryConfig{}, fmt.Errorf("server config is nil")
	}

	gossip := cfg.Peers.Gossip
	name := gossip.NodeName
	if name == "" {
		name = generateNodeName()
		logger.Info("generated gossip node name", "node_name", name)
	}

	return peering.DiscoveryConfig{
		NodeName:  name,
		BindAddr:  gossip.BindAddr,
		BindPort:  gossip.BindPort,
		SocketURL: SocketURL(cfg),
		Seeds:     gossip.Seeds,
		Logger:    logger,
	}, nil
}

// generateNodeName returns a unique gossip node name.
//
// Format: ovenode-<12 hex chars>
func generateNodeName() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ovenode-" + id[:12]
}

func validHostPort(addr string) bool {
	host, port, err := net.SplitHostPort(addr)
	return err == nil && port != "" && (host == "" || !strings.ContainsAny(host, "/ "))
}

package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr        = "127.0.0.1:8080"
	DefaultProtocol        = "http"
	DefaultShutdownTimeout = 15 * time.Second

	DefaultSpacesFile = "spaces.yaml"

	DefaultReplicationTimeout = 10 * time.Second
	DefaultUpdateDelay        = 350 * time.Millisecond
	DefaultSendBuffer         = 256
	DefaultAggregateInterval  = 30 * time.Second

	DefaultRedisAddr    = "127.0.0.1:6379"
	DefaultRedisChannel = "ovecore:broadcast"
	DefaultGossipAddr   = "0.0.0.0"
	DefaultGossipPort   = 7946

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr: DefaultHTTPAddr,
			},
			Protocol:        DefaultProtocol,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Spaces: SpacesSection{
			File: DefaultSpacesFile,
		},
		Replication: ReplicationSection{
			Timeout: DefaultReplicationTimeout,
		},
		Broadcast: BroadcastSection{
			UpdateDelay: DefaultUpdateDelay,
			SendBuffer:  DefaultSendBuffer,
		},
		Clock: ClockSection{
			AggregateInterval: DefaultAggregateInterval,
		},
		Peers: PeersSection{
			Redis: RedisConfig{
				Addr:    DefaultRedisAddr,
				Channel: DefaultRedisChannel,
			},
			Gossip: GossipConfig{
				BindAddr: DefaultGossipAddr,
				BindPort: DefaultGossipPort,
			},
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Metrics: MetricsSection{
			Enabled: true,
		},
	}
}

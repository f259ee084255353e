package config

import "time"

// ServerConfig is the root configuration of an ovecore-server instance.
type ServerConfig struct {
	Server      ServerSection      `koanf:"server"`
	Spaces      SpacesSection      `koanf:"spaces"`
	Replication ReplicationSection `koanf:"replication"`
	Broadcast   BroadcastSection   `koanf:"broadcast"`
	Clock       ClockSection       `koanf:"clock"`
	Peers       PeersSection       `koanf:"peers"`
	Log         LogSection         `koanf:"log"`
	Metrics     MetricsSection     `koanf:"metrics"`
}

// ServerSection configures the HTTP and WebSocket listener.
type ServerSection struct {
	HTTP HTTPConfig `koanf:"http"`

	// PublicHost is the host:port other instances use to reach this one.
	// Defaults to the listen address.
	PublicHost string `koanf:"public_host"`

	// Protocol is http or https.
	Protocol string `koanf:"protocol"`

	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// RateLimit is the REST request rate per client IP (0 = unlimited).
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// HTTPConfig holds listener settings.
type HTTPConfig struct {
	Addr        string `koanf:"addr"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`
}

// SpacesSection locates the space layout file.
type SpacesSection struct {
	File string `koanf:"file"`
}

// ReplicationSection configures outbound calls to application servers and
// remote instances.
type ReplicationSection struct {
	Timeout time.Duration `koanf:"timeout"`
}

// BroadcastSection configures the WebSocket hub.
type BroadcastSection struct {
	// UpdateDelay separates the CREATE and UPDATE replayed on READ.
	UpdateDelay time.Duration `koanf:"update_delay"`

	// SendBuffer is the number of frames queued per socket.
	SendBuffer int `koanf:"send_buffer"`
}

// ClockSection configures the clock service.
type ClockSection struct {
	AggregateInterval time.Duration `koanf:"aggregate_interval"`

	// ServerDiff is the offset inherited from an enclosing time source.
	ServerDiff int64 `koanf:"server_diff"`
}

// PeersSection configures the transports relaying broadcasts between
// instances. Any combination may be enabled.
type PeersSection struct {
	// URLs are WebSocket URLs of peer instances, e.g. ws://host:8080/ws.
	URLs   []string     `koanf:"urls"`
	Redis  RedisConfig  `koanf:"redis"`
	Gossip GossipConfig `koanf:"gossip"`
}

// RedisConfig configures the Redis pub/sub relay.
type RedisConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	Channel  string `koanf:"channel"`
}

// GossipConfig configures memberlist peer discovery.
type GossipConfig struct {
	Enabled  bool     `koanf:"enabled"`
	NodeName string   `koanf:"node_name"`
	BindAddr string   `koanf:"bind_addr"`
	BindPort int      `koanf:"bind_port"`
	Seeds    []string `koanf:"seeds"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// MetricsSection configures the /metrics endpoint.
type MetricsSection struct {
	Enabled bool `koanf:"enabled"`
}

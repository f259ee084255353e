package peering

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/memberlist"
)

// Discovery handles peer discovery using the gossip protocol.
type Discovery struct {
	memberList *memberlist.Memberlist
	localName  string
	logger     *slog.Logger

	mu       sync.Mutex
	shutdown bool

	// Callbacks
	onJoin  func(name, url string)
	onLeave func(name, url string)
}

// DiscoveryConfig configures the discovery mechanism.
type DiscoveryConfig struct {
	// NodeName is the unique node name. Defaults to the hostname.
	NodeName string

	// BindAddr is the address to bind for gossip communication.
	BindAddr string

	// BindPort is the port to bind for gossip communication.
	BindPort int

	// SocketURL is the WebSocket URL peers dial to reach this instance.
	// It is stored in node metadata.
	SocketURL string

	// Seeds are the initial nodes to join.
	Seeds []string

	// Logger for logging.
	Logger *slog.Logger
}

// nodeMetadata is gossiped with every member.
type nodeMetadata struct {
	SocketURL string `json:"socket_url"`
}

// NewDiscovery creates a discovery instance. Callbacks must be registered
// before Join so that no member is missed.
func NewDiscovery(cfg DiscoveryConfig) (*Discovery, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	meta, err := json.Marshal(nodeMetadata{SocketURL: cfg.SocketURL})
	if err != nil {
		return nil, fmt.Errorf("encode node metadata: %w", err)
	}

	d := &Discovery{logger: cfg.Logger.With("component", "discovery")}

	mlConfig := memberlist.DefaultLANConfig()
	if cfg.NodeName != "" {
		mlConfig.Name = cfg.NodeName
	}
	d.localName = mlConfig.Name
	mlConfig.BindAddr = cfg.BindAddr
	mlConfig.BindPort = cfg.BindPort
	mlConfig.Delegate = &metadataDelegate{meta: meta}
	mlConfig.Events = &eventDelegate{discovery: d}
	mlConfig.Logger = newGossipLogger(cfg.Logger)

	ml, err := memberlist.Create(mlConfig)
	if err != nil {
		return nil, fmt.Errorf("create memberlist: %w", err)
	}
	d.memberList = ml
	return d, nil
}

// Join contacts the seed nodes. With no seeds the node bootstraps alone.
func (d *Discovery) Join(seeds []string) error {
	if len(seeds) == 0 {
		d.logger.Info("started discovery (bootstrap mode)", "node", d.memberList.LocalNode().Name)
		return nil
	}
	n, err := d.memberList.Join(seeds)
	if err != nil {
		return fmt.Errorf("join seed nodes: %w", err)
	}
	d.logger.Info("joined gossip cluster", "seeds", seeds, "joined_count", n)
	return nil
}

// Addr returns the host:port other nodes use to join this one.
func (d *Discovery) Addr() string {
	node := d.memberList.LocalNode()
	return net.JoinHostPort(node.Addr.String(), strconv.Itoa(int(node.Port)))
}

// Members returns the socket URLs of every live member but this one.
func (d *Discovery) Members() []string {
	var out []string
	for _, node := range d.memberList.Members() {
		if node.Name == d.localName {
			continue
		}
		if url := socketURL(node); url != "" {
			out = append(out, url)
		}
	}
	return out
}

// Leave gracefully leaves the cluster.
func (d *Discovery) Leave() error {
	if err := d.memberList.Leave(0); err != nil {
		d.logger.Error("failed to leave cluster", "error", err)
		return err
	}
	d.logger.Info("left gossip cluster")
	return nil
}

// Shutdown stops the discovery mechanism.
func (d *Discovery) Shutdown() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.shutdown {
		return nil
	}
	d.shutdown = true

	if err := d.memberList.Shutdown(); err != nil {
		return fmt.Errorf("shutdown memberlist: %w", err)
	}
	return nil
}

// OnJoin registers a callback for member join events.
func (d *Discovery) OnJoin(fn func(name, url string)) {
	d.onJoin = fn
}

// OnLeave registers a callback for member leave events.
func (d *Discovery) OnLeave(fn func(name, url string)) {
	d.onLeave = fn
}

func socketURL(node *memberlist.Node) string {
	var meta nodeMetadata
	if err := json.Unmarshal(node.Meta, &meta); err != nil {
		return ""
	}
	return meta.SocketURL
}

// eventDelegate implements memberlist.EventDelegate.
type eventDelegate struct {
	discovery *Discovery
}

// NotifyJoin is called when a node joins.
func (e *eventDelegate) NotifyJoin(node *memberlist.Node) {
	d := e.discovery
	if node.Name == d.localName {
		return
	}

	url := socketURL(node)
	if url == "" {
		d.logger.Warn("node joined without socket url", "node", node.Name, "addr", node.Addr.String())
		return
	}
	d.logger.Info("node joined", "node", node.Name, "socket_url", url)
	if d.onJoin != nil {
		d.onJoin(node.Name, url)
	}
}

// NotifyLeave is called when a node leaves.
func (e *eventDelegate) NotifyLeave(node *memberlist.Node) {
	d := e.discovery
	d.logger.Info("node left", "node", node.Name, "addr", node.Addr.String())
	if d.onLeave != nil {
		d.onLeave(node.Name, socketURL(node))
	}
}

// NotifyUpdate is called when a node is updated.
func (e *eventDelegate) NotifyUpdate(node *memberlist.Node) {
	e.discovery.logger.Debug("node updated", "node", node.Name)
}

// metadataDelegate provides node metadata to memberlist.
type metadataDelegate struct {
	meta []byte
}

// NodeMeta returns metadata about this node (up to limit bytes).
func (m *metadataDelegate) NodeMeta(limit int) []byte {
	if len(m.meta) > limit {
		return m.meta[:limit]
	}
	return m.meta
}

func (m *metadataDelegate) NotifyMsg([]byte)                           {}
func (m *metadataDelegate) GetBroadcasts(overhead, limit int) [][]byte { return nil }
func (m *metadataDelegate) LocalState(join bool) []byte                { return nil }
func (m *metadataDelegate) MergeRemoteState(buf []byte, join bool)     {}

// newGossipLogger routes memberlist's standard logger through hclog,
// keeping warnings and errors only, into slog.
func newGossipLogger(logger *slog.Logger) *log.Logger {
	hl := hclog.New(&hclog.LoggerOptions{
		Name:   "memberlist",
		Level:  hclog.Warn,
		Output: &slogWriter{logger: logger},
	})
	return hl.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true})
}

// slogWriter adapts slog.Logger to io.Writer.
type slogWriter struct {
	logger *slog.Logger
}

var _ io.Writer = (*slogWriter)(nil)

// Write implements io.Writer.
func (w *slogWriter) Write(p []byte) (int, error) {
	w.logger.Warn(strings.TrimSpace(string(p)), "component", "memberlist")
	return len(p), nil
}

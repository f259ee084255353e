package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Counter reports a live count.
type Counter interface {
	Count() int
}

// CounterFunc adapts a function to Counter.
type CounterFunc func() int

// Count implements Counter.
func (f CounterFunc) Count() int { return f() }

// Collector reports the live state of an instance at scrape time.
type Collector struct {
	sections    Counter
	connections Counter
	sockets     Counter
	peers       Counter

	sectionsDesc    *prometheus.Desc
	connectionsDesc *prometheus.Desc
	socketsDesc     *prometheus.Desc
	peersDesc       *prometheus.Desc
}

// NewCollector creates a collector. A nil source is not reported.
func NewCollector(sections, connections, sockets, peers Counter) *Collector {
	return &Collector{
		sections:    sections,
		connections: connections,
		sockets:     sockets,
		peers:       peers,

		sectionsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "registry", "sections"),
			"Live sections in the registry", nil, nil),
		connectionsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "registry", "connections"),
			"Replication connections with a primary on this instance", nil, nil),
		socketsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "hub", "sockets"),
			"Open WebSocket connections", nil, nil),
		peersDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "peering", "peers"),
			"Peer instances relayed to", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.sectionsDesc
	ch <- c.connectionsDesc
	ch <- c.socketsDesc
	ch <- c.peersDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.gauge(ch, c.sectionsDesc, c.sections)
	c.gauge(ch, c.connectionsDesc, c.connections)
	c.gauge(ch, c.socketsDesc, c.sockets)
	c.gauge(ch, c.peersDesc, c.peers)
}

func (c *Collector) gauge(ch chan<- prometheus.Metric, desc *prometheus.Desc, src Counter) {
	if src == nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(src.Count()))
}

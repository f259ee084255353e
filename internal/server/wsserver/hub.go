package wsserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/yndnr/ovecore-go/internal/core/clock"
	"github.com/yndnr/ovecore-go/internal/core/domain"
	"github.com/yndnr/ovecore-go/internal/core/service"
	"github.com/yndnr/ovecore-go/pkg/cmap"
)

const (
	// DefaultSendBuffer is the number of messages queued per socket.
	DefaultSendBuffer = 256

	// DefaultAggregateInterval is the period of the clock aggregation.
	DefaultAggregateInterval = 30 * time.Second
)

// SectionLister provides the sections replayed on a READ request.
type SectionLister interface {
	List(ctx context.Context, filter *service.SectionFilter) ([]*domain.Section, error)
}

// Relay carries envelopes to peer instances. Implementations must not block.
type Relay interface {
	Relay(env *domain.Envelope)
}

// Observer receives hub events, typically for metrics.
type Observer interface {
	// Broadcast is called once per fan-out with the number of sockets reached.
	Broadcast(kind domain.Kind, delivered int)

	// SendDropped is called when a socket's buffer is full.
	SendDropped()

	// RelayLooped is called when a peer envelope already carries this instance.
	RelayLooped()
}

type nopObserver struct{}

func (nopObserver) Broadcast(domain.Kind, int) {}
func (nopObserver) SendDropped()               {}
func (nopObserver) RelayLooped()               {}

// Config configures a Hub.
type Config struct {
	// InstanceID identifies this instance in forwardedBy lists.
	// A random uuid is used when empty.
	InstanceID string

	// UpdateDelay is the pause between a READ replay's CREATE and UPDATE messages.
	UpdateDelay time.Duration

	// SendBuffer is the number of messages queued per socket.
	SendBuffer int

	// AggregateInterval is the period of the clock aggregation.
	AggregateInterval time.Duration

	Logger   *slog.Logger
	Observer Observer
}

// Hub is the set of live sockets of an instance.
type Hub struct {
	id       string
	sections SectionLister
	book     *clock.Book
	cfg      Config
	logger   *slog.Logger
	observer Observer

	upgrader websocket.Upgrader
	sockets  *cmap.Map[uint64, *Socket]
	nextID   atomic.Uint64

	relayMu sync.RWMutex
	relays  []Relay

	wg sync.WaitGroup
}

// NewHub creates a Hub.
func NewHub(sections SectionLister, book *clock.Book, cfg Config) *Hub {
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultSendBuffer
	}
	if cfg.AggregateInterval <= 0 {
		cfg.AggregateInterval = DefaultAggregateInterval
	}
	if cfg.UpdateDelay <= 0 {
		cfg.UpdateDelay = service.DefaultUpdateDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	if book == nil {
		book = clock.NewBook(0)
	}

	return &Hub{
		id:       cfg.InstanceID,
		sections: sections,
		book:     book,
		cfg:      cfg,
		logger:   cfg.Logger.With("component", "hub"),
		observer: cfg.Observer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Display browsers load from arbitrary origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sockets: cmap.New[uint64, *Socket](),
	}
}

// InstanceID returns the id this instance adds to forwardedBy.
func (h *Hub) InstanceID() string {
	return h.id
}

// Count returns the number of live sockets.
func (h *Hub) Count() int {
	return h.sockets.Count()
}

// AddRelay registers a peer transport.
func (h *Hub) AddRelay(r Relay) {
	h.relayMu.Lock()
	defer h.relayMu.Unlock()

	h.relays = append(h.relays, r)
}

// ServeHTTP upgrades the request and serves the socket until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	s := newSocket(h.nextID.Add(1), conn, h.cfg.SendBuffer, h.logger)
	h.sockets.Set(s.id, s)
	h.logger.Debug("socket opened", "socket", s.id, "remote", r.RemoteAddr)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		s.writePump()
	}()

	s.readPump(func(data []byte) { h.handle(s, data) })
	h.remove(s)
}

func (h *Hub) remove(s *Socket) {
	h.sockets.Delete(s.id)
	if s.clockID != "" {
		h.book.Forget(s.clockID)
	}
	s.close()
	h.logger.Debug("socket closed", "socket", s.id)
}

// Run drives the clock aggregation until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.AggregateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.AggregateClock()
		}
	}
}

// Close disconnects every socket and waits for their writers to stop.
func (h *Hub) Close() {
	for _, s := range h.sockets.Clear() {
		s.close()
	}
	h.wg.Wait()
}

// ============================================================================
// service.Notifier
// ============================================================================

// Announce sends a section lifecycle message to the sockets it targets
// and relays it to peer instances.
func (h *Hub) Announce(msg *domain.CoreMessage) {
	env, err := domain.NewCoreEnvelope(msg)
	if err != nil {
		h.logger.Error("failed to encode core message", "action", msg.Action, "error", err)
		return
	}
	if msg.Action == domain.ActionRefresh && msg.ID != nil {
		env.SectionID = domain.RefOf(*msg.ID)
	}

	h.dispatch(env, domain.KindCore, msg, nil)
	h.relay(env)
}

// Deliver sends an application envelope to the sockets of its section.
func (h *Hub) Deliver(env *domain.Envelope) {
	h.dispatch(env, env.Kind(), nil, nil)
}

// ============================================================================
// Inbound
// ============================================================================

func (h *Hub) handle(s *Socket, data []byte) {
	env, kind, err := domain.DecodeEnvelope(data)
	if err != nil {
		h.logger.Debug("ignoring malformed frame", "socket", s.id, "error", err)
		return
	}

	if len(env.ForwardedBy) > 0 {
		h.Receive(env)
		return
	}

	switch kind {
	case domain.KindRegistration:
		h.register(s, env.Registration)
	case domain.KindSync:
		h.handleSync(s, env)
	case domain.KindSyncResults:
		h.handleSyncResults(s, env)
	case domain.KindCore:
		h.handleCore(s, env)
	case domain.KindApp:
		h.dispatch(env, kind, nil, s)
		h.relay(env)
	default:
		h.logger.Debug("ignoring frame", "socket", s.id, "kind", kind)
	}
}

func (h *Hub) register(s *Socket, reg *domain.Registration) {
	if !reg.IsSection() && !reg.IsSpace() {
		h.logger.Debug("ignoring incomplete registration", "socket", s.id)
		return
	}
	cp := *reg
	s.reg.Store(&cp)
	h.logger.Debug("socket registered", "socket", s.id,
		"space", cp.Space, "section_id", string(cp.SectionID))
}

func (h *Hub) handleCore(s *Socket, env *domain.Envelope) {
	msg, err := env.Core()
	if err != nil {
		h.logger.Debug("ignoring malformed core message", "socket", s.id, "error", err)
		return
	}
	if msg.Action != domain.ActionRead {
		h.logger.Debug("ignoring core action from socket", "socket", s.id, "action", msg.Action)
		return
	}
	if env.SectionID != "" {
		h.logger.Warn("rejected READ from section socket", "socket", s.id, "section_id", string(env.SectionID))
		return
	}
	h.replay(s)
}

// Receive applies an envelope relayed by a peer instance and passes it on.
// Envelopes already relayed by this instance are dropped.
func (h *Hub) Receive(env *domain.Envelope) {
	h.receive(env, nil)
}

// Inbound applies envelopes arriving over one relay.
type Inbound struct {
	hub *Hub
	via Relay
}

// Via returns the receiver for envelopes that arrive over r. They are
// passed on to the other relays only; a shared channel such as Redis
// already reached every instance.
func (h *Hub) Via(r Relay) *Inbound {
	return &Inbound{hub: h, via: r}
}

// Receive applies env and relays it everywhere except back to its source.
func (in *Inbound) Receive(env *domain.Envelope) {
	in.hub.receive(env, in.via)
}

func (h *Hub) receive(env *domain.Envelope, via Relay) {
	if env.ForwardedByContains(h.id) {
		h.observer.RelayLooped()
		h.logger.Debug("dropping relayed envelope", "app_id", env.AppID, "hops", len(env.ForwardedBy))
		return
	}

	kind := env.Kind()
	var msg *domain.CoreMessage
	switch kind {
	case domain.KindCore:
		m, err := env.Core()
		if err != nil {
			h.logger.Debug("ignoring malformed relayed message", "error", err)
			return
		}
		msg = m
	case domain.KindApp:
	default:
		h.logger.Debug("ignoring relayed frame", "kind", kind)
		return
	}

	h.dispatch(env, kind, msg, nil)
	h.relayExcept(env, via)
}

// ============================================================================
// Outbound
// ============================================================================

// dispatch sends env to every socket that accepts it, except from.
func (h *Hub) dispatch(env *domain.Envelope, kind domain.Kind, msg *domain.CoreMessage, from *Socket) int {
	data, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("failed to encode envelope", "kind", kind, "error", err)
		return 0
	}

	delivered := 0
	h.sockets.Range(func(_ uint64, s *Socket) bool {
		if s == from || !accepts(s.Registration(), env, kind, msg) {
			return true
		}
		if h.sendTo(s, data) {
			delivered++
		}
		return true
	})
	h.observer.Broadcast(kind, delivered)
	return delivered
}

func (h *Hub) sendTo(s *Socket, data []byte) bool {
	switch s.enqueue(data) {
	case sent:
		return true
	case dropped:
		h.observer.SendDropped()
		h.logger.Warn("socket send buffer full, message dropped", "socket", s.id)
	}
	return false
}

func (h *Hub) sendEnvelope(s *Socket, env *domain.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("failed to encode envelope", "error", err)
		return
	}
	h.sendTo(s, data)
}

func (h *Hub) relay(env *domain.Envelope) {
	h.relayExcept(env, nil)
}

func (h *Hub) relayExcept(env *domain.Envelope, skip Relay) {
	h.relayMu.RLock()
	relays := h.relays
	h.relayMu.RUnlock()

	var out *domain.Envelope
	for _, r := range relays {
		if r == skip {
			continue
		}
		if out == nil {
			out = env.Forwarded(h.id)
		}
		r.Relay(out)
	}
}

// replay sends the sections visible to a space socket, then their
// application bindings after the update delay.
func (h *Hub) replay(s *Socket) {
	reg := s.Registration()
	if !reg.IsSpace() || h.sections == nil {
		h.logger.Debug("ignoring READ from unregistered socket", "socket", s.id)
		return
	}

	sections, err := h.sections.List(context.Background(), &service.SectionFilter{Space: reg.Space})
	if err != nil {
		h.logger.Warn("failed to list sections for replay", "socket", s.id, "error", err)
		return
	}

	var updates []*domain.CoreMessage
	for _, section := range sections {
		id := section.ID
		create := &domain.CoreMessage{Action: domain.ActionCreate, ID: &id, Spaces: section.Spaces}
		if !coversClient(create, reg) {
			continue
		}
		env, err := domain.NewCoreEnvelope(create)
		if err != nil {
			continue
		}
		h.sendEnvelope(s, env)
		if section.App != nil {
			updates = append(updates, &domain.CoreMessage{Action: domain.ActionUpdate, ID: &id, App: section.App})
		}
	}
	if len(updates) == 0 {
		return
	}

	s.setReplay(time.AfterFunc(h.cfg.UpdateDelay, func() {
		for _, msg := range updates {
			if env, err := domain.NewCoreEnvelope(msg); err == nil {
				h.sendEnvelope(s, env)
			}
		}
	}))
}

package wsserver

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yndnr/ovecore-go/internal/core/domain"
	"github.com/yndnr/ovecore-go/internal/core/service"
	"github.com/yndnr/ovecore-go/internal/telemetry/logger"
)

type staticSections []*domain.Section

func (s staticSections) List(_ context.Context, filter *service.SectionFilter) ([]*domain.Section, error) {
	var out []*domain.Section
	for _, section := range s {
		if filter.Space == "" || section.Space == filter.Space {
			out = append(out, section)
		}
	}
	return out, nil
}

type recordingRelay struct {
	mu   sync.Mutex
	envs []*domain.Envelope
}

func (r *recordingRelay) Relay(env *domain.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs = append(r.envs, env)
}

func (r *recordingRelay) all() []*domain.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.Envelope(nil), r.envs...)
}

// sharedBus delivers every published envelope to every subscriber,
// publisher included, the way a Redis channel does.
type sharedBus struct {
	mu   sync.Mutex
	subs []*busRelay
}

type busRelay struct {
	bus  *sharedBus
	recv *Inbound
}

func (b *sharedBus) join(hub *Hub) {
	r := &busRelay{bus: b}
	r.recv = hub.Via(r)
	hub.AddRelay(r)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, r)
}

func (r *busRelay) Relay(env *domain.Envelope) {
	r.bus.mu.Lock()
	subs := append([]*busRelay(nil), r.bus.subs...)
	r.bus.mu.Unlock()

	for _, sub := range subs {
		sub.recv.Receive(env)
	}
}

type countingObserver struct {
	mu      sync.Mutex
	looped  int
	dropped int
}

func (o *countingObserver) Broadcast(domain.Kind, int) {}

func (o *countingObserver) SendDropped() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dropped++
}

func (o *countingObserver) RelayLooped() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.looped++
}

func (o *countingObserver) loops() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.looped
}

type hubFixture struct {
	hub      *Hub
	server   *httptest.Server
	observer *countingObserver
}

func newHubFixture(t *testing.T, sections SectionLister) *hubFixture {
	t.Helper()
	return newInstanceFixture(t, "self", sections)
}

func newInstanceFixture(t *testing.T, id string, sections SectionLister) *hubFixture {
	t.Helper()

	observer := &countingObserver{}
	hub := NewHub(sections, nil, Config{
		InstanceID:  id,
		UpdateDelay: 20 * time.Millisecond,
		Logger:      logger.Nop(),
		Observer:    observer,
	})
	server := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})
	return &hubFixture{hub: hub, server: server, observer: observer}
}

func (f *hubFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(f.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// registered dials a socket and waits until the hub has bound reg to it.
func (f *hubFixture) registered(t *testing.T, reg string) *websocket.Conn {
	t.Helper()

	before := f.countRegistered()
	conn := f.dial(t)
	send(t, conn, `{"appId":"test","registration":`+reg+`}`)
	waitFor(t, func() bool { return f.countRegistered() == before+1 })
	return conn
}

func (f *hubFixture) countRegistered() int {
	n := 0
	f.hub.sockets.Range(func(_ uint64, s *Socket) bool {
		if s.Registration() != nil {
			n++
		}
		return true
	})
	return n
}

func send(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
}

func receive(t *testing.T, conn *websocket.Conn) *domain.Envelope {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var env domain.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("Unmarshal(%s) error = %v", data, err)
	}
	return &env
}

func receiveCore(t *testing.T, conn *websocket.Conn) *domain.CoreMessage {
	t.Helper()

	env := receive(t, conn)
	msg, err := env.Core()
	if err != nil {
		t.Fatalf("Core() error = %v", err)
	}
	return msg
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func intPtr(v int) *int {
	return &v
}

// layouts builds a spaces map where only client covers the section.
func layouts(space string, clients, client int) map[string][]domain.ClientLayout {
	out := make([]domain.ClientLayout, clients)
	for i := range out {
		out[i] = domain.ClientLayout{Empty: true}
	}
	out[client] = domain.ClientLayout{Rect: domain.Rect{W: 10, H: 10}}
	return map[string][]domain.ClientLayout{space: out}
}

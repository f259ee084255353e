package peering

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yndnr/ovecore-go/internal/core/domain"
	"github.com/yndnr/ovecore-go/internal/telemetry/logger"
)

// peerServer records the frames a link writes to it.
type peerServer struct {
	*httptest.Server

	mu     sync.Mutex
	frames []*domain.Envelope
}

func newPeerServer(t *testing.T) *peerServer {
	t.Helper()

	p := &peerServer{}
	upgrader := websocket.Upgrader{}
	p.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			env, _, err := domain.DecodeEnvelope(data)
			if err != nil {
				continue
			}
			p.mu.Lock()
			p.frames = append(p.frames, env)
			p.mu.Unlock()
		}
	}))
	t.Cleanup(p.Close)
	return p
}

func (p *peerServer) wsURL() string {
	return "ws" + strings.TrimPrefix(p.URL, "http")
}

func (p *peerServer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func relayed(appID string) *domain.Envelope {
	return &domain.Envelope{AppID: appID, Message: []byte(`{"n":1}`), ForwardedBy: []string{"a"}}
}

func TestLink_Relay(t *testing.T) {
	peer := newPeerServer(t)

	link := NewLink(peer.wsURL(), logger.Nop())
	link.Start(context.Background())
	defer link.Close()

	waitFor(t, link.Connected)
	link.Relay(relayed("maps"))
	waitFor(t, func() bool { return peer.count() == 1 })

	peer.mu.Lock()
	got := peer.frames[0]
	peer.mu.Unlock()
	if got.AppID != "maps" || len(got.ForwardedBy) != 1 || got.ForwardedBy[0] != "a" {
		t.Errorf("peer received %+v", got)
	}
}

func TestLink_QueuesWhileDown(t *testing.T) {
	peer := newPeerServer(t)

	link := NewLink(peer.wsURL(), logger.Nop())
	link.Relay(relayed("queued"))
	link.Start(context.Background())
	defer link.Close()

	waitFor(t, func() bool { return peer.count() == 1 })
}

func TestMesh(t *testing.T) {
	a := newPeerServer(t)
	b := newPeerServer(t)

	mesh := NewMesh(context.Background(), logger.Nop())
	defer mesh.Close()

	if !mesh.Add(b.wsURL()) || !mesh.Add(a.wsURL()) {
		t.Fatal("Add() = false for new peers")
	}
	if mesh.Add(a.wsURL()) {
		t.Error("Add() of known peer = true, want false")
	}
	if mesh.Add("") {
		t.Error("Add(\"\") = true, want false")
	}
	if got := mesh.Peers(); len(got) != 2 || got[0] > got[1] {
		t.Errorf("Peers() = %v, want 2 sorted urls", got)
	}

	mesh.Relay(relayed("x"))
	waitFor(t, func() bool { return a.count() == 1 && b.count() == 1 })

	if !mesh.Remove(a.wsURL()) {
		t.Error("Remove() = false for linked peer")
	}
	if mesh.Remove(a.wsURL()) {
		t.Error("second Remove() = true")
	}
	if got := mesh.Peers(); len(got) != 1 {
		t.Errorf("Peers() after Remove = %v", got)
	}
}

func TestDiscovery_JoinAnnouncesSocketURL(t *testing.T) {
	seed, err := NewDiscovery(DiscoveryConfig{
		NodeName:  "seed",
		BindAddr:  "127.0.0.1",
		SocketURL: "ws://seed:8080/ws",
		Logger:    logger.Nop(),
	})
	if err != nil {
		t.Fatalf("NewDiscovery(seed) error = %v", err)
	}
	defer seed.Shutdown()

	joiner, err := NewDiscovery(DiscoveryConfig{
		NodeName:  "joiner",
		BindAddr:  "127.0.0.1",
		SocketURL: "ws://joiner:8080/ws",
		Logger:    logger.Nop(),
	})
	if err != nil {
		t.Fatalf("NewDiscovery(joiner) error = %v", err)
	}
	defer joiner.Shutdown()

	var mu sync.Mutex
	joined := map[string]string{}
	joiner.OnJoin(func(name, url string) {
		mu.Lock()
		defer mu.Unlock()
		joined[name] = url
	})

	if err := joiner.Join([]string{seed.Addr()}); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return joined["seed"] == "ws://seed:8080/ws"
	})
	if got := joiner.Members(); len(got) != 1 || got[0] != "ws://seed:8080/ws" {
		t.Errorf("Members() = %v, want seed url only", got)
	}
}

type collectingReceiver struct {
	mu   sync.Mutex
	envs []*domain.Envelope
}

func (c *collectingReceiver) Receive(env *domain.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.envs = append(c.envs, env)
}

func TestRedisRelay(t *testing.T) {
	addr := os.Getenv("OVECORE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("OVECORE_TEST_REDIS_ADDR not set")
	}

	relay := NewRedisRelay(RedisConfig{Addr: addr, Channel: "ovecore:test", Logger: logger.Nop()})
	defer relay.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := relay.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	recv := &collectingReceiver{}
	go relay.Run(ctx, recv)

	// Subscription is asynchronous; keep publishing until one comes back.
	waitFor(t, func() bool {
		relay.Relay(relayed("redis"))
		recv.mu.Lock()
		defer recv.mu.Unlock()
		return len(recv.envs) > 0
	})
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/yndnr/ovecore-go/internal/core/domain"
	"github.com/yndnr/ovecore-go/internal/storage/memory"
)

// recordingNotifier captures everything announced to sockets.
type recordingNotifier struct {
	mu        sync.Mutex
	messages  []*domain.CoreMessage
	delivered []*domain.Envelope
}

func (n *recordingNotifier) Announce(msg *domain.CoreMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

func (n *recordingNotifier) Deliver(env *domain.Envelope) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delivered = append(n.delivered, env)
}

func (n *recordingNotifier) actions() []domain.Action {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.Action, len(n.messages))
	for i, m := range n.messages {
		out[i] = m.Action
	}
	return out
}

func (n *recordingNotifier) last() *domain.CoreMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		return nil
	}
	return n.messages[len(n.messages)-1]
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = nil
	n.delivered = nil
}

// fakeApps records application server calls.
type fakeApps struct {
	mu       sync.Mutex
	calls    []string
	states   map[string]json.RawMessage
	stateErr error
}

func newFakeApps() *fakeApps {
	return &fakeApps{states: make(map[string]json.RawMessage)}
}

func (a *fakeApps) record(call string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, call)
}

func (a *fakeApps) FlushInstance(_ context.Context, url string, id int) error {
	a.record(fmt.Sprintf("flush %s %d", url, id))
	return nil
}

func (a *fakeApps) FlushAll(_ context.Context, url string) error {
	a.record("flushall " + url)
	return nil
}

func (a *fakeApps) GetState(_ context.Context, url string, id int) (json.RawMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stateErr != nil {
		return nil, a.stateErr
	}
	state, ok := a.states[fmt.Sprintf("%s %d", url, id)]
	if !ok {
		return nil, errors.New("no state")
	}
	return state, nil
}

func (a *fakeApps) PostState(_ context.Context, url string, id int, state json.RawMessage) error {
	a.record(fmt.Sprintf("state %s %d %s", url, id, state))
	a.mu.Lock()
	defer a.mu.Unlock()
	a.states[fmt.Sprintf("%s %d", url, id)] = state
	return nil
}

func (a *fakeApps) PostNamedState(_ context.Context, url, name string, state json.RawMessage) error {
	a.record(fmt.Sprintf("named %s %s", url, name))
	return nil
}

func (a *fakeApps) count(call string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, c := range a.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (a *fakeApps) total() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

// testSpaces returns the spaces used across the service tests.
//
// Nine has nine clients; only client 6 sits at the origin. Wall is a
// 2x1 grid twice the size of Half, a 1x1 space.
func testSpaces() domain.Catalog {
	nine := make([]domain.ClientRegion, 9)
	for i := range nine {
		nine[i] = domain.ClientRegion{X: float64(100 + i*20), Y: 100, W: 20, H: 20}
	}
	nine[6] = domain.ClientRegion{X: 0, Y: 0, W: 20, H: 20}

	return domain.NewCatalog(map[string][]domain.ClientRegion{
		"Nine": nine,
		"Wall": {
			{X: 0, Y: 0, W: 100, H: 100},
			{X: 100, Y: 0, W: 100, H: 100},
		},
		"Half":  {{X: 0, Y: 0, W: 100, H: 50}},
		"Third": {{X: 0, Y: 0, W: 200, H: 100}},
	})
}

type fixture struct {
	sections *SectionService
	conns    *ConnectionService
	notifier *recordingNotifier
	apps     *fakeApps
	remote   *fakeRemote
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		notifier: &recordingNotifier{},
		apps:     newFakeApps(),
		remote:   newFakeRemote(),
	}
	f.sections = NewSectionService(memory.New(), testSpaces(), f.notifier, f.apps, WithUpdateDelay(0))
	f.conns = NewConnectionService(f.sections, f.remote, domain.Endpoint{Host: "local:8080", Protocol: "http"})
	t.Cleanup(f.sections.Wait)
	return f
}

func (f *fixture) create(t *testing.T, space string, x, y, w, h float64, app *domain.App) int {
	t.Helper()
	id, err := f.sections.Create(context.Background(), &CreateSectionRequest{
		Space: space, X: &x, Y: &y, W: &w, H: &h, App: app,
	})
	if err != nil {
		t.Fatalf("Create(%s): %v", space, err)
	}
	return id
}

// fakeRemote stands in for remote OVE instances.
type fakeRemote struct {
	mu       sync.Mutex
	nextID   int
	sections map[int]*ReplicaSpec
	calls    []string
	size     domain.Size

	// onCreate runs before a replica is created, without the lock.
	onCreate  func()
	attachErr error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		sections: make(map[int]*ReplicaSpec),
		size:     domain.Size{W: 400, H: 200},
	}
}

func (r *fakeRemote) record(call string) {
	r.calls = append(r.calls, call)
}

func (r *fakeRemote) SpaceGeometry(_ context.Context, ep domain.Endpoint) (domain.Size, error) {
	if ep.Host == "down:8080" {
		return domain.Size{}, errors.New("connection refused")
	}
	return r.size, nil
}

func (r *fakeRemote) CreateSection(_ context.Context, ep domain.Endpoint, spec *ReplicaSpec) (int, error) {
	if r.onCreate != nil {
		r.onCreate()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.sections[id] = spec
	r.record(fmt.Sprintf("create %s %d", ep.Space, id))
	return id, nil
}

func (r *fakeRemote) UpdateSection(_ context.Context, ep domain.Endpoint, id int, spec *ReplicaSpec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sections[id] = spec
	r.record(fmt.Sprintf("update %s %d", ep.Space, id))
	return nil
}

func (r *fakeRemote) DeleteSection(_ context.Context, ep domain.Endpoint, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sections, id)
	r.record(fmt.Sprintf("delete %s %d", ep.Space, id))
	return nil
}

func (r *fakeRemote) DeleteSpace(_ context.Context, ep domain.Endpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("clear " + ep.Space)
	return nil
}

func (r *fakeRemote) Event(_ context.Context, ep domain.Endpoint, id int, _ *domain.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(fmt.Sprintf("event %s %d", ep.Space, id))
	return nil
}

func (r *fakeRemote) Cache(_ context.Context, ep domain.Endpoint, id int, _ json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(fmt.Sprintf("cache %s %d", ep.Space, id))
	return nil
}

func (r *fakeRemote) Attach(_ context.Context, primary, secondary domain.Endpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.attachErr != nil {
		return r.attachErr
	}
	r.record(fmt.Sprintf("attach %s %s", primary.Space, secondary.Space))
	return nil
}

func (r *fakeRemote) Detach(_ context.Context, primary, secondary domain.Endpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(fmt.Sprintf("detach %s %s", primary.Space, secondary.Space))
	return nil
}

func (r *fakeRemote) RouteEvent(_ context.Context, primary, replica domain.Endpoint, id int, _ *domain.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(fmt.Sprintf("route_event %s %s %s %d", primary.Host, primary.Space, replica.Space, id))
	return nil
}

func (r *fakeRemote) RouteCache(_ context.Context, primary, replica domain.Endpoint, id int, _ json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(fmt.Sprintf("route_cache %s %s %s %d", primary.Host, primary.Space, replica.Space, id))
	return nil
}

func (r *fakeRemote) snapshot() ([]string, map[int]*ReplicaSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sections := make(map[int]*ReplicaSpec, len(r.sections))
	for k, v := range r.sections {
		sections[k] = v
	}
	return append([]string(nil), r.calls...), sections
}

func ptr[T any](v T) *T {
	return &v
}

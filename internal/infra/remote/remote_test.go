package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/yndnr/ovecore-go/internal/core/domain"
	"github.com/yndnr/ovecore-go/internal/core/service"
)

type recorded struct {
	method string
	path   string
	query  string
	body   string
}

// recorder is an httptest handler remembering every request.
type recorder struct {
	mu       sync.Mutex
	requests []recorded
	reply    func(w http.ResponseWriter, r *http.Request)
}

func (rec *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	rec.mu.Lock()
	rec.requests = append(rec.requests, recorded{r.Method, r.URL.Path, r.URL.RawQuery, string(body)})
	rec.mu.Unlock()

	if rec.reply != nil {
		rec.reply(w, r)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (rec *recorder) last() recorded {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.requests[len(rec.requests)-1]
}

func TestAppClient_Calls(t *testing.T) {
	rec := &recorder{reply: func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(` {"slide":2} `))
		}
	}}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	client := NewAppClient(srv.Client())
	ctx := context.Background()
	appURL := srv.URL + "/app/"

	tests := []struct {
		name   string
		call   func() error
		method string
		path   string
		body   string
	}{
		{"flush instance", func() error { return client.FlushInstance(ctx, appURL, 3) }, "POST", "/app/instances/3/flush", ""},
		{"flush all", func() error { return client.FlushAll(ctx, appURL) }, "POST", "/app/instances/flush", ""},
		{"post state", func() error { return client.PostState(ctx, appURL, 4, json.RawMessage(`{"a":1}`)) }, "POST", "/app/instances/4/state", `{"a":1}`},
		{"named state", func() error { return client.PostNamedState(ctx, appURL, "intro", json.RawMessage(`{}`)) }, "POST", "/app/states/intro", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); err != nil {
				t.Fatalf("call: %v", err)
			}
			got := rec.last()
			if got.method != tt.method || got.path != tt.path || got.body != tt.body {
				t.Errorf("request = %+v, want %s %s %q", got, tt.method, tt.path, tt.body)
			}
		})
	}

	state, err := client.GetState(ctx, appURL, 5)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if string(state) != `{"slide":2}` {
		t.Errorf("GetState = %s", state)
	}
}

func TestAppClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid section id"}`))
	}))
	defer srv.Close()

	err := NewAppClient(srv.Client()).FlushInstance(context.Background(), srv.URL, 1)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if statusErr.Status != http.StatusBadRequest || statusErr.Reason != "invalid section id" {
		t.Errorf("StatusError = %+v", statusErr)
	}
}

func endpointOf(srv *httptest.Server, space string) domain.Endpoint {
	return domain.Endpoint{Space: space, Host: strings.TrimPrefix(srv.URL, "http://"), Protocol: "http"}
}

func TestInstanceClient_Calls(t *testing.T) {
	rec := &recorder{reply: func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/geometry"):
			w.Write([]byte(`{"w":400,"h":200}`))
		case r.URL.Path == "/section":
			w.Write([]byte(`{"id":7}`))
		default:
			w.Write([]byte(`{}`))
		}
	}}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	client := NewInstanceClient(srv.Client())
	ctx := context.Background()
	ep := endpointOf(srv, "Far Wall")

	size, err := client.SpaceGeometry(ctx, ep)
	if err != nil || size != (domain.Size{W: 400, H: 200}) {
		t.Fatalf("SpaceGeometry = %+v, %v", size, err)
	}

	spec := &service.ReplicaSpec{Space: "Far Wall", Rect: domain.Rect{X: 1, Y: 2, W: 3, H: 4}}
	id, err := client.CreateSection(ctx, ep, spec)
	if err != nil || id != 7 {
		t.Fatalf("CreateSection = %d, %v", id, err)
	}
	got := rec.last()
	if got.query != "override=true" {
		t.Errorf("create query = %q, want override", got.query)
	}
	var body map[string]any
	json.Unmarshal([]byte(got.body), &body)
	if body["space"] != "Far Wall" || body["w"] != 3.0 {
		t.Errorf("create body = %s", got.body)
	}

	// An update without a binding clears the replica's.
	if err := client.UpdateSection(ctx, ep, 7, spec); err != nil {
		t.Fatalf("UpdateSection: %v", err)
	}
	body = nil
	json.Unmarshal([]byte(rec.last().body), &body)
	if app, ok := body["app"]; !ok || app != nil {
		t.Errorf("update body = %s, want explicit null app", rec.last().body)
	}

	primary := domain.Endpoint{Space: "Wall", Host: "a:8080", Protocol: "http"}
	replica := domain.Endpoint{Space: "Half", Host: "b:9090", Protocol: "http"}
	calls := []struct {
		name   string
		call   func() error
		method string
		path   string
		query  string
	}{
		{"update", func() error { return client.UpdateSection(ctx, ep, 7, spec) }, "POST", "/sections/7", "override=true"},
		{"delete", func() error { return client.DeleteSection(ctx, ep, 7) }, "DELETE", "/sections/7", "override=true"},
		{"clear", func() error { return client.DeleteSpace(ctx, ep) }, "DELETE", "/sections", "override=true&space=Far+Wall"},
		{"event", func() error {
			return client.Event(ctx, ep, 7, &domain.Envelope{AppID: "html", Message: json.RawMessage(`{}`)})
		}, "POST", "/connections/event/7", "override=true"},
		{"cache", func() error { return client.Cache(ctx, ep, 7, json.RawMessage(`{"s":1}`)) }, "POST", "/connections/cache/7", "override=true"},
		{"attach", func() error { return client.Attach(ctx, primary, ep) }, "POST", "/connection/Wall/Far Wall", "override=true"},
		{"detach", func() error { return client.Detach(ctx, primary, ep) }, "DELETE", "/connection/Wall/Far Wall", "override=true"},
		{"route event", func() error {
			return client.RouteEvent(ctx, ep, replica, 3, &domain.Envelope{AppID: "html", Message: json.RawMessage(`{}`)})
		}, "POST", "/connections/event/3", "replicaHost=b%3A9090&replicaSpace=Half"},
		{"route cache", func() error { return client.RouteCache(ctx, ep, replica, 3, json.RawMessage(`{"s":1}`)) }, "POST", "/connections/cache/3", "replicaHost=b%3A9090&replicaSpace=Half"},
	}
	for _, tt := range calls {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); err != nil {
				t.Fatalf("call: %v", err)
			}
			got := rec.last()
			if got.method != tt.method || got.path != tt.path || got.query != tt.query {
				t.Errorf("request = %+v, want %s %s?%s", got, tt.method, tt.path, tt.query)
			}
		})
	}
}

func TestInstanceClient_CreateWithoutID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewInstanceClient(srv.Client()).CreateSection(context.Background(), endpointOf(srv, "A"), &service.ReplicaSpec{Space: "A"})
	if err == nil {
		t.Error("CreateSection without id in response should fail")
	}
}

// Compile-time interface checks.
var (
	_ service.AppClient      = (*AppClient)(nil)
	_ service.InstanceClient = (*InstanceClient)(nil)
)

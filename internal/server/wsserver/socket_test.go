package wsserver

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// serverConn returns the server side of a fresh WebSocket connection.
func serverConn(t *testing.T) *websocket.Conn {
	t.Helper()

	conns := make(chan *websocket.Conn, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
	}))
	t.Cleanup(server.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })

	select {
	case conn := <-conns:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("server side not accepted in time")
		return nil
	}
}

func TestSocket_WriteFailure(t *testing.T) {
	tests := []struct {
		name    string
		closing bool
		logged  bool
	}{
		{"open socket", false, true},
		{"closing socket", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := serverConn(t)
			var out lockedBuffer
			s := newSocket(1, conn, 1, slog.New(slog.NewTextHandler(&out, nil)))

			_ = conn.UnderlyingConn().Close()
			s.closed.Store(tt.closing)
			s.send <- []byte(`{"appId":"maps"}`)
			s.writePump()

			if got := strings.Contains(out.String(), "socket write failed"); got != tt.logged {
				t.Errorf("logged = %v, want %v (output %q)", got, tt.logged, out.String())
			}
		})
	}
}

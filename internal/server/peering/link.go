package peering

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yndnr/ovecore-go/internal/core/domain"
	"github.com/yndnr/ovecore-go/internal/telemetry/logger"
)

const (
	// DefaultQueueSize is the number of frames buffered per link.
	DefaultQueueSize = 1024

	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second
	writeWait  = 10 * time.Second
)

// Link is an outbound WebSocket to one peer instance.
type Link struct {
	url    string
	queue  chan []byte
	dialer *websocket.Dialer
	logger *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	connected bool
}

// NewLink creates a link to a peer socket URL. Call Start to connect.
func NewLink(url string, log *slog.Logger) *Link {
	if log == nil {
		log = slog.Default()
	}
	return &Link{
		url:    url,
		queue:  make(chan []byte, DefaultQueueSize),
		dialer: websocket.DefaultDialer,
		logger: log.With("peer", logger.RedactURL(url)),
		done:   make(chan struct{}),
	}
}

// URL returns the peer socket URL.
func (l *Link) URL() string {
	return l.url
}

// Connected reports whether the link currently holds a connection.
func (l *Link) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

// Relay queues an envelope for the peer. A full queue drops it.
func (l *Link) Relay(env *domain.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		l.logger.Error("failed to encode relayed envelope", "error", err)
		return
	}
	select {
	case l.queue <- data:
	default:
		l.logger.Warn("peer queue full, envelope dropped")
	}
}

// Start connects in the background until Close is called.
func (l *Link) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	go func() {
		defer close(l.done)
		l.run(ctx)
	}()
}

// Close stops the link and waits for it to exit.
func (l *Link) Close() {
	if l.cancel == nil {
		return
	}
	l.cancel()
	<-l.done
}

func (l *Link) run(ctx context.Context) {
	backoff := minBackoff
	for {
		conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
		if err == nil {
			backoff = minBackoff
			l.setConnected(true)
			l.logger.Info("peer link connected")
			err = l.serve(ctx, conn)
			l.setConnected(false)
			if ctx.Err() != nil {
				return
			}
			l.logger.Warn("peer link lost", "error", err)
		} else if ctx.Err() == nil {
			l.logger.Debug("peer dial failed", "error", err, "retry_in", backoff)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// serve writes queued frames until the connection fails or ctx ends.
func (l *Link) serve(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()

	// The peer sends nothing but control frames; reading keeps them flowing.
	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return ctx.Err()
		case err := <-readErr:
			return err
		case data := <-l.queue:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return err
			}
		}
	}
}

func (l *Link) setConnected(v bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connected = v
}

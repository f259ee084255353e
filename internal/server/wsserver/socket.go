package wsserver

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yndnr/ovecore-go/internal/core/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 1 << 20
)

// Socket is one live WebSocket connection.
type Socket struct {
	id   uint64
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	log  *slog.Logger

	reg    atomic.Pointer[domain.Registration]
	closed atomic.Bool

	// Owned by the read pump.
	clockID string

	mu     sync.Mutex
	replay *time.Timer
}

func newSocket(id uint64, conn *websocket.Conn, buffer int, log *slog.Logger) *Socket {
	return &Socket{
		id:   id,
		conn: conn,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
		log:  log,
	}
}

// ID returns the hub-local socket id.
func (s *Socket) ID() uint64 {
	return s.id
}

// Registration returns the identity bound to the socket, or nil.
func (s *Socket) Registration() *domain.Registration {
	return s.reg.Load()
}

type sendResult int

const (
	sent sendResult = iota
	dropped
	closing
)

// enqueue queues data without blocking. A full buffer drops the message.
func (s *Socket) enqueue(data []byte) sendResult {
	if s.closed.Load() {
		return closing
	}
	select {
	case s.send <- data:
		return sent
	default:
		return dropped
	}
}

func (s *Socket) setReplay(t *time.Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.replay != nil {
		s.replay.Stop()
	}
	s.replay = t
}

func (s *Socket) close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.setReplay(nil)
	close(s.done)
	_ = s.conn.Close()
}

func (s *Socket) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case data := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.writeFailed(err)
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.writeFailed(err)
				return
			}
		case <-s.done:
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// writeFailed logs a write error unless the socket is already closing.
func (s *Socket) writeFailed(err error) {
	if s.closed.Load() {
		return
	}
	s.log.Warn("socket write failed", "socket", s.id, "error", err)
}

func (s *Socket) readPump(handle func([]byte)) {
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		handle(data)
	}
}

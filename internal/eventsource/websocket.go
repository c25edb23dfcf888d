package eventsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// ErrNotConnected is returned by Send while the relay connection is down.
var ErrNotConnected = errors.New("eventsource: not connected")

// Websocket consumes events from a chat relay speaking JSON frames.
// On connect it sends a join frame for every channel in Channels.
type Websocket struct {
	url      string
	channels func(ctx context.Context) ([]string, error)
	log      *slog.Logger
	dialer   websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebsocket creates a relay source. channels is consulted on every connect.
func NewWebsocket(log *slog.Logger, url string, channels func(ctx context.Context) ([]string, error)) *Websocket {
	return &Websocket{
		url:      url,
		channels: channels,
		log:      log.With("source", "websocket"),
		dialer:   websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// Run connects, joins, and streams frames until the connection fails or ctx is done.
func (s *Websocket) Run(ctx context.Context, out chan<- Event) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, http.Header{})
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	s.setConn(conn)
	defer s.setConn(nil)
	defer conn.Close()

	s.log.Info("connected", slog.String("url", s.url))

	if s.channels != nil {
		names, err := s.channels(ctx)
		if err != nil {
			return fmt.Errorf("list channels to join: %w", err)
		}
		for _, name := range names {
			if err := s.write(Reply{Type: FrameJoin, Channel: name}); err != nil {
				return fmt.Errorf("join %s: %w", name, err)
			}
			s.log.Info("joining channel", slog.String("channel", name))
		}
	}

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	stop := make(chan struct{})
	defer close(stop)
	go s.keepAlive(ctx, conn, stop)

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return fmt.Errorf("relay closed the connection: %w", err)
			}
			return fmt.Errorf("read frame: %w", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// keepAlive pings the relay and closes the connection when ctx is done so that
// the blocked read returns.
func (s *Websocket) keepAlive(ctx context.Context, conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			s.mu.Lock()
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			s.mu.Unlock()
			_ = conn.Close()
			return
		case <-ticker.C:
			s.mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			s.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// Send writes a reply frame on the current connection.
func (s *Websocket) Send(_ context.Context, r Reply) error {
	return s.write(r)
}

func (s *Websocket) write(r Reply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNotConnected
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(r)
}

func (s *Websocket) setConn(c *websocket.Conn) {
	s.mu.Lock()
	s.conn = c
	s.mu.Unlock()
}

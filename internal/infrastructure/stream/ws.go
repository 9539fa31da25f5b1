package stream

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/valyala/bytebufferpool"

	"github.com/riskibarqy/odds-monitor/internal/domain/odds"
	"github.com/riskibarqy/odds-monitor/internal/platform/logging"
	"github.com/riskibarqy/odds-monitor/internal/usecase"
)

const (
	wsHandshakeTimeout = 10 * time.Second
	wsWriteTimeout     = 5 * time.Second
	wsPongTimeout      = 60 * time.Second
	wsPingInterval     = 25 * time.Second
	wsReadLimit        = 8 << 20
)

// WSDialer opens the shared multi-fixture monitor stream over websocket.
// Implements usecase.MonitorDialer.
type WSDialer struct {
	url    string
	logger *logging.Logger
}

func NewWSDialer(url string, logger *logging.Logger) *WSDialer {
	if logger == nil {
		logger = logging.Default()
	}
	return &WSDialer{url: strings.TrimSpace(url), logger: logger}
}

func (d *WSDialer) DialMonitor(ctx context.Context) (usecase.MonitorStream, error) {
	dialer := websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, d.url, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return nil, fmt.Errorf("%w: dial monitor stream status=%d: %v", usecase.ErrDependencyUnavailable, status, err)
	}

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})

	ws := &wsStream{
		conn:   conn,
		msgs:   make(chan usecase.StreamMessage, 256),
		done:   make(chan struct{}),
		logger: d.logger,
	}
	go ws.readLoop()
	go ws.pingLoop()
	return ws, nil
}

type wsStream struct {
	conn   *websocket.Conn
	msgs   chan usecase.StreamMessage
	done   chan struct{}
	logger *logging.Logger

	writeMu sync.Mutex

	mu         sync.Mutex
	err        error
	closed     bool
	subscribed bool
}

func (s *wsStream) Messages() <-chan usecase.StreamMessage { return s.msgs }

func (s *wsStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Subscribe pushes a filter to the server. The first call rides a subscribe
// frame carrying the filter; later filter changes go out as update_filter.
// Either way the upstream responds with fresh snapshots for everything the
// filter matches.
func (s *wsStream) Subscribe(filter *odds.Filter) error {
	s.mu.Lock()
	kind := controlSubscribe
	if filter != nil && s.subscribed {
		kind = controlUpdateFilter
	}
	s.mu.Unlock()

	if err := s.writeControl(controlMessage{Type: kind, Filter: filter}); err != nil {
		return err
	}
	s.mu.Lock()
	s.subscribed = true
	s.mu.Unlock()
	return nil
}

func (s *wsStream) RemoveFilter() error {
	return s.writeControl(controlMessage{Type: controlRemoveFilter})
}

// writeControl serialises a control frame through the buffer pool and writes
// it under the write mutex; gorilla connections allow one writer at a time.
func (s *wsStream) writeControl(msg controlMessage) error {
	raw, err := sonic.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode control message: %w", err)
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	_, _ = buf.Write(raw)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, buf.B); err != nil {
		return fmt.Errorf("%w: write control message: %v", usecase.ErrStreamClosed, err)
	}
	return nil
}

func (s *wsStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	s.writeMu.Lock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	_ = s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()
	return s.conn.Close()
}

func (s *wsStream) readLoop() {
	defer close(s.msgs)

	for {
		kind, raw, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			if !s.closed {
				s.err = fmt.Errorf("%w: %v", usecase.ErrStreamClosed, err)
			}
			s.mu.Unlock()
			return
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}

		msg, err := decodeMessage(raw)
		if err != nil {
			s.logger.Warn("dropping malformed monitor event", "error", err)
			continue
		}
		s.msgs <- msg
	}
}

func (s *wsStream) pingLoop() {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			err := s.conn.WriteMessage(websocket.PingMessage, nil)
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

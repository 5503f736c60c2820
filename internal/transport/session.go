// Package transport owns the live WebSocket connection to the task server.
//
// A Session wraps exactly one connection. For its lifetime two goroutines
// run: a receive loop delivering inbound frames to the owner, and a send
// loop draining an unbounded outbound queue. Both are torn down together
// when the connection ends, whichever side ends it.
package transport

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// handshakeTimeout bounds the initial dial.
	handshakeTimeout = 30 * time.Second

	// closeGracePeriod is how long Close waits for the peer to answer the
	// close frame before the connection is torn down regardless.
	closeGracePeriod = 3 * time.Second

	// writeTimeout bounds a single outbound frame.
	writeTimeout = 10 * time.Second
)

// Handler receives session lifecycle events. Calls arrive from the
// session's internal goroutines: OnOpen first, then any number of
// OnMessage/OnError, then exactly one OnClose.
type Handler interface {
	OnOpen()
	OnMessage(raw []byte)
	OnError(err error)
	OnClose(reason string)
}

// Session is one live connection plus its send/receive machinery.
type Session struct {
	conn    *websocket.Conn
	handler Handler
	logger  *slog.Logger

	mu      sync.Mutex
	queue   [][]byte
	wake    chan struct{}
	open    bool
	closing bool

	done     chan struct{}
	closeOne sync.Once
}

// Dial opens a connection to wsURL and starts the session goroutines.
// A handshake failure is returned synchronously; every later event is
// delivered through the handler.
func Dial(wsURL string, handler Handler, logger *slog.Logger) (*Session, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := dialer.Dial(wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	s := &Session{
		conn:    conn,
		handler: handler,
		logger:  logger,
		wake:    make(chan struct{}, 1),
		open:    true,
		done:    make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// IsOpen reports whether Send can still enqueue messages.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Send enqueues one text message for delivery. It never blocks: the
// outbound queue is unbounded. Returns false if the session is not open;
// messages enqueued before a close may or may not reach the wire.
func (s *Session) Send(msg []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return false
	}
	s.queue = append(s.queue, msg)
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

// Close starts a graceful shutdown: a close frame is sent and the peer is
// given a grace period to answer before the connection is dropped. Errors
// produced by a shutdown we initiated ourselves are not reported.
func (s *Session) Close(reason string) {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return
	}
	s.closing = true
	s.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	deadline := time.Now().Add(writeTimeout)
	if err := s.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		s.logger.Debug("close frame write failed", "err", err)
	}

	// The receive loop ends when the peer answers the close frame. If it
	// does not, tear the connection down after the grace period.
	go func() {
		select {
		case <-s.done:
		case <-time.After(closeGracePeriod):
			s.conn.Close()
		}
	}()
}

func (s *Session) run() {
	s.handler.OnOpen()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.sendLoop()
	}()

	s.receiveLoop()
	wg.Wait()
}

// receiveLoop delivers inbound frames until the connection ends, then
// classifies the ending and finishes the session.
func (s *Session) receiveLoop() {
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			s.finish(err)
			return
		}
		s.handler.OnMessage(msg)
	}
}

// sendLoop drains the outbound queue, preserving enqueue order.
func (s *Session) sendLoop() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			msg := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.finish(err)
				return
			}
		}
	}
}

// finish ends the session exactly once: it marks the session closed, stops
// both loops, and reports the ending to the handler. Close codes 1000 and
// 1001 are a clean shutdown; so is any error caused by our own Close call.
// Everything else is reported through OnError before OnClose.
func (s *Session) finish(err error) {
	s.closeOne.Do(func() {
		s.mu.Lock()
		s.open = false
		closing := s.closing
		s.mu.Unlock()

		close(s.done)
		s.conn.Close()

		reason := "Connection closed"
		clean := closing
		if ce, ok := err.(*websocket.CloseError); ok {
			if ce.Text != "" {
				reason = ce.Text
			}
			if ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway {
				clean = true
			}
		} else if err != nil && !closing {
			reason = err.Error()
		}

		if !clean {
			s.handler.OnError(err)
		}
		s.logger.Debug("session closed", "reason", reason, "clean", clean)
		s.handler.OnClose(reason)
	})
}

// BuildWSURL derives the task update stream URL from the server's HTTP API
// URL: ws for http, wss for https, path segment ws/task_updates appended to
// the slash-normalized base path, API key in the api_key query parameter.
func BuildWSURL(serverAPIURL, apiKey string) (string, error) {
	u, err := url.Parse(serverAPIURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", serverAPIURL, err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	u.Path = path + "ws/task_updates"

	q := url.Values{}
	q.Set("api_key", apiKey)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

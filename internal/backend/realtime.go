package backend

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/mmcdole/importwatch/internal/domain"
)

const (
	defaultPingInterval = 20 * time.Second
	defaultMaxBackoff   = 30 * time.Second
	initialBackoff      = 500 * time.Millisecond
	writeWait           = 10 * time.Second
	eventBuffer         = 64
)

var pingFrame = []byte(`{"type":"ping"}`)

// RealtimeOptions configures a Realtime source
type RealtimeOptions struct {
	Endpoint     string
	ProjectID    string
	APIKey       string
	PingInterval time.Duration
	MaxBackoff   time.Duration
}

// Realtime implements domain.EventSource over the websocket endpoint
type Realtime struct {
	opts   RealtimeOptions
	dialer *websocket.Dialer
	logger *slog.Logger
}

// NewRealtime creates a realtime event source
func NewRealtime(opts RealtimeOptions, logger *slog.Logger) *Realtime {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	return &Realtime{
		opts: opts,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// URL builds the websocket URL for a set of channels
func (r *Realtime) URL(channels ...string) (string, error) {
	u, err := url.Parse(strings.TrimRight(r.opts.Endpoint, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid endpoint: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid endpoint scheme %q", u.Scheme)
	}
	u.Path += "/v1/realtime"

	q := url.Values{}
	q.Set("project", r.opts.ProjectID)
	for _, ch := range channels {
		q.Add("channels[]", ch)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (r *Realtime) header() http.Header {
	h := http.Header{}
	h.Set(headerProject, r.opts.ProjectID)
	if r.opts.APIKey != "" {
		h.Set(headerKey, r.opts.APIKey)
	}
	return h
}

// Subscribe dials the realtime endpoint. The first dial must succeed; later
// disconnects are retried with capped backoff until the subscription is closed.
func (r *Realtime) Subscribe(ctx context.Context, channels ...string) (domain.Subscription, error) {
	wsURL, err := r.URL(channels...)
	if err != nil {
		return nil, err
	}

	conn, _, err := r.dialer.DialContext(ctx, wsURL, r.header())
	if err != nil {
		r.logger.Warn("realtime dial failed", "url", wsURL, "error", err)
		return nil, domain.ErrServerOffline
	}
	r.logger.Info("realtime connected", "channels", channels)

	subCtx, cancel := context.WithCancel(ctx)
	s := &subscription{
		source: r,
		url:    wsURL,
		events: make(chan domain.Event, eventBuffer),
		done:   make(chan struct{}),
		ctx:    subCtx,
		cancel: cancel,
	}
	stop := context.AfterFunc(subCtx, s.closeConn)
	go func() {
		defer stop()
		s.run(conn)
	}()
	return s, nil
}

type subscription struct {
	source *Realtime
	url    string
	events chan domain.Event
	done   chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu      sync.Mutex
	conn    *websocket.Conn
	stopped bool
	writeMu sync.Mutex
}

func (s *subscription) Events() <-chan domain.Event { return s.events }

// Close releases the connection and waits for the read loop to exit
func (s *subscription) Close() error {
	err := domain.ErrSubscriptionClosed
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
		err = nil
	})
	return err
}

// closeConn unblocks the read loop once the subscription is cancelled
func (s *subscription) closeConn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.conn != nil {
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = s.conn.Close()
	}
}

// attach makes conn the active connection; false when already stopped
func (s *subscription) attach(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		_ = conn.Close()
		return false
	}
	s.conn = conn
	return true
}

func (s *subscription) run(conn *websocket.Conn) {
	defer close(s.done)
	defer close(s.events)

	logger := s.source.logger
	for conn != nil {
		if !s.attach(conn) {
			return
		}
		err := s.serve(conn)
		if s.ctx.Err() != nil {
			return
		}
		logger.Warn("realtime disconnected", "error", err)
		conn = s.reconnect()
	}
}

// serve reads frames until the connection fails
func (s *subscription) serve(conn *websocket.Conn) error {
	defer conn.Close()

	var wg sync.WaitGroup
	pingDone := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.ping(conn, pingDone)
	}()
	defer wg.Wait()
	defer close(pingDone)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		s.handle(data)
	}
}

func (s *subscription) ping(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(s.source.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteMessage(websocket.TextMessage, pingFrame)
			s.writeMu.Unlock()
			if err != nil {
				s.source.logger.Debug("realtime ping failed", "error", err)
				return
			}
		}
	}
}

func (s *subscription) handle(data []byte) {
	logger := s.source.logger

	var frame Frame
	if err := sonic.Unmarshal(data, &frame); err != nil {
		logger.Debug("dropping malformed realtime frame", "error", err)
		return
	}

	switch frame.Type {
	case "event":
		var payload EventData
		if err := sonic.Unmarshal(frame.Data, &payload); err != nil {
			logger.Debug("dropping malformed realtime event", "error", err)
			return
		}
		ev := domain.Event{
			Channels:   payload.Channels,
			Events:     payload.Events,
			Payload:    MapJob(payload.Payload),
			ReceivedAt: time.Now(),
		}
		select {
		case s.events <- ev:
		case <-s.ctx.Done():
		}
	case "connected":
		var payload ConnectedData
		_ = sonic.Unmarshal(frame.Data, &payload)
		logger.Debug("realtime subscribed", "channels", payload.Channels)
	case "error":
		var payload FrameError
		_ = sonic.Unmarshal(frame.Data, &payload)
		logger.Warn("realtime error", "code", payload.Code, "message", payload.Message)
	case "pong", "response":
	default:
		logger.Debug("ignoring realtime frame", "type", frame.Type)
	}
}

// reconnect dials with capped exponential backoff; nil once cancelled
func (s *subscription) reconnect() *websocket.Conn {
	r := s.source
	backoff := initialBackoff
	for {
		timer := time.NewTimer(backoff)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		conn, _, err := r.dialer.DialContext(s.ctx, s.url, r.header())
		if err == nil {
			r.logger.Info("realtime reconnected")
			return conn
		}
		if s.ctx.Err() != nil {
			return nil
		}
		r.logger.Debug("realtime reconnect failed", "backoff", backoff, "error", err)
		backoff = min(backoff*2, r.opts.MaxBackoff)
	}
}

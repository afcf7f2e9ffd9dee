// Package trace is a client SDK for the debug websocket stream: it connects
// to a running bot, decodes trace frames and hands them to the host as typed
// events. Tooling like tree visualizers and tick recorders builds on it.
package trace

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/modstate/modstate/internal/core/machine"
	"github.com/modstate/modstate/internal/core/observability/log"
)

// Handler receives one decoded trace event.
type Handler func(e machine.TraceEvent)

// Config holds connection settings for a trace client.
type Config struct {
	// URL of the debug stream, e.g. ws://localhost:8089.
	URL string

	DialTimeout          time.Duration
	ReconnectInterval    time.Duration
	MaxReconnectAttempts int

	// Buffer is the capacity of the Events channel. When the consumer lags,
	// the oldest buffered event is dropped first; a slow tool must never
	// stall frame decoding.
	Buffer int

	Logger *log.Logger
}

// DefaultConfig returns sensible settings for a local bot.
func DefaultConfig(url string) Config {
	return Config{
		URL:                  url,
		DialTimeout:          5 * time.Second,
		ReconnectInterval:    2 * time.Second,
		MaxReconnectAttempts: 5,
		Buffer:               256,
	}
}

// Client consumes a debug trace stream. Register handlers before Connect;
// the Events channel works regardless of handlers.
type Client struct {
	cfg    Config
	logger *log.Logger

	mu       sync.RWMutex
	handlers map[string][]Handler

	connMu sync.Mutex
	conn   *websocket.Conn

	events chan machine.TraceEvent
	closed atomic.Bool
	done   chan struct{}
}

// NewClient builds a client from cfg.
func NewClient(cfg Config) *Client {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}
	return &Client{
		cfg:      cfg,
		logger:   logger,
		handlers: make(map[string][]Handler),
		events:   make(chan machine.TraceEvent, cfg.Buffer),
		done:     make(chan struct{}),
	}
}

// On registers a handler for one trace op (machine.OpEnter, OpExit, OpIdle).
// Handlers run on the read goroutine and must not block.
func (c *Client) On(op string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[op] = append(c.handlers[op], h)
}

// Events returns the decoded event stream. The channel closes when the
// client stops for good.
func (c *Client) Events() <-chan machine.TraceEvent { return c.events }

// Connect dials the stream and starts the read loop. It returns once the
// first connection is established; the loop then reconnects on failure up to
// MaxReconnectAttempts before giving up and closing the Events channel.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.setConn(conn)
	go c.readLoop(ctx, conn)
	return nil
}

// Close stops the client, interrupting a blocked read. Safe to call more
// than once.
func (c *Client) Close() {
	if c.closed.CompareAndSwap(false, true) {
		close(c.done)
		c.connMu.Lock()
		if c.conn != nil {
			_ = c.conn.Close()
		}
		c.connMu.Unlock()
	}
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx := ctx
	if c.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.DialTimeout)
		defer cancel()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.cfg.URL, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer close(c.events)
	attempts := 0
	for {
		err := c.consume(ctx, conn)
		_ = conn.Close()
		if c.closed.Load() || ctx.Err() != nil {
			return
		}
		c.logger.Warn("trace stream interrupted", log.Err(err))

		for {
			attempts++
			if c.cfg.MaxReconnectAttempts > 0 && attempts > c.cfg.MaxReconnectAttempts {
				c.logger.Error("trace stream gave up reconnecting")
				c.Close()
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-c.done:
				return
			case <-time.After(c.cfg.ReconnectInterval):
			}
			next, dialErr := c.dial(ctx)
			if dialErr == nil {
				conn = next
				c.setConn(conn)
				attempts = 0
				break
			}
			c.logger.Warn("trace stream reconnect failed", log.Err(dialErr))
		}
	}
}

func (c *Client) consume(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return ErrClosed
		default:
		}
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var e machine.TraceEvent
		if err := json.Unmarshal(frame, &e); err != nil {
			c.logger.Warn("bad trace frame", log.Err(err))
			continue
		}
		c.dispatch(e)
	}
}

func (c *Client) dispatch(e machine.TraceEvent) {
	c.mu.RLock()
	handlers := c.handlers[e.Op]
	c.mu.RUnlock()
	for _, h := range handlers {
		h(e)
	}

	select {
	case c.events <- e:
	default:
		// Consumer is behind: drop the oldest event, keep the newest.
		select {
		case <-c.events:
		default:
		}
		select {
		case c.events <- e:
		default:
		}
	}
}

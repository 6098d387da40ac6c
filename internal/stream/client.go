package stream

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Default values for websocket reconnection configuration.
const (
	DefaultBaseDelay    = 100 * time.Millisecond
	DefaultMaxDelay     = 30 * time.Second
	DefaultJitterFactor = 0.5
)

// Configuration errors.
var (
	ErrEmptyURL        = errors.New("change stream URL cannot be empty")
	ErrInvalidDelay    = errors.New("base delay must be positive")
	ErrInvalidMaxDelay = errors.New("max delay must be >= base delay")
	ErrInvalidJitter   = errors.New("jitter factor must be between 0 and 1")
)

// Config holds configuration for the change-stream websocket client.
type Config struct {
	// URL is the change-stream websocket endpoint.
	URL string

	// BaseDelay is the initial delay before the first reconnect attempt.
	BaseDelay time.Duration

	// MaxDelay caps the delay between reconnect attempts.
	MaxDelay time.Duration

	// JitterFactor is the fraction of delay to randomize (0.0 to 1.0).
	JitterFactor float64
}

// DefaultConfig returns a Config with default backoff values.
func DefaultConfig(url string) Config {
	return Config{
		URL:          url,
		BaseDelay:    DefaultBaseDelay,
		MaxDelay:     DefaultMaxDelay,
		JitterFactor: DefaultJitterFactor,
	}
}

// Validate checks that the configuration is valid.
func (c Config) Validate() error {
	if c.URL == "" {
		return ErrEmptyURL
	}
	if c.BaseDelay <= 0 {
		return ErrInvalidDelay
	}
	if c.MaxDelay < c.BaseDelay {
		return ErrInvalidMaxDelay
	}
	if c.JitterFactor < 0 || c.JitterFactor > 1 {
		return ErrInvalidJitter
	}
	return nil
}

// Client consumes the record store's change stream over websocket, decodes
// CBOR frames into ChangeEvents, and publishes them into a Broker. It
// reconnects with exponential backoff and jitter; undecodable frames are
// counted and skipped, never fatal. A stream that cannot be reached only
// costs live updates — queries are unaffected.
type Client struct {
	config  Config
	broker  *Broker
	logger  *slog.Logger
	metrics *Metrics

	mu          sync.Mutex
	rng         *rand.Rand // protected by mu
	conn        *websocket.Conn
	isConnected bool

	// reconnectCount tracks consecutive reconnection attempts (atomic)
	reconnectCount int64
}

// NewClient creates a change-stream client publishing into broker.
// metrics may be nil.
func NewClient(config Config, broker *Broker, logger *slog.Logger, metrics *Metrics) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		config:  config,
		broker:  broker,
		logger:  logger,
		metrics: metrics,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Run starts the client and blocks until the context is cancelled,
// reconnecting with backoff on connection failures.
func (c *Client) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("change stream client stopping")
			c.close()
			return ctx.Err()
		default:
		}

		if err := c.connect(ctx); err != nil {
			attempt := atomic.AddInt64(&c.reconnectCount, 1)
			c.metrics.IncReconnect()
			delay := c.computeBackoff()
			c.logger.Warn("change stream connection failed",
				slog.String("error", err.Error()),
				slog.Int64("attempt", attempt),
				slog.Duration("retry_in", delay))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				continue
			}
		}

		atomic.StoreInt64(&c.reconnectCount, 0)
		c.readLoop(ctx)
	}
}

// connect establishes the websocket connection.
func (c *Client) connect(ctx context.Context) error {
	c.logger.Info("connecting to change stream", slog.String("url", c.config.URL))

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, c.config.URL, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.isConnected = true
	c.mu.Unlock()

	c.logger.Info("connected to change stream")
	return nil
}

// readLoop reads and decodes frames until the connection closes.
func (c *Client) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}

		_, payload, err := conn.ReadMessage()
		if err != nil {
			c.logger.Warn("change stream connection closed",
				slog.String("error", err.Error()))
			c.close()
			return
		}

		ev, err := DecodeEvent(payload)
		if err != nil {
			c.metrics.IncDecodeError()
			c.logger.Warn("skipping undecodable stream frame",
				slog.String("error", err.Error()))
			continue
		}
		c.broker.Publish(*ev)
	}
}

// close cleanly closes the websocket connection.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.isConnected = false
}

// computeBackoff calculates the next reconnect delay with exponential
// backoff and jitter.
func (c *Client) computeBackoff() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	shift := uint(atomic.LoadInt64(&c.reconnectCount))
	if shift > 30 {
		shift = 30
	}
	backoff := float64(c.config.BaseDelay) * float64(uint64(1)<<shift)
	if backoff > float64(c.config.MaxDelay) {
		backoff = float64(c.config.MaxDelay)
	}
	if c.config.JitterFactor > 0 {
		jitter := (c.rng.Float64() - 0.5) * c.config.JitterFactor
		backoff = backoff * (1 + jitter)
	}
	return time.Duration(backoff)
}

// IsConnected reports whether the client currently holds a connection.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isConnected
}

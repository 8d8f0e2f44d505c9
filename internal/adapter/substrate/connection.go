package substrate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	apierr "tao_dividends_api/internal/errors"
	"tao_dividends_api/internal/metrics"
	"tao_dividends_api/internal/port"
	"tao_dividends_api/internal/retry"
)

const DefaultMaxAttempts = 3

type State int

const (
	StateUnconnected State = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type ConnectionConfig struct {
	Network     string
	MaxAttempts int
	BaseDelay   time.Duration
}

type Option func(*ChainConnection)

// WithSleep replaces the wait between attempts.
func WithSleep(sleep retry.SleepFunc) Option {
	return func(c *ChainConnection) { c.policy.Sleep = sleep }
}

// ChainConnection owns at most one live transport to a node. It is not
// meant to be connected from two goroutines at once; a second Connect
// while one is in flight fails instead of dialing again.
type ChainConnection struct {
	network  string
	resolver *EndpointResolver
	dialer   port.ChainDialer
	policy   retry.Policy

	mu        sync.Mutex
	state     State
	transport port.ChainTransport
}

var _ port.ChainConnection = (*ChainConnection)(nil)

func NewChainConnection(cfg ConnectionConfig, resolver *EndpointResolver, dialer port.ChainDialer, opts ...Option) *ChainConnection {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = DefaultMaxAttempts
	}
	c := &ChainConnection{
		network:  cfg.Network,
		resolver: resolver,
		dialer:   dialer,
		policy:   retry.Policy{Attempts: attempts, BaseDelay: cfg.BaseDelay},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ChainConnection) Connect(ctx context.Context) error {
	endpoint, err := c.resolver.Resolve(c.network)
	if err != nil {
		return err
	}

	c.mu.Lock()
	switch c.state {
	case StateConnected:
		c.mu.Unlock()
		return nil
	case StateConnecting:
		c.mu.Unlock()
		return errors.New("connect already in progress")
	}
	c.state = StateConnecting
	c.mu.Unlock()

	var transport port.ChainTransport
	err = c.policy.Do(ctx, func(attempt int) error {
		t, err := c.attempt(ctx, string(endpoint))
		metrics.ConnectAttempts.WithLabelValues(metrics.Result(err)).Inc()
		if err != nil {
			zap.L().Warn("chain connect attempt failed",
				zap.String("network", c.network),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", c.policy.Attempts),
				zap.Error(err))
			return err
		}
		transport = t
		return nil
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		if transport != nil {
			transport.Close()
		}
		return apierr.Wrap(apierr.ErrNotConnected, errors.New("closed while connecting"))
	}
	if err != nil {
		c.state = StateUnconnected
		zap.L().Error("chain connection failed",
			zap.String("network", c.network),
			zap.String("endpoint", string(endpoint)),
			zap.Error(err))
		return apierr.Wrap(apierr.ErrConnectionFailed, err)
	}

	c.transport = transport
	c.state = StateConnected
	zap.L().Info("connected to chain", zap.String("network", c.network))
	return nil
}

// attempt dials once and proves the handle can serve a read. A handle
// that cannot is released.
func (c *ChainConnection) attempt(ctx context.Context, endpoint string) (port.ChainTransport, error) {
	t, err := c.dialer.Dial(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if err := t.Ping(ctx); err != nil {
		t.Close()
		return nil, fmt.Errorf("liveness check: %w", err)
	}
	return t, nil
}

// Close is safe to call in any state and any number of times.
func (c *ChainConnection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.transport != nil {
		c.transport.Close()
		c.transport = nil
		zap.L().Info("closed chain connection", zap.String("network", c.network))
	}
	if c.state == StateConnected || c.state == StateConnecting {
		c.state = StateClosed
	}
}

func (c *ChainConnection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateConnected
}

func (c *ChainConnection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *ChainConnection) Transport() (port.ChainTransport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected || c.transport == nil {
		return nil, apierr.ErrNotConnected
	}
	return c.transport, nil
}

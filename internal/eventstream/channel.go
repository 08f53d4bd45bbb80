package eventstream

import (
	"context"
	"strings"
	"sync"
	"time"

	"decisionctl/internal/logging"
	"decisionctl/internal/types"

	"github.com/cenkalti/backoff/v5"
)

const (
	defaultInitialInterval = 500 * time.Millisecond
	defaultMaxInterval     = 30 * time.Second
	channelBufferSize      = 256
)

// Dialer opens one push-channel connection; the client package implements it.
type Dialer interface {
	EventStream(ctx context.Context, projectID string) (<-chan types.PipelineEvent, func(), error)
}

type ChannelOption func(*Channel)

func WithLogger(logger logging.Logger) ChannelOption {
	return func(c *Channel) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithReconnectInterval(initial, maxInterval time.Duration) ChannelOption {
	return func(c *Channel) {
		if initial > 0 {
			c.initialInterval = initial
		}
		if maxInterval > 0 {
			c.maxInterval = maxInterval
		}
	}
}

// Channel owns the single live push connection. Connection loss is retried
// with exponential backoff until Disconnect or Connect to another project.
type Channel struct {
	dialer          Dialer
	logger          logging.Logger
	initialInterval time.Duration
	maxInterval     time.Duration

	mu        sync.Mutex
	projectID string
	events    chan types.PipelineEvent
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewChannel(dialer Dialer, opts ...ChannelOption) *Channel {
	c := &Channel{
		dialer:          dialer,
		logger:          logging.Nop(),
		initialInterval: defaultInitialInterval,
		maxInterval:     defaultMaxInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Connect closes any existing connection and starts delivering projectID's
// events on the returned channel.
func (c *Channel) Connect(ctx context.Context, projectID string) <-chan types.PipelineEvent {
	projectID = strings.TrimSpace(projectID)
	c.Disconnect()

	c.mu.Lock()
	defer c.mu.Unlock()
	if projectID == "" || c.dialer == nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	events := make(chan types.PipelineEvent, channelBufferSize)
	done := make(chan struct{})
	c.projectID = projectID
	c.events = events
	c.cancel = cancel
	c.done = done
	go c.run(runCtx, projectID, events, done)
	return events
}

func (c *Channel) Events() <-chan types.PipelineEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.events == nil {
		return nil
	}
	return c.events
}

func (c *Channel) ProjectID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectID
}

// Disconnect stops the connection and waits for its goroutine. Safe to call
// repeatedly.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	projectID := c.projectID
	c.cancel = nil
	c.done = nil
	c.events = nil
	c.projectID = ""
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	c.logger.Debug("push channel closed", logging.F("project", projectID))
}

func (c *Channel) run(ctx context.Context, projectID string, out chan<- types.PipelineEvent, done chan<- struct{}) {
	defer close(done)
	defer close(out)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval
	b.MaxInterval = c.maxInterval
	b.Reset()

	attempt := 0
	for {
		attempt++
		stream, stop, err := c.dialer.EventStream(ctx, projectID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			wait := b.NextBackOff()
			c.logger.Warn("push channel connect failed",
				logging.F("project", projectID),
				logging.F("attempt", attempt),
				logging.F("retry_in", wait),
				logging.Err(err),
			)
			if !sleep(ctx, wait) {
				return
			}
			continue
		}
		c.logger.Info("push channel open", logging.F("project", projectID), logging.F("attempt", attempt))

		received := c.forward(ctx, stream, out, b)
		if stop != nil {
			stop()
		}
		if ctx.Err() != nil {
			return
		}
		wait := b.NextBackOff()
		c.logger.Warn("push channel lost; reconnecting",
			logging.F("project", projectID),
			logging.F("received", received),
			logging.F("retry_in", wait),
		)
		if !sleep(ctx, wait) {
			return
		}
	}
}

// forward copies events until the stream ends or ctx is done. The backoff
// resets once a connection proves healthy by delivering an event.
func (c *Channel) forward(ctx context.Context, stream <-chan types.PipelineEvent, out chan<- types.PipelineEvent, b *backoff.ExponentialBackOff) int {
	received := 0
	for {
		select {
		case <-ctx.Done():
			return received
		case event, ok := <-stream:
			if !ok {
				return received
			}
			if received == 0 {
				b.Reset()
			}
			received++
			select {
			case out <- event:
			case <-ctx.Done():
				return received
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Drain reads up to limit buffered events without blocking. closed reports
// that ch has been closed.
func Drain(ch <-chan types.PipelineEvent, limit int) (events []types.PipelineEvent, closed bool) {
	if ch == nil {
		return nil, false
	}
	for i := 0; i < limit; i++ {
		select {
		case event, ok := <-ch:
			if !ok {
				return events, true
			}
			events = append(events, event)
		default:
			return events, false
		}
	}
	return events, false
}

package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/rabbitmq/amqp091-go"

	"tweetcompare/internal/core"
	"tweetcompare/internal/log"
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	baseBackoff    = time.Second
	maxBackoff     = 30 * time.Second
)

// ErrCircuitOpen is returned while publishing is suspended.
var ErrCircuitOpen = circuitbreaker.ErrOpen

// Client publishes comparison events to a durable direct exchange. It
// redials once when a publish fails on a broken connection and stops trying
// for a while after repeated failures.
type Client struct {
	url          string
	exchangeName string
	queueName    string
	logger       *log.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	breaker circuitbreaker.CircuitBreaker[any]
}

func NewClient(url, exchangeName, queueName string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentAMQP)
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger,
		breaker:      newBreaker(logger, openTimeout),
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connectLocked(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connectLocked() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}
	c.conn, c.channel = conn, channel
	return nil
}

func setup(ch *amqp091.Channel, exchange, queue string) error {
	err := ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name.
	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// newBreaker opens after maxFailures consecutive failed publishes, stays
// open for delay and then lets a single trial publish decide whether it
// closes again.
func newBreaker(logger *log.Logger, delay time.Duration) circuitbreaker.CircuitBreaker[any] {
	return circuitbreaker.NewBuilder[any]().
		WithFailureThreshold(maxFailures).
		WithDelay(delay).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			logger.Warn("AMQP circuit breaker state change",
				"from_state", stateName(e.OldState),
				"to_state", stateName(e.NewState))
		}).
		Build()
}

func stateName(s circuitbreaker.State) string {
	switch s {
	case circuitbreaker.ClosedState:
		return "closed"
	case circuitbreaker.HalfOpenState:
		return "half-open"
	case circuitbreaker.OpenState:
		return "open"
	default:
		return "unknown"
	}
}

// PublishComparisonViewed publishes a persistent ComparisonViewedMessage.
func (c *Client) PublishComparisonViewed(ctx context.Context, req core.ComparisonRequest, leftPosts, rightPosts int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := NewComparisonViewedMessage(req, leftPosts, rightPosts)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = failsafe.With(c.breaker).Run(func() error {
		return c.publishWithRedial(ctx, body)
	})
	if errors.Is(err, ErrCircuitOpen) {
		return fmt.Errorf("publish comparison event: %w", err)
	}
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	c.logger.DebugContext(ctx, "Published comparison event",
		log.FieldYearA, req.YearA,
		log.FieldYearB, req.YearB,
		log.FieldMonth, req.Month,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

// publishWithRedial redials once when the publish fails on a broken
// connection.
func (c *Client) publishWithRedial(ctx context.Context, body []byte) error {
	err := c.publish(ctx, body)
	if err == nil || !isConnectionError(err) {
		return err
	}
	c.logger.WarnContext(ctx, "AMQP connection lost, redialing",
		log.FieldError, err.Error(),
		"error_type", log.ErrorTypeNetwork)
	if rerr := c.reconnect(); rerr != nil {
		return fmt.Errorf("%w (redial: %v)", err, rerr)
	}
	return c.publish(ctx, body)
}

func (c *Client) publish(ctx context.Context, body []byte) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return amqp091.ErrClosed
	}
	return ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

func (c *Client) reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return c.connectLocked()
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "channel/connection is not open"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// newDialPolicy retries a failed dial with a backoff of baseBackoff doubling
// up to maxBackoff, for at most attempts dials in total.
func newDialPolicy(attempts int) retrypolicy.RetryPolicy[*Client] {
	return retrypolicy.NewBuilder[*Client]().
		WithMaxAttempts(max(attempts, 1)).
		WithBackoff(baseBackoff, maxBackoff).
		Build()
}

// ConnectWithRetry dials until it succeeds, the attempts are exhausted or
// ctx is done.
func ConnectWithRetry(ctx context.Context, url, exchangeName, queueName string, attempts int, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return dialWithPolicy(ctx, newDialPolicy(attempts), logger, func() (*Client, error) {
		return NewClient(url, exchangeName, queueName, logger)
	})
}

func dialWithPolicy(ctx context.Context, policy retrypolicy.RetryPolicy[*Client], logger *log.Logger, dial func() (*Client, error)) (*Client, error) {
	attempt := 0
	return failsafe.With(policy).WithContext(ctx).Get(func() (*Client, error) {
		attempt++
		c, err := dial()
		if err != nil {
			logger.WithComponent(log.ComponentAMQP).WarnContext(ctx, "AMQP connection failed",
				"attempt", attempt,
				"error_type", log.ErrorTypeNetwork,
				log.FieldError, err.Error())
		}
		return c, err
	})
}

// ConsumeComparisonViewed delivers comparison events to handler until ctx is
// done. Undecodable messages are dropped; messages the handler fails on are
// requeued.
func (c *Client) ConsumeComparisonViewed(ctx context.Context, handler func(context.Context, *ComparisonViewedMessage) error) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return amqp091.ErrClosed
	}

	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "Started consuming comparison events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err().Error())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed: %w", amqp091.ErrClosed)
			}

			msg, err := ComparisonViewedMessageFromJSON(delivery.Body)
			if err != nil {
				c.logger.ErrorContext(ctx, "Failed to decode message", log.FieldError, err.Error())
				_ = delivery.Nack(false, false) // reject and don't requeue
				continue
			}

			if err := handler(ctx, msg); err != nil {
				c.logger.ErrorContext(ctx, "Failed to handle message",
					log.FieldError, err.Error(),
					log.FieldYearA, msg.YearA,
					log.FieldYearB, msg.YearB,
					log.FieldMonth, msg.Month)
				_ = delivery.Nack(false, true) // reject and requeue
				continue
			}

			_ = delivery.Ack(false)
		}
	}
}

func (c *Client) closeLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}

package broker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/domain"
)

// Handler processes one decoded domain event. Delivery is at least once:
// handlers must tolerate duplicate invocations for the same event id.
type Handler func(ctx context.Context, event domain.DomainEvent) error

// ConsumerConfig controls subscription behavior.
type ConsumerConfig struct {
	Brokers        []string
	GroupID        string
	HandlerTimeout time.Duration
	DedupeSize     int
}

// Consumer subscribes to the fixed set of order-event subjects and
// dispatches each decoded message to the handler registered for its type.
// Handler errors are logged, never fatal to the consume loop; there is no
// dead-letter queue or retry-with-backoff in this layer.
type Consumer struct {
	cfg    ConsumerConfig
	logger *zap.Logger

	mu       sync.Mutex
	handlers map[domain.EventType]Handler
	readers  []*kafka.Reader
	seen     *lru.Cache[string, struct{}]
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewConsumer creates an idle consumer; register handlers, then Start.
func NewConsumer(cfg ConsumerConfig, logger *zap.Logger) (*Consumer, error) {
	if cfg.GroupID == "" {
		cfg.GroupID = "procurement-core"
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 30 * time.Second
	}
	if cfg.DedupeSize <= 0 {
		cfg.DedupeSize = 4096
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	seen, err := lru.New[string, struct{}](cfg.DedupeSize)
	if err != nil {
		return nil, err
	}
	return &Consumer{
		cfg:      cfg,
		logger:   logger,
		handlers: make(map[domain.EventType]Handler),
		seen:     seen,
	}, nil
}

// Register binds a handler to an event type. Must be called before Start.
func (c *Consumer) Register(eventType domain.EventType, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[eventType] = handler
}

// Start spawns one consume loop per registered subject.
func (c *Consumer) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.cancel = cancel
	for eventType, handler := range c.handlers {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  c.cfg.Brokers,
			Topic:    string(eventType),
			GroupID:  c.cfg.GroupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		})
		c.readers = append(c.readers, reader)

		c.wg.Add(1)
		go c.consume(runCtx, reader, handler)
	}
	c.mu.Unlock()

	c.logger.Info("event consumer started",
		zap.Int("subjects", len(c.handlers)),
		zap.String("group_id", c.cfg.GroupID))
}

// Stop cancels all consume loops and closes the readers.
func (c *Consumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	readers := c.readers
	c.readers = nil
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	var firstErr error
	for _, reader := range readers {
		if err := reader.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.logger.Info("event consumer stopped")
	return firstErr
}

func (c *Consumer) consume(ctx context.Context, reader *kafka.Reader, handler Handler) {
	defer c.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		message, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("message fetch failed", zap.String("topic", reader.Config().Topic), zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		c.handleMessage(ctx, message, handler)

		if err := reader.CommitMessages(ctx, message); err != nil && ctx.Err() == nil {
			c.logger.Warn("offset commit failed", zap.String("topic", reader.Config().Topic), zap.Error(err))
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, message kafka.Message, handler Handler) {
	event, err := decodeEvent(message.Value)
	if err != nil {
		c.logger.Error("undecodable event dropped",
			zap.String("topic", message.Topic),
			zap.Int64("offset", message.Offset),
			zap.Error(err))
		return
	}

	// Best-effort duplicate suppression within this process. Downstream
	// collaborators still carry the idempotency responsibility.
	if _, duplicate := c.seen.Get(event.ID); duplicate {
		c.logger.Debug("duplicate event skipped", zap.String("event_id", event.ID))
		return
	}

	handleCtx, cancel := context.WithTimeout(ctx, c.cfg.HandlerTimeout)
	err = handler(handleCtx, event)
	cancel()

	if err != nil {
		// Handler failures are contained: the message is still committed,
		// side-effect failures were already collected and logged per task.
		c.logger.Error("event handling failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return
	}
	c.seen.Add(event.ID, struct{}{})
}

// decodeEvent parses a raw message into a domain event. Messages that do not
// parse, or that lack an id or type, are rejected with ErrInvalidPayload.
func decodeEvent(value []byte) (domain.DomainEvent, error) {
	var event domain.DomainEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return domain.DomainEvent{}, errors.Join(domain.ErrInvalidPayload, err)
	}
	if event.ID == "" || event.Type == "" {
		return domain.DomainEvent{}, domain.ErrInvalidPayload
	}
	return event, nil
}

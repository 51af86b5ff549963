package broker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/domain"
)

// PublisherConfig controls the broker connection and reconnect behavior.
type PublisherConfig struct {
	Brokers           []string
	MaxReconnects     int
	ReconnectBackoff  time.Duration
	WriteTimeout      time.Duration
	AllowAutoCreation bool
}

// ConnectionStatus is a snapshot of the publisher's broker connection.
type ConnectionStatus struct {
	Connected         bool      `json:"connected"`
	ReconnectAttempts int       `json:"reconnect_attempts"`
	LastError         string    `json:"last_error,omitempty"`
	LastConnectedAt   time.Time `json:"last_connected_at,omitempty"`
}

// Publisher serializes domain events and writes them to the subject (topic)
// equal to the event type string. It keeps one logical broker connection:
// Publish fails when not connected, there is no silent buffering. On write
// errors it reconnects with a bounded attempt count and fixed backoff and
// reports unhealthy once the attempts are exhausted.
type Publisher struct {
	cfg    PublisherConfig
	logger *zap.Logger

	mu           sync.RWMutex
	writers      map[string]*kafka.Writer
	connected    bool
	reconnecting bool
	status       ConnectionStatus
}

// NewPublisher creates a disconnected publisher; call Connect before use.
func NewPublisher(cfg PublisherConfig, logger *zap.Logger) *Publisher {
	if cfg.MaxReconnects <= 0 {
		cfg.MaxReconnects = 5
	}
	if cfg.ReconnectBackoff <= 0 {
		cfg.ReconnectBackoff = 2 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		cfg:     cfg,
		logger:  logger,
		writers: make(map[string]*kafka.Writer),
	}
}

// Connect verifies broker reachability and marks the publisher online.
func (p *Publisher) Connect(ctx context.Context) error {
	if err := p.dial(ctx); err != nil {
		return domain.WrapError(domain.ErrCodeIntegration, "broker connection failed", err)
	}

	p.mu.Lock()
	p.connected = true
	p.status = ConnectionStatus{Connected: true, LastConnectedAt: time.Now().UTC()}
	p.mu.Unlock()

	p.logger.Info("event publisher connected", zap.Strings("brokers", p.cfg.Brokers))
	return nil
}

// Disconnect closes all topic writers and marks the publisher offline.
func (p *Publisher) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.writers, topic)
	}
	p.connected = false
	p.status.Connected = false
	p.logger.Info("event publisher disconnected")
	return firstErr
}

// Publish serializes one event and writes it to the topic named after the
// event type. Submission order is preserved per connection.
func (p *Publisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	return p.write(ctx, []domain.DomainEvent{event})
}

// PublishBatch writes many events, grouped per topic, flushing once per
// topic instead of confirming each message individually.
func (p *Publisher) PublishBatch(ctx context.Context, events []domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	return p.write(ctx, events)
}

// IsHealthy reports whether the connection is usable.
func (p *Publisher) IsHealthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

// GetConnectionStatus returns a snapshot for monitoring.
func (p *Publisher) GetConnectionStatus() ConnectionStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

func (p *Publisher) write(ctx context.Context, events []domain.DomainEvent) error {
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	if !connected {
		return domain.ErrPublisherOffline
	}

	byTopic := make(map[string][]kafka.Message)
	for _, event := range events {
		value, err := json.Marshal(event)
		if err != nil {
			return domain.WrapError(domain.ErrCodeValidation, "event serialization failed", err)
		}
		topic := string(event.Type)
		byTopic[topic] = append(byTopic[topic], kafka.Message{
			Key:   []byte(event.AggregateID),
			Value: value,
			Time:  event.Timestamp,
		})
	}

	for topic, messages := range byTopic {
		writeCtx, cancel := context.WithTimeout(ctx, p.cfg.WriteTimeout)
		err := p.writerFor(topic).WriteMessages(writeCtx, messages...)
		cancel()
		if err != nil {
			p.handleWriteError(err)
			return domain.WrapError(domain.ErrCodeIntegration, "event publish failed", err)
		}
	}
	return nil
}

func (p *Publisher) writerFor(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writer, exists := p.writers[topic]; exists {
		return writer
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(p.cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: p.cfg.AllowAutoCreation,
	}
	p.writers[topic] = writer
	return writer
}

func (p *Publisher) handleWriteError(err error) {
	p.mu.Lock()
	p.connected = false
	p.status.Connected = false
	p.status.LastError = err.Error()
	alreadyReconnecting := p.reconnecting
	p.reconnecting = true
	p.mu.Unlock()

	p.logger.Warn("broker write failed, reconnecting", zap.Error(err))
	if !alreadyReconnecting {
		go p.reconnectLoop()
	}
}

// reconnectLoop retries with a fixed backoff up to the configured attempt
// count; after exhausting attempts the publisher simply stays unhealthy.
func (p *Publisher) reconnectLoop() {
	defer func() {
		p.mu.Lock()
		p.reconnecting = false
		p.mu.Unlock()
	}()

	for attempt := 1; attempt <= p.cfg.MaxReconnects; attempt++ {
		time.Sleep(p.cfg.ReconnectBackoff)

		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.WriteTimeout)
		err := p.dial(ctx)
		cancel()

		p.mu.Lock()
		p.status.ReconnectAttempts = attempt
		if err == nil {
			p.connected = true
			p.status.Connected = true
			p.status.LastError = ""
			p.status.LastConnectedAt = time.Now().UTC()
			p.mu.Unlock()
			p.logger.Info("event publisher reconnected", zap.Int("attempt", attempt))
			return
		}
		p.status.LastError = err.Error()
		p.mu.Unlock()

		p.logger.Warn("broker reconnect attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.cfg.MaxReconnects),
			zap.Error(err))
	}
	p.logger.Error("broker reconnect attempts exhausted, publisher unhealthy")
}

func (p *Publisher) dial(ctx context.Context) error {
	if len(p.cfg.Brokers) == 0 {
		return domain.NewError(domain.ErrCodeIntegration, "no brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", p.cfg.Brokers[0])
	if err != nil {
		return err
	}
	return conn.Close()
}

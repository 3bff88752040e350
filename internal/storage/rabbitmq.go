package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"cv-intake-go/internal/config"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageQueue is the broker surface used by the intake pipeline.
type MessageQueue interface {
	// PublishMessage publishes a raw message to an exchange.
	PublishMessage(ctx context.Context, exchangeName, routingKey string, message []byte, persistent bool) error

	// PublishJSON marshals data to JSON and publishes it.
	PublishJSON(ctx context.Context, exchangeName, routingKey string, data interface{}, persistent bool) error

	// EnsureExchange declares an exchange if it has not been declared yet.
	EnsureExchange(exchangeName, exchangeType string, durable bool) error

	// EnsureQueue declares a queue if it has not been declared yet.
	EnsureQueue(queueName string, durable bool) error

	// BindQueue binds a queue to an exchange with a routing key.
	BindQueue(queueName, exchangeName, routingKey string) error

	// Close closes the connection.
	Close() error
}

var _ MessageQueue = (*RabbitMQ)(nil)

// RabbitMQ provides publish and consume over a pooled set of channels.
type RabbitMQ struct {
	conn         *amqp.Connection
	channelPool  sync.Pool
	exchangeMap  map[string]bool // locally cached declared exchanges
	queueMap     map[string]bool // locally cached declared queues
	bindingMap   map[string]bool // key format: "exchange:queue:routingKey"
	publishMutex sync.Mutex
	cfg          *config.RabbitMQConfig
}

// NewRabbitMQ connects to the broker and verifies a channel can be opened.
func NewRabbitMQ(cfg *config.RabbitMQConfig) (*RabbitMQ, error) {
	if cfg == nil {
		return nil, fmt.Errorf("RabbitMQ config cannot be nil")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("RabbitMQ URL cannot be empty")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ at %s: %w", cfg.URL, err)
	}

	mq := &RabbitMQ{
		conn:        conn,
		exchangeMap: make(map[string]bool),
		queueMap:    make(map[string]bool),
		bindingMap:  make(map[string]bool),
		cfg:         cfg,
	}

	mq.channelPool = sync.Pool{
		New: func() interface{} {
			ch, errPool := conn.Channel()
			if errPool != nil {
				log.Printf("failed to open RabbitMQ channel: %v", errPool)
				return nil
			}
			return ch
		},
	}

	testCh := mq.getChannel()
	if testCh == nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a RabbitMQ channel")
	}
	mq.putChannel(testCh)

	return mq, nil
}

func (r *RabbitMQ) getChannel() *amqp.Channel {
	ch := r.channelPool.Get()
	if ch == nil {
		newCh, err := r.conn.Channel()
		if err != nil {
			log.Printf("failed to open new RabbitMQ channel: %v", err)
			return nil
		}
		return newCh
	}
	return ch.(*amqp.Channel)
}

func (r *RabbitMQ) putChannel(ch *amqp.Channel) {
	if ch != nil {
		r.channelPool.Put(ch)
	}
}

// Close closes the connection.
func (r *RabbitMQ) Close() error {
	return r.conn.Close()
}

// SetupIntakeTopology declares the CV event exchange, both work queues and
// their bindings per the configuration. Idempotent.
func (r *RabbitMQ) SetupIntakeTopology() error {
	if err := r.EnsureExchange(r.cfg.CVEventsExchange, "direct", true); err != nil {
		return err
	}
	if err := r.EnsureQueue(r.cfg.RawCVQueue, true); err != nil {
		return err
	}
	if err := r.BindQueue(r.cfg.RawCVQueue, r.cfg.CVEventsExchange, r.cfg.UploadedRoutingKey); err != nil {
		return err
	}
	if err := r.EnsureQueue(r.cfg.AnalysisQueue, true); err != nil {
		return err
	}
	return r.BindQueue(r.cfg.AnalysisQueue, r.cfg.CVEventsExchange, r.cfg.AnalyzedRoutingKey)
}

// EnsureExchange declares an exchange once per process.
func (r *RabbitMQ) EnsureExchange(exchangeName, exchangeType string, durable bool) error {
	if exchangeName == "" {
		return fmt.Errorf("exchange name cannot be empty")
	}
	// The default exchange cannot be declared by clients.
	if exchangeName == "amq.default" || exchangeName == "default" {
		return fmt.Errorf("cannot declare default exchange %q", exchangeName)
	}

	if _, exists := r.exchangeMap[exchangeName]; exists {
		return nil
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("failed to get RabbitMQ channel")
	}
	defer r.putChannel(ch)

	err := ch.ExchangeDeclare(
		exchangeName,
		exchangeType,
		durable,
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	r.exchangeMap[exchangeName] = true
	return nil
}

// EnsureQueue declares a queue once per process. For queues already in the
// local cache it re-checks existence with a passive declare.
func (r *RabbitMQ) EnsureQueue(queueName string, durable bool) error {
	if _, exists := r.queueMap[queueName]; exists {
		ch := r.getChannel()
		if ch == nil {
			return fmt.Errorf("failed to get RabbitMQ channel")
		}
		defer r.putChannel(ch)

		// Passive declare fails when the queue is gone or its arguments
		// changed, in which case the cache entry is stale.
		_, err := ch.QueueDeclarePassive(queueName, durable, false, false, false, nil)
		if err != nil {
			delete(r.queueMap, queueName)
			return fmt.Errorf("passive declare of queue %q failed: %w", queueName, err)
		}
		return nil
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("failed to get RabbitMQ channel")
	}
	defer r.putChannel(ch)

	_, err := ch.QueueDeclare(
		queueName,
		durable,
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	r.queueMap[queueName] = true
	return nil
}

// BindQueue binds a queue to an exchange once per process.
func (r *RabbitMQ) BindQueue(queueName, exchangeName, routingKey string) error {
	bindingKey := fmt.Sprintf("%s:%s:%s", exchangeName, queueName, routingKey)
	if _, exists := r.bindingMap[bindingKey]; exists {
		return nil
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("failed to get RabbitMQ channel")
	}
	defer r.putChannel(ch)

	err := ch.QueueBind(queueName, routingKey, exchangeName, false, nil)
	if err != nil {
		return fmt.Errorf("failed to bind queue to exchange: %w", err)
	}

	r.bindingMap[bindingKey] = true
	return nil
}

// PublishMessage publishes a message to an exchange.
func (r *RabbitMQ) PublishMessage(ctx context.Context, exchangeName, routingKey string, message []byte, persistent bool) error {
	r.publishMutex.Lock()
	defer r.publishMutex.Unlock()

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("failed to get RabbitMQ channel")
	}
	defer r.putChannel(ch)

	var deliveryMode uint8 = amqp.Transient
	if persistent {
		deliveryMode = amqp.Persistent
	}

	return ch.PublishWithContext(
		ctx,
		exchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: deliveryMode,
			ContentType:  "application/json",
			Body:         message,
			Timestamp:    time.Now(),
		},
	)
}

// PublishJSON marshals data to JSON and publishes it.
func (r *RabbitMQ) PublishJSON(ctx context.Context, exchangeName, routingKey string, data interface{}, persistent bool) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return r.PublishMessage(ctx, exchangeName, routingKey, jsonData, persistent)
}

// StartConsumer consumes a queue on a dedicated channel. The handler's
// return value decides ack (true) or nack-with-requeue (false). Closing
// the returned channel stops the consumer.
func (r *RabbitMQ) StartConsumer(queueName string, prefetchCount int, handler func([]byte) bool) (chan<- struct{}, error) {
	stopCh := make(chan struct{})

	ch := r.getChannel()
	if ch == nil {
		return nil, fmt.Errorf("failed to get RabbitMQ channel")
	}

	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		r.putChannel(ch)
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := ch.Consume(
		queueName,
		"",    // server-generated consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		r.putChannel(ch)
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		defer r.putChannel(ch)

		for {
			select {
			case <-stopCh:
				return
			case delivery, ok := <-deliveries:
				if !ok {
					log.Printf("RabbitMQ channel closed for queue %s", queueName)
					return
				}

				if handler(delivery.Body) {
					if err := delivery.Ack(false); err != nil {
						log.Printf("failed to ack message: %v", err)
					}
				} else {
					if err := delivery.Nack(false, true); err != nil {
						log.Printf("failed to nack message: %v", err)
					}
				}
			}
		}
	}()

	return stopCh, nil
}

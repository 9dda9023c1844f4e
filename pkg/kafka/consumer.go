package kafka

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"

	"HypeRadar/pkg/logger"
)

// MessageHandler handles the payloads of one topic.
type MessageHandler interface {
	Topic() string
	Handle(ctx context.Context, data []byte) error
}

// Reader is the subset of *kafka.Reader the consumer needs.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer feeds one topic to a handler through a small worker pool.
// Offsets are committed after a successful handle, or after the message
// was parked on the DLQ.
type Consumer struct {
	cfg     ConsumerConfig
	log     *logger.Logger
	handler MessageHandler
	reader  Reader
	dlq     Writer

	msgs     chan kafka.Message
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func defaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		GroupID:     "hyperadar",
		WorkerCount: 1,
		BufferSize:  16,
		RetryMax:    3,
		BackoffMin:  100 * time.Millisecond,
		BackoffMax:  5 * time.Second,
		MinBytes:    1,
		MaxBytes:    10e6,
	}
}

func NewConsumer(handler MessageHandler, log *logger.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg := defaultConsumerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: brokers are required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    handler.Topic(),
		GroupID:  cfg.GroupID,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	})
	var dlq Writer
	if cfg.DLQTopic != "" {
		dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Topic: cfg.DLQTopic, Balancer: &kafka.LeastBytes{}}
	}
	return newConsumer(cfg, handler, reader, dlq, log), nil
}

func newConsumer(cfg ConsumerConfig, handler MessageHandler, reader Reader, dlq Writer, log *logger.Logger) *Consumer {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 16
	}
	initConsumerMetrics()
	return &Consumer{
		cfg:     cfg,
		log:     log.With(logger.String("component", "kafka_consumer"), logger.String("topic", handler.Topic())),
		handler: handler,
		reader:  reader,
		dlq:     dlq,
		msgs:    make(chan kafka.Message, cfg.BufferSize),
	}
}

// Start launches the fetch loop and the workers and returns immediately.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(1)
	go c.fetchLoop(ctx)
	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.wg.Add(1)
		go c.worker(ctx)
	}
	c.log.Info("kafka consumer started", logger.Int("workers", c.cfg.WorkerCount), logger.String("group", c.cfg.GroupID))
	return nil
}

// Stop cancels fetching, waits for in-flight messages and closes the reader.
func (c *Consumer) Stop(ctx context.Context) error {
	var err error
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
		}
		if cerr := c.reader.Close(); cerr != nil {
			c.log.Warn("close reader", logger.Error(cerr))
		}
		if c.dlq != nil {
			if cerr := c.dlq.Close(); cerr != nil {
				c.log.Warn("close dlq writer", logger.Error(cerr))
			}
		}
		c.log.Info("kafka consumer stopped")
	})
	return err
}

func (c *Consumer) fetchLoop(ctx context.Context) {
	defer c.wg.Done()
	defer close(c.msgs)

	failures := 0
	for {
		m, err := c.reader.FetchMessage(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			failures++
			c.log.Warn("fetch message", logger.Error(err))
			if !sleepCtx(ctx, backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, failures)) {
				return
			}
			continue
		}
		failures = 0

		select {
		case c.msgs <- m:
			consumerQueueDepth.WithLabelValues(m.Topic).Set(float64(len(c.msgs)))
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) worker(ctx context.Context) {
	defer c.wg.Done()
	for m := range c.msgs {
		c.process(ctx, m)
	}
}

func (c *Consumer) process(ctx context.Context, m kafka.Message) {
	start := time.Now()
	topic := c.handler.Topic()

	var err error
	for attempt := 1; ; attempt++ {
		err = c.handle(ctx, m.Value)
		if err == nil || attempt > c.cfg.RetryMax {
			break
		}
		c.log.Warn("handle failed, retrying", logger.Int("attempt", attempt), logger.Error(err))
		if !sleepCtx(ctx, backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)) {
			return
		}
	}
	consumerHandleLatency.WithLabelValues(topic).Observe(time.Since(start).Seconds())

	commit := err == nil
	if err != nil {
		consumerMessages.WithLabelValues(topic, "error").Inc()
		c.log.Error("handle failed after retries",
			logger.Int64("offset", m.Offset),
			logger.Int("partition", m.Partition),
			logger.Error(err),
		)
		if c.dlq != nil {
			dlqErr := c.dlq.WriteMessages(ctx, kafka.Message{
				Key:     m.Key,
				Value:   m.Value,
				Time:    time.Now(),
				Headers: []kafka.Header{{Key: "source_topic", Value: []byte(topic)}, {Key: "error", Value: []byte(err.Error())}},
			})
			if dlqErr != nil {
				c.log.Error("write dlq", logger.Error(dlqErr))
			} else {
				commit = true
			}
		}
	} else {
		consumerMessages.WithLabelValues(topic, "ok").Inc()
	}

	if commit {
		if cerr := c.reader.CommitMessages(context.WithoutCancel(ctx), m); cerr != nil {
			c.log.Warn("commit offset", logger.Int64("offset", m.Offset), logger.Error(cerr))
		}
	}
}

// handle isolates handler panics so one bad payload cannot kill a worker.
func (c *Consumer) handle(ctx context.Context, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return c.handler.Handle(ctx, data)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	if attempt < 1 {
		attempt = 1
	}
	exp := max
	if attempt < 31 {
		if e := min << uint(attempt-1); e > 0 && e < max {
			exp = e
		}
	}
	// up to 50% jitter
	half := int64(exp) / 2
	if half <= 0 {
		return exp
	}
	return exp - time.Duration(rand.Int63n(half))
}

var (
	consumerOnce          sync.Once
	consumerMessages      *prometheus.CounterVec
	consumerQueueDepth    *prometheus.GaugeVec
	consumerHandleLatency *prometheus.HistogramVec
)

func initConsumerMetrics() {
	consumerOnce.Do(func() {
		consumerMessages = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hyperadar_kafka_consumer_messages_total",
			Help: "Messages handled by result",
		}, []string{"topic", "result"})
		consumerQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hyperadar_kafka_consumer_queue_depth",
			Help: "Messages waiting for a worker",
		}, []string{"topic"})
		consumerHandleLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hyperadar_kafka_consumer_handle_seconds",
			Help:    "Handling time per message including retries",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"})
	})
}

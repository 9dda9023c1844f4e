package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"HypeRadar/pkg/logger"
)

var ErrNoJob = errors.New("no job registered for type")

// RedisQueue is a list-backed job queue. Failed messages wait in a sorted
// set until their retry time, then go back on the list; messages out of
// retries land on a dead-letter list.
type RedisQueue struct {
	log    *logger.Logger
	cfg    Config
	client redis.UniversalClient
	prefix string
	now    func() time.Time

	mu      sync.RWMutex
	jobs    map[string]Job
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type Option func(*RedisQueue)

func WithKeyPrefix(prefix string) Option {
	return func(q *RedisQueue) {
		if prefix != "" {
			q.prefix = prefix
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(q *RedisQueue) { q.now = now }
}

func NewRedisQueue(client redis.UniversalClient, cfg Config, log *logger.Logger, opts ...Option) *RedisQueue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 10 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	q := &RedisQueue{
		log:    log.With(logger.String("component", "queue")),
		cfg:    cfg,
		client: client,
		prefix: "hyperadar:queue",
		now:    time.Now,
		jobs:   make(map[string]Job),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *RedisQueue) Register(jobs ...Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, j := range jobs {
		if _, dup := q.jobs[j.Type()]; dup {
			q.log.Warn("job already registered", logger.String("type", j.Type()))
			continue
		}
		q.jobs[j.Type()] = j
	}
}

// Enqueue pushes a message for msgType. The payload is JSON encoded.
func (q *RedisQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) error {
	q.mu.RLock()
	_, ok := q.jobs[msgType]
	q.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoJob, msgType)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	data, err := json.Marshal(Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   raw,
		Timestamp: q.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := q.client.LPush(ctx, q.queueKey(), string(data)).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}
	return nil
}

// Start launches the workers and the retry mover.
func (q *RedisQueue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return fmt.Errorf("queue already running")
	}
	if err := q.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	ctx, q.cancel = context.WithCancel(ctx)
	q.running = true
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
	q.wg.Add(1)
	go q.retryLoop(ctx)

	q.log.Info("queue started", logger.Int("workers", q.cfg.Workers))
	return nil
}

// Stop cancels the workers and waits for them or for ctx.
func (q *RedisQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		q.log.Info("queue stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for queue workers: %w", ctx.Err())
	}
}

func (q *RedisQueue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	for ctx.Err() == nil {
		res, err := q.client.BRPop(ctx, q.cfg.PollInterval, q.queueKey()).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			q.log.Error("brpop", logger.Int("worker", id), logger.Error(err))
			sleep(ctx, time.Second)
			continue
		}
		if len(res) < 2 {
			continue
		}
		var msg Message
		if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
			q.log.Error("decode message", logger.Error(err))
			continue
		}
		q.process(ctx, msg)
	}
}

func (q *RedisQueue) process(ctx context.Context, msg Message) {
	q.mu.RLock()
	job, ok := q.jobs[msg.Type]
	q.mu.RUnlock()
	if !ok {
		q.log.Error("no job for message", logger.String("type", msg.Type), logger.String("id", msg.ID))
		q.deadLetter(ctx, msg)
		return
	}

	start := q.now()
	err := job.Handle(ctx, msg.Payload)
	if err == nil {
		q.log.Debug("job done", logger.String("type", msg.Type), logger.Duration("elapsed_ms", q.now().Sub(start)))
		return
	}
	if ctx.Err() != nil {
		return
	}

	q.log.Error("job failed",
		logger.String("type", msg.Type),
		logger.String("id", msg.ID),
		logger.Int("attempt", msg.Attempts+1),
		logger.Error(err),
	)
	if msg.Attempts >= q.cfg.RetryLimit {
		q.deadLetter(ctx, msg)
		return
	}
	msg.Attempts++
	q.scheduleRetry(ctx, msg, q.now().Add(q.cfg.RetryDelay))
}

func (q *RedisQueue) scheduleRetry(ctx context.Context, msg Message, at time.Time) {
	data, err := json.Marshal(msg)
	if err != nil {
		q.log.Error("marshal retry", logger.Error(err))
		return
	}
	if err := q.client.ZAdd(context.WithoutCancel(ctx), q.retryKey(), redis.Z{Score: float64(at.Unix()), Member: string(data)}).Err(); err != nil {
		q.log.Error("zadd retry", logger.Error(err))
	}
}

func (q *RedisQueue) deadLetter(ctx context.Context, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		q.log.Error("marshal dlq", logger.Error(err))
		return
	}
	if err := q.client.LPush(context.WithoutCancel(ctx), q.deadKey(), string(data)).Err(); err != nil {
		q.log.Error("lpush dlq", logger.Error(err))
	}
}

func (q *RedisQueue) retryLoop(ctx context.Context) {
	defer q.wg.Done()
	t := time.NewTicker(5 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := q.moveDue(ctx); err != nil && ctx.Err() == nil {
				q.log.Error("move due retries", logger.Error(err))
			}
		}
	}
}

// moveDue puts retries whose time has come back on the work list.
func (q *RedisQueue) moveDue(ctx context.Context) error {
	due, err := q.client.ZRangeByScore(ctx, q.retryKey(), &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(q.now().Unix(), 10),
	}).Result()
	if err != nil {
		return err
	}
	for _, member := range due {
		pipe := q.client.TxPipeline()
		pipe.ZRem(ctx, q.retryKey(), member)
		pipe.LPush(ctx, q.queueKey(), member)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func (q *RedisQueue) queueKey() string { return q.prefix + ":messages" }
func (q *RedisQueue) retryKey() string { return q.prefix + ":retry" }
func (q *RedisQueue) deadKey() string  { return q.prefix + ":dlq" }

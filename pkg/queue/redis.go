package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"FinCast/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	popTimeout    = time.Second
	retryInterval = 5 * time.Second
	pingTimeout   = 5 * time.Second
)

// RedisQueue is a Redis-list job queue. The same process publishes to
// it and consumes from it.
type RedisQueue struct {
	log    *logger.Logger
	cfg    *QueueConfig
	client *redis.Client

	queueKey string
	retryKey string
	dlqKey   string

	mu      sync.Mutex
	jobs    map[string]Job
	running bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ QueueService = (*RedisQueue)(nil)

// RedisQueueOption configures the queue.
type RedisQueueOption func(*RedisQueue)

// WithKeyPrefix overrides the Redis key prefix.
func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) {
		r.setKeys(prefix)
	}
}

// NewRedisQueue creates the queue on an existing Redis connection.
func NewRedisQueue(log *logger.Logger, cfg *QueueConfig, client *redis.Client, opts ...RedisQueueOption) *RedisQueue {
	if cfg == nil {
		cfg = &QueueConfig{}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	rq := &RedisQueue{
		log:    log,
		cfg:    cfg,
		client: client,
		jobs:   make(map[string]Job),
		ctx:    ctx,
		cancel: cancel,
	}
	rq.setKeys("fincast:queue")
	for _, opt := range opts {
		opt(rq)
	}
	return rq
}

func (r *RedisQueue) setKeys(prefix string) {
	r.queueKey = prefix + ":messages"
	r.retryKey = prefix + ":retry"
	r.dlqKey = prefix + ":dlq"
}

// Register routes messages of job.Type() to job.
func (r *RedisQueue) Register(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.Type()]; exists {
		r.log.Warn("job already registered", logger.String("job", job.Name()))
		return
	}
	r.jobs[job.Type()] = job
	r.log.Info("job registered",
		logger.String("job", job.Name()),
		logger.String("type", job.Type()))
}

// Start verifies the connection and launches the workers and the
// retry scheduler.
func (r *RedisQueue) Start() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return errors.New("queue already running")
	}
	r.running = true
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		return fmt.Errorf("redis ping: %w", err)
	}

	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	r.wg.Add(1)
	go r.retryLoop()

	r.log.Info("job queue started",
		logger.Int("workers", r.cfg.Workers),
		logger.String("addr", r.client.Options().Addr))
	return nil
}

// Stop cancels the workers and waits for them up to ctx's deadline.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.mu.Unlock()

	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		r.log.Warn("queue workers did not drain in time", logger.Error(ctx.Err()))
		return ctx.Err()
	case <-done:
		r.log.Info("job queue stopped")
		return nil
	}
}

// PublishMessage enqueues a payload for the job registered under
// msgType.
func (r *RedisQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	r.mu.Lock()
	running := r.running
	_, known := r.jobs[msgType]
	r.mu.Unlock()

	if !running {
		return errors.New("queue not running")
	}
	if !known {
		return fmt.Errorf("no job registered for type %q", msgType)
	}

	env := envelope{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := r.client.LPush(ctx, r.queueKey, data).Err(); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	return nil
}

func (r *RedisQueue) worker(id int) {
	defer r.wg.Done()
	r.log.Debug("queue worker started", logger.Int("worker", id))

	for {
		select {
		case <-r.ctx.Done():
			return
		default:
			r.popOne()
		}
	}
}

// popOne blocks on the list for up to popTimeout and dispatches what
// it got, if anything.
func (r *RedisQueue) popOne() {
	result, err := r.client.BRPop(r.ctx, popTimeout, r.queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		r.log.Error("queue pop failed", logger.Error(err))
		time.Sleep(time.Second)
		return
	}
	if len(result) < 2 {
		return
	}

	var env envelope
	if err := json.Unmarshal([]byte(result[1]), &env); err != nil {
		r.log.Error("queue message malformed", logger.Error(err))
		return
	}
	r.dispatch(env)
}

func (r *RedisQueue) dispatch(env envelope) {
	r.mu.Lock()
	job, ok := r.jobs[env.Type]
	r.mu.Unlock()
	if !ok {
		r.log.Error("no job for message type",
			logger.String("type", env.Type),
			logger.String("id", env.ID))
		return
	}

	// Payloads decode off the wire as map[string]interface{}; hand
	// handlers raw JSON so ParsePayload can type them.
	payload := env.Payload
	if m, ok := payload.(map[string]interface{}); ok {
		if data, err := json.Marshal(m); err == nil {
			payload = json.RawMessage(data)
		}
	}

	start := time.Now()
	err := job.Handle(r.ctx, payload)
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		r.log.Warn("job interrupted",
			logger.String("id", env.ID),
			logger.String("job", job.Name()),
			logger.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		return
	}
	r.retryOrBury(env, job, err)
}

func (r *RedisQueue) retryOrBury(env envelope, job Job, err error) {
	r.log.Error("job failed",
		logger.String("id", env.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", env.Attempts+1),
		logger.Error(err))

	if env.Attempts >= r.cfg.RetryLimit {
		r.log.Error("job exhausted retries, moving to dead letter",
			logger.String("id", env.ID),
			logger.String("job", job.Name()))
		r.pushDeadLetter(env)
		return
	}

	env.Attempts++
	due := time.Now().Add(r.cfg.RetryDelay)
	data, merr := json.Marshal(env)
	if merr != nil {
		r.log.Error("marshal retry", logger.Error(merr))
		return
	}
	zerr := r.client.ZAdd(context.Background(), r.retryKey, redis.Z{
		Score:  float64(due.Unix()),
		Member: data,
	}).Err()
	if zerr != nil {
		r.log.Error("schedule retry", logger.Error(zerr))
		return
	}
	r.log.Info("job retry scheduled",
		logger.String("id", env.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", env.Attempts),
		logger.String("due", due.Format(time.RFC3339)))
}

func (r *RedisQueue) pushDeadLetter(env envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		r.log.Error("marshal dead letter", logger.Error(err))
		return
	}
	if err := r.client.LPush(context.Background(), r.dlqKey, data).Err(); err != nil {
		r.log.Error("push dead letter", logger.Error(err))
	}
}

// retryLoop moves due retries from the sorted set back onto the list.
func (r *RedisQueue) retryLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.requeueDue()
		}
	}
}

func (r *RedisQueue) requeueDue() {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	due, err := r.client.ZRangeByScore(r.ctx, r.retryKey, &redis.ZRangeBy{
		Min: "0",
		Max: now,
	}).Result()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		r.log.Error("fetch due retries", logger.Error(err))
		return
	}

	for _, member := range due {
		select {
		case <-r.ctx.Done():
			return
		default:
		}

		pipe := r.client.TxPipeline()
		pipe.ZRem(r.ctx, r.retryKey, member)
		pipe.LPush(r.ctx, r.queueKey, member)
		if _, err := pipe.Exec(r.ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			r.log.Error("requeue retry", logger.Error(err))
		}
	}
}

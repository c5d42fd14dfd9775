package notify

import (
	"context"
	"errors"
	"math/rand"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"senseibot/internal/transport"
	logx "senseibot/pkg/logx"
)

var (
	ErrQueueFull = errors.New("notifier queue full")
	ErrStopped   = errors.New("notifier stopped")
)

// Config tunes the async delivery pipeline. Zero values pick safe defaults.
type Config struct {
	Workers       int
	QueueSize     int
	RatePerSec    int
	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
}

func (c *Config) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.RatePerSec <= 0 {
		// Telegram tolerates short bursts but throttles sustained sends.
		c.RatePerSec = 3
	}
	if c.RetryMax < 0 {
		c.RetryMax = 0
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 500 * time.Millisecond
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = 10 * time.Second
	}
}

// Service is an async announcement pipeline: queue + worker pool + rate
// limit + retry. It is safe for concurrent use.
type Service struct {
	mu sync.Mutex

	log     logx.Logger
	adapter transport.Adapter
	cfg     Config
	limiter *rate.Limiter

	accepting bool
	enqueueWG sync.WaitGroup

	queue    chan transport.Notification
	workerWG sync.WaitGroup

	runCtx    context.Context
	runCancel context.CancelFunc
}

func New(cfg Config, adapter transport.Adapter, log logx.Logger) *Service {
	cfg.applyDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		log:     log,
		adapter: adapter,
		cfg:     cfg,
		// Token bucket: burst = rate per sec, so short spikes don't block too hard.
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
	}
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.queue != nil {
		s.mu.Unlock()
		return
	}
	s.queue = make(chan transport.Notification, s.cfg.QueueSize)
	s.accepting = true
	s.runCtx, s.runCancel = context.WithCancel(ctx)
	workers := s.cfg.Workers
	q := s.queue
	runCtx := s.runCtx
	s.mu.Unlock()

	for i := 0; i < workers; i++ {
		i := i
		s.workerWG.Add(1)
		go func() {
			defer s.workerWG.Done()
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("panic in notifier worker",
						logx.Int("worker", i),
						logx.Any("panic", r),
						logx.String("stack", string(debug.Stack())))
				}
			}()
			s.workerLoop(runCtx, q)
		}()
	}
}

// Stop blocks new enqueues and drains the queue best-effort until ctx
// expires.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	q := s.queue
	cancel := s.runCancel
	if q == nil {
		s.mu.Unlock()
		return
	}
	s.accepting = false
	s.mu.Unlock()

	// Wait for in-flight enqueues before closing the queue.
	enqDone := make(chan struct{})
	go func() {
		s.enqueueWG.Wait()
		close(enqDone)
	}()
	select {
	case <-ctx.Done():
		if cancel != nil {
			cancel()
		}
		// Still close the queue once in-flight enqueues finish, so
		// workers blocked on it exit instead of leaking.
		go func() {
			<-enqDone
			close(q)
		}()
		return
	case <-enqDone:
	}

	close(q)

	workersDone := make(chan struct{})
	go func() {
		s.workerWG.Wait()
		close(workersDone)
	}()
	select {
	case <-ctx.Done():
	case <-workersDone:
	}
	if cancel != nil {
		cancel()
	}

	s.mu.Lock()
	s.queue = nil
	s.runCtx = nil
	s.runCancel = nil
	s.mu.Unlock()
}

// Enqueue queues one announcement for async delivery.
func (s *Service) Enqueue(ctx context.Context, n transport.Notification) error {
	if ctx != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	s.mu.Lock()
	if !s.accepting || s.queue == nil {
		s.mu.Unlock()
		return ErrStopped
	}
	q := s.queue
	s.enqueueWG.Add(1)
	s.mu.Unlock()
	defer s.enqueueWG.Done()

	select {
	case q <- n:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *Service) workerLoop(runCtx context.Context, q <-chan transport.Notification) {
	for n := range q {
		select {
		case <-runCtx.Done():
			return
		default:
		}
		s.sendWithRetry(runCtx, n)
	}
}

func (s *Service) sendWithRetry(runCtx context.Context, n transport.Notification) {
	if n.Text == "" {
		return
	}

	maxAttempts := 1 + s.cfg.RetryMax
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := s.limiter.Wait(runCtx); err != nil {
			return
		}

		// Bound per-send call to keep workers from hanging on one target.
		callCtx, cancel := context.WithTimeout(runCtx, 10*time.Second)
		_, err := s.adapter.SendText(callCtx, n.Target, n.Text, n.Options)
		cancel()
		if err == nil {
			return
		}
		lastErr = err
		s.log.Debug("notify send failed",
			logx.Err(err),
			logx.Int("attempt", attempt),
			logx.Int("max", maxAttempts))

		if attempt >= maxAttempts {
			break
		}
		t := time.NewTimer(retryDelay(s.cfg, attempt))
		select {
		case <-t.C:
		case <-runCtx.Done():
			if !t.Stop() {
				<-t.C
			}
			return
		}
	}

	if lastErr != nil {
		s.log.Warn("notification dropped after retries",
			logx.Int64("chat_id", n.Target.ChatID),
			logx.Err(lastErr))
	}
}

// retryDelay returns the jittered exponential backoff before the next
// attempt. attempt starts at 1.
func retryDelay(cfg Config, attempt int) time.Duration {
	d := cfg.RetryBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= cfg.RetryMaxDelay {
			d = cfg.RetryMaxDelay
			break
		}
	}
	// Jitter 0.7..1.3
	j := 0.7 + rand.Float64()*0.6
	d = time.Duration(float64(d) * j)
	if d < 0 {
		return 0
	}
	if d > cfg.RetryMaxDelay {
		d = cfg.RetryMaxDelay
	}
	return d
}

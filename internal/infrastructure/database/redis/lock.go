package redis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

var (
	ErrLockNotAcquired = errors.New(errors.ErrCodeConflict, "failed to acquire lock")
	ErrLockNotHeld     = errors.New(errors.ErrCodeConflict, "lock not held by this owner")
)

// Mutex is a single-owner lease on a key.  The worker takes one per task
// list so two drains never process the same list.
type Mutex struct {
	client *Client
	key    string
	value  string
	ttl    time.Duration
	retry  time.Duration
	logger logging.Logger

	mu             sync.Mutex
	watchdogCancel context.CancelFunc
	watchdogDone   chan struct{}
}

// MutexOption configures a Mutex.
type MutexOption func(*Mutex)

func WithLockTTL(ttl time.Duration) MutexOption {
	return func(m *Mutex) { m.ttl = ttl }
}

func WithRetryDelay(d time.Duration) MutexOption {
	return func(m *Mutex) { m.retry = d }
}

// NewMutex creates a mutex named name.  The lease is kept alive by a
// watchdog while held.
func NewMutex(client *Client, name string, log logging.Logger, opts ...MutexOption) *Mutex {
	m := &Mutex{
		client: client,
		key:    client.Key("lock:" + name),
		value:  uuid.New().String(),
		ttl:    30 * time.Second,
		retry:  100 * time.Millisecond,
		logger: log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// TryLock takes the lease if it is free.
func (m *Mutex) TryLock(ctx context.Context) (bool, error) {
	ok, err := m.client.rdb.SetNX(ctx, m.key, m.value, m.ttl).Result()
	if err != nil {
		return false, storeError(err, "setnx", m.key)
	}
	if ok {
		m.startWatchdog()
	}
	return ok, nil
}

// Lock waits for the lease until ctx is done.
func (m *Mutex) Lock(ctx context.Context) error {
	for {
		ok, err := m.TryLock(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ErrLockNotAcquired
		case <-time.After(m.retry):
		}
	}
}

// Unlock releases the lease if this mutex still holds it.
func (m *Mutex) Unlock(ctx context.Context) error {
	m.stopWatchdog()
	res, err := unlockScript.Run(ctx, m.client.rdb, []string{m.key}, m.value).Int64()
	if err != nil {
		return storeError(err, "unlock", m.key)
	}
	if res == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Extend pushes the expiry out to ttl from now.
func (m *Mutex) Extend(ctx context.Context, ttl time.Duration) (bool, error) {
	res, err := extendScript.Run(ctx, m.client.rdb, []string{m.key}, m.value, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, storeError(err, "extend", m.key)
	}
	return res == 1, nil
}

func (m *Mutex) startWatchdog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watchdogCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.watchdogCancel = cancel
	m.watchdogDone = make(chan struct{})
	go m.watchdog(ctx, m.watchdogDone)
}

func (m *Mutex) stopWatchdog() {
	m.mu.Lock()
	cancel, done := m.watchdogCancel, m.watchdogDone
	m.watchdogCancel = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (m *Mutex) watchdog(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := m.Extend(ctx, m.ttl)
			if err != nil {
				if ctx.Err() == nil {
					m.logger.Error("Watchdog failed to extend lock", logging.String("key", m.key), logging.Err(err))
				}
				return
			}
			if !ok {
				m.logger.Warn("Watchdog lost lock", logging.String("key", m.key))
				return
			}
		}
	}
}

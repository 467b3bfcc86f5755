// Package redislock provides a single-holder lease on a Redis key, used to
// keep processes from running the same job concurrently.
package redislock

import (
	"context"
	"crypto/tls"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotHeld is returned by Release when the lease was lost (expired or taken).
var ErrNotHeld = errors.New("redislock: lease not held")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Locker hands out leases on keys.
type Locker struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// New creates a Locker. Leases expire after ttl unless refreshed.
func New(client redis.UniversalClient, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Locker{client: client, ttl: ttl}
}

// NewClient parses a redis:// or rediss:// URL into a client.
func NewClient(redisURL string, tlsInsecure bool) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if tlsInsecure {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{}
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}
	return redis.NewClient(opt), nil
}

// Lease is a held lock. It refreshes itself until released or lost.
type Lease struct {
	locker   *Locker
	key      string
	token    string
	stop     chan struct{}
	lost     chan struct{}
	once     sync.Once
	lostOnce sync.Once
	wg       sync.WaitGroup
}

// TryAcquire takes the lease on key if nobody holds it. ok is false when the
// key is already held.
func (l *Locker) TryAcquire(ctx context.Context, key string) (lease *Lease, ok bool, err error) {
	token := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !acquired {
		return nil, false, nil
	}

	lease = &Lease{locker: l, key: key, token: token, stop: make(chan struct{}), lost: make(chan struct{})}
	lease.wg.Add(1)
	go lease.keepAlive()
	return lease, true, nil
}

// Lost is closed when the lease stops being ours: another holder took the
// key, or refreshes kept failing until the TTL ran out.
func (lease *Lease) Lost() <-chan struct{} {
	return lease.lost
}

func (lease *Lease) keepAlive() {
	defer lease.wg.Done()
	ticker := time.NewTicker(lease.locker.ttl / 3)
	defer ticker.Stop()

	lastRefresh := time.Now()
	for {
		select {
		case <-lease.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			n, err := refreshScript.Run(ctx, lease.locker.client, []string{lease.key}, lease.token, lease.locker.ttl.Milliseconds()).Int()
			cancel()

			switch {
			case err == nil && n == 1:
				lastRefresh = time.Now()
			case err == nil:
				lease.markLost()
				return
			case time.Since(lastRefresh) >= lease.locker.ttl:
				lease.markLost()
				return
			}
		}
	}
}

func (lease *Lease) markLost() {
	lease.lostOnce.Do(func() { close(lease.lost) })
}

// Release stops refreshing and deletes the key if this lease still owns it.
func (lease *Lease) Release(ctx context.Context) error {
	lease.once.Do(func() { close(lease.stop) })
	lease.wg.Wait()

	n, err := releaseScript.Run(ctx, lease.locker.client, []string{lease.key}, lease.token).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

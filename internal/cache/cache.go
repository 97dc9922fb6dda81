// Package cache wraps Redis as a keyed, TTL'd memoization layer with three
// independent keyspaces. Callers degrade to a miss on read and a no-op on
// write when Redis is unavailable — the engine must keep scoring either way.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v9"
)

// Keyspace TTLs named by the cache contract.
const (
	UserRiskTTL    = 30 * time.Minute
	EntityTTL      = 60 * time.Minute
	PropagationTTL = 15 * time.Minute
)

// ReadDeadline bounds how long a cache read may suspend before it is
// treated as a miss.
const ReadDeadline = 20 * time.Millisecond

func userRiskKey(userID string) string           { return "user_risk:" + userID }
func entityKey(typ, id string) string            { return fmt.Sprintf("entity:%s:%s", typ, id) }
func propagationKey(fingerprint string) string    { return "propagation:" + fingerprint }

// Stats are atomic counters surfaced on the cache-stats endpoint.
type Stats struct {
	Hits   int64
	Misses int64
	Errors int64
}

// HitRate returns hits / (hits+misses), or 0 if nothing was ever looked up.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache is the RiskMesh-facing handle over a Redis client. Unavailability is
// never fatal: every method swallows transport errors into a miss/no-op and
// logs once per interval rather than per request.
type Cache struct {
	client *redis.Client

	hits, misses, errs int64

	lastErrLog atomic.Int64 // unix nanos of the last logged error, rate-limits log lines
}

func New(addr, password string, db int) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     50,
		MinIdleConns: 5,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  ReadDeadline,
		WriteTimeout: ReadDeadline,
		MaxRetries:   1,
	})
	return &Cache{client: client}
}

// GetPropagation looks up a cached score under (principal, fingerprint).
func (c *Cache) GetPropagation(ctx context.Context, principal, fingerprint string, out interface{}) bool {
	return c.get(ctx, principal+":"+propagationKey(fingerprint), out)
}

// SetPropagation memoizes a score under (principal, fingerprint).
func (c *Cache) SetPropagation(ctx context.Context, principal, fingerprint string, value interface{}) {
	c.set(ctx, principal+":"+propagationKey(fingerprint), value, PropagationTTL)
}

// InvalidateUserRisk drops a user's cached risk entries — called whenever a
// user's node risk moves by more than 0.05 absolute or it joins a new ring.
func (c *Cache) InvalidateUserRisk(ctx context.Context, userID string) {
	c.del(ctx, userRiskKey(userID))
}

// SetUserRisk / GetUserRisk manage the user_risk:{id} keyspace.
func (c *Cache) SetUserRisk(ctx context.Context, userID string, risk float64) {
	c.set(ctx, userRiskKey(userID), risk, UserRiskTTL)
}

func (c *Cache) GetUserRisk(ctx context.Context, userID string) (float64, bool) {
	var risk float64
	ok := c.get(ctx, userRiskKey(userID), &risk)
	return risk, ok
}

// SetEntity / GetEntity manage the entity:{type}:{id} keyspace.
func (c *Cache) SetEntity(ctx context.Context, typ, id string, value interface{}) {
	c.set(ctx, entityKey(typ, id), value, EntityTTL)
}

func (c *Cache) GetEntity(ctx context.Context, typ, id string, out interface{}) bool {
	return c.get(ctx, entityKey(typ, id), out)
}

func (c *Cache) get(ctx context.Context, key string, target interface{}) bool {
	ctx, cancel := context.WithTimeout(ctx, ReadDeadline)
	defer cancel()

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		atomic.AddInt64(&c.misses, 1)
		return false
	}
	if err != nil {
		c.logDegraded(err)
		atomic.AddInt64(&c.errs, 1)
		atomic.AddInt64(&c.misses, 1)
		return false
	}
	if err := json.Unmarshal(data, target); err != nil {
		atomic.AddInt64(&c.errs, 1)
		atomic.AddInt64(&c.misses, 1)
		return false
	}
	atomic.AddInt64(&c.hits, 1)
	return true
}

func (c *Cache) set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		atomic.AddInt64(&c.errs, 1)
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logDegraded(err)
		atomic.AddInt64(&c.errs, 1)
	}
}

func (c *Cache) del(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logDegraded(err)
		atomic.AddInt64(&c.errs, 1)
	}
}

// logDegraded logs cache unavailability at most once per 30 seconds, as the
// error-handling design requires ("log once per interval").
func (c *Cache) logDegraded(err error) {
	now := time.Now().UnixNano()
	last := c.lastErrLog.Load()
	if now-last < int64(30*time.Second) {
		return
	}
	if c.lastErrLog.CompareAndSwap(last, now) {
		log.Printf("cache: degraded, treating as miss/no-op: %v", err)
	}
}

// Stats reports current hit/miss/error counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:   atomic.LoadInt64(&c.hits),
		Misses: atomic.LoadInt64(&c.misses),
		Errors: atomic.LoadInt64(&c.errs),
	}
}

// Ping checks Redis reachability, for the health checker.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error { return c.client.Close() }

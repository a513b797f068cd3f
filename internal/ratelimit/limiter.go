// Package ratelimit implements a sliding-window attempt counter persisted in
// bbolt. Each check runs in a single read-write transaction, so concurrent
// checks for the same identifier cannot lose an update.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var attemptsBucket = []byte("login_attempts")

// Result is the outcome of a rate limit check.
type Result struct {
	Allowed bool
	// Remaining attempts left in the window after this one.
	Remaining int
	// RetryAfter is set when the attempt is denied: time until the oldest
	// recorded attempt leaves the window.
	RetryAfter time.Duration
}

// Limiter counts attempts per identifier over a trailing window.
type Limiter interface {
	CheckAndRecordAttempt(ctx context.Context, identifier string, limit int, window time.Duration) (*Result, error)
	Reset(ctx context.Context, identifier string) error
	Clear(ctx context.Context) (int, error)
	Sweep(ctx context.Context, maxAge time.Duration) (int, error)
}

// BoltLimiter stores one record per identifier: a JSON array of attempt
// timestamps (unix nanoseconds), keyed by the hex SHA-256 of the identifier.
type BoltLimiter struct {
	db  *bolt.DB
	now func() time.Time
}

var _ Limiter = (*BoltLimiter)(nil)

// Option configures a BoltLimiter.
type Option func(*BoltLimiter)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *BoltLimiter) { l.now = now }
}

// Open opens (or creates) the bbolt file at path.
func Open(path string, opts ...Option) (*BoltLimiter, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open rate limit db %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(attemptsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create rate limit bucket")
	}
	l := &BoltLimiter{db: db, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Close closes the underlying database.
func (l *BoltLimiter) Close() error {
	return l.db.Close()
}

func recordKey(identifier string) []byte {
	sum := sha256.Sum256([]byte(identifier))
	return []byte(hex.EncodeToString(sum[:]))
}

// CheckAndRecordAttempt prunes attempts older than window, denies when limit
// attempts remain, and otherwise records this attempt.
func (l *BoltLimiter) CheckAndRecordAttempt(ctx context.Context, identifier string, limit int, window time.Duration) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := l.now()
	key := recordKey(identifier)
	var res Result

	err := l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(attemptsBucket)
		attempts, err := decodeAttempts(b.Get(key))
		if err != nil {
			return err
		}
		attempts = prune(attempts, now, window)

		if len(attempts) >= limit {
			res.Allowed = false
			if len(attempts) > 0 {
				res.RetryAfter = time.Unix(0, attempts[0]).Add(window).Sub(now)
			}
			// persist the pruned list so stale entries do not linger
			return putAttempts(b, key, attempts)
		}

		attempts = append(attempts, now.UnixNano())
		res.Allowed = true
		res.Remaining = limit - len(attempts)
		return putAttempts(b, key, attempts)
	})
	if err != nil {
		return nil, errors.Wrap(err, "rate limit check")
	}
	return &res, nil
}

// Reset forgets every attempt of identifier.
func (l *BoltLimiter) Reset(ctx context.Context, identifier string) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(attemptsBucket).Delete(recordKey(identifier))
	})
}

// Clear drops all records and returns how many were removed.
func (l *BoltLimiter) Clear(ctx context.Context) (int, error) {
	var n int
	err := l.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(attemptsBucket).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			n++
		}
		if err := tx.DeleteBucket(attemptsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(attemptsBucket)
		return err
	})
	if err != nil {
		return 0, errors.Wrap(err, "clear rate limits")
	}
	return n, nil
}

// Sweep deletes records whose newest attempt is older than maxAge.
func (l *BoltLimiter) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	now := l.now()
	var removed int
	err := l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(attemptsBucket)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			attempts, err := decodeAttempts(v)
			if err != nil || len(prune(attempts, now, maxAge)) == 0 {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "sweep rate limits")
	}
	return removed, nil
}

// prune keeps attempts with now - t < window, preserving order.
func prune(attempts []int64, now time.Time, window time.Duration) []int64 {
	kept := attempts[:0]
	for _, ts := range attempts {
		if now.Sub(time.Unix(0, ts)) < window {
			kept = append(kept, ts)
		}
	}
	return kept
}

func decodeAttempts(v []byte) ([]int64, error) {
	if len(v) == 0 {
		return nil, nil
	}
	var attempts []int64
	if err := json.Unmarshal(v, &attempts); err != nil {
		return nil, errors.Wrap(err, "decode attempts")
	}
	return attempts, nil
}

func putAttempts(b *bolt.Bucket, key []byte, attempts []int64) error {
	if len(attempts) == 0 {
		return b.Delete(key)
	}
	data, err := json.Marshal(attempts)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}

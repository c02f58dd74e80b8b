// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

// Package retry is the single reusable retry helper shared by the Graph
// Writer and Vector Writer, per the design note in spec §9: retry loops
// should live in one place rather than being reimplemented per call site.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Config bounds a retry loop's attempt count and backoff schedule.
type Config struct {
	MaxAttempts int           // total attempts including the first, e.g. 3
	BaseDelay   time.Duration // delay before the first retry
	MaxDelay    time.Duration // backoff ceiling
}

// DefaultConfig matches the Vector Writer's default upsert retry policy
// in §4.6: 3 attempts, 0.5s base delay.
func DefaultConfig() Config {
	return Config{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 30 * time.Second}
}

// IsRetryable decides whether an error is worth retrying. Callers supply
// a predicate scoped to their own transport's error shapes (e.g. gRPC
// status codes, HTTP status, connection errors); retry never guesses.
type IsRetryable func(error) bool

// Do runs op, retrying up to cfg.MaxAttempts times while isRetryable(err)
// holds, with exponential backoff and full jitter between attempts. It
// returns the last error once attempts are exhausted, or the context
// error if ctx is canceled while waiting to retry.
func Do(ctx context.Context, cfg Config, isRetryable IsRetryable, op func(ctx context.Context) error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.MaxAttempts || !isRetryable(lastErr) {
			return lastErr
		}

		delay := backoffWithJitter(attempt, cfg.BaseDelay, cfg.MaxDelay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

// backoffWithJitter computes a full-jitter exponential backoff: a
// uniform random delay in [0, min(maxDelay, baseDelay*2^(attempt-1))).
func backoffWithJitter(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	ceiling := baseDelay << (attempt - 1)
	if ceiling <= 0 || ceiling > maxDelay {
		ceiling = maxDelay
	}
	if ceiling <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(ceiling)))
}

// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")
var errPermanent = errors.New("permanent")

func alwaysRetryable(err error) bool { return errors.Is(err, errTransient) }

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}, alwaysRetryable, func(ctx context.Context) error {
		attempts++
		if attempts < 2 {
			return errTransient
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), DefaultConfig(), alwaysRetryable, func(ctx context.Context) error {
		attempts++
		return errPermanent
	})
	require.ErrorIs(t, err, errPermanent)
	assert.Equal(t, 1, attempts, "non-retryable errors surface immediately")
}

func TestDoExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}, alwaysRetryable, func(ctx context.Context) error {
		attempts++
		return errTransient
	})
	require.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, attempts)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := Do(ctx, Config{MaxAttempts: 5, BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second}, alwaysRetryable, func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			cancel()
		}
		return errTransient
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

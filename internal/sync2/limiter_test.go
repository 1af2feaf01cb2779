// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package sync2_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"storj.io/stroll/internal/sync2"
)

func TestLimiterLimiting(t *testing.T) {
	const N, Limit = 1000, 10
	ctx := context.Background()
	limiter := sync2.NewLimiter(Limit)
	counter := int32(0)
	for i := 0; i < N; i++ {
		limiter.Go(ctx, func() {
			if atomic.AddInt32(&counter, 1) > Limit {
				panic("limit exceeded")
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&counter, -1)
		})
	}
	limiter.Wait()
}

func TestLimiterCancelling(t *testing.T) {
	const Limit = 2
	limiter := sync2.NewLimiter(Limit)

	ctx, cancel := context.WithCancel(context.Background())

	block := make(chan struct{})
	for i := 0; i < Limit; i++ {
		ok := limiter.Go(ctx, func() { <-block })
		if !ok {
			t.Fatal("should be able to start within limit")
		}
	}

	cancel()
	if limiter.Go(ctx, func() { t.Error("should not run") }) {
		t.Fatal("should not start after cancel")
	}

	close(block)
	limiter.Wait()
}

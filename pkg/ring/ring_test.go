// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package ring_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storj.io/stroll/pkg/ring"
)

func TestRecordAndSnapshot(t *testing.T) {
	r := ring.New(100)

	for i := 1; i <= 100; i++ {
		r.Record("get_bars", time.Duration(i)*time.Millisecond, true)
	}
	r.Record("version", time.Millisecond, false)

	stats := r.Snapshot()

	bars, ok := stats.PerTool["get_bars"]
	require.True(t, ok)
	// One get_bars sample was overwritten by the version sample.
	assert.Equal(t, 99, bars.Count)
	assert.Equal(t, 1.0, bars.SuccessRate)
	assert.InDelta(t, 51, bars.P50MS, 2)
	assert.InDelta(t, 96, bars.P95MS, 2)
	assert.InDelta(t, 100, bars.P99MS, 2)

	version := stats.PerTool["version"]
	assert.Equal(t, 1, version.Count)
	assert.Equal(t, 0.0, version.SuccessRate)

	assert.Equal(t, 100, stats.Overall.Count)
	assert.Greater(t, stats.RPS1M, 0.0)
}

func TestRingOverflow(t *testing.T) {
	r := ring.New(10)
	for i := 0; i < 35; i++ {
		r.Record("t", time.Millisecond, true)
	}
	stats := r.Snapshot()
	assert.Equal(t, 10, stats.Overall.Count)
}

func TestEmptySnapshot(t *testing.T) {
	r := ring.New(10)
	stats := r.Snapshot()
	assert.Empty(t, stats.PerTool)
	assert.Equal(t, 0, stats.Overall.Count)
	assert.Equal(t, 0.0, stats.RPS1M)
}

func TestConcurrentRecord(t *testing.T) {
	r := ring.New(5000)

	var group sync.WaitGroup
	for i := 0; i < 8; i++ {
		group.Add(1)
		go func() {
			defer group.Done()
			for j := 0; j < 500; j++ {
				r.Record("t", time.Millisecond, true)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			_ = r.Snapshot()
		}
	}()

	group.Wait()
	<-done

	stats := r.Snapshot()
	assert.Equal(t, 4000, stats.Overall.Count)
	assert.Equal(t, 1.0, stats.Overall.SuccessRate)
}

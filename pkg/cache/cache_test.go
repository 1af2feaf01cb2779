// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package cache

import (
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zeebo/errs"
)

func TestCache_LRU(t *testing.T) {
	cache := New(Options{Capacity: 2})
	check := newChecker(t, cache)

	check("a", 1)
	check("a", 1)
	check("b", 2)
	check("a", 2)
	check("c", 3)
	check("b", 4)
	check("c", 4)
	check("a", 5)
}

func TestCache_Expires(t *testing.T) {
	cache := New(Options{Capacity: 2, Expiration: time.Nanosecond})
	check := newChecker(t, cache)

	check("a", 1)
	time.Sleep(10 * time.Millisecond)
	check("a", 2)
}

func TestCache_TTLOverride(t *testing.T) {
	cache := New(Options{Capacity: 4, Expiration: time.Nanosecond})

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return "v", nil
	}

	// Zero TTL pins the entry.
	_, err := cache.GetTTL("static", 0, fetch)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	_, err = cache.GetTTL("static", 0, fetch)
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestCache_ErrorsNotCached(t *testing.T) {
	cache := New(Options{Capacity: 2})

	calls := 0
	_, err := cache.Get("a", func() (interface{}, error) {
		calls++
		return nil, errs.New("boom")
	})
	require.Error(t, err)

	value, err := cache.Get("a", func() (interface{}, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", value)
	require.Equal(t, 2, calls)
}

func TestCache_Singleflight(t *testing.T) {
	cache := New(Options{Capacity: 8})

	const waiters = 50
	var calls int32
	release := make(chan struct{})

	var group sync.WaitGroup
	results := make([]interface{}, waiters)
	for i := 0; i < waiters; i++ {
		i := i
		group.Add(1)
		go func() {
			defer group.Done()
			value, err := cache.Get("hot", func() (interface{}, error) {
				atomic.AddInt32(&calls, 1)
				<-release
				return "payload", nil
			})
			require.NoError(t, err)
			results[i] = value
		}()
	}

	// Give every goroutine a chance to join the flight, then release it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	group.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, value := range results {
		require.Equal(t, "payload", value)
	}
}

func TestCache_Fuzz(t *testing.T) {
	cache := New(Options{Capacity: 2, Expiration: 100 * time.Millisecond})
	keys := "abcdefghij"

	var ops uint64
	procs := runtime.GOMAXPROCS(-1)

	var group sync.WaitGroup
	failures := make(chan error, procs)
	for i := 0; i < procs; i++ {
		group.Add(1)
		go func() {
			defer group.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano()))
			for {
				if atomic.AddUint64(&ops, 1) > 100000 {
					return
				}

				shouldErr := rng.Intn(10) == 0
				ran := false
				kidx := rng.Intn(len(keys))
				key := keys[kidx : kidx+1]

				value, err := cache.Get(key, func() (interface{}, error) {
					ran = true
					if shouldErr {
						return nil, errs.New("random error")
					}
					return key, nil
				})

				if ran {
					if shouldErr && err == nil {
						failures <- errs.New("should have errored and did not")
						return
					}
					if !shouldErr && err != nil {
						failures <- errs.New("should not have errored but did")
						return
					}
				}
				if err == nil && value != key {
					failures <- errs.New("expected %q but got %q", key, value)
					return
				}
			}
		}()
	}

	group.Wait()
	close(failures)
	for err := range failures {
		require.NoError(t, err)
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("get_bars", "SPY", "2024-01-01", "2024-02-01", "1d")
	b := Fingerprint("get_bars", "SPY", "2024-01-01", "2024-02-01", "1d")
	c := Fingerprint("get_bars", "SPY", "2024-01-01", "2024-02-01", "1m")
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}

//
// helper
//

type checker struct {
	t     *testing.T
	cache *ExpiringLRU
	calls int
}

func newChecker(t *testing.T, cache *ExpiringLRU) func(string, int) {
	return (&checker{t: t, cache: cache}).Check
}

func (c *checker) makeCallback(v interface{}) func() (interface{}, error) {
	return func() (interface{}, error) {
		c.calls++
		return v, nil
	}
}

func (c *checker) Check(key string, calls int) {
	value, err := c.cache.Get(key, c.makeCallback(key))
	require.Equal(c.t, c.calls, calls)
	require.Equal(c.t, value, key)
	require.NoError(c.t, err)
}

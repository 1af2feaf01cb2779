// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package history

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"storj.io/stroll/pkg/catalog"
	"storj.io/stroll/pkg/partition"
	"storj.io/stroll/pkg/wire"
)

// probeTTL bounds how often provider probes actually touch disk.
const probeTTL = 30 * time.Second

const probeCacheKey = "providers"

// providerEntry is one provider row of the provider_status payload.
type providerEntry struct {
	Name           string  `json:"name"`
	Available      bool    `json:"available"`
	ResponseTimeMS float64 `json:"response_time_ms"`
	LastCheck      string  `json:"last_check"`
	Partitions     int     `json:"partitions"`
}

// statusMonitor probes one partition per kind and caches the result.
// Probe failures mark a provider degraded but never quarantine; only
// scan-time errors do that.
type statusMonitor struct {
	log     *zap.Logger
	catalog *catalog.Catalog
	store   *partition.Store
	probes  *gocache.Cache
}

func newStatusMonitor(log *zap.Logger, cat *catalog.Catalog, store *partition.Store) *statusMonitor {
	return &statusMonitor{
		log:     log,
		catalog: cat,
		store:   store,
		probes:  gocache.New(probeTTL, time.Minute),
	}
}

// startupProbe warms the probe cache and logs baseline latencies.
func (monitor *statusMonitor) startupProbe(ctx context.Context) {
	for _, entry := range monitor.report(ctx) {
		monitor.log.Info("startup probe",
			zap.String("provider", entry.Name),
			zap.Bool("available", entry.Available),
			zap.Float64("response_time_ms", entry.ResponseTimeMS))
	}
}

// report returns the provider entries, probing at most once per TTL.
func (monitor *statusMonitor) report(ctx context.Context) []providerEntry {
	if cached, ok := monitor.probes.Get(probeCacheKey); ok {
		return cached.([]providerEntry)
	}

	entries := monitor.probe(ctx)
	monitor.probes.Set(probeCacheKey, entries, gocache.DefaultExpiration)
	return entries
}

func (monitor *statusMonitor) probe(ctx context.Context) []providerEntry {
	now := time.Now().UTC().Format(wire.TimeFormat)
	snap := monitor.catalog.Snapshot()

	if snap.Degraded() {
		return []providerEntry{{
			Name:      "partitions",
			Available: false,
			LastCheck: now,
		}}
	}

	byKind := map[catalog.Kind][]catalog.Entry{}
	for _, entry := range snap.Entries() {
		byKind[entry.Kind] = append(byKind[entry.Kind], entry)
	}

	var out []providerEntry
	for _, kind := range []catalog.Kind{catalog.KindBars, catalog.KindOptions, catalog.KindTicks} {
		entries := byKind[kind]
		if len(entries) == 0 {
			continue
		}
		provider := providerEntry{
			Name:       string(kind),
			LastCheck:  now,
			Partitions: len(entries),
		}
		if latency, err := monitor.probeOne(ctx, entries[0]); err != nil {
			monitor.log.Warn("provider probe failed",
				zap.String("provider", string(kind)), zap.Error(err))
		} else {
			provider.Available = true
			provider.ResponseTimeMS = float64(latency.Microseconds()) / 1000
		}
		out = append(out, provider)
	}

	if len(out) == 0 {
		out = []providerEntry{{
			Name:      "partitions",
			Available: false,
			LastCheck: now,
		}}
	}
	return out
}

func (monitor *statusMonitor) probeOne(ctx context.Context, entry catalog.Entry) (time.Duration, error) {
	handle, err := monitor.store.OpenRead(ctx, entry)
	if err != nil {
		return 0, err
	}
	return monitor.store.Probe(ctx, handle)
}

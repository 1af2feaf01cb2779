// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package query plans read queries across resolved partitions and merges
// their row streams into one ordered result.
package query

import (
	"container/heap"
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/stroll/pkg/catalog"
	"storj.io/stroll/pkg/market"
	"storj.io/stroll/pkg/partition"
)

var (
	mon = monkit.Package()

	// Error is the generic planner class.
	Error = errs.Class("query")
	// ErrNotFound means no partitions cover the requested range.
	ErrNotFound = errs.Class("no partitions cover range")
	// ErrTooLarge means the materialized row cap was exceeded.
	ErrTooLarge = errs.Class("query too large")
)

// DefaultMaxRows bounds how many rows a single query may materialize.
const DefaultMaxRows = 1_000_000

// Request is a planned read query.
type Request struct {
	Symbol      market.Symbol
	From        time.Time
	To          time.Time
	Granularity market.Granularity
}

// Result is a fully materialized, ordered query result with the counters
// accumulated while producing it.
type Result struct {
	Bars             []market.Bar
	Dropped          int
	Total            int
	OverlapConflicts int
	Partitions       int
}

// Planner resolves queries through the catalog and streams rows out of the
// partition store in timestamp order.
type Planner struct {
	log     *zap.Logger
	catalog *catalog.Catalog
	store   *partition.Store
	norm    *market.Normalizer
	maxRows int

	invocations uint64
}

// NewPlanner creates a Planner. maxRows <= 0 selects DefaultMaxRows.
func NewPlanner(log *zap.Logger, cat *catalog.Catalog, store *partition.Store, norm *market.Normalizer, maxRows int) *Planner {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &Planner{
		log:     log,
		catalog: cat,
		store:   store,
		norm:    norm,
		maxRows: maxRows,
	}
}

// Invocations reports how many times the planner has run. The response
// cache's singleflight behavior is asserted against this counter.
func (planner *Planner) Invocations() uint64 {
	return atomic.LoadUint64(&planner.invocations)
}

// Bars runs a bar query across every partition covering the range.
func (planner *Planner) Bars(ctx context.Context, req Request) (_ *Result, err error) {
	defer mon.Task()(&ctx)(&err)
	atomic.AddUint64(&planner.invocations, 1)

	entries := planner.catalog.Snapshot().Resolve(
		req.Symbol, catalog.KindBars, req.Granularity, req.From, req.To)
	if len(entries) == 0 {
		return nil, ErrNotFound.New("%s %s [%s, %s]",
			req.Symbol, req.Granularity,
			market.FormatDate(req.From), market.FormatDate(req.To))
	}

	result := &Result{Partitions: len(entries)}

	// Entries arrive ordered by span start; streams[i] with a larger i is
	// the newer copy wherever spans overlap.
	streams := make([][]market.Bar, 0, len(entries))
	for _, entry := range entries {
		handle, err := planner.store.OpenRead(ctx, entry)
		if err != nil {
			return nil, err
		}
		raws, err := planner.store.ScanBars(ctx, handle,
			req.Symbol, req.From, req.To, req.Granularity, planner.maxRows+1)
		if err != nil {
			return nil, err
		}
		bars, stats, err := planner.norm.NormalizeBars(string(req.Symbol), req.Granularity, raws)
		if err != nil {
			return nil, err
		}
		result.Total += stats.Total
		result.Dropped += stats.Dropped
		streams = append(streams, bars)
	}

	result.Bars, result.OverlapConflicts = mergeStreams(streams)
	if len(result.Bars) > planner.maxRows {
		return nil, ErrTooLarge.New("%d rows exceed cap %d", len(result.Bars), planner.maxRows)
	}
	if result.Dropped > 0 || result.OverlapConflicts > 0 {
		planner.log.Warn("query produced conflicts",
			zap.String("symbol", string(req.Symbol)),
			zap.Int("dropped", result.Dropped),
			zap.Int("overlap_conflicts", result.OverlapConflicts))
	}
	return result, nil
}

// ChainResult is a materialized option chain.
type ChainResult struct {
	Rows       []market.OptionRow
	Dropped    int
	Total      int
	Partitions int
}

// Options fetches the stored chain for (symbol, expiry). An empty chain is
// not an error.
func (planner *Planner) Options(ctx context.Context, symbol market.Symbol, expiry time.Time) (_ *ChainResult, err error) {
	defer mon.Task()(&ctx)(&err)
	atomic.AddUint64(&planner.invocations, 1)

	entries := planner.catalog.Snapshot().Resolve(
		symbol, catalog.KindOptions, "", expiry, expiry)
	if len(entries) == 0 {
		return nil, ErrNotFound.New("options %s %s", symbol, market.FormatDate(expiry))
	}

	result := &ChainResult{Partitions: len(entries)}

	// Later span starts win on duplicate (right, strike) rows; iterate in
	// reverse resolution order so the first copy seen is the newest.
	seen := map[[2]string]bool{}
	for i := len(entries) - 1; i >= 0; i-- {
		handle, err := planner.store.OpenRead(ctx, entries[i])
		if err != nil {
			return nil, err
		}
		raws, err := planner.store.ScanOptions(ctx, handle, symbol, expiry)
		if err != nil {
			return nil, err
		}
		rows, stats, err := planner.norm.NormalizeOptions(string(symbol), raws)
		if err != nil {
			return nil, err
		}
		result.Total += stats.Total
		result.Dropped += stats.Dropped
		for _, row := range rows {
			key := [2]string{string(row.Right), row.Strike.String()}
			if seen[key] {
				continue
			}
			seen[key] = true
			result.Rows = append(result.Rows, row)
		}
	}

	sort.Slice(result.Rows, func(i, j int) bool {
		if result.Rows[i].Right != result.Rows[j].Right {
			return result.Rows[i].Right < result.Rows[j].Right
		}
		return result.Rows[i].Strike < result.Rows[j].Strike
	})
	return result, nil
}

// mergeStreams merges per-partition ordered bar slices into one stream in
// strict timestamp order. On duplicate timestamps across partitions the
// stream with the larger index (the newer span) wins.
func mergeStreams(streams [][]market.Bar) ([]market.Bar, int) {
	switch len(streams) {
	case 0:
		return nil, 0
	case 1:
		return streams[0], 0
	}

	h := &mergeHeap{}
	heap.Init(h)
	for i, stream := range streams {
		if len(stream) > 0 {
			heap.Push(h, mergeItem{bar: stream[0], stream: i, next: 1})
		}
	}

	var out []market.Bar
	conflicts := 0
	for h.Len() > 0 {
		item := heap.Pop(h).(mergeItem)
		if len(out) > 0 && !item.bar.T.After(out[len(out)-1].T) {
			// Same instant already emitted by a newer partition.
			conflicts++
		} else {
			out = append(out, item.bar)
		}
		if item.next < len(streams[item.stream]) {
			heap.Push(h, mergeItem{
				bar:    streams[item.stream][item.next],
				stream: item.stream,
				next:   item.next + 1,
			})
		}
	}
	return out, conflicts
}

type mergeItem struct {
	bar    market.Bar
	stream int
	next   int
}

type mergeHeap []mergeItem

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	if !h[i].bar.T.Equal(h[j].bar.T) {
		return h[i].bar.T.Before(h[j].bar.T)
	}
	// Larger stream index means later span start, which is the copy we keep.
	return h[i].stream > h[j].stream
}

func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x interface{}) { *h = append(*h, x.(mergeItem)) }

func (h *mergeHeap) Pop() interface{} {
	old := *h
	item := old[len(old)-1]
	*h = old[:len(old)-1]
	return item
}

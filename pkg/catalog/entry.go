// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package catalog

import (
	"time"

	"storj.io/stroll/pkg/market"
)

// Kind identifies what a partition file stores.
type Kind string

// Partition kinds. Tick partitions are discovered and reported but not
// queryable through the bar tools.
const (
	KindBars    Kind = "bars"
	KindOptions Kind = "options"
	KindTicks   Kind = "ticks"
)

// Span is an inclusive date range covered by a partition.
type Span struct {
	Start time.Time
	End   time.Time
}

// Intersects reports whether the span overlaps [from, to], inclusive on
// both ends.
func (s Span) Intersects(from, to time.Time) bool {
	return !s.Start.After(to) && !s.End.Before(from)
}

// Entry describes one discovered partition file.
type Entry struct {
	Symbol      market.Symbol
	Kind        Kind
	Granularity market.Granularity
	Span        Span
	Path        string
	Order       int
}

// Key returns the uniqueness key (symbol, kind, granularity, span start).
func (e Entry) Key() string {
	return string(e.Symbol) + "|" + string(e.Kind) + "|" + string(e.Granularity) + "|" + e.Span.Start.Format("2006-01-02")
}

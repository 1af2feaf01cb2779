// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package market

import (
	"strings"
	"time"

	"github.com/zeebo/errs"
)

// Granularity identifies a bar cadence. The canonical forms are
// "1m", "5m", "1h" and "1d".
type Granularity string

// Supported granularities.
const (
	Min1  Granularity = "1m"
	Min5  Granularity = "5m"
	Hour1 Granularity = "1h"
	Day1  Granularity = "1d"
)

// SpanKind describes the date span a single partition file targets.
type SpanKind int

// Partition span kinds, from narrowest to widest.
const (
	SpanMonthly SpanKind = iota
	SpanYearly
	SpanFiveYear
)

var granularityAliases = map[string]Granularity{
	"1m": Min1, "1min": Min1, "1minute": Min1,
	"5m": Min5, "5min": Min5, "5minute": Min5,
	"1h": Hour1, "60m": Hour1, "1hour": Hour1, "h": Hour1,
	"1d": Day1, "d": Day1, "day": Day1, "1day": Day1, "daily": Day1,
}

// ParseGranularity maps a raw string, case-insensitively and through the
// accepted aliases, onto a canonical Granularity.
func ParseGranularity(raw string) (Granularity, error) {
	g, ok := granularityAliases[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", errs.New("unknown granularity %q", raw)
	}
	return g, nil
}

// Cadence returns the expected spacing between consecutive bars.
func (g Granularity) Cadence() time.Duration {
	switch g {
	case Min1:
		return time.Minute
	case Min5:
		return 5 * time.Minute
	case Hour1:
		return time.Hour
	case Day1:
		return 24 * time.Hour
	}
	return 0
}

// PartitionSpan returns the date span a partition file targets for this
// granularity: yearly for 1m, a 5-year window otherwise.
func (g Granularity) PartitionSpan() SpanKind {
	if g == Min1 {
		return SpanYearly
	}
	return SpanFiveYear
}

// Valid reports whether g is one of the canonical granularities.
func (g Granularity) Valid() bool {
	switch g {
	case Min1, Min5, Hour1, Day1:
		return true
	}
	return false
}

func (g Granularity) String() string { return string(g) }

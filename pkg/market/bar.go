// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package market defines the canonical market-data records served by the
// history service and the normalization rules that produce them.
package market

import (
	"time"

	"github.com/zeebo/errs"
)

// Bar is an immutable OHLCV record for a symbol at a fixed cadence.
// The timestamp is always UTC and aligned to the granularity's cadence.
type Bar struct {
	T      time.Time
	O      Price
	H      Price
	L      Price
	C      Price
	V      int64
	Symbol Symbol
	G      Granularity
}

// Validate checks the bar invariants: l ≤ min(o,c) ≤ max(o,c) ≤ h and v ≥ 0.
func (b Bar) Validate() error {
	lo, hi := b.O, b.C
	if lo > hi {
		lo, hi = hi, lo
	}
	if b.L > lo {
		return errs.New("low %v above open/close %v", b.L, lo)
	}
	if b.H < hi {
		return errs.New("high %v below open/close %v", b.H, hi)
	}
	if b.V < 0 {
		return errs.New("negative volume %d", b.V)
	}
	if b.Symbol == "" {
		return errs.New("missing symbol")
	}
	if !b.G.Valid() {
		return errs.New("invalid granularity %q", b.G)
	}
	return nil
}

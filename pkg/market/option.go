// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package market

import (
	"time"

	"github.com/zeebo/errs"
)

// Right distinguishes calls from puts.
type Right string

// Option rights.
const (
	Call Right = "CALL"
	Put  Right = "PUT"
)

// ParseRight canonicalizes an option right string.
func ParseRight(raw string) (Right, error) {
	switch {
	case equalFold(raw, "CALL"), equalFold(raw, "C"):
		return Call, nil
	case equalFold(raw, "PUT"), equalFold(raw, "P"):
		return Put, nil
	}
	return "", errs.New("unknown option right %q", raw)
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'a' && ca <= 'z' {
			ca -= 'a' - 'A'
		}
		if cb >= 'a' && cb <= 'z' {
			cb -= 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// OptionRow is a single stored option-chain row.
// Bid, Ask, Mid, Delta and Gamma are optional.
type OptionRow struct {
	Symbol Symbol
	Expiry time.Time
	Right  Right
	Strike Price
	Bid    *Price
	Ask    *Price
	Mid    *Price
	Delta  *float64
	Gamma  *float64
}

// Validate checks the option-row invariants: strike > 0 and, when both
// quotes are present, bid ≤ ask.
func (r OptionRow) Validate() error {
	if r.Strike <= 0 {
		return errs.New("non-positive strike %v", r.Strike)
	}
	if r.Right != Call && r.Right != Put {
		return errs.New("invalid right %q", r.Right)
	}
	if r.Bid != nil && r.Ask != nil && *r.Bid > *r.Ask {
		return errs.New("bid %v above ask %v", *r.Bid, *r.Ask)
	}
	return nil
}

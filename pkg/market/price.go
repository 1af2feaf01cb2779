// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package market

import (
	"math"
	"strconv"
	"strings"

	"github.com/zeebo/errs"
)

// PriceScale is the number of decimal places a Price retains.
const PriceScale = 4

const priceUnit = 10000

// Price is a signed fixed-point decimal amount with four decimal places,
// stored as an integer number of ten-thousandths.
type Price int64

// PriceFromFloat converts a floating point amount to a Price,
// rounding to the nearest representable value.
func PriceFromFloat(v float64) Price {
	return Price(math.Round(v * priceUnit))
}

// ParsePrice parses a decimal string into a Price.
func ParsePrice(s string) (Price, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, errs.New("invalid price %q: %v", s, err)
	}
	return PriceFromFloat(v), nil
}

// Float64 returns the price as a floating point amount.
func (p Price) Float64() float64 { return float64(p) / priceUnit }

// String returns the canonical decimal form with trailing zeros trimmed.
// Whole amounts keep two decimal places ("1.00"); otherwise every trailing
// zero goes ("1.5").
func (p Price) String() string {
	neg := p < 0
	if neg {
		p = -p
	}
	whole, frac := int64(p)/priceUnit, int64(p)%priceUnit
	s := strconv.FormatInt(whole, 10) + "." + pad4(frac)
	for strings.HasSuffix(s, "0") && !strings.HasSuffix(s, ".00") {
		s = s[:len(s)-1]
	}
	if neg {
		s = "-" + s
	}
	return s
}

func pad4(v int64) string {
	s := strconv.FormatInt(v, 10)
	for len(s) < 4 {
		s = "0" + s
	}
	return s
}

// MarshalJSON writes the price as a bare JSON number.
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalJSON reads a JSON number or numeric string.
func (p *Price) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := ParsePrice(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

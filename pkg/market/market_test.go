// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package market_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storj.io/stroll/pkg/market"
)

func TestPriceString(t *testing.T) {
	type Test struct {
		Amount   market.Price
		Expected string
	}

	tests := []Test{
		{market.PriceFromFloat(1), "1.00"},
		{market.PriceFromFloat(1.5), "1.5"},
		{market.PriceFromFloat(123.4567), "123.4567"},
		{market.PriceFromFloat(0.0001), "0.0001"},
		{market.PriceFromFloat(-1.01), "-1.01"},
		{market.PriceFromFloat(-1234567.89), "-1234567.89"},
	}

	for _, test := range tests {
		assert.Equal(t, test.Expected, test.Amount.String())
	}
}

func TestParsePrice(t *testing.T) {
	p, err := market.ParsePrice("410.2500")
	require.NoError(t, err)
	assert.Equal(t, market.PriceFromFloat(410.25), p)

	_, err = market.ParsePrice("not-a-price")
	require.Error(t, err)
}

func TestCanonSymbol(t *testing.T) {
	sym, err := market.CanonSymbol(" spy ")
	require.NoError(t, err)
	assert.Equal(t, market.Symbol("SPY"), sym)

	_, err = market.CanonSymbol("")
	require.Error(t, err)

	_, err = market.CanonSymbol("WAYTOOLONGSYMBOL12")
	require.Error(t, err)

	_, err = market.CanonSymbol("BAD SYM")
	require.Error(t, err)
}

func TestInternTableIdentity(t *testing.T) {
	tbl := market.NewInternTable()

	a, err := tbl.Intern("spy")
	require.NoError(t, err)
	b, err := tbl.Intern("spy")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, tbl.Len())

	_, err = tbl.Intern("SPY")
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
}

func TestParseGranularity(t *testing.T) {
	type Test struct {
		Raw      string
		Expected market.Granularity
	}

	tests := []Test{
		{"1m", market.Min1},
		{"1MIN", market.Min1},
		{"5min", market.Min5},
		{"1h", market.Hour1},
		{"60m", market.Hour1},
		{"day", market.Day1},
		{"D", market.Day1},
		{"1d", market.Day1},
	}

	for _, test := range tests {
		g, err := market.ParseGranularity(test.Raw)
		require.NoError(t, err, test.Raw)
		assert.Equal(t, test.Expected, g, test.Raw)
	}

	_, err := market.ParseGranularity("fortnight")
	require.Error(t, err)
}

func TestGranularityPartitionSpan(t *testing.T) {
	assert.Equal(t, market.SpanYearly, market.Min1.PartitionSpan())
	assert.Equal(t, market.SpanFiveYear, market.Min5.PartitionSpan())
	assert.Equal(t, market.SpanFiveYear, market.Hour1.PartitionSpan())
	assert.Equal(t, market.SpanFiveYear, market.Day1.PartitionSpan())
}

func TestBarValidate(t *testing.T) {
	good := market.Bar{
		T: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		O: market.PriceFromFloat(100), H: market.PriceFromFloat(105),
		L: market.PriceFromFloat(99), C: market.PriceFromFloat(104),
		V: 1000, Symbol: "SPY", G: market.Day1,
	}
	require.NoError(t, good.Validate())

	bad := good
	bad.L = market.PriceFromFloat(101)
	require.Error(t, bad.Validate())

	bad = good
	bad.H = market.PriceFromFloat(50)
	require.Error(t, bad.Validate())

	bad = good
	bad.V = -1
	require.Error(t, bad.Validate())
}

func TestOptionRowValidate(t *testing.T) {
	bid, ask := market.PriceFromFloat(1.25), market.PriceFromFloat(1.35)
	good := market.OptionRow{
		Symbol: "SPX",
		Expiry: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Right:  market.Call,
		Strike: market.PriceFromFloat(5000),
		Bid:    &bid, Ask: &ask,
	}
	require.NoError(t, good.Validate())

	bad := good
	bad.Strike = 0
	require.Error(t, bad.Validate())

	bad = good
	bad.Bid, bad.Ask = &ask, &bid
	require.Error(t, bad.Validate())

	noQuotes := good
	noQuotes.Bid, noQuotes.Ask = nil, nil
	require.NoError(t, noQuotes.Validate())
}

func TestNormalizeBars(t *testing.T) {
	norm := market.NewNormalizer(market.NewInternTable())

	raws := []market.RawBar{
		{T: "2024-01-02 09:30:00", O: 100, H: 101, L: 99.5, C: 100.5, V: 10},
		{T: "2024-01-02 09:31:00", O: 100.5, H: 102, L: 100, C: 101.5, V: 12},
		// invariant breach: low above close
		{T: "2024-01-02 09:32:00", O: 100, H: 101, L: 100.5, C: 100.2, V: 5},
		// duplicate timestamp, dropped
		{T: "2024-01-02 09:31:00", O: 1, H: 1, L: 1, C: 1, V: 1},
	}

	bars, stats, err := norm.NormalizeBars("spy", market.Min1, raws)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Dropped)
	require.Len(t, bars, 2)

	for i, bar := range bars {
		assert.Equal(t, market.Symbol("SPY"), bar.Symbol)
		assert.Equal(t, market.Min1, bar.G)
		assert.Equal(t, time.UTC, bar.T.Location())
		if i > 0 {
			assert.True(t, bar.T.After(bars[i-1].T))
		}
	}
}

func TestNormalizeBarsPoisoned(t *testing.T) {
	norm := market.NewNormalizer(market.NewInternTable())

	raws := []market.RawBar{
		{T: "2024-01-02", O: 100, H: 101, L: 99, C: 100, V: 1},
		{T: "garbage MST", O: 1, H: 1, L: 1, C: 1, V: 1},
		{T: "also garbage", O: 1, H: 1, L: 1, C: 1, V: 1},
	}

	_, stats, err := norm.NormalizeBars("spy", market.Day1, raws)
	require.Error(t, err)
	require.True(t, market.ErrData.Has(err))
	assert.Equal(t, 2, stats.Dropped)
}

func TestCoerceUTC(t *testing.T) {
	epoch := time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)

	fromSec, err := market.CoerceUTC(epoch.Unix())
	require.NoError(t, err)
	assert.Equal(t, epoch, fromSec)

	fromMilli, err := market.CoerceUTC(epoch.UnixMilli())
	require.NoError(t, err)
	assert.Equal(t, epoch, fromMilli)

	fromOffset, err := market.CoerceUTC("2024-01-02T09:30:00-05:00")
	require.NoError(t, err)
	assert.Equal(t, epoch, fromOffset)

	_, err = market.CoerceUTC("2024-01-02 14:30:00 EST")
	require.Error(t, err)
}

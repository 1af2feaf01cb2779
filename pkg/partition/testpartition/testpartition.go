// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package testpartition builds partition fixture files for tests.
package testpartition

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"storj.io/stroll/pkg/market"
)

// Bar is a fixture bar row.
type Bar struct {
	Symbol string
	T      time.Time
	O      float64
	H      float64
	L      float64
	C      float64
	V      int64
	G      market.Granularity
}

// Option is a fixture option row.
type Option struct {
	Symbol string
	Expiry string
	Right  string
	Strike float64
	Bid    *float64
	Ask    *float64
	Mid    *float64
	Delta  *float64
	Gamma  *float64
}

const barsSchema = `
	CREATE TABLE bars (
		symbol TEXT NOT NULL,
		t      INTEGER NOT NULL,
		o      REAL NOT NULL,
		h      REAL NOT NULL,
		l      REAL NOT NULL,
		c      REAL NOT NULL,
		v      INTEGER NOT NULL,
		g      TEXT NOT NULL,
		UNIQUE (symbol, t, g)
	);
	CREATE INDEX idx_bars_symbol_t ON bars(symbol, t);
	CREATE INDEX idx_bars_symbol_g ON bars(symbol, g);
	CREATE INDEX idx_bars_t ON bars(t);`

const optionsSchema = `
	CREATE TABLE options (
		symbol  TEXT NOT NULL,
		expiry  TEXT NOT NULL,
		"right" TEXT NOT NULL,
		strike  REAL NOT NULL,
		bid     REAL,
		ask     REAL,
		mid     REAL,
		delta   REAL,
		gamma   REAL,
		UNIQUE (symbol, expiry, "right", strike)
	);
	CREATE INDEX idx_options_symbol_expiry ON options(symbol, expiry);
	CREATE INDEX idx_options_expiry ON options(expiry);`

// WriteBars creates a bars partition at path with the given rows.
func WriteBars(t *testing.T, path string, bars []Bar) {
	t.Helper()

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer func() { require.NoError(t, db.Close()) }()

	_, err = db.Exec(barsSchema)
	require.NoError(t, err)

	for _, bar := range bars {
		_, err = db.Exec(
			`INSERT INTO bars (symbol, t, o, h, l, c, v, g) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			bar.Symbol, bar.T.UTC().UnixMilli(), bar.O, bar.H, bar.L, bar.C, bar.V, string(bar.G))
		require.NoError(t, err)
	}
}

// WriteOptions creates an options partition at path with the given rows.
func WriteOptions(t *testing.T, path string, rows []Option) {
	t.Helper()

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer func() { require.NoError(t, db.Close()) }()

	_, err = db.Exec(optionsSchema)
	require.NoError(t, err)

	for _, row := range rows {
		_, err = db.Exec(
			`INSERT INTO options (symbol, expiry, "right", strike, bid, ask, mid, delta, gamma)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			row.Symbol, row.Expiry, row.Right, row.Strike,
			row.Bid, row.Ask, row.Mid, row.Delta, row.Gamma)
		require.NoError(t, err)
	}
}

// DailyBars generates consecutive valid daily bars for symbol starting at
// start, skipping weekends.
func DailyBars(symbol string, start time.Time, days int) []Bar {
	out := make([]Bar, 0, days)
	price := 100.0
	d := start.UTC()
	for len(out) < days {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out = append(out, Bar{
				Symbol: symbol,
				T:      time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC),
				O:      price, H: price + 2, L: price - 1, C: price + 1,
				V: 1000 + int64(len(out)),
				G: market.Day1,
			})
			price += 0.5
		}
		d = d.AddDate(0, 0, 1)
	}
	return out
}

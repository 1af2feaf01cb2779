// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package partition executes read-only range scans against embedded
// partition databases through a bounded pool of pooled connections.
package partition

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/stroll/pkg/catalog"
	"storj.io/stroll/pkg/market"
)

var (
	mon = monkit.Package()

	// Error is the generic class for partition failures.
	Error = errs.Class("partition")
	// ErrMissing means the file disappeared between catalog and open.
	ErrMissing = errs.Class("partition missing")
	// ErrCorrupt means a structural read error; the entry must be quarantined.
	ErrCorrupt = errs.Class("partition corrupt")
	// ErrScanTimeout means the per-scan deadline was exceeded.
	ErrScanTimeout = errs.Class("scan timeout")
)

// DefaultScanTimeout bounds a single partition scan.
const DefaultScanTimeout = 250 * time.Millisecond

// Config configures the partition store.
type Config struct {
	// MaxConns bounds the connections of each partition's pool.
	// Zero means 2 × CPU cores.
	MaxConns int
	// ScanTimeout bounds a single scan. Zero means DefaultScanTimeout.
	ScanTimeout time.Duration
}

func (config *Config) defaults() {
	if config.MaxConns <= 0 {
		config.MaxConns = 2 * runtime.NumCPU()
	}
	if config.ScanTimeout <= 0 {
		config.ScanTimeout = DefaultScanTimeout
	}
}

// Store owns read-only handles to partition files. Handles are opened
// lazily on first access and held for the process lifetime.
type Store struct {
	log    *zap.Logger
	config Config

	// onCorrupt is invoked with the partition path when a structural read
	// error is observed or the file is missing at open, so the owner can
	// quarantine the entry.
	onCorrupt func(path string)

	pool *Pool
}

// NewStore creates a partition store. onCorrupt may be nil.
func NewStore(log *zap.Logger, config Config, onCorrupt func(path string)) *Store {
	config.defaults()
	if onCorrupt == nil {
		onCorrupt = func(string) {}
	}
	return &Store{
		log:       log,
		config:    config,
		onCorrupt: onCorrupt,
		pool:      NewPool(),
	}
}

// Handle is a pooled read-only connection set for one partition.
type Handle struct {
	entry catalog.Entry
	db    *sql.DB
}

// Entry returns the catalog entry this handle reads.
func (h *Handle) Entry() catalog.Entry { return h.entry }

// OpenRead returns the pooled handle for entry, opening the file read-only
// on first use.
func (store *Store) OpenRead(ctx context.Context, entry catalog.Entry) (_ *Handle, err error) {
	defer mon.Task()(&ctx)(&err)

	if handle, ok := store.pool.Get(entry.Path); ok {
		return handle, nil
	}

	if _, err := os.Stat(entry.Path); err != nil {
		// The file disappeared between catalog and open; exclude it until
		// the next refresh.
		store.onCorrupt(entry.Path)
		return nil, ErrMissing.New("%s: %v", entry.Path, err)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&cache=shared&_busy_timeout=5000", entry.Path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	db.SetMaxOpenConns(store.config.MaxConns)
	db.SetMaxIdleConns(store.config.MaxConns)
	db.SetConnMaxLifetime(0)

	handle := &Handle{entry: entry, db: db}
	actual, raced := store.pool.Put(entry.Path, handle)
	if raced {
		_ = db.Close()
		return actual, nil
	}
	store.log.Debug("partition opened", zap.String("path", entry.Path))
	return handle, nil
}

// Close closes every open handle.
func (store *Store) Close() error {
	var group errs.Group
	for _, handle := range store.pool.Drain() {
		group.Add(handle.db.Close())
	}
	return Error.Wrap(group.Err())
}

// classify maps a driver error onto the store's error classes, invoking the
// corruption callback for structural failures.
func (store *Store) classify(err error, path string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrScanTimeout.New("%s", path)
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrCorrupt, sqlite3.ErrNotADB:
			store.onCorrupt(path)
			return ErrCorrupt.New("%s: %v", path, err)
		}
	}
	return Error.Wrap(err)
}

// ScanBars runs a parameterized range scan over [from, to] (civil dates,
// inclusive) returning raw rows in timestamp order. A limit > 0 bounds the
// number of rows fetched.
func (store *Store) ScanBars(ctx context.Context, handle *Handle, symbol market.Symbol, from, to time.Time, g market.Granularity, limit int) (_ []market.RawBar, err error) {
	defer mon.Task()(&ctx)(&err)

	ctx, cancel := context.WithTimeout(ctx, store.config.ScanTimeout)
	defer cancel()

	query := `
		SELECT symbol, t, o, h, l, c, v, g
		FROM bars
		WHERE symbol = ? AND t >= ? AND t <= ? AND g = ?
		ORDER BY t ASC`
	args := []interface{}{
		string(symbol),
		dayStartMilli(from),
		dayEndMilli(to),
		string(g),
	}
	if limit > 0 {
		query += `
		LIMIT ?`
		args = append(args, limit)
	}

	rows, err := handle.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.classify(err, handle.entry.Path)
	}
	defer func() { err = errs.Combine(err, rows.Close()) }()

	var out []market.RawBar
	for rows.Next() {
		var raw market.RawBar
		if err := rows.Scan(&raw.Symbol, &raw.T, &raw.O, &raw.H, &raw.L, &raw.C, &raw.V, &raw.G); err != nil {
			return nil, store.classify(err, handle.entry.Path)
		}
		out = append(out, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, store.classify(err, handle.entry.Path)
	}
	return out, nil
}

// ScanOptions returns the stored chain for (symbol, expiry) ordered by
// (right, strike).
func (store *Store) ScanOptions(ctx context.Context, handle *Handle, symbol market.Symbol, expiry time.Time) (_ []market.RawOption, err error) {
	defer mon.Task()(&ctx)(&err)

	ctx, cancel := context.WithTimeout(ctx, store.config.ScanTimeout)
	defer cancel()

	rows, err := handle.db.QueryContext(ctx, `
		SELECT symbol, expiry, "right", strike, bid, ask, mid, delta, gamma
		FROM options
		WHERE symbol = ? AND expiry = ?
		ORDER BY "right" ASC, strike ASC`,
		string(symbol), market.FormatDate(expiry))
	if err != nil {
		return nil, store.classify(err, handle.entry.Path)
	}
	defer func() { err = errs.Combine(err, rows.Close()) }()

	var out []market.RawOption
	for rows.Next() {
		var raw market.RawOption
		if err := rows.Scan(&raw.Symbol, &raw.Expiry, &raw.Right, &raw.Strike,
			&raw.Bid, &raw.Ask, &raw.Mid, &raw.Delta, &raw.Gamma); err != nil {
			return nil, store.classify(err, handle.entry.Path)
		}
		out = append(out, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, store.classify(err, handle.entry.Path)
	}
	return out, nil
}

// Probe runs a trivial query against the partition and reports its latency.
func (store *Store) Probe(ctx context.Context, handle *Handle) (_ time.Duration, err error) {
	defer mon.Task()(&ctx)(&err)

	start := time.Now()
	var one int
	err = handle.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one)
	if err != nil {
		return 0, store.classify(err, handle.entry.Path)
	}
	return time.Since(start), nil
}

func dayStartMilli(t time.Time) int64 {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).UnixMilli()
}

func dayEndMilli(t time.Time) int64 {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, time.UTC).UnixMilli() - 1
}

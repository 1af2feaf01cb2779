// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package catalog discovers partition files under a data root and resolves
// queries onto the partitions whose spans cover them.
package catalog

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/stroll/pkg/market"
)

var (
	mon = monkit.Package()

	// Error is the class for catalog failures.
	Error = errs.Class("catalog")
)

// Snapshot is an immutable view of the discovered partitions. Catalog swaps
// whole snapshots; a snapshot itself is never mutated after construction.
type Snapshot struct {
	entries     []Entry
	quarantined map[string]bool
	degraded    bool
	ignored     int
	discovered  time.Time
}

// Degraded reports whether discovery could not read the data root.
func (snap *Snapshot) Degraded() bool { return snap.degraded }

// Ignored reports how many files were skipped, either for not matching the
// grammar or for repeating the key of an entry discovered earlier.
func (snap *Snapshot) Ignored() int { return snap.ignored }

// DiscoveredAt reports when this snapshot was built.
func (snap *Snapshot) DiscoveredAt() time.Time { return snap.discovered }

// Len reports the number of usable entries.
func (snap *Snapshot) Len() int { return len(snap.entries) - len(snap.quarantined) }

// Entries returns all non-quarantined entries in discovery order.
func (snap *Snapshot) Entries() []Entry {
	out := make([]Entry, 0, len(snap.entries))
	for _, entry := range snap.entries {
		if !snap.quarantined[entry.Path] {
			out = append(out, entry)
		}
	}
	return out
}

// Resolve returns the entries covering (symbol, kind, g, [from, to]),
// ordered by span start ascending with discovery order as the tie-break.
// Overlap is inclusive on both ends. For options the granularity is ignored.
func (snap *Snapshot) Resolve(symbol market.Symbol, kind Kind, g market.Granularity, from, to time.Time) []Entry {
	var matched []Entry
	for _, entry := range snap.entries {
		if snap.quarantined[entry.Path] {
			continue
		}
		if entry.Symbol != symbol || entry.Kind != kind {
			continue
		}
		if kind == KindBars && entry.Granularity != g {
			continue
		}
		if !entry.Span.Intersects(from, to) {
			continue
		}
		matched = append(matched, entry)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].Span.Start.Equal(matched[j].Span.Start) {
			return matched[i].Span.Start.Before(matched[j].Span.Start)
		}
		return matched[i].Order < matched[j].Order
	})
	return matched
}

// withQuarantine derives a snapshot that additionally excludes path.
func (snap *Snapshot) withQuarantine(path string) *Snapshot {
	next := &Snapshot{
		entries:     snap.entries,
		quarantined: make(map[string]bool, len(snap.quarantined)+1),
		degraded:    snap.degraded,
		ignored:     snap.ignored,
		discovered:  snap.discovered,
	}
	for p := range snap.quarantined {
		next.quarantined[p] = true
	}
	next.quarantined[path] = true
	return next
}

// Catalog owns the current snapshot and rebuilds it on refresh.
type Catalog struct {
	log  *zap.Logger
	root string

	current atomic.Pointer[Snapshot]
}

// New creates a Catalog over the given data root. Call Refresh to run the
// initial discovery.
func New(log *zap.Logger, root string) *Catalog {
	cat := &Catalog{log: log, root: root}
	cat.current.Store(&Snapshot{degraded: true, quarantined: map[string]bool{}})
	return cat
}

// Root returns the configured data root.
func (cat *Catalog) Root() string { return cat.root }

// Snapshot returns the current immutable snapshot.
func (cat *Catalog) Snapshot() *Snapshot { return cat.current.Load() }

// Refresh re-discovers partitions and atomically swaps the snapshot.
// Quarantine marks are intentionally dropped: a refresh is the only way a
// quarantined partition comes back.
func (cat *Catalog) Refresh(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	snap, err := discover(ctx, cat.log, cat.root)
	if err != nil {
		return Error.Wrap(err)
	}
	cat.current.Store(snap)
	cat.log.Info("catalog refreshed",
		zap.Int("partitions", len(snap.entries)),
		zap.Int("ignored", snap.ignored),
		zap.Bool("degraded", snap.degraded))
	return nil
}

// Quarantine excludes the partition at path from future resolution until
// the next refresh.
func (cat *Catalog) Quarantine(path string) {
	for {
		old := cat.current.Load()
		if old.quarantined[path] {
			return
		}
		if cat.current.CompareAndSwap(old, old.withQuarantine(path)) {
			cat.log.Warn("partition quarantined", zap.String("path", path))
			return
		}
	}
}

// discover walks the root and parses every file against the naming grammar.
// A missing root yields an empty, degraded snapshot rather than an error.
func discover(ctx context.Context, log *zap.Logger, root string) (*Snapshot, error) {
	snap := &Snapshot{
		quarantined: map[string]bool{},
		discovered:  time.Now().UTC(),
	}

	if _, err := os.Stat(root); err != nil {
		log.Warn("data root not accessible", zap.String("root", root), zap.Error(err))
		snap.degraded = true
		return snap, nil
	}

	seen := map[string]bool{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		entry, ok := parseFilename(d.Name())
		if !ok {
			log.Debug("ignoring non-partition file", zap.String("path", path))
			snap.ignored++
			return nil
		}
		entry.Path = path
		entry.Order = len(snap.entries)
		if seen[entry.Key()] {
			log.Warn("duplicate partition key, keeping first", zap.String("path", path))
			snap.ignored++
			return nil
		}
		seen[entry.Key()] = true
		snap.entries = append(snap.entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

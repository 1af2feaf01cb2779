// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package history

import (
	"context"
	"time"

	"storj.io/stroll/internal/date"
	"storj.io/stroll/pkg/catalog"
	"storj.io/stroll/pkg/market"
)

// Inventory sampling bounds.
const (
	maxInventorySamples = 50
	maxReportedSamples  = 10

	// estimatedHolidaysPerYear approximates market holidays when estimating
	// expected trading days from weekday counts.
	estimatedHolidaysPerYear = 10
)

type recommendation struct {
	Priority string `json:"priority"`
	Action   string `json:"action"`
	Detail   string `json:"detail"`
}

type inventoryReport struct {
	Symbol              string           `json:"symbol"`
	From                string           `json:"from"`
	To                  string           `json:"to"`
	CoveragePct         float64          `json:"coverage_pct"`
	ExpectedTradingDays int              `json:"expected_trading_days"`
	ProbedSamples       int              `json:"probed_samples"`
	AvailableSamples    []string         `json:"available_samples"`
	MissingSamples      []string         `json:"missing_samples"`
	Recommendations     []recommendation `json:"recommendations"`
}

// analyzeInventory samples up to 50 likely-trading days uniformly across
// [from, to] and probes each for stored daily bars.
func (service *Service) analyzeInventory(ctx context.Context, symbol market.Symbol, from, to time.Time) inventoryReport {
	report := inventoryReport{
		Symbol:           string(symbol),
		From:             market.FormatDate(from),
		To:               market.FormatDate(to),
		AvailableSamples: []string{},
		MissingSamples:   []string{},
	}

	samples := sampleWeekdays(from, to, maxInventorySamples)
	report.ProbedSamples = len(samples)

	snap := service.catalog.Snapshot()
	found := 0
	for _, day := range samples {
		if service.probeDay(ctx, snap, symbol, day) {
			found++
			if len(report.AvailableSamples) < maxReportedSamples {
				report.AvailableSamples = append(report.AvailableSamples, market.FormatDate(day))
			}
		} else if len(report.MissingSamples) < maxReportedSamples {
			report.MissingSamples = append(report.MissingSamples, market.FormatDate(day))
		}
	}

	if len(samples) > 0 {
		report.CoveragePct = round1(100 * float64(found) / float64(len(samples)))
	}

	weekdays := date.WeekdaysBetween(from, to)
	years := to.Sub(from).Hours() / (24 * 365)
	expected := weekdays - int(years*estimatedHolidaysPerYear)
	if expected < 0 {
		expected = 0
	}
	report.ExpectedTradingDays = expected

	report.Recommendations = []recommendation{recommend(report.CoveragePct)}
	return report
}

// probeDay reports whether any daily bar exists for symbol on day.
func (service *Service) probeDay(ctx context.Context, snap *catalog.Snapshot, symbol market.Symbol, day time.Time) bool {
	entries := snap.Resolve(symbol, catalog.KindBars, market.Day1, day, day)
	for _, entry := range entries {
		handle, err := service.store.OpenRead(ctx, entry)
		if err != nil {
			continue
		}
		raws, err := service.store.ScanBars(ctx, handle, symbol, day, day, market.Day1, 1)
		if err == nil && len(raws) > 0 {
			return true
		}
	}
	return false
}

// sampleWeekdays picks up to limit dates uniformly across [from, to],
// shifting weekend hits onto the following Monday.
func sampleWeekdays(from, to time.Time, limit int) []time.Time {
	from, _ = date.DayBoundary(from)
	to, _ = date.DayBoundary(to)

	days := int(to.Sub(from).Hours()/24) + 1
	if days <= 0 {
		return nil
	}
	step := days / limit
	if step < 1 {
		step = 1
	}

	var out []time.Time
	seen := map[string]bool{}
	for d := from; !d.After(to) && len(out) < limit; d = d.AddDate(0, 0, step) {
		sample := date.NextWeekday(d)
		if sample.After(to) {
			break
		}
		key := market.FormatDate(sample)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, sample)
	}
	return out
}

// recommend maps a coverage percentage onto the action ladder.
func recommend(coverage float64) recommendation {
	switch {
	case coverage < 10:
		return recommendation{
			Priority: "HIGH", Action: "ACQUIRE_DATA",
			Detail: "almost no history stored for this range; run an acquisition pass",
		}
	case coverage < 70:
		return recommendation{
			Priority: "MEDIUM", Action: "FILL_GAPS",
			Detail: "large gaps in stored history; backfill the missing dates",
		}
	case coverage < 95:
		return recommendation{
			Priority: "LOW", Action: "OPTIMIZE_COVERAGE",
			Detail: "minor gaps remain; consider a targeted backfill",
		}
	default:
		return recommendation{
			Priority: "INFO", Action: "DATA_READY",
			Detail: "stored history covers the range",
		}
	}
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

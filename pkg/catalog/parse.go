// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package catalog

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"storj.io/stroll/pkg/market"
)

// partitionExts are the recognized partition file extensions.
var partitionExts = map[string]bool{
	".db":      true,
	".sqlite":  true,
	".sqlite3": true,
}

// tickKinds are the accepted leading tokens of sub-minute partition names.
var tickKinds = map[string]bool{
	"trades": true,
	"quotes": true,
	"ticks":  true,
}

// parseFilename parses a partition filename against the naming grammar:
//
//	bars:    <symbol>_<g>_<y1>[_<y2>].<ext>
//	sub-min: <kind>_<symbol>_<yyyy>_<mm>.<ext>
//	options: options_<symbol>_<yyyy>[_<mm>].<ext>
//
// It returns ok=false for names outside the grammar.
func parseFilename(name string) (Entry, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if !partitionExts[ext] {
		return Entry{}, false
	}
	base := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
	tokens := strings.Split(base, "_")
	if len(tokens) < 2 {
		return Entry{}, false
	}

	switch {
	case tokens[0] == "options":
		return parseOptionsName(tokens)
	case tickKinds[tokens[0]]:
		return parseTicksName(tokens)
	default:
		return parseBarsName(tokens)
	}
}

func parseOptionsName(tokens []string) (Entry, bool) {
	// options_<symbol>_<yyyy>[_<mm>]
	if len(tokens) != 3 && len(tokens) != 4 {
		return Entry{}, false
	}
	symbol, err := market.CanonSymbol(tokens[1])
	if err != nil {
		return Entry{}, false
	}
	year, ok := parseYear(tokens[2])
	if !ok {
		return Entry{}, false
	}
	span := yearSpan(year)
	if len(tokens) == 4 {
		month, ok := parseMonth(tokens[3])
		if !ok {
			return Entry{}, false
		}
		span = monthSpan(year, month)
	}
	return Entry{Symbol: symbol, Kind: KindOptions, Span: span}, true
}

func parseTicksName(tokens []string) (Entry, bool) {
	// <kind>_<symbol>_<yyyy>_<mm>
	if len(tokens) != 4 {
		return Entry{}, false
	}
	symbol, err := market.CanonSymbol(tokens[1])
	if err != nil {
		return Entry{}, false
	}
	year, ok := parseYear(tokens[2])
	if !ok {
		return Entry{}, false
	}
	month, ok := parseMonth(tokens[3])
	if !ok {
		return Entry{}, false
	}
	return Entry{Symbol: symbol, Kind: KindTicks, Span: monthSpan(year, month)}, true
}

func parseBarsName(tokens []string) (Entry, bool) {
	// <symbol>_<g>_<y1>[_<y2>]
	if len(tokens) != 3 && len(tokens) != 4 {
		return Entry{}, false
	}
	symbol, err := market.CanonSymbol(tokens[0])
	if err != nil {
		return Entry{}, false
	}
	g, err := market.ParseGranularity(tokens[1])
	if err != nil {
		return Entry{}, false
	}
	y1, ok := parseYear(tokens[2])
	if !ok {
		return Entry{}, false
	}
	y2 := y1
	if len(tokens) == 4 {
		y2, ok = parseYear(tokens[3])
		if !ok || y2 < y1 {
			return Entry{}, false
		}
	}
	return Entry{
		Symbol:      symbol,
		Kind:        KindBars,
		Granularity: g,
		Span: Span{
			Start: time.Date(y1, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(y2, 12, 31, 0, 0, 0, 0, time.UTC),
		},
	}, true
}

func parseYear(s string) (int, bool) {
	if len(s) != 4 {
		return 0, false
	}
	year, err := strconv.Atoi(s)
	if err != nil || year < 1970 || year > 2999 {
		return 0, false
	}
	return year, true
}

func parseMonth(s string) (int, bool) {
	if len(s) != 2 {
		return 0, false
	}
	month, err := strconv.Atoi(s)
	if err != nil || month < 1 || month > 12 {
		return 0, false
	}
	return month, true
}

func yearSpan(year int) Span {
	return Span{
		Start: time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC),
	}
}

func monthSpan(year, month int) Span {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return Span{
		Start: start,
		End:   start.AddDate(0, 1, -1),
	}
}

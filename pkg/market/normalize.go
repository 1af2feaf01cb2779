// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package market

import (
	"time"

	"github.com/zeebo/errs"
)

// ErrData is the class for rows that cannot be normalized.
var ErrData = errs.Class("market data")

// RawBar is a bar row as read from a partition, before normalization.
// T carries whatever the storage driver produced: an epoch integer or a
// textual timestamp.
type RawBar struct {
	Symbol string
	T      interface{}
	O      float64
	H      float64
	L      float64
	C      float64
	V      int64
	G      string
}

// RawOption is an option row as read from a partition.
type RawOption struct {
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

// NormalizeStats reports how a normalization pass went.
type NormalizeStats struct {
	Total   int
	Dropped int
}

// maxDropRatio is the fraction of dropped rows above which a scan is
// considered poisoned rather than merely dirty.
const maxDropRatio = 0.5

// Normalizer converts raw partition rows into canonical records, enforcing
// the bar and option invariants.
type Normalizer struct {
	intern *InternTable
}

// NewNormalizer creates a Normalizer around the service intern table.
func NewNormalizer(intern *InternTable) *Normalizer {
	return &Normalizer{intern: intern}
}

// NormalizeBars converts raw rows into canonical bars tagged with the
// interned symbol and canonical g. Rows violating the bar invariants are
// dropped and counted; duplicate timestamps keep the first row seen. If more
// than half the rows drop, the whole scan fails.
func (n *Normalizer) NormalizeBars(symbolRaw string, g Granularity, raws []RawBar) (_ []Bar, stats NormalizeStats, err error) {
	symbol, err := n.intern.Intern(symbolRaw)
	if err != nil {
		return nil, stats, ErrData.Wrap(err)
	}
	stats.Total = len(raws)
	bars := make([]Bar, 0, len(raws))
	var last time.Time

	for _, raw := range raws {
		t, terr := CoerceUTC(raw.T)
		if terr != nil {
			stats.Dropped++
			continue
		}
		bar := Bar{
			T:      t,
			O:      PriceFromFloat(raw.O),
			H:      PriceFromFloat(raw.H),
			L:      PriceFromFloat(raw.L),
			C:      PriceFromFloat(raw.C),
			V:      raw.V,
			Symbol: symbol,
			G:      g,
		}
		if bar.Validate() != nil {
			stats.Dropped++
			continue
		}
		if len(bars) > 0 && !bar.T.After(last) {
			// Timestamps must be strictly monotonic; the later row loses.
			stats.Dropped++
			continue
		}
		last = bar.T
		bars = append(bars, bar)
	}

	if stats.Total > 0 && float64(stats.Dropped)/float64(stats.Total) > maxDropRatio {
		return nil, stats, ErrData.New("dropped %d of %d rows", stats.Dropped, stats.Total)
	}
	return bars, stats, nil
}

// NormalizeOptions converts raw option rows into canonical rows. Invalid
// rows are dropped and counted under the same poisoning threshold as bars.
func (n *Normalizer) NormalizeOptions(symbolRaw string, raws []RawOption) (_ []OptionRow, stats NormalizeStats, err error) {
	symbol, err := n.intern.Intern(symbolRaw)
	if err != nil {
		return nil, stats, ErrData.Wrap(err)
	}
	stats.Total = len(raws)
	rows := make([]OptionRow, 0, len(raws))

	for _, raw := range raws {
		expiry, terr := ParseDate(raw.Expiry)
		if terr != nil {
			stats.Dropped++
			continue
		}
		right, rerr := ParseRight(raw.Right)
		if rerr != nil {
			stats.Dropped++
			continue
		}
		row := OptionRow{
			Symbol: symbol,
			Expiry: expiry,
			Right:  right,
			Strike: PriceFromFloat(raw.Strike),
			Bid:    optPrice(raw.Bid),
			Ask:    optPrice(raw.Ask),
			Mid:    optPrice(raw.Mid),
			Delta:  raw.Delta,
			Gamma:  raw.Gamma,
		}
		if row.Validate() != nil {
			stats.Dropped++
			continue
		}
		rows = append(rows, row)
	}

	if stats.Total > 0 && float64(stats.Dropped)/float64(stats.Total) > maxDropRatio {
		return nil, stats, ErrData.New("dropped %d of %d rows", stats.Dropped, stats.Total)
	}
	return rows, stats, nil
}

func optPrice(v *float64) *Price {
	if v == nil {
		return nil
	}
	p := PriceFromFloat(*v)
	return &p
}

// timestamp layouts accepted from partitions, all interpreted as UTC when
// they carry no offset.
var utcLayouts = []string{
	"2006-01-02T15:04:05.000Z07:00",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// CoerceUTC converts a raw timestamp value into a UTC instant. Integers are
// epoch seconds or milliseconds; strings must either carry an explicit
// offset or none at all. Named-zone timestamps are ambiguous and rejected.
func CoerceUTC(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case int64:
		return epochUTC(t), nil
	case int:
		return epochUTC(int64(t)), nil
	case float64:
		return epochUTC(int64(t)), nil
	case string:
		for _, layout := range utcLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.UTC(), nil
			}
		}
		return time.Time{}, ErrData.New("ambiguous timestamp %q", t)
	case []byte:
		return CoerceUTC(string(t))
	}
	return time.Time{}, ErrData.New("unsupported timestamp type %T", v)
}

func epochUTC(v int64) time.Time {
	// Values this large can only be epoch milliseconds.
	if v > 1e12 || v < -1e12 {
		return time.UnixMilli(v).UTC()
	}
	return time.Unix(v, 0).UTC()
}

// ParseDate parses a YYYY-MM-DD civil date as a UTC midnight instant.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, errs.New("invalid date %q", s)
	}
	return t.UTC(), nil
}

// FormatDate renders a UTC instant as a YYYY-MM-DD civil date.
func FormatDate(t time.Time) string { return t.UTC().Format("2006-01-02") }
